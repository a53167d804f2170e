// Package backend forwards verification requests to the analysis service.
package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net"
	"net/http"
	"net/textproto"
	"strings"

	"truthlens/internal/platform/metrics"
	"truthlens/internal/verify/models"
	"truthlens/pkg/requestcontext"
)

const (
	analyzePath = "/analyze"
	healthPath  = "/health"
)

// EmptySuccessBody is relayed when the backend answers 2xx with no body, such
// as a 204. It keeps the client-facing body valid JSON.
const EmptySuccessBody = `""`

// HTTPDoer is the minimal interface needed from an HTTP client.
type HTTPDoer interface {
	Do(req *http.Request) (*http.Response, error)
}

// Config configures a Client.
type Config struct {
	BaseURL    string
	HTTPClient HTTPDoer
	Metrics    *metrics.Metrics
}

// Client speaks the backend's multipart /analyze contract.
type Client struct {
	baseURL string
	client  HTTPDoer
	metrics *metrics.Metrics
}

// New creates a backend client. A nil HTTPClient falls back to http.DefaultClient.
func New(cfg Config) *Client {
	doer := cfg.HTTPClient
	if doer == nil {
		doer = http.DefaultClient
	}
	return &Client{
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		client:  doer,
		metrics: cfg.Metrics,
	}
}

// Analyze re-packages req as multipart form data, posts it to /analyze and
// returns the raw 2xx body. Every failure is an *Error.
func (c *Client) Analyze(ctx context.Context, req *models.VerificationRequest) (*models.Result, error) {
	body, contentType, err := EncodeMultipart(req)
	if err != nil {
		return nil, &Error{Category: CategoryEncoding, Err: err}
	}
	c.metrics.ObserveForwardedBytes(body.Len())

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+analyzePath, body)
	if err != nil {
		return nil, &Error{Category: CategoryEncoding, Err: fmt.Errorf("build request: %w", err)}
	}
	httpReq.Header.Set("Content-Type", contentType)
	httpReq.Header.Set("Accept", "application/json")
	if requestID := requestcontext.RequestID(ctx); requestID != "" {
		httpReq.Header.Set("X-Request-ID", requestID)
	}

	resp, err := c.client.Do(httpReq)
	if err != nil {
		return nil, classifyTransportError(ctx, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, classifyTransportError(ctx, fmt.Errorf("read response: %w", err))
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &Error{Category: CategoryRejected, StatusCode: resp.StatusCode, Body: respBody}
	}
	if len(bytes.TrimSpace(respBody)) == 0 {
		return &models.Result{StatusCode: resp.StatusCode, Body: []byte(EmptySuccessBody)}, nil
	}
	if !json.Valid(respBody) {
		return nil, &Error{
			Category:   CategoryContract,
			StatusCode: resp.StatusCode,
			Body:       respBody,
			Err:        errors.New("response body is not valid JSON"),
		}
	}

	return &models.Result{StatusCode: resp.StatusCode, Body: respBody}, nil
}

// Health checks the backend's own health endpoint.
func (c *Client) Health(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+healthPath, nil)
	if err != nil {
		return err
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return classifyTransportError(ctx, err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body) //nolint:errcheck // drain for connection reuse

	if resp.StatusCode != http.StatusOK {
		return &Error{Category: CategoryRejected, StatusCode: resp.StatusCode}
	}
	return nil
}

func classifyTransportError(ctx context.Context, err error) *Error {
	if errors.Is(ctx.Err(), context.Canceled) {
		return &Error{Category: CategoryCanceled, Err: err}
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return &Error{Category: CategoryTimeout, Err: err}
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return &Error{Category: CategoryTimeout, Err: err}
	}
	return &Error{Category: CategoryUnreachable, Err: err}
}

// EncodeMultipart builds the outbound payload. Only fields that are present
// are written; the image part keeps the client's filename and content type.
func EncodeMultipart(req *models.VerificationRequest) (*bytes.Buffer, string, error) {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)

	if req.HasText() {
		if err := mw.WriteField(models.FieldText, req.Text); err != nil {
			return nil, "", fmt.Errorf("write text field: %w", err)
		}
	}

	if req.HasImage() {
		part, err := mw.CreatePart(imagePartHeader(req.Image))
		if err != nil {
			return nil, "", fmt.Errorf("create image part: %w", err)
		}
		if _, err := part.Write(req.Image.Data); err != nil {
			return nil, "", fmt.Errorf("write image part: %w", err)
		}
	}

	if err := mw.Close(); err != nil {
		return nil, "", fmt.Errorf("close multipart writer: %w", err)
	}
	return &buf, mw.FormDataContentType(), nil
}

// imagePartHeader is multipart.Writer.CreateFormFile without the forced
// application/octet-stream content type.
func imagePartHeader(img *models.Image) textproto.MIMEHeader {
	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", fmt.Sprintf(`form-data; name="%s"; filename="%s"`,
		escapeQuotes(models.FieldImage), escapeQuotes(img.Filename)))
	h.Set("Content-Type", img.ImageContentType())
	return h
}

var quoteEscaper = strings.NewReplacer("\\", "\\\\", `"`, "\\\"")

func escapeQuotes(s string) string {
	return quoteEscaper.Replace(s)
}
