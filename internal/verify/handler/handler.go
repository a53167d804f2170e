package handler

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"truthlens/internal/platform/metrics"
	"truthlens/internal/verify/models"
	"truthlens/internal/verify/service"
	dErrors "truthlens/pkg/domain-errors"
	"truthlens/pkg/platform/httputil"
	"truthlens/pkg/platform/middleware/request"
)

// VerifyPath is the client-facing relay endpoint.
const VerifyPath = "/api/verify"

// Service defines the interface for verify operations.
type Service interface {
	Verify(ctx context.Context, req *models.VerificationRequest) (*models.Result, error)
}

// Handler handles the verify endpoint.
type Handler struct {
	logger  *slog.Logger
	verify  Service
	metrics *metrics.Metrics
}

// New creates a new verify Handler.
func New(verify Service, logger *slog.Logger, metrics *metrics.Metrics) *Handler {
	return &Handler{
		logger:  logger,
		verify:  verify,
		metrics: metrics,
	}
}

// Register registers the verify routes with the chi router.
func (h *Handler) Register(r chi.Router) {
	r.Post(VerifyPath, h.handleVerify)
}

func (h *Handler) handleVerify(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := request.GetRequestID(ctx)

	req, err := decodeVerifyRequest(r)
	if err != nil {
		h.logger.ErrorContext(ctx, "failed to read verify request",
			"request_id", requestID,
			"error", err,
		)
		h.fail(w, err)
		return
	}

	if err := httputil.PrepareRequest(req); err != nil {
		h.logger.WarnContext(ctx, "invalid verify request",
			"request_id", requestID,
			"error", err,
		)
		h.fail(w, err)
		return
	}

	result, err := h.verify.Verify(ctx, req)
	if err != nil {
		h.logger.ErrorContext(ctx, "verification failed",
			"request_id", requestID,
			"has_text", req.HasText(),
			"has_image", req.HasImage(),
			"error", err,
		)
		h.fail(w, err)
		return
	}

	h.metrics.IncrementVerify(metrics.OutcomeSuccess)
	httputil.WriteRawJSON(w, http.StatusOK, result.Body)
}

func (h *Handler) fail(w http.ResponseWriter, err error) {
	h.metrics.IncrementVerify(service.Outcome(err))
	httputil.WriteError(w, err)
}

// decodeVerifyRequest streams the multipart body and keeps the first "text"
// field and the first "image" part that carries a filename. Other parts are
// skipped. A body that is not multipart carries neither field.
func decodeVerifyRequest(r *http.Request) (*models.VerificationRequest, error) {
	req := &models.VerificationRequest{}

	reader, err := r.MultipartReader()
	if errors.Is(err, http.ErrNotMultipart) {
		return req, nil
	}
	if err != nil {
		return nil, gatewayFault(err)
	}

	var haveText bool
	for {
		part, err := reader.NextPart()
		if errors.Is(err, io.EOF) {
			return req, nil
		}
		if err != nil {
			return nil, readError(err)
		}

		switch {
		case part.FormName() == models.FieldText && !haveText && part.FileName() == "":
			data, err := io.ReadAll(part)
			if err != nil {
				return nil, readError(err)
			}
			req.Text = string(data)
			haveText = true
		case part.FormName() == models.FieldImage && req.Image == nil && part.FileName() != "":
			var buf bytes.Buffer
			if _, err := io.Copy(&buf, part); err != nil {
				return nil, readError(err)
			}
			req.Image = &models.Image{
				Filename:    part.FileName(),
				ContentType: part.Header.Get("Content-Type"),
				Data:        buf.Bytes(),
			}
		}
		_ = part.Close()
	}
}

func readError(err error) error {
	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		return &dErrors.Error{
			Code:    dErrors.CodePayloadTooLarge,
			Message: "Upload too large",
			Details: fmt.Sprintf("Request body exceeds %d bytes", tooLarge.Limit),
			Err:     err,
		}
	}
	return gatewayFault(err)
}

func gatewayFault(err error) error {
	return &dErrors.Error{
		Code:    dErrors.CodeInternal,
		Message: service.MsgGatewayFault,
		Details: err.Error(),
		Err:     err,
	}
}
