package testutil

import (
	"bytes"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"testing"

	"github.com/stretchr/testify/require"
)

// ImageFixture describes a file part for multipart test requests.
type ImageFixture struct {
	Filename    string
	ContentType string
	Data        []byte
}

// PNGFixture is a small image part with a non-default content type.
var PNGFixture = ImageFixture{
	Filename:    "screenshot.png",
	ContentType: "image/png",
	Data:        []byte("\x89PNG\r\n\x1a\nfake-image-bytes"),
}

// MultipartBody encodes an optional text field and an optional image part.
// An empty text is omitted; a nil image is omitted.
func MultipartBody(t testing.TB, text string, image *ImageFixture) (*bytes.Buffer, string) {
	t.Helper()

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	if text != "" {
		require.NoError(t, mw.WriteField("text", text))
	}
	if image != nil {
		h := make(textproto.MIMEHeader)
		h.Set("Content-Disposition", `form-data; name="image"; filename="`+image.Filename+`"`)
		if image.ContentType != "" {
			h.Set("Content-Type", image.ContentType)
		}
		part, err := mw.CreatePart(h)
		require.NoError(t, err)
		_, err = part.Write(image.Data)
		require.NoError(t, err)
	}
	require.NoError(t, mw.Close())
	return &buf, mw.FormDataContentType()
}

// NewVerifyRequest builds a POST /api/verify request with a multipart body.
func NewVerifyRequest(t testing.TB, text string, image *ImageFixture) *http.Request {
	t.Helper()
	body, contentType := MultipartBody(t, text, image)
	req := httptest.NewRequest(http.MethodPost, "/api/verify", body)
	req.Header.Set("Content-Type", contentType)
	return req
}

// CapturedUpload is what a fake backend observed in one /analyze call.
type CapturedUpload struct {
	HasText          bool
	Text             string
	HasImage         bool
	ImageFilename    string
	ImageContentType string
	ImageData        []byte
	RequestID        string
	FieldNames       []string
}

// CaptureUpload parses an inbound multipart request the way a backend would.
func CaptureUpload(r *http.Request) (CapturedUpload, error) {
	var c CapturedUpload
	c.RequestID = r.Header.Get("X-Request-ID")
	mr, err := r.MultipartReader()
	if err != nil {
		return c, err
	}
	for {
		part, err := mr.NextPart()
		if err != nil {
			break
		}
		var data bytes.Buffer
		if _, err := data.ReadFrom(part); err != nil {
			return c, err
		}
		c.FieldNames = append(c.FieldNames, part.FormName())
		switch part.FormName() {
		case "text":
			c.HasText = true
			c.Text = data.String()
		case "image":
			c.HasImage = true
			c.ImageFilename = part.FileName()
			c.ImageContentType = part.Header.Get("Content-Type")
			c.ImageData = data.Bytes()
		}
	}
	return c, nil
}
