// Package models defines the values that flow through one verification relay.
package models

import (
	dErrors "truthlens/pkg/domain-errors"
)

// Form field names shared by the client-facing and backend-facing multipart bodies.
const (
	FieldText  = "text"
	FieldImage = "image"
)

// DefaultImageContentType is forwarded when the client declared no content type.
const DefaultImageContentType = "application/octet-stream"

// MsgNoInput is returned when a request carries neither text nor an image.
const MsgNoInput = "No input provided. Please provide text or an image."

// Image is an uploaded file, held in memory for the duration of one request.
type Image struct {
	Filename    string
	ContentType string
	Data        []byte
}

// VerificationRequest is one user submission. Text is forwarded as-is; the
// gateway performs no sanitization of its own.
type VerificationRequest struct {
	Text  string
	Image *Image
}

// HasText reports whether a non-empty text field was supplied.
func (r *VerificationRequest) HasText() bool {
	return r.Text != ""
}

// HasImage reports whether an image file was supplied.
func (r *VerificationRequest) HasImage() bool {
	return r.Image != nil
}

// Validate enforces that at least one of text or image is present.
func (r *VerificationRequest) Validate() error {
	if !r.HasText() && !r.HasImage() {
		return dErrors.New(dErrors.CodeInvalidRequest, MsgNoInput)
	}
	return nil
}

// ImageContentType returns the declared content type, or the generic binary type.
func (i *Image) ImageContentType() string {
	if i.ContentType == "" {
		return DefaultImageContentType
	}
	return i.ContentType
}

// Result is the backend's verdict for one request. Body is relayed to the
// client byte-for-byte and never re-encoded.
type Result struct {
	StatusCode int
	Body       []byte
}

// Verdict documents the canonical JSON object the analysis backend must
// return on success. The gateway does not decode it on the relay path; the
// end-to-end suite checks relayed bodies against it.
type Verdict struct {
	Verdict     string   `json:"Verdict"`
	Confidence  string   `json:"Confidence"`
	Explanation string   `json:"Explanation"`
	KeyFindings []string `json:"KeyFindings,omitempty"`
	Sources     []string `json:"Sources,omitempty"`
	RedFlags    []string `json:"RedFlags,omitempty"`
}

// Verdict labels emitted by backends following the canonical contract.
const (
	VerdictTrue       = "TRUE"
	VerdictFalse      = "FALSE"
	VerdictMisleading = "MISLEADING"
	VerdictUnverified = "UNVERIFIED"
)
