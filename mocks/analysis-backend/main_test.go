package main

import (
	"bytes"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"
)

func analyze(t *testing.T, text string) *httptest.ResponseRecorder {
	t.Helper()
	latencyMs = 0

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	if text != "" {
		if err := mw.WriteField("text", text); err != nil {
			t.Fatal(err)
		}
	}
	if err := mw.Close(); err != nil {
		t.Fatal(err)
	}
	req := httptest.NewRequest(http.MethodPost, "/analyze", &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	rec := httptest.NewRecorder()
	handleAnalyze(rec, req)
	return rec
}

func TestAnalyzeReturnsStableVerdict(t *testing.T) {
	first := analyze(t, "the sky is green")
	second := analyze(t, "the sky is green")

	if first.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", first.Code)
	}
	if first.Body.String() != second.Body.String() {
		t.Fatalf("verdict is not deterministic")
	}
	var v Verdict
	if err := json.Unmarshal(first.Body.Bytes(), &v); err != nil {
		t.Fatal(err)
	}
	if v.Verdict == "" || v.Confidence == "" {
		t.Fatalf("incomplete verdict: %+v", v)
	}
}

func TestAnalyzeMagicInputs(t *testing.T) {
	tests := []struct {
		text   string
		status int
	}{
		{magicReject, http.StatusUnprocessableEntity},
		{magicCrash, http.StatusInternalServerError},
		{magicGarbage, http.StatusOK},
		{"", http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.text, func(t *testing.T) {
			if got := analyze(t, tt.text).Code; got != tt.status {
				t.Fatalf("expected %d, got %d", tt.status, got)
			}
		})
	}
}
