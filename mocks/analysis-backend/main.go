package main

import (
	"crypto/sha256"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"strconv"
	"time"
)

const (
	defaultPort      = "5000"
	defaultLatencyMs = "150"

	// maxMemory bounds the in-memory portion of a parsed upload.
	maxMemory = 32 << 20
)

// Magic text inputs that let e2e runs drive the gateway's error paths.
const (
	magicReject  = "__reject__"
	magicCrash   = "__crash__"
	magicGarbage = "__garbage__"
	magicSlow    = "__slow__"
)

// Verdict is the canonical analysis result.
type Verdict struct {
	Verdict     string   `json:"Verdict"`
	Confidence  string   `json:"Confidence"`
	Explanation string   `json:"Explanation"`
	KeyFindings []string `json:"KeyFindings"`
	Sources     []string `json:"Sources"`
	RedFlags    []string `json:"RedFlags"`
}

// ErrorResponse is the body of a rejected analysis request.
type ErrorResponse struct {
	Error string `json:"error"`
}

var latencyMs = getEnvInt("LATENCY_MS", defaultLatencyMs)

func main() {
	port := getEnv("PORT", defaultPort)

	mux := http.NewServeMux()
	mux.HandleFunc("GET /health", handleHealth)
	mux.HandleFunc("POST /analyze", handleAnalyze)

	log.Printf("🔎 Mock analysis backend starting on port %s", port)
	log.Printf("⏱️  Simulated latency: %dms", latencyMs)

	srv := &http.Server{
		Addr:              ":" + port,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}
	if err := srv.ListenAndServe(); err != nil {
		log.Fatal(err)
	}
}

func handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"status":  "healthy",
		"service": "analysis-backend",
		"version": "1.0.0",
	})
}

func handleAnalyze(w http.ResponseWriter, r *http.Request) {
	time.Sleep(time.Duration(latencyMs) * time.Millisecond)

	log.Printf("📥 Incoming request: %s %s request_id=%s", r.Method, r.URL.Path, r.Header.Get("X-Request-ID"))

	if err := r.ParseMultipartForm(maxMemory); err != nil {
		writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: "Invalid multipart body: " + err.Error()})
		return
	}

	text := r.FormValue("text")
	var image []byte
	var imageType string
	if file, header, err := r.FormFile("image"); err == nil {
		defer file.Close()
		image, _ = io.ReadAll(file)
		imageType = header.Header.Get("Content-Type")
	}

	switch text {
	case magicReject:
		writeJSON(w, http.StatusUnprocessableEntity, ErrorResponse{Error: "Content could not be analyzed"})
		return
	case magicCrash:
		writeJSON(w, http.StatusInternalServerError, map[string]string{"trace": "analysis worker exited"})
		return
	case magicGarbage:
		w.Header().Set("Content-Type", "text/html")
		_, _ = io.WriteString(w, "<html><body>upstream maintenance</body></html>")
		return
	case magicSlow:
		select {
		case <-time.After(2 * time.Minute):
		case <-r.Context().Done():
			return
		}
	}

	if text == "" && len(image) == 0 {
		writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: "No content to analyze"})
		return
	}

	writeJSON(w, http.StatusOK, generateVerdict(text, image, imageType))
}

// generateVerdict derives a stable verdict from the submission so repeated
// runs against the same input give the same answer.
func generateVerdict(text string, image []byte, imageType string) Verdict {
	h := sha256.New()
	h.Write([]byte(text))
	h.Write(image)
	sum := h.Sum(nil)
	seed := int(sum[0])

	labels := []string{"TRUE", "FALSE", "MISLEADING", "UNVERIFIED"}
	label := labels[seed%len(labels)]
	confidence := 55 + seed%45

	findings := []string{fmt.Sprintf("Submission fingerprint %x", sum[:4])}
	if text != "" {
		findings = append(findings, fmt.Sprintf("Text length: %d characters", len(text)))
	}
	if len(image) > 0 {
		findings = append(findings, fmt.Sprintf("Image received (%s, %d bytes)", orDefault(imageType, "unknown type"), len(image)))
	}

	var redFlags []string
	if label == "FALSE" || label == "MISLEADING" {
		redFlags = append(redFlags, "Claim does not match the reference corpus")
	}

	return Verdict{
		Verdict:     label,
		Confidence:  strconv.Itoa(confidence) + "%",
		Explanation: "Deterministic mock analysis. Replace BACKEND_URL with the real analysis service for genuine results.",
		KeyFindings: findings,
		Sources:     []string{"https://example.org/fact-check"},
		RedFlags:    redFlags,
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("failed to encode response: %v", err)
	}
}

func orDefault(v, def string) string {
	if v == "" {
		return def
	}
	return v
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key, defaultValue string) int {
	value := getEnv(key, defaultValue)
	n, err := strconv.Atoi(value)
	if err != nil {
		n, _ = strconv.Atoi(defaultValue)
	}
	return n
}
