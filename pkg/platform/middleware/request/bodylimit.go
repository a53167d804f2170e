package request

import (
	"net/http"
)

// BodyLimit returns middleware that limits the size of request bodies.
// A non-positive maxBytes leaves bodies unbounded, which is the gateway default.
// Reads past the limit fail, and the server answers 413 Request Entity Too Large.
func BodyLimit(maxBytes int64) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if maxBytes <= 0 {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			r.Body = http.MaxBytesReader(w, r.Body, maxBytes)
			next.ServeHTTP(w, r)
		})
	}
}
