package web

import (
	"net/http"
	"strconv"
)

// ErrorPages returns the body served for a status code, and false when the
// status has no page of its own.
type ErrorPages func(status int) ([]byte, bool)

// ErrorHandler captures 404 and 500 responses of h and replaces their body
// with the page from pages. Other responses pass through untouched.
func ErrorHandler(h http.Handler, pages ErrorPages) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writer := &responseWriter{
			ResponseWriter: w,
			pages:          pages,
		}
		h.ServeHTTP(writer, r)
	})
}

type responseWriter struct {
	http.ResponseWriter
	pages   ErrorPages
	noWrite bool
	err     error
}

func (w *responseWriter) Write(b []byte) (int, error) {
	if w.noWrite {
		return len(b), w.err
	}
	return w.ResponseWriter.Write(b)
}

func (w *responseWriter) WriteHeader(statusCode int) {
	if statusCode == http.StatusNotFound || statusCode == http.StatusInternalServerError {
		if b, ok := w.pages(statusCode); ok {
			h := w.Header()
			h.Set("Content-Type", "text/html; charset=utf-8")
			h.Set("Content-Length", strconv.Itoa(len(b)))
			h.Del("Content-Encoding")
			w.ResponseWriter.WriteHeader(statusCode)
			w.noWrite = true
			_, w.err = w.ResponseWriter.Write(b)
			return
		}
	}
	w.ResponseWriter.WriteHeader(statusCode)
}
