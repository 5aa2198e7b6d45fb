// Package bodyparse guards request bodies before they reach routers: every
// body is capped with waffle's LimitBodySize, and JSON bodies are checked
// for syntax up front.
package bodyparse

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"mime"
	"net/http"
	"strings"

	"github.com/dalemusser/socialhub/internal/app/system/jsonerr"
	wafflemw "github.com/dalemusser/waffle/middleware"
)

const tooLargeMessage = "request entity too large"

// JSON returns middleware that caps every request body at limit bytes and,
// for requests declaring a JSON content type, rejects oversize (413) or
// malformed (400) bodies, then replaces r.Body with an in-memory copy so
// handlers can decode it again. limit <= 0 disables the cap.
func JSON(limit int64) func(http.Handler) http.Handler {
	capBody := wafflemw.LimitBodySize(limit)
	return func(next http.Handler) http.Handler {
		guard := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Body == nil || r.Body == http.NoBody || !isJSON(r.Header.Get("Content-Type")) {
				next.ServeHTTP(w, r)
				return
			}
			if limit > 0 && r.ContentLength > limit {
				jsonerr.Write(w, http.StatusRequestEntityTooLarge, tooLargeMessage)
				return
			}

			raw, err := io.ReadAll(r.Body)
			if err != nil {
				var tooLarge *http.MaxBytesError
				if errors.As(err, &tooLarge) {
					jsonerr.Write(w, http.StatusRequestEntityTooLarge, tooLargeMessage)
					return
				}
				jsonerr.Write(w, http.StatusBadRequest, "could not read request body")
				return
			}
			if len(bytes.TrimSpace(raw)) > 0 && !json.Valid(raw) {
				jsonerr.Write(w, http.StatusBadRequest, "invalid JSON body")
				return
			}

			r.Body = io.NopCloser(bytes.NewReader(raw))
			r.ContentLength = int64(len(raw))
			next.ServeHTTP(w, r)
		})
		return capBody(guard)
	}
}

// isJSON reports whether a Content-Type names application/json or a
// +json suffix type.
func isJSON(contentType string) bool {
	if contentType == "" {
		return false
	}
	mt, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		return false
	}
	return mt == "application/json" || strings.HasSuffix(mt, "+json")
}
