package bodyparse_test

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/dalemusser/socialhub/internal/app/system/bodyparse"
)

func echo(t *testing.T) http.Handler {
	t.Helper()
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		b, err := io.ReadAll(r.Body)
		if err != nil {
			t.Errorf("downstream read failed: %v", err)
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write(b)
	})
}

func jsonRequest(body string) *http.Request {
	req := httptest.NewRequest("POST", "/api/post/add", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json; charset=utf-8")
	return req
}

func TestJSON_ValidBodyIsReadableDownstream(t *testing.T) {
	h := bodyparse.JSON(0)(echo(t))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, jsonRequest(`{"content":"hello"}`))

	if rec.Code != http.StatusOK {
		t.Fatalf("status: got %d, want 200", rec.Code)
	}
	if got := rec.Body.String(); got != `{"content":"hello"}` {
		t.Errorf("body: got %q", got)
	}
}

func TestJSON_MalformedBodyRejected(t *testing.T) {
	h := bodyparse.JSON(0)(echo(t))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, jsonRequest(`{"content":`))

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status: got %d, want 400", rec.Code)
	}
	var body struct {
		Message string `json:"message"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil || body.Message != "invalid JSON body" {
		t.Errorf("body: got %q (%v)", rec.Body.String(), err)
	}
}

func TestJSON_OversizeBodyRejected(t *testing.T) {
	h := bodyparse.JSON(16)(echo(t))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, jsonRequest(`{"content":"this is longer than sixteen bytes"}`))

	if rec.Code != http.StatusRequestEntityTooLarge {
		t.Fatalf("status: got %d, want 413", rec.Code)
	}
}

func TestJSON_OversizeChunkedBodyRejected(t *testing.T) {
	h := bodyparse.JSON(16)(echo(t))
	req := jsonRequest(`{"content":"this is longer than sixteen bytes"}`)
	req.ContentLength = -1
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	if rec.Code != http.StatusRequestEntityTooLarge {
		t.Fatalf("status: got %d, want 413", rec.Code)
	}
}

func TestJSON_NonJSONPassesThrough(t *testing.T) {
	h := bodyparse.JSON(0)(echo(t))
	req := httptest.NewRequest("POST", "/api/story/create", strings.NewReader("not json and long"))
	req.Header.Set("Content-Type", "multipart/form-data; boundary=x")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK || rec.Body.String() != "not json and long" {
		t.Errorf("got %d %q, want untouched pass-through", rec.Code, rec.Body.String())
	}
}

func TestJSON_EmptyBodyAllowed(t *testing.T) {
	h := bodyparse.JSON(0)(echo(t))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, jsonRequest(""))

	if rec.Code != http.StatusOK {
		t.Errorf("status: got %d, want 200", rec.Code)
	}
}

func TestJSON_SuffixTypeIsJSON(t *testing.T) {
	h := bodyparse.JSON(0)(echo(t))
	req := httptest.NewRequest("POST", "/", strings.NewReader("{"))
	req.Header.Set("Content-Type", "application/merge-patch+json")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Errorf("status: got %d, want 400", rec.Code)
	}
}

func TestJSON_NonJSONBodyStillCapped(t *testing.T) {
	var readErr error
	h := bodyparse.JSON(4)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, readErr = io.ReadAll(r.Body)
		w.WriteHeader(http.StatusOK)
	}))
	req := httptest.NewRequest("POST", "/api/story/create", strings.NewReader("longer than four"))
	req.Header.Set("Content-Type", "text/plain")
	h.ServeHTTP(httptest.NewRecorder(), req)

	var tooLarge *http.MaxBytesError
	if !errors.As(readErr, &tooLarge) {
		t.Errorf("downstream read error = %v, want *http.MaxBytesError", readErr)
	}
}
