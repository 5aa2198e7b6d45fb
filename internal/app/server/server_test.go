package server_test

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/dalemusser/socialhub/internal/app/features/home"
	"github.com/dalemusser/socialhub/internal/app/server"
	"github.com/dalemusser/socialhub/internal/app/system/auth"
	"github.com/dalemusser/socialhub/internal/app/system/cors"
	"github.com/dalemusser/socialhub/internal/app/system/metrics"
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

const allowed = "http://localhost:5173"

func newServer(t *testing.T, extra ...server.Mount) http.Handler {
	t.Helper()
	return newServerWith(t, &server.Config{Logger: zap.NewNop()}, extra...)
}

// newServerWith fills CORS, Auth and Mounts into base.
func newServerWith(t *testing.T, base *server.Config, extra ...server.Mount) http.Handler {
	t.Helper()
	logger := base.Logger
	policy, err := cors.New(cors.Config{Origins: []string{allowed}, Credentialed: true}, logger)
	if err != nil {
		t.Fatalf("cors.New: %v", err)
	}

	api := chi.NewRouter()
	api.Get("/boom", func(http.ResponseWriter, *http.Request) { panic(errors.New("kaboom")) })
	api.Get("/silent", func(http.ResponseWriter, *http.Request) { panic(struct{}{}) })
	api.Post("/echo", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	mounts := append([]server.Mount{
		{Pattern: "/", Handler: home.Routes(home.NewHandler())},
		{Pattern: "/api/test", Handler: api},
	}, extra...)

	base.CORS = policy
	base.Auth = auth.NewMiddleware(nil, logger)
	base.Mounts = mounts
	h, err := server.New(base)
	if err != nil {
		t.Fatalf("server.New: %v", err)
	}
	return h
}

func serve(h http.Handler, req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func message(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	var body struct {
		Message string `json:"message"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode %q: %v", rec.Body.String(), err)
	}
	return body.Message
}

func TestNew_RequiresDependencies(t *testing.T) {
	if _, err := server.New(nil); !errors.Is(err, server.ErrNoLogger) {
		t.Errorf("nil config: got %v", err)
	}
	if _, err := server.New(&server.Config{Logger: zap.NewNop()}); !errors.Is(err, server.ErrNoCORS) {
		t.Errorf("no cors: got %v", err)
	}
	policy, _ := cors.New(cors.Config{Origins: []string{allowed}}, nil)
	if _, err := server.New(&server.Config{Logger: zap.NewNop(), CORS: policy}); !errors.Is(err, server.ErrNoAuth) {
		t.Errorf("no auth: got %v", err)
	}
}

func TestLiveness_NoOriginNoAuth(t *testing.T) {
	rec := serve(newServer(t), httptest.NewRequest(http.MethodGet, "/", nil))
	if rec.Code != http.StatusOK || rec.Body.String() != "Server is running" {
		t.Fatalf("got %d %q", rec.Code, rec.Body.String())
	}
}

func TestLiveness_AllowedOrigin(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Origin", allowed)
	rec := serve(newServer(t), req)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if got := rec.Header().Get("Access-Control-Allow-Origin"); got != allowed {
		t.Errorf("ACAO = %q", got)
	}
	if got := rec.Header().Get("Access-Control-Allow-Credentials"); got != "true" {
		t.Errorf("ACAC = %q", got)
	}
}

func TestDeniedOrigin(t *testing.T) {
	for _, o := range []string{"http://evil.example", "http://localhost:5173/", "HTTP://LOCALHOST:5173", "null"} {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("Origin", o)
		rec := serve(newServer(t), req)
		if rec.Code != http.StatusForbidden {
			t.Errorf("%s: expected 403, got %d", o, rec.Code)
			continue
		}
		if msg := message(t, rec); msg != cors.DeniedMessage {
			t.Errorf("%s: message = %q", o, msg)
		}
		if strings.Contains(rec.Body.String(), "Server is running") {
			t.Errorf("%s: downstream handler ran", o)
		}
	}
}

func TestPreflight(t *testing.T) {
	req := httptest.NewRequest(http.MethodOptions, "/api/post/feed", nil)
	req.Header.Set("Origin", allowed)
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	rec := serve(newServer(t), req)

	if rec.Code != http.StatusNoContent {
		t.Fatalf("expected 204, got %d", rec.Code)
	}
	if got := rec.Header().Get("Access-Control-Allow-Methods"); got != "GET, POST, PUT, PATCH, DELETE, OPTIONS" {
		t.Errorf("ACAM = %q", got)
	}
	if got := rec.Header().Get("Access-Control-Allow-Headers"); got != "Content-Type, Authorization, X-Requested-With" {
		t.Errorf("ACAH = %q", got)
	}
	if got := rec.Header().Get("Access-Control-Allow-Origin"); got != allowed {
		t.Errorf("ACAO = %q", got)
	}
}

func TestPanic_JSON500(t *testing.T) {
	h := newServer(t)

	rec := serve(h, httptest.NewRequest(http.MethodGet, "/api/test/boom", nil))
	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", rec.Code)
	}
	if msg := message(t, rec); msg != "kaboom" {
		t.Errorf("message = %q", msg)
	}

	rec = serve(h, httptest.NewRequest(http.MethodGet, "/api/test/silent", nil))
	if msg := message(t, rec); msg != "Internal Server Error" {
		t.Errorf("message = %q", msg)
	}

	// The server keeps serving after a panic.
	if rec := serve(h, httptest.NewRequest(http.MethodGet, "/", nil)); rec.Code != http.StatusOK {
		t.Errorf("after panic: expected 200, got %d", rec.Code)
	}
}

func TestFallbacks(t *testing.T) {
	h := newServer(t)

	rec := serve(h, httptest.NewRequest(http.MethodGet, "/api/nope", nil))
	if rec.Code != http.StatusNotFound || message(t, rec) != "Not Found" {
		t.Errorf("404: got %d %s", rec.Code, rec.Body.String())
	}

	rec = serve(h, httptest.NewRequest(http.MethodDelete, "/api/test/boom", nil))
	if rec.Code != http.StatusMethodNotAllowed || message(t, rec) != "Method Not Allowed" {
		t.Errorf("405: got %d %s", rec.Code, rec.Body.String())
	}
}

func TestBodyParser(t *testing.T) {
	h := newServer(t)

	req := httptest.NewRequest(http.MethodPost, "/api/test/echo", strings.NewReader(`{"broken"`))
	req.Header.Set("Content-Type", "application/json")
	if rec := serve(h, req); rec.Code != http.StatusBadRequest {
		t.Errorf("bad json: expected 400, got %d", rec.Code)
	}

	req = httptest.NewRequest(http.MethodPost, "/api/test/echo", strings.NewReader(`{"ok":true}`))
	req.Header.Set("Content-Type", "application/json")
	if rec := serve(h, req); rec.Code != http.StatusOK {
		t.Errorf("good json: expected 200, got %d", rec.Code)
	}
}

func TestPanic_LoggedAndCountedAs500(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	m := metrics.New()
	h := newServerWith(t, &server.Config{Logger: zap.New(core), Metrics: m})

	rec := serve(h, httptest.NewRequest(http.MethodGet, "/api/test/boom", nil))
	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", rec.Code)
	}

	reqs := logs.FilterMessage("http_request").All()
	if len(reqs) != 1 {
		t.Fatalf("got %d request log entries, want 1", len(reqs))
	}
	if got := reqs[0].ContextMap()["status"]; got != int64(http.StatusInternalServerError) {
		t.Errorf("logged status = %v, want 500", got)
	}
	if n := logs.FilterMessage("unhandled server error").Len(); n != 1 {
		t.Errorf("panic logged %d times, want 1", n)
	}

	rec = httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if !strings.Contains(rec.Body.String(), `socialhub_http_requests_total{method="GET",status="500"} 1`) {
		t.Errorf("panic not counted as 500:\n%s", rec.Body.String())
	}
}

func TestTrustProxy(t *testing.T) {
	for _, trust := range []bool{false, true} {
		core, logs := observer.New(zapcore.InfoLevel)
		h := newServerWith(t, &server.Config{Logger: zap.New(core), TrustProxy: trust})

		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.RemoteAddr = "10.0.0.1:4444"
		req.Header.Set("X-Forwarded-For", "203.0.113.7")
		serve(h, req)

		want := "10.0.0.1:4444"
		if trust {
			want = "203.0.113.7"
		}
		reqs := logs.FilterMessage("http_request").All()
		if len(reqs) != 1 {
			t.Fatalf("trust=%v: got %d entries", trust, len(reqs))
		}
		if got := reqs[0].ContextMap()["remote_ip"]; got != want {
			t.Errorf("trust=%v: remote_ip = %v, want %s", trust, got, want)
		}
	}
}

func TestBodyLimit(t *testing.T) {
	h := newServerWith(t, &server.Config{Logger: zap.NewNop(), BodyLimit: 8})

	req := httptest.NewRequest(http.MethodPost, "/api/test/echo", strings.NewReader(`{"content":"too long"}`))
	req.Header.Set("Content-Type", "application/json")
	if rec := serve(h, req); rec.Code != http.StatusRequestEntityTooLarge {
		t.Errorf("expected 413, got %d", rec.Code)
	}
}
