// Package server composes the request pipeline: recovery, request logging,
// metrics, the CORS origin filter, body parsing and authentication, in that
// order, ahead of the mounted routers.
package server

import (
	"errors"
	"net/http"

	"github.com/dalemusser/socialhub/internal/app/system/auth"
	"github.com/dalemusser/socialhub/internal/app/system/bodyparse"
	"github.com/dalemusser/socialhub/internal/app/system/cors"
	"github.com/dalemusser/socialhub/internal/app/system/jsonerr"
	"github.com/dalemusser/socialhub/internal/app/system/metrics"
	"github.com/dalemusser/waffle/logging"
	wafflemetrics "github.com/dalemusser/waffle/metrics"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"
)

// Mount attaches Handler under Pattern.
type Mount struct {
	Pattern string
	Handler http.Handler
}

// Config is everything New needs. It is built once by the bootstrap.
type Config struct {
	Logger     *zap.Logger
	CORS       *cors.Policy
	Auth       *auth.Middleware
	Metrics    *metrics.Metrics // optional
	BodyLimit  int64            // <= 0 means no cap
	TrustProxy bool             // take the client address from X-Forwarded-For / X-Real-IP
	Mounts     []Mount
}

var (
	ErrNoLogger = errors.New("server: logger is required")
	ErrNoCORS   = errors.New("server: cors policy is required")
	ErrNoAuth   = errors.New("server: auth middleware is required")
)

// New returns the root handler. The result holds no mutable state and is
// safe for concurrent use.
//
// Recovery runs twice: the outer layer covers panics in the logging and
// metrics middleware, the inner one turns handler panics into a 500 before
// the request is logged and counted.
func New(cfg *Config) (http.Handler, error) {
	switch {
	case cfg == nil || cfg.Logger == nil:
		return nil, ErrNoLogger
	case cfg.CORS == nil:
		return nil, ErrNoCORS
	case cfg.Auth == nil:
		return nil, ErrNoAuth
	}

	r := chi.NewRouter()

	r.Use(jsonerr.Recoverer(cfg.Logger))
	r.Use(middleware.RequestID)
	if cfg.TrustProxy {
		r.Use(middleware.RealIP)
	}
	r.Use(logging.RequestLogger(cfg.Logger))
	r.Use(wafflemetrics.HTTPMetrics)
	if cfg.Metrics != nil {
		r.Use(cfg.Metrics.Middleware)
	}
	r.Use(jsonerr.Recoverer(cfg.Logger))
	r.Use(cfg.CORS.Middleware)
	r.Use(bodyparse.JSON(cfg.BodyLimit))
	r.Use(cfg.Auth.Authenticate)

	r.NotFound(jsonerr.NotFound)
	r.MethodNotAllowed(jsonerr.MethodNotAllowed)

	for _, m := range cfg.Mounts {
		r.Mount(m.Pattern, m.Handler)
	}
	return r, nil
}
