// internal/app/system/cors/cors.go
package cors

import (
	"errors"
	"fmt"
	"net/http"
	"slices"
	"strconv"
	"strings"

	"github.com/dalemusser/socialhub/internal/app/system/jsonerr"
	"github.com/dalemusser/socialhub/internal/app/system/origin"
	jcors "github.com/jub0bs/cors"
	"go.uber.org/zap"
)

const (
	headerOrigin           = "Origin"
	headerVary             = "Vary"
	headerAllowOrigin      = "Access-Control-Allow-Origin"
	headerAllowCredentials = "Access-Control-Allow-Credentials"
	headerAllowMethods     = "Access-Control-Allow-Methods"
	headerAllowHeaders     = "Access-Control-Allow-Headers"
	headerMaxAge           = "Access-Control-Max-Age"

	// Wildcard is the origin pattern that admits every origin.
	Wildcard = "*"

	// DeniedMessage is the body message of a rejected cross-origin request.
	DeniedMessage = "Not allowed by CORS"
)

// DefaultMethods are the methods advertised on preflight.
var DefaultMethods = []string{
	http.MethodGet,
	http.MethodPost,
	http.MethodPut,
	http.MethodPatch,
	http.MethodDelete,
	http.MethodOptions,
}

// DefaultHeaders are the request headers advertised on preflight.
var DefaultHeaders = []string{"Content-Type", "Authorization", "X-Requested-With"}

var (
	// ErrNoOrigins is returned when the policy lists no origin at all.
	ErrNoOrigins = errors.New("cors: at least one allowed origin is required")
	// ErrWildcardWithCredentials is returned for "*" combined with
	// credential sharing, which browsers reject.
	ErrWildcardWithCredentials = errors.New("cors: wildcard origin cannot be combined with credentials")
	// ErrMixedWildcard is returned when "*" is listed next to explicit origins.
	ErrMixedWildcard = errors.New("cors: wildcard origin cannot be mixed with explicit origins")
)

// Config describes the cross-origin policy. Zero Methods/Headers fall back
// to DefaultMethods/DefaultHeaders.
type Config struct {
	Origins       []string
	Credentialed  bool
	Methods       []string
	Headers       []string
	MaxAgeSeconds int

	// TolerateInsecureOrigins admits plain-http, non-loopback origins in a
	// credentialed policy.
	TolerateInsecureOrigins bool

	// OnDeny, when set, is called for every rejected request.
	OnDeny func(origin string)
}

// Policy is a validated, immutable cross-origin policy.
type Policy struct {
	allowed      origin.Set
	wildcard     bool
	credentialed bool
	methods      []string
	headers      []string
	allowMethods string
	allowHeaders string
	maxAge       string
	actual       *jcors.Middleware
	onDeny       func(string)
	log          *zap.Logger
}

// New validates cfg and builds the Policy. Every misconfiguration is
// reported here, before the server accepts any request.
func New(cfg Config, logger *zap.Logger) (*Policy, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	origins := make([]string, 0, len(cfg.Origins))
	for _, o := range cfg.Origins {
		if o = strings.TrimSpace(o); o != "" {
			origins = append(origins, o)
		}
	}
	if len(origins) == 0 {
		return nil, ErrNoOrigins
	}

	wildcard := slices.Contains(origins, Wildcard)
	if wildcard && cfg.Credentialed {
		return nil, ErrWildcardWithCredentials
	}
	if wildcard && len(origins) > 1 {
		return nil, ErrMixedWildcard
	}

	methods := cfg.Methods
	if len(methods) == 0 {
		methods = DefaultMethods
	}
	headers := cfg.Headers
	if len(headers) == 0 {
		headers = DefaultHeaders
	}

	// jub0bs/cors validates origins, methods, header names and max age, and
	// decorates the actual (non-preflight) responses.
	actual, err := jcors.NewMiddleware(jcors.Config{
		Origins:         origins,
		Credentialed:    cfg.Credentialed,
		Methods:         methods,
		RequestHeaders:  headers,
		MaxAgeInSeconds: cfg.MaxAgeSeconds,
		ExtraConfig: jcors.ExtraConfig{
			DangerouslyTolerateInsecureOrigins: cfg.TolerateInsecureOrigins,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("invalid cors policy: %w", err)
	}

	p := &Policy{
		wildcard:     wildcard,
		credentialed: cfg.Credentialed,
		methods:      slices.Clone(methods),
		headers:      slices.Clone(headers),
		allowMethods: strings.Join(methods, ", "),
		allowHeaders: strings.Join(headers, ", "),
		actual:       actual,
		onDeny:       cfg.OnDeny,
		log:          logger,
	}
	if !wildcard {
		p.allowed = origin.NewSet(origins...)
	}
	switch {
	case cfg.MaxAgeSeconds > 0:
		p.maxAge = strconv.Itoa(cfg.MaxAgeSeconds)
	case cfg.MaxAgeSeconds < 0:
		p.maxAge = "0"
	}
	return p, nil
}

// Admit applies the origin decision for r.
func (p *Policy) Admit(r *http.Request) origin.Decision {
	if p.wildcard {
		return origin.Allow
	}
	o, present := requestOrigin(r)
	return p.allowed.Admit(o, present)
}

// Credentialed reports whether the policy shares credentials.
func (p *Policy) Credentialed() bool { return p.credentialed }

// Wildcard reports whether the policy admits every origin.
func (p *Policy) Wildcard() bool { return p.wildcard }

// Methods returns the methods advertised on preflight.
func (p *Policy) Methods() []string { return slices.Clone(p.methods) }

// Headers returns the request headers advertised on preflight.
func (p *Policy) Headers() []string { return slices.Clone(p.headers) }

// Origins returns the explicit allowlist (nil for a wildcard policy).
func (p *Policy) Origins() []string {
	if p.wildcard {
		return nil
	}
	return p.allowed.Origins()
}

// Middleware rejects denied origins with 403 {"message": ...}, answers every
// OPTIONS request itself, and hands admitted actual requests to next with
// CORS response headers applied.
func (p *Policy) Middleware(next http.Handler) http.Handler {
	decorated := p.actual.Wrap(next)
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		o, _ := requestOrigin(r)
		if p.Admit(r) == origin.Deny {
			p.deny(w, r, o)
			return
		}
		if r.Method == http.MethodOptions {
			p.preflight(w, o)
			return
		}
		decorated.ServeHTTP(w, r)
	})
}

func (p *Policy) deny(w http.ResponseWriter, r *http.Request, o string) {
	p.log.Warn("cross-origin request rejected",
		zap.String("origin", o),
		zap.String("method", r.Method),
		zap.String("path", r.URL.Path))
	if p.onDeny != nil {
		p.onDeny(o)
	}
	w.Header().Add(headerVary, headerOrigin)
	jsonerr.Write(w, http.StatusForbidden, DeniedMessage)
}

// preflight writes the fixed method and header sets verbatim.
func (p *Policy) preflight(w http.ResponseWriter, o string) {
	h := w.Header()
	switch {
	case p.wildcard:
		h.Set(headerAllowOrigin, Wildcard)
	case o != "":
		h.Set(headerAllowOrigin, o)
		if p.credentialed {
			h.Set(headerAllowCredentials, "true")
		}
		h.Add(headerVary, headerOrigin)
	}
	h.Set(headerAllowMethods, p.allowMethods)
	h.Set(headerAllowHeaders, p.allowHeaders)
	if p.maxAge != "" {
		h.Set(headerMaxAge, p.maxAge)
	}
	h.Set("Content-Length", "0")
	w.WriteHeader(http.StatusNoContent)
}

func requestOrigin(r *http.Request) (string, bool) {
	vals, ok := r.Header[headerOrigin]
	if !ok || len(vals) == 0 {
		return "", false
	}
	return vals[0], true
}
