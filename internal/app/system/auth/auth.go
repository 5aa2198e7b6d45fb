// Package auth attaches the caller's identity, taken from a signed bearer
// token, to the request context.
//
// Authenticate never rejects a request by itself: a missing or invalid
// token leaves the request anonymous. Routes that need a caller wrap
// themselves in RequireSignedIn.
package auth

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/dalemusser/socialhub/internal/app/system/jsonerr"
	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"
)

const (
	// SessionCookie is the cookie browsers send the session token in.
	SessionCookie = "__session"

	// UnauthenticatedMessage is the body message for anonymous callers on
	// protected routes.
	UnauthenticatedMessage = "Not authenticated"
)

// ErrNoKey is returned by NewVerifier when neither a secret nor a public
// key is configured.
var ErrNoKey = errors.New("auth: no verification key configured")

// Identity is what we inject into r.Context() for a verified caller.
type Identity struct {
	UserID    string
	SessionID string
	ExpiresAt time.Time
}

// Claims are the token claims we read.
type Claims struct {
	SessionID string `json:"sid,omitempty"`
	jwt.RegisteredClaims
}

// Config selects how tokens are verified. Secret enables HS256,
// PublicKeyPEM enables RS256; PublicKeyPEM wins when both are set.
type Config struct {
	Secret       string
	PublicKeyPEM []byte
	Issuer       string
	Leeway       time.Duration
}

// Verifier validates tokens. A nil *Verifier verifies nothing and leaves
// every request anonymous.
type Verifier struct {
	parser  *jwt.Parser
	keyFunc jwt.Keyfunc
}

// NewVerifier builds a Verifier from cfg.
func NewVerifier(cfg Config) (*Verifier, error) {
	var (
		method string
		key    any
	)
	switch {
	case len(cfg.PublicKeyPEM) > 0:
		pub, err := jwt.ParseRSAPublicKeyFromPEM(cfg.PublicKeyPEM)
		if err != nil {
			return nil, fmt.Errorf("auth: parse public key: %w", err)
		}
		method, key = jwt.SigningMethodRS256.Alg(), pub
	case cfg.Secret != "":
		method, key = jwt.SigningMethodHS256.Alg(), []byte(cfg.Secret)
	default:
		return nil, ErrNoKey
	}

	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{method}),
		jwt.WithExpirationRequired(),
		jwt.WithLeeway(cfg.Leeway),
	}
	if cfg.Issuer != "" {
		opts = append(opts, jwt.WithIssuer(cfg.Issuer))
	}

	return &Verifier{
		parser:  jwt.NewParser(opts...),
		keyFunc: func(*jwt.Token) (any, error) { return key, nil },
	}, nil
}

// Verify parses and validates raw, returning the caller identity.
func (v *Verifier) Verify(raw string) (*Identity, error) {
	if v == nil {
		return nil, ErrNoKey
	}
	var claims Claims
	if _, err := v.parser.ParseWithClaims(raw, &claims, v.keyFunc); err != nil {
		return nil, err
	}
	if claims.Subject == "" {
		return nil, errors.New("auth: token has no subject")
	}
	id := &Identity{UserID: claims.Subject, SessionID: claims.SessionID}
	if claims.ExpiresAt != nil {
		id.ExpiresAt = claims.ExpiresAt.Time
	}
	return id, nil
}

type ctxKey string

const identityKey ctxKey = "identity"

// CurrentUser returns the identity & “found?” flag.
func CurrentUser(r *http.Request) (*Identity, bool) {
	id, ok := r.Context().Value(identityKey).(*Identity)
	return id, ok && id != nil
}

// WithIdentity returns a copy of ctx carrying id.
func WithIdentity(ctx context.Context, id *Identity) context.Context {
	return context.WithValue(ctx, identityKey, id)
}

// WithTestUser injects an identity for tests, bypassing token checks.
func WithTestUser(r *http.Request, userID string) *http.Request {
	return r.WithContext(WithIdentity(r.Context(), &Identity{UserID: userID}))
}

// Middleware is the authentication layer mounted on the router.
type Middleware struct {
	verifier *Verifier
	log      *zap.Logger
}

// NewMiddleware wraps v. A nil v yields a middleware that never
// authenticates anyone.
func NewMiddleware(v *Verifier, logger *zap.Logger) *Middleware {
	return &Middleware{verifier: v, log: logger}
}

// Authenticate injects the identity into context when a valid token is
// presented.
func (m *Middleware) Authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		raw := tokenFrom(r)
		if raw == "" || m.verifier == nil {
			next.ServeHTTP(w, r)
			return
		}
		id, err := m.verifier.Verify(raw)
		if err != nil {
			m.log.Debug("bearer token rejected", zap.Error(err), zap.String("path", r.URL.Path))
			next.ServeHTTP(w, r)
			return
		}
		next.ServeHTTP(w, r.WithContext(WithIdentity(r.Context(), id)))
	})
}

// RequireSignedIn answers 401 {"message":"Not authenticated"} unless
// Authenticate (or a test) put an identity in the context.
func RequireSignedIn(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, ok := CurrentUser(r); ok {
			next.ServeHTTP(w, r)
			return
		}
		jsonerr.Write(w, http.StatusUnauthorized, UnauthenticatedMessage)
	})
}

// tokenFrom prefers the Authorization header over the session cookie.
func tokenFrom(r *http.Request) string {
	if h := r.Header.Get("Authorization"); h != "" {
		scheme, tok, ok := strings.Cut(h, " ")
		if ok && strings.EqualFold(scheme, "Bearer") {
			return strings.TrimSpace(tok)
		}
		return ""
	}
	if c, err := r.Cookie(SessionCookie); err == nil {
		return c.Value
	}
	return ""
}
