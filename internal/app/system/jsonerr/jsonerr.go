// Package jsonerr writes API errors as {"message": "..."} bodies and turns
// panics raised by downstream handlers into JSON 500 responses.
package jsonerr

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"runtime/debug"

	"go.uber.org/zap"
)

// DefaultMessage is used when a failure carries no message of its own.
const DefaultMessage = "Internal Server Error"

// Body is the JSON error envelope.
type Body struct {
	Message string `json:"message"`
}

// Write sends status with a JSON body carrying msg.
func Write(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.Header().Set("X-Content-Type-Options", "nosniff")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(Body{Message: msg})
}

// Message derives the client-facing message for a recovered value.
func Message(v any) string {
	var msg string
	switch e := v.(type) {
	case nil:
	case error:
		msg = e.Error()
	case string:
		msg = e
	case fmt.Stringer:
		msg = e.String()
	}
	if msg == "" {
		return DefaultMessage
	}
	return msg
}

// Recoverer catches panics from next, logs them with a stack trace and
// answers 500 {"message": ...}. http.ErrAbortHandler is re-panicked so the
// server can abort the connection as net/http intends.
func Recoverer(logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				rec := recover()
				if rec == nil {
					return
				}
				if err, ok := rec.(error); ok && errors.Is(err, http.ErrAbortHandler) {
					panic(rec)
				}
				logger.Error("unhandled server error",
					zap.Any("panic", rec),
					zap.String("method", r.Method),
					zap.String("path", r.URL.Path),
					zap.ByteString("stack", debug.Stack()))
				Write(w, http.StatusInternalServerError, Message(rec))
			}()
			next.ServeHTTP(w, r)
		})
	}
}

// NotFound answers 404 {"message":"Not Found"}.
func NotFound(w http.ResponseWriter, _ *http.Request) {
	Write(w, http.StatusNotFound, http.StatusText(http.StatusNotFound))
}

// MethodNotAllowed answers 405 {"message":"Method Not Allowed"}.
func MethodNotAllowed(w http.ResponseWriter, _ *http.Request) {
	Write(w, http.StatusMethodNotAllowed, http.StatusText(http.StatusMethodNotAllowed))
}

// ErrorLogger logs handler errors with request context before the handler
// writes its JSON error.
type ErrorLogger struct {
	log *zap.Logger
}

// NewErrorLogger constructs an ErrorLogger.
func NewErrorLogger(logger *zap.Logger) *ErrorLogger {
	return &ErrorLogger{log: logger}
}

// Log records err for request r and writes status with msg. A blank msg
// falls back to the status text.
func (l *ErrorLogger) Log(w http.ResponseWriter, r *http.Request, status int, msg string, err error) {
	if msg == "" {
		msg = http.StatusText(status)
	}
	fields := []zap.Field{
		zap.Int("status", status),
		zap.String("method", r.Method),
		zap.String("path", r.URL.Path),
		zap.Error(err),
	}
	if status >= http.StatusInternalServerError {
		l.log.Error(msg, fields...)
	} else {
		l.log.Warn(msg, fields...)
	}
	Write(w, status, msg)
}
