// internal/app/system/jobs/handler.go
package jobs

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/dalemusser/socialhub/internal/app/system/jsonerr"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

const (
	sdkName   = "go:socialhub"
	sdkHeader = "X-Inngest-SDK"
	noRetry   = "X-Inngest-No-Retry"
)

// Outcomes reported to Config.OnRun.
const (
	OutcomeOK       = "ok"
	OutcomeError    = "error"
	OutcomeRejected = "rejected"
)

// Config configures the webhook.
type Config struct {
	AppID       string
	SigningKey  string
	RegisterURL string
	// ServeURL is the public URL of this webhook, sent on registration.
	ServeURL   string
	HTTPClient *http.Client
	Now        func() time.Time
	OnRun      func(function, outcome string)
}

// Handler serves the job webhook.
type Handler struct {
	reg *Registry
	cfg Config
	Log *zap.Logger
}

// NewHandler constructs a Handler over reg.
func NewHandler(reg *Registry, cfg Config, logger *zap.Logger) *Handler {
	if cfg.HTTPClient == nil {
		cfg.HTTPClient = &http.Client{Timeout: 10 * time.Second}
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	if cfg.OnRun == nil {
		cfg.OnRun = func(string, string) {}
	}
	return &Handler{reg: reg, cfg: cfg, Log: logger}
}

// Routes mounts GET, PUT and POST on the webhook root.
func Routes(h *Handler) chi.Router {
	r := chi.NewRouter()
	r.Get("/", h.Introspect)
	r.Put("/", h.Register)
	r.Post("/", h.Invoke)
	return r
}

type introspection struct {
	Message       string   `json:"message"`
	AppID         string   `json:"app_id"`
	FunctionCount int      `json:"function_count"`
	Functions     []string `json:"functions"`
	HasSigningKey bool     `json:"has_signing_key"`
	Mode          string   `json:"mode"`
}

// Introspect handles GET.
func (h *Handler) Introspect(w http.ResponseWriter, r *http.Request) {
	ids := make([]string, 0, h.reg.Len())
	for _, fn := range h.reg.Functions() {
		ids = append(ids, h.qualified(fn.ID))
	}
	mode := "dev"
	if h.cfg.SigningKey != "" {
		mode = "cloud"
	}
	writeJSON(w, http.StatusOK, introspection{
		Message:       "Inngest endpoint configured correctly.",
		AppID:         h.cfg.AppID,
		FunctionCount: len(ids),
		Functions:     ids,
		HasSigningKey: h.cfg.SigningKey != "",
		Mode:          mode,
	})
}

type trigger struct {
	Event string `json:"event"`
}

type stepRuntime struct {
	Type string `json:"type"`
	URL  string `json:"url"`
}

type step struct {
	ID      string      `json:"id"`
	Name    string      `json:"name"`
	Runtime stepRuntime `json:"runtime"`
}

type functionConfig struct {
	ID       string          `json:"id"`
	Name     string          `json:"name"`
	Triggers []trigger       `json:"triggers"`
	Steps    map[string]step `json:"steps"`
}

type registration struct {
	URL        string           `json:"url"`
	DeployType string           `json:"deployType"`
	Framework  string           `json:"framework"`
	AppName    string           `json:"appName"`
	Functions  []functionConfig `json:"functions"`
	SDK        string           `json:"sdk"`
	V          string           `json:"v"`
}

func (h *Handler) registration() registration {
	fns := make([]functionConfig, 0, h.reg.Len())
	for _, fn := range h.reg.Functions() {
		id := h.qualified(fn.ID)
		fns = append(fns, functionConfig{
			ID:       id,
			Name:     fn.Name,
			Triggers: []trigger{{Event: fn.Trigger}},
			Steps: map[string]step{
				"step": {
					ID:   "step",
					Name: "step",
					Runtime: stepRuntime{
						Type: "http",
						URL:  h.cfg.ServeURL + "?fnId=" + id + "&stepId=step",
					},
				},
			},
		})
	}
	return registration{
		URL:        h.cfg.ServeURL,
		DeployType: "ping",
		Framework:  "chi",
		AppName:    h.cfg.AppID,
		Functions:  fns,
		SDK:        sdkName,
		V:          "0.1",
	}
}

// Register handles PUT.
func (h *Handler) Register(w http.ResponseWriter, r *http.Request) {
	if h.cfg.RegisterURL != "" {
		if err := h.register(r.Context()); err != nil {
			h.Log.Error("jobs: registration failed", zap.Error(err))
			jsonerr.Write(w, http.StatusInternalServerError, err.Error())
			return
		}
	}
	h.Log.Info("jobs: registered", zap.Int("functions", h.reg.Len()))
	writeJSON(w, http.StatusOK, map[string]string{"message": "Successfully registered"})
}

func (h *Handler) register(ctx context.Context) error {
	body, err := json.Marshal(h.registration())
	if err != nil {
		return fmt.Errorf("encode registration: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, h.cfg.RegisterURL, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build registration request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(sdkHeader, sdkName)
	if h.cfg.SigningKey != "" {
		req.Header.Set("Authorization", "Bearer "+hashedKey(h.cfg.SigningKey))
	}
	resp, err := h.cfg.HTTPClient.Do(req)
	if err != nil {
		return fmt.Errorf("registration request: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<10))
		return fmt.Errorf("registration rejected: %d %s", resp.StatusCode, strings.TrimSpace(string(msg)))
	}
	return nil
}

type invocation struct {
	Event  Event      `json:"event"`
	Events []Event    `json:"events"`
	Ctx    RunContext `json:"ctx"`
}

// Invoke handles POST ?fnId=<id>.
func (h *Handler) Invoke(w http.ResponseWriter, r *http.Request) {
	w.Header().Set(sdkHeader, sdkName)

	body, err := io.ReadAll(r.Body)
	if err != nil {
		var tooBig *http.MaxBytesError
		if errors.As(err, &tooBig) {
			jsonerr.Write(w, http.StatusRequestEntityTooLarge, "request body too large")
			return
		}
		jsonerr.Write(w, http.StatusBadRequest, "could not read request body")
		return
	}

	if h.cfg.SigningKey != "" {
		if err := Verify(body, r.Header.Get(SignatureHeader), h.cfg.SigningKey, h.cfg.Now()); err != nil {
			h.Log.Warn("jobs: signature rejected", zap.Error(err))
			jsonerr.Write(w, http.StatusUnauthorized, "invalid signature")
			return
		}
	}

	fnID := r.URL.Query().Get("fnId")
	e, ok := h.reg.lookup(h.local(fnID))
	if !ok {
		jsonerr.Write(w, http.StatusNotFound, "function not found")
		return
	}

	var inv invocation
	if err := json.Unmarshal(body, &inv); err != nil {
		w.Header().Set(noRetry, "true")
		jsonerr.Write(w, http.StatusBadRequest, "invalid invocation payload")
		return
	}
	if inv.Ctx.RunID == "" {
		inv.Ctx.RunID = uuid.NewString()
	}
	inv.Ctx.FnID = e.fn.ID
	if len(inv.Events) == 0 {
		inv.Events = []Event{inv.Event}
	}

	log := h.Log.With(
		zap.String("function", e.fn.ID),
		zap.String("run_id", inv.Ctx.RunID),
		zap.Int("attempt", inv.Ctx.Attempt),
		zap.String("event", inv.Event.Name),
	)

	start := time.Now()
	out, err := e.run(r.Context(), Input{Event: inv.Event, Events: inv.Events, Run: inv.Ctx})
	switch {
	case err == nil:
		h.cfg.OnRun(e.fn.ID, OutcomeOK)
		log.Info("jobs: run complete", zap.Duration("duration", time.Since(start)))
		writeJSON(w, http.StatusOK, out)
	case isBreakerRejection(err):
		h.cfg.OnRun(e.fn.ID, OutcomeRejected)
		log.Warn("jobs: breaker open", zap.Error(err))
		w.Header().Set("Retry-After", "30")
		jsonerr.Write(w, http.StatusServiceUnavailable, "function temporarily unavailable")
	default:
		h.cfg.OnRun(e.fn.ID, OutcomeError)
		retry := !IsNoRetry(err)
		log.Error("jobs: run failed", zap.Error(err), zap.Bool("retry", retry))
		if retry {
			w.Header().Set(noRetry, "false")
		} else {
			w.Header().Set(noRetry, "true")
		}
		jsonerr.Write(w, http.StatusInternalServerError, err.Error())
	}
}

// qualified returns the id the job service knows fn by.
func (h *Handler) qualified(id string) string {
	if h.cfg.AppID == "" {
		return id
	}
	return h.cfg.AppID + "-" + id
}

// local accepts both qualified and bare function ids.
func (h *Handler) local(id string) string {
	if h.cfg.AppID != "" {
		if bare, ok := strings.CutPrefix(id, h.cfg.AppID+"-"); ok {
			if _, known := h.reg.lookup(bare); known {
				return bare
			}
		}
	}
	return id
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
