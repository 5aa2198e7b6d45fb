// internal/app/bootstrap/routes.go
package bootstrap

import (
	"fmt"
	"net/http"
	"os"
	"time"

	healthfeature "github.com/dalemusser/socialhub/internal/app/features/health"
	homefeature "github.com/dalemusser/socialhub/internal/app/features/home"
	messagefeature "github.com/dalemusser/socialhub/internal/app/features/message"
	postfeature "github.com/dalemusser/socialhub/internal/app/features/post"
	storyfeature "github.com/dalemusser/socialhub/internal/app/features/story"
	userfeature "github.com/dalemusser/socialhub/internal/app/features/user"
	"github.com/dalemusser/socialhub/internal/app/features/usersync"
	"github.com/dalemusser/socialhub/internal/app/server"
	"github.com/dalemusser/socialhub/internal/app/system/auth"
	"github.com/dalemusser/socialhub/internal/app/system/cors"
	"github.com/dalemusser/socialhub/internal/app/system/jobs"
	"github.com/dalemusser/socialhub/internal/app/system/jsonerr"
	"github.com/dalemusser/socialhub/internal/app/system/metrics"
	"github.com/dalemusser/socialhub/internal/app/system/ratelimit"
	"github.com/dalemusser/waffle/config"
	wafflemetrics "github.com/dalemusser/waffle/metrics"
	"go.uber.org/zap"
)

// JobsPath is where the background-job webhook is mounted.
const JobsPath = "/api/inngest"

// BuildHandler constructs the root HTTP handler once backends are ready:
// the CORS policy, token verifier, metrics and job registry are built here
// and every feature router is mounted behind the shared pipeline.
func BuildHandler(coreCfg *config.CoreConfig, cfg AppConfig, deps DBDeps, logger *zap.Logger) (http.Handler, error) {
	wafflemetrics.RegisterDefault(logger)
	m := metrics.New()

	policy, err := cors.New(corsConfig(coreCfg, cfg, m.CORSDenied), logger)
	if err != nil {
		logger.Error("cors policy init failed", zap.Error(err))
		return nil, err
	}

	verifier, err := newVerifier(cfg, logger)
	if err != nil {
		logger.Error("token verifier init failed", zap.Error(err))
		return nil, err
	}

	jobsHandler, err := newJobsHandler(cfg, deps, m, logger)
	if err != nil {
		logger.Error("job registry init failed", zap.Error(err))
		return nil, err
	}

	errLog := jsonerr.NewErrorLogger(logger)
	db := deps.MongoDatabase

	return server.New(&server.Config{
		Logger:     logger,
		CORS:       policy,
		Auth:       auth.NewMiddleware(verifier, logger),
		Metrics:    m,
		BodyLimit:  coreCfg.MaxRequestBodyBytes,
		TrustProxy: cfg.TrustProxy,
		Mounts: []server.Mount{
			{Pattern: "/", Handler: homefeature.Routes(homefeature.NewHandler())},
			{Pattern: "/health", Handler: healthfeature.Routes(healthfeature.NewHandler(deps.MongoClient, logger))},
			{Pattern: "/metrics", Handler: m.Handler()},
			{Pattern: JobsPath, Handler: limitJobs(cfg, jobs.Routes(jobsHandler), logger)},
			{Pattern: "/api/user", Handler: userfeature.Routes(userfeature.NewHandler(db, errLog, logger))},
			{Pattern: "/api/post", Handler: postfeature.Routes(postfeature.NewHandler(db, errLog, logger))},
			{Pattern: "/api/story", Handler: storyfeature.Routes(storyfeature.NewHandler(db, errLog, logger))},
			{Pattern: "/api/message", Handler: messagefeature.Routes(messagefeature.NewHandler(db, errLog, logger))},
		},
	})
}

// newVerifier returns nil when no key is configured; every caller is then
// anonymous and the API routers answer 401.
func newVerifier(cfg AppConfig, logger *zap.Logger) (*auth.Verifier, error) {
	ac := auth.Config{Secret: cfg.AuthJWTSecret, Issuer: cfg.AuthJWTIssuer}
	if cfg.AuthJWTPublicKeyFile != "" {
		pem, err := os.ReadFile(cfg.AuthJWTPublicKeyFile)
		if err != nil {
			return nil, fmt.Errorf("read public key: %w", err)
		}
		ac.PublicKeyPEM = pem
	}
	if ac.Secret == "" && len(ac.PublicKeyPEM) == 0 {
		logger.Warn("no token key configured: all requests are anonymous")
		return nil, nil
	}
	return auth.NewVerifier(ac)
}

func newJobsHandler(cfg AppConfig, deps DBDeps, m *metrics.Metrics, logger *zap.Logger) (*jobs.Handler, error) {
	syncer := usersync.NewSyncer(deps.MongoDatabase, logger)
	reg, err := jobs.NewRegistry(jobs.BreakerSettings{}, syncer.Functions()...)
	if err != nil {
		return nil, err
	}
	return jobs.NewHandler(reg, jobs.Config{
		AppID:       cfg.InngestAppID,
		SigningKey:  cfg.InngestSigningKey,
		RegisterURL: cfg.InngestRegisterURL,
		ServeURL:    cfg.ServeOrigin + JobsPath,
		OnRun:       m.JobRun,
	}, logger), nil
}

// limitJobs caps webhook calls per client address.
func limitJobs(cfg AppConfig, h http.Handler, logger *zap.Logger) http.Handler {
	if cfg.JobsRateLimit == 0 {
		return h
	}
	return ratelimit.New(cfg.JobsRateLimit, time.Minute).Middleware(logger)(h)
}
