// internal/app/bootstrap/startup.go
package bootstrap

import (
	"context"

	"github.com/dalemusser/socialhub/internal/app/system/timeouts"
	"github.com/dalemusser/waffle/config"
	"go.uber.org/zap"
)

// Startup applies process-wide settings once backends are ready.
func Startup(ctx context.Context, coreCfg *config.CoreConfig, appCfg AppConfig, deps DBDeps, logger *zap.Logger) error {
	timeouts.Configure(timeouts.Config{
		Ping:   appCfg.TimeoutPing,
		Short:  appCfg.TimeoutShort,
		Medium: appCfg.TimeoutMedium,
	})
	t := timeouts.Current()
	logger.Info("startup complete",
		zap.String("env", coreCfg.Env),
		zap.Strings("cors_origins", coreCfg.CORS.CORSAllowedOrigins),
		zap.Bool("cors_credentials", coreCfg.CORS.CORSAllowCredentials),
		zap.Bool("trust_proxy", appCfg.TrustProxy),
		zap.Duration("timeout_ping", t.Ping),
		zap.Duration("timeout_short", t.Short),
		zap.Duration("timeout_medium", t.Medium))
	return nil
}

// OnReady logs the listener and the webhook URL the job service should call.
func OnReady(coreCfg *config.CoreConfig, appCfg AppConfig, deps DBDeps, logger *zap.Logger) {
	logger.Info("socialhub ready",
		zap.Int("port", coreCfg.HTTP.HTTPPort),
		zap.String("jobs_url", appCfg.ServeOrigin+JobsPath))
}
