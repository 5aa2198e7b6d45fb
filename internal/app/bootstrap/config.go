// internal/app/bootstrap/config.go
package bootstrap

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/dalemusser/socialhub/internal/app/system/cors"
	"github.com/dalemusser/waffle/config"
	wafflemongo "github.com/dalemusser/waffle/pantry/mongo"
	"github.com/spf13/cast"
	"github.com/spf13/pflag"
	"go.uber.org/zap"
)

// EnvPrefix prefixes every environment variable the service reads,
// core and app keys alike (SOCIALHUB_HTTP_PORT, SOCIALHUB_MONGO_URI).
const EnvPrefix = "SOCIALHUB"

// DefaultPort is used when neither http_port nor PORT is set.
const DefaultPort = 4000

// waffleDefaultPort is CoreConfig's http_port default.
const waffleDefaultPort = 8080

// DefaultCORSOrigin is the allowlist used when enable_cors is off.
const DefaultCORSOrigin = "http://localhost:5173"

// appConfigKeys defines the socialhub configuration keys.
// These are loaded via WAFFLE's config system with support for:
//   - Config files: mongo_uri, jobs_rate_limit, etc.
//   - Environment variables: SOCIALHUB_MONGO_URI, SOCIALHUB_JOBS_RATE_LIMIT, etc.
//   - Command-line flags: --mongo_uri, --jobs_rate_limit, etc.
var appConfigKeys = []config.AppKey{
	{Name: "mongo_uri", Default: "mongodb://localhost:27017", Desc: "MongoDB connection URI"},
	{Name: "mongo_database", Default: "socialhub", Desc: "MongoDB database name"},
	{Name: "mongo_max_pool_size", Default: 100, Desc: "MongoDB max connection pool size"},
	{Name: "mongo_min_pool_size", Default: 0, Desc: "MongoDB min connection pool size"},

	{Name: "cors_tolerate_insecure_origins", Default: false, Desc: "Admit plain-http, non-loopback origins in a credentialed CORS policy"},
	{Name: "trust_proxy", Default: false, Desc: "Take the client address from True-Client-IP, X-Real-IP or X-Forwarded-For"},

	// Bearer tokens
	{Name: "auth_jwt_secret", Default: "", Desc: "HS256 secret for bearer tokens"},
	{Name: "auth_jwt_public_key_file", Default: "", Desc: "PEM file with the RS256 public key for bearer tokens"},
	{Name: "auth_jwt_issuer", Default: "", Desc: "Required iss claim (blank accepts any issuer)"},

	// Background-job webhook
	{Name: "inngest_app_id", Default: "socialhub", Desc: "App id reported when registering job functions"},
	{Name: "inngest_signing_key", Default: "", Desc: "Webhook signing key (blank accepts unsigned calls)"},
	{Name: "inngest_register_url", Default: "", Desc: "Registration endpoint (blank skips registration)"},
	{Name: "serve_origin", Default: "http://localhost:4000", Desc: "Public base URL of this service"},
	{Name: "jobs_rate_limit", Default: 600, Desc: "Webhook calls per minute per client address (0 disables)"},

	// Handler deadlines
	{Name: "timeout_ping", Default: "2s", Desc: "Deadline for health pings"},
	{Name: "timeout_short", Default: "5s", Desc: "Deadline for single-document queries"},
	{Name: "timeout_medium", Default: "10s", Desc: "Deadline for list and aggregate queries"},
}

// LoadConfig loads WAFFLE core config and the socialhub app config.
//
// WAFFLE's config.LoadWithAppConfig reads .env, config.yaml/json/toml,
// SOCIALHUB_* environment variables and command-line flags, with
// precedence flags > env > files > defaults. A bare PORT variable is
// honored when http_port was not set any of those ways.
func LoadConfig(logger *zap.Logger) (*config.CoreConfig, AppConfig, error) {
	coreCfg, appValues, err := config.LoadWithAppConfig(logger, EnvPrefix, appConfigKeys)
	if err != nil {
		return nil, AppConfig{}, err
	}

	if err := resolvePort(coreCfg, portFlagChanged(), os.LookupEnv); err != nil {
		return nil, AppConfig{}, err
	}
	if applyCORSDefaults(coreCfg) {
		logger.Info("enable_cors not set; using the default allowlist",
			zap.Strings("origins", coreCfg.CORS.CORSAllowedOrigins))
	}

	appCfg, err := appConfigFrom(appValues)
	if err != nil {
		return nil, AppConfig{}, err
	}
	return coreCfg, appCfg, nil
}

func portFlagChanged() bool {
	f := pflag.Lookup("http_port")
	return f != nil && f.Changed
}

// resolvePort sets the listener port when http_port was left at WAFFLE's
// default: PORT if present, DefaultPort otherwise.
func resolvePort(coreCfg *config.CoreConfig, flagSet bool, lookup func(string) (string, bool)) error {
	if flagSet || coreCfg.HTTP.HTTPPort != waffleDefaultPort {
		return nil
	}
	if _, ok := lookup(EnvPrefix + "_HTTP_PORT"); ok {
		return nil
	}
	if v, ok := lookup("PORT"); ok && strings.TrimSpace(v) != "" {
		port, err := strconv.Atoi(strings.TrimSpace(v))
		if err != nil {
			return fmt.Errorf("PORT %q is not a number", v)
		}
		coreCfg.HTTP.HTTPPort = port
		return nil
	}
	coreCfg.HTTP.HTTPPort = DefaultPort
	return nil
}

// applyCORSDefaults installs the development allowlist when enable_cors is
// off, and reports whether it did. The API always runs behind a policy.
func applyCORSDefaults(coreCfg *config.CoreConfig) bool {
	if coreCfg.CORS.EnableCORS {
		return false
	}
	coreCfg.CORS.EnableCORS = true
	coreCfg.CORS.CORSAllowedOrigins = []string{DefaultCORSOrigin}
	coreCfg.CORS.CORSAllowCredentials = true
	coreCfg.CORS.CORSMaxAge = 300
	return true
}

// appConfigFrom converts loaded values into AppConfig. Values read from
// the environment arrive as strings, so numbers and booleans are coerced
// and a malformed one is an error rather than a silent zero.
func appConfigFrom(vals config.AppConfigValues) (AppConfig, error) {
	var problems []error
	toInt := func(key string) int {
		n, err := cast.ToIntE(vals[key])
		if err != nil {
			problems = append(problems, fmt.Errorf("%s: %w", key, err))
		}
		return n
	}
	toUint64 := func(key string) uint64 {
		n, err := cast.ToUint64E(vals[key])
		if err != nil {
			problems = append(problems, fmt.Errorf("%s: %w", key, err))
		}
		return n
	}
	toBool := func(key string) bool {
		b, err := cast.ToBoolE(vals[key])
		if err != nil {
			problems = append(problems, fmt.Errorf("%s: %w", key, err))
		}
		return b
	}

	cfg := AppConfig{
		MongoURI:         vals.String("mongo_uri"),
		MongoDatabase:    vals.String("mongo_database"),
		MongoMaxPoolSize: toUint64("mongo_max_pool_size"),
		MongoMinPoolSize: toUint64("mongo_min_pool_size"),

		CORSTolerateInsecure: toBool("cors_tolerate_insecure_origins"),
		TrustProxy:           toBool("trust_proxy"),

		AuthJWTSecret:        vals.String("auth_jwt_secret"),
		AuthJWTPublicKeyFile: vals.String("auth_jwt_public_key_file"),
		AuthJWTIssuer:        vals.String("auth_jwt_issuer"),

		InngestAppID:       vals.String("inngest_app_id"),
		InngestSigningKey:  vals.String("inngest_signing_key"),
		InngestRegisterURL: vals.String("inngest_register_url"),
		ServeOrigin:        strings.TrimRight(vals.String("serve_origin"), "/"),
		JobsRateLimit:      toInt("jobs_rate_limit"),

		TimeoutPing:   vals.Duration("timeout_ping", 2*time.Second),
		TimeoutShort:  vals.Duration("timeout_short", 5*time.Second),
		TimeoutMedium: vals.Duration("timeout_medium", 10*time.Second),
	}
	if err := errors.Join(problems...); err != nil {
		return AppConfig{}, err
	}
	return cfg, nil
}

// ValidateConfig rejects settings that would fail later, before any
// connection is attempted. The CORS policy is built here once so a
// wildcard-with-credentials policy stops startup.
func ValidateConfig(coreCfg *config.CoreConfig, appCfg AppConfig, logger *zap.Logger) error {
	var problems []error

	if err := wafflemongo.ValidateURI(appCfg.MongoURI); err != nil {
		logger.Error("invalid MongoDB URI", zap.Error(err))
		problems = append(problems, fmt.Errorf("invalid MongoDB URI: %w", err))
	}
	if appCfg.MongoDatabase == "" {
		problems = append(problems, errors.New("mongo_database is required"))
	}
	if p := coreCfg.HTTP.HTTPPort; p < 1 || p > 65535 {
		problems = append(problems, fmt.Errorf("port %d out of range", p))
	}
	if coreCfg.MaxRequestBodyBytes < 0 {
		problems = append(problems, fmt.Errorf("max_request_body_bytes must not be negative, got %d", coreCfg.MaxRequestBodyBytes))
	}
	if appCfg.JobsRateLimit < 0 {
		problems = append(problems, fmt.Errorf("jobs_rate_limit must not be negative, got %d", appCfg.JobsRateLimit))
	}
	if appCfg.MongoMinPoolSize > appCfg.MongoMaxPoolSize && appCfg.MongoMaxPoolSize != 0 {
		problems = append(problems, errors.New("mongo_min_pool_size exceeds mongo_max_pool_size"))
	}
	switch coreCfg.Env {
	case "dev", "prod", "test":
	default:
		problems = append(problems, fmt.Errorf("env must be dev, test or prod, got %q", coreCfg.Env))
	}
	if _, err := cors.New(corsConfig(coreCfg, appCfg, nil), logger); err != nil {
		problems = append(problems, err)
	}
	if appCfg.AuthJWTPublicKeyFile != "" {
		if _, err := os.Stat(appCfg.AuthJWTPublicKeyFile); err != nil {
			problems = append(problems, fmt.Errorf("auth_jwt_public_key_file: %w", err))
		}
	}
	prod := coreCfg.Env == "prod"
	if prod && appCfg.AuthJWTSecret == "" && appCfg.AuthJWTPublicKeyFile == "" {
		problems = append(problems, errors.New("prod requires auth_jwt_secret or auth_jwt_public_key_file"))
	}
	if prod && appCfg.InngestSigningKey == "" {
		logger.Warn("inngest_signing_key is empty: job webhook accepts unsigned calls")
	}

	return errors.Join(problems...)
}

// corsConfig maps the CORS settings onto the cors package. Empty method
// and header lists fall back to the package defaults.
func corsConfig(coreCfg *config.CoreConfig, appCfg AppConfig, onDeny func(string)) cors.Config {
	return cors.Config{
		Origins:                 coreCfg.CORS.CORSAllowedOrigins,
		Credentialed:            coreCfg.CORS.CORSAllowCredentials,
		Methods:                 coreCfg.CORS.CORSAllowedMethods,
		Headers:                 coreCfg.CORS.CORSAllowedHeaders,
		MaxAgeSeconds:           coreCfg.CORS.CORSMaxAge,
		TolerateInsecureOrigins: appCfg.CORSTolerateInsecure,
		OnDeny:                  onDeny,
	}
}
