// internal/app/bootstrap/appconfig.go
package bootstrap

import "time"

// AppConfig holds the socialhub settings that WAFFLE's CoreConfig does not
// cover. Listener port, timeouts, log level, CORS lists and the request body
// cap live on CoreConfig.
//
// Each field maps to an app key: mongo_uri in a config file, --mongo_uri on
// the command line, SOCIALHUB_MONGO_URI in the environment.
type AppConfig struct {
	// MongoDB
	MongoURI         string
	MongoDatabase    string
	MongoMaxPoolSize uint64
	MongoMinPoolSize uint64

	// Lets http:// origins other than localhost into the CORS allowlist.
	CORSTolerateInsecure bool

	// Honor forwarded client addresses (True-Client-IP, X-Real-IP,
	// X-Forwarded-For). Only set when a trusted proxy fronts the service.
	TrustProxy bool

	// Bearer token verification: HS256 with a secret, or RS256 with a PEM key.
	AuthJWTSecret        string
	AuthJWTPublicKeyFile string
	AuthJWTIssuer        string

	// Background-job webhook
	InngestAppID       string
	InngestSigningKey  string
	InngestRegisterURL string
	ServeOrigin        string // public base URL used when registering
	JobsRateLimit      int    // webhook calls per minute per address; 0 disables

	// Handler deadlines
	TimeoutPing   time.Duration
	TimeoutShort  time.Duration
	TimeoutMedium time.Duration
}
