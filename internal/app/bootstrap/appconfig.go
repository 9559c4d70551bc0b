package bootstrap

// AppConfig holds CadetLink-specific configuration, loaded in LoadConfig
// from config files, CADETLINK_* environment variables, or flags.
// Framework-level settings (ports, TLS, log level) live in WAFFLE's
// CoreConfig.
type AppConfig struct {
	// MongoDB connection configuration
	MongoURI         string
	MongoDatabase    string
	MongoMaxPoolSize uint64
	MongoMinPoolSize uint64

	// Session management configuration
	SessionKey    string // Secret key for signing session cookies (must be strong in production)
	SessionName   string // Cookie name for sessions
	SessionDomain string // Cookie domain (blank means current host)

	// Identity gateway configuration
	JWTSecret string // HMAC secret for invite tokens
	JWTIssuer string // Issuer claim for minted tokens

	// Gemini assist configuration. An empty API key disables assist.
	GeminiAPIKey string
	GeminiModel  string

	// Base URL used to build absolute invite links
	BaseURL string
}
