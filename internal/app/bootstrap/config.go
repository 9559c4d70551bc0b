package bootstrap

import (
	"fmt"

	"github.com/dalemusser/waffle/config"
	wafflemongo "github.com/dalemusser/waffle/pantry/mongo"
	"go.uber.org/zap"
)

// appConfigKeys defines the configuration keys for CadetLink. They are
// loaded via WAFFLE's config system with support for config files,
// CADETLINK_* environment variables, and command-line flags.
var appConfigKeys = []config.AppKey{
	{Name: "mongo_uri", Default: "mongodb://localhost:27017", Desc: "MongoDB connection URI"},
	{Name: "mongo_database", Default: "cadetlink", Desc: "MongoDB database name"},
	{Name: "mongo_max_pool_size", Default: 100, Desc: "MongoDB max connection pool size"},
	{Name: "mongo_min_pool_size", Default: 10, Desc: "MongoDB min connection pool size"},

	{Name: "session_key", Default: "dev-only-change-me-please-0123456789ABCDEF", Desc: "Session signing key (must be strong in production)"},
	{Name: "session_name", Default: "cadetlink-session", Desc: "Session cookie name"},
	{Name: "session_domain", Default: "", Desc: "Session cookie domain (blank means current host)"},

	{Name: "jwt_secret", Default: "dev-only-invite-secret-0123456789", Desc: "HMAC secret for invite tokens (must be strong in production)"},
	{Name: "jwt_issuer", Default: "cadetlink", Desc: "Issuer claim for invite tokens"},

	// Gemini assist (autofill and link verification); empty key disables it
	{Name: "gemini_api_key", Default: "", Desc: "Gemini API key (empty disables assist)"},
	{Name: "gemini_model", Default: "", Desc: "Gemini model name (empty uses the default)"},

	{Name: "base_url", Default: "http://localhost:3000", Desc: "Base URL for invite links"},
}

// LoadConfig loads WAFFLE core config and CadetLink's app config.
func LoadConfig(logger *zap.Logger) (*config.CoreConfig, AppConfig, error) {
	coreCfg, appValues, err := config.LoadWithAppConfig(logger, "CADETLINK", appConfigKeys)
	if err != nil {
		return nil, AppConfig{}, err
	}

	appCfg := AppConfig{
		MongoURI:         appValues.String("mongo_uri"),
		MongoDatabase:    appValues.String("mongo_database"),
		MongoMaxPoolSize: uint64(appValues.Int("mongo_max_pool_size")),
		MongoMinPoolSize: uint64(appValues.Int("mongo_min_pool_size")),

		SessionKey:    appValues.String("session_key"),
		SessionName:   appValues.String("session_name"),
		SessionDomain: appValues.String("session_domain"),

		JWTSecret: appValues.String("jwt_secret"),
		JWTIssuer: appValues.String("jwt_issuer"),

		GeminiAPIKey: appValues.String("gemini_api_key"),
		GeminiModel:  appValues.String("gemini_model"),

		BaseURL: appValues.String("base_url"),
	}

	return coreCfg, appCfg, nil
}

// ValidateConfig enforces config invariants before anything connects.
func ValidateConfig(coreCfg *config.CoreConfig, appCfg AppConfig, logger *zap.Logger) error {
	if err := wafflemongo.ValidateURI(appCfg.MongoURI); err != nil {
		logger.Error("invalid MongoDB URI", zap.Error(err))
		return fmt.Errorf("invalid MongoDB URI: %w", err)
	}
	if appCfg.MongoDatabase == "" {
		return fmt.Errorf("mongo_database must not be empty")
	}
	if appCfg.JWTSecret == "" {
		return fmt.Errorf("jwt_secret must not be empty")
	}
	if coreCfg.Env == "prod" && len(appCfg.JWTSecret) < 32 {
		return fmt.Errorf("jwt_secret must be at least 32 characters in production")
	}
	return nil
}
