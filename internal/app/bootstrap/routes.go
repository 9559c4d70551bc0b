package bootstrap

import (
	"context"
	"net/http"

	"github.com/dalemusser/waffle/config"
	"github.com/dalemusser/waffle/pantry/fileserver"
	"github.com/dalemusser/waffle/pantry/templates"
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/cadetlink/cadetlink/internal/app/core/registration"
	"github.com/cadetlink/cadetlink/internal/app/core/roster"
	assistfeature "github.com/cadetlink/cadetlink/internal/app/features/assist"
	auditlogfeature "github.com/cadetlink/cadetlink/internal/app/features/auditlog"
	cadetsfeature "github.com/cadetlink/cadetlink/internal/app/features/cadets"
	campsfeature "github.com/cadetlink/cadetlink/internal/app/features/camps"
	dashboardfeature "github.com/cadetlink/cadetlink/internal/app/features/dashboard"
	errorsfeature "github.com/cadetlink/cadetlink/internal/app/features/errors"
	healthfeature "github.com/cadetlink/cadetlink/internal/app/features/health"
	homefeature "github.com/cadetlink/cadetlink/internal/app/features/home"
	loginfeature "github.com/cadetlink/cadetlink/internal/app/features/login"
	logoutfeature "github.com/cadetlink/cadetlink/internal/app/features/logout"
	notificationsfeature "github.com/cadetlink/cadetlink/internal/app/features/notifications"
	profilefeature "github.com/cadetlink/cadetlink/internal/app/features/profile"
	registrationsfeature "github.com/cadetlink/cadetlink/internal/app/features/registrations"
	signupfeature "github.com/cadetlink/cadetlink/internal/app/features/signup"
	stafffeature "github.com/cadetlink/cadetlink/internal/app/features/staff"
	auditstore "github.com/cadetlink/cadetlink/internal/app/store/audit"
	campstore "github.com/cadetlink/cadetlink/internal/app/store/camps"
	notestore "github.com/cadetlink/cadetlink/internal/app/store/notifications"
	regstore "github.com/cadetlink/cadetlink/internal/app/store/registrations"
	rosterstore "github.com/cadetlink/cadetlink/internal/app/store/roster"
	assistsvc "github.com/cadetlink/cadetlink/internal/app/system/assist"
	"github.com/cadetlink/cadetlink/internal/app/system/auth"
	"github.com/cadetlink/cadetlink/internal/app/system/identity"
)

// BuildHandler constructs the root HTTP handler. WAFFLE calls this after
// config, DB connection, schema setup, and Startup have completed.
func BuildHandler(coreCfg *config.CoreConfig, appCfg AppConfig, deps DBDeps, logger *zap.Logger) (http.Handler, error) {
	db := deps.MongoDatabase

	// Secure cookies are enabled in production mode.
	secure := coreCfg.Env == "prod"
	sessionMgr, err := auth.NewSessionManager(appCfg.SessionKey, appCfg.SessionName, appCfg.SessionDomain, secure, logger)
	if err != nil {
		logger.Error("session manager init failed", zap.Error(err))
		return nil, err
	}

	// Re-fetch the user on every request so role changes, approval
	// revocations, and deletions take effect immediately.
	sessionMgr.SetUserFetcher(rosterstore.NewFetcher(db))

	// Boot the template engine once at startup. Dev mode enables
	// template reloading.
	eng := templates.New(coreCfg.Env == "dev")
	if err := eng.Boot(logger); err != nil {
		logger.Error("template engine boot failed", zap.Error(err))
		return nil, err
	}
	templates.UseEngine(eng, logger)

	// Stores and gateways shared across features.
	rosterStore := rosterstore.NewStore(db)
	campStore := campstore.NewStore(db)
	regStore := regstore.NewStore(db)
	noteStore := notestore.NewStore(db)
	auditStore := auditstore.NewStore(db)
	gateway := identity.NewMongoGateway(db, appCfg.JWTSecret, appCfg.JWTIssuer)

	// Domain engines.
	regEngine := registration.NewEngine(deps.MongoClient, campStore, regStore, noteStore, rosterStore, auditRecorder, logger)
	rosterEngine := roster.NewEngine(rosterStore, regStore, noteStore, gateway, auditRecorder, logger)

	// Assist is optional; without an API key the endpoints report the
	// feature as disabled.
	var assistService assistsvc.Service
	if appCfg.GeminiAPIKey != "" {
		svc, err := assistsvc.NewGeminiService(context.Background(), appCfg.GeminiAPIKey, appCfg.GeminiModel)
		if err != nil {
			logger.Error("assist service init failed", zap.Error(err))
			return nil, err
		}
		assistService = svc
	} else {
		logger.Info("assist disabled: no Gemini API key configured")
	}

	r := chi.NewRouter()

	// Loads the SessionUser into context on every request.
	r.Use(sessionMgr.LoadSessionUser)

	// Health check endpoint for load balancers and orchestrators.
	healthHandler := healthfeature.NewHandler(deps.MongoClient, logger)
	r.Mount("/health", healthfeature.Routes(healthHandler))

	// Static assets.
	r.Handle("/static/*", fileserver.Handler("/static", "public"))

	// Public pages.
	homeHandler := homefeature.NewHandler(logger)
	r.Mount("/", homefeature.Routes(homeHandler))

	// Authentication.
	loginHandler := loginfeature.NewHandler(rosterStore, gateway, sessionMgr, auditRecorder, logger)
	r.Mount("/login", loginfeature.Routes(loginHandler))

	logoutHandler := logoutfeature.NewHandler(sessionMgr, auditRecorder, logger)
	r.Mount("/logout", logoutfeature.Routes(logoutHandler))

	signupHandler := signupfeature.NewHandler(rosterEngine, gateway, logger)
	r.Mount("/signup", signupfeature.Routes(signupHandler))

	// Error pages.
	errorsHandler := errorsfeature.NewHandler()
	r.Get("/forbidden", errorsHandler.Forbidden)
	r.Get("/unauthorized", errorsHandler.Unauthorized)

	// Role-based dashboard.
	dashboardHandler := dashboardfeature.NewHandler(campStore, regStore, noteStore, rosterStore, logger)
	r.Mount("/dashboard", dashboardfeature.Routes(dashboardHandler, sessionMgr))

	// Camps and registrations.
	campsHandler := campsfeature.NewHandler(regEngine, campStore, regStore, logger)
	r.Mount("/camps", campsfeature.Routes(campsHandler, sessionMgr))

	registrationsHandler := registrationsfeature.NewHandler(regEngine, regStore, campStore, logger)
	r.Mount("/registrations", registrationsfeature.Routes(registrationsHandler, sessionMgr))

	// Roster management.
	cadetsHandler := cadetsfeature.NewHandler(rosterEngine, rosterStore, regStore, logger)
	r.Mount("/cadets", cadetsfeature.Routes(cadetsHandler, sessionMgr))

	staffHandler := stafffeature.NewHandler(rosterEngine, rosterStore, gateway, appCfg.BaseURL, logger)
	r.Mount("/staff", stafffeature.Routes(staffHandler, sessionMgr))

	profileHandler := profilefeature.NewHandler(rosterEngine, rosterStore, logger)
	r.Mount("/profile", profilefeature.Routes(profileHandler, sessionMgr))

	// Notifications and audit log.
	notificationsHandler := notificationsfeature.NewHandler(noteStore, logger)
	r.Mount("/notifications", notificationsfeature.Routes(notificationsHandler, sessionMgr))

	auditHandler := auditlogfeature.NewHandler(auditStore, logger)
	r.Mount("/audit", auditlogfeature.Routes(auditHandler, sessionMgr))

	// Assist helpers.
	assistHandler := assistfeature.NewHandler(assistService, logger)
	r.Mount("/assist", assistfeature.Routes(assistHandler, sessionMgr))

	return r, nil
}
