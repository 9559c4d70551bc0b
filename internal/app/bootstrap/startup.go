package bootstrap

import (
	"context"

	"github.com/dalemusser/waffle/config"
	"go.uber.org/zap"

	"github.com/cadetlink/cadetlink/internal/app/resources"
	auditstore "github.com/cadetlink/cadetlink/internal/app/store/audit"
	campstore "github.com/cadetlink/cadetlink/internal/app/store/camps"
	"github.com/cadetlink/cadetlink/internal/app/system/auditlog"
	"github.com/cadetlink/cadetlink/internal/app/system/tasks"
)

// Long-lived components created at startup and torn down in Shutdown.
var (
	auditRecorder *auditlog.Recorder
	taskRunner    *tasks.Runner
)

// Startup runs one-time initialization after DB connections and schema
// setup are complete, but before the HTTP handler is built: shared
// templates, the audit recorder, and the camp status refresh job.
func Startup(ctx context.Context, coreCfg *config.CoreConfig, appCfg AppConfig, deps DBDeps, logger *zap.Logger) error {
	resources.LoadSharedTemplates()

	auditRecorder = auditlog.NewRecorder(auditstore.NewStore(deps.MongoDatabase), logger)

	taskRunner = tasks.NewRunner(logger,
		tasks.CampStatusRefreshJob(campstore.NewStore(deps.MongoDatabase), logger))
	taskRunner.Start(ctx)

	return nil
}
