package bootstrap

import (
	"context"

	"github.com/dalemusser/waffle/config"
	"go.uber.org/zap"

	auditstore "github.com/cadetlink/cadetlink/internal/app/store/audit"
	notestore "github.com/cadetlink/cadetlink/internal/app/store/notifications"
	regstore "github.com/cadetlink/cadetlink/internal/app/store/registrations"
	"github.com/cadetlink/cadetlink/internal/app/system/identity"
	"github.com/cadetlink/cadetlink/internal/app/system/validators"
)

// EnsureSchema creates collection validators and indexes. It runs before
// Startup so every store can rely on its indexes, in particular the
// unique (camp_id, cadet_uid) index that makes duplicate registrations a
// write-time conflict.
func EnsureSchema(ctx context.Context, coreCfg *config.CoreConfig, appCfg AppConfig, deps DBDeps, logger *zap.Logger) error {
	db := deps.MongoDatabase

	if err := validators.EnsureAll(ctx, db, logger); err != nil {
		return err
	}
	if err := regstore.NewStore(db).EnsureIndexes(ctx); err != nil {
		return err
	}
	if err := notestore.NewStore(db).EnsureIndexes(ctx); err != nil {
		return err
	}
	if err := auditstore.NewStore(db).EnsureIndexes(ctx); err != nil {
		return err
	}
	if err := identity.NewMongoGateway(db, appCfg.JWTSecret, appCfg.JWTIssuer).EnsureIndexes(ctx); err != nil {
		return err
	}
	return nil
}
