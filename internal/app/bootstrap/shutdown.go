// internal/app/bootstrap/shutdown.go
package bootstrap

import (
	"context"

	"github.com/dalemusser/waffle/config"
	"go.uber.org/zap"
)

// Shutdown cleanly tears down the background workers and DB connections.
// Order matters: the cycle runner stops first so no new notifications
// are produced, then the dispatcher drains, then Mongo disconnects.
func Shutdown(ctx context.Context, coreCfg *config.CoreConfig, appCfg AppConfig, deps DBDeps, logger *zap.Logger) error {
	if svcs.runner != nil {
		svcs.runner.Stop()
	}
	if svcs.maint != nil {
		svcs.maint.Stop()
	}
	if svcs.dispatcher != nil {
		svcs.dispatcher.Stop()
	}
	if deps.MongoClient != nil {
		logger.Info("disconnecting MongoDB client")
		if err := deps.MongoClient.Disconnect(ctx); err != nil {
			logger.Error("MongoDB disconnect failed", zap.Error(err))
			return err
		}
	}
	return nil
}
