// internal/app/bootstrap/startup.go
package bootstrap

import (
	"context"

	"github.com/dalemusser/waffle/config"
	"go.uber.org/zap"

	sessionstore "spedhub/internal/app/store/sessions"
	"spedhub/internal/app/system/auth"
	"spedhub/internal/app/system/tasks"
	"spedhub/internal/app/system/workers"
)

// Background services created during Startup. BuildHandler reads them when
// wiring the scheduling core, and Shutdown stops them.
var (
	scheduleStore *sessionstore.Store
	orphanQueue   *workers.OrphanQueue
	taskRunner    *tasks.Runner
)

// Startup runs one-time application initialization after DB connections and
// schema setup are complete, but before the HTTP handler is built. It
// initializes the session cookie store and starts the background workers:
// the orphan cleanup queue that request-path materialization feeds, and the
// periodic sweep that catches anything the queue drops.
func Startup(ctx context.Context, coreCfg *config.CoreConfig, appCfg AppConfig, deps DBDeps, logger *zap.Logger) error {
	secure := coreCfg.Env == "prod"
	if err := auth.InitSessionStore(appCfg.SessionKey, appCfg.SessionName, appCfg.SessionDomain, secure, logger); err != nil {
		return err
	}

	scheduleStore = sessionstore.New(deps.MongoDatabase, logger)

	orphanQueue = workers.NewOrphanQueue(scheduleStore, logger, appCfg.OrphanQueueSize)
	orphanQueue.Start()

	taskRunner = tasks.NewRunner(logger,
		tasks.OrphanSweepJob(scheduleStore, logger, appCfg.OrphanSweepInterval),
	)
	taskRunner.Start()

	return nil
}
