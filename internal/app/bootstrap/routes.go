// internal/app/bootstrap/routes.go
package bootstrap

import (
	"net/http"

	"github.com/dalemusser/waffle/config"
	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	healthfeature "spedhub/internal/app/features/health"
	sessionsfeature "spedhub/internal/app/features/sessions"
	"spedhub/internal/app/schedule"
	"spedhub/internal/app/system/auth"
)

// BuildHandler constructs the root HTTP handler (router) for this WAFFLE app.
//
// WAFFLE calls this after configuration, DB connections, schema setup, and
// the Startup hook have completed, so the session store and background
// workers already exist. It wires the scheduling core (materializer,
// persister, grouping coordinator) over the Mongo-backed store and mounts
// the JSON API.
func BuildHandler(coreCfg *config.CoreConfig, appCfg AppConfig, deps DBDeps, logger *zap.Logger) (http.Handler, error) {
	materializer := schedule.NewMaterializer(scheduleStore, orphanQueue, logger)
	persister := schedule.NewPersister(scheduleStore, logger)
	coordinator := schedule.NewCoordinator(scheduleStore, logger)

	r := chi.NewRouter()

	// Global auth middleware: loads SessionUser into context if logged in.
	r.Use(auth.LoadSessionUser)

	// Health check endpoint for load balancers and orchestrators
	healthHandler := healthfeature.NewHandler(deps.MongoClient, logger)
	r.Mount("/health", healthfeature.Routes(healthHandler))

	// Prometheus scrape endpoint
	r.Handle("/metrics", promhttp.Handler())

	// Scheduling API: calendar materialization, session save, grouping
	sessionsHandler := sessionsfeature.NewHandler(scheduleStore, materializer, persister, coordinator, logger)
	r.Mount("/api/sessions", sessionsfeature.Routes(sessionsHandler))

	return r, nil
}
