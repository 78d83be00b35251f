package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/ecosheet/ecosheet-backend/api/controllers"
	"github.com/ecosheet/ecosheet-backend/api/middleware"
	"github.com/ecosheet/ecosheet-backend/internal/audit"
	"github.com/ecosheet/ecosheet-backend/internal/pipeline"
	"github.com/ecosheet/ecosheet-backend/pkg/config"
	"github.com/ecosheet/ecosheet-backend/pkg/db"
	"github.com/ecosheet/ecosheet-backend/pkg/logger"
	"github.com/ecosheet/ecosheet-backend/pkg/redis"
)

func NewRouter(
	cfg *config.Config,
	logg *logger.Logger,
	dbP db.Pinger,
	redisClient *redis.Client,
	pipelineService pipeline.Service,
	auditService audit.Service,
	gatherer prometheus.Gatherer,
) http.Handler {
	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
	)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, dbP, redisClient))
	})

	if gatherer != nil {
		r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))
	}

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.AccessToken(logg))
		r.Use(middleware.Idempotency(redisClient, logg))

		r.Route("/sheets", func(r chi.Router) {
			r.Get("/headers", controllers.SheetHeaders(pipelineService, logg))
			r.Post("/map-fields", controllers.MapFields(pipelineService, logg))
		})

		r.Route("/auditlog", func(r chi.Router) {
			r.Post("/record-change", controllers.RecordChange(auditService, logg))
			r.Get("/sheet/{spreadsheetId}", controllers.ChangeHistory(auditService, logg))
		})
	})

	return r
}
