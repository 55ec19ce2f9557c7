package http

import (
	"log/slog"
	"net/http"

	"jobtrack/internal/auth"
	"jobtrack/internal/catalog"
	"jobtrack/internal/config"
	"jobtrack/internal/http/handler"
	mw "jobtrack/internal/http/middleware"
	"jobtrack/internal/jobs"
	"jobtrack/internal/tracking"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"gorm.io/gorm"
)

func NewRouter(cfg config.Config, db *gorm.DB, jwtSvc *auth.JWT, log *slog.Logger) http.Handler {
	r := chi.NewRouter()

	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(chimw.Recoverer)

	if len(cfg.CORSAllowedOrigins) > 0 {
		r.Use(mw.CORS(cfg.CORSAllowedOrigins, cfg.CORSAllowCredentials))
	}

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	ah := &handler.AuthHandler{DB: db, JWT: jwtSvc}
	r.Post("/auth/register", ah.Register)
	r.Post("/auth/login", ah.Login)

	me := &handler.MeHandler{}
	r.With(auth.RequireAuth(jwtSvc)).Get("/me", me.Me)

	trackingSvc := &tracking.Service{
		Repo:      tracking.NewGormRepository(db),
		Reminders: &jobs.Repo{DB: db},
		Log:       log,
	}
	trackingH := &handler.TrackingHandler{Svc: trackingSvc}
	trackingRead := &handler.TrackingReadHandler{DB: db, Svc: trackingSvc}

	r.Route("/tracked-applications", func(r chi.Router) {
		r.Use(auth.RequireAuth(jwtSvc))

		r.Get("/", trackingRead.List)
		r.Get("/stats", trackingRead.Stats)

		r.Put("/{jobId}/status", trackingH.SetStatus)

		r.Patch("/{id}", trackingH.Patch)
		r.Delete("/{id}", trackingH.Delete)
		r.Get("/{id}/history", trackingRead.History)
	})

	catalogH := &handler.CatalogHandler{Svc: &catalog.Service{DB: db}}
	r.Route("/jobs", func(r chi.Router) {
		r.Use(auth.RequireAuth(jwtSvc))

		r.Post("/", catalogH.Upsert)
		r.Get("/{id}", catalogH.Get)
	})

	return r
}
