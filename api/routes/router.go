package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/otabekov/orderdesk-backend/api/controllers"
	catalogcontrollers "github.com/otabekov/orderdesk-backend/api/controllers/catalog"
	draftcontrollers "github.com/otabekov/orderdesk-backend/api/controllers/drafts"
	refdatacontrollers "github.com/otabekov/orderdesk-backend/api/controllers/refdata"
	"github.com/otabekov/orderdesk-backend/api/middleware"
	"github.com/otabekov/orderdesk-backend/internal/draft"
	"github.com/otabekov/orderdesk-backend/internal/refdata"
	"github.com/otabekov/orderdesk-backend/pkg/config"
	"github.com/otabekov/orderdesk-backend/pkg/logger"
)

// Deps carries everything the router wires into handlers.
type Deps struct {
	Config    *config.Config
	Logger    *logger.Logger
	Manager   *draft.Manager
	Refdata   *refdata.Service
	Submitter draftcontrollers.Submitter
	// Pingers are probed by the readiness endpoint; nil entries are skipped.
	Pingers map[string]controllers.Pinger
}

func NewRouter(deps Deps) http.Handler {
	cfg := deps.Config
	logg := deps.Logger

	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
		middleware.CORS(cfg.CORS.AllowedOrigins),
	)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, deps.Pingers))
	})

	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.StaticBearer(cfg.App.APIToken, logg))

		r.Route("/drafts", func(r chi.Router) {
			r.Post("/", draftcontrollers.Create(deps.Manager, deps.Refdata, logg))
			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", draftcontrollers.Get(deps.Manager, deps.Refdata, logg))
				r.Delete("/", draftcontrollers.Cancel(deps.Manager))
				r.Patch("/fields", draftcontrollers.SetField(deps.Manager, deps.Refdata, logg))
				r.Get("/pricing", draftcontrollers.Pricing(deps.Manager, deps.Refdata, logg))
				r.Post("/submit", draftcontrollers.Submit(deps.Submitter, logg))

				r.Route("/items", func(r chi.Router) {
					r.Post("/", draftcontrollers.AddItem(deps.Manager, deps.Refdata, logg))
					r.Post("/{productID}/increment", draftcontrollers.IncrementItem(deps.Manager, deps.Refdata, logg))
					r.Post("/{productID}/decrement", draftcontrollers.DecrementItem(deps.Manager, deps.Refdata, logg))
					r.Delete("/{productID}", draftcontrollers.RemoveItem(deps.Manager, deps.Refdata, logg))
				})
			})
		})

		r.Route("/catalog", func(r chi.Router) {
			r.Get("/", catalogcontrollers.Browse(deps.Refdata, logg))
			r.Get("/search", catalogcontrollers.Search(deps.Refdata, logg))
		})

		r.Route("/refdata", func(r chi.Router) {
			r.Get("/filials", refdatacontrollers.Filials(deps.Refdata, logg))
			r.Get("/phone-numbers", refdatacontrollers.PhoneNumbers(deps.Refdata, logg))
			r.Get("/promocodes", refdatacontrollers.Promocodes(deps.Refdata, logg))
			r.Get("/users", refdatacontrollers.Users(deps.Refdata, logg))
			r.Get("/users/{userID}/locations", refdatacontrollers.UserLocations(deps.Refdata, logg))
			r.Get("/categories/{categoryID}/stats", refdatacontrollers.CategoryStats(deps.Refdata, logg))
			r.Get("/schedule-options", refdatacontrollers.ScheduleOptions())
		})
	})

	return r
}
