package httpapi

import (
	"net/http"
	"time"

	"framd/server/internal/http/handlers"
	mw "framd/server/internal/middleware"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
)

// Options carries the router-level knobs that come from configuration.
type Options struct {
	AllowedOrigins []string
	DefaultLocale  string
	CountryLookup  mw.CountryLookup
	RateLimit      int
	RatePer        time.Duration
}

func NewRouter(app *handlers.App, opts Options) http.Handler {
	r := chi.NewRouter()

	r.Use(
		mw.RequestID,
		chimw.RealIP,
		chimw.Recoverer,
		mw.Logger(app.Logger),
		mw.CORS(opts.AllowedOrigins),
		mw.Locale(opts.DefaultLocale, opts.CountryLookup),
	)
	if opts.RateLimit > 0 {
		r.Use(mw.RateLimit(opts.RateLimit, opts.RatePer))
	}

	r.Get("/v1/healthz", app.Health)

	r.Route("/v1/curation", func(r chi.Router) {
		r.Post("/search", app.CurationSearch)
		r.Get("/{keyword}", app.CurationCached)
	})

	r.Get("/v1/rejections", app.RejectionList)

	r.Route("/v1/assets", func(r chi.Router) {
		r.Post("/resolve", app.AssetResolve)
		r.Get("/", app.AssetList)
		r.Get("/bundle", app.AssetBundle)
		r.Get("/{id}", app.AssetStatus)
	})

	r.Route("/v1/generation", func(r chi.Router) {
		r.Post("/", app.GenerationEnqueue)
		r.Get("/{id}", app.GenerationStatus)
		r.Delete("/{id}", app.GenerationCancel)
	})

	return r
}
