package http

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/utafrali/bookstore/pkg/health"
	"github.com/utafrali/bookstore/pkg/middleware"
)

// RouterConfig carries everything the router needs.
type RouterConfig struct {
	Sessions Sessions
	Catalog  CatalogReader
	Health   *health.Handler
	Logger   *slog.Logger

	Cookie CookieConfig
	CORS   middleware.CORSConfig

	// AuthLimiter throttles login and register per client IP. Nil disables it.
	AuthLimiter *middleware.RateLimiter

	// CatalogMaxAge is the shared-cache lifetime of catalog reads. Zero
	// disables caching headers.
	CatalogMaxAge  time.Duration
	RequestTimeout time.Duration
	PprofCIDRs     []string
}

// NewRouter creates a chi router with all storefront routes registered.
func NewRouter(cfg RouterConfig) http.Handler {
	timeout := cfg.RequestTimeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	r := chi.NewRouter()

	// Global middleware
	r.Use(middleware.Recovery(cfg.Logger))
	r.Use(middleware.CORS(cfg.CORS))
	r.Use(chimw.Compress(5))
	r.Use(chimw.Timeout(timeout))
	r.Use(middleware.RequestLogging(cfg.Logger, "/health", "/metrics"))
	r.Use(middleware.PrometheusMetrics())
	r.Use(middleware.Tracing())
	r.Use(middleware.RequestLogger(cfg.Logger))

	r.Get("/health/live", cfg.Health.LivenessHandler())
	r.Get("/health/ready", cfg.Health.ReadinessHandler())
	r.Handle("/metrics", promhttp.Handler())

	middleware.RegisterPprof(r, cfg.PprofCIDRs, cfg.Logger)

	carts := NewCartHandler(cfg.Sessions, cfg.Logger)
	sessions := NewSessionHandler(cfg.Sessions, cfg.Cookie, cfg.Logger)
	books := NewBookHandler(cfg.Catalog, cfg.Sessions, cfg.Logger)
	sellers := NewSellerHandler(cfg.Catalog, cfg.Logger)

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(ContentTypeJSON)

		// Catalog reads are the same for every visitor and carry no cookie.
		r.Group(func(r chi.Router) {
			r.Use(middleware.CacheControl(cfg.CatalogMaxAge))

			r.Get("/books", books.ListBooks)
			r.Get("/books/featured", books.FeaturedBooks)
			r.Get("/books/search", books.SearchBooks)
			r.Get("/books/{id}", books.GetBook)

			r.Get("/sellers", sellers.ListSellers)
			r.Get("/sellers/{id}", sellers.GetSeller)
		})

		r.Group(func(r chi.Router) {
			r.Use(middleware.NoStore)
			r.Use(SessionCookie(cfg.Cookie, cfg.Logger))

			r.Route("/cart", func(r chi.Router) {
				r.Get("/", carts.GetCart)
				r.Delete("/", carts.ClearCart)

				r.Post("/items", carts.AddItem)
				r.Put("/items/{bookId}", carts.UpdateItemQuantity)
				r.Delete("/items/{bookId}", carts.RemoveItem)

				r.Post("/toggle", carts.ToggleCart)
				r.Put("/visibility", carts.SetVisibility)
				r.Post("/checkout", carts.Checkout)
			})

			r.Route("/session", func(r chi.Router) {
				r.Get("/", sessions.GetSession)
				r.Post("/logout", sessions.Logout)
				r.Post("/refresh", sessions.Refresh)

				r.Group(func(r chi.Router) {
					if cfg.AuthLimiter != nil {
						r.Use(cfg.AuthLimiter.Middleware(cfg.Logger))
					}
					r.Post("/login", sessions.Login)
					r.Post("/register", sessions.Register)
				})
			})

			r.Post("/books", books.CreateBook)
			r.Put("/books/{id}", books.UpdateBook)
			r.Delete("/books/{id}", books.DeleteBook)
		})
	})

	return r
}
