package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

// RouterConfig contains all dependencies needed to construct the HTTP router.
// Designed for dependency injection and testability.
//
// Example usage in tests:
//
//	cfg := api.RouterConfig{
//	    StateProvider: fakeState,
//	    WSHandler:     http.NotFoundHandler(),
//	    RateLimitConfig: &api.RateLimitConfig{
//	        RequestsPerSecond: 1000,
//	        Burst:             1000,
//	    },
//	}
//	router := api.NewRouter(cfg)
//	ts := httptest.NewServer(router)
type RouterConfig struct {
	// StateProvider answers /test with current counts (required).
	StateProvider StateProvider

	// WSHandler serves the /ws upgrade (required in production; may be a
	// stub in tests that don't exercise the transport).
	WSHandler http.Handler

	// RateLimiter is an optional pre-configured rate limiter.
	RateLimiter *IPRateLimiter

	// RateLimitConfig configures a new rate limiter when RateLimiter is nil.
	RateLimitConfig *RateLimitConfig

	// CORSOrigins overrides the default permissive CORS policy spec §6 calls
	// for ("both CORS permissive (all origins)").
	CORSOrigins []string

	// StaticFilesDir serves the browser client per spec §6's "GET / and
	// GET /{path} serve static assets from a configurable root."
	StaticFilesDir string

	// DisableLogging disables the request logger middleware (useful for
	// benchmarks and quiet test output).
	DisableLogging bool
}

// StateProvider is the minimal read surface the HTTP layer needs from the
// game engine. Kept narrow so router tests can supply a fake without
// spinning up a tick loop.
type StateProvider interface {
	PlayerCount() int
	MinionCount() int
}

// NewRouter constructs the HTTP router with all middleware and routes.
//
// IMPORTANT: This function has a single side effect:
//   - No network listeners are opened
//   - When cfg.RateLimiter is nil, the IPRateLimiter built here starts its
//     cleanup goroutine; no other goroutine or worker is launched
//
// This makes it safe to use in tests with httptest.NewServer.
func NewRouter(cfg RouterConfig) *chi.Mux {
	r := chi.NewRouter()

	if !cfg.DisableLogging {
		r.Use(middleware.Logger)
	}
	r.Use(middleware.Recoverer)

	rateLimiter := cfg.RateLimiter
	if rateLimiter == nil {
		rateLimitCfg := DefaultRateLimitConfig
		if cfg.RateLimitConfig != nil {
			rateLimitCfg = *cfg.RateLimitConfig
		}
		rateLimiter = NewIPRateLimiter(rateLimitCfg)
	}
	r.Use(rateLimiter.Middleware)

	corsOrigins := cfg.CORSOrigins
	if corsOrigins == nil {
		corsOrigins = []string{"*"}
	}
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   corsOrigins,
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"*"},
		AllowCredentials: corsOrigins[0] != "*",
	}))

	h := &routerHandlers{state: cfg.StateProvider}

	r.Get("/health", h.handleHealth)
	r.Get("/test", h.handleTest)

	if cfg.WSHandler != nil {
		r.Handle("/ws", cfg.WSHandler)
	}

	staticDir := cfg.StaticFilesDir
	if staticDir == "" {
		staticDir = "./static"
	}
	fileServer := http.FileServer(http.Dir(staticDir))
	r.Get("/", fileServer.ServeHTTP)
	r.Get("/{path}", fileServer.ServeHTTP)
	// The client ships nested assets (js/css subfolders); spec §6 only names
	// the single-segment case explicitly but a static root without this
	// would break every asset one directory deep.
	r.Get("/*", fileServer.ServeHTTP)

	return r
}

// routerHandlers holds the handler functions for the router.
type routerHandlers struct {
	state StateProvider
}
