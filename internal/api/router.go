// catalog-service/internal/api/router.go
package api

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/mux"
)

// RouterOptions carries the edge settings from configuration.
type RouterOptions struct {
	AllowedOrigins   []string
	MaxBodyBytes     int64
	RateLimitEnabled bool
	RateLimitRPS     float64
	RateLimitBurst   int
	Metrics          *Metrics
}

// NewRouter builds the full HTTP handler: catalog and account routes under
// /api, health, metrics and the JSON fallbacks, wrapped in the edge middleware.
func NewRouter(movies *MovieHandler, accounts *AuthHandler, gate *Gate, logger *slog.Logger, opts RouterOptions) http.Handler {
	res := responder{logger: logger}
	router := mux.NewRouter()
	router.Use(opts.Metrics.Middleware)

	apiRouter := router.PathPrefix("/api").Subrouter()
	if opts.RateLimitEnabled {
		apiRouter.Use(newIPRateLimiter(opts.RateLimitRPS, opts.RateLimitBurst, logger).Middleware)
	}
	apiRouter.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		res.respondSuccess(w, r, http.StatusOK, "Catalog API is running", map[string]string{
			"status":    "OK",
			"timestamp": time.Now().UTC().Format(time.RFC3339),
		})
	}).Methods(http.MethodGet)

	// Public reads. /stats is registered before /{id} so it is not taken for an id.
	moviesRouter := apiRouter.PathPrefix("/movies").Subrouter()
	moviesRouter.HandleFunc("", movies.ListMovies).Methods(http.MethodGet)
	moviesRouter.HandleFunc("/stats", movies.GetStats).Methods(http.MethodGet)
	moviesRouter.HandleFunc("/{id}", movies.GetMovie).Methods(http.MethodGet)
	moviesRouter.HandleFunc("/{id}/download", movies.TrackDownload).Methods(http.MethodPost)

	// Admin writes.
	moviesRouter.Handle("", gate.RequireAdmin(http.HandlerFunc(movies.CreateMovie))).Methods(http.MethodPost)
	moviesRouter.Handle("/{id}", gate.RequireAdmin(http.HandlerFunc(movies.UpdateMovie))).Methods(http.MethodPut)
	moviesRouter.Handle("/{id}", gate.RequireAdmin(http.HandlerFunc(movies.DeleteMovie))).Methods(http.MethodDelete)

	authRouter := apiRouter.PathPrefix("/auth").Subrouter()
	authRouter.HandleFunc("/register", accounts.Register).Methods(http.MethodPost)
	authRouter.HandleFunc("/login", accounts.Login).Methods(http.MethodPost)
	authRouter.Handle("/me", gate.Authenticate(http.HandlerFunc(accounts.Me))).Methods(http.MethodGet)
	authRouter.Handle("/profile", gate.Authenticate(http.HandlerFunc(accounts.UpdateProfile))).Methods(http.MethodPut)
	authRouter.Handle("/change-password", gate.Authenticate(http.HandlerFunc(accounts.ChangePassword))).Methods(http.MethodPut)

	if opts.Metrics != nil {
		router.Handle("/metrics", opts.Metrics.Handler()).Methods(http.MethodGet)
	}

	router.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		res.respondError(w, r, http.StatusNotFound, "Route not found")
	})
	router.MethodNotAllowedHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		res.respondError(w, r, http.StatusMethodNotAllowed, "Method not allowed")
	})

	var handler http.Handler = router
	handler = limitBody(opts.MaxBodyBytes)(handler)
	handler = cors(opts.AllowedOrigins)(handler)
	handler = logRequests(logger)(handler)
	handler = recoverPanic(res)(handler)
	return handler
}
