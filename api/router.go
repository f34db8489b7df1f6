package api

import (
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-chi/httprate"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/raushankrgupta/maternity-matters/utils"
)

// MsgAlive is the body of GET / when no frontend build is served.
const MsgAlive = "Maternity Matters API is alive and running!"

// RouterOptions configures NewRouter.
type RouterOptions struct {
	AllowedOrigins    []string
	RateLimitRequests int
	RateLimitWindow   time.Duration

	// TrustedProxyHeader names a client address header set by a trusted
	// reverse proxy. Empty keys the rate limit on the socket address.
	TrustedProxyHeader string

	// StaticDir, when set, is a frontend build served for non-API paths.
	StaticDir     string
	SecureCookies bool
}

// NewRouter builds the HTTP router: health, metrics, the /api routes and,
// optionally, the single page frontend.
func NewRouter(h *Handler, opts RouterOptions) http.Handler {
	h.secureCookies = opts.SecureCookies
	if opts.RateLimitRequests <= 0 {
		opts.RateLimitRequests = 100
	}
	if opts.RateLimitWindow <= 0 {
		opts.RateLimitWindow = 15 * time.Minute
	}

	r := chi.NewRouter()
	r.Use(RequestID)
	r.Use(middleware.Recoverer)
	r.Use(utils.LatencyMiddleware)
	r.Use(middleware.SetHeader("X-Content-Type-Options", "nosniff"))
	r.Use(middleware.SetHeader("X-Frame-Options", "SAMEORIGIN"))
	r.Use(middleware.SetHeader("Referrer-Policy", "no-referrer"))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   opts.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", requestIDHeader},
		ExposedHeaders:   []string{requestIDHeader},
		AllowCredentials: true,
		MaxAge:           int((10 * time.Minute).Seconds()),
	}))
	r.Use(RejectDisallowedOrigins(opts.AllowedOrigins))

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	r.Route("/api", func(r chi.Router) {
		r.Use(httprate.Limit(
			opts.RateLimitRequests,
			opts.RateLimitWindow,
			httprate.WithKeyFuncs(clientKey(opts.TrustedProxyHeader)),
			httprate.WithLimitCounter(newFixedWindowCounter(opts.RateLimitWindow)),
			httprate.WithLimitHandler(tooManyRequests),
		))

		r.Route("/auth", func(r chi.Router) {
			r.Post("/register", h.Register)
			r.Post("/activate-account", h.ActivateAccount)
			r.Post("/resend-activation", h.ResendActivation)
			r.Post("/login", h.Login)
			r.Post("/google-login", h.GoogleLogin)
			r.Get("/google/login", h.GoogleRedirect)
			r.Get("/google/callback", h.GoogleCallback)
			r.Post("/request-reset", h.RequestReset)
			r.Post("/reset-password", h.ResetPassword)
			r.With(h.RequireAuth).Get("/me", h.Me)
		})

		r.Route("/complaints", func(r chi.Router) {
			r.Use(h.RequireAuth)
			r.Post("/", h.CreateComplaint)
			r.Get("/", h.ListComplaints)
			r.Get("/{id}", h.GetComplaint)
			r.Put("/{id}", h.UpdateComplaint)
			r.Delete("/{id}", h.DeleteComplaint)
		})

		r.Post("/ai/chat", h.Chat)
	})

	if opts.StaticDir != "" {
		r.Get("/*", spaHandler(opts.StaticDir))
	} else {
		r.Get("/", func(w http.ResponseWriter, _ *http.Request) {
			w.Header().Set("Content-Type", "text/plain; charset=utf-8")
			_, _ = w.Write([]byte(MsgAlive))
		})
	}
	return r
}

// spaHandler serves files from dir and falls back to index.html so client
// side routes such as /activate-account resolve.
func spaHandler(dir string) http.HandlerFunc {
	fileServer := http.FileServer(http.Dir(dir))
	index := filepath.Join(dir, "index.html")
	return func(w http.ResponseWriter, r *http.Request) {
		path := filepath.Join(dir, filepath.FromSlash(filepath.Clean("/"+r.URL.Path)))
		if info, err := os.Stat(path); err != nil || info.IsDir() {
			http.ServeFile(w, r, index)
			return
		}
		fileServer.ServeHTTP(w, r)
	}
}
