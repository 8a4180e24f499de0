package handler

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/msomdec/userdesk/internal/domain"
	"github.com/msomdec/userdesk/internal/service"
)

// Deps is what the route table needs from main.
type Deps struct {
	Users *service.UserService
	Auth  *service.AuthService

	// LoginLimiter throttles login attempts per client IP. Nil disables it.
	LoginLimiter *service.TokenBucket
	// Gatherer backs /metrics. Nil leaves the route unregistered.
	Gatherer prometheus.Gatherer

	// UploadDir is served under /uploads/ when photos live on local disk.
	UploadDir     string
	MaxFileUpload int64
	CookieSecure  bool
}

// RegisterRoutes sets up all HTTP routes on the given mux.
func RegisterRoutes(mux *http.ServeMux, d Deps) {
	users := NewUserHandler(d.Users, d.MaxFileUpload)
	auth := NewAuthHandler(d.Auth, d.CookieSecure)

	private := func(h http.Handler) http.Handler {
		return RequireAuth(d.Auth, h)
	}
	admin := func(h http.Handler) http.Handler {
		return private(Authorize(h, domain.RoleAdmin))
	}

	mux.HandleFunc("GET /healthz", HandleHealthz)
	if d.Gatherer != nil {
		mux.Handle("GET /metrics", promhttp.HandlerFor(d.Gatherer, promhttp.HandlerOpts{}))
	}

	var login http.Handler = serve(auth.login)
	if d.LoginLimiter != nil {
		login = RateLimit(d.LoginLimiter, login)
	}
	mux.Handle("POST /api/v1/auth/login", login)
	mux.Handle("GET /api/v1/auth/me", private(serve(auth.me)))

	mux.Handle("GET /api/v1/auth/users", admin(AdvancedResults(d.Users, serve(users.list))))
	mux.Handle("POST /api/v1/auth/users", admin(serve(users.create)))
	mux.Handle("GET /api/v1/auth/users/{id}", admin(serve(users.get)))
	mux.Handle("PUT /api/v1/auth/users/{id}", admin(serve(users.update)))
	mux.Handle("DELETE /api/v1/auth/users/{id}", admin(serve(users.remove)))

	mux.Handle("PUT /api/v1/users/{id}/photo", private(serve(users.uploadPhoto)))

	if d.UploadDir != "" {
		mux.Handle("GET /uploads/", http.StripPrefix("/uploads/", http.FileServer(http.Dir(d.UploadDir))))
	}
}

// Wrap applies the middleware every route shares.
func Wrap(h http.Handler, m *Metrics) http.Handler {
	return SecurityHeaders(RequestLogger(m, h))
}
