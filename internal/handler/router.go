package handler

import (
	"net/http"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/Siddarth2230/qrlinks/internal/auth"
	"github.com/Siddarth2230/qrlinks/internal/middleware"
)

type RouterOptions struct {
	Authenticator *middleware.Authenticator
	RateLimiter   *middleware.RateLimiter
	// ProtectMutations restricts rewrite and delete endpoints to admins.
	ProtectMutations bool
}

func NewRouter(h *LinkHandler, opts RouterOptions) *mux.Router {
	if opts.Authenticator == nil {
		opts.Authenticator = middleware.NewAuthenticator(nil)
	}

	r := mux.NewRouter()
	r.Use(middleware.RequestLogger, middleware.Metrics)

	r.HandleFunc("/health", h.Health).Methods(http.MethodGet)
	r.Handle("/metrics", promhttp.Handler()).Methods(http.MethodGet)

	var redirect http.Handler = http.HandlerFunc(h.Redirect)
	if opts.RateLimiter != nil {
		redirect = opts.RateLimiter.Limit(redirect)
	}
	r.Handle("/s/{shortCode}", redirect).Methods(http.MethodGet)

	mutation := func(fn http.HandlerFunc) http.Handler {
		if opts.ProtectMutations {
			return middleware.RequireRole(auth.RoleAdmin)(fn)
		}
		return fn
	}

	api := r.PathPrefix("/api").Subrouter()
	api.Use(opts.Authenticator.Authenticate)
	api.HandleFunc("/generate-dynamic-qr", h.Generate).Methods(http.MethodPost)
	api.Handle("/update-dynamic-qr/{shortCode}", mutation(h.Update)).Methods(http.MethodPut)
	api.HandleFunc("/qr-links/event/{eventRef}", h.GetByEvent).Methods(http.MethodGet)
	api.Handle("/qr-links/event/{eventRef}", mutation(h.DeleteByEvent)).Methods(http.MethodDelete)
	api.HandleFunc("/qr-links/{shortCode}", h.Get).Methods(http.MethodGet)
	api.Handle("/qr-links/{shortCode}", mutation(h.Delete)).Methods(http.MethodDelete)

	return r
}
