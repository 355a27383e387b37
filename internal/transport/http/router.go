package http

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"golang.org/x/time/rate"

	"github.com/notify-dapp/internal/config"
	"github.com/notify-dapp/internal/transport/http/handler"
	appmiddleware "github.com/notify-dapp/internal/transport/http/middleware"
)

// NewRouter builds and returns the application router. ctx bounds the
// lifetime of background helpers such as the rate limiter cleanup.
func NewRouter(ctx context.Context, cfg *config.Config, deps *Deps) http.Handler {
	r := chi.NewRouter()
	if cfg.TrustProxyHeaders {
		r.Use(chimiddleware.RealIP)
	}
	r.Use(chimiddleware.Logger)
	r.Use(chimiddleware.Recoverer)
	r.Use(chimiddleware.RequestID)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		ExposedHeaders:   []string{"Location"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	var authMw func(http.Handler) http.Handler
	if deps.JWTProvider != nil {
		authMw = appmiddleware.Auth(deps.JWTProvider)
	} else {
		authMw = func(next http.Handler) http.Handler { return next }
	}

	// every send costs gas, so sends are throttled per client
	sendRL := appmiddleware.NewRateLimiter(ctx, rate.Limit(cfg.SendRatePerSecond), cfg.SendRateBurst)

	healthH := handler.NewHealthHandler(handler.HealthInfo{
		ActiveChainID: cfg.Chain.ActiveChainID,
		ContentStore:  cfg.ContentStore,
		StatusStore:   cfg.StatusStore,
		Auth:          deps.JWTProvider != nil,
	})
	draftH := handler.NewDraftHandler(deps.Drafts)
	attemptH := handler.NewAttemptHandler(deps.Drafts, deps.Delivery, deps.Attempts)

	r.Route("/v1", func(r chi.Router) {
		r.Get("/health-check/{action}", healthH.Ping)

		r.Group(func(r chi.Router) {
			r.Use(authMw)

			r.Post("/drafts", draftH.Create)
			r.Get("/drafts/{id}", draftH.Get)
			r.Put("/drafts/{id}/type", draftH.SetType)
			r.Put("/drafts/{id}/fields", draftH.UpdateFields)
			r.Post("/drafts/{id}/recipients/input", draftH.InputRecipient)
			r.Delete("/drafts/{id}/recipients/{address}", draftH.RemoveRecipient)
			r.With(sendRL.Limit).Post("/drafts/{id}/send", attemptH.Send)
			r.Get("/drafts/{id}/attempts", attemptH.ListByDraft)
			r.Get("/attempts/{id}", attemptH.Get)

			if deps.Channels != nil && deps.Keys != nil {
				chH := handler.NewChannelHandler(deps.Channels, deps.Keys)
				r.With(appmiddleware.RequireChannel("address")).Get("/channels/{address}", chH.Get)
				r.Get("/keys/{address}", chH.Key)
			}
			if deps.Payloads != nil {
				r.Get("/payloads/{pointer}", handler.NewPayloadHandler(deps.Payloads).Get)
			}
		})
	})

	return r
}
