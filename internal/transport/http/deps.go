package http

import (
	"github.com/notify-dapp/internal/application/delivery"
	"github.com/notify-dapp/internal/application/draft"
	jwtinfra "github.com/notify-dapp/internal/infrastructure/jwt"
	"github.com/notify-dapp/internal/transport/http/handler"
)

// Deps holds the services and infrastructure the router serves.
// Channels, Keys and Payloads are optional; their routes are omitted when nil.
type Deps struct {
	Drafts      draft.Service
	Delivery    delivery.Service
	Attempts    handler.AttemptLister
	Channels    delivery.ChannelReader
	Keys        delivery.KeyResolver
	Payloads    handler.PayloadFetcher
	JWTProvider *jwtinfra.Provider
}
