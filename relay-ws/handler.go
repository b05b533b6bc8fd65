// Package relayws handles the WebSocket side of the odds relay: connection
// lifecycle events from API Gateway, and fan-out of feed updates to every
// live connection.
package relayws

import (
	"context"
	"fmt"
	"time"

	"github.com/aws/aws-lambda-go/events"
	"github.com/rs/zerolog"

	"github.com/oddsrelay/oddsrelay/relay-ws/connectiondao"
)

// Registry is the slice of the connection registry the lifecycle handler
// writes through. *connectiondao.DAO satisfies it.
type Registry interface {
	Put(ctx context.Context, conn connectiondao.Connection) error
	Delete(ctx context.Context, connectionID string) error
}

// Handler reacts to API Gateway WebSocket lifecycle events by creating and
// removing registry entries. It holds no connection state itself; the
// registry is the sole source of truth.
type Handler struct {
	Connections Registry
	Logger      zerolog.Logger
}

// HandleEvent routes an API Gateway WebSocket event. Route keys other than
// $connect and $disconnect are acknowledged without effect; the relay never
// rejects a frame it does not understand.
func (h *Handler) HandleEvent(ctx context.Context, req events.APIGatewayWebsocketProxyRequest) (events.APIGatewayProxyResponse, error) {
	logger := h.Logger.With().
		Str("connection_id", req.RequestContext.ConnectionID).
		Str("route", req.RequestContext.RouteKey).
		Logger()

	switch req.RequestContext.RouteKey {
	case "$connect":
		return h.handleConnect(ctx, logger, req)
	case "$disconnect":
		return h.handleDisconnect(ctx, logger, req)
	default:
		logger.Debug().Msg("ignoring route")
		return events.APIGatewayProxyResponse{StatusCode: 200, Body: "Nothing to do."}, nil
	}
}

func (h *Handler) handleConnect(ctx context.Context, logger zerolog.Logger, req events.APIGatewayWebsocketProxyRequest) (events.APIGatewayProxyResponse, error) {
	connID := req.RequestContext.ConnectionID
	endpoint := fmt.Sprintf("https://%s/%s", req.RequestContext.DomainName, req.RequestContext.Stage)

	// A missing or malformed client tag never fails the handshake.
	client := req.QueryStringParameters["client"]

	conn := connectiondao.NewConnection(connID, client, endpoint, time.Now())
	if err := h.Connections.Put(ctx, conn); err != nil {
		logger.Error().Err(err).Msg("failed to store connection")
		return events.APIGatewayProxyResponse{StatusCode: 500, Body: "Failed to connect."}, nil
	}

	logger.Info().Str("client", conn.Client).Msg("connection established")
	return events.APIGatewayProxyResponse{StatusCode: 200, Body: "Connected." + connID}, nil
}

func (h *Handler) handleDisconnect(ctx context.Context, logger zerolog.Logger, req events.APIGatewayWebsocketProxyRequest) (events.APIGatewayProxyResponse, error) {
	connID := req.RequestContext.ConnectionID

	// A disconnect cannot be rejected; registry failures are logged and the
	// record is left for TTL expiry.
	if err := h.Connections.Delete(ctx, connID); err != nil {
		logger.Error().Err(err).Msg("failed to delete connection")
	}

	logger.Info().Msg("connection closed")
	return events.APIGatewayProxyResponse{StatusCode: 200, Body: "Disconnected." + connID}, nil
}
