package relayws

import (
	"context"
	"fmt"
	"testing"

	"github.com/aws/aws-lambda-go/events"
	"github.com/rs/zerolog"
	"github.com/tj/assert"

	"github.com/oddsrelay/oddsrelay/relay-ws/connectiondao"
)

type fakeRegistry struct {
	puts    []connectiondao.Connection
	deletes []string

	putErr    error
	deleteErr error
}

func (f *fakeRegistry) Put(_ context.Context, conn connectiondao.Connection) error {
	if f.putErr != nil {
		return f.putErr
	}
	f.puts = append(f.puts, conn)
	return nil
}

func (f *fakeRegistry) Delete(_ context.Context, connectionID string) error {
	if f.deleteErr != nil {
		return f.deleteErr
	}
	f.deletes = append(f.deletes, connectionID)
	return nil
}

func newRequest(route, connID string, params map[string]string) events.APIGatewayWebsocketProxyRequest {
	return events.APIGatewayWebsocketProxyRequest{
		QueryStringParameters: params,
		RequestContext: events.APIGatewayWebsocketProxyRequestContext{
			RouteKey:     route,
			ConnectionID: connID,
			DomainName:   "ws.example.com",
			Stage:        "prod",
		},
	}
}

func TestHandleEvent(t *testing.T) {
	ctx := context.Background()

	t.Run("connect registers the connection", func(t *testing.T) {
		registry := &fakeRegistry{}
		h := &Handler{Connections: registry, Logger: zerolog.Nop()}

		resp, err := h.HandleEvent(ctx, newRequest("$connect", "abc", map[string]string{"client": "mobile"}))
		assert.NoError(t, err)
		assert.Equal(t, 200, resp.StatusCode)

		assert.Len(t, registry.puts, 1)
		assert.Equal(t, "abc", registry.puts[0].ConnectionID)
		assert.Equal(t, "mobile", registry.puts[0].Client)
		assert.Equal(t, "https://ws.example.com/prod", registry.puts[0].Endpoint)
	})

	t.Run("missing client tag never fails the handshake", func(t *testing.T) {
		registry := &fakeRegistry{}
		h := &Handler{Connections: registry, Logger: zerolog.Nop()}

		resp, err := h.HandleEvent(ctx, newRequest("$connect", "abc", nil))
		assert.NoError(t, err)
		assert.Equal(t, 200, resp.StatusCode)
		assert.Equal(t, connectiondao.DefaultClient, registry.puts[0].Client)
	})

	t.Run("registry failure rejects the handshake", func(t *testing.T) {
		registry := &fakeRegistry{putErr: fmt.Errorf("store unavailable")}
		h := &Handler{Connections: registry, Logger: zerolog.Nop()}

		resp, err := h.HandleEvent(ctx, newRequest("$connect", "abc", nil))
		assert.NoError(t, err)
		assert.Equal(t, 500, resp.StatusCode)
	})

	t.Run("disconnect unregisters the connection", func(t *testing.T) {
		registry := &fakeRegistry{}
		h := &Handler{Connections: registry, Logger: zerolog.Nop()}

		resp, err := h.HandleEvent(ctx, newRequest("$disconnect", "abc", nil))
		assert.NoError(t, err)
		assert.Equal(t, 200, resp.StatusCode)
		assert.Equal(t, []string{"abc"}, registry.deletes)
	})

	t.Run("disconnect cannot be rejected", func(t *testing.T) {
		registry := &fakeRegistry{deleteErr: fmt.Errorf("store unavailable")}
		h := &Handler{Connections: registry, Logger: zerolog.Nop()}

		resp, err := h.HandleEvent(ctx, newRequest("$disconnect", "abc", nil))
		assert.NoError(t, err)
		assert.Equal(t, 200, resp.StatusCode)
	})

	t.Run("unknown routes are acknowledged", func(t *testing.T) {
		registry := &fakeRegistry{}
		h := &Handler{Connections: registry, Logger: zerolog.Nop()}

		resp, err := h.HandleEvent(ctx, newRequest("$default", "abc", nil))
		assert.NoError(t, err)
		assert.Equal(t, 200, resp.StatusCode)
		assert.Len(t, registry.puts, 0)
		assert.Len(t, registry.deletes, 0)
	})
}
