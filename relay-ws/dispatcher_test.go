package relayws

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"sync"
	"testing"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/request"
	"github.com/aws/aws-sdk-go/service/apigatewaymanagementapi"
	"github.com/aws/aws-sdk-go/service/apigatewaymanagementapi/apigatewaymanagementapiiface"
	"github.com/rs/zerolog"
	"github.com/tj/assert"

	"github.com/oddsrelay/oddsrelay/feeddao"
	"github.com/oddsrelay/oddsrelay/relay-ws/connectiondao"
)

type fakeDirectory struct {
	conns   []connectiondao.Connection
	listErr error

	mu      sync.Mutex
	deleted []string
}

func (f *fakeDirectory) ListLive(_ context.Context) ([]connectiondao.Connection, error) {
	if f.listErr != nil {
		return nil, f.listErr
	}
	return f.conns, nil
}

func (f *fakeDirectory) Delete(_ context.Context, connectionID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deleted = append(f.deleted, connectionID)
	return nil
}

type fakeManagementClient struct {
	apigatewaymanagementapiiface.ApiGatewayManagementApiAPI

	mu     sync.Mutex
	posted []string
	bodies [][]byte
	fail   map[string]error
}

func (f *fakeManagementClient) PostToConnectionWithContext(_ aws.Context, input *apigatewaymanagementapi.PostToConnectionInput, _ ...request.Option) (*apigatewaymanagementapi.PostToConnectionOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	connID := aws.StringValue(input.ConnectionId)
	if err, ok := f.fail[connID]; ok {
		return nil, err
	}
	f.posted = append(f.posted, connID)
	f.bodies = append(f.bodies, input.Data)
	return &apigatewaymanagementapi.PostToConnectionOutput{}, nil
}

func connections(ids ...string) []connectiondao.Connection {
	var conns []connectiondao.Connection
	for _, id := range ids {
		conns = append(conns, connectiondao.Connection{
			ConnectionID: id,
			Endpoint:     "https://ws.example.com/prod",
		})
	}
	return conns
}

func TestBroadcast(t *testing.T) {
	ctx := context.Background()
	update := feeddao.Update{GameID: "g1", Away: 1, Home: 2, AwayOdds: 1.5, HomeOdds: 2.5, Date: 1700000100}

	t.Run("delivers to every live connection", func(t *testing.T) {
		client := &fakeManagementClient{}
		d := &Dispatcher{
			Connections: &fakeDirectory{conns: connections("a", "b", "c")},
			Logger:      zerolog.Nop(),
			NewManagementClient: func(string) apigatewaymanagementapiiface.ApiGatewayManagementApiAPI {
				return client
			},
		}

		report, err := d.Broadcast(ctx, update)
		assert.NoError(t, err)
		assert.Equal(t, 3, report.Delivered)
		assert.Len(t, report.Failures, 0)

		sort.Strings(client.posted)
		assert.Equal(t, []string{"a", "b", "c"}, client.posted)

		var payload feeddao.Update
		assert.NoError(t, json.Unmarshal(client.bodies[0], &payload))
		assert.Equal(t, update, payload)
	})

	t.Run("one unreachable endpoint does not abort the others", func(t *testing.T) {
		client := &fakeManagementClient{fail: map[string]error{"b": fmt.Errorf("connection refused")}}
		directory := &fakeDirectory{conns: connections("a", "b", "c")}
		d := &Dispatcher{
			Connections: directory,
			Logger:      zerolog.Nop(),
			NewManagementClient: func(string) apigatewaymanagementapiiface.ApiGatewayManagementApiAPI {
				return client
			},
		}

		report, err := d.Broadcast(ctx, update)
		assert.NoError(t, err)
		assert.Equal(t, 2, report.Delivered)
		assert.Len(t, report.Failures, 1)
		assert.Equal(t, "b", report.Failures[0].ConnectionID)
		assert.Error(t, report.Failures[0].Err)

		// failures are a signal, not a prune
		assert.Len(t, directory.deleted, 0)
	})

	t.Run("prune on gone", func(t *testing.T) {
		client := &fakeManagementClient{fail: map[string]error{"b": fmt.Errorf("GoneException: gone")}}
		directory := &fakeDirectory{conns: connections("a", "b")}
		d := &Dispatcher{
			Connections: directory,
			Logger:      zerolog.Nop(),
			PruneOnGone: true,
			NewManagementClient: func(string) apigatewaymanagementapiiface.ApiGatewayManagementApiAPI {
				return client
			},
		}

		report, err := d.Broadcast(ctx, update)
		assert.NoError(t, err)
		assert.Equal(t, 1, report.Delivered)
		assert.Equal(t, []string{"b"}, directory.deleted)
	})

	t.Run("no live connections", func(t *testing.T) {
		d := &Dispatcher{
			Connections: &fakeDirectory{},
			Logger:      zerolog.Nop(),
		}

		report, err := d.Broadcast(ctx, update)
		assert.NoError(t, err)
		assert.Equal(t, 0, report.Delivered)
	})

	t.Run("registry outage fails the broadcast", func(t *testing.T) {
		d := &Dispatcher{
			Connections: &fakeDirectory{listErr: fmt.Errorf("store unavailable")},
			Logger:      zerolog.Nop(),
		}

		_, err := d.Broadcast(ctx, update)
		assert.Error(t, err)
	})
}

func TestIsGoneException(t *testing.T) {
	assert.True(t, isGoneException(fmt.Errorf("GoneException: connection no longer exists")))
	assert.True(t, isGoneException(fmt.Errorf("status code: 410")))
	assert.False(t, isGoneException(fmt.Errorf("connection refused")))
}
