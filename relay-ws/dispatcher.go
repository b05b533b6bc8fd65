package relayws

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/apigatewaymanagementapi"
	"github.com/aws/aws-sdk-go/service/apigatewaymanagementapi/apigatewaymanagementapiiface"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/oddsrelay/oddsrelay/feeddao"
	relaycli "github.com/oddsrelay/oddsrelay/relay-cli"
	"github.com/oddsrelay/oddsrelay/relay-ws/connectiondao"
)

// ConnectionDirectory is the slice of the registry the dispatcher reads, plus
// the delete used when PruneOnGone is enabled. *connectiondao.DAO satisfies it.
type ConnectionDirectory interface {
	ListLive(ctx context.Context) ([]connectiondao.Connection, error)
	Delete(ctx context.Context, connectionID string) error
}

// ManagementClientFactory builds an API Gateway Management API client for a
// given callback endpoint. Overridable for tests.
type ManagementClientFactory func(endpoint string) apigatewaymanagementapiiface.ApiGatewayManagementApiAPI

// Delivery is the outcome of one per-connection push attempt.
type Delivery struct {
	ConnectionID string
	Err          error
}

// Report summarizes one broadcast. Failures never abort sibling deliveries
// and never fail the broadcast itself.
type Report struct {
	Delivered int
	Failures  []Delivery
}

// Dispatcher fans one feed update out to every live connection.
type Dispatcher struct {
	Connections ConnectionDirectory
	Logger      zerolog.Logger
	Concurrency int  // max concurrent PostToConnection calls (default 50)
	PruneOnGone bool // unregister connections the gateway reports gone (410)
	Metrics     *relaycli.Metrics

	// NewManagementClient overrides the session-based client builder.
	NewManagementClient ManagementClientFactory

	// mgmtClients caches management API clients by endpoint
	mgmtMu      sync.RWMutex
	mgmtClients map[string]apigatewaymanagementapiiface.ApiGatewayManagementApiAPI
}

// Broadcast pushes the update to every live connection concurrently. The
// returned error covers only total failures (registry unreachable, payload
// unencodable); per-connection failures land in the Report.
func (d *Dispatcher) Broadcast(ctx context.Context, update feeddao.Update) (Report, error) {
	if d.Metrics != nil {
		defer d.Metrics.Timing(ctx, relaycli.BroadcastTimeMetric, time.Now())
	}

	data, err := json.Marshal(update)
	if err != nil {
		return Report{}, fmt.Errorf("marshalling feed update: %w", err)
	}

	conns, err := d.Connections.ListLive(ctx)
	if err != nil {
		return Report{}, fmt.Errorf("listing live connections: %w", err)
	}
	if len(conns) == 0 {
		return Report{}, nil
	}

	d.Logger.Debug().
		Str("game_id", update.GameID).
		Int("connections", len(conns)).
		Msg("broadcasting feed update")

	concurrency := d.Concurrency
	if concurrency <= 0 {
		concurrency = 50
	}

	var (
		mu       sync.Mutex
		failures []Delivery
	)
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(concurrency)

	for _, conn := range conns {
		conn := conn
		g.Go(func() error {
			if err := d.sendToConnection(ctx, conn, data); err != nil {
				d.Logger.Warn().Err(err).
					Str("connection_id", conn.ConnectionID).
					Msg("delivery failed")
				mu.Lock()
				failures = append(failures, Delivery{ConnectionID: conn.ConnectionID, Err: err})
				mu.Unlock()
			}
			return nil
		})
	}
	g.Wait()

	if d.Metrics != nil {
		for range failures {
			d.Metrics.Event(ctx, relaycli.DeliveryFailureMetric)
		}
	}

	return Report{
		Delivered: len(conns) - len(failures),
		Failures:  failures,
	}, nil
}

func (d *Dispatcher) sendToConnection(ctx context.Context, conn connectiondao.Connection, data []byte) error {
	client := d.getManagementClient(conn.Endpoint)
	_, err := client.PostToConnectionWithContext(ctx, &apigatewaymanagementapi.PostToConnectionInput{
		ConnectionId: aws.String(conn.ConnectionID),
		Data:         data,
	})
	if err != nil {
		if isGoneException(err) && d.PruneOnGone {
			d.Logger.Info().
				Str("connection_id", conn.ConnectionID).
				Msg("connection gone, unregistering")
			if delErr := d.Connections.Delete(ctx, conn.ConnectionID); delErr != nil {
				d.Logger.Error().Err(delErr).
					Str("connection_id", conn.ConnectionID).
					Msg("failed to delete gone connection")
			}
		}
		return fmt.Errorf("posting to connection %v: %w", conn.ConnectionID, err)
	}
	return nil
}

func (d *Dispatcher) getManagementClient(endpoint string) apigatewaymanagementapiiface.ApiGatewayManagementApiAPI {
	d.mgmtMu.RLock()
	if client, ok := d.mgmtClients[endpoint]; ok {
		d.mgmtMu.RUnlock()
		return client
	}
	d.mgmtMu.RUnlock()

	d.mgmtMu.Lock()
	defer d.mgmtMu.Unlock()

	// Double-check after acquiring write lock
	if client, ok := d.mgmtClients[endpoint]; ok {
		return client
	}

	if d.mgmtClients == nil {
		d.mgmtClients = make(map[string]apigatewaymanagementapiiface.ApiGatewayManagementApiAPI)
	}

	var client apigatewaymanagementapiiface.ApiGatewayManagementApiAPI
	if d.NewManagementClient != nil {
		client = d.NewManagementClient(endpoint)
	} else {
		sess := session.Must(session.NewSession(aws.NewConfig().WithEndpoint(endpoint)))
		client = apigatewaymanagementapi.New(sess)
	}
	d.mgmtClients[endpoint] = client
	return client
}

// isGoneException checks if the error is a GoneException (HTTP 410),
// indicating the WebSocket connection no longer exists.
func isGoneException(err error) bool {
	return strings.Contains(err.Error(), "GoneException") ||
		strings.Contains(err.Error(), "410")
}
