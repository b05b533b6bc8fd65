// Package relaystream consumes the feeds table change stream and hands
// decoded odds inserts to a callback.
//
// The stream delivers at least once: redelivered batches re-broadcast the
// same update, which clients de-duplicate by content. Within a batch, records
// are independent; a record that fails to decode or dispatch is logged and
// skipped so its siblings still go out.
package relaystream

import (
	"context"
	"fmt"

	"github.com/aws/aws-lambda-go/events"
	"github.com/aws/aws-lambda-go/lambda"
	consumer "github.com/harlow/kinesis-consumer"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/oddsrelay/oddsrelay/feeddao"
	relaycli "github.com/oddsrelay/oddsrelay/relay-cli"
)

type FeedCallback func(ctx context.Context, feed feeddao.Feed) error

type Handler struct {
	service relaycli.Service
	Logger  zerolog.Logger

	onFeed FeedCallback
}

func NewHandler(
	service relaycli.Service,
	onFeed FeedCallback,
) *Handler {
	return &Handler{
		service: service,
		Logger:  relaycli.Logger(service),
		onFeed:  onFeed,
	}
}

func (h *Handler) Start() error {
	switch {
	case !relaycli.CommonOpts.Console:
		lambda.Start(h.HandleKinesisEvent)
		return nil

	case StreamOpts.TableStream:
		return h.handleTableStream()

	default:
		return h.handleRealtime()
	}
}

// HandleKinesisEvent processes one batch of change records. Records carry no
// ordering dependency across games, so they are decoded and dispatched
// concurrently. The handler always reports success to the runtime; a failing
// record is logged rather than forcing a redelivery of its whole batch.
func (h *Handler) HandleKinesisEvent(ctx context.Context, event events.KinesisEvent) error {
	ctx = h.Logger.WithContext(ctx)
	h.Logger.Trace().Int("count", len(event.Records)).Msg("handling a batch of change records")

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(16)
	for _, record := range event.Records {
		record := record
		g.Go(func() error {
			if err := h.handleSingleRecord(ctx, record.Kinesis.Data); err != nil {
				h.Logger.Error().Err(err).
					Str("event_id", record.EventID).
					Msg("unable to handle change record")
			}
			return nil
		})
	}
	g.Wait()
	return nil
}

func (h *Handler) handleSingleRecord(ctx context.Context, data []byte) error {
	record, err := ParseChangeRecord(data)
	if err != nil {
		return err
	}

	if !Eligible(record) {
		h.Logger.Debug().
			Str("event", record.EventName).
			Msg("skipping change record")
		return nil
	}

	feed, err := DecodeFeed(record)
	if err != nil {
		return err
	}

	return h.onFeed(ctx, feed)
}

// handleRealtime tails the Kinesis change stream from the console, for local
// runs against a deployed environment.
func (h *Handler) handleRealtime() error {
	streamName := StreamOpts.StreamName
	if streamName == "" {
		streamName = fmt.Sprintf("%v-oddsrelay--feedstream", relaycli.CommonOpts.Env)
	}

	var options []consumer.Option
	if StreamOpts.Replay {
		if StreamOpts.ReplayFrom.Value() != nil {
			options = append(options, consumer.WithShardIteratorType("AT_TIMESTAMP"))
			options = append(options, consumer.WithTimestamp(*StreamOpts.ReplayFrom.Value()))
		} else {
			options = append(options, consumer.WithShardIteratorType("TRIM_HORIZON"))
		}
	} else {
		options = append(options, consumer.WithShardIteratorType("LATEST"))
	}

	c, err := consumer.New(streamName, options...)
	if err != nil {
		return err
	}

	ctx := h.Logger.WithContext(context.Background())
	callback := func(record *consumer.Record) error {
		if err := h.handleSingleRecord(ctx, record.Data); err != nil {
			h.Logger.Error().Err(err).Msg("unable to handle change record")
		}
		return nil
	}
	fmt.Println("Listening...")
	return c.Scan(ctx, callback)
}
