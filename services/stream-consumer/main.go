package main

import (
	"context"
	"log"
	"os"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/cloudwatch"
	"github.com/rs/zerolog"
	"github.com/urfave/cli/v2"

	"github.com/oddsrelay/oddsrelay/feeddao"
	relaycli "github.com/oddsrelay/oddsrelay/relay-cli"
	relayddb "github.com/oddsrelay/oddsrelay/relay-ddb"
	relaystream "github.com/oddsrelay/oddsrelay/relay-stream"
	relayws "github.com/oddsrelay/oddsrelay/relay-ws"
	"github.com/oddsrelay/oddsrelay/relay-ws/connectiondao"
)

var service = relaycli.NewService("stream-consumer")

var opts struct {
	PruneGone bool
}

var pruneGoneFlag = relaycli.BoolFlag("prune-gone", "Unregister connections the gateway reports gone", &opts.PruneGone)

func main() {
	flags := append(relaycli.CommonFlags, relayddb.DDBFlags...)
	flags = append(flags, relaystream.StreamFlags...)
	flags = append(flags, pruneGoneFlag)

	app := relaycli.App(service, action, flags...)
	err := app.Run(os.Args)
	if err != nil {
		log.Fatalln(err)
	}
}

func action(_ *cli.Context) error {
	sess := session.Must(session.NewSession(aws.NewConfig()))
	api, err := relayddb.DynamoDBAPI(sess)
	if err != nil {
		return err
	}

	metrics := relaycli.NewMetrics(service, cloudwatch.New(sess))
	dispatcher := &relayws.Dispatcher{
		Connections: connectiondao.Build(api, relaycli.CommonOpts.Env),
		Logger:      relaycli.Logger(service),
		PruneOnGone: opts.PruneGone,
		Metrics:     &metrics,
	}

	handler := relaystream.NewHandler(service, func(ctx context.Context, feed feeddao.Feed) error {
		report, err := dispatcher.Broadcast(ctx, feed.AsUpdate())
		if err != nil {
			return err
		}
		zerolog.Ctx(ctx).Info().
			Str("game_id", feed.GameID).
			Int("delivered", report.Delivered).
			Int("failed", len(report.Failures)).
			Msg("broadcast complete")
		return nil
	})
	return handler.Start()
}
