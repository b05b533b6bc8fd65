package main

import (
	"context"
	"log"
	"os"
	"time"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/cloudwatch"
	"github.com/urfave/cli/v2"

	relaycli "github.com/oddsrelay/oddsrelay/relay-cli"
	relaycron "github.com/oddsrelay/oddsrelay/relay-cron"
	relayddb "github.com/oddsrelay/oddsrelay/relay-ddb"
	relayreport "github.com/oddsrelay/oddsrelay/relay-report"
	"github.com/oddsrelay/oddsrelay/relay-ws/connectiondao"
)

var service = relaycli.NewService("connections-report")

func main() {
	flags := append(relaycli.CommonFlags, relayddb.DDBFlags...)
	flags = append(flags, relayreport.ReportFlags...)

	app := relaycli.App(service, action, flags...)
	err := app.Run(os.Args)
	if err != nil {
		log.Fatalln(err)
	}
}

type report struct {
	Total    int            `json:"total"`
	ByClient map[string]int `json:"byClient"`
	At       time.Time      `json:"at"`
}

func action(_ *cli.Context) error {
	sess := session.Must(session.NewSession(aws.NewConfig()))
	api, err := relayddb.DynamoDBAPI(sess)
	if err != nil {
		return err
	}
	connections := connectiondao.Build(api, relaycli.CommonOpts.Env)
	metrics := relaycli.NewMetrics(service, cloudwatch.New(sess))

	generator := relayreport.NewHandler(service, "live-connections", func(ctx context.Context) (interface{}, error) {
		conns, err := connections.ListLive(ctx)
		if err != nil {
			return nil, err
		}
		byClient := map[string]int{}
		for _, conn := range conns {
			byClient[conn.Client]++
		}
		metrics.Gauge(ctx, relaycli.LiveConnectionsMetric, float64(len(conns)))
		return report{Total: len(conns), ByClient: byClient, At: time.Now().UTC()}, nil
	})

	cron := relaycron.NewHandler(service, func(ctx context.Context) error {
		return generator.Generate(ctx, nil)
	})
	return cron.Start()
}
