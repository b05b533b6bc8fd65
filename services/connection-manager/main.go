package main

import (
	"log"
	"os"

	"github.com/aws/aws-lambda-go/lambda"
	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/urfave/cli/v2"

	relaycli "github.com/oddsrelay/oddsrelay/relay-cli"
	relayddb "github.com/oddsrelay/oddsrelay/relay-ddb"
	relayws "github.com/oddsrelay/oddsrelay/relay-ws"
	"github.com/oddsrelay/oddsrelay/relay-ws/connectiondao"
)

var service = relaycli.NewService("connection-manager")

func main() {
	app := relaycli.App(
		service,
		action,
		append(
			relaycli.CommonFlags,
			relayddb.DDBFlags...,
		)...,
	)
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

	handler := &relayws.Handler{
		Connections: connectiondao.Build(api, relaycli.CommonOpts.Env),
		Logger:      relaycli.Logger(service),
	}

	lambda.Start(handler.HandleEvent)
	return nil
}
