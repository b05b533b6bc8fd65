package main

import (
	"encoding/json"
	"log"
	"net/http"
	"os"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
	"github.com/urfave/cli/v2"

	"github.com/oddsrelay/oddsrelay/feeddao"
	relaycli "github.com/oddsrelay/oddsrelay/relay-cli"
	relayddb "github.com/oddsrelay/oddsrelay/relay-ddb"
	relayrest "github.com/oddsrelay/oddsrelay/relay-rest"
)

var service = relaycli.NewService("read-feeds")

func main() {
	flags := append(relaycli.CommonFlags, relayddb.DDBFlags...)
	flags = append(flags, relaycli.PortFlag(8081))

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

	h := &handler{
		feeds:  feeddao.Build(api, relaycli.CommonOpts.Env),
		logger: relaycli.Logger(service),
	}

	routes := relayrest.Middlewares(service, chi.NewRouter())
	routes.Get("/feeds", relayrest.CacheControl(h.readFeed, 5))
	return relayrest.Webserver(service, routes)
}

type handler struct {
	feeds  *feeddao.DAO
	logger zerolog.Logger
}

func (h *handler) readFeed(w http.ResponseWriter, req *http.Request) {
	game := req.URL.Query().Get("game")
	if game == "" {
		http.Error(w, "missing game parameter", http.StatusBadRequest)
		return
	}

	feed, err := h.feeds.QueryLatest(req.Context(), game)
	if err != nil {
		h.logger.Error().Err(err).Str("game", game).Msg("failed to query latest feed")
		http.Error(w, "failed to read feed", http.StatusInternalServerError)
		return
	}
	if feed == nil {
		http.Error(w, "no feed for game", http.StatusNotFound)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(feed.AsUpdate())
}
