package main

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"os"
	"time"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
	"github.com/urfave/cli/v2"

	"github.com/oddsrelay/oddsrelay/feeddao"
	relaycli "github.com/oddsrelay/oddsrelay/relay-cli"
	relayddb "github.com/oddsrelay/oddsrelay/relay-ddb"
	relayrest "github.com/oddsrelay/oddsrelay/relay-rest"
	relaysecret "github.com/oddsrelay/oddsrelay/relay-secret"
)

var service = relaycli.NewService("write-feeds")

var opts struct {
	APIKeySecret string
}

var apiKeySecretFlag = relaycli.StringFlag("api-key-secret", "Secrets Manager secret holding the write API key; empty disables auth", &opts.APIKeySecret)

func main() {
	flags := append(relaycli.CommonFlags, relayddb.DDBFlags...)
	flags = append(flags, relaycli.PortFlag(8080), apiKeySecretFlag)

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

	var apiKey string
	if opts.APIKeySecret != "" {
		var secret struct {
			APIKey string `json:"api_key"`
		}
		if err := relaysecret.LoadSecret(sess, opts.APIKeySecret, &secret); err != nil {
			return err
		}
		apiKey = secret.APIKey
	}

	h := &handler{
		feeds:  feeddao.Build(api, relaycli.CommonOpts.Env),
		logger: relaycli.Logger(service),
		apiKey: apiKey,
	}

	routes := relayrest.Middlewares(service, chi.NewRouter())
	routes.Post("/feeds", h.writeFeeds)
	return relayrest.Webserver(service, routes)
}

type handler struct {
	feeds  *feeddao.DAO
	logger zerolog.Logger
	apiKey string
}

type writeRequest struct {
	Odds []feeddao.Entry `json:"odds"`
}

type writeResponse struct {
	Accepted  int `json:"accepted"`
	Unwritten int `json:"unwritten"`
}

func (h *handler) writeFeeds(w http.ResponseWriter, req *http.Request) {
	if h.apiKey != "" && req.Header.Get("X-Api-Key") != h.apiKey {
		http.Error(w, "forbidden", http.StatusForbidden)
		return
	}

	var body writeRequest
	if err := json.NewDecoder(req.Body).Decode(&body); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if len(body.Odds) == 0 {
		http.Error(w, "no odds entries", http.StatusBadRequest)
		return
	}

	now := time.Now()
	feeds := make([]feeddao.Feed, 0, len(body.Odds))
	for _, entry := range body.Odds {
		feeds = append(feeds, feeddao.NewFeed(entry, now))
	}

	if relaycli.CommonOpts.Dry {
		h.logger.Info().Int("count", len(feeds)).Msg("dry run, skipping batch write")
		writeJSON(w, writeResponse{Accepted: len(feeds)})
		return
	}

	resp := writeResponse{Accepted: len(feeds)}
	if err := h.feeds.BatchWrite(req.Context(), feeds); err != nil {
		var batchErr *feeddao.BatchWriteError
		if !errors.As(err, &batchErr) {
			h.logger.Error().Err(err).Msg("batch write failed")
			http.Error(w, "failed to write feeds", http.StatusInternalServerError)
			return
		}
		if len(batchErr.Unwritten) == len(feeds) && batchErr.Cause != nil {
			// Nothing committed and the store is complaining: surface an outage.
			h.logger.Error().Err(err).Msg("batch write failed")
			http.Error(w, "failed to write feeds", http.StatusInternalServerError)
			return
		}
		// Committed chunks stay committed; the caller reconciles by
		// re-submitting the remainder.
		h.logger.Warn().Err(err).Msg("partial batch write")
		resp.Accepted = len(feeds) - len(batchErr.Unwritten)
		resp.Unwritten = len(batchErr.Unwritten)
	}
	writeJSON(w, resp)
}

func writeJSON(w http.ResponseWriter, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(v)
}
