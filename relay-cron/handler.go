// Package relaycron provides utilities for building scheduled Lambda functions.
package relaycron

import (
	"context"
	"encoding/json"

	"github.com/aws/aws-lambda-go/lambda"
	"github.com/rs/zerolog"

	relaycli "github.com/oddsrelay/oddsrelay/relay-cli"
)

type RunCallback func(ctx context.Context) error

type Handler struct {
	service relaycli.Service
	logger  zerolog.Logger

	runOnce RunCallback
}

func NewHandler(
	service relaycli.Service,
	runOnce RunCallback,
) *Handler {
	return &Handler{
		service: service,
		logger:  relaycli.Logger(service),
		runOnce: runOnce,
	}
}

func (h *Handler) RunOnce(ctx context.Context, _ json.RawMessage) error {
	h.logger.Info().Msg("running scheduled task")
	return h.runOnce(ctx)
}

func (h *Handler) Start() error {
	switch {
	case relaycli.CommonOpts.Console:
		return h.runOnce(context.Background())

	default:
		lambda.Start(h.RunOnce)
	}
	return nil
}
