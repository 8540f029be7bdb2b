// Package main is the entry point for the reading pacer Lambda function.
package main

import (
	"context"
	"encoding/json"
	"log/slog"
	"os"

	"github.com/aws/aws-lambda-go/lambda"

	"github.com/pricofy/reading-pacer/internal/config"
	"github.com/pricofy/reading-pacer/internal/handler"
	"github.com/pricofy/reading-pacer/internal/reveal"
)

type app struct {
	handler *handler.Handler
	warmer  *warmer
}

func main() {
	settings, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger := settings.Logger(os.Stdout)
	slog.SetDefault(logger)

	client, err := reveal.NewLambdaClient(context.Background())
	if err != nil {
		logger.Error("failed to create lambda client", "error", err)
		os.Exit(1)
	}

	a := &app{
		handler: handler.New(settings, logger, handler.WithInvoker(client)),
		warmer:  newWarmer(client, os.Getenv("AWS_LAMBDA_FUNCTION_NAME"), logger),
	}

	logger.Info("starting reading pacer",
		"environment", settings.Environment,
		"renderFunction", settings.RenderFunction,
	)
	lambda.Start(a.handleRequest)
}

func (a *app) handleRequest(ctx context.Context, event json.RawMessage) (interface{}, error) {
	// Warmup detection (MUST be first - before any other processing)
	if warmup, ok := IsWarmupEvent(event); ok {
		return a.warmer.Handle(ctx, warmup)
	}

	// Parse the request and delegate to the handler
	var req handler.Request
	if err := json.Unmarshal(event, &req); err != nil {
		return nil, err
	}

	return a.handler.Handle(ctx, req)
}
