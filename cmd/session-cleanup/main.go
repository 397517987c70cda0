// Package main implements the scheduled Lambda that closes abandoned edit
// sessions. An EventBridge rule invokes it, the event detail may override the
// idle threshold and batch size.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	awsevents "github.com/aws/aws-lambda-go/events"
	"github.com/aws/aws-lambda-go/lambda"
	"go.uber.org/zap"

	"cmseditor/application/commands"
	commandbus "cmseditor/application/commands/bus"
	"cmseditor/application/commands/handlers"
	"cmseditor/infrastructure/config"
	"cmseditor/infrastructure/di"
)

const schedulerUser = "scheduler"

var (
	commandBus *commandbus.CommandBus
	logger     *zap.Logger
	defaults   cleanupDetail
)

// cleanupDetail is the optional detail of the triggering event
type cleanupDetail struct {
	MaxIdle string `json:"max_idle,omitempty"`
	Limit   int    `json:"limit,omitempty"`
}

func setup() {
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	cfg.IsLambda = true

	container, _, err := di.InitializeContainer(context.Background(), cfg)
	if err != nil {
		log.Fatalf("Failed to initialize dependency container: %v", err)
	}

	commandBus = container.CommandBus
	logger = container.Logger
	defaults = cleanupDetail{MaxIdle: cfg.SessionMaxIdle.String(), Limit: 500}

	logger.Info("Session cleanup handler initialized")
}

// HandleCleanup runs one cleanup batch
func HandleCleanup(ctx context.Context, event awsevents.CloudWatchEvent) (*handlers.CleanupResult, error) {
	cmd, err := buildCommand(event.Detail, defaults)
	if err != nil {
		return nil, err
	}

	res, err := commandBus.Send(ctx, cmd)
	if err != nil {
		logger.Error("Session cleanup failed", zap.String("event_id", event.ID), zap.Error(err))
		return nil, err
	}

	result, _ := res.(*handlers.CleanupResult)
	if result != nil {
		logger.Info("Session cleanup finished",
			zap.String("event_id", event.ID),
			zap.Int("examined", result.Examined),
			zap.Int("closed", result.Closed),
			zap.Int("failed", len(result.Failed)),
		)
	}
	return result, nil
}

// buildCommand merges the event detail over the configured defaults
func buildCommand(raw json.RawMessage, def cleanupDetail) (commands.CleanupStaleSessionsCommand, error) {
	detail := def
	if len(raw) > 0 && string(raw) != "null" {
		var override cleanupDetail
		if err := json.Unmarshal(raw, &override); err != nil {
			return commands.CleanupStaleSessionsCommand{}, fmt.Errorf("invalid event detail: %w", err)
		}
		if override.MaxIdle != "" {
			detail.MaxIdle = override.MaxIdle
		}
		if override.Limit > 0 {
			detail.Limit = override.Limit
		}
	}

	maxIdle, err := time.ParseDuration(detail.MaxIdle)
	if err != nil {
		return commands.CleanupStaleSessionsCommand{}, fmt.Errorf("invalid max_idle %q: %w", detail.MaxIdle, err)
	}

	return commands.CleanupStaleSessionsCommand{
		MaxIdle:   maxIdle,
		Limit:     detail.Limit,
		RequestBy: schedulerUser,
	}, nil
}

func main() {
	setup()
	lambda.Start(HandleCleanup)
}
