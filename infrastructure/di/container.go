package di

import (
	"context"

	"go.uber.org/zap"

	"cmseditor/application/commands/bus"
	querybus "cmseditor/application/queries/bus"
	"cmseditor/infrastructure/config"
	"cmseditor/infrastructure/persistence/dynamodb"
	"cmseditor/interfaces/http/rest"
	"cmseditor/pkg/observability"
)

// Container holds the application entry points and the background workers
// the process has to start and stop
type Container struct {
	Config     *config.Config
	Logger     *zap.Logger
	CommandBus *bus.CommandBus
	QueryBus   *querybus.QueryBus
	Router     *rest.Router
	Metrics    *observability.Metrics
	Outbox     *dynamodb.OutboxProcessor
	Watchers   RegistryWatchers
}

// Start runs the background workers that are not started on creation
func (c *Container) Start(ctx context.Context) {
	if c.Outbox != nil {
		c.Outbox.Start(ctx)
	}
	c.Logger.Info("Container started",
		zap.String("storage", c.Config.StorageBackend),
		zap.Bool("outbox", c.Outbox != nil),
		zap.Int("watchers", len(c.Watchers)),
	)
}

// Stop halts the workers started by Start. Everything else is released by
// the cleanup function of InitializeContainer.
func (c *Container) Stop() {
	if c.Outbox != nil {
		c.Outbox.Stop()
	}
}
