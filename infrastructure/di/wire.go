//go:build wireinject
// +build wireinject

package di

import (
	"context"

	"github.com/google/wire"

	"cmseditor/infrastructure/config"
)

// SuperSet is the main provider set containing all providers
var SuperSet = wire.NewSet(
	ProvideLogger,
	ProvideDomainConfig,
	ProvideClock,
	ProvideAWSConfig,
	ProvideDynamoDBClient,
	ProvideEventBridgeClient,
	ProvideCloudWatchClient,
	ProvideResourceRepository,
	ProvideSessionStore,
	ProvideLockService,
	ProvideEventBus,
	ProvideEventOutbox,
	ProvideEventPublisher,
	ProvideOutboxProcessor,
	ProvideFormDB,
	ProvideFormSubmissionRepository,
	ProvideWorkflowRepository,
	ProvideMailer,
	ProvideMailDispatcher,
	ProvideCache,
	ProvideSelectionCache,
	ProvideEditorRegistry,
	ProvideSchemaRegistry,
	ProvideRegistryWatchers,
	ProvideMetrics,
	ProvideTracer,
	ProvideHookManager,
	ProvideTempFileManager,
	ProvideCommitSaga,
	ProvideEditorService,
	ProvideCommandBus,
	ProvideQueryBus,
	ProvideErrorHandler,
	ProvideJWTValidator,
	ProvideFormRateLimiter,
	ProvideReadinessChecks,
	ProvideRouter,
	wire.Struct(new(Container), "*"),
)

// InitializeContainer creates a fully wired container. The cleanup function
// releases everything in reverse order of creation.
func InitializeContainer(ctx context.Context, cfg *config.Config) (*Container, func(), error) {
	wire.Build(SuperSet)
	return nil, nil, nil // Wire will replace this
}
