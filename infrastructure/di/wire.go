//go:build wireinject
// +build wireinject

package di

import (
	"context"

	"github.com/google/wire"

	"pathway-engine/application/ports"
	"pathway-engine/infrastructure/config"
	"pathway-engine/infrastructure/runtime"
)

// SuperSet is the main provider set containing all providers
var SuperSet = wire.NewSet(
	ProvideLogger,
	ProvideAWSConfig,
	ProvideDynamoDBClient,
	ProvideEventBridgeClient,
	ProvideCloudWatchClient,
	ProvideDomainConfig,
	ProvideMetrics,
	ProvideSyncRecordRepository,
	ProvideLinkRepository,
	ProvideKnowledgeBaseRepository,
	ProvideSyncLockManager,
	ProvideResourceCache,
	wire.Bind(new(ports.Cache), new(*runtime.ResourceCache)),
	ProvideRuntimeClient,
	ProvideEventPublisher,
	ProvideStateTracker,
	ProvideOrchestrator,
	ProvideGraphBuilder,
	ProvidePathwayValidator,
	ProvideKnowledgeBaseLinker,
	ProvidePathwayService,
	ProvideKnowledgeBaseService,
	ProvideErrorHandler,
	ProvideJWTValidator,
	ProvideRouter,
	wire.Struct(new(Container), "*"),
)

// InitializeContainer creates a fully wired container
func InitializeContainer(ctx context.Context, cfg *config.Config) (*Container, error) {
	wire.Build(SuperSet)
	return nil, nil // Wire will replace this
}
