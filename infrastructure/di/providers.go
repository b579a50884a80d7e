package di

import (
	"context"
	"time"

	"pathway-engine/application/builder"
	"pathway-engine/application/linker"
	"pathway-engine/application/ports"
	"pathway-engine/application/services"
	appsync "pathway-engine/application/sync"
	domainconfig "pathway-engine/domain/config"
	"pathway-engine/domain/core/validators"
	"pathway-engine/infrastructure/config"
	"pathway-engine/infrastructure/messaging/eventbridge"
	dynamorepo "pathway-engine/infrastructure/persistence/dynamodb"
	"pathway-engine/infrastructure/runtime"
	"pathway-engine/interfaces/http/rest"
	"pathway-engine/interfaces/http/rest/handlers"
	"pathway-engine/pkg/auth"
	"pathway-engine/pkg/errors"
	"pathway-engine/pkg/observability"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	awscloudwatch "github.com/aws/aws-sdk-go-v2/service/cloudwatch"
	awsdynamodb "github.com/aws/aws-sdk-go-v2/service/dynamodb"
	awseventbridge "github.com/aws/aws-sdk-go-v2/service/eventbridge"
	"go.uber.org/zap"
)

// ProvideLogger creates a new logger instance
func ProvideLogger(cfg *config.Config) (*zap.Logger, error) {
	if cfg.IsProduction() {
		return zap.NewProduction()
	}
	return zap.NewDevelopment()
}

// ProvideAWSConfig creates AWS configuration
func ProvideAWSConfig(ctx context.Context, cfg *config.Config) (aws.Config, error) {
	return awsconfig.LoadDefaultConfig(ctx,
		awsconfig.WithRegion(cfg.AWSRegion),
	)
}

// ProvideDynamoDBClient creates a DynamoDB client
func ProvideDynamoDBClient(awsCfg aws.Config) *awsdynamodb.Client {
	return awsdynamodb.NewFromConfig(awsCfg)
}

// ProvideEventBridgeClient creates an EventBridge client
func ProvideEventBridgeClient(awsCfg aws.Config) *awseventbridge.Client {
	return awseventbridge.NewFromConfig(awsCfg)
}

// ProvideCloudWatchClient creates a CloudWatch client
func ProvideCloudWatchClient(awsCfg aws.Config) *awscloudwatch.Client {
	return awscloudwatch.NewFromConfig(awsCfg)
}

// ProvideDomainConfig loads the environment-specific business rules
func ProvideDomainConfig(cfg *config.Config) *domainconfig.DomainConfig {
	return domainconfig.LoadDomainConfig(cfg.Environment)
}

// ProvideMetrics creates a metrics recorder when metrics are enabled
func ProvideMetrics(client *awscloudwatch.Client, cfg *config.Config, logger *zap.Logger) *observability.Metrics {
	if !cfg.EnableMetrics {
		return nil
	}
	return observability.NewMetrics(client, cfg.MetricsNamespace, logger)
}

// ProvideSyncRecordRepository creates a sync record repository
func ProvideSyncRecordRepository(client *awsdynamodb.Client, cfg *config.Config, logger *zap.Logger) ports.SyncRecordRepository {
	return dynamorepo.NewSyncRecordRepository(client, cfg.DynamoDBTable, logger)
}

// ProvideLinkRepository creates a pathway/knowledge-base link repository
func ProvideLinkRepository(client *awsdynamodb.Client, cfg *config.Config, logger *zap.Logger) ports.LinkRepository {
	return dynamorepo.NewLinkRepository(client, cfg.DynamoDBTable, logger)
}

// ProvideKnowledgeBaseRepository creates a knowledge base repository
func ProvideKnowledgeBaseRepository(client *awsdynamodb.Client, cfg *config.Config, logger *zap.Logger) ports.KnowledgeBaseRepository {
	return dynamorepo.NewKnowledgeBaseRepository(client, cfg.DynamoDBTable, logger)
}

// ProvideSyncLockManager creates the cross-process sync lock
func ProvideSyncLockManager(client *awsdynamodb.Client, cfg *config.Config, logger *zap.Logger) ports.SyncLockManager {
	return dynamorepo.NewSyncLockManager(client, cfg.DynamoDBTable, logger)
}

// ProvideResourceCache creates the remote resource cache. The concrete type
// is exposed so the process owner can stop its sweeper on shutdown.
func ProvideResourceCache() *runtime.ResourceCache {
	return runtime.NewResourceCache()
}

// ProvideRuntimeClient creates the remote runtime client
func ProvideRuntimeClient(cfg *config.Config, cache ports.Cache, logger *zap.Logger) ports.RuntimeClient {
	clientCfg := runtime.DefaultClientConfig()
	clientCfg.BaseURL = cfg.RuntimeBaseURL
	clientCfg.APIKey = cfg.RuntimeAPIKey
	clientCfg.RequestTimeout = cfg.RuntimeTimeout
	clientCfg.CacheTTL = cfg.RuntimeCacheTTL
	clientCfg.RateLimit = cfg.RuntimeRateLimit
	clientCfg.RateWindow = cfg.RuntimeRateWindow
	clientCfg.MaxWaiting = cfg.RuntimeMaxWaiting
	clientCfg.Retry = runtime.RetryPolicy{
		MaxAttempts: cfg.RuntimeRetryAttempts,
		BaseDelay:   cfg.RuntimeRetryBaseDelay,
		MaxDelay:    cfg.RuntimeRetryMaxDelay,
	}
	return runtime.NewClient(clientCfg, cache, logger)
}

// ProvideEventPublisher creates the domain event publisher
func ProvideEventPublisher(client *awseventbridge.Client, cfg *config.Config, logger *zap.Logger) ports.EventPublisher {
	return eventbridge.NewEventBridgePublisher(client, cfg.EventBusName, logger)
}

// ProvideStateTracker creates the sync state tracker
func ProvideStateTracker(records ports.SyncRecordRepository, logger *zap.Logger) *appsync.StateTracker {
	return appsync.NewStateTracker(records, logger)
}

// ProvideOrchestrator creates the sync orchestrator
func ProvideOrchestrator(
	runtimeClient ports.RuntimeClient,
	tracker *appsync.StateTracker,
	links ports.LinkRepository,
	publisher ports.EventPublisher,
	lockMgr ports.SyncLockManager,
	cfg *config.Config,
	logger *zap.Logger,
) *appsync.Orchestrator {
	orchestrator := appsync.NewOrchestrator(runtimeClient, tracker, links, publisher, logger)
	if cfg.EnableSyncLock {
		orchestrator.UseLockManager(lockMgr)
	}
	return orchestrator
}

// ProvideGraphBuilder creates the pathway graph builder
func ProvideGraphBuilder(domainCfg *domainconfig.DomainConfig, logger *zap.Logger) *builder.GraphBuilder {
	return builder.NewGraphBuilder(domainCfg, logger)
}

// ProvidePathwayValidator creates the pathway validator
func ProvidePathwayValidator(domainCfg *domainconfig.DomainConfig) *validators.PathwayValidator {
	return validators.NewPathwayValidator(domainCfg)
}

// ProvideKnowledgeBaseLinker creates the knowledge base linker
func ProvideKnowledgeBaseLinker(domainCfg *domainconfig.DomainConfig, logger *zap.Logger) *linker.KnowledgeBaseLinker {
	return linker.NewKnowledgeBaseLinker(domainCfg, logger)
}

// ProvidePathwayService creates the pathway application service
func ProvidePathwayService(
	graphBuilder *builder.GraphBuilder,
	validator *validators.PathwayValidator,
	kbLinker *linker.KnowledgeBaseLinker,
	orchestrator *appsync.Orchestrator,
	runtimeClient ports.RuntimeClient,
	kbRepo ports.KnowledgeBaseRepository,
	logger *zap.Logger,
) *services.PathwayService {
	return services.NewPathwayService(graphBuilder, validator, kbLinker, orchestrator, runtimeClient, kbRepo, logger)
}

// ProvideKnowledgeBaseService creates the knowledge base application service
func ProvideKnowledgeBaseService(
	kbRepo ports.KnowledgeBaseRepository,
	links ports.LinkRepository,
	tracker *appsync.StateTracker,
	runtimeClient ports.RuntimeClient,
	kbLinker *linker.KnowledgeBaseLinker,
	logger *zap.Logger,
) *services.KnowledgeBaseService {
	return services.NewKnowledgeBaseService(kbRepo, links, tracker, runtimeClient, kbLinker, logger)
}

// ProvideErrorHandler creates the HTTP error handler
func ProvideErrorHandler(cfg *config.Config, logger *zap.Logger) *errors.ErrorHandler {
	return errors.NewErrorHandler(logger, cfg.IsDevelopment())
}

// ProvideJWTValidator creates the bearer token validator
func ProvideJWTValidator(cfg *config.Config) (*auth.JWTValidator, error) {
	secret := cfg.JWTSecret
	if secret == "" && cfg.IsDevelopment() {
		secret = "development-secret-change-in-production"
	}
	return auth.NewJWTValidator(auth.JWTConfig{
		SigningMethod: "HS256",
		SecretKey:     secret,
		Issuer:        cfg.JWTIssuer,
	})
}

// ProvideRouter creates the HTTP router
func ProvideRouter(
	pathwayService *services.PathwayService,
	kbService *services.KnowledgeBaseService,
	links ports.LinkRepository,
	errorHandler *errors.ErrorHandler,
	validator *auth.JWTValidator,
	metrics *observability.Metrics,
	cfg *config.Config,
	logger *zap.Logger,
) *rest.Router {
	pathwayHandler := handlers.NewPathwayHandler(pathwayService, errorHandler, logger)
	kbHandler := handlers.NewKnowledgeBaseHandler(kbService, errorHandler, logger)
	syncHandler := handlers.NewSyncHandler(links, errorHandler, logger)
	return rest.NewRouter(pathwayHandler, kbHandler, syncHandler, errorHandler, validator, metrics, cfg.EnableCORS, logger)
}

// MetricsFlusher periodically pushes buffered metrics. It returns a stop
// function; a nil metrics recorder yields a no-op.
func MetricsFlusher(metrics *observability.Metrics, logger *zap.Logger) func() {
	if metrics == nil {
		return func() {}
	}
	done := make(chan struct{})
	go func() {
		ticker := time.NewTicker(time.Minute)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
				if err := metrics.Flush(ctx); err != nil {
					logger.Warn("metrics flush failed", zap.Error(err))
				}
				cancel()
			case <-done:
				return
			}
		}
	}()
	return func() { close(done) }
}
