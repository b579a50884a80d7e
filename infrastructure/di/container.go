package di

import (
	"pathway-engine/application/ports"
	"pathway-engine/application/services"
	appsync "pathway-engine/application/sync"
	"pathway-engine/infrastructure/config"
	"pathway-engine/infrastructure/runtime"
	"pathway-engine/interfaces/http/rest"
	"pathway-engine/pkg/auth"
	"pathway-engine/pkg/errors"
	"pathway-engine/pkg/observability"

	"go.uber.org/zap"
)

// Container holds all application dependencies
type Container struct {
	Config           *config.Config
	Logger           *zap.Logger
	SyncRecords      ports.SyncRecordRepository
	Links            ports.LinkRepository
	KnowledgeBases   ports.KnowledgeBaseRepository
	LockManager      ports.SyncLockManager
	Cache            *runtime.ResourceCache
	Runtime          ports.RuntimeClient
	Publisher        ports.EventPublisher
	StateTracker     *appsync.StateTracker
	Orchestrator     *appsync.Orchestrator
	PathwayService   *services.PathwayService
	KnowledgeService *services.KnowledgeBaseService
	ErrorHandler     *errors.ErrorHandler
	JWTValidator     *auth.JWTValidator
	Metrics          *observability.Metrics
	Router           *rest.Router
}
