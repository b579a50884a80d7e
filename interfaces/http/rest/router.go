package rest

import (
	"net/http"

	"pathway-engine/interfaces/http/rest/handlers"
	"pathway-engine/interfaces/http/rest/middleware"
	"pathway-engine/pkg/auth"
	"pathway-engine/pkg/errors"
	"pathway-engine/pkg/observability"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.uber.org/zap"
)

// Router creates and configures the HTTP router
type Router struct {
	pathways     *handlers.PathwayHandler
	knowledge    *handlers.KnowledgeBaseHandler
	sync         *handlers.SyncHandler
	errorHandler *errors.ErrorHandler
	validator    *auth.JWTValidator
	metrics      *observability.Metrics
	enableCORS   bool
	logger       *zap.Logger
}

// NewRouter creates a new router instance
func NewRouter(
	pathwayHandler *handlers.PathwayHandler,
	knowledgeBaseHandler *handlers.KnowledgeBaseHandler,
	syncHandler *handlers.SyncHandler,
	errorHandler *errors.ErrorHandler,
	validator *auth.JWTValidator,
	metrics *observability.Metrics,
	enableCORS bool,
	logger *zap.Logger,
) *Router {
	return &Router{
		pathways:     pathwayHandler,
		knowledge:    knowledgeBaseHandler,
		sync:         syncHandler,
		errorHandler: errorHandler,
		validator:    validator,
		metrics:      metrics,
		enableCORS:   enableCORS,
		logger:       logger,
	}
}

// Setup configures all routes and middleware
func (rt *Router) Setup() http.Handler {
	router := chi.NewRouter()

	// Global middleware
	router.Use(chimiddleware.RequestID)
	router.Use(chimiddleware.RealIP)
	router.Use(rt.errorHandler.Middleware)
	router.Use(middleware.Logger(rt.logger))
	router.Use(middleware.Metrics(rt.metrics))

	if rt.enableCORS {
		router.Use(cors.Handler(cors.Options{
			AllowedOrigins:   []string{"http://localhost:3000"},
			AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
			AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Request-ID"},
			ExposedHeaders:   []string{"X-Request-ID"},
			AllowCredentials: true,
			MaxAge:           300,
		}))
	}

	// Health check
	router.Get("/health", rt.healthCheck)
	router.Get("/ready", rt.readinessCheck)

	// API v1 routes
	router.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.Authenticate(middleware.AuthConfig{
			Validator: rt.validator,
			Logger:    rt.logger,
		}))

		r.Route("/pathways", func(r chi.Router) {
			r.Post("/", rt.pathways.BuildPathway)
			r.Get("/", rt.pathways.ListPathways)
			r.Get("/{remoteID}/stats", rt.pathways.GetPathwayStats)
		})

		r.Route("/knowledge-bases", func(r chi.Router) {
			r.Post("/", rt.knowledge.CreateKnowledgeBase)
			r.Get("/", rt.knowledge.ListKnowledgeBases)
			r.Get("/{kbID}", rt.knowledge.GetKnowledgeBase)
			r.Get("/{kbID}/remote", rt.knowledge.GetRemoteKnowledgeBase)
			r.Put("/{kbID}", rt.knowledge.UpdateKnowledgeBase)
			r.Delete("/{kbID}", rt.knowledge.DeleteKnowledgeBase)
		})

		r.Get("/sync/orphan-candidates", rt.sync.ListOrphanCandidates)
	})

	return router
}

// healthCheck handles health check requests
func (rt *Router) healthCheck(w http.ResponseWriter, req *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(`{"status":"healthy"}`))
}

// readinessCheck handles readiness check requests
func (rt *Router) readinessCheck(w http.ResponseWriter, req *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(`{"status":"ready"}`))
}
