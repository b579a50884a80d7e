package services

import (
	"context"

	"go.uber.org/zap"

	"pathway-engine/application/builder"
	"pathway-engine/application/linker"
	"pathway-engine/application/ports"
	appsync "pathway-engine/application/sync"
	"pathway-engine/domain/core/aggregates"
	"pathway-engine/domain/core/entities"
	"pathway-engine/domain/core/validators"
	pkgerrors "pathway-engine/pkg/errors"
)

// PathwayService drives the full pipeline from analysis document to remote
// pathway: build, auto-link, validate, sync. Invalid pathways never reach
// the runtime.
type PathwayService struct {
	builder   *builder.GraphBuilder
	validator *validators.PathwayValidator
	linker    *linker.KnowledgeBaseLinker
	syncer    *appsync.Orchestrator
	runtime   ports.RuntimeClient
	kbRepo    ports.KnowledgeBaseRepository
	logger    *zap.Logger
}

// NewPathwayService creates a pathway service
func NewPathwayService(
	graphBuilder *builder.GraphBuilder,
	validator *validators.PathwayValidator,
	kbLinker *linker.KnowledgeBaseLinker,
	syncer *appsync.Orchestrator,
	runtime ports.RuntimeClient,
	kbRepo ports.KnowledgeBaseRepository,
	logger *zap.Logger,
) *PathwayService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &PathwayService{
		builder:   graphBuilder,
		validator: validator,
		linker:    kbLinker,
		syncer:    syncer,
		runtime:   runtime,
		kbRepo:    kbRepo,
		logger:    logger,
	}
}

// BuildResult is the outcome of a full build-and-sync run
type BuildResult struct {
	Pathway *aggregates.Pathway
	Sync    *appsync.Result
}

// BuildAndSync converts an analysis document into a validated pathway and
// pushes it to the runtime. Knowledge bases are auto-linked by tag match
// before validation, so the validator sees the final tool references.
func (s *PathwayService) BuildAndSync(ctx context.Context, doc builder.AnalysisDocument, name string) (*BuildResult, error) {
	kbs, err := s.kbRepo.List(ctx)
	if err != nil {
		return nil, pkgerrors.Wrap(err, "list knowledge bases")
	}

	pathway, err := s.builder.Build(doc, name)
	if err != nil {
		return nil, err
	}

	if linked := s.linker.AutoLink(pathway, kbs); len(linked) > 0 {
		s.logger.Info("auto-linked knowledge bases",
			zap.String("pathwayID", pathway.ID().String()),
			zap.Int("nodes", len(linked)),
		)
	}

	registry := make(validators.RegistrySet, len(kbs))
	for _, kb := range kbs {
		registry[kb.ID().String()] = struct{}{}
	}
	if err := s.validator.Validate(pathway, registry); err != nil {
		return nil, err
	}

	result, err := s.syncer.SyncPathway(ctx, pathway, referencedKBs(pathway, kbs))
	if err != nil {
		return nil, err
	}
	return &BuildResult{Pathway: pathway, Sync: result}, nil
}

// Validate checks a pathway against the locally known knowledge bases
// without touching the runtime
func (s *PathwayService) Validate(ctx context.Context, pathway *aggregates.Pathway) error {
	kbs, err := s.kbRepo.List(ctx)
	if err != nil {
		return pkgerrors.Wrap(err, "list knowledge bases")
	}
	registry := make(validators.RegistrySet, len(kbs))
	for _, kb := range kbs {
		registry[kb.ID().String()] = struct{}{}
	}
	return s.validator.Validate(pathway, registry)
}

// ListPathways lists the pathways known to the remote runtime
func (s *PathwayService) ListPathways(ctx context.Context) ([]ports.PathwaySummary, error) {
	return s.runtime.ListPathways(ctx)
}

// GetPathwayStats fetches a remote pathway and computes its structural
// statistics
func (s *PathwayService) GetPathwayStats(ctx context.Context, remoteID string) (aggregates.Stats, error) {
	snapshot, err := s.runtime.GetPathway(ctx, remoteID)
	if err != nil {
		return aggregates.Stats{}, err
	}
	pathway, err := aggregates.FromSnapshot(snapshot)
	if err != nil {
		return aggregates.Stats{}, pkgerrors.Wrap(err, "rebuild pathway from remote form")
	}
	return pathway.Stats(), nil
}

// referencedKBs filters the known knowledge bases down to the ones the
// pathway's nodes actually reference, so a sync only touches resources the
// pathway depends on
func referencedKBs(pathway *aggregates.Pathway, kbs []*entities.KnowledgeBase) []*entities.KnowledgeBase {
	referenced := make(map[string]bool)
	for _, node := range pathway.Nodes() {
		for _, tool := range node.Tools() {
			referenced[tool.String()] = true
		}
	}

	var out []*entities.KnowledgeBase
	for _, kb := range kbs {
		if referenced[kb.ID().String()] {
			out = append(out, kb)
		}
	}
	return out
}
