package services

import (
	"context"

	"go.uber.org/zap"

	"pathway-engine/application/linker"
	"pathway-engine/application/ports"
	appsync "pathway-engine/application/sync"
	"pathway-engine/domain/core/aggregates"
	"pathway-engine/domain/core/entities"
	"pathway-engine/domain/core/valueobjects"
	pkgerrors "pathway-engine/pkg/errors"
)

// KnowledgeBaseService manages knowledge bases locally and keeps remote
// pathways consistent when one is removed: every pathway referencing the
// knowledge base is detached and re-uploaded before the remote resource is
// deleted.
type KnowledgeBaseService struct {
	kbRepo  ports.KnowledgeBaseRepository
	links   ports.LinkRepository
	tracker *appsync.StateTracker
	runtime ports.RuntimeClient
	linker  *linker.KnowledgeBaseLinker
	logger  *zap.Logger
}

// NewKnowledgeBaseService creates a knowledge base service
func NewKnowledgeBaseService(
	kbRepo ports.KnowledgeBaseRepository,
	links ports.LinkRepository,
	tracker *appsync.StateTracker,
	runtime ports.RuntimeClient,
	kbLinker *linker.KnowledgeBaseLinker,
	logger *zap.Logger,
) *KnowledgeBaseService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &KnowledgeBaseService{
		kbRepo:  kbRepo,
		links:   links,
		tracker: tracker,
		runtime: runtime,
		linker:  kbLinker,
		logger:  logger,
	}
}

// Create stores a new knowledge base locally. It reaches the runtime on the
// first pathway sync that references it.
func (s *KnowledgeBaseService) Create(ctx context.Context, name, description, content string, tags []string) (*entities.KnowledgeBase, error) {
	kb, err := entities.NewKnowledgeBase(name, description, content, tags)
	if err != nil {
		return nil, err
	}
	if err := s.kbRepo.Save(ctx, kb); err != nil {
		return nil, pkgerrors.Wrap(err, "save knowledge base")
	}
	s.logger.Info("knowledge base created",
		zap.String("kbID", kb.ID().String()),
		zap.String("name", kb.Name()),
	)
	return kb, nil
}

// Update replaces a knowledge base's content and tags. The changed checksum
// makes the next sync of any referencing pathway push the new content.
func (s *KnowledgeBaseService) Update(ctx context.Context, id string, content string, tags []string) (*entities.KnowledgeBase, error) {
	kbID, err := valueobjects.NewKnowledgeBaseIDFromString(id)
	if err != nil {
		return nil, pkgerrors.NewValidationError(err.Error())
	}
	kb, err := s.kbRepo.GetByID(ctx, kbID)
	if err != nil {
		return nil, err
	}
	if kb == nil {
		return nil, pkgerrors.NewNotFoundError("knowledge base")
	}

	if content != "" {
		if err := kb.UpdateContent(content); err != nil {
			return nil, err
		}
	}
	if tags != nil {
		kb.UpdateTags(tags)
	}
	if err := s.kbRepo.Save(ctx, kb); err != nil {
		return nil, pkgerrors.Wrap(err, "save knowledge base")
	}
	return kb, nil
}

// Get retrieves a knowledge base by id
func (s *KnowledgeBaseService) Get(ctx context.Context, id string) (*entities.KnowledgeBase, error) {
	kbID, err := valueobjects.NewKnowledgeBaseIDFromString(id)
	if err != nil {
		return nil, pkgerrors.NewValidationError(err.Error())
	}
	kb, err := s.kbRepo.GetByID(ctx, kbID)
	if err != nil {
		return nil, err
	}
	if kb == nil {
		return nil, pkgerrors.NewNotFoundError("knowledge base")
	}
	return kb, nil
}

// GetRemote fetches the runtime's copy of a knowledge base, useful for
// checking what the voice agent actually serves
func (s *KnowledgeBaseService) GetRemote(ctx context.Context, id string) (*ports.KnowledgeBaseResource, error) {
	record, err := s.tracker.Lookup(ctx, ports.ResourceKindKnowledgeBase, id)
	if err != nil {
		return nil, err
	}
	if record == nil {
		return nil, pkgerrors.NewNotFoundError("remote knowledge base")
	}
	return s.runtime.GetKnowledgeBase(ctx, record.RemoteID)
}

// List retrieves all locally known knowledge bases
func (s *KnowledgeBaseService) List(ctx context.Context) ([]*entities.KnowledgeBase, error) {
	return s.kbRepo.List(ctx)
}

// Delete removes a knowledge base after detaching it from every pathway
// that references it. Each affected pathway is fetched from the runtime,
// stripped of the reference and re-uploaded; nodes are never removed, only
// their tool lists shrink. The remote knowledge base is deleted last, so a
// failure partway through never leaves a pathway pointing at a deleted
// resource.
func (s *KnowledgeBaseService) Delete(ctx context.Context, id string) error {
	kbID, err := valueobjects.NewKnowledgeBaseIDFromString(id)
	if err != nil {
		return pkgerrors.NewValidationError(err.Error())
	}

	kbRecord, err := s.tracker.Lookup(ctx, ports.ResourceKindKnowledgeBase, id)
	if err != nil {
		return err
	}

	pathwayIDs, err := s.links.PathwaysForKnowledgeBase(ctx, id)
	if err != nil {
		return pkgerrors.Wrap(err, "list pathways for knowledge base")
	}

	for _, pathwayID := range pathwayIDs {
		if err := s.detachFromPathway(ctx, pathwayID, id, kbID, kbRecord); err != nil {
			return pkgerrors.Wrapf(err, "detach knowledge base from pathway %s", pathwayID)
		}
	}

	if kbRecord != nil {
		if err := s.runtime.DeleteKnowledgeBase(ctx, kbRecord.RemoteID); err != nil {
			return err
		}
		if err := s.tracker.Forget(ctx, ports.ResourceKindKnowledgeBase, id); err != nil {
			return err
		}
	}
	if err := s.links.ClearOrphanCandidate(ctx, ports.ResourceKindKnowledgeBase, id); err != nil {
		s.logger.Warn("failed to clear orphan candidate", zap.String("kbID", id), zap.Error(err))
	}
	if err := s.kbRepo.Delete(ctx, kbID); err != nil {
		return pkgerrors.Wrap(err, "delete knowledge base")
	}

	s.logger.Info("knowledge base deleted",
		zap.String("kbID", id),
		zap.Int("pathwaysDetached", len(pathwayIDs)),
	)
	return nil
}

// detachFromPathway strips one pathway's references to the knowledge base
// and re-uploads it. Remote pathways carry runtime-assigned knowledge base
// ids, so the detach targets the remote id when one exists.
func (s *KnowledgeBaseService) detachFromPathway(
	ctx context.Context,
	pathwayID, localKBID string,
	kbID valueobjects.KnowledgeBaseID,
	kbRecord *ports.SyncRecord,
) error {
	record, err := s.tracker.Lookup(ctx, ports.ResourceKindPathway, pathwayID)
	if err != nil {
		return err
	}
	if record == nil {
		// Never synced; only the link table entry needs cleanup
		return s.links.DeleteLink(ctx, pathwayID, localKBID)
	}

	snapshot, err := s.runtime.GetPathway(ctx, record.RemoteID)
	if err != nil {
		return err
	}
	pathway, err := aggregates.FromSnapshot(snapshot)
	if err != nil {
		return pkgerrors.Wrap(err, "rebuild pathway from remote form")
	}

	touched := s.linker.UnlinkKnowledgeBase(pathway, kbID)
	if kbRecord != nil {
		remoteKBID, err := valueobjects.NewKnowledgeBaseIDFromString(kbRecord.RemoteID)
		if err == nil {
			touched += s.linker.UnlinkKnowledgeBase(pathway, remoteKBID)
		}
	}

	if touched > 0 {
		if err := s.runtime.UpdatePathway(ctx, record.RemoteID, pathway.Snapshot()); err != nil {
			return err
		}
		// The remote content diverged from the last recorded checksum;
		// dropping the record forces the next local sync to push
		if err := s.tracker.Forget(ctx, ports.ResourceKindPathway, pathwayID); err != nil {
			return err
		}
	}

	return s.links.DeleteLink(ctx, pathwayID, localKBID)
}
