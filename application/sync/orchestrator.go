package sync

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"pathway-engine/application/ports"
	"pathway-engine/domain/core/aggregates"
	"pathway-engine/domain/core/entities"
	"pathway-engine/domain/events"
	pkgerrors "pathway-engine/pkg/errors"
)

// Outcome classifies how a sync finished
type Outcome string

const (
	OutcomeSynced Outcome = "synced"
	OutcomeNoOp   Outcome = "no-op"
)

// Result describes a completed sync
type Result struct {
	Outcome        Outcome  `json:"outcome"`
	PathwayID      string   `json:"pathway_id"`
	RemoteID       string   `json:"remote_id"`
	Checksum       string   `json:"checksum"`
	KnowledgeBases []string `json:"knowledge_bases,omitempty"`
}

// Orchestrator pushes a pathway and its knowledge bases to the remote
// runtime in dependency order: knowledge bases first, then the pathway
// that references them. Failures after partial progress surface as a
// partial sync error carrying the succeeded and failed resource ids.
type Orchestrator struct {
	runtime   ports.RuntimeClient
	tracker   *StateTracker
	links     ports.LinkRepository
	publisher ports.EventPublisher
	lockMgr   ports.SyncLockManager
	lockTTL   time.Duration
	ownerID   string
	logger    *zap.Logger
}

// NewOrchestrator creates a sync orchestrator
func NewOrchestrator(
	runtime ports.RuntimeClient,
	tracker *StateTracker,
	links ports.LinkRepository,
	publisher ports.EventPublisher,
	logger *zap.Logger,
) *Orchestrator {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Orchestrator{
		runtime:   runtime,
		tracker:   tracker,
		links:     links,
		publisher: publisher,
		lockTTL:   2 * time.Minute,
		ownerID:   uuid.New().String(),
		logger:    logger,
	}
}

// UseLockManager enables cross-process sync serialization. Without one,
// only in-process callers are serialized.
func (o *Orchestrator) UseLockManager(manager ports.SyncLockManager) {
	o.lockMgr = manager
}

// SyncPathway pushes the pathway and the knowledge bases it references.
// An unchanged pathway checksum short-circuits into a no-op success with
// zero network calls.
func (o *Orchestrator) SyncPathway(ctx context.Context, pathway *aggregates.Pathway, kbs []*entities.KnowledgeBase) (*Result, error) {
	snapshot := pathway.Snapshot()
	checksum, err := PathwayChecksum(snapshot)
	if err != nil {
		return nil, err
	}

	if o.lockMgr != nil {
		acquired, err := o.lockMgr.Acquire(ctx, ports.ResourceKindPathway, snapshot.ID, o.ownerID, o.lockTTL)
		if err != nil {
			return nil, err
		}
		if !acquired {
			return nil, pkgerrors.NewConflictError("sync already in progress for pathway " + snapshot.ID)
		}
		defer func() {
			if err := o.lockMgr.Release(ctx, ports.ResourceKindPathway, snapshot.ID, o.ownerID); err != nil {
				o.logger.Warn("failed to release sync lock", zap.String("pathwayID", snapshot.ID), zap.Error(err))
			}
		}()
	}

	upToDate, remoteID, err := o.tracker.IsUpToDate(ctx, ports.ResourceKindPathway, snapshot.ID, checksum)
	if err != nil {
		return nil, err
	}
	if upToDate {
		o.logger.Info("pathway unchanged, skipping sync",
			zap.String("pathwayID", snapshot.ID),
			zap.String("checksum", checksum),
		)
		o.publish(ctx, events.PathwaySynced{
			BaseEvent: baseEvent(snapshot.ID, "pathway.synced"),
			PathwayID: snapshot.ID,
			RemoteID:  remoteID,
			Checksum:  checksum,
			NoOp:      true,
		})
		return &Result{Outcome: OutcomeNoOp, PathwayID: snapshot.ID, RemoteID: remoteID, Checksum: checksum}, nil
	}

	var (
		succeeded   []string
		kbRemoteIDs = make(map[string]string, len(kbs))
	)

	plan := NewPlan("pathway-sync", o.logger)
	for _, kb := range kbs {
		kb := kb
		createdThisRun := false
		plan.AddStep(Step{
			Name: "sync-kb-" + kb.ID().String(),
			Run: func(ctx context.Context) error {
				remote, created, err := o.syncKnowledgeBase(ctx, kb)
				createdThisRun = created
				if err != nil {
					return err
				}
				kbRemoteIDs[kb.ID().String()] = remote
				succeeded = append(succeeded, kb.ID().String())
				return nil
			},
			OnAbort: func(ctx context.Context) {
				// Never roll back: other pathways may reference this KB.
				// Newly created ones are flagged for manual reconciliation.
				if !createdThisRun {
					return
				}
				if err := o.links.MarkOrphanCandidate(ctx, ports.OrphanCandidate{
					ResourceID: kb.ID().String(),
					Kind:       ports.ResourceKindKnowledgeBase,
					Reason:     "created during aborted pathway sync",
					MarkedAt:   time.Now(),
				}); err != nil {
					o.logger.Error("failed to record orphan candidate",
						zap.String("kbID", kb.ID().String()),
						zap.Error(err),
					)
				}
			},
		})
	}

	plan.AddStep(Step{
		Name: "sync-pathway",
		Run: func(ctx context.Context) error {
			wireSnapshot := rewriteToolIDs(snapshot, kbRemoteIDs)
			var err error
			if remoteID == "" {
				remoteID, err = o.runtime.CreatePathway(ctx, wireSnapshot)
			} else {
				err = o.runtime.UpdatePathway(ctx, remoteID, wireSnapshot)
			}
			if err != nil {
				return err
			}
			return o.tracker.RecordSynced(ctx, ports.ResourceKindPathway, snapshot.ID, remoteID, checksum)
		},
	})

	if err := plan.Execute(ctx); err != nil {
		failed := o.failedIDs(snapshot.ID, kbs, succeeded)
		o.publish(ctx, events.PathwaySyncFailed{
			BaseEvent: baseEvent(snapshot.ID, "pathway.sync_failed"),
			PathwayID: snapshot.ID,
			Reason:    err.Error(),
			Succeeded: succeeded,
			Failed:    failed,
		})
		if len(succeeded) > 0 {
			return nil, pkgerrors.NewPartialSyncError(succeeded, failed, err)
		}
		return nil, err
	}

	if err := o.reconcileLinks(ctx, snapshot); err != nil {
		// Remote state is consistent; only local bookkeeping lagged
		o.logger.Error("link reconciliation failed", zap.String("pathwayID", snapshot.ID), zap.Error(err))
	}

	o.publish(ctx, events.PathwaySynced{
		BaseEvent: baseEvent(snapshot.ID, "pathway.synced"),
		PathwayID: snapshot.ID,
		RemoteID:  remoteID,
		Checksum:  checksum,
	})

	return &Result{
		Outcome:        OutcomeSynced,
		PathwayID:      snapshot.ID,
		RemoteID:       remoteID,
		Checksum:       checksum,
		KnowledgeBases: succeeded,
	}, nil
}

// syncKnowledgeBase pushes one knowledge base if its content changed.
// Returns the remote id and whether the resource was created on this call.
func (o *Orchestrator) syncKnowledgeBase(ctx context.Context, kb *entities.KnowledgeBase) (string, bool, error) {
	checksum := KnowledgeBaseChecksum(kb)
	upToDate, remoteID, err := o.tracker.IsUpToDate(ctx, ports.ResourceKindKnowledgeBase, kb.ID().String(), checksum)
	if err != nil {
		return "", false, err
	}
	if upToDate {
		return remoteID, false, nil
	}

	created := false
	if remoteID == "" {
		remoteID, err = o.runtime.CreateKnowledgeBase(ctx, kb)
		created = err == nil
	} else {
		err = o.runtime.UpdateKnowledgeBase(ctx, remoteID, kb)
	}
	if err != nil {
		return "", false, err
	}

	// The resource exists remotely from here on; report created even when
	// recording the sync fails, so the abort path can orphan-mark it
	if err := o.tracker.RecordSynced(ctx, ports.ResourceKindKnowledgeBase, kb.ID().String(), remoteID, checksum); err != nil {
		return remoteID, created, err
	}
	o.publish(ctx, events.KnowledgeBaseSynced{
		BaseEvent:       baseEvent(kb.ID().String(), "kb.synced"),
		KnowledgeBaseID: kb.ID().String(),
		Checksum:        checksum,
	})
	return remoteID, created, nil
}

// reconcileLinks mirrors the pathway's current tool references into the
// link table, adding new links and dropping stale ones
func (o *Orchestrator) reconcileLinks(ctx context.Context, snapshot aggregates.PathwaySnapshot) error {
	referenced := make(map[string]bool)
	for _, node := range snapshot.Nodes {
		for _, tool := range node.Tools {
			referenced[tool] = true
		}
	}

	existing, err := o.links.LinksForPathway(ctx, snapshot.ID)
	if err != nil {
		return err
	}
	existingSet := make(map[string]bool, len(existing))
	for _, kbID := range existing {
		existingSet[kbID] = true
		if !referenced[kbID] {
			if err := o.links.DeleteLink(ctx, snapshot.ID, kbID); err != nil {
				return err
			}
		}
	}
	for kbID := range referenced {
		if !existingSet[kbID] {
			if err := o.links.PutLink(ctx, snapshot.ID, kbID); err != nil {
				return err
			}
		}
	}
	return nil
}

func (o *Orchestrator) failedIDs(pathwayID string, kbs []*entities.KnowledgeBase, succeeded []string) []string {
	succeededSet := make(map[string]bool, len(succeeded))
	for _, id := range succeeded {
		succeededSet[id] = true
	}
	var failed []string
	for _, kb := range kbs {
		if !succeededSet[kb.ID().String()] {
			failed = append(failed, kb.ID().String())
		}
	}
	return append(failed, pathwayID)
}

func (o *Orchestrator) publish(ctx context.Context, event events.DomainEvent) {
	if o.publisher == nil {
		return
	}
	if err := o.publisher.Publish(ctx, event); err != nil {
		o.logger.Warn("event publish failed",
			zap.String("eventType", event.GetEventType()),
			zap.Error(err),
		)
	}
}

// rewriteToolIDs swaps local knowledge base ids for their remote
// counterparts in a copy of the snapshot. Ids without a mapping pass
// through unchanged.
func rewriteToolIDs(snapshot aggregates.PathwaySnapshot, remoteIDs map[string]string) aggregates.PathwaySnapshot {
	if len(remoteIDs) == 0 {
		return snapshot
	}
	out := snapshot
	out.Nodes = make([]aggregates.NodeSnapshot, len(snapshot.Nodes))
	copy(out.Nodes, snapshot.Nodes)
	for i, node := range out.Nodes {
		if len(node.Tools) == 0 {
			continue
		}
		tools := make([]string, len(node.Tools))
		for j, tool := range node.Tools {
			if remote, ok := remoteIDs[tool]; ok {
				tools[j] = remote
			} else {
				tools[j] = tool
			}
		}
		out.Nodes[i].Tools = tools
	}
	return out
}

func baseEvent(aggregateID, eventType string) events.BaseEvent {
	return events.BaseEvent{
		AggregateID: aggregateID,
		EventType:   eventType,
		Timestamp:   time.Now(),
		Version:     1,
	}
}
