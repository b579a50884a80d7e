package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pathway-engine/application/linker"
	"pathway-engine/application/ports"
	appsync "pathway-engine/application/sync"
	"pathway-engine/domain/core/aggregates"
	"pathway-engine/domain/core/entities"
	"pathway-engine/domain/core/valueobjects"
)

type memKBRepo struct {
	kbs map[string]*entities.KnowledgeBase
}

func newMemKBRepo() *memKBRepo {
	return &memKBRepo{kbs: make(map[string]*entities.KnowledgeBase)}
}

func (r *memKBRepo) Save(_ context.Context, kb *entities.KnowledgeBase) error {
	r.kbs[kb.ID().String()] = kb
	return nil
}

func (r *memKBRepo) GetByID(_ context.Context, id valueobjects.KnowledgeBaseID) (*entities.KnowledgeBase, error) {
	return r.kbs[id.String()], nil
}

func (r *memKBRepo) List(_ context.Context) ([]*entities.KnowledgeBase, error) {
	var out []*entities.KnowledgeBase
	for _, kb := range r.kbs {
		out = append(out, kb)
	}
	return out, nil
}

func (r *memKBRepo) Delete(_ context.Context, id valueobjects.KnowledgeBaseID) error {
	delete(r.kbs, id.String())
	return nil
}

type memRecords struct {
	records map[string]ports.SyncRecord
}

func newMemRecords() *memRecords {
	return &memRecords{records: make(map[string]ports.SyncRecord)}
}

func (r *memRecords) Get(_ context.Context, kind ports.ResourceKind, id string) (*ports.SyncRecord, error) {
	if rec, ok := r.records[string(kind)+"#"+id]; ok {
		return &rec, nil
	}
	return nil, nil
}

func (r *memRecords) Put(_ context.Context, record ports.SyncRecord) error {
	r.records[string(record.Kind)+"#"+record.ResourceID] = record
	return nil
}

func (r *memRecords) Delete(_ context.Context, kind ports.ResourceKind, id string) error {
	delete(r.records, string(kind)+"#"+id)
	return nil
}

type memLinks struct {
	links   map[string]map[string]bool
	orphans []ports.OrphanCandidate
}

func newMemLinks() *memLinks {
	return &memLinks{links: make(map[string]map[string]bool)}
}

func (l *memLinks) PutLink(_ context.Context, pathwayID, kbID string) error {
	if l.links[pathwayID] == nil {
		l.links[pathwayID] = make(map[string]bool)
	}
	l.links[pathwayID][kbID] = true
	return nil
}

func (l *memLinks) DeleteLink(_ context.Context, pathwayID, kbID string) error {
	delete(l.links[pathwayID], kbID)
	return nil
}

func (l *memLinks) LinksForPathway(_ context.Context, pathwayID string) ([]string, error) {
	var out []string
	for kbID := range l.links[pathwayID] {
		out = append(out, kbID)
	}
	return out, nil
}

func (l *memLinks) PathwaysForKnowledgeBase(_ context.Context, kbID string) ([]string, error) {
	var out []string
	for pathwayID, kbs := range l.links {
		if kbs[kbID] {
			out = append(out, pathwayID)
		}
	}
	return out, nil
}

func (l *memLinks) MarkOrphanCandidate(_ context.Context, c ports.OrphanCandidate) error {
	l.orphans = append(l.orphans, c)
	return nil
}

func (l *memLinks) ListOrphanCandidates(_ context.Context) ([]ports.OrphanCandidate, error) {
	return l.orphans, nil
}

func (l *memLinks) ClearOrphanCandidate(_ context.Context, kind ports.ResourceKind, id string) error {
	for i, c := range l.orphans {
		if c.Kind == kind && c.ResourceID == id {
			l.orphans = append(l.orphans[:i], l.orphans[i+1:]...)
			break
		}
	}
	return nil
}

type memRuntime struct {
	pathways   map[string]aggregates.PathwaySnapshot
	deletedKBs []string
	updates    int
}

func newMemRuntime() *memRuntime {
	return &memRuntime{pathways: make(map[string]aggregates.PathwaySnapshot)}
}

func (r *memRuntime) CreatePathway(_ context.Context, snapshot aggregates.PathwaySnapshot) (string, error) {
	id := "remote-" + snapshot.ID
	r.pathways[id] = snapshot
	return id, nil
}

func (r *memRuntime) UpdatePathway(_ context.Context, remoteID string, snapshot aggregates.PathwaySnapshot) error {
	r.pathways[remoteID] = snapshot
	r.updates++
	return nil
}

func (r *memRuntime) GetPathway(_ context.Context, remoteID string) (aggregates.PathwaySnapshot, error) {
	return r.pathways[remoteID], nil
}

func (r *memRuntime) ListPathways(context.Context) ([]ports.PathwaySummary, error) {
	var out []ports.PathwaySummary
	for id, snap := range r.pathways {
		out = append(out, ports.PathwaySummary{
			RemoteID:  id,
			Name:      snap.Name,
			NodeCount: len(snap.Nodes),
			EdgeCount: len(snap.Edges),
		})
	}
	return out, nil
}

func (r *memRuntime) CreateKnowledgeBase(_ context.Context, kb *entities.KnowledgeBase) (string, error) {
	return "remote-" + kb.ID().String(), nil
}

func (r *memRuntime) GetKnowledgeBase(_ context.Context, remoteID string) (*ports.KnowledgeBaseResource, error) {
	return &ports.KnowledgeBaseResource{RemoteID: remoteID}, nil
}

func (r *memRuntime) UpdateKnowledgeBase(context.Context, string, *entities.KnowledgeBase) error {
	return nil
}

func (r *memRuntime) DeleteKnowledgeBase(_ context.Context, remoteID string) error {
	r.deletedKBs = append(r.deletedKBs, remoteID)
	return nil
}

func (r *memRuntime) CreatePrompt(context.Context, string, string) (valueobjects.PromptID, error) {
	return valueobjects.NewPromptIDFromString("prompt-1")
}

func (r *memRuntime) GetPrompt(context.Context, valueobjects.PromptID) (string, error) {
	return "", nil
}

// buildRemotePathway uploads a two-node pathway whose start node references
// the given remote KB id, then records its sync state
func buildRemotePathway(t *testing.T, runtime *memRuntime, tracker *appsync.StateTracker, links ports.LinkRepository, localKBID, remoteKBID string) string {
	t.Helper()
	ctx := context.Background()

	pathway, err := aggregates.NewPathway("Cascade Test", "")
	require.NoError(t, err)
	start, err := entities.NewStartNode(valueobjects.NewNodeID(1), "Greeting", "Hi", valueobjects.DefaultModelOptions())
	require.NoError(t, err)
	end, err := entities.NewEndCallNode(valueobjects.NewNodeID(2), "End Call", "Bye")
	require.NoError(t, err)
	require.NoError(t, pathway.AddNode(start))
	require.NoError(t, pathway.AddNode(end))
	_, err = pathway.Connect(valueobjects.NewEdgeID(1), start.ID(), end.ID(), "Continue", "")
	require.NoError(t, err)

	kbID, err := valueobjects.NewKnowledgeBaseIDFromString(remoteKBID)
	require.NoError(t, err)
	start.ReplaceTools([]valueobjects.KnowledgeBaseID{kbID})

	remoteID, err := runtime.CreatePathway(ctx, pathway.Snapshot())
	require.NoError(t, err)
	checksum, err := appsync.PathwayChecksum(pathway.Snapshot())
	require.NoError(t, err)
	require.NoError(t, tracker.RecordSynced(ctx, ports.ResourceKindPathway, pathway.ID().String(), remoteID, checksum))
	require.NoError(t, links.PutLink(ctx, pathway.ID().String(), localKBID))

	return pathway.ID().String()
}

func TestDeleteKnowledgeBaseDetachesEveryPathway(t *testing.T) {
	ctx := context.Background()
	kbRepo := newMemKBRepo()
	links := newMemLinks()
	runtime := newMemRuntime()
	tracker := appsync.NewStateTracker(newMemRecords(), nil)
	svc := NewKnowledgeBaseService(kbRepo, links, tracker, runtime, linker.NewKnowledgeBaseLinker(nil, nil), nil)

	kb, err := svc.Create(ctx, "Pricing", "", "the numbers", []string{"pricing"})
	require.NoError(t, err)
	localID := kb.ID().String()
	remoteKBID := "remote-" + localID
	require.NoError(t, tracker.RecordSynced(ctx, ports.ResourceKindKnowledgeBase, localID, remoteKBID, "sum"))

	pathwayA := buildRemotePathway(t, runtime, tracker, links, localID, remoteKBID)
	pathwayB := buildRemotePathway(t, runtime, tracker, links, localID, remoteKBID)

	require.NoError(t, svc.Delete(ctx, localID))

	// Both pathways were re-uploaded without the reference, nodes intact
	assert.Equal(t, 2, runtime.updates)
	for _, snap := range runtime.pathways {
		assert.Len(t, snap.Nodes, 2)
		for _, node := range snap.Nodes {
			assert.NotContains(t, node.Tools, remoteKBID)
		}
	}

	// Remote and local copies are gone, links cleared
	assert.Equal(t, []string{remoteKBID}, runtime.deletedKBs)
	assert.Empty(t, kbRepo.kbs)
	for _, pathwayID := range []string{pathwayA, pathwayB} {
		linked, err := links.LinksForPathway(ctx, pathwayID)
		require.NoError(t, err)
		assert.Empty(t, linked)
	}
}

func TestDeleteKnowledgeBaseIsIdempotentForUnsyncedKB(t *testing.T) {
	ctx := context.Background()
	kbRepo := newMemKBRepo()
	runtime := newMemRuntime()
	svc := NewKnowledgeBaseService(kbRepo, newMemLinks(), appsync.NewStateTracker(newMemRecords(), nil), runtime, linker.NewKnowledgeBaseLinker(nil, nil), nil)

	kb, err := svc.Create(ctx, "Unused", "", "content", nil)
	require.NoError(t, err)

	require.NoError(t, svc.Delete(ctx, kb.ID().String()))

	// Never synced, so the runtime is not involved
	assert.Empty(t, runtime.deletedKBs)
	assert.Empty(t, kbRepo.kbs)
}
