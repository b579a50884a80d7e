package sync

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pathway-engine/application/ports"
	"pathway-engine/domain/core/aggregates"
	"pathway-engine/domain/core/entities"
	"pathway-engine/domain/core/valueobjects"
	"pathway-engine/domain/events"
	pkgerrors "pathway-engine/pkg/errors"
)

// In-memory fakes

type fakeRecords struct {
	mu       sync.Mutex
	records  map[string]ports.SyncRecord
	putKBErr error
}

func newFakeRecords() *fakeRecords {
	return &fakeRecords{records: make(map[string]ports.SyncRecord)}
}

func (f *fakeRecords) key(kind ports.ResourceKind, id string) string {
	return string(kind) + "#" + id
}

func (f *fakeRecords) Get(_ context.Context, kind ports.ResourceKind, id string) (*ports.SyncRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if r, ok := f.records[f.key(kind, id)]; ok {
		return &r, nil
	}
	return nil, nil
}

func (f *fakeRecords) Put(_ context.Context, record ports.SyncRecord) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.putKBErr != nil && record.Kind == ports.ResourceKindKnowledgeBase {
		return f.putKBErr
	}
	f.records[f.key(record.Kind, record.ResourceID)] = record
	return nil
}

func (f *fakeRecords) Delete(_ context.Context, kind ports.ResourceKind, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.records, f.key(kind, id))
	return nil
}

type fakeLinks struct {
	mu      sync.Mutex
	links   map[string]map[string]bool
	orphans []ports.OrphanCandidate
}

func newFakeLinks() *fakeLinks {
	return &fakeLinks{links: make(map[string]map[string]bool)}
}

func (f *fakeLinks) PutLink(_ context.Context, pathwayID, kbID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.links[pathwayID] == nil {
		f.links[pathwayID] = make(map[string]bool)
	}
	f.links[pathwayID][kbID] = true
	return nil
}

func (f *fakeLinks) DeleteLink(_ context.Context, pathwayID, kbID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.links[pathwayID], kbID)
	return nil
}

func (f *fakeLinks) LinksForPathway(_ context.Context, pathwayID string) ([]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []string
	for kbID := range f.links[pathwayID] {
		out = append(out, kbID)
	}
	return out, nil
}

func (f *fakeLinks) PathwaysForKnowledgeBase(_ context.Context, kbID string) ([]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []string
	for pathwayID, kbs := range f.links {
		if kbs[kbID] {
			out = append(out, pathwayID)
		}
	}
	return out, nil
}

func (f *fakeLinks) MarkOrphanCandidate(_ context.Context, candidate ports.OrphanCandidate) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.orphans = append(f.orphans, candidate)
	return nil
}

func (f *fakeLinks) ListOrphanCandidates(_ context.Context) ([]ports.OrphanCandidate, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]ports.OrphanCandidate(nil), f.orphans...), nil
}

func (f *fakeLinks) ClearOrphanCandidate(_ context.Context, kind ports.ResourceKind, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i, c := range f.orphans {
		if c.Kind == kind && c.ResourceID == id {
			f.orphans = append(f.orphans[:i], f.orphans[i+1:]...)
			return nil
		}
	}
	return nil
}

type fakeRuntime struct {
	mu             sync.Mutex
	calls          []string
	pathwayErr     error
	kbErr          error
	createdKBs     int
	pathways       map[string]aggregates.PathwaySnapshot
	lastSnapshot   aggregates.PathwaySnapshot
	nextPathwayIDs int
}

func newFakeRuntime() *fakeRuntime {
	return &fakeRuntime{pathways: make(map[string]aggregates.PathwaySnapshot)}
}

func (f *fakeRuntime) record(call string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, call)
}

func (f *fakeRuntime) CreatePathway(_ context.Context, snapshot aggregates.PathwaySnapshot) (string, error) {
	f.record("createPathway")
	if f.pathwayErr != nil {
		return "", f.pathwayErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextPathwayIDs++
	id := "remote-pathway-1"
	f.pathways[id] = snapshot
	f.lastSnapshot = snapshot
	return id, nil
}

func (f *fakeRuntime) UpdatePathway(_ context.Context, remoteID string, snapshot aggregates.PathwaySnapshot) error {
	f.record("updatePathway")
	if f.pathwayErr != nil {
		return f.pathwayErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.pathways[remoteID] = snapshot
	f.lastSnapshot = snapshot
	return nil
}

func (f *fakeRuntime) GetPathway(_ context.Context, remoteID string) (aggregates.PathwaySnapshot, error) {
	f.record("getPathway")
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.pathways[remoteID], nil
}

func (f *fakeRuntime) ListPathways(context.Context) ([]ports.PathwaySummary, error) {
	f.record("listPathways")
	return nil, nil
}

func (f *fakeRuntime) CreateKnowledgeBase(_ context.Context, kb *entities.KnowledgeBase) (string, error) {
	f.record("createKB")
	if f.kbErr != nil {
		return "", f.kbErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.createdKBs++
	return "remote-" + kb.ID().String(), nil
}

func (f *fakeRuntime) GetKnowledgeBase(_ context.Context, remoteID string) (*ports.KnowledgeBaseResource, error) {
	f.record("getKB")
	return &ports.KnowledgeBaseResource{RemoteID: remoteID}, nil
}

func (f *fakeRuntime) UpdateKnowledgeBase(_ context.Context, _ string, _ *entities.KnowledgeBase) error {
	f.record("updateKB")
	return f.kbErr
}

func (f *fakeRuntime) DeleteKnowledgeBase(_ context.Context, _ string) error {
	f.record("deleteKB")
	return nil
}

func (f *fakeRuntime) CreatePrompt(_ context.Context, _, _ string) (valueobjects.PromptID, error) {
	f.record("createPrompt")
	return valueobjects.NewPromptIDFromString("prompt-1")
}

func (f *fakeRuntime) GetPrompt(_ context.Context, _ valueobjects.PromptID) (string, error) {
	f.record("getPrompt")
	return "", nil
}

type fakePublisher struct {
	mu     sync.Mutex
	events []events.DomainEvent
}

func (f *fakePublisher) Publish(_ context.Context, event events.DomainEvent) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events = append(f.events, event)
	return nil
}

func (f *fakePublisher) PublishBatch(ctx context.Context, batch []events.DomainEvent) error {
	for _, e := range batch {
		_ = f.Publish(ctx, e)
	}
	return nil
}

func (f *fakePublisher) eventTypes() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	types := make([]string, len(f.events))
	for i, e := range f.events {
		types[i] = e.GetEventType()
	}
	return types
}

// Helpers

func syncTestPathway(t *testing.T, kbIDs ...valueobjects.KnowledgeBaseID) *aggregates.Pathway {
	t.Helper()
	pathway, err := aggregates.NewPathway("Sync Test", "")
	require.NoError(t, err)

	start, err := entities.NewStartNode(valueobjects.NewNodeID(1), "Greeting", "Hi", valueobjects.DefaultModelOptions())
	require.NoError(t, err)
	end, err := entities.NewEndCallNode(valueobjects.NewNodeID(2), "End Call", "Bye")
	require.NoError(t, err)
	require.NoError(t, pathway.AddNode(start))
	require.NoError(t, pathway.AddNode(end))
	_, err = pathway.Connect(valueobjects.NewEdgeID(1), start.ID(), end.ID(), "Continue", "")
	require.NoError(t, err)

	start.ReplaceTools(kbIDs)
	return pathway
}

func testKB(t *testing.T) *entities.KnowledgeBase {
	t.Helper()
	kb, err := entities.NewKnowledgeBase("Pricing", "price sheet", "the numbers", []string{"pricing"})
	require.NoError(t, err)
	return kb
}

// Tests

func TestSyncPathwayCreatesKBsBeforePathway(t *testing.T) {
	runtime := newFakeRuntime()
	links := newFakeLinks()
	publisher := &fakePublisher{}
	o := NewOrchestrator(runtime, NewStateTracker(newFakeRecords(), nil), links, publisher, nil)

	kb := testKB(t)
	pathway := syncTestPathway(t, kb.ID())

	result, err := o.SyncPathway(context.Background(), pathway, []*entities.KnowledgeBase{kb})
	require.NoError(t, err)

	assert.Equal(t, OutcomeSynced, result.Outcome)
	assert.Equal(t, "remote-pathway-1", result.RemoteID)
	require.Equal(t, []string{"createKB", "createPathway"}, runtime.calls)

	// The uploaded pathway references the remote KB id, not the local one
	require.NotEmpty(t, runtime.lastSnapshot.Nodes)
	assert.Contains(t, runtime.lastSnapshot.Nodes[0].Tools, "remote-"+kb.ID().String())

	// Link table mirrors the reference
	linked, err := links.LinksForPathway(context.Background(), pathway.ID().String())
	require.NoError(t, err)
	assert.Equal(t, []string{kb.ID().String()}, linked)

	assert.Contains(t, publisher.eventTypes(), "pathway.synced")
}

func TestSyncPathwaySkipsWhenChecksumUnchanged(t *testing.T) {
	runtime := newFakeRuntime()
	o := NewOrchestrator(runtime, NewStateTracker(newFakeRecords(), nil), newFakeLinks(), &fakePublisher{}, nil)

	pathway := syncTestPathway(t)

	first, err := o.SyncPathway(context.Background(), pathway, nil)
	require.NoError(t, err)
	assert.Equal(t, OutcomeSynced, first.Outcome)

	callsAfterFirst := len(runtime.calls)

	second, err := o.SyncPathway(context.Background(), pathway, nil)
	require.NoError(t, err)
	assert.Equal(t, OutcomeNoOp, second.Outcome)
	assert.Equal(t, first.RemoteID, second.RemoteID)

	// No network traffic on the no-op path
	assert.Len(t, runtime.calls, callsAfterFirst)
}

func TestSyncPathwayResyncsAfterChange(t *testing.T) {
	runtime := newFakeRuntime()
	o := NewOrchestrator(runtime, NewStateTracker(newFakeRecords(), nil), newFakeLinks(), &fakePublisher{}, nil)

	pathway := syncTestPathway(t)
	_, err := o.SyncPathway(context.Background(), pathway, nil)
	require.NoError(t, err)

	require.NoError(t, pathway.Rename("Renamed", "new description"))

	result, err := o.SyncPathway(context.Background(), pathway, nil)
	require.NoError(t, err)
	assert.Equal(t, OutcomeSynced, result.Outcome)
	assert.Equal(t, "updatePathway", runtime.calls[len(runtime.calls)-1])
}

func TestSyncPathwayPartialFailureMarksOrphans(t *testing.T) {
	runtime := newFakeRuntime()
	runtime.pathwayErr = pkgerrors.NewNetworkError("connection reset", nil)
	links := newFakeLinks()
	publisher := &fakePublisher{}
	o := NewOrchestrator(runtime, NewStateTracker(newFakeRecords(), nil), links, publisher, nil)

	kb := testKB(t)
	pathway := syncTestPathway(t, kb.ID())

	_, err := o.SyncPathway(context.Background(), pathway, []*entities.KnowledgeBase{kb})
	require.Error(t, err)
	assert.True(t, pkgerrors.IsType(err, pkgerrors.ErrorTypePartialSync))

	succeeded, failed := pkgerrors.PartialSyncIDs(err)
	assert.Equal(t, []string{kb.ID().String()}, succeeded)
	assert.Equal(t, []string{pathway.ID().String()}, failed)

	// The KB created during the aborted run is flagged, never deleted
	orphans, err := links.ListOrphanCandidates(context.Background())
	require.NoError(t, err)
	require.Len(t, orphans, 1)
	assert.Equal(t, kb.ID().String(), orphans[0].ResourceID)
	assert.Zero(t, runtimeDeleteCount(runtime))

	assert.Contains(t, publisher.eventTypes(), "pathway.sync_failed")
}

func TestSyncPathwayKBFailureIsNotPartial(t *testing.T) {
	runtime := newFakeRuntime()
	runtime.kbErr = pkgerrors.NewNetworkError("connection reset", nil)
	o := NewOrchestrator(runtime, NewStateTracker(newFakeRecords(), nil), newFakeLinks(), &fakePublisher{}, nil)

	kb := testKB(t)
	pathway := syncTestPathway(t, kb.ID())

	_, err := o.SyncPathway(context.Background(), pathway, []*entities.KnowledgeBase{kb})
	require.Error(t, err)
	// Nothing succeeded, so the original error surfaces untouched
	assert.False(t, pkgerrors.IsType(err, pkgerrors.ErrorTypePartialSync))
	assert.True(t, pkgerrors.IsType(err, pkgerrors.ErrorTypeNetwork))
}

func TestKBRecordFailureAfterCreateMarksOrphan(t *testing.T) {
	runtime := newFakeRuntime()
	records := newFakeRecords()
	records.putKBErr = pkgerrors.NewDatabaseError("put sync record", nil)
	links := newFakeLinks()
	o := NewOrchestrator(runtime, NewStateTracker(records, nil), links, &fakePublisher{}, nil)

	kb := testKB(t)
	pathway := syncTestPathway(t, kb.ID())

	_, err := o.SyncPathway(context.Background(), pathway, []*entities.KnowledgeBase{kb})
	require.Error(t, err)

	// The remote create landed but recording it did not; the KB is flagged
	// for reconciliation so the next run cannot silently duplicate it
	assert.Equal(t, 1, runtime.createdKBs)
	orphans, lerr := links.ListOrphanCandidates(context.Background())
	require.NoError(t, lerr)
	require.Len(t, orphans, 1)
	assert.Equal(t, kb.ID().String(), orphans[0].ResourceID)
	assert.Zero(t, runtimeDeleteCount(runtime))
}

func TestSyncPathwayUnchangedKBIsNotResent(t *testing.T) {
	runtime := newFakeRuntime()
	o := NewOrchestrator(runtime, NewStateTracker(newFakeRecords(), nil), newFakeLinks(), &fakePublisher{}, nil)

	kb := testKB(t)
	pathway := syncTestPathway(t, kb.ID())

	_, err := o.SyncPathway(context.Background(), pathway, []*entities.KnowledgeBase{kb})
	require.NoError(t, err)
	assert.Equal(t, 1, runtime.createdKBs)

	// Change only the pathway; the KB checksum is unchanged
	require.NoError(t, pathway.Rename("Changed", ""))
	_, err = o.SyncPathway(context.Background(), pathway, []*entities.KnowledgeBase{kb})
	require.NoError(t, err)

	assert.Equal(t, 1, runtime.createdKBs)
	assert.NotContains(t, runtime.calls[2:], "createKB")
}

func runtimeDeleteCount(f *fakeRuntime) int {
	count := 0
	for _, c := range f.calls {
		if c == "deleteKB" {
			count++
		}
	}
	return count
}
