package sync

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pathway-engine/application/ports"
	"pathway-engine/domain/core/entities"
)

func TestPathwayChecksumIsStableAcrossBuilds(t *testing.T) {
	a := syncTestPathway(t)
	b := syncTestPathway(t)

	snapA := a.Snapshot()
	snapB := b.Snapshot()

	sumA, err := PathwayChecksum(snapA)
	require.NoError(t, err)
	sumB, err := PathwayChecksum(snapB)
	require.NoError(t, err)
	assert.Equal(t, sumA, sumB)
}

func TestPathwayChecksumIgnoresAggregateID(t *testing.T) {
	snapA := syncTestPathway(t).Snapshot()
	snapB := syncTestPathway(t).Snapshot()
	snapB.ID = "some-other-identity"

	sumA, err := PathwayChecksum(snapA)
	require.NoError(t, err)
	sumB, err := PathwayChecksum(snapB)
	require.NoError(t, err)
	assert.Equal(t, sumA, sumB)
}

func TestPathwayChecksumChangesWithContent(t *testing.T) {
	pathway := syncTestPathway(t)
	before, err := PathwayChecksum(pathway.Snapshot())
	require.NoError(t, err)

	require.NoError(t, pathway.Rename("Other Name", ""))
	after, err := PathwayChecksum(pathway.Snapshot())
	require.NoError(t, err)

	assert.NotEqual(t, before, after)
}

func TestKnowledgeBaseChecksumFieldsAreDelimited(t *testing.T) {
	a, err := entities.NewKnowledgeBase("ab", "", "c", nil)
	require.NoError(t, err)
	b, err := entities.NewKnowledgeBase("a", "b", "c", nil)
	require.NoError(t, err)

	assert.NotEqual(t, KnowledgeBaseChecksum(a), KnowledgeBaseChecksum(b))
}

func TestIsUpToDate(t *testing.T) {
	ctx := context.Background()
	tracker := NewStateTracker(newFakeRecords(), nil)

	upToDate, remoteID, err := tracker.IsUpToDate(ctx, ports.ResourceKindPathway, "p1", "sum-1")
	require.NoError(t, err)
	assert.False(t, upToDate)
	assert.Empty(t, remoteID)

	require.NoError(t, tracker.RecordSynced(ctx, ports.ResourceKindPathway, "p1", "remote-1", "sum-1"))

	upToDate, remoteID, err = tracker.IsUpToDate(ctx, ports.ResourceKindPathway, "p1", "sum-1")
	require.NoError(t, err)
	assert.True(t, upToDate)
	assert.Equal(t, "remote-1", remoteID)

	// A different checksum still returns the remote id so the caller can update in place
	upToDate, remoteID, err = tracker.IsUpToDate(ctx, ports.ResourceKindPathway, "p1", "sum-2")
	require.NoError(t, err)
	assert.False(t, upToDate)
	assert.Equal(t, "remote-1", remoteID)
}

func TestForgetForcesResync(t *testing.T) {
	ctx := context.Background()
	tracker := NewStateTracker(newFakeRecords(), nil)

	require.NoError(t, tracker.RecordSynced(ctx, ports.ResourceKindKnowledgeBase, "kb1", "remote-kb", "sum"))
	require.NoError(t, tracker.Forget(ctx, ports.ResourceKindKnowledgeBase, "kb1"))

	record, err := tracker.Lookup(ctx, ports.ResourceKindKnowledgeBase, "kb1")
	require.NoError(t, err)
	assert.Nil(t, record)
}
