package aggregates

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pathway-engine/domain/core/entities"
	"pathway-engine/domain/core/valueobjects"
)

func newTestPathway(t *testing.T) (*Pathway, *entities.Node, *entities.Node) {
	t.Helper()

	pathway, err := NewPathway("Sales Pathway", "from analysis")
	require.NoError(t, err)

	start, err := entities.NewStartNode(valueobjects.NewNodeID(1), "Greeting", "Hi there", valueobjects.DefaultModelOptions())
	require.NoError(t, err)
	end, err := entities.NewEndCallNode(valueobjects.NewNodeID(2), "End Call", "Goodbye")
	require.NoError(t, err)

	require.NoError(t, pathway.AddNode(start))
	require.NoError(t, pathway.AddNode(end))
	return pathway, start, end
}

func TestAddNodeRejectsSecondStart(t *testing.T) {
	pathway, _, _ := newTestPathway(t)

	second, err := entities.NewStartNode(valueobjects.NewNodeID(3), "Another", "Hello", valueobjects.DefaultModelOptions())
	require.NoError(t, err)

	err = pathway.AddNode(second)
	assert.Error(t, err)
	assert.Equal(t, 2, pathway.NodeCount())
}

func TestConnectValidatesEndpoints(t *testing.T) {
	pathway, start, end := newTestPathway(t)

	_, err := pathway.Connect(valueobjects.NewEdgeID(1), start.ID(), end.ID(), "Continue", "")
	require.NoError(t, err)

	// Unknown target
	ghost := valueobjects.NewNodeID(99)
	_, err = pathway.Connect(valueobjects.NewEdgeID(2), start.ID(), ghost, "Continue", "")
	assert.Error(t, err)

	// Self-loop
	_, err = pathway.Connect(valueobjects.NewEdgeID(3), start.ID(), start.ID(), "Loop", "")
	assert.Error(t, err)

	// End call nodes terminate the dialogue
	_, err = pathway.Connect(valueobjects.NewEdgeID(4), end.ID(), start.ID(), "Back", "")
	assert.Error(t, err)
}

func TestRemoveNodeCascadesEdges(t *testing.T) {
	pathway, start, end := newTestPathway(t)

	middle, err := entities.NewDefaultNode(valueobjects.NewNodeID(3), "Pitch", "", valueobjects.DefaultModelOptions())
	require.NoError(t, err)
	require.NoError(t, pathway.AddNode(middle))

	_, err = pathway.Connect(valueobjects.NewEdgeID(1), start.ID(), middle.ID(), "Continue", "")
	require.NoError(t, err)
	_, err = pathway.Connect(valueobjects.NewEdgeID(2), middle.ID(), end.ID(), "Continue", "")
	require.NoError(t, err)

	require.NoError(t, pathway.RemoveNode(middle.ID()))
	assert.Equal(t, 0, pathway.EdgeCount())
	assert.False(t, pathway.HasNode(middle.ID()))
}

func TestDetachKnowledgeBaseIsIdempotent(t *testing.T) {
	pathway, start, end := newTestPathway(t)

	kbID := valueobjects.NewKnowledgeBaseID()
	start.ReplaceTools([]valueobjects.KnowledgeBaseID{kbID})

	assert.Equal(t, 1, pathway.DetachKnowledgeBase(kbID))
	assert.Empty(t, start.Tools())
	assert.Empty(t, end.Tools())

	// Second detach touches nothing
	assert.Equal(t, 0, pathway.DetachKnowledgeBase(kbID))
}

func TestReachesTerminal(t *testing.T) {
	pathway, start, end := newTestPathway(t)

	dead, err := entities.NewDefaultNode(valueobjects.NewNodeID(3), "Dead End", "", valueobjects.DefaultModelOptions())
	require.NoError(t, err)
	require.NoError(t, pathway.AddNode(dead))

	_, err = pathway.Connect(valueobjects.NewEdgeID(1), start.ID(), end.ID(), "Continue", "")
	require.NoError(t, err)
	_, err = pathway.Connect(valueobjects.NewEdgeID(2), start.ID(), dead.ID(), "Detour", "")
	require.NoError(t, err)

	assert.True(t, pathway.ReachesTerminal(start.ID()))
	assert.True(t, pathway.ReachesTerminal(end.ID()))
	assert.False(t, pathway.ReachesTerminal(dead.ID()))
}

func TestSnapshotIsDeterministic(t *testing.T) {
	pathway, start, end := newTestPathway(t)
	_, err := pathway.Connect(valueobjects.NewEdgeID(1), start.ID(), end.ID(), "Continue", "")
	require.NoError(t, err)

	first := pathway.Snapshot()
	second := pathway.Snapshot()
	assert.Equal(t, first, second)
	require.Len(t, first.Nodes, 2)
	assert.Equal(t, "node-1", first.Nodes[0].ID)
	assert.Equal(t, "node-2", first.Nodes[1].ID)
}

func TestFromSnapshotRoundTrip(t *testing.T) {
	pathway, start, end := newTestPathway(t)
	_, err := pathway.Connect(valueobjects.NewEdgeID(1), start.ID(), end.ID(), "Continue", "")
	require.NoError(t, err)

	rebuilt, err := FromSnapshot(pathway.Snapshot())
	require.NoError(t, err)
	assert.Equal(t, pathway.Snapshot(), rebuilt.Snapshot())
}

func TestStats(t *testing.T) {
	pathway, start, end := newTestPathway(t)
	_, err := pathway.Connect(valueobjects.NewEdgeID(1), start.ID(), end.ID(), "Continue", "")
	require.NoError(t, err)

	stats := pathway.Stats()
	assert.Equal(t, 2, stats.NodeCount)
	assert.Equal(t, 1, stats.EdgeCount)
	assert.Equal(t, 1, stats.MaxDepth)
	assert.Greater(t, stats.ComplexityScore, 0.0)
}

func TestUncommittedEvents(t *testing.T) {
	pathway, start, end := newTestPathway(t)
	_, err := pathway.Connect(valueobjects.NewEdgeID(1), start.ID(), end.ID(), "Continue", "")
	require.NoError(t, err)

	eventTypes := make([]string, 0)
	for _, e := range pathway.GetUncommittedEvents() {
		eventTypes = append(eventTypes, e.GetEventType())
	}
	assert.Contains(t, eventTypes, "pathway.created")
	assert.Contains(t, eventTypes, "pathway.node_added")
	assert.Contains(t, eventTypes, "pathway.nodes_connected")

	pathway.MarkEventsAsCommitted()
	assert.Empty(t, pathway.GetUncommittedEvents())
}
