package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pathway-engine/application/builder"
	"pathway-engine/application/linker"
	appsync "pathway-engine/application/sync"
	"pathway-engine/domain/core/validators"
	"pathway-engine/domain/core/valueobjects"
	pkgerrors "pathway-engine/pkg/errors"
)

func newTestPathwayService(t *testing.T, runtime *memRuntime, kbRepo *memKBRepo) *PathwayService {
	t.Helper()
	tracker := appsync.NewStateTracker(newMemRecords(), nil)
	syncer := appsync.NewOrchestrator(runtime, tracker, newMemLinks(), nil, nil)
	return NewPathwayService(
		builder.NewGraphBuilder(nil, nil),
		validators.NewPathwayValidator(nil),
		linker.NewKnowledgeBaseLinker(nil, nil),
		syncer,
		runtime,
		kbRepo,
		nil,
	)
}

func TestBuildAndSyncEndToEnd(t *testing.T) {
	runtime := newMemRuntime()
	svc := newTestPathwayService(t, runtime, newMemKBRepo())

	doc := builder.AnalysisDocument{
		AnalysisID:  "analysis-1",
		Summary:     "Discovery call",
		VoicePrompt: "Hi, thanks for taking my call.",
		Techniques: []builder.TechniqueSection{
			{Name: "Open With Value", Description: "Lead with the outcome"},
			{Name: "Qualify", Description: "Confirm budget and timeline"},
		},
		Objections: []builder.ObjectionSection{
			{Name: "Too Expensive", Description: "Reframe against cost of inaction"},
		},
	}

	result, err := svc.BuildAndSync(context.Background(), doc, "Discovery")
	require.NoError(t, err)

	assert.Equal(t, appsync.OutcomeSynced, result.Sync.Outcome)
	assert.NotEmpty(t, result.Sync.RemoteID)

	uploaded := runtime.pathways[result.Sync.RemoteID]
	assert.Len(t, uploaded.Nodes, 5)
	assert.Equal(t, "Discovery", uploaded.Name)
}

func TestBuildAndSyncAutoLinksKnowledgeBases(t *testing.T) {
	runtime := newMemRuntime()
	kbRepo := newMemKBRepo()
	svc := newTestPathwayService(t, runtime, kbRepo)

	kbSvc := NewKnowledgeBaseService(kbRepo, newMemLinks(), appsync.NewStateTracker(newMemRecords(), nil), runtime, linker.NewKnowledgeBaseLinker(nil, nil), nil)
	kb, err := kbSvc.Create(context.Background(), "Pricing Sheet", "", "tier pricing", []string{"pricing"})
	require.NoError(t, err)

	doc := builder.AnalysisDocument{
		AnalysisID:  "analysis-2",
		VoicePrompt: "Let me walk you through our pricing options.",
	}

	result, err := svc.BuildAndSync(context.Background(), doc, "Pricing Call")
	require.NoError(t, err)

	// The matching KB was linked and uploaded with the pathway,
	// rewritten to its runtime-assigned id
	remoteKBID := "remote-" + kb.ID().String()
	uploaded := runtime.pathways[result.Sync.RemoteID]
	found := false
	for _, node := range uploaded.Nodes {
		for _, tool := range node.Tools {
			if tool == remoteKBID {
				found = true
			}
		}
	}
	assert.True(t, found)
	assert.Equal(t, []string{kb.ID().String()}, result.Sync.KnowledgeBases)
}

func TestBuildAndSyncRejectsUnknownToolReference(t *testing.T) {
	runtime := newMemRuntime()
	svc := newTestPathwayService(t, runtime, newMemKBRepo())

	doc := builder.AnalysisDocument{AnalysisID: "analysis-3", VoicePrompt: "Hello"}
	result, err := svc.BuildAndSync(context.Background(), doc, "Plain")
	require.NoError(t, err)

	// Reconstruct the uploaded pathway locally, point a node at a KB that
	// does not exist, and validate
	pathway := result.Pathway
	for _, node := range pathway.Nodes() {
		if node.IsStart() {
			require.NoError(t, svc.linker.Link(pathway, node.ID(), []valueobjects.KnowledgeBaseID{valueobjects.NewKnowledgeBaseID()}))
		}
	}

	err = svc.Validate(context.Background(), pathway)
	require.Error(t, err)
	assert.True(t, pkgerrors.IsValidation(err))
}

func TestGetPathwayStats(t *testing.T) {
	runtime := newMemRuntime()
	svc := newTestPathwayService(t, runtime, newMemKBRepo())

	doc := builder.AnalysisDocument{
		AnalysisID:  "analysis-4",
		VoicePrompt: "Hi",
		Techniques:  []builder.TechniqueSection{{Name: "Anchor High"}},
	}
	result, err := svc.BuildAndSync(context.Background(), doc, "Stats")
	require.NoError(t, err)

	stats, err := svc.GetPathwayStats(context.Background(), result.Sync.RemoteID)
	require.NoError(t, err)
	assert.Equal(t, 3, stats.NodeCount)
	assert.Equal(t, 2, stats.EdgeCount)
	assert.Greater(t, stats.ComplexityScore, 0.0)
}

func TestRebuildingIdenticalDocumentIsNoOp(t *testing.T) {
	runtime := newMemRuntime()
	svc := newTestPathwayService(t, runtime, newMemKBRepo())

	doc := builder.AnalysisDocument{
		AnalysisID:  "analysis-5",
		VoicePrompt: "Hi there",
		Techniques:  []builder.TechniqueSection{{Name: "Open With Value"}},
	}

	first, err := svc.BuildAndSync(context.Background(), doc, "Repeat Call")
	require.NoError(t, err)
	require.Equal(t, appsync.OutcomeSynced, first.Sync.Outcome)

	// A fresh build of the same document resumes the same identity and
	// short-circuits without touching the runtime
	second, err := svc.BuildAndSync(context.Background(), doc, "Repeat Call")
	require.NoError(t, err)
	assert.Equal(t, appsync.OutcomeNoOp, second.Sync.Outcome)
	assert.Equal(t, first.Pathway.ID(), second.Pathway.ID())
	assert.Equal(t, first.Sync.RemoteID, second.Sync.RemoteID)
	assert.Len(t, runtime.pathways, 1)
	assert.Zero(t, runtime.updates)
}

func TestPathwayIdentityFollowsAnalysisID(t *testing.T) {
	svc := newTestPathwayService(t, newMemRuntime(), newMemKBRepo())

	a, err := svc.BuildAndSync(context.Background(), builder.AnalysisDocument{AnalysisID: "analysis-6", VoicePrompt: "Hi"}, "Call A")
	require.NoError(t, err)
	b, err := svc.BuildAndSync(context.Background(), builder.AnalysisDocument{AnalysisID: "analysis-7", VoicePrompt: "Hi"}, "Call A")
	require.NoError(t, err)

	// Different analyses stay distinct pathways even under the same name
	assert.NotEqual(t, a.Pathway.ID(), b.Pathway.ID())
}
