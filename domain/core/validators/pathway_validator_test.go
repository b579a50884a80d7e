package validators

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pathway-engine/domain/core/aggregates"
	"pathway-engine/domain/core/entities"
	"pathway-engine/domain/core/valueobjects"
	pkgerrors "pathway-engine/pkg/errors"
)

func buildLinearPathway(t *testing.T) *aggregates.Pathway {
	t.Helper()

	pathway, err := aggregates.NewPathway("Test Pathway", "")
	require.NoError(t, err)

	start, err := entities.NewStartNode(valueobjects.NewNodeID(1), "Greeting", "Hello!", valueobjects.DefaultModelOptions())
	require.NoError(t, err)
	middle, err := entities.NewDefaultNode(valueobjects.NewNodeID(2), "Pitch", "Our product...", valueobjects.DefaultModelOptions())
	require.NoError(t, err)
	end, err := entities.NewEndCallNode(valueobjects.NewNodeID(3), "End Call", "Goodbye!")
	require.NoError(t, err)

	require.NoError(t, pathway.AddNode(start))
	require.NoError(t, pathway.AddNode(middle))
	require.NoError(t, pathway.AddNode(end))

	_, err = pathway.Connect(valueobjects.NewEdgeID(1), start.ID(), middle.ID(), "Continue", "")
	require.NoError(t, err)
	_, err = pathway.Connect(valueobjects.NewEdgeID(2), middle.ID(), end.ID(), "Continue", "")
	require.NoError(t, err)

	return pathway
}

func violationCodes(t *testing.T, err error) []string {
	t.Helper()
	violations := pkgerrors.Violations(err)
	require.NotNil(t, violations)
	codes := make([]string, len(violations))
	for i, v := range violations {
		codes[i] = v.Code
	}
	return codes
}

func TestValidateAcceptsSoundPathway(t *testing.T) {
	validator := NewPathwayValidator(nil)
	pathway := buildLinearPathway(t)

	assert.NoError(t, validator.Validate(pathway, nil))
}

func TestValidateRejectsMissingStart(t *testing.T) {
	validator := NewPathwayValidator(nil)

	pathway, err := aggregates.NewPathway("No Start", "")
	require.NoError(t, err)
	end, err := entities.NewEndCallNode(valueobjects.NewNodeID(1), "End Call", "Bye")
	require.NoError(t, err)
	require.NoError(t, pathway.AddNode(end))

	err = validator.Validate(pathway, nil)
	require.Error(t, err)
	assert.True(t, pkgerrors.IsValidation(err))
	assert.Contains(t, violationCodes(t, err), ViolationNoStartNode)
}

func TestValidateRejectsUnreachableNode(t *testing.T) {
	validator := NewPathwayValidator(nil)
	pathway := buildLinearPathway(t)

	orphan, err := entities.NewDefaultNode(valueobjects.NewNodeID(9), "Orphan", "", valueobjects.DefaultModelOptions())
	require.NoError(t, err)
	require.NoError(t, pathway.AddNode(orphan))

	err = validator.Validate(pathway, nil)
	require.Error(t, err)

	codes := violationCodes(t, err)
	assert.Contains(t, codes, ViolationUnreachableNode)
	// The orphan also has no path to the end; both must be reported
	assert.Contains(t, codes, ViolationNoPathToEnd)
}

func TestValidateRejectsDeadEndNode(t *testing.T) {
	validator := NewPathwayValidator(nil)
	pathway := buildLinearPathway(t)

	start, err := pathway.StartNode()
	require.NoError(t, err)
	deadEnd, err := entities.NewDefaultNode(valueobjects.NewNodeID(4), "Dead End", "", valueobjects.DefaultModelOptions())
	require.NoError(t, err)
	require.NoError(t, pathway.AddNode(deadEnd))
	_, err = pathway.Connect(valueobjects.NewEdgeID(3), start.ID(), deadEnd.ID(), "Detour", "")
	require.NoError(t, err)

	err = validator.Validate(pathway, nil)
	require.Error(t, err)
	assert.Contains(t, violationCodes(t, err), ViolationNoPathToEnd)
}

func TestValidateReportsAllViolationsTogether(t *testing.T) {
	validator := NewPathwayValidator(nil)

	pathway, err := aggregates.NewPathway("Broken", "")
	require.NoError(t, err)
	lonely, err := entities.NewDefaultNode(valueobjects.NewNodeID(1), "Lonely", "", valueobjects.DefaultModelOptions())
	require.NoError(t, err)
	require.NoError(t, pathway.AddNode(lonely))

	err = validator.Validate(pathway, nil)
	require.Error(t, err)

	codes := violationCodes(t, err)
	assert.Contains(t, codes, ViolationNoStartNode)
	assert.Contains(t, codes, ViolationNoPathToEnd)
	assert.GreaterOrEqual(t, len(codes), 2)
}

func TestValidateChecksToolReferences(t *testing.T) {
	validator := NewPathwayValidator(nil)
	pathway := buildLinearPathway(t)

	known := valueobjects.NewKnowledgeBaseID()
	unknown := valueobjects.NewKnowledgeBaseID()
	start, err := pathway.StartNode()
	require.NoError(t, err)
	start.ReplaceTools([]valueobjects.KnowledgeBaseID{known, unknown})

	registry := RegistrySet{known.String(): {}}

	err = validator.Validate(pathway, registry)
	require.Error(t, err)

	violations := pkgerrors.Violations(err)
	require.Len(t, violations, 1)
	assert.Equal(t, ViolationUnknownTool, violations[0].Code)

	// With every reference known the pathway is sound again
	registry[unknown.String()] = struct{}{}
	assert.NoError(t, validator.Validate(pathway, registry))
}

func TestValidateExemptsGlobalNodes(t *testing.T) {
	validator := NewPathwayValidator(nil)
	pathway := buildLinearPathway(t)

	global, err := entities.NewGlobalNode(valueobjects.NewNodeID(5), "Frustration Handler", "I hear you.", "user frustrated")
	require.NoError(t, err)
	require.NoError(t, pathway.AddNode(global))

	// Global nodes have no edges but must not trip reachability checks
	assert.NoError(t, validator.Validate(pathway, nil))
}

func TestValidateNeverMutatesPathway(t *testing.T) {
	validator := NewPathwayValidator(nil)
	pathway := buildLinearPathway(t)

	orphan, err := entities.NewDefaultNode(valueobjects.NewNodeID(9), "Orphan", "", valueobjects.DefaultModelOptions())
	require.NoError(t, err)
	require.NoError(t, pathway.AddNode(orphan))

	before := pathway.Snapshot()
	_ = validator.Validate(pathway, nil)
	assert.Equal(t, before, pathway.Snapshot())
}
