package validators

import (
	"fmt"

	"pathway-engine/domain/config"
	"pathway-engine/domain/core/aggregates"
	"pathway-engine/domain/core/entities"
	pkgerrors "pathway-engine/pkg/errors"
)

// Violation codes reported by the pathway validator
const (
	ViolationNoStartNode       = "NO_START_NODE"
	ViolationMultipleStarts    = "MULTIPLE_START_NODES"
	ViolationDanglingEdge      = "DANGLING_EDGE"
	ViolationUnreachableNode   = "UNREACHABLE_NODE"
	ViolationNoPathToEnd       = "NO_PATH_TO_END"
	ViolationUnknownTool       = "UNKNOWN_TOOL"
	ViolationTooManyNodes      = "TOO_MANY_NODES"
	ViolationTooManyEdges      = "TOO_MANY_EDGES"
	ViolationPromptTooLong     = "PROMPT_TOO_LONG"
	ViolationTooManyNodeTools  = "TOO_MANY_NODE_TOOLS"
)

// KnowledgeBaseRegistry answers whether a knowledge base id is known.
// Implementations decide whether "known" means local or already remote.
type KnowledgeBaseRegistry interface {
	Contains(id string) bool
}

// RegistrySet is a KnowledgeBaseRegistry backed by a plain set
type RegistrySet map[string]struct{}

// Contains reports whether the id is in the set
func (r RegistrySet) Contains(id string) bool {
	_, ok := r[id]
	return ok
}

// PathwayValidator checks the structural invariants of a pathway. It never
// mutates or repairs the graph; every violation found is reported together
// so a caller sees the complete picture in one pass.
type PathwayValidator struct {
	cfg *config.DomainConfig
}

// NewPathwayValidator creates a pathway validator
func NewPathwayValidator(cfg *config.DomainConfig) *PathwayValidator {
	if cfg == nil {
		cfg = config.DefaultDomainConfig()
	}
	return &PathwayValidator{cfg: cfg}
}

// Validate checks every invariant and returns a single validation error
// carrying all violations, or nil when the pathway is sound.
func (v *PathwayValidator) Validate(pathway *aggregates.Pathway, registry KnowledgeBaseRegistry) error {
	if pathway == nil {
		return pkgerrors.NewValidationError("pathway cannot be nil")
	}

	var violations []pkgerrors.Violation
	violations = append(violations, v.checkStart(pathway)...)
	violations = append(violations, v.checkEdges(pathway)...)
	violations = append(violations, v.checkReachability(pathway)...)
	violations = append(violations, v.checkTermination(pathway)...)
	violations = append(violations, v.checkTools(pathway, registry)...)
	violations = append(violations, v.checkLimits(pathway)...)

	if len(violations) > 0 {
		return pkgerrors.NewPathwayValidationError(violations)
	}
	return nil
}

func (v *PathwayValidator) checkStart(pathway *aggregates.Pathway) []pkgerrors.Violation {
	starts := pathway.StartNodes()
	switch {
	case len(starts) == 0:
		return []pkgerrors.Violation{{
			Code:    ViolationNoStartNode,
			Message: "pathway must have exactly one start node",
		}}
	case len(starts) > 1:
		violations := make([]pkgerrors.Violation, 0, len(starts)-1)
		for _, node := range starts[1:] {
			violations = append(violations, pkgerrors.Violation{
				Code:    ViolationMultipleStarts,
				Subject: node.ID().String(),
				Message: "pathway must have exactly one start node",
			})
		}
		return violations
	}
	return nil
}

func (v *PathwayValidator) checkEdges(pathway *aggregates.Pathway) []pkgerrors.Violation {
	var violations []pkgerrors.Violation
	for _, edge := range pathway.Edges() {
		if !pathway.HasNode(edge.SourceID) {
			violations = append(violations, pkgerrors.Violation{
				Code:    ViolationDanglingEdge,
				Subject: edge.ID.String(),
				Message: fmt.Sprintf("edge source %q does not exist", edge.SourceID),
			})
		}
		if !pathway.HasNode(edge.TargetID) {
			violations = append(violations, pkgerrors.Violation{
				Code:    ViolationDanglingEdge,
				Subject: edge.ID.String(),
				Message: fmt.Sprintf("edge target %q does not exist", edge.TargetID),
			})
		}
	}
	return violations
}

func (v *PathwayValidator) checkReachability(pathway *aggregates.Pathway) []pkgerrors.Violation {
	if len(pathway.StartNodes()) != 1 {
		// Reachability is meaningless without a unique entry point; the
		// start check already reported it.
		return nil
	}

	reachable := pathway.ReachableFromStart()
	var violations []pkgerrors.Violation
	for _, node := range pathway.Nodes() {
		// Global nodes are reached by trigger label, not by edges
		if node.Kind() == entities.NodeKindGlobal {
			continue
		}
		if !reachable[node.ID()] {
			violations = append(violations, pkgerrors.Violation{
				Code:    ViolationUnreachableNode,
				Subject: node.ID().String(),
				Message: fmt.Sprintf("node %q is not reachable from the start node", node.Name()),
			})
		}
	}
	return violations
}

func (v *PathwayValidator) checkTermination(pathway *aggregates.Pathway) []pkgerrors.Violation {
	var violations []pkgerrors.Violation
	for _, node := range pathway.Nodes() {
		if node.Kind() == entities.NodeKindGlobal {
			continue
		}
		if !pathway.ReachesTerminal(node.ID()) {
			violations = append(violations, pkgerrors.Violation{
				Code:    ViolationNoPathToEnd,
				Subject: node.ID().String(),
				Message: fmt.Sprintf("node %q cannot reach a node that ends the call", node.Name()),
			})
		}
	}
	return violations
}

func (v *PathwayValidator) checkTools(pathway *aggregates.Pathway, registry KnowledgeBaseRegistry) []pkgerrors.Violation {
	if registry == nil {
		registry = RegistrySet{}
	}
	var violations []pkgerrors.Violation
	for _, node := range pathway.Nodes() {
		for _, tool := range node.Tools() {
			if !registry.Contains(tool.String()) {
				violations = append(violations, pkgerrors.Violation{
					Code:    ViolationUnknownTool,
					Subject: node.ID().String(),
					Message: fmt.Sprintf("node references unknown knowledge base %q", tool),
				})
			}
		}
	}
	return violations
}

func (v *PathwayValidator) checkLimits(pathway *aggregates.Pathway) []pkgerrors.Violation {
	var violations []pkgerrors.Violation
	if pathway.NodeCount() > v.cfg.MaxNodesPerPathway {
		violations = append(violations, pkgerrors.Violation{
			Code:    ViolationTooManyNodes,
			Message: fmt.Sprintf("pathway has %d nodes, limit is %d", pathway.NodeCount(), v.cfg.MaxNodesPerPathway),
		})
	}
	if pathway.EdgeCount() > v.cfg.MaxEdgesPerPathway {
		violations = append(violations, pkgerrors.Violation{
			Code:    ViolationTooManyEdges,
			Message: fmt.Sprintf("pathway has %d edges, limit is %d", pathway.EdgeCount(), v.cfg.MaxEdgesPerPathway),
		})
	}
	for _, node := range pathway.Nodes() {
		if len(node.Prompt()) > v.cfg.MaxPromptLength {
			violations = append(violations, pkgerrors.Violation{
				Code:    ViolationPromptTooLong,
				Subject: node.ID().String(),
				Message: fmt.Sprintf("prompt exceeds %d characters", v.cfg.MaxPromptLength),
			})
		}
		if len(node.Tools()) > v.cfg.MaxToolsPerNode {
			violations = append(violations, pkgerrors.Violation{
				Code:    ViolationTooManyNodeTools,
				Subject: node.ID().String(),
				Message: fmt.Sprintf("node links %d knowledge bases, limit is %d", len(node.Tools()), v.cfg.MaxToolsPerNode),
			})
		}
	}
	return violations
}
