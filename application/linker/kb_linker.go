package linker

import (
	"sort"

	"go.uber.org/zap"

	"pathway-engine/domain/config"
	"pathway-engine/domain/core/aggregates"
	"pathway-engine/domain/core/entities"
	"pathway-engine/domain/core/valueobjects"
	pkgerrors "pathway-engine/pkg/errors"
)

// KnowledgeBaseLinker manages the tool references between pathway nodes and
// knowledge bases. It only touches the in-memory aggregate; persistence and
// remote sync happen elsewhere.
type KnowledgeBaseLinker struct {
	cfg    *config.DomainConfig
	logger *zap.Logger
}

// NewKnowledgeBaseLinker creates a linker
func NewKnowledgeBaseLinker(cfg *config.DomainConfig, logger *zap.Logger) *KnowledgeBaseLinker {
	if cfg == nil {
		cfg = config.DefaultDomainConfig()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &KnowledgeBaseLinker{cfg: cfg, logger: logger}
}

// Link sets a node's tool references to kbIDs. Under the replace policy the
// previous list is discarded; under merge the ids are appended. Duplicate
// ids are collapsed either way.
func (l *KnowledgeBaseLinker) Link(pathway *aggregates.Pathway, nodeID valueobjects.NodeID, kbIDs []valueobjects.KnowledgeBaseID) error {
	node, err := pathway.GetNode(nodeID)
	if err != nil {
		return pkgerrors.NewNotFoundError("node " + nodeID.String())
	}

	switch l.cfg.ToolLinkPolicy {
	case config.LinkPolicyMerge:
		node.MergeTools(kbIDs)
	default:
		node.ReplaceTools(kbIDs)
	}

	if len(node.Tools()) > l.cfg.MaxToolsPerNode {
		return pkgerrors.NewValidationError("too many knowledge bases linked to one node").
			WithDetail("node_id", nodeID.String()).
			WithDetail("limit", l.cfg.MaxToolsPerNode)
	}

	pathway.RecordToolsLinked(nodeID, node.Tools())
	return nil
}

// UnlinkKnowledgeBase removes a knowledge base from every node in the
// pathway. Idempotent: unknown ids touch nothing. Returns the number of
// nodes changed.
func (l *KnowledgeBaseLinker) UnlinkKnowledgeBase(pathway *aggregates.Pathway, kbID valueobjects.KnowledgeBaseID) int {
	touched := pathway.DetachKnowledgeBase(kbID)
	if touched > 0 {
		l.logger.Info("knowledge base detached",
			zap.String("pathwayID", pathway.ID().String()),
			zap.String("kbID", kbID.String()),
			zap.Int("nodesTouched", touched),
		)
	}
	return touched
}

// AutoLink attaches knowledge bases to nodes whose prompt text matches their
// tags. When several knowledge bases match one node, the most recently
// updated wins. Returns the node ids that were changed.
func (l *KnowledgeBaseLinker) AutoLink(pathway *aggregates.Pathway, kbs []*entities.KnowledgeBase) []valueobjects.NodeID {
	if !l.cfg.EnableAutoLink || len(kbs) == 0 {
		return nil
	}

	var linked []valueobjects.NodeID
	for _, node := range pathway.Nodes() {
		if node.Kind() == entities.NodeKindEndCall {
			continue
		}

		matches := make([]*entities.KnowledgeBase, 0)
		for _, kb := range kbs {
			if kb.MatchesPrompt(node.Prompt()) {
				matches = append(matches, kb)
			}
		}
		if len(matches) == 0 {
			continue
		}

		sort.Slice(matches, func(i, j int) bool {
			return matches[i].UpdatedAt().After(matches[j].UpdatedAt())
		})

		best := matches[0]
		if node.HasTool(best.ID()) {
			continue
		}
		if err := l.Link(pathway, node.ID(), []valueobjects.KnowledgeBaseID{best.ID()}); err != nil {
			l.logger.Warn("auto-link skipped",
				zap.String("nodeID", node.ID().String()),
				zap.Error(err),
			)
			continue
		}
		linked = append(linked, node.ID())
	}
	return linked
}
