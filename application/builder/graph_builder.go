package builder

import (
	"fmt"
	"strings"

	"go.uber.org/zap"

	"pathway-engine/domain/config"
	"pathway-engine/domain/core/aggregates"
	"pathway-engine/domain/core/entities"
	"pathway-engine/domain/core/valueobjects"
	pkgerrors "pathway-engine/pkg/errors"
)

// Edge labels used by the builder
const (
	labelBegin     = "Begin Sales Process"
	labelContinue  = "Continue"
	labelObjection = "Handle Objection"
	labelResume    = "Resume"
	labelWrapUp    = "Wrap Up"
)

const defaultGreeting = "Hello, this is an AI assistant calling. How are you today?"

// GraphBuilder turns an analysis document into a draft pathway. The build is
// deterministic: the pathway id derives from the document's analysis id and
// node and edge ids follow document position, so the same document always
// produces the same graph under the same identity.
type GraphBuilder struct {
	cfg    *config.DomainConfig
	logger *zap.Logger
}

// NewGraphBuilder creates a graph builder
func NewGraphBuilder(cfg *config.DomainConfig, logger *zap.Logger) *GraphBuilder {
	if cfg == nil {
		cfg = config.DefaultDomainConfig()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &GraphBuilder{cfg: cfg, logger: logger}
}

// Build produces a draft pathway from the document. The result is not yet
// validated; callers run it through the validator before syncing.
func (b *GraphBuilder) Build(doc AnalysisDocument, name string) (*aggregates.Pathway, error) {
	if name == "" {
		return nil, pkgerrors.NewValidationError("pathway name required")
	}

	// Identity follows the source document, so rebuilding the same analysis
	// resumes the existing pathway's sync state instead of minting a new one
	seed := doc.AnalysisID
	if seed == "" {
		seed = name
	}
	pathway, err := aggregates.NewPathwayWithID(aggregates.DerivePathwayID(seed), name, summaryDescription(doc))
	if err != nil {
		return nil, pkgerrors.Wrap(err, "create pathway")
	}

	nodeSeq, edgeSeq := 0, 0
	nextNodeID := func() valueobjects.NodeID {
		nodeSeq++
		return valueobjects.NewNodeID(nodeSeq)
	}
	nextEdgeID := func() valueobjects.EdgeID {
		edgeSeq++
		return valueobjects.NewEdgeID(edgeSeq)
	}

	// 1. Start node carries the opening voice prompt
	greeting := doc.VoicePrompt
	if strings.TrimSpace(greeting) == "" {
		greeting = defaultGreeting
	}
	start, err := entities.NewStartNode(nextNodeID(), b.cfg.StartNodeName, greeting, valueobjects.DefaultModelOptions())
	if err != nil {
		return nil, err
	}
	if err := pathway.AddNode(start); err != nil {
		return nil, err
	}

	// 2. One node per technique, chained in document order
	techniqueNodes := make([]*entities.Node, 0, len(doc.Techniques))
	for _, technique := range doc.Techniques {
		node, err := entities.NewDefaultNode(nextNodeID(), technique.Name, techniquePrompt(technique), valueobjects.DefaultModelOptions())
		if err != nil {
			return nil, pkgerrors.Wrapf(err, "technique %q", technique.Name)
		}
		if err := pathway.AddNode(node); err != nil {
			return nil, err
		}
		techniqueNodes = append(techniqueNodes, node)
	}

	// 3. One node per objection, anchored to its nearest preceding technique
	objectionNodes := make([]*entities.Node, 0, len(doc.Objections))
	for _, objection := range doc.Objections {
		node, err := entities.NewDefaultNode(nextNodeID(), "Handle "+objection.Name, objectionPrompt(objection), valueobjects.ObjectionModelOptions())
		if err != nil {
			return nil, pkgerrors.Wrapf(err, "objection %q", objection.Name)
		}
		if err := pathway.AddNode(node); err != nil {
			return nil, err
		}
		objectionNodes = append(objectionNodes, node)
	}

	// 4. Exactly one end node
	end, err := entities.NewEndCallNode(nextNodeID(), b.cfg.EndCallNodeName, b.cfg.EndCallPrompt)
	if err != nil {
		return nil, err
	}
	if err := pathway.AddNode(end); err != nil {
		return nil, err
	}

	// Optional global handler for caller frustration; no edges, the runtime
	// reaches it by trigger label
	if b.cfg.EnableGlobalFrustrationNode {
		global, err := entities.NewGlobalNode(
			nextNodeID(),
			b.cfg.GlobalHandlerName,
			"I understand this can be frustrating. Let me make sure I address your concern directly.",
			"user is frustrated or upset",
		)
		if err != nil {
			return nil, err
		}
		if err := pathway.AddNode(global); err != nil {
			return nil, err
		}
	}

	connect := func(source, target *entities.Node, label, description string) error {
		_, err := pathway.Connect(nextEdgeID(), source.ID(), target.ID(), label, description)
		return err
	}

	// Main chain: start → techniques → end
	chainTail := start
	for i, node := range techniqueNodes {
		label := labelContinue
		if i == 0 {
			label = labelBegin
		}
		if err := connect(chainTail, node, label, ""); err != nil {
			return nil, err
		}
		chainTail = node
	}
	if err := connect(chainTail, end, labelWrapUp, "conversation complete"); err != nil {
		return nil, err
	}

	// Objection branches: off the anchor, back into the chain, and a
	// converging edge into the end node
	for i, node := range objectionNodes {
		anchor, resume := b.anchorFor(i, start, techniqueNodes, end)
		desc := fmt.Sprintf("customer raises: %s", doc.Objections[i].Name)
		if err := connect(anchor, node, labelObjection, desc); err != nil {
			return nil, err
		}
		if resume != end {
			if err := connect(node, resume, labelResume, "objection resolved"); err != nil {
				return nil, err
			}
		}
		if err := connect(node, end, labelWrapUp, "customer declines"); err != nil {
			return nil, err
		}
	}

	b.logger.Debug("pathway built",
		zap.String("pathwayID", pathway.ID().String()),
		zap.Int("nodes", pathway.NodeCount()),
		zap.Int("edges", pathway.EdgeCount()),
	)

	return pathway, nil
}

// anchorFor picks the technique an objection branches from and the chain
// node its resume edge returns to. Objection i belongs to technique i when
// one exists, otherwise to the last technique; with no techniques at all it
// hangs off the start node and resumes straight into the end node.
func (b *GraphBuilder) anchorFor(i int, start *entities.Node, techniques []*entities.Node, end *entities.Node) (anchor, resume *entities.Node) {
	if len(techniques) == 0 {
		return start, end
	}
	idx := i
	if idx >= len(techniques) {
		idx = len(techniques) - 1
	}
	anchor = techniques[idx]
	if idx+1 < len(techniques) {
		resume = techniques[idx+1]
	} else {
		resume = end
	}
	return anchor, resume
}

func summaryDescription(doc AnalysisDocument) string {
	if strings.TrimSpace(doc.Summary) != "" {
		return doc.Summary
	}
	return "Automated sales conversation pathway"
}

func techniquePrompt(t TechniqueSection) string {
	if strings.TrimSpace(t.Description) != "" {
		return t.Description
	}
	if len(t.Examples) > 0 {
		return t.Examples[0]
	}
	return t.Name
}

func objectionPrompt(o ObjectionSection) string {
	if strings.TrimSpace(o.Description) != "" {
		return o.Description
	}
	if len(o.Examples) > 0 {
		return o.Examples[0]
	}
	return o.Name
}
