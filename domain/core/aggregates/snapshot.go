package aggregates

import (
	"time"

	"pathway-engine/domain/core/entities"
	"pathway-engine/domain/core/valueobjects"
)

// PathwaySnapshot is the canonical serializable form of a pathway. Nodes and
// edges appear sorted by id, so encoding the same pathway always yields the
// same bytes. Checksums and wire payloads are both derived from it.
type PathwaySnapshot struct {
	ID          string         `json:"id"`
	Name        string         `json:"name"`
	Description string         `json:"description,omitempty"`
	Nodes       []NodeSnapshot `json:"nodes"`
	Edges       []EdgeSnapshot `json:"edges"`
}

// NodeSnapshot is the serializable form of a node
type NodeSnapshot struct {
	ID                    string   `json:"id"`
	Kind                  string   `json:"kind"`
	Name                  string   `json:"name"`
	Prompt                string   `json:"prompt,omitempty"`
	Condition             string   `json:"condition,omitempty"`
	Temperature           float64  `json:"temperature"`
	InterruptionThreshold float64  `json:"interruption_threshold"`
	Tools                 []string `json:"tools,omitempty"`
	TransferNumber        string   `json:"transfer_number,omitempty"`
	WebhookURL            string   `json:"webhook_url,omitempty"`
	GlobalLabel           string   `json:"global_label,omitempty"`
}

// EdgeSnapshot is the serializable form of an edge
type EdgeSnapshot struct {
	ID          string `json:"id"`
	Source      string `json:"source"`
	Target      string `json:"target"`
	Label       string `json:"label"`
	Condition   string `json:"condition,omitempty"`
	Description string `json:"description,omitempty"`
}

// Snapshot produces the canonical form of the pathway
func (p *Pathway) Snapshot() PathwaySnapshot {
	snapshot := PathwaySnapshot{
		ID:          p.id.String(),
		Name:        p.name,
		Description: p.description,
		Nodes:       make([]NodeSnapshot, 0, len(p.nodes)),
		Edges:       make([]EdgeSnapshot, 0, len(p.edges)),
	}

	for _, node := range p.Nodes() {
		ns := NodeSnapshot{
			ID:                    node.ID().String(),
			Kind:                  string(node.Kind()),
			Name:                  node.Name(),
			Prompt:                node.Prompt(),
			Condition:             node.Condition(),
			Temperature:           node.Options().Temperature(),
			InterruptionThreshold: node.Options().InterruptionThreshold(),
			TransferNumber:        node.TransferNumber(),
			WebhookURL:            node.WebhookURL(),
			GlobalLabel:           node.GlobalLabel(),
		}
		for _, tool := range node.Tools() {
			ns.Tools = append(ns.Tools, tool.String())
		}
		snapshot.Nodes = append(snapshot.Nodes, ns)
	}

	for _, edge := range p.Edges() {
		snapshot.Edges = append(snapshot.Edges, EdgeSnapshot{
			ID:          edge.ID.String(),
			Source:      edge.SourceID.String(),
			Target:      edge.TargetID.String(),
			Label:       edge.Label,
			Condition:   edge.Condition,
			Description: edge.Description,
		})
	}

	return snapshot
}

// FromSnapshot rebuilds a pathway aggregate from its canonical form
func FromSnapshot(snapshot PathwaySnapshot) (*Pathway, error) {
	pathway, err := ReconstructPathway(snapshot.ID, snapshot.Name, snapshot.Description, time.Now(), time.Now())
	if err != nil {
		return nil, err
	}

	for _, ns := range snapshot.Nodes {
		nodeID, err := valueobjects.NewNodeIDFromString(ns.ID)
		if err != nil {
			return nil, err
		}
		options, err := valueobjects.NewModelOptions(ns.Temperature, ns.InterruptionThreshold)
		if err != nil {
			return nil, err
		}
		tools := make([]valueobjects.KnowledgeBaseID, 0, len(ns.Tools))
		for _, t := range ns.Tools {
			kbID, err := valueobjects.NewKnowledgeBaseIDFromString(t)
			if err != nil {
				return nil, err
			}
			tools = append(tools, kbID)
		}
		node := entities.ReconstructNode(
			nodeID, entities.NodeKind(ns.Kind), ns.Name, ns.Prompt, ns.Condition,
			options, tools, ns.TransferNumber, ns.WebhookURL, ns.GlobalLabel,
		)
		if err := pathway.AddNode(node); err != nil {
			return nil, err
		}
	}

	for _, es := range snapshot.Edges {
		edgeID, err := valueobjects.NewEdgeIDFromString(es.ID)
		if err != nil {
			return nil, err
		}
		sourceID, err := valueobjects.NewNodeIDFromString(es.Source)
		if err != nil {
			return nil, err
		}
		targetID, err := valueobjects.NewNodeIDFromString(es.Target)
		if err != nil {
			return nil, err
		}
		edge, err := pathway.Connect(edgeID, sourceID, targetID, es.Label, es.Description)
		if err != nil {
			return nil, err
		}
		edge.Condition = es.Condition
	}

	pathway.MarkEventsAsCommitted()
	return pathway, nil
}
