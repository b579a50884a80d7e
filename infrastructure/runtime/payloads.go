package runtime

import (
	"pathway-engine/domain/core/aggregates"
	"pathway-engine/domain/core/entities"
)

// Wire types for the voice-agent runtime API. The runtime models a pathway
// as node and edge lists where the start node is flagged rather than typed,
// and long prompts are uploaded separately and referenced by id.

type wireModelOptions struct {
	ModelType             string  `json:"modelType"`
	Temperature           float64 `json:"temperature"`
	InterruptionThreshold float64 `json:"interruptionThreshold"`
}

type wireNode struct {
	ID             string            `json:"id"`
	Type           string            `json:"type"`
	Name           string            `json:"name"`
	Text           string            `json:"text,omitempty"`
	Prompt         string            `json:"prompt,omitempty"`
	PromptID       string            `json:"prompt_id,omitempty"`
	Condition      string            `json:"condition,omitempty"`
	IsStart        bool              `json:"isStart,omitempty"`
	IsGlobal       bool              `json:"isGlobal,omitempty"`
	GlobalLabel    string            `json:"globalLabel,omitempty"`
	TransferNumber string            `json:"transferNumber,omitempty"`
	WebhookURL     string            `json:"webhookUrl,omitempty"`
	KnowledgeBases []string          `json:"kb,omitempty"`
	ModelOptions   *wireModelOptions `json:"modelOptions,omitempty"`
}

type wireEdge struct {
	ID          string `json:"id"`
	Source      string `json:"source"`
	Target      string `json:"target"`
	Label       string `json:"label"`
	Condition   string `json:"condition,omitempty"`
	Description string `json:"description,omitempty"`
}

type wirePathway struct {
	Name        string     `json:"name"`
	Description string     `json:"description,omitempty"`
	Nodes       []wireNode `json:"nodes"`
	Edges       []wireEdge `json:"edges"`
}

type wireKnowledgeBase struct {
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	Content     string `json:"content"`
}

type wirePrompt struct {
	Name   string `json:"name,omitempty"`
	Prompt string `json:"prompt"`
}

// Response envelopes

type pathwayCreateResponse struct {
	Status    string `json:"status"`
	PathwayID string `json:"pathway_id"`
	Message   string `json:"message,omitempty"`
}

type pathwayListResponse struct {
	Pathways []pathwayListEntry `json:"pathways"`
}

type pathwayListEntry struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	NodeCount   int    `json:"node_count"`
	EdgeCount   int    `json:"edge_count"`
	UpdatedAt   string `json:"updated_at,omitempty"`
}

type pathwayGetResponse struct {
	ID          string     `json:"id"`
	Name        string     `json:"name"`
	Description string     `json:"description,omitempty"`
	Nodes       []wireNode `json:"nodes"`
	Edges       []wireEdge `json:"edges"`
}

type knowledgeBaseResponse struct {
	Status string `json:"status"`
	KBID   string `json:"kb_id"`
}

type knowledgeBaseGetResponse struct {
	KBID        string `json:"kb_id"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	Content     string `json:"content"`
}

type promptResponse struct {
	Status   string `json:"status"`
	PromptID string `json:"prompt_id"`
}

type promptGetResponse struct {
	PromptID string `json:"prompt_id"`
	Name     string `json:"name,omitempty"`
	Prompt   string `json:"prompt"`
}

type errorResponse struct {
	Status  string `json:"status"`
	Message string `json:"message"`
	Errors  []struct {
		Message string `json:"message"`
	} `json:"errors,omitempty"`
}

// toWirePathway converts a canonical snapshot into the runtime's format.
// The start node's type stays Default on the wire; the isStart flag carries
// the distinction.
func toWirePathway(snapshot aggregates.PathwaySnapshot) wirePathway {
	wp := wirePathway{
		Name:        snapshot.Name,
		Description: snapshot.Description,
		Nodes:       make([]wireNode, 0, len(snapshot.Nodes)),
		Edges:       make([]wireEdge, 0, len(snapshot.Edges)),
	}

	for _, node := range snapshot.Nodes {
		wn := wireNode{
			ID:             node.ID,
			Type:           wireNodeType(entities.NodeKind(node.Kind)),
			Name:           node.Name,
			Prompt:         node.Prompt,
			Condition:      node.Condition,
			IsStart:        entities.NodeKind(node.Kind) == entities.NodeKindStart,
			IsGlobal:       entities.NodeKind(node.Kind) == entities.NodeKindGlobal,
			GlobalLabel:    node.GlobalLabel,
			TransferNumber: node.TransferNumber,
			WebhookURL:     node.WebhookURL,
			KnowledgeBases: node.Tools,
			ModelOptions: &wireModelOptions{
				ModelType:             "smart",
				Temperature:           node.Temperature,
				InterruptionThreshold: node.InterruptionThreshold,
			},
		}
		wp.Nodes = append(wp.Nodes, wn)
	}

	for _, edge := range snapshot.Edges {
		wp.Edges = append(wp.Edges, wireEdge{
			ID:          edge.ID,
			Source:      edge.Source,
			Target:      edge.Target,
			Label:       edge.Label,
			Condition:   edge.Condition,
			Description: edge.Description,
		})
	}

	return wp
}

// wireNodeType maps domain node kinds to the runtime's type names. Start is
// a flag on the wire, not a type.
func wireNodeType(kind entities.NodeKind) string {
	switch kind {
	case entities.NodeKindStart:
		return string(entities.NodeKindDefault)
	case entities.NodeKindGlobal:
		return string(entities.NodeKindDefault)
	default:
		return string(kind)
	}
}

// fromWirePathway converts a runtime pathway back into canonical form
func fromWirePathway(resp pathwayGetResponse) aggregates.PathwaySnapshot {
	snapshot := aggregates.PathwaySnapshot{
		ID:          resp.ID,
		Name:        resp.Name,
		Description: resp.Description,
		Nodes:       make([]aggregates.NodeSnapshot, 0, len(resp.Nodes)),
		Edges:       make([]aggregates.EdgeSnapshot, 0, len(resp.Edges)),
	}

	for _, wn := range resp.Nodes {
		kind := entities.NodeKind(wn.Type)
		if wn.IsStart {
			kind = entities.NodeKindStart
		} else if wn.IsGlobal {
			kind = entities.NodeKindGlobal
		}
		ns := aggregates.NodeSnapshot{
			ID:             wn.ID,
			Kind:           string(kind),
			Name:           wn.Name,
			Prompt:         wn.Prompt,
			Condition:      wn.Condition,
			Tools:          wn.KnowledgeBases,
			TransferNumber: wn.TransferNumber,
			WebhookURL:     wn.WebhookURL,
			GlobalLabel:    wn.GlobalLabel,
		}
		if wn.ModelOptions != nil {
			ns.Temperature = wn.ModelOptions.Temperature
			ns.InterruptionThreshold = wn.ModelOptions.InterruptionThreshold
		}
		snapshot.Nodes = append(snapshot.Nodes, ns)
	}

	for _, we := range resp.Edges {
		snapshot.Edges = append(snapshot.Edges, aggregates.EdgeSnapshot{
			ID:          we.ID,
			Source:      we.Source,
			Target:      we.Target,
			Label:       we.Label,
			Condition:   we.Condition,
			Description: we.Description,
		})
	}

	return snapshot
}
