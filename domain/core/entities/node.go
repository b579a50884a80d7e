package entities

import (
	"strings"

	"pathway-engine/domain/core/valueobjects"
	pkgerrors "pathway-engine/pkg/errors"
)

// NodeKind discriminates the node variants a pathway can contain.
// Kind-specific payload lives only on the variants that need it.
type NodeKind string

const (
	NodeKindStart         NodeKind = "Start"
	NodeKindDefault       NodeKind = "Default"
	NodeKindEndCall       NodeKind = "End Call"
	NodeKindTransfer      NodeKind = "Transfer Call"
	NodeKindKnowledgeBase NodeKind = "Knowledge Base"
	NodeKindWebhook       NodeKind = "Webhook"
	NodeKindGlobal        NodeKind = "Global"
)

// Node is a single state in the dialogue graph. Fields are private; the
// aggregate and application layers go through the accessors so variant
// constraints cannot be bypassed.
type Node struct {
	id        valueobjects.NodeID
	kind      NodeKind
	name      string
	prompt    string
	condition string
	options   valueobjects.ModelOptions

	// Ordered knowledge base tool references. Order is preserved because the
	// runtime consults them in sequence.
	tools []valueobjects.KnowledgeBaseID

	// Variant payload
	transferNumber string
	webhookURL     string
	globalLabel    string
}

// newNode validates the fields shared by every variant
func newNode(id valueobjects.NodeID, kind NodeKind, name, prompt string, options valueobjects.ModelOptions) (*Node, error) {
	if id.IsZero() {
		return nil, pkgerrors.NewValidationError("node requires an id")
	}
	if strings.TrimSpace(name) == "" {
		return nil, pkgerrors.NewValidationError("node requires a name")
	}
	return &Node{
		id:      id,
		kind:    kind,
		name:    name,
		prompt:  prompt,
		options: options,
	}, nil
}

// NewStartNode creates the entry node of a pathway
func NewStartNode(id valueobjects.NodeID, name, prompt string, options valueobjects.ModelOptions) (*Node, error) {
	if strings.TrimSpace(prompt) == "" {
		return nil, pkgerrors.NewValidationError("start node requires a prompt")
	}
	return newNode(id, NodeKindStart, name, prompt, options)
}

// NewDefaultNode creates a conversational node
func NewDefaultNode(id valueobjects.NodeID, name, prompt string, options valueobjects.ModelOptions) (*Node, error) {
	return newNode(id, NodeKindDefault, name, prompt, options)
}

// NewEndCallNode creates a terminal node
func NewEndCallNode(id valueobjects.NodeID, name, prompt string) (*Node, error) {
	return newNode(id, NodeKindEndCall, name, prompt, valueobjects.DefaultModelOptions())
}

// NewTransferNode creates a node that hands the call to a phone number
func NewTransferNode(id valueobjects.NodeID, name, prompt, transferNumber string) (*Node, error) {
	if strings.TrimSpace(transferNumber) == "" {
		return nil, pkgerrors.NewValidationError("transfer node requires a transfer number")
	}
	node, err := newNode(id, NodeKindTransfer, name, prompt, valueobjects.DefaultModelOptions())
	if err != nil {
		return nil, err
	}
	node.transferNumber = transferNumber
	return node, nil
}

// NewKnowledgeBaseNode creates a node that answers from linked knowledge bases
func NewKnowledgeBaseNode(id valueobjects.NodeID, name, prompt string, options valueobjects.ModelOptions) (*Node, error) {
	return newNode(id, NodeKindKnowledgeBase, name, prompt, options)
}

// NewWebhookNode creates a node that calls out to an external URL mid-dialogue
func NewWebhookNode(id valueobjects.NodeID, name, prompt, webhookURL string) (*Node, error) {
	if !strings.HasPrefix(webhookURL, "http://") && !strings.HasPrefix(webhookURL, "https://") {
		return nil, pkgerrors.NewValidationError("webhook node requires an http(s) URL")
	}
	node, err := newNode(id, NodeKindWebhook, name, prompt, valueobjects.DefaultModelOptions())
	if err != nil {
		return nil, err
	}
	node.webhookURL = webhookURL
	return node, nil
}

// NewGlobalNode creates a node reachable from anywhere in the dialogue,
// such as a frustration handler. Global nodes carry no inbound edges.
func NewGlobalNode(id valueobjects.NodeID, name, prompt, label string) (*Node, error) {
	if strings.TrimSpace(label) == "" {
		return nil, pkgerrors.NewValidationError("global node requires a trigger label")
	}
	node, err := newNode(id, NodeKindGlobal, name, prompt, valueobjects.DefaultModelOptions())
	if err != nil {
		return nil, err
	}
	node.globalLabel = label
	return node, nil
}

// ReconstructNode recreates a node from stored data without re-validating
// variant constructors. Used by persistence and wire decoding.
func ReconstructNode(
	id valueobjects.NodeID,
	kind NodeKind,
	name, prompt, condition string,
	options valueobjects.ModelOptions,
	tools []valueobjects.KnowledgeBaseID,
	transferNumber, webhookURL, globalLabel string,
) *Node {
	return &Node{
		id:             id,
		kind:           kind,
		name:           name,
		prompt:         prompt,
		condition:      condition,
		options:        options,
		tools:          append([]valueobjects.KnowledgeBaseID(nil), tools...),
		transferNumber: transferNumber,
		webhookURL:     webhookURL,
		globalLabel:    globalLabel,
	}
}

// ID returns the node's identifier
func (n *Node) ID() valueobjects.NodeID {
	return n.id
}

// Kind returns the node's variant
func (n *Node) Kind() NodeKind {
	return n.kind
}

// Name returns the node's display name
func (n *Node) Name() string {
	return n.name
}

// Prompt returns the node's prompt text
func (n *Node) Prompt() string {
	return n.prompt
}

// Condition returns the transition condition, if any
func (n *Node) Condition() string {
	return n.condition
}

// Options returns the node's model options
func (n *Node) Options() valueobjects.ModelOptions {
	return n.options
}

// TransferNumber returns the transfer target; empty unless kind is Transfer
func (n *Node) TransferNumber() string {
	return n.transferNumber
}

// WebhookURL returns the webhook target; empty unless kind is Webhook
func (n *Node) WebhookURL() string {
	return n.webhookURL
}

// GlobalLabel returns the trigger label; empty unless kind is Global
func (n *Node) GlobalLabel() string {
	return n.globalLabel
}

// IsStart reports whether this is the pathway's entry node
func (n *Node) IsStart() bool {
	return n.kind == NodeKindStart
}

// IsTerminal reports whether the dialogue can end at this node
func (n *Node) IsTerminal() bool {
	return n.kind == NodeKindEndCall || n.kind == NodeKindTransfer
}

// SetCondition sets the transition condition
func (n *Node) SetCondition(condition string) {
	n.condition = condition
}

// Tools returns a copy of the node's knowledge base references, in order
func (n *Node) Tools() []valueobjects.KnowledgeBaseID {
	return append([]valueobjects.KnowledgeBaseID(nil), n.tools...)
}

// HasTool reports whether the node references the given knowledge base
func (n *Node) HasTool(kbID valueobjects.KnowledgeBaseID) bool {
	for _, t := range n.tools {
		if t.Equals(kbID) {
			return true
		}
	}
	return false
}

// ReplaceTools replaces the node's tool list wholesale
func (n *Node) ReplaceTools(kbIDs []valueobjects.KnowledgeBaseID) {
	n.tools = dedupeTools(kbIDs)
}

// MergeTools appends the given references, skipping ones already present
func (n *Node) MergeTools(kbIDs []valueobjects.KnowledgeBaseID) {
	n.tools = dedupeTools(append(n.tools, kbIDs...))
}

// RemoveTool removes a knowledge base reference if present. Returns whether
// anything changed, so callers can detach idempotently.
func (n *Node) RemoveTool(kbID valueobjects.KnowledgeBaseID) bool {
	for i, t := range n.tools {
		if t.Equals(kbID) {
			n.tools = append(n.tools[:i], n.tools[i+1:]...)
			return true
		}
	}
	return false
}

func dedupeTools(kbIDs []valueobjects.KnowledgeBaseID) []valueobjects.KnowledgeBaseID {
	seen := make(map[string]bool, len(kbIDs))
	out := make([]valueobjects.KnowledgeBaseID, 0, len(kbIDs))
	for _, id := range kbIDs {
		if id.IsZero() || seen[id.String()] {
			continue
		}
		seen[id.String()] = true
		out = append(out, id)
	}
	return out
}
