package valueobjects

import (
	"errors"
	"fmt"

	"github.com/google/uuid"
)

// NodeID is a value object identifying a node within a pathway.
// Builder-produced ids are positional ("node-1", "node-2", ...) so the same
// analysis document always yields the same graph.
type NodeID struct {
	value string
}

// NewNodeID creates a positional NodeID for the given 1-based sequence number
func NewNodeID(seq int) NodeID {
	return NodeID{value: fmt.Sprintf("node-%d", seq)}
}

// NewNodeIDFromString creates a NodeID from an existing string
func NewNodeIDFromString(id string) (NodeID, error) {
	if id == "" {
		return NodeID{}, errors.New("node ID cannot be empty")
	}
	return NodeID{value: id}, nil
}

// String returns the string representation of the NodeID
func (id NodeID) String() string {
	return id.value
}

// Equals checks if two NodeIDs are equal
func (id NodeID) Equals(other NodeID) bool {
	return id.value == other.value
}

// IsZero checks if the NodeID is the zero value
func (id NodeID) IsZero() bool {
	return id.value == ""
}

// MarshalJSON implements json.Marshaler
func (id NodeID) MarshalJSON() ([]byte, error) {
	return []byte(`"` + id.value + `"`), nil
}

// UnmarshalJSON implements json.Unmarshaler
func (id *NodeID) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		return nil
	}
	if len(data) < 2 || data[0] != '"' || data[len(data)-1] != '"' {
		return errors.New("NodeID must be a string")
	}
	id.value = string(data[1 : len(data)-1])
	return nil
}

// EdgeID is a value object identifying an edge within a pathway.
// Positional like NodeID ("edge-1", "edge-2", ...).
type EdgeID struct {
	value string
}

// NewEdgeID creates a positional EdgeID for the given 1-based sequence number
func NewEdgeID(seq int) EdgeID {
	return EdgeID{value: fmt.Sprintf("edge-%d", seq)}
}

// NewEdgeIDFromString creates an EdgeID from an existing string
func NewEdgeIDFromString(id string) (EdgeID, error) {
	if id == "" {
		return EdgeID{}, errors.New("edge ID cannot be empty")
	}
	return EdgeID{value: id}, nil
}

// String returns the string representation of the EdgeID
func (id EdgeID) String() string {
	return id.value
}

// Equals checks if two EdgeIDs are equal
func (id EdgeID) Equals(other EdgeID) bool {
	return id.value == other.value
}

// IsZero checks if the EdgeID is the zero value
func (id EdgeID) IsZero() bool {
	return id.value == ""
}

// KnowledgeBaseID identifies a knowledge base, locally and on the remote
// runtime once created there.
type KnowledgeBaseID struct {
	value string
}

// NewKnowledgeBaseID creates a new random KnowledgeBaseID
func NewKnowledgeBaseID() KnowledgeBaseID {
	return KnowledgeBaseID{value: "kb-" + uuid.New().String()}
}

// NewKnowledgeBaseIDFromString creates a KnowledgeBaseID from an existing string
func NewKnowledgeBaseIDFromString(id string) (KnowledgeBaseID, error) {
	if id == "" {
		return KnowledgeBaseID{}, errors.New("knowledge base ID cannot be empty")
	}
	return KnowledgeBaseID{value: id}, nil
}

// String returns the string representation of the KnowledgeBaseID
func (id KnowledgeBaseID) String() string {
	return id.value
}

// Equals checks if two KnowledgeBaseIDs are equal
func (id KnowledgeBaseID) Equals(other KnowledgeBaseID) bool {
	return id.value == other.value
}

// IsZero checks if the KnowledgeBaseID is the zero value
func (id KnowledgeBaseID) IsZero() bool {
	return id.value == ""
}

// PromptID identifies a stored prompt resource on the remote runtime
type PromptID struct {
	value string
}

// NewPromptIDFromString creates a PromptID from a runtime-assigned id
func NewPromptIDFromString(id string) (PromptID, error) {
	if id == "" {
		return PromptID{}, errors.New("prompt ID cannot be empty")
	}
	return PromptID{value: id}, nil
}

// String returns the string representation of the PromptID
func (id PromptID) String() string {
	return id.value
}

// IsZero checks if the PromptID is the zero value
func (id PromptID) IsZero() bool {
	return id.value == ""
}
