package events

import (
	"time"

	"pathway-engine/domain/core/valueobjects"
)

// DomainEvent is the interface all domain events implement
type DomainEvent interface {
	GetAggregateID() string
	GetEventType() string
	GetTimestamp() time.Time
	GetVersion() int
}

// BaseEvent provides common event fields
type BaseEvent struct {
	AggregateID string
	EventType   string
	Timestamp   time.Time
	Version     int
}

// GetAggregateID returns the aggregate ID
func (e BaseEvent) GetAggregateID() string { return e.AggregateID }

// GetEventType returns the event type
func (e BaseEvent) GetEventType() string { return e.EventType }

// GetTimestamp returns when the event occurred
func (e BaseEvent) GetTimestamp() time.Time { return e.Timestamp }

// GetVersion returns the event version
func (e BaseEvent) GetVersion() int { return e.Version }

// PathwayCreated is emitted when a new pathway aggregate is created
type PathwayCreated struct {
	BaseEvent
	PathwayID string
	Name      string
}

// NodeAdded is emitted when a node joins a pathway
type NodeAdded struct {
	BaseEvent
	PathwayID string
	NodeID    valueobjects.NodeID
	Kind      string
}

// NodesConnected is emitted when an edge is created between two nodes
type NodesConnected struct {
	BaseEvent
	PathwayID string
	SourceID  valueobjects.NodeID
	TargetID  valueobjects.NodeID
	Label     string
}

// NodeRemoved is emitted when a node and its edges leave a pathway
type NodeRemoved struct {
	BaseEvent
	PathwayID string
	NodeID    valueobjects.NodeID
}

// KnowledgeBaseLinked is emitted when tool references on a node change
type KnowledgeBaseLinked struct {
	BaseEvent
	PathwayID string
	NodeID    valueobjects.NodeID
	ToolIDs   []string
}

// KnowledgeBaseDetached is emitted when a knowledge base is removed from
// every node of a pathway
type KnowledgeBaseDetached struct {
	BaseEvent
	PathwayID       string
	KnowledgeBaseID valueobjects.KnowledgeBaseID
	NodesTouched    int
}

// PathwaySynced is emitted after a pathway reaches the remote runtime
type PathwaySynced struct {
	BaseEvent
	PathwayID string
	RemoteID  string
	Checksum  string
	NoOp      bool
}

// PathwaySyncFailed is emitted when a sync attempt gives up
type PathwaySyncFailed struct {
	BaseEvent
	PathwayID string
	Reason    string
	Succeeded []string
	Failed    []string
}

// KnowledgeBaseSynced is emitted after a knowledge base reaches the remote
// runtime
type KnowledgeBaseSynced struct {
	BaseEvent
	KnowledgeBaseID string
	Checksum        string
}
