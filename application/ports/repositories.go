package ports

import (
	"context"
	"time"

	"pathway-engine/domain/core/aggregates"
	"pathway-engine/domain/core/entities"
	"pathway-engine/domain/core/valueobjects"
	"pathway-engine/domain/events"
)

// ResourceKind names a class of syncable resource. It is half of the
// identity used by caches, locks and sync records.
type ResourceKind string

const (
	ResourceKindPathway       ResourceKind = "pathway"
	ResourceKindKnowledgeBase ResourceKind = "knowledge_base"
	ResourceKindPrompt        ResourceKind = "prompt"
)

// SyncRecord tracks the last state of a resource pushed to the remote
// runtime. An unchanged checksum lets a sync complete without network I/O.
type SyncRecord struct {
	ResourceID string
	Kind       ResourceKind
	RemoteID   string
	Checksum   string
	SyncedAt   time.Time
}

// OrphanCandidate marks a remote resource that may no longer be needed.
// Candidates are only recorded, never deleted automatically.
type OrphanCandidate struct {
	ResourceID string
	Kind       ResourceKind
	Reason     string
	MarkedAt   time.Time
}

// PathwaySummary is a lightweight remote pathway listing entry
type PathwaySummary struct {
	RemoteID    string
	Name        string
	Description string
	NodeCount   int
	EdgeCount   int
	UpdatedAt   time.Time
}

// KnowledgeBaseResource is the remote runtime's form of a knowledge base
type KnowledgeBaseResource struct {
	RemoteID    string
	Name        string
	Description string
	Content     string
}

// RuntimeClient is the port to the remote voice-agent runtime. The
// implementation owns rate limiting, retries, caching and per-resource
// serialization; callers just see the operations.
type RuntimeClient interface {
	// CreatePathway uploads a new pathway and returns the runtime-assigned id
	CreatePathway(ctx context.Context, snapshot aggregates.PathwaySnapshot) (string, error)

	// UpdatePathway replaces the remote pathway's nodes and edges
	UpdatePathway(ctx context.Context, remoteID string, snapshot aggregates.PathwaySnapshot) error

	// GetPathway fetches a pathway in canonical form
	GetPathway(ctx context.Context, remoteID string) (aggregates.PathwaySnapshot, error)

	// ListPathways lists the pathways known to the runtime
	ListPathways(ctx context.Context) ([]PathwaySummary, error)

	// CreateKnowledgeBase uploads a knowledge base and returns the
	// runtime-assigned id
	CreateKnowledgeBase(ctx context.Context, kb *entities.KnowledgeBase) (string, error)

	// GetKnowledgeBase fetches a knowledge base from the runtime
	GetKnowledgeBase(ctx context.Context, remoteID string) (*KnowledgeBaseResource, error)

	// UpdateKnowledgeBase replaces a remote knowledge base's content
	UpdateKnowledgeBase(ctx context.Context, remoteID string, kb *entities.KnowledgeBase) error

	// DeleteKnowledgeBase removes a knowledge base from the runtime
	DeleteKnowledgeBase(ctx context.Context, remoteID string) error

	// CreatePrompt stores a voice prompt and returns its id; pathway uploads
	// reference stored prompts instead of inlining long text
	CreatePrompt(ctx context.Context, name, text string) (valueobjects.PromptID, error)

	// GetPrompt fetches a stored prompt's text
	GetPrompt(ctx context.Context, id valueobjects.PromptID) (string, error)
}

// SyncRecordRepository persists sync bookkeeping
type SyncRecordRepository interface {
	// Get retrieves the sync record for a resource, or nil when never synced
	Get(ctx context.Context, kind ResourceKind, resourceID string) (*SyncRecord, error)

	// Put stores a sync record, replacing any previous one
	Put(ctx context.Context, record SyncRecord) error

	// Delete removes a sync record
	Delete(ctx context.Context, kind ResourceKind, resourceID string) error
}

// LinkRepository persists pathway to knowledge base links and orphan
// candidate bookkeeping
type LinkRepository interface {
	// PutLink records that a pathway references a knowledge base
	PutLink(ctx context.Context, pathwayID, kbID string) error

	// DeleteLink removes a single pathway to knowledge base link
	DeleteLink(ctx context.Context, pathwayID, kbID string) error

	// LinksForPathway lists the knowledge base ids a pathway references
	LinksForPathway(ctx context.Context, pathwayID string) ([]string, error)

	// PathwaysForKnowledgeBase lists the pathway ids referencing a knowledge base
	PathwaysForKnowledgeBase(ctx context.Context, kbID string) ([]string, error)

	// MarkOrphanCandidate flags a resource for manual review
	MarkOrphanCandidate(ctx context.Context, candidate OrphanCandidate) error

	// ListOrphanCandidates lists resources flagged for manual review
	ListOrphanCandidates(ctx context.Context) ([]OrphanCandidate, error)

	// ClearOrphanCandidate removes the flag from a resource
	ClearOrphanCandidate(ctx context.Context, kind ResourceKind, resourceID string) error
}

// KnowledgeBaseRepository persists knowledge base entities locally
type KnowledgeBaseRepository interface {
	// Save persists a knowledge base (create or update)
	Save(ctx context.Context, kb *entities.KnowledgeBase) error

	// GetByID retrieves a knowledge base by its ID
	GetByID(ctx context.Context, id valueobjects.KnowledgeBaseID) (*entities.KnowledgeBase, error)

	// List retrieves all knowledge bases
	List(ctx context.Context) ([]*entities.KnowledgeBase, error)

	// Delete removes a knowledge base
	Delete(ctx context.Context, id valueobjects.KnowledgeBaseID) error
}

// SyncLockManager serializes syncs on a resource across processes. Acquire
// returns false when another owner currently holds the lock.
type SyncLockManager interface {
	Acquire(ctx context.Context, kind ResourceKind, resourceID, ownerID string, ttl time.Duration) (bool, error)
	Release(ctx context.Context, kind ResourceKind, resourceID, ownerID string) error
}

// EventPublisher defines the interface for publishing domain events
type EventPublisher interface {
	// Publish sends a single event
	Publish(ctx context.Context, event events.DomainEvent) error

	// PublishBatch sends multiple events
	PublishBatch(ctx context.Context, events []events.DomainEvent) error
}

// Cache defines the interface for caching remote reads
type Cache interface {
	// Get retrieves a value from cache
	Get(ctx context.Context, key string) (interface{}, bool)

	// Set stores a value in cache with a TTL
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error

	// Delete removes a value from cache
	Delete(ctx context.Context, key string) error

	// Clear removes all values from cache
	Clear(ctx context.Context) error
}
