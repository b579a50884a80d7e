package sync

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"time"

	"go.uber.org/zap"

	"pathway-engine/application/ports"
	"pathway-engine/domain/core/aggregates"
	"pathway-engine/domain/core/entities"
	pkgerrors "pathway-engine/pkg/errors"
)

// StateTracker remembers what was last pushed to the remote runtime so
// unchanged resources sync as a no-op without any network traffic.
type StateTracker struct {
	records ports.SyncRecordRepository
	logger  *zap.Logger
}

// NewStateTracker creates a state tracker
func NewStateTracker(records ports.SyncRecordRepository, logger *zap.Logger) *StateTracker {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &StateTracker{records: records, logger: logger}
}

// PathwayChecksum computes the checksum of a pathway's canonical form.
// The snapshot is already deterministically ordered, so identical content
// always hashes identically. The aggregate id is identity, not content,
// and is left out: a rebuild matches its previous push even if the two
// aggregates were minted separately.
func PathwayChecksum(snapshot aggregates.PathwaySnapshot) (string, error) {
	snapshot.ID = ""
	data, err := json.Marshal(snapshot)
	if err != nil {
		return "", pkgerrors.Wrap(err, "encode pathway snapshot")
	}
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:]), nil
}

// KnowledgeBaseChecksum computes the checksum of a knowledge base's
// syncable content
func KnowledgeBaseChecksum(kb *entities.KnowledgeBase) string {
	h := sha256.New()
	h.Write([]byte(kb.Name()))
	h.Write([]byte{0})
	h.Write([]byte(kb.Description()))
	h.Write([]byte{0})
	h.Write([]byte(kb.Content()))
	return hex.EncodeToString(h.Sum(nil))
}

// Lookup returns the sync record for a resource, or nil when it has never
// been synced
func (t *StateTracker) Lookup(ctx context.Context, kind ports.ResourceKind, resourceID string) (*ports.SyncRecord, error) {
	record, err := t.records.Get(ctx, kind, resourceID)
	if err != nil {
		return nil, pkgerrors.Wrap(err, "load sync record")
	}
	return record, nil
}

// IsUpToDate reports whether the resource's last synced checksum matches
// the given one. Returns the remote id when a record exists.
func (t *StateTracker) IsUpToDate(ctx context.Context, kind ports.ResourceKind, resourceID, checksum string) (bool, string, error) {
	record, err := t.Lookup(ctx, kind, resourceID)
	if err != nil {
		return false, "", err
	}
	if record == nil {
		return false, "", nil
	}
	return record.Checksum == checksum, record.RemoteID, nil
}

// RecordSynced stores the outcome of a successful push
func (t *StateTracker) RecordSynced(ctx context.Context, kind ports.ResourceKind, resourceID, remoteID, checksum string) error {
	err := t.records.Put(ctx, ports.SyncRecord{
		ResourceID: resourceID,
		Kind:       kind,
		RemoteID:   remoteID,
		Checksum:   checksum,
		SyncedAt:   time.Now(),
	})
	if err != nil {
		return pkgerrors.Wrap(err, "store sync record")
	}
	t.logger.Debug("sync record updated",
		zap.String("kind", string(kind)),
		zap.String("resourceID", resourceID),
		zap.String("remoteID", remoteID),
	)
	return nil
}

// Forget drops the sync record for a resource, forcing the next sync to
// push unconditionally
func (t *StateTracker) Forget(ctx context.Context, kind ports.ResourceKind, resourceID string) error {
	return t.records.Delete(ctx, kind, resourceID)
}
