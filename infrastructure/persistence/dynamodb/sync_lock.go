package dynamodb

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"go.uber.org/zap"

	"pathway-engine/application/ports"
)

// SyncLockManager serializes pathway syncs across processes using DynamoDB
// conditional writes. The in-process mutation locks handle concurrency
// inside one process; this guards against two deployments syncing the same
// resource at once. Expired locks are reclaimed on the next acquire and
// swept by the table's TTL attribute.
type SyncLockManager struct {
	client    *dynamodb.Client
	tableName string
	logger    *zap.Logger
}

// NewSyncLockManager creates a DynamoDB-backed sync lock manager
func NewSyncLockManager(client *dynamodb.Client, tableName string, logger *zap.Logger) *SyncLockManager {
	return &SyncLockManager{
		client:    client,
		tableName: tableName,
		logger:    logger,
	}
}

var _ ports.SyncLockManager = (*SyncLockManager)(nil)

func lockItemKey(kind ports.ResourceKind, resourceID string) (string, string) {
	return fmt.Sprintf("SYNCLOCK#%s#%s", kind, resourceID), "LOCK"
}

// Acquire tries to take the lock for a resource. Returns false without
// error when another owner holds it.
func (m *SyncLockManager) Acquire(ctx context.Context, kind ports.ResourceKind, resourceID, ownerID string, ttl time.Duration) (bool, error) {
	pk, sk := lockItemKey(kind, resourceID)
	now := time.Now()
	expiresAt := now.Add(ttl)

	item := map[string]types.AttributeValue{
		"PK":         &types.AttributeValueMemberS{Value: pk},
		"SK":         &types.AttributeValueMemberS{Value: sk},
		"Owner":      &types.AttributeValueMemberS{Value: ownerID},
		"AcquiredAt": &types.AttributeValueMemberS{Value: now.Format(time.RFC3339)},
		"ExpiresAt":  &types.AttributeValueMemberS{Value: expiresAt.Format(time.RFC3339)},
		"TTL":        &types.AttributeValueMemberN{Value: fmt.Sprintf("%d", expiresAt.Unix())},
	}

	_, err := m.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName:           aws.String(m.tableName),
		Item:                item,
		ConditionExpression: aws.String("attribute_not_exists(PK) OR ExpiresAt < :now OR #owner = :owner"),
		ExpressionAttributeNames: map[string]string{
			"#owner": "Owner",
		},
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":now":   &types.AttributeValueMemberS{Value: now.Format(time.RFC3339)},
			":owner": &types.AttributeValueMemberS{Value: ownerID},
		},
	})
	if err != nil {
		var conditionFailed *types.ConditionalCheckFailedException
		if errors.As(err, &conditionFailed) {
			m.logger.Debug("Sync lock held elsewhere",
				zap.String("kind", string(kind)),
				zap.String("resourceID", resourceID),
			)
			return false, nil
		}
		return false, fmt.Errorf("failed to acquire sync lock: %w", err)
	}
	return true, nil
}

// Release drops the lock if the owner still holds it. Releasing a lock
// that expired and was reclaimed is a no-op.
func (m *SyncLockManager) Release(ctx context.Context, kind ports.ResourceKind, resourceID, ownerID string) error {
	pk, sk := lockItemKey(kind, resourceID)

	_, err := m.client.DeleteItem(ctx, &dynamodb.DeleteItemInput{
		TableName:           aws.String(m.tableName),
		Key:                 itemKey(pk, sk),
		ConditionExpression: aws.String("#owner = :owner"),
		ExpressionAttributeNames: map[string]string{
			"#owner": "Owner",
		},
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":owner": &types.AttributeValueMemberS{Value: ownerID},
		},
	})
	if err != nil {
		var conditionFailed *types.ConditionalCheckFailedException
		if errors.As(err, &conditionFailed) {
			return nil
		}
		return fmt.Errorf("failed to release sync lock: %w", err)
	}
	return nil
}
