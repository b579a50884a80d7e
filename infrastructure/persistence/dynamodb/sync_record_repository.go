package dynamodb

import (
	"context"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"go.uber.org/zap"

	"pathway-engine/application/ports"
)

// SyncRecordRepository persists sync bookkeeping in DynamoDB. One item per
// synced resource, keyed by kind and local id.
type SyncRecordRepository struct {
	client    *dynamodb.Client
	tableName string
	logger    *zap.Logger
}

// NewSyncRecordRepository creates a DynamoDB-backed sync record repository
func NewSyncRecordRepository(client *dynamodb.Client, tableName string, logger *zap.Logger) ports.SyncRecordRepository {
	return &SyncRecordRepository{
		client:    client,
		tableName: tableName,
		logger:    logger,
	}
}

// syncRecordItem is the DynamoDB item structure for a sync record
type syncRecordItem struct {
	PK         string `dynamodbav:"PK"`
	SK         string `dynamodbav:"SK"`
	EntityType string `dynamodbav:"EntityType"`
	ResourceID string `dynamodbav:"ResourceID"`
	Kind       string `dynamodbav:"Kind"`
	RemoteID   string `dynamodbav:"RemoteID"`
	Checksum   string `dynamodbav:"Checksum"`
	SyncedAt   string `dynamodbav:"SyncedAt"`
}

func syncRecordKey(kind ports.ResourceKind, resourceID string) (string, string) {
	return fmt.Sprintf("SYNC#%s", kind), fmt.Sprintf("RESOURCE#%s", resourceID)
}

// Get retrieves the sync record for a resource, or nil when never synced
func (r *SyncRecordRepository) Get(ctx context.Context, kind ports.ResourceKind, resourceID string) (*ports.SyncRecord, error) {
	pk, sk := syncRecordKey(kind, resourceID)

	result, err := r.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: aws.String(r.tableName),
		Key:       itemKey(pk, sk),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to get sync record: %w", err)
	}
	if result.Item == nil {
		return nil, nil
	}

	var item syncRecordItem
	if err := attributevalue.UnmarshalMap(result.Item, &item); err != nil {
		return nil, fmt.Errorf("failed to unmarshal sync record: %w", err)
	}

	record := &ports.SyncRecord{
		ResourceID: item.ResourceID,
		Kind:       ports.ResourceKind(item.Kind),
		RemoteID:   item.RemoteID,
		Checksum:   item.Checksum,
	}
	if ts, err := time.Parse(time.RFC3339, item.SyncedAt); err == nil {
		record.SyncedAt = ts
	}
	return record, nil
}

// Put stores a sync record, replacing any previous one
func (r *SyncRecordRepository) Put(ctx context.Context, record ports.SyncRecord) error {
	pk, sk := syncRecordKey(record.Kind, record.ResourceID)

	item := syncRecordItem{
		PK:         pk,
		SK:         sk,
		EntityType: "SYNC_RECORD",
		ResourceID: record.ResourceID,
		Kind:       string(record.Kind),
		RemoteID:   record.RemoteID,
		Checksum:   record.Checksum,
		SyncedAt:   record.SyncedAt.Format(time.RFC3339),
	}

	av, err := attributevalue.MarshalMap(item)
	if err != nil {
		return fmt.Errorf("failed to marshal sync record: %w", err)
	}

	if _, err := r.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(r.tableName),
		Item:      av,
	}); err != nil {
		r.logger.Error("Failed to save sync record",
			zap.Error(err),
			zap.String("kind", string(record.Kind)),
			zap.String("resourceID", record.ResourceID),
		)
		return fmt.Errorf("failed to save sync record: %w", err)
	}
	return nil
}

// Delete removes a sync record
func (r *SyncRecordRepository) Delete(ctx context.Context, kind ports.ResourceKind, resourceID string) error {
	pk, sk := syncRecordKey(kind, resourceID)

	if _, err := r.client.DeleteItem(ctx, &dynamodb.DeleteItemInput{
		TableName: aws.String(r.tableName),
		Key:       itemKey(pk, sk),
	}); err != nil {
		return fmt.Errorf("failed to delete sync record: %w", err)
	}
	return nil
}
