package dynamodb

import (
	"context"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/expression"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"go.uber.org/zap"

	"pathway-engine/application/ports"
	"pathway-engine/domain/core/entities"
	"pathway-engine/domain/core/valueobjects"
)

// KnowledgeBaseRepository persists knowledge base entities in DynamoDB.
// Items share a constant GSI1 partition so List is a query, not a scan.
type KnowledgeBaseRepository struct {
	client    *dynamodb.Client
	tableName string
	indexName string
	logger    *zap.Logger
}

// NewKnowledgeBaseRepository creates a DynamoDB-backed knowledge base repository
func NewKnowledgeBaseRepository(client *dynamodb.Client, tableName string, logger *zap.Logger) ports.KnowledgeBaseRepository {
	return &KnowledgeBaseRepository{
		client:    client,
		tableName: tableName,
		indexName: "GSI1",
		logger:    logger,
	}
}

// knowledgeBaseItem is the DynamoDB item structure for a knowledge base
type knowledgeBaseItem struct {
	PK          string   `dynamodbav:"PK"`
	SK          string   `dynamodbav:"SK"`
	GSI1PK      string   `dynamodbav:"GSI1PK"`
	GSI1SK      string   `dynamodbav:"GSI1SK"`
	EntityType  string   `dynamodbav:"EntityType"`
	KBID        string   `dynamodbav:"KBID"`
	Name        string   `dynamodbav:"Name"`
	Description string   `dynamodbav:"Description"`
	Content     string   `dynamodbav:"Content"`
	Tags        []string `dynamodbav:"Tags,omitempty"`
	CreatedAt   string   `dynamodbav:"CreatedAt"`
	UpdatedAt   string   `dynamodbav:"UpdatedAt"`
}

func knowledgeBaseItemKey(id string) (string, string) {
	return fmt.Sprintf("KB#%s", id), "METADATA"
}

// Save persists a knowledge base (create or update)
func (r *KnowledgeBaseRepository) Save(ctx context.Context, kb *entities.KnowledgeBase) error {
	pk, sk := knowledgeBaseItemKey(kb.ID().String())

	item := knowledgeBaseItem{
		PK:          pk,
		SK:          sk,
		GSI1PK:      "KB_LIST",
		GSI1SK:      fmt.Sprintf("KB#%s", kb.ID().String()),
		EntityType:  "KNOWLEDGE_BASE",
		KBID:        kb.ID().String(),
		Name:        kb.Name(),
		Description: kb.Description(),
		Content:     kb.Content(),
		Tags:        kb.Tags(),
		CreatedAt:   kb.CreatedAt().Format(time.RFC3339),
		UpdatedAt:   kb.UpdatedAt().Format(time.RFC3339),
	}

	av, err := attributevalue.MarshalMap(item)
	if err != nil {
		return fmt.Errorf("failed to marshal knowledge base: %w", err)
	}

	if _, err := r.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(r.tableName),
		Item:      av,
	}); err != nil {
		r.logger.Error("Failed to save knowledge base",
			zap.Error(err),
			zap.String("kbID", kb.ID().String()),
		)
		return fmt.Errorf("failed to save knowledge base: %w", err)
	}
	return nil
}

// GetByID retrieves a knowledge base by its ID, or nil when absent
func (r *KnowledgeBaseRepository) GetByID(ctx context.Context, id valueobjects.KnowledgeBaseID) (*entities.KnowledgeBase, error) {
	pk, sk := knowledgeBaseItemKey(id.String())

	result, err := r.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: aws.String(r.tableName),
		Key:       itemKey(pk, sk),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to get knowledge base: %w", err)
	}
	if result.Item == nil {
		return nil, nil
	}

	var item knowledgeBaseItem
	if err := attributevalue.UnmarshalMap(result.Item, &item); err != nil {
		return nil, fmt.Errorf("failed to unmarshal knowledge base: %w", err)
	}
	return r.toEntity(item)
}

// List retrieves all knowledge bases
func (r *KnowledgeBaseRepository) List(ctx context.Context) ([]*entities.KnowledgeBase, error) {
	keyCond := expression.Key("GSI1PK").Equal(expression.Value("KB_LIST"))
	expr, err := expression.NewBuilder().WithKeyCondition(keyCond).Build()
	if err != nil {
		return nil, fmt.Errorf("failed to build query: %w", err)
	}

	result, err := r.client.Query(ctx, &dynamodb.QueryInput{
		TableName:                 aws.String(r.tableName),
		IndexName:                 aws.String(r.indexName),
		KeyConditionExpression:    expr.KeyCondition(),
		ExpressionAttributeNames:  expr.Names(),
		ExpressionAttributeValues: expr.Values(),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list knowledge bases: %w", err)
	}

	kbs := make([]*entities.KnowledgeBase, 0, len(result.Items))
	for _, raw := range result.Items {
		var item knowledgeBaseItem
		if err := attributevalue.UnmarshalMap(raw, &item); err != nil {
			r.logger.Warn("Skipping malformed knowledge base item", zap.Error(err))
			continue
		}
		kb, err := r.toEntity(item)
		if err != nil {
			r.logger.Warn("Skipping unreconstructable knowledge base",
				zap.String("kbID", item.KBID),
				zap.Error(err),
			)
			continue
		}
		kbs = append(kbs, kb)
	}
	return kbs, nil
}

// Delete removes a knowledge base
func (r *KnowledgeBaseRepository) Delete(ctx context.Context, id valueobjects.KnowledgeBaseID) error {
	pk, sk := knowledgeBaseItemKey(id.String())

	if _, err := r.client.DeleteItem(ctx, &dynamodb.DeleteItemInput{
		TableName: aws.String(r.tableName),
		Key:       itemKey(pk, sk),
	}); err != nil {
		return fmt.Errorf("failed to delete knowledge base: %w", err)
	}
	return nil
}

func (r *KnowledgeBaseRepository) toEntity(item knowledgeBaseItem) (*entities.KnowledgeBase, error) {
	kbID, err := valueobjects.NewKnowledgeBaseIDFromString(item.KBID)
	if err != nil {
		return nil, err
	}
	createdAt, _ := time.Parse(time.RFC3339, item.CreatedAt)
	updatedAt, _ := time.Parse(time.RFC3339, item.UpdatedAt)
	return entities.ReconstructKnowledgeBase(kbID, item.Name, item.Description, item.Content, item.Tags, createdAt, updatedAt), nil
}
