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
)

// LinkRepository persists pathway to knowledge base links in DynamoDB.
// Forward lookups query the primary key; reverse lookups (which pathways
// reference a knowledge base) go through GSI1.
type LinkRepository struct {
	client    *dynamodb.Client
	tableName string
	indexName string
	logger    *zap.Logger
}

// NewLinkRepository creates a DynamoDB-backed link repository
func NewLinkRepository(client *dynamodb.Client, tableName string, logger *zap.Logger) ports.LinkRepository {
	return &LinkRepository{
		client:    client,
		tableName: tableName,
		indexName: "GSI1",
		logger:    logger,
	}
}

// linkItem is the DynamoDB item structure for a pathway-to-KB link
type linkItem struct {
	PK         string `dynamodbav:"PK"`
	SK         string `dynamodbav:"SK"`
	GSI1PK     string `dynamodbav:"GSI1PK"`
	GSI1SK     string `dynamodbav:"GSI1SK"`
	EntityType string `dynamodbav:"EntityType"`
	PathwayID  string `dynamodbav:"PathwayID"`
	KBID       string `dynamodbav:"KBID"`
	CreatedAt  string `dynamodbav:"CreatedAt"`
}

// orphanItem is the DynamoDB item structure for an orphan candidate
type orphanItem struct {
	PK         string `dynamodbav:"PK"`
	SK         string `dynamodbav:"SK"`
	EntityType string `dynamodbav:"EntityType"`
	ResourceID string `dynamodbav:"ResourceID"`
	Kind       string `dynamodbav:"Kind"`
	Reason     string `dynamodbav:"Reason"`
	MarkedAt   string `dynamodbav:"MarkedAt"`
}

func linkKey(pathwayID, kbID string) (string, string) {
	return fmt.Sprintf("PATHWAY#%s", pathwayID), fmt.Sprintf("KB#%s", kbID)
}

func orphanKey(kind ports.ResourceKind, resourceID string) (string, string) {
	return "ORPHAN", fmt.Sprintf("%s#%s", kind, resourceID)
}

// PutLink records that a pathway references a knowledge base
func (r *LinkRepository) PutLink(ctx context.Context, pathwayID, kbID string) error {
	pk, sk := linkKey(pathwayID, kbID)

	item := linkItem{
		PK:         pk,
		SK:         sk,
		GSI1PK:     fmt.Sprintf("KB#%s", kbID),
		GSI1SK:     fmt.Sprintf("PATHWAY#%s", pathwayID),
		EntityType: "LINK",
		PathwayID:  pathwayID,
		KBID:       kbID,
		CreatedAt:  time.Now().Format(time.RFC3339),
	}

	av, err := attributevalue.MarshalMap(item)
	if err != nil {
		return fmt.Errorf("failed to marshal link: %w", err)
	}

	if _, err := r.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(r.tableName),
		Item:      av,
	}); err != nil {
		return fmt.Errorf("failed to save link: %w", err)
	}
	return nil
}

// DeleteLink removes a single pathway to knowledge base link
func (r *LinkRepository) DeleteLink(ctx context.Context, pathwayID, kbID string) error {
	pk, sk := linkKey(pathwayID, kbID)

	if _, err := r.client.DeleteItem(ctx, &dynamodb.DeleteItemInput{
		TableName: aws.String(r.tableName),
		Key:       itemKey(pk, sk),
	}); err != nil {
		return fmt.Errorf("failed to delete link: %w", err)
	}
	return nil
}

// LinksForPathway lists the knowledge base ids a pathway references
func (r *LinkRepository) LinksForPathway(ctx context.Context, pathwayID string) ([]string, error) {
	keyCond := expression.Key("PK").Equal(expression.Value(fmt.Sprintf("PATHWAY#%s", pathwayID))).
		And(expression.Key("SK").BeginsWith("KB#"))
	expr, err := expression.NewBuilder().WithKeyCondition(keyCond).Build()
	if err != nil {
		return nil, fmt.Errorf("failed to build query: %w", err)
	}

	result, err := r.client.Query(ctx, &dynamodb.QueryInput{
		TableName:                 aws.String(r.tableName),
		KeyConditionExpression:    expr.KeyCondition(),
		ExpressionAttributeNames:  expr.Names(),
		ExpressionAttributeValues: expr.Values(),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to query links: %w", err)
	}

	kbIDs := make([]string, 0, len(result.Items))
	for _, raw := range result.Items {
		var item linkItem
		if err := attributevalue.UnmarshalMap(raw, &item); err != nil {
			r.logger.Warn("Skipping malformed link item", zap.Error(err))
			continue
		}
		kbIDs = append(kbIDs, item.KBID)
	}
	return kbIDs, nil
}

// PathwaysForKnowledgeBase lists the pathway ids referencing a knowledge base
func (r *LinkRepository) PathwaysForKnowledgeBase(ctx context.Context, kbID string) ([]string, error) {
	keyCond := expression.Key("GSI1PK").Equal(expression.Value(fmt.Sprintf("KB#%s", kbID))).
		And(expression.Key("GSI1SK").BeginsWith("PATHWAY#"))
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
		return nil, fmt.Errorf("failed to query reverse links: %w", err)
	}

	pathwayIDs := make([]string, 0, len(result.Items))
	for _, raw := range result.Items {
		var item linkItem
		if err := attributevalue.UnmarshalMap(raw, &item); err != nil {
			r.logger.Warn("Skipping malformed link item", zap.Error(err))
			continue
		}
		pathwayIDs = append(pathwayIDs, item.PathwayID)
	}
	return pathwayIDs, nil
}

// MarkOrphanCandidate flags a resource for manual review
func (r *LinkRepository) MarkOrphanCandidate(ctx context.Context, candidate ports.OrphanCandidate) error {
	pk, sk := orphanKey(candidate.Kind, candidate.ResourceID)

	item := orphanItem{
		PK:         pk,
		SK:         sk,
		EntityType: "ORPHAN_CANDIDATE",
		ResourceID: candidate.ResourceID,
		Kind:       string(candidate.Kind),
		Reason:     candidate.Reason,
		MarkedAt:   candidate.MarkedAt.Format(time.RFC3339),
	}

	av, err := attributevalue.MarshalMap(item)
	if err != nil {
		return fmt.Errorf("failed to marshal orphan candidate: %w", err)
	}

	if _, err := r.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(r.tableName),
		Item:      av,
	}); err != nil {
		return fmt.Errorf("failed to save orphan candidate: %w", err)
	}

	r.logger.Info("Orphan candidate recorded",
		zap.String("kind", string(candidate.Kind)),
		zap.String("resourceID", candidate.ResourceID),
		zap.String("reason", candidate.Reason),
	)
	return nil
}

// ListOrphanCandidates lists resources flagged for manual review
func (r *LinkRepository) ListOrphanCandidates(ctx context.Context) ([]ports.OrphanCandidate, error) {
	keyCond := expression.Key("PK").Equal(expression.Value("ORPHAN"))
	expr, err := expression.NewBuilder().WithKeyCondition(keyCond).Build()
	if err != nil {
		return nil, fmt.Errorf("failed to build query: %w", err)
	}

	result, err := r.client.Query(ctx, &dynamodb.QueryInput{
		TableName:                 aws.String(r.tableName),
		KeyConditionExpression:    expr.KeyCondition(),
		ExpressionAttributeNames:  expr.Names(),
		ExpressionAttributeValues: expr.Values(),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to query orphan candidates: %w", err)
	}

	candidates := make([]ports.OrphanCandidate, 0, len(result.Items))
	for _, raw := range result.Items {
		var item orphanItem
		if err := attributevalue.UnmarshalMap(raw, &item); err != nil {
			r.logger.Warn("Skipping malformed orphan item", zap.Error(err))
			continue
		}
		candidate := ports.OrphanCandidate{
			ResourceID: item.ResourceID,
			Kind:       ports.ResourceKind(item.Kind),
			Reason:     item.Reason,
		}
		if ts, err := time.Parse(time.RFC3339, item.MarkedAt); err == nil {
			candidate.MarkedAt = ts
		}
		candidates = append(candidates, candidate)
	}
	return candidates, nil
}

// ClearOrphanCandidate removes the flag from a resource
func (r *LinkRepository) ClearOrphanCandidate(ctx context.Context, kind ports.ResourceKind, resourceID string) error {
	pk, sk := orphanKey(kind, resourceID)

	if _, err := r.client.DeleteItem(ctx, &dynamodb.DeleteItemInput{
		TableName: aws.String(r.tableName),
		Key:       itemKey(pk, sk),
	}); err != nil {
		return fmt.Errorf("failed to clear orphan candidate: %w", err)
	}
	return nil
}
