package eventbridge

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	awseventbridge "github.com/aws/aws-sdk-go-v2/service/eventbridge"
	"github.com/aws/aws-sdk-go-v2/service/eventbridge/types"
	"go.uber.org/zap"

	"pathway-engine/application/ports"
	"pathway-engine/domain/events"
)

const eventSource = "pathway-engine"

// EventBridgePublisher publishes domain events to an EventBridge bus.
// Publishing is best-effort from the caller's perspective: sync outcomes
// never depend on event delivery.
type EventBridgePublisher struct {
	client  *awseventbridge.Client
	busName string
	logger  *zap.Logger
}

// NewEventBridgePublisher creates an EventBridge-backed publisher
func NewEventBridgePublisher(client *awseventbridge.Client, busName string, logger *zap.Logger) ports.EventPublisher {
	return &EventBridgePublisher{
		client:  client,
		busName: busName,
		logger:  logger,
	}
}

// Publish sends a single event
func (p *EventBridgePublisher) Publish(ctx context.Context, event events.DomainEvent) error {
	return p.PublishBatch(ctx, []events.DomainEvent{event})
}

// PublishBatch sends multiple events in one PutEvents call
func (p *EventBridgePublisher) PublishBatch(ctx context.Context, batch []events.DomainEvent) error {
	if len(batch) == 0 {
		return nil
	}

	entries := make([]types.PutEventsRequestEntry, 0, len(batch))
	for _, event := range batch {
		detail, err := json.Marshal(event)
		if err != nil {
			return fmt.Errorf("failed to marshal event %s: %w", event.GetEventType(), err)
		}
		entries = append(entries, types.PutEventsRequestEntry{
			EventBusName: aws.String(p.busName),
			Source:       aws.String(eventSource),
			DetailType:   aws.String(event.GetEventType()),
			Detail:       aws.String(string(detail)),
		})
	}

	result, err := p.client.PutEvents(ctx, &awseventbridge.PutEventsInput{Entries: entries})
	if err != nil {
		return fmt.Errorf("failed to publish events: %w", err)
	}
	if result.FailedEntryCount > 0 {
		for _, entry := range result.Entries {
			if entry.ErrorCode != nil {
				p.logger.Warn("event entry rejected",
					zap.String("errorCode", aws.ToString(entry.ErrorCode)),
					zap.String("errorMessage", aws.ToString(entry.ErrorMessage)),
				)
			}
		}
		return fmt.Errorf("%d of %d events failed to publish", result.FailedEntryCount, len(entries))
	}

	p.logger.Debug("events published", zap.Int("count", len(entries)))
	return nil
}
