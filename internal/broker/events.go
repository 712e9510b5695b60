package broker

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"thrift-orders/internal/models"

	"github.com/google/uuid"
	"github.com/segmentio/kafka-go"
)

// NotificationPublisher publishes the two fire-and-forget collaborator
// signals: buyer-facing status notifications and vendor activity notes.
type NotificationPublisher struct {
	producer *Producer
}

// NewNotificationPublisher creates a new notification publisher
func NewNotificationPublisher(producer *Producer) *NotificationPublisher {
	return &NotificationPublisher{producer: producer}
}

// NotifyOrderStatusChange publishes a buyer-facing status notification.
func (np *NotificationPublisher) NotifyOrderStatusChange(ctx context.Context, event *models.OrderStatusChangedEvent) error {
	if event.EventID == "" {
		event.EventID = uuid.New().String()
	}
	event.EventType = models.EventTypeOrderStatusChanged
	event.Timestamp = time.Now()

	key := fmt.Sprintf("order-%s", event.OrderID)
	return np.producer.PublishEvent(ctx, key, event)
}

// AddActivityNote publishes a vendor-facing activity-log entry.
func (np *NotificationPublisher) AddActivityNote(ctx context.Context, vendorID, title, note, noteType string) error {
	event := &models.VendorActivityEvent{
		BaseEvent: models.BaseEvent{
			EventID:   uuid.New().String(),
			EventType: models.EventTypeVendorActivity,
			Timestamp: time.Now(),
		},
		VendorID: vendorID,
		Title:    title,
		Note:     note,
		Type:     noteType,
	}

	key := fmt.Sprintf("vendor-%s", vendorID)
	return np.producer.PublishEvent(ctx, key, event)
}

// EventHandler routes consumed notification events to registered handlers.
type EventHandler struct {
	onStatusChanged  func(context.Context, *models.OrderStatusChangedEvent) error
	onVendorActivity func(context.Context, *models.VendorActivityEvent) error
}

// NewEventHandler creates a new event handler
func NewEventHandler() *EventHandler {
	return &EventHandler{}
}

// OnStatusChanged registers a handler for status-change events
func (eh *EventHandler) OnStatusChanged(handler func(context.Context, *models.OrderStatusChangedEvent) error) {
	eh.onStatusChanged = handler
}

// OnVendorActivity registers a handler for activity events
func (eh *EventHandler) OnVendorActivity(handler func(context.Context, *models.VendorActivityEvent) error) {
	eh.onVendorActivity = handler
}

// HandleMessage routes messages to appropriate handlers
func (eh *EventHandler) HandleMessage(ctx context.Context, msg kafka.Message) error {
	var baseEvent models.BaseEvent
	if err := json.Unmarshal(msg.Value, &baseEvent); err != nil {
		return fmt.Errorf("failed to unmarshal base event: %w", err)
	}

	log.Printf("Handling event: type=%s, id=%s", baseEvent.EventType, baseEvent.EventID)

	switch baseEvent.EventType {
	case models.EventTypeOrderStatusChanged:
		if eh.onStatusChanged != nil {
			var event models.OrderStatusChangedEvent
			if err := json.Unmarshal(msg.Value, &event); err != nil {
				return fmt.Errorf("failed to unmarshal status-change event: %w", err)
			}
			return eh.onStatusChanged(ctx, &event)
		}

	case models.EventTypeVendorActivity:
		if eh.onVendorActivity != nil {
			var event models.VendorActivityEvent
			if err := json.Unmarshal(msg.Value, &event); err != nil {
				return fmt.Errorf("failed to unmarshal activity event: %w", err)
			}
			return eh.onVendorActivity(ctx, &event)
		}

	default:
		log.Printf("Unhandled event type: %s", baseEvent.EventType)
	}

	return nil
}
