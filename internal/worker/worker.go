package worker

import (
	"context"
	"fmt"
	"log"

	"thrift-orders/internal/broker"
	"thrift-orders/internal/models"
)

// Dedup remembers which events were already delivered. Implemented by
// store.Store over the processed_events table.
type Dedup interface {
	IsEventProcessed(ctx context.Context, eventID string) (bool, error)
	MarkEventProcessed(ctx context.Context, eventID, eventType string) error
}

// Notifier is the actual delivery channel (push/email). It lives behind
// this interface because delivery infrastructure is owned elsewhere.
type Notifier interface {
	SendStatusNotification(ctx context.Context, event *models.OrderStatusChangedEvent) error
	AppendActivityLog(ctx context.Context, event *models.VendorActivityEvent) error
}

// LogNotifier is the default Notifier; it writes deliveries to the log.
type LogNotifier struct{}

func (LogNotifier) SendStatusNotification(_ context.Context, event *models.OrderStatusChangedEvent) error {
	log.Printf("Notify buyer %s: order %s is now %s", event.BuyerID, event.OrderID, event.NewStatus)
	return nil
}

func (LogNotifier) AppendActivityLog(_ context.Context, event *models.VendorActivityEvent) error {
	log.Printf("Activity for vendor %s: %s", event.VendorID, event.Title)
	return nil
}

// NotificationWorker consumes notification events and hands them to the
// delivery channel, deduplicating by event id so redelivered kafka
// messages cannot double-notify a buyer.
type NotificationWorker struct {
	consumer     *broker.Consumer
	eventHandler *broker.EventHandler
	dedup        Dedup
	notifier     Notifier
}

// NewNotificationWorker creates a new notification worker
func NewNotificationWorker(consumer *broker.Consumer, dedup Dedup, notifier Notifier) *NotificationWorker {
	w := &NotificationWorker{
		consumer: consumer,
		dedup:    dedup,
		notifier: notifier,
	}

	eventHandler := broker.NewEventHandler()
	eventHandler.OnStatusChanged(w.handleStatusChanged)
	eventHandler.OnVendorActivity(w.handleVendorActivity)
	w.eventHandler = eventHandler

	return w
}

// Start starts the worker
func (w *NotificationWorker) Start(ctx context.Context) error {
	log.Println("Starting notification worker...")
	return w.consumer.StartConsuming(ctx, w.eventHandler.HandleMessage)
}

// Stop stops the worker
func (w *NotificationWorker) Stop() error {
	log.Println("Stopping notification worker...")
	return w.consumer.Close()
}

func (w *NotificationWorker) handleStatusChanged(ctx context.Context, event *models.OrderStatusChangedEvent) error {
	processed, err := w.dedup.IsEventProcessed(ctx, event.EventID)
	if err != nil {
		return fmt.Errorf("failed to check event processed: %w", err)
	}
	if processed {
		log.Printf("Event already processed: %s", event.EventID)
		return nil
	}

	if err := w.notifier.SendStatusNotification(ctx, event); err != nil {
		return fmt.Errorf("failed to deliver status notification: %w", err)
	}

	if err := w.dedup.MarkEventProcessed(ctx, event.EventID, event.EventType); err != nil {
		log.Printf("Failed to mark event processed: %v", err)
	}
	return nil
}

func (w *NotificationWorker) handleVendorActivity(ctx context.Context, event *models.VendorActivityEvent) error {
	processed, err := w.dedup.IsEventProcessed(ctx, event.EventID)
	if err != nil {
		return fmt.Errorf("failed to check event processed: %w", err)
	}
	if processed {
		log.Printf("Event already processed: %s", event.EventID)
		return nil
	}

	if err := w.notifier.AppendActivityLog(ctx, event); err != nil {
		return fmt.Errorf("failed to append activity log: %w", err)
	}

	if err := w.dedup.MarkEventProcessed(ctx, event.EventID, event.EventType); err != nil {
		log.Printf("Failed to mark event processed: %v", err)
	}
	return nil
}
