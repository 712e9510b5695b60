package service

import (
	"context"
	"time"

	"thrift-orders/internal/guard"
	"thrift-orders/internal/models"
)

// OrderStore is the slice of the store the order-side services need.
// Implemented by store.Store.
type OrderStore interface {
	GetOrderByID(ctx context.Context, id string) (*models.Order, error)
	UpdateOrderStatus(ctx context.Context, orderID string, status models.Status) error
	SetDeclineReason(ctx context.Context, orderID, reason string) error
	SetRiderFields(ctx context.Context, orderID, riderName, riderNumber, note string) error
	SetPickupWindow(ctx context.Context, orderID, pickupDays, pickupTime, note string) error
	SetDispute(ctx context.Context, orderID, reason string) error
	SetReviewed(ctx context.Context, orderID string) error
	CloseStockpile(ctx context.Context, stockpileID string) error
}

// OfferStore is the slice of the store the offer engine needs.
// Implemented by store.Store.
type OfferStore interface {
	CreateOffer(ctx context.Context, offer *models.Offer) error
	CountOffersSince(ctx context.Context, buyerID string, since time.Time) (int, error)
	GetOfferByID(ctx context.Context, id string) (*models.Offer, error)
	GetOffersByBuyer(ctx context.Context, buyerID string) ([]models.Offer, error)
	UpdateOfferStatus(ctx context.Context, offerID, status string) error
}

// StatusNotifier is the fire-and-forget collaborator pair: buyer status
// notifications and vendor activity notes. Implemented by
// broker.NotificationPublisher.
type StatusNotifier interface {
	NotifyOrderStatusChange(ctx context.Context, event *models.OrderStatusChangedEvent) error
	AddActivityNote(ctx context.Context, vendorID, title, note, noteType string) error
}

// StatusCache holds the latest known progress status per order.
// Implemented by redisclient.Client.
type StatusCache interface {
	CacheOrderStatus(ctx context.Context, orderID string, status models.Status) error
	GetCachedOrderStatus(ctx context.Context, orderID string) (models.Status, bool, error)
}

// QuotaGate is the authoritative write-rate gate. Implemented by
// guard.UsageGuard.
type QuotaGate interface {
	CheckAndIncrement(ctx context.Context, userID, action string, limits guard.Limits) error
}
