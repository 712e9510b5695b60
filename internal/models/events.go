package models

import "time"

// Event types
const (
	EventTypeOrderStatusChanged = "ORDER_STATUS_CHANGED"
	EventTypeVendorActivity     = "VENDOR_ACTIVITY"
)

// Activity note types shown in the vendor activity feed.
const (
	ActivityTypeOrder  = "order"
	ActivityTypeOffer  = "offer"
	ActivityTypePickup = "pickup"
)

// BaseEvent contains common fields for all events
type BaseEvent struct {
	EventID   string    `json:"event_id"`
	EventType string    `json:"event_type"`
	Timestamp time.Time `json:"timestamp"`
}

// RiderInfo is the delivery-branch payload attached to a ship notification.
type RiderInfo struct {
	RiderName   string `json:"rider_name"`
	RiderNumber string `json:"rider_number"`
	Note        string `json:"note,omitempty"`
}

// PickupInfo is the pickup-branch payload attached to a schedule
// notification.
type PickupInfo struct {
	PickupDays string `json:"pickup_days"`
	PickupTime string `json:"pickup_time"`
	Note       string `json:"note,omitempty"`
}

// OrderStatusChangedEvent is published toward the buyer whenever a
// vendor-side transition lands. Delivery is fire-and-forget: a publish
// failure never rolls back the transition.
type OrderStatusChangedEvent struct {
	BaseEvent
	BuyerID       string      `json:"buyer_id"`
	OrderID       string      `json:"order_id"`
	NewStatus     Status      `json:"new_status"`
	VendorName    string      `json:"vendor_name"`
	VendorImage   string      `json:"vendor_image,omitempty"`
	ProductImage  string      `json:"product_image,omitempty"`
	DeclineReason string      `json:"decline_reason,omitempty"`
	Rider         *RiderInfo  `json:"rider,omitempty"`
	Pickup        *PickupInfo `json:"pickup,omitempty"`
}

// VendorActivityEvent is an entry for the vendor-facing activity log.
type VendorActivityEvent struct {
	BaseEvent
	VendorID string `json:"vendor_id"`
	Title    string `json:"title"`
	Note     string `json:"note"`
	Type     string `json:"type"`
}
