package models

import "time"

// Order represents a single purchase intent from one buyer to one vendor.
// Progress status is mutated only through the transition helpers in
// status.go; buyer-side flags (dispute, review) are mutated only by the
// owning buyer.
type Order struct {
	ID             string     `db:"id" json:"id"`
	VendorID       string     `db:"vendor_id" json:"vendor_id"`
	UserID         string     `db:"user_id" json:"user_id"`
	CartItems      []CartItem `db:"-" json:"cart_items"`
	ProgressStatus Status     `db:"progress_status" json:"progress_status"`
	CreatedAt      time.Time  `db:"created_at" json:"created_at"`

	IsPickup    bool   `db:"is_pickup" json:"is_pickup"`
	IsStockpile bool   `db:"is_stockpile" json:"is_stockpile"`
	// StockpileDocID is a non-owning back-reference used for lookup only;
	// the Stockpile entity owns the authoritative membership list.
	StockpileDocID string `db:"stockpile_doc_id" json:"stockpile_doc_id,omitempty"`
	// StockpileWeeks is persisted only on the order that initiates a pile.
	// Code should not test it directly; use Order.StockpileOrigin.
	StockpileWeeks *int `db:"stockpile_weeks" json:"stockpile_duration,omitempty"`

	Subtotal   int64 `db:"subtotal" json:"subtotal"`
	ServiceFee int64 `db:"service_fee" json:"service_fee,omitempty"`
	BookingFee int64 `db:"booking_fee" json:"booking_fee,omitempty"`
	Total      int64 `db:"total" json:"total"`

	DeclineReason string `db:"decline_reason" json:"decline_reason,omitempty"`

	RiderName   string `db:"rider_name" json:"rider_name,omitempty"`
	RiderNumber string `db:"rider_number" json:"rider_number,omitempty"`
	ShipNote    string `db:"ship_note" json:"ship_note,omitempty"`

	PickupDays string `db:"pickup_days" json:"pickup_days,omitempty"`
	PickupTime string `db:"pickup_time" json:"pickup_time,omitempty"`
	PickupNote string `db:"pickup_note" json:"pickup_note,omitempty"`

	DisputeOrder  bool   `db:"dispute_order" json:"dispute_order"`
	DisputeReason string `db:"dispute_reason" json:"dispute_reason,omitempty"`
	IsReviewed    bool   `db:"is_reviewed" json:"is_reviewed"`
}

// CartItem is one line item within an order. Items are exclusively owned
// by their order and are never shared across orders, even when merged for
// stockpile display.
type CartItem struct {
	ID           int64             `db:"id" json:"-"`
	OrderID      string            `db:"order_id" json:"-"`
	ProductID    string            `db:"product_id" json:"product_id"`
	SubProductID string            `db:"sub_product_id" json:"sub_product_id,omitempty"`
	Variant      map[string]string `db:"-" json:"variant_attributes,omitempty"`
	Quantity     int               `db:"quantity" json:"quantity"`
	Price        int64             `db:"price" json:"price"`
}

// StockpileOriginKind distinguishes the order that opens a pile from the
// orders added to it later.
type StockpileOriginKind int

const (
	// OriginNone marks orders that are not part of any stockpile.
	OriginNone StockpileOriginKind = iota
	// OriginInitiating marks the order that opened the pile and chose
	// its duration.
	OriginInitiating
	// OriginRepile marks an order appended to an already-open pile.
	OriginRepile
)

// StockpileOrigin is the tagged view over the persisted duration column.
// DurationWeeks is meaningful only when Kind == OriginInitiating.
type StockpileOrigin struct {
	Kind          StockpileOriginKind
	DurationWeeks int
}

// StockpileOrigin classifies the order's role within its pile.
func (o *Order) StockpileOrigin() StockpileOrigin {
	if !o.IsStockpile || o.StockpileDocID == "" {
		return StockpileOrigin{Kind: OriginNone}
	}
	if o.StockpileWeeks != nil {
		return StockpileOrigin{Kind: OriginInitiating, DurationWeeks: *o.StockpileWeeks}
	}
	return StockpileOrigin{Kind: OriginRepile}
}

// Stockpile is a time-boxed aggregation of orders from one buyer+vendor
// pair. The orderIds list grows append-only while the pile is active;
// EndDate is always StartDate + ChosenWeeks.
type Stockpile struct {
	ID          string    `db:"id" json:"id"`
	VendorID    string    `db:"vendor_id" json:"vendor_id"`
	UserID      string    `db:"user_id" json:"user_id"`
	OrderIDs    []string  `db:"-" json:"order_ids"`
	StartDate   time.Time `db:"start_date" json:"start_date"`
	EndDate     time.Time `db:"end_date" json:"end_date"`
	ChosenWeeks int       `db:"chosen_weeks" json:"chosen_weeks"`
	IsActive    bool      `db:"is_active" json:"is_active"`
}

// Expired reports whether the pile's window has passed.
func (s *Stockpile) Expired(now time.Time) bool {
	return now.After(s.EndDate)
}

// Offer is a buyer's proposed price for a product.
type Offer struct {
	ID        string            `db:"id" json:"id"`
	BuyerID   string            `db:"buyer_id" json:"buyer_id"`
	VendorID  string            `db:"vendor_id" json:"vendor_id"`
	ProductID string            `db:"product_id" json:"product_id"`
	Amount    int64             `db:"amount" json:"amount"`
	Status    string            `db:"status" json:"status"`
	Variant   map[string]string `db:"-" json:"variant_attributes,omitempty"`
	CreatedAt time.Time         `db:"created_at" json:"created_at"`
}

// Offer statuses
const (
	OfferStatusPending   = "pending"
	OfferStatusCountered = "countered"
	OfferStatusAccepted  = "accepted"
	OfferStatusDeclined  = "declined"
)

// Pickup day clusters offered to buyers. The UI renders exactly these.
const (
	PickupDaysWeekdays = "Weekdays"
	PickupDaysWeekends = "Weekends"
	PickupDaysMonToSat = "MonToSat"
)

// Pickup time blocks.
const (
	PickupTimeMorning   = "Morning"
	PickupTimeAfternoon = "Afternoon"
	PickupTimeEvening   = "Evening"
)

// ValidPickupDays reports whether v is one of the fixed day clusters.
func ValidPickupDays(v string) bool {
	switch v {
	case PickupDaysWeekdays, PickupDaysWeekends, PickupDaysMonToSat:
		return true
	}
	return false
}

// ValidPickupTime reports whether v is one of the fixed time blocks.
func ValidPickupTime(v string) bool {
	switch v {
	case PickupTimeMorning, PickupTimeAfternoon, PickupTimeEvening:
		return true
	}
	return false
}

// ProcessedEvent records a consumed notification event for dedup.
type ProcessedEvent struct {
	EventID     string    `db:"event_id"`
	EventType   string    `db:"event_type"`
	ProcessedAt time.Time `db:"processed_at"`
}
