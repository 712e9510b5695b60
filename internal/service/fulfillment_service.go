package service

import (
	"context"
	"fmt"

	"thrift-orders/internal/errs"
	"thrift-orders/internal/models"
	"thrift-orders/internal/util"
	"thrift-orders/internal/watch"

	"go.uber.org/zap"
)

// ShipRequest carries the delivery-branch fields collected at ship time.
type ShipRequest struct {
	RiderName   string `json:"rider_name"`
	RiderNumber string `json:"rider_number"`
	Note        string `json:"note,omitempty"`
	VendorInfo
}

// ShipResult reports the outcome of the delivery flow. AlreadyShipped
// marks the idempotent no-op path: a success, not an error.
type ShipResult struct {
	AlreadyShipped bool   `json:"already_shipped"`
	NotifyWarning  string `json:"notify_warning,omitempty"`
}

// PickupRequest carries the pickup-branch fields collected at ship time.
type PickupRequest struct {
	PickupDays string `json:"pickup_days"`
	PickupTime string `json:"pickup_time"`
	Note       string `json:"note,omitempty"`
	VendorInfo
}

// PickupResult reports the outcome of the pickup flow.
type PickupResult struct {
	AlreadyScheduled bool   `json:"already_scheduled"`
	NotifyWarning    string `json:"notify_warning,omitempty"`
}

// FulfillmentService owns the two mutually exclusive ship-time flows,
// selected by order.isPickup. Both are check-then-act against the most
// recently read status: a writer that loses the race gets the
// already-done result instead of an error.
type FulfillmentService struct {
	store             OrderStore
	notifier          StatusNotifier
	cache             StatusCache
	hub               *watch.Hub
	riderNumberMinLen int
	riderNumberMaxLen int
	logger            *zap.Logger
}

// NewFulfillmentService creates a new fulfillment service. cache may be
// nil.
func NewFulfillmentService(store OrderStore, notifier StatusNotifier, cache StatusCache, hub *watch.Hub, riderNumberMinLen, riderNumberMaxLen int) *FulfillmentService {
	return &FulfillmentService{
		store:             store,
		notifier:          notifier,
		cache:             cache,
		hub:               hub,
		riderNumberMinLen: riderNumberMinLen,
		riderNumberMaxLen: riderNumberMaxLen,
		logger:            util.GetLogger(),
	}
}

// ShipVendorOrder runs the delivery flow: validate rider fields, move the
// order to Shipped, persist rider details, then signal the buyer and the
// vendor activity log. Calling it again on a shipped order returns
// AlreadyShipped without repeating side effects.
func (s *FulfillmentService) ShipVendorOrder(ctx context.Context, orderID string, req ShipRequest) (*ShipResult, error) {
	ctx, span := util.StartSpan(ctx, "FulfillmentService.ShipVendorOrder")
	defer span.End()

	if err := s.validateShip(req); err != nil {
		return nil, err
	}

	order, err := s.store.GetOrderByID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if order.IsPickup {
		return nil, errs.NewValidationError("orderId", "pickup order cannot be shipped via rider")
	}

	if order.ProgressStatus == models.StatusShipped {
		util.DuplicateShipAttemptsTotal.Inc()
		s.logger.Info("Duplicate ship attempt", zap.String("order_id", orderID))
		return &ShipResult{AlreadyShipped: true}, nil
	}

	next, err := order.ProgressStatus.Ship()
	if err != nil {
		return nil, err
	}

	if err := s.store.SetRiderFields(ctx, orderID, req.RiderName, req.RiderNumber, req.Note); err != nil {
		return nil, fmt.Errorf("failed to persist rider fields: %w", err)
	}

	util.OrdersShippedTotal.Inc()
	s.logger.Info("Order shipped",
		zap.String("order_id", orderID),
		zap.String("rider", req.RiderName))

	result := &ShipResult{}
	event := &models.OrderStatusChangedEvent{
		BuyerID:      order.UserID,
		OrderID:      orderID,
		NewStatus:    next,
		VendorName:   req.VendorName,
		VendorImage:  req.VendorImage,
		ProductImage: req.ProductImage,
		Rider: &models.RiderInfo{
			RiderName:   req.RiderName,
			RiderNumber: req.RiderNumber,
			Note:        req.Note,
		},
	}
	activityNote := fmt.Sprintf("Order %s handed to rider %s", orderID, req.RiderName)
	result.NotifyWarning = s.afterShip(ctx, order, next, event, "Order shipped", activityNote, models.ActivityTypeOrder)

	return result, nil
}

// ScheduleOrderPickup runs the pickup flow: validate the window, move the
// order to Shipped, persist the window, then send the same two signals
// with pickup payload. Idempotent in the same sense as the delivery flow.
func (s *FulfillmentService) ScheduleOrderPickup(ctx context.Context, orderID string, req PickupRequest) (*PickupResult, error) {
	ctx, span := util.StartSpan(ctx, "FulfillmentService.ScheduleOrderPickup")
	defer span.End()

	if err := validatePickup(req); err != nil {
		return nil, err
	}

	order, err := s.store.GetOrderByID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if !order.IsPickup {
		return nil, errs.NewValidationError("orderId", "delivery order cannot take a pickup window")
	}

	if order.ProgressStatus == models.StatusShipped || order.PickupDays != "" {
		util.DuplicateShipAttemptsTotal.Inc()
		s.logger.Info("Duplicate pickup scheduling attempt", zap.String("order_id", orderID))
		return &PickupResult{AlreadyScheduled: true}, nil
	}

	next, err := order.ProgressStatus.Ship()
	if err != nil {
		return nil, err
	}

	if err := s.store.SetPickupWindow(ctx, orderID, req.PickupDays, req.PickupTime, req.Note); err != nil {
		return nil, fmt.Errorf("failed to persist pickup window: %w", err)
	}

	util.PickupsScheduledTotal.Inc()
	s.logger.Info("Pickup scheduled",
		zap.String("order_id", orderID),
		zap.String("days", req.PickupDays),
		zap.String("time", req.PickupTime))

	result := &PickupResult{}
	event := &models.OrderStatusChangedEvent{
		BuyerID:      order.UserID,
		OrderID:      orderID,
		NewStatus:    next,
		VendorName:   req.VendorName,
		VendorImage:  req.VendorImage,
		ProductImage: req.ProductImage,
		Pickup: &models.PickupInfo{
			PickupDays: req.PickupDays,
			PickupTime: req.PickupTime,
			Note:       req.Note,
		},
	}
	activityNote := fmt.Sprintf("Pickup window %s/%s offered for order %s", req.PickupDays, req.PickupTime, orderID)
	result.NotifyWarning = s.afterShip(ctx, order, next, event, "Pickup scheduled", activityNote, models.ActivityTypePickup)

	return result, nil
}

// afterShip runs the shared ship-time tail: close the pile if this order
// belongs to one, refresh cache and in-process subscribers, then send
// both collaborator signals. Signal failures never roll back the
// transition; they come back as a warning string for the caller.
func (s *FulfillmentService) afterShip(ctx context.Context, order *models.Order, next models.Status, event *models.OrderStatusChangedEvent, activityTitle, activityNote, activityType string) string {
	if order.IsStockpile && order.StockpileDocID != "" {
		if err := s.store.CloseStockpile(ctx, order.StockpileDocID); err != nil {
			s.logger.Warn("Failed to close stockpile on ship",
				zap.String("stockpile_id", order.StockpileDocID),
				zap.Error(err))
		}
	}

	if s.cache != nil {
		if err := s.cache.CacheOrderStatus(ctx, order.ID, next); err != nil {
			s.logger.Warn("Failed to cache order status", zap.Error(err))
		}
	}

	if s.hub != nil {
		s.hub.Publish(watch.OrderChange{
			OrderID:   order.ID,
			VendorID:  order.VendorID,
			UserID:    order.UserID,
			NewStatus: next,
		})
	}

	var warning string
	if err := s.notifier.NotifyOrderStatusChange(ctx, event); err != nil {
		util.NotifyFailuresTotal.WithLabelValues("status").Inc()
		s.logger.Warn("Failed to publish status notification",
			zap.String("order_id", order.ID),
			zap.Error(err))
		warning = "buyer notification delivery failed"
	}

	if err := s.notifier.AddActivityNote(ctx, order.VendorID, activityTitle, activityNote, activityType); err != nil {
		util.NotifyFailuresTotal.WithLabelValues("activity").Inc()
		s.logger.Warn("Failed to publish activity note",
			zap.String("vendor_id", order.VendorID),
			zap.Error(err))
		if warning == "" {
			warning = "activity log delivery failed"
		}
	}
	return warning
}

func (s *FulfillmentService) validateShip(req ShipRequest) error {
	if req.RiderName == "" {
		return errs.NewValidationError("riderName", "rider name is required")
	}
	if req.RiderNumber == "" {
		return errs.NewValidationError("riderNumber", "rider number is required")
	}
	if len(req.RiderNumber) < s.riderNumberMinLen || len(req.RiderNumber) > s.riderNumberMaxLen {
		return errs.NewValidationError("riderNumber",
			fmt.Sprintf("must be %d to %d digits", s.riderNumberMinLen, s.riderNumberMaxLen))
	}
	for _, r := range req.RiderNumber {
		if r < '0' || r > '9' {
			return errs.NewValidationError("riderNumber", "must contain digits only")
		}
	}
	return nil
}

func validatePickup(req PickupRequest) error {
	if req.PickupDays == "" {
		return errs.NewValidationError("pickupDays", "pickup days selection is required")
	}
	if !models.ValidPickupDays(req.PickupDays) {
		return errs.NewValidationError("pickupDays", "unknown pickup days selection")
	}
	if req.PickupTime == "" {
		return errs.NewValidationError("pickupTime", "pickup time selection is required")
	}
	if !models.ValidPickupTime(req.PickupTime) {
		return errs.NewValidationError("pickupTime", "unknown pickup time selection")
	}
	return nil
}
