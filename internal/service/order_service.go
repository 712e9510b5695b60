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

// VendorInfo is the display context a vendor surface already holds and
// forwards so buyer notifications can render without extra lookups.
type VendorInfo struct {
	VendorName   string `json:"vendor_name"`
	VendorImage  string `json:"vendor_image,omitempty"`
	ProductImage string `json:"product_image,omitempty"`
}

// OrderService owns the non-ship transitions of the order lifecycle and
// the buyer-side flags.
type OrderService struct {
	store    OrderStore
	notifier StatusNotifier
	cache    StatusCache
	hub      *watch.Hub
	logger   *zap.Logger
}

// NewOrderService creates a new order service. cache may be nil.
func NewOrderService(store OrderStore, notifier StatusNotifier, cache StatusCache, hub *watch.Hub) *OrderService {
	return &OrderService{
		store:    store,
		notifier: notifier,
		cache:    cache,
		hub:      hub,
		logger:   util.GetLogger(),
	}
}

// Accept moves a pending order into progress.
func (s *OrderService) Accept(ctx context.Context, orderID string, vendor VendorInfo) error {
	ctx, span := util.StartSpan(ctx, "OrderService.Accept")
	defer span.End()

	order, err := s.store.GetOrderByID(ctx, orderID)
	if err != nil {
		return err
	}

	next, err := order.ProgressStatus.Accept()
	if err != nil {
		return err
	}

	if err := s.store.UpdateOrderStatus(ctx, orderID, next); err != nil {
		return fmt.Errorf("failed to update order status: %w", err)
	}

	util.OrdersAcceptedTotal.Inc()
	s.logger.Info("Order accepted", zap.String("order_id", orderID))

	s.afterTransition(ctx, order, next, &models.OrderStatusChangedEvent{
		BuyerID:      order.UserID,
		OrderID:      orderID,
		NewStatus:    next,
		VendorName:   vendor.VendorName,
		VendorImage:  vendor.VendorImage,
		ProductImage: vendor.ProductImage,
	})
	return nil
}

// Decline rejects a pending order. Reason is required and persisted on
// the order before anything else happens.
func (s *OrderService) Decline(ctx context.Context, orderID, reason string, vendor VendorInfo) error {
	ctx, span := util.StartSpan(ctx, "OrderService.Decline")
	defer span.End()

	if reason == "" {
		return errs.NewValidationError("reason", "decline reason is required")
	}

	order, err := s.store.GetOrderByID(ctx, orderID)
	if err != nil {
		return err
	}

	next, err := order.ProgressStatus.Decline()
	if err != nil {
		return err
	}

	if err := s.store.SetDeclineReason(ctx, orderID, reason); err != nil {
		return fmt.Errorf("failed to decline order: %w", err)
	}

	util.OrdersDeclinedTotal.Inc()
	s.logger.Info("Order declined",
		zap.String("order_id", orderID),
		zap.String("reason", reason))

	s.afterTransition(ctx, order, next, &models.OrderStatusChangedEvent{
		BuyerID:       order.UserID,
		OrderID:       orderID,
		NewStatus:     next,
		VendorName:    vendor.VendorName,
		VendorImage:   vendor.VendorImage,
		ProductImage:  vendor.ProductImage,
		DeclineReason: reason,
	})
	return nil
}

// MarkDelivered records a confirmed delivery (rider or buyer
// confirmation). Requires the order to be Shipped.
func (s *OrderService) MarkDelivered(ctx context.Context, orderID string, vendor VendorInfo) error {
	ctx, span := util.StartSpan(ctx, "OrderService.MarkDelivered")
	defer span.End()

	order, err := s.store.GetOrderByID(ctx, orderID)
	if err != nil {
		return err
	}

	next, err := order.ProgressStatus.Deliver()
	if err != nil {
		return err
	}

	if err := s.store.UpdateOrderStatus(ctx, orderID, next); err != nil {
		return fmt.Errorf("failed to update order status: %w", err)
	}

	util.OrdersDeliveredTotal.Inc()
	s.logger.Info("Order delivered", zap.String("order_id", orderID))

	s.afterTransition(ctx, order, next, &models.OrderStatusChangedEvent{
		BuyerID:      order.UserID,
		OrderID:      orderID,
		NewStatus:    next,
		VendorName:   vendor.VendorName,
		VendorImage:  vendor.VendorImage,
		ProductImage: vendor.ProductImage,
	})
	return nil
}

// Dispute records a buyer dispute with its reason.
func (s *OrderService) Dispute(ctx context.Context, orderID, reason string) error {
	ctx, span := util.StartSpan(ctx, "OrderService.Dispute")
	defer span.End()

	if reason == "" {
		return errs.NewValidationError("reason", "dispute reason is required")
	}

	if _, err := s.store.GetOrderByID(ctx, orderID); err != nil {
		return err
	}

	if err := s.store.SetDispute(ctx, orderID, reason); err != nil {
		return fmt.Errorf("failed to record dispute: %w", err)
	}
	s.logger.Info("Order disputed", zap.String("order_id", orderID))
	return nil
}

// MarkReviewed flags the order as reviewed by its buyer.
func (s *OrderService) MarkReviewed(ctx context.Context, orderID string) error {
	ctx, span := util.StartSpan(ctx, "OrderService.MarkReviewed")
	defer span.End()

	if _, err := s.store.GetOrderByID(ctx, orderID); err != nil {
		return err
	}
	return s.store.SetReviewed(ctx, orderID)
}

// GetOrder retrieves an order with its line items.
func (s *OrderService) GetOrder(ctx context.Context, orderID string) (*models.Order, error) {
	return s.store.GetOrderByID(ctx, orderID)
}

// GetStatus returns the order's progress status, serving from the cache
// when it holds the order and backfilling it on a miss.
func (s *OrderService) GetStatus(ctx context.Context, orderID string) (models.Status, error) {
	ctx, span := util.StartSpan(ctx, "OrderService.GetStatus")
	defer span.End()

	if s.cache != nil {
		status, ok, err := s.cache.GetCachedOrderStatus(ctx, orderID)
		if err != nil {
			s.logger.Warn("Failed to read cached order status", zap.Error(err))
		} else if ok {
			return status, nil
		}
	}

	order, err := s.store.GetOrderByID(ctx, orderID)
	if err != nil {
		return "", err
	}
	if s.cache != nil {
		if err := s.cache.CacheOrderStatus(ctx, orderID, order.ProgressStatus); err != nil {
			s.logger.Warn("Failed to cache order status", zap.Error(err))
		}
	}
	return order.ProgressStatus, nil
}

// afterTransition runs the non-transactional tail of a transition: cache
// refresh, in-process change fan-out, and the fire-and-forget buyer
// notification. Failures here are logged, never propagated.
func (s *OrderService) afterTransition(ctx context.Context, order *models.Order, next models.Status, event *models.OrderStatusChangedEvent) {
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

	if err := s.notifier.NotifyOrderStatusChange(ctx, event); err != nil {
		util.NotifyFailuresTotal.WithLabelValues("status").Inc()
		s.logger.Warn("Failed to publish status notification",
			zap.String("order_id", order.ID),
			zap.Error(err))
	}
}
