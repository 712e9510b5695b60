package store

import (
	"context"
	"database/sql"
	"fmt"

	"thrift-orders/internal/errs"
	"thrift-orders/internal/models"
)

// CreateOrder inserts an order. Checkout lives in an external surface;
// this exists for seeding and tests.
func (s *Store) CreateOrder(ctx context.Context, order *models.Order) error {
	query := `
		INSERT INTO orders (id, vendor_id, user_id, progress_status, is_pickup, is_stockpile,
			stockpile_doc_id, stockpile_weeks, subtotal, service_fee, booking_fee, total)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		RETURNING created_at`

	return s.db.GetContext(ctx, &order.CreatedAt, query,
		order.ID, order.VendorID, order.UserID, order.ProgressStatus,
		order.IsPickup, order.IsStockpile, order.StockpileDocID, order.StockpileWeeks,
		order.Subtotal, order.ServiceFee, order.BookingFee, order.Total)
}

// GetOrderByID retrieves an order and its line items.
func (s *Store) GetOrderByID(ctx context.Context, id string) (*models.Order, error) {
	var order models.Order
	err := s.db.GetContext(ctx, &order, "SELECT * FROM orders WHERE id = $1", id)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("order %s: %w", id, errs.ErrNotFound)
	}
	if err != nil {
		return nil, err
	}

	items, err := s.GetCartItems(ctx, id)
	if err != nil {
		return nil, err
	}
	order.CartItems = items
	return &order, nil
}

// GetOrdersByVendor retrieves a vendor's orders, newest first, with items.
func (s *Store) GetOrdersByVendor(ctx context.Context, vendorID string) ([]models.Order, error) {
	var orders []models.Order
	err := s.db.SelectContext(ctx, &orders,
		"SELECT * FROM orders WHERE vendor_id = $1 ORDER BY created_at DESC", vendorID)
	if err != nil {
		return nil, err
	}
	return s.attachItems(ctx, orders)
}

// GetOrdersByVendorAndBuyer scopes the vendor's orders to one buyer, for
// buyer-facing pile views.
func (s *Store) GetOrdersByVendorAndBuyer(ctx context.Context, vendorID, userID string) ([]models.Order, error) {
	var orders []models.Order
	err := s.db.SelectContext(ctx, &orders,
		"SELECT * FROM orders WHERE vendor_id = $1 AND user_id = $2 ORDER BY created_at DESC",
		vendorID, userID)
	if err != nil {
		return nil, err
	}
	return s.attachItems(ctx, orders)
}

func (s *Store) attachItems(ctx context.Context, orders []models.Order) ([]models.Order, error) {
	for i := range orders {
		items, err := s.GetCartItems(ctx, orders[i].ID)
		if err != nil {
			return nil, err
		}
		orders[i].CartItems = items
	}
	return orders, nil
}

// UpdateOrderStatus updates the progress status field only.
func (s *Store) UpdateOrderStatus(ctx context.Context, orderID string, status models.Status) error {
	res, err := s.db.ExecContext(ctx,
		"UPDATE orders SET progress_status = $1 WHERE id = $2", status, orderID)
	if err != nil {
		return err
	}
	return checkAffected(res, orderID)
}

// SetDeclineReason persists the vendor's decline reason with the status.
func (s *Store) SetDeclineReason(ctx context.Context, orderID, reason string) error {
	res, err := s.db.ExecContext(ctx,
		"UPDATE orders SET progress_status = $1, decline_reason = $2 WHERE id = $3",
		models.StatusDeclined, reason, orderID)
	if err != nil {
		return err
	}
	return checkAffected(res, orderID)
}

// SetRiderFields persists delivery details alongside the Shipped status.
func (s *Store) SetRiderFields(ctx context.Context, orderID, riderName, riderNumber, note string) error {
	res, err := s.db.ExecContext(ctx,
		"UPDATE orders SET progress_status = $1, rider_name = $2, rider_number = $3, ship_note = $4 WHERE id = $5",
		models.StatusShipped, riderName, riderNumber, note, orderID)
	if err != nil {
		return err
	}
	return checkAffected(res, orderID)
}

// SetPickupWindow persists the pickup window alongside the Shipped status.
func (s *Store) SetPickupWindow(ctx context.Context, orderID, pickupDays, pickupTime, note string) error {
	res, err := s.db.ExecContext(ctx,
		"UPDATE orders SET progress_status = $1, pickup_days = $2, pickup_time = $3, pickup_note = $4 WHERE id = $5",
		models.StatusShipped, pickupDays, pickupTime, note, orderID)
	if err != nil {
		return err
	}
	return checkAffected(res, orderID)
}

// SetDispute records a buyer dispute. Reason is required by the service
// layer; the column pair keeps the disputeReason-only-with-dispute
// invariant.
func (s *Store) SetDispute(ctx context.Context, orderID, reason string) error {
	res, err := s.db.ExecContext(ctx,
		"UPDATE orders SET dispute_order = TRUE, dispute_reason = $1 WHERE id = $2",
		reason, orderID)
	if err != nil {
		return err
	}
	return checkAffected(res, orderID)
}

// SetReviewed flags the order as reviewed by its buyer.
func (s *Store) SetReviewed(ctx context.Context, orderID string) error {
	res, err := s.db.ExecContext(ctx,
		"UPDATE orders SET is_reviewed = TRUE WHERE id = $1", orderID)
	if err != nil {
		return err
	}
	return checkAffected(res, orderID)
}

func checkAffected(res sql.Result, orderID string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("order %s: %w", orderID, errs.ErrNotFound)
	}
	return nil
}
