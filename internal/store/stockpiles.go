package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"thrift-orders/internal/errs"
	"thrift-orders/internal/models"
)

// CreateStockpile opens a pile for the initiating order. EndDate is
// derived, never stored independently of StartDate + ChosenWeeks.
func (s *Store) CreateStockpile(ctx context.Context, pile *models.Stockpile) error {
	pile.EndDate = pile.StartDate.AddDate(0, 0, pile.ChosenWeeks*7)

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO stockpiles (id, vendor_id, user_id, start_date, end_date, chosen_weeks, is_active)
		VALUES ($1, $2, $3, $4, $5, $6, TRUE)`,
		pile.ID, pile.VendorID, pile.UserID, pile.StartDate, pile.EndDate, pile.ChosenWeeks)
	if err != nil {
		return fmt.Errorf("failed to create stockpile: %w", err)
	}

	for _, orderID := range pile.OrderIDs {
		if _, err := tx.ExecContext(ctx,
			"INSERT INTO stockpile_orders (stockpile_id, order_id) VALUES ($1, $2)",
			pile.ID, orderID); err != nil {
			return fmt.Errorf("failed to attach order %s: %w", orderID, err)
		}
	}

	return tx.Commit()
}

// GetStockpileByID retrieves a pile with its membership list.
func (s *Store) GetStockpileByID(ctx context.Context, id string) (*models.Stockpile, error) {
	var pile models.Stockpile
	err := s.db.GetContext(ctx, &pile, "SELECT * FROM stockpiles WHERE id = $1", id)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("stockpile %s: %w", id, errs.ErrNotFound)
	}
	if err != nil {
		return nil, err
	}

	err = s.db.SelectContext(ctx, &pile.OrderIDs,
		"SELECT order_id FROM stockpile_orders WHERE stockpile_id = $1 ORDER BY id", id)
	if err != nil {
		return nil, err
	}
	return &pile, nil
}

// GetStockpileWithRetry reads a pile that may have just been written by a
// concurrent repile. It retries a small bounded number of times with a
// fixed delay, then reports ErrNotYetVisible so callers can distinguish
// the recoverable case from a genuinely missing pile.
func (s *Store) GetStockpileWithRetry(ctx context.Context, id string, attempts int, backoff time.Duration) (*models.Stockpile, error) {
	if attempts < 1 {
		attempts = 1
	}

	var lastErr error
	for i := 0; i < attempts; i++ {
		pile, err := s.GetStockpileByID(ctx, id)
		if err == nil {
			return pile, nil
		}
		if !errors.Is(err, errs.ErrNotFound) {
			return nil, err
		}
		lastErr = err

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(backoff):
		}
	}
	return nil, fmt.Errorf("stockpile %s after %d attempts: %w (last: %v)",
		id, attempts, errs.ErrNotYetVisible, lastErr)
}

// AppendStockpileOrder appends an order to an active pile. Membership is
// append-only; removal is not supported.
func (s *Store) AppendStockpileOrder(ctx context.Context, stockpileID, orderID string) error {
	var active bool
	err := s.db.GetContext(ctx, &active,
		"SELECT is_active FROM stockpiles WHERE id = $1", stockpileID)
	if err == sql.ErrNoRows {
		return fmt.Errorf("stockpile %s: %w", stockpileID, errs.ErrNotFound)
	}
	if err != nil {
		return err
	}
	if !active {
		return errs.NewValidationError("stockpileDocId", "stockpile is no longer active")
	}

	_, err = s.db.ExecContext(ctx,
		"INSERT INTO stockpile_orders (stockpile_id, order_id) VALUES ($1, $2) ON CONFLICT DO NOTHING",
		stockpileID, orderID)
	return err
}

// CloseStockpile deactivates a pile once its merged orders ship.
func (s *Store) CloseStockpile(ctx context.Context, stockpileID string) error {
	res, err := s.db.ExecContext(ctx,
		"UPDATE stockpiles SET is_active = FALSE WHERE id = $1", stockpileID)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("stockpile %s: %w", stockpileID, errs.ErrNotFound)
	}
	return nil
}

// DeactivateExpiredStockpiles flips is_active on piles whose window has
// passed. Returns the number of piles closed.
func (s *Store) DeactivateExpiredStockpiles(ctx context.Context, now time.Time) (int64, error) {
	res, err := s.db.ExecContext(ctx,
		"UPDATE stockpiles SET is_active = FALSE WHERE is_active = TRUE AND end_date < $1", now)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
