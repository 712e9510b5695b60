package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"thrift-orders/internal/errs"
	"thrift-orders/internal/models"
)

// CreateOffer persists a buyer's offer with status pending.
func (s *Store) CreateOffer(ctx context.Context, offer *models.Offer) error {
	query := `
		INSERT INTO offers (id, buyer_id, vendor_id, product_id, amount, status)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING created_at`

	return s.db.GetContext(ctx, &offer.CreatedAt, query,
		offer.ID, offer.BuyerID, offer.VendorID, offer.ProductID, offer.Amount, offer.Status)
}

// GetOfferByID retrieves an offer.
func (s *Store) GetOfferByID(ctx context.Context, id string) (*models.Offer, error) {
	var offer models.Offer
	err := s.db.GetContext(ctx, &offer, "SELECT * FROM offers WHERE id = $1", id)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("offer %s: %w", id, errs.ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	return &offer, nil
}

// CountOffersSince counts a buyer's offers created at or after the given
// instant. Used for the advisory since-midnight quota count; the
// authoritative gate is the usage guard.
func (s *Store) CountOffersSince(ctx context.Context, buyerID string, since time.Time) (int, error) {
	var count int
	err := s.db.GetContext(ctx, &count,
		"SELECT COUNT(*) FROM offers WHERE buyer_id = $1 AND created_at >= $2",
		buyerID, since)
	return count, err
}

// GetOffersByBuyer retrieves a buyer's offers, newest first.
func (s *Store) GetOffersByBuyer(ctx context.Context, buyerID string) ([]models.Offer, error) {
	var offers []models.Offer
	err := s.db.SelectContext(ctx, &offers,
		"SELECT * FROM offers WHERE buyer_id = $1 ORDER BY created_at DESC", buyerID)
	return offers, err
}

// UpdateOfferStatus updates offer status (vendor accept/counter/decline).
func (s *Store) UpdateOfferStatus(ctx context.Context, offerID, status string) error {
	res, err := s.db.ExecContext(ctx,
		"UPDATE offers SET status = $1 WHERE id = $2", status, offerID)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("offer %s: %w", offerID, errs.ErrNotFound)
	}
	return nil
}
