package service

import (
	"context"
	"fmt"
	"time"

	"thrift-orders/internal/errs"
	"thrift-orders/internal/models"
	"thrift-orders/internal/util"

	"go.uber.org/zap"
)

// PileStore is the slice of the store the pile lifecycle needs.
// Implemented by store.Store.
type PileStore interface {
	CreateStockpile(ctx context.Context, pile *models.Stockpile) error
	AppendStockpileOrder(ctx context.Context, stockpileID, orderID string) error
	GetStockpileWithRetry(ctx context.Context, id string, attempts int, backoff time.Duration) (*models.Stockpile, error)
	DeactivateExpiredStockpiles(ctx context.Context, now time.Time) (int64, error)
}

// StockpileService owns the pile lifecycle writes: opening a pile for an
// initiating order, appending repiles, and sweeping expired piles.
// Membership is append-only; piles close by shipping or by expiry.
type StockpileService struct {
	orders        OrderStore
	piles         PileStore
	retryAttempts int
	retryBackoff  time.Duration
	logger        *zap.Logger
}

// NewStockpileService creates a new stockpile lifecycle service.
func NewStockpileService(orders OrderStore, piles PileStore, retryAttempts int, retryBackoff time.Duration) *StockpileService {
	return &StockpileService{
		orders:        orders,
		piles:         piles,
		retryAttempts: retryAttempts,
		retryBackoff:  retryBackoff,
		logger:        util.GetLogger(),
	}
}

// RegisterOrder attaches a freshly checked-out order to its pile: the
// initiating order opens the pile, repiles append to it. The repile path
// tolerates the pile document lagging behind the order write with a
// bounded retry; callers get ErrNotYetVisible when it never appears.
func (s *StockpileService) RegisterOrder(ctx context.Context, orderID string) (*models.Stockpile, error) {
	ctx, span := util.StartSpan(ctx, "StockpileService.RegisterOrder")
	defer span.End()

	order, err := s.orders.GetOrderByID(ctx, orderID)
	if err != nil {
		return nil, err
	}

	origin := order.StockpileOrigin()
	switch origin.Kind {
	case models.OriginInitiating:
		pile := &models.Stockpile{
			ID:          order.StockpileDocID,
			VendorID:    order.VendorID,
			UserID:      order.UserID,
			OrderIDs:    []string{order.ID},
			StartDate:   order.CreatedAt,
			ChosenWeeks: origin.DurationWeeks,
			IsActive:    true,
		}
		if err := s.piles.CreateStockpile(ctx, pile); err != nil {
			return nil, fmt.Errorf("failed to open stockpile: %w", err)
		}
		s.logger.Info("Stockpile opened",
			zap.String("stockpile_id", pile.ID),
			zap.String("order_id", order.ID),
			zap.Int("weeks", origin.DurationWeeks))
		return pile, nil

	case models.OriginRepile:
		pile, err := s.piles.GetStockpileWithRetry(ctx, order.StockpileDocID, s.retryAttempts, s.retryBackoff)
		if err != nil {
			return nil, err
		}
		if err := s.piles.AppendStockpileOrder(ctx, pile.ID, order.ID); err != nil {
			return nil, fmt.Errorf("failed to repile order: %w", err)
		}
		pile.OrderIDs = append(pile.OrderIDs, order.ID)
		s.logger.Info("Order repiled",
			zap.String("stockpile_id", pile.ID),
			zap.String("order_id", order.ID))
		return pile, nil

	default:
		return nil, errs.NewValidationError("orderId", "order is not part of a stockpile")
	}
}

// SweepExpired deactivates piles whose window has passed. Intended to run
// periodically from the composition root.
func (s *StockpileService) SweepExpired(ctx context.Context) (int64, error) {
	closed, err := s.piles.DeactivateExpiredStockpiles(ctx, time.Now())
	if err != nil {
		return 0, fmt.Errorf("failed to sweep expired stockpiles: %w", err)
	}
	if closed > 0 {
		s.logger.Info("Expired stockpiles closed", zap.Int64("count", closed))
	}
	return closed, nil
}
