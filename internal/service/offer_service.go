package service

import (
	"context"
	"fmt"
	"time"

	"thrift-orders/config"
	"thrift-orders/internal/errs"
	"thrift-orders/internal/guard"
	"thrift-orders/internal/models"
	"thrift-orders/internal/util"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Fixed discount tiers offered alongside the custom price.
var discountTiers = []int{10, 25}

// Quote is the selectable offer band for a product at a given list price.
type Quote struct {
	ListPrice      int64 `json:"list_price"`
	Tier10         int64 `json:"tier_10"`
	Tier25         int64 `json:"tier_25"`
	MinCustom      int64 `json:"min_custom"`
	EffectiveFloor int64 `json:"effective_floor"`
	// SoftFloorHint is true when the vendor-rule floor sits below the
	// absolute floor, so the UI should surface the absolute minimum
	// (after its own input debounce).
	SoftFloorHint bool `json:"soft_floor_hint"`
}

// SubmitOfferRequest is a buyer's proposed price for a product.
type SubmitOfferRequest struct {
	BuyerID   string            `json:"buyer_id"`
	VendorID  string            `json:"vendor_id"`
	ProductID string            `json:"product_id"`
	ListPrice int64             `json:"list_price"`
	Amount    int64             `json:"amount"`
	Variant   map[string]string `json:"variant_attributes,omitempty"`
}

// SubmitOfferResult carries the persisted offer and the optimistically
// decremented local quota. RemainingToday is a hint only; the next fetch
// of the authoritative count replaces it.
type SubmitOfferResult struct {
	Offer          *models.Offer `json:"offer"`
	RemainingToday int           `json:"remaining_today"`
}

// OfferService computes offer price bands, validates proposed prices and
// enforces the daily submission quota.
type OfferService struct {
	offers OfferStore
	gate   QuotaGate
	cfg    config.BusinessConfig
	now    func() time.Time
	logger *zap.Logger
}

// NewOfferService creates a new offer negotiation service.
func NewOfferService(offers OfferStore, gate QuotaGate, cfg config.BusinessConfig) *OfferService {
	return &OfferService{
		offers: offers,
		gate:   gate,
		cfg:    cfg,
		now:    time.Now,
		logger: util.GetLogger(),
	}
}

// Discount applies a percentage discount to a list price, rounding to the
// nearest unit and never going below zero.
func Discount(listPrice int64, pct int) int64 {
	if pct >= 100 {
		return 0
	}
	v := (listPrice*int64(100-pct) + 50) / 100
	if v < 0 {
		return 0
	}
	return v
}

// minCustom is the vendor-rule floor: the buyer cannot request more than
// cfg.OfferMaxDiscount percent off via the custom path. Rounds up.
func (s *OfferService) minCustom(listPrice int64) int64 {
	keep := int64(100 - s.cfg.OfferMaxDiscount)
	return (listPrice*keep + 99) / 100
}

// Quote computes the offer band for a product. listPrice must be positive.
func (s *OfferService) Quote(listPrice int64) (*Quote, error) {
	if listPrice <= 0 {
		return nil, errs.NewValidationError("listPrice", "must be positive")
	}

	minCustom := s.minCustom(listPrice)
	floor := minCustom
	if s.cfg.OfferMinAmount > floor {
		floor = s.cfg.OfferMinAmount
	}

	return &Quote{
		ListPrice:      listPrice,
		Tier10:         Discount(listPrice, discountTiers[0]),
		Tier25:         Discount(listPrice, discountTiers[1]),
		MinCustom:      minCustom,
		EffectiveFloor: floor,
		SoftFloorHint:  minCustom <= s.cfg.OfferMinAmount && s.cfg.OfferMinAmount < listPrice,
	}, nil
}

// ValidateCustom checks a buyer's custom price against the band: at least
// the effective floor, strictly below list price.
func (s *OfferService) ValidateCustom(listPrice, amount int64) error {
	quote, err := s.Quote(listPrice)
	if err != nil {
		return err
	}
	if amount >= listPrice {
		return errs.NewValidationError("amount", "offer must be below the list price")
	}
	if amount < quote.EffectiveFloor {
		return errs.NewValidationError("amount",
			fmt.Sprintf("offer must be at least %d", quote.EffectiveFloor))
	}
	return nil
}

// Submit validates the proposed price, checks the advisory local count,
// passes the authoritative usage gate, then persists the offer as
// pending. The returned remaining count is decremented optimistically.
func (s *OfferService) Submit(ctx context.Context, req SubmitOfferRequest) (*SubmitOfferResult, error) {
	ctx, span := util.StartSpan(ctx, "OfferService.Submit")
	defer span.End()

	if req.BuyerID == "" {
		return nil, errs.NewValidationError("buyerId", "buyer id is required")
	}
	if req.ProductID == "" {
		return nil, errs.NewValidationError("productId", "product id is required")
	}
	if err := s.ValidateCustom(req.ListPrice, req.Amount); err != nil {
		util.OffersRejectedTotal.WithLabelValues("band").Inc()
		return nil, err
	}

	// Advisory pre-check from the derived count. Cheap refusal for the
	// common case; racy by design, so the gate below has the final say.
	count, err := s.offers.CountOffersSince(ctx, req.BuyerID, localMidnight(s.now()))
	if err != nil {
		return nil, fmt.Errorf("failed to count offers: %w", err)
	}
	if count >= s.cfg.OfferDailyLimit {
		util.OffersRejectedTotal.WithLabelValues("quota").Inc()
		return nil, errs.NewRateLimitError(guard.ActionOfferSubmit, "day")
	}

	if err := s.gate.CheckAndIncrement(ctx, req.BuyerID, guard.ActionOfferSubmit, guard.Limits{
		PerDay: s.cfg.OfferDailyLimit,
	}); err != nil {
		util.OffersRejectedTotal.WithLabelValues("quota").Inc()
		return nil, err
	}

	offer := &models.Offer{
		ID:        uuid.New().String(),
		BuyerID:   req.BuyerID,
		VendorID:  req.VendorID,
		ProductID: req.ProductID,
		Amount:    req.Amount,
		Status:    models.OfferStatusPending,
		Variant:   req.Variant,
	}
	if err := s.offers.CreateOffer(ctx, offer); err != nil {
		return nil, fmt.Errorf("failed to create offer: %w", err)
	}

	util.OffersSubmittedTotal.Inc()
	s.logger.Info("Offer submitted",
		zap.String("offer_id", offer.ID),
		zap.String("buyer_id", req.BuyerID),
		zap.Int64("amount", req.Amount))

	remaining := s.cfg.OfferDailyLimit - count - 1
	if remaining < 0 {
		remaining = 0
	}
	return &SubmitOfferResult{Offer: offer, RemainingToday: remaining}, nil
}

// Respond records the vendor's answer to a pending offer. Only pending
// offers can move; accepted, declined and countered are terminal here.
func (s *OfferService) Respond(ctx context.Context, offerID, status string) (*models.Offer, error) {
	ctx, span := util.StartSpan(ctx, "OfferService.Respond")
	defer span.End()

	switch status {
	case models.OfferStatusAccepted, models.OfferStatusDeclined, models.OfferStatusCountered:
	default:
		return nil, errs.NewValidationError("status", "must be accepted, declined or countered")
	}

	offer, err := s.offers.GetOfferByID(ctx, offerID)
	if err != nil {
		return nil, err
	}
	if offer.Status != models.OfferStatusPending {
		return nil, errs.NewValidationError("status",
			fmt.Sprintf("offer is already %s", offer.Status))
	}

	if err := s.offers.UpdateOfferStatus(ctx, offerID, status); err != nil {
		return nil, fmt.Errorf("failed to update offer status: %w", err)
	}
	offer.Status = status

	s.logger.Info("Offer responded",
		zap.String("offer_id", offerID),
		zap.String("status", status))
	return offer, nil
}

// ListByBuyer returns the buyer's offers, newest first.
func (s *OfferService) ListByBuyer(ctx context.Context, buyerID string) ([]models.Offer, error) {
	return s.offers.GetOffersByBuyer(ctx, buyerID)
}

// RemainingToday derives the advisory remaining quota from offers created
// since local midnight.
func (s *OfferService) RemainingToday(ctx context.Context, buyerID string) (int, error) {
	count, err := s.offers.CountOffersSince(ctx, buyerID, localMidnight(s.now()))
	if err != nil {
		return 0, err
	}
	remaining := s.cfg.OfferDailyLimit - count
	if remaining < 0 {
		remaining = 0
	}
	return remaining, nil
}

// localMidnight returns the start of the calendar day containing t, in
// t's location.
func localMidnight(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}
