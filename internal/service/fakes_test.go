package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"thrift-orders/internal/errs"
	"thrift-orders/internal/guard"
	"thrift-orders/internal/models"
)

// fakeOrderStore backs the order and fulfillment tests with an in-memory
// order map. Reads return copies so state only changes through setters,
// matching how the real store behaves.
type fakeOrderStore struct {
	orders      map[string]*models.Order
	closedPiles []string
}

func newFakeOrderStore(orders ...*models.Order) *fakeOrderStore {
	s := &fakeOrderStore{orders: make(map[string]*models.Order)}
	for _, o := range orders {
		s.orders[o.ID] = o
	}
	return s
}

func (s *fakeOrderStore) get(id string) (*models.Order, error) {
	o, ok := s.orders[id]
	if !ok {
		return nil, fmt.Errorf("order %s: %w", id, errs.ErrNotFound)
	}
	return o, nil
}

func (s *fakeOrderStore) GetOrderByID(_ context.Context, id string) (*models.Order, error) {
	o, err := s.get(id)
	if err != nil {
		return nil, err
	}
	snapshot := *o
	return &snapshot, nil
}

func (s *fakeOrderStore) UpdateOrderStatus(_ context.Context, orderID string, status models.Status) error {
	o, err := s.get(orderID)
	if err != nil {
		return err
	}
	o.ProgressStatus = status
	return nil
}

func (s *fakeOrderStore) SetDeclineReason(_ context.Context, orderID, reason string) error {
	o, err := s.get(orderID)
	if err != nil {
		return err
	}
	o.ProgressStatus = models.StatusDeclined
	o.DeclineReason = reason
	return nil
}

func (s *fakeOrderStore) SetRiderFields(_ context.Context, orderID, riderName, riderNumber, note string) error {
	o, err := s.get(orderID)
	if err != nil {
		return err
	}
	o.ProgressStatus = models.StatusShipped
	o.RiderName = riderName
	o.RiderNumber = riderNumber
	o.ShipNote = note
	return nil
}

func (s *fakeOrderStore) SetPickupWindow(_ context.Context, orderID, pickupDays, pickupTime, note string) error {
	o, err := s.get(orderID)
	if err != nil {
		return err
	}
	o.ProgressStatus = models.StatusShipped
	o.PickupDays = pickupDays
	o.PickupTime = pickupTime
	o.PickupNote = note
	return nil
}

func (s *fakeOrderStore) SetDispute(_ context.Context, orderID, reason string) error {
	o, err := s.get(orderID)
	if err != nil {
		return err
	}
	o.DisputeOrder = true
	o.DisputeReason = reason
	return nil
}

func (s *fakeOrderStore) SetReviewed(_ context.Context, orderID string) error {
	o, err := s.get(orderID)
	if err != nil {
		return err
	}
	o.IsReviewed = true
	return nil
}

func (s *fakeOrderStore) CloseStockpile(_ context.Context, stockpileID string) error {
	s.closedPiles = append(s.closedPiles, stockpileID)
	return nil
}

// fakeNotifier records the fire-and-forget signals and can simulate a
// broken transport.
type fakeNotifier struct {
	statusEvents   []*models.OrderStatusChangedEvent
	activityNotes  []string
	failStatus     bool
	failActivity   bool
}

func (n *fakeNotifier) NotifyOrderStatusChange(_ context.Context, event *models.OrderStatusChangedEvent) error {
	if n.failStatus {
		return errors.New("kafka unavailable")
	}
	n.statusEvents = append(n.statusEvents, event)
	return nil
}

func (n *fakeNotifier) AddActivityNote(_ context.Context, vendorID, title, _, _ string) error {
	if n.failActivity {
		return errors.New("kafka unavailable")
	}
	n.activityNotes = append(n.activityNotes, vendorID+":"+title)
	return nil
}

// fakeStatusCache is an in-memory stand-in for the Redis status cache.
type fakeStatusCache struct {
	statuses map[string]models.Status
	readErr  error
}

func newFakeStatusCache() *fakeStatusCache {
	return &fakeStatusCache{statuses: make(map[string]models.Status)}
}

func (c *fakeStatusCache) CacheOrderStatus(_ context.Context, orderID string, status models.Status) error {
	c.statuses[orderID] = status
	return nil
}

func (c *fakeStatusCache) GetCachedOrderStatus(_ context.Context, orderID string) (models.Status, bool, error) {
	if c.readErr != nil {
		return "", false, c.readErr
	}
	status, ok := c.statuses[orderID]
	return status, ok, nil
}

// fakeOfferStore backs the offer engine tests.
type fakeOfferStore struct {
	created    []*models.Offer
	countToday int
	countErr   error
	lastSince  time.Time
}

func (s *fakeOfferStore) CreateOffer(_ context.Context, offer *models.Offer) error {
	offer.CreatedAt = time.Now()
	s.created = append(s.created, offer)
	return nil
}

func (s *fakeOfferStore) CountOffersSince(_ context.Context, _ string, since time.Time) (int, error) {
	s.lastSince = since
	return s.countToday, s.countErr
}

func (s *fakeOfferStore) GetOfferByID(_ context.Context, id string) (*models.Offer, error) {
	for _, o := range s.created {
		if o.ID == id {
			snapshot := *o
			return &snapshot, nil
		}
	}
	return nil, fmt.Errorf("offer %s: %w", id, errs.ErrNotFound)
}

func (s *fakeOfferStore) GetOffersByBuyer(_ context.Context, buyerID string) ([]models.Offer, error) {
	var out []models.Offer
	for i := len(s.created) - 1; i >= 0; i-- {
		if s.created[i].BuyerID == buyerID {
			out = append(out, *s.created[i])
		}
	}
	return out, nil
}

func (s *fakeOfferStore) UpdateOfferStatus(_ context.Context, offerID, status string) error {
	for _, o := range s.created {
		if o.ID == offerID {
			o.Status = status
			return nil
		}
	}
	return fmt.Errorf("offer %s: %w", offerID, errs.ErrNotFound)
}

// fakePileStore backs the stockpile lifecycle tests. notVisible simulates
// the pile document lagging behind the order write.
type fakePileStore struct {
	piles      map[string]*models.Stockpile
	notVisible bool
	swept      int64
}

func newFakePileStore(piles ...*models.Stockpile) *fakePileStore {
	s := &fakePileStore{piles: make(map[string]*models.Stockpile)}
	for _, p := range piles {
		s.piles[p.ID] = p
	}
	return s
}

func (s *fakePileStore) CreateStockpile(_ context.Context, pile *models.Stockpile) error {
	pile.EndDate = pile.StartDate.AddDate(0, 0, pile.ChosenWeeks*7)
	s.piles[pile.ID] = pile
	return nil
}

func (s *fakePileStore) AppendStockpileOrder(_ context.Context, stockpileID, orderID string) error {
	p, ok := s.piles[stockpileID]
	if !ok {
		return fmt.Errorf("stockpile %s: %w", stockpileID, errs.ErrNotFound)
	}
	if !p.IsActive {
		return errs.NewValidationError("stockpileId", "stockpile is no longer active")
	}
	p.OrderIDs = append(p.OrderIDs, orderID)
	return nil
}

func (s *fakePileStore) GetStockpileWithRetry(_ context.Context, id string, _ int, _ time.Duration) (*models.Stockpile, error) {
	if s.notVisible {
		return nil, fmt.Errorf("stockpile %s: %w", id, errs.ErrNotYetVisible)
	}
	p, ok := s.piles[id]
	if !ok {
		return nil, fmt.Errorf("stockpile %s: %w", id, errs.ErrNotYetVisible)
	}
	snapshot := *p
	return &snapshot, nil
}

func (s *fakePileStore) DeactivateExpiredStockpiles(_ context.Context, _ time.Time) (int64, error) {
	return s.swept, nil
}

// fakeGate stands in for the authoritative usage guard.
type fakeGate struct {
	err   error
	calls int
}

func (g *fakeGate) CheckAndIncrement(_ context.Context, _, _ string, _ guard.Limits) error {
	g.calls++
	return g.err
}
