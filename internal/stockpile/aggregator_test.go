package stockpile

import (
	"context"
	"fmt"
	"testing"
	"time"

	"thrift-orders/internal/errs"
	"thrift-orders/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeLookup struct {
	piles map[string]*models.Stockpile
	calls int
}

func (f *fakeLookup) GetStockpileWithRetry(_ context.Context, id string, _ int, _ time.Duration) (*models.Stockpile, error) {
	f.calls++
	if pile, ok := f.piles[id]; ok {
		return pile, nil
	}
	return nil, fmt.Errorf("stockpile %s: %w", id, errs.ErrNotYetVisible)
}

func intPtr(v int) *int { return &v }

func pileOrder(id, pileID string, createdAt time.Time, total, subtotal int64, weeks *int) models.Order {
	return models.Order{
		ID:             id,
		VendorID:       "vendor-1",
		UserID:         "buyer-1",
		ProgressStatus: models.StatusPending,
		CreatedAt:      createdAt,
		IsStockpile:    true,
		StockpileDocID: pileID,
		StockpileWeeks: weeks,
		Subtotal:       subtotal,
		Total:          total,
		CartItems: []models.CartItem{
			{OrderID: id, ProductID: "prod-" + id, Quantity: 1, Price: subtotal},
		},
	}
}

func TestAggregateGroupsAndTotals(t *testing.T) {
	base := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	lookup := &fakeLookup{piles: map[string]*models.Stockpile{
		"pile-1": {
			ID: "pile-1", VendorID: "vendor-1", UserID: "buyer-1",
			StartDate: base, EndDate: base.AddDate(0, 0, 14), ChosenWeeks: 2, IsActive: true,
		},
	}}
	agg := NewAggregator(lookup, 1, 0)

	orders := []models.Order{
		pileOrder("o3", "pile-1", base.Add(48*time.Hour), 500, 450, nil),
		pileOrder("o1", "pile-1", base, 1000, 900, intPtr(2)),
		pileOrder("o2", "pile-1", base.Add(24*time.Hour), 700, 650, nil),
		// same product bought again on a repile stays a distinct line
		{
			ID: "o4", VendorID: "vendor-1", UserID: "buyer-1",
			CreatedAt: base.Add(72 * time.Hour), IsStockpile: true, StockpileDocID: "pile-1",
			Total: 300, Subtotal: 300,
			CartItems: []models.CartItem{{OrderID: "o4", ProductID: "prod-o1", Quantity: 1, Price: 300}},
		},
		// non-stockpile orders are filtered out
		{ID: "o5", VendorID: "vendor-1", UserID: "buyer-1", CreatedAt: base, Total: 9999},
		// stockpile flag without a pile reference is filtered out too
		{ID: "o6", VendorID: "vendor-1", UserID: "buyer-1", CreatedAt: base, IsStockpile: true, Total: 9999},
	}

	groups := agg.Aggregate(context.Background(), orders, base.Add(24*time.Hour))
	require.Len(t, groups, 1)

	g := groups[0]
	assert.Equal(t, "pile-1", g.StockpileID)
	assert.Equal(t, "o1", g.PrimaryOrderID, "earliest order is primary")
	assert.Equal(t, 3, g.RepileCount)
	assert.Equal(t, int64(1000+700+500+300), g.CombinedTotal)
	assert.Equal(t, int64(900+650+450+300), g.CombinedSubtotal)

	require.Len(t, g.Items, 4)
	assert.Equal(t, "o1", g.Items[0].OrderID, "items keep order age order")
	assert.Equal(t, "o4", g.Items[3].OrderID)
	assert.Equal(t, "prod-o1", g.Items[3].ProductID, "repeat purchase stays a distinct line")

	assert.Equal(t, 2, g.ChosenWeeks)
	assert.True(t, g.IsActive)
	assert.False(t, g.Degraded)
}

func TestAggregateSortsGroupsNewestFirst(t *testing.T) {
	base := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	lookup := &fakeLookup{piles: map[string]*models.Stockpile{}}
	agg := NewAggregator(lookup, 1, 0)

	orders := []models.Order{
		pileOrder("a1", "pile-a", base, 100, 100, intPtr(1)),
		pileOrder("b1", "pile-b", base.Add(time.Hour), 200, 200, intPtr(2)),
	}

	groups := agg.Aggregate(context.Background(), orders, base)
	require.Len(t, groups, 2)
	assert.Equal(t, "pile-b", groups[0].StockpileID)
	assert.Equal(t, "pile-a", groups[1].StockpileID)
}

func TestAggregateFallbackWhenLookupFails(t *testing.T) {
	base := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	lookup := &fakeLookup{piles: map[string]*models.Stockpile{}}
	agg := NewAggregator(lookup, 1, 0)

	orders := []models.Order{
		pileOrder("o1", "pile-x", base, 1000, 900, intPtr(3)),
		pileOrder("o2", "pile-x", base.Add(time.Hour), 500, 500, nil),
	}

	groups := agg.Aggregate(context.Background(), orders, base.Add(time.Hour))
	require.Len(t, groups, 1)

	g := groups[0]
	assert.True(t, g.Degraded, "lookup failure degrades, never drops, the group")
	assert.Equal(t, 3, g.ChosenWeeks, "falls back to the primary order's duration")
	assert.Equal(t, base, g.StartDate)
	assert.Equal(t, base.AddDate(0, 0, 21), g.EndDate)
	assert.True(t, g.IsActive)
	assert.Equal(t, 1, g.RepileCount)
	assert.Equal(t, int64(1500), g.CombinedTotal)
}

func TestAggregateExpiredPileInactive(t *testing.T) {
	base := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	lookup := &fakeLookup{piles: map[string]*models.Stockpile{
		"pile-1": {
			ID: "pile-1", StartDate: base, EndDate: base.AddDate(0, 0, 7),
			ChosenWeeks: 1, IsActive: true,
		},
	}}
	agg := NewAggregator(lookup, 1, 0)

	orders := []models.Order{pileOrder("o1", "pile-1", base, 100, 100, intPtr(1))}
	groups := agg.Aggregate(context.Background(), orders, base.AddDate(0, 0, 10))
	require.Len(t, groups, 1)
	assert.False(t, groups[0].IsActive, "window elapsed overrides the stored flag")
}

func TestBucketByWeeks(t *testing.T) {
	groups := []Group{
		{StockpileID: "a", ChosenWeeks: 1},
		{StockpileID: "b", ChosenWeeks: 2},
		{StockpileID: "c", ChosenWeeks: 1},
	}

	buckets := BucketByWeeks(groups)
	require.Len(t, buckets, 2)
	assert.Len(t, buckets[1], 2)
	assert.Len(t, buckets[2], 1)
	assert.Equal(t, "b", buckets[2][0].StockpileID)
}
