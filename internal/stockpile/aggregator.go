// Package stockpile derives display-ready pile groups from raw orders.
// Aggregation is recomputed in full on every read; nothing here patches
// previously derived state, so concurrent repiles cannot cause drift.
package stockpile

import (
	"context"
	"sort"
	"time"

	"thrift-orders/internal/models"
	"thrift-orders/internal/util"

	"go.uber.org/zap"
)

// Lookup resolves the authoritative Stockpile entity for a pile id.
// Implemented by store.Store (with bounded-retry reads underneath).
type Lookup interface {
	GetStockpileWithRetry(ctx context.Context, id string, attempts int, backoff time.Duration) (*models.Stockpile, error)
}

// MergedItem is one line entry in a merged pile view, tagged with the
// order it came from. Repeated purchases of the same product across
// repiles stay distinct entries.
type MergedItem struct {
	models.CartItem
	OrderID        string    `json:"order_id"`
	OrderCreatedAt time.Time `json:"order_created_at"`
}

// Group is one pile ready for display or action. Identity fields come
// from the primary (earliest) order in the pile.
type Group struct {
	StockpileID      string       `json:"stockpile_id"`
	VendorID         string       `json:"vendor_id"`
	UserID           string       `json:"user_id"`
	PrimaryOrderID   string       `json:"primary_order_id"`
	PrimaryCreatedAt time.Time    `json:"primary_created_at"`
	RepileCount      int          `json:"repile_count"`
	CombinedTotal    int64        `json:"combined_total"`
	CombinedSubtotal int64        `json:"combined_subtotal"`
	Items            []MergedItem `json:"items"`

	StartDate   time.Time `json:"start_date"`
	EndDate     time.Time `json:"end_date"`
	ChosenWeeks int       `json:"chosen_weeks"`
	IsActive    bool      `json:"is_active"`

	// Degraded marks groups rendered from order-level fallback fields
	// because the Stockpile entity lookup failed. Still displayable.
	Degraded bool `json:"degraded,omitempty"`
}

// Aggregator groups stockpile orders into merged piles.
type Aggregator struct {
	lookup        Lookup
	retryAttempts int
	retryBackoff  time.Duration
	logger        *zap.Logger
}

// NewAggregator creates an aggregator over a stockpile lookup.
func NewAggregator(lookup Lookup, retryAttempts int, retryBackoff time.Duration) *Aggregator {
	return &Aggregator{
		lookup:        lookup,
		retryAttempts: retryAttempts,
		retryBackoff:  retryBackoff,
		logger:        util.GetLogger(),
	}
}

// Aggregate turns a flat order list (already scoped to one vendor, or one
// vendor+buyer pair) into merged pile groups, most recent pile first.
func (a *Aggregator) Aggregate(ctx context.Context, orders []models.Order, now time.Time) []Group {
	start := time.Now()
	defer func() {
		util.StockpileAggregationLatency.Observe(time.Since(start).Seconds())
	}()

	groups := buildGroups(orders, now)

	for i := range groups {
		a.resolveTiming(ctx, &groups[i], now)
	}

	sort.SliceStable(groups, func(i, j int) bool {
		return groups[i].PrimaryCreatedAt.After(groups[j].PrimaryCreatedAt)
	})
	return groups
}

type pileKey struct {
	vendorID    string
	stockpileID string
}

// buildGroups does the pure grouping/merging work: filter, group by
// (vendorId, stockpileDocId), pick the earliest order as primary, merge
// line items in order age order, and sum totals.
func buildGroups(orders []models.Order, now time.Time) []Group {
	byPile := make(map[pileKey][]models.Order)
	var keyOrder []pileKey

	for _, o := range orders {
		if !o.IsStockpile || o.StockpileDocID == "" {
			continue
		}
		k := pileKey{vendorID: o.VendorID, stockpileID: o.StockpileDocID}
		if _, seen := byPile[k]; !seen {
			keyOrder = append(keyOrder, k)
		}
		byPile[k] = append(byPile[k], o)
	}

	groups := make([]Group, 0, len(byPile))
	for _, k := range keyOrder {
		members := byPile[k]
		sort.SliceStable(members, func(i, j int) bool {
			return members[i].CreatedAt.Before(members[j].CreatedAt)
		})

		primary := members[0]
		g := Group{
			StockpileID:      k.stockpileID,
			VendorID:         primary.VendorID,
			UserID:           primary.UserID,
			PrimaryOrderID:   primary.ID,
			PrimaryCreatedAt: primary.CreatedAt,
			RepileCount:      len(members) - 1,
		}

		for _, m := range members {
			g.CombinedTotal += m.Total
			g.CombinedSubtotal += m.Subtotal
			for _, item := range m.CartItems {
				g.Items = append(g.Items, MergedItem{
					CartItem:       item,
					OrderID:        m.ID,
					OrderCreatedAt: m.CreatedAt,
				})
			}
		}

		// Order-level fallback timing; overwritten when the Stockpile
		// entity resolves.
		g.Degraded = true
		if origin := primary.StockpileOrigin(); origin.Kind == models.OriginInitiating {
			g.ChosenWeeks = origin.DurationWeeks
			g.StartDate = primary.CreatedAt
			g.EndDate = primary.CreatedAt.AddDate(0, 0, origin.DurationWeeks*7)
			g.IsActive = now.Before(g.EndDate)
		}

		groups = append(groups, g)
	}
	return groups
}

// resolveTiming replaces fallback timing with the authoritative Stockpile
// entity when it can be read. Lookup failure is degraded-but-available,
// never fatal for the view.
func (a *Aggregator) resolveTiming(ctx context.Context, g *Group, now time.Time) {
	pile, err := a.lookup.GetStockpileWithRetry(ctx, g.StockpileID, a.retryAttempts, a.retryBackoff)
	if err != nil {
		a.logger.Warn("Stockpile lookup failed, rendering from order fields",
			zap.String("stockpile_id", g.StockpileID),
			zap.Error(err))
		return
	}

	g.StartDate = pile.StartDate
	g.EndDate = pile.EndDate
	g.ChosenWeeks = pile.ChosenWeeks
	g.IsActive = pile.IsActive && !pile.Expired(now)
	g.Degraded = false
}

// BucketByWeeks sections groups by chosen duration for duration-based
// display. Groups within a bucket keep their newest-first order.
func BucketByWeeks(groups []Group) map[int][]Group {
	buckets := make(map[int][]Group)
	for _, g := range groups {
		buckets[g.ChosenWeeks] = append(buckets[g.ChosenWeeks], g)
	}
	return buckets
}
