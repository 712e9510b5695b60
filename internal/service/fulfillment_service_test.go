package service

import (
	"context"
	"errors"
	"testing"

	"thrift-orders/internal/errs"
	"thrift-orders/internal/models"
	"thrift-orders/internal/watch"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newFulfillment(store OrderStore, notifier StatusNotifier) *FulfillmentService {
	return NewFulfillmentService(store, notifier, nil, watch.NewHub(), 7, 15)
}

func deliveryOrder(status models.Status) *models.Order {
	return &models.Order{
		ID:             "order-1",
		VendorID:       "vendor-1",
		UserID:         "buyer-1",
		ProgressStatus: status,
	}
}

func pickupOrder(status models.Status) *models.Order {
	o := deliveryOrder(status)
	o.IsPickup = true
	return o
}

func TestShipVendorOrder(t *testing.T) {
	store := newFakeOrderStore(deliveryOrder(models.StatusInProgress))
	notifier := &fakeNotifier{}
	svc := newFulfillment(store, notifier)

	result, err := svc.ShipVendorOrder(context.Background(), "order-1", ShipRequest{
		RiderName:   "Musa",
		RiderNumber: "08012345678",
		Note:        "call on arrival",
		VendorInfo:  VendorInfo{VendorName: "Ada Thrift"},
	})
	require.NoError(t, err)
	assert.False(t, result.AlreadyShipped)
	assert.Empty(t, result.NotifyWarning)

	order := store.orders["order-1"]
	assert.Equal(t, models.StatusShipped, order.ProgressStatus)
	assert.Equal(t, "Musa", order.RiderName)
	assert.Equal(t, "08012345678", order.RiderNumber)

	require.Len(t, notifier.statusEvents, 1)
	event := notifier.statusEvents[0]
	assert.Equal(t, "buyer-1", event.BuyerID)
	assert.Equal(t, models.StatusShipped, event.NewStatus)
	require.NotNil(t, event.Rider)
	assert.Equal(t, "Musa", event.Rider.RiderName)
	assert.Nil(t, event.Pickup)

	assert.Len(t, notifier.activityNotes, 1)
}

func TestShipVendorOrderIdempotent(t *testing.T) {
	store := newFakeOrderStore(deliveryOrder(models.StatusInProgress))
	notifier := &fakeNotifier{}
	svc := newFulfillment(store, notifier)

	req := ShipRequest{RiderName: "Musa", RiderNumber: "08012345678"}

	first, err := svc.ShipVendorOrder(context.Background(), "order-1", req)
	require.NoError(t, err)
	assert.False(t, first.AlreadyShipped)

	second, err := svc.ShipVendorOrder(context.Background(), "order-1", req)
	require.NoError(t, err)
	assert.True(t, second.AlreadyShipped)

	assert.Len(t, notifier.statusEvents, 1, "exactly one notification despite double submit")
	assert.Len(t, notifier.activityNotes, 1)
	assert.Equal(t, models.StatusShipped, store.orders["order-1"].ProgressStatus)
}

func TestShipVendorOrderValidation(t *testing.T) {
	store := newFakeOrderStore(deliveryOrder(models.StatusInProgress))
	svc := newFulfillment(store, &fakeNotifier{})

	cases := []struct {
		name string
		req  ShipRequest
	}{
		{"missing rider name", ShipRequest{RiderNumber: "08012345678"}},
		{"missing rider number", ShipRequest{RiderName: "Musa"}},
		{"rider number too short", ShipRequest{RiderName: "Musa", RiderNumber: "12345"}},
		{"rider number too long", ShipRequest{RiderName: "Musa", RiderNumber: "0801234567890123"}},
		{"rider number non-digit", ShipRequest{RiderName: "Musa", RiderNumber: "0801-345678"}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := svc.ShipVendorOrder(context.Background(), "order-1", tc.req)
			require.Error(t, err)
			assert.True(t, errs.IsValidation(err))
			assert.Equal(t, models.StatusInProgress, store.orders["order-1"].ProgressStatus,
				"validation failure must not write")
		})
	}
}

func TestShipVendorOrderInvalidStates(t *testing.T) {
	for _, status := range []models.Status{models.StatusPending, models.StatusDelivered, models.StatusDeclined} {
		t.Run(string(status), func(t *testing.T) {
			store := newFakeOrderStore(deliveryOrder(status))
			svc := newFulfillment(store, &fakeNotifier{})

			_, err := svc.ShipVendorOrder(context.Background(), "order-1",
				ShipRequest{RiderName: "Musa", RiderNumber: "08012345678"})
			require.Error(t, err)
			assert.True(t, errors.Is(err, errs.ErrInvalidTransition))
			assert.Equal(t, status, store.orders["order-1"].ProgressStatus)
		})
	}
}

func TestShipVendorOrderRejectsPickupOrders(t *testing.T) {
	store := newFakeOrderStore(pickupOrder(models.StatusInProgress))
	svc := newFulfillment(store, &fakeNotifier{})

	_, err := svc.ShipVendorOrder(context.Background(), "order-1",
		ShipRequest{RiderName: "Musa", RiderNumber: "08012345678"})
	require.Error(t, err)
	assert.True(t, errs.IsValidation(err))
}

func TestShipVendorOrderNotifyFailureIsNonFatal(t *testing.T) {
	store := newFakeOrderStore(deliveryOrder(models.StatusInProgress))
	notifier := &fakeNotifier{failStatus: true, failActivity: true}
	svc := newFulfillment(store, notifier)

	result, err := svc.ShipVendorOrder(context.Background(), "order-1",
		ShipRequest{RiderName: "Musa", RiderNumber: "08012345678"})
	require.NoError(t, err, "notification failure never rolls back the transition")
	assert.False(t, result.AlreadyShipped)
	assert.NotEmpty(t, result.NotifyWarning)
	assert.Equal(t, models.StatusShipped, store.orders["order-1"].ProgressStatus)
}

func TestShipClosesStockpile(t *testing.T) {
	order := deliveryOrder(models.StatusInProgress)
	order.IsStockpile = true
	order.StockpileDocID = "pile-9"
	store := newFakeOrderStore(order)
	svc := newFulfillment(store, &fakeNotifier{})

	_, err := svc.ShipVendorOrder(context.Background(), "order-1",
		ShipRequest{RiderName: "Musa", RiderNumber: "08012345678"})
	require.NoError(t, err)
	assert.Equal(t, []string{"pile-9"}, store.closedPiles)
}

func TestSchedulePickup(t *testing.T) {
	store := newFakeOrderStore(pickupOrder(models.StatusInProgress))
	notifier := &fakeNotifier{}
	svc := newFulfillment(store, notifier)

	// missing days is rejected before anything is written
	_, err := svc.ScheduleOrderPickup(context.Background(), "order-1", PickupRequest{
		PickupTime: models.PickupTimeMorning,
	})
	require.Error(t, err)
	assert.True(t, errs.IsValidation(err))
	assert.Equal(t, models.StatusInProgress, store.orders["order-1"].ProgressStatus)

	req := PickupRequest{
		PickupDays: models.PickupDaysWeekends,
		PickupTime: models.PickupTimeMorning,
		Note:       "gate 3",
	}

	result, err := svc.ScheduleOrderPickup(context.Background(), "order-1", req)
	require.NoError(t, err)
	assert.False(t, result.AlreadyScheduled)

	order := store.orders["order-1"]
	assert.Equal(t, models.StatusShipped, order.ProgressStatus)
	assert.Equal(t, models.PickupDaysWeekends, order.PickupDays)
	assert.Equal(t, models.PickupTimeMorning, order.PickupTime)

	require.Len(t, notifier.statusEvents, 1)
	require.NotNil(t, notifier.statusEvents[0].Pickup)
	assert.Nil(t, notifier.statusEvents[0].Rider)

	// second identical call is the already-done success, with no second
	// notification
	again, err := svc.ScheduleOrderPickup(context.Background(), "order-1", req)
	require.NoError(t, err)
	assert.True(t, again.AlreadyScheduled)
	assert.Len(t, notifier.statusEvents, 1)
}

func TestSchedulePickupValidation(t *testing.T) {
	store := newFakeOrderStore(pickupOrder(models.StatusInProgress))
	svc := newFulfillment(store, &fakeNotifier{})

	cases := []struct {
		name string
		req  PickupRequest
	}{
		{"empty days", PickupRequest{PickupDays: "", PickupTime: models.PickupTimeMorning}},
		{"unknown days", PickupRequest{PickupDays: "Someday", PickupTime: models.PickupTimeMorning}},
		{"empty time", PickupRequest{PickupDays: models.PickupDaysWeekends}},
		{"unknown time", PickupRequest{PickupDays: models.PickupDaysWeekends, PickupTime: "Midnight"}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := svc.ScheduleOrderPickup(context.Background(), "order-1", tc.req)
			require.Error(t, err)
			assert.True(t, errs.IsValidation(err))
		})
	}
}

func TestSchedulePickupRejectsDeliveryOrders(t *testing.T) {
	store := newFakeOrderStore(deliveryOrder(models.StatusInProgress))
	svc := newFulfillment(store, &fakeNotifier{})

	_, err := svc.ScheduleOrderPickup(context.Background(), "order-1", PickupRequest{
		PickupDays: models.PickupDaysWeekends,
		PickupTime: models.PickupTimeMorning,
	})
	require.Error(t, err)
	assert.True(t, errs.IsValidation(err))
}

func TestFulfillmentOrderNotFound(t *testing.T) {
	store := newFakeOrderStore()
	svc := newFulfillment(store, &fakeNotifier{})

	_, err := svc.ShipVendorOrder(context.Background(), "ghost",
		ShipRequest{RiderName: "Musa", RiderNumber: "08012345678"})
	require.Error(t, err)
	assert.True(t, errors.Is(err, errs.ErrNotFound))
}
