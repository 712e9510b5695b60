package guard

import (
	"context"
	"errors"
	"testing"

	"thrift-orders/internal/errs"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeCounter struct {
	window    string
	err       error
	lastUser  string
	lastDay   int
	lastHour  int
	lastMin   int
	callCount int
}

func (f *fakeCounter) CheckAndIncrementUsage(_ context.Context, userID, _ string, perMinute, perHour, perDay int) (string, error) {
	f.callCount++
	f.lastUser = userID
	f.lastMin = perMinute
	f.lastHour = perHour
	f.lastDay = perDay
	return f.window, f.err
}

func TestCheckAndIncrementAdmits(t *testing.T) {
	counter := &fakeCounter{}
	g := New(counter)

	err := g.CheckAndIncrement(context.Background(), "buyer-1", ActionOfferSubmit,
		Limits{PerDay: 10})
	require.NoError(t, err)
	assert.Equal(t, 1, counter.callCount)
	assert.Equal(t, "buyer-1", counter.lastUser)
	assert.Equal(t, 10, counter.lastDay)
	assert.Zero(t, counter.lastMin, "unset windows stay disabled")
	assert.Zero(t, counter.lastHour)
}

func TestCheckAndIncrementRefuses(t *testing.T) {
	counter := &fakeCounter{window: "day"}
	g := New(counter)

	err := g.CheckAndIncrement(context.Background(), "buyer-1", ActionOfferSubmit,
		Limits{PerDay: 10})
	require.Error(t, err)
	assert.True(t, errors.Is(err, errs.ErrRateLimitExceeded))

	var rle *errs.RateLimitError
	require.True(t, errors.As(err, &rle))
	assert.Equal(t, "day", rle.Window)
	assert.Equal(t, ActionOfferSubmit, rle.Action)
}

func TestCheckAndIncrementPropagatesCounterFailure(t *testing.T) {
	counter := &fakeCounter{err: errors.New("redis down")}
	g := New(counter)

	err := g.CheckAndIncrement(context.Background(), "buyer-1", ActionFollow, Limits{PerMinute: 5})
	require.Error(t, err)
	assert.False(t, errors.Is(err, errs.ErrRateLimitExceeded),
		"infrastructure failure is not a quota refusal")
}
