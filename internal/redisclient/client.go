package redisclient

import (
	"context"
	_ "embed"
	"encoding/json"
	"fmt"
	"time"

	"thrift-orders/internal/models"

	"github.com/go-redis/redis/v8"
)

//go:embed scripts/usage_guard.lua
var usageGuardScript string

// Key formats and TTLs for cached/derived state. Counters reset by key
// expiry, never by explicit deletion.
const (
	keyUsage       = "usage:%s:%s:%s" // usage:{action}:{userId}:{window}
	keyOrderStatus = "order_status:%s"
)

var ttlStatusCache = 5 * time.Minute

type Client struct {
	rdb         *redis.Client
	guardScript *redis.Script
}

// NewClient creates a new Redis client with the guard script loaded
func NewClient(addr, password string, db int) (*Client, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := rdb.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("redis ping failed: %w", err)
	}

	return &Client{
		rdb:         rdb,
		guardScript: redis.NewScript(usageGuardScript),
	}, nil
}

// GetClient returns the underlying Redis client
func (c *Client) GetClient() *redis.Client {
	return c.rdb
}

// Close closes the Redis connection
func (c *Client) Close() error {
	return c.rdb.Close()
}

// usageWindows labels the three fixed windows, in script argument order.
var usageWindows = []string{"minute", "hour", "day"}

// CheckAndIncrementUsage atomically checks the per-user counters for an
// action against the given limits and increments all enabled windows if
// none is exhausted. A limit of 0 disables its window. Returns the name
// of the exhausted window, or "" if the write was admitted.
//
// Keys embed the window start (day keys embed the local calendar date) so
// counters reset on the boundary; TTLs only garbage-collect stale keys.
func (c *Client) CheckAndIncrementUsage(ctx context.Context, userID, action string, perMinute, perHour, perDay int) (string, error) {
	now := time.Now()
	keys := []string{
		fmt.Sprintf(keyUsage, action, userID, now.Format("200601021504")),
		fmt.Sprintf(keyUsage, action, userID, now.Format("2006010215")),
		fmt.Sprintf(keyUsage, action, userID, now.Format("20060102")),
	}
	args := []interface{}{
		perMinute, perHour, perDay,
		int((2 * time.Minute).Seconds()),
		int((2 * time.Hour).Seconds()),
		int((25 * time.Hour).Seconds()),
	}

	result, err := c.guardScript.Run(ctx, c.rdb, keys, args...).Result()
	if err != nil {
		return "", fmt.Errorf("usage guard script failed: %w", err)
	}

	window, ok := result.(int64)
	if !ok {
		return "", fmt.Errorf("unexpected script result type")
	}
	if window == 0 {
		return "", nil
	}
	return usageWindows[window-1], nil
}

// CacheOrderStatus caches the latest known progress status for an order.
func (c *Client) CacheOrderStatus(ctx context.Context, orderID string, status models.Status) error {
	payload, err := json.Marshal(map[string]interface{}{
		"status":     status,
		"updated_at": time.Now(),
	})
	if err != nil {
		return err
	}
	return c.rdb.Set(ctx, fmt.Sprintf(keyOrderStatus, orderID), payload, ttlStatusCache).Err()
}

// GetCachedOrderStatus returns the cached status, if any.
func (c *Client) GetCachedOrderStatus(ctx context.Context, orderID string) (models.Status, bool, error) {
	raw, err := c.rdb.Get(ctx, fmt.Sprintf(keyOrderStatus, orderID)).Result()
	if err == redis.Nil {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}

	var cached struct {
		Status models.Status `json:"status"`
	}
	if err := json.Unmarshal([]byte(raw), &cached); err != nil {
		return "", false, err
	}
	return cached.Status, true, nil
}
