package appointments

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/wolfman30/muvance-crm/internal/availability"
)

const monthKeyLayout = "2006-01"

// BookingCache holds the public booking projection per month.
type BookingCache interface {
	GetMonth(ctx context.Context, month string) ([]availability.Booking, bool, error)
	SetMonth(ctx context.Context, month string, bookings []availability.Booking) error
	Invalidate(ctx context.Context, months ...string) error
}

// MonthKey formats t as the cache month key YYYY-MM.
func MonthKey(t time.Time) string {
	return t.Format(monthKeyLayout)
}

// RedisBookingCache stores each month as a JSON array under
// availability:month:YYYY-MM.
type RedisBookingCache struct {
	redis *redis.Client
	ttl   time.Duration
}

func NewRedisBookingCache(client *redis.Client, ttl time.Duration) *RedisBookingCache {
	if client == nil {
		panic("appointments: redis client cannot be nil")
	}
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return &RedisBookingCache{redis: client, ttl: ttl}
}

func monthCacheKey(month string) string {
	return fmt.Sprintf("availability:month:%s", month)
}

func (c *RedisBookingCache) GetMonth(ctx context.Context, month string) ([]availability.Booking, bool, error) {
	data, err := c.redis.Get(ctx, monthCacheKey(month)).Bytes()
	if err != nil {
		if err == redis.Nil {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("appointments: load cached month: %w", err)
	}
	var bookings []availability.Booking
	if err := json.Unmarshal(data, &bookings); err != nil {
		return nil, false, fmt.Errorf("appointments: decode cached month: %w", err)
	}
	return bookings, true, nil
}

func (c *RedisBookingCache) SetMonth(ctx context.Context, month string, bookings []availability.Booking) error {
	if bookings == nil {
		bookings = []availability.Booking{}
	}
	data, err := json.Marshal(bookings)
	if err != nil {
		return fmt.Errorf("appointments: marshal month: %w", err)
	}
	if err := c.redis.Set(ctx, monthCacheKey(month), data, c.ttl).Err(); err != nil {
		return fmt.Errorf("appointments: cache month: %w", err)
	}
	return nil
}

func (c *RedisBookingCache) Invalidate(ctx context.Context, months ...string) error {
	if len(months) == 0 {
		return nil
	}
	keys := make([]string, 0, len(months))
	for _, m := range months {
		if m != "" {
			keys = append(keys, monthCacheKey(m))
		}
	}
	if len(keys) == 0 {
		return nil
	}
	if err := c.redis.Del(ctx, keys...).Err(); err != nil {
		return fmt.Errorf("appointments: invalidate months: %w", err)
	}
	return nil
}
