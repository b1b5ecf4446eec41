package services

import (
	"context"
	"fmt"
	"time"

	"github.com/kendall-kelly/rto-dispatch-api/config"
	"github.com/kendall-kelly/rto-dispatch-api/models"
	"github.com/redis/go-redis/v9"
)

// DeliveryLedger remembers which identity event deliveries were already applied
type DeliveryLedger interface {
	// Seen reports whether the delivery id was recorded before
	Seen(ctx context.Context, deliveryID string) (bool, error)

	// Record marks the delivery id as applied. Recording twice is not an error.
	Record(ctx context.Context, deliveryID, eventType string) error
}

// GormDeliveryLedger keeps the ledger in the processed_deliveries table
type GormDeliveryLedger struct {
	conn *config.Connector
}

// NewGormDeliveryLedger creates a ledger on the shared connection
func NewGormDeliveryLedger(conn *config.Connector) *GormDeliveryLedger {
	return &GormDeliveryLedger{conn: conn}
}

func (l *GormDeliveryLedger) Seen(ctx context.Context, deliveryID string) (bool, error) {
	db, err := l.conn.DB()
	if err != nil {
		return false, storeError("connect to database", err)
	}

	var count int64
	err = db.WithContext(ctx).
		Model(&models.ProcessedDelivery{}).
		Where("delivery_id = ?", deliveryID).
		Count(&count).Error
	if err != nil {
		return false, storeError("check delivery", err)
	}
	return count > 0, nil
}

func (l *GormDeliveryLedger) Record(ctx context.Context, deliveryID, eventType string) error {
	db, err := l.conn.DB()
	if err != nil {
		return storeError("connect to database", err)
	}

	entry := models.ProcessedDelivery{DeliveryID: deliveryID, EventType: eventType}
	if err := db.WithContext(ctx).Create(&entry).Error; err != nil && !isUniqueViolation(err) {
		return storeError("record delivery", err)
	}
	return nil
}

const redisDeliveryPrefix = "identity:delivery:"

// RedisDeliveryLedger keeps delivery ids in Redis and lets them expire after ttl
type RedisDeliveryLedger struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisDeliveryLedger parses a redis:// URL and creates a ledger
func NewRedisDeliveryLedger(redisURL string, ttl time.Duration) (*RedisDeliveryLedger, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("invalid REDIS_URL: %w", err)
	}
	return NewRedisDeliveryLedgerWithClient(redis.NewClient(opts), ttl), nil
}

// NewRedisDeliveryLedgerWithClient wraps an existing client
func NewRedisDeliveryLedgerWithClient(client *redis.Client, ttl time.Duration) *RedisDeliveryLedger {
	return &RedisDeliveryLedger{client: client, ttl: ttl}
}

func (l *RedisDeliveryLedger) Seen(ctx context.Context, deliveryID string) (bool, error) {
	n, err := l.client.Exists(ctx, redisDeliveryPrefix+deliveryID).Result()
	if err != nil {
		return false, storeError("check delivery", err)
	}
	return n > 0, nil
}

func (l *RedisDeliveryLedger) Record(ctx context.Context, deliveryID, eventType string) error {
	if err := l.client.SetNX(ctx, redisDeliveryPrefix+deliveryID, eventType, l.ttl).Err(); err != nil {
		return storeError("record delivery", err)
	}
	return nil
}

// Close releases the Redis connection pool
func (l *RedisDeliveryLedger) Close() error {
	return l.client.Close()
}
