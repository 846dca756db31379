// Package publisher streams acquired listings to Redis for downstream consumers.
package publisher

import (
	"context"
	"encoding/json"
	"fmt"

	"go-job-acquisition/internal/listing"

	"github.com/redis/go-redis/v9"
)

// RedisPublisher appends each record to the stream "<prefix>:<platform>".
type RedisPublisher struct {
	client       *redis.Client
	streamPrefix string
	maxLen       int64
}

// NewRedisPublisher creates a publisher. maxLen caps each stream approximately; 0 disables trimming.
func NewRedisPublisher(addr string, db int, streamPrefix string, maxLen int64) *RedisPublisher {
	client := redis.NewClient(&redis.Options{
		Addr: addr,
		DB:   db,
	})
	return &RedisPublisher{
		client:       client,
		streamPrefix: streamPrefix,
		maxLen:       maxLen,
	}
}

// Ping checks the server is reachable.
func (p *RedisPublisher) Ping(ctx context.Context) error {
	return p.client.Ping(ctx).Err()
}

// Stream names the stream a platform publishes to.
func (p *RedisPublisher) Stream(platform listing.Platform) string {
	return p.streamPrefix + ":" + platform.Key()
}

func (p *RedisPublisher) Write(ctx context.Context, rec listing.Record) error {
	payload, err := json.Marshal(rec)
	if err != nil {
		return err
	}
	args := &redis.XAddArgs{
		Stream: p.Stream(rec.Source),
		Values: map[string]interface{}{
			"listing_id":   rec.ListingID,
			"content_hash": rec.ContentHash,
			"record":       payload,
		},
	}
	if p.maxLen > 0 {
		args.MaxLen = p.maxLen
		args.Approx = true
	}
	if err := p.client.XAdd(ctx, args).Err(); err != nil {
		return fmt.Errorf("publish %s: %w", rec.ListingID, err)
	}
	return nil
}

// Close closes the Redis connection
func (p *RedisPublisher) Close() error {
	return p.client.Close()
}
