// Package cache wraps the Valkey client used to cache the hot
// published-events listing. Cache failures are never fatal; callers
// fall through to the database.
package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

type ValkeyClient struct {
	client *redis.Client
	ttl    time.Duration
}

func NewValkeyClient(addr, password string, ttl time.Duration) (*ValkeyClient, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:         addr,
		Password:     password,
		DB:           0,
		ReadTimeout:  2 * time.Second,
		WriteTimeout: 2 * time.Second,
		DialTimeout:  5 * time.Second,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := rdb.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to Valkey: %w", err)
	}

	return &ValkeyClient{
		client: rdb,
		ttl:    ttl,
	}, nil
}

func listKey(page, pageSize int) string {
	return fmt.Sprintf("events:list:%d:%d", page, pageSize)
}

// GetEventsListRaw returns the cached listing page as raw JSON, ready
// to hand straight to the response writer.
func (v *ValkeyClient) GetEventsListRaw(ctx context.Context, page, pageSize int) ([]byte, error) {
	raw, err := v.client.Get(ctx, listKey(page, pageSize)).Bytes()
	if err != nil {
		if err == redis.Nil {
			return nil, fmt.Errorf("cache miss")
		}
		return nil, fmt.Errorf("cache lookup error: %w", err)
	}
	return raw, nil
}

// SetEventsList stores a listing page. Errors are swallowed: a cache
// write failure must never affect the request.
func (v *ValkeyClient) SetEventsList(ctx context.Context, page, pageSize int, response interface{}) {
	raw, err := json.Marshal(response)
	if err != nil {
		return
	}
	v.client.Set(ctx, listKey(page, pageSize), raw, v.ttl)
}

// InvalidateEventsList drops every cached listing page. Called after
// any mutation that changes what participants see.
func (v *ValkeyClient) InvalidateEventsList(ctx context.Context) {
	iter := v.client.Scan(ctx, 0, "events:list:*", 100).Iterator()
	for iter.Next(ctx) {
		v.client.Del(ctx, iter.Val())
	}
}

func (v *ValkeyClient) Close() error {
	return v.client.Close()
}
