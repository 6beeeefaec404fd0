package redis

import (
	"context"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/utafrali/storefront/pkg/database"
)

const keyPrefix = "storefront:"

// Store implements repository.KeyValueStore using Redis. Keys are namespaced
// per client and never expire.
type Store struct {
	client   *redis.Client
	clientID string
}

// NewStore creates a Redis-backed store for the given client namespace.
func NewStore(client *redis.Client, clientID string) *Store {
	return &Store{
		client:   client,
		clientID: clientID,
	}
}

func (s *Store) key(k string) string {
	return keyPrefix + s.clientID + ":" + k
}

// Get retrieves the value stored under key.
func (s *Store) Get(ctx context.Context, key string) (_ string, _ bool, err error) {
	k := s.key(key)
	ctx, end := database.TraceCommand(ctx, "GET", k)
	defer func() { end(err) }()

	v, err := s.client.Get(ctx, k).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return "", false, nil
		}
		return "", false, fmt.Errorf("redis get %s: %w", key, err)
	}
	return v, true, nil
}

// Set stores value under key without expiry.
func (s *Store) Set(ctx context.Context, key, value string) (err error) {
	k := s.key(key)
	ctx, end := database.TraceCommand(ctx, "SET", k)
	defer func() { end(err) }()

	if err = s.client.Set(ctx, k, value, 0).Err(); err != nil {
		return fmt.Errorf("redis set %s: %w", key, err)
	}
	return nil
}

// Delete removes key.
func (s *Store) Delete(ctx context.Context, key string) (err error) {
	k := s.key(key)
	ctx, end := database.TraceCommand(ctx, "DEL", k)
	defer func() { end(err) }()

	if err = s.client.Del(ctx, k).Err(); err != nil {
		return fmt.Errorf("redis del %s: %w", key, err)
	}
	return nil
}
