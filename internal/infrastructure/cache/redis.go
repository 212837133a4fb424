package cache

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const idempotencyPrefix = "idempotency:unit-transfer:"

// Connect parses a redis:// URL and returns a client.
func Connect(url string) (*redis.Client, error) {
	opt, err := redis.ParseURL(url)
	if err != nil {
		return nil, err
	}
	return redis.NewClient(opt), nil
}

// Reservation is the state of an Idempotency-Key after Reserve.
type Reservation int

const (
	// Reserved: the caller owns the key and must Complete or Release it.
	Reserved Reservation = iota
	// InFlight: another request holds the key and has not finished.
	InFlight
	// Done: the key is bound to a transfer.
	Done
)

const pendingValue = "pending"

// IdempotencyStore maps an Idempotency-Key to the transfer it produced. A key
// is reserved before the transfer runs so two requests with the same key never
// both reach the database.
type IdempotencyStore struct {
	Rdb *redis.Client
	TTL time.Duration
	// PendingTTL bounds how long a crashed request can hold a key.
	PendingTTL time.Duration
}

func (s *IdempotencyStore) enabled(key string) bool {
	return s != nil && s.Rdb != nil && key != ""
}

func (s *IdempotencyStore) ttl() time.Duration {
	if s.TTL <= 0 {
		return 24 * time.Hour
	}
	return s.TTL
}

func (s *IdempotencyStore) pendingTTL() time.Duration {
	if s.PendingTTL <= 0 {
		return 2 * time.Minute
	}
	return s.PendingTTL
}

// Reserve claims key with SETNX. When the key is already held it reports
// whether the holder is still running or which transfer it produced. A store
// without redis always returns Reserved.
func (s *IdempotencyStore) Reserve(ctx context.Context, key string) (Reservation, uuid.UUID, error) {
	if !s.enabled(key) {
		return Reserved, uuid.Nil, nil
	}
	rk := idempotencyPrefix + key
	for attempt := 0; attempt < 2; attempt++ {
		ok, err := s.Rdb.SetNX(ctx, rk, pendingValue, s.pendingTTL()).Result()
		if err != nil {
			return Reserved, uuid.Nil, err
		}
		if ok {
			return Reserved, uuid.Nil, nil
		}
		v, err := s.Rdb.Get(ctx, rk).Result()
		if errors.Is(err, redis.Nil) {
			// expired between SETNX and GET
			continue
		}
		if err != nil {
			return Reserved, uuid.Nil, err
		}
		if id, perr := uuid.Parse(v); perr == nil {
			return Done, id, nil
		}
		return InFlight, uuid.Nil, nil
	}
	return InFlight, uuid.Nil, nil
}

// Complete binds a reserved key to transferID for the full TTL.
func (s *IdempotencyStore) Complete(ctx context.Context, key string, transferID uuid.UUID) error {
	if !s.enabled(key) {
		return nil
	}
	return s.Rdb.Set(ctx, idempotencyPrefix+key, transferID.String(), s.ttl()).Err()
}

// Release frees a reserved key so the request can be retried.
func (s *IdempotencyStore) Release(ctx context.Context, key string) error {
	if !s.enabled(key) {
		return nil
	}
	return s.Rdb.Del(ctx, idempotencyPrefix+key).Err()
}
