package draft

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
)

const keyPrefix = "booking_draft:"

// Store persists drafts in Redis with a TTL so abandoned wizards expire on
// their own.
type Store struct {
	rdb *redis.Client
	ttl time.Duration
}

func NewStore(rdb *redis.Client, ttl time.Duration) *Store {
	if ttl <= 0 {
		ttl = 30 * time.Minute
	}
	return &Store{rdb: rdb, ttl: ttl}
}

func (s *Store) Get(ctx context.Context, token string) (Draft, bool, error) {
	raw, err := s.rdb.Get(ctx, keyPrefix+token).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return Draft{}, false, nil
		}
		return Draft{}, false, err
	}
	var d Draft
	if err := json.Unmarshal(raw, &d); err != nil {
		return Draft{}, false, err
	}
	return d, true, nil
}

// Put writes the draft and refreshes its TTL, so the session stays alive as
// long as the visitor keeps moving through the wizard.
func (s *Store) Put(ctx context.Context, d Draft) error {
	d.UpdatedAt = time.Now().UTC()
	raw, err := json.Marshal(d)
	if err != nil {
		return err
	}
	return s.rdb.Set(ctx, keyPrefix+d.Token, raw, s.ttl).Err()
}

func (s *Store) Delete(ctx context.Context, token string) error {
	return s.rdb.Del(ctx, keyPrefix+token).Err()
}
