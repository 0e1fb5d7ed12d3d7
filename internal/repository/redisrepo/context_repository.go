// Package redisrepo shares conversational context across instances.
package redisrepo

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"rolplay-assistant-be/pkg/conversation"
)

const (
	keyPrefix  = "rolplay:context:"
	maxRetries = 5
)

// ErrContention is returned when an update kept losing the optimistic lock.
var ErrContention = errors.New("context update contention")

type ContextRepository struct {
	rdb *redis.Client
	ttl time.Duration
}

func NewContextRepository(rdb *redis.Client, ttl time.Duration) *ContextRepository {
	return &ContextRepository{rdb: rdb, ttl: ttl}
}

func key(sessionID string) string { return keyPrefix + sessionID }

func (r *ContextRepository) Get(ctx context.Context, sessionID string) (conversation.Context, error) {
	return read(ctx, r.rdb, key(sessionID))
}

// Update merges under WATCH so concurrent turns of one session never lose
// each other's values.
func (r *ContextRepository) Update(ctx context.Context, sessionID, queryType string, values conversation.Values) (conversation.Context, error) {
	k := key(sessionID)
	var next conversation.Context

	txf := func(tx *redis.Tx) error {
		current, err := read(ctx, tx, k)
		if err != nil {
			return err
		}
		next = current.Merge(queryType, values)
		raw, err := json.Marshal(next)
		if err != nil {
			return fmt.Errorf("failed to encode context: %w", err)
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, k, raw, r.ttl)
			return nil
		})
		return err
	}

	for attempt := 0; attempt < maxRetries; attempt++ {
		err := r.rdb.Watch(ctx, txf, k)
		if err == nil {
			return next, nil
		}
		if errors.Is(err, redis.TxFailedErr) {
			continue
		}
		return conversation.Context{}, fmt.Errorf("failed to update context for %s: %w", sessionID, err)
	}
	return conversation.Context{}, fmt.Errorf("%w: session %s", ErrContention, sessionID)
}

func (r *ContextRepository) Delete(ctx context.Context, sessionID string) error {
	if err := r.rdb.Del(ctx, key(sessionID)).Err(); err != nil {
		return fmt.Errorf("failed to delete context for %s: %w", sessionID, err)
	}
	return nil
}

type getter interface {
	Get(ctx context.Context, key string) *redis.StringCmd
}

func read(ctx context.Context, c getter, k string) (conversation.Context, error) {
	raw, err := c.Get(ctx, k).Bytes()
	if errors.Is(err, redis.Nil) {
		return conversation.Context{}, nil
	}
	if err != nil {
		return conversation.Context{}, fmt.Errorf("failed to read context: %w", err)
	}
	var out conversation.Context
	if err := json.Unmarshal(raw, &out); err != nil {
		return conversation.Context{}, fmt.Errorf("failed to decode context: %w", err)
	}
	return out, nil
}
