// Package cache keeps per-assignment submission tallies in Redis.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/noah-isme/gema-classroom-api/internal/models"
)

// StatsCache stores submission tallies keyed by assignment. Entries are filed under a
// per-assignment generation; Invalidate bumps the generation so a tally computed
// before a mutation can never be served after it.
type StatsCache interface {
	// Get returns the cached tally, the generation it was looked up under and whether it was present.
	Get(ctx context.Context, assignmentID uint) (models.SubmissionTally, int64, bool, error)
	// Set stores a tally computed while generation was current.
	Set(ctx context.Context, assignmentID uint, generation int64, tally models.SubmissionTally) error
	Invalidate(ctx context.Context, assignmentID uint) error
}

type redisStatsCache struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
}

// NewStatsCache returns a Redis-backed cache, or a no-op cache when client is nil.
func NewStatsCache(client *redis.Client, prefix string, ttl time.Duration) StatsCache {
	if client == nil {
		return noopStatsCache{}
	}
	if prefix == "" {
		prefix = "classroom"
	}
	return &redisStatsCache{client: client, prefix: prefix, ttl: ttl}
}

func (c *redisStatsCache) generationKey(assignmentID uint) string {
	return fmt.Sprintf("%s:assignment:%d:gen", c.prefix, assignmentID)
}

func (c *redisStatsCache) tallyKey(assignmentID uint, generation int64) string {
	return fmt.Sprintf("%s:assignment:%d:tally:%d", c.prefix, assignmentID, generation)
}

func (c *redisStatsCache) Get(ctx context.Context, assignmentID uint) (models.SubmissionTally, int64, bool, error) {
	generation, err := c.client.Get(ctx, c.generationKey(assignmentID)).Int64()
	if err != nil && !errors.Is(err, redis.Nil) {
		return models.SubmissionTally{}, 0, false, err
	}

	raw, err := c.client.Get(ctx, c.tallyKey(assignmentID, generation)).Bytes()
	if errors.Is(err, redis.Nil) {
		return models.SubmissionTally{}, generation, false, nil
	}
	if err != nil {
		return models.SubmissionTally{}, generation, false, err
	}

	var tally models.SubmissionTally
	if err := json.Unmarshal(raw, &tally); err != nil {
		return models.SubmissionTally{}, generation, false, fmt.Errorf("decode cached tally: %w", err)
	}
	return tally, generation, true, nil
}

func (c *redisStatsCache) Set(ctx context.Context, assignmentID uint, generation int64, tally models.SubmissionTally) error {
	payload, err := json.Marshal(tally)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, c.tallyKey(assignmentID, generation), payload, c.ttl).Err()
}

// Invalidate bumps the generation. When INCR fails (for example on a corrupted
// counter) the generation is reseeded from the clock, which orphans every tally
// filed so far.
func (c *redisStatsCache) Invalidate(ctx context.Context, assignmentID uint) error {
	key := c.generationKey(assignmentID)
	err := c.client.Incr(ctx, key).Err()
	if err == nil {
		return nil
	}
	if reseedErr := c.client.Set(ctx, key, time.Now().UnixNano(), 0).Err(); reseedErr != nil {
		return errors.Join(err, reseedErr)
	}
	return nil
}

type noopStatsCache struct{}

func (noopStatsCache) Get(context.Context, uint) (models.SubmissionTally, int64, bool, error) {
	return models.SubmissionTally{}, 0, false, nil
}

func (noopStatsCache) Set(context.Context, uint, int64, models.SubmissionTally) error { return nil }

func (noopStatsCache) Invalidate(context.Context, uint) error { return nil }
