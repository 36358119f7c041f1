package repository

import (
	"context"
	"fmt"
	"strconv"

	"judgehub/internal/common/cache"
	"judgehub/internal/dispatch/model"
)

// DefaultStatusKey is the Redis hash of in-flight submissions.
const DefaultStatusKey = "submit:status"

// StatusCache mirrors JUDGING state in a Redis hash keyed by submission id.
type StatusCache struct {
	hash cache.HashOps
	key  string
}

func NewStatusCache(hash cache.HashOps, key string) *StatusCache {
	if key == "" {
		key = DefaultStatusKey
	}
	return &StatusCache{hash: hash, key: key}
}

func (c *StatusCache) MarkJudging(ctx context.Context, submissionID string) error {
	return c.hash.HSet(ctx, c.key, submissionID, int(model.VerdictJudging))
}

func (c *StatusCache) Clear(ctx context.Context, submissionID string) error {
	return c.hash.HDel(ctx, c.key, submissionID)
}

// Get reports the cached verdict, if any.
func (c *StatusCache) Get(ctx context.Context, submissionID string) (model.Verdict, bool, error) {
	raw, err := c.hash.HGet(ctx, c.key, submissionID)
	if err != nil || raw == "" {
		return 0, false, err
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, false, fmt.Errorf("decode status %q failed: %w", raw, err)
	}
	return model.Verdict(n), true, nil
}
