package repository

import (
	"context"
	"errors"
	"strconv"
	"time"

	"judgehub/internal/common/cache"
	"judgehub/internal/common/db"
	"judgehub/internal/dispatch/model"
)

const (
	defaultContestTTL      = 5 * time.Minute
	defaultContestEmptyTTL = time.Minute
	contestKeyPrefix       = "contest:info:"
)

// ContestRepository reads contest timing and rule type.
type ContestRepository struct {
	db    db.Database
	cache cache.Cache
	ttl   time.Duration
}

func NewContestRepository(database db.Database, cacheClient cache.Cache, ttl time.Duration) *ContestRepository {
	if ttl <= 0 {
		ttl = defaultContestTTL
	}
	return &ContestRepository{db: database, cache: cacheClient, ttl: ttl}
}

func (r *ContestRepository) Get(ctx context.Context, id int64) (*model.Contest, error) {
	if r.cache == nil {
		return r.getFromDB(ctx, id)
	}
	c, err := cache.GetWithCached[*model.Contest](
		ctx,
		r.cache,
		contestKeyPrefix+strconv.FormatInt(id, 10),
		cache.JitterTTL(r.ttl),
		cache.JitterTTL(defaultContestEmptyTTL),
		func(c *model.Contest) bool { return c == nil },
		marshalJSON[*model.Contest],
		unmarshalJSON[*model.Contest],
		func(ctx context.Context) (*model.Contest, error) {
			c, err := r.getFromDB(ctx, id)
			if errors.Is(err, model.ErrContestNotFound) {
				return nil, nil
			}
			return c, err
		},
	)
	if err != nil {
		return nil, err
	}
	if c == nil {
		return nil, model.ErrContestNotFound
	}
	return c, nil
}

func (r *ContestRepository) getFromDB(ctx context.Context, id int64) (*model.Contest, error) {
	query := `
		SELECT id, title, rule_type, real_time_rank, start_time, end_time
		FROM contest
		WHERE id = ?`
	var c model.Contest
	err := r.db.QueryRow(ctx, query, id).Scan(&c.ID, &c.Title, &c.RuleType, &c.RealTimeRank, &c.StartTime, &c.EndTime)
	if err != nil {
		if db.IsNoRows(err) {
			return nil, model.ErrContestNotFound
		}
		return nil, err
	}
	return &c, nil
}
