package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"judgehub/internal/common/cache"
	"judgehub/internal/dispatch/model"
	"judgehub/pkg/utils/logger"

	"github.com/klauspost/compress/zstd"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

const (
	DefaultRankChangeThreshold = 6
	DefaultRankCounterTTL      = time.Hour
	DefaultRankSnapshotTTL     = 10 * time.Minute

	rankKeyPrefix       = "contest:rank:"
	rankChangeKeyPrefix = "contest:rank-change:"
)

// RankLister reads ordered standings from the database.
type RankLister interface {
	ListACM(ctx context.Context, contestID int64) ([]model.ACMContestRank, error)
	ListOI(ctx context.Context, contestID int64) ([]model.OIContestRank, error)
}

// RankCacheConfig tunes snapshot invalidation.
type RankCacheConfig struct {
	// ChangeThreshold is how many rank changes drop the cached snapshot.
	ChangeThreshold int64         `yaml:"changeThreshold"`
	CounterTTL      time.Duration `yaml:"counterTTL"`
	SnapshotTTL     time.Duration `yaml:"snapshotTTL"`
}

// RankCache keeps a zstd-compressed JSON snapshot of each contest's standings in Redis.
// Concurrent rebuilds of the same contest share one database read.
type RankCache struct {
	cache   cache.Cache
	lister  RankLister
	cfg     RankCacheConfig
	group   singleflight.Group
	encoder *zstd.Encoder
	decoder *zstd.Decoder
}

func NewRankCache(cacheClient cache.Cache, lister RankLister, cfg RankCacheConfig) (*RankCache, error) {
	if cacheClient == nil || lister == nil {
		return nil, errors.New("cache and lister are required")
	}
	if cfg.ChangeThreshold <= 0 {
		cfg.ChangeThreshold = DefaultRankChangeThreshold
	}
	if cfg.CounterTTL <= 0 {
		cfg.CounterTTL = DefaultRankCounterTTL
	}
	if cfg.SnapshotTTL <= 0 {
		cfg.SnapshotTTL = DefaultRankSnapshotTTL
	}
	encoder, err := zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedDefault))
	if err != nil {
		return nil, fmt.Errorf("create zstd encoder failed: %w", err)
	}
	decoder, err := zstd.NewReader(nil)
	if err != nil {
		return nil, fmt.Errorf("create zstd decoder failed: %w", err)
	}
	return &RankCache{cache: cacheClient, lister: lister, cfg: cfg, encoder: encoder, decoder: decoder}, nil
}

func rankKey(contestID int64) string {
	return rankKeyPrefix + strconv.FormatInt(contestID, 10)
}

func rankChangeKey(contestID int64) string {
	return rankChangeKeyPrefix + strconv.FormatInt(contestID, 10)
}

// NoteRankChange counts a committed rank change and drops the snapshot every ChangeThreshold changes.
func (c *RankCache) NoteRankChange(ctx context.Context, contestID int64) error {
	n, err := c.cache.Incr(ctx, rankChangeKey(contestID))
	if err != nil {
		return err
	}
	if n%c.cfg.ChangeThreshold != 0 {
		return nil
	}
	if err := c.cache.Expire(ctx, rankChangeKey(contestID), c.cfg.CounterTTL); err != nil {
		return err
	}
	return c.cache.Del(ctx, rankKey(contestID))
}

// Snapshot returns the contest's standings, from cache unless refresh is set.
func (c *RankCache) Snapshot(ctx context.Context, contest *model.Contest, refresh bool) (*model.RankSnapshot, error) {
	key := rankKey(contest.ID)
	if !refresh {
		if snapshot, ok := c.load(ctx, key); ok {
			return snapshot, nil
		}
	}
	v, err, _ := c.group.Do(key, func() (interface{}, error) {
		snapshot, err := c.build(ctx, contest)
		if err != nil {
			return nil, err
		}
		c.store(ctx, key, snapshot)
		return snapshot, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*model.RankSnapshot), nil
}

func (c *RankCache) build(ctx context.Context, contest *model.Contest) (*model.RankSnapshot, error) {
	snapshot := &model.RankSnapshot{ContestID: contest.ID, RuleType: contest.RuleType}
	var err error
	if contest.RuleType == model.RuleOI {
		snapshot.OI, err = c.lister.ListOI(ctx, contest.ID)
	} else {
		snapshot.ACM, err = c.lister.ListACM(ctx, contest.ID)
	}
	if err != nil {
		return nil, err
	}
	return snapshot, nil
}

func (c *RankCache) load(ctx context.Context, key string) (*model.RankSnapshot, bool) {
	raw, err := c.cache.Get(ctx, key)
	if err != nil || raw == "" {
		return nil, false
	}
	data, err := c.decoder.DecodeAll([]byte(raw), nil)
	if err != nil {
		logger.Warn(ctx, "decode rank snapshot failed", zap.String("key", key), zap.Error(err))
		return nil, false
	}
	var snapshot model.RankSnapshot
	if err := json.Unmarshal(data, &snapshot); err != nil {
		logger.Warn(ctx, "unmarshal rank snapshot failed", zap.String("key", key), zap.Error(err))
		return nil, false
	}
	return &snapshot, true
}

func (c *RankCache) store(ctx context.Context, key string, snapshot *model.RankSnapshot) {
	data, err := json.Marshal(snapshot)
	if err != nil {
		logger.Warn(ctx, "marshal rank snapshot failed", zap.String("key", key), zap.Error(err))
		return
	}
	payload := c.encoder.EncodeAll(data, nil)
	if err := c.cache.Set(ctx, key, payload, cache.JitterTTL(c.cfg.SnapshotTTL)); err != nil {
		logger.Warn(ctx, "store rank snapshot failed", zap.String("key", key), zap.Error(err))
	}
}
