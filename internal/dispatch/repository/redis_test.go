package repository_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"judgehub/internal/common/cache"
	"judgehub/internal/dispatch/model"
	"judgehub/internal/dispatch/repository"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func newRedis(t *testing.T) (*cache.RedisCache, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	c, err := cache.NewRedisCacheWithClient(redis.NewClient(&redis.Options{Addr: mr.Addr()}))
	if err != nil {
		t.Fatalf("create cache failed: %v", err)
	}
	t.Cleanup(func() { _ = c.Close() })
	return c, mr
}

func TestStatusCache(t *testing.T) {
	c, mr := newRedis(t)
	ctx := context.Background()
	status := repository.NewStatusCache(c, "")

	if _, ok, err := status.Get(ctx, "s1"); err != nil || ok {
		t.Fatalf("expected no status, ok=%v err=%v", ok, err)
	}
	if err := status.MarkJudging(ctx, "s1"); err != nil {
		t.Fatalf("mark judging failed: %v", err)
	}
	if got := mr.HGet(repository.DefaultStatusKey, "s1"); got != "7" {
		t.Fatalf("expected hash field 7, got %q", got)
	}
	v, ok, err := status.Get(ctx, "s1")
	if err != nil || !ok || v != model.VerdictJudging {
		t.Fatalf("expected judging, got %v ok=%v err=%v", v, ok, err)
	}
	if err := status.Clear(ctx, "s1"); err != nil {
		t.Fatalf("clear failed: %v", err)
	}
	if _, ok, _ := status.Get(ctx, "s1"); ok {
		t.Fatalf("expected status cleared")
	}
}

type countingLister struct {
	mu    sync.Mutex
	calls int
	acm   []model.ACMContestRank
}

func (l *countingLister) ListACM(ctx context.Context, contestID int64) ([]model.ACMContestRank, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.calls++
	return l.acm, nil
}

func (l *countingLister) ListOI(ctx context.Context, contestID int64) ([]model.OIContestRank, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.calls++
	return nil, nil
}

func (l *countingLister) count() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.calls
}

func TestRankCacheSnapshotIsCachedCompressed(t *testing.T) {
	c, mr := newRedis(t)
	ctx := context.Background()
	lister := &countingLister{acm: []model.ACMContestRank{
		{UserID: 1, ContestID: 9, AcceptedNumber: 2, SubmissionInfo: map[string]model.ACMProblemRank{"A": {IsAC: true, ACTime: 60}}},
	}}
	rc, err := repository.NewRankCache(c, lister, repository.RankCacheConfig{})
	if err != nil {
		t.Fatalf("new rank cache failed: %v", err)
	}
	contest := &model.Contest{ID: 9, RuleType: model.RuleACM}

	for i := 0; i < 3; i++ {
		snapshot, err := rc.Snapshot(ctx, contest, false)
		if err != nil {
			t.Fatalf("snapshot failed: %v", err)
		}
		if snapshot.Len() != 1 || !snapshot.ACM[0].SubmissionInfo["A"].IsAC {
			t.Fatalf("unexpected snapshot: %+v", snapshot)
		}
	}
	if lister.count() != 1 {
		t.Fatalf("expected one database read, got %d", lister.count())
	}
	raw, err := mr.Get("contest:rank:9")
	if err != nil {
		t.Fatalf("expected snapshot key: %v", err)
	}
	if raw == "" || raw[0] == '{' {
		t.Fatalf("expected compressed snapshot, got %q", raw)
	}

	if _, err := rc.Snapshot(ctx, contest, true); err != nil {
		t.Fatalf("refresh failed: %v", err)
	}
	if lister.count() != 2 {
		t.Fatalf("expected refresh to bypass cache, got %d reads", lister.count())
	}
}

func TestRankCacheInvalidatesAfterThreshold(t *testing.T) {
	c, mr := newRedis(t)
	ctx := context.Background()
	rc, err := repository.NewRankCache(c, &countingLister{}, repository.RankCacheConfig{ChangeThreshold: 3})
	if err != nil {
		t.Fatalf("new rank cache failed: %v", err)
	}
	if _, err := rc.Snapshot(ctx, &model.Contest{ID: 4, RuleType: model.RuleOI}, false); err != nil {
		t.Fatalf("snapshot failed: %v", err)
	}

	for i := 1; i <= 3; i++ {
		if err := rc.NoteRankChange(ctx, 4); err != nil {
			t.Fatalf("note change failed: %v", err)
		}
		exists := mr.Exists("contest:rank:4")
		if i < 3 && !exists {
			t.Fatalf("snapshot dropped after %d changes", i)
		}
		if i == 3 && exists {
			t.Fatalf("expected snapshot dropped after threshold")
		}
	}
	if ttl := mr.TTL("contest:rank-change:4"); ttl != time.Hour {
		t.Fatalf("expected counter ttl of an hour, got %v", ttl)
	}
}
