package service_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"judgehub/internal/dispatch/memstore"
	"judgehub/internal/dispatch/model"
	"judgehub/internal/dispatch/service"
	appErr "judgehub/pkg/errors"
)

type fakeRankSource struct {
	refreshes []bool
	err       error
}

func (f *fakeRankSource) Snapshot(ctx context.Context, contest *model.Contest, refresh bool) (*model.RankSnapshot, error) {
	f.refreshes = append(f.refreshes, refresh)
	if f.err != nil {
		return nil, f.err
	}
	return &model.RankSnapshot{ContestID: contest.ID, RuleType: contest.RuleType}, nil
}

func TestContestRank(t *testing.T) {
	now := time.Date(2026, 5, 1, 10, 0, 0, 0, time.UTC)
	store := memstore.New()
	store.PutContest(model.Contest{ID: 1, RuleType: model.RuleACM, StartTime: now.Add(-time.Hour), EndTime: now.Add(time.Hour)})
	store.PutContest(model.Contest{ID: 2, RuleType: model.RuleOI, StartTime: now.Add(time.Hour), EndTime: now.Add(2 * time.Hour)})

	tests := []struct {
		name        string
		contestID   int64
		force       bool
		admin       bool
		wantCode    appErr.ErrorCode
		wantRefresh bool
	}{
		{name: "cached read", contestID: 1},
		{name: "forced refresh", contestID: 1, force: true, wantRefresh: true},
		{name: "admin always refreshes", contestID: 1, admin: true, wantRefresh: true},
		{name: "not started for users", contestID: 2, wantCode: appErr.ContestNotStarted},
		{name: "not started for admins", contestID: 2, admin: true, wantRefresh: true},
		{name: "unknown contest", contestID: 9, wantCode: appErr.ContestNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			source := &fakeRankSource{}
			svc, err := service.NewRankService(store.Contests(), source, func() time.Time { return now })
			if err != nil {
				t.Fatalf("new rank service failed: %v", err)
			}
			snapshot, err := svc.ContestRank(context.Background(), tt.contestID, tt.force, tt.admin)
			if tt.wantCode != 0 {
				if !appErr.Is(err, tt.wantCode) {
					t.Fatalf("expected code %d, got %v", tt.wantCode, err)
				}
				if len(source.refreshes) != 0 {
					t.Fatalf("expected no snapshot read")
				}
				return
			}
			if err != nil {
				t.Fatalf("contest rank failed: %v", err)
			}
			if snapshot.ContestID != tt.contestID {
				t.Fatalf("unexpected snapshot: %+v", snapshot)
			}
			if len(source.refreshes) != 1 || source.refreshes[0] != tt.wantRefresh {
				t.Fatalf("expected refresh=%v, got %v", tt.wantRefresh, source.refreshes)
			}
		})
	}
}

func TestContestRankSourceFailure(t *testing.T) {
	store := memstore.New()
	store.PutContest(model.Contest{ID: 1, RuleType: model.RuleACM, StartTime: time.Now().Add(-time.Hour), EndTime: time.Now().Add(time.Hour)})
	svc, err := service.NewRankService(store.Contests(), &fakeRankSource{err: errors.New("redis down")}, nil)
	if err != nil {
		t.Fatalf("new rank service failed: %v", err)
	}
	if _, err := svc.ContestRank(context.Background(), 1, false, false); !appErr.Is(err, appErr.RankingNotAvailable) {
		t.Fatalf("expected ranking not available, got %v", err)
	}
}
