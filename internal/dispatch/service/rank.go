package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"judgehub/internal/dispatch/model"
	appErr "judgehub/pkg/errors"
)

// RankSource builds contest standings, serving them from cache unless refresh is set.
type RankSource interface {
	Snapshot(ctx context.Context, contest *model.Contest, refresh bool) (*model.RankSnapshot, error)
}

// RankService serves contest standings.
type RankService struct {
	contests ContestStore
	source   RankSource
	now      func() time.Time
}

// NewRankService creates a rank service.
func NewRankService(contests ContestStore, source RankSource, now func() time.Time) (*RankService, error) {
	if contests == nil || source == nil {
		return nil, fmt.Errorf("contest store and rank source are required")
	}
	if now == nil {
		now = time.Now
	}
	return &RankService{contests: contests, source: source, now: now}, nil
}

// ContestRank returns a contest's standings. Admins always get a freshly built snapshot and
// may read standings before the contest starts.
func (s *RankService) ContestRank(ctx context.Context, contestID int64, forceRefresh, admin bool) (*model.RankSnapshot, error) {
	contest, err := s.contests.Get(ctx, contestID)
	if err != nil {
		if errors.Is(err, model.ErrContestNotFound) {
			return nil, appErr.Wrapf(err, appErr.ContestNotFound, "contest %d not found", contestID)
		}
		return nil, appErr.Wrapf(err, appErr.DatabaseError, "load contest failed")
	}
	if !admin && contest.Status(s.now()) == model.ContestNotStarted {
		return nil, appErr.New(appErr.ContestNotStarted)
	}
	snapshot, err := s.source.Snapshot(ctx, contest, forceRefresh || admin)
	if err != nil {
		return nil, appErr.Wrapf(err, appErr.RankingNotAvailable, "build rank failed")
	}
	return snapshot, nil
}
