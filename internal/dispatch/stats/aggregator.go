// Package stats folds judgments into problem statistics, user progress and contest ranks.
//
// Each operation runs in a single transaction that also marks the submission as counted, so a
// judgment is either fully folded in and marked or not applied at all. Rows are locked before
// they are read, and counters only move through relative updates.
package stats

import (
	"context"
	"errors"
	"strconv"
	"time"

	"judgehub/internal/common/db"
	"judgehub/internal/dispatch/model"
	"judgehub/pkg/utils/logger"

	"go.uber.org/zap"
)

// DefaultPenalty is added to an ACM rank's total time for each rejected attempt before acceptance.
const DefaultPenalty = 20 * time.Minute

// Deps are the stores the aggregator writes to.
type Deps struct {
	Transactor  db.Transactor
	Submissions SubmissionMarker
	Problems    ProblemStore
	Profiles    ProfileStore
	Progress    ProgressStore
	Ranks       RankStore
	Invalidator RankInvalidator
}

// Aggregator applies the side effects of a judgment.
type Aggregator struct {
	tx          db.Transactor
	submissions SubmissionMarker
	problems    ProblemStore
	profiles    ProfileStore
	progress    ProgressStore
	ranks       RankStore
	invalidator RankInvalidator
	penalty     time.Duration
}

// New creates an aggregator. A non-positive penalty uses DefaultPenalty.
func New(deps Deps, penalty time.Duration) (*Aggregator, error) {
	if deps.Transactor == nil {
		return nil, errors.New("transactor is required")
	}
	if deps.Submissions == nil || deps.Problems == nil || deps.Profiles == nil || deps.Progress == nil || deps.Ranks == nil {
		return nil, errors.New("stores are required")
	}
	if penalty <= 0 {
		penalty = DefaultPenalty
	}
	return &Aggregator{
		tx:          deps.Transactor,
		submissions: deps.Submissions,
		problems:    deps.Problems,
		profiles:    deps.Profiles,
		progress:    deps.Progress,
		ranks:       deps.Ranks,
		invalidator: deps.Invalidator,
		penalty:     penalty,
	}, nil
}

// UpdateProblemStatus counts a first judgment of a public problem.
func (a *Aggregator) UpdateProblemStatus(ctx context.Context, sub *model.Submission, problem *model.Problem) error {
	accepted := sub.Result == model.VerdictAccepted
	return a.tx.Transaction(ctx, func(tx db.Transaction) error {
		if err := a.problems.LockProblem(ctx, tx, model.ProblemScopePublic, problem.ID); err != nil {
			return err
		}
		if err := a.problems.AddSubmission(ctx, tx, model.ProblemScopePublic, problem.ID, accepted); err != nil {
			return err
		}
		if err := a.problems.IncrVerdict(ctx, tx, model.ProblemScopePublic, problem.ID, sub.Result); err != nil {
			return err
		}
		if _, err := a.profiles.GetForUpdate(ctx, tx, sub.UserID); err != nil {
			return err
		}
		if err := a.profiles.IncrSubmission(ctx, tx, sub.UserID); err != nil {
			return err
		}
		if err := a.updatePublicProgress(ctx, tx, sub, problem); err != nil {
			return err
		}
		return a.submissions.SetCountedResult(ctx, tx, sub.ID, sub.Result)
	})
}

// UpdateProblemStatusRejudge moves a public problem's statistics from previous to the new verdict.
// submission_number is left alone; accepted_number grows only when the submission becomes accepted.
func (a *Aggregator) UpdateProblemStatusRejudge(ctx context.Context, sub *model.Submission, problem *model.Problem, previous model.Verdict) error {
	return a.tx.Transaction(ctx, func(tx db.Transaction) error {
		if err := a.problems.LockProblem(ctx, tx, model.ProblemScopePublic, problem.ID); err != nil {
			return err
		}
		if previous != model.VerdictAccepted && sub.Result == model.VerdictAccepted {
			if err := a.problems.AddAccepted(ctx, tx, model.ProblemScopePublic, problem.ID); err != nil {
				return err
			}
		}
		if err := a.problems.DecrVerdict(ctx, tx, model.ProblemScopePublic, problem.ID, previous); err != nil {
			return err
		}
		if err := a.problems.IncrVerdict(ctx, tx, model.ProblemScopePublic, problem.ID, sub.Result); err != nil {
			return err
		}
		if _, err := a.profiles.GetForUpdate(ctx, tx, sub.UserID); err != nil {
			return err
		}
		if err := a.updatePublicProgress(ctx, tx, sub, problem); err != nil {
			return err
		}
		return a.submissions.SetCountedResult(ctx, tx, sub.ID, sub.Result)
	})
}

func (a *Aggregator) updatePublicProgress(ctx context.Context, tx db.Transaction, sub *model.Submission, problem *model.Problem) error {
	score := scoreOf(sub, problem.RuleType)
	accepted := sub.Result == model.VerdictAccepted
	current, err := a.progress.GetForUpdate(ctx, tx, sub.UserID, model.ScopePublic, problem.ID)
	if err != nil {
		return err
	}

	switch {
	case current == nil:
		if err := a.progress.Insert(ctx, tx, &model.ProblemProgress{
			UserID:    sub.UserID,
			Scope:     model.ScopePublic,
			ProblemID: problem.ID,
			DisplayID: problem.DisplayID,
			RuleType:  problem.RuleType,
			Status:    sub.Result,
			Score:     score,
		}); err != nil {
			return err
		}
		if problem.RuleType == model.RuleOI {
			if err := a.profiles.AdjustScore(ctx, tx, sub.UserID, 0, score); err != nil {
				return err
			}
		}
	case current.Status != model.VerdictAccepted:
		if err := a.progress.UpdateStatus(ctx, tx, sub.UserID, model.ScopePublic, problem.ID, sub.Result, score); err != nil {
			return err
		}
		if problem.RuleType == model.RuleOI {
			if err := a.profiles.AdjustScore(ctx, tx, sub.UserID, current.Score, score); err != nil {
				return err
			}
		}
	default:
		return nil
	}

	if accepted {
		return a.profiles.IncrAccepted(ctx, tx, sub.UserID)
	}
	return nil
}

// UpdateContest folds a contest judgment into the contest problem's counters, the user's contest
// progress and the user's rank row. The contest problem row stays locked until the rank is written,
// so only one of two concurrent accepted judgments sees itself as the first.
func (a *Aggregator) UpdateContest(ctx context.Context, sub *model.Submission, problem *model.Problem, contest *model.Contest) error {
	changed := false
	err := a.tx.Transaction(ctx, func(tx db.Transaction) error {
		if err := a.problems.LockProblem(ctx, tx, model.ProblemScopeContest, problem.ID); err != nil {
			return err
		}
		if err := a.updateContestProblem(ctx, tx, sub, problem); err != nil {
			return err
		}
		profile, err := a.profiles.GetForUpdate(ctx, tx, sub.UserID)
		if err != nil {
			return err
		}
		if contest.RuleType == model.RuleOI {
			changed, err = a.updateOIRank(ctx, tx, sub, problem, contest, profile)
		} else {
			changed, err = a.updateACMRank(ctx, tx, sub, problem, contest, profile)
		}
		if err != nil {
			return err
		}
		return a.submissions.SetCountedResult(ctx, tx, sub.ID, sub.Result)
	})
	if err != nil {
		return err
	}
	if changed && a.invalidator != nil {
		if err := a.invalidator.NoteRankChange(ctx, contest.ID); err != nil {
			logger.Warn(ctx, "note rank change failed", zap.Int64("contest_id", contest.ID), zap.Error(err))
		}
	}
	return nil
}

// updateContestProblem records the judgment on the contest problem. Nothing changes once the
// user has solved it.
func (a *Aggregator) updateContestProblem(ctx context.Context, tx db.Transaction, sub *model.Submission, problem *model.Problem) error {
	score := scoreOf(sub, problem.RuleType)
	current, err := a.progress.GetForUpdate(ctx, tx, sub.UserID, model.ScopeContest, problem.ID)
	if err != nil {
		return err
	}
	switch {
	case current == nil:
		err = a.progress.Insert(ctx, tx, &model.ProblemProgress{
			UserID:    sub.UserID,
			Scope:     model.ScopeContest,
			ProblemID: problem.ID,
			DisplayID: problem.DisplayID,
			RuleType:  problem.RuleType,
			Status:    sub.Result,
			Score:     score,
		})
	case current.Status != model.VerdictAccepted:
		err = a.progress.UpdateStatus(ctx, tx, sub.UserID, model.ScopeContest, problem.ID, sub.Result, score)
	default:
		return nil
	}
	if err != nil {
		return err
	}

	if err := a.problems.AddSubmission(ctx, tx, model.ProblemScopeContest, problem.ID, sub.Result == model.VerdictAccepted); err != nil {
		return err
	}
	return a.problems.IncrVerdict(ctx, tx, model.ProblemScopeContest, problem.ID, sub.Result)
}

func (a *Aggregator) updateACMRank(ctx context.Context, tx db.Transaction, sub *model.Submission, problem *model.Problem, contest *model.Contest, profile *model.UserProfile) (bool, error) {
	rank, err := a.ranks.GetOrCreateACMForUpdate(ctx, tx, contest.ID, sub.UserID)
	if err != nil {
		return false, err
	}
	if rank.SubmissionInfo == nil {
		rank.SubmissionInfo = make(map[string]model.ACMProblemRank)
	}
	rank.RealName = profile.RealName

	key := problem.DisplayID
	info := rank.SubmissionInfo[key]
	if info.IsAC {
		return false, nil
	}

	rank.SubmissionNumber++
	if sub.Result == model.VerdictAccepted {
		acceptedNumber, err := a.problems.AcceptedNumber(ctx, tx, model.ProblemScopeContest, problem.ID)
		if err != nil {
			return false, err
		}
		rank.AcceptedNumber++
		info.IsAC = true
		info.ACTime = int64(sub.CreateTime.Sub(contest.StartTime) / time.Second)
		rank.TotalTime += info.ACTime + info.ErrorNumber*int64(a.penalty/time.Second)
		if acceptedNumber == 1 {
			info.IsFirstAC = true
		}
	} else {
		info.ErrorNumber++
	}
	rank.SubmissionInfo[key] = info
	return true, a.ranks.SaveACM(ctx, tx, rank)
}

func (a *Aggregator) updateOIRank(ctx context.Context, tx db.Transaction, sub *model.Submission, problem *model.Problem, contest *model.Contest, profile *model.UserProfile) (bool, error) {
	rank, err := a.ranks.GetOrCreateOIForUpdate(ctx, tx, contest.ID, sub.UserID)
	if err != nil {
		return false, err
	}
	if rank.SubmissionInfo == nil {
		rank.SubmissionInfo = make(map[string]int64)
	}
	rank.RealName = profile.RealName

	key := strconv.FormatInt(problem.ID, 10)
	current := sub.Statistic.Score
	rank.SubmissionNumber++
	rank.TotalScore = rank.TotalScore - rank.SubmissionInfo[key] + current
	rank.SubmissionInfo[key] = current
	return true, a.ranks.SaveOI(ctx, tx, rank)
}

func scoreOf(sub *model.Submission, rule model.RuleType) int64 {
	if rule != model.RuleOI {
		return 0
	}
	return sub.Statistic.Score
}
