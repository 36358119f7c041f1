package stats

import (
	"context"

	"judgehub/internal/common/db"
	"judgehub/internal/dispatch/model"
)

// SubmissionMarker records the verdict a submission's statistics were counted with.
// It is written in the same transaction as the counters it describes.
type SubmissionMarker interface {
	SetCountedResult(ctx context.Context, tx db.Transaction, id string, verdict model.Verdict) error
}

// ProblemStore adjusts problem counters. Every method runs inside tx.
type ProblemStore interface {
	// LockProblem takes the row lock on a problem.
	LockProblem(ctx context.Context, tx db.Transaction, scope model.ProblemScope, problemID int64) error
	// AddSubmission increments submission_number, and accepted_number when accepted is true.
	AddSubmission(ctx context.Context, tx db.Transaction, scope model.ProblemScope, problemID int64, accepted bool) error
	AddAccepted(ctx context.Context, tx db.Transaction, scope model.ProblemScope, problemID int64) error
	IncrVerdict(ctx context.Context, tx db.Transaction, scope model.ProblemScope, problemID int64, verdict model.Verdict) error
	// DecrVerdict decrements a histogram bucket, never below zero.
	DecrVerdict(ctx context.Context, tx db.Transaction, scope model.ProblemScope, problemID int64, verdict model.Verdict) error
	AcceptedNumber(ctx context.Context, tx db.Transaction, scope model.ProblemScope, problemID int64) (int64, error)
}

// ProfileStore adjusts user profile counters.
type ProfileStore interface {
	// GetForUpdate locks and returns the profile, or model.ErrProfileNotFound.
	GetForUpdate(ctx context.Context, tx db.Transaction, userID int64) (*model.UserProfile, error)
	IncrSubmission(ctx context.Context, tx db.Transaction, userID int64) error
	IncrAccepted(ctx context.Context, tx db.Transaction, userID int64) error
	// AdjustScore replaces last with current in total_score.
	AdjustScore(ctx context.Context, tx db.Transaction, userID int64, last, current int64) error
}

// ProgressStore keeps per-user, per-problem status.
type ProgressStore interface {
	// GetForUpdate returns the locked progress row, or nil when absent.
	GetForUpdate(ctx context.Context, tx db.Transaction, userID int64, scope model.ProgressScope, problemID int64) (*model.ProblemProgress, error)
	Insert(ctx context.Context, tx db.Transaction, progress *model.ProblemProgress) error
	UpdateStatus(ctx context.Context, tx db.Transaction, userID int64, scope model.ProgressScope, problemID int64, status model.Verdict, score int64) error
}

// RankStore persists contest rank rows.
type RankStore interface {
	// GetOrCreateACMForUpdate returns the locked rank row, creating an empty one if needed.
	GetOrCreateACMForUpdate(ctx context.Context, tx db.Transaction, contestID, userID int64) (*model.ACMContestRank, error)
	SaveACM(ctx context.Context, tx db.Transaction, rank *model.ACMContestRank) error
	GetOrCreateOIForUpdate(ctx context.Context, tx db.Transaction, contestID, userID int64) (*model.OIContestRank, error)
	SaveOI(ctx context.Context, tx db.Transaction, rank *model.OIContestRank) error
}

// RankInvalidator is told about every committed rank change.
type RankInvalidator interface {
	NoteRankChange(ctx context.Context, contestID int64) error
}
