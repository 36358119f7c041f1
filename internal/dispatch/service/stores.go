package service

import (
	"context"
	"time"

	"judgehub/internal/common/db"
	"judgehub/internal/dispatch/judgeclient"
	"judgehub/internal/dispatch/model"
)

// SubmissionStore reads and writes submissions and test runs.
type SubmissionStore interface {
	// Get returns model.ErrSubmissionNotFound when the row does not exist.
	Get(ctx context.Context, id string, testRun bool) (*model.Submission, error)
	// MarkJudging sets result to JUDGING inside tx.
	MarkJudging(ctx context.Context, tx db.Transaction, id string, testRun bool) error
	SaveJudgment(ctx context.Context, id string, testRun bool, judgment *model.Judgment) error
	// ResetForRejudge sets result to PENDING and clears the judgment blobs, keeping counted_result.
	ResetForRejudge(ctx context.Context, id string) error
}

// ProblemStore reads problems and records special judge compilation.
type ProblemStore interface {
	// Get returns model.ErrProblemNotFound when the row does not exist.
	Get(ctx context.Context, scope model.ProblemScope, id int64) (*model.Problem, error)
	SetSPJCompileOK(ctx context.Context, scope model.ProblemScope, id int64, ok bool) error
}

// ContestStore reads contest timing.
type ContestStore interface {
	// Get returns model.ErrContestNotFound when the row does not exist.
	Get(ctx context.Context, id int64) (*model.Contest, error)
}

// StatusCache mirrors in-flight judging state for status polls.
type StatusCache interface {
	MarkJudging(ctx context.Context, submissionID string) error
	Clear(ctx context.Context, submissionID string) error
	Get(ctx context.Context, submissionID string) (model.Verdict, bool, error)
}

// Locker serializes work on one submission across dispatcher instances.
type Locker interface {
	TryLock(ctx context.Context, key string, ttl time.Duration) (bool, error)
	Unlock(ctx context.Context, key string) error
}

// JudgeClient sends work to judge servers.
type JudgeClient interface {
	Judge(ctx context.Context, serviceURL string, req judgeclient.JudgeRequest) judgeclient.Outcome
	CompileSPJ(ctx context.Context, serviceURL string, req judgeclient.CompileSPJRequest) judgeclient.Outcome
}
