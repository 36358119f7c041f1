package service

import (
	"context"
	"errors"

	"judgehub/internal/common/db"
	"judgehub/internal/dispatch/judgeclient"
	"judgehub/internal/dispatch/metrics"
	"judgehub/internal/dispatch/model"
	"judgehub/internal/dispatch/pool"
	appErr "judgehub/pkg/errors"
	"judgehub/pkg/utils/logger"

	"go.uber.org/zap"
)

// ServerListing is the admin view of the judge pool.
type ServerListing struct {
	Token         string            `json:"token"`
	Servers       []pool.ServerView `json:"servers"`
	PendingLength int64             `json:"pending_length"`
}

// ServerUpdate changes one judge server. A nil IsDisabled leaves the flag alone.
type ServerUpdate struct {
	ID         int64 `json:"id" binding:"required"`
	IsDisabled *bool `json:"is_disabled"`
	IsReload   bool  `json:"is_reload"`
}

// SubmissionStatus is what status polls return.
type SubmissionStatus struct {
	SubmissionID string        `json:"submission_id"`
	Result       model.Verdict `json:"result"`
	ResultName   string        `json:"result_name"`
}

// Submit publishes a dispatch job.
func (d *Dispatcher) Submit(ctx context.Context, job model.Job) error {
	return d.publisher.PublishJob(ctx, job)
}

// Heartbeat records a judge server report and gives a parked job the chance to run.
func (d *Dispatcher) Heartbeat(ctx context.Context, report model.HeartbeatReport) error {
	if err := d.pool.Heartbeat(ctx, report); err != nil {
		return appErr.Wrapf(err, appErr.InvalidParams, "invalid heartbeat")
	}
	metrics.IncHeartbeat()
	d.drain(ctx)
	return nil
}

// ListServers returns every server with its status, the judge token and the pending queue length.
func (d *Dispatcher) ListServers(ctx context.Context) (*ServerListing, error) {
	servers, err := d.pool.List(ctx)
	if err != nil {
		return nil, appErr.Wrapf(err, appErr.DatabaseError, "list judge servers failed")
	}
	pending, err := d.pending.Len(ctx)
	if err != nil {
		logger.Warn(ctx, "read pending queue length failed", zap.Error(err))
	}
	return &ServerListing{Token: d.judgeToken, Servers: servers, PendingLength: pending}, nil
}

// UpdateServer enables, disables or resets a server. Re-enabling drains one parked job.
func (d *Dispatcher) UpdateServer(ctx context.Context, update ServerUpdate) error {
	if update.IsReload {
		if err := d.pool.ResetTasks(ctx, update.ID); err != nil {
			return serverError(err, "reset judge server failed")
		}
		logger.Info(ctx, "judge server task counter reset", zap.Int64("server_id", update.ID))
	}
	if update.IsDisabled == nil {
		return nil
	}
	if err := d.pool.SetDisabled(ctx, update.ID, *update.IsDisabled); err != nil {
		return serverError(err, "update judge server failed")
	}
	logger.Info(ctx, "judge server updated", zap.Int64("server_id", update.ID), zap.Bool("is_disabled", *update.IsDisabled))
	if !*update.IsDisabled {
		d.drain(ctx)
	}
	return nil
}

// RemoveServer deletes a server by hostname.
func (d *Dispatcher) RemoveServer(ctx context.Context, hostname string) error {
	if hostname == "" {
		return appErr.ValidationError("hostname", "required")
	}
	if err := d.pool.Remove(ctx, hostname); err != nil {
		return serverError(err, "remove judge server failed")
	}
	logger.Info(ctx, "judge server removed", zap.String("hostname", hostname))
	return nil
}

// Rejudge resets a submission to PENDING and publishes it again. Statistics are corrected
// once the new verdict arrives. A submission counts as in flight while a dispatcher holds its
// lock, whatever its stored result says.
func (d *Dispatcher) Rejudge(ctx context.Context, submissionID string) error {
	sub, err := d.submissions.Get(ctx, submissionID, false)
	if err != nil {
		if errors.Is(err, model.ErrSubmissionNotFound) {
			return appErr.Wrapf(err, appErr.SubmissionNotFound, "submission %s not found", submissionID)
		}
		return appErr.Wrapf(err, appErr.DatabaseError, "load submission failed")
	}

	lockKey := lockKeyPrefix + submissionID
	locked, err := d.locker.TryLock(ctx, lockKey, d.lockTTL)
	if err != nil {
		return appErr.Wrapf(err, appErr.LockFailed, "acquire dispatch lock failed")
	}
	if !locked {
		return appErr.Newf(appErr.SubmissionInFlight, "submission %s is being judged", submissionID)
	}
	err = d.submissions.ResetForRejudge(ctx, submissionID)
	d.clearStatus(ctx, submissionID)
	// Released before publishing so the consumer does not take the job for a duplicate.
	if unlockErr := d.locker.Unlock(context.WithoutCancel(ctx), lockKey); unlockErr != nil {
		logger.Warn(ctx, "release dispatch lock failed", zap.String("submission_id", submissionID), zap.Error(unlockErr))
	}
	if err != nil {
		return appErr.Wrapf(err, appErr.DatabaseError, "reset submission failed")
	}

	if err := d.publisher.PublishJob(ctx, model.Job{SubmissionID: sub.ID, ProblemID: sub.ProblemID}); err != nil {
		return err
	}
	logger.Info(ctx, "submission queued for rejudge",
		zap.String("submission_id", submissionID),
		zap.String("previous_result", sub.Result.String()),
	)
	return nil
}

// Status returns the in-flight state from the status cache, falling back to the stored result.
func (d *Dispatcher) Status(ctx context.Context, submissionID string, testRun bool) (*SubmissionStatus, error) {
	if v, ok, err := d.status.Get(ctx, submissionID); err != nil {
		logger.Warn(ctx, "read status cache failed", zap.String("submission_id", submissionID), zap.Error(err))
	} else if ok {
		return &SubmissionStatus{SubmissionID: submissionID, Result: v, ResultName: v.String()}, nil
	}
	sub, err := d.submissions.Get(ctx, submissionID, testRun)
	if err != nil {
		if errors.Is(err, model.ErrSubmissionNotFound) {
			return nil, appErr.Wrapf(err, appErr.SubmissionNotFound, "submission %s not found", submissionID)
		}
		return nil, appErr.Wrapf(err, appErr.DatabaseError, "load submission failed")
	}
	return &SubmissionStatus{SubmissionID: sub.ID, Result: sub.Result, ResultName: sub.Result.String()}, nil
}

// CompileSPJ compiles a problem's special judge on a judge server and records whether it built.
// On a compile failure the compiler output is attached to the returned error.
func (d *Dispatcher) CompileSPJ(ctx context.Context, problemID int64, contest bool) error {
	scope := model.ProblemScopePublic
	if contest {
		scope = model.ProblemScopeContest
	}
	p, err := d.problems.Get(ctx, scope, problemID)
	if err != nil {
		if errors.Is(err, model.ErrProblemNotFound) {
			return appErr.Wrapf(err, appErr.ProblemNotFound, "problem %d not found", problemID)
		}
		return appErr.Wrapf(err, appErr.DatabaseError, "load problem failed")
	}
	if !p.SPJ || p.SPJCode == "" {
		return appErr.Newf(appErr.ProblemNotSPJ, "problem %d has no special judge", problemID)
	}
	if p.SPJVersion == "" {
		return appErr.ValidationError("spj_version", "required")
	}
	spj, ok := d.languages.LookupSPJ(p.SPJLanguage)
	if !ok {
		return appErr.Newf(appErr.LanguageNotSupported, "special judge language %q is not supported", p.SPJLanguage)
	}

	var server *model.JudgeServer
	err = d.tx.Transaction(ctx, func(tx db.Transaction) error {
		server, err = d.pool.Choose(ctx, tx)
		return err
	})
	if err != nil {
		return appErr.Wrapf(err, appErr.DatabaseError, "reserve judge server failed")
	}
	if server == nil {
		return appErr.New(appErr.NoJudgeServerAvailable)
	}

	reqCtx, cancel := context.WithTimeout(ctx, d.requestTimeout)
	outcome := d.judge.CompileSPJ(reqCtx, server.ServiceURL, judgeclient.CompileSPJRequest{
		Src:              p.SPJCode,
		SPJVersion:       p.SPJVersion,
		SPJCompileConfig: spj.Compile,
	})
	cancel()
	d.release(ctx, server)
	d.drain(ctx)

	if outcome.SystemError {
		return appErr.New(appErr.JudgeSystemError).WithMessage("special judge compilation did not complete")
	}
	compiled := !outcome.CompileError
	if err := d.problems.SetSPJCompileOK(ctx, scope, problemID, compiled); err != nil {
		return appErr.Wrapf(err, appErr.DatabaseError, "record special judge compilation failed")
	}
	if !compiled {
		return appErr.New(appErr.SPJCompileFailed).WithDetail("error", outcome.Diagnostic)
	}
	logger.Info(ctx, "special judge compiled", zap.Int64("problem_id", problemID), zap.String("scope", string(scope)))
	return nil
}

func serverError(err error, msg string) error {
	if errors.Is(err, model.ErrServerNotFound) {
		return appErr.Wrapf(err, appErr.JudgeServerNotFound, "%s", msg)
	}
	return appErr.Wrapf(err, appErr.DatabaseError, "%s", msg)
}
