// Package service drives a submission from PENDING to a final verdict.
package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"judgehub/internal/common/db"
	"judgehub/internal/common/mq"
	"judgehub/internal/dispatch/classifier"
	"judgehub/internal/dispatch/judgeclient"
	"judgehub/internal/dispatch/language"
	"judgehub/internal/dispatch/metrics"
	"judgehub/internal/dispatch/model"
	"judgehub/internal/dispatch/pool"
	"judgehub/internal/dispatch/queue"
	"judgehub/internal/dispatch/stats"
	appErr "judgehub/pkg/errors"
	"judgehub/pkg/utils/contextkey"
	"judgehub/pkg/utils/logger"

	"go.uber.org/zap"
)

const (
	lockKeyPrefix = "judge:lock:"
	lockSlack     = 30 * time.Second
)

// Config holds dispatcher dependencies and settings.
type Config struct {
	Transactor  db.Transactor
	Pool        *pool.Pool
	Pending     *queue.PendingQueue
	Publisher   queue.JobPublisher
	Submissions SubmissionStore
	Problems    ProblemStore
	Contests    ContestStore
	Status      StatusCache
	Locker      Locker
	Judge       JudgeClient
	Aggregator  *stats.Aggregator
	Languages   *language.Registry

	// RequestTimeout bounds one judge server round trip.
	RequestTimeout time.Duration
	// LockTTL defaults to RequestTimeout plus 30s.
	LockTTL time.Duration
	// MaxDiffEntries caps the stored diff list; zero uses the default and a negative value disables the cap.
	MaxDiffEntries int
	// JudgeToken is shown to admins in the server listing.
	JudgeToken string
	Now        func() time.Time
}

// Dispatcher reserves judge servers, sends submissions and records verdicts.
type Dispatcher struct {
	tx          db.Transactor
	pool        *pool.Pool
	pending     *queue.PendingQueue
	publisher   queue.JobPublisher
	submissions SubmissionStore
	problems    ProblemStore
	contests    ContestStore
	status      StatusCache
	locker      Locker
	judge       JudgeClient
	aggregator  *stats.Aggregator
	languages   *language.Registry

	requestTimeout time.Duration
	lockTTL        time.Duration
	maxDiff        int
	judgeToken     string
	now            func() time.Time
}

// NewDispatcher validates cfg and creates a dispatcher.
func NewDispatcher(cfg Config) (*Dispatcher, error) {
	switch {
	case cfg.Transactor == nil:
		return nil, fmt.Errorf("transactor is required")
	case cfg.Pool == nil:
		return nil, fmt.Errorf("pool is required")
	case cfg.Pending == nil:
		return nil, fmt.Errorf("pending queue is required")
	case cfg.Publisher == nil:
		return nil, fmt.Errorf("publisher is required")
	case cfg.Submissions == nil || cfg.Problems == nil || cfg.Contests == nil:
		return nil, fmt.Errorf("stores are required")
	case cfg.Status == nil:
		return nil, fmt.Errorf("status cache is required")
	case cfg.Locker == nil:
		return nil, fmt.Errorf("locker is required")
	case cfg.Judge == nil:
		return nil, fmt.Errorf("judge client is required")
	case cfg.Aggregator == nil:
		return nil, fmt.Errorf("aggregator is required")
	case cfg.Languages == nil:
		return nil, fmt.Errorf("language registry is required")
	}
	if cfg.RequestTimeout <= 0 {
		cfg.RequestTimeout = judgeclient.DefaultTimeout
	}
	if cfg.LockTTL <= 0 {
		cfg.LockTTL = cfg.RequestTimeout + lockSlack
	}
	switch {
	case cfg.MaxDiffEntries == 0:
		cfg.MaxDiffEntries = classifier.DefaultMaxDiffEntries
	case cfg.MaxDiffEntries < 0:
		cfg.MaxDiffEntries = 0
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	return &Dispatcher{
		tx:             cfg.Transactor,
		pool:           cfg.Pool,
		pending:        cfg.Pending,
		publisher:      cfg.Publisher,
		submissions:    cfg.Submissions,
		problems:       cfg.Problems,
		contests:       cfg.Contests,
		status:         cfg.Status,
		locker:         cfg.Locker,
		judge:          cfg.Judge,
		aggregator:     cfg.Aggregator,
		languages:      cfg.Languages,
		requestTimeout: cfg.RequestTimeout,
		lockTTL:        cfg.LockTTL,
		maxDiff:        cfg.MaxDiffEntries,
		judgeToken:     cfg.JudgeToken,
		now:            cfg.Now,
	}, nil
}

// target is the problem a submission is judged against, with its contest when there is one.
type target struct {
	problem *model.Problem
	contest *model.Contest
}

// HandleMessage is the queue consumer entry point.
func (d *Dispatcher) HandleMessage(ctx context.Context, msg *mq.Message) error {
	job, err := DecodeJob(msg)
	if err != nil {
		return err
	}
	return d.Dispatch(ctx, job)
}

// Dispatch judges one submission. It returns an error only when the job could not be started;
// once a judge server is reserved every failure is recorded on the submission instead.
func (d *Dispatcher) Dispatch(ctx context.Context, job model.Job) error {
	start := time.Now()
	if err := job.Validate(); err != nil {
		return appErr.Wrapf(err, appErr.InvalidParams, "invalid dispatch job")
	}
	ctx = context.WithValue(ctx, contextkey.SubmissionID, job.SubmissionID)

	lockKey := lockKeyPrefix + job.SubmissionID
	locked, err := d.locker.TryLock(ctx, lockKey, d.lockTTL)
	if err != nil {
		metrics.ObserveDispatch(metrics.OutcomeFailed, time.Since(start))
		return appErr.Wrapf(err, appErr.LockFailed, "acquire dispatch lock failed")
	}
	if !locked {
		logger.Info(ctx, "submission is already being dispatched", zap.String("submission_id", job.SubmissionID))
		metrics.ObserveDispatch(metrics.OutcomeDuplicate, time.Since(start))
		return nil
	}
	defer func() {
		if err := d.locker.Unlock(context.WithoutCancel(ctx), lockKey); err != nil {
			logger.Warn(ctx, "release dispatch lock failed", zap.String("submission_id", job.SubmissionID), zap.Error(err))
		}
	}()

	sub, err := d.submissions.Get(ctx, job.SubmissionID, job.TestRun)
	if err != nil {
		metrics.ObserveDispatch(metrics.OutcomeFailed, time.Since(start))
		if errors.Is(err, model.ErrSubmissionNotFound) {
			return appErr.Wrapf(err, appErr.SubmissionNotFound, "submission %s not found", job.SubmissionID)
		}
		return appErr.Wrapf(err, appErr.DatabaseError, "load submission failed")
	}
	t, err := d.loadTarget(ctx, sub, job.ProblemID)
	if err != nil {
		metrics.ObserveDispatch(metrics.OutcomeFailed, time.Since(start))
		return err
	}
	req, err := d.buildRequest(sub, t.problem, job.TestRun)
	if err != nil {
		metrics.ObserveDispatch(metrics.OutcomeFailed, time.Since(start))
		return err
	}
	rejudge := !job.TestRun && sub.CountedResult != nil

	server, err := d.reserve(ctx, job)
	if err != nil {
		metrics.ObserveDispatch(metrics.OutcomeFailed, time.Since(start))
		return appErr.Wrapf(err, appErr.DatabaseError, "reserve judge server failed")
	}
	if server == nil {
		if err := d.pending.Push(ctx, job); err != nil {
			metrics.ObserveDispatch(metrics.OutcomeFailed, time.Since(start))
			return appErr.Wrapf(err, appErr.CacheError, "park dispatch job failed")
		}
		logger.Info(ctx, "no judge server available, job parked", zap.String("submission_id", job.SubmissionID))
		metrics.ObserveDispatch(metrics.OutcomeQueued, time.Since(start))
		return nil
	}

	outcome := d.run(ctx, job, sub, t, server, req, rejudge)
	metrics.ObserveDispatch(outcome, time.Since(start))
	return nil
}

func (d *Dispatcher) loadTarget(ctx context.Context, sub *model.Submission, problemID int64) (*target, error) {
	scope := model.ProblemScopePublic
	if sub.InContest() {
		scope = model.ProblemScopeContest
	}
	problem, err := d.problems.Get(ctx, scope, problemID)
	if err != nil {
		if errors.Is(err, model.ErrProblemNotFound) {
			return nil, appErr.Wrapf(err, appErr.ProblemNotFound, "problem %d not found", problemID)
		}
		return nil, appErr.Wrapf(err, appErr.DatabaseError, "load problem failed")
	}
	t := &target{problem: problem}
	if !sub.InContest() {
		return t, nil
	}
	contest, err := d.contests.Get(ctx, *sub.ContestID)
	if err != nil {
		if errors.Is(err, model.ErrContestNotFound) {
			return nil, appErr.Wrapf(err, appErr.ContestNotFound, "contest %d not found", *sub.ContestID)
		}
		return nil, appErr.Wrapf(err, appErr.DatabaseError, "load contest failed")
	}
	t.contest = contest
	return t, nil
}

func (d *Dispatcher) buildRequest(sub *model.Submission, p *model.Problem, testRun bool) (judgeclient.JudgeRequest, error) {
	lang, ok := d.languages.Lookup(sub.Language)
	if !ok {
		return judgeclient.JudgeRequest{}, appErr.Newf(appErr.LanguageNotSupported, "language %q is not supported", sub.Language)
	}
	req := judgeclient.JudgeRequest{
		LanguageConfig: lang.Config,
		Src:            sub.Code,
		MaxCPUTime:     p.TimeLimit,
		MaxMemory:      p.MemoryLimit << 20,
		Output:         true,
	}
	if testRun {
		if len(p.Samples) == 0 {
			return judgeclient.JudgeRequest{}, appErr.Newf(appErr.SamplesNotPresent, "problem %d has no samples", p.ID)
		}
		req.TestCase = p.Samples
	} else {
		id := p.TestCaseID
		req.TestCaseID = &id
	}
	if p.SPJ {
		spj, ok := d.languages.LookupSPJ(p.SPJLanguage)
		if !ok {
			return judgeclient.JudgeRequest{}, appErr.Newf(appErr.LanguageNotSupported, "special judge language %q is not supported", p.SPJLanguage)
		}
		version, src := p.SPJVersion, p.SPJCode
		runConfig, compileConfig := spj.Config, spj.Compile
		req.SPJVersion = &version
		req.SPJSrc = &src
		req.SPJConfig = &runConfig
		req.SPJCompileConfig = &compileConfig
	}
	return req, nil
}

// reserve takes one unit of capacity and marks the submission JUDGING in the same transaction.
func (d *Dispatcher) reserve(ctx context.Context, job model.Job) (*model.JudgeServer, error) {
	var server *model.JudgeServer
	err := d.tx.Transaction(ctx, func(tx db.Transaction) error {
		chosen, err := d.pool.Choose(ctx, tx)
		if err != nil || chosen == nil {
			return err
		}
		if err := d.submissions.MarkJudging(ctx, tx, job.SubmissionID, job.TestRun); err != nil {
			return err
		}
		server = chosen
		return nil
	})
	if err != nil {
		return nil, err
	}
	return server, nil
}

// run sends the job to server and records the result. It returns the dispatch outcome label.
func (d *Dispatcher) run(
	ctx context.Context,
	job model.Job,
	sub *model.Submission,
	t *target,
	server *model.JudgeServer,
	req judgeclient.JudgeRequest,
	rejudge bool,
) string {
	logger.Info(ctx, "dispatching submission",
		zap.String("submission_id", sub.ID),
		zap.String("hostname", server.Hostname),
		zap.Bool("test_run", job.TestRun),
		zap.Bool("rejudge", rejudge),
	)
	if err := d.status.MarkJudging(ctx, sub.ID); err != nil {
		logger.Warn(ctx, "set judging status failed", zap.String("submission_id", sub.ID), zap.Error(err))
	}

	reqCtx, cancel := context.WithTimeout(ctx, d.requestTimeout)
	outcome := d.judge.Judge(reqCtx, server.ServiceURL, req)
	cancel()

	if outcome.SystemError {
		_ = d.save(ctx, sub.ID, job.TestRun, &model.Judgment{Result: model.VerdictSystemError, Info: outcome.Raw})
		d.clearStatus(ctx, sub.ID)
		d.release(ctx, server)
		logger.Warn(ctx, "judge server failed, submission marked system error",
			zap.String("submission_id", sub.ID),
			zap.String("hostname", server.Hostname),
		)
		return metrics.OutcomeSystemErr
	}

	judgment := d.classify(outcome, t.problem, job.TestRun)
	saveErr := d.save(ctx, sub.ID, job.TestRun, judgment)
	d.clearStatus(ctx, sub.ID)
	d.release(ctx, server)
	if saveErr != nil {
		// The stored result stays JUDGING; statistics wait for a rejudge.
		d.drain(ctx)
		return metrics.OutcomeFailed
	}

	if !job.TestRun {
		sub.Result = judgment.Result
		sub.Statistic = judgment.Statistic
		d.aggregate(ctx, sub, t, rejudge)
	}
	d.drain(ctx)
	logger.Info(ctx, "submission judged",
		zap.String("submission_id", sub.ID),
		zap.String("result", judgment.Result.String()),
	)
	return metrics.OutcomeJudged
}

func (d *Dispatcher) classify(outcome judgeclient.Outcome, p *model.Problem, testRun bool) *model.Judgment {
	if outcome.CompileError {
		return &model.Judgment{
			Result:    model.VerdictCompileError,
			Info:      outcome.Raw,
			Statistic: model.StatisticInfo{ErrInfo: outcome.Diagnostic, Score: 0},
		}
	}
	res := classifier.Classify(classifier.Input{
		Cases:          outcome.Cases,
		Rule:           p.RuleType,
		Expected:       classifier.ExpectedCases(p, testRun),
		MaxDiffEntries: d.maxDiff,
	})
	return &model.Judgment{
		Result:     res.Verdict,
		Info:       outcome.Raw,
		Statistic:  res.Statistic,
		ListResult: res.Diff,
	}
}

// aggregate folds a counted judgment into statistics. The aggregator marks the submission as
// counted in the same transaction. A contest submission is counted once: a later judgment of it
// updates the stored verdict but not the contest counters or the rank.
func (d *Dispatcher) aggregate(ctx context.Context, sub *model.Submission, t *target, rejudge bool) {
	var err error
	switch {
	case t.contest != nil:
		if rejudge {
			logger.Info(ctx, "contest submission already counted, statistics skipped",
				zap.String("submission_id", sub.ID),
				zap.Int64("contest_id", t.contest.ID),
				zap.String("counted_result", sub.CountedResult.String()),
			)
			return
		}
		if status := t.contest.Status(d.now()); status != model.ContestUnderway {
			logger.Info(ctx, "contest is not underway, statistics skipped",
				zap.String("submission_id", sub.ID),
				zap.Int64("contest_id", t.contest.ID),
				zap.String("contest_status", string(status)),
			)
			return
		}
		err = d.aggregator.UpdateContest(ctx, sub, t.problem, t.contest)
	case rejudge:
		err = d.aggregator.UpdateProblemStatusRejudge(ctx, sub, t.problem, *sub.CountedResult)
	default:
		err = d.aggregator.UpdateProblemStatus(ctx, sub, t.problem)
	}
	if err != nil {
		logger.Error(ctx, "update statistics failed", zap.String("submission_id", sub.ID), zap.Error(err))
	}
}

func (d *Dispatcher) save(ctx context.Context, id string, testRun bool, j *model.Judgment) error {
	err := d.submissions.SaveJudgment(ctx, id, testRun, j)
	if err != nil {
		logger.Error(ctx, "save judgment failed",
			zap.String("submission_id", id),
			zap.String("result", j.Result.String()),
			zap.Error(err),
		)
	}
	return err
}

func (d *Dispatcher) clearStatus(ctx context.Context, id string) {
	if err := d.status.Clear(ctx, id); err != nil {
		logger.Warn(ctx, "clear judging status failed", zap.String("submission_id", id), zap.Error(err))
	}
}

func (d *Dispatcher) release(ctx context.Context, server *model.JudgeServer) {
	if err := d.pool.Release(context.WithoutCancel(ctx), server.ID); err != nil {
		logger.Error(ctx, "release judge server failed", zap.String("hostname", server.Hostname), zap.Error(err))
	}
}

// drain re-publishes one parked job now that capacity may be free.
func (d *Dispatcher) drain(ctx context.Context) {
	if _, err := d.pending.DrainOne(ctx); err != nil {
		logger.Warn(ctx, "drain pending queue failed", zap.Error(err))
	}
}
