package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"judgehub/internal/common/cache"
	"judgehub/internal/common/db"
	"judgehub/internal/dispatch/model"
)

const (
	defaultProblemTTL      = 10 * time.Minute
	defaultProblemEmptyTTL = time.Minute
	problemKeyPrefix       = "problem:"
)

// ProblemRepository serves problem and contest_problem rows. Judge-time reads go through a
// cache-aside layer; counter updates always hit MySQL inside the caller's transaction.
type ProblemRepository struct {
	db       db.Database
	cache    cache.Cache
	ttl      time.Duration
	emptyTTL time.Duration
}

func NewProblemRepository(database db.Database, cacheClient cache.Cache) *ProblemRepository {
	return NewProblemRepositoryWithTTL(database, cacheClient, defaultProblemTTL, defaultProblemEmptyTTL)
}

func NewProblemRepositoryWithTTL(database db.Database, cacheClient cache.Cache, ttl, emptyTTL time.Duration) *ProblemRepository {
	if ttl <= 0 {
		ttl = defaultProblemTTL
	}
	if emptyTTL <= 0 {
		emptyTTL = defaultProblemEmptyTTL
	}
	return &ProblemRepository{db: database, cache: cacheClient, ttl: ttl, emptyTTL: emptyTTL}
}

func problemTable(scope model.ProblemScope) (string, error) {
	switch scope {
	case model.ProblemScopePublic:
		return "problem", nil
	case model.ProblemScopeContest:
		return "contest_problem", nil
	default:
		return "", fmt.Errorf("unknown problem scope %q", scope)
	}
}

func problemKey(scope model.ProblemScope, id int64) string {
	return problemKeyPrefix + string(scope) + ":" + strconv.FormatInt(id, 10)
}

func (r *ProblemRepository) Get(ctx context.Context, scope model.ProblemScope, id int64) (*model.Problem, error) {
	if r.cache == nil {
		return r.getFromDB(ctx, scope, id)
	}
	p, err := cache.GetWithCached[*model.Problem](
		ctx,
		r.cache,
		problemKey(scope, id),
		cache.JitterTTL(r.ttl),
		cache.JitterTTL(r.emptyTTL),
		func(p *model.Problem) bool { return p == nil },
		marshalJSON[*model.Problem],
		unmarshalJSON[*model.Problem],
		func(ctx context.Context) (*model.Problem, error) {
			p, err := r.getFromDB(ctx, scope, id)
			if errors.Is(err, model.ErrProblemNotFound) {
				return nil, nil
			}
			return p, err
		},
	)
	if err != nil {
		return nil, err
	}
	if p == nil {
		return nil, model.ErrProblemNotFound
	}
	return p, nil
}

func (r *ProblemRepository) getFromDB(ctx context.Context, scope model.ProblemScope, id int64) (*model.Problem, error) {
	table, err := problemTable(scope)
	if err != nil {
		return nil, err
	}
	contestColumn := "NULL"
	if scope == model.ProblemScopeContest {
		contestColumn = "contest_id"
	}
	query := `
		SELECT id, display_id, ` + contestColumn + `, time_limit, memory_limit, test_case_id, test_case_score,
		       samples, rule_type, spj, spj_language, spj_code, spj_version, spj_compile_ok
		FROM ` + table + `
		WHERE id = ?`

	var (
		p                  model.Problem
		contestID          sql.NullInt64
		testCases, samples []byte
		spjCode            sql.NullString
	)
	err = r.db.QueryRow(ctx, query, id).Scan(
		&p.ID,
		&p.DisplayID,
		&contestID,
		&p.TimeLimit,
		&p.MemoryLimit,
		&p.TestCaseID,
		&testCases,
		&samples,
		&p.RuleType,
		&p.SPJ,
		&p.SPJLanguage,
		&spjCode,
		&p.SPJVersion,
		&p.SPJCompileOK,
	)
	if err != nil {
		if db.IsNoRows(err) {
			return nil, model.ErrProblemNotFound
		}
		return nil, err
	}
	p.Scope = scope
	p.SPJCode = spjCode.String
	if contestID.Valid {
		cid := contestID.Int64
		p.ContestID = &cid
	}
	if len(testCases) > 0 {
		if err := json.Unmarshal(testCases, &p.TestCases); err != nil {
			return nil, fmt.Errorf("decode test_case_score failed: %w", err)
		}
	}
	if len(samples) > 0 {
		if err := json.Unmarshal(samples, &p.Samples); err != nil {
			return nil, fmt.Errorf("decode samples failed: %w", err)
		}
	}
	return &p, nil
}

func (r *ProblemRepository) SetSPJCompileOK(ctx context.Context, scope model.ProblemScope, id int64, ok bool) error {
	table, err := problemTable(scope)
	if err != nil {
		return err
	}
	update := func(ctx context.Context) error {
		_, err := r.db.Exec(ctx, "UPDATE "+table+" SET spj_compile_ok = ? WHERE id = ?", ok, id)
		return err
	}
	if r.cache == nil {
		return update(ctx)
	}
	return cache.UpdateCached(ctx, r.cache, problemKey(scope, id), update)
}

func (r *ProblemRepository) LockProblem(ctx context.Context, tx db.Transaction, scope model.ProblemScope, id int64) error {
	table, err := problemTable(scope)
	if err != nil {
		return err
	}
	var locked int64
	err = db.GetQuerier(r.db, tx).QueryRow(ctx, "SELECT id FROM "+table+" WHERE id = ? FOR UPDATE", id).Scan(&locked)
	if db.IsNoRows(err) {
		return model.ErrProblemNotFound
	}
	return err
}

func (r *ProblemRepository) AddSubmission(ctx context.Context, tx db.Transaction, scope model.ProblemScope, id int64, accepted bool) error {
	table, err := problemTable(scope)
	if err != nil {
		return err
	}
	query := "UPDATE " + table + " SET submission_number = submission_number + 1 WHERE id = ?"
	if accepted {
		query = "UPDATE " + table + " SET submission_number = submission_number + 1, accepted_number = accepted_number + 1 WHERE id = ?"
	}
	_, err = db.GetQuerier(r.db, tx).Exec(ctx, query, id)
	return err
}

func (r *ProblemRepository) AddAccepted(ctx context.Context, tx db.Transaction, scope model.ProblemScope, id int64) error {
	table, err := problemTable(scope)
	if err != nil {
		return err
	}
	_, err = db.GetQuerier(r.db, tx).Exec(ctx, "UPDATE "+table+" SET accepted_number = accepted_number + 1 WHERE id = ?", id)
	return err
}

func (r *ProblemRepository) IncrVerdict(ctx context.Context, tx db.Transaction, scope model.ProblemScope, id int64, verdict model.Verdict) error {
	query := `
		INSERT INTO problem_verdict_stat (scope, problem_id, verdict, total)
		VALUES (?, ?, ?, 1)
		ON DUPLICATE KEY UPDATE total = total + 1`
	_, err := db.GetQuerier(r.db, tx).Exec(ctx, query, scope, id, verdict)
	return err
}

func (r *ProblemRepository) DecrVerdict(ctx context.Context, tx db.Transaction, scope model.ProblemScope, id int64, verdict model.Verdict) error {
	query := `
		UPDATE problem_verdict_stat
		SET total = GREATEST(total - 1, 0)
		WHERE scope = ? AND problem_id = ? AND verdict = ?`
	_, err := db.GetQuerier(r.db, tx).Exec(ctx, query, scope, id, verdict)
	return err
}

func (r *ProblemRepository) AcceptedNumber(ctx context.Context, tx db.Transaction, scope model.ProblemScope, id int64) (int64, error) {
	table, err := problemTable(scope)
	if err != nil {
		return 0, err
	}
	var n int64
	err = db.GetQuerier(r.db, tx).QueryRow(ctx, "SELECT accepted_number FROM "+table+" WHERE id = ?", id).Scan(&n)
	if db.IsNoRows(err) {
		return 0, model.ErrProblemNotFound
	}
	return n, err
}

func marshalJSON[T any](v T) string {
	payload, err := json.Marshal(v)
	if err != nil {
		return ""
	}
	return string(payload)
}

func unmarshalJSON[T any](data string) (T, error) {
	var v T
	if err := json.Unmarshal([]byte(data), &v); err != nil {
		return v, err
	}
	return v, nil
}
