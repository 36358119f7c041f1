// Package repository persists dispatcher state in MySQL and Redis.
package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"judgehub/internal/common/db"
	"judgehub/internal/dispatch/model"
)

const (
	tableSubmission     = "submission"
	tableTestSubmission = "test_submission"
)

// SubmissionRepository reads and updates submissions and test runs.
type SubmissionRepository struct {
	db db.Database
}

func NewSubmissionRepository(database db.Database) *SubmissionRepository {
	return &SubmissionRepository{db: database}
}

func submissionTable(testRun bool) string {
	if testRun {
		return tableTestSubmission
	}
	return tableSubmission
}

func (r *SubmissionRepository) Get(ctx context.Context, id string, testRun bool) (*model.Submission, error) {
	query := fmt.Sprintf(`
		SELECT id, problem_id, contest_id, user_id, language, code, result,
		       info, statistic_info, list_result, counted_result, create_time
		FROM %s
		WHERE id = ?`, submissionTable(testRun))
	sub, err := scanSubmission(r.db.QueryRow(ctx, query, id))
	if err != nil {
		if db.IsNoRows(err) {
			return nil, model.ErrSubmissionNotFound
		}
		return nil, err
	}
	return sub, nil
}

func (r *SubmissionRepository) MarkJudging(ctx context.Context, tx db.Transaction, id string, testRun bool) error {
	table := submissionTable(testRun)
	return r.update(ctx, tx, table, id, "UPDATE "+table+" SET result = ? WHERE id = ?", model.VerdictJudging)
}

func (r *SubmissionRepository) SaveJudgment(ctx context.Context, id string, testRun bool, j *model.Judgment) error {
	statistic, err := json.Marshal(j.Statistic)
	if err != nil {
		return fmt.Errorf("encode statistic_info failed: %w", err)
	}
	listResult, err := json.Marshal(j.ListResult)
	if err != nil {
		return fmt.Errorf("encode list_result failed: %w", err)
	}
	table := submissionTable(testRun)
	query := "UPDATE " + table + " SET result = ?, info = ?, statistic_info = ?, list_result = ? WHERE id = ?"
	return r.update(ctx, nil, table, id, query, j.Result, nullJSON(j.Info), string(statistic), string(listResult))
}

// SetCountedResult runs inside the statistics transaction that counted the verdict.
func (r *SubmissionRepository) SetCountedResult(ctx context.Context, tx db.Transaction, id string, verdict model.Verdict) error {
	return r.update(ctx, tx, tableSubmission, id, "UPDATE submission SET counted_result = ? WHERE id = ?", verdict)
}

func (r *SubmissionRepository) ResetForRejudge(ctx context.Context, id string) error {
	query := `
		UPDATE submission
		SET result = ?, info = NULL, statistic_info = NULL, list_result = NULL
		WHERE id = ?`
	return r.update(ctx, nil, tableSubmission, id, query, model.VerdictPending)
}

// update runs an UPDATE keyed by id. MySQL reports zero affected rows for unchanged values,
// so a miss is confirmed with a lookup before reporting model.ErrSubmissionNotFound.
func (r *SubmissionRepository) update(ctx context.Context, tx db.Transaction, table, id, query string, args ...interface{}) error {
	q := db.GetQuerier(r.db, tx)
	result, err := q.Exec(ctx, query, append(args, id)...)
	if err != nil {
		return err
	}
	affected, err := result.RowsAffected()
	if err != nil || affected > 0 {
		return err
	}
	var one int
	if err := q.QueryRow(ctx, "SELECT 1 FROM "+table+" WHERE id = ?", id).Scan(&one); err != nil {
		if db.IsNoRows(err) {
			return model.ErrSubmissionNotFound
		}
		return err
	}
	return nil
}

func scanSubmission(scanner db.Scanner) (*model.Submission, error) {
	var (
		sub                          model.Submission
		contestID, counted           sql.NullInt64
		info, statistic, listResult []byte
	)
	if err := scanner.Scan(
		&sub.ID,
		&sub.ProblemID,
		&contestID,
		&sub.UserID,
		&sub.Language,
		&sub.Code,
		&sub.Result,
		&info,
		&statistic,
		&listResult,
		&counted,
		&sub.CreateTime,
	); err != nil {
		return nil, err
	}
	if contestID.Valid {
		id := contestID.Int64
		sub.ContestID = &id
	}
	if counted.Valid {
		v := model.Verdict(counted.Int64)
		sub.CountedResult = &v
	}
	if len(info) > 0 {
		sub.Info = json.RawMessage(info)
	}
	if len(statistic) > 0 {
		if err := json.Unmarshal(statistic, &sub.Statistic); err != nil {
			return nil, fmt.Errorf("decode statistic_info failed: %w", err)
		}
	}
	if len(listResult) > 0 {
		if err := json.Unmarshal(listResult, &sub.ListResult); err != nil {
			return nil, fmt.Errorf("decode list_result failed: %w", err)
		}
	}
	return &sub, nil
}

// nullJSON stores an empty raw message as SQL NULL.
func nullJSON(raw json.RawMessage) interface{} {
	if len(raw) == 0 {
		return nil
	}
	return string(raw)
}
