package repository

import (
	"context"

	"judgehub/internal/common/db"
	"judgehub/internal/dispatch/model"
)

// ProgressRepository keeps user_problem_status rows.
type ProgressRepository struct {
	db db.Database
}

func NewProgressRepository(database db.Database) *ProgressRepository {
	return &ProgressRepository{db: database}
}

func (r *ProgressRepository) GetForUpdate(ctx context.Context, tx db.Transaction, userID int64, scope model.ProgressScope, problemID int64) (*model.ProblemProgress, error) {
	query := `
		SELECT user_id, scope, problem_id, display_id, rule_type, status, score
		FROM user_problem_status
		WHERE user_id = ? AND scope = ? AND problem_id = ?
		FOR UPDATE`
	var p model.ProblemProgress
	err := db.GetQuerier(r.db, tx).QueryRow(ctx, query, userID, scope, problemID).
		Scan(&p.UserID, &p.Scope, &p.ProblemID, &p.DisplayID, &p.RuleType, &p.Status, &p.Score)
	if err != nil {
		if db.IsNoRows(err) {
			return nil, nil
		}
		return nil, err
	}
	return &p, nil
}

func (r *ProgressRepository) Insert(ctx context.Context, tx db.Transaction, p *model.ProblemProgress) error {
	query := `
		INSERT INTO user_problem_status (user_id, scope, problem_id, display_id, rule_type, status, score)
		VALUES (?, ?, ?, ?, ?, ?, ?)`
	_, err := db.GetQuerier(r.db, tx).Exec(ctx, query,
		p.UserID, p.Scope, p.ProblemID, p.DisplayID, p.RuleType, p.Status, p.Score)
	return err
}

func (r *ProgressRepository) UpdateStatus(ctx context.Context, tx db.Transaction, userID int64, scope model.ProgressScope, problemID int64, status model.Verdict, score int64) error {
	query := `
		UPDATE user_problem_status
		SET status = ?, score = ?
		WHERE user_id = ? AND scope = ? AND problem_id = ?`
	_, err := db.GetQuerier(r.db, tx).Exec(ctx, query, status, score, userID, scope, problemID)
	return err
}
