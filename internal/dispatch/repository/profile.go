package repository

import (
	"context"

	"judgehub/internal/common/db"
	"judgehub/internal/dispatch/model"
)

// ProfileRepository updates user_profile counters.
type ProfileRepository struct {
	db db.Database
}

func NewProfileRepository(database db.Database) *ProfileRepository {
	return &ProfileRepository{db: database}
}

func (r *ProfileRepository) GetForUpdate(ctx context.Context, tx db.Transaction, userID int64) (*model.UserProfile, error) {
	query := `
		SELECT user_id, real_name, submission_number, accepted_number, total_score
		FROM user_profile
		WHERE user_id = ?
		FOR UPDATE`
	var p model.UserProfile
	err := db.GetQuerier(r.db, tx).QueryRow(ctx, query, userID).
		Scan(&p.UserID, &p.RealName, &p.SubmissionNumber, &p.AcceptedNumber, &p.TotalScore)
	if err != nil {
		if db.IsNoRows(err) {
			return nil, model.ErrProfileNotFound
		}
		return nil, err
	}
	return &p, nil
}

func (r *ProfileRepository) IncrSubmission(ctx context.Context, tx db.Transaction, userID int64) error {
	_, err := db.GetQuerier(r.db, tx).Exec(ctx, "UPDATE user_profile SET submission_number = submission_number + 1 WHERE user_id = ?", userID)
	return err
}

func (r *ProfileRepository) IncrAccepted(ctx context.Context, tx db.Transaction, userID int64) error {
	_, err := db.GetQuerier(r.db, tx).Exec(ctx, "UPDATE user_profile SET accepted_number = accepted_number + 1 WHERE user_id = ?", userID)
	return err
}

func (r *ProfileRepository) AdjustScore(ctx context.Context, tx db.Transaction, userID int64, last, current int64) error {
	_, err := db.GetQuerier(r.db, tx).Exec(ctx,
		"UPDATE user_profile SET total_score = total_score - ? + ? WHERE user_id = ?", last, current, userID)
	return err
}
