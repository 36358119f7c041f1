package repository

import (
	"context"
	"encoding/json"
	"fmt"

	"judgehub/internal/common/db"
	"judgehub/internal/dispatch/model"
)

// RankRepository stores ACM and OI contest rank rows.
type RankRepository struct {
	db db.Database
}

func NewRankRepository(database db.Database) *RankRepository {
	return &RankRepository{db: database}
}

// ensureRow inserts an empty rank row. A concurrent insert of the same row is not an error.
func ensureRow(ctx context.Context, q db.Querier, table string, contestID, userID int64) error {
	_, err := q.Exec(ctx, "INSERT INTO "+table+" (contest_id, user_id, submission_info) VALUES (?, ?, '{}')", contestID, userID)
	if err != nil && !db.IsDuplicateKey(err) {
		return err
	}
	return nil
}

func (r *RankRepository) GetOrCreateACMForUpdate(ctx context.Context, tx db.Transaction, contestID, userID int64) (*model.ACMContestRank, error) {
	q := db.GetQuerier(r.db, tx)
	query := `
		SELECT id, user_id, contest_id, real_name, submission_number, accepted_number, total_time, submission_info
		FROM acm_contest_rank
		WHERE contest_id = ? AND user_id = ?
		FOR UPDATE`
	rank, err := scanACMRank(q.QueryRow(ctx, query, contestID, userID))
	if err == nil {
		return rank, nil
	}
	if !db.IsNoRows(err) {
		return nil, err
	}
	if err := ensureRow(ctx, q, "acm_contest_rank", contestID, userID); err != nil {
		return nil, err
	}
	return scanACMRank(q.QueryRow(ctx, query, contestID, userID))
}

func (r *RankRepository) SaveACM(ctx context.Context, tx db.Transaction, rank *model.ACMContestRank) error {
	info, err := json.Marshal(rank.SubmissionInfo)
	if err != nil {
		return fmt.Errorf("encode submission_info failed: %w", err)
	}
	query := `
		UPDATE acm_contest_rank
		SET real_name = ?, submission_number = ?, accepted_number = ?, total_time = ?, submission_info = ?
		WHERE contest_id = ? AND user_id = ?`
	_, err = db.GetQuerier(r.db, tx).Exec(ctx, query,
		rank.RealName, rank.SubmissionNumber, rank.AcceptedNumber, rank.TotalTime, string(info),
		rank.ContestID, rank.UserID)
	return err
}

func (r *RankRepository) GetOrCreateOIForUpdate(ctx context.Context, tx db.Transaction, contestID, userID int64) (*model.OIContestRank, error) {
	q := db.GetQuerier(r.db, tx)
	query := `
		SELECT id, user_id, contest_id, real_name, submission_number, total_score, submission_info
		FROM oi_contest_rank
		WHERE contest_id = ? AND user_id = ?
		FOR UPDATE`
	rank, err := scanOIRank(q.QueryRow(ctx, query, contestID, userID))
	if err == nil {
		return rank, nil
	}
	if !db.IsNoRows(err) {
		return nil, err
	}
	if err := ensureRow(ctx, q, "oi_contest_rank", contestID, userID); err != nil {
		return nil, err
	}
	return scanOIRank(q.QueryRow(ctx, query, contestID, userID))
}

func (r *RankRepository) SaveOI(ctx context.Context, tx db.Transaction, rank *model.OIContestRank) error {
	info, err := json.Marshal(rank.SubmissionInfo)
	if err != nil {
		return fmt.Errorf("encode submission_info failed: %w", err)
	}
	query := `
		UPDATE oi_contest_rank
		SET real_name = ?, submission_number = ?, total_score = ?, submission_info = ?
		WHERE contest_id = ? AND user_id = ?`
	_, err = db.GetQuerier(r.db, tx).Exec(ctx, query,
		rank.RealName, rank.SubmissionNumber, rank.TotalScore, string(info),
		rank.ContestID, rank.UserID)
	return err
}

// ListACM returns the contest's ACM standings, most solved first and then least time.
func (r *RankRepository) ListACM(ctx context.Context, contestID int64) ([]model.ACMContestRank, error) {
	query := `
		SELECT id, user_id, contest_id, real_name, submission_number, accepted_number, total_time, submission_info
		FROM acm_contest_rank
		WHERE contest_id = ? AND submission_number > 0
		ORDER BY accepted_number DESC, total_time ASC, id ASC`
	rows, err := r.db.Query(ctx, query, contestID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []model.ACMContestRank
	for rows.Next() {
		rank, err := scanACMRank(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *rank)
	}
	return out, rows.Err()
}

// ListOI returns the contest's OI standings by total score.
func (r *RankRepository) ListOI(ctx context.Context, contestID int64) ([]model.OIContestRank, error) {
	query := `
		SELECT id, user_id, contest_id, real_name, submission_number, total_score, submission_info
		FROM oi_contest_rank
		WHERE contest_id = ? AND submission_number > 0
		ORDER BY total_score DESC, id ASC`
	rows, err := r.db.Query(ctx, query, contestID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []model.OIContestRank
	for rows.Next() {
		rank, err := scanOIRank(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *rank)
	}
	return out, rows.Err()
}

func scanACMRank(scanner db.Scanner) (*model.ACMContestRank, error) {
	var (
		rank model.ACMContestRank
		info []byte
	)
	if err := scanner.Scan(
		&rank.ID,
		&rank.UserID,
		&rank.ContestID,
		&rank.RealName,
		&rank.SubmissionNumber,
		&rank.AcceptedNumber,
		&rank.TotalTime,
		&info,
	); err != nil {
		return nil, err
	}
	rank.SubmissionInfo = make(map[string]model.ACMProblemRank)
	if len(info) > 0 {
		if err := json.Unmarshal(info, &rank.SubmissionInfo); err != nil {
			return nil, fmt.Errorf("decode submission_info failed: %w", err)
		}
	}
	return &rank, nil
}

func scanOIRank(scanner db.Scanner) (*model.OIContestRank, error) {
	var (
		rank model.OIContestRank
		info []byte
	)
	if err := scanner.Scan(
		&rank.ID,
		&rank.UserID,
		&rank.ContestID,
		&rank.RealName,
		&rank.SubmissionNumber,
		&rank.TotalScore,
		&info,
	); err != nil {
		return nil, err
	}
	rank.SubmissionInfo = make(map[string]int64)
	if len(info) > 0 {
		if err := json.Unmarshal(info, &rank.SubmissionInfo); err != nil {
			return nil, fmt.Errorf("decode submission_info failed: %w", err)
		}
	}
	return &rank, nil
}
