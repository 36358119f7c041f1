package repository

import (
	"context"
	"time"

	"judgehub/internal/common/db"
	"judgehub/internal/dispatch/model"
)

const judgeServerColumns = `id, hostname, ip, judger_version, cpu_core, memory_usage, cpu_usage,
	last_heartbeat, create_time, task_number, service_url, is_disabled`

// JudgeServerRepository stores the judge pool.
type JudgeServerRepository struct {
	db db.Database
}

func NewJudgeServerRepository(database db.Database) *JudgeServerRepository {
	return &JudgeServerRepository{db: database}
}

func (r *JudgeServerRepository) ListEnabledForUpdate(ctx context.Context, tx db.Transaction) ([]*model.JudgeServer, error) {
	query := "SELECT " + judgeServerColumns + `
		FROM judge_server
		WHERE is_disabled = 0
		ORDER BY task_number ASC, id ASC
		FOR UPDATE`
	return r.list(ctx, db.GetQuerier(r.db, tx), query)
}

func (r *JudgeServerRepository) List(ctx context.Context) ([]*model.JudgeServer, error) {
	return r.list(ctx, r.db, "SELECT "+judgeServerColumns+" FROM judge_server ORDER BY id ASC")
}

func (r *JudgeServerRepository) list(ctx context.Context, q db.Querier, query string) ([]*model.JudgeServer, error) {
	rows, err := q.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var servers []*model.JudgeServer
	for rows.Next() {
		s, err := scanJudgeServer(rows)
		if err != nil {
			return nil, err
		}
		servers = append(servers, s)
	}
	return servers, rows.Err()
}

func (r *JudgeServerRepository) IncrTask(ctx context.Context, tx db.Transaction, id int64) error {
	_, err := db.GetQuerier(r.db, tx).Exec(ctx, "UPDATE judge_server SET task_number = task_number + 1 WHERE id = ?", id)
	return err
}

func (r *JudgeServerRepository) DecrTask(ctx context.Context, id int64) error {
	_, err := r.db.Exec(ctx, "UPDATE judge_server SET task_number = GREATEST(task_number - 1, 0) WHERE id = ?", id)
	return err
}

func (r *JudgeServerRepository) UpsertHeartbeat(ctx context.Context, report model.HeartbeatReport, now time.Time) error {
	query := `
		INSERT INTO judge_server
			(hostname, ip, judger_version, cpu_core, memory_usage, cpu_usage, last_heartbeat, create_time, service_url)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON DUPLICATE KEY UPDATE
			ip = VALUES(ip),
			judger_version = VALUES(judger_version),
			cpu_core = VALUES(cpu_core),
			memory_usage = VALUES(memory_usage),
			cpu_usage = VALUES(cpu_usage),
			last_heartbeat = VALUES(last_heartbeat),
			service_url = VALUES(service_url)`
	_, err := r.db.Exec(ctx, query,
		report.Hostname,
		report.IP,
		report.JudgerVersion,
		report.CPUCore,
		report.Memory,
		report.CPU,
		now,
		now,
		report.ServiceURL,
	)
	return err
}

func (r *JudgeServerRepository) SetDisabled(ctx context.Context, id int64, disabled bool) error {
	return r.update(ctx, id, "UPDATE judge_server SET is_disabled = ? WHERE id = ?", disabled, id)
}

func (r *JudgeServerRepository) ResetTasks(ctx context.Context, id int64) error {
	return r.update(ctx, id, "UPDATE judge_server SET task_number = 0 WHERE id = ?", id)
}

func (r *JudgeServerRepository) DeleteByHostname(ctx context.Context, hostname string) error {
	result, err := r.db.Exec(ctx, "DELETE FROM judge_server WHERE hostname = ?", hostname)
	if err != nil {
		return err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return model.ErrServerNotFound
	}
	return nil
}

func (r *JudgeServerRepository) update(ctx context.Context, id int64, query string, args ...interface{}) error {
	result, err := r.db.Exec(ctx, query, args...)
	if err != nil {
		return err
	}
	if affected, err := result.RowsAffected(); err != nil || affected > 0 {
		return err
	}
	var one int
	if err := r.db.QueryRow(ctx, "SELECT 1 FROM judge_server WHERE id = ?", id).Scan(&one); err != nil {
		if db.IsNoRows(err) {
			return model.ErrServerNotFound
		}
		return err
	}
	return nil
}

func scanJudgeServer(scanner db.Scanner) (*model.JudgeServer, error) {
	var s model.JudgeServer
	err := scanner.Scan(
		&s.ID,
		&s.Hostname,
		&s.IP,
		&s.JudgerVersion,
		&s.CPUCore,
		&s.MemoryUsage,
		&s.CPUUsage,
		&s.LastHeartbeat,
		&s.CreateTime,
		&s.TaskNumber,
		&s.ServiceURL,
		&s.IsDisabled,
	)
	if err != nil {
		return nil, err
	}
	return &s, nil
}
