// Package pool tracks judge servers and reserves their capacity.
package pool

import (
	"context"
	"errors"
	"time"

	"judgehub/internal/common/db"
	"judgehub/internal/dispatch/model"
)

const (
	DefaultHeartbeatTolerance = 6 * time.Second
	DefaultTaskPerCore        = 5
)

// Store persists judge servers. Methods taking a tx run inside it when tx is non-nil.
type Store interface {
	// ListEnabledForUpdate returns enabled servers ordered by task_number, row-locked for tx.
	ListEnabledForUpdate(ctx context.Context, tx db.Transaction) ([]*model.JudgeServer, error)
	IncrTask(ctx context.Context, tx db.Transaction, serverID int64) error
	// DecrTask decrements task_number, never below zero.
	DecrTask(ctx context.Context, serverID int64) error
	UpsertHeartbeat(ctx context.Context, report model.HeartbeatReport, now time.Time) error
	// SetDisabled, ResetTasks and DeleteByHostname return model.ErrServerNotFound for unknown servers.
	SetDisabled(ctx context.Context, serverID int64, disabled bool) error
	ResetTasks(ctx context.Context, serverID int64) error
	DeleteByHostname(ctx context.Context, hostname string) error
	List(ctx context.Context) ([]*model.JudgeServer, error)
}

// Config controls server selection.
type Config struct {
	HeartbeatTolerance time.Duration
	TaskPerCore        int
	Now                func() time.Time
}

// Pool selects servers with spare capacity and accounts for reservations.
type Pool struct {
	store     Store
	tolerance time.Duration
	perCore   int
	now       func() time.Time
}

// New creates a pool; zero config values take defaults.
func New(store Store, cfg Config) (*Pool, error) {
	if store == nil {
		return nil, errors.New("store is required")
	}
	if cfg.HeartbeatTolerance <= 0 {
		cfg.HeartbeatTolerance = DefaultHeartbeatTolerance
	}
	if cfg.TaskPerCore <= 0 {
		cfg.TaskPerCore = DefaultTaskPerCore
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	return &Pool{
		store:     store,
		tolerance: cfg.HeartbeatTolerance,
		perCore:   cfg.TaskPerCore,
		now:       cfg.Now,
	}, nil
}

// SelectServer returns the first healthy server with spare capacity, in the given order.
// Disabled servers are skipped. It returns nil when none qualifies.
func SelectServer(servers []*model.JudgeServer, now time.Time, tolerance time.Duration, perCore int) *model.JudgeServer {
	for _, s := range servers {
		if s == nil || s.IsDisabled {
			continue
		}
		if s.Status(now, tolerance) != model.ServerStatusNormal {
			continue
		}
		if s.TaskNumber <= s.CPUCore*perCore {
			return s
		}
	}
	return nil
}

// Choose reserves one unit of capacity inside tx. A nil server with a nil error means no capacity.
func (p *Pool) Choose(ctx context.Context, tx db.Transaction) (*model.JudgeServer, error) {
	servers, err := p.store.ListEnabledForUpdate(ctx, tx)
	if err != nil {
		return nil, err
	}
	server := SelectServer(servers, p.now(), p.tolerance, p.perCore)
	if server == nil {
		return nil, nil
	}
	if err := p.store.IncrTask(ctx, tx, server.ID); err != nil {
		return nil, err
	}
	server.TaskNumber++
	return server, nil
}

// Release returns one unit of capacity to serverID.
func (p *Pool) Release(ctx context.Context, serverID int64) error {
	return p.store.DecrTask(ctx, serverID)
}

// Heartbeat records a server report.
func (p *Pool) Heartbeat(ctx context.Context, report model.HeartbeatReport) error {
	if report.Hostname == "" {
		return errors.New("hostname is required")
	}
	if report.ServiceURL == "" {
		return errors.New("service_url is required")
	}
	if report.CPUCore <= 0 {
		report.CPUCore = 1
	}
	return p.store.UpsertHeartbeat(ctx, report, p.now())
}

// SetDisabled stops or resumes selection of a server. In-flight jobs are not interrupted.
func (p *Pool) SetDisabled(ctx context.Context, serverID int64, disabled bool) error {
	return p.store.SetDisabled(ctx, serverID, disabled)
}

// ResetTasks zeroes a server's task counter.
func (p *Pool) ResetTasks(ctx context.Context, serverID int64) error {
	return p.store.ResetTasks(ctx, serverID)
}

// Remove deletes a server by hostname.
func (p *Pool) Remove(ctx context.Context, hostname string) error {
	if hostname == "" {
		return errors.New("hostname is required")
	}
	return p.store.DeleteByHostname(ctx, hostname)
}

// ServerView is a server with its derived status.
type ServerView struct {
	*model.JudgeServer
	Status string `json:"status"`
}

// List returns every server with its health status.
func (p *Pool) List(ctx context.Context) ([]ServerView, error) {
	servers, err := p.store.List(ctx)
	if err != nil {
		return nil, err
	}
	now := p.now()
	views := make([]ServerView, 0, len(servers))
	for _, s := range servers {
		views = append(views, ServerView{JudgeServer: s, Status: s.Status(now, p.tolerance)})
	}
	return views, nil
}
