package pool_test

import (
	"context"
	"runtime"
	"sort"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"judgehub/internal/common/db"
	"judgehub/internal/dispatch/memstore"
	"judgehub/internal/dispatch/model"
	"judgehub/internal/dispatch/pool"
)

type fakeStore struct {
	mu      sync.Mutex
	servers map[int64]*model.JudgeServer
	nextID  int64
}

func newFakeStore(servers ...*model.JudgeServer) *fakeStore {
	s := &fakeStore{servers: make(map[int64]*model.JudgeServer)}
	for _, srv := range servers {
		s.nextID++
		srv.ID = s.nextID
		s.servers[srv.ID] = srv
	}
	return s
}

func (s *fakeStore) ListEnabledForUpdate(ctx context.Context, tx db.Transaction) ([]*model.JudgeServer, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]*model.JudgeServer, 0, len(s.servers))
	for _, srv := range s.servers {
		if srv.IsDisabled {
			continue
		}
		cp := *srv
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].TaskNumber == out[j].TaskNumber {
			return out[i].ID < out[j].ID
		}
		return out[i].TaskNumber < out[j].TaskNumber
	})
	return out, nil
}

func (s *fakeStore) IncrTask(ctx context.Context, tx db.Transaction, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.servers[id].TaskNumber++
	return nil
}

func (s *fakeStore) DecrTask(ctx context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.servers[id].TaskNumber > 0 {
		s.servers[id].TaskNumber--
	}
	return nil
}

func (s *fakeStore) UpsertHeartbeat(ctx context.Context, report model.HeartbeatReport, now time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, srv := range s.servers {
		if srv.Hostname == report.Hostname {
			srv.LastHeartbeat = now
			srv.ServiceURL = report.ServiceURL
			srv.CPUCore = report.CPUCore
			return nil
		}
	}
	s.nextID++
	s.servers[s.nextID] = &model.JudgeServer{
		ID:            s.nextID,
		Hostname:      report.Hostname,
		CPUCore:       report.CPUCore,
		ServiceURL:    report.ServiceURL,
		LastHeartbeat: now,
	}
	return nil
}

func (s *fakeStore) SetDisabled(ctx context.Context, id int64, disabled bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	srv, ok := s.servers[id]
	if !ok {
		return model.ErrServerNotFound
	}
	srv.IsDisabled = disabled
	return nil
}

func (s *fakeStore) ResetTasks(ctx context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.servers[id].TaskNumber = 0
	return nil
}

func (s *fakeStore) DeleteByHostname(ctx context.Context, hostname string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for id, srv := range s.servers {
		if srv.Hostname == hostname {
			delete(s.servers, id)
			return nil
		}
	}
	return model.ErrServerNotFound
}

func (s *fakeStore) List(ctx context.Context) ([]*model.JudgeServer, error) {
	return s.ListEnabledForUpdate(ctx, nil)
}

func (s *fakeStore) taskNumber(id int64) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.servers[id].TaskNumber
}

func TestSelectServer(t *testing.T) {
	now := time.Now()
	healthy := func(id int64, tasks, cores int) *model.JudgeServer {
		return &model.JudgeServer{ID: id, TaskNumber: tasks, CPUCore: cores, LastHeartbeat: now}
	}
	tests := []struct {
		name    string
		servers []*model.JudgeServer
		wantID  int64
	}{
		{name: "empty", servers: nil, wantID: 0},
		{name: "first with capacity", servers: []*model.JudgeServer{healthy(1, 0, 1), healthy(2, 0, 1)}, wantID: 1},
		{name: "at ceiling still accepted", servers: []*model.JudgeServer{healthy(1, 5, 1)}, wantID: 1},
		{name: "over ceiling skipped", servers: []*model.JudgeServer{healthy(1, 6, 1), healthy(2, 9, 2)}, wantID: 2},
		{
			name: "stale heartbeat skipped",
			servers: []*model.JudgeServer{
				{ID: 1, CPUCore: 4, LastHeartbeat: now.Add(-10 * time.Second)},
				healthy(2, 3, 1),
			},
			wantID: 2,
		},
		{
			name:    "disabled skipped",
			servers: []*model.JudgeServer{{ID: 1, CPUCore: 4, LastHeartbeat: now, IsDisabled: true}},
			wantID:  0,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := pool.SelectServer(tt.servers, now, pool.DefaultHeartbeatTolerance, pool.DefaultTaskPerCore)
			var gotID int64
			if got != nil {
				gotID = got.ID
			}
			if gotID != tt.wantID {
				t.Fatalf("expected server %d, got %d", tt.wantID, gotID)
			}
		})
	}
}

func TestPoolChooseAndRelease(t *testing.T) {
	now := time.Now()
	store := newFakeStore(&model.JudgeServer{Hostname: "a", CPUCore: 1, LastHeartbeat: now})
	p, err := pool.New(store, pool.Config{Now: func() time.Time { return now }})
	if err != nil {
		t.Fatalf("new pool failed: %v", err)
	}
	ctx := context.Background()

	for i := 0; i < 6; i++ {
		srv, err := p.Choose(ctx, nil)
		if err != nil || srv == nil {
			t.Fatalf("choose %d: expected a server, got %v err=%v", i, srv, err)
		}
	}
	if srv, err := p.Choose(ctx, nil); err != nil || srv != nil {
		t.Fatalf("expected no capacity, got %v err=%v", srv, err)
	}
	if err := p.Release(ctx, 1); err != nil {
		t.Fatalf("release failed: %v", err)
	}
	if store.taskNumber(1) != 5 {
		t.Fatalf("expected 5 tasks after release, got %d", store.taskNumber(1))
	}
	for i := 0; i < 10; i++ {
		_ = p.Release(ctx, 1)
	}
	if store.taskNumber(1) != 0 {
		t.Fatalf("expected task number floored at 0, got %d", store.taskNumber(1))
	}
}

// Choose runs inside store transactions the way the dispatcher reserves capacity, while releases
// run unsynchronized alongside them.
func TestPoolCapacityConservation(t *testing.T) {
	now := time.Now()
	store := memstore.New()
	cores := map[int64]int{
		store.PutServer(model.JudgeServer{Hostname: "a", CPUCore: 1, LastHeartbeat: now}): 1,
		store.PutServer(model.JudgeServer{Hostname: "b", CPUCore: 2, LastHeartbeat: now}): 2,
	}
	p, _ := pool.New(store.Servers(), pool.Config{Now: func() time.Time { return now }})
	ctx := context.Background()

	var (
		wg         sync.WaitGroup
		violations atomic.Int32
		reserved   atomic.Int32
	)
	for i := 0; i < 64; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 20; j++ {
				var srv *model.JudgeServer
				err := store.Transaction(ctx, func(tx db.Transaction) error {
					var err error
					srv, err = p.Choose(ctx, tx)
					return err
				})
				if err != nil {
					violations.Add(1)
					continue
				}
				if srv == nil {
					continue
				}
				reserved.Add(1)
				if srv.TaskNumber > cores[srv.ID]*pool.DefaultTaskPerCore+1 {
					violations.Add(1)
				}
				runtime.Gosched()
				if err := p.Release(ctx, srv.ID); err != nil {
					violations.Add(1)
				}
			}
		}()
	}
	wg.Wait()
	if n := violations.Load(); n != 0 {
		t.Fatalf("observed %d capacity violations", n)
	}
	if reserved.Load() == 0 {
		t.Fatalf("expected some reservations")
	}
	for id := range cores {
		if got := store.Server(id).TaskNumber; got != 0 {
			t.Fatalf("expected all capacity of server %d returned, got %d", id, got)
		}
	}
}

func TestPoolHeartbeatAndList(t *testing.T) {
	now := time.Now()
	clock := now
	store := newFakeStore()
	p, _ := pool.New(store, pool.Config{Now: func() time.Time { return clock }})
	ctx := context.Background()

	if err := p.Heartbeat(ctx, model.HeartbeatReport{Hostname: "judge-1"}); err == nil {
		t.Fatalf("expected missing service url to fail")
	}
	if err := p.Heartbeat(ctx, model.HeartbeatReport{Hostname: "judge-1", ServiceURL: "http://judge-1:8080"}); err != nil {
		t.Fatalf("heartbeat failed: %v", err)
	}
	views, err := p.List(ctx)
	if err != nil || len(views) != 1 {
		t.Fatalf("expected one server, got %d err=%v", len(views), err)
	}
	if views[0].Status != model.ServerStatusNormal || views[0].CPUCore != 1 {
		t.Fatalf("unexpected view: %+v", views[0])
	}

	clock = now.Add(time.Minute)
	views, _ = p.List(ctx)
	if views[0].Status != model.ServerStatusAbnormal {
		t.Fatalf("expected abnormal after missed heartbeats")
	}
	if err := p.Remove(ctx, "judge-1"); err != nil {
		t.Fatalf("remove failed: %v", err)
	}
}
