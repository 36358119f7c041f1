package queue_test

import (
	"context"
	"errors"
	"sync"
	"testing"

	"judgehub/internal/common/cache"
	"judgehub/internal/dispatch/model"
	"judgehub/internal/dispatch/queue"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

type recordingPublisher struct {
	mu   sync.Mutex
	jobs []model.Job
	err  error
}

func (p *recordingPublisher) PublishJob(ctx context.Context, job model.Job) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return p.err
	}
	p.jobs = append(p.jobs, job)
	return nil
}

func newQueue(t *testing.T, publisher queue.JobPublisher) (*queue.PendingQueue, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	c, err := cache.NewRedisCacheWithClient(redis.NewClient(&redis.Options{Addr: mr.Addr()}))
	if err != nil {
		t.Fatalf("create cache failed: %v", err)
	}
	q, err := queue.New(c, publisher, "")
	if err != nil {
		t.Fatalf("create queue failed: %v", err)
	}
	return q, mr
}

func TestPendingQueueFIFO(t *testing.T) {
	q, _ := newQueue(t, &recordingPublisher{})
	ctx := context.Background()

	for _, id := range []string{"s1", "s2", "s3"} {
		if err := q.Push(ctx, model.Job{SubmissionID: id, ProblemID: 1}); err != nil {
			t.Fatalf("push failed: %v", err)
		}
	}
	if n, _ := q.Len(ctx); n != 3 {
		t.Fatalf("expected 3 jobs, got %d", n)
	}
	for _, want := range []string{"s1", "s2", "s3"} {
		job, err := q.PopOne(ctx)
		if err != nil || job == nil {
			t.Fatalf("pop failed: %v", err)
		}
		if job.SubmissionID != want {
			t.Fatalf("expected %s, got %s", want, job.SubmissionID)
		}
	}
	if job, err := q.PopOne(ctx); err != nil || job != nil {
		t.Fatalf("expected empty queue, got %+v err=%v", job, err)
	}
}

func TestPendingQueueDrainOne(t *testing.T) {
	publisher := &recordingPublisher{}
	q, _ := newQueue(t, publisher)
	ctx := context.Background()

	if took, err := q.DrainOne(ctx); err != nil || took {
		t.Fatalf("expected nothing to drain, took=%v err=%v", took, err)
	}

	_ = q.Push(ctx, model.Job{SubmissionID: "s1", ProblemID: 7, TestRun: true})
	_ = q.Push(ctx, model.Job{SubmissionID: "s2", ProblemID: 8})
	took, err := q.DrainOne(ctx)
	if err != nil || !took {
		t.Fatalf("expected a job to drain, took=%v err=%v", took, err)
	}
	if len(publisher.jobs) != 1 || publisher.jobs[0] != (model.Job{SubmissionID: "s1", ProblemID: 7, TestRun: true}) {
		t.Fatalf("unexpected published jobs: %+v", publisher.jobs)
	}
	if n, _ := q.Len(ctx); n != 1 {
		t.Fatalf("expected one job left, got %d", n)
	}
}

func TestPendingQueueDrainRequeuesOnPublishFailure(t *testing.T) {
	publisher := &recordingPublisher{err: errors.New("broker down")}
	q, _ := newQueue(t, publisher)
	ctx := context.Background()

	_ = q.Push(ctx, model.Job{SubmissionID: "s1", ProblemID: 1})
	_ = q.Push(ctx, model.Job{SubmissionID: "s2", ProblemID: 1})
	if _, err := q.DrainOne(ctx); err == nil {
		t.Fatalf("expected publish failure")
	}
	if n, _ := q.Len(ctx); n != 2 {
		t.Fatalf("expected job to be put back, got %d jobs", n)
	}
	job, _ := q.PopOne(ctx)
	if job == nil || job.SubmissionID != "s1" {
		t.Fatalf("expected s1 to stay at the head, got %+v", job)
	}
}

func TestPendingQueueSkipsGarbage(t *testing.T) {
	q, mr := newQueue(t, &recordingPublisher{})
	if _, err := mr.Lpush(queue.DefaultKey, "not-json"); err != nil {
		t.Fatalf("seed failed: %v", err)
	}
	job, err := q.PopOne(context.Background())
	if err != nil || job != nil {
		t.Fatalf("expected garbage to be dropped, got %+v err=%v", job, err)
	}
}
