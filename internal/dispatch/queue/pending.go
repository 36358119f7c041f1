// Package queue parks dispatch jobs while no judge server has capacity.
package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"judgehub/internal/common/cache"
	"judgehub/internal/dispatch/metrics"
	"judgehub/internal/dispatch/model"
	"judgehub/pkg/utils/logger"

	"go.uber.org/zap"
)

// DefaultKey is the Redis list holding parked jobs.
const DefaultKey = "waitingQueue"

// JobPublisher re-submits a job to the dispatch entry point.
type JobPublisher interface {
	PublishJob(ctx context.Context, job model.Job) error
}

// PendingQueue is a durable FIFO of jobs backed by a Redis list.
// Jobs are pushed on the left and popped on the right.
type PendingQueue struct {
	list      cache.ListOps
	key       string
	publisher JobPublisher
}

// New creates a pending queue. An empty key uses DefaultKey.
func New(list cache.ListOps, publisher JobPublisher, key string) (*PendingQueue, error) {
	if list == nil {
		return nil, errors.New("list is required")
	}
	if publisher == nil {
		return nil, errors.New("publisher is required")
	}
	if key == "" {
		key = DefaultKey
	}
	return &PendingQueue{list: list, key: key, publisher: publisher}, nil
}

// Push parks a job.
func (q *PendingQueue) Push(ctx context.Context, job model.Job) error {
	payload, err := json.Marshal(job)
	if err != nil {
		return fmt.Errorf("encode job failed: %w", err)
	}
	if err := q.list.LPush(ctx, q.key, string(payload)); err != nil {
		return err
	}
	metrics.IncPendingPushed()
	return nil
}

// PopOne removes the oldest job. It returns nil when the queue is empty.
func (q *PendingQueue) PopOne(ctx context.Context) (*model.Job, error) {
	raw, err := q.list.RPop(ctx, q.key)
	if err != nil {
		return nil, err
	}
	if raw == "" {
		return nil, nil
	}
	var job model.Job
	if err := json.Unmarshal([]byte(raw), &job); err != nil {
		logger.Error(ctx, "drop undecodable pending job", zap.String("payload", raw), zap.Error(err))
		return nil, nil
	}
	return &job, nil
}

// DrainOne re-publishes at most one parked job and reports whether one was taken.
// A job that cannot be published is put back at the head so it is popped next.
func (q *PendingQueue) DrainOne(ctx context.Context) (bool, error) {
	job, err := q.PopOne(ctx)
	if err != nil || job == nil {
		return false, err
	}
	if err := q.publisher.PublishJob(ctx, *job); err != nil {
		payload, _ := json.Marshal(job)
		if requeueErr := q.list.RPush(ctx, q.key, string(payload)); requeueErr != nil {
			logger.Error(ctx, "requeue pending job failed",
				zap.String("submission_id", job.SubmissionID),
				zap.Error(requeueErr),
			)
		}
		return false, fmt.Errorf("publish pending job failed: %w", err)
	}
	metrics.IncPendingDrained()
	logger.Info(ctx, "pending job re-published", zap.String("submission_id", job.SubmissionID))
	return true, nil
}

// Len returns the number of parked jobs.
func (q *PendingQueue) Len(ctx context.Context) (int64, error) {
	return q.list.LLen(ctx, q.key)
}
