package service

import (
	"context"
	"encoding/json"
	"errors"

	"judgehub/internal/common/mq"
	"judgehub/internal/dispatch/model"
	appErr "judgehub/pkg/errors"
	"judgehub/pkg/utils/logger"

	"go.uber.org/zap"
)

// DefaultDispatchTopic carries dispatch jobs.
const DefaultDispatchTopic = "judge.dispatch"

const headerSubmissionID = "submission_id"

// Publisher sends dispatch jobs to the message queue.
type Publisher struct {
	producer mq.Producer
	topic    string
}

// NewPublisher creates a publisher. An empty topic uses DefaultDispatchTopic.
func NewPublisher(producer mq.Producer, topic string) (*Publisher, error) {
	if producer == nil {
		return nil, errors.New("producer is required")
	}
	if topic == "" {
		topic = DefaultDispatchTopic
	}
	return &Publisher{producer: producer, topic: topic}, nil
}

// Topic returns the topic jobs are published to.
func (p *Publisher) Topic() string {
	return p.topic
}

// PublishJob enqueues job for dispatch.
func (p *Publisher) PublishJob(ctx context.Context, job model.Job) error {
	if err := job.Validate(); err != nil {
		return appErr.Wrapf(err, appErr.InvalidParams, "invalid dispatch job")
	}
	body, err := json.Marshal(job)
	if err != nil {
		return appErr.Wrapf(err, appErr.InternalServerError, "encode dispatch job failed")
	}
	msg := mq.NewMessage(body)
	msg.SetHeader(headerSubmissionID, job.SubmissionID)
	if err := p.producer.Publish(ctx, p.topic, msg); err != nil {
		return appErr.Wrapf(err, appErr.QueuePublishError, "publish dispatch job failed")
	}
	logger.Debug(ctx, "dispatch job published",
		zap.String("submission_id", job.SubmissionID),
		zap.String("topic", p.topic),
	)
	return nil
}

// DecodeJob reads a dispatch job from a queue message.
func DecodeJob(msg *mq.Message) (model.Job, error) {
	var job model.Job
	if msg == nil {
		return job, appErr.New(appErr.InvalidParams).WithMessage("message is nil")
	}
	if err := json.Unmarshal(msg.Body, &job); err != nil {
		return job, appErr.Wrapf(err, appErr.InvalidParams, "decode dispatch job failed")
	}
	if err := job.Validate(); err != nil {
		return job, appErr.Wrapf(err, appErr.InvalidParams, "invalid dispatch job")
	}
	return job, nil
}
