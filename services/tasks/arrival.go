package tasks

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"enaya/models"

	"github.com/hibiken/asynq"
)

const TypeArrivalNotice = "checkin:arrived"

// QueueArrivals is the queue front-desk notices are sent on.
const QueueArrivals = "arrivals"

func NewArrivalTask(payload models.ArrivalPayload) (*asynq.Task, []asynq.Option, error) {
	b, err := json.Marshal(payload)
	if err != nil {
		return nil, nil, err
	}
	task := asynq.NewTask(TypeArrivalNotice, b)
	opts := []asynq.Option{
		asynq.Queue(QueueArrivals),
		asynq.MaxRetry(3),
		// One notice per appointment even if two servers race on it.
		asynq.TaskID("arrival:" + payload.AppointmentID),
	}
	return task, opts, nil
}

// enqueuer is the slice of *asynq.Client the queue needs.
type enqueuer interface {
	EnqueueContext(ctx context.Context, task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error)
}

// ArrivalQueue hands arrival notices to the worker.
type ArrivalQueue struct {
	client enqueuer
}

func NewArrivalQueue(client *asynq.Client) *ArrivalQueue {
	return &ArrivalQueue{client: client}
}

func (q *ArrivalQueue) NotifyArrival(ctx context.Context, payload models.ArrivalPayload) error {
	task, opts, err := NewArrivalTask(payload)
	if err != nil {
		return fmt.Errorf("failed to build arrival task: %w", err)
	}
	if _, err := q.client.EnqueueContext(ctx, task, opts...); err != nil {
		if errors.Is(err, asynq.ErrTaskIDConflict) {
			return nil
		}
		return fmt.Errorf("failed to enqueue arrival task: %w", err)
	}
	return nil
}
