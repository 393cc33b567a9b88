package tasks

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"enaya/models"

	"github.com/hibiken/asynq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeEnqueuer struct {
	tasks []*asynq.Task
	err   error
}

func (f *fakeEnqueuer) EnqueueContext(_ context.Context, task *asynq.Task, _ ...asynq.Option) (*asynq.TaskInfo, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.tasks = append(f.tasks, task)
	return &asynq.TaskInfo{ID: "x"}, nil
}

func TestNewArrivalTask(t *testing.T) {
	at := time.Date(2024, 5, 1, 15, 0, 0, 0, time.UTC)
	task, opts, err := NewArrivalTask(models.ArrivalPayload{AppointmentID: "a1", CustomerID: "c1", CheckedInAt: at})
	require.NoError(t, err)
	assert.Equal(t, TypeArrivalNotice, task.Type())
	assert.Len(t, opts, 3)

	var p models.ArrivalPayload
	require.NoError(t, json.Unmarshal(task.Payload(), &p))
	assert.Equal(t, "a1", p.AppointmentID)
	assert.Equal(t, "c1", p.CustomerID)
	assert.True(t, at.Equal(p.CheckedInAt))
}

func TestArrivalQueue(t *testing.T) {
	f := &fakeEnqueuer{}
	q := &ArrivalQueue{client: f}
	require.NoError(t, q.NotifyArrival(context.Background(), models.ArrivalPayload{AppointmentID: "a1"}))
	assert.Len(t, f.tasks, 1)

	q = &ArrivalQueue{client: &fakeEnqueuer{err: asynq.ErrTaskIDConflict}}
	assert.NoError(t, q.NotifyArrival(context.Background(), models.ArrivalPayload{AppointmentID: "a1"}))

	q = &ArrivalQueue{client: &fakeEnqueuer{err: errors.New("redis down")}}
	assert.Error(t, q.NotifyArrival(context.Background(), models.ArrivalPayload{AppointmentID: "a1"}))
}
