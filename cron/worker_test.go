package cron

import (
	"context"
	"errors"
	"testing"

	"enaya/models"
	"enaya/services/tasks"

	"github.com/hibiken/asynq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type recordingSink struct {
	got []models.ArrivalPayload
}

func (r *recordingSink) Arrived(_ context.Context, p models.ArrivalPayload) error {
	r.got = append(r.got, p)
	return nil
}

func TestHandleArrivalTask(t *testing.T) {
	sink := &recordingSink{}
	h := handleArrivalTask(sink, zap.NewNop())

	task, _, err := tasks.NewArrivalTask(models.ArrivalPayload{AppointmentID: "a1", CustomerID: "c1"})
	require.NoError(t, err)
	require.NoError(t, h(context.Background(), task))
	require.Len(t, sink.got, 1)
	assert.Equal(t, "a1", sink.got[0].AppointmentID)
}

func TestHandleArrivalTask_BadPayloadIsNotRetried(t *testing.T) {
	h := handleArrivalTask(&recordingSink{}, zap.NewNop())

	err := h(context.Background(), asynq.NewTask(tasks.TypeArrivalNotice, []byte("{")))
	require.Error(t, err)
	assert.True(t, errors.Is(err, asynq.SkipRetry))
}

func TestHandleArrivalTask_MissingIDIsDropped(t *testing.T) {
	sink := &recordingSink{}
	h := handleArrivalTask(sink, zap.NewNop())

	require.NoError(t, h(context.Background(), asynq.NewTask(tasks.TypeArrivalNotice, []byte(`{}`))))
	assert.Empty(t, sink.got)
}
