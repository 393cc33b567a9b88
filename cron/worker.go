package cron

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"enaya/config"
	"enaya/models"
	"enaya/services/tasks"

	"github.com/go-redis/redis/v8"
	"github.com/hibiken/asynq"
	"go.uber.org/zap"
)

// ArrivalSink receives arrivals for front-desk staff.
type ArrivalSink interface {
	Arrived(ctx context.Context, p models.ArrivalPayload) error
}

// LogSink writes arrivals to the log.
type LogSink struct {
	Logger *zap.Logger
}

func (s LogSink) Arrived(_ context.Context, p models.ArrivalPayload) error {
	s.Logger.Info("Guest arrived",
		zap.String("appointmentId", p.AppointmentID),
		zap.String("customerId", p.CustomerID),
		zap.Time("checkedInAt", p.CheckedInAt),
	)
	return nil
}

// RedisOpt returns the asynq connection for the arrivals queue.
func RedisOpt() asynq.RedisClientOpt {
	return asynq.RedisClientOpt{
		Addr:     config.AppConfig.RedisAddr,
		Password: config.AppConfig.RedisPassword,
		DB:       config.AppConfig.RedisQueueDB,
	}
}

// InitArrivalWorker runs the async worker in background until ctx is done.
func InitArrivalWorker(ctx context.Context, sink ArrivalSink, logger *zap.Logger) *asynq.Server {
	srv := asynq.NewServer(
		RedisOpt(),
		asynq.Config{
			Concurrency: 4,
			Queues: map[string]int{
				tasks.QueueArrivals: 1,
			},
			Logger: logger.Sugar(),
		},
	)

	mux := asynq.NewServeMux()
	mux.HandleFunc(tasks.TypeArrivalNotice, handleArrivalTask(sink, logger))

	go monitorRedisConnection(ctx, logger)

	go func() {
		logger.Info("[ArrivalWorker] starting async worker")
		const maxAttempts = 5

		for attempts := 1; attempts <= maxAttempts; attempts++ {
			err := srv.Start(mux)
			if err == nil {
				return
			}
			logger.Warn("[ArrivalWorker] failed to start worker",
				zap.Int("attempt", attempts), zap.Int("maxAttempts", maxAttempts), zap.Error(err))
			if attempts == maxAttempts {
				logger.Error("[ArrivalWorker] max retry attempts reached; arrivals will not be processed")
				return
			}
			select {
			case <-ctx.Done():
				return
			case <-time.After(time.Duration(attempts*2) * time.Second):
			}
		}
	}()
	return srv
}

func handleArrivalTask(sink ArrivalSink, logger *zap.Logger) asynq.HandlerFunc {
	return func(ctx context.Context, task *asynq.Task) error {
		var p models.ArrivalPayload
		if err := json.Unmarshal(task.Payload(), &p); err != nil {
			logger.Error("[ArrivalHandler] invalid payload", zap.Error(err))
			return fmt.Errorf("%v: %w", err, asynq.SkipRetry)
		}
		if p.AppointmentID == "" {
			logger.Warn("[ArrivalHandler] payload without appointment id")
			return nil
		}
		return sink.Arrived(ctx, p)
	}
}

// monitorRedisConnection pings Redis periodically to detect failures at runtime.
func monitorRedisConnection(ctx context.Context, logger *zap.Logger) {
	opt := RedisOpt()
	client := redis.NewClient(&redis.Options{
		Addr:     opt.Addr,
		Password: opt.Password,
		DB:       opt.DB,
	})
	defer client.Close()

	ticker := time.NewTicker(10 * time.Second)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := client.Ping(ctx).Err(); err != nil {
				logger.Warn("[ArrivalWorker] Redis connection lost", zap.Error(err))
			}
		}
	}
}
