package payment

import (
	"context"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"enaya/models"

	"go.uber.org/zap"
)

// Provider is the pluggable payment capability used before check-in.
type Provider interface {
	AttemptPayment(ctx context.Context, req models.PaymentRequest) (models.PaymentResult, error)
}

// sleep waits d or until ctx is done.
func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// MockProvider simulates a confirmation after a fixed latency and always succeeds.
type MockProvider struct {
	Latency time.Duration
	Logger  *zap.Logger
	Now     func() time.Time
}

func NewMockProvider(latency time.Duration, logger *zap.Logger) *MockProvider {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &MockProvider{Latency: latency, Logger: logger, Now: time.Now}
}

// syntheticID is a fixed prefix plus the current unix time in milliseconds.
func syntheticID(now time.Time) string {
	return fmt.Sprintf("pay_%d", now.UnixMilli())
}

func (p *MockProvider) AttemptPayment(ctx context.Context, req models.PaymentRequest) (models.PaymentResult, error) {
	if err := sleep(ctx, p.Latency); err != nil {
		return models.PaymentResult{}, err
	}
	now := p.Now()
	res := models.PaymentResult{OK: true, PaymentID: syntheticID(now), Status: models.PaymentSucceeded, PaidAt: now}
	p.Logger.Info("Mock payment succeeded",
		zap.String("paymentId", res.PaymentID),
		zap.String("appointmentId", req.AppointmentID),
		zap.Float64("amount", req.Amount),
	)
	return res, nil
}

// RandomProvider fails a fixed share of attempts after the same latency.
type RandomProvider struct {
	Latency     time.Duration
	FailureRate float64
	Logger      *zap.Logger
	Now         func() time.Time

	mu  sync.Mutex
	rnd *rand.Rand
}

func NewRandomProvider(latency time.Duration, failureRate float64, seed int64, logger *zap.Logger) *RandomProvider {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RandomProvider{
		Latency:     latency,
		FailureRate: failureRate,
		Logger:      logger,
		Now:         time.Now,
		rnd:         rand.New(rand.NewSource(seed)),
	}
}

func (p *RandomProvider) roll() float64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.rnd.Float64()
}

func (p *RandomProvider) AttemptPayment(ctx context.Context, req models.PaymentRequest) (models.PaymentResult, error) {
	if err := sleep(ctx, p.Latency); err != nil {
		return models.PaymentResult{}, err
	}
	if p.roll() < p.FailureRate {
		p.Logger.Warn("Simulated payment declined", zap.String("appointmentId", req.AppointmentID))
		return models.PaymentResult{OK: false, Status: models.PaymentFailed, Reason: "payment declined"}, nil
	}
	now := p.Now()
	return models.PaymentResult{OK: true, PaymentID: syntheticID(now), Status: models.PaymentSucceeded, PaidAt: now}, nil
}

// Fixed always returns the same outcome. Useful for forcing either branch.
type Fixed struct {
	Result models.PaymentResult
	Err    error
}

func (f Fixed) AttemptPayment(context.Context, models.PaymentRequest) (models.PaymentResult, error) {
	return f.Result, f.Err
}
