package checkin

import (
	"context"
	"strings"
	"time"

	"enaya/apperrors"
	"enaya/models"

	"go.uber.org/zap"
)

// Backend is the system of record that accepts the scheduled -> checked_in transition.
type Backend interface {
	CheckIn(ctx context.Context, appointmentID string) error
}

// LocalBackend stands in for the salon platform. The local snapshot is never
// written back, so accepting the request is all it does.
type LocalBackend struct{}

func (LocalBackend) CheckIn(context.Context, string) error { return nil }

// ArrivalNotifier tells the front desk about a first check-in.
type ArrivalNotifier interface {
	NotifyArrival(ctx context.Context, payload models.ArrivalPayload) error
}

// Request is one check-in attempt.
type Request struct {
	AppointmentID string
	CustomerID    string
}

// Gateway marks appointments checked in, idempotently.
type Gateway struct {
	backend  Backend
	ledger   Ledger
	notifier ArrivalNotifier
	logger   *zap.Logger
	now      func() time.Time
}

// NewGateway wires a gateway. A nil ledger falls back to a MemoryLedger;
// a nil notifier disables arrival notices.
func NewGateway(backend Backend, ledger Ledger, notifier ArrivalNotifier, logger *zap.Logger) *Gateway {
	if ledger == nil {
		ledger = NewMemoryLedger()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Gateway{backend: backend, ledger: ledger, notifier: notifier, logger: logger, now: time.Now}
}

// CheckIn requests the transition for req.AppointmentID. Repeating a call
// that already succeeded returns nil without contacting the backend again.
func (g *Gateway) CheckIn(ctx context.Context, req Request) error {
	id := strings.TrimSpace(req.AppointmentID)
	if id == "" {
		return apperrors.NewValidationError("appointmentId required")
	}
	log := g.logger.With(zap.String("appointmentId", id), zap.String("customerId", req.CustomerID))

	done, err := g.ledger.Has(ctx, id)
	if err != nil {
		log.Warn("check-in ledger unavailable", zap.Error(err))
	} else if done {
		log.Info("check-in repeated; already recorded")
		return nil
	}

	if err := g.backend.CheckIn(ctx, id); err != nil {
		log.Error("check-in rejected", zap.Error(err))
		if apperrors.IsCheckInFailure(err) || apperrors.IsValidation(err) {
			return err
		}
		return apperrors.NewCheckInFailure("", err)
	}

	at := g.now()
	first, err := g.ledger.Record(ctx, id, at)
	if err != nil {
		log.Warn("failed to record check-in", zap.Error(err))
		return nil
	}
	log.Info("guest checked in", zap.Bool("first", first))

	if first && g.notifier != nil {
		payload := models.ArrivalPayload{AppointmentID: id, CustomerID: req.CustomerID, CheckedInAt: at}
		if err := g.notifier.NotifyArrival(ctx, payload); err != nil {
			log.Warn("failed to queue arrival notice", zap.Error(err))
		}
	}
	return nil
}
