package payment

import (
	"context"
	"errors"
	"math"
	"strings"
	"time"

	"enaya/models"

	"github.com/stripe/stripe-go/v76"
	"github.com/stripe/stripe-go/v76/client"
	"go.uber.org/zap"
)

// intentCreator is the slice of the Stripe API the provider needs.
type intentCreator interface {
	New(params *stripe.PaymentIntentParams) (*stripe.PaymentIntent, error)
}

// StripeProvider charges the appointment amount with a confirmed PaymentIntent.
type StripeProvider struct {
	intents       intentCreator
	currency      string
	paymentMethod string
	logger        *zap.Logger
}

// NewStripeProvider creates a provider using secret key. paymentMethod is the
// card on file used for kiosk charges (pm_card_visa in test mode).
func NewStripeProvider(key, currency, paymentMethod string, logger *zap.Logger) *StripeProvider {
	sc := &client.API{}
	sc.Init(key, nil)
	return newStripeProvider(sc.PaymentIntents, currency, paymentMethod, logger)
}

func newStripeProvider(intents intentCreator, currency, paymentMethod string, logger *zap.Logger) *StripeProvider {
	if logger == nil {
		logger = zap.NewNop()
	}
	if paymentMethod == "" {
		paymentMethod = "pm_card_visa"
	}
	return &StripeProvider{
		intents:       intents,
		currency:      strings.ToLower(currency),
		paymentMethod: paymentMethod,
		logger:        logger,
	}
}

// minorUnits converts an amount to the smallest currency unit.
func minorUnits(amount float64) int64 {
	return int64(math.Round(amount * 100))
}

func (p *StripeProvider) AttemptPayment(ctx context.Context, req models.PaymentRequest) (models.PaymentResult, error) {
	if req.Amount <= 0 {
		return models.PaymentResult{OK: false, Status: models.PaymentFailed, Reason: "invalid payment amount"}, nil
	}
	currency := p.currency
	if req.Currency != "" {
		currency = strings.ToLower(req.Currency)
	}

	params := &stripe.PaymentIntentParams{
		Amount:             stripe.Int64(minorUnits(req.Amount)),
		Currency:           stripe.String(currency),
		PaymentMethod:      stripe.String(p.paymentMethod),
		PaymentMethodTypes: stripe.StringSlice([]string{"card"}),
		Confirm:            stripe.Bool(true),
	}
	params.Context = ctx
	if req.AppointmentID != "" {
		params.AddMetadata("appointment_id", req.AppointmentID)
		params.SetIdempotencyKey("kiosk-pay-" + req.AppointmentID)
	}

	pi, err := p.intents.New(params)
	if err != nil {
		var serr *stripe.Error
		if errors.As(err, &serr) && serr.Type == stripe.ErrorTypeCard {
			p.logger.Warn("Card declined", zap.String("appointmentId", req.AppointmentID), zap.String("code", string(serr.Code)))
			return models.PaymentResult{OK: false, Status: models.PaymentFailed, Reason: serr.Msg}, nil
		}
		p.logger.Error("Stripe payment failed", zap.String("appointmentId", req.AppointmentID), zap.Error(err))
		return models.PaymentResult{}, err
	}

	if pi.Status != stripe.PaymentIntentStatusSucceeded {
		p.logger.Warn("Payment not completed", zap.String("paymentId", pi.ID), zap.String("status", string(pi.Status)))
		return models.PaymentResult{OK: false, PaymentID: pi.ID, Status: string(pi.Status), Reason: "payment not completed"}, nil
	}

	p.logger.Info("Card payment successful", zap.String("paymentId", pi.ID), zap.String("appointmentId", req.AppointmentID))
	return models.PaymentResult{OK: true, PaymentID: pi.ID, Status: models.PaymentSucceeded, PaidAt: time.Now()}, nil
}
