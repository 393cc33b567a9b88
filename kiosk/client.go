// Package kiosk is the guest-facing side of self check-in: an API client for
// the check-in server and the workflow that drives the screen.
package kiosk

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"enaya/apperrors"
	"enaya/models"
	"enaya/utils"

	"go.uber.org/zap"
)

// APIClient calls the check-in server's /api endpoints.
type APIClient struct {
	base   string
	token  string
	http   *http.Client
	logger *zap.Logger
}

// NewAPIClient creates a client for the server at base. token, when set, is
// sent as the kiosk bearer token.
func NewAPIClient(base, token string, logger *zap.Logger) *APIClient {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &APIClient{
		base:   strings.TrimRight(base, "/"),
		token:  token,
		http:   &http.Client{Timeout: 15 * time.Second},
		logger: logger,
	}
}

func (c *APIClient) newRequest(ctx context.Context, method, path string, body any) (*http.Request, error) {
	var r io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return nil, err
		}
		r = bytes.NewReader(b)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.base+path, r)
	if err != nil {
		return nil, err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	return req, nil
}

// failureReason extracts the server's message from an error body, or the raw text.
func failureReason(resp *http.Response) string {
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
	var er utils.ErrorResponse
	if err := json.Unmarshal(raw, &er); err == nil && er.Message != "" {
		return er.Message
	}
	return strings.TrimSpace(string(raw))
}

func (c *APIClient) getJSON(ctx context.Context, path string, out any) error {
	req, err := c.newRequest(ctx, http.MethodGet, path, nil)
	if err != nil {
		return err
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode/100 != 2 {
		return fmt.Errorf("status %d: %s", resp.StatusCode, failureReason(resp))
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

// Search calls GET /api/guests.
func (c *APIClient) Search(ctx context.Context, query string) ([]models.Guest, error) {
	var body struct {
		Guests []models.Guest `json:"guests"`
	}
	if err := c.getJSON(ctx, "/api/guests?query="+url.QueryEscape(query), &body); err != nil {
		return nil, apperrors.NewRetrievalError("guest search failed", err)
	}
	return body.Guests, nil
}

// ListUpcoming calls GET /api/appointments.
func (c *APIClient) ListUpcoming(ctx context.Context, guestID string) ([]models.Appointment, error) {
	if strings.TrimSpace(guestID) == "" {
		return nil, apperrors.NewValidationError("guestId required")
	}
	var body struct {
		Appointments []models.Appointment `json:"appointments"`
	}
	if err := c.getJSON(ctx, "/api/appointments?guestId="+url.QueryEscape(guestID), &body); err != nil {
		return nil, apperrors.NewRetrievalError("appointment lookup failed", err)
	}
	return body.Appointments, nil
}

// CheckIn calls POST /api/checkin. An empty appointment id fails before any
// request is sent.
func (c *APIClient) CheckIn(ctx context.Context, appointmentID, customerID string) error {
	if strings.TrimSpace(appointmentID) == "" {
		return apperrors.NewValidationError("appointmentId required")
	}
	req, err := c.newRequest(ctx, http.MethodPost, "/api/checkin", map[string]string{
		"appointmentId": appointmentID,
		"customerId":    customerID,
	})
	if err != nil {
		return err
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return apperrors.NewCheckInFailure("", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode/100 != 2 {
		return apperrors.NewCheckInFailure(failureReason(resp), fmt.Errorf("status %d", resp.StatusCode))
	}

	var body struct {
		OK bool `json:"ok"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil || !body.OK {
		return apperrors.NewCheckInFailure("", fmt.Errorf("check-in not acknowledged"))
	}
	return nil
}

// AttemptPayment calls POST /api/pay.
func (c *APIClient) AttemptPayment(ctx context.Context, pr models.PaymentRequest) (models.PaymentResult, error) {
	req, err := c.newRequest(ctx, http.MethodPost, "/api/pay", pr)
	if err != nil {
		return models.PaymentResult{}, err
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return models.PaymentResult{}, err
	}
	defer resp.Body.Close()
	if resp.StatusCode/100 != 2 {
		return models.PaymentResult{}, fmt.Errorf("payment status %d: %s", resp.StatusCode, failureReason(resp))
	}
	var res models.PaymentResult
	if err := json.NewDecoder(resp.Body).Decode(&res); err != nil {
		return models.PaymentResult{}, fmt.Errorf("decoding payment result failed: %w", err)
	}
	return res, nil
}
