package zenoti

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

	"go.uber.org/zap"
)

// defaultTokenLifetime applies when the platform omits expires_in.
const defaultTokenLifetime = 3600 * time.Second

// Config identifies the organisation and center the kiosk serves.
type Config struct {
	BaseURL      string
	OrgID        string
	CenterID     string
	APIKey       string
	ClientID     string
	ClientSecret string
	// Window is how far ahead appointments count as upcoming.
	Window time.Duration
}

// Client talks to the salon platform's REST API.
type Client struct {
	cfg    Config
	http   *http.Client
	tokens *TokenProvider
	logger *zap.Logger
	now    func() time.Time
}

// NewClient creates a client. cache may be nil to keep the token in process.
func NewClient(cfg Config, cache TokenCache, logger *zap.Logger) *Client {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.Window <= 0 {
		cfg.Window = 24 * time.Hour
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	c := &Client{
		cfg:    cfg,
		http:   &http.Client{Timeout: 10 * time.Second},
		logger: logger,
		now:    time.Now,
	}
	c.tokens = NewTokenProvider(c.fetchToken, cache, logger)
	return c
}

// Tokens exposes the lease holder, mostly for tests and health checks.
func (c *Client) Tokens() *TokenProvider {
	return c.tokens
}

type tokenRequest struct {
	ClientID     string `json:"client_id"`
	ClientSecret string `json:"client_secret"`
	GrantType    string `json:"grant_type"`
	Scope        string `json:"scope"`
}

type tokenResponse struct {
	AccessToken string `json:"access_token"`
	ExpiresIn   int64  `json:"expires_in"`
}

func (c *Client) fetchToken(ctx context.Context) (Token, error) {
	body, err := json.Marshal(tokenRequest{
		ClientID:     c.cfg.ClientID,
		ClientSecret: c.cfg.ClientSecret,
		GrantType:    "client_credentials",
		Scope:        "org:" + c.cfg.OrgID,
	})
	if err != nil {
		return Token{}, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.BaseURL+"/auth/token", bytes.NewReader(body))
	if err != nil {
		return Token{}, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("zenoti-api-key", c.cfg.APIKey)

	resp, err := c.http.Do(req)
	if err != nil {
		return Token{}, fmt.Errorf("token request failed: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode/100 != 2 {
		return Token{}, fmt.Errorf("unable to get access token: status %d", resp.StatusCode)
	}

	var tr tokenResponse
	if err := json.NewDecoder(resp.Body).Decode(&tr); err != nil {
		return Token{}, fmt.Errorf("decoding token response failed: %w", err)
	}
	if tr.AccessToken == "" {
		return Token{}, fmt.Errorf("token response carried no access_token")
	}
	lifetime := defaultTokenLifetime
	if tr.ExpiresIn > 0 {
		lifetime = time.Duration(tr.ExpiresIn) * time.Second
	}
	return Token{AccessToken: tr.AccessToken, ExpiresAt: c.now().Add(lifetime)}, nil
}

// do sends an authorised request. A 401 drops the lease and retries once with a fresh token.
func (c *Client) do(ctx context.Context, method, endpoint string, payload any) (*http.Response, error) {
	var body []byte
	if payload != nil {
		b, err := json.Marshal(payload)
		if err != nil {
			return nil, err
		}
		body = b
	}

	for attempt := 0; attempt < 2; attempt++ {
		tok, err := c.tokens.Token(ctx)
		if err != nil {
			return nil, err
		}
		req, err := http.NewRequestWithContext(ctx, method, endpoint, bytes.NewReader(body))
		if err != nil {
			return nil, err
		}
		req.Header.Set("Authorization", "Bearer "+tok)
		req.Header.Set("zenoti-api-key", c.cfg.APIKey)
		req.Header.Set("Content-Type", "application/json")

		resp, err := c.http.Do(req)
		if err != nil {
			return nil, err
		}
		if resp.StatusCode == http.StatusUnauthorized && attempt == 0 {
			resp.Body.Close()
			c.logger.Warn("access token rejected; refreshing")
			c.tokens.Reset(ctx)
			continue
		}
		return resp, nil
	}
	return nil, fmt.Errorf("unauthorised after token refresh")
}

// readReason returns the trimmed response body, if any, for use as a failure reason.
func readReason(r io.Reader) string {
	b, _ := io.ReadAll(io.LimitReader(r, 4096))
	return strings.TrimSpace(string(b))
}

func (c *Client) getJSON(ctx context.Context, endpoint string, out any) error {
	resp, err := c.do(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode/100 != 2 {
		return fmt.Errorf("GET %s: status %d: %s", endpoint, resp.StatusCode, readReason(resp.Body))
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

// SearchGuests runs the platform's guest search for q (name, phone or email).
func (c *Client) SearchGuests(ctx context.Context, q string) ([]models.Guest, error) {
	params := url.Values{}
	params.Set("org_id", c.cfg.OrgID)
	params.Set("center_id", c.cfg.CenterID)
	params.Set("q", q)

	var res guestSearchResponse
	if err := c.getJSON(ctx, c.cfg.BaseURL+"/guests/search?"+params.Encode(), &res); err != nil {
		return nil, fmt.Errorf("guest search failed: %w", err)
	}
	guests := make([]models.Guest, 0, len(res.Guests))
	for _, g := range res.Guests {
		guests = append(guests, g.toModel())
	}
	return guests, nil
}

// FindCandidates lets the client stand in for the guest repository.
// Phone queries are sent as bare digits.
func (c *Client) FindCandidates(ctx context.Context, q models.GuestQuery) ([]models.Guest, error) {
	term := q.Raw
	if q.ByPhone {
		term = q.Digits
	}
	return c.SearchGuests(ctx, term)
}

// GetByID fetches one guest. Unknown ids yield nil, nil.
func (c *Client) GetByID(ctx context.Context, id string) (*models.Guest, error) {
	params := url.Values{}
	params.Set("org_id", c.cfg.OrgID)
	endpoint := c.cfg.BaseURL + "/guests/" + url.PathEscape(id) + "?" + params.Encode()

	resp, err := c.do(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode == http.StatusNotFound {
		return nil, nil
	}
	if resp.StatusCode/100 != 2 {
		return nil, fmt.Errorf("guest fetch failed: status %d: %s", resp.StatusCode, readReason(resp.Body))
	}
	var g wireGuest
	if err := json.NewDecoder(resp.Body).Decode(&g); err != nil {
		return nil, fmt.Errorf("decoding guest failed: %w", err)
	}
	m := g.toModel()
	return &m, nil
}

// Upcoming lists the guest's center appointments from now until now+Window.
func (c *Client) Upcoming(ctx context.Context, guestID string) ([]models.Appointment, error) {
	from := c.now().UTC()
	to := from.Add(c.cfg.Window)

	params := url.Values{}
	params.Set("org_id", c.cfg.OrgID)
	params.Set("center_id", c.cfg.CenterID)
	params.Set("guest_id", guestID)
	params.Set("from_date", from.Format(time.RFC3339))
	params.Set("to_date", to.Format(time.RFC3339))

	var res appointmentsResponse
	if err := c.getJSON(ctx, c.cfg.BaseURL+"/appointments/center?"+params.Encode(), &res); err != nil {
		return nil, fmt.Errorf("appointments fetch failed: %w", err)
	}
	appts := make([]models.Appointment, 0, len(res.Appointments))
	for _, a := range res.Appointments {
		appts = append(appts, a.toModel())
	}
	return appts, nil
}

type checkInBody struct {
	OrgID    string `json:"org_id"`
	CenterID string `json:"center_id"`
}

// CheckIn marks the appointment checked in. A non-2xx response becomes a
// check-in failure carrying the body text as its reason.
func (c *Client) CheckIn(ctx context.Context, appointmentID string) error {
	if strings.TrimSpace(appointmentID) == "" {
		return apperrors.NewValidationError("appointmentId required")
	}
	endpoint := c.cfg.BaseURL + "/appointments/" + url.PathEscape(appointmentID) + "/checkin"
	resp, err := c.do(ctx, http.MethodPost, endpoint, checkInBody{OrgID: c.cfg.OrgID, CenterID: c.cfg.CenterID})
	if err != nil {
		return apperrors.NewCheckInFailure("", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode/100 != 2 {
		reason := readReason(resp.Body)
		if alreadyCheckedIn(reason) {
			c.logger.Info("appointment already checked in on platform", zap.String("appointmentId", appointmentID))
			return nil
		}
		return apperrors.NewCheckInFailure(reason, fmt.Errorf("check-in status %d", resp.StatusCode))
	}
	return nil
}

// alreadyCheckedIn recognises the platform's refusal to repeat a check-in,
// which the gateway treats as success.
func alreadyCheckedIn(reason string) bool {
	r := strings.ToLower(reason)
	return strings.Contains(r, "already checked in") || strings.Contains(r, "already checked-in")
}

// Name and Ping let the health monitor watch the platform.
func (c *Client) Name() string { return "zenoti" }

func (c *Client) Ping(ctx context.Context) error {
	_, err := c.tokens.Token(ctx)
	return err
}
