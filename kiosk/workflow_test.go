package kiosk

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"enaya/apperrors"
	"enaya/models"
	"enaya/services/directory"
	"enaya/services/payment"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testDebounce = 10 * time.Millisecond

type fakeDirectory struct {
	mu      sync.Mutex
	calls   []string
	results map[string][]models.Guest
	gates   map[string]chan struct{}
	started chan string
	err     error
}

func newFakeDirectory(results map[string][]models.Guest) *fakeDirectory {
	return &fakeDirectory{
		results: results,
		gates:   make(map[string]chan struct{}),
		started: make(chan string, 16),
	}
}

// hold makes searches for q block until the returned func is called.
func (f *fakeDirectory) hold(q string) func() {
	ch := make(chan struct{})
	f.mu.Lock()
	f.gates[q] = ch
	f.mu.Unlock()
	return func() { close(ch) }
}

func (f *fakeDirectory) Search(_ context.Context, q string) ([]models.Guest, error) {
	f.mu.Lock()
	f.calls = append(f.calls, q)
	gate := f.gates[q]
	res, err := f.results[q], f.err
	f.mu.Unlock()

	f.started <- q
	if gate != nil {
		<-gate
	}
	return res, err
}

func (f *fakeDirectory) Calls() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.calls...)
}

type fakeAppointments struct {
	mu    sync.Mutex
	byID  map[string][]models.Appointment
	err   error
	gate  chan struct{}
	calls int
}

func (f *fakeAppointments) ListUpcoming(_ context.Context, guestID string) ([]models.Appointment, error) {
	f.mu.Lock()
	f.calls++
	gate := f.gate
	res, err := f.byID[guestID], f.err
	f.mu.Unlock()
	if gate != nil {
		<-gate
	}
	return res, err
}

type fakeGateway struct {
	mu      sync.Mutex
	calls   []string
	err     error
	gate    chan struct{}
	entered chan struct{}
	done    map[string]bool
}

func (f *fakeGateway) CheckIn(_ context.Context, appointmentID, _ string) error {
	f.mu.Lock()
	f.calls = append(f.calls, appointmentID)
	gate, entered, err := f.gate, f.entered, f.err
	f.mu.Unlock()
	if entered != nil {
		entered <- struct{}{}
	}
	if gate != nil {
		<-gate
	}
	if err == nil {
		f.mu.Lock()
		if f.done == nil {
			f.done = make(map[string]bool)
		}
		f.done[appointmentID] = true
		f.mu.Unlock()
	}
	return err
}

func (f *fakeGateway) Calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

type recorder struct {
	mu      sync.Mutex
	views   []View
	notices []Notice
}

func (r *recorder) onChange(v View) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.views = append(r.views, v)
}

func (r *recorder) onNotice(n Notice) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.notices = append(r.notices, n)
}

func (r *recorder) Notices() []Notice {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Notice(nil), r.notices...)
}

func (r *recorder) States() []State {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]State, 0, len(r.views))
	for _, v := range r.views {
		out = append(out, v.State)
	}
	return out
}

func (r *recorder) Last() View {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.views[len(r.views)-1]
}

var (
	aisha = models.Guest{
		ID: "c1", Name: "Aisha Al Mansour", Phone: "055 123 4321",
		Upcoming: []models.Appointment{{ID: "a1", Time: "15:00", Staff: "Roya", Status: models.StatusScheduled}},
	}
	laila = models.Guest{ID: "c2", Name: "Laila Al Saud", Phone: "0531234789"}
)

type harness struct {
	wf    *Workflow
	dir   *fakeDirectory
	appts *fakeAppointments
	gw    *fakeGateway
	rec   *recorder
}

func newHarness(t *testing.T, opts Options) *harness {
	h := &harness{
		dir: newFakeDirectory(map[string][]models.Guest{
			"0551234321": {aisha},
			"0531234789": {laila},
			"al":         {aisha, laila},
		}),
		appts: &fakeAppointments{byID: map[string][]models.Appointment{
			"c1": {
				{ID: "a1", Time: "15:00", Staff: "Roya", Status: models.StatusScheduled},
				{ID: "a1", Time: "15:00", Staff: "Roya", Status: models.StatusScheduled},
				{ID: "a3", Time: "16:00", Staff: "Roya", Status: models.StatusScheduled},
			},
		}},
		gw:  &fakeGateway{},
		rec: &recorder{},
	}
	opts.Debounce = testDebounce
	opts.OnChange = h.rec.onChange
	opts.OnNotice = h.rec.onNotice
	h.wf = NewWorkflow(h.dir, h.appts, h.gw, opts)
	t.Cleanup(h.wf.Close)
	return h
}

func (h *harness) waitState(t *testing.T, s State) {
	t.Helper()
	require.Eventually(t, func() bool { return h.wf.View().State == s }, time.Second, time.Millisecond)
}

func (h *harness) searchAndSelect(t *testing.T, query, guestID string) {
	t.Helper()
	h.wf.SetQuery(query)
	h.waitState(t, StateResultsShown)
	h.wf.Select(context.Background(), guestID)
}

func TestWorkflow_DebounceSendsOnlyLatestQuery(t *testing.T) {
	h := newHarness(t, Options{})

	for _, q := range []string{"0", "05", "055", "0551234", "0551234321"} {
		h.wf.SetQuery(q)
	}
	h.waitState(t, StateResultsShown)

	assert.Equal(t, []string{"0551234321"}, h.dir.Calls())
	assert.Equal(t, []string{"c1"}, resultIDs(h.wf.View()))
}

func TestWorkflow_StaleResponseNeverOverwritesNewerResults(t *testing.T) {
	h := newHarness(t, Options{})
	release := h.dir.hold("0551234321")

	h.wf.SetQuery("0551234321")
	require.Equal(t, "0551234321", <-h.dir.started)

	h.wf.SetQuery("0531234789")
	require.Equal(t, "0531234789", <-h.dir.started)
	h.waitState(t, StateResultsShown)
	assert.Equal(t, []string{"c2"}, resultIDs(h.wf.View()))

	// A's response arrives after B's.
	release()
	time.Sleep(5 * testDebounce)

	v := h.wf.View()
	assert.Equal(t, StateResultsShown, v.State)
	assert.Equal(t, []string{"c2"}, resultIDs(v))
	assert.Equal(t, []string{"c2"}, resultIDs(h.rec.Last()))
}

func TestWorkflow_StrictPolicySkipsPartialNumbers(t *testing.T) {
	h := newHarness(t, Options{})

	h.wf.SetQuery("0551")
	h.waitState(t, StateResultsShown)

	v := h.wf.View()
	assert.Empty(t, v.Results)
	assert.True(t, v.OfferWalkIn)
	assert.Empty(t, h.dir.Calls())
}

func TestWorkflow_PartialPolicySendsPartialNumbers(t *testing.T) {
	h := newHarness(t, Options{Policy: directory.PartialPhonePolicy{}})

	h.wf.SetQuery("0551")
	h.waitState(t, StateResultsShown)
	assert.Equal(t, []string{"0551"}, h.dir.Calls())
}

func TestWorkflow_UnknownNumberYieldsNoSelection(t *testing.T) {
	h := newHarness(t, Options{})

	h.wf.SetQuery("0512345678")
	h.waitState(t, StateResultsShown)
	assert.Empty(t, h.wf.View().Results)

	h.wf.Select(context.Background(), "c1")
	assert.Nil(t, h.wf.View().Selected)
	require.NotEmpty(t, h.rec.Notices())
	assert.Equal(t, apperrors.KindValidation, h.rec.Notices()[0].Kind)
}

func TestWorkflow_EmptyQueryReturnsToIdle(t *testing.T) {
	h := newHarness(t, Options{})

	h.wf.SetQuery("al")
	h.wf.SetQuery("   ")
	time.Sleep(5 * testDebounce)

	v := h.wf.View()
	assert.Equal(t, StateIdle, v.State)
	assert.Empty(t, v.Results)
	assert.False(t, v.OfferWalkIn)
	assert.Empty(t, h.dir.Calls())
}

func TestWorkflow_SearchFailureShowsNoticeAndEmptyList(t *testing.T) {
	h := newHarness(t, Options{})
	h.dir.err = apperrors.NewRetrievalError("guest search failed", errors.New("down"))

	h.wf.SetQuery("al")
	require.Eventually(t, func() bool { return len(h.rec.Notices()) == 1 }, time.Second, time.Millisecond)

	v := h.wf.View()
	assert.Equal(t, StateResultsShown, v.State)
	assert.Empty(t, v.Results)
	assert.Contains(t, h.rec.States(), StateError)
	assert.Equal(t, apperrors.KindRetrieval, h.rec.Notices()[0].Kind)
	assert.Equal(t, msgSearchFailed, h.rec.Notices()[0].Message)
}

func TestWorkflow_SelectReplacesAndDedupesAppointments(t *testing.T) {
	h := newHarness(t, Options{})

	h.searchAndSelect(t, "0551234321", "c1")

	v := h.wf.View()
	require.NotNil(t, v.Selected)
	assert.Equal(t, StateGuestSelected, v.State)
	assert.Equal(t, []string{"a1", "a3"}, apptIDs(v.Selected.Upcoming))
	assert.True(t, v.CanCheckIn)
	assert.Equal(t, "••• ••• •321", v.MaskedPhone())
}

func TestWorkflow_LookupFailureKeepsSelectedGuest(t *testing.T) {
	h := newHarness(t, Options{})
	h.appts.err = apperrors.NewRetrievalError("appointment lookup failed", errors.New("down"))

	h.searchAndSelect(t, "0551234321", "c1")

	v := h.wf.View()
	require.NotNil(t, v.Selected)
	assert.Equal(t, "c1", v.Selected.ID)
	assert.Equal(t, []string{"a1"}, apptIDs(v.Selected.Upcoming))
	require.Len(t, h.rec.Notices(), 1)
	assert.Equal(t, msgLookupFailed, h.rec.Notices()[0].Message)
}

func TestWorkflow_NewSearchDiscardsPendingLookup(t *testing.T) {
	h := newHarness(t, Options{})
	h.appts.gate = make(chan struct{})

	h.wf.SetQuery("0551234321")
	h.waitState(t, StateResultsShown)

	done := make(chan struct{})
	go func() {
		h.wf.Select(context.Background(), "c1")
		close(done)
	}()
	h.waitState(t, StateGuestSelected)

	h.wf.SetQuery("0531234789")
	close(h.appts.gate)
	<-done
	h.waitState(t, StateResultsShown)

	assert.Nil(t, h.wf.View().Selected)
}

func TestWorkflow_SelectFromSupersededResultsIsIgnored(t *testing.T) {
	h := newHarness(t, Options{})

	h.wf.SetQuery("al")
	h.waitState(t, StateResultsShown)
	require.Equal(t, "al", <-h.dir.started)

	release := h.dir.hold("0531234789")
	h.wf.SetQuery("0531234789")
	require.Equal(t, "0531234789", <-h.dir.started)

	// Aisha is still in the old list, but that list no longer answers the query.
	h.wf.Select(context.Background(), "c1")
	assert.Nil(t, h.wf.View().Selected)
	assert.Equal(t, StateSearching, h.wf.View().State)

	release()
	h.waitState(t, StateResultsShown)
	v := h.wf.View()
	assert.Equal(t, []string{"c2"}, resultIDs(v))
	assert.Nil(t, v.Selected)
	assert.False(t, v.CanCheckIn)

	assert.Equal(t, OutcomeInvalid, h.wf.CheckIn(context.Background()))
	assert.Zero(t, h.gw.Calls())
	h.appts.mu.Lock()
	assert.Zero(t, h.appts.calls)
	h.appts.mu.Unlock()
}

func TestWorkflow_LookupLandingAfterCheckInStartsIsKept(t *testing.T) {
	h := newHarness(t, Options{})
	h.appts.gate = make(chan struct{})

	h.wf.SetQuery("0551234321")
	h.waitState(t, StateResultsShown)

	done := make(chan struct{})
	go func() {
		h.wf.Select(context.Background(), "c1")
		close(done)
	}()
	h.waitState(t, StateGuestSelected)

	h.gw.err = apperrors.NewCheckInFailure("Try again", nil)
	assert.Equal(t, OutcomeFailed, h.wf.CheckIn(context.Background()))

	close(h.appts.gate)
	<-done

	v := h.wf.View()
	assert.Equal(t, StateGuestSelected, v.State)
	require.NotNil(t, v.Selected)
	assert.Equal(t, []string{"a1", "a3"}, apptIDs(v.Selected.Upcoming))
	assert.True(t, v.CanCheckIn)
}

// gatedPayments approves every charge once the test lets it through.
type gatedPayments struct {
	entered chan struct{}
	gate    chan struct{}
}

func (p *gatedPayments) AttemptPayment(context.Context, models.PaymentRequest) (models.PaymentResult, error) {
	p.entered <- struct{}{}
	<-p.gate
	return models.PaymentResult{OK: true, PaymentID: "pay_1", Status: models.PaymentSucceeded}, nil
}

func TestWorkflow_PaidCheckInCompletesAfterNewSearch(t *testing.T) {
	pay := &gatedPayments{entered: make(chan struct{}, 1), gate: make(chan struct{})}
	h := newHarness(t, Options{Payments: pay})
	h.searchAndSelect(t, "0551234321", "c1")

	out := make(chan Outcome, 1)
	go func() { out <- h.wf.CheckIn(context.Background()) }()
	<-pay.entered

	h.wf.SetQuery("0531234789")
	close(pay.gate)

	assert.Equal(t, OutcomeCheckedIn, <-out)
	assert.Equal(t, 1, h.gw.Calls())
	notices := h.rec.Notices()
	require.NotEmpty(t, notices)
	assert.Equal(t, msgCheckedIn, notices[len(notices)-1].Message)

	h.waitState(t, StateResultsShown)
	v := h.wf.View()
	assert.Nil(t, v.Selected)
	assert.Equal(t, []string{"c2"}, resultIDs(v))
}

func TestWorkflow_CheckInMarksAllUpcomingAndDisablesAction(t *testing.T) {
	h := newHarness(t, Options{})
	h.searchAndSelect(t, "0551234321", "c1")

	assert.Equal(t, OutcomeCheckedIn, h.wf.CheckIn(context.Background()))

	v := h.wf.View()
	assert.Equal(t, StateCheckedIn, v.State)
	for _, a := range v.Selected.Upcoming {
		assert.Equal(t, models.StatusCheckedIn, a.Status, a.ID)
	}
	assert.True(t, v.AlreadyCheckedIn)
	assert.False(t, v.CanCheckIn)
	assert.Contains(t, h.rec.States(), StateCheckingIn)

	// A repeat attempt never reaches the gateway.
	assert.Equal(t, OutcomeIgnored, h.wf.CheckIn(context.Background()))
	assert.Equal(t, 1, h.gw.Calls())
	assert.Equal(t, []string{"a1"}, h.gw.calls)
}

func TestWorkflow_ConcurrentCheckInIsRejected(t *testing.T) {
	h := newHarness(t, Options{})
	h.searchAndSelect(t, "0551234321", "c1")
	h.gw.gate = make(chan struct{})
	h.gw.entered = make(chan struct{}, 1)

	first := make(chan Outcome, 1)
	go func() { first <- h.wf.CheckIn(context.Background()) }()
	<-h.gw.entered

	assert.False(t, h.wf.View().CanCheckIn)
	assert.Equal(t, OutcomeIgnored, h.wf.CheckIn(context.Background()))

	close(h.gw.gate)
	assert.Equal(t, OutcomeCheckedIn, <-first)
	assert.Equal(t, 1, h.gw.Calls())
}

func TestWorkflow_CheckInWithoutAppointmentIDFailsLocally(t *testing.T) {
	h := newHarness(t, Options{})
	h.appts.byID["c2"] = []models.Appointment{{Time: "10:00", Staff: "Sahar", Status: models.StatusScheduled}}
	h.searchAndSelect(t, "0531234789", "c2")

	assert.False(t, h.wf.View().CanCheckIn)
	assert.Equal(t, OutcomeInvalid, h.wf.CheckIn(context.Background()))
	assert.Zero(t, h.gw.Calls())

	notices := h.rec.Notices()
	require.NotEmpty(t, notices)
	assert.Equal(t, apperrors.KindValidation, notices[len(notices)-1].Kind)
}

func TestWorkflow_CheckInWithoutSelectionIsInvalid(t *testing.T) {
	h := newHarness(t, Options{})
	assert.Equal(t, OutcomeInvalid, h.wf.CheckIn(context.Background()))
	assert.Zero(t, h.gw.Calls())
}

func TestWorkflow_CheckInFailureKeepsStatus(t *testing.T) {
	t.Run("gateway reason is shown", func(t *testing.T) {
		h := newHarness(t, Options{})
		h.searchAndSelect(t, "0551234321", "c1")
		h.gw.err = apperrors.NewCheckInFailure("Appointment already closed", nil)

		assert.Equal(t, OutcomeFailed, h.wf.CheckIn(context.Background()))

		v := h.wf.View()
		assert.Equal(t, StateGuestSelected, v.State)
		for _, a := range v.Selected.Upcoming {
			assert.Equal(t, models.StatusScheduled, a.Status)
		}
		assert.True(t, v.CanCheckIn)
		assert.Contains(t, h.rec.States(), StateError)
		notices := h.rec.Notices()
		assert.Equal(t, "Appointment already closed", notices[len(notices)-1].Message)
	})

	t.Run("generic fallback without reason", func(t *testing.T) {
		h := newHarness(t, Options{})
		h.searchAndSelect(t, "0551234321", "c1")
		h.gw.err = apperrors.NewCheckInFailure("", errors.New("status 502"))

		assert.Equal(t, OutcomeFailed, h.wf.CheckIn(context.Background()))
		notices := h.rec.Notices()
		assert.Equal(t, msgCheckInFailed, notices[len(notices)-1].Message)

		// The guest may retry.
		h.gw.err = nil
		assert.Equal(t, OutcomeCheckedIn, h.wf.CheckIn(context.Background()))
	})
}

func TestWorkflow_PaymentStep(t *testing.T) {
	t.Run("declined payment short-circuits check-in", func(t *testing.T) {
		declined := payment.Fixed{Result: models.PaymentResult{OK: false, Status: models.PaymentFailed}}
		h := newHarness(t, Options{Payments: declined})
		h.searchAndSelect(t, "0551234321", "c1")

		assert.Equal(t, OutcomePaymentFailed, h.wf.CheckIn(context.Background()))
		assert.Zero(t, h.gw.Calls())

		v := h.wf.View()
		assert.Equal(t, StateGuestSelected, v.State)
		assert.False(t, v.AlreadyCheckedIn)
		assert.Contains(t, h.rec.States(), StatePaymentPending)
		notices := h.rec.Notices()
		assert.Equal(t, msgPaymentFailed, notices[len(notices)-1].Message)
	})

	t.Run("provider error short-circuits check-in", func(t *testing.T) {
		h := newHarness(t, Options{Payments: payment.Fixed{Err: errors.New("timeout")}})
		h.searchAndSelect(t, "0551234321", "c1")

		assert.Equal(t, OutcomePaymentFailed, h.wf.CheckIn(context.Background()))
		assert.Zero(t, h.gw.Calls())
	})

	t.Run("successful payment proceeds", func(t *testing.T) {
		h := newHarness(t, Options{Payments: payment.NewMockProvider(time.Millisecond, nil), Currency: "SAR"})
		h.searchAndSelect(t, "0551234321", "c1")

		assert.Equal(t, OutcomeCheckedIn, h.wf.CheckIn(context.Background()))
		assert.Equal(t, 1, h.gw.Calls())

		states := h.rec.States()
		assert.Less(t, indexOf(states, StatePaymentPending), indexOf(states, StateCheckingIn))
	})
}

func TestWorkflow_ViewsArePublishedInOrder(t *testing.T) {
	h := newHarness(t, Options{})
	h.searchAndSelect(t, "0551234321", "c1")
	h.wf.CheckIn(context.Background())

	h.rec.mu.Lock()
	defer h.rec.mu.Unlock()
	for i := 1; i < len(h.rec.views); i++ {
		assert.Greater(t, h.rec.views[i].Version, h.rec.views[i-1].Version)
	}
}

func TestWorkflow_WalkInAndHelpAreNotices(t *testing.T) {
	h := newHarness(t, Options{})
	h.wf.WalkIn()
	h.wf.Help()

	notices := h.rec.Notices()
	require.Len(t, notices, 2)
	assert.Equal(t, msgWalkIn, notices[0].Message)
	assert.Equal(t, msgHelp, notices[1].Message)
}

func TestHighlight(t *testing.T) {
	seg, ok := Highlight("Aisha Al Mansour", "al m")
	require.True(t, ok)
	assert.Equal(t, Segments{Before: "Aisha ", Match: "Al M", After: "ansour"}, seg)

	seg, ok = Highlight("Aisha", "")
	assert.False(t, ok)
	assert.Equal(t, "Aisha", seg.Before)

	_, ok = Highlight("Aisha", "zz")
	assert.False(t, ok)
}

func resultIDs(v View) []string {
	out := make([]string, 0, len(v.Results))
	for _, g := range v.Results {
		out = append(out, g.ID)
	}
	return out
}

func apptIDs(appts []models.Appointment) []string {
	out := make([]string, 0, len(appts))
	for _, a := range appts {
		out = append(out, a.ID)
	}
	return out
}

func indexOf(states []State, s State) int {
	for i, x := range states {
		if x == s {
			return i
		}
	}
	return -1
}
