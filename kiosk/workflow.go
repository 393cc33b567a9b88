package kiosk

import (
	"context"
	"strings"
	"sync"
	"time"

	"enaya/apperrors"
	"enaya/models"
	"enaya/services/directory"
	"enaya/services/payment"

	"go.uber.org/zap"
)

// DefaultDebounce is how long input must be stable before a search is sent.
const DefaultDebounce = 200 * time.Millisecond

// maxResults caps the list shown on screen.
const maxResults = 20

// Directory resolves search input into guests.
type Directory interface {
	Search(ctx context.Context, query string) ([]models.Guest, error)
}

// Appointments lists a guest's upcoming appointments.
type Appointments interface {
	ListUpcoming(ctx context.Context, guestID string) ([]models.Appointment, error)
}

// Gateway marks an appointment checked in on the system of record.
type Gateway interface {
	CheckIn(ctx context.Context, appointmentID, customerID string) error
}

// Outcome is the result of one check-in attempt.
type Outcome int

const (
	// OutcomeIgnored means the attempt was a no-op: already checked in or already pending.
	OutcomeIgnored Outcome = iota
	// OutcomeInvalid means a local precondition failed; nothing was sent.
	OutcomeInvalid
	OutcomePaymentFailed
	OutcomeFailed
	OutcomeCheckedIn
)

// Messages shown to the guest.
const (
	msgCheckedIn      = "You're checked in. Please take a seat."
	msgCheckInFailed  = "We couldn't check you in. Please see the front desk."
	msgPaymentFailed  = "Payment didn't go through. Please try again or see the front desk."
	msgSearchFailed   = "We couldn't search right now. Please try again."
	msgLookupFailed   = "We couldn't load your appointments. Please try again."
	msgAlreadyChecked = "You're already checked in."
	msgNoAppointment  = "No upcoming appointment to check in."
	msgSelectFirst    = "Please select your name first."
	msgWalkIn         = "Please continue at the front desk as a walk-in."
	msgHelp           = "A team member will be with you shortly."
)

// Options configure a Workflow. Zero values pick sensible defaults.
type Options struct {
	Debounce time.Duration
	// Policy decides which queries are worth sending. Defaults to strict.
	Policy directory.Policy
	// Payments enables the payment step before check-in when set.
	Payments payment.Provider
	Currency string
	Logger   *zap.Logger

	OnChange func(View)
	OnNotice func(Notice)
}

// Workflow drives search, selection and check-in for one kiosk screen.
// Methods are safe to call from any goroutine; only the latest search and
// the current selection ever update what is shown.
type Workflow struct {
	dir      Directory
	appts    Appointments
	gateway  Gateway
	payments payment.Provider
	policy   directory.Policy
	debounce time.Duration
	currency string
	logger   *zap.Logger
	onChange func(View)
	onNotice func(Notice)

	mu           sync.Mutex
	version      uint64
	state        State
	query        string
	results      []models.Guest
	selected     *models.Guest
	searchSeq    uint64
	timer        *time.Timer
	cancelSearch context.CancelFunc
	selectSeq    uint64
	inFlight     map[string]bool
	closed       bool

	pubMu         sync.Mutex
	lastPublished uint64
}

// NewWorkflow creates a workflow in the Idle state.
func NewWorkflow(dir Directory, appts Appointments, gateway Gateway, opts Options) *Workflow {
	if opts.Debounce <= 0 {
		opts.Debounce = DefaultDebounce
	}
	if opts.Policy == nil {
		opts.Policy = directory.StrictPhonePolicy{}
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	return &Workflow{
		dir:      dir,
		appts:    appts,
		gateway:  gateway,
		payments: opts.Payments,
		policy:   opts.Policy,
		debounce: opts.Debounce,
		currency: opts.Currency,
		logger:   opts.Logger,
		onChange: opts.OnChange,
		onNotice: opts.OnNotice,
		state:    StateIdle,
		inFlight: make(map[string]bool),
	}
}

// View returns the current snapshot.
func (w *Workflow) View() View {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.viewLocked()
}

func (w *Workflow) viewLocked() View {
	v := View{
		Version: w.version,
		State:   w.state,
		Query:   w.query,
		Results: append([]models.Guest(nil), w.results...),
	}
	if w.selected != nil {
		g := copyGuest(*w.selected)
		v.Selected = &g
		v.AlreadyCheckedIn = anyCheckedIn(g.Upcoming)
		_, hasTarget := checkInTarget(g.Upcoming)
		v.CanCheckIn = w.state == StateGuestSelected && hasTarget && !v.AlreadyCheckedIn && !w.inFlight[g.ID]
	}
	v.OfferWalkIn = w.state == StateResultsShown && len(w.results) == 0 && strings.TrimSpace(w.query) != ""
	return v
}

// changeLocked records a new state and returns the snapshot to publish.
func (w *Workflow) changeLocked(s State) View {
	w.state = s
	w.version++
	return w.viewLocked()
}

// failLocked passes through Error and settles on prior.
func (w *Workflow) failLocked(prior State) []View {
	errView := w.changeLocked(StateError)
	return []View{errView, w.changeLocked(prior)}
}

// publish hands views and notices to the listeners, dropping any view older
// than one already rendered.
func (w *Workflow) publish(views []View, notices ...Notice) {
	w.pubMu.Lock()
	defer w.pubMu.Unlock()
	for _, v := range views {
		if v.Version <= w.lastPublished {
			continue
		}
		w.lastPublished = v.Version
		if w.onChange != nil {
			w.onChange(v)
		}
	}
	for _, n := range notices {
		if w.onNotice != nil {
			w.onNotice(n)
		}
	}
}

// errorNotice shows fallback, except that a rejected check-in shows the
// reason given by the system of record when there is one.
func errorNotice(err error, fallback string) Notice {
	n := Notice{Level: NoticeError, Kind: apperrors.KindOf(err), Message: fallback}
	if apperrors.IsCheckInFailure(err) {
		n.Message = apperrors.Reason(err, fallback)
	}
	return n
}

// stopSearchLocked cancels the pending debounce timer and any in-flight search.
func (w *Workflow) stopSearchLocked() {
	if w.timer != nil {
		w.timer.Stop()
		w.timer = nil
	}
	if w.cancelSearch != nil {
		w.cancelSearch()
		w.cancelSearch = nil
	}
}

// SetQuery records new input. It supersedes every earlier query, discards the
// selected guest and restarts the debounce timer.
func (w *Workflow) SetQuery(query string) {
	w.mu.Lock()
	if w.closed {
		w.mu.Unlock()
		return
	}
	w.stopSearchLocked()
	w.searchSeq++
	w.selectSeq++
	seq := w.searchSeq
	w.query = query
	w.selected = nil

	if strings.TrimSpace(query) == "" {
		w.results = nil
		v := w.changeLocked(StateIdle)
		w.mu.Unlock()
		w.publish([]View{v})
		return
	}

	w.timer = time.AfterFunc(w.debounce, func() { w.runSearch(seq) })
	v := w.changeLocked(StateSearching)
	w.mu.Unlock()
	w.publish([]View{v})
}

// runSearch fires when the debounce timer for seq expires.
func (w *Workflow) runSearch(seq uint64) {
	w.mu.Lock()
	if seq != w.searchSeq {
		w.mu.Unlock()
		return
	}
	w.timer = nil
	query := w.query

	if !w.policy.Accepts(models.ParseGuestQuery(query)) {
		w.results = []models.Guest{}
		v := w.changeLocked(StateResultsShown)
		w.mu.Unlock()
		w.publish([]View{v})
		return
	}

	ctx, cancel := context.WithCancel(context.Background())
	w.cancelSearch = cancel
	w.mu.Unlock()

	guests, err := w.dir.Search(ctx, query)
	cancel()

	w.mu.Lock()
	if seq != w.searchSeq || w.selected != nil {
		w.mu.Unlock()
		w.logger.Debug("dropping stale search response", zap.Uint64("seq", seq), zap.Error(apperrors.ErrStale))
		return
	}
	w.cancelSearch = nil

	if err != nil {
		w.results = []models.Guest{}
		views := w.failLocked(StateResultsShown)
		w.mu.Unlock()
		w.logger.Warn("guest search failed", zap.Error(err))
		w.publish(views, errorNotice(err, msgSearchFailed))
		return
	}

	if len(guests) > maxResults {
		guests = guests[:maxResults]
	}
	w.results = append([]models.Guest{}, guests...)
	v := w.changeLocked(StateResultsShown)
	w.mu.Unlock()
	w.publish([]View{v})
}

// Select picks a guest from the current results and loads their upcoming
// appointments, replacing whatever list the search returned. It blocks until
// the lookup finishes.
func (w *Workflow) Select(ctx context.Context, guestID string) {
	w.mu.Lock()
	// Results only count once the current query has been answered.
	if w.state != StateResultsShown && w.state != StateGuestSelected {
		state := w.state
		w.mu.Unlock()
		w.logger.Debug("ignoring selection", zap.String("guestId", guestID), zap.Stringer("state", state))
		return
	}
	var picked *models.Guest
	for i := range w.results {
		if w.results[i].ID == guestID {
			g := copyGuest(w.results[i])
			g.Upcoming = models.DedupeAppointments(g.Upcoming)
			picked = &g
			break
		}
	}
	if picked == nil {
		w.mu.Unlock()
		w.publish(nil, errorNotice(apperrors.NewValidationError(msgSelectFirst), msgSelectFirst))
		return
	}
	w.selectSeq++
	seq := w.selectSeq
	w.selected = picked
	v := w.changeLocked(StateGuestSelected)
	w.mu.Unlock()
	w.publish([]View{v})

	appts, err := w.appts.ListUpcoming(ctx, guestID)

	w.mu.Lock()
	if seq != w.selectSeq || w.selected == nil || w.state == StateCheckedIn {
		w.mu.Unlock()
		w.logger.Debug("dropping stale appointment lookup", zap.String("guestId", guestID))
		return
	}
	if err != nil {
		w.mu.Unlock()
		w.logger.Warn("appointment lookup failed", zap.String("guestId", guestID), zap.Error(err))
		w.publish(nil, errorNotice(err, msgLookupFailed))
		return
	}
	// A check-in already under way keeps its state and marks the fresh list when it lands.
	w.selected.Upcoming = models.DedupeAppointments(appts)
	v = w.changeLocked(w.state)
	w.mu.Unlock()
	w.publish([]View{v})
}

// CheckIn checks in the selected guest. A second call while one is pending
// for the same guest, or for a guest already checked in, is a no-op.
func (w *Workflow) CheckIn(ctx context.Context) Outcome {
	w.mu.Lock()
	if w.selected == nil {
		w.mu.Unlock()
		w.publish(nil, errorNotice(apperrors.NewValidationError(msgSelectFirst), msgSelectFirst))
		return OutcomeInvalid
	}
	guest := w.selected
	guestID := guest.ID
	if w.state == StateCheckedIn || anyCheckedIn(guest.Upcoming) {
		w.mu.Unlock()
		w.publish(nil, Notice{Level: NoticeInfo, Message: msgAlreadyChecked})
		return OutcomeIgnored
	}
	if w.state != StateGuestSelected || w.inFlight[guestID] {
		state := w.state
		w.mu.Unlock()
		w.logger.Debug("ignoring check-in", zap.String("guestId", guestID), zap.Stringer("state", state))
		return OutcomeIgnored
	}
	target, ok := checkInTarget(guest.Upcoming)
	if !ok {
		w.mu.Unlock()
		w.publish(nil, errorNotice(apperrors.NewValidationError(msgNoAppointment), msgNoAppointment))
		return OutcomeInvalid
	}
	seq := w.selectSeq
	w.inFlight[guestID] = true
	log := w.logger.With(zap.String("guestId", guestID), zap.String("appointmentId", target.ID))

	if w.payments != nil {
		v := w.changeLocked(StatePaymentPending)
		w.mu.Unlock()
		w.publish([]View{v})

		currency := target.Currency
		if currency == "" {
			currency = w.currency
		}
		res, err := w.payments.AttemptPayment(ctx, models.PaymentRequest{
			AppointmentID: target.ID,
			Amount:        target.Amount(),
			Currency:      currency,
		})

		w.mu.Lock()
		if err != nil || !res.OK {
			delete(w.inFlight, guestID)
			reason := res.Reason
			if err != nil {
				log.Warn("payment attempt failed", zap.Error(err))
				reason = ""
			}
			notice := Notice{Level: NoticeError, Message: msgPaymentFailed}
			if reason != "" {
				notice.Message = reason
			}
			if seq != w.selectSeq {
				w.mu.Unlock()
				return OutcomePaymentFailed
			}
			views := w.failLocked(StateGuestSelected)
			w.mu.Unlock()
			w.publish(views, notice)
			return OutcomePaymentFailed
		}
		log.Info("payment confirmed", zap.String("paymentId", res.PaymentID))
		if seq != w.selectSeq {
			// A paid visit is checked in even when the screen has moved on.
			log.Warn("screen moved on after payment; completing check-in", zap.String("paymentId", res.PaymentID))
		}
	}

	if seq == w.selectSeq {
		v := w.changeLocked(StateCheckingIn)
		w.mu.Unlock()
		w.publish([]View{v})
	} else {
		w.mu.Unlock()
	}

	err := w.gateway.CheckIn(ctx, target.ID, guestID)

	w.mu.Lock()
	delete(w.inFlight, guestID)
	current := seq == w.selectSeq && w.selected != nil
	if err != nil {
		log.Warn("check-in failed", zap.Error(err))
		if !current {
			w.mu.Unlock()
			w.publish(nil, errorNotice(err, msgCheckInFailed))
			return OutcomeFailed
		}
		views := w.failLocked(StateGuestSelected)
		w.mu.Unlock()
		w.publish(views, errorNotice(err, msgCheckInFailed))
		return OutcomeFailed
	}

	log.Info("guest checked in")
	if !current {
		w.mu.Unlock()
		w.publish(nil, Notice{Level: NoticeSuccess, Message: msgCheckedIn})
		return OutcomeCheckedIn
	}
	markCheckedIn(w.selected.Upcoming)
	v := w.changeLocked(StateCheckedIn)
	w.mu.Unlock()
	w.publish([]View{v}, Notice{Level: NoticeSuccess, Message: msgCheckedIn})
	return OutcomeCheckedIn
}

// WalkIn tells a guest without a booking where to go.
func (w *Workflow) WalkIn() {
	w.publish(nil, Notice{Level: NoticeInfo, Message: msgWalkIn})
}

// Help asks staff to come over.
func (w *Workflow) Help() {
	w.publish(nil, Notice{Level: NoticeInfo, Message: msgHelp})
}

// Close stops pending work. Later input is ignored.
func (w *Workflow) Close() {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.stopSearchLocked()
	w.searchSeq++
	w.selectSeq++
	w.closed = true
}
