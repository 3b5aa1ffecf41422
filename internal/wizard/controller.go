package wizard

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/wolfman30/counseling-booking/internal/api"
	"github.com/wolfman30/counseling-booking/internal/booking"
	"github.com/wolfman30/counseling-booking/internal/drafts"
	"github.com/wolfman30/counseling-booking/internal/observability/metrics"
	"github.com/wolfman30/counseling-booking/pkg/logging"
)

var wizardTracer = otel.Tracer("counseling.internal.wizard")

var (
	// ErrNotOnReviewStep is returned when Submit is called before step 5.
	ErrNotOnReviewStep = errors.New("wizard: submit is only available on the review step")
	// ErrSubmitInFlight is returned when a submission is already running.
	ErrSubmitInFlight = errors.New("wizard: submission already in progress")
	// ErrDraftUnavailable is reported by RestoreErr when the draft store
	// could not be read.
	ErrDraftUnavailable = errors.New("wizard: draft store unavailable")
)

// BookingAPI is the subset of the remote API the controller calls.
type BookingAPI interface {
	ListCounselors(ctx context.Context) ([]api.Counselor, error)
	GetAccountDetails(ctx context.Context) (*api.AccountDetails, error)
	SubmitBooking(ctx context.Context, payload booking.Payload) (*api.Confirmation, error)
}

// Options wires a Controller.
type Options struct {
	Store    drafts.Store
	Client   BookingAPI
	Handoff  Handoff
	Logger   *logging.Logger
	Metrics  *metrics.WizardMetrics
	Location *time.Location
	// FallbackAccount replaces api.FallbackAccountDetails when set.
	FallbackAccount *api.AccountDetails
}

// Controller owns one wizard's state. It is not safe for concurrent use;
// callers serving several requests for the same wizard must serialize them.
type Controller struct {
	store    drafts.Store
	client   BookingAPI
	handoff  Handoff
	logger   *logging.Logger
	metrics  *metrics.WizardMetrics
	loc      *time.Location
	fallback api.AccountDetails

	state   State
	readErr error
}

// NewController constructs a controller in the initial state. Call Restore to
// pick up a persisted draft.
func NewController(opts Options) *Controller {
	if opts.Store == nil {
		panic("wizard: draft store required")
	}
	if opts.Client == nil {
		panic("wizard: booking API client required")
	}
	if opts.Logger == nil {
		opts.Logger = logging.Default()
	}
	if opts.Handoff == nil {
		opts.Handoff = NewStoreHandoff(opts.Store)
	}
	if opts.Location == nil {
		opts.Location = time.UTC
	}
	fallback := api.FallbackAccountDetails
	if opts.FallbackAccount != nil {
		fallback = *opts.FallbackAccount
	}
	return &Controller{
		store:    opts.Store,
		client:   opts.Client,
		handoff:  opts.Handoff,
		logger:   opts.Logger,
		metrics:  opts.Metrics,
		loc:      opts.Location,
		fallback: fallback,
		state:    Initial(),
	}
}

// State returns the current state.
func (c *Controller) State() State { return c.state }

// Restore loads the persisted draft and step. A missing or corrupt draft
// yields the initial state and the corruption is only logged. When the store
// cannot be read the initial state is returned too, RestoreErr reports
// ErrDraftUnavailable and nothing is persisted until the next successful
// Restore or a Reset, so the stored draft is never overwritten with defaults.
func (c *Controller) Restore(ctx context.Context) State {
	c.state = Initial()
	c.readErr = nil

	raw, ok, err := c.store.Get(ctx, drafts.DraftKey)
	if err != nil {
		c.metrics.ObservePersistError("get")
		c.logger.Warn("draft restore failed, using defaults", "error", err)
		c.readErr = fmt.Errorf("%w: %v", ErrDraftUnavailable, err)
		return c.state
	}
	if !ok {
		return c.state
	}
	snap, err := drafts.Decode(raw)
	if err != nil {
		c.metrics.ObservePersistError("decode")
		c.logger.Warn("persisted draft is corrupt, using defaults", "error", err)
		return c.state
	}
	c.state.Draft = snap.Draft
	c.state.Step = snap.CurrentStep
	c.logger.Debug("draft restored", "step", snap.CurrentStep)
	return c.state
}

// RestoreErr reports whether the last Restore could not read the store.
func (c *Controller) RestoreErr() error { return c.readErr }

// Update sets one field and persists the draft.
func (c *Controller) Update(ctx context.Context, field string, value any) (State, error) {
	next, err := SetField(c.state, field, value)
	if err != nil {
		return c.state, err
	}
	c.state = next
	c.persist(ctx)
	return c.state, nil
}

// Next advances when the current step validates.
func (c *Controller) Next(ctx context.Context) State {
	from := c.state.Step
	c.state = Next(c.state)
	if c.state.Step == from && from < booking.ReviewStep {
		c.metrics.ObserveValidationFailure(from)
		c.logger.Debug("step advance blocked", "step", from, "fields", len(c.state.Errors))
	} else if c.state.Step != from {
		c.metrics.ObserveTransition("next", c.state.Step)
	}
	c.persist(ctx)
	return c.state
}

// Back returns to the previous step.
func (c *Controller) Back(ctx context.Context) State {
	from := c.state.Step
	c.state = Back(c.state)
	if c.state.Step != from {
		c.metrics.ObserveTransition("back", c.state.Step)
	}
	c.persist(ctx)
	return c.state
}

// Reset discards the draft and returns to step 1.
func (c *Controller) Reset(ctx context.Context) State {
	c.clearDraft(ctx)
	c.state = Initial()
	c.readErr = nil
	return c.state
}

// Submit validates the whole draft and posts it. Outcomes are reported in
// State.Submission; the error is only set when Submit was not allowed.
func (c *Controller) Submit(ctx context.Context) (State, error) {
	if c.state.Step != booking.ReviewStep {
		return c.state, ErrNotOnReviewStep
	}
	if c.state.Submission.Status == StatusSubmitting {
		return c.state, ErrSubmitInFlight
	}

	ctx, span := wizardTracer.Start(ctx, "wizard.submit")
	defer span.End()

	next, ok := BeginSubmit(c.state)
	c.state = next
	if !ok {
		span.SetAttributes(attribute.Int("wizard.jump_to_step", next.Step))
		c.metrics.ObserveValidationFailure(booking.ReviewStep)
		c.metrics.ObserveSubmission(string(StatusValidationError))
		c.logger.Info("submission blocked by validation", "fields", len(next.Errors), "step", next.Step)
		c.persist(ctx)
		return c.state, nil
	}

	payload, err := booking.BuildPayload(c.state.Draft, c.loc)
	if err != nil {
		// Unreachable after ValidateAll; reported as a date/time field error.
		errs := booking.FieldErrors{
			booking.FieldPreferredDate: booking.MsgInvalidDateTime,
			booking.FieldPreferredTime: booking.MsgInvalidDateTime,
		}
		c.state.Errors = errs
		c.state.Step = booking.FirstFailingStep(errs)
		c.state.Submission = Submission{Status: StatusValidationError, Message: MsgValidationFailed, FieldErrors: errs.Clone()}
		c.persist(ctx)
		return c.state, nil
	}

	conf, err := c.client.SubmitBooking(ctx, payload)
	if err != nil {
		span.RecordError(err)
		var rejected *api.RejectedError
		if errors.As(err, &rejected) {
			c.state = Rejected(c.state, rejected.Message, booking.FieldErrors(rejected.FieldErrors()))
			c.metrics.ObserveSubmission("rejected")
			c.logger.Warn("booking rejected by server", "status", rejected.Status, "fields", len(rejected.Details))
		} else {
			c.state = Failed(c.state)
			c.metrics.ObserveSubmission("network_error")
			c.logger.Error("booking submission failed", "error", err)
		}
		return c.state, nil
	}

	span.SetAttributes(attribute.String("booking.appointment_code", conf.AppointmentCode))
	c.clearDraft(ctx)
	if err := c.handoff.Deliver(ctx, conf); err != nil {
		c.logger.Warn("confirmation hand-off failed, rendering inline", "error", err, "appointment_code", conf.AppointmentCode)
		c.state = HandoffFallback(conf)
	} else {
		c.state = Succeeded(conf)
	}
	c.metrics.ObserveSubmission(string(StatusSuccess))
	c.logger.Info("booking submitted", "appointment_code", conf.AppointmentCode)
	return c.state, nil
}

// LoadCounselors fetches the counselor list for step 2. The result is dropped
// with ErrDiscarded if guard was released while the request ran.
func (c *Controller) LoadCounselors(ctx context.Context, guard *Guard) ([]api.Counselor, error) {
	list, err := c.client.ListCounselors(ctx)
	if !guard.Active() {
		return nil, ErrDiscarded
	}
	if err != nil {
		c.logger.Warn("counselor list unavailable", "error", err)
		return nil, err
	}
	return list, nil
}

// LoadPaymentAccount fetches the payment account for step 4, substituting
// the fallback account on any failure.
func (c *Controller) LoadPaymentAccount(ctx context.Context, guard *Guard) (api.AccountDetails, error) {
	details, err := c.client.GetAccountDetails(ctx)
	if !guard.Active() {
		return api.AccountDetails{}, ErrDiscarded
	}
	if err != nil {
		c.logger.Warn("payment account unavailable, using fallback", "error", err)
		return c.fallback, nil
	}
	return *details, nil
}

func (c *Controller) persist(ctx context.Context) {
	if c.readErr != nil {
		c.logger.Warn("draft not saved, stored draft was never read", "error", c.readErr)
		return
	}
	raw, err := drafts.Encode(c.state.Draft, c.state.Step)
	if err != nil {
		c.metrics.ObservePersistError("encode")
		c.logger.Warn("draft encode failed", "error", err)
		return
	}
	if err := c.store.Set(ctx, drafts.DraftKey, raw); err != nil {
		c.metrics.ObservePersistError("set")
		c.logger.Warn("draft save failed", "error", err)
	}
}

func (c *Controller) clearDraft(ctx context.Context) {
	if err := c.store.Remove(ctx, drafts.DraftKey); err != nil {
		c.metrics.ObservePersistError("remove")
		c.logger.Warn("draft removal failed", "error", err)
	}
}
