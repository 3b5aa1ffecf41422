// Package wizard drives the five-step booking form: step transitions,
// validation gates, draft persistence and submission.
package wizard

import (
	"github.com/wolfman30/counseling-booking/internal/api"
	"github.com/wolfman30/counseling-booking/internal/booking"
)

// Status is the submission lifecycle tag.
type Status string

const (
	StatusIdle            Status = "idle"
	StatusSubmitting      Status = "submitting"
	StatusSuccess         Status = "success"
	StatusError           Status = "error"
	StatusValidationError Status = "validation-error"
)

// User-facing banner messages.
const (
	MsgValidationFailed = "Please correct the highlighted fields before submitting."
	MsgNetworkFailure   = "We could not reach the booking service. Please try again."
	MsgRejectedDefault  = "Your booking could not be completed. Please review your details and try again."
	MsgBooked           = "Your booking has been received."
)

// Submission describes where the latest submit attempt stands.
type Submission struct {
	Status       Status              `json:"status"`
	Message      string              `json:"message,omitempty"`
	FieldErrors  booking.FieldErrors `json:"fieldErrors,omitempty"`
	Confirmation *api.Confirmation   `json:"confirmation,omitempty"`

	// Inline is set when the confirmation could not be handed off and must
	// be rendered in place.
	Inline bool `json:"inline,omitempty"`
}

// State is an immutable snapshot of the wizard. Transition functions return
// a new State and never mutate their input.
type State struct {
	Step        int                 `json:"currentStep"`
	Draft       booking.Draft       `json:"draft"`
	Errors      booking.FieldErrors `json:"errors,omitempty"`
	Submission  Submission          `json:"submission"`
	ScrollToTop bool                `json:"scrollToTop,omitempty"`
}

// Initial returns the default state: an empty draft on step 1.
func Initial() State {
	return State{
		Step:       booking.FirstStep,
		Draft:      booking.NewDraft(),
		Submission: Submission{Status: StatusIdle},
	}
}

func (s State) clone() State {
	out := s
	out.Errors = s.Errors.Clone()
	out.Submission.FieldErrors = s.Submission.FieldErrors.Clone()
	out.ScrollToTop = false
	return out
}

// SetField updates one draft field and clears any error shown for it.
func SetField(s State, field string, value any) (State, error) {
	next := s.clone()
	if err := next.Draft.Set(field, value); err != nil {
		return s, err
	}
	delete(next.Errors, field)
	if len(next.Errors) == 0 {
		next.Errors = nil
	}
	return next, nil
}

// Next advances one step when the current step validates. On failure the
// step is held, the failing fields are shown and the view scrolls to top.
func Next(s State) State {
	next := s.clone()
	if s.Step >= booking.ReviewStep {
		return next
	}
	errs := booking.ValidateStep(s.Step, s.Draft)
	if !errs.Empty() {
		next.Errors = errs
		next.ScrollToTop = true
		return next
	}
	next.Errors = nil
	next.Step = s.Step + 1
	next.ScrollToTop = true
	return next
}

// Back returns to the previous step without validating.
func Back(s State) State {
	next := s.clone()
	if s.Step > booking.FirstStep {
		next.Step = s.Step - 1
		next.ScrollToTop = true
	}
	return next
}

// BeginSubmit validates the whole draft. It reports false, with the state in
// validation-error and the step moved to the earliest failing one, when the
// draft is incomplete. Otherwise the state enters submitting.
func BeginSubmit(s State) (State, bool) {
	next := s.clone()
	errs := booking.ValidateAll(s.Draft)
	if !errs.Empty() {
		next.Errors = errs
		next.Step = booking.FirstFailingStep(errs)
		next.ScrollToTop = true
		next.Submission = Submission{
			Status:      StatusValidationError,
			Message:     MsgValidationFailed,
			FieldErrors: errs.Clone(),
		}
		return next, false
	}
	next.Errors = nil
	next.Submission = Submission{Status: StatusSubmitting}
	return next, true
}

// Rejected records a server refusal, merging its field details into the
// errors already shown.
func Rejected(s State, message string, fields booking.FieldErrors) State {
	next := s.clone()
	if message == "" {
		message = MsgRejectedDefault
	}
	next.Errors = next.Errors.Merge(fields)
	next.Submission = Submission{
		Status:      StatusError,
		Message:     message,
		FieldErrors: fields.Clone(),
	}
	next.ScrollToTop = true
	return next
}

// Failed records a transport failure with the generic message.
func Failed(s State) State {
	next := s.clone()
	next.Submission = Submission{Status: StatusError, Message: MsgNetworkFailure}
	next.ScrollToTop = true
	return next
}

// Succeeded resets to the default state and carries the confirmation in the
// submission so the caller can route to the confirmation screen.
func Succeeded(conf *api.Confirmation) State {
	next := Initial()
	next.Submission = Submission{Status: StatusSuccess, Message: MsgBooked, Confirmation: conf}
	next.ScrollToTop = true
	return next
}

// HandoffFallback renders the confirmation inline when it could not be
// handed to the next screen. The draft is already cleared.
func HandoffFallback(conf *api.Confirmation) State {
	next := Succeeded(conf)
	next.Submission.Inline = true
	return next
}
