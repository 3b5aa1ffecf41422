package wizard

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wolfman30/counseling-booking/internal/api"
	"github.com/wolfman30/counseling-booking/internal/booking"
	"github.com/wolfman30/counseling-booking/internal/booking/bookingtest"
	"github.com/wolfman30/counseling-booking/internal/drafts"
	"github.com/wolfman30/counseling-booking/internal/observability/metrics"
	"github.com/wolfman30/counseling-booking/pkg/logging"
)

type stubAPI struct {
	counselors []api.Counselor
	account    *api.AccountDetails
	accountErr error
	conf       *api.Confirmation
	submitErr  error
	submitted  []booking.Payload
	onList     func()
}

func (s *stubAPI) ListCounselors(context.Context) ([]api.Counselor, error) {
	if s.onList != nil {
		s.onList()
	}
	return s.counselors, nil
}

func (s *stubAPI) GetAccountDetails(context.Context) (*api.AccountDetails, error) {
	return s.account, s.accountErr
}

func (s *stubAPI) SubmitBooking(_ context.Context, p booking.Payload) (*api.Confirmation, error) {
	s.submitted = append(s.submitted, p)
	return s.conf, s.submitErr
}

type failingStore struct{}

func (failingStore) Get(context.Context, string) (string, bool, error) {
	return "", false, errors.New("quota exceeded")
}
func (failingStore) Set(context.Context, string, string) error { return errors.New("quota exceeded") }
func (failingStore) Remove(context.Context, string) error      { return errors.New("quota exceeded") }

// flakyStore fails the next failGets reads and otherwise delegates.
type flakyStore struct {
	*drafts.MemoryStore
	failGets int
}

func (f *flakyStore) Get(ctx context.Context, key string) (string, bool, error) {
	if f.failGets > 0 {
		f.failGets--
		return "", false, errors.New("i/o timeout")
	}
	return f.MemoryStore.Get(ctx, key)
}

type failingHandoff struct{}

func (failingHandoff) Deliver(context.Context, *api.Confirmation) error {
	return errors.New("navigation unavailable")
}

func newController(t *testing.T, store drafts.Store, client BookingAPI, handoff Handoff) *Controller {
	t.Helper()
	return NewController(Options{
		Store:    store,
		Client:   client,
		Handoff:  handoff,
		Logger:   logging.Discard(),
		Metrics:  metrics.NewWizardMetrics(prometheus.NewRegistry()),
		Location: time.UTC,
	})
}

func persisted(t *testing.T, store drafts.Store) (drafts.Snapshot, bool) {
	t.Helper()
	raw, ok, err := store.Get(context.Background(), drafts.DraftKey)
	require.NoError(t, err)
	if !ok {
		return drafts.Snapshot{}, false
	}
	snap, err := drafts.Decode(raw)
	require.NoError(t, err)
	return snap, true
}

// reviewController fills a valid draft and walks it to the review step.
func reviewController(t *testing.T, store drafts.Store, client BookingAPI, handoff Handoff, d booking.Draft) *Controller {
	t.Helper()
	raw, err := drafts.Encode(d, booking.ReviewStep)
	require.NoError(t, err)
	require.NoError(t, store.Set(context.Background(), drafts.DraftKey, raw))

	c := newController(t, store, client, handoff)
	require.Equal(t, booking.ReviewStep, c.Restore(context.Background()).Step)
	return c
}

func TestControllerUpdatePersistsEveryChange(t *testing.T) {
	store := drafts.NewMemoryStore()
	c := newController(t, store, &stubAPI{}, nil)
	ctx := context.Background()

	_, err := c.Update(ctx, booking.FieldFullName, "Njeri")
	require.NoError(t, err)

	snap, ok := persisted(t, store)
	require.True(t, ok)
	assert.Equal(t, "Njeri", snap.Draft.FullName)
	assert.Equal(t, 1, snap.CurrentStep)

	_, err = c.Update(ctx, "bogus", "x")
	assert.ErrorIs(t, err, booking.ErrUnknownField)
}

func TestControllerNextBlockedKeepsStep(t *testing.T) {
	store := drafts.NewMemoryStore()
	c := newController(t, store, &stubAPI{}, nil)

	s := c.Next(context.Background())
	assert.Equal(t, 1, s.Step)
	assert.Contains(t, s.Errors, booking.FieldFullName)
	assert.True(t, s.ScrollToTop)
}

func TestControllerNextAndBackPersistStep(t *testing.T) {
	store := drafts.NewMemoryStore()
	c := newController(t, store, &stubAPI{}, nil)
	ctx := context.Background()

	d := bookingtest.ValidDraft()
	for _, field := range booking.FieldsForStep(1) {
		v, _ := d.Get(field)
		_, err := c.Update(ctx, field, v)
		require.NoError(t, err)
	}

	assert.Equal(t, 2, c.Next(ctx).Step)
	snap, _ := persisted(t, store)
	assert.Equal(t, 2, snap.CurrentStep)

	assert.Equal(t, 1, c.Back(ctx).Step)
	snap, _ = persisted(t, store)
	assert.Equal(t, 1, snap.CurrentStep)
}

func TestControllerRestore(t *testing.T) {
	store := drafts.NewMemoryStore()
	d := bookingtest.ValidDraft()
	raw, err := drafts.Encode(d, 3)
	require.NoError(t, err)
	require.NoError(t, store.Set(context.Background(), drafts.DraftKey, raw))

	s := newController(t, store, &stubAPI{}, nil).Restore(context.Background())
	assert.Equal(t, 3, s.Step)
	assert.Equal(t, d, s.Draft)
}

func TestControllerRestoreCorruptFallsBackToDefaults(t *testing.T) {
	store := drafts.NewMemoryStore()
	require.NoError(t, store.Set(context.Background(), drafts.DraftKey, "{\"fullName\": tru"))

	var s State
	assert.NotPanics(t, func() {
		s = newController(t, store, &stubAPI{}, nil).Restore(context.Background())
	})
	assert.Equal(t, Initial(), s)
}

func TestControllerToleratesStoreFailures(t *testing.T) {
	c := newController(t, failingStore{}, &stubAPI{}, nil)
	ctx := context.Background()

	assert.Equal(t, Initial(), c.Restore(ctx))
	assert.ErrorIs(t, c.RestoreErr(), ErrDraftUnavailable)
	s, err := c.Update(ctx, booking.FieldFullName, "Otieno")
	require.NoError(t, err)
	assert.Equal(t, "Otieno", s.Draft.FullName)
	assert.Equal(t, Initial(), c.Reset(ctx))
}

func TestControllerReadFailureKeepsStoredDraft(t *testing.T) {
	store := &flakyStore{MemoryStore: drafts.NewMemoryStore()}
	ctx := context.Background()
	d := bookingtest.ValidDraft()
	raw, err := drafts.Encode(d, 4)
	require.NoError(t, err)
	require.NoError(t, store.Set(ctx, drafts.DraftKey, raw))

	store.failGets = 1
	c := newController(t, store, &stubAPI{}, nil)
	assert.Equal(t, Initial(), c.Restore(ctx))
	require.ErrorIs(t, c.RestoreErr(), ErrDraftUnavailable)

	_, err = c.Update(ctx, booking.FieldPayerName, "Someone Else")
	require.NoError(t, err)
	c.Next(ctx)

	snap, ok := persisted(t, store)
	require.True(t, ok)
	assert.Equal(t, 4, snap.CurrentStep)
	assert.Equal(t, d, snap.Draft)

	s := c.Restore(ctx)
	require.NoError(t, c.RestoreErr())
	assert.Equal(t, 4, s.Step)
	assert.Equal(t, d.FullName, s.Draft.FullName)
}

func TestControllerCorruptDraftIsNotAReadError(t *testing.T) {
	store := drafts.NewMemoryStore()
	require.NoError(t, store.Set(context.Background(), drafts.DraftKey, "%%%"))

	c := newController(t, store, &stubAPI{}, nil)
	c.Restore(context.Background())
	assert.NoError(t, c.RestoreErr())

	_, err := c.Update(context.Background(), booking.FieldFullName, "Amina")
	require.NoError(t, err)
	snap, ok := persisted(t, store)
	require.True(t, ok)
	assert.Equal(t, "Amina", snap.FullName)
}

func TestControllerSubmitRequiresReviewStep(t *testing.T) {
	c := newController(t, drafts.NewMemoryStore(), &stubAPI{}, nil)
	_, err := c.Submit(context.Background())
	assert.ErrorIs(t, err, ErrNotOnReviewStep)
}

func TestControllerSubmitSuccessClearsDraft(t *testing.T) {
	store := drafts.NewMemoryStore()
	client := &stubAPI{conf: &api.Confirmation{AppointmentCode: "APT-100", PaymentMethod: booking.PaymentMobileMoney}}
	c := reviewController(t, store, client, nil, bookingtest.ValidDraft())

	s, err := c.Submit(context.Background())
	require.NoError(t, err)

	assert.Equal(t, StatusSuccess, s.Submission.Status)
	assert.Equal(t, 1, s.Step)
	assert.Equal(t, booking.NewDraft(), s.Draft)
	assert.False(t, s.Submission.Inline)
	require.Len(t, client.submitted, 1)
	assert.Equal(t, "2024-03-15T14:30:00Z", client.submitted[0].AppointmentDate)

	_, ok := persisted(t, store)
	assert.False(t, ok, "draft must be deleted")

	conf, err := NewStoreHandoff(store).Take(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "APT-100", conf.AppointmentCode)
}

func TestControllerSubmitHandoffFailureRendersInline(t *testing.T) {
	store := drafts.NewMemoryStore()
	client := &stubAPI{conf: &api.Confirmation{AppointmentCode: "APT-7"}}
	c := reviewController(t, store, client, failingHandoff{}, bookingtest.ValidDraft())

	s, err := c.Submit(context.Background())
	require.NoError(t, err)
	assert.Equal(t, StatusSuccess, s.Submission.Status)
	assert.True(t, s.Submission.Inline)
	require.NotNil(t, s.Submission.Confirmation)
	assert.Equal(t, "APT-7", s.Submission.Confirmation.AppointmentCode)

	_, ok := persisted(t, store)
	assert.False(t, ok)
}

func TestControllerSubmitInvalidDateNeverCallsAPI(t *testing.T) {
	store := drafts.NewMemoryStore()
	client := &stubAPI{}
	d := bookingtest.ValidDraft()
	d.PreferredDate = "2024-02-30"
	c := reviewController(t, store, client, nil, d)

	s, err := c.Submit(context.Background())
	require.NoError(t, err)

	assert.Empty(t, client.submitted)
	assert.Equal(t, StatusValidationError, s.Submission.Status)
	assert.Equal(t, 2, s.Step)
	assert.Equal(t, booking.MsgInvalidDateTime, s.Errors[booking.FieldPreferredDate])
	assert.Equal(t, booking.MsgInvalidDateTime, s.Errors[booking.FieldPreferredTime])

	snap, ok := persisted(t, store)
	require.True(t, ok)
	assert.Equal(t, 2, snap.CurrentStep)
}

func TestControllerSubmitServerRejection(t *testing.T) {
	client := &stubAPI{submitErr: &api.RejectedError{
		Status:  422,
		Message: "Validation failed",
		Details: []api.FieldDetail{{Field: booking.FieldEmail, Message: "Email already booked"}},
	}}
	store := drafts.NewMemoryStore()
	c := reviewController(t, store, client, nil, bookingtest.ValidDraft())

	s, err := c.Submit(context.Background())
	require.NoError(t, err)
	assert.Equal(t, StatusError, s.Submission.Status)
	assert.Equal(t, "Validation failed", s.Submission.Message)
	assert.Equal(t, "Email already booked", s.Errors[booking.FieldEmail])
	assert.Equal(t, 5, s.Step)

	_, ok := persisted(t, store)
	assert.True(t, ok, "draft kept for another attempt")
}

func TestControllerSubmitNetworkFailure(t *testing.T) {
	client := &stubAPI{submitErr: errors.New("dial tcp: connection refused")}
	c := reviewController(t, drafts.NewMemoryStore(), client, nil, bookingtest.ValidDraft())

	s, err := c.Submit(context.Background())
	require.NoError(t, err)
	assert.Equal(t, StatusError, s.Submission.Status)
	assert.Equal(t, MsgNetworkFailure, s.Submission.Message)
	assert.Empty(t, s.Errors)

	// The user may re-trigger after a failure.
	client.submitErr = nil
	client.conf = &api.Confirmation{AppointmentCode: "APT-2"}
	s, err = c.Submit(context.Background())
	require.NoError(t, err)
	assert.Equal(t, StatusSuccess, s.Submission.Status)
	assert.Len(t, client.submitted, 2)
}

func TestControllerReset(t *testing.T) {
	store := drafts.NewMemoryStore()
	c := reviewController(t, store, &stubAPI{}, nil, bookingtest.ValidDraft())

	assert.Equal(t, Initial(), c.Reset(context.Background()))
	_, ok := persisted(t, store)
	assert.False(t, ok)
}

func TestControllerLoadCounselorsDiscardedAfterRelease(t *testing.T) {
	guard := NewGuard()
	client := &stubAPI{
		counselors: []api.Counselor{{ID: "c-1", Name: "Dr. Kariuki"}},
		onList:     guard.Release,
	}
	c := newController(t, drafts.NewMemoryStore(), client, nil)

	_, err := c.LoadCounselors(context.Background(), guard)
	assert.ErrorIs(t, err, ErrDiscarded)

	list, err := c.LoadCounselors(context.Background(), NewGuard())
	require.NoError(t, err)
	assert.Len(t, list, 1)
}

func TestControllerLoadPaymentAccountFallback(t *testing.T) {
	client := &stubAPI{accountErr: errors.New("503")}
	fallback := api.AccountDetails{AccountName: "Fallback", AccountNumber: "1", PaybillNumber: "2"}
	c := NewController(Options{
		Store:           drafts.NewMemoryStore(),
		Client:          client,
		Logger:          logging.Discard(),
		FallbackAccount: &fallback,
	})

	got, err := c.LoadPaymentAccount(context.Background(), NewGuard())
	require.NoError(t, err)
	assert.Equal(t, fallback, got)

	client.accountErr = nil
	client.account = &api.AccountDetails{AccountName: "Live", AccountNumber: "9", PaybillNumber: "8"}
	got, err = c.LoadPaymentAccount(context.Background(), nil)
	require.NoError(t, err)
	assert.Equal(t, "Live", got.AccountName)

	released := NewGuard()
	released.Release()
	_, err = c.LoadPaymentAccount(context.Background(), released)
	assert.ErrorIs(t, err, ErrDiscarded)
}

func TestNewControllerRequiresDependencies(t *testing.T) {
	assert.Panics(t, func() { NewController(Options{Client: &stubAPI{}}) })
	assert.Panics(t, func() { NewController(Options{Store: drafts.NewMemoryStore()}) })
}

func TestStoreHandoffTakeMissing(t *testing.T) {
	_, err := NewStoreHandoff(drafts.NewMemoryStore()).Take(context.Background())
	assert.ErrorIs(t, err, ErrNoConfirmation)
}
