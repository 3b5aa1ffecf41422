package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wolfman30/counseling-booking/internal/booking"
	"github.com/wolfman30/counseling-booking/internal/booking/bookingtest"
	"github.com/wolfman30/counseling-booking/internal/observability/metrics"
	"github.com/wolfman30/counseling-booking/pkg/logging"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	ts := httptest.NewServer(handler)
	t.Cleanup(ts.Close)
	m := metrics.NewWizardMetrics(prometheus.NewRegistry())
	return NewClient(ts.URL+"/", 5*time.Second, logging.Discard(), WithMetrics(m))
}

func samplePayload(t *testing.T) booking.Payload {
	t.Helper()
	p, err := booking.BuildPayload(bookingtest.ValidDraft(), time.UTC)
	require.NoError(t, err)
	return p
}

func TestListCounselors_BareArray(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet || r.URL.Path != "/api/counselors/public" {
			t.Fatalf("unexpected %s %s", r.Method, r.URL.Path)
		}
		_, _ = w.Write([]byte(`[{"id":7,"name":"Dr. Otieno"},{"id":"c-2","name":"Ms. Achieng"}]`))
	})

	list, err := client.ListCounselors(context.Background())
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, FlexString("7"), list[0].ID)
	assert.Equal(t, "Ms. Achieng", list[1].Name)
}

func TestListCounselors_Envelope(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"success":true,"data":[{"id":"c-1","name":"Dr. Mwangi"}]}`))
	})

	list, err := client.ListCounselors(context.Background())
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, FlexString("c-1"), list[0].ID)
}

func TestListCounselors_HTTPError(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "upstream failed", http.StatusBadGateway)
	})

	_, err := client.ListCounselors(context.Background())
	assert.Error(t, err)
}

func TestGetAccountDetails(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/payments/account-details", r.URL.Path)
		_, _ = w.Write([]byte(`{"data":{"accountName":"Wellness Hub","accountNumber":"123","paybillNumber":"400200"}}`))
	})

	details, err := client.GetAccountDetails(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "400200", details.PaybillNumber)
}

func TestGetAccountDetails_EmptyBodyIsMalformed(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{}`))
	})

	_, err := client.GetAccountDetails(context.Background())
	assert.ErrorIs(t, err, ErrMalformedResponse)
}

func TestSubmitBooking_Success(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "/api/web-bookings", r.URL.Path)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))

		var got booking.Payload
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		assert.Equal(t, "2024-03-15T14:30:00Z", got.AppointmentDate)
		assert.Equal(t, "Amina Wanjiru", got.FullName)

		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"success":true,"data":{"appointmentCode":"APT-001","counselor":{"id":7,"name":"Dr. Otieno"},"appointmentDate":"2024-03-15T14:30:00Z","paymentInstructions":{"paybill":"400200"},"paymentMethod":"mobile-money","paymentNote":"Pending verification"}}`))
	})

	conf, err := client.SubmitBooking(context.Background(), samplePayload(t))
	require.NoError(t, err)
	assert.Equal(t, "APT-001", conf.AppointmentCode)
	assert.Equal(t, CounselorRef{ID: "7", Name: "Dr. Otieno"}, conf.Counselor)
	assert.JSONEq(t, `{"paybill":"400200"}`, string(conf.PaymentInstructions))
}

func TestSubmitBooking_CounselorAsName(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"success":true,"data":{"appointmentCode":"APT-2","counselor":"Dr. Otieno"}}`))
	})

	conf, err := client.SubmitBooking(context.Background(), samplePayload(t))
	require.NoError(t, err)
	assert.Equal(t, "Dr. Otieno", conf.Counselor.Name)
}

func TestSubmitBooking_ValidationFailure(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"success":false,"message":"Validation failed","details":[{"field":"email","message":"Email already used"},{"message":"orphan"}]}`))
	})

	_, err := client.SubmitBooking(context.Background(), samplePayload(t))
	var rejected *RejectedError
	require.True(t, errors.As(err, &rejected))
	assert.Equal(t, http.StatusBadRequest, rejected.Status)
	assert.Equal(t, "Validation failed", rejected.Message)
	assert.Equal(t, map[string]string{"email": "Email already used"}, rejected.FieldErrors())
}

func TestSubmitBooking_SuccessFalseWith200(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"success":false,"message":"Slot no longer available"}`))
	})

	_, err := client.SubmitBooking(context.Background(), samplePayload(t))
	var rejected *RejectedError
	require.True(t, errors.As(err, &rejected))
	assert.Equal(t, http.StatusOK, rejected.Status)
	assert.Equal(t, "Slot no longer available", rejected.Message)
	assert.Nil(t, rejected.FieldErrors())
}

func TestSubmitBooking_ServerErrorPlainText(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	})

	_, err := client.SubmitBooking(context.Background(), samplePayload(t))
	var rejected *RejectedError
	require.True(t, errors.As(err, &rejected))
	assert.Equal(t, http.StatusInternalServerError, rejected.Status)
	assert.Contains(t, rejected.Message, "boom")
}

func TestSubmitBooking_TransportError(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
	url := ts.URL
	ts.Close()

	client := NewClient(url, time.Second, logging.Discard())
	_, err := client.SubmitBooking(context.Background(), samplePayload(t))
	require.Error(t, err)
	var rejected *RejectedError
	assert.False(t, errors.As(err, &rejected))
}

func TestSubmitBooking_MissingData(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"success":true}`))
	})

	_, err := client.SubmitBooking(context.Background(), samplePayload(t))
	assert.ErrorIs(t, err, ErrMalformedResponse)
}

func TestClient_ContextCancelled(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(100 * time.Millisecond)
		_, _ = w.Write([]byte(`[]`))
	})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := client.ListCounselors(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}
