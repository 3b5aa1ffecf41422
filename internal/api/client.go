package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/wolfman30/counseling-booking/internal/booking"
	"github.com/wolfman30/counseling-booking/internal/observability/metrics"
	"github.com/wolfman30/counseling-booking/pkg/logging"
)

const (
	pathCounselors     = "/api/counselors/public"
	pathAccountDetails = "/api/payments/account-details"
	pathWebBookings    = "/api/web-bookings"

	maxLoggedBody = 300
)

var apiTracer = otel.Tracer("counseling.internal.api")

// Client wraps the counseling service endpoints used by the booking wizard.
// It never retries; every failure is returned to the caller.
type Client struct {
	httpClient *http.Client
	baseURL    string
	logger     *logging.Logger
	metrics    *metrics.WizardMetrics
}

// Option customizes a Client.
type Option func(*Client)

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.httpClient = hc
		}
	}
}

// WithMetrics records per-endpoint latency.
func WithMetrics(m *metrics.WizardMetrics) Option {
	return func(c *Client) { c.metrics = m }
}

// NewClient constructs an API client. A zero timeout disables the client-side
// deadline; callers then rely on their context.
func NewClient(baseURL string, timeout time.Duration, logger *logging.Logger, opts ...Option) *Client {
	if logger == nil {
		logger = logging.Default()
	}
	c := &Client{
		httpClient: &http.Client{Timeout: timeout},
		baseURL:    strings.TrimRight(strings.TrimSpace(baseURL), "/"),
		logger:     logger,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// ListCounselors returns the public counselor list. Both a bare JSON array
// and a {"data": [...]} envelope are accepted.
func (c *Client) ListCounselors(ctx context.Context) ([]Counselor, error) {
	status, body, err := c.do(ctx, "counselors", http.MethodGet, pathCounselors, nil)
	if err != nil {
		return nil, fmt.Errorf("list counselors: %w", err)
	}
	if !isSuccess(status) {
		return nil, fmt.Errorf("list counselors: status %d: %s", status, truncate(body))
	}

	trimmed := bytes.TrimSpace(body)
	if len(trimmed) > 0 && trimmed[0] == '[' {
		var list []Counselor
		if err := json.Unmarshal(trimmed, &list); err != nil {
			return nil, fmt.Errorf("list counselors: %w: %v", ErrMalformedResponse, err)
		}
		return list, nil
	}
	var wrapped struct {
		Data       []Counselor `json:"data"`
		Counselors []Counselor `json:"counselors"`
	}
	if err := json.Unmarshal(trimmed, &wrapped); err != nil {
		return nil, fmt.Errorf("list counselors: %w: %v", ErrMalformedResponse, err)
	}
	if len(wrapped.Data) > 0 {
		return wrapped.Data, nil
	}
	return wrapped.Counselors, nil
}

// GetAccountDetails returns the payment account. Callers show
// FallbackAccountDetails when this fails.
func (c *Client) GetAccountDetails(ctx context.Context) (*AccountDetails, error) {
	status, body, err := c.do(ctx, "account_details", http.MethodGet, pathAccountDetails, nil)
	if err != nil {
		return nil, fmt.Errorf("account details: %w", err)
	}
	if !isSuccess(status) {
		return nil, fmt.Errorf("account details: status %d: %s", status, truncate(body))
	}
	var wrapped struct {
		AccountDetails
		Data *AccountDetails `json:"data"`
	}
	if err := json.Unmarshal(body, &wrapped); err != nil {
		return nil, fmt.Errorf("account details: %w: %v", ErrMalformedResponse, err)
	}
	details := wrapped.AccountDetails
	if wrapped.Data != nil {
		details = *wrapped.Data
	}
	if details == (AccountDetails{}) {
		return nil, fmt.Errorf("account details: %w: empty body", ErrMalformedResponse)
	}
	return &details, nil
}

// SubmitBooking posts a normalized booking. A non-2xx status or success:false
// returns *RejectedError; transport failures return a wrapped error.
func (c *Client) SubmitBooking(ctx context.Context, payload booking.Payload) (*Confirmation, error) {
	ctx, span := apiTracer.Start(ctx, "api.submit_booking")
	defer span.End()
	span.SetAttributes(
		attribute.String("booking.payment_method", payload.PaymentMethod),
		attribute.String("booking.counselor_id", payload.CounselorID),
	)

	status, body, err := c.do(ctx, "web_bookings", http.MethodPost, pathWebBookings, payload)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "transport")
		return nil, fmt.Errorf("submit booking: %w", err)
	}
	span.SetAttributes(attribute.Int("http.status_code", status))

	var resp bookingResponse
	decodeErr := json.Unmarshal(body, &resp)

	if !isSuccess(status) || (decodeErr == nil && resp.Success != nil && !*resp.Success) {
		rejected := &RejectedError{Status: status, Message: firstNonEmpty(resp.Message, resp.Error), Details: resp.Details}
		if decodeErr != nil && rejected.Message == "" {
			rejected.Message = truncate(body)
		}
		span.SetStatus(codes.Error, "rejected")
		c.logger.Warn("booking rejected", "status", status, "message", rejected.Message, "details", len(rejected.Details))
		return nil, rejected
	}
	if decodeErr != nil {
		span.RecordError(decodeErr)
		return nil, fmt.Errorf("submit booking: %w: %v", ErrMalformedResponse, decodeErr)
	}
	if resp.Data == nil {
		return nil, fmt.Errorf("submit booking: %w: missing data", ErrMalformedResponse)
	}
	span.SetAttributes(attribute.String("booking.appointment_code", resp.Data.AppointmentCode))
	return resp.Data, nil
}

func (c *Client) do(ctx context.Context, endpoint, method, path string, body any) (int, []byte, error) {
	var reader io.Reader
	if body != nil {
		buf, err := json.Marshal(body)
		if err != nil {
			return 0, nil, fmt.Errorf("encode request: %w", err)
		}
		reader = bytes.NewReader(buf)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return 0, nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.metrics.ObserveAPICall(endpoint, statusLabel(0), time.Since(start).Seconds())
		return 0, nil, fmt.Errorf("http request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	c.metrics.ObserveAPICall(endpoint, statusLabel(resp.StatusCode), time.Since(start).Seconds())
	if err != nil {
		return resp.StatusCode, nil, fmt.Errorf("read response: %w", err)
	}
	if !isSuccess(resp.StatusCode) {
		c.logger.Warn("booking API non-2xx response", "status", resp.StatusCode, "path", path, "body", truncate(respBody))
	}
	return resp.StatusCode, respBody, nil
}

func isSuccess(status int) bool {
	return status >= 200 && status <= 299
}

func truncate(body []byte) string {
	msg := string(body)
	if len(msg) > maxLoggedBody {
		msg = msg[:maxLoggedBody]
	}
	return msg
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}
