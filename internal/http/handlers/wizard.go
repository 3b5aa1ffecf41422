package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"hash/fnv"
	"net/http"
	"sort"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/wolfman30/counseling-booking/internal/api"
	"github.com/wolfman30/counseling-booking/internal/booking"
	"github.com/wolfman30/counseling-booking/internal/drafts"
	"github.com/wolfman30/counseling-booking/internal/observability/metrics"
	"github.com/wolfman30/counseling-booking/internal/wizard"
	"github.com/wolfman30/counseling-booking/pkg/logging"
)

const sessionLockStripes = 64

// WizardConfig wires a WizardHandler.
type WizardConfig struct {
	Store           drafts.Store
	Client          wizard.BookingAPI
	Logger          *logging.Logger
	Metrics         *metrics.WizardMetrics
	Location        *time.Location
	FallbackAccount *api.AccountDetails
}

// WizardHandler hosts booking wizard sessions for a thin front end. Each
// request restores the session's draft, applies one operation and returns the
// resulting state; field errors live only in that response.
type WizardHandler struct {
	cfg    WizardConfig
	logger *logging.Logger
	locks  [sessionLockStripes]sync.Mutex
}

// NewWizardHandler creates the session handler.
func NewWizardHandler(cfg WizardConfig) *WizardHandler {
	if cfg.Store == nil {
		panic("handlers: draft store required")
	}
	if cfg.Client == nil {
		panic("handlers: booking API client required")
	}
	if cfg.Logger == nil {
		cfg.Logger = logging.Default()
	}
	return &WizardHandler{cfg: cfg, logger: cfg.Logger}
}

// SessionResponse is returned by every session endpoint.
type SessionResponse struct {
	SessionID string       `json:"sessionId"`
	State     wizard.State `json:"state"`
}

// FieldUpdateRequest is the body of PATCH .../fields.
type FieldUpdateRequest struct {
	Fields map[string]any `json:"fields"`
}

// CreateSession handles POST /wizard/sessions
func (h *WizardHandler) CreateSession(w http.ResponseWriter, r *http.Request) {
	id := uuid.NewString()
	c := h.controller(id)
	state := c.Restore(r.Context())
	if err := c.RestoreErr(); err != nil {
		h.logger.Error("draft store unavailable", "error", err, "session_id", id)
		writeError(w, http.StatusServiceUnavailable, "draft storage unavailable")
		return
	}
	h.logger.Info("wizard session created", "session_id", id)
	writeJSON(w, http.StatusCreated, SessionResponse{SessionID: id, State: state})
}

// GetSession handles GET /wizard/sessions/{sessionID}. Sessions are
// anonymous, so an id that was never created reads as a fresh session.
func (h *WizardHandler) GetSession(w http.ResponseWriter, r *http.Request) {
	h.withSession(w, r, func(ctx context.Context, c *wizard.Controller) (wizard.State, int, error) {
		return c.State(), http.StatusOK, nil
	})
}

// UpdateFields handles PATCH /wizard/sessions/{sessionID}/fields
func (h *WizardHandler) UpdateFields(w http.ResponseWriter, r *http.Request) {
	var req FieldUpdateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.logger.Warn("failed to decode field update", "error", err)
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if len(req.Fields) == 0 {
		writeError(w, http.StatusBadRequest, "no fields to update")
		return
	}

	// Apply in a stable order so the persisted result is deterministic.
	names := make([]string, 0, len(req.Fields))
	for name := range req.Fields {
		names = append(names, name)
	}
	sort.Strings(names)

	// A rejected update changes nothing: every name and value is checked on a
	// scratch draft before the session is touched.
	scratch := booking.NewDraft()
	for _, name := range names {
		if err := scratch.Set(name, req.Fields[name]); err != nil {
			writeError(w, http.StatusUnprocessableEntity, err.Error())
			return
		}
	}

	h.withSession(w, r, func(ctx context.Context, c *wizard.Controller) (wizard.State, int, error) {
		for _, name := range names {
			if _, err := c.Update(ctx, name, req.Fields[name]); err != nil {
				return c.State(), http.StatusUnprocessableEntity, err
			}
		}
		return c.State(), http.StatusOK, nil
	})
}

// Next handles POST /wizard/sessions/{sessionID}/next
func (h *WizardHandler) Next(w http.ResponseWriter, r *http.Request) {
	h.withSession(w, r, func(ctx context.Context, c *wizard.Controller) (wizard.State, int, error) {
		return c.Next(ctx), http.StatusOK, nil
	})
}

// Back handles POST /wizard/sessions/{sessionID}/back
func (h *WizardHandler) Back(w http.ResponseWriter, r *http.Request) {
	h.withSession(w, r, func(ctx context.Context, c *wizard.Controller) (wizard.State, int, error) {
		return c.Back(ctx), http.StatusOK, nil
	})
}

// Submit handles POST /wizard/sessions/{sessionID}/submit
func (h *WizardHandler) Submit(w http.ResponseWriter, r *http.Request) {
	h.withSession(w, r, func(ctx context.Context, c *wizard.Controller) (wizard.State, int, error) {
		state, err := c.Submit(ctx)
		if err != nil {
			return state, http.StatusConflict, err
		}
		return state, submissionStatus(state.Submission.Status), nil
	})
}

// Reset handles DELETE /wizard/sessions/{sessionID}
func (h *WizardHandler) Reset(w http.ResponseWriter, r *http.Request) {
	h.withSession(w, r, func(ctx context.Context, c *wizard.Controller) (wizard.State, int, error) {
		return c.Reset(ctx), http.StatusOK, nil
	})
}

// Confirmation handles GET /wizard/sessions/{sessionID}/confirmation. The
// confirmation is handed out once.
func (h *WizardHandler) Confirmation(w http.ResponseWriter, r *http.Request) {
	id, ok := h.sessionID(w, r)
	if !ok {
		return
	}
	unlock := h.lock(id)
	defer unlock()

	conf, err := wizard.NewStoreHandoff(h.sessionStore(id)).Take(r.Context())
	if errors.Is(err, wizard.ErrNoConfirmation) {
		writeError(w, http.StatusNotFound, "no confirmation available")
		return
	}
	if err != nil {
		h.logger.Error("failed to read confirmation", "error", err, "session_id", id)
		writeError(w, http.StatusInternalServerError, "failed to read confirmation")
		return
	}
	writeJSON(w, http.StatusOK, conf)
}

// ListCounselors handles GET /wizard/counselors
func (h *WizardHandler) ListCounselors(w http.ResponseWriter, r *http.Request) {
	guard := wizard.NewGuard()
	stop := context.AfterFunc(r.Context(), guard.Release)
	defer stop()

	list, err := h.controller("").LoadCounselors(r.Context(), guard)
	if errors.Is(err, wizard.ErrDiscarded) {
		return
	}
	if err != nil {
		writeError(w, http.StatusBadGateway, "counselors unavailable")
		return
	}
	if list == nil {
		list = []api.Counselor{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"counselors": list})
}

// PaymentAccount handles GET /wizard/payment-account
func (h *WizardHandler) PaymentAccount(w http.ResponseWriter, r *http.Request) {
	guard := wizard.NewGuard()
	stop := context.AfterFunc(r.Context(), guard.Release)
	defer stop()

	details, err := h.controller("").LoadPaymentAccount(r.Context(), guard)
	if err != nil {
		return
	}
	writeJSON(w, http.StatusOK, details)
}

// HealthCheck handles GET /health
func (h *WizardHandler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

type sessionOp func(ctx context.Context, c *wizard.Controller) (wizard.State, int, error)

func (h *WizardHandler) withSession(w http.ResponseWriter, r *http.Request, op sessionOp) {
	id, ok := h.sessionID(w, r)
	if !ok {
		return
	}
	unlock := h.lock(id)
	defer unlock()

	c := h.controller(id)
	c.Restore(r.Context())
	if err := c.RestoreErr(); err != nil {
		h.logger.Error("draft store unavailable", "error", err, "session_id", id)
		writeError(w, http.StatusServiceUnavailable, "draft storage unavailable")
		return
	}

	state, status, err := op(r.Context(), c)
	if err != nil {
		h.logger.Warn("wizard operation rejected", "error", err, "session_id", id, "path", r.URL.Path)
		writeJSON(w, status, struct {
			Error string `json:"error"`
			SessionResponse
		}{Error: err.Error(), SessionResponse: SessionResponse{SessionID: id, State: state}})
		return
	}
	writeJSON(w, status, SessionResponse{SessionID: id, State: state})
}

func (h *WizardHandler) sessionID(w http.ResponseWriter, r *http.Request) (string, bool) {
	raw := chi.URLParam(r, "sessionID")
	id, err := uuid.Parse(raw)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid session id")
		return "", false
	}
	return id.String(), true
}

func (h *WizardHandler) sessionStore(id string) drafts.Store {
	return drafts.Prefixed(h.cfg.Store, "session:"+id+":")
}

func (h *WizardHandler) controller(id string) *wizard.Controller {
	store := h.cfg.Store
	logger := h.logger
	if id != "" {
		store = h.sessionStore(id)
		logger = logger.With("session_id", id)
	}
	return wizard.NewController(wizard.Options{
		Store:           store,
		Client:          h.cfg.Client,
		Logger:          logger,
		Metrics:         h.cfg.Metrics,
		Location:        h.cfg.Location,
		FallbackAccount: h.cfg.FallbackAccount,
	})
}

// lock serializes operations on one session within this process.
func (h *WizardHandler) lock(id string) func() {
	hash := fnv.New32a()
	_, _ = hash.Write([]byte(id))
	mu := &h.locks[hash.Sum32()%sessionLockStripes]
	mu.Lock()
	return mu.Unlock
}

// submissionStatus maps a submit outcome to a response code. Failed
// attempts still answer 200: the outcome is carried in state.submission.
func submissionStatus(status wizard.Status) int {
	if status == wizard.StatusSuccess {
		return http.StatusCreated
	}
	return http.StatusOK
}
