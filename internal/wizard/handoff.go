package wizard

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/wolfman30/counseling-booking/internal/api"
	"github.com/wolfman30/counseling-booking/internal/drafts"
)

// ErrNoConfirmation is returned when no handed-off confirmation is waiting.
var ErrNoConfirmation = errors.New("wizard: no confirmation available")

// Handoff passes a successful booking's confirmation to the next screen.
type Handoff interface {
	Deliver(ctx context.Context, conf *api.Confirmation) error
}

// StoreHandoff parks the confirmation in the draft store under
// drafts.ConfirmationKey, where the confirmation screen picks it up.
type StoreHandoff struct {
	store drafts.Store
}

// NewStoreHandoff creates a hand-off backed by store.
func NewStoreHandoff(store drafts.Store) *StoreHandoff {
	return &StoreHandoff{store: store}
}

func (h *StoreHandoff) Deliver(ctx context.Context, conf *api.Confirmation) error {
	if conf == nil {
		return fmt.Errorf("handoff: %w", ErrNoConfirmation)
	}
	raw, err := json.Marshal(conf)
	if err != nil {
		return fmt.Errorf("handoff: encode confirmation: %w", err)
	}
	if err := h.store.Set(ctx, drafts.ConfirmationKey, string(raw)); err != nil {
		return fmt.Errorf("handoff: %w", err)
	}
	return nil
}

// Take reads and removes the parked confirmation.
func (h *StoreHandoff) Take(ctx context.Context) (*api.Confirmation, error) {
	raw, ok, err := h.store.Get(ctx, drafts.ConfirmationKey)
	if err != nil {
		return nil, fmt.Errorf("handoff: %w", err)
	}
	if !ok {
		return nil, ErrNoConfirmation
	}
	var conf api.Confirmation
	if err := json.Unmarshal([]byte(raw), &conf); err != nil {
		return nil, fmt.Errorf("handoff: decode confirmation: %w", err)
	}
	if err := h.store.Remove(ctx, drafts.ConfirmationKey); err != nil {
		return nil, fmt.Errorf("handoff: %w", err)
	}
	return &conf, nil
}
