package drafts

import (
	"errors"
	"fmt"
	"strings"

	jsoniter "github.com/json-iterator/go"

	"github.com/wolfman30/counseling-booking/internal/booking"
)

// ErrCorruptDraft is returned when a persisted draft cannot be decoded.
var ErrCorruptDraft = errors.New("drafts: corrupt persisted draft")

var codec = jsoniter.ConfigCompatibleWithStandardLibrary

// Snapshot is the persisted form: the full draft plus the active step.
type Snapshot struct {
	booking.Draft
	CurrentStep int `json:"currentStep"`
}

// Encode serializes the draft augmented with the current step.
func Encode(d booking.Draft, step int) (string, error) {
	raw, err := codec.MarshalToString(Snapshot{Draft: d, CurrentStep: step})
	if err != nil {
		return "", fmt.Errorf("drafts: encode: %w", err)
	}
	return raw, nil
}

// Decode restores a snapshot. Keys missing from raw keep their defaults from
// booking.NewDraft, and an out-of-range step resets to the first step.
func Decode(raw string) (Snapshot, error) {
	if strings.TrimSpace(raw) == "" || !codec.Valid([]byte(raw)) {
		return Snapshot{}, ErrCorruptDraft
	}
	snap := Snapshot{Draft: booking.NewDraft(), CurrentStep: booking.FirstStep}
	if err := codec.UnmarshalFromString(raw, &snap); err != nil {
		return Snapshot{}, fmt.Errorf("%w: %v", ErrCorruptDraft, err)
	}
	if snap.CurrentStep < booking.FirstStep || snap.CurrentStep > booking.ReviewStep {
		snap.CurrentStep = booking.FirstStep
	}
	return snap, nil
}
