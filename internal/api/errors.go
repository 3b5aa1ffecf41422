package api

import (
	"errors"
	"fmt"
)

// ErrMalformedResponse is returned when a 2xx body cannot be understood.
var ErrMalformedResponse = errors.New("api: malformed response")

// RejectedError reports a booking the server refused, either with a non-2xx
// status or with success:false in the body.
type RejectedError struct {
	Status  int
	Message string
	Details []FieldDetail
}

func (e *RejectedError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("api: booking rejected (status %d)", e.Status)
	}
	return fmt.Sprintf("api: booking rejected (status %d): %s", e.Status, e.Message)
}

// FieldErrors flattens Details into a field-to-message mapping. Details
// without a field name are skipped.
func (e *RejectedError) FieldErrors() map[string]string {
	if len(e.Details) == 0 {
		return nil
	}
	out := make(map[string]string, len(e.Details))
	for _, d := range e.Details {
		if d.Field == "" {
			continue
		}
		out[d.Field] = d.Message
	}
	return out
}
