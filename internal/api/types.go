// Package api is the client for the counseling service's public HTTP API.
package api

import (
	"bytes"
	"encoding/json"
	"strconv"
)

// FlexString decodes a JSON string or number into a string. Counselor ids
// arrive as either depending on the backing store.
type FlexString string

func (f *FlexString) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*f = ""
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*f = FlexString(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return err
	}
	*f = FlexString(n.String())
	return nil
}

// Counselor is an entry of GET /api/counselors/public.
type Counselor struct {
	ID   FlexString `json:"id"`
	Name string     `json:"name"`
}

// AccountDetails is the payment account shown on the payment step.
type AccountDetails struct {
	AccountName   string `json:"accountName"`
	AccountNumber string `json:"accountNumber"`
	PaybillNumber string `json:"paybillNumber"`
}

// CounselorRef decodes the counselor of a confirmation, sent either as a
// plain name or as an object with a name.
type CounselorRef struct {
	ID   string `json:"id,omitempty"`
	Name string `json:"name"`
}

func (c *CounselorRef) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] == '"' {
		var name string
		if err := json.Unmarshal(data, &name); err != nil {
			return err
		}
		*c = CounselorRef{Name: name}
		return nil
	}
	var obj struct {
		ID   FlexString `json:"id"`
		Name string     `json:"name"`
	}
	if err := json.Unmarshal(data, &obj); err != nil {
		return err
	}
	*c = CounselorRef{ID: string(obj.ID), Name: obj.Name}
	return nil
}

// Confirmation is the data block of a successful web booking.
type Confirmation struct {
	AppointmentCode     string          `json:"appointmentCode"`
	Counselor           CounselorRef    `json:"counselor"`
	AppointmentDate     string          `json:"appointmentDate"`
	PaymentInstructions json.RawMessage `json:"paymentInstructions,omitempty"`
	PaymentMethod       string          `json:"paymentMethod"`
	PaymentNote         string          `json:"paymentNote,omitempty"`
}

// FieldDetail is one server-side validation failure.
type FieldDetail struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

type bookingResponse struct {
	Success *bool         `json:"success"`
	Message string        `json:"message"`
	Error   string        `json:"error"`
	Data    *Confirmation `json:"data"`
	Details []FieldDetail `json:"details"`
}

func statusLabel(code int) string {
	if code == 0 {
		return "error"
	}
	return strconv.Itoa(code)
}
