package booking

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// ErrInvalidDateTime is returned when the preferred date and time do not form
// a real calendar instant.
var ErrInvalidDateTime = errors.New("booking: invalid appointment date/time")

var timeLayouts = []string{"15:04", "15:04:05", "3:04 PM", "3:04PM"}

// Payload is the normalized request body for POST /api/web-bookings.
type Payload struct {
	FullName              string `json:"fullName"`
	Email                 string `json:"email"`
	Phone                 string `json:"phone"`
	Gender                string `json:"gender,omitempty"`
	DateOfBirth           string `json:"dateOfBirth,omitempty"`
	Location              string `json:"location,omitempty"`
	Occupation            string `json:"occupation,omitempty"`
	EmergencyContactName  string `json:"emergencyContactName"`
	EmergencyContactPhone string `json:"emergencyContactPhone"`

	CounselorID         string `json:"counselorId"`
	SessionType         string `json:"sessionType"`
	SessionMode         string `json:"sessionMode"`
	AppointmentDate     string `json:"appointmentDate"`
	ReasonForCounseling string `json:"reasonForCounseling"`
	PreviousCounseling  bool   `json:"previousCounseling"`
	AdditionalNotes     string `json:"additionalNotes,omitempty"`
	ReferralSource      string `json:"referralSource,omitempty"`

	ConsentConfidentiality bool `json:"consentConfidentiality"`
	ConsentCancellation    bool `json:"consentCancellation"`
	ConsentTerms           bool `json:"consentTerms"`
	ConsentDataProcessing  bool `json:"consentDataProcessing"`

	PaymentMethod        string `json:"paymentMethod"`
	MpesaPhoneNumber     string `json:"mpesaPhoneNumber,omitempty"`
	TransactionReference string `json:"transactionReference,omitempty"`
	PayerName            string `json:"payerName,omitempty"`
	AmountPaid           string `json:"amountPaid,omitempty"`
	PaymentConfirmed     bool   `json:"paymentConfirmed"`
}

// CombineDateTime joins a YYYY-MM-DD date and a clock time into one instant
// in loc (UTC when nil). Impossible dates such as 2024-02-30 are rejected.
func CombineDateTime(date, clock string, loc *time.Location) (time.Time, error) {
	if loc == nil {
		loc = time.UTC
	}
	date = strings.TrimSpace(date)
	clock = strings.TrimSpace(clock)
	day, err := time.ParseInLocation("2006-01-02", date, loc)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: date %q", ErrInvalidDateTime, date)
	}
	for _, layout := range timeLayouts {
		t, err := time.Parse(layout, clock)
		if err != nil {
			continue
		}
		return time.Date(day.Year(), day.Month(), day.Day(), t.Hour(), t.Minute(), t.Second(), 0, loc), nil
	}
	return time.Time{}, fmt.Errorf("%w: time %q", ErrInvalidDateTime, clock)
}

// BuildPayload normalizes a draft for submission: strings are trimmed, the
// preferred date and time become one ISO-8601 UTC timestamp and toggles are
// coerced to booleans. Only the fields relevant to the chosen payment method
// are sent.
func BuildPayload(d Draft, loc *time.Location) (Payload, error) {
	at, err := CombineDateTime(d.PreferredDate, d.PreferredTime, loc)
	if err != nil {
		return Payload{}, err
	}

	method := strings.TrimSpace(d.PaymentMethod)
	p := Payload{
		FullName:              strings.TrimSpace(d.FullName),
		Email:                 strings.ToLower(strings.TrimSpace(d.Email)),
		Phone:                 strings.TrimSpace(d.Phone),
		Gender:                strings.TrimSpace(d.Gender),
		DateOfBirth:           strings.TrimSpace(d.DateOfBirth),
		Location:              strings.TrimSpace(d.Location),
		Occupation:            strings.TrimSpace(d.Occupation),
		EmergencyContactName:  strings.TrimSpace(d.EmergencyContactName),
		EmergencyContactPhone: strings.TrimSpace(d.EmergencyContactPhone),

		CounselorID:         strings.TrimSpace(d.CounselorID),
		SessionType:         strings.TrimSpace(d.SessionType),
		SessionMode:         strings.TrimSpace(d.SessionMode),
		AppointmentDate:     at.UTC().Format(time.RFC3339),
		ReasonForCounseling: strings.TrimSpace(d.ReasonForCounseling),
		PreviousCounseling:  ParseToggle(d.PreviousCounseling),
		AdditionalNotes:     strings.TrimSpace(d.AdditionalNotes),
		ReferralSource:      strings.TrimSpace(d.ReferralSource),

		ConsentConfidentiality: d.ConsentConfidentiality,
		ConsentCancellation:    d.ConsentCancellation,
		ConsentTerms:           d.ConsentTerms,
		ConsentDataProcessing:  d.ConsentDataProcessing,

		PaymentMethod:    method,
		PayerName:        strings.TrimSpace(d.PayerName),
		AmountPaid:       strings.TrimSpace(d.AmountPaid),
		PaymentConfirmed: d.PaymentConfirmed,
	}
	switch method {
	case PaymentMobileMoney:
		p.MpesaPhoneNumber = strings.TrimSpace(d.MpesaPhoneNumber)
	case PaymentBank:
		p.TransactionReference = strings.TrimSpace(d.TransactionReference)
	}
	return p, nil
}
