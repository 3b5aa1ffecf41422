// Package booking holds the counseling booking draft, its per-step
// validators and the normalized payload sent to the booking endpoint.
package booking

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// Payment methods accepted on step 4.
const (
	PaymentMobileMoney = "mobile-money"
	PaymentBank        = "bank"
)

// ErrUnknownField is returned when a field name does not belong to the draft.
var ErrUnknownField = errors.New("booking: unknown draft field")

// Draft is the in-progress booking form. Every field always carries a value
// so persisted drafts can be diffed and merged without missing keys.
type Draft struct {
	// Step 1: personal and contact information.
	FullName              string `json:"fullName"`
	Email                 string `json:"email"`
	Phone                 string `json:"phone"`
	Gender                string `json:"gender"`
	DateOfBirth           string `json:"dateOfBirth"`
	Location              string `json:"location"`
	Occupation            string `json:"occupation"`
	EmergencyContactName  string `json:"emergencyContactName"`
	EmergencyContactPhone string `json:"emergencyContactPhone"`

	// Step 2: appointment preferences.
	CounselorID         string `json:"counselorId"`
	SessionType         string `json:"sessionType"`
	SessionMode         string `json:"sessionMode"`
	PreferredDate       string `json:"preferredDate"`
	PreferredTime       string `json:"preferredTime"`
	ReasonForCounseling string `json:"reasonForCounseling"`
	PreviousCounseling  string `json:"previousCounseling"`
	AdditionalNotes     string `json:"additionalNotes"`
	ReferralSource      string `json:"referralSource"`

	// Step 3: consent acknowledgements.
	ConsentConfidentiality bool `json:"consentConfidentiality"`
	ConsentCancellation    bool `json:"consentCancellation"`
	ConsentTerms           bool `json:"consentTerms"`
	ConsentDataProcessing  bool `json:"consentDataProcessing"`

	// Step 4: payment.
	PaymentMethod        string `json:"paymentMethod"`
	MpesaPhoneNumber     string `json:"mpesaPhoneNumber"`
	TransactionReference string `json:"transactionReference"`
	PayerName            string `json:"payerName"`
	AmountPaid           string `json:"amountPaid"`
	PaymentConfirmed     bool   `json:"paymentConfirmed"`
}

// NewDraft returns a draft populated with defaults.
func NewDraft() Draft {
	return Draft{
		SessionType:        "individual",
		SessionMode:        "in-person",
		PreviousCounseling: "no",
		PaymentMethod:      PaymentMobileMoney,
	}
}

// Set updates a single field addressed by its JSON name. Boolean fields accept
// either a bool or a string toggle such as "true", "yes", "on" or "1".
func (d *Draft) Set(field string, value any) error {
	if target := d.stringField(field); target != nil {
		s, err := coerceString(value)
		if err != nil {
			return fmt.Errorf("booking: field %s: %w", field, err)
		}
		*target = s
		return nil
	}
	if target := d.boolField(field); target != nil {
		b, err := coerceBool(value)
		if err != nil {
			return fmt.Errorf("booking: field %s: %w", field, err)
		}
		*target = b
		return nil
	}
	return fmt.Errorf("%w: %s", ErrUnknownField, field)
}

// Get returns the current value of a field addressed by its JSON name.
func (d *Draft) Get(field string) (any, bool) {
	if target := d.stringField(field); target != nil {
		return *target, true
	}
	if target := d.boolField(field); target != nil {
		return *target, true
	}
	return nil, false
}

func (d *Draft) stringField(field string) *string {
	switch field {
	case FieldFullName:
		return &d.FullName
	case FieldEmail:
		return &d.Email
	case FieldPhone:
		return &d.Phone
	case FieldGender:
		return &d.Gender
	case FieldDateOfBirth:
		return &d.DateOfBirth
	case FieldLocation:
		return &d.Location
	case FieldOccupation:
		return &d.Occupation
	case FieldEmergencyContactName:
		return &d.EmergencyContactName
	case FieldEmergencyContactPhone:
		return &d.EmergencyContactPhone
	case FieldCounselorID:
		return &d.CounselorID
	case FieldSessionType:
		return &d.SessionType
	case FieldSessionMode:
		return &d.SessionMode
	case FieldPreferredDate:
		return &d.PreferredDate
	case FieldPreferredTime:
		return &d.PreferredTime
	case FieldReasonForCounseling:
		return &d.ReasonForCounseling
	case FieldPreviousCounseling:
		return &d.PreviousCounseling
	case FieldAdditionalNotes:
		return &d.AdditionalNotes
	case FieldReferralSource:
		return &d.ReferralSource
	case FieldPaymentMethod:
		return &d.PaymentMethod
	case FieldMpesaPhoneNumber:
		return &d.MpesaPhoneNumber
	case FieldTransactionReference:
		return &d.TransactionReference
	case FieldPayerName:
		return &d.PayerName
	case FieldAmountPaid:
		return &d.AmountPaid
	}
	return nil
}

func (d *Draft) boolField(field string) *bool {
	switch field {
	case FieldConsentConfidentiality:
		return &d.ConsentConfidentiality
	case FieldConsentCancellation:
		return &d.ConsentCancellation
	case FieldConsentTerms:
		return &d.ConsentTerms
	case FieldConsentDataProcessing:
		return &d.ConsentDataProcessing
	case FieldPaymentConfirmed:
		return &d.PaymentConfirmed
	}
	return nil
}

func coerceString(value any) (string, error) {
	switch v := value.(type) {
	case nil:
		return "", nil
	case string:
		return v, nil
	case bool:
		return strconv.FormatBool(v), nil
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64), nil
	case int:
		return strconv.Itoa(v), nil
	case fmt.Stringer:
		return v.String(), nil
	default:
		return "", fmt.Errorf("unsupported value type %T", value)
	}
}

func coerceBool(value any) (bool, error) {
	switch v := value.(type) {
	case nil:
		return false, nil
	case bool:
		return v, nil
	case string:
		return ParseToggle(v), nil
	default:
		return false, fmt.Errorf("unsupported value type %T", value)
	}
}

// ParseToggle interprets a form toggle value. Anything other than an
// affirmative token is false.
func ParseToggle(value string) bool {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "true", "yes", "on", "1", "y":
		return true
	default:
		return false
	}
}
