package booking

import (
	"regexp"
	"strings"
)

// Validation messages shown next to fields.
const (
	MsgInvalidEmail    = "Please enter a valid email address"
	MsgInvalidDateTime = "Please choose a valid date and time"
	MsgConsentRequired = "You must accept this to continue"
	MsgPaymentConfirm  = "Please confirm that you have made the payment"
	MsgMpesaRequired   = "M-Pesa phone number is required for mobile money payments"
	MsgBankRefRequired = "Transaction reference is required for bank transfers"
	MsgInvalidMethod   = "Please choose a supported payment method"
)

var emailPattern = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

// FieldErrors maps a field name to a human-readable message.
type FieldErrors map[string]string

// Empty reports whether no field failed.
func (e FieldErrors) Empty() bool { return len(e) == 0 }

// Merge copies other's entries into e, overwriting duplicates. e may be nil,
// in which case a new mapping is returned.
func (e FieldErrors) Merge(other FieldErrors) FieldErrors {
	if len(other) == 0 {
		return e
	}
	if e == nil {
		e = make(FieldErrors, len(other))
	}
	for k, v := range other {
		e[k] = v
	}
	return e
}

// Clone returns an independent copy.
func (e FieldErrors) Clone() FieldErrors {
	if e == nil {
		return nil
	}
	out := make(FieldErrors, len(e))
	for k, v := range e {
		out[k] = v
	}
	return out
}

func (e FieldErrors) require(field, value, message string) {
	if strings.TrimSpace(value) == "" {
		e[field] = message
	}
}

// ValidateStep1 checks personal and contact information.
func ValidateStep1(d Draft) FieldErrors {
	errs := FieldErrors{}
	errs.require(FieldFullName, d.FullName, "Full name is required")
	errs.require(FieldEmail, d.Email, "Email address is required")
	if _, missing := errs[FieldEmail]; !missing && !emailPattern.MatchString(strings.TrimSpace(d.Email)) {
		errs[FieldEmail] = MsgInvalidEmail
	}
	errs.require(FieldPhone, d.Phone, "Phone number is required")
	errs.require(FieldEmergencyContactName, d.EmergencyContactName, "Emergency contact name is required")
	errs.require(FieldEmergencyContactPhone, d.EmergencyContactPhone, "Emergency contact phone is required")
	return errs
}

// ValidateStep2 checks appointment preferences, including that the preferred
// date and time combine into a real instant.
func ValidateStep2(d Draft) FieldErrors {
	errs := FieldErrors{}
	errs.require(FieldCounselorID, d.CounselorID, "Please choose a counselor")
	errs.require(FieldSessionType, d.SessionType, "Session type is required")
	errs.require(FieldSessionMode, d.SessionMode, "Session mode is required")
	errs.require(FieldPreferredDate, d.PreferredDate, "Preferred date is required")
	errs.require(FieldPreferredTime, d.PreferredTime, "Preferred time is required")
	errs.require(FieldReasonForCounseling, d.ReasonForCounseling, "Please tell us why you are seeking counseling")

	_, dateMissing := errs[FieldPreferredDate]
	_, timeMissing := errs[FieldPreferredTime]
	if !dateMissing && !timeMissing {
		if _, err := CombineDateTime(d.PreferredDate, d.PreferredTime, nil); err != nil {
			errs[FieldPreferredDate] = MsgInvalidDateTime
			errs[FieldPreferredTime] = MsgInvalidDateTime
		}
	}
	return errs
}

// ValidateStep3 requires every consent acknowledgement.
func ValidateStep3(d Draft) FieldErrors {
	errs := FieldErrors{}
	consents := []struct {
		field string
		ok    bool
	}{
		{FieldConsentConfidentiality, d.ConsentConfidentiality},
		{FieldConsentCancellation, d.ConsentCancellation},
		{FieldConsentTerms, d.ConsentTerms},
		{FieldConsentDataProcessing, d.ConsentDataProcessing},
	}
	for _, c := range consents {
		if !c.ok {
			errs[c.field] = MsgConsentRequired
		}
	}
	return errs
}

// ValidateStep4 checks the payment method and its method-specific proof.
func ValidateStep4(d Draft) FieldErrors {
	errs := FieldErrors{}
	switch strings.TrimSpace(d.PaymentMethod) {
	case "":
		errs[FieldPaymentMethod] = "Payment method is required"
	case PaymentMobileMoney:
		errs.require(FieldMpesaPhoneNumber, d.MpesaPhoneNumber, MsgMpesaRequired)
	case PaymentBank:
		errs.require(FieldTransactionReference, d.TransactionReference, MsgBankRefRequired)
	default:
		errs[FieldPaymentMethod] = MsgInvalidMethod
	}
	if !d.PaymentConfirmed {
		errs[FieldPaymentConfirmed] = MsgPaymentConfirm
	}
	return errs
}

// ValidateStep dispatches to the validator for a data-entry step. The review
// step and out-of-range steps have nothing to validate.
func ValidateStep(step int, d Draft) FieldErrors {
	switch step {
	case 1:
		return ValidateStep1(d)
	case 2:
		return ValidateStep2(d)
	case 3:
		return ValidateStep3(d)
	case 4:
		return ValidateStep4(d)
	default:
		return FieldErrors{}
	}
}

// ValidateAll composes every step validator. Step field sets are disjoint so
// no key is overwritten.
func ValidateAll(d Draft) FieldErrors {
	errs := FieldErrors{}
	for step := 1; step <= 4; step++ {
		errs.Merge(ValidateStep(step, d))
	}
	return errs
}
