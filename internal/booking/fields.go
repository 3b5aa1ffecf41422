package booking

// Draft field names as they appear on the wire and in FieldErrors.
const (
	FieldFullName              = "fullName"
	FieldEmail                 = "email"
	FieldPhone                 = "phone"
	FieldGender                = "gender"
	FieldDateOfBirth           = "dateOfBirth"
	FieldLocation              = "location"
	FieldOccupation            = "occupation"
	FieldEmergencyContactName  = "emergencyContactName"
	FieldEmergencyContactPhone = "emergencyContactPhone"

	FieldCounselorID         = "counselorId"
	FieldSessionType         = "sessionType"
	FieldSessionMode         = "sessionMode"
	FieldPreferredDate       = "preferredDate"
	FieldPreferredTime       = "preferredTime"
	FieldReasonForCounseling = "reasonForCounseling"
	FieldPreviousCounseling  = "previousCounseling"
	FieldAdditionalNotes     = "additionalNotes"
	FieldReferralSource      = "referralSource"

	FieldConsentConfidentiality = "consentConfidentiality"
	FieldConsentCancellation    = "consentCancellation"
	FieldConsentTerms           = "consentTerms"
	FieldConsentDataProcessing  = "consentDataProcessing"

	FieldPaymentMethod        = "paymentMethod"
	FieldMpesaPhoneNumber     = "mpesaPhoneNumber"
	FieldTransactionReference = "transactionReference"
	FieldPayerName            = "payerName"
	FieldAmountPaid           = "amountPaid"
	FieldPaymentConfirmed     = "paymentConfirmed"
)

// Wizard step bounds. Step 5 is the read-only review.
const (
	FirstStep  = 1
	ReviewStep = 5
)

var stepFields = map[int][]string{
	1: {
		FieldFullName, FieldEmail, FieldPhone, FieldGender, FieldDateOfBirth,
		FieldLocation, FieldOccupation, FieldEmergencyContactName, FieldEmergencyContactPhone,
	},
	2: {
		FieldCounselorID, FieldSessionType, FieldSessionMode, FieldPreferredDate, FieldPreferredTime,
		FieldReasonForCounseling, FieldPreviousCounseling, FieldAdditionalNotes, FieldReferralSource,
	},
	3: {
		FieldConsentConfidentiality, FieldConsentCancellation, FieldConsentTerms, FieldConsentDataProcessing,
	},
	4: {
		FieldPaymentMethod, FieldMpesaPhoneNumber, FieldTransactionReference,
		FieldPayerName, FieldAmountPaid, FieldPaymentConfirmed,
	},
}

var fieldStep = func() map[string]int {
	m := make(map[string]int)
	for step, fields := range stepFields {
		for _, f := range fields {
			m[f] = step
		}
	}
	return m
}()

// FieldsForStep lists the draft fields collected on a data-entry step.
func FieldsForStep(step int) []string {
	fields := stepFields[step]
	out := make([]string, len(fields))
	copy(out, fields)
	return out
}

// StepForField returns the step owning a field, or 0 for unknown fields.
func StepForField(field string) int {
	return fieldStep[field]
}

// FirstFailingStep returns the earliest step that owns a failing field.
// Fields no step owns (for example server-side keys) resolve to step 4, the
// last data-entry step. An empty mapping returns 0.
func FirstFailingStep(errs FieldErrors) int {
	if len(errs) == 0 {
		return 0
	}
	for step := 1; step <= 3; step++ {
		for _, f := range stepFields[step] {
			if _, ok := errs[f]; ok {
				return step
			}
		}
	}
	return 4
}
