// Package bookingtest provides draft fixtures shared by tests.
package bookingtest

import "github.com/wolfman30/counseling-booking/internal/booking"

// ValidDraft returns a draft that passes every step validator.
func ValidDraft() booking.Draft {
	d := booking.NewDraft()
	d.FullName = "  Amina Wanjiru "
	d.Email = "Amina@Example.com"
	d.Phone = "+254700000001"
	d.Gender = "female"
	d.EmergencyContactName = "Joseph Wanjiru"
	d.EmergencyContactPhone = "+254700000002"

	d.CounselorID = "c-42"
	d.SessionType = "individual"
	d.SessionMode = "online"
	d.PreferredDate = "2024-03-15"
	d.PreferredTime = "14:30"
	d.ReasonForCounseling = "Stress at work"
	d.PreviousCounseling = "yes"

	d.ConsentConfidentiality = true
	d.ConsentCancellation = true
	d.ConsentTerms = true
	d.ConsentDataProcessing = true

	d.PaymentMethod = booking.PaymentMobileMoney
	d.MpesaPhoneNumber = "0700000001"
	d.PaymentConfirmed = true
	return d
}
