package api

// FallbackAccountDetails is shown when the account-details endpoint fails.
var FallbackAccountDetails = AccountDetails{
	AccountName:   "Counseling Centre",
	AccountNumber: "0000000000",
	PaybillNumber: "000000",
}
