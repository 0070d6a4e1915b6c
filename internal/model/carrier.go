package model

// Unavailable marks a carrier field that could not be extracted. Fields are
// never left empty.
const Unavailable = "N/A"

// CarrierRecord is the structured registration detail extracted for a
// verified carrier.
type CarrierRecord struct {
	LegalName          string `json:"legal_name"`
	RegistrationNumber string `json:"registration_number"`
	Address            string `json:"address"`
	Telephone          string `json:"telephone"`
	Email              string `json:"email"`
}

// UnavailableRecord returns a record with every field set to Unavailable.
func UnavailableRecord() CarrierRecord {
	return CarrierRecord{
		LegalName:          Unavailable,
		RegistrationNumber: Unavailable,
		Address:            Unavailable,
		Telephone:          Unavailable,
		Email:              Unavailable,
	}
}

// HasEmail reports whether the record carries a usable contact address.
func (r CarrierRecord) HasEmail() bool {
	return r.Email != "" && r.Email != Unavailable
}

// FieldsFound counts fields holding an extracted value.
func (r CarrierRecord) FieldsFound() int {
	n := 0
	for _, v := range []string{r.LegalName, r.RegistrationNumber, r.Address, r.Telephone, r.Email} {
		if v != "" && v != Unavailable {
			n++
		}
	}
	return n
}

// FollowupStatus records what happened to the outreach notification for a
// ledger row.
type FollowupStatus string

const (
	FollowupNotAttempted FollowupStatus = "Not Yet"
	FollowupEmailSent    FollowupStatus = "Email Sent"
	FollowupSendFailed   FollowupStatus = "Send Failed"
)

// LedgerRow is the unit of persistence for a verified identifier.
type LedgerRow struct {
	Identifier int            `json:"identifier"`
	Record     CarrierRecord  `json:"record"`
	Followup   FollowupStatus `json:"followup"`
}

// FailureEntry is appended to the failure log when the session could not
// reach a classifiable state for an identifier.
type FailureEntry struct {
	Identifier int    `json:"identifier"`
	Reason     string `json:"reason"`
}
