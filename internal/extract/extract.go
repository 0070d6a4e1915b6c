// Package extract parses the carrier registration detail text into a
// CarrierRecord.
package extract

import (
	"regexp"
	"strings"

	"github.com/sells-group/safer-cli/internal/model"
)

// Each field has its own pattern so a missing label never blocks the others.
var (
	legalNameRe = regexp.MustCompile(`Legal Name:\s*(.+)`)
	dotNumberRe = regexp.MustCompile(`U\.S\. DOT#:\s*(\d+)`)
	// The value may start on the label's line or the next one. The line
	// after the street (city/state/zip) must be followed by the Telephone
	// label for the match to count.
	addressRe = regexp.MustCompile(`(?s)Address:\s*(.*?)\n(.*?)\nTelephone:`)
	phoneRe   = regexp.MustCompile(`Telephone:\s*(\(\d{3}\) \d{3}-\d{4})`)
	emailRe   = regexp.MustCompile(`Email:\s*([\w.%+-]+@[\w.-]+\.[a-zA-Z]{2,})`)
)

// Extract builds a CarrierRecord from the raw detail text. Fields whose
// pattern does not match are set to model.Unavailable. Extract is pure.
func Extract(rawText string) model.CarrierRecord {
	text := strings.ReplaceAll(rawText, "\r\n", "\n")

	return model.CarrierRecord{
		LegalName:          group(legalNameRe, text, 1),
		RegistrationNumber: group(dotNumberRe, text, 1),
		Address:            group(addressRe, text, 1),
		Telephone:          group(phoneRe, text, 1),
		Email:              group(emailRe, text, 1),
	}
}

// Unreachable is the record produced when the detail view could not be
// reached at all.
func Unreachable() model.CarrierRecord {
	return model.UnavailableRecord()
}

func group(re *regexp.Regexp, text string, idx int) string {
	m := re.FindStringSubmatch(text)
	if m == nil || idx >= len(m) {
		return model.Unavailable
	}
	v := strings.TrimSpace(m[idx])
	if v == "" {
		return model.Unavailable
	}
	return v
}
