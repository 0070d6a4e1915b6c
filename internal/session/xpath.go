package session

import (
	"fmt"
	"regexp"

	"github.com/sells-group/safer-cli/internal/verify"
)

// Search form locators on CompanySnapshot.aspx.
const (
	xpathMCMXRadio    = `//input[@id='2' and @name='query_param' and @value='MC_MX']`
	xpathQueryString  = `//input[@id='4' and @name='query_string']`
	xpathSearchButton = `//input[@type='SUBMIT' and @value='Search']`
)

// Link texts followed from a verified snapshot to the detail popup.
const (
	linkSMSResults          = "SMS Results"
	linkRegistrationDetails = "Carrier Registration Details"
)

func markerXPath(m verify.Marker) string {
	return fmt.Sprintf(`//i[text()='%s']`, string(m))
}

func fieldXPath(f verify.Field) string {
	return fmt.Sprintf(`//th[a[text()='%s']]/following-sibling::td`, string(f))
}

// exactText is a JS regex matching the whole trimmed element text.
func exactText(s string) string {
	return "^\\s*" + regexp.QuoteMeta(s) + "\\s*$"
}
