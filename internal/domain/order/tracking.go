package order

import (
	"fmt"
	"net/url"
	"strings"
)

// trackingURLTemplates maps a lower-cased carrier code to its public
// tracking page. The tracking number is query-escaped before substitution.
var trackingURLTemplates = map[string]string{
	"ups":   "https://www.ups.com/track?tracknum=%s",
	"fedex": "https://www.fedex.com/fedextrack/?tracknum=%s",
	"usps":  "https://tools.usps.com/go/TrackConfirmAction_input?strOrigTrackNum=%s",
	"dhl":   "https://www.dhl.com/en/express/tracking.html?AWB=%s",
}

// TrackingURL builds the customer-facing tracking link for a shipment.
// Unknown carriers fall back to an in-page anchor.
func TrackingURL(trackingNumber, carrier string) string {
	tmpl, ok := trackingURLTemplates[strings.ToLower(strings.TrimSpace(carrier))]
	if !ok {
		return "#tracking-" + trackingNumber
	}
	return fmt.Sprintf(tmpl, url.QueryEscape(trackingNumber))
}
