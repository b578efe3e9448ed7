// Package number validates and extracts dialable E.164 numbers from raw
// carrier signaling input.
package number

import (
	"regexp"
	"strings"
)

// dialable is the strict acceptance grammar: country code 1 or 91 followed
// by exactly ten digits. Looser per-deployment grammars existed historically;
// this one is authoritative (see DESIGN.md).
var dialable = regexp.MustCompile(`^\+(1|91)\d{10}$`)

// Normalize extracts a dialable number from raw input, unwrapping a SIP URI
// of the form sip:+15551234567@host when present. Malformed input is an
// expected case and reports ok=false; Normalize never panics.
func Normalize(raw string) (string, bool) {
	n := strings.TrimSpace(raw)
	if at := strings.Index(n, "@"); at >= 0 {
		n = n[:at]
	}
	n = strings.TrimPrefix(n, "sip:")

	if !dialable.MatchString(n) {
		return "", false
	}
	return n, true
}
