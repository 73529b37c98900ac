package providers

import (
	"regexp"
	"strings"
)

var trailingParenthesized = regexp.MustCompile(`\(([^()]*)\)\s*$`)

// ProvinceFromLDT extracts the province from a registry location text such
// as "CL MAYOR 15 MADRID (MADRID)". Returns "" when the text has no trailing
// parenthesized token.
func ProvinceFromLDT(ldt string) string {
	m := trailingParenthesized.FindStringSubmatch(ldt)
	if m == nil {
		return ""
	}
	return strings.TrimSpace(m[1])
}
