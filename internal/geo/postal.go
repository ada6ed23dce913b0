package geo

import (
	"regexp"
	"slices"
	"strings"
)

var canadianPostal = regexp.MustCompile(`^[A-Z]\d[A-Z] ?\d[A-Z]\d$`)

// ValidPostalCode reports whether code is a well-formed Canadian postal code
// ("A1A 1A1", space optional, any case) whose forward sortation prefix
// belongs to the region.
func (r Region) ValidPostalCode(code string) bool {
	code = strings.ToUpper(strings.TrimSpace(code))
	if !canadianPostal.MatchString(code) {
		return false
	}
	return slices.Contains(r.PostalPrefixes, code[:3])
}
