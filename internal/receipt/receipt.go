// Package receipt validates USCIS receipt numbers.
package receipt

import "regexp"

// 3 letters, 10 digits.
var pattern = regexp.MustCompile(`^[A-Z]{3}[0-9]{10}$`)

// Valid reports whether s is a well-formed receipt number, e.g. EAC9999999999.
func Valid(s string) bool {
	return pattern.MatchString(s)
}
