package services

import "regexp"

// NUPCAN: 8 digits, a hyphen, then 1 to 4 digits, e.g. 20250630-15.
var nupcanPattern = regexp.MustCompile(`^[0-9]{8}-[0-9]{1,4}$`)

func IsValidNupcanFormat(s string) bool {
	return nupcanPattern.MatchString(s)
}
