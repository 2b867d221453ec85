package app

import "regexp"

// Tenant keys bound every storage and index namespace; the same rule applies
// at every entry point, HTTP or filesystem.
var userIDPattern = regexp.MustCompile(`^[A-Za-z0-9._-]{1,64}$`)

// ValidUserID reports whether s is usable as a tenant key.
func ValidUserID(s string) bool {
	return userIDPattern.MatchString(s)
}
