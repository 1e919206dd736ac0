package domain

import (
	"regexp"
	"strings"
)

// ReferencePrefix marks a reference-index location:
// reference::<format>:<protocol>://<path>.
const ReferencePrefix = "reference::"

var referenceFormatRe = regexp.MustCompile(`^[A-Za-z][A-Za-z0-9_]*$`)

// IsReference reports whether s is a reference-index location.
func IsReference(s string) bool {
	return strings.HasPrefix(s, ReferencePrefix)
}

// SplitReference splits a reference-index location into its index format
// and the location of the index itself. The format is empty when the
// location names the index directly (reference::s3://bucket/refs.parq).
func SplitReference(s string) (format, target string, ok bool) {
	if !IsReference(s) {
		return "", "", false
	}
	rest := s[len(ReferencePrefix):]
	if i := strings.Index(rest, ":"); i > 0 && !strings.HasPrefix(rest[i:], "://") && referenceFormatRe.MatchString(rest[:i]) {
		return rest[:i], rest[i+1:], true
	}
	return "", rest, true
}
