// Package ddl builds the DuckDB statements used to introspect tabular
// reference files: storage secrets and parquet metadata queries.
package ddl

import (
	"fmt"
	"regexp"
	"strings"
)

var identifierRe = regexp.MustCompile(`^[a-zA-Z_][a-zA-Z0-9_]*$`)

const maxIdentifierLen = 64

// ValidateIdentifier checks that name can be used unquoted as a DuckDB
// object name, such as the name of a secret.
func ValidateIdentifier(name string) error {
	switch {
	case name == "":
		return fmt.Errorf("identifier is empty")
	case len(name) > maxIdentifierLen:
		return fmt.Errorf("identifier %q exceeds %d characters", name, maxIdentifierLen)
	case !identifierRe.MatchString(name):
		return fmt.Errorf("identifier %q must match [a-zA-Z_][a-zA-Z0-9_]*", name)
	}
	return nil
}

// QuoteIdentifier wraps a SQL identifier in double quotes, doubling any
// embedded double quotes.
func QuoteIdentifier(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}

// QuoteLiteral wraps a string value in single quotes, doubling any
// embedded single quotes.
func QuoteLiteral(value string) string {
	return "'" + strings.ReplaceAll(value, "'", "''") + "'"
}
