package sql

import (
	"errors"
	"fmt"
	"strings"
)

// ErrEmptyIdentifier is returned when a qualified name has no usable parts.
var ErrEmptyIdentifier = errors.New("a table or view name is required")

// SplitQualified splits a dotted name such as test_cso_g.casa.vw_a_cgenova
// into its parts. Surrounding whitespace and double quotes are removed from
// each part and empty parts are dropped.
func SplitQualified(name string) []string {
	var parts []string
	for _, p := range strings.Split(name, ".") {
		p = strings.Trim(strings.TrimSpace(p), `"`)
		if p != "" {
			parts = append(parts, p)
		}
	}
	return parts
}

// QuoteQualified quotes every part of a dotted name with the dialect's
// identifier quoting and rejects parts that look like SQL injection.
func QuoteQualified(d Dialect, name string) (string, error) {
	parts := SplitQualified(name)
	if len(parts) == 0 {
		return "", ErrEmptyIdentifier
	}

	quoted := make([]string, len(parts))
	for i, p := range parts {
		if err := CheckIdentifier("view", p); err != nil {
			return "", err
		}
		quoted[i] = d.QuoteIdentifier(p)
	}
	return strings.Join(quoted, "."), nil
}

// LastSegment returns the final part of a dotted name, e.g. vw_a_cgenova.
func LastSegment(name string) string {
	parts := SplitQualified(name)
	if len(parts) == 0 {
		return ""
	}
	return parts[len(parts)-1]
}

// ExportFilename is the download name for a filtered export of view.
func ExportFilename(view string) string {
	base := LastSegment(view)
	if base == "" {
		base = "listings"
	}
	return fmt.Sprintf("%s-filtered.csv", base)
}
