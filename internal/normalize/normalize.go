// Package normalize canonicalizes the free-text inputs accepted by the fleet
// API: equipment status tokens, city names, and "Name/UF" city designators.
package normalize

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// StatusCode enumerates the persisted equipment lifecycle states.
type StatusCode int

const (
	// StatusActive is the default state for installed equipment.
	StatusActive StatusCode = 0
	// StatusInService marks equipment under a service call.
	StatusInService StatusCode = 1
	// StatusDeactivated marks equipment switched off at the customer site.
	StatusDeactivated StatusCode = 2
	// StatusDeleted is the terminal soft-delete marker.
	StatusDeleted StatusCode = 3
)

// Status maps a free-text status token to its StatusCode. Tokens are matched
// case- and whitespace-insensitively; unrecognized or empty input defaults to
// StatusActive, preserving the behavior the front-end forms rely on.
func Status(input string) StatusCode {
	switch strings.ToLower(strings.TrimSpace(input)) {
	case "1", "atendimento":
		return StatusInService
	case "2", "desativado":
		return StatusDeactivated
	case "3", "deletado":
		return StatusDeleted
	default:
		return StatusActive
	}
}

// Recognized reports whether the token maps to a status without defaulting.
func Recognized(input string) bool {
	switch strings.ToLower(strings.TrimSpace(input)) {
	case "0", "ativo", "1", "atendimento", "2", "desativado", "3", "deletado":
		return true
	}
	return false
}

var foldTransformer = transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)

// Fold lowercases, trims, and strips diacritics so that visually distinct
// spellings of the same city name compare equal ("São Paulo" == "sao paulo").
func Fold(text string) string {
	trimmed := strings.ToLower(strings.TrimSpace(text))
	folded, _, err := transform.String(foldTransformer, trimmed)
	if err != nil {
		return trimmed
	}
	return folded
}

// SplitCityUF splits a "Name/UF" designator on its first slash. The returned
// state code is upper-cased and trimmed; it is empty when no slash is present.
func SplitCityUF(text string) (string, string) {
	name, uf, found := strings.Cut(text, "/")
	if !found {
		return strings.TrimSpace(name), ""
	}
	return strings.TrimSpace(name), strings.ToUpper(strings.TrimSpace(uf))
}
