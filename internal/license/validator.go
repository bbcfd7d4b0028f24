// Package license classifies media license identifiers into accepted and
// rejected, so that only commercially reusable assets reach the curation
// cache.
package license

import "strings"

// Reason explains why a license identifier was rejected.
type Reason string

const (
	// ReasonHardExcluded marks licenses that are excluded outright
	// regardless of whitelist membership (NC, ND, Editorial).
	ReasonHardExcluded Reason = "hard_excluded"
	// ReasonNotWhitelisted marks licenses outside the accepted set.
	ReasonNotWhitelisted Reason = "not_whitelisted"
)

// Decision is the outcome of validating a license identifier.
type Decision struct {
	Accepted bool
	Reason   Reason
}

// hardExcluded tokens reject by case-insensitive substring match. The
// substring rule is deliberate: "CC BY-NC" must not pass just because it
// also contains the accepted token "CC BY".
var hardExcluded = []string{"nc", "nd", "editorial"}

// accepted is the exact-match whitelist, keyed lowercase.
var accepted = map[string]struct{}{
	"cc0":            {},
	"public domain":  {},
	"cc by":          {},
	"cc by-sa":       {},
	"cc by 4.0":      {},
	"cc by-sa 4.0":   {},
	"pexels license": {},
}

// Validate classifies a license identifier. Rules are evaluated in order,
// first match wins: hard exclusion, then whitelist, then rejection.
func Validate(identifier string) Decision {
	normalized := strings.ToLower(strings.TrimSpace(identifier))

	for _, token := range hardExcluded {
		if strings.Contains(normalized, token) {
			return Decision{Accepted: false, Reason: ReasonHardExcluded}
		}
	}

	if _, ok := accepted[normalized]; ok {
		return Decision{Accepted: true}
	}

	return Decision{Accepted: false, Reason: ReasonNotWhitelisted}
}
