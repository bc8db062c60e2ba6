package slug

import "regexp"

var reSlug = regexp.MustCompile(`^[a-z0-9_]{2,40}$`)

// IsSlug returns true if s matches ^[a-z0-9_]{2,40}$.
// Faction names are validated against this at the API boundary so the
// ledger only ever sees well-formed lowercase keys.
func IsSlug(s string) bool {
	return reSlug.MatchString(s)
}
