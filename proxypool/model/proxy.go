package model

import "time"

// Anonymity is the coarse tier describing how much a proxy reveals about
// the original client.
type Anonymity string

const (
	AnonymityTransparent Anonymity = "transparent"
	AnonymityAnonymous   Anonymity = "anonymous"
	AnonymityElite       Anonymity = "elite"
	AnonymityUnknown     Anonymity = "unknown"
)

// ParseAnonymity normalizes a source-supplied anonymity label. Anything
// outside the three known tiers maps to AnonymityUnknown.
func ParseAnonymity(s string) Anonymity {
	switch Anonymity(s) {
	case AnonymityTransparent, AnonymityAnonymous, AnonymityElite:
		return Anonymity(s)
	default:
		return AnonymityUnknown
	}
}

// Status of a validation result.
type Status string

const (
	// StatusValid means the candidate passed both the reachability probe
	// and at least one functional probe.
	StatusValid Status = "valid"

	// StatusUnvalidated means the candidate was reachable but every
	// functional probe failed; it is kept only under lenient policy.
	StatusUnvalidated Status = "unvalidated"
)

// CandidateProxy is an unverified host:port pair claimed by a source.
// It lives for a single fetch round and is never persisted.
type CandidateProxy struct {
	// Address is the "ip:port" string and the identity of the candidate
	// within any single collection.
	Address string `json:"address"`

	// CountryHint and AnonymityHint are whatever the source claimed.
	// "unknown" when the source does not say.
	CountryHint   string    `json:"country_hint"`
	AnonymityHint Anonymity `json:"anonymity_hint"`

	Source    string    `json:"source"`
	FetchedAt time.Time `json:"fetched_at"`
}

// ValidatedProxy is the authoritative record produced by the validator
// and consumed by rotation and the cache.
type ValidatedProxy struct {
	Address string `json:"address"`

	// Country is a two-letter ISO code, or "unknown".
	Country string `json:"country"`

	Anonymity Anonymity `json:"anonymity"`

	// Latency is the wall-clock duration of the first successful
	// functional probe. Always >= 0; a candidate that only passed the
	// reachability probe carries the fallback sentinel instead.
	Latency time.Duration `json:"latency"`

	RequiresAuth bool      `json:"requires_auth"`
	Status       Status    `json:"status"`
	ValidatedAt  time.Time `json:"validated_at"`
}

// Host returns the IP part of the address, or the whole address if it
// does not contain a port separator.
func (v ValidatedProxy) Host() string {
	for i := 0; i < len(v.Address); i++ {
		if v.Address[i] == ':' {
			return v.Address[:i]
		}
	}
	return v.Address
}

// CountryUnknown is the placeholder used when neither a source hint nor
// the prefix heuristic yields a country.
const CountryUnknown = "unknown"
