package correlate

import (
	"fmt"
	"strings"
)

// Match mode names accepted on the CLI and in the config file.
const (
	MatchModeSubstring    = "substring"
	MatchModeExactSegment = "exact-segment"
)

// Matcher decides whether a secret name is associated with a tenant.
//
// The historical behavior is plain substring containment: a tenant ID that
// happens to be a substring of another tenant's ID (or of an unrelated
// path component) produces false-positive associations. That imprecision
// is preserved as the default for compatibility with previously captured
// results; ExactSegmentMatcher is the stricter alternative. The same
// matcher must be used for both index construction and correlation so the
// two stages agree on what "belongs to a tenant" means.
type Matcher interface {
	// Match reports whether secretName is associated with tenantID.
	Match(secretName, tenantID string) bool

	// Mode returns the mode name for reports and logs.
	Mode() string
}

// SubstringMatcher associates a secret with every tenant whose identifier
// appears anywhere in the secret name. Default, known-imprecise.
type SubstringMatcher struct{}

func (SubstringMatcher) Match(secretName, tenantID string) bool {
	return strings.Contains(secretName, tenantID)
}

func (SubstringMatcher) Mode() string { return MatchModeSubstring }

// ExactSegmentMatcher associates a secret with a tenant only when one of
// the "/"-separated segments of the secret name equals the tenant ID
// exactly. Immune to tenant IDs that are substrings of one another.
type ExactSegmentMatcher struct{}

func (ExactSegmentMatcher) Match(secretName, tenantID string) bool {
	for _, seg := range strings.Split(secretName, "/") {
		if seg == tenantID {
			return true
		}
	}
	return false
}

func (ExactSegmentMatcher) Mode() string { return MatchModeExactSegment }

// MatcherForMode returns the Matcher for a mode name. An empty mode selects
// the substring default.
func MatcherForMode(mode string) (Matcher, error) {
	switch mode {
	case "", MatchModeSubstring:
		return SubstringMatcher{}, nil
	case MatchModeExactSegment:
		return ExactSegmentMatcher{}, nil
	default:
		return nil, fmt.Errorf("unknown match mode %q (want %q or %q)", mode, MatchModeSubstring, MatchModeExactSegment)
	}
}
