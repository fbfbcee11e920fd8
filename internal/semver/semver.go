// Package semver evaluates semantic-version constraint expressions against
// candidate versions. Constraints support caret (^), tilde (~), explicit
// ranges (">=1.0.0 <2.0.0"), exact versions, and wildcards ("1.*").
package semver

import (
	"sort"
	"strings"

	mmsemver "github.com/Masterminds/semver/v3"
)

// Version is a parsed semantic version decomposed for sortable comparison.
type Version struct {
	Major uint64
	Minor uint64
	Patch uint64
	Label string

	parsed *mmsemver.Version
}

// Parse decomposes a raw version string. A leading "v" is tolerated.
func Parse(raw string) (Version, error) {
	v, err := mmsemver.NewVersion(strings.TrimSpace(raw))
	if err != nil {
		return Version{}, err
	}
	return Version{
		Major:  v.Major(),
		Minor:  v.Minor(),
		Patch:  v.Patch(),
		Label:  v.Prerelease(),
		parsed: v,
	}, nil
}

func (v Version) String() string {
	if v.parsed != nil {
		return v.parsed.String()
	}
	return ""
}

// Matcher evaluates a constraint expression. The zero Matcher, and any
// Matcher built from an unparsable constraint, matches nothing: malformed
// constraints are a content-authoring mistake, not a system fault.
type Matcher struct {
	constraint *mmsemver.Constraints
}

// NewMatcher builds a Matcher from a constraint string. Parse failures are
// swallowed into a matcher that matches nothing.
func NewMatcher(constraint string) Matcher {
	c, err := mmsemver.NewConstraint(strings.TrimSpace(constraint))
	if err != nil {
		return Matcher{}
	}
	return Matcher{constraint: c}
}

// Valid reports whether the constraint parsed.
func (m Matcher) Valid() bool {
	return m.constraint != nil
}

// Matches reports whether the candidate version satisfies the constraint.
func (m Matcher) Matches(v Version) bool {
	if m.constraint == nil || v.parsed == nil {
		return false
	}
	return m.constraint.Check(v.parsed)
}

// MatchesRaw parses and checks a raw version string. Unparsable candidates
// never match.
func (m Matcher) MatchesRaw(raw string) bool {
	v, err := Parse(raw)
	if err != nil {
		return false
	}
	return m.Matches(v)
}

// Before reports whether a ranks ahead of b in listing order: major desc,
// minor desc, patch desc, then labels ascending with the empty label first,
// so "1.0.0" ranks above "1.0.0-beta".
func Before(a, b Version) bool {
	if a.Major != b.Major {
		return a.Major > b.Major
	}
	if a.Minor != b.Minor {
		return a.Minor > b.Minor
	}
	if a.Patch != b.Patch {
		return a.Patch > b.Patch
	}
	if (a.Label == "") != (b.Label == "") {
		return a.Label == ""
	}
	return a.Label < b.Label
}

// SortDesc orders versions in listing order (newest first).
func SortDesc(versions []Version) {
	sort.SliceStable(versions, func(i, j int) bool {
		return Before(versions[i], versions[j])
	})
}
