package semver

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse(t *testing.T) {
	v, err := Parse("1.2.3-beta")
	require.NoError(t, err)
	assert.Equal(t, uint64(1), v.Major)
	assert.Equal(t, uint64(2), v.Minor)
	assert.Equal(t, uint64(3), v.Patch)
	assert.Equal(t, "beta", v.Label)

	v, err = Parse("v2.0.0")
	require.NoError(t, err)
	assert.Equal(t, uint64(2), v.Major)
	assert.Empty(t, v.Label)

	_, err = Parse("not-a-version")
	assert.Error(t, err)
}

func TestMatcherCaret(t *testing.T) {
	m := NewMatcher("^1.0.0")
	require.True(t, m.Valid())

	assert.True(t, m.MatchesRaw("1.0.0"))
	assert.True(t, m.MatchesRaw("1.1.0"))
	assert.True(t, m.MatchesRaw("1.9.4"))
	assert.False(t, m.MatchesRaw("2.0.0"))
	assert.False(t, m.MatchesRaw("0.9.0"))
}

func TestMatcherTilde(t *testing.T) {
	m := NewMatcher("~1.0.0")
	require.True(t, m.Valid())

	assert.True(t, m.MatchesRaw("1.0.0"))
	assert.True(t, m.MatchesRaw("1.0.7"))
	assert.False(t, m.MatchesRaw("1.1.0"))
}

func TestMatcherRangeAndWildcard(t *testing.T) {
	m := NewMatcher(">=1.0.0 <2.0.0")
	assert.True(t, m.MatchesRaw("1.5.0"))
	assert.False(t, m.MatchesRaw("2.0.0"))

	m = NewMatcher("1.*")
	assert.True(t, m.MatchesRaw("1.8.2"))
	assert.False(t, m.MatchesRaw("2.0.0"))
}

func TestMatcherInvalidConstraintMatchesNothing(t *testing.T) {
	m := NewMatcher("completely bogus")
	assert.False(t, m.Valid())
	assert.False(t, m.MatchesRaw("1.0.0"))

	var zero Matcher
	assert.False(t, zero.MatchesRaw("1.0.0"))
}

func TestMatcherUnparsableCandidate(t *testing.T) {
	m := NewMatcher("^1.0.0")
	assert.False(t, m.MatchesRaw("garbage"))
}

func TestSortDesc(t *testing.T) {
	raw := []string{"1.0.0-beta", "1.0.0", "2.1.0", "1.2.0", "2.0.0", "1.0.0-alpha"}
	versions := make([]Version, 0, len(raw))
	for _, r := range raw {
		v, err := Parse(r)
		require.NoError(t, err)
		versions = append(versions, v)
	}

	SortDesc(versions)

	got := make([]string, 0, len(versions))
	for _, v := range versions {
		got = append(got, v.String())
	}
	assert.Equal(t, []string{"2.1.0", "2.0.0", "1.2.0", "1.0.0", "1.0.0-alpha", "1.0.0-beta"}, got)
}
