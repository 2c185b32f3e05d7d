package stream

import (
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParseID(t *testing.T) {
	id, err := ParseID("1526919030474-55")
	require.NoError(t, err)
	require.Equal(t, ID{Ms: 1526919030474, Seq: 55}, id)
	require.Equal(t, "1526919030474-55", id.String())

	id, err = ParseID("42")
	require.NoError(t, err)
	require.Equal(t, ID{Ms: 42}, id)

	for _, bad := range []string{"", "-", "a-1", "1-b", "1-2-3", "-1", "1-"} {
		_, err := ParseID(bad)
		require.True(t, errors.Is(err, ErrInvalidID), "input %q", bad)
	}

	require.Panics(t, func() { MustParseID("nope") })
}

func TestIDOrdering(t *testing.T) {
	ordered := []ID{{}, {0, 1}, {1, 0}, {1, 1}, {1, math.MaxUint64}, {2, 0}}
	for i := 0; i < len(ordered)-1; i++ {
		require.True(t, ordered[i].Less(ordered[i+1]), "%s < %s", ordered[i], ordered[i+1])
		require.False(t, ordered[i+1].Less(ordered[i]))
		require.True(t, ordered[i].Less(ordered[i].Next()))
	}
	require.False(t, ordered[1].Less(ordered[1]))
	require.True(t, ID{}.IsZero())
	require.False(t, ID{Seq: 1}.IsZero())
}

func TestIDNext(t *testing.T) {
	cases := []struct{ in, want ID }{
		{ID{}, ID{0, 1}},
		{ID{1, 0}, ID{1, 1}},
		{ID{1, 41}, ID{1, 42}},
		{ID{1, math.MaxUint64}, ID{2, 0}},
	}
	for _, c := range cases {
		require.Equal(t, c.want, c.in.Next(), "%s.Next()", c.in)
	}
}
