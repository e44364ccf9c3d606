package locks

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse(t *testing.T) {
	cases := map[string]Type{
		"msg":      Messages,
		"Messages": Messages,
		"gif":      Stickers,
		"preview":  Previews,
		" all ":    All,
	}
	for in, want := range cases {
		got, err := Parse(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}

	_, err := Parse("games")
	assert.Error(t, err)
}

func TestNamesAreParseable(t *testing.T) {
	for _, n := range Names() {
		got, err := Parse(string(n))
		require.NoError(t, err)
		assert.Equal(t, n, got)
	}
}
