package version

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rileyhilliard/ftest/internal/errors"
)

func TestParse(t *testing.T) {
	tests := []struct {
		in      string
		base    string
		release string
	}{
		{"2.4.0", "2.4.0", ""},
		{"2.3.108-3.9622.ga0024ec0.el8", "2.3.108", "3.9622.ga0024ec0.el8"},
		{" v2.2.1-1 ", "2.2.1", "1"},
		{"2.4", "2.4.0", ""},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			v, err := Parse(tt.in)
			require.NoError(t, err)
			assert.Equal(t, tt.base, v.Base())
			assert.Equal(t, tt.release, v.Release)
			assert.False(t, v.IsZero())
		})
	}
}

func TestParse_Invalid(t *testing.T) {
	for _, in := range []string{"", "latest", "2.x.1"} {
		_, err := Parse(in)
		require.Error(t, err, in)
		assert.True(t, errors.IsCode(err, errors.ErrConfig))
	}
}

func TestComparisons(t *testing.T) {
	v := MustParse("2.3.108-3.9622.ga0024ec0.el8")

	assert.True(t, v.AtLeast("2.3.101"))
	assert.True(t, v.AtLeast("2.3.108"), "release tail does not make it a prerelease")
	assert.True(t, v.Equal("2.3.108"))
	assert.False(t, v.LessThan("2.3.0"))
	assert.True(t, v.LessThan("2.4.0"))
	assert.False(t, v.Between("2.2.1", "2.3.0"))
	assert.True(t, MustParse("2.2.1").Between("2.2.1", "2.3.0"))
	assert.False(t, MustParse("2.3.0").Between("2.2.1", "2.3.0"))
	assert.True(t, MustParse("2.3.100").LessThan("2.3.101"))
}

func TestCompare(t *testing.T) {
	a := MustParse("2.2.0")
	b := MustParse("2.4.0-1")

	assert.Equal(t, -1, a.Compare(b))
	assert.Equal(t, 1, b.Compare(a))
	assert.Equal(t, 0, b.Compare(MustParse("2.4.0-7")))
	assert.Equal(t, -1, Version{}.Compare(a))
	assert.Equal(t, 0, Version{}.Compare(Version{}))
	assert.True(t, Version{}.IsZero())
}

func TestString(t *testing.T) {
	assert.Equal(t, "2.4.0-1.el8", MustParse("2.4.0-1.el8").String())
}

func TestTextMarshaling(t *testing.T) {
	var v Version
	require.NoError(t, v.UnmarshalText([]byte("2.4.0")))
	text, err := v.MarshalText()
	require.NoError(t, err)
	assert.Equal(t, "2.4.0", string(text))
	assert.Error(t, v.UnmarshalText([]byte("nope")))
}
