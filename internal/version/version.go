// Package version compares storage-system package versions such as
// "2.3.108-3.9622.ga0024ec0.el8". Only the dotted base takes part in
// ordering; the release tail after the first '-' is kept for display.
package version

import (
	"fmt"
	"strings"

	"github.com/Masterminds/semver/v3"

	"github.com/rileyhilliard/ftest/internal/errors"
)

// Version is a parsed package version.
type Version struct {
	raw     string
	base    *semver.Version
	Release string
}

// Parse reads "<major>[.<minor>[.<patch>]][-<release>]". A leading 'v' is
// accepted. The release tail would read as a prerelease to semver, so it is
// split off before parsing.
func Parse(s string) (Version, error) {
	raw := strings.TrimSpace(s)
	text := strings.TrimPrefix(raw, "v")
	base, release, _ := strings.Cut(text, "-")

	sv, err := semver.NewVersion(base)
	if err != nil {
		return Version{}, errors.WrapWithCode(err, errors.ErrConfig,
			fmt.Sprintf("Invalid version %q", s),
			"Use a package version such as 2.4.0 or 2.4.0-1.el8")
	}
	return Version{raw: raw, base: sv, Release: release}, nil
}

// MustParse is Parse for literals; it panics on malformed input.
func MustParse(s string) Version {
	v, err := Parse(s)
	if err != nil {
		panic(err)
	}
	return v
}

// String returns the text the version was parsed from.
func (v Version) String() string { return v.raw }

// Base returns the dotted base version, e.g. "2.3.108".
func (v Version) Base() string {
	if v.base == nil {
		return ""
	}
	return v.base.String()
}

// IsZero reports whether v was never parsed.
func (v Version) IsZero() bool { return v.base == nil }

// Compare returns -1, 0 or +1 comparing the base versions.
func (v Version) Compare(other Version) int {
	switch {
	case v.base == nil && other.base == nil:
		return 0
	case v.base == nil:
		return -1
	case other.base == nil:
		return 1
	}
	return v.base.Compare(other.base)
}

// CompareString compares against a version literal. Malformed literals are
// a programming error and panic.
func (v Version) CompareString(s string) int {
	return v.Compare(MustParse(s))
}

// AtLeast reports v >= s.
func (v Version) AtLeast(s string) bool { return v.CompareString(s) >= 0 }

// LessThan reports v < s.
func (v Version) LessThan(s string) bool { return v.CompareString(s) < 0 }

// Equal reports v == s, ignoring the release tail.
func (v Version) Equal(s string) bool { return v.CompareString(s) == 0 }

// Between reports lo <= v < hi.
func (v Version) Between(lo, hi string) bool {
	return v.AtLeast(lo) && v.LessThan(hi)
}

// MarshalText renders the original text.
func (v Version) MarshalText() ([]byte, error) {
	return []byte(v.raw), nil
}

// UnmarshalText parses a version from config or JSON.
func (v *Version) UnmarshalText(text []byte) error {
	parsed, err := Parse(string(text))
	if err != nil {
		return err
	}
	*v = parsed
	return nil
}
