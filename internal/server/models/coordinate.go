package models

import (
	"fmt"
	"strings"
)

// VersionCoordinate identifies one package version as the 5-tuple
// (major, minor, micro, preRelease, revision). Minor, micro, preRelease and
// revision are optional; absence is meaningful and preserved, which is why
// the optional fields are pointers.
//
// Compare is the single source of truth for "newer than" throughout the
// catalog engine.
type VersionCoordinate struct {
	Major      int
	Minor      *int
	Micro      *int
	PreRelease *string
	Revision   *int
}

// MakeCoordinate builds a coordinate from plain values. Negative minor,
// micro or revision mean "absent"; an empty preRelease means "absent".
func MakeCoordinate(major, minor, micro int, preRelease string, revision int) VersionCoordinate {
	c := VersionCoordinate{Major: major}
	if minor >= 0 {
		c.Minor = &minor
	}
	if micro >= 0 {
		c.Micro = &micro
	}
	if preRelease != "" {
		c.PreRelease = &preRelease
	}
	if revision >= 0 {
		c.Revision = &revision
	}
	return c
}

func numOrZero(v *int) int {
	if v == nil {
		return 0
	}
	return *v
}

func cmpInt(a, b int) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}

// Compare orders coordinates lexicographically over (major, minor, micro,
// preRelease, revision). Absent numeric fields compare as 0. An absent
// preRelease sorts after any present preRelease of the same numeric triple:
// a release is newer than its own pre-releases.
func (c VersionCoordinate) Compare(o VersionCoordinate) int {
	if d := cmpInt(c.Major, o.Major); d != 0 {
		return d
	}
	if d := cmpInt(numOrZero(c.Minor), numOrZero(o.Minor)); d != 0 {
		return d
	}
	if d := cmpInt(numOrZero(c.Micro), numOrZero(o.Micro)); d != 0 {
		return d
	}
	switch {
	case c.PreRelease == nil && o.PreRelease != nil:
		return 1
	case c.PreRelease != nil && o.PreRelease == nil:
		return -1
	case c.PreRelease != nil && o.PreRelease != nil:
		if d := strings.Compare(*c.PreRelease, *o.PreRelease); d != 0 {
			return d
		}
	}
	return cmpInt(numOrZero(c.Revision), numOrZero(o.Revision))
}

// Equal reports structural equality, distinguishing absent fields from
// zero-valued ones. Version-identity matching during import uses Equal, not
// Compare, so "1.2" and "1.2.0" resolve to different persisted versions.
func (c VersionCoordinate) Equal(o VersionCoordinate) bool {
	return c.Major == o.Major &&
		eqIntPtr(c.Minor, o.Minor) &&
		eqIntPtr(c.Micro, o.Micro) &&
		eqStrPtr(c.PreRelease, o.PreRelease) &&
		eqIntPtr(c.Revision, o.Revision)
}

func eqIntPtr(a, b *int) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}

func eqStrPtr(a, b *string) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}

// String renders "major[.minor[.micro]][~preRelease][-revision]".
func (c VersionCoordinate) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%d", c.Major)
	if c.Minor != nil {
		fmt.Fprintf(&b, ".%d", *c.Minor)
		if c.Micro != nil {
			fmt.Fprintf(&b, ".%d", *c.Micro)
		}
	}
	if c.PreRelease != nil {
		fmt.Fprintf(&b, "~%s", *c.PreRelease)
	}
	if c.Revision != nil {
		fmt.Fprintf(&b, "-%d", *c.Revision)
	}
	return b.String()
}
