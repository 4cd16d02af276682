// Package fbx reads binary FBX files and exposes them through a small set of
// SDK-style objects: a Manager that owns I/O settings and tracks every object
// it creates, an Importer that opens and validates a file, and a Scene holding
// the node hierarchy.
package fbx

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

func newErr(reason string) error {
	return errors.New("fbx: " + reason)
}

var (
	// ErrNotFBX is returned for input without the binary FBX magic.
	ErrNotFBX = newErr("not a binary FBX file")
	// ErrASCII is returned for ASCII FBX input, which is not supported.
	ErrASCII = newErr("ASCII FBX files are not supported")
	// ErrManagerUnusable is returned by a Manager that has been destroyed.
	ErrManagerUnusable = newErr("manager is destroyed")
	// ErrResourceExhausted is returned when a Manager reaches its live
	// object limit.
	ErrResourceExhausted = newErr("live object limit reached")
)

// Version is a file format version triple.
type Version struct {
	Major    int
	Minor    int
	Revision int
}

// FileVersion converts the version number stored in a binary FBX header
// (e.g. 7500) to a Version.
func FileVersion(n uint32) Version {
	return Version{
		Major:    int(n / 1000),
		Minor:    int(n % 1000 / 100),
		Revision: int(n % 100 / 10),
	}
}

// Number returns v in the binary header encoding.
func (v Version) Number() uint32 {
	return uint32(v.Major*1000 + v.Minor*100 + v.Revision*10)
}

// Compare returns -1, 0 or 1 depending on whether v is older than, equal to
// or newer than w.
func (v Version) Compare(w Version) int {
	switch {
	case v.Major != w.Major:
		return cmpInt(v.Major, w.Major)
	case v.Minor != w.Minor:
		return cmpInt(v.Minor, w.Minor)
	default:
		return cmpInt(v.Revision, w.Revision)
	}
}

func cmpInt(a, b int) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	}
	return 0
}

// IsZero reports whether v is the zero Version.
func (v Version) IsZero() bool {
	return v == Version{}
}

func (v Version) String() string {
	return fmt.Sprintf("%d.%d.%d", v.Major, v.Minor, v.Revision)
}

// ParseVersion parses "major.minor.revision". The revision may be omitted.
func ParseVersion(s string) (Version, error) {
	parts := strings.Split(strings.TrimSpace(s), ".")
	if len(parts) < 2 || len(parts) > 3 {
		return Version{}, fmt.Errorf("fbx: invalid version %q", s)
	}
	var nums [3]int
	for i, p := range parts {
		n, err := strconv.Atoi(p)
		if err != nil || n < 0 || n > 9 {
			return Version{}, fmt.Errorf("fbx: invalid version %q", s)
		}
		nums[i] = n
	}
	return Version{nums[0], nums[1], nums[2]}, nil
}
