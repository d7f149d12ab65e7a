// Package version converts mod versions between the legacy 32-bit form and
// the packed 64-bit form stored in meta.lsx as "Version64".
//
// Field layout, most significant first:
//
//	legacy (32-bit):  major:4  minor:4  revision:8   build:16
//	packed (64-bit):  major:7  minor:8  revision:16  build:31  (bit 63..62 unused)
//
// Every legacy field fits its packed counterpart, so [FromLegacy] is
// injective.
package version

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// Packed field layout.
const (
	packedMajorShift    = 55
	packedMinorShift    = 47
	packedRevisionShift = 31

	packedMajorMask    = 0x7f
	packedMinorMask    = 0xff
	packedRevisionMask = 0xffff
	packedBuildMask    = 0x7fffffff
)

// Legacy field layout.
const (
	legacyMajorShift    = 28
	legacyMinorShift    = 24
	legacyRevisionShift = 16

	legacyMajorMask    = 0xf
	legacyMinorMask    = 0xf
	legacyRevisionMask = 0xff
	legacyBuildMask    = 0xffff
)

// MaxPacked is the largest packed value, 127.255.65535.2147483647. Bits
// above it belong to no field.
const MaxPacked uint64 = 1<<(packedMajorShift+7) - 1

// defaultVersion is 1.0.0.0 in packed form.
const defaultVersion uint64 = 1 << packedMajorShift

// Errors returned by [Parse].
var (
	ErrInvalidFormat = errors.New("invalid version format")
	ErrFieldRange    = errors.New("version field out of range")
)

// Version is an unpacked mod version.
type Version struct {
	Major    uint32
	Minor    uint32
	Revision uint32
	Build    uint32
}

// FromLegacy packs a legacy 32-bit version into its 64-bit form.
func FromLegacy(v uint32) uint64 {
	return UnpackLegacy(v).Packed()
}

// DefaultVersion is used whenever a legacy version cannot be read.
func DefaultVersion() uint64 {
	return defaultVersion
}

// UnpackLegacy splits a legacy 32-bit version into its fields.
func UnpackLegacy(v uint32) Version {
	return Version{
		Major:    (v >> legacyMajorShift) & legacyMajorMask,
		Minor:    (v >> legacyMinorShift) & legacyMinorMask,
		Revision: (v >> legacyRevisionShift) & legacyRevisionMask,
		Build:    v & legacyBuildMask,
	}
}

// Unpack splits a packed 64-bit version into its fields.
func Unpack(v uint64) Version {
	return Version{
		Major:    uint32((v >> packedMajorShift) & packedMajorMask),
		Minor:    uint32((v >> packedMinorShift) & packedMinorMask),
		Revision: uint32((v >> packedRevisionShift) & packedRevisionMask),
		Build:    uint32(v & packedBuildMask),
	}
}

// Packed returns the 64-bit form. Fields wider than the layout are truncated.
func (v Version) Packed() uint64 {
	return uint64(v.Major&packedMajorMask)<<packedMajorShift |
		uint64(v.Minor&packedMinorMask)<<packedMinorShift |
		uint64(v.Revision&packedRevisionMask)<<packedRevisionShift |
		uint64(v.Build&packedBuildMask)
}

// Legacy returns the 32-bit form. Fields wider than the layout are truncated.
func (v Version) Legacy() uint32 {
	return (v.Major&legacyMajorMask)<<legacyMajorShift |
		(v.Minor&legacyMinorMask)<<legacyMinorShift |
		(v.Revision&legacyRevisionMask)<<legacyRevisionShift |
		v.Build&legacyBuildMask
}

// FitsLegacy reports whether v survives a round trip through the legacy form.
func (v Version) FitsLegacy() bool {
	return UnpackLegacy(v.Legacy()) == v
}

func (v Version) String() string {
	return fmt.Sprintf("%d.%d.%d.%d", v.Major, v.Minor, v.Revision, v.Build)
}

// Parse reads a dotted "major.minor.revision.build" version. Missing
// trailing fields are zero. Each field must fit the packed layout.
func Parse(s string) (Version, error) {
	parts := strings.Split(strings.TrimSpace(s), ".")
	if len(parts) == 0 || len(parts) > 4 || parts[0] == "" {
		return Version{}, fmt.Errorf("%w: %q", ErrInvalidFormat, s)
	}

	limits := [4]uint64{packedMajorMask, packedMinorMask, packedRevisionMask, packedBuildMask}

	var fields [4]uint32

	for i, part := range parts {
		n, err := strconv.ParseUint(part, 10, 32)
		if err != nil {
			return Version{}, fmt.Errorf("%w: %q", ErrInvalidFormat, s)
		}

		if n > limits[i] {
			return Version{}, fmt.Errorf("%w: %q field %d exceeds %d", ErrFieldRange, s, i+1, limits[i])
		}

		fields[i] = uint32(n)
	}

	return Version{Major: fields[0], Minor: fields[1], Revision: fields[2], Build: fields[3]}, nil
}

// ParseLegacyText packs the legacy version stored as decimal text. The text
// must be a signed 32-bit integer; negative values are taken as their bit
// pattern. Anything else yields [DefaultVersion].
func ParseLegacyText(s string) uint64 {
	n, err := strconv.ParseInt(strings.TrimSpace(s), 10, 32)
	if err != nil {
		return DefaultVersion()
	}

	return FromLegacy(uint32(int32(n)))
}
