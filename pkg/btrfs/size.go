package btrfs

import (
	"fmt"
	"strings"

	units "github.com/docker/go-units"
)

// ParseSize converts a size token as printed by btrfs tooling, for example
// "140.00GiB" or "16.00KiB", into a byte count. Decimal suffixes (KB, MB,
// GB, TB) are binary multiples of 1024 exactly like their KiB-family
// counterparts, matching the unit convention of btrfs-progs itself. The
// numeric part may be fractional; the result truncates to whole bytes and
// is never negative.
//
// An unrecognized unit or a malformed number is an error. Callers treat
// that as the pool being absent from the report, never as a zero size.
func ParseSize(s string) (int64, error) {
	n, err := units.RAMInBytes(strings.TrimSpace(s))
	if err != nil {
		return 0, fmt.Errorf("parse size %q: %w", s, err)
	}
	return n, nil
}
