package client

import (
	"regexp"
	"strconv"
	"strings"
)

// Save slot labels look like "slot 2 (empty)" or "slot 2: world.zip (12.5MB)".
var slotSize = regexp.MustCompile(`(\d+(?:\.\d+)?)MB`)

// SlotIndex parses a wire slot name such as "slot3" into its 1-based index.
func SlotIndex(name string) (int, bool) {
	n, err := strconv.Atoi(strings.TrimPrefix(name, "slot"))
	if err != nil || !strings.HasPrefix(name, "slot") || n < 1 || n > NumSlots {
		return 0, false
	}
	return n, true
}

// SlotUsed reports whether a save slot label describes a stored save.
func SlotUsed(label string) bool {
	return label != "" && !strings.HasSuffix(label, "(empty)")
}

// SlotSizeHint extracts the approximate save size from a slot label. It
// returns 0 when the label carries no size.
func SlotSizeHint(label string) int64 {
	m := slotSize.FindStringSubmatch(label)
	if m == nil {
		return 0
	}
	mb, err := strconv.ParseFloat(m[1], 64)
	if err != nil {
		return 0
	}
	return int64(mb * (1 << 20))
}
