package app

import (
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/fzmanager/fzm/internal/client"
	"github.com/fzmanager/fzm/internal/config"
	"github.com/fzmanager/fzm/internal/theme"
)

const (
	fieldRegion = iota
	fieldVersion
	fieldSlot
	fieldIPv6
	numFields
)

// startForm collects the options for a new server instance, pre-filled from
// the persisted defaults.
type startForm struct {
	regions  []string // region codes, sorted
	labels   map[string]string
	versions []string // newest first
	saves    map[string]string

	field   int
	region  int
	version int
	slot    int // 1-based
	ipv6    bool
}

func newStartForm(snap client.Snapshot, d config.Defaults) startForm {
	regions := make([]string, 0, len(snap.Regions))
	for code := range snap.Regions {
		regions = append(regions, code)
	}
	slices.Sort(regions)

	f := startForm{
		regions:  regions,
		labels:   snap.Regions,
		versions: snap.Versions,
		saves:    snap.Saves,
		slot:     1,
		ipv6:     !d.DisableIPv6,
	}
	if i := slices.Index(f.regions, d.Region); i >= 0 {
		f.region = i
	}
	if i := slices.Index(f.versions, d.Version); i >= 0 {
		f.version = i
	}
	if n, ok := client.SlotIndex(d.Slot); ok {
		f.slot = n
	}
	return f
}

func (f *startForm) move(delta int) {
	f.field = (f.field + delta + numFields) % numFields
}

func (f *startForm) cycle(delta int) {
	wrap := func(i, n int) int {
		if n == 0 {
			return 0
		}
		return (i + delta + n) % n
	}
	switch f.field {
	case fieldRegion:
		f.region = wrap(f.region, len(f.regions))
	case fieldVersion:
		f.version = wrap(f.version, len(f.versions))
	case fieldSlot:
		f.slot = wrap(f.slot-1, client.NumSlots) + 1
	case fieldIPv6:
		f.ipv6 = !f.ipv6
	}
}

func (f startForm) options() (client.StartOptions, error) {
	if len(f.regions) == 0 {
		return client.StartOptions{}, errors.New("no regions received from the service yet")
	}
	if len(f.versions) == 0 {
		return client.StartOptions{}, errors.New("no versions received from the service yet")
	}
	return client.StartOptions{
		Region:  f.regions[f.region],
		Version: f.versions[f.version],
		Save:    client.SlotName(f.slot),
		IPv6:    f.ipv6,
	}, nil
}

func (f startForm) view() string {
	value := func(s string) string {
		if s == "" {
			return theme.StyleDimmed.Render("(none)")
		}
		return s
	}

	var region, version string
	if len(f.regions) > 0 {
		code := f.regions[f.region]
		region = code
		if label := f.labels[code]; label != "" {
			region = fmt.Sprintf("%s - %s", code, label)
		}
	}
	if len(f.versions) > 0 {
		version = f.versions[f.version]
	}
	slot := f.saves[client.SlotName(f.slot)]
	if slot == "" {
		slot = client.EmptySlotLabel(f.slot)
	}
	ipv6 := "no"
	if f.ipv6 {
		ipv6 = "yes"
	}

	rows := []struct{ name, val string }{
		{"Region", value(region)},
		{"Version", value(version)},
		{"Save", slot},
		{"IPv6", ipv6},
	}
	lines := []string{theme.StyleHeader.Render(" START SERVER "), ""}
	for i, r := range rows {
		prefix := "  "
		name := lipgloss.NewStyle().Width(9).Render(r.name)
		if i == f.field {
			prefix = "> "
			name = theme.StyleSelected.Width(9).Render(r.name)
		}
		lines = append(lines, prefix+name+"‹ "+r.val+" ›")
	}
	lines = append(lines, "", theme.StyleDimmed.Render("j/k field  h/l change  enter start  esc cancel"))
	return theme.StyleBorder.Padding(0, 1).Render(strings.Join(lines, "\n"))
}
