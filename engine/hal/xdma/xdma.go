package xdma

import (
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/softdma/softdma/engine/hal"
)

// DefaultDevRoot is where the kernel driver registers its device
// nodes.
const DefaultDevRoot = "/dev"

// NodeName returns the device node name for one engine channel,
// following the kernel driver's convention: <card>_h2c_<n> for
// host-to-device engines and <card>_c2h_<n> for device-to-host.
func NodeName(card string, dir hal.Direction, channel int) string {
	return card + "_" + dir.String() + "_" + strconv.Itoa(channel)
}

// NodePath returns the full device node path for one engine channel.
func NodePath(devRoot, card string, dir hal.Direction, channel int) string {
	return filepath.Join(devRoot, NodeName(card, dir, channel))
}

// Card describes one enumerated card's engine channels.
type Card struct {
	// Name is the card's node prefix, e.g. "xdma0".
	Name string

	// H2C and C2H list the channel indices present per direction,
	// ascending.
	H2C []int
	C2H []int
}

// Enumerate scans devRoot for engine device nodes and groups them by
// card. Cards are returned sorted by name; a directory with no engine
// nodes yields an empty slice.
func Enumerate(devRoot string) ([]Card, error) {
	entries, err := os.ReadDir(devRoot)
	if err != nil {
		return nil, err
	}

	byName := make(map[string]*Card)
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		name, dir, channel, ok := parseNodeName(entry.Name())
		if !ok {
			continue
		}
		card := byName[name]
		if card == nil {
			card = &Card{Name: name}
			byName[name] = card
		}
		switch dir {
		case hal.HostToDevice:
			card.H2C = append(card.H2C, channel)
		case hal.DeviceToHost:
			card.C2H = append(card.C2H, channel)
		}
	}

	cards := make([]Card, 0, len(byName))
	for _, card := range byName {
		sort.Ints(card.H2C)
		sort.Ints(card.C2H)
		cards = append(cards, *card)
	}
	sort.Slice(cards, func(i, j int) bool { return cards[i].Name < cards[j].Name })
	return cards, nil
}

// parseNodeName splits an engine node name into its card prefix,
// direction, and channel index. Non-engine nodes (control, user,
// events) report ok false.
func parseNodeName(node string) (card string, dir hal.Direction, channel int, ok bool) {
	for _, d := range []hal.Direction{hal.HostToDevice, hal.DeviceToHost} {
		marker := "_" + d.String() + "_"
		idx := strings.LastIndex(node, marker)
		if idx <= 0 {
			continue
		}
		n, err := strconv.Atoi(node[idx+len(marker):])
		if err != nil || n < 0 {
			continue
		}
		return node[:idx], d, n, true
	}
	return "", hal.DirectionUnknown, 0, false
}
