package card

import (
	"errors"
	"fmt"
	"sort"

	"github.com/softdma/softdma/engine"
	"github.com/softdma/softdma/engine/hal"
	"github.com/softdma/softdma/pkg"
	"github.com/softdma/softdma/stats"
)

// Config describes one card to [New].
type Config struct {
	// Profile describes the channel layout. Validated by New.
	Profile Profile

	// Backend opens the submitter for each configured channel.
	Backend hal.Backend

	// Recorder, when set, observes every engine on the card.
	Recorder *stats.Recorder
}

// Card is one DMA device: the engines and device nodes for every
// configured channel, one engine/node pair per channel.
type Card struct {
	name     string
	backend  hal.Backend
	recorder *stats.Recorder

	h2c   []*engine.Node
	c2h   []*engine.Node
	nodes map[string]*engine.Node

	subs []hal.Submitter
}

// New opens every channel the profile configures and binds a named
// node to each engine. On failure all channels opened so far are
// closed again.
func New(cfg Config) (*Card, error) {
	if err := cfg.Profile.Validate(); err != nil {
		return nil, err
	}
	if cfg.Backend == nil {
		return nil, fmt.Errorf("card %q: no backend: %w",
			cfg.Profile.Name, pkg.ErrNoDevice)
	}

	c := &Card{
		name:     cfg.Profile.Name,
		backend:  cfg.Backend,
		recorder: cfg.Recorder,
		nodes:    make(map[string]*engine.Node),
	}

	var err error
	if c.h2c, err = c.openChannels(engine.HostToDevice, cfg.Profile.H2C); err != nil {
		c.closeSubmitters()
		return nil, err
	}
	if c.c2h, err = c.openChannels(engine.DeviceToHost, cfg.Profile.C2H); err != nil {
		c.closeSubmitters()
		return nil, err
	}

	pkg.LogInfo(pkg.ComponentCard, "card created",
		"card", c.name,
		"h2c", len(c.h2c),
		"c2h", len(c.c2h))

	return c, nil
}

// openChannels opens one direction's channels in index order.
func (c *Card) openChannels(dir engine.Direction, channels []ChannelProfile) ([]*engine.Node, error) {
	nodes := make([]*engine.Node, 0, len(channels))

	for i, ch := range channels {
		sub, err := c.backend.OpenEngine(dir, i, ch.Streaming)
		if err != nil {
			return nil, fmt.Errorf("card %q: open %s channel %d: %w",
				c.name, dir, i, err)
		}
		c.subs = append(c.subs, sub)

		name := fmt.Sprintf("%s_%s_%d", c.name, dir, i)
		eng, err := engine.New(engine.Config{
			Name:      name,
			Channel:   i,
			Direction: dir,
			Streaming: ch.Streaming,
			Alignment: ch.Alignment,
			Timeout:   ch.timeout(),
			Submitter: sub,
		})
		if err != nil {
			return nil, err
		}
		if c.recorder != nil {
			eng.SetObserver(c.recorder)
		}

		node := engine.NewNode(name, eng)
		c.nodes[name] = node
		nodes = append(nodes, node)

		pkg.LogDebug(pkg.ComponentCard, "channel opened",
			"card", c.name,
			"node", name,
			"streaming", ch.Streaming)
	}

	return nodes, nil
}

// Name returns the card's name.
func (c *Card) Name() string { return c.name }

// Recorder returns the stats recorder attached to the card's engines,
// or nil when none was configured.
func (c *Card) Recorder() *stats.Recorder { return c.recorder }

// Node returns the named node, or nil if the card has no such node.
func (c *Card) Node(name string) *engine.Node { return c.nodes[name] }

// Nodes returns every node on the card, sorted by name.
func (c *Card) Nodes() []*engine.Node {
	nodes := make([]*engine.Node, 0, len(c.nodes))
	for _, n := range c.nodes {
		nodes = append(nodes, n)
	}
	sort.Slice(nodes, func(i, j int) bool {
		return nodes[i].Name() < nodes[j].Name()
	})
	return nodes
}

// H2C returns the host-to-device node for channel i, or nil when the
// channel is not configured.
func (c *Card) H2C(i int) *engine.Node {
	if i < 0 || i >= len(c.h2c) {
		return nil
	}
	return c.h2c[i]
}

// C2H returns the device-to-host node for channel i, or nil when the
// channel is not configured.
func (c *Card) C2H(i int) *engine.Node {
	if i < 0 || i >= len(c.c2h) {
		return nil
	}
	return c.c2h[i]
}

// Close releases every channel submitter and then the backend.
func (c *Card) Close() error {
	errs := []error{c.closeSubmitters()}
	errs = append(errs, c.backend.Close())

	pkg.LogInfo(pkg.ComponentCard, "card closed", "card", c.name)

	return errors.Join(errs...)
}

func (c *Card) closeSubmitters() error {
	var errs []error
	for _, sub := range c.subs {
		errs = append(errs, sub.Close())
	}
	c.subs = nil
	return errors.Join(errs...)
}
