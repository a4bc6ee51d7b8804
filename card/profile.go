package card

import (
	"errors"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/softdma/softdma/engine"
	"github.com/softdma/softdma/pkg"
)

// Profile describes one card: the node-name prefix, the emulated
// memory size, and the channel layout per direction.
type Profile struct {
	// Name prefixes every node name on the card ("<name>_h2c_<n>").
	Name string `yaml:"name"`

	// MemorySize is the device memory size in bytes, consumed by
	// backends that emulate card memory. Zero keeps the backend
	// default.
	MemorySize int `yaml:"memory_size,omitempty"`

	// H2C and C2H list the channels per direction in index order.
	H2C []ChannelProfile `yaml:"h2c"`
	C2H []ChannelProfile `yaml:"c2h"`
}

// ChannelProfile configures one engine channel.
type ChannelProfile struct {
	// Streaming selects AXI-Stream operation: no device-side
	// addressing, packet-oriented transfers.
	Streaming bool `yaml:"streaming,omitempty"`

	// Alignment overrides the backend's address alignment requirement
	// in bytes. Must be a power of two. Zero keeps the backend value.
	Alignment uint32 `yaml:"alignment,omitempty"`

	// TimeoutMS bounds each submission, in milliseconds. Zero selects
	// the engine default.
	TimeoutMS uint32 `yaml:"timeout_ms,omitempty"`
}

// timeout converts the channel's millisecond bound to a duration.
func (c ChannelProfile) timeout() time.Duration {
	return time.Duration(c.TimeoutMS) * time.Millisecond
}

// DefaultProfile returns a card named "card0" with one addressed
// channel per direction.
func DefaultProfile() Profile {
	return Profile{
		Name: "card0",
		H2C:  []ChannelProfile{{}},
		C2H:  []ChannelProfile{{}},
	}
}

// LoadProfile reads and validates a YAML profile from path.
func LoadProfile(path string) (Profile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Profile{}, fmt.Errorf("profile %s: %w", path, err)
	}

	var p Profile
	if err := yaml.Unmarshal(data, &p); err != nil {
		return Profile{}, fmt.Errorf("profile %s: %w", path, err)
	}
	if err := p.Validate(); err != nil {
		return Profile{}, fmt.Errorf("profile %s: %w", path, err)
	}
	return p, nil
}

// Validate checks the profile for errors. Every failure wraps
// [pkg.ErrInvalidProfile]; multiple failures are joined.
func (p *Profile) Validate() error {
	var errs []error

	if p.Name == "" {
		errs = append(errs, fmt.Errorf("name is required: %w", pkg.ErrInvalidProfile))
	}
	if p.MemorySize < 0 {
		errs = append(errs, fmt.Errorf("memory_size %d is negative: %w",
			p.MemorySize, pkg.ErrInvalidProfile))
	}
	if len(p.H2C) == 0 && len(p.C2H) == 0 {
		errs = append(errs, fmt.Errorf("no channels configured: %w", pkg.ErrInvalidProfile))
	}
	if len(p.H2C) > engine.MaxChannels {
		errs = append(errs, fmt.Errorf("%d h2c channels, hardware maximum is %d: %w",
			len(p.H2C), engine.MaxChannels, pkg.ErrInvalidProfile))
	}
	if len(p.C2H) > engine.MaxChannels {
		errs = append(errs, fmt.Errorf("%d c2h channels, hardware maximum is %d: %w",
			len(p.C2H), engine.MaxChannels, pkg.ErrInvalidProfile))
	}

	for i, ch := range p.H2C {
		if err := ch.validate(); err != nil {
			errs = append(errs, fmt.Errorf("h2c[%d]: %w", i, err))
		}
	}
	for i, ch := range p.C2H {
		if err := ch.validate(); err != nil {
			errs = append(errs, fmt.Errorf("c2h[%d]: %w", i, err))
		}
	}

	return errors.Join(errs...)
}

func (c ChannelProfile) validate() error {
	if c.Alignment != 0 && c.Alignment&(c.Alignment-1) != 0 {
		return fmt.Errorf("alignment %d is not a power of two: %w",
			c.Alignment, pkg.ErrInvalidProfile)
	}
	return nil
}
