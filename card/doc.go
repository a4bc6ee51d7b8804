// Package card assembles one DMA device from a channel profile and a
// backend.
//
// A [Profile] names the card and lists its channels per direction,
// loadable from YAML via [LoadProfile]. [New] opens a submitter for
// every channel through the configured [hal.Backend], wraps each in an
// engine, and binds the engines to nodes named the way the device
// files of a PCIe DMA card are named:
//
//	<card>_h2c_<n>    host-to-device channel n
//	<card>_c2h_<n>    device-to-host channel n
//
// When a stats recorder is configured, it is attached as the observer
// of every engine, so one recorder aggregates the whole card.
//
// # Example
//
//	c, err := card.New(card.Config{
//	    Profile:  card.DefaultProfile(),
//	    Backend:  loopback.New(loopback.Config{}),
//	    Recorder: stats.New(),
//	})
//	if err != nil {
//	    return err
//	}
//	defer c.Close()
//	h, err := c.H2C(0).Open(engine.WriteOnly)
package card
