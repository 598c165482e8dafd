package fixture

import (
	"errors"
	"fmt"

	"github.com/sievenpiper/windmillctl/internal/dmx"
)

var (
	ErrBadChannel      = errors.New("fixture: channel out of range")
	ErrChannelsCollide = errors.New("fixture: speed and direction channels collide")
)

// Mapping says which universe the windmill is patched into and which 1-based
// DMX channels carry its speed and direction signals.
type Mapping struct {
	Universe         uint16
	SpeedChannel     uint16
	DirectionChannel uint16
}

func (m Mapping) Validate() error {
	if m.SpeedChannel < 1 || m.SpeedChannel > dmx.UniverseSize {
		return fmt.Errorf("%w: speed channel %d", ErrBadChannel, m.SpeedChannel)
	}
	if m.DirectionChannel < 1 || m.DirectionChannel > dmx.UniverseSize {
		return fmt.Errorf("%w: direction channel %d", ErrBadChannel, m.DirectionChannel)
	}
	if m.SpeedChannel == m.DirectionChannel {
		return fmt.Errorf("%w: channel %d", ErrChannelsCollide, m.SpeedChannel)
	}
	return nil
}

// Desired translates one frame into the windmill state the operator is
// asking for. Speed zero means off; direction splits the fader in half,
// 0-127 forward and 128-255 reverse. Channel numbers are 1-based, the
// buffer is 0-indexed.
func (m Mapping) Desired(frame *dmx.Buffer) State {
	speed := frame.Get(m.SpeedChannel - 1)
	direction := frame.Get(m.DirectionChannel - 1)

	if speed == 0 {
		return Off()
	}
	if direction <= 127 {
		return Forward(speed)
	}
	return Reverse(speed)
}
