package gpio

import "fmt"

// Relay polarities as wired on the controller board. The brake and safety
// relays are active-low so a dead controller fails into the safe state.
const (
	brakeStop = Low
	brakeRun  = High

	directionForward = Low
	directionReverse = High

	driveInactive = Low
	driveActive   = High

	safetyNo = Low
	safetyGo = High
)

// PinNumbers are the sysfs line numbers for each relay.
type PinNumbers struct {
	Brake        int
	Direction    int
	ForwardDrive int
	ReverseDrive int
	Safety       int
}

// DefaultPinNumbers matches the production controller wiring.
func DefaultPinNumbers() PinNumbers {
	return PinNumbers{
		Brake:        354,
		Direction:    355,
		ForwardDrive: 111,
		ReverseDrive: 112,
		Safety:       117,
	}
}

// Pins holds one output per relay.
type Pins struct {
	Brake        Pin
	Direction    Pin
	ForwardDrive Pin
	ReverseDrive Pin
	Safety       Pin
}

// Relays flips the windmill's relay bank. Direction changes also gate the
// matching drive relay so only one winding is ever energized.
type Relays struct {
	pins Pins
}

func NewRelays(pins Pins) *Relays {
	return &Relays{pins: pins}
}

// OpenRelays exports every relay pin under root and returns the bundle.
func OpenRelays(root string, numbers PinNumbers) (*Relays, error) {
	pins := Pins{}
	for _, p := range []struct {
		name   string
		number int
		dst    *Pin
	}{
		{"brake", numbers.Brake, &pins.Brake},
		{"direction", numbers.Direction, &pins.Direction},
		{"forward-drive", numbers.ForwardDrive, &pins.ForwardDrive},
		{"reverse-drive", numbers.ReverseDrive, &pins.ReverseDrive},
		{"safety", numbers.Safety, &pins.Safety},
	} {
		pin, err := Export(root, p.number)
		if err != nil {
			return nil, fmt.Errorf("gpio: open %s relay: %w", p.name, err)
		}
		*p.dst = pin
	}
	return NewRelays(pins), nil
}

func (r *Relays) DirectionForward() error {
	if err := r.pins.Direction.Write(directionForward); err != nil {
		return err
	}
	if err := r.pins.ReverseDrive.Write(driveInactive); err != nil {
		return err
	}
	return r.pins.ForwardDrive.Write(driveActive)
}

func (r *Relays) DirectionReverse() error {
	if err := r.pins.Direction.Write(directionReverse); err != nil {
		return err
	}
	if err := r.pins.ForwardDrive.Write(driveInactive); err != nil {
		return err
	}
	return r.pins.ReverseDrive.Write(driveActive)
}

func (r *Relays) BrakeRun() error {
	return r.pins.Brake.Write(brakeRun)
}

func (r *Relays) BrakeStop() error {
	return r.pins.Brake.Write(brakeStop)
}

func (r *Relays) SafetyGo() error {
	return r.pins.Safety.Write(safetyGo)
}

func (r *Relays) SafetyNo() error {
	return r.pins.Safety.Write(safetyNo)
}
