// Package fixture owns the windmill side of the house: the high-level state
// the DMX controller asks for, the transition rules that keep a large
// spinning wooden blade from doing anything abrupt, and the loop that drives
// the motor hardware toward the asked-for state.
package fixture

// Mode enumerates the windmill's coarse operating modes.
type Mode uint8

const (
	ModeOff Mode = iota
	// ModeCooldown waits for momentum to die down after braking, before the
	// fixture is willing to spin again.
	ModeCooldown
	ModeForward
	ModeReverse
)

func (m Mode) String() string {
	switch m {
	case ModeOff:
		return "off"
	case ModeCooldown:
		return "cooldown"
	case ModeForward:
		return "forward"
	case ModeReverse:
		return "reverse"
	default:
		return "unknown"
	}
}

// State is one windmill state: current, previous, or desired depending on
// context. Speed is meaningful for forward/reverse, Remaining for cooldown.
type State struct {
	Mode      Mode
	Speed     uint8
	Remaining uint8
}

func Off() State {
	return State{Mode: ModeOff}
}

func Cooldown(remaining uint8) State {
	return State{Mode: ModeCooldown, Remaining: remaining}
}

func Forward(speed uint8) State {
	return State{Mode: ModeForward, Speed: speed}
}

func Reverse(speed uint8) State {
	return State{Mode: ModeReverse, Speed: speed}
}

const (
	// MaxSpeedChangePerCycle bounds acceleration per update cycle.
	MaxSpeedChangePerCycle uint8 = 1
	// CooldownCycles is how many update cycles braking momentum gets to die
	// down before normal operation resumes.
	CooldownCycles uint8 = 100
)

// Evaluate reconciles the current state with the desired one, producing the
// state for the next update cycle. It is pure: hardware effects come from
// the runner reacting to the returned transition.
func Evaluate(current, desired State) State {
	switch {
	case current.Mode == ModeCooldown && current.Remaining > 0:
		// Cooling down takes priority over anything the controller wants.
		return Cooldown(current.Remaining - 1)

	case current.Mode == ModeCooldown:
		return Off()

	case desired.Mode == ModeCooldown:
		// Cooldown is never a valid desire, only a present state. If it
		// shows up here something upstream is broken; safest is off.
		return Off()

	case current.Mode == ModeOff && desired.Mode == ModeOff:
		return Off()

	case current.Mode == ModeOff && desired.Mode == ModeForward:
		// Spin-up starts from zero; speed ramps on subsequent cycles.
		return Forward(0)

	case current.Mode == ModeOff && desired.Mode == ModeReverse:
		return Reverse(0)

	case current.Mode == desired.Mode:
		if current.Mode == ModeForward {
			return Forward(easeToward(current.Speed, desired.Speed))
		}
		return Reverse(easeToward(current.Speed, desired.Speed))

	default:
		// Stop request or hard direction reversal: brake and cool down.
		return Cooldown(CooldownCycles)
	}
}

// easeToward moves at most MaxSpeedChangePerCycle toward desired, clamping to
// it so the ramp settles instead of oscillating.
func easeToward(current, desired uint8) uint8 {
	switch {
	case current == desired:
		return current
	case current > desired:
		if current-desired <= MaxSpeedChangePerCycle {
			return desired
		}
		return current - MaxSpeedChangePerCycle
	default:
		if desired-current <= MaxSpeedChangePerCycle {
			return desired
		}
		return current + MaxSpeedChangePerCycle
	}
}
