package fixture

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/sievenpiper/windmillctl/internal/observability"
)

var ErrUpdatesClosed = errors.New("fixture: desired state stream closed")

// Motor is the speed output, satisfied by the PWM driver.
type Motor interface {
	SetDutyCycle(percent uint8) error
}

// Relays is the digital relay bundle the reconcile loop flips on state
// transitions.
type Relays interface {
	DirectionForward() error
	DirectionReverse() error
	BrakeRun() error
	BrakeStop() error
	SafetyGo() error
	SafetyNo() error
}

const (
	// DefaultTickInterval paces the reconcile loop. Anything near 10ms is
	// indistinguishable from realtime for this hardware.
	DefaultTickInterval = 10 * time.Millisecond
	// UpdateEveryTicks is the linear easing divider: state moves once per
	// this many ticks.
	UpdateEveryTicks = 6

	inputMax  = 255
	outputMax = 100
)

// Runner reconciles the windmill's current state with the latest desired
// state from the DMX bridge, pushing the difference into relays and the
// motor's duty cycle.
type Runner struct {
	motor   Motor
	relays  Relays
	updates <-chan State

	tickInterval time.Duration
	updateTicks  int

	mu      sync.RWMutex
	current State
	desired State
	tick    int
}

func NewRunner(motor Motor, relays Relays, updates <-chan State) *Runner {
	return &Runner{
		motor:        motor,
		relays:       relays,
		updates:      updates,
		tickInterval: DefaultTickInterval,
		updateTicks:  UpdateEveryTicks,
		current:      Off(),
		desired:      Off(),
	}
}

// Snapshot reports the current reconciled state.
func (r *Runner) Snapshot() State {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.current
}

// Desired reports the latest desired state received from the controller.
func (r *Runner) Desired() State {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.desired
}

// Run drives the reconcile loop until ctx is canceled or the update stream
// closes. On any exit the hardware is panic-stopped: brake on, safety off,
// duty cycle zero.
func (r *Runner) Run(ctx context.Context) error {
	if err := r.prepare(); err != nil {
		return err
	}
	defer r.panicStop()

	ticker := time.NewTicker(r.tickInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			if err := r.step(); err != nil {
				return err
			}
		}
	}
}

// prepare puts the relays in a known-safe starting posture.
func (r *Runner) prepare() error {
	if err := r.relays.DirectionForward(); err != nil {
		return err
	}
	if err := r.relays.BrakeStop(); err != nil {
		return err
	}
	return r.relays.SafetyGo()
}

// step advances one tick: absorb the newest desired state, and on every
// update cycle move the current state one evaluation closer to it.
func (r *Runner) step() error {
	for {
		select {
		case desired, ok := <-r.updates:
			if !ok {
				return ErrUpdatesClosed
			}
			r.mu.Lock()
			r.desired = desired
			r.mu.Unlock()
			continue
		default:
		}
		break
	}

	r.tick = (r.tick + 1) % r.updateTicks
	if r.tick != 0 {
		return nil
	}

	r.mu.RLock()
	current, desired := r.current, r.desired
	r.mu.RUnlock()

	next := Evaluate(current, desired)
	if next == current {
		return nil
	}

	r.apply(current, next)

	r.mu.Lock()
	r.current = next
	r.mu.Unlock()
	return nil
}

// apply flips relays on mode edges and keeps the duty cycle tracking the new
// state. Hardware write failures are logged, never fatal: the loop must keep
// reconciling.
func (r *Runner) apply(prev, next State) {
	switch {
	case prev.Mode == ModeOff && next.Mode == ModeForward:
		r.relayWrite("direction_forward", r.relays.DirectionForward)
		r.relayWrite("brake_run", r.relays.BrakeRun)
	case prev.Mode == ModeOff && next.Mode == ModeReverse:
		r.relayWrite("direction_reverse", r.relays.DirectionReverse)
		r.relayWrite("brake_run", r.relays.BrakeRun)
	case next.Mode == ModeCooldown && prev.Mode != ModeCooldown:
		r.relayWrite("brake_stop", r.relays.BrakeStop)
	}

	if next.Mode != prev.Mode {
		observability.RecordStateTransition(next.Mode.String())
	}

	percent := dutyCyclePercent(next)
	if err := r.motor.SetDutyCycle(percent); err != nil {
		log.Error().Uint8("percent", percent).Err(err).Msg("failed to update duty cycle")
		return
	}
	observability.SetDutyCycle(percent)
}

func (r *Runner) relayWrite(name string, write func() error) {
	if err := write(); err != nil {
		log.Error().Str("relay", name).Err(err).Msg("relay write failed")
	}
}

// panicStop pulls the motor off line: brake engaged, safety relay open, duty
// cycle zero. Best effort, used on every loop exit.
func (r *Runner) panicStop() {
	r.relayWrite("brake_stop", r.relays.BrakeStop)
	r.relayWrite("safety_no", r.relays.SafetyNo)
	if err := r.motor.SetDutyCycle(0); err != nil {
		log.Error().Err(err).Msg("failed to zero duty cycle during stop")
	}
}

// dutyCyclePercent scales the DMX 0-255 speed onto the 0-100 scale the PWM
// driver exposes.
func dutyCyclePercent(s State) uint8 {
	switch s.Mode {
	case ModeForward, ModeReverse:
		return uint8(float64(s.Speed) * outputMax / inputMax)
	default:
		return 0
	}
}
