// Package pwm drives one hardware PWM channel through the kernel's sysfs
// interface. Writes happen from userspace, so the hot path (duty cycle
// updates) avoids allocations by precomputing every control string at open
// time.
package pwm

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

// DefaultSysfsRoot is where the kernel exposes PWM chips.
const DefaultSysfsRoot = "/sys/class/pwm"

// Polarity selects whether the duty cycle represents active-high or
// active-low time. Some boards default to inverse, which holds the line high
// at zero duty; callers deal with that with relay gating, not here.
type Polarity string

const (
	PolarityNormal  Polarity = "normal"
	PolarityInverse Polarity = "inverse"
)

var (
	ErrBadFrequency       = errors.New("pwm: frequency must be positive")
	ErrChipUnavailable    = errors.New("pwm: chip not detected: is it enabled on your hardware?")
	ErrBadChannelCount    = errors.New("pwm: unable to parse chip channel count")
	ErrChannelUnsupported = errors.New("pwm: chip does not have the requested channel")
	ErrExportFailed       = errors.New("pwm: failed to export channel")
)

// Config locates the chip/channel and fixes the signal frequency. Frequency
// is set once: the driver optimizes for duty cycle updates, not frequency
// sweeps. Reopen with a new Config to change it.
type Config struct {
	// Root overrides the sysfs base path. Empty means DefaultSysfsRoot.
	Root        string
	Chip        int
	Channel     int
	FrequencyHz uint32
}

// Driver owns one exported PWM channel.
type Driver struct {
	channel int

	periodString string
	// One precomputed string per duty cycle percent. Controllers expose the
	// signal to operators on a 0-100 scale anyway, so 1% granularity is all
	// anyone can reach.
	dutyCycleStrings [101]string

	maxChannelsPath string
	exportPath      string
	polarityPath    string
	periodPath      string
	dutyCyclePath   string
	enablePath      string
}

// Open prepares the channel for use: verifies the chip has it, exports it if
// needed, then programs normal polarity, the period, a zero duty cycle, and
// enables output.
func Open(cfg Config) (*Driver, error) {
	if cfg.FrequencyHz == 0 {
		return nil, ErrBadFrequency
	}
	root := cfg.Root
	if root == "" {
		root = DefaultSysfsRoot
	}

	// Period is expressed in nanoseconds.
	period := uint64(1_000_000_000) / uint64(cfg.FrequencyHz)

	chipDir := filepath.Join(root, fmt.Sprintf("pwmchip%d", cfg.Chip))
	channelDir := filepath.Join(chipDir, fmt.Sprintf("pwm%d", cfg.Channel))

	d := &Driver{
		channel:         cfg.Channel,
		periodString:    strconv.FormatUint(period, 10),
		maxChannelsPath: filepath.Join(chipDir, "npwm"),
		exportPath:      filepath.Join(chipDir, "export"),
		polarityPath:    filepath.Join(channelDir, "polarity"),
		periodPath:      filepath.Join(channelDir, "period"),
		dutyCyclePath:   filepath.Join(channelDir, "duty_cycle"),
		enablePath:      filepath.Join(channelDir, "enable"),
	}
	d.computeDutyCycleStrings(period)

	if err := d.checkAvailableChannels(); err != nil {
		return nil, err
	}
	if err := d.ensureExported(); err != nil {
		return nil, err
	}
	if err := d.SetPolarity(PolarityNormal); err != nil {
		return nil, err
	}
	if err := os.WriteFile(d.periodPath, []byte(d.periodString), 0o644); err != nil {
		return nil, fmt.Errorf("pwm: set period: %w", err)
	}
	if err := d.SetDutyCycle(0); err != nil {
		return nil, err
	}
	if err := d.SetEnabled(true); err != nil {
		return nil, err
	}
	return d, nil
}

func (d *Driver) checkAvailableChannels() error {
	raw, err := os.ReadFile(d.maxChannelsPath)
	if err != nil {
		return ErrChipUnavailable
	}
	available, err := strconv.Atoi(strings.TrimSpace(string(raw)))
	if err != nil {
		return ErrBadChannelCount
	}
	if d.channel >= available {
		return fmt.Errorf("%w: channel %d of %d", ErrChannelUnsupported, d.channel, available)
	}
	return nil
}

// ensureExported exports the channel unless something already did, e.g. a
// previous run of this process.
func (d *Driver) ensureExported() error {
	if _, err := os.Stat(d.enablePath); err == nil {
		return nil
	}
	if err := os.WriteFile(d.exportPath, []byte(strconv.Itoa(d.channel)), 0o644); err != nil {
		return fmt.Errorf("%w: %v", ErrExportFailed, err)
	}
	if _, err := os.Stat(d.enablePath); err != nil {
		return fmt.Errorf("%w: channel controls absent after export", ErrExportFailed)
	}
	return nil
}

func (d *Driver) SetPolarity(p Polarity) error {
	if err := os.WriteFile(d.polarityPath, []byte(p), 0o644); err != nil {
		return fmt.Errorf("pwm: set polarity: %w", err)
	}
	return nil
}

// SetDutyCycle programs the pulse width as a percentage of the period,
// clamping above 100. Callers should leave at least one full period between
// updates or the scaling will not look smooth.
func (d *Driver) SetDutyCycle(percent uint8) error {
	if percent > 100 {
		percent = 100
	}
	if err := os.WriteFile(d.dutyCyclePath, []byte(d.dutyCycleStrings[percent]), 0o644); err != nil {
		return fmt.Errorf("pwm: set duty cycle: %w", err)
	}
	return nil
}

// SetEnabled turns the channel output on or off. The driver stays usable
// after disabling.
func (d *Driver) SetEnabled(enabled bool) error {
	value := "0"
	if enabled {
		value = "1"
	}
	if err := os.WriteFile(d.enablePath, []byte(value), 0o644); err != nil {
		return fmt.Errorf("pwm: set enabled: %w", err)
	}
	return nil
}

// Close zeroes and disables the channel, best effort.
func (d *Driver) Close() error {
	errDuty := d.SetDutyCycle(0)
	errEnable := d.SetEnabled(false)
	if errDuty != nil {
		return errDuty
	}
	return errEnable
}

func (d *Driver) computeDutyCycleStrings(period uint64) {
	slice := period / 100
	for i := uint64(0); i <= 100; i++ {
		d.dutyCycleStrings[i] = strconv.FormatUint(slice*i, 10)
	}
}
