// Package config loads the daemon's TOML configuration.
package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/pelletier/go-toml/v2"

	"github.com/sievenpiper/windmillctl/internal/fixture"
	"github.com/sievenpiper/windmillctl/internal/gpio"
	"github.com/sievenpiper/windmillctl/internal/pwm"
	"github.com/sievenpiper/windmillctl/internal/sacn"
)

type DaemonConfig struct {
	DMX     DMXConfig     `toml:"dmx"`
	Fixture FixtureConfig `toml:"fixture"`
	Motor   MotorConfig   `toml:"motor"`
	GPIO    GPIOConfig    `toml:"gpio"`
	Admin   AdminConfig   `toml:"admin"`
}

type DMXConfig struct {
	ListenAddr string `toml:"listen_addr"`
	Interface  string `toml:"interface"`
	Multicast  *bool  `toml:"multicast"`
}

type FixtureConfig struct {
	Universe         uint16 `toml:"universe"`
	SpeedChannel     uint16 `toml:"speed_channel"`
	DirectionChannel uint16 `toml:"direction_channel"`
}

type MotorConfig struct {
	PWMChip        int    `toml:"pwm_chip"`
	PWMChannel     int    `toml:"pwm_channel"`
	PWMFrequencyHz uint32 `toml:"pwm_frequency_hz"`
}

type GPIOConfig struct {
	BrakePin        int `toml:"brake_pin"`
	DirectionPin    int `toml:"direction_pin"`
	ForwardDrivePin int `toml:"forward_drive_pin"`
	ReverseDrivePin int `toml:"reverse_drive_pin"`
	SafetyPin       int `toml:"safety_pin"`
}

type AdminConfig struct {
	Addr        string   `toml:"addr"`
	CorsOrigins []string `toml:"cors_origins"`
}

// LoadDaemonConfig reads path, fills defaults for anything unset, and
// validates the result.
func LoadDaemonConfig(path string) (DaemonConfig, error) {
	var cfg DaemonConfig
	if err := loadToml(path, &cfg); err != nil {
		return DaemonConfig{}, err
	}
	cfg = WithDefaults(cfg)
	if err := ValidateDaemonConfig(cfg); err != nil {
		return DaemonConfig{}, err
	}
	return cfg, nil
}

// Default returns the production configuration with no file applied.
func Default() DaemonConfig {
	return WithDefaults(DaemonConfig{})
}

// WithDefaults fills every unset field with its production default.
func WithDefaults(cfg DaemonConfig) DaemonConfig {
	if cfg.DMX.ListenAddr == "" {
		cfg.DMX.ListenAddr = fmt.Sprintf(":%d", sacn.Port)
	}
	if cfg.DMX.Multicast == nil {
		multicast := true
		cfg.DMX.Multicast = &multicast
	}
	if cfg.Fixture.Universe == 0 {
		cfg.Fixture.Universe = 5
	}
	if cfg.Fixture.SpeedChannel == 0 {
		cfg.Fixture.SpeedChannel = 10
	}
	if cfg.Fixture.DirectionChannel == 0 {
		cfg.Fixture.DirectionChannel = 11
	}
	if cfg.Motor.PWMFrequencyHz == 0 {
		cfg.Motor.PWMFrequencyHz = 20000
	}
	if cfg.GPIO == (GPIOConfig{}) {
		pins := gpio.DefaultPinNumbers()
		cfg.GPIO = GPIOConfig{
			BrakePin:        pins.Brake,
			DirectionPin:    pins.Direction,
			ForwardDrivePin: pins.ForwardDrive,
			ReverseDrivePin: pins.ReverseDrive,
			SafetyPin:       pins.Safety,
		}
	}
	if cfg.Admin.Addr == "" {
		cfg.Admin.Addr = ":9000"
	}
	return cfg
}

func loadToml(path string, out any) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("config load failed (%s): %w", path, err)
	}
	if err := toml.Unmarshal(data, out); err != nil {
		return fmt.Errorf("config parse failed (%s): %w", path, err)
	}
	return nil
}

func ValidateDaemonConfig(cfg DaemonConfig) error {
	if strings.TrimSpace(cfg.DMX.ListenAddr) == "" {
		return fmt.Errorf("dmx config missing listen_addr")
	}
	if err := cfg.Mapping().Validate(); err != nil {
		return fmt.Errorf("fixture config invalid: %w", err)
	}
	if cfg.Motor.PWMFrequencyHz == 0 {
		return fmt.Errorf("motor config missing pwm_frequency_hz")
	}
	if cfg.Motor.PWMChip < 0 || cfg.Motor.PWMChannel < 0 {
		return fmt.Errorf("motor config pwm chip/channel is negative")
	}
	for _, pin := range []struct {
		name   string
		number int
	}{
		{"brake_pin", cfg.GPIO.BrakePin},
		{"direction_pin", cfg.GPIO.DirectionPin},
		{"forward_drive_pin", cfg.GPIO.ForwardDrivePin},
		{"reverse_drive_pin", cfg.GPIO.ReverseDrivePin},
		{"safety_pin", cfg.GPIO.SafetyPin},
	} {
		if pin.number < 0 {
			return fmt.Errorf("gpio config %s is negative", pin.name)
		}
	}
	if strings.TrimSpace(cfg.Admin.Addr) == "" {
		return fmt.Errorf("admin config missing addr")
	}
	return nil
}

// Mapping projects the fixture section into the DMX channel mapping.
func (cfg DaemonConfig) Mapping() fixture.Mapping {
	return fixture.Mapping{
		Universe:         cfg.Fixture.Universe,
		SpeedChannel:     cfg.Fixture.SpeedChannel,
		DirectionChannel: cfg.Fixture.DirectionChannel,
	}
}

// ClientConfig projects the dmx section into the receiver configuration.
func (cfg DaemonConfig) ClientConfig() sacn.Config {
	out := sacn.DefaultConfig()
	out.ListenAddr = cfg.DMX.ListenAddr
	out.Interface = cfg.DMX.Interface
	if cfg.DMX.Multicast != nil {
		out.Multicast = *cfg.DMX.Multicast
	}
	return out
}

// MotorConfigFor projects the motor section into the PWM driver
// configuration.
func (cfg DaemonConfig) MotorConfigFor(root string) pwm.Config {
	return pwm.Config{
		Root:        root,
		Chip:        cfg.Motor.PWMChip,
		Channel:     cfg.Motor.PWMChannel,
		FrequencyHz: cfg.Motor.PWMFrequencyHz,
	}
}

// PinNumbers projects the gpio section into the relay pin bundle.
func (cfg DaemonConfig) PinNumbers() gpio.PinNumbers {
	return gpio.PinNumbers{
		Brake:        cfg.GPIO.BrakePin,
		Direction:    cfg.GPIO.DirectionPin,
		ForwardDrive: cfg.GPIO.ForwardDrivePin,
		ReverseDrive: cfg.GPIO.ReverseDrivePin,
		Safety:       cfg.GPIO.SafetyPin,
	}
}
