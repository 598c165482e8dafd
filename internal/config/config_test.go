package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/sievenpiper/windmillctl/internal/testutil/testlog"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "windmillctl.toml")
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoadFillsDefaults(t *testing.T) {
	testlog.Start(t)
	path := writeConfig(t, "")

	cfg, err := LoadDaemonConfig(path)
	if err != nil {
		t.Fatalf("LoadDaemonConfig: %v", err)
	}
	if got, want := cfg.DMX.ListenAddr, ":5568"; got != want {
		t.Fatalf("listen_addr = %q, want %q", got, want)
	}
	if cfg.DMX.Multicast == nil || !*cfg.DMX.Multicast {
		t.Fatal("multicast should default on")
	}
	if got, want := cfg.Fixture.Universe, uint16(5); got != want {
		t.Fatalf("universe = %d, want %d", got, want)
	}
	if got, want := cfg.Fixture.SpeedChannel, uint16(10); got != want {
		t.Fatalf("speed_channel = %d, want %d", got, want)
	}
	if got, want := cfg.Fixture.DirectionChannel, uint16(11); got != want {
		t.Fatalf("direction_channel = %d, want %d", got, want)
	}
	if got, want := cfg.Motor.PWMFrequencyHz, uint32(20000); got != want {
		t.Fatalf("pwm_frequency_hz = %d, want %d", got, want)
	}
	if got, want := cfg.GPIO.BrakePin, 354; got != want {
		t.Fatalf("brake_pin = %d, want %d", got, want)
	}
	if got, want := cfg.Admin.Addr, ":9000"; got != want {
		t.Fatalf("admin addr = %q, want %q", got, want)
	}
}

func TestLoadAppliesOverrides(t *testing.T) {
	testlog.Start(t)
	path := writeConfig(t, `
[dmx]
listen_addr = "127.0.0.1:6454"
multicast = false

[fixture]
universe = 12
speed_channel = 1
direction_channel = 2

[motor]
pwm_chip = 1
pwm_frequency_hz = 25000

[admin]
addr = ":8088"
cors_origins = ["http://localhost:3000"]
`)

	cfg, err := LoadDaemonConfig(path)
	if err != nil {
		t.Fatalf("LoadDaemonConfig: %v", err)
	}
	client := cfg.ClientConfig()
	if got, want := client.ListenAddr, "127.0.0.1:6454"; got != want {
		t.Fatalf("client listen addr = %q, want %q", got, want)
	}
	if client.Multicast {
		t.Fatal("multicast override not applied")
	}
	mapping := cfg.Mapping()
	if mapping.Universe != 12 || mapping.SpeedChannel != 1 || mapping.DirectionChannel != 2 {
		t.Fatalf("mapping = %+v", mapping)
	}
	motor := cfg.MotorConfigFor("")
	if motor.Chip != 1 || motor.FrequencyHz != 25000 {
		t.Fatalf("motor = %+v", motor)
	}
	// Sections the file omitted keep their defaults.
	if got, want := cfg.GPIO.SafetyPin, 117; got != want {
		t.Fatalf("safety_pin = %d, want %d", got, want)
	}
}

func TestLoadRejectsInvalidConfig(t *testing.T) {
	testlog.Start(t)
	for name, body := range map[string]string{
		"colliding channels": `
[fixture]
speed_channel = 10
direction_channel = 10
`,
		"channel out of range": `
[fixture]
speed_channel = 513
`,
		"negative pin": `
[gpio]
brake_pin = -1
safety_pin = 117
`,
		"unparsable toml": `[fixture`,
	} {
		t.Run(name, func(t *testing.T) {
			path := writeConfig(t, body)
			if _, err := LoadDaemonConfig(path); err == nil {
				t.Fatal("LoadDaemonConfig accepted invalid config")
			}
		})
	}
}

func TestLoadMissingFile(t *testing.T) {
	testlog.Start(t)
	if _, err := LoadDaemonConfig(filepath.Join(t.TempDir(), "absent.toml")); err == nil {
		t.Fatal("LoadDaemonConfig accepted missing file")
	}
}

func TestTemplateRoundTrips(t *testing.T) {
	testlog.Start(t)
	path := filepath.Join(t.TempDir(), "windmillctl.toml")
	if err := WriteTemplate(path, false); err != nil {
		t.Fatalf("WriteTemplate: %v", err)
	}
	if err := WriteTemplate(path, false); err == nil {
		t.Fatal("WriteTemplate overwrote without overwrite flag")
	}

	cfg, err := LoadDaemonConfig(path)
	if err != nil {
		t.Fatalf("template does not load: %v", err)
	}
	// The template spells out every default, so loading it must match the
	// built-in defaults.
	def := Default()
	if cfg.Fixture != def.Fixture {
		t.Fatalf("template fixture = %+v, want %+v", cfg.Fixture, def.Fixture)
	}
	if cfg.Motor != def.Motor {
		t.Fatalf("template motor = %+v, want %+v", cfg.Motor, def.Motor)
	}
	if cfg.GPIO != def.GPIO {
		t.Fatalf("template gpio = %+v, want %+v", cfg.GPIO, def.GPIO)
	}
	if cfg.Admin.Addr != def.Admin.Addr {
		t.Fatalf("template admin addr = %q, want %q", cfg.Admin.Addr, def.Admin.Addr)
	}
}
