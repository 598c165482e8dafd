package config

import (
	"fmt"
	"os"
)

// WriteTemplate writes the annotated default daemon config to path.
func WriteTemplate(path string, overwrite bool) error {
	if !overwrite {
		if _, err := os.Stat(path); err == nil {
			return fmt.Errorf("config already exists: %s", path)
		}
	}
	return os.WriteFile(path, []byte(daemonTemplate), 0o600)
}

const daemonTemplate = `[dmx]
listen_addr = ":5568"
# interface = "eth0"
multicast = true

[fixture]
universe = 5
speed_channel = 10
direction_channel = 11

[motor]
pwm_chip = 0
pwm_channel = 0
pwm_frequency_hz = 20000

[gpio]
brake_pin = 354
direction_pin = 355
forward_drive_pin = 111
reverse_drive_pin = 112
safety_pin = 117

[admin]
addr = ":9000"
cors_origins = ["http://localhost:3000"]
`
