package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/rs/zerolog/log"

	"github.com/sievenpiper/windmillctl/internal/config"
	"github.com/sievenpiper/windmillctl/internal/daemon"
	"github.com/sievenpiper/windmillctl/internal/gpio"
	"github.com/sievenpiper/windmillctl/internal/logging"
	"github.com/sievenpiper/windmillctl/internal/pwm"
)

func main() {
	configPath := flag.String("config", "", "daemon config file (TOML); defaults apply when omitted")
	writeConfig := flag.String("write-config", "", "write the default config template to this path and exit")
	force := flag.Bool("force", false, "overwrite an existing file when writing the config template")
	flag.Parse()

	logging.ConfigureRuntime()

	if *writeConfig != "" {
		if err := config.WriteTemplate(*writeConfig, *force); err != nil {
			log.Fatal().Err(err).Msg("failed to write config template")
		}
		log.Info().Str("path", *writeConfig).Msg("wrote config template")
		return
	}

	cfg := config.Default()
	if *configPath != "" {
		loaded, err := config.LoadDaemonConfig(*configPath)
		if err != nil {
			log.Fatal().Err(err).Msg("failed to load daemon config")
		}
		cfg = loaded
		log.Info().Str("path", *configPath).Msg("loaded daemon config")
	}

	motor, err := pwm.Open(cfg.MotorConfigFor(""))
	if err != nil {
		log.Fatal().Err(err).Msg("failed to open pwm motor control")
	}
	defer motor.Close()

	relays, err := gpio.OpenRelays("", cfg.PinNumbers())
	if err != nil {
		log.Fatal().Err(err).Msg("failed to open relay pins")
	}

	svc := daemon.NewService(cfg, daemon.Hardware{Motor: motor, Relays: relays})
	if err := svc.Run(); err != nil {
		fmt.Fprintf(os.Stderr, "windmillctl: %v\n", err)
		os.Exit(1)
	}
}
