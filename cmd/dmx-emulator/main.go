// dmx-emulator transmits E1.31 control frames for bench-testing the
// windmill controller without a lighting console.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/sievenpiper/windmillctl/internal/logging"
	"github.com/sievenpiper/windmillctl/internal/sacn"
)

func main() {
	scenePath := flag.String("scene", "", "scene file (TOML); overrides the speed/direction flags")
	target := flag.String("target", "", "unicast host:port; empty means the universe multicast group")
	universe := flag.Int("universe", 5, "universe to transmit on")
	speed := flag.Int("speed", 0, "speed value 0-255")
	direction := flag.String("direction", "forward", "direction: forward|reverse")
	hold := flag.Duration("hold", 0, "stop after this long; 0 means run until interrupted")
	flag.Parse()

	logging.ConfigureRuntime()

	sc, err := buildScene(*scenePath, *universe, *speed, *direction, *hold)
	if err != nil {
		log.Fatal().Err(err).Msg("invalid scene")
	}

	sender, err := sacn.NewSender(sacn.SenderConfig{
		SourceName: "dmx-emulator",
		Target:     *target,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("failed to open sender")
	}
	defer sender.Close()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, sender, sc); err != nil {
		fmt.Fprintf(os.Stderr, "dmx-emulator: %v\n", err)
		os.Exit(1)
	}
}

func buildScene(path string, universe, speed int, direction string, hold time.Duration) (scene, error) {
	if path != "" {
		return loadScene(path)
	}

	sc := defaultScene()
	if universe < 1 || universe > int(sacn.MaxUniverse) {
		return scene{}, fmt.Errorf("universe out of range: %d", universe)
	}
	sc.universe = uint16(universe)

	st, err := parseStep(fileStep{Speed: speed, Direction: direction})
	if err != nil {
		return scene{}, err
	}
	if hold > 0 {
		st.hold = hold
	} else {
		// Run the single step until interrupted.
		st.hold = time.Duration(1<<62 - 1)
	}
	sc.steps = []step{st}
	return sc, nil
}

// run plays the scene's steps at the configured frame rate, then announces
// stream termination.
func run(ctx context.Context, sender *sacn.Sender, sc scene) error {
	defer func() {
		if err := sender.Terminate(sc.universe); err != nil {
			log.Warn().Err(err).Msg("failed to terminate stream")
		}
	}()

	interval := time.Second / time.Duration(sc.frameRate)
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		for i, st := range sc.steps {
			log.Info().
				Int("step", i).
				Uint8("speed", st.speed).
				Uint8("direction", st.direction).
				Dur("hold", st.hold).
				Msg("playing step")

			slots := sc.frame(st)
			deadline := time.Now().Add(st.hold)
			for time.Now().Before(deadline) {
				select {
				case <-ctx.Done():
					return nil
				case <-ticker.C:
					if err := sender.Send(sc.universe, slots); err != nil {
						return err
					}
				}
			}
		}
		if !sc.loop {
			return nil
		}
	}
}
