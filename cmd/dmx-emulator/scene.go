package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/BurntSushi/toml"

	"github.com/sievenpiper/windmillctl/internal/sacn"
)

// step is one held control state: a speed, a direction, and how long to
// keep transmitting it.
type step struct {
	speed     uint8
	direction uint8
	hold      time.Duration
}

type scene struct {
	universe         uint16
	speedChannel     uint16
	directionChannel uint16
	frameRate        int
	loop             bool
	steps            []step
}

func defaultScene() scene {
	return scene{
		universe:         5,
		speedChannel:     10,
		directionChannel: 11,
		frameRate:        30,
	}
}

type fileScene struct {
	Universe         int        `toml:"universe"`
	SpeedChannel     int        `toml:"speed_channel"`
	DirectionChannel int        `toml:"direction_channel"`
	FrameRate        int        `toml:"frame_rate"`
	Loop             bool       `toml:"loop"`
	Steps            []fileStep `toml:"steps"`
}

type fileStep struct {
	Speed     int    `toml:"speed"`
	Direction string `toml:"direction"`
	Hold      string `toml:"hold"`
}

func loadScene(path string) (scene, error) {
	sc := defaultScene()

	var raw fileScene
	meta, err := toml.DecodeFile(path, &raw)
	if err != nil {
		return scene{}, fmt.Errorf("load scene: %w", err)
	}

	if meta.IsDefined("universe") {
		if raw.Universe < 1 || raw.Universe > int(sacn.MaxUniverse) {
			return scene{}, fmt.Errorf("scene universe out of range: %d", raw.Universe)
		}
		sc.universe = uint16(raw.Universe)
	}
	if meta.IsDefined("speed_channel") {
		ch, err := channel(raw.SpeedChannel)
		if err != nil {
			return scene{}, fmt.Errorf("scene speed_channel: %w", err)
		}
		sc.speedChannel = ch
	}
	if meta.IsDefined("direction_channel") {
		ch, err := channel(raw.DirectionChannel)
		if err != nil {
			return scene{}, fmt.Errorf("scene direction_channel: %w", err)
		}
		sc.directionChannel = ch
	}
	if meta.IsDefined("frame_rate") {
		if raw.FrameRate < 1 || raw.FrameRate > 44 {
			return scene{}, fmt.Errorf("scene frame_rate out of range: %d", raw.FrameRate)
		}
		sc.frameRate = raw.FrameRate
	}
	if meta.IsDefined("loop") {
		sc.loop = raw.Loop
	}

	for i, rs := range raw.Steps {
		st, err := parseStep(rs)
		if err != nil {
			return scene{}, fmt.Errorf("scene step[%d]: %w", i, err)
		}
		sc.steps = append(sc.steps, st)
	}
	if len(sc.steps) == 0 {
		return scene{}, fmt.Errorf("scene has no steps")
	}
	return sc, nil
}

func channel(raw int) (uint16, error) {
	if raw < 1 || raw > 512 {
		return 0, fmt.Errorf("channel out of range: %d", raw)
	}
	return uint16(raw), nil
}

func parseStep(raw fileStep) (step, error) {
	if raw.Speed < 0 || raw.Speed > 255 {
		return step{}, fmt.Errorf("speed out of range: %d", raw.Speed)
	}
	dir, err := directionValue(raw.Direction)
	if err != nil {
		return step{}, err
	}
	hold := time.Second
	if strings.TrimSpace(raw.Hold) != "" {
		hold, err = time.ParseDuration(strings.TrimSpace(raw.Hold))
		if err != nil {
			return step{}, fmt.Errorf("parse hold: %w", err)
		}
		if hold <= 0 {
			return step{}, fmt.Errorf("hold must be positive: %s", raw.Hold)
		}
	}
	return step{speed: uint8(raw.Speed), direction: dir, hold: hold}, nil
}

// directionValue maps the friendly name onto the wire value the controller
// thresholds at 127.
func directionValue(raw string) (uint8, error) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "", "forward":
		return 0, nil
	case "reverse":
		return 255, nil
	default:
		return 0, fmt.Errorf("unknown direction: %q", raw)
	}
}

// frame renders the step onto a DMX frame big enough to carry both channels.
func (sc scene) frame(st step) []byte {
	size := sc.speedChannel
	if sc.directionChannel > size {
		size = sc.directionChannel
	}
	slots := make([]byte, size)
	slots[sc.speedChannel-1] = st.speed
	slots[sc.directionChannel-1] = st.direction
	return slots
}
