package main

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeScene(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "scene.toml")
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatalf("write scene: %v", err)
	}
	return path
}

func TestLoadSceneAppliesOverrides(t *testing.T) {
	path := writeScene(t, `
universe = 12
speed_channel = 1
direction_channel = 2
frame_rate = 40
loop = true

[[steps]]
speed = 200
direction = "reverse"
hold = "500ms"

[[steps]]
speed = 0
`)

	sc, err := loadScene(path)
	if err != nil {
		t.Fatalf("loadScene: %v", err)
	}
	if sc.universe != 12 || sc.speedChannel != 1 || sc.directionChannel != 2 {
		t.Fatalf("unexpected scene addressing: %+v", sc)
	}
	if sc.frameRate != 40 || !sc.loop {
		t.Fatalf("unexpected scene pacing: %+v", sc)
	}
	if len(sc.steps) != 2 {
		t.Fatalf("steps = %d, want 2", len(sc.steps))
	}
	if sc.steps[0] != (step{speed: 200, direction: 255, hold: 500 * time.Millisecond}) {
		t.Fatalf("step[0] = %+v", sc.steps[0])
	}
	// Omitted direction and hold fall back to forward for one second.
	if sc.steps[1] != (step{speed: 0, direction: 0, hold: time.Second}) {
		t.Fatalf("step[1] = %+v", sc.steps[1])
	}
}

func TestLoadSceneKeepsDefaultsForOmittedKeys(t *testing.T) {
	path := writeScene(t, `
[[steps]]
speed = 10
`)

	sc, err := loadScene(path)
	if err != nil {
		t.Fatalf("loadScene: %v", err)
	}
	def := defaultScene()
	if sc.universe != def.universe || sc.speedChannel != def.speedChannel ||
		sc.directionChannel != def.directionChannel || sc.frameRate != def.frameRate {
		t.Fatalf("defaults not preserved: %+v", sc)
	}
}

func TestLoadSceneRejectsBadInput(t *testing.T) {
	for name, body := range map[string]string{
		"no steps":       `universe = 5`,
		"bad universe":   "universe = 0\n[[steps]]\nspeed = 1",
		"bad channel":    "speed_channel = 513\n[[steps]]\nspeed = 1",
		"bad frame rate": "frame_rate = 100\n[[steps]]\nspeed = 1",
		"bad speed":      "[[steps]]\nspeed = 300",
		"bad direction":  "[[steps]]\nspeed = 1\ndirection = \"sideways\"",
		"bad hold":       "[[steps]]\nspeed = 1\nhold = \"fast\"",
		"negative hold":  "[[steps]]\nspeed = 1\nhold = \"-1s\"",
	} {
		t.Run(name, func(t *testing.T) {
			if _, err := loadScene(writeScene(t, body)); err == nil {
				t.Fatal("loadScene accepted invalid scene")
			}
		})
	}
}

func TestSceneFramePlacesChannels(t *testing.T) {
	sc := defaultScene()
	slots := sc.frame(step{speed: 180, direction: 255})

	if len(slots) != 11 {
		t.Fatalf("frame length = %d, want 11", len(slots))
	}
	if slots[9] != 180 {
		t.Fatalf("speed slot = %d, want 180", slots[9])
	}
	if slots[10] != 255 {
		t.Fatalf("direction slot = %d, want 255", slots[10])
	}
}

func TestBuildSceneFromFlags(t *testing.T) {
	sc, err := buildScene("", 7, 120, "reverse", 2*time.Second)
	if err != nil {
		t.Fatalf("buildScene: %v", err)
	}
	if sc.universe != 7 {
		t.Fatalf("universe = %d, want 7", sc.universe)
	}
	if len(sc.steps) != 1 || sc.steps[0].speed != 120 || sc.steps[0].direction != 255 {
		t.Fatalf("steps = %+v", sc.steps)
	}
	if sc.steps[0].hold != 2*time.Second {
		t.Fatalf("hold = %v, want 2s", sc.steps[0].hold)
	}

	if _, err := buildScene("", 0, 1, "forward", 0); err == nil {
		t.Fatal("buildScene accepted universe 0")
	}
}
