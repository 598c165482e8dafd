package fixture

import "testing"

func TestEvaluateTransitions(t *testing.T) {
	cases := []struct {
		name    string
		current State
		desired State
		want    State
	}{
		{name: "off to off", current: Off(), desired: Off(), want: Off()},
		{name: "off to forward starts from zero", current: Off(), desired: Forward(239), want: Forward(0)},
		{name: "off to reverse starts from zero", current: Off(), desired: Reverse(10), want: Reverse(0)},
		{name: "forward accelerates one step", current: Forward(0), desired: Forward(239), want: Forward(MaxSpeedChangePerCycle)},
		{name: "forward at speed holds", current: Forward(50), desired: Forward(50), want: Forward(50)},
		{name: "forward decelerates one step", current: Forward(50), desired: Forward(10), want: Forward(49)},
		{name: "forward clamps to nearby desired", current: Forward(11), desired: Forward(10), want: Forward(10)},
		{name: "reverse accelerates one step", current: Reverse(5), desired: Reverse(100), want: Reverse(6)},
		{name: "reverse decelerates and clamps", current: Reverse(6), desired: Reverse(5), want: Reverse(5)},
		{name: "forward stop brakes into cooldown", current: Forward(80), desired: Off(), want: Cooldown(CooldownCycles)},
		{name: "reverse stop brakes into cooldown", current: Reverse(80), desired: Off(), want: Cooldown(CooldownCycles)},
		{name: "hard reversal brakes into cooldown", current: Forward(80), desired: Reverse(80), want: Cooldown(CooldownCycles)},
		{name: "hard reversal other way", current: Reverse(3), desired: Forward(9), want: Cooldown(CooldownCycles)},
		{name: "cooldown counts down", current: Cooldown(10), desired: Forward(255), want: Cooldown(9)},
		{name: "cooldown finishes to off", current: Cooldown(0), desired: Forward(255), want: Off()},
		{name: "desired cooldown is invalid and forces off", current: Forward(40), desired: Cooldown(5), want: Off()},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := Evaluate(tc.current, tc.desired)
			if got != tc.want {
				t.Fatalf("Evaluate(%+v, %+v): got=%+v want=%+v", tc.current, tc.desired, got, tc.want)
			}
		})
	}
}

func TestEvaluateSettlesWithoutOscillating(t *testing.T) {
	current := Forward(0)
	desired := Forward(5)
	for i := 0; i < 10; i++ {
		current = Evaluate(current, desired)
	}
	if current != desired {
		t.Fatalf("ramp did not settle: got=%+v want=%+v", current, desired)
	}
}

func TestModeString(t *testing.T) {
	pairs := map[Mode]string{
		ModeOff:      "off",
		ModeCooldown: "cooldown",
		ModeForward:  "forward",
		ModeReverse:  "reverse",
		Mode(99):     "unknown",
	}
	for mode, want := range pairs {
		if got := mode.String(); got != want {
			t.Fatalf("Mode(%d).String(): got=%q want=%q", mode, got, want)
		}
	}
}
