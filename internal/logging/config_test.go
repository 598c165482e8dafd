package logging

import (
	"testing"

	"github.com/rs/zerolog"
)

func TestParseLevel(t *testing.T) {
	cases := []struct {
		raw  string
		want zerolog.Level
		ok   bool
	}{
		{raw: "", want: zerolog.InfoLevel, ok: false},
		{raw: "trace", want: zerolog.TraceLevel, ok: true},
		{raw: "DEBUG", want: zerolog.DebugLevel, ok: true},
		{raw: " info ", want: zerolog.InfoLevel, ok: true},
		{raw: "warning", want: zerolog.WarnLevel, ok: true},
		{raw: "error", want: zerolog.ErrorLevel, ok: true},
		{raw: "off", want: zerolog.Disabled, ok: true},
		{raw: "bogus", want: zerolog.InfoLevel, ok: false},
	}
	for _, tc := range cases {
		got, ok := parseLevel(tc.raw)
		if got != tc.want || ok != tc.ok {
			t.Fatalf("parseLevel(%q): got=(%v,%v) want=(%v,%v)", tc.raw, got, ok, tc.want, tc.ok)
		}
	}
}

func TestParseBool(t *testing.T) {
	if v, ok := parseBool("true"); !ok || !v {
		t.Fatalf("parseBool(true): got=(%v,%v)", v, ok)
	}
	if _, ok := parseBool(""); ok {
		t.Fatalf("parseBool empty should not apply")
	}
	if _, ok := parseBool("maybe"); ok {
		t.Fatalf("parseBool invalid should not apply")
	}
}
