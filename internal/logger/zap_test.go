package logger

import (
	"testing"

	"go.uber.org/zap/zapcore"
)

func TestToZapLevel(t *testing.T) {
	cases := map[string]zapcore.Level{
		"debug":   zapcore.DebugLevel,
		"WARN":    zapcore.WarnLevel,
		"error":   zapcore.ErrorLevel,
		"info":    zapcore.InfoLevel,
		"verbose": defaultZapLevel,
	}
	for in, want := range cases {
		if got := toZapLevel(in); got != want {
			t.Fatalf("toZapLevel(%q): expected %v, got %v", in, want, got)
		}
	}
}

func TestNew_Formats(t *testing.T) {
	for _, f := range []string{FormatConsole, FormatJSON, FormatLogfmt, "bogus"} {
		l := New(InfoLevel, f)
		if l == nil || l.SugaredLogger == nil {
			t.Fatalf("format %q: expected logger", f)
		}
	}
}

func TestNamed_NilSafe(t *testing.T) {
	var l *Logger
	if got := l.Named("x"); got == nil {
		t.Fatalf("expected nop logger from nil receiver")
	}
	if got := Nop().Named("motor"); got == nil {
		t.Fatalf("expected named logger")
	}
}
