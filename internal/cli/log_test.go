package cli

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/photoaffix/pkg/observability"
)

func TestNewLoggerLevels(t *testing.T) {
	tests := []struct {
		name    string
		level   log.Level
		logFunc func(*log.Logger)
		wantLog bool
	}{
		{
			name:    "info at info level",
			level:   log.InfoLevel,
			logFunc: func(l *log.Logger) { l.Info("test") },
			wantLog: true,
		},
		{
			name:    "debug at info level",
			level:   log.InfoLevel,
			logFunc: func(l *log.Logger) { l.Debug("test") },
			wantLog: false,
		},
		{
			name:    "debug at debug level",
			level:   log.DebugLevel,
			logFunc: func(l *log.Logger) { l.Debug("test") },
			wantLog: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			logger := newLogger(&buf, tt.level)
			tt.logFunc(logger)

			gotLog := buf.Len() > 0
			if gotLog != tt.wantLog {
				t.Errorf("got log output = %v, want %v", gotLog, tt.wantLog)
			}
		})
	}
}

func TestStopwatch(t *testing.T) {
	var buf bytes.Buffer
	sw := startStopwatch(newLogger(&buf, log.DebugLevel))
	time.Sleep(5 * time.Millisecond)

	if sw.elapsed() < 5*time.Millisecond {
		t.Errorf("elapsed() = %v, want at least 5ms", sw.elapsed())
	}
	sw.done("composed", "images", 3)

	out := buf.String()
	for _, want := range []string{"composed", "elapsed=", "images=3"} {
		if !strings.Contains(out, want) {
			t.Errorf("output %q should contain %q", out, want)
		}
	}
}

func TestSetLogLevelRegistersHooks(t *testing.T) {
	t.Cleanup(observability.Reset)

	var buf bytes.Buffer
	c := New(&buf, LogInfo)
	if _, ok := observability.Affix().(*observability.LogHooks); ok {
		t.Fatal("log hooks should not be registered at info level")
	}

	c.SetLogLevel(LogDebug)
	if _, ok := observability.Affix().(*observability.LogHooks); !ok {
		t.Errorf("Affix() = %T, want *observability.LogHooks", observability.Affix())
	}
	if _, ok := observability.Cache().(*observability.LogHooks); !ok {
		t.Errorf("Cache() = %T, want *observability.LogHooks", observability.Cache())
	}
}
