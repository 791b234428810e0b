package logger

import (
	"bytes"
	"errors"
	"log/slog"
	"strings"
	"testing"
)

func newTestLogger(level slog.Level) (*slog.Logger, *bytes.Buffer) {
	var buf bytes.Buffer
	return slog.New(NewHandler(Options{Level: level, Writer: &buf, NoColor: true})), &buf
}

func TestHandlerFormat(t *testing.T) {
	tests := []struct {
		name  string
		log   func(*slog.Logger)
		want  []string
		avoid []string
	}{
		{
			name: "System",
			log: func(l *slog.Logger) {
				l.Info("Seeded default shop", slog.String("type", "sys"), slog.Int("items", 6))
			},
			want:  []string{"[LedgerBot]", "[INFO]", "[SYS]", "Seeded default shop", "items=6"},
			avoid: []string{"type="},
		},
		{
			name: "Command",
			log: func(l *slog.Logger) {
				l.Info("Command completed",
					slog.String("type", "cmd"),
					slog.String("name", "daily"),
					slog.String("user_name", "alice"),
					slog.String("status", "success"),
				)
			},
			want: []string{"[CMD]", "Command completed [daily by alice] [Status: success]"},
		},
		{
			name: "Error",
			log: func(l *slog.Logger) {
				l.Error("Command failed", slog.String("type", "error"), slog.Any("error", errors.New("boom")))
			},
			want:  []string{"[ERROR]", "[ERR]", "Command failed: boom"},
			avoid: []string{"error=boom"},
		},
		{
			name: "Component",
			log: func(l *slog.Logger) {
				l.With(slog.String("component", "economy")).Warn("Slow unit of work", slog.String("type", "db"))
			},
			want: []string{"[WARN]", "[DB]", "(economy) Slow unit of work"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			l, buf := newTestLogger(slog.LevelDebug)
			tt.log(l)
			got := buf.String()
			for _, w := range tt.want {
				if !strings.Contains(got, w) {
					t.Errorf("Handle() got = %q, want substring %q", got, w)
				}
			}
			for _, a := range tt.avoid {
				if strings.Contains(got, a) {
					t.Errorf("Handle() got = %q, must not contain %q", got, a)
				}
			}
		})
	}
}

func TestHandlerFilters(t *testing.T) {
	l, buf := newTestLogger(slog.LevelInfo)
	l.Debug("hidden")
	l.Info("sending heartbeat")
	if buf.Len() != 0 {
		t.Errorf("Handle() wrote %q, want nothing", buf.String())
	}
}

func TestHandlerGroups(t *testing.T) {
	l, buf := newTestLogger(slog.LevelInfo)
	l.WithGroup("store").Info("Opened", slog.String("driver", "sqlite"))
	if got := buf.String(); !strings.Contains(got, "store.driver=sqlite") {
		t.Errorf("Handle() got = %q, want grouped key", got)
	}
}
