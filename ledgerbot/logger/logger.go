package logger

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"sync"
)

const (
	colorReset  = "\033[0m"
	colorRed    = "\033[31m"
	colorGreen  = "\033[32m"
	colorYellow = "\033[33m"
	colorPurple = "\033[35m"
	colorWhite  = "\033[37m"

	prefix = "[LedgerBot]"
)

type LogType string

const (
	TypeCommand LogType = "CMD"
	TypeDB      LogType = "DB"
	TypeSystem  LogType = "SYS"
	TypeError   LogType = "ERR"
)

// reserved attributes are folded into the line itself instead of being
// printed as key=value pairs.
var reserved = map[string]struct{}{
	"type":      {},
	"name":      {},
	"user_name": {},
	"status":    {},
	"component": {},
}

// Gateway and rest chatter from disgo that is never worth a line.
var skippedMessages = []string{
	"locking buckets",
	"unlocking buckets",
	"gateway event",
	"cleaning up bucket",
	"cleaned up rate limit buckets",
	"binary message received",
	"received gateway message",
	"opening gateway connection",
	"locking gateway rate limiter",
	"unlocking gateway rate limiter",
	"sending gateway command",
	"new request",
	"new response",
	"locking rest bucket",
	"unlocking rest bucket",
	"rate limit response headers",
	"sending heartbeat",
}

type Options struct {
	Level  slog.Leveler
	Writer io.Writer
	// NoColor disables ANSI colors, e.g. when output is a file.
	NoColor bool
}

// CustomHandler prints one line per record:
//
//	[LedgerBot] [15:04:05] [INFO] [SYS] message key=value
type CustomHandler struct {
	opts   Options
	mu     *sync.Mutex
	attrs  []slog.Attr
	groups []string
}

func NewHandler(opts Options) *CustomHandler {
	if opts.Level == nil {
		opts.Level = slog.LevelInfo
	}
	if opts.Writer == nil {
		opts.Writer = os.Stdout
	}
	return &CustomHandler{opts: opts, mu: &sync.Mutex{}}
}

func (h *CustomHandler) Enabled(_ context.Context, level slog.Level) bool {
	return level >= h.opts.Level.Level()
}

func (h *CustomHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	next := *h
	next.attrs = append(append([]slog.Attr{}, h.attrs...), h.qualify(attrs)...)
	return &next
}

func (h *CustomHandler) WithGroup(name string) slog.Handler {
	if name == "" {
		return h
	}
	next := *h
	next.groups = append(append([]string{}, h.groups...), name)
	return &next
}

func (h *CustomHandler) qualify(attrs []slog.Attr) []slog.Attr {
	if len(h.groups) == 0 {
		return attrs
	}
	group := strings.Join(h.groups, ".")
	out := make([]slog.Attr, len(attrs))
	for i, a := range attrs {
		out[i] = slog.Attr{Key: group + "." + a.Key, Value: a.Value}
	}
	return out
}

func (h *CustomHandler) Handle(_ context.Context, r slog.Record) error {
	if shouldSkip(r.Message) {
		return nil
	}

	all := make([]slog.Attr, 0, len(h.attrs)+r.NumAttrs())
	all = append(all, h.attrs...)
	r.Attrs(func(a slog.Attr) bool {
		all = append(all, h.qualify([]slog.Attr{a})...)
		return true
	})

	levelColor, levelText := levelStyle(r.Level)
	message := h.decorate(r, all)

	var b strings.Builder
	for _, a := range all {
		if _, ok := reserved[a.Key]; ok {
			continue
		}
		if a.Key == "error" && r.Level >= slog.LevelError {
			continue
		}
		fmt.Fprintf(&b, " %s=%v", a.Key, a.Value.Resolve())
	}

	line := fmt.Sprintf("%s [%s] [%s] [%s] %s%s",
		prefix,
		r.Time.Format("15:04:05"),
		levelText,
		logType(all),
		message,
		b.String(),
	)
	if !h.opts.NoColor {
		line = colorWhite + strings.Replace(line, "["+levelText+"]", "["+levelColor+levelText+colorWhite+"]", 1) + colorReset
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	_, err := fmt.Fprintln(h.opts.Writer, line)
	return err
}

// decorate folds command, user, component, status and error details into
// the message text.
func (h *CustomHandler) decorate(r slog.Record, attrs []slog.Attr) string {
	message := r.Message
	if c := attr(attrs, "component"); c != "" {
		message = fmt.Sprintf("(%s) %s", c, message)
	}
	if r.Level >= slog.LevelError {
		if e := attr(attrs, "error"); e != "" {
			message = fmt.Sprintf("%s: %s", message, e)
		}
	}
	cmd, user := attr(attrs, "name"), attr(attrs, "user_name")
	if cmd != "" && user != "" {
		message = fmt.Sprintf("%s [%s by %s]", message, cmd, user)
	}
	if s := attr(attrs, "status"); s != "" {
		message = fmt.Sprintf("%s [Status: %s]", message, s)
	}
	return message
}

func levelStyle(level slog.Level) (string, string) {
	switch {
	case level >= slog.LevelError:
		return colorRed, "ERROR"
	case level >= slog.LevelWarn:
		return colorYellow, "WARN"
	case level >= slog.LevelInfo:
		return colorGreen, "INFO"
	default:
		return colorPurple, "DEBUG"
	}
}

func shouldSkip(msg string) bool {
	msg = strings.ToLower(msg)
	for _, skip := range skippedMessages {
		if strings.Contains(msg, skip) {
			return true
		}
	}
	return false
}

func logType(attrs []slog.Attr) LogType {
	switch attr(attrs, "type") {
	case "cmd":
		return TypeCommand
	case "db":
		return TypeDB
	case "error":
		return TypeError
	default:
		return TypeSystem
	}
}

// attr returns the last value recorded under key.
func attr(attrs []slog.Attr, key string) string {
	for i := len(attrs) - 1; i >= 0; i-- {
		if attrs[i].Key == key {
			return attrs[i].Value.Resolve().String()
		}
	}
	return ""
}

// Setup installs the handler as the process default.
func Setup(level slog.Leveler, w io.Writer) *slog.Logger {
	log := slog.New(NewHandler(Options{Level: level, Writer: w}))
	slog.SetDefault(log)
	return log
}
