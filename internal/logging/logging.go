// Package logging configures the process-wide slog logger.
package logging

import (
	"io"
	"log/slog"
	"os"
	"strings"
)

// InitLogging configures the default slog logger from F1AGENT_LOG_LEVEL and
// F1AGENT_LOG_FORMAT, with an optional -log-level / --log-level CLI flag
// taking precedence over the env var. It returns args with the flag stripped
// so the flag package never sees it.
func InitLogging(args []string) []string {
	levelStr := os.Getenv("F1AGENT_LOG_LEVEL")
	if levelStr == "" {
		levelStr = "info"
	}

	var remaining []string
	for i := 0; i < len(args); i++ {
		arg := args[i]

		if v, ok := strings.CutPrefix(arg, "--log-level="); ok {
			levelStr = v
			continue
		}
		if v, ok := strings.CutPrefix(arg, "-log-level="); ok {
			levelStr = v
			continue
		}
		if arg == "-log-level" || arg == "--log-level" {
			if i+1 < len(args) {
				levelStr = args[i+1]
				i++
			}
			continue
		}

		remaining = append(remaining, arg)
	}

	slog.SetDefault(slog.New(newHandler(os.Stderr, os.Getenv("F1AGENT_LOG_FORMAT"), ParseLevel(levelStr))))
	return remaining
}

// ParseLevel maps a level name to a slog.Level. Unknown names map to info.
func ParseLevel(s string) slog.Level {
	switch strings.ToLower(s) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func newHandler(w io.Writer, format string, level slog.Level) slog.Handler {
	opts := &slog.HandlerOptions{Level: level}
	if strings.EqualFold(format, "json") {
		return slog.NewJSONHandler(w, opts)
	}
	return slog.NewTextHandler(w, opts)
}
