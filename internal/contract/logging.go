package contract

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
)

// InitLogger configures the process-wide slog logger. Logs always go to
// stderr so stdout stays free for reports and the MCP stdio protocol.
func InitLogger(level, format string) error {
	return initLogger(os.Stderr, level, format)
}

func initLogger(w io.Writer, level, format string) error {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(strings.ToLower(level))); err != nil {
		return fmt.Errorf("invalid log level %q: %w", level, err)
	}
	opts := &slog.HandlerOptions{Level: lvl}

	var handler slog.Handler
	switch strings.ToLower(format) {
	case "json":
		handler = slog.NewJSONHandler(w, opts)
	case "text", "":
		handler = slog.NewTextHandler(w, opts)
	default:
		return fmt.Errorf("invalid log format %q. must be text, json", format)
	}
	slog.SetDefault(slog.New(handler))
	return nil
}
