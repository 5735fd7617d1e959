package wallet

import (
	"io"
	"log/slog"
	"path/filepath"
)

// NewLogger builds the structured logger the orchestrator and CLI use
// for network/store failures, matching the teacher's own text-handler
// setup in mint/mint.go: a ReplaceAttr trimming the source path down to
// a bare filename, and debug gated behind a single bool rather than a
// three-way level type, since the wallet core has no use for the
// teacher's Disable level (a library caller who wants silence just
// passes io.Discard as w).
func NewLogger(w io.Writer, debug bool) *slog.Logger {
	level := slog.LevelInfo
	if debug {
		level = slog.LevelDebug
	}

	replacer := func(groups []string, a slog.Attr) slog.Attr {
		if a.Key == slog.SourceKey {
			if source, ok := a.Value.Any().(*slog.Source); ok {
				source.File = filepath.Base(source.File)
			}
		}
		return a
	}

	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{
		AddSource:   true,
		Level:       level,
		ReplaceAttr: replacer,
	}))
}
