// Package logging configures the process-wide slog.Logger: structured,
// leveled output duplicated to stdout and an append-only log file via
// io.MultiWriter, matching the mape service's logging setup
// (GVCUTV-NRG-CHAMP's services/mape/internal/logging).
package logging

import (
	"io"
	"log/slog"
	"os"
	"path/filepath"
)

// Init opens (creating if needed) the log file at path and returns a
// *slog.Logger that writes to both it and stdout, plus the *os.File so the
// caller can Close it on shutdown. If the file can't be opened, Init falls
// back to stdout-only logging rather than failing startup.
func Init(path string, level slog.Level) (*slog.Logger, *os.File) {
	if dir := filepath.Dir(path); dir != "." {
		_ = os.MkdirAll(dir, 0o755)
	}

	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: level}))
		logger.Error("failed to open log file; falling back to stdout only", "path", path, "error", err)
		return logger, nil
	}

	mw := io.MultiWriter(f, os.Stdout)
	h := slog.NewTextHandler(mw, &slog.HandlerOptions{Level: level})
	return slog.New(h), f
}
