// Package logging builds the application logger.
//
// The console UI owns the terminal, so the default sink is a log file under
// the user config directory rather than stderr. Headless subcommands pass an
// empty path to log to stderr instead.
package logging

import (
	"os"
	"path/filepath"

	"go.uber.org/zap"

	"github.com/dotside-studios/tapboard/buildinfo"
)

// New creates a logger with the given level ("debug", "info", "warn", ...)
// writing to path. An empty path keeps zap's default stderr output.
// The file is truncated on startup so each run starts with a fresh log.
func New(level, path string) (*zap.Logger, error) {
	lvl, err := zap.ParseAtomicLevel(level)
	if err != nil {
		return nil, err
	}

	cfg := zap.NewProductionConfig()
	cfg.Level = lvl

	if path != "" {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, err
		}
		if err := os.Truncate(path, 0); err != nil && !os.IsNotExist(err) {
			return nil, err
		}
		cfg.OutputPaths = []string{path}
		cfg.ErrorOutputPaths = []string{path}
	}

	zl, err := cfg.Build()
	if err != nil {
		return nil, err
	}
	return zl.With(zap.String("app", buildinfo.Name)), nil
}

// DefaultPath returns the default log file location, e.g.
// ~/.config/tapboard/tapboard.log. Falls back to the working directory when
// the user config dir cannot be determined.
func DefaultPath() string {
	base, err := os.UserConfigDir()
	if err != nil {
		return buildinfo.Name + ".log"
	}
	return filepath.Join(base, buildinfo.DirName, buildinfo.Name+".log")
}

// Nop returns a logger that discards everything. Used as the fallback when a
// component is constructed without an explicit logger.
func Nop() *zap.Logger {
	return zap.NewNop()
}
