package main

import (
	"context"

	"go.uber.org/zap"

	"github.com/dotside-studios/tapboard/config"
	"github.com/dotside-studios/tapboard/nfc"
)

// buildReader picks the tag capability backend: the built-in simulator when
// enabled, a network agent when one is configured or discoverable, and an
// inert unsupported reader otherwise. The returned cleanup releases
// whatever the backend started.
func buildReader(ctx context.Context, cfg *config.Config, logger *zap.Logger) (nfc.Reader, func(), error) {
	if cfg.Sim.Enabled {
		return buildSimReader(cfg, logger)
	}
	if cfg.Agent.URL != "" || cfg.DiscoverEnabled() {
		return buildAgentReader(ctx, cfg, logger)
	}
	logger.Warn("no reader backend configured, tap surface disabled")
	return nfc.NewUnsupportedReader(), func() {}, nil
}
