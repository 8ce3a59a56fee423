package main

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/dotside-studios/tapboard/config"
	"github.com/dotside-studios/tapboard/nfc"
	"github.com/dotside-studios/tapboard/nfc/simnfc"
	"github.com/dotside-studios/tapboard/protocol"
)

// buildSimReader starts the simulator backend plus its HTTP control
// endpoint, so tags can be presented with `tapboard tap` or plain curl.
func buildSimReader(cfg *config.Config, logger *zap.Logger) (nfc.Reader, func(), error) {
	fixtures, err := fixtureTags(cfg.Sim.Fixtures)
	if err != nil {
		return nil, nil, err
	}

	reader := simnfc.New(simnfc.Config{
		Fixtures:       fixtures,
		ReplayInterval: time.Duration(cfg.Sim.ReplayInterval) * time.Second,
		Logger:         logger,
	})

	srv := simnfc.NewServer(simnfc.ServerConfig{
		Addr:   cfg.Sim.ListenAddr,
		Reader: reader,
		Logger: logger,
	})
	if err := srv.Start(); err != nil {
		reader.Close()
		return nil, nil, fmt.Errorf("simulator control endpoint: %w", err)
	}

	cleanup := func() {
		ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer cancel()
		if err := srv.Stop(ctx); err != nil {
			logger.Warn("stop simulator control endpoint", zap.Error(err))
		}
		if err := reader.Close(); err != nil {
			logger.Warn("close simulated reader", zap.Error(err))
		}
	}
	return reader, cleanup, nil
}

// fixtureTags converts configured fixtures into simulator tags. A fixture
// without text becomes an empty tag.
func fixtureTags(fixtures []config.FixtureConfig) ([]*nfc.TagInfo, error) {
	tags := make([]*nfc.TagInfo, 0, len(fixtures))
	for i, f := range fixtures {
		req := &protocol.TagInputRequest{
			UID:    f.UID,
			Type:   f.Type,
			Source: "fixture",
		}
		if f.Text != "" {
			req.Message = &protocol.NDEFMessageInput{
				Records: []protocol.NDEFRecordInput{{RecordType: "text", Content: f.Text}},
			}
		}
		tag, err := simnfc.ToTagInfo(req)
		if err != nil {
			return nil, fmt.Errorf("fixture %d: %w", i, err)
		}
		tags = append(tags, tag)
	}
	return tags, nil
}
