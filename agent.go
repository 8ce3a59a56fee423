package main

import (
	"context"
	"crypto/tls"
	"fmt"
	"net/url"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/dotside-studios/tapboard/config"
	"github.com/dotside-studios/tapboard/nfc"
	"github.com/dotside-studios/tapboard/nfc/agentnfc"
)

// defaultAgentPort is the port agents conventionally listen on, used when
// an explicit --agent URL names no port.
const defaultAgentPort = 18080

// buildAgentReader resolves which agent to talk to, bootstraps TLS trust
// when the agent serves https, and runs a health probe. A failed probe is
// not fatal: the reader reports unavailable until the agent comes up.
func buildAgentReader(ctx context.Context, cfg *config.Config, logger *zap.Logger) (nfc.Reader, func(), error) {
	agent, err := resolveAgent(ctx, cfg, logger)
	if err != nil {
		return nil, nil, err
	}
	if agent == nil {
		logger.Warn("no NFC agent found, tap surface disabled")
		return nfc.NewUnsupportedReader(), func() {}, nil
	}
	logger.Info("using NFC agent",
		zap.String("name", agent.Name),
		zap.String("url", agent.URL()))

	tlsConf, err := trustAgent(ctx, cfg, *agent, logger)
	if err != nil {
		return nil, nil, err
	}

	reader, err := agentnfc.New(agentnfc.Config{
		URL:               agent.URL(),
		Path:              agent.Path,
		Secret:            cfg.Agent.Secret,
		TLSConfig:         tlsConf,
		DedupeWindow:      time.Duration(cfg.Session.DedupeWindow) * time.Second,
		ReconnectAttempts: cfg.Agent.ReconnectAttempts,
		Logger:            logger,
	})
	if err != nil {
		return nil, nil, err
	}

	if err := reader.Probe(ctx); err != nil {
		logger.Warn("agent not reachable yet",
			zap.String("url", agent.URL()), zap.Error(err))
	}

	cleanup := func() {
		if err := reader.Close(); err != nil {
			logger.Warn("close agent reader", zap.Error(err))
		}
	}
	return reader, cleanup, nil
}

// resolveAgent returns the agent to use: the configured URL when set,
// otherwise the first agent mDNS discovery finds. A fruitless discovery
// returns nil rather than an error so the app can start without an agent.
func resolveAgent(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*agentnfc.Agent, error) {
	if cfg.Agent.URL != "" {
		agent, err := agentFromURL(cfg.Agent.URL)
		if err != nil {
			return nil, fmt.Errorf("invalid agent URL %q: %w", cfg.Agent.URL, err)
		}
		return &agent, nil
	}

	timeout := time.Duration(cfg.Agent.DiscoverTimeout) * time.Second
	found, err := agentnfc.PickFirst(ctx, timeout, logger)
	if err != nil {
		logger.Warn("agent discovery came up empty", zap.Error(err))
		return nil, nil
	}
	return &found, nil
}

// agentFromURL builds an Agent from an explicit base URL such as
// "https://kitchen-agent.local:18443".
func agentFromURL(raw string) (agentnfc.Agent, error) {
	u, err := url.Parse(raw)
	if err != nil {
		return agentnfc.Agent{}, err
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return agentnfc.Agent{}, fmt.Errorf("unsupported scheme %q", u.Scheme)
	}
	if u.Hostname() == "" {
		return agentnfc.Agent{}, fmt.Errorf("missing host")
	}

	port := defaultAgentPort
	if p := u.Port(); p != "" {
		port, err = strconv.Atoi(p)
		if err != nil {
			return agentnfc.Agent{}, fmt.Errorf("bad port %q", p)
		}
	}

	return agentnfc.Agent{
		Name: u.Hostname(),
		Host: u.Hostname(),
		Port: port,
		Path: u.Path,
		TLS:  u.Scheme == "https",
	}, nil
}

// trustAgent returns the TLS config for an https agent. The agent's CA is
// fetched over its bootstrap endpoint on first contact, checked against the
// pinned fingerprint when one is configured, and cached for later runs.
// Without a bootstrap endpoint and a cached CA the system trust store is
// used.
func trustAgent(ctx context.Context, cfg *config.Config, agent agentnfc.Agent, logger *zap.Logger) (*tls.Config, error) {
	if !agent.TLS {
		return nil, nil
	}

	dir, err := agentnfc.DefaultTrustDir()
	if err != nil {
		return nil, err
	}
	store := agentnfc.NewTrustStore(dir, logger)

	if agent.BootstrapURL() == "" {
		caPEM, err := store.Load(agent.Host)
		if err != nil {
			logger.Info("no cached agent CA, using system roots",
				zap.String("host", agent.Host))
			return nil, nil
		}
		return agentnfc.TLSConfig(caPEM)
	}

	caPEM, err := store.Ensure(ctx, agent.Host, agent.BootstrapURL(), cfg.Agent.Fingerprint)
	if err != nil {
		return nil, err
	}
	return agentnfc.TLSConfig(caPEM)
}
