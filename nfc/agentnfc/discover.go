// Package agentnfc connects to a network NFC agent and exposes it as an
// nfc.Reader. Agents scan physical tags, parse NDEF on their side and
// broadcast the result over WebSocket; this package never touches radio
// hardware or NDEF bytes itself.
package agentnfc

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/grandcat/zeroconf"
	"go.uber.org/zap"
)

// mDNS service discovery constants, matching what agents announce.
var (
	MDNSServiceType = "_nfc-agent._tcp"
	MDNSDomain      = "local."
)

// DefaultDiscoverTimeout bounds a discovery browse when the caller does not
// choose one.
const DefaultDiscoverTimeout = 3 * time.Second

// Agent describes one discovered network NFC agent.
type Agent struct {
	// Name is the announced instance name.
	Name string
	// Host is the connectable address, preferring IPv4 over the announced
	// hostname.
	Host string
	// Port is the agent's API and WebSocket port.
	Port int

	// Fields parsed from the announcement's TXT records.
	Version       string
	Path          string // WebSocket path, usually "/ws"
	TLS           bool
	BootstrapPort int // plain-HTTP CA download port; 0 when not announced
}

// URL returns the agent's HTTP base URL.
func (a Agent) URL() string {
	scheme := "http"
	if a.TLS {
		scheme = "https"
	}
	return fmt.Sprintf("%s://%s:%d", scheme, a.Host, a.Port)
}

// BootstrapURL returns the plain-HTTP base URL serving the agent's CA
// certificate, or "" when the agent did not announce one.
func (a Agent) BootstrapURL() string {
	if a.BootstrapPort <= 0 {
		return ""
	}
	return fmt.Sprintf("http://%s:%d", a.Host, a.BootstrapPort)
}

// Discover browses the local network for NFC agents until the timeout
// elapses or ctx is canceled. It returns every agent seen, in the order
// they announced themselves.
func Discover(ctx context.Context, timeout time.Duration, logger *zap.Logger) ([]Agent, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if timeout <= 0 {
		timeout = DefaultDiscoverTimeout
	}

	resolver, err := zeroconf.NewResolver(nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create mDNS resolver: %w", err)
	}

	browseCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	entries := make(chan *zeroconf.ServiceEntry)
	collected := make(chan []Agent, 1)
	go func() {
		var agents []Agent
		for entry := range entries {
			agent := fromServiceEntry(entry)
			logger.Info("agent discovered",
				zap.String("name", agent.Name),
				zap.String("host", agent.Host),
				zap.Int("port", agent.Port),
				zap.String("version", agent.Version))
			agents = append(agents, agent)
		}
		collected <- agents
	}()

	if err := resolver.Browse(browseCtx, MDNSServiceType, MDNSDomain, entries); err != nil {
		return nil, fmt.Errorf("mDNS browse failed: %w", err)
	}

	<-browseCtx.Done()
	agents := <-collected
	return agents, nil
}

// PickFirst returns the first discovered agent, or an error when none
// announced themselves within the timeout.
func PickFirst(ctx context.Context, timeout time.Duration, logger *zap.Logger) (Agent, error) {
	agents, err := Discover(ctx, timeout, logger)
	if err != nil {
		return Agent{}, err
	}
	if len(agents) == 0 {
		return Agent{}, fmt.Errorf("no NFC agents found on the local network")
	}
	return agents[0], nil
}

// fromServiceEntry maps one mDNS announcement to an Agent.
func fromServiceEntry(entry *zeroconf.ServiceEntry) Agent {
	agent := Agent{
		Name: entry.Instance,
		Host: strings.TrimSuffix(entry.HostName, "."),
		Port: entry.Port,
		Path: "/ws",
	}
	if len(entry.AddrIPv4) > 0 {
		agent.Host = entry.AddrIPv4[0].String()
	}

	for _, txt := range entry.Text {
		key, value, found := strings.Cut(txt, "=")
		if !found {
			continue
		}
		switch key {
		case "version":
			agent.Version = value
		case "path":
			agent.Path = value
		case "tls":
			agent.TLS = value == "1" || strings.EqualFold(value, "true")
		case "bootstrap":
			if port, err := strconv.Atoi(value); err == nil {
				agent.BootstrapPort = port
			}
		}
	}
	return agent
}
