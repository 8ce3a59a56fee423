package main

import (
	"context"
	"strings"
	"testing"

	"github.com/dotside-studios/tapboard/config"
	"github.com/dotside-studios/tapboard/logging"
	"github.com/dotside-studios/tapboard/nfc"
	"github.com/dotside-studios/tapboard/nfc/simnfc"
)

func boolPtr(v bool) *bool { return &v }

func TestFixtureTags(t *testing.T) {
	tags, err := fixtureTags([]config.FixtureConfig{
		{UID: "04:AB:CD:EF", Type: "NTAG215", Text: "hello"},
		{UID: "04:11:22:33"},
	})
	if err != nil {
		t.Fatalf("fixtureTags() error = %v", err)
	}
	if len(tags) != 2 {
		t.Fatalf("len(tags) = %d, want 2", len(tags))
	}

	if got := tags[0].SerialNumber(); got != "04:AB:CD:EF" {
		t.Errorf("SerialNumber() = %q, want %q", got, "04:AB:CD:EF")
	}
	rec, ok := tags[0].FirstRecord()
	if !ok {
		t.Fatal("fixture with text has no record")
	}
	if rec.Message != "hello" {
		t.Errorf("record message = %q, want %q", rec.Message, "hello")
	}
	if tags[0].Empty {
		t.Error("fixture with text should not be empty")
	}

	if !tags[1].Empty {
		t.Error("fixture without text should be empty")
	}
}

func TestFixtureTagsBadUID(t *testing.T) {
	_, err := fixtureTags([]config.FixtureConfig{{UID: "zz:yy"}})
	if err == nil {
		t.Fatal("Expected an error for a bad UID")
	}
	if !strings.Contains(err.Error(), "fixture 0") {
		t.Errorf("error = %v, want the fixture index", err)
	}
}

func TestBuildReaderSim(t *testing.T) {
	cfg := &config.Config{}
	cfg.Sim.Enabled = true
	cfg.Sim.ListenAddr = "127.0.0.1:0"

	reader, cleanup, err := buildReader(context.Background(), cfg, logging.Nop())
	if err != nil {
		t.Fatalf("buildReader() error = %v", err)
	}
	defer cleanup()

	if _, ok := reader.(*simnfc.Reader); !ok {
		t.Fatalf("reader = %T, want *simnfc.Reader", reader)
	}
	if !reader.IsSupported() || !reader.IsEnabled() {
		t.Error("simulated reader should be supported and enabled")
	}
}

func TestBuildReaderUnconfigured(t *testing.T) {
	cfg := &config.Config{}
	cfg.Agent.Discover = boolPtr(false)

	reader, cleanup, err := buildReader(context.Background(), cfg, logging.Nop())
	if err != nil {
		t.Fatalf("buildReader() error = %v", err)
	}
	defer cleanup()

	if _, ok := reader.(*nfc.UnsupportedReader); !ok {
		t.Fatalf("reader = %T, want *nfc.UnsupportedReader", reader)
	}
	if reader.IsSupported() {
		t.Error("unconfigured reader should report unsupported")
	}
}
