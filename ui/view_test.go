package ui

import (
	"strings"
	"testing"

	"github.com/rivo/tview"

	"github.com/dotside-studios/tapboard/monitor"
	"github.com/dotside-studios/tapboard/nfc"
)

func TestNewViewBuildsControls(t *testing.T) {
	v := New(nil)

	if got := v.form.GetFormItemCount(); got != 1 {
		t.Errorf("Form item count = %d, want 1", got)
	}
	input, ok := v.form.GetFormItem(0).(*tview.InputField)
	if !ok {
		t.Fatal("Expected the first form item to be an input field")
	}
	if got, want := input.GetLabel(), "Publish text"; got != want {
		t.Errorf("Input label = %q, want %q", got, want)
	}

	if got := v.form.GetButtonCount(); got != 5 {
		t.Fatalf("Button count = %d, want 5", got)
	}
	wantLabels := []string{"Start listening", "Stop listening", "Publish", "Cancel publish", "Quit"}
	for i, want := range wantLabels {
		if got := v.form.GetButton(i).GetLabel(); got != want {
			t.Errorf("Button %d label = %q, want %q", i, got, want)
		}
	}

	if !v.pages.HasPage(pageMonitor) {
		t.Error("Expected the monitor page to be registered")
	}
}

func TestStatusText(t *testing.T) {
	tests := []struct {
		name      string
		enabled   bool
		listening bool
		lastTag   string
		contains  []string
	}{
		{
			name:     "disabled and idle",
			contains: []string{"disabled", "idle"},
		},
		{
			name:      "enabled and listening",
			enabled:   true,
			listening: true,
			contains:  []string{"enabled", "listening for tags"},
		},
		{
			name:     "last tag shown when present",
			enabled:  true,
			lastTag:  "tag 04:AB (NTAG215, 1 records)",
			contains: []string{"Last tag:", "04:AB"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := statusText(tt.enabled, tt.listening, tt.lastTag)
			for _, want := range tt.contains {
				if !strings.Contains(got, want) {
					t.Errorf("statusText = %q, missing %q", got, want)
				}
			}
		})
	}
}

func TestApplyStateGatesButtons(t *testing.T) {
	v := New(nil)
	reader := nfc.NewMockReader()
	defer reader.Close()

	c := monitor.New(monitor.Config{Reader: reader, Presenter: v})
	v.Bind(c)

	// Enabled but idle: start is offered, stop and publish are not.
	c.State().SetNfcEnabled(true)
	c.State().SetListening(false)
	v.applyState()

	if v.form.GetButton(buttonStart).IsDisabled() {
		t.Error("Expected start to be enabled while idle")
	}
	if !v.form.GetButton(buttonStop).IsDisabled() {
		t.Error("Expected stop to be disabled while idle")
	}
	if !v.form.GetButton(buttonPublish).IsDisabled() {
		t.Error("Expected publish to be disabled while idle")
	}

	// Listening: the gates flip.
	c.State().SetListening(true)
	v.applyState()

	if !v.form.GetButton(buttonStart).IsDisabled() {
		t.Error("Expected start to be disabled while listening")
	}
	if v.form.GetButton(buttonStop).IsDisabled() {
		t.Error("Expected stop to be enabled while listening")
	}
	if v.form.GetButton(buttonPublish).IsDisabled() {
		t.Error("Expected publish to be enabled while listening")
	}
}

func TestRaiseAlertSwapsModal(t *testing.T) {
	v := New(nil)

	v.appendLog("Tag 04:AB", "Message: hello | Type: text")
	if got := v.scanLog.GetText(false); !strings.Contains(got, "Tag 04:AB") {
		t.Errorf("Scan log = %q, missing the alert title", got)
	}

	v.raiseAlert("Tag 04:AB", "Empty tag")
	if !v.pages.HasPage(pageAlert) {
		t.Fatal("Expected the alert modal page to be present")
	}

	// A second alert replaces the first rather than stacking.
	v.raiseAlert("NFC", "NFC is disabled")
	if !v.pages.HasPage(pageAlert) {
		t.Fatal("Expected the replacement alert page to be present")
	}

	v.pages.RemovePage(pageAlert)
	if v.pages.HasPage(pageAlert) {
		t.Error("Expected the alert page to be removable")
	}
}
