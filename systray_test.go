package main

import "testing"

func TestTrayStatusText(t *testing.T) {
	tests := []struct {
		enabled   bool
		listening bool
		want      string
	}{
		{false, false, "NFC disabled"},
		{false, true, "NFC disabled"},
		{true, false, "NFC enabled, idle"},
		{true, true, "Listening for tags"},
	}

	for _, tt := range tests {
		if got := trayStatusText(tt.enabled, tt.listening); got != tt.want {
			t.Errorf("trayStatusText(%v, %v) = %q, want %q", tt.enabled, tt.listening, got, tt.want)
		}
	}
}
