package gate_test

import (
	"testing"

	"github.com/diewo77/gst-ledger/internal/gate"
)

func TestPermission_NewPermission(t *testing.T) {
	perm := gate.NewPermission("payment", gate.ActionRecord)
	if perm != "payment:record" {
		t.Errorf("expected 'payment:record', got '%s'", perm)
	}
}

func TestPermission_Parse(t *testing.T) {
	res, act := gate.Permission("invoice:finalize").Parse()
	if res != "invoice" || act != gate.ActionFinalize {
		t.Errorf("got %q %q", res, act)
	}
	res, act = gate.Permission("invalid").Parse()
	if res != "" || act != "" {
		t.Errorf("expected empty strings, got '%s' and '%s'", res, act)
	}
}

func TestPermission_Matches(t *testing.T) {
	tests := []struct {
		grant     gate.Permission
		requested gate.Permission
		want      bool
	}{
		{"invoice:view", "invoice:view", true},
		{"invoice:view", "invoice:cancel", false},
		{"invoice:view", "payment:view", false},
		{"*:*", "payment:reverse", true},
		{"invoice:*", "invoice:finalize", true},
		{"invoice:*", "payment:record", false},
		{"*:view", "payment:view", true},
		{"*:view", "payment:record", false},
		{"garbage", "invoice:view", false},
		{"invoice:*", "garbage", false},
	}
	for _, tt := range tests {
		if got := tt.grant.Matches(tt.requested); got != tt.want {
			t.Errorf("%s.Matches(%s) = %v, want %v", tt.grant, tt.requested, got, tt.want)
		}
	}
}

func TestParseCapabilities(t *testing.T) {
	caps := gate.ParseCapabilities([]string{"invoice:view", "bogus", ":view", "payment:*"})
	if len(caps) != 2 {
		t.Fatalf("expected 2 capabilities, got %v", caps)
	}
	if !caps.Allows("payment:reverse") {
		t.Error("payment:* should allow payment:reverse")
	}
	if caps.Allows("tax:quote") {
		t.Error("tax:quote was not granted")
	}
	if got := caps.Strings(); got[0] != "invoice:view" || got[1] != "payment:*" {
		t.Errorf("Strings() = %v", got)
	}
}
