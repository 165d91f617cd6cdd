package id_test

import (
	"strings"
	"testing"

	"github.com/chainpayid/chainpay/id"
)

func TestRecordConstructors(t *testing.T) {
	tests := []struct {
		name   string
		newFn  func() id.RecordID
		prefix string
	}{
		{"EventID", id.NewEventID, "evt_"},
		{"OperationID", id.NewOperationID, "op_"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := tt.newFn().String()
			if !strings.HasPrefix(got, tt.prefix) {
				t.Errorf("expected prefix %q, got %q", tt.prefix, got)
			}
		})
	}
}

func TestRecordParseRoundTrip(t *testing.T) {
	original := id.NewEventID()
	parsed, err := id.ParseEventID(original.String())
	if err != nil {
		t.Fatalf("parse failed: %v", err)
	}
	if parsed.String() != original.String() {
		t.Errorf("round-trip mismatch: %q != %q", parsed.String(), original.String())
	}

	if _, err := id.ParseEventID(id.NewOperationID().String()); err == nil {
		t.Error("expected error for wrong prefix")
	}
	if _, err := id.ParseRecord(""); err == nil {
		t.Error("expected error for empty string")
	}
}

func TestNilRecord(t *testing.T) {
	var r id.RecordID
	if !r.IsNil() {
		t.Error("zero-value RecordID should be nil")
	}
	if r.String() != "" || r.Prefix() != "" {
		t.Errorf("expected empty string and prefix, got %q %q", r.String(), r.Prefix())
	}

	data, err := r.MarshalText()
	if err != nil {
		t.Fatalf("MarshalText(nil) failed: %v", err)
	}
	var restored id.RecordID
	if err := restored.UnmarshalText(data); err != nil {
		t.Fatalf("UnmarshalText(nil) failed: %v", err)
	}
	if !restored.IsNil() {
		t.Error("expected nil after round-trip of nil RecordID")
	}

	v, err := r.Value()
	if err != nil || v != nil {
		t.Errorf("Value(nil): got %v err=%v", v, err)
	}
}
