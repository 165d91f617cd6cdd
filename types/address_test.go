package types

import (
	"encoding/json"
	"testing"
)

const sampleHex = "0x00000000000000000000000000000000000000a1"

func TestParseAddress(t *testing.T) {
	tests := []struct {
		name    string
		in      string
		wantErr bool
	}{
		{"prefixed", sampleHex, false},
		{"bare", "00000000000000000000000000000000000000a1", false},
		{"upper prefix", "0X00000000000000000000000000000000000000A1", false},
		{"short", "0x1234", true},
		{"bad hex", "0xzz000000000000000000000000000000000000a1", true},
		{"empty", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a, err := ParseAddress(tt.in)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("expected error for %q", tt.in)
				}
				return
			}
			if err != nil {
				t.Fatalf("ParseAddress(%q): %v", tt.in, err)
			}
			if a.Hex() != sampleHex {
				t.Errorf("Hex: got %s, want %s", a.Hex(), sampleHex)
			}
		})
	}
}

func TestAddressZero(t *testing.T) {
	if !ZeroAddress.IsZero() {
		t.Error("ZeroAddress.IsZero() = false")
	}
	if MustParseAddress(sampleHex).IsZero() {
		t.Error("non-zero address reported zero")
	}
}

func TestBytesToAddress(t *testing.T) {
	a := BytesToAddress([]byte{0xa1})
	if a != MustParseAddress(sampleHex) {
		t.Errorf("BytesToAddress short: got %s", a)
	}

	long := make([]byte, 32)
	long[31] = 0xa1
	long[0] = 0xff
	if got := BytesToAddress(long); got != MustParseAddress(sampleHex) {
		t.Errorf("BytesToAddress long: got %s", got)
	}
}

func TestAddressJSON(t *testing.T) {
	type wrapper struct {
		Addr Address `json:"addr"`
	}

	in := wrapper{Addr: MustParseAddress(sampleHex)}
	data, err := json.Marshal(in)
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	if string(data) != `{"addr":"`+sampleHex+`"}` {
		t.Errorf("Marshal: got %s", data)
	}

	var out wrapper
	if err := json.Unmarshal(data, &out); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if out.Addr != in.Addr {
		t.Errorf("Unmarshal: got %s, want %s", out.Addr, in.Addr)
	}
}

func TestAddressScan(t *testing.T) {
	var a Address
	if err := a.Scan(sampleHex); err != nil {
		t.Fatalf("Scan string: %v", err)
	}
	if a.Hex() != sampleHex {
		t.Errorf("Scan string: got %s", a)
	}

	if err := a.Scan([]byte(sampleHex)); err != nil {
		t.Fatalf("Scan bytes: %v", err)
	}
	if err := a.Scan(nil); err != nil || !a.IsZero() {
		t.Errorf("Scan nil: got %s err=%v", a, err)
	}
	if err := a.Scan(42); err == nil {
		t.Error("Scan int should fail")
	}

	v, err := MustParseAddress(sampleHex).Value()
	if err != nil || v != sampleHex {
		t.Errorf("Value: got %v err=%v", v, err)
	}
}
