// Package id defines the identifier types used by ChainPay.
//
// Settlement identifiers (payment and invoice ids) are 32-byte values derived
// deterministically with Keccak-256 from a domain tag and the fields that make
// the object unique. Persisted event records use K-sortable TypeIDs instead,
// see RecordID.
package id

import (
	"database/sql/driver"
	"encoding/binary"
	"encoding/hex"
	"fmt"
	"strings"

	"golang.org/x/crypto/sha3"
)

// Length is the byte width of a settlement ID.
const Length = 32

// Domain tags keep payment and invoice ids in disjoint hash spaces.
const (
	DomainPayment = "chainpay.payment.v1"
	DomainInvoice = "chainpay.invoice.v1"
)

// ID is a 32-byte settlement identifier.
//
//nolint:recvcheck // Value receivers for read-only methods, pointer receivers for UnmarshalText/Scan.
type ID [Length]byte

// Nil is the zero-value ID. It is never produced by Derive in practice and
// never refers to a stored object.
var Nil ID

// Derive hashes a domain tag and a list of fields into an ID. Every input is
// length-prefixed so that distinct field lists never share an encoding.
func Derive(domain string, fields ...[]byte) ID {
	h := sha3.NewLegacyKeccak256()

	var lenBuf [8]byte
	binary.BigEndian.PutUint64(lenBuf[:], uint64(len(domain)))
	h.Write(lenBuf[:])
	h.Write([]byte(domain))

	for _, f := range fields {
		binary.BigEndian.PutUint64(lenBuf[:], uint64(len(f)))
		h.Write(lenBuf[:])
		h.Write(f)
	}

	var out ID
	copy(out[:], h.Sum(nil))
	return out
}

// Uint64 encodes v as an 8-byte big-endian field for Derive.
func Uint64(v uint64) []byte {
	b := make([]byte, 8)
	binary.BigEndian.PutUint64(b, v)
	return b
}

// Parse parses a 0x-prefixed (or bare) 64 digit hex string.
func Parse(s string) (ID, error) {
	if s == "" {
		return Nil, fmt.Errorf("id: parse %q: empty string", s)
	}

	raw := strings.TrimPrefix(strings.TrimPrefix(s, "0x"), "0X")
	if len(raw) != Length*2 {
		return Nil, fmt.Errorf("id: parse %q: want %d hex digits", s, Length*2)
	}

	var out ID
	if _, err := hex.Decode(out[:], []byte(raw)); err != nil {
		return Nil, fmt.Errorf("id: parse %q: %w", s, err)
	}
	return out, nil
}

// MustParse is like Parse but panics on error. Use for hardcoded ID values.
func MustParse(s string) ID {
	parsed, err := Parse(s)
	if err != nil {
		panic(fmt.Sprintf("id: must parse %q: %v", s, err))
	}
	return parsed
}

// String returns the lowercase 0x-prefixed hex form.
func (i ID) String() string { return "0x" + hex.EncodeToString(i[:]) }

// IsNil reports whether this ID is the zero value.
func (i ID) IsNil() bool { return i == Nil }

// Short returns the first eight hex digits, for log lines.
func (i ID) Short() string { return i.String()[:10] }

// MarshalText implements encoding.TextMarshaler.
func (i ID) MarshalText() ([]byte, error) {
	return []byte(i.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (i *ID) UnmarshalText(data []byte) error {
	parsed, err := Parse(string(data))
	if err != nil {
		return err
	}
	*i = parsed
	return nil
}

// Value implements driver.Valuer for database storage.
func (i ID) Value() (driver.Value, error) {
	return i.String(), nil
}

// Scan implements sql.Scanner for database retrieval.
func (i *ID) Scan(src any) error {
	switch v := src.(type) {
	case nil:
		*i = Nil
		return nil
	case string:
		return i.UnmarshalText([]byte(v))
	case []byte:
		return i.UnmarshalText(v)
	default:
		return fmt.Errorf("id: cannot scan %T into ID", src)
	}
}
