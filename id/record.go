package id

import (
	"database/sql/driver"
	"fmt"

	"go.jetify.com/typeid/v2"
)

// Prefix identifies the record type encoded in a RecordID.
type Prefix string

// Prefix constants for persisted records.
const (
	PrefixEvent     Prefix = "evt" // Event log record
	PrefixOperation Prefix = "op"  // Engine operation (log correlation)
)

// RecordID identifies persisted records such as event log entries.
// It wraps a TypeID providing a prefix-qualified, globally unique,
// sortable, URL-safe identifier in the format "prefix_suffix".
//
//nolint:recvcheck // Value receivers for read-only methods, pointer receivers for UnmarshalText/Scan.
type RecordID struct {
	inner typeid.TypeID
	valid bool
}

// NilRecord is the zero-value RecordID.
var NilRecord RecordID

// NewRecord generates a new globally unique RecordID with the given prefix.
// It panics if prefix is not a valid TypeID prefix (programming error).
func NewRecord(prefix Prefix) RecordID {
	tid, err := typeid.Generate(string(prefix))
	if err != nil {
		panic(fmt.Sprintf("id: invalid prefix %q: %v", prefix, err))
	}

	return RecordID{inner: tid, valid: true}
}

// NewEventID generates a new event record ID.
func NewEventID() RecordID { return NewRecord(PrefixEvent) }

// NewOperationID generates a new operation ID.
func NewOperationID() RecordID { return NewRecord(PrefixOperation) }

// ParseRecord parses a TypeID string (e.g., "evt_01h2xcejqtf2nbrexx3vqjhp41").
func ParseRecord(s string) (RecordID, error) {
	if s == "" {
		return NilRecord, fmt.Errorf("id: parse %q: empty string", s)
	}

	tid, err := typeid.Parse(s)
	if err != nil {
		return NilRecord, fmt.Errorf("id: parse %q: %w", s, err)
	}

	return RecordID{inner: tid, valid: true}, nil
}

// ParseRecordWithPrefix parses a TypeID string and validates its prefix.
func ParseRecordWithPrefix(s string, expected Prefix) (RecordID, error) {
	parsed, err := ParseRecord(s)
	if err != nil {
		return NilRecord, err
	}

	if parsed.Prefix() != expected {
		return NilRecord, fmt.Errorf("id: expected prefix %q, got %q", expected, parsed.Prefix())
	}

	return parsed, nil
}

// ParseEventID parses a string and validates the "evt" prefix.
func ParseEventID(s string) (RecordID, error) { return ParseRecordWithPrefix(s, PrefixEvent) }

// String returns the full TypeID string, or "" for NilRecord.
func (r RecordID) String() string {
	if !r.valid {
		return ""
	}

	return r.inner.String()
}

// Prefix returns the prefix component of this ID.
func (r RecordID) Prefix() Prefix {
	if !r.valid {
		return ""
	}

	return Prefix(r.inner.Prefix())
}

// IsNil reports whether this ID is the zero value.
func (r RecordID) IsNil() bool {
	return !r.valid
}

// MarshalText implements encoding.TextMarshaler.
func (r RecordID) MarshalText() ([]byte, error) {
	if !r.valid {
		return []byte{}, nil
	}

	return []byte(r.inner.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (r *RecordID) UnmarshalText(data []byte) error {
	if len(data) == 0 {
		*r = NilRecord

		return nil
	}

	parsed, err := ParseRecord(string(data))
	if err != nil {
		return err
	}

	*r = parsed

	return nil
}

// Value implements driver.Valuer. NilRecord is stored as NULL.
func (r RecordID) Value() (driver.Value, error) {
	if !r.valid {
		return nil, nil //nolint:nilnil // nil is the canonical NULL for driver.Valuer
	}

	return r.inner.String(), nil
}

// Scan implements sql.Scanner for database retrieval.
func (r *RecordID) Scan(src any) error {
	switch v := src.(type) {
	case nil:
		*r = NilRecord

		return nil
	case string:
		return r.UnmarshalText([]byte(v))
	case []byte:
		return r.UnmarshalText(v)
	default:
		return fmt.Errorf("id: cannot scan %T into RecordID", src)
	}
}
