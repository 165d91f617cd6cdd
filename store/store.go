// Package store defines the persistence contract for ChainPay state.
//
// The Engine keeps the authoritative state in memory and persists the records
// an operation touched as one Changeset. Backends must apply a Changeset
// atomically: either every record and event is written or none is.
package store

import (
	"context"

	"github.com/chainpayid/chainpay/event"
	"github.com/chainpayid/chainpay/invoice"
	"github.com/chainpayid/chainpay/ledger"
	"github.com/chainpayid/chainpay/merchant"
)

// Store is the unified storage interface for all ChainPay state.
type Store interface {
	// Load returns the full persisted state. An empty store returns an empty
	// Snapshot.
	Load(ctx context.Context) (*Snapshot, error)

	// Apply upserts every record in cs and appends its events in one
	// transaction.
	Apply(ctx context.Context, cs *Changeset) error

	// ListEvents returns persisted events matching q ordered by sequence.
	ListEvents(ctx context.Context, q event.Query) ([]event.Record, error)

	// Core methods
	Migrate(ctx context.Context) error
	Ping(ctx context.Context) error
	Close() error
}

// Counters are the engine-wide scalars persisted alongside records.
type Counters struct {
	// Nonce is the settlement id counter.
	Nonce uint64 `json:"nonce"`

	// EventSeq is the sequence number of the last persisted event.
	EventSeq uint64 `json:"eventSeq"`
}

// Snapshot is the complete persisted state.
type Snapshot struct {
	Accounts   []ledger.Account     `json:"accounts"`
	Allowances []ledger.Allowance   `json:"allowances"`
	Merchants  []*merchant.Merchant `json:"merchants"`
	Invoices   []*invoice.Invoice   `json:"invoices"`
	Counters   Counters             `json:"counters"`
}

// Changeset is the set of records one committed operation touched.
type Changeset struct {
	Accounts   []ledger.Account
	Allowances []ledger.Allowance
	Merchants  []*merchant.Merchant
	Invoices   []*invoice.Invoice
	Events     []event.Record
	Counters   Counters
}

// IsEmpty reports whether applying cs would change nothing besides counters.
func (cs *Changeset) IsEmpty() bool {
	return len(cs.Accounts) == 0 &&
		len(cs.Allowances) == 0 &&
		len(cs.Merchants) == 0 &&
		len(cs.Invoices) == 0 &&
		len(cs.Events) == 0
}
