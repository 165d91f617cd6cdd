// Package memory provides an in-process Store. It is the default for tests
// and single-process deployments that do not need durability.
package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/chainpayid/chainpay/event"
	"github.com/chainpayid/chainpay/id"
	"github.com/chainpayid/chainpay/invoice"
	"github.com/chainpayid/chainpay/ledger"
	"github.com/chainpayid/chainpay/merchant"
	"github.com/chainpayid/chainpay/store"
	"github.com/chainpayid/chainpay/types"
)

type allowanceKey struct {
	owner   types.Address
	spender types.Address
}

type Store struct {
	mu sync.RWMutex

	accounts   map[types.Address]types.Amount
	allowances map[allowanceKey]types.Amount
	merchants  map[types.Address]merchant.Merchant
	invoices   map[id.ID]invoice.Invoice
	events     []event.Record
	counters   store.Counters
	closed     bool
}

var _ store.Store = (*Store)(nil)

func New() *Store {
	return &Store{
		accounts:   make(map[types.Address]types.Amount),
		allowances: make(map[allowanceKey]types.Amount),
		merchants:  make(map[types.Address]merchant.Merchant),
		invoices:   make(map[id.ID]invoice.Invoice),
	}
}

func (s *Store) Load(_ context.Context) (*store.Snapshot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return nil, types.ErrStoreClosed
	}

	snap := &store.Snapshot{Counters: s.counters}
	for addr, bal := range s.accounts {
		snap.Accounts = append(snap.Accounts, ledger.Account{Address: addr, Balance: bal})
	}
	for k, amt := range s.allowances {
		snap.Allowances = append(snap.Allowances, ledger.Allowance{Owner: k.owner, Spender: k.spender, Amount: amt})
	}
	for _, m := range s.merchants {
		snap.Merchants = append(snap.Merchants, &m)
	}
	for _, inv := range s.invoices {
		snap.Invoices = append(snap.Invoices, &inv)
	}
	return snap, nil
}

func (s *Store) Apply(_ context.Context, cs *store.Changeset) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return types.ErrStoreClosed
	}

	for _, a := range cs.Accounts {
		s.accounts[a.Address] = a.Balance
	}
	for _, a := range cs.Allowances {
		s.allowances[allowanceKey{owner: a.Owner, spender: a.Spender}] = a.Amount
	}
	for _, m := range cs.Merchants {
		s.merchants[m.Address] = *m
	}
	for _, inv := range cs.Invoices {
		s.invoices[inv.ID] = *inv
	}
	s.events = append(s.events, cs.Events...)
	s.counters = cs.Counters
	return nil
}

func (s *Store) ListEvents(_ context.Context, q event.Query) ([]event.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return nil, types.ErrStoreClosed
	}

	var out []event.Record
	for _, rec := range s.events {
		if !q.Matches(rec) {
			continue
		}
		out = append(out, rec)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Seq < out[j].Seq })
	if q.Limit > 0 && len(out) > q.Limit {
		out = out[:q.Limit]
	}
	return out, nil
}

func (s *Store) Migrate(_ context.Context) error { return nil }

func (s *Store) Ping(_ context.Context) error {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return types.ErrStoreClosed
	}
	return nil
}

func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.closed = true
	return nil
}
