package memory_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/chainpayid/chainpay/event"
	"github.com/chainpayid/chainpay/id"
	"github.com/chainpayid/chainpay/invoice"
	"github.com/chainpayid/chainpay/ledger"
	"github.com/chainpayid/chainpay/merchant"
	"github.com/chainpayid/chainpay/store"
	"github.com/chainpayid/chainpay/store/memory"
	"github.com/chainpayid/chainpay/store/storetest"
	"github.com/chainpayid/chainpay/types"
)

var (
	alice = types.MustParseAddress("0x00000000000000000000000000000000000000a1")
	bob   = types.MustParseAddress("0x00000000000000000000000000000000000000b2")
)

func record(t *testing.T, seq uint64, evt event.Event) event.Record {
	t.Helper()
	rec, err := event.NewRecord(seq, evt, time.Unix(1, 0))
	if err != nil {
		t.Fatalf("NewRecord: %v", err)
	}
	return rec
}

func TestApplyAndLoad(t *testing.T) {
	s := memory.New()
	ctx := context.Background()

	inv := &invoice.Invoice{ID: id.Derive(id.DomainInvoice, []byte("1")), Merchant: alice, Amount: 5}
	err := s.Apply(ctx, &store.Changeset{
		Accounts:   []ledger.Account{{Address: alice, Balance: 10}},
		Allowances: []ledger.Allowance{{Owner: alice, Spender: bob, Amount: types.MaxAmount}},
		Merchants:  []*merchant.Merchant{{Address: alice, BusinessName: "A", Category: "x", IsActive: true}},
		Invoices:   []*invoice.Invoice{inv},
		Events:     []event.Record{record(t, 1, event.Transfer{From: alice, To: bob, Value: 1})},
		Counters:   store.Counters{Nonce: 3, EventSeq: 1},
	})
	if err != nil {
		t.Fatalf("Apply: %v", err)
	}

	// Later changes overwrite.
	if err := s.Apply(ctx, &store.Changeset{
		Accounts: []ledger.Account{{Address: alice, Balance: 7}},
		Counters: store.Counters{Nonce: 4, EventSeq: 1},
	}); err != nil {
		t.Fatalf("Apply: %v", err)
	}

	snap, err := s.Load(ctx)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(snap.Accounts) != 1 || snap.Accounts[0].Balance != 7 {
		t.Errorf("Accounts: %v", snap.Accounts)
	}
	if len(snap.Allowances) != 1 || snap.Allowances[0].Amount != types.MaxAmount {
		t.Errorf("Allowances: %v", snap.Allowances)
	}
	if len(snap.Merchants) != 1 || len(snap.Invoices) != 1 || snap.Invoices[0].ID != inv.ID {
		t.Errorf("records: %d merchants, %d invoices", len(snap.Merchants), len(snap.Invoices))
	}
	if snap.Counters.Nonce != 4 {
		t.Errorf("Nonce: got %d", snap.Counters.Nonce)
	}
}

func TestListEvents(t *testing.T) {
	s := memory.New()
	ctx := context.Background()

	err := s.Apply(ctx, &store.Changeset{Events: []event.Record{
		record(t, 1, event.Transfer{From: alice, To: bob, Value: 1}),
		record(t, 2, event.Approval{Owner: bob, Spender: alice, Value: 1}),
		record(t, 3, event.Transfer{From: bob, To: alice, Value: 1}),
	}})
	if err != nil {
		t.Fatalf("Apply: %v", err)
	}

	tests := []struct {
		name  string
		query event.Query
		seqs  []uint64
	}{
		{"all", event.Query{}, []uint64{1, 2, 3}},
		{"by name", event.Query{Name: event.NameTransfer}, []uint64{1, 3}},
		{"by subject", event.Query{Subject: bob}, []uint64{2, 3}},
		{"after seq", event.Query{AfterSeq: 1}, []uint64{2, 3}},
		{"limit", event.Query{Limit: 2}, []uint64{1, 2}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := s.ListEvents(ctx, tt.query)
			if err != nil {
				t.Fatalf("ListEvents: %v", err)
			}
			if len(got) != len(tt.seqs) {
				t.Fatalf("got %d events, want %d", len(got), len(tt.seqs))
			}
			for i, seq := range tt.seqs {
				if got[i].Seq != seq {
					t.Errorf("event %d: seq %d, want %d", i, got[i].Seq, seq)
				}
			}
		})
	}
}

func TestClosed(t *testing.T) {
	s := memory.New()
	ctx := context.Background()
	if err := s.Ping(ctx); err != nil {
		t.Fatalf("Ping: %v", err)
	}
	if err := s.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if err := s.Ping(ctx); !errors.Is(err, types.ErrStoreClosed) {
		t.Errorf("Ping after close: got %v", err)
	}
	if err := s.Apply(ctx, &store.Changeset{}); !errors.Is(err, types.ErrStoreClosed) {
		t.Errorf("Apply after close: got %v", err)
	}
	if _, err := s.Load(ctx); !errors.Is(err, types.ErrStoreClosed) {
		t.Errorf("Load after close: got %v", err)
	}
}

func TestConformance(t *testing.T) {
	storetest.Run(t, func(*testing.T) store.Store { return memory.New() })
}
