// Package storetest provides a conformance suite every store.Store
// implementation runs from its own tests.
package storetest

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/chainpayid/chainpay/event"
	"github.com/chainpayid/chainpay/id"
	"github.com/chainpayid/chainpay/invoice"
	"github.com/chainpayid/chainpay/ledger"
	"github.com/chainpayid/chainpay/merchant"
	"github.com/chainpayid/chainpay/store"
	"github.com/chainpayid/chainpay/types"
)

// Factory returns a fresh, empty store. The suite migrates and closes it.
type Factory func(t *testing.T) store.Store

var (
	shop  = types.MustParseAddress("0x00000000000000000000000000000000000000a1")
	payer = types.MustParseAddress("0x00000000000000000000000000000000000000b2")
	fees  = types.MustParseAddress("0x00000000000000000000000000000000000000fe")

	registeredAt = time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
)

// Run executes the suite against stores produced by open.
func Run(t *testing.T, open Factory) {
	t.Helper()

	tests := []struct {
		name string
		fn   func(t *testing.T, s store.Store)
	}{
		{"EmptyLoad", testEmptyLoad},
		{"ApplyAndLoad", testApplyAndLoad},
		{"ApplyOverwrites", testApplyOverwrites},
		{"ListEvents", testListEvents},
		{"Closed", testClosed},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := open(t)
			require.NoError(t, s.Migrate(context.Background()))
			tt.fn(t, s)
		})
	}
}

func record(t *testing.T, seq uint64, evt event.Event) event.Record {
	t.Helper()
	rec, err := event.NewRecord(seq, evt, registeredAt)
	require.NoError(t, err)
	return rec
}

func testEmptyLoad(t *testing.T, s store.Store) {
	defer s.Close()

	snap, err := s.Load(context.Background())
	require.NoError(t, err)
	require.Empty(t, snap.Accounts)
	require.Empty(t, snap.Merchants)
	require.Empty(t, snap.Invoices)
	require.Zero(t, snap.Counters)
	require.NoError(t, s.Ping(context.Background()))
}

func testApplyAndLoad(t *testing.T, s store.Store) {
	defer s.Close()
	ctx := context.Background()

	open := &invoice.Invoice{
		ID:          id.Derive(id.DomainInvoice, []byte("open")),
		Merchant:    shop,
		Amount:      types.IDRX(75),
		Description: "Order #42",
		CreatedAt:   registeredAt,
		ExpiresAt:   registeredAt.Add(30 * time.Minute),
	}
	paid := &invoice.Invoice{
		ID:          id.Derive(id.DomainInvoice, []byte("paid")),
		Merchant:    shop,
		Amount:      types.IDRX(10),
		Description: "Kopi susu",
		CreatedAt:   registeredAt.Add(time.Second),
		IsPaid:      true,
		PaidBy:      payer,
		PaidAt:      registeredAt.Add(time.Minute),
		PaymentID:   id.Derive(id.DomainPayment, []byte("paid")),
	}
	m := &merchant.Merchant{
		Address:           shop,
		BusinessName:      "Warung Kopi",
		Category:          "Food & Beverage",
		LogoURI:           "ipfs://logo",
		RegisteredAt:      registeredAt,
		IsActive:          true,
		TotalTransactions: 2,
		TotalVolume:       types.IDRX(110),
		UpdatedAt:         registeredAt.Add(time.Minute),
	}
	events := []event.Record{
		record(t, 1, event.MerchantRegistered{Address: shop, BusinessName: m.BusinessName, Timestamp: uint64(registeredAt.Unix())}),
		record(t, 2, event.Approval{Owner: payer, Spender: fees, Value: types.MaxAmount}),
	}

	require.NoError(t, s.Apply(ctx, &store.Changeset{
		Accounts: []ledger.Account{
			{Address: shop, Balance: 109_450000},
			{Address: fees, Balance: 550000},
			{Address: payer, Balance: types.MaxAmount - 1},
		},
		Allowances: []ledger.Allowance{{Owner: payer, Spender: fees, Amount: types.MaxAmount}},
		Merchants:  []*merchant.Merchant{m},
		Invoices:   []*invoice.Invoice{open, paid},
		Events:     events,
		Counters:   store.Counters{Nonce: 4, EventSeq: 2},
	}))

	snap, err := s.Load(ctx)
	require.NoError(t, err)

	balances := map[types.Address]types.Amount{}
	for _, a := range snap.Accounts {
		balances[a.Address] = a.Balance
	}
	require.Equal(t, map[types.Address]types.Amount{
		shop:  109_450000,
		fees:  550000,
		payer: types.MaxAmount - 1,
	}, balances)

	require.Len(t, snap.Allowances, 1)
	require.Equal(t, types.MaxAmount, snap.Allowances[0].Amount)

	require.Len(t, snap.Merchants, 1)
	got := snap.Merchants[0]
	require.Equal(t, m.Address, got.Address)
	require.Equal(t, m.BusinessName, got.BusinessName)
	require.Equal(t, m.LogoURI, got.LogoURI)
	require.Equal(t, m.TotalVolume, got.TotalVolume)
	require.Equal(t, m.TotalTransactions, got.TotalTransactions)
	require.True(t, m.RegisteredAt.Equal(got.RegisteredAt))

	invoices := map[id.ID]*invoice.Invoice{}
	for _, inv := range snap.Invoices {
		invoices[inv.ID] = inv
	}
	require.Len(t, invoices, 2)

	gotOpen := invoices[open.ID]
	require.NotNil(t, gotOpen)
	require.False(t, gotOpen.IsPaid)
	require.True(t, gotOpen.PaidBy.IsZero())
	require.True(t, gotOpen.PaymentID.IsNil())
	require.True(t, open.ExpiresAt.Equal(gotOpen.ExpiresAt))

	gotPaid := invoices[paid.ID]
	require.NotNil(t, gotPaid)
	require.True(t, gotPaid.IsPaid)
	require.Equal(t, payer, gotPaid.PaidBy)
	require.Equal(t, paid.PaymentID, gotPaid.PaymentID)
	require.False(t, gotPaid.Expires())

	require.Equal(t, store.Counters{Nonce: 4, EventSeq: 2}, snap.Counters)
}

func testApplyOverwrites(t *testing.T, s store.Store) {
	defer s.Close()
	ctx := context.Background()

	require.NoError(t, s.Apply(ctx, &store.Changeset{
		Accounts: []ledger.Account{{Address: shop, Balance: 10}},
		Counters: store.Counters{Nonce: 1},
	}))
	require.NoError(t, s.Apply(ctx, &store.Changeset{
		Accounts: []ledger.Account{{Address: shop, Balance: 7}},
		Counters: store.Counters{Nonce: 2},
	}))

	snap, err := s.Load(ctx)
	require.NoError(t, err)
	require.Equal(t, []ledger.Account{{Address: shop, Balance: 7}}, snap.Accounts)
	require.Equal(t, uint64(2), snap.Counters.Nonce)
}

func testListEvents(t *testing.T, s store.Store) {
	defer s.Close()
	ctx := context.Background()

	var events []event.Record
	for seq := uint64(1); seq <= 6; seq++ {
		to := shop
		if seq%2 == 0 {
			to = fees
		}
		events = append(events, record(t, seq, event.Transfer{From: payer, To: to, Value: types.Amount(seq)}))
	}
	events = append(events, record(t, 7, event.MerchantRegistered{Address: shop, BusinessName: "Kopi"}))
	require.NoError(t, s.Apply(ctx, &store.Changeset{Events: events, Counters: store.Counters{EventSeq: 7}}))

	tests := []struct {
		name string
		q    event.Query
		want []uint64
	}{
		{"all", event.Query{}, []uint64{1, 2, 3, 4, 5, 6, 7}},
		{"by name", event.Query{Name: event.NameMerchantRegistered}, []uint64{7}},
		{"after", event.Query{AfterSeq: 5}, []uint64{6, 7}},
		{"limit", event.Query{Limit: 2}, []uint64{1, 2}},
		{"by subject", event.Query{Subject: payer, Name: event.NameTransfer, AfterSeq: 2, Limit: 3}, []uint64{3, 4, 5}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			recs, err := s.ListEvents(ctx, tt.q)
			require.NoError(t, err)

			seqs := make([]uint64, 0, len(recs))
			for _, r := range recs {
				seqs = append(seqs, r.Seq)
			}
			require.Equal(t, tt.want, seqs)
		})
	}

	recs, err := s.ListEvents(ctx, event.Query{Name: event.NameTransfer, Limit: 1})
	require.NoError(t, err)
	require.Equal(t, events[0].ID.String(), recs[0].ID.String())
	decoded, err := recs[0].Decode()
	require.NoError(t, err)
	require.Equal(t, event.Transfer{From: payer, To: shop, Value: 1}, decoded)
}

func testClosed(t *testing.T, s store.Store) {
	ctx := context.Background()
	require.NoError(t, s.Close())

	_, err := s.Load(ctx)
	require.ErrorIs(t, err, types.ErrStoreClosed)

	err = s.Apply(ctx, &store.Changeset{})
	require.ErrorIs(t, err, types.ErrStoreClosed)
}
