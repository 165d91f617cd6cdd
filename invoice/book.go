// Package invoice defines merchant invoices and the Book that holds them.
package invoice

import (
	"bytes"
	"context"
	"fmt"
	"sort"

	"github.com/chainpayid/chainpay/id"
	"github.com/chainpayid/chainpay/journal"
	"github.com/chainpayid/chainpay/types"
)

// Book stores invoices keyed by id. It is not safe for concurrent use.
type Book struct {
	invoices map[id.ID]*Invoice
}

// NewBook creates an empty book.
func NewBook() *Book {
	return &Book{invoices: make(map[id.ID]*Invoice)}
}

// Has reports whether an invoice with invID exists.
func (b *Book) Has(invID id.ID) bool {
	_, ok := b.invoices[invID]
	return ok
}

// Get returns a copy of the invoice.
func (b *Book) Get(invID id.ID) (*Invoice, error) {
	inv, ok := b.invoices[invID]
	if !ok {
		return nil, fmt.Errorf("%w: %s", types.ErrInvoiceNotFound, invID)
	}
	return clone(inv), nil
}

// Put stores inv, journaling the previous value.
func (b *Book) Put(ctx context.Context, inv *Invoice) {
	prev, had := b.invoices[inv.ID]
	journal.Record(ctx, Key(inv.ID), func() {
		if had {
			b.invoices[inv.ID] = prev
		} else {
			delete(b.invoices, inv.ID)
		}
	})
	b.invoices[inv.ID] = clone(inv)
}

// ListByMerchant returns the merchant's invoices, oldest first.
func (b *Book) ListByMerchant(merchant types.Address) []*Invoice {
	var out []*Invoice
	for _, inv := range b.invoices {
		if inv.Merchant == merchant {
			out = append(out, clone(inv))
		}
	}
	sortInvoices(out)
	return out
}

// All returns every invoice, oldest first.
func (b *Book) All() []*Invoice {
	out := make([]*Invoice, 0, len(b.invoices))
	for _, inv := range b.invoices {
		out = append(out, clone(inv))
	}
	sortInvoices(out)
	return out
}

// Restore replaces the book contents with persisted invoices.
func (b *Book) Restore(invoices []*Invoice) {
	b.invoices = make(map[id.ID]*Invoice, len(invoices))
	for _, inv := range invoices {
		b.invoices[inv.ID] = clone(inv)
	}
}

// Collect returns the current records for the dirty invoice keys.
func (b *Book) Collect(keys []journal.Key) ([]*Invoice, error) {
	var out []*Invoice
	for _, k := range keys {
		if k.Kind != journal.KindInvoice {
			continue
		}
		invID, err := id.Parse(k.ID)
		if err != nil {
			return nil, fmt.Errorf("invoice: collect: %w", err)
		}
		if inv, ok := b.invoices[invID]; ok {
			out = append(out, clone(inv))
		}
	}
	return out, nil
}

func sortInvoices(list []*Invoice) {
	sort.Slice(list, func(i, j int) bool {
		if !list[i].CreatedAt.Equal(list[j].CreatedAt) {
			return list[i].CreatedAt.Before(list[j].CreatedAt)
		}
		return bytes.Compare(list[i].ID[:], list[j].ID[:]) < 0
	})
}

func clone(inv *Invoice) *Invoice {
	c := *inv
	return &c
}
