// Package processor settles payments between payers and merchants.
//
// Every settlement moves the net amount to the merchant and the fee to the
// fee collector through the token's allowance-based TransferFrom, then bumps
// the merchant's counters. PayInvoice marks the invoice paid before any
// transfer so that a reentrant call observes it as settled; the enclosing
// journal undoes the mark if a later step fails.
package processor

import (
	"context"
	"fmt"
	"time"
	"unicode/utf8"

	"github.com/chainpayid/chainpay/event"
	"github.com/chainpayid/chainpay/id"
	"github.com/chainpayid/chainpay/invoice"
	"github.com/chainpayid/chainpay/journal"
	"github.com/chainpayid/chainpay/types"
)

// Token is the ledger operation the Processor settles through.
type Token interface {
	TransferFrom(ctx context.Context, spender, owner, to types.Address, amount types.Amount) error
}

// Merchants is the registry surface the Processor depends on.
type Merchants interface {
	IsRegistered(addr types.Address) bool
	IsActiveMerchant(addr types.Address) bool
	RecordSettlement(ctx context.Context, addr types.Address, gross types.Amount) error
}

// NonceKey is the journal key of the id nonce.
var NonceKey = journal.Key{Kind: journal.KindCounter, ID: "nonce"}

// Processor orchestrates payments and invoices. It is not safe for
// concurrent use; the Engine serializes access.
type Processor struct {
	token     Token
	merchants Merchants
	invoices  *invoice.Book
	cfg       Config
	nonce     uint64
	now       func() time.Time
}

// New creates a processor. now may be nil to use the wall clock.
func New(token Token, merchants Merchants, cfg Config, now func() time.Time) (*Processor, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	if cfg.Address.IsZero() {
		cfg.Address = DefaultAddress()
	}
	if now == nil {
		now = time.Now
	}

	return &Processor{
		token:     token,
		merchants: merchants,
		invoices:  invoice.NewBook(),
		cfg:       cfg,
		now:       now,
	}, nil
}

// Address returns the spender identity payers must approve.
func (p *Processor) Address() types.Address { return p.cfg.Address }

// FeeCollector returns the fee recipient.
func (p *Processor) FeeCollector() types.Address { return p.cfg.FeeCollector }

// FeeBasisPoints returns the configured fee rate.
func (p *Processor) FeeBasisPoints() uint64 { return p.cfg.FeeBasisPoints }

// Nonce returns the id generation counter.
func (p *Processor) Nonce() uint64 { return p.nonce }

// Invoices exposes the invoice book for persistence.
func (p *Processor) Invoices() *invoice.Book { return p.invoices }

// Quote splits a gross amount into fee and net. fee + net == amount.
func (p *Processor) Quote(amount types.Amount) (fee, net types.Amount) {
	fee = amount.MulDiv(p.cfg.FeeBasisPoints, BasisPointsDenominator)
	return fee, amount - fee
}

// ProcessPayment settles a direct payment of amount from payer to merchant
// and returns its payment id.
func (p *Processor) ProcessPayment(ctx context.Context, payer, merchant types.Address, amount types.Amount) (id.ID, error) {
	if payer.IsZero() {
		return id.Nil, fmt.Errorf("%w: payer", types.ErrInvalidAddress)
	}
	if amount.IsZero() {
		return id.Nil, fmt.Errorf("%w: must be greater than zero", types.ErrInvalidAmount)
	}
	if !p.merchants.IsActiveMerchant(merchant) {
		return id.Nil, fmt.Errorf("%w: %s", types.ErrMerchantNotActive, merchant)
	}

	now := p.timestamp()
	paymentID := p.paymentID(ctx, payer, merchant, amount, now)

	if err := p.settle(ctx, payer, merchant, amount, now, paymentID); err != nil {
		return id.Nil, err
	}
	return paymentID, nil
}

// CreateInvoice issues an invoice from merchant. expiryMinutes of zero
// creates an invoice that never expires.
func (p *Processor) CreateInvoice(ctx context.Context, merchant types.Address, amount types.Amount, description string, expiryMinutes uint64) (id.ID, error) {
	if !p.merchants.IsRegistered(merchant) {
		return id.Nil, fmt.Errorf("%w: %s", types.ErrNotRegistered, merchant)
	}
	if amount.IsZero() {
		return id.Nil, fmt.Errorf("%w: must be greater than zero", types.ErrInvalidAmount)
	}
	if description == "" {
		return id.Nil, fmt.Errorf("%w: must not be empty", types.ErrInvalidDescription)
	}
	if utf8.RuneCountInString(description) > invoice.MaxDescriptionLength {
		return id.Nil, fmt.Errorf("%w: longer than %d characters", types.ErrInvalidDescription, invoice.MaxDescriptionLength)
	}

	now := p.timestamp()
	inv := &invoice.Invoice{
		Merchant:    merchant,
		Amount:      amount,
		Description: description,
		CreatedAt:   now,
	}
	if expiryMinutes > 0 {
		expires, err := expiry(now, expiryMinutes)
		if err != nil {
			return id.Nil, err
		}
		inv.ExpiresAt = expires
	}
	inv.ID = p.invoiceID(ctx, merchant, amount, description, now)
	p.invoices.Put(ctx, inv)

	journal.Emit(ctx, event.InvoiceCreated{
		InvoiceID:   inv.ID,
		Merchant:    merchant,
		Amount:      amount,
		Description: description,
		ExpiresAt:   inv.ExpiresAtUnix(),
	})
	return inv.ID, nil
}

// PayInvoice settles an open invoice on behalf of payer and returns the
// payment id.
func (p *Processor) PayInvoice(ctx context.Context, payer types.Address, invoiceID id.ID) (id.ID, error) {
	if payer.IsZero() {
		return id.Nil, fmt.Errorf("%w: payer", types.ErrInvalidAddress)
	}

	inv, err := p.invoices.Get(invoiceID)
	if err != nil {
		return id.Nil, err
	}
	if inv.IsPaid {
		return id.Nil, fmt.Errorf("%w: %s", types.ErrInvoiceAlreadyPaid, invoiceID)
	}

	now := p.timestamp()
	if inv.ExpiredAt(now) {
		return id.Nil, fmt.Errorf("%w: %s expired at %d", types.ErrInvoiceExpired, invoiceID, inv.ExpiresAtUnix())
	}

	paymentID := p.paymentID(ctx, payer, inv.Merchant, inv.Amount, now)

	// Mark paid before moving funds.
	inv.IsPaid = true
	inv.PaidBy = payer
	inv.PaidAt = now
	inv.PaymentID = paymentID
	p.invoices.Put(ctx, inv)

	if err := p.settle(ctx, payer, inv.Merchant, inv.Amount, now, paymentID); err != nil {
		return id.Nil, err
	}

	journal.Emit(ctx, event.InvoicePaid{
		InvoiceID: invoiceID,
		Merchant:  inv.Merchant,
		Payer:     payer,
		PaymentID: paymentID,
		Timestamp: uint64(now.Unix()),
	})
	return paymentID, nil
}

// GetInvoice returns a copy of the invoice.
func (p *Processor) GetInvoice(invoiceID id.ID) (*invoice.Invoice, error) {
	return p.invoices.Get(invoiceID)
}

// ListInvoices returns the merchant's invoices, oldest first.
func (p *Processor) ListInvoices(merchant types.Address) []*invoice.Invoice {
	return p.invoices.ListByMerchant(merchant)
}

// Restore replaces the invoice book and nonce with persisted state.
func (p *Processor) Restore(invoices []*invoice.Invoice, nonce uint64) {
	p.invoices.Restore(invoices)
	p.nonce = nonce
}

func (p *Processor) settle(ctx context.Context, payer, merchant types.Address, amount types.Amount, now time.Time, paymentID id.ID) error {
	fee, net := p.Quote(amount)

	if err := p.token.TransferFrom(ctx, p.cfg.Address, payer, merchant, net); err != nil {
		return err
	}
	if err := p.token.TransferFrom(ctx, p.cfg.Address, payer, p.cfg.FeeCollector, fee); err != nil {
		return err
	}
	if err := p.merchants.RecordSettlement(ctx, merchant, amount); err != nil {
		return err
	}

	journal.Emit(ctx, event.PaymentProcessed{
		Payer:     payer,
		Merchant:  merchant,
		Amount:    amount,
		Fee:       fee,
		NetAmount: net,
		Timestamp: uint64(now.Unix()),
		PaymentID: paymentID,
	})
	return nil
}

func (p *Processor) paymentID(ctx context.Context, payer, merchant types.Address, amount types.Amount, now time.Time) id.ID {
	return p.derive(ctx, id.DomainPayment, func(nonce uint64) [][]byte {
		return [][]byte{
			payer.Bytes(),
			merchant.Bytes(),
			id.Uint64(uint64(amount)),
			id.Uint64(uint64(now.Unix())),
			id.Uint64(nonce),
		}
	}, nil)
}

func (p *Processor) invoiceID(ctx context.Context, merchant types.Address, amount types.Amount, description string, now time.Time) id.ID {
	return p.derive(ctx, id.DomainInvoice, func(nonce uint64) [][]byte {
		return [][]byte{
			merchant.Bytes(),
			id.Uint64(uint64(amount)),
			[]byte(description),
			id.Uint64(uint64(now.Unix())),
			id.Uint64(nonce),
		}
	}, p.invoices.Has)
}

// derive consumes nonces until the derived id is not taken.
func (p *Processor) derive(ctx context.Context, domain string, fields func(nonce uint64) [][]byte, taken func(id.ID) bool) id.ID {
	for {
		nonce := p.nextNonce(ctx)
		out := id.Derive(domain, fields(nonce)...)
		if !out.IsNil() && (taken == nil || !taken(out)) {
			return out
		}
	}
}

func (p *Processor) nextNonce(ctx context.Context) uint64 {
	prev := p.nonce
	journal.Record(ctx, NonceKey, func() { p.nonce = prev })
	p.nonce++
	return p.nonce
}

func (p *Processor) timestamp() time.Time {
	return p.now().UTC().Truncate(time.Second)
}

// maxExpiryMinutes keeps now + minutes*60 representable as a time.Duration.
const maxExpiryMinutes = uint64(1<<63-1) / uint64(time.Minute)

func expiry(now time.Time, minutes uint64) (time.Time, error) {
	if minutes > maxExpiryMinutes {
		return time.Time{}, fmt.Errorf("%w: expiry of %d minutes is out of range", types.ErrInvalidAmount, minutes)
	}
	return now.Add(time.Duration(minutes) * time.Minute), nil
}
