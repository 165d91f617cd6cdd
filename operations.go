package chainpay

import (
	"context"
	"time"

	"github.com/chainpayid/chainpay/event"
	"github.com/chainpayid/chainpay/id"
	"github.com/chainpayid/chainpay/invoice"
	"github.com/chainpayid/chainpay/merchant"
	"github.com/chainpayid/chainpay/types"
)

// ──────────────────────────────────────────────────
// Merchant registry
// ──────────────────────────────────────────────────

// Register registers caller as an active merchant.
func (e *Engine) Register(ctx context.Context, caller types.Address, p merchant.Profile) (*merchant.Merchant, error) {
	var m *merchant.Merchant
	err := e.exec(ctx, "Register", func(ctx context.Context) error {
		var err error
		m, err = e.merchants.Register(ctx, caller, p)
		return err
	})
	return m, err
}

// UpdateProfile replaces caller's business name, category and logo.
func (e *Engine) UpdateProfile(ctx context.Context, caller types.Address, p merchant.Profile) (*merchant.Merchant, error) {
	var m *merchant.Merchant
	err := e.exec(ctx, "UpdateProfile", func(ctx context.Context) error {
		var err error
		m, err = e.merchants.UpdateProfile(ctx, caller, p)
		return err
	})
	return m, err
}

// GetMerchant returns the merchant registered at addr.
func (e *Engine) GetMerchant(ctx context.Context, addr types.Address) (*merchant.Merchant, error) {
	var (
		m   *merchant.Merchant
		err error
	)
	e.view(ctx, func() { m, err = e.merchants.Get(addr) })
	return m, err
}

// IsRegistered reports whether addr has registered.
func (e *Engine) IsRegistered(ctx context.Context, addr types.Address) bool {
	var ok bool
	e.view(ctx, func() { ok = e.merchants.IsRegistered(addr) })
	return ok
}

// IsActiveMerchant reports whether addr is registered and active.
func (e *Engine) IsActiveMerchant(ctx context.Context, addr types.Address) bool {
	var ok bool
	e.view(ctx, func() { ok = e.merchants.IsActiveMerchant(addr) })
	return ok
}

// ListMerchants returns every merchant ordered by address.
func (e *Engine) ListMerchants(ctx context.Context) []*merchant.Merchant {
	var list []*merchant.Merchant
	e.view(ctx, func() { list = e.merchants.List() })
	return list
}

// ──────────────────────────────────────────────────
// Token
// ──────────────────────────────────────────────────

// BalanceOf returns the IDRX balance of addr.
func (e *Engine) BalanceOf(ctx context.Context, addr types.Address) types.Amount {
	var bal types.Amount
	e.view(ctx, func() { bal = e.ledger.BalanceOf(addr) })
	return bal
}

// Allowance returns how much spender may move from owner.
func (e *Engine) Allowance(ctx context.Context, owner, spender types.Address) types.Amount {
	var amt types.Amount
	e.view(ctx, func() { amt = e.ledger.Allowance(owner, spender) })
	return amt
}

// TotalSupply returns the amount of IDRX in existence.
func (e *Engine) TotalSupply(ctx context.Context) types.Amount {
	var supply types.Amount
	e.view(ctx, func() { supply = e.ledger.TotalSupply() })
	return supply
}

// Approve sets spender's allowance over owner's balance. Payers approve
// ProcessorAddress before paying; types.MaxAmount never decrements.
func (e *Engine) Approve(ctx context.Context, owner, spender types.Address, amount types.Amount) error {
	return e.exec(ctx, "Approve", func(ctx context.Context) error {
		return e.ledger.Approve(ctx, owner, spender, amount)
	})
}

// Transfer moves amount from from to to.
func (e *Engine) Transfer(ctx context.Context, from, to types.Address, amount types.Amount) error {
	return e.exec(ctx, "Transfer", func(ctx context.Context) error {
		return e.ledger.Transfer(ctx, from, to, amount)
	})
}

// Mint credits new IDRX to to. Meant for bootstrap and test setup.
func (e *Engine) Mint(ctx context.Context, to types.Address, amount types.Amount) error {
	return e.exec(ctx, "Mint", func(ctx context.Context) error {
		return e.ledger.Mint(ctx, to, amount)
	})
}

// Faucet mints the configured faucet amount to to. It fails with
// ErrFaucetDisabled unless the engine was built WithFaucet.
func (e *Engine) Faucet(ctx context.Context, to types.Address) (types.Amount, error) {
	var minted types.Amount
	err := e.exec(ctx, "Faucet", func(ctx context.Context) error {
		var err error
		minted, err = e.ledger.Faucet(ctx, to)
		return err
	})
	return minted, err
}

// ──────────────────────────────────────────────────
// Processor
// ──────────────────────────────────────────────────

// ProcessPayment pays merchant amount from payer's approved balance and
// returns the payment id.
func (e *Engine) ProcessPayment(ctx context.Context, payer, merchantAddr types.Address, amount types.Amount) (id.ID, error) {
	var paymentID id.ID
	err := e.exec(ctx, "ProcessPayment", func(ctx context.Context) error {
		var err error
		paymentID, err = e.processor.ProcessPayment(ctx, payer, merchantAddr, amount)
		return err
	})
	return paymentID, err
}

// CreateInvoice issues an invoice from merchantAddr. expiryMinutes of zero
// never expires.
func (e *Engine) CreateInvoice(ctx context.Context, merchantAddr types.Address, amount types.Amount, description string, expiryMinutes uint64) (id.ID, error) {
	var invoiceID id.ID
	err := e.exec(ctx, "CreateInvoice", func(ctx context.Context) error {
		var err error
		invoiceID, err = e.processor.CreateInvoice(ctx, merchantAddr, amount, description, expiryMinutes)
		return err
	})
	return invoiceID, err
}

// PayInvoice settles an open invoice from payer's approved balance and
// returns the payment id.
func (e *Engine) PayInvoice(ctx context.Context, payer types.Address, invoiceID id.ID) (id.ID, error) {
	var paymentID id.ID
	err := e.exec(ctx, "PayInvoice", func(ctx context.Context) error {
		var err error
		paymentID, err = e.processor.PayInvoice(ctx, payer, invoiceID)
		return err
	})
	return paymentID, err
}

// GetInvoice returns the invoice with invoiceID.
func (e *Engine) GetInvoice(ctx context.Context, invoiceID id.ID) (*invoice.Invoice, error) {
	var (
		inv *invoice.Invoice
		err error
	)
	e.view(ctx, func() { inv, err = e.processor.GetInvoice(invoiceID) })
	return inv, err
}

// ListInvoices returns merchantAddr's invoices, oldest first.
func (e *Engine) ListInvoices(ctx context.Context, merchantAddr types.Address) []*invoice.Invoice {
	var list []*invoice.Invoice
	e.view(ctx, func() { list = e.processor.ListInvoices(merchantAddr) })
	return list
}

// InvoiceStatus derives the current status of an invoice.
func (e *Engine) InvoiceStatus(ctx context.Context, invoiceID id.ID) (invoice.Status, error) {
	inv, err := e.GetInvoice(ctx, invoiceID)
	if err != nil {
		return "", err
	}
	return inv.Status(e.now().UTC().Truncate(time.Second)), nil
}

// Quote splits a gross amount into fee and net.
func (e *Engine) Quote(amount types.Amount) (fee, net types.Amount) {
	return e.processor.Quote(amount)
}

// FeeBasisPoints returns the configured fee rate.
func (e *Engine) FeeBasisPoints() uint64 { return e.processor.FeeBasisPoints() }

// FeeCollector returns the fee recipient.
func (e *Engine) FeeCollector() types.Address { return e.processor.FeeCollector() }

// ProcessorAddress returns the spender identity payers must approve.
func (e *Engine) ProcessorAddress() types.Address { return e.processor.Address() }

// ──────────────────────────────────────────────────
// Event log
// ──────────────────────────────────────────────────

// Events reads the persisted event log.
func (e *Engine) Events(ctx context.Context, q event.Query) ([]event.Record, error) {
	return e.store.ListEvents(ctx, q)
}
