// Package chainpay provides the settlement core of a merchant payment
// network denominated in IDRX, a 6-decimal rupiah-pegged token.
//
// ChainPay is designed as a library, not a service. Import it directly into
// your Go application. It provides:
//
//   - An IDRX token ledger with balances and spending allowances
//   - A merchant registry with per-merchant settlement statistics
//   - Direct payments and single-settlement invoices with a 0.5% platform fee
//   - All-or-nothing operations: a failed payment leaves no trace
//   - Deterministic, collision-free payment and invoice identifiers
//   - A persisted, ordered event log with plugin hooks
//
// # Quick Start
//
//	import (
//	    "github.com/chainpayid/chainpay"
//	    "github.com/chainpayid/chainpay/store/postgres"
//	)
//
//	s, err := postgres.New(databaseURL)
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	engine, err := chainpay.New(s, chainpay.WithFeeCollector(treasury))
//	if err != nil {
//	    log.Fatal(err)
//	}
//	if err := engine.Start(ctx); err != nil {
//	    log.Fatal(err)
//	}
//	defer engine.Stop(ctx)
//
// # Payments
//
// A payer first approves the processor to spend IDRX on its behalf. An
// allowance of MaxAmount is unlimited and never decremented:
//
//	engine.Approve(ctx, payer, engine.ProcessorAddress(), chainpay.MaxAmount)
//
// A registered, active merchant can then be paid directly:
//
//	paymentID, err := engine.ProcessPayment(ctx, payer, shop, chainpay.IDRX(100))
//
// The merchant receives 99.5 IDRX and the fee collector 0.5 IDRX. Fees are
// floor(amount * feeBasisPoints / 10000); amounts below 200 micro-units
// carry no fee.
//
// # Invoices
//
// Invoices fix an amount up front and are settled at most once:
//
//	invoiceID, err := engine.CreateInvoice(ctx, shop, chainpay.IDRX(75), "Order #42", 30)
//	paymentID, err := engine.PayInvoice(ctx, payer, invoiceID)
//
// An expiry of zero minutes never expires. An invoice is still payable at
// the exact second it expires.
//
// # Reentrancy
//
// A transfer hook installed WithTransferHook runs inside the operation that
// moved the funds. Calls it makes back into the Engine with its context join
// that operation and are rolled back with it. An invoice is marked paid
// before any funds move, so a hook paying the same invoice again fails with
// ErrInvoiceAlreadyPaid.
package chainpay
