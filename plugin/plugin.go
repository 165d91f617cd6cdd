// Package plugin provides an extensible plugin system for ChainPay.
// Plugins hook into committed events and engine lifecycle. Hooks run after an
// operation has been persisted and must not call back into the Engine.
package plugin

import (
	"context"

	"github.com/chainpayid/chainpay/event"
)

// Plugin is the base interface that all plugins must implement.
type Plugin interface {
	Name() string
}

// ──────────────────────────────────────────────────
// Lifecycle hooks
// ──────────────────────────────────────────────────

// OnInit is called when the engine starts.
type OnInit interface {
	Plugin
	OnInit(ctx context.Context, engine any) error
}

// OnShutdown is called when the engine stops.
type OnShutdown interface {
	Plugin
	OnShutdown(ctx context.Context) error
}

// ──────────────────────────────────────────────────
// Merchant hooks
// ──────────────────────────────────────────────────

// OnMerchantRegistered is called after a merchant registers.
type OnMerchantRegistered interface {
	Plugin
	OnMerchantRegistered(ctx context.Context, evt event.MerchantRegistered) error
}

// OnMerchantUpdated is called after a merchant updates its profile.
type OnMerchantUpdated interface {
	Plugin
	OnMerchantUpdated(ctx context.Context, evt event.MerchantUpdated) error
}

// ──────────────────────────────────────────────────
// Settlement hooks
// ──────────────────────────────────────────────────

// OnInvoiceCreated is called after an invoice is issued.
type OnInvoiceCreated interface {
	Plugin
	OnInvoiceCreated(ctx context.Context, evt event.InvoiceCreated) error
}

// OnPaymentProcessed is called after a payment settles.
type OnPaymentProcessed interface {
	Plugin
	OnPaymentProcessed(ctx context.Context, evt event.PaymentProcessed) error
}

// OnInvoicePaid is called after an invoice is settled.
type OnInvoicePaid interface {
	Plugin
	OnInvoicePaid(ctx context.Context, evt event.InvoicePaid) error
}

// ──────────────────────────────────────────────────
// Token hooks
// ──────────────────────────────────────────────────

// OnTransfer is called for every committed token movement.
type OnTransfer interface {
	Plugin
	OnTransfer(ctx context.Context, evt event.Transfer) error
}

// OnApproval is called for every committed allowance change.
type OnApproval interface {
	Plugin
	OnApproval(ctx context.Context, evt event.Approval) error
}

// ──────────────────────────────────────────────────
// Generic hooks
// ──────────────────────────────────────────────────

// OnEventCommitted receives every committed event in its persisted form,
// after the typed hooks.
type OnEventCommitted interface {
	Plugin
	OnEventCommitted(ctx context.Context, rec event.Record) error
}

// OnOperationFailed is called when an engine operation is rolled back.
type OnOperationFailed interface {
	Plugin
	OnOperationFailed(ctx context.Context, op string, err error) error
}
