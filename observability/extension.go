// Package observability provides a metrics extension for ChainPay that records
// settlement event counts via a MetricFactory.
package observability

import (
	"context"

	"github.com/chainpayid/chainpay/event"
	"github.com/chainpayid/chainpay/plugin"
	"github.com/chainpayid/chainpay/types"
)

// Ensure MetricsExtension implements required interfaces.
var (
	_ plugin.Plugin               = (*MetricsExtension)(nil)
	_ plugin.OnInit               = (*MetricsExtension)(nil)
	_ plugin.OnMerchantRegistered = (*MetricsExtension)(nil)
	_ plugin.OnMerchantUpdated    = (*MetricsExtension)(nil)
	_ plugin.OnInvoiceCreated     = (*MetricsExtension)(nil)
	_ plugin.OnInvoicePaid        = (*MetricsExtension)(nil)
	_ plugin.OnPaymentProcessed   = (*MetricsExtension)(nil)
	_ plugin.OnTransfer           = (*MetricsExtension)(nil)
	_ plugin.OnApproval           = (*MetricsExtension)(nil)
	_ plugin.OnEventCommitted     = (*MetricsExtension)(nil)
	_ plugin.OnOperationFailed    = (*MetricsExtension)(nil)
)

// Counter interface for metric counters.
type Counter interface {
	Inc()
	Add(float64)
}

// Histogram interface for metric histograms.
type Histogram interface {
	Observe(float64)
}

// MetricFactory creates metrics.
type MetricFactory interface {
	Counter(name string) Counter
	Histogram(name string) Histogram
}

// MetricsExtension records system-wide settlement metrics.
// Register it as a ChainPay plugin to automatically track them.
type MetricsExtension struct {
	factory MetricFactory

	// Merchant metrics
	MerchantRegistered Counter
	MerchantUpdated    Counter

	// Invoice metrics
	InvoiceCreated Counter
	InvoicePaid    Counter
	InvoiceAmount  Histogram

	// Payment metrics
	PaymentProcessed Counter
	PaymentVolume    Counter
	PaymentFees      Counter
	PaymentAmount    Histogram

	// Token metrics
	Transfers Counter
	Approvals Counter

	// Engine metrics
	EventsCommitted  Counter
	OperationsFailed Counter
	StoreErrors      Counter
}

// NewMetricsExtension creates a MetricsExtension with the provided MetricFactory.
// Amount metrics are recorded in whole IDRX.
func NewMetricsExtension(factory MetricFactory) *MetricsExtension {
	return &MetricsExtension{
		factory: factory,

		// Merchant metrics
		MerchantRegistered: factory.Counter("chainpay.merchant.registered"),
		MerchantUpdated:    factory.Counter("chainpay.merchant.updated"),

		// Invoice metrics
		InvoiceCreated: factory.Counter("chainpay.invoice.created"),
		InvoicePaid:    factory.Counter("chainpay.invoice.paid"),
		InvoiceAmount:  factory.Histogram("chainpay.invoice.amount_idrx"),

		// Payment metrics
		PaymentProcessed: factory.Counter("chainpay.payment.processed"),
		PaymentVolume:    factory.Counter("chainpay.payment.volume_idrx"),
		PaymentFees:      factory.Counter("chainpay.payment.fees_idrx"),
		PaymentAmount:    factory.Histogram("chainpay.payment.amount_idrx"),

		// Token metrics
		Transfers: factory.Counter("chainpay.token.transfers"),
		Approvals: factory.Counter("chainpay.token.approvals"),

		// Engine metrics
		EventsCommitted:  factory.Counter("chainpay.events.committed"),
		OperationsFailed: factory.Counter("chainpay.operations.failed"),
		StoreErrors:      factory.Counter("chainpay.store.errors"),
	}
}

// Name implements plugin.Plugin.
func (m *MetricsExtension) Name() string { return "observability-metrics" }

// OnInit implements plugin.OnInit.
func (m *MetricsExtension) OnInit(_ context.Context, _ any) error {
	return nil
}

// ──────────────────────────────────────────────────
// Merchant hooks
// ──────────────────────────────────────────────────

// OnMerchantRegistered implements plugin.OnMerchantRegistered.
func (m *MetricsExtension) OnMerchantRegistered(_ context.Context, _ event.MerchantRegistered) error {
	m.MerchantRegistered.Inc()
	return nil
}

// OnMerchantUpdated implements plugin.OnMerchantUpdated.
func (m *MetricsExtension) OnMerchantUpdated(_ context.Context, _ event.MerchantUpdated) error {
	m.MerchantUpdated.Inc()
	return nil
}

// ──────────────────────────────────────────────────
// Settlement hooks
// ──────────────────────────────────────────────────

// OnInvoiceCreated implements plugin.OnInvoiceCreated.
func (m *MetricsExtension) OnInvoiceCreated(_ context.Context, evt event.InvoiceCreated) error {
	m.InvoiceCreated.Inc()
	m.InvoiceAmount.Observe(idrx(evt.Amount))
	return nil
}

// OnInvoicePaid implements plugin.OnInvoicePaid.
func (m *MetricsExtension) OnInvoicePaid(_ context.Context, _ event.InvoicePaid) error {
	m.InvoicePaid.Inc()
	return nil
}

// OnPaymentProcessed implements plugin.OnPaymentProcessed.
func (m *MetricsExtension) OnPaymentProcessed(_ context.Context, evt event.PaymentProcessed) error {
	m.PaymentProcessed.Inc()
	m.PaymentVolume.Add(idrx(evt.Amount))
	m.PaymentFees.Add(idrx(evt.Fee))
	m.PaymentAmount.Observe(idrx(evt.Amount))
	return nil
}

// ──────────────────────────────────────────────────
// Token hooks
// ──────────────────────────────────────────────────

// OnTransfer implements plugin.OnTransfer.
func (m *MetricsExtension) OnTransfer(_ context.Context, _ event.Transfer) error {
	m.Transfers.Inc()
	return nil
}

// OnApproval implements plugin.OnApproval.
func (m *MetricsExtension) OnApproval(_ context.Context, _ event.Approval) error {
	m.Approvals.Inc()
	return nil
}

// ──────────────────────────────────────────────────
// Engine hooks
// ──────────────────────────────────────────────────

// OnEventCommitted implements plugin.OnEventCommitted.
func (m *MetricsExtension) OnEventCommitted(_ context.Context, _ event.Record) error {
	m.EventsCommitted.Inc()
	return nil
}

// OnOperationFailed implements plugin.OnOperationFailed.
func (m *MetricsExtension) OnOperationFailed(_ context.Context, _ string, err error) error {
	m.OperationsFailed.Inc()
	if types.CodeOf(err) == types.CodeInternal {
		m.StoreErrors.Inc()
	}
	return nil
}

// idrx converts micro-units to whole IDRX for reporting.
func idrx(a types.Amount) float64 {
	return float64(a) / 1e6
}
