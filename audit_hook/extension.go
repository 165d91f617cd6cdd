// Package audithook bridges ChainPay settlement events to an audit trail
// backend.
//
// It defines a local Recorder interface so the package does not import any
// audit backend directly. Callers inject a RecorderFunc adapter at wiring
// time.
package audithook

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/chainpayid/chainpay/event"
	"github.com/chainpayid/chainpay/plugin"
	"github.com/chainpayid/chainpay/types"
)

// Compile-time interface checks.
var (
	_ plugin.Plugin               = (*Extension)(nil)
	_ plugin.OnMerchantRegistered = (*Extension)(nil)
	_ plugin.OnMerchantUpdated    = (*Extension)(nil)
	_ plugin.OnInvoiceCreated     = (*Extension)(nil)
	_ plugin.OnInvoicePaid        = (*Extension)(nil)
	_ plugin.OnPaymentProcessed   = (*Extension)(nil)
	_ plugin.OnApproval           = (*Extension)(nil)
	_ plugin.OnOperationFailed    = (*Extension)(nil)
)

// Recorder is the interface that audit backends must implement.
type Recorder interface {
	Record(ctx context.Context, event *AuditEvent) error
}

// AuditEvent is a backend-neutral audit record.
type AuditEvent struct {
	Action     string         `json:"action"`
	Resource   string         `json:"resource"`
	Category   string         `json:"category"`
	ResourceID string         `json:"resource_id,omitempty"`
	Metadata   map[string]any `json:"metadata,omitempty"`
	Outcome    string         `json:"outcome"`
	Severity   string         `json:"severity"`
	Reason     string         `json:"reason,omitempty"`
}

// RecorderFunc is an adapter to use a plain function as a Recorder.
type RecorderFunc func(ctx context.Context, event *AuditEvent) error

// Record implements Recorder.
func (f RecorderFunc) Record(ctx context.Context, event *AuditEvent) error {
	return f(ctx, event)
}

// Extension bridges ChainPay events to an audit trail backend.
type Extension struct {
	recorder Recorder
	enabled  map[string]bool // nil = all enabled
	logger   *slog.Logger
}

// New creates an Extension that emits audit events through the provided Recorder.
func New(r Recorder, opts ...Option) *Extension {
	e := &Extension{
		recorder: r,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Name implements plugin.Plugin.
func (e *Extension) Name() string { return "audit-hook" }

// ──────────────────────────────────────────────────
// Merchant hooks
// ──────────────────────────────────────────────────

// OnMerchantRegistered implements plugin.OnMerchantRegistered.
func (e *Extension) OnMerchantRegistered(ctx context.Context, evt event.MerchantRegistered) error {
	return e.record(ctx, ActionMerchantRegistered, SeverityInfo, OutcomeSuccess,
		ResourceMerchant, evt.Address.Hex(), CategoryMerchant, nil,
		"business_name", evt.BusinessName,
		"timestamp", evt.Timestamp,
	)
}

// OnMerchantUpdated implements plugin.OnMerchantUpdated.
func (e *Extension) OnMerchantUpdated(ctx context.Context, evt event.MerchantUpdated) error {
	return e.record(ctx, ActionMerchantUpdated, SeverityInfo, OutcomeSuccess,
		ResourceMerchant, evt.Address.Hex(), CategoryMerchant, nil,
		"business_name", evt.BusinessName,
		"category", evt.Category,
		"logo_uri", evt.LogoURI,
	)
}

// ──────────────────────────────────────────────────
// Settlement hooks
// ──────────────────────────────────────────────────

// OnInvoiceCreated implements plugin.OnInvoiceCreated.
func (e *Extension) OnInvoiceCreated(ctx context.Context, evt event.InvoiceCreated) error {
	return e.record(ctx, ActionInvoiceCreated, SeverityInfo, OutcomeSuccess,
		ResourceInvoice, evt.InvoiceID.String(), CategorySettlement, nil,
		"merchant", evt.Merchant.Hex(),
		"amount", evt.Amount.String(),
		"description", evt.Description,
		"expires_at", evt.ExpiresAt,
	)
}

// OnInvoicePaid implements plugin.OnInvoicePaid.
func (e *Extension) OnInvoicePaid(ctx context.Context, evt event.InvoicePaid) error {
	return e.record(ctx, ActionInvoicePaid, SeverityInfo, OutcomeSuccess,
		ResourceInvoice, evt.InvoiceID.String(), CategorySettlement, nil,
		"merchant", evt.Merchant.Hex(),
		"payer", evt.Payer.Hex(),
		"payment_id", evt.PaymentID.String(),
	)
}

// OnPaymentProcessed implements plugin.OnPaymentProcessed.
func (e *Extension) OnPaymentProcessed(ctx context.Context, evt event.PaymentProcessed) error {
	return e.record(ctx, ActionPaymentProcessed, SeverityInfo, OutcomeSuccess,
		ResourcePayment, evt.PaymentID.String(), CategorySettlement, nil,
		"payer", evt.Payer.Hex(),
		"merchant", evt.Merchant.Hex(),
		"amount", evt.Amount.String(),
		"fee", evt.Fee.String(),
		"net_amount", evt.NetAmount.String(),
		"timestamp", evt.Timestamp,
	)
}

// ──────────────────────────────────────────────────
// Token hooks
// ──────────────────────────────────────────────────

// OnApproval implements plugin.OnApproval.
func (e *Extension) OnApproval(ctx context.Context, evt event.Approval) error {
	value := evt.Value.String()
	if evt.Value.IsUnlimited() {
		value = "unlimited"
	}
	return e.record(ctx, ActionAllowanceChanged, SeverityInfo, OutcomeSuccess,
		ResourceAllowance, evt.Owner.Hex(), CategoryAccess, nil,
		"spender", evt.Spender.Hex(),
		"value", value,
	)
}

// ──────────────────────────────────────────────────
// Failures
// ──────────────────────────────────────────────────

// OnOperationFailed implements plugin.OnOperationFailed. Rejected calls are
// recorded as warnings, persistence failures as errors.
func (e *Extension) OnOperationFailed(ctx context.Context, op string, err error) error {
	severity := SeverityWarning
	code := types.CodeOf(err)
	if code == types.CodeInternal {
		severity = SeverityError
	}
	return e.record(ctx, ActionOperationFailed, severity, OutcomeFailure,
		ResourceOperation, op, CategorySystem, err,
		"code", string(code),
		"reason", types.ReasonOf(err),
	)
}

// ──────────────────────────────────────────────────
// Internal helpers
// ──────────────────────────────────────────────────

// record builds and sends an audit event if the action is enabled.
func (e *Extension) record(
	ctx context.Context,
	action, severity, outcome string,
	resource, resourceID, category string,
	err error,
	kvPairs ...any,
) error {
	if e.enabled != nil && !e.enabled[action] {
		return nil
	}

	meta := make(map[string]any, len(kvPairs)/2+1)
	for i := 0; i+1 < len(kvPairs); i += 2 {
		key, ok := kvPairs[i].(string)
		if !ok {
			key = fmt.Sprintf("%v", kvPairs[i])
		}
		meta[key] = kvPairs[i+1]
	}

	var reason string
	if err != nil {
		reason = err.Error()
		meta["error"] = err.Error()
	}

	evt := &AuditEvent{
		Action:     action,
		Resource:   resource,
		Category:   category,
		ResourceID: resourceID,
		Metadata:   meta,
		Outcome:    outcome,
		Severity:   severity,
		Reason:     reason,
	}

	if recErr := e.recorder.Record(ctx, evt); recErr != nil {
		e.logger.Warn("audit_hook: failed to record audit event",
			"action", action,
			"resource_id", resourceID,
			"error", recErr,
		)
	}
	return nil
}
