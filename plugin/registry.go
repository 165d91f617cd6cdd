package plugin

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/chainpayid/chainpay/event"
)

// DefaultTimeout bounds a single plugin hook call.
const DefaultTimeout = 5 * time.Second

// Registry manages all registered plugins and provides efficient dispatch.
// It uses type-cached discovery so dispatch never type-asserts.
type Registry struct {
	mu      sync.RWMutex
	plugins []Plugin
	logger  *slog.Logger
	timeout time.Duration

	// Type-cached plugin lists for efficient dispatch
	onInit               []OnInit
	onShutdown           []OnShutdown
	onMerchantRegistered []OnMerchantRegistered
	onMerchantUpdated    []OnMerchantUpdated
	onInvoiceCreated     []OnInvoiceCreated
	onPaymentProcessed   []OnPaymentProcessed
	onInvoicePaid        []OnInvoicePaid
	onTransfer           []OnTransfer
	onApproval           []OnApproval
	onEventCommitted     []OnEventCommitted
	onOperationFailed    []OnOperationFailed
}

// NewRegistry creates a new plugin registry.
func NewRegistry() *Registry {
	return &Registry{
		logger:  slog.Default(),
		timeout: DefaultTimeout,
	}
}

// WithLogger sets the logger for the registry.
func (r *Registry) WithLogger(logger *slog.Logger) *Registry {
	r.logger = logger
	return r
}

// WithTimeout sets the per-hook timeout.
func (r *Registry) WithTimeout(d time.Duration) *Registry {
	r.timeout = d
	return r
}

// Register adds a plugin to the registry and caches its interfaces.
func (r *Registry) Register(p Plugin) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, existing := range r.plugins {
		if existing.Name() == p.Name() {
			return fmt.Errorf("plugin: duplicate registration: %s", p.Name())
		}
	}

	r.plugins = append(r.plugins, p)

	if v, ok := p.(OnInit); ok {
		r.onInit = append(r.onInit, v)
	}
	if v, ok := p.(OnShutdown); ok {
		r.onShutdown = append(r.onShutdown, v)
	}
	if v, ok := p.(OnMerchantRegistered); ok {
		r.onMerchantRegistered = append(r.onMerchantRegistered, v)
	}
	if v, ok := p.(OnMerchantUpdated); ok {
		r.onMerchantUpdated = append(r.onMerchantUpdated, v)
	}
	if v, ok := p.(OnInvoiceCreated); ok {
		r.onInvoiceCreated = append(r.onInvoiceCreated, v)
	}
	if v, ok := p.(OnPaymentProcessed); ok {
		r.onPaymentProcessed = append(r.onPaymentProcessed, v)
	}
	if v, ok := p.(OnInvoicePaid); ok {
		r.onInvoicePaid = append(r.onInvoicePaid, v)
	}
	if v, ok := p.(OnTransfer); ok {
		r.onTransfer = append(r.onTransfer, v)
	}
	if v, ok := p.(OnApproval); ok {
		r.onApproval = append(r.onApproval, v)
	}
	if v, ok := p.(OnEventCommitted); ok {
		r.onEventCommitted = append(r.onEventCommitted, v)
	}
	if v, ok := p.(OnOperationFailed); ok {
		r.onOperationFailed = append(r.onOperationFailed, v)
	}

	r.logger.Debug("plugin registered", "plugin", p.Name())

	return nil
}

// Get returns a plugin by name.
func (r *Registry) Get(name string) Plugin {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, p := range r.plugins {
		if p.Name() == name {
			return p
		}
	}
	return nil
}

// List returns all registered plugins.
func (r *Registry) List() []Plugin {
	r.mu.RLock()
	defer r.mu.RUnlock()

	result := make([]Plugin, len(r.plugins))
	copy(result, r.plugins)
	return result
}

// Count returns the number of registered plugins.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.plugins)
}

// ──────────────────────────────────────────────────
// Event emission methods
// ──────────────────────────────────────────────────

// EmitInit calls OnInit for all plugins that implement it.
func (r *Registry) EmitInit(ctx context.Context, engine any) {
	r.mu.RLock()
	plugins := r.onInit
	r.mu.RUnlock()

	for _, p := range plugins {
		r.dispatch(ctx, "OnInit", p, func() error { return p.OnInit(ctx, engine) })
	}
}

// EmitShutdown calls OnShutdown for all plugins that implement it.
func (r *Registry) EmitShutdown(ctx context.Context) {
	r.mu.RLock()
	plugins := r.onShutdown
	r.mu.RUnlock()

	for _, p := range plugins {
		r.dispatch(ctx, "OnShutdown", p, func() error { return p.OnShutdown(ctx) })
	}
}

// EmitOperationFailed reports a rolled back operation.
func (r *Registry) EmitOperationFailed(ctx context.Context, op string, opErr error) {
	r.mu.RLock()
	plugins := r.onOperationFailed
	r.mu.RUnlock()

	for _, p := range plugins {
		r.dispatch(ctx, "OnOperationFailed", p, func() error { return p.OnOperationFailed(ctx, op, opErr) })
	}
}

// EmitCommitted dispatches a committed event to its typed hooks, then to
// every OnEventCommitted plugin.
func (r *Registry) EmitCommitted(ctx context.Context, evt event.Event, rec event.Record) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	switch e := evt.(type) {
	case event.MerchantRegistered:
		for _, p := range r.onMerchantRegistered {
			r.dispatch(ctx, "OnMerchantRegistered", p, func() error { return p.OnMerchantRegistered(ctx, e) })
		}
	case event.MerchantUpdated:
		for _, p := range r.onMerchantUpdated {
			r.dispatch(ctx, "OnMerchantUpdated", p, func() error { return p.OnMerchantUpdated(ctx, e) })
		}
	case event.InvoiceCreated:
		for _, p := range r.onInvoiceCreated {
			r.dispatch(ctx, "OnInvoiceCreated", p, func() error { return p.OnInvoiceCreated(ctx, e) })
		}
	case event.PaymentProcessed:
		for _, p := range r.onPaymentProcessed {
			r.dispatch(ctx, "OnPaymentProcessed", p, func() error { return p.OnPaymentProcessed(ctx, e) })
		}
	case event.InvoicePaid:
		for _, p := range r.onInvoicePaid {
			r.dispatch(ctx, "OnInvoicePaid", p, func() error { return p.OnInvoicePaid(ctx, e) })
		}
	case event.Transfer:
		for _, p := range r.onTransfer {
			r.dispatch(ctx, "OnTransfer", p, func() error { return p.OnTransfer(ctx, e) })
		}
	case event.Approval:
		for _, p := range r.onApproval {
			r.dispatch(ctx, "OnApproval", p, func() error { return p.OnApproval(ctx, e) })
		}
	}

	for _, p := range r.onEventCommitted {
		r.dispatch(ctx, "OnEventCommitted", p, func() error { return p.OnEventCommitted(ctx, rec) })
	}
}

func (r *Registry) dispatch(ctx context.Context, hook string, p Plugin, fn func() error) {
	if err := r.callWithTimeout(ctx, p.Name(), fn); err != nil {
		r.logger.Warn("plugin "+hook+" failed",
			"plugin", p.Name(),
			"error", err,
		)
	}
}

// callWithTimeout calls a plugin function with a timeout.
// Plugins should never block the settlement pipeline.
func (r *Registry) callWithTimeout(ctx context.Context, pluginName string, fn func() error) error {
	done := make(chan error, 1)

	go func() {
		done <- fn()
	}()

	timer := time.NewTimer(r.timeout)
	defer timer.Stop()

	select {
	case err := <-done:
		return err
	case <-timer.C:
		return fmt.Errorf("plugin timeout: %s", pluginName)
	case <-ctx.Done():
		return ctx.Err()
	}
}
