package chainpay

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/chainpayid/chainpay/ledger"
	"github.com/chainpayid/chainpay/merchant"
	"github.com/chainpayid/chainpay/plugin"
	"github.com/chainpayid/chainpay/processor"
	"github.com/chainpayid/chainpay/store"
	"github.com/chainpayid/chainpay/types"
)

// Engine is the settlement core. It owns the Ledger, the merchant Registry
// and the Processor and runs every call as one serialized, all-or-nothing
// operation.
type Engine struct {
	mu      sync.Mutex
	store   store.Store
	plugins *plugin.Registry
	logger  *slog.Logger
	now     func() time.Time

	ledger    *ledger.Ledger
	merchants *merchant.Registry
	processor *processor.Processor

	eventSeq    uint64
	started     bool
	skipMigrate bool

	// Configuration
	feeBasisPoints uint64
	feeCollector   types.Address
	processorAddr  types.Address
	faucetAmount   types.Amount
	faucetEnabled  bool
	transferHook   ledger.TransferHook
}

// New creates an Engine persisting to s. Call Start before use.
func New(s store.Store, opts ...Option) (*Engine, error) {
	if s == nil {
		return nil, fmt.Errorf("chainpay: store is required")
	}

	e := &Engine{
		store:          s,
		plugins:        plugin.NewRegistry(),
		logger:         slog.Default(),
		now:            time.Now,
		feeBasisPoints: processor.DefaultFeeBasisPoints,
	}

	for _, opt := range opts {
		opt(e)
	}

	var ledgerOpts []ledger.Option
	if e.transferHook != nil {
		ledgerOpts = append(ledgerOpts, ledger.WithTransferHook(e.transferHook))
	}
	if e.faucetEnabled {
		ledgerOpts = append(ledgerOpts, ledger.WithFaucet(e.faucetAmount))
	}

	e.ledger = ledger.New(ledgerOpts...)
	e.merchants = merchant.NewRegistry(e.now)

	p, err := processor.New(e.ledger, e.merchants, processor.Config{
		FeeBasisPoints: e.feeBasisPoints,
		FeeCollector:   e.feeCollector,
		Address:        e.processorAddr,
	}, e.now)
	if err != nil {
		return nil, err
	}
	e.processor = p

	return e, nil
}

// Start migrates the store, loads persisted state and initializes plugins.
// Migration is skipped when the engine was built WithoutMigrate.
func (e *Engine) Start(ctx context.Context) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.started {
		return nil
	}

	if !e.skipMigrate {
		if err := e.store.Migrate(ctx); err != nil {
			return fmt.Errorf("chainpay: migrate: %w", err)
		}
	}

	snap, err := e.store.Load(ctx)
	if err != nil {
		return fmt.Errorf("chainpay: load: %w", err)
	}
	if err := e.ledger.Restore(snap.Accounts, snap.Allowances); err != nil {
		return fmt.Errorf("chainpay: restore ledger: %w", err)
	}
	e.merchants.Restore(snap.Merchants)
	e.processor.Restore(snap.Invoices, snap.Counters.Nonce)
	e.eventSeq = snap.Counters.EventSeq
	e.started = true

	e.plugins.EmitInit(ctx, e)

	e.logger.Info("chainpay engine started",
		"merchants", len(snap.Merchants),
		"invoices", len(snap.Invoices),
		"accounts", len(snap.Accounts),
		"fee_bps", e.processor.FeeBasisPoints(),
		"fee_collector", e.processor.FeeCollector().Hex(),
		"processor", e.processor.Address().Hex(),
	)

	return nil
}

// Stop notifies plugins and closes the store.
func (e *Engine) Stop(ctx context.Context) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.plugins.EmitShutdown(ctx)
	e.started = false

	return e.store.Close()
}

// Plugins returns the plugin registry.
func (e *Engine) Plugins() *plugin.Registry { return e.plugins }

// Store returns the backing store.
func (e *Engine) Store() store.Store { return e.store }

// Logger returns the engine logger.
func (e *Engine) Logger() *slog.Logger { return e.logger }
