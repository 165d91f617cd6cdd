package chainpay

import (
	"log/slog"
	"time"

	"github.com/chainpayid/chainpay/ledger"
	"github.com/chainpayid/chainpay/plugin"
	"github.com/chainpayid/chainpay/types"
)

// Option configures an Engine instance.
type Option func(*Engine)

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Engine) {
		e.logger = logger
		e.plugins.WithLogger(logger)
	}
}

// WithPlugin registers a plugin.
func WithPlugin(p plugin.Plugin) Option {
	return func(e *Engine) {
		_ = e.plugins.Register(p) //nolint:errcheck // best-effort plugin registration during init
	}
}

// WithFeeBasisPoints sets the platform fee. The default is 50 (0.5%).
func WithFeeBasisPoints(bps uint64) Option {
	return func(e *Engine) { e.feeBasisPoints = bps }
}

// WithFeeCollector sets the fee recipient. Required.
func WithFeeCollector(addr types.Address) Option {
	return func(e *Engine) { e.feeCollector = addr }
}

// WithProcessorAddress sets the spender identity payers approve.
func WithProcessorAddress(addr types.Address) Option {
	return func(e *Engine) { e.processorAddr = addr }
}

// WithClock replaces the wall clock, mainly for tests.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) { e.now = now }
}

// WithTransferHook installs logic that runs after every token movement.
// The hook may call back into the Engine with the context it receives.
func WithTransferHook(h ledger.TransferHook) Option {
	return func(e *Engine) { e.transferHook = h }
}

// WithFaucet enables Faucet, minting amount per call. Zero selects the
// default of 10,000 IDRX.
func WithFaucet(amount types.Amount) Option {
	return func(e *Engine) {
		e.faucetEnabled = true
		e.faucetAmount = amount
	}
}

// WithPluginTimeout bounds each plugin hook call.
func WithPluginTimeout(d time.Duration) Option {
	return func(e *Engine) { e.plugins.WithTimeout(d) }
}

// WithoutMigrate makes Start load state without migrating the store first.
func WithoutMigrate() Option {
	return func(e *Engine) { e.skipMigrate = true }
}
