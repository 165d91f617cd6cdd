package extension

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/chainpayid/chainpay"
	"github.com/chainpayid/chainpay/plugin"
	"github.com/chainpayid/chainpay/store"
)

// Option configures the ChainPay Forge extension.
type Option func(*Extension)

// WithStore sets the store for the engine, overriding StoreDriver.
func WithStore(s store.Store) Option {
	return func(e *Extension) {
		e.store = s
	}
}

// WithEngineOption passes a chainpay.Option through to the underlying engine.
func WithEngineOption(opt chainpay.Option) Option {
	return func(e *Extension) {
		e.engineOpts = append(e.engineOpts, opt)
	}
}

// WithPlugin registers an engine plugin.
func WithPlugin(p plugin.Plugin) Option {
	return func(e *Extension) {
		e.engineOpts = append(e.engineOpts, chainpay.WithPlugin(p))
	}
}

// WithConfig sets the Forge extension configuration.
func WithConfig(cfg Config) Option {
	return func(e *Extension) { e.config = cfg }
}

// WithDisableMigrate prevents auto-migration on start.
func WithDisableMigrate() Option {
	return func(e *Extension) { e.config.DisableMigrate = true }
}

// WithRequireConfig requires config to be present in YAML files.
// If true and no config is found, Register returns an error.
func WithRequireConfig(require bool) Option {
	return func(e *Extension) { e.config.RequireConfig = require }
}

// WithFeeBasisPoints sets the platform fee.
func WithFeeBasisPoints(bps uint64) Option {
	return func(e *Extension) { e.config.FeeBasisPoints = bps }
}

// WithFeeCollector sets the hex address receiving fees.
func WithFeeCollector(addr string) Option {
	return func(e *Extension) { e.config.FeeCollector = addr }
}

// WithFaucet enables the faucet minting amount IDRX per call.
func WithFaucet(amount string) Option {
	return func(e *Extension) {
		e.config.FaucetEnabled = true
		e.config.FaucetAmount = amount
	}
}

// WithPluginTimeout bounds each plugin hook call.
func WithPluginTimeout(d time.Duration) Option {
	return func(e *Extension) { e.config.PluginTimeout = d }
}

// WithStoreDriver selects a store backend by name with its DSN.
func WithStoreDriver(driver, dsn string) Option {
	return func(e *Extension) {
		e.config.StoreDriver = driver
		e.config.StoreDSN = dsn
	}
}

// WithKafka publishes committed events to topic on brokers.
func WithKafka(brokers []string, topic string) Option {
	return func(e *Extension) {
		e.config.KafkaBrokers = brokers
		e.config.KafkaTopic = topic
	}
}

// WithMetrics registers Prometheus settlement metrics.
func WithMetrics() Option {
	return func(e *Extension) { e.config.EnableMetrics = true }
}

// WithMetricsRegisterer registers metrics on reg instead of the Prometheus
// default registerer. It implies WithMetrics.
func WithMetricsRegisterer(reg prometheus.Registerer) Option {
	return func(e *Extension) {
		e.config.EnableMetrics = true
		e.registerer = reg
	}
}
