// Package extension provides the Forge extension adapter for ChainPay.
//
// It implements the forge.Extension interface to integrate the settlement
// engine into a Forge application with DI registration and lifecycle
// management.
//
// Configuration can be provided programmatically via Option functions
// or via YAML configuration files under "extensions.chainpay" or "chainpay" keys.
package extension

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/xraph/forge"
	"github.com/xraph/vessel"

	"github.com/chainpayid/chainpay"
	"github.com/chainpayid/chainpay/kafkasink"
	"github.com/chainpayid/chainpay/observability"
	"github.com/chainpayid/chainpay/store"
	"github.com/chainpayid/chainpay/store/memory"
	"github.com/chainpayid/chainpay/store/mongo"
	"github.com/chainpayid/chainpay/store/postgres"
	"github.com/chainpayid/chainpay/store/sqlite"
)

// ExtensionName is the name registered with Forge.
const ExtensionName = "chainpay"

// ExtensionDescription is the human-readable description.
const ExtensionDescription = "IDRX merchant payment settlement engine"

// ExtensionVersion is the semantic version.
const ExtensionVersion = "0.1.0"

// Ensure Extension implements forge.Extension at compile time.
var _ forge.Extension = (*Extension)(nil)

// Extension adapts the ChainPay engine as a Forge extension.
type Extension struct {
	*forge.BaseExtension

	config     Config
	engine     *chainpay.Engine
	store      store.Store
	engineOpts []chainpay.Option
	registerer prometheus.Registerer
}

// New creates a new ChainPay Forge extension with the given options.
func New(opts ...Option) *Extension {
	e := &Extension{
		BaseExtension: forge.NewBaseExtension(ExtensionName, ExtensionVersion, ExtensionDescription),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Engine returns the underlying Engine.
// This is nil until Register is called.
func (e *Extension) Engine() *chainpay.Engine { return e.engine }

// Register implements [forge.Extension]. It loads configuration,
// initializes the engine, and registers it in the DI container.
func (e *Extension) Register(fapp forge.App) error {
	if err := e.BaseExtension.Register(fapp); err != nil {
		return err
	}

	if err := e.loadConfiguration(); err != nil {
		return err
	}

	if e.store == nil {
		s, err := openStore(e.config)
		if err != nil {
			return err
		}
		e.store = s
	}

	opts, err := e.buildEngineOpts()
	if err != nil {
		return err
	}

	eng, err := chainpay.New(e.store, opts...)
	if err != nil {
		return fmt.Errorf("chainpay: create engine: %w", err)
	}
	e.engine = eng

	return vessel.Provide(fapp.Container(), func() (*chainpay.Engine, error) {
		return e.engine, nil
	})
}

// Start implements [forge.Extension].
func (e *Extension) Start(ctx context.Context) error {
	if e.engine == nil {
		return errors.New("chainpay: extension not initialized")
	}

	if err := e.engine.Start(ctx); err != nil {
		return err
	}

	e.MarkStarted()
	return nil
}

// Stop implements [forge.Extension].
func (e *Extension) Stop(ctx context.Context) error {
	var err error
	if e.engine != nil {
		err = e.engine.Stop(ctx)
	}
	e.MarkStopped()
	return err
}

// Health implements [forge.Extension].
func (e *Extension) Health(ctx context.Context) error {
	if e.store == nil {
		return errors.New("chainpay: store not initialized")
	}
	return e.store.Ping(ctx)
}

// buildEngineOpts constructs chainpay.Option values from the resolved config.
func (e *Extension) buildEngineOpts() ([]chainpay.Option, error) {
	opts := make([]chainpay.Option, 0, len(e.engineOpts)+8)

	if e.config.FeeCollector == "" {
		return nil, errors.New("chainpay: fee_collector is required")
	}
	collector, err := chainpay.ParseAddress(e.config.FeeCollector)
	if err != nil {
		return nil, fmt.Errorf("chainpay: fee_collector: %w", err)
	}
	opts = append(opts,
		chainpay.WithFeeCollector(collector),
		chainpay.WithFeeBasisPoints(e.config.FeeBasisPoints),
	)

	if e.config.ProcessorAddress != "" {
		addr, err := chainpay.ParseAddress(e.config.ProcessorAddress)
		if err != nil {
			return nil, fmt.Errorf("chainpay: processor_address: %w", err)
		}
		opts = append(opts, chainpay.WithProcessorAddress(addr))
	}

	if e.config.FaucetEnabled {
		amount, err := chainpay.ParseAmount(e.config.FaucetAmount)
		if err != nil {
			return nil, fmt.Errorf("chainpay: faucet_amount: %w", err)
		}
		opts = append(opts, chainpay.WithFaucet(amount))
	}

	if e.config.PluginTimeout > 0 {
		opts = append(opts, chainpay.WithPluginTimeout(e.config.PluginTimeout))
	}
	if e.config.DisableMigrate {
		opts = append(opts, chainpay.WithoutMigrate())
	}

	if len(e.config.KafkaBrokers) > 0 {
		sink := kafkasink.New(kafkasink.NewWriter(e.config.KafkaBrokers, e.config.KafkaTopic))
		opts = append(opts, chainpay.WithPlugin(sink))
	}

	if e.config.EnableMetrics {
		factory := observability.NewPrometheusFactory(e.registerer)
		opts = append(opts, chainpay.WithPlugin(observability.NewMetricsExtension(factory)))
	}

	// Append any pass-through engine options.
	opts = append(opts, e.engineOpts...)

	return opts, nil
}

// openStore constructs the store selected by cfg.StoreDriver.
func openStore(cfg Config) (store.Store, error) {
	switch cfg.StoreDriver {
	case "", DriverMemory:
		return memory.New(), nil
	case DriverSQLite:
		return sqlite.New(cfg.StoreDSN)
	case DriverPostgres:
		return postgres.New(cfg.StoreDSN)
	case DriverMongo:
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return mongo.Connect(ctx, cfg.StoreDSN, cfg.MongoDatabase)
	default:
		return nil, fmt.Errorf("chainpay: unknown store driver %q", cfg.StoreDriver)
	}
}

// --- Config Loading ---

// loadConfiguration loads config from YAML files or programmatic sources.
func (e *Extension) loadConfiguration() error {
	programmaticConfig := e.config

	fileConfig, configLoaded := e.tryLoadFromConfigFile()

	if !configLoaded {
		if programmaticConfig.RequireConfig {
			return errors.New("chainpay: configuration is required but not found in config files; " +
				"ensure 'extensions.chainpay' or 'chainpay' key exists in your config")
		}

		e.config = mergeWithDefaults(programmaticConfig)
	} else {
		e.config = mergeConfigurations(fileConfig, programmaticConfig)
	}

	e.Logger().Debug("chainpay: configuration loaded",
		forge.F("disable_migrate", e.config.DisableMigrate),
		forge.F("fee_basis_points", e.config.FeeBasisPoints),
		forge.F("fee_collector", e.config.FeeCollector),
		forge.F("faucet_enabled", e.config.FaucetEnabled),
		forge.F("store_driver", e.config.StoreDriver),
		forge.F("kafka_brokers", len(e.config.KafkaBrokers)),
		forge.F("enable_metrics", e.config.EnableMetrics),
	)

	return nil
}

// tryLoadFromConfigFile attempts to load config from YAML files.
func (e *Extension) tryLoadFromConfigFile() (Config, bool) {
	cm := e.App().Config()
	var cfg Config

	for _, key := range []string{"extensions.chainpay", "chainpay"} {
		if !cm.IsSet(key) {
			continue
		}
		if err := cm.Bind(key, &cfg); err == nil {
			e.Logger().Debug("chainpay: loaded config from file",
				forge.F("key", key),
			)
			return cfg, true
		}
		e.Logger().Warn("chainpay: failed to bind config",
			forge.F("key", key),
			forge.F("error", "bind failed"),
		)
	}

	return Config{}, false
}

// mergeWithDefaults fills zero-valued fields with defaults.
func mergeWithDefaults(cfg Config) Config {
	defaults := DefaultConfig()
	if cfg.FeeBasisPoints == 0 {
		cfg.FeeBasisPoints = defaults.FeeBasisPoints
	}
	if cfg.FaucetAmount == "" {
		cfg.FaucetAmount = defaults.FaucetAmount
	}
	if cfg.PluginTimeout == 0 {
		cfg.PluginTimeout = defaults.PluginTimeout
	}
	if cfg.StoreDriver == "" {
		cfg.StoreDriver = defaults.StoreDriver
	}
	if cfg.MongoDatabase == "" {
		cfg.MongoDatabase = defaults.MongoDatabase
	}
	if cfg.KafkaTopic == "" {
		cfg.KafkaTopic = defaults.KafkaTopic
	}
	return cfg
}

// mergeConfigurations merges YAML config with programmatic options.
// YAML config takes precedence; programmatic values fill gaps and
// programmatic bool flags override when true.
func mergeConfigurations(yamlConfig, programmaticConfig Config) Config {
	if programmaticConfig.DisableMigrate {
		yamlConfig.DisableMigrate = true
	}
	if programmaticConfig.FaucetEnabled {
		yamlConfig.FaucetEnabled = true
	}
	if programmaticConfig.EnableMetrics {
		yamlConfig.EnableMetrics = true
	}

	if yamlConfig.FeeBasisPoints == 0 {
		yamlConfig.FeeBasisPoints = programmaticConfig.FeeBasisPoints
	}
	if yamlConfig.FeeCollector == "" {
		yamlConfig.FeeCollector = programmaticConfig.FeeCollector
	}
	if yamlConfig.ProcessorAddress == "" {
		yamlConfig.ProcessorAddress = programmaticConfig.ProcessorAddress
	}
	if yamlConfig.FaucetAmount == "" {
		yamlConfig.FaucetAmount = programmaticConfig.FaucetAmount
	}
	if yamlConfig.PluginTimeout == 0 {
		yamlConfig.PluginTimeout = programmaticConfig.PluginTimeout
	}
	if yamlConfig.StoreDriver == "" {
		yamlConfig.StoreDriver = programmaticConfig.StoreDriver
		yamlConfig.StoreDSN = programmaticConfig.StoreDSN
	}
	if yamlConfig.MongoDatabase == "" {
		yamlConfig.MongoDatabase = programmaticConfig.MongoDatabase
	}
	if len(yamlConfig.KafkaBrokers) == 0 {
		yamlConfig.KafkaBrokers = programmaticConfig.KafkaBrokers
	}
	if yamlConfig.KafkaTopic == "" {
		yamlConfig.KafkaTopic = programmaticConfig.KafkaTopic
	}

	return mergeWithDefaults(yamlConfig)
}
