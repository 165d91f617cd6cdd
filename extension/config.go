package extension

import "time"

// Store drivers understood by Config.StoreDriver.
const (
	DriverMemory   = "memory"
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
	DriverMongo    = "mongo"
)

// Config holds the ChainPay extension configuration.
// Fields can be set programmatically via Option functions or loaded from
// YAML configuration files (under "extensions.chainpay" or "chainpay" keys).
type Config struct {
	// DisableMigrate prevents auto-migration on start.
	DisableMigrate bool `json:"disable_migrate" mapstructure:"disable_migrate" yaml:"disable_migrate"`

	// FeeBasisPoints is the platform fee (default: 50, i.e. 0.5%).
	FeeBasisPoints uint64 `json:"fee_basis_points" mapstructure:"fee_basis_points" yaml:"fee_basis_points"`

	// FeeCollector is the hex address receiving fees. Required.
	FeeCollector string `json:"fee_collector" mapstructure:"fee_collector" yaml:"fee_collector"`

	// ProcessorAddress overrides the spender identity payers approve.
	ProcessorAddress string `json:"processor_address" mapstructure:"processor_address" yaml:"processor_address"`

	// FaucetEnabled turns on the test faucet.
	FaucetEnabled bool `json:"faucet_enabled" mapstructure:"faucet_enabled" yaml:"faucet_enabled"`

	// FaucetAmount is the amount minted per faucet call in IDRX, e.g.
	// "10000" (default).
	FaucetAmount string `json:"faucet_amount" mapstructure:"faucet_amount" yaml:"faucet_amount"`

	// PluginTimeout bounds each plugin hook call (default: 5s).
	PluginTimeout time.Duration `json:"plugin_timeout" mapstructure:"plugin_timeout" yaml:"plugin_timeout"`

	// StoreDriver selects the backend when no store is set programmatically:
	// memory (default), sqlite, postgres or mongo.
	StoreDriver string `json:"store_driver" mapstructure:"store_driver" yaml:"store_driver"`

	// StoreDSN is the SQLite path, PostgreSQL DSN or MongoDB URI.
	StoreDSN string `json:"store_dsn" mapstructure:"store_dsn" yaml:"store_dsn"`

	// MongoDatabase is the MongoDB database name (default: "chainpay").
	MongoDatabase string `json:"mongo_database" mapstructure:"mongo_database" yaml:"mongo_database"`

	// KafkaBrokers enables publishing committed events to Kafka.
	KafkaBrokers []string `json:"kafka_brokers" mapstructure:"kafka_brokers" yaml:"kafka_brokers"`

	// KafkaTopic is the event topic (default: "chainpay.events").
	KafkaTopic string `json:"kafka_topic" mapstructure:"kafka_topic" yaml:"kafka_topic"`

	// EnableMetrics registers Prometheus settlement metrics.
	EnableMetrics bool `json:"enable_metrics" mapstructure:"enable_metrics" yaml:"enable_metrics"`

	// RequireConfig requires config to be present in YAML files.
	// If true and no config is found, Register returns an error.
	RequireConfig bool `json:"-" yaml:"-"`
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() Config {
	return Config{
		FeeBasisPoints: 50,
		FaucetAmount:   "10000",
		PluginTimeout:  5 * time.Second,
		StoreDriver:    DriverMemory,
		MongoDatabase:  "chainpay",
		KafkaTopic:     "chainpay.events",
	}
}
