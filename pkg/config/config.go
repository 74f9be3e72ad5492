package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v2"
)

// Config represents the application configuration for the arbitrage core.
type Config struct {
	Server     ServerConfig     `yaml:"server"`
	Redis      RedisConfig      `yaml:"redis"`
	Logging    LoggingConfig    `yaml:"logging"`
	Monitoring MonitoringConfig `yaml:"monitoring"`
	Chains     []ChainConfig    `yaml:"chains"`
	Detection  DetectionConfig  `yaml:"detection"`
	Execution  ExecutionConfig  `yaml:"execution"`
	Risk       RiskConfig       `yaml:"risk"`
}

// ServerConfig represents the facade's RPC listener configuration.
type ServerConfig struct {
	Host           string        `yaml:"host"`
	GRPCPort       int           `yaml:"grpc_port"`
	MetricsPort    int           `yaml:"metrics_port"`
	ReadTimeout    time.Duration `yaml:"read_timeout"`
	WriteTimeout   time.Duration `yaml:"write_timeout"`
	MaxConnections int           `yaml:"max_connections"`
}

// RedisConfig represents the Redis configuration used for audit-event
// caching. No opportunity or pool state is ever persisted here.
type RedisConfig struct {
	Addresses              []string      `yaml:"addresses"`
	Host                   string        `yaml:"host"`
	Port                   int           `yaml:"port"`
	Password               string        `yaml:"password"`
	DB                     int           `yaml:"db"`
	PoolSize               int           `yaml:"pool_size"`
	MinIdleConns           int           `yaml:"min_idle_conns"`
	DialTimeout            time.Duration `yaml:"dial_timeout"`
	ReadTimeout            time.Duration `yaml:"read_timeout"`
	WriteTimeout           time.Duration `yaml:"write_timeout"`
	PoolTimeout            time.Duration `yaml:"pool_timeout"`
	IdleTimeout            time.Duration `yaml:"idle_timeout"`
	IdleCheckFrequency     time.Duration `yaml:"idle_check_frequency"`
	MaxRetries             int           `yaml:"max_retries"`
	MinRetryBackoff        time.Duration `yaml:"min_retry_backoff"`
	MaxRetryBackoff        time.Duration `yaml:"max_retry_backoff"`
	EnableCluster          bool          `yaml:"enable_cluster"`
	RouteByLatency         bool          `yaml:"route_by_latency"`
	RouteRandomly          bool          `yaml:"route_randomly"`
	EnableReadFromReplicas bool          `yaml:"enable_read_from_replicas"`
}

// LoggingConfig represents the logging configuration.
type LoggingConfig struct {
	Level      string `yaml:"level"`
	Format     string `yaml:"format"`
	Output     string `yaml:"output"`
	FilePath   string `yaml:"file_path"`
	MaxSize    int    `yaml:"max_size"`
	MaxAge     int    `yaml:"max_age"`
	MaxBackups int    `yaml:"max_backups"`
	Compress   bool   `yaml:"compress"`
}

// MonitoringConfig represents the monitoring configuration.
type MonitoringConfig struct {
	Prometheus PrometheusConfig `yaml:"prometheus"`
}

// PrometheusConfig represents the Prometheus scrape endpoint configuration.
type PrometheusConfig struct {
	Enabled bool `yaml:"enabled"`
	Port    int  `yaml:"port"`
}

// ChainConfig represents per-chain feed and RPC wiring. Values here are the
// boundary the core reads from; connection and decoding live in the feed
// adapter, out of this module's scope.
type ChainConfig struct {
	Name        string   `yaml:"name"`
	ChainID     uint64   `yaml:"chain_id"`
	BlockTimeMs int64    `yaml:"block_time_ms"`
	WSURLs      []string `yaml:"ws_urls"`
	Enabled     bool     `yaml:"enabled"`
}

// DetectionConfig represents the scanner loop's tunables.
type DetectionConfig struct {
	ScanIntervalMs     int64    `yaml:"scan_interval_ms"`
	MaxPriceAgeMs      int64    `yaml:"max_price_age_ms"`
	MinLiquidityUSD    float64  `yaml:"min_liquidity_usd"`
	MaxPriceImpactBps  int64    `yaml:"max_price_impact_bps"`
	MinSpreadBps       int64    `yaml:"min_spread_bps"`
	MinTriangularBps   int64    `yaml:"min_triangular_bps"`
	EnabledStrategies  []string `yaml:"enabled_strategies"`
	ParallelChains     bool     `yaml:"parallel_chains"`
	DefaultNotionalWei string   `yaml:"default_notional_wei"`
}

// ExecutionConfig represents the optimizer's gas and profit thresholds.
type ExecutionConfig struct {
	MinProfitUSD      float64 `yaml:"min_profit_usd"`
	MinProfitAfterGas string  `yaml:"min_profit_after_gas_wei"`
	MaxGasPriceGwei   float64 `yaml:"max_gas_price_gwei"`
	SlippageBps       int64   `yaml:"slippage_bps"`
	DeadlineSeconds   int64   `yaml:"deadline_seconds"`
}

// RiskConfig represents circuit-breaker and exposure limits consumed by the
// (out-of-scope) execution path; carried here so UpdateConfig has a home.
type RiskConfig struct {
	MaxPositionUSD        float64 `yaml:"max_position_usd"`
	MaxDailyLossUSD       float64 `yaml:"max_daily_loss_usd"`
	MaxConsecutiveLosses  int     `yaml:"max_consecutive_losses"`
	CircuitBreakerEnabled bool    `yaml:"circuit_breaker_enabled"`
}

// Load reads and parses the configuration from a YAML file.
func Load(configPath string) (*Config, error) {
	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	return cfg, nil
}

// Default returns the configuration with the same defaults the detection and
// execution pipeline falls back to when a field is left unset.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Host:           "127.0.0.1",
			GRPCPort:       50051,
			MetricsPort:    9090,
			ReadTimeout:    5 * time.Second,
			WriteTimeout:   5 * time.Second,
			MaxConnections: 1000,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
			Output: "stdout",
		},
		Detection: DetectionConfig{
			ScanIntervalMs:    100,
			MaxPriceAgeMs:     500,
			MinLiquidityUSD:   10000,
			MaxPriceImpactBps: 100,
			MinSpreadBps:      10,
			MinTriangularBps:  15,
			EnabledStrategies: []string{"cross_venue", "triangular"},
			ParallelChains:    true,
		},
		Execution: ExecutionConfig{
			MinProfitUSD:      1.0,
			MinProfitAfterGas: "1000000000000000", // 0.001 ETH
			MaxGasPriceGwei:   100.0,
			SlippageBps:       50,
			DeadlineSeconds:   120,
		},
		Risk: RiskConfig{
			MaxPositionUSD:        10000,
			MaxDailyLossUSD:       500,
			MaxConsecutiveLosses:  3,
			CircuitBreakerEnabled: true,
		},
	}
}
