// Package config defines the data structures related to configuration and
// includes functions for loading and validating the config.
package config

import (
	"fmt"
	"strings"

	"github.com/quantfabric/multibase-optimizer/internal/optimizer"
	"github.com/quantfabric/multibase-optimizer/pkg/strategy"
	"github.com/spf13/viper"
)

// Configuration holds all configuration for multibase-optimizer.
type Configuration struct {
	Core      CoreConfig      `yaml:"core,omitempty"`
	Defaults  DefaultsConfig  `yaml:"defaults,omitempty"`
	Market    MarketConfig    `yaml:"market,omitempty"`
	Benchmark BenchmarkConfig `yaml:"benchmark,omitempty"`
	Logging   LoggingConfig   `yaml:"logging,omitempty"`
}

// CoreConfig models the core's clocking, used only to derive the
// computations-per-second register.
type CoreConfig struct {
	ClockHz uint64 `yaml:"clockHz,omitempty"`
}

// DefaultsConfig holds the strategy parameters written to the input
// registers before a run.
type DefaultsConfig struct {
	BaseSelect    string `yaml:"baseSelect,omitempty"` // auto, decimal, dozenal, binary
	RiskLimit     uint32 `yaml:"riskLimit,omitempty"`
	LatencyBudget uint16 `yaml:"latencyBudget,omitempty"`
	StrategyID    uint8  `yaml:"strategyId,omitempty"`
}

// MarketConfig is the snapshot used for a single-shot run.
type MarketConfig struct {
	BidPrice  float64 `yaml:"bidPrice"`
	AskPrice  float64 `yaml:"askPrice"`
	LastPrice float64 `yaml:"lastPrice"`
	BidSize   uint32  `yaml:"bidSize"`
	AskSize   uint32  `yaml:"askSize"`
}

// BenchmarkConfig controls benchmark mode.
type BenchmarkConfig struct {
	Iterations int     `yaml:"iterations,omitempty"`
	PriceStep  float64 `yaml:"priceStep,omitempty"`
}

// LoggingConfig holds logging configuration options.
type LoggingConfig struct {
	Level      string `yaml:"level,omitempty"`      // debug, info, warn, error
	Format     string `yaml:"format,omitempty"`     // json, console
	OutputFile string `yaml:"outputFile,omitempty"` // optional file output
}

// LoadConfiguration takes a file path as input and loads the YAML-formatted
// configuration there.
func LoadConfiguration(configPath string) (*Configuration, error) {
	viper.SetConfigFile(configPath)
	viper.AutomaticEnv()

	viper.SetConfigType("yml")

	if err := viper.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("error reading config file, %s", err)
	}

	var configuration Configuration
	err := viper.Unmarshal(&configuration)
	if err != nil {
		return nil, fmt.Errorf("unable to decode into struct, %s", err)
	}

	configuration.ApplyDefaults()
	return &configuration, nil
}

// ApplyDefaults fills unset fields with the documented register defaults.
func (c *Configuration) ApplyDefaults() {
	if c.Core.ClockHz == 0 {
		c.Core.ClockHz = 100_000_000
	}
	if c.Defaults.RiskLimit == 0 {
		c.Defaults.RiskLimit = 100000
	}
	if c.Defaults.LatencyBudget == 0 {
		c.Defaults.LatencyBudget = 100
	}
	if c.Defaults.BaseSelect == "" {
		c.Defaults.BaseSelect = "auto"
	}
	if c.Benchmark.Iterations == 0 {
		c.Benchmark.Iterations = 100
	}
	if c.Benchmark.PriceStep == 0 {
		c.Benchmark.PriceStep = 0.01
	}
}

// ParseBaseSelect maps the configured base name to its register encoding.
func ParseBaseSelect(name string) (optimizer.BaseSelect, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "auto":
		return optimizer.SelectAuto, nil
	case "decimal":
		return optimizer.SelectDecimal, nil
	case "dozenal":
		return optimizer.SelectDozenal, nil
	case "binary":
		return optimizer.SelectBinary, nil
	}
	return 0, fmt.Errorf("invalid base selection %q", name)
}

// ValidateConfiguration checks the configuration for conditions that do not
// prevent a run but likely indicate mistakes, returning warnings.
func (c *Configuration) ValidateConfiguration() []string {
	var warnings []string
	if _, err := ParseBaseSelect(c.Defaults.BaseSelect); err != nil {
		warnings = append(warnings, err.Error())
	}
	if !strategy.Known(c.Defaults.StrategyID) {
		warnings = append(warnings, fmt.Sprintf("strategy id %d is not in the catalog; it is passed through unchanged", c.Defaults.StrategyID))
	}
	if c.Market.AskPrice < c.Market.BidPrice {
		warnings = append(warnings, "ask price is below bid price; spread will clamp to zero")
	}
	if c.Market.BidPrice < 0 || c.Market.AskPrice < 0 || c.Market.LastPrice < 0 {
		warnings = append(warnings, "negative prices are not representable and will be treated as zero")
	}
	if c.Defaults.LatencyBudget>>8 == 0 {
		warnings = append(warnings, "latency budget upper byte is zero; the dozenal path can never win the latency gate")
	}
	return warnings
}
