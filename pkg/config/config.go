// Package config loads lumend's node configuration from a YAML file plus
// environment overrides. Config mirrors the structure of that YAML
// document.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config is the unified configuration for a lumend node.
type Config struct {
	Network struct {
		ID              string `mapstructure:"id"`
		ActiveDelegates int    `mapstructure:"activeDelegates"`
	} `mapstructure:"network"`

	Consensus struct {
		EpochTime               string `mapstructure:"epochTime"`
		SlotIntervalSeconds     int64  `mapstructure:"slotIntervalSeconds"`
		MaxTransactionsPerBlock int    `mapstructure:"maxTransactionsPerBlock"`
		MinRoundBlockHeight     uint64 `mapstructure:"minRoundBlockHeight"`
		CurrentBlockVersion     uint32 `mapstructure:"currentBlockVersion"`
	} `mapstructure:"consensus"`

	Mempool struct {
		MaxBlockInMemory int `mapstructure:"maxBlockInMemory"`
	} `mapstructure:"mempool"`

	Fees struct {
		Send      uint64 `mapstructure:"send"`
		Vote      uint64 `mapstructure:"vote"`
		Stake     uint64 `mapstructure:"stake"`
		Delegate  uint64 `mapstructure:"delegate"`
		Signature uint64 `mapstructure:"signature"`
		Register  uint64 `mapstructure:"register"`
	} `mapstructure:"fees"`

	Logging struct {
		Level  string `mapstructure:"level"`
		Format string `mapstructure:"format"`
	} `mapstructure:"logging"`

	Storage struct {
		DataDir string `mapstructure:"dataDir"`
	} `mapstructure:"storage"`

	Metrics struct {
		ListenAddr string `mapstructure:"listenAddr"`
	} `mapstructure:"metrics"`
}

// EpochAnchor parses Consensus.EpochTime as RFC3339, the UTC anchor every
// slot number is computed relative to.
func (c *Config) EpochAnchor() (time.Time, error) {
	t, err := time.Parse(time.RFC3339, c.Consensus.EpochTime)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse consensus.epochTime: %w", err)
	}
	return t.UTC(), nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("network.activeDelegates", 101)
	v.SetDefault("consensus.slotIntervalSeconds", 10)
	v.SetDefault("consensus.maxTransactionsPerBlock", 25)
	v.SetDefault("consensus.minRoundBlockHeight", 1)
	v.SetDefault("consensus.currentBlockVersion", 1)
	v.SetDefault("mempool.maxBlockInMemory", 100)
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "text")
	v.SetDefault("storage.dataDir", "./data")
	v.SetDefault("metrics.listenAddr", ":9090")
}

// Load reads configFile (a YAML document) and merges LUMEND_-prefixed
// environment overrides, e.g. LUMEND_CONSENSUS_SLOTINTERVALSECONDS.
func Load(configFile string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetConfigFile(configFile)
	v.SetConfigType("yaml")
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("read config %s: %w", configFile, err)
	}

	v.SetEnvPrefix("LUMEND")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	return &cfg, nil
}
