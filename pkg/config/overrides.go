package config

import (
	"strings"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// Option keys shared by flags and HARVEST_* environment variables.
const (
	KeyConfig    = "config"
	KeyDryRun    = "dry-run"
	KeyInitState = "init-state"
	KeyFull      = "full"
	KeyBatchSize = "batch-size"
	KeyKinds     = "kinds"
	KeyLogLevel  = "log-level"
)

// RegisterFlags adds the harvester's process options to fs.
func RegisterFlags(fs *pflag.FlagSet) {
	fs.String(KeyConfig, "harvester.yaml", "path to the YAML config file")
	fs.Bool(KeyDryRun, false, "log what would be deleted without changing the destination")
	fs.Bool(KeyInitState, false, "seed an empty cursor with the start time instead of harvesting history")
	fs.Bool(KeyFull, false, "ignore the stored cursor on the first batch")
	fs.Int(KeyBatchSize, 0, "records per batch (0 keeps the config file value)")
	fs.StringSlice(KeyKinds, nil, "entity kinds to harvest (empty keeps the config file value)")
	fs.String(KeyLogLevel, "", "minimum log level (debug, info, warn, error)")
}

// NewViper binds fs and the HARVEST_ environment into a viper instance.
// HARVEST_DRY_RUN sets dry-run, and so on.
func NewViper(fs *pflag.FlagSet) (*viper.Viper, error) {
	v := viper.New()
	v.SetEnvPrefix("HARVEST")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()
	if err := v.BindPFlags(fs); err != nil {
		return nil, err
	}
	return v, nil
}

// ApplyOverrides copies options set by flag or environment onto c. Boolean
// options only ever switch a behaviour on.
func (c *Config) ApplyOverrides(v *viper.Viper) {
	if v.GetBool(KeyDryRun) {
		c.Harvest.DryRun = true
	}
	if v.GetBool(KeyInitState) {
		c.Harvest.InitState = true
	}
	if v.GetBool(KeyFull) {
		c.Harvest.Full = true
	}
	if n := v.GetInt(KeyBatchSize); n > 0 {
		c.Harvest.BatchSize = &n
	}
	if kinds := v.GetStringSlice(KeyKinds); len(kinds) > 0 {
		c.Harvest.Kinds = kinds
	}
	if lvl := v.GetString(KeyLogLevel); lvl != "" {
		c.Log.Level = lvl
	}
}
