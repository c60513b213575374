// Package config defines the harvester's configuration file and how process
// flags and environment variables override it.
package config

import (
	"fmt"

	"github.com/go-playground/validator/v10"
)

// Endpoint identifies a catalogue database.
type Endpoint struct {
	// Name is the catalogue's identity, conventionally server.database.schema.
	// The source name keys the stored harvest cursors.
	Name string `yaml:"name" mapstructure:"name" validate:"required"`
	DSN  string `yaml:"dsn" mapstructure:"dsn" validate:"required"`
}

// HarvestConfig controls what is harvested and how.
type HarvestConfig struct {
	Kinds []string `yaml:"kinds" mapstructure:"kinds" validate:"required,min=1,unique,dive,oneof=DeletedObservation DeletedObservationMetaReadAccess DeletedPlaneMetaReadAccess DeletedPlaneDataReadAccess"`

	// BatchSize caps records per batch. Omit it to fetch everything after the
	// cursor in one batch.
	BatchSize *int `yaml:"batch_size,omitempty" mapstructure:"batch_size" validate:"omitempty,min=1"`

	DryRun    bool `yaml:"dry_run" mapstructure:"dry_run"`
	InitState bool `yaml:"init_state" mapstructure:"init_state"`
	Full      bool `yaml:"full" mapstructure:"full"`

	// Threads is reserved. Batches run sequentially.
	Threads int `yaml:"threads" mapstructure:"threads" validate:"min=0"`

	MaxDeletesPerSecond float64 `yaml:"max_deletes_per_second" mapstructure:"max_deletes_per_second" validate:"min=0"`
}

// TelemetryConfig points the OTLP exporters at a collector. An empty endpoint
// disables export.
type TelemetryConfig struct {
	Endpoint    string            `yaml:"endpoint" mapstructure:"endpoint"`
	ServiceName string            `yaml:"service_name" mapstructure:"service_name"`
	Attributes  map[string]string `yaml:"attributes,omitempty" mapstructure:"attributes"`
}

// LogConfig selects the minimum log level.
type LogConfig struct {
	Level string `yaml:"level" mapstructure:"level" validate:"omitempty,oneof=debug info warn error"`
}

// Config represents the top-level configuration.
type Config struct {
	Source      Endpoint        `yaml:"source" mapstructure:"source"`
	Destination Endpoint        `yaml:"destination" mapstructure:"destination"`
	Harvest     HarvestConfig   `yaml:"harvest" mapstructure:"harvest"`
	Telemetry   TelemetryConfig `yaml:"telemetry" mapstructure:"telemetry"`
	Log         LogConfig       `yaml:"log" mapstructure:"log"`

	// MigrationsDir holds the schema migrations applied to the destination at
	// startup. Empty skips migration.
	MigrationsDir string `yaml:"migrations_dir" mapstructure:"migrations_dir"`
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// Validate checks the configuration, reporting every failing field.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}
