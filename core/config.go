package core

import (
	"fmt"
	"strings"
)

const (
	DefaultObjectLimit    = 10000
	DefaultBatchSize      = 100
	DefaultMaxConcurrency = 10
	DefaultMaxLineBytes   = 16 * 1024 * 1024
)

var DefaultReferenceTypes = []string{"index-pattern", "search"}

type ImportConfig struct {
	ObjectLimit    int      `koanf:"object_limit" mapstructure:"object_limit"`
	BatchSize      int      `koanf:"batch_size" mapstructure:"batch_size"`
	MaxConcurrency int      `koanf:"max_concurrency" mapstructure:"max_concurrency"`
	MaxLineBytes   int      `koanf:"max_line_bytes" mapstructure:"max_line_bytes"`
	ReferenceTypes []string `koanf:"reference_types" mapstructure:"reference_types"`
	DataSourceType string   `koanf:"data_source_type" mapstructure:"data_source_type"`
}

type Config struct {
	ServiceName string       `koanf:"service_name" mapstructure:"service_name"`
	Import      ImportConfig `koanf:"import" mapstructure:"import"`
}

func DefaultConfig() Config {
	return Config{
		ServiceName: "savedobjects",
		Import: ImportConfig{
			ObjectLimit:    DefaultObjectLimit,
			BatchSize:      DefaultBatchSize,
			MaxConcurrency: DefaultMaxConcurrency,
			MaxLineBytes:   DefaultMaxLineBytes,
			ReferenceTypes: append([]string(nil), DefaultReferenceTypes...),
			DataSourceType: DefaultDataSourceType,
		},
	}
}

func (c Config) Validate() error {
	if strings.TrimSpace(c.ServiceName) == "" {
		return fmt.Errorf("core: service_name is required")
	}
	if c.Import.ObjectLimit < 0 {
		return fmt.Errorf("core: import.object_limit must not be negative")
	}
	if c.Import.BatchSize < 0 {
		return fmt.Errorf("core: import.batch_size must not be negative")
	}
	if c.Import.MaxConcurrency < 0 {
		return fmt.Errorf("core: import.max_concurrency must not be negative")
	}
	if c.Import.MaxLineBytes < 0 {
		return fmt.Errorf("core: import.max_line_bytes must not be negative")
	}
	return nil
}

// withImportDefaults fills zero values left after config layering.
func (c ImportConfig) withImportDefaults() ImportConfig {
	if c.ObjectLimit == 0 {
		c.ObjectLimit = DefaultObjectLimit
	}
	if c.BatchSize == 0 {
		c.BatchSize = DefaultBatchSize
	}
	if c.MaxConcurrency == 0 {
		c.MaxConcurrency = DefaultMaxConcurrency
	}
	if c.MaxLineBytes == 0 {
		c.MaxLineBytes = DefaultMaxLineBytes
	}
	if strings.TrimSpace(c.DataSourceType) == "" {
		c.DataSourceType = DefaultDataSourceType
	}
	return c
}
