package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/goliatone/go-config/config"
	"github.com/spf13/pflag"

	"github.com/goliatone/go-savedobjects/core"
	"github.com/goliatone/go-savedobjects/migrations"
	"github.com/goliatone/go-savedobjects/source"
)

// SAVEDOBJECTS_DB_DRIVER maps to db_driver, the same key as --db-driver.
const envPrefix = "SAVEDOBJECTS_"

type cliConfig struct {
	Driver          string        `koanf:"db_driver"`
	DSN             string        `koanf:"db_dsn"`
	Debug           bool          `koanf:"debug"`
	SkipMigrations  bool          `koanf:"skip_migrations"`
	Namespace       string        `koanf:"namespace"`
	Overwrite       bool          `koanf:"overwrite"`
	CreateNewCopies bool          `koanf:"create_new_copies"`
	ObjectLimit     int           `koanf:"object_limit"`
	DataSourceID    string        `koanf:"data_source_id"`
	DataSourceTitle string        `koanf:"data_source_title"`
	Workspaces      string        `koanf:"workspaces"`
	RetriesPath     string        `koanf:"retries"`
	CacheTTL        time.Duration `koanf:"cache_ttl"`
	S3Endpoint      string        `koanf:"s3_endpoint"`
	S3Region        string        `koanf:"s3_region"`
	S3AccessKey     string        `koanf:"s3_access_key"`
	S3SecretKey     string        `koanf:"s3_secret_key"`
	S3Bucket        string        `koanf:"s3_bucket"`
	S3UseSSL        bool          `koanf:"s3_use_ssl"`

	Location string `koanf:"-"`
}

func defaultCLIConfig() *cliConfig {
	return &cliConfig{
		Driver:   "sqlite3",
		DSN:      "file:savedobjects.db?cache=shared&_foreign_keys=on",
		CacheTTL: time.Minute,
	}
}

func (c cliConfig) GetDebug() bool                { return c.Debug }
func (c cliConfig) GetDriver() string             { return c.Driver }
func (c cliConfig) GetServer() string             { return c.DSN }
func (c cliConfig) GetPingTimeout() time.Duration { return 5 * time.Second }
func (c cliConfig) GetOtelIdentifier() string     { return "go-savedobjects" }

func (c cliConfig) Validate() error {
	if strings.TrimSpace(c.Location) == "" {
		return fmt.Errorf("import location is required")
	}
	if _, err := migrations.DialectForDriver(c.Driver); err != nil {
		return err
	}
	if strings.TrimSpace(c.DSN) == "" {
		return fmt.Errorf("db_dsn is required")
	}
	if c.Overwrite && c.CreateNewCopies {
		return fmt.Errorf("overwrite and create_new_copies are mutually exclusive")
	}
	if c.ObjectLimit < 0 {
		return fmt.Errorf("object_limit must not be negative")
	}
	if c.CacheTTL < 0 {
		return fmt.Errorf("cache_ttl must not be negative")
	}
	return nil
}

// parseConfig layers SAVEDOBJECTS_* environment variables under flags. The
// import location is the only positional argument.
func parseConfig(ctx context.Context, args []string, stderr io.Writer) (*cliConfig, error) {
	cfg := defaultCLIConfig()

	flags := pflag.NewFlagSet("savedobjects-import", pflag.ContinueOnError)
	flags.SetOutput(stderr)
	flags.SetNormalizeFunc(underscoreFlagNames)
	flags.String("db-driver", cfg.Driver, "database driver: sqlite3 or postgres")
	flags.String("db-dsn", cfg.DSN, "database connection string")
	flags.Bool("debug", false, "debug logging and SQL query logs")
	flags.Bool("skip-migrations", false, "do not apply schema migrations")
	flags.String("namespace", "", "destination namespace")
	flags.Bool("overwrite", false, "overwrite conflicting objects")
	flags.Bool("create-new-copies", false, "import every object under a new id")
	flags.Int("object-limit", 0, "maximum number of objects to read, 0 uses the configured limit")
	flags.String("data-source-id", "", "import into this data source")
	flags.String("data-source-title", "", "title of the target data source")
	flags.String("workspaces", "", "comma separated target workspaces")
	flags.String("retries", "", "JSON file with retries; switches to resolve import errors")
	flags.Duration("cache-ttl", cfg.CacheTTL, "data source cache ttl")
	if err := flags.Parse(args); err != nil {
		return nil, err
	}
	if flags.NArg() != 1 {
		return nil, fmt.Errorf("expected exactly one import location, got %d", flags.NArg())
	}
	cfg.Location = strings.TrimSpace(flags.Arg(0))

	container := config.New(cfg).
		WithConfigPath("").
		WithProvider(
			config.EnvProvider[*cliConfig](envPrefix, "__"),
			config.FlagsProvider[*cliConfig](flags),
		)
	if err := container.Load(ctx); err != nil {
		return nil, err
	}
	cfg.Driver = strings.TrimSpace(cfg.Driver)
	return cfg, nil
}

// underscoreFlagNames keys flags the way the environment provider keys
// variables, so --object-limit and SAVEDOBJECTS_OBJECT_LIMIT share a key.
func underscoreFlagNames(_ *pflag.FlagSet, name string) pflag.NormalizedName {
	return pflag.NormalizedName(strings.ReplaceAll(name, "-", "_"))
}

func (c cliConfig) workspaces() []string {
	var out []string
	for _, workspace := range strings.Split(c.Workspaces, ",") {
		if workspace = strings.TrimSpace(workspace); workspace != "" {
			out = append(out, workspace)
		}
	}
	return out
}

func (c cliConfig) s3Config() source.S3Config {
	return source.S3Config{
		Endpoint:  strings.TrimSpace(c.S3Endpoint),
		Region:    strings.TrimSpace(c.S3Region),
		AccessKey: c.S3AccessKey,
		SecretKey: c.S3SecretKey,
		Bucket:    strings.TrimSpace(c.S3Bucket),
		UseSSL:    c.S3UseSSL,
	}
}

func (c cliConfig) s3Enabled() bool {
	return strings.TrimSpace(c.S3Endpoint) != ""
}

func (c cliConfig) dataSourceEnabled() bool {
	return strings.TrimSpace(c.DataSourceID) != ""
}

func loadRetries(path string) ([]core.Retry, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read retries: %w", err)
	}
	var retries []core.Retry
	if err := json.Unmarshal(content, &retries); err != nil {
		return nil, fmt.Errorf("decode retries: %w", err)
	}
	return retries, nil
}
