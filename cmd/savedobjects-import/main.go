// Command savedobjects-import imports an NDJSON export into a SQL backed
// saved object store. Locations may be local paths, file:// or s3:// URLs.
package main

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"os/signal"
	"syscall"

	glog "github.com/goliatone/go-logger/glog"
	persistence "github.com/goliatone/go-persistence-bun"
	repositorycache "github.com/goliatone/go-repository-cache/cache"
	"github.com/joho/godotenv"
	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"
	"github.com/spf13/pflag"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	"github.com/uptrace/bun/schema"

	"github.com/goliatone/go-savedobjects"
	"github.com/goliatone/go-savedobjects/adapters/gologger"
	importcommand "github.com/goliatone/go-savedobjects/command"
	"github.com/goliatone/go-savedobjects/core"
	"github.com/goliatone/go-savedobjects/migrations"
	"github.com/goliatone/go-savedobjects/source"
	sqlstore "github.com/goliatone/go-savedobjects/store/sql"
)

func main() {
	_ = godotenv.Load()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := run(ctx, os.Args[1:], os.Stdout, os.Stderr)
	stop()
	os.Exit(code)
}

func run(ctx context.Context, args []string, stdout io.Writer, stderr io.Writer) int {
	cfg, err := parseConfig(ctx, args, stderr)
	if err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return 0
		}
		fmt.Fprintln(stderr, err)
		return 2
	}
	level := glog.Info
	if cfg.Debug {
		level = glog.Debug
	}
	logger := glog.NewLogger(
		glog.WithWriter(stderr),
		glog.WithLoggerTypeJSON(),
		glog.WithLevel(level),
		glog.WithName("savedobjects-import"),
	)

	result, err := importLocation(ctx, cfg, logger)
	if err != nil {
		logger.Error("saved objects import failed", "location", cfg.Location, "error", err.Error())
		return 1
	}

	encoder := json.NewEncoder(stdout)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(result); err != nil {
		logger.Error("encode import result", "error", err.Error())
		return 1
	}
	if !result.Success {
		return 3
	}
	return 0
}

func importLocation(ctx context.Context, cfg *cliConfig, logger glog.Logger) (core.ImportResult, error) {
	client, err := openPersistence(ctx, cfg)
	if err != nil {
		return core.ImportResult{}, err
	}
	defer func() { _ = client.Close() }()

	cacheConfig := repositorycache.DefaultConfig()
	cacheConfig.TTL = cfg.CacheTTL
	cacheService, err := repositorycache.NewCacheService(cacheConfig)
	if err != nil {
		return core.ImportResult{}, fmt.Errorf("data source cache: %w", err)
	}

	opener, err := openerFor(cfg)
	if err != nil {
		return core.ImportResult{}, err
	}

	provider, resolved := gologger.Resolve("savedobjects", nil, logger)
	svc, err := savedobjects.NewService(savedobjects.DefaultConfig(),
		savedobjects.WithLoggerProvider(provider),
		savedobjects.WithLogger(resolved),
		savedobjects.WithPersistenceClient(client),
		savedobjects.WithRepositoryFactory(sqlstore.NewRepositoryFactory(sqlstore.WithDataSourceCache(cacheService))),
		savedobjects.WithTypeRegistry(core.NewDefaultTypeRegistry()),
	)
	if err != nil {
		return core.ImportResult{}, err
	}
	facade, err := savedobjects.NewFacade(svc, savedobjects.WithSourceOpener(opener))
	if err != nil {
		return core.ImportResult{}, err
	}

	if cfg.RetriesPath != "" {
		retries, err := loadRetries(cfg.RetriesPath)
		if err != nil {
			return core.ImportResult{}, err
		}
		return facade.ResolveImportErrorsFromSource(ctx, importcommand.ResolveImportErrorsFromSourceMessage{
			Location:        cfg.Location,
			Namespace:       cfg.Namespace,
			ObjectLimit:     cfg.ObjectLimit,
			CreateNewCopies: cfg.CreateNewCopies,
			Retries:         retries,
		})
	}
	return facade.ImportFromSource(ctx, cfg.Location, importcommand.ImportOptions{
		ObjectLimit:       cfg.ObjectLimit,
		Overwrite:         cfg.Overwrite,
		Namespace:         cfg.Namespace,
		CreateNewCopies:   cfg.CreateNewCopies,
		DataSourceID:      cfg.DataSourceID,
		DataSourceTitle:   cfg.DataSourceTitle,
		DataSourceEnabled: cfg.dataSourceEnabled(),
		Workspaces:        cfg.workspaces(),
	})
}

func openPersistence(ctx context.Context, cfg *cliConfig) (*persistence.Client, error) {
	dialectName, err := migrations.DialectForDriver(cfg.Driver)
	if err != nil {
		return nil, err
	}
	// lib/pq and go-sqlite3 register as postgres and sqlite3.
	var dialect schema.Dialect
	driver := "sqlite3"
	switch dialectName {
	case migrations.DialectPostgres:
		dialect = pgdialect.New()
		driver = "postgres"
	default:
		dialect = sqlitedialect.New()
	}

	sqlDB, err := sql.Open(driver, cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if dialectName == migrations.DialectSQLite {
		sqlDB.SetMaxOpenConns(1)
	}
	client, err := persistence.New(cfg, sqlDB, dialect)
	if err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("persistence client: %w", err)
	}
	if cfg.SkipMigrations {
		return client, nil
	}

	_, err = migrations.Register(ctx, migrations.ForDialect(dialectName, func(fsys fs.FS) {
		client.RegisterSQLMigrations(fsys)
	}), migrations.WithValidationTargets(dialectName))
	if err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("register migrations: %w", err)
	}
	if err := client.Migrate(ctx); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return client, nil
}

func openerFor(cfg *cliConfig) (source.Opener, error) {
	var s3 source.Opener
	if cfg.s3Enabled() {
		opener, err := savedobjects.S3Source(cfg.s3Config())
		if err != nil {
			return nil, err
		}
		s3 = opener
	}
	return savedobjects.SourceRouter("", s3), nil
}
