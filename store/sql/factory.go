package sqlstore

import (
	"fmt"

	persistence "github.com/goliatone/go-persistence-bun"
	repository "github.com/goliatone/go-repository-bun"
	repositorycache "github.com/goliatone/go-repository-cache/cache"
	"github.com/goliatone/go-savedobjects/core"
	"github.com/uptrace/bun"
)

type RepositoryFactory struct {
	db    *bun.DB
	cache repositorycache.CacheService

	objectStore     *ObjectStore
	dataSourceStore *DataSourceStore
	directory       *CachedDataSourceDirectory
}

type FactoryOption func(*RepositoryFactory)

// WithDataSourceCache serves DataSourceDirectory through the given cache.
func WithDataSourceCache(cacheService repositorycache.CacheService) FactoryOption {
	return func(f *RepositoryFactory) {
		f.cache = cacheService
	}
}

func NewRepositoryFactory(opts ...FactoryOption) *RepositoryFactory {
	factory := &RepositoryFactory{}
	for _, opt := range opts {
		if opt != nil {
			opt(factory)
		}
	}
	return factory
}

func NewRepositoryFactoryFromPersistence(client *persistence.Client, opts ...FactoryOption) (*RepositoryFactory, error) {
	factory := NewRepositoryFactory(opts...)
	if _, err := factory.BuildStores(client); err != nil {
		return nil, err
	}
	return factory, nil
}

func NewRepositoryFactoryFromDB(db *bun.DB, opts ...FactoryOption) (*RepositoryFactory, error) {
	factory := NewRepositoryFactory(opts...)
	if _, err := factory.BuildStores(db); err != nil {
		return nil, err
	}
	return factory, nil
}

func (f *RepositoryFactory) BuildStores(persistenceClient any) (core.StoreProvider, error) {
	if f == nil {
		return nil, fmt.Errorf("sqlstore: repository factory is nil")
	}
	if f.db == nil {
		db, err := resolveBunDB(persistenceClient)
		if err != nil {
			return nil, err
		}
		f.db = db
	}
	if f.objectStore != nil && f.dataSourceStore != nil {
		return f, nil
	}
	if err := f.initStores(); err != nil {
		return nil, err
	}
	return f, nil
}

func (f *RepositoryFactory) ObjectStore() core.ObjectStore {
	if f == nil || f.objectStore == nil {
		return nil
	}
	return f.objectStore
}

// DataSourceDirectory returns the cached directory when a cache is
// configured and the plain store otherwise.
func (f *RepositoryFactory) DataSourceDirectory() core.DataSourceDirectory {
	if f == nil {
		return nil
	}
	if f.directory != nil {
		return f.directory
	}
	if f.dataSourceStore == nil {
		return nil
	}
	return f.dataSourceStore
}

func (f *RepositoryFactory) DataSourceStore() *DataSourceStore {
	if f == nil {
		return nil
	}
	return f.dataSourceStore
}

// AssignDataSources goes through the cached directory when present so the
// workspace entry is invalidated.
func (f *RepositoryFactory) AssignDataSources() DataSourceAssigner {
	if f == nil {
		return nil
	}
	if f.directory != nil {
		return f.directory
	}
	if f.dataSourceStore == nil {
		return nil
	}
	return f.dataSourceStore
}

func (f *RepositoryFactory) DB() *bun.DB {
	if f == nil {
		return nil
	}
	return f.db
}

func (f *RepositoryFactory) initStores() error {
	objectRepo := repository.NewRepository[*savedObjectRecord](f.db, savedObjectHandlers())
	if validator, ok := objectRepo.(repository.Validator); ok {
		if err := validator.Validate(); err != nil {
			return fmt.Errorf("sqlstore: invalid saved object repository wiring: %w", err)
		}
	}

	assignmentRepo := repository.NewRepository[*dataSourceAssignmentRecord](f.db, dataSourceAssignmentHandlers())
	if validator, ok := assignmentRepo.(repository.Validator); ok {
		if err := validator.Validate(); err != nil {
			return fmt.Errorf("sqlstore: invalid data source repository wiring: %w", err)
		}
	}

	f.objectStore = &ObjectStore{
		db:   f.db,
		repo: objectRepo,
	}
	f.dataSourceStore = &DataSourceStore{
		db:   f.db,
		repo: assignmentRepo,
	}
	if f.cache != nil {
		directory, err := NewCachedDataSourceDirectory(f.dataSourceStore, f.cache)
		if err != nil {
			return err
		}
		f.directory = directory
	}
	return nil
}

func resolveBunDB(candidate any) (*bun.DB, error) {
	switch typed := candidate.(type) {
	case nil:
		return nil, fmt.Errorf("sqlstore: persistence client is required")
	case *bun.DB:
		return typed, nil
	case interface{ DB() *bun.DB }:
		db := typed.DB()
		if db == nil {
			return nil, fmt.Errorf("sqlstore: persistence client returned nil bun db")
		}
		return db, nil
	default:
		return nil, fmt.Errorf("sqlstore: unsupported persistence client type %T", candidate)
	}
}
