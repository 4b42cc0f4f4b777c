// Package savedobjects imports dashboard saved objects from NDJSON streams
// into an object store, resolving conflicts, references and data source
// prefixes on the way.
package savedobjects

import "github.com/goliatone/go-savedobjects/core"

type Config = core.Config

type ImportConfig = core.ImportConfig

type Option = core.Option

type Service = core.Service

type ServiceDependencies = core.ServiceDependencies

type SavedObject = core.SavedObject
type Reference = core.Reference
type ObjectKey = core.ObjectKey
type ObjectType = core.ObjectType
type TypeManagement = core.TypeManagement

type ImportRequest = core.ImportRequest
type ResolveImportErrorsRequest = core.ResolveImportErrorsRequest
type Retry = core.Retry
type ReplaceReference = core.ReplaceReference

type ImportResult = core.ImportResult
type ImportSuccess = core.ImportSuccess
type ImportError = core.ImportError

type ImportService = core.ImportService
type ObjectStore = core.ObjectStore
type DataSourceDirectory = core.DataSourceDirectory
type TypeRegistry = core.TypeRegistry

var (
	WithLogger              = core.WithLogger
	WithLoggerProvider      = core.WithLoggerProvider
	WithMetricsRecorder     = core.WithMetricsRecorder
	WithErrorFactory        = core.WithErrorFactory
	WithErrorMapper         = core.WithErrorMapper
	WithPersistenceClient   = core.WithPersistenceClient
	WithRepositoryFactory   = core.WithRepositoryFactory
	WithConfigProvider      = core.WithConfigProvider
	WithOptionsResolver     = core.WithOptionsResolver
	WithObjectStore         = core.WithObjectStore
	WithDataSourceDirectory = core.WithDataSourceDirectory
	WithTypeRegistry        = core.WithTypeRegistry
	WithIDGenerator         = core.WithIDGenerator
)

func DefaultConfig() Config {
	return core.DefaultConfig()
}

func NewService(cfg Config, opts ...Option) (*Service, error) {
	return core.NewService(cfg, opts...)
}

func Setup(cfg Config, opts ...Option) (*Service, error) {
	return core.Setup(cfg, opts...)
}
