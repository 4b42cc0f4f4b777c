package core

import (
	"context"
	"errors"
	"strings"
	"time"

	goerrors "github.com/goliatone/go-errors"
	glog "github.com/goliatone/go-logger/glog"

	"github.com/goliatone/go-savedobjects/taskqueue"
)

var ErrObjectStoreNotConfigured = errors.New("core: object store not configured")

type Service struct {
	config              Config
	logger              Logger
	loggerProvider      LoggerProvider
	metricsRecorder     MetricsRecorder
	errorFactory        ErrorFactory
	errorMapper         ErrorMapper
	persistenceClient   any
	repositoryFactory   any
	configProvider      ConfigProvider
	optionsResolver     OptionsResolver
	objectStore         ObjectStore
	dataSourceDirectory DataSourceDirectory
	typeRegistry        TypeRegistry
	idGenerator         IDGenerator
	stages              stageSet
}

type ServiceDependencies struct {
	Logger              Logger
	LoggerProvider      LoggerProvider
	MetricsRecorder     MetricsRecorder
	ErrorFactory        ErrorFactory
	ErrorMapper         ErrorMapper
	PersistenceClient   any
	RepositoryFactory   any
	ConfigProvider      ConfigProvider
	OptionsResolver     OptionsResolver
	ObjectStore         ObjectStore
	DataSourceDirectory DataSourceDirectory
	TypeRegistry        TypeRegistry
}

func NewService(cfg Config, opts ...Option) (*Service, error) {
	builder := defaultServiceBuilder(cfg)
	for _, opt := range opts {
		if opt == nil {
			continue
		}
		opt(&builder)
	}

	provider, logger := glog.Resolve("savedobjects", builder.loggerProvider, builder.logger)
	logger = glog.Ensure(logger)
	if provider != nil {
		if named := provider.GetLogger("savedobjects"); named != nil {
			logger = glog.Ensure(named)
		}
	}

	if builder.errorFactory == nil {
		builder.errorFactory = goerrors.New
	}
	if builder.metricsRecorder == nil {
		builder.metricsRecorder = NopMetricsRecorder{}
	}
	if builder.errorMapper == nil {
		builder.errorMapper = defaultErrorMapper
	}
	if builder.configProvider == nil {
		builder.configProvider = NewCfgxConfigProvider(nil)
	}
	if builder.optionsResolver == nil {
		builder.optionsResolver = GoOptionsResolver{}
	}
	if builder.typeRegistry == nil {
		builder.typeRegistry = NewMemoryTypeRegistry()
	}
	if builder.idGenerator == nil {
		builder.idGenerator = defaultIDGenerator
	}

	defaults := DefaultConfig()
	loaded, err := builder.configProvider.Load(context.Background(), defaults)
	if err != nil {
		return nil, mapBuildError(builder.errorMapper, err)
	}
	finalConfig, err := builder.optionsResolver.Resolve(defaults, loaded, builder.runtimeConfig)
	if err != nil {
		return nil, mapBuildError(builder.errorMapper, err)
	}

	if (builder.objectStore == nil || builder.dataSourceDirectory == nil) && builder.repositoryFactory != nil {
		var stores StoreProvider
		switch factory := builder.repositoryFactory.(type) {
		case RepositoryStoreFactory:
			built, buildErr := factory.BuildStores(builder.persistenceClient)
			if buildErr != nil {
				return nil, mapBuildError(builder.errorMapper, buildErr)
			}
			stores = built
		case StoreProvider:
			stores = factory
		}
		if stores != nil {
			if builder.objectStore == nil {
				builder.objectStore = stores.ObjectStore()
			}
			if builder.dataSourceDirectory == nil {
				builder.dataSourceDirectory = stores.DataSourceDirectory()
			}
		}
	}

	return &Service{
		config:              finalConfig,
		logger:              logger,
		loggerProvider:      provider,
		metricsRecorder:     builder.metricsRecorder,
		errorFactory:        builder.errorFactory,
		errorMapper:         builder.errorMapper,
		persistenceClient:   builder.persistenceClient,
		repositoryFactory:   builder.repositoryFactory,
		configProvider:      builder.configProvider,
		optionsResolver:     builder.optionsResolver,
		objectStore:         builder.objectStore,
		dataSourceDirectory: builder.dataSourceDirectory,
		typeRegistry:        builder.typeRegistry,
		idGenerator:         builder.idGenerator,
		stages:              defaultStages(),
	}, nil
}

func Setup(cfg Config, opts ...Option) (*Service, error) {
	return NewService(cfg, opts...)
}

func mapBuildError(mapper ErrorMapper, err error) error {
	if err == nil {
		return nil
	}
	if mapper == nil {
		return err
	}
	mapped := mapper(err)
	if mapped == nil {
		return err
	}
	return mapped
}

func (s *Service) Config() Config {
	if s == nil {
		return Config{}
	}
	return s.config
}

func (s *Service) Dependencies() ServiceDependencies {
	if s == nil {
		return ServiceDependencies{}
	}
	return ServiceDependencies{
		Logger:              s.logger,
		LoggerProvider:      s.loggerProvider,
		MetricsRecorder:     s.metricsRecorder,
		ErrorFactory:        s.errorFactory,
		ErrorMapper:         s.errorMapper,
		PersistenceClient:   s.persistenceClient,
		RepositoryFactory:   s.repositoryFactory,
		ConfigProvider:      s.configProvider,
		OptionsResolver:     s.optionsResolver,
		ObjectStore:         s.objectStore,
		DataSourceDirectory: s.dataSourceDirectory,
		TypeRegistry:        s.typeRegistry,
	}
}

// Import reads the objects in req.ReadStream and writes them to the object
// store. Per object failures are reported in the result; the returned error is
// reserved for invalid requests, malformed streams and store outages.
//
// While any conflict, missing reference or missing data source is reported,
// nothing is written. SuccessResults then lists the objects that would be
// created once those errors are resolved, not objects that were persisted.
func (s *Service) Import(ctx context.Context, req ImportRequest) (result ImportResult, err error) {
	startedAt := time.Now().UTC()
	fields := map[string]any{
		"namespace":         req.Namespace,
		"mode":              importMode(req.CreateNewCopies, req.Overwrite),
		"data_source_id":    req.DataSourceID,
		"data_source_title": req.DataSourceTitle,
		"workspaces":        strings.Join(req.Workspaces, ","),
		"is_copy":           req.IsCopy,
	}
	defer func() {
		fields["success"] = result.Success
		fields["success_count"] = result.SuccessCount
		fields["error_count"] = len(result.Errors)
		s.observeOperation(ctx, startedAt, "import", err, fields)
	}()

	if ctx == nil {
		ctx = context.Background()
	}
	if err = req.Validate(); err != nil {
		return ImportResult{}, s.mapError(err)
	}
	if s.objectStore == nil {
		return ImportResult{}, s.errorFactory(ErrObjectStoreNotConfigured.Error(), goerrors.CategoryInternal)
	}

	plan := PlanImport(req)
	fields["stages"] = len(plan.Stages)
	queue := taskqueue.New(s.config.Import.MaxConcurrency)
	defer queue.Clear()

	state, err := s.runImport(ctx, plan, importRun{
		req:         req,
		reader:      req.ReadStream,
		objectLimit: s.objectLimit(req.ObjectLimit),
		queue:       queue,
	})
	if err != nil {
		return ImportResult{}, s.mapError(err)
	}

	assembler := resultAssembler{registry: s.typeRegistry, createNewCopies: req.CreateNewCopies}
	return assembler.assemble(state.Created, state.Errors, state.PendingOverwrites), nil
}

func (s *Service) objectLimit(requested int) int {
	if requested > 0 {
		return requested
	}
	return s.config.Import.ObjectLimit
}

func (s *Service) mapError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	return mapBuildError(s.errorMapper, err)
}

func importMode(createNewCopies bool, overwrite bool) string {
	switch {
	case createNewCopies:
		return "copy"
	case overwrite:
		return "overwrite"
	default:
		return "default"
	}
}
