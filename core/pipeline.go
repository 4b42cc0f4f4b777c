package core

import (
	"context"
	"fmt"
	"io"

	goerrors "github.com/goliatone/go-errors"
	"github.com/google/uuid"

	"github.com/goliatone/go-savedobjects/taskqueue"
)

var defaultIDGenerator IDGenerator = uuid.NewString

type StageKind string

const (
	StageCollect                  StageKind = "collect"
	StageDataSourceSupport        StageKind = "data_source_support"
	StageValidateReferences       StageKind = "validate_references"
	StageValidateDataSources      StageKind = "validate_data_sources"
	StageRegenerateIDs            StageKind = "regenerate_ids"
	StageCheckConflicts           StageKind = "check_conflicts"
	StageCheckDataSourceConflicts StageKind = "check_data_source_conflicts"
	StageCheckOriginConflicts     StageKind = "check_origin_conflicts"
	StageCreateObjects            StageKind = "create_objects"
)

// ImportPlan is the ordered list of stages an import runs.
type ImportPlan struct {
	Stages []StageKind
}

func (p ImportPlan) Has(stage StageKind) bool {
	for _, candidate := range p.Stages {
		if candidate == stage {
			return true
		}
	}
	return false
}

// PlanImport selects the stages for req. Copy mode replaces every conflict
// stage with id regeneration.
func PlanImport(req ImportRequest) ImportPlan {
	stages := []StageKind{StageCollect}
	if !req.DataSourceEnabled {
		stages = append(stages, StageDataSourceSupport)
	}
	stages = append(stages, StageValidateReferences)
	if req.DataSourceEnabled && len(req.Workspaces) > 0 {
		stages = append(stages, StageValidateDataSources)
	}
	if req.CreateNewCopies {
		stages = append(stages, StageRegenerateIDs)
	} else {
		stages = append(stages, StageCheckConflicts)
		if req.DataSourceID != "" {
			stages = append(stages, StageCheckDataSourceConflicts)
		}
		stages = append(stages, StageCheckOriginConflicts)
	}
	stages = append(stages, StageCreateObjects)
	return ImportPlan{Stages: stages}
}

// importState is threaded by value through the stages. Stages never mutate
// the slices or maps they receive; each returns a new state.
type importState struct {
	Objects           []SavedObject
	Filtered          []SavedObject
	Errors            []ImportError
	IDMap             ImportIDMap
	PendingOverwrites KeySet
	Created           []SavedObject
	Halted            bool
}

func (s importState) withErrors(errs []ImportError) importState {
	if len(errs) == 0 {
		return s
	}
	next := make([]ImportError, 0, len(s.Errors)+len(errs))
	next = append(next, s.Errors...)
	next = append(next, errs...)
	s.Errors = next
	return s
}

func (s importState) withIDMap(idMap ImportIDMap) importState {
	if s.IDMap == nil {
		s.IDMap = ImportIDMap{}
	}
	s.IDMap = s.IDMap.Merge(idMap)
	return s
}

func (s importState) withPendingOverwrites(keys KeySet) importState {
	if len(keys) == 0 {
		return s
	}
	s.PendingOverwrites = s.PendingOverwrites.Union(keys)
	return s
}

// stageSet holds the stage implementations used by the orchestrator.
type stageSet struct {
	collect                  func(context.Context, collectParams) (collectResult, error)
	validateReferences       func(context.Context, validateReferencesParams) ([]ImportError, error)
	validateDataSources      func(context.Context, validateDataSourcesParams) ([]ImportError, error)
	regenerateIDs            func(regenerateIDsParams) ImportIDMap
	checkConflicts           func(context.Context, checkConflictsParams) (checkConflictsResult, error)
	checkDataSourceConflicts func(dataSourceConflictsParams) dataSourceConflictsResult
	checkOriginConflicts     func(context.Context, originConflictsParams) (originConflictsResult, error)
	createObjects            func(context.Context, createObjectsParams) (createObjectsResult, error)
}

func defaultStages() stageSet {
	return stageSet{
		collect:                  collectSavedObjects,
		validateReferences:       validateReferences,
		validateDataSources:      validateDataSources,
		regenerateIDs:            regenerateIDs,
		checkConflicts:           checkConflicts,
		checkDataSourceConflicts: checkDataSourceConflicts,
		checkOriginConflicts:     checkOriginConflicts,
		createObjects:            createObjects,
	}
}

// importRun carries the per call inputs shared by the stages.
type importRun struct {
	req         ImportRequest
	reader      io.Reader
	objectLimit int
	queue       *taskqueue.Queue
}

func (s *Service) runImport(ctx context.Context, plan ImportPlan, run importRun) (importState, error) {
	state := importState{IDMap: ImportIDMap{}, PendingOverwrites: KeySet{}}
	for _, stage := range plan.Stages {
		if state.Halted {
			break
		}
		if err := ctx.Err(); err != nil {
			return importState{}, err
		}
		next, err := s.applyStage(ctx, stage, run, state)
		if err != nil {
			return importState{}, err
		}
		s.observeStage(ctx, stage, state, next)
		state = next
	}
	return state, nil
}

func (s *Service) applyStage(ctx context.Context, stage StageKind, run importRun, state importState) (importState, error) {
	cfg := s.config.Import
	req := run.req
	switch stage {
	case StageCollect:
		collected, err := s.stages.collect(ctx, collectParams{
			Reader:         run.reader,
			ObjectLimit:    run.objectLimit,
			SupportedTypes: supportedTypeNames(s.typeRegistry),
			MaxLineBytes:   cfg.MaxLineBytes,
		})
		if err != nil {
			return importState{}, err
		}
		state = state.withErrors(collected.Errors)
		state.Objects = collected.Objects
		state.IDMap = collected.IDMap.Clone()
		return state, nil

	case StageDataSourceSupport:
		unsupported := checkDataSourceSupport(state.Objects, cfg.DataSourceType)
		if len(unsupported) == 0 {
			return state, nil
		}
		state = state.withErrors(unsupported)
		state.Halted = true
		return state, nil

	case StageValidateReferences:
		errs, err := s.stages.validateReferences(ctx, validateReferencesParams{
			Objects:        state.Objects,
			Store:          s.objectStore,
			Namespace:      req.Namespace,
			ReferenceTypes: cfg.ReferenceTypes,
			BatchSize:      cfg.BatchSize,
			Queue:          run.queue,
		})
		if err != nil {
			return importState{}, err
		}
		return state.withErrors(errs), nil

	case StageValidateDataSources:
		errs, err := s.stages.validateDataSources(ctx, validateDataSourcesParams{
			Objects:        state.Objects,
			Directory:      s.dataSourceDirectory,
			Workspaces:     req.Workspaces,
			DataSourceType: cfg.DataSourceType,
		})
		if err != nil {
			return importState{}, err
		}
		return state.withErrors(errs), nil

	case StageRegenerateIDs:
		state.IDMap = s.stages.regenerateIDs(regenerateIDsParams{
			Objects:      state.Objects,
			DataSourceID: req.DataSourceID,
			NewID:        s.idGenerator,
		}).Clone()
		return state, nil

	case StageCheckConflicts:
		checked, err := s.stages.checkConflicts(ctx, checkConflictsParams{
			Objects:                state.Objects,
			Store:                  s.objectStore,
			Namespace:              req.Namespace,
			IgnoreRegularConflicts: req.Overwrite,
			BatchSize:              cfg.BatchSize,
			Queue:                  run.queue,
		})
		if err != nil {
			return importState{}, err
		}
		state = state.withErrors(checked.Errors)
		state.Filtered = checked.Filtered
		return state.withIDMap(checked.IDMap).withPendingOverwrites(checked.PendingOverwrites), nil

	case StageCheckDataSourceConflicts:
		checked := s.stages.checkDataSourceConflicts(dataSourceConflictsParams{
			Objects:                state.Filtered,
			IgnoreRegularConflicts: req.Overwrite,
			DataSourceID:           req.DataSourceID,
			DataSourceType:         cfg.DataSourceType,
		})
		state = state.withErrors(checked.Errors)
		state.Filtered = checked.Filtered
		return state.withIDMap(checked.IDMap).withPendingOverwrites(checked.PendingOverwrites), nil

	case StageCheckOriginConflicts:
		checked, err := s.stages.checkOriginConflicts(ctx, originConflictsParams{
			Objects:                state.Filtered,
			Store:                  s.objectStore,
			Namespace:              req.Namespace,
			IgnoreRegularConflicts: req.Overwrite,
			IDMap:                  state.IDMap,
			NewID:                  s.idGenerator,
			Queue:                  run.queue,
		})
		if err != nil {
			return importState{}, err
		}
		state = state.withErrors(checked.Errors)
		return state.withIDMap(checked.IDMap).withPendingOverwrites(checked.PendingOverwrites), nil

	case StageCreateObjects:
		created, err := s.stages.createObjects(ctx, createObjectsParams{
			Objects:           state.Objects,
			AccumulatedErrors: state.Errors,
			Store:             s.objectStore,
			IDMap:             state.IDMap,
			Overwrite:         req.Overwrite,
			Namespace:         req.Namespace,
			Workspaces:        req.Workspaces,
			DataSourceID:      req.DataSourceID,
			DataSourceTitle:   req.DataSourceTitle,
			DataSourceType:    cfg.DataSourceType,
			BatchSize:         cfg.BatchSize,
			Queue:             run.queue,
		})
		if err != nil {
			return importState{}, err
		}
		state = state.withErrors(created.Errors)
		state.Created = created.Created
		return state, nil

	default:
		return importState{}, newImportError(
			fmt.Sprintf("core: unknown import stage %q", stage),
			goerrors.CategoryInternal,
			ImportErrorInternal,
		)
	}
}
