package core

import (
	"context"
	"time"

	goerrors "github.com/goliatone/go-errors"

	"github.com/goliatone/go-savedobjects/taskqueue"
)

// ResolveImportErrors re-imports the objects named by req.Retries, applying
// each retry's overwrite, destination and reference replacements. Objects
// to overwrite are written first, then the rest.
func (s *Service) ResolveImportErrors(ctx context.Context, req ResolveImportErrorsRequest) (result ImportResult, err error) {
	startedAt := time.Now().UTC()
	fields := map[string]any{
		"namespace": req.Namespace,
		"mode":      importMode(req.CreateNewCopies, false),
		"retries":   len(req.Retries),
	}
	defer func() {
		fields["success"] = result.Success
		fields["success_count"] = result.SuccessCount
		fields["error_count"] = len(result.Errors)
		s.observeOperation(ctx, startedAt, "resolve_import_errors", err, fields)
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

	queue := taskqueue.New(s.config.Import.MaxConcurrency)
	defer queue.Clear()

	result, err = s.resolveImportErrors(ctx, req, queue)
	if err != nil {
		return ImportResult{}, s.mapError(err)
	}
	return result, nil
}

func (s *Service) resolveImportErrors(ctx context.Context, req ResolveImportErrorsRequest, queue *taskqueue.Queue) (ImportResult, error) {
	cfg := s.config.Import
	retries := retryIndex(req.Retries)

	collected, err := s.stages.collect(ctx, collectParams{
		Reader:         req.ReadStream,
		ObjectLimit:    s.objectLimit(req.ObjectLimit),
		SupportedTypes: supportedTypeNames(s.typeRegistry),
		MaxLineBytes:   cfg.MaxLineBytes,
		Filter: func(object SavedObject) bool {
			_, ok := retries[object.Key()]
			return ok
		},
	})
	if err != nil {
		return ImportResult{}, err
	}
	state := importState{PendingOverwrites: KeySet{}}.withErrors(collected.Errors)
	state.Objects = replaceRetryReferences(collected.Objects, retries)

	referenceErrors, err := s.stages.validateReferences(ctx, validateReferencesParams{
		Objects:        state.Objects,
		Store:          s.objectStore,
		Namespace:      req.Namespace,
		Retries:        req.Retries,
		ReferenceTypes: cfg.ReferenceTypes,
		BatchSize:      cfg.BatchSize,
		Queue:          queue,
	})
	if err != nil {
		return ImportResult{}, err
	}
	state = state.withErrors(referenceErrors)

	state.IDMap = ImportIDMap{}
	if req.CreateNewCopies {
		// Retries that fixed a missing reference may carry no destination, so
		// every object gets a fresh id.
		state.IDMap = s.stages.regenerateIDs(regenerateIDsParams{
			Objects: state.Objects,
			NewID:   s.idGenerator,
		}).Clone()
	}

	checked, err := s.stages.checkConflicts(ctx, checkConflictsParams{
		Objects:         state.Objects,
		Store:           s.objectStore,
		Namespace:       req.Namespace,
		CreateNewCopies: req.CreateNewCopies,
		Retries:         req.Retries,
		BatchSize:       cfg.BatchSize,
		Queue:           queue,
	})
	if err != nil {
		return ImportResult{}, err
	}
	state = state.withErrors(checked.Errors).withPendingOverwrites(checked.PendingOverwrites)
	state.Filtered = checked.Filtered

	// Retry destinations override the plain destination recorded by the
	// conflict check so their origin handling applies.
	retryIDMap := importIDMapForRetries(state.Filtered, retries, req.CreateNewCopies)
	state = state.withIDMap(checked.IDMap).withIDMap(retryIDMap)

	toOverwrite, toCreate := splitOverwrites(state.Objects, retries)
	accumulated := append([]ImportError(nil), state.Errors...)
	assembler := resultAssembler{registry: s.typeRegistry, createNewCopies: req.CreateNewCopies}

	successes := []ImportSuccess{}
	successCount := 0
	for _, batch := range []struct {
		objects   []SavedObject
		overwrite bool
	}{
		{objects: toOverwrite, overwrite: true},
		{objects: toCreate, overwrite: false},
	} {
		created, err := s.stages.createObjects(ctx, createObjectsParams{
			Objects:           batch.objects,
			AccumulatedErrors: accumulated,
			Store:             s.objectStore,
			IDMap:             state.IDMap,
			Overwrite:         batch.overwrite,
			Namespace:         req.Namespace,
			DataSourceType:    cfg.DataSourceType,
			BatchSize:         cfg.BatchSize,
			Queue:             queue,
		})
		if err != nil {
			return ImportResult{}, err
		}
		state = state.withErrors(created.Errors)
		successCount += len(created.Created)
		for _, object := range created.Created {
			successes = append(successes, assembler.success(object, batch.overwrite))
		}
	}

	result := ImportResult{
		Success:      len(state.Errors) == 0,
		SuccessCount: successCount,
	}
	if len(successes) > 0 {
		result.SuccessResults = successes
	}
	if len(state.Errors) > 0 {
		result.Errors = make([]ImportError, 0, len(state.Errors))
		for _, importErr := range state.Errors {
			result.Errors = append(result.Errors, assembler.failure(importErr, state.PendingOverwrites))
		}
	}
	return result, nil
}

// replaceRetryReferences returns copies of objects with each retry's
// reference replacements applied.
func replaceRetryReferences(objects []SavedObject, retries map[ObjectKey]Retry) []SavedObject {
	out := make([]SavedObject, 0, len(objects))
	for _, object := range objects {
		retry, ok := retries[object.Key()]
		if !ok || len(retry.ReplaceReferences) == 0 {
			out = append(out, object)
			continue
		}
		replacements := make(map[ObjectKey]string, len(retry.ReplaceReferences))
		for _, replace := range retry.ReplaceReferences {
			replacements[ObjectKey{Type: replace.Type, ID: replace.From}] = replace.To
		}
		next := object.Clone()
		for i, ref := range next.References {
			if to, ok := replacements[ObjectKey{Type: ref.Type, ID: ref.ID}]; ok && to != "" {
				next.References[i].ID = to
			}
		}
		out = append(out, next)
	}
	return out
}

// importIDMapForRetries maps retried objects to the destination chosen by
// the caller.
func importIDMapForRetries(objects []SavedObject, retries map[ObjectKey]Retry, createNewCopies bool) ImportIDMap {
	out := ImportIDMap{}
	for _, object := range objects {
		retry, ok := retries[object.Key()]
		if !ok {
			continue
		}
		if retry.DestinationID == "" || retry.DestinationID == object.ID {
			continue
		}
		out[object.Key()] = ImportIDEntry{
			ID:           retry.DestinationID,
			OmitOriginID: createNewCopies || retry.CreateNewCopy,
		}
	}
	return out
}

func splitOverwrites(objects []SavedObject, retries map[ObjectKey]Retry) (overwrite []SavedObject, create []SavedObject) {
	for _, object := range objects {
		if retries[object.Key()].Overwrite {
			overwrite = append(overwrite, object)
			continue
		}
		create = append(create, object)
	}
	return overwrite, create
}
