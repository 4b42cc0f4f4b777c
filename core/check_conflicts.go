package core

import (
	"context"

	"github.com/goliatone/go-savedobjects/taskqueue"
)

type checkConflictsParams struct {
	Objects                []SavedObject
	Store                  ObjectStore
	Namespace              string
	IgnoreRegularConflicts bool
	// CreateNewCopies marks objects that already carry a regenerated id, so
	// an existing object at the original id is not a conflict.
	CreateNewCopies bool
	Retries         []Retry
	BatchSize       int
	Queue           *taskqueue.Queue
}

type checkConflictsResult struct {
	Errors            []ImportError
	Filtered          []SavedObject
	IDMap             ImportIDMap
	PendingOverwrites KeySet
}

// checkConflicts looks up every object at the id it would be written to.
// Existing objects are only overwritten when allowed globally or by the
// object's retry.
func checkConflicts(ctx context.Context, params checkConflictsParams) (checkConflictsResult, error) {
	result := checkConflictsResult{
		IDMap:             ImportIDMap{},
		PendingOverwrites: KeySet{},
	}
	if len(params.Objects) == 0 {
		return result, nil
	}
	if params.Store == nil {
		return checkConflictsResult{}, importBadInputError("core: object store is required to check conflicts", nil)
	}

	retries := retryIndex(params.Retries)
	keys := make([]ObjectKey, 0, len(params.Objects))
	for _, object := range params.Objects {
		target := object.Key()
		if retry, ok := retries[target]; ok && retry.DestinationID != "" {
			target.ID = retry.DestinationID
		}
		keys = append(keys, target)
	}

	found, err := bulkGetBatched(ctx, params.Store, params.Queue, keys, params.BatchSize, StoreOptions{Namespace: params.Namespace})
	if err != nil {
		return checkConflictsResult{}, importStoreError(err, "core: failed to check conflicts")
	}

	for i, object := range params.Objects {
		key := object.Key()
		retry := retries[key]
		lookup := found[i]
		switch {
		case lookup.Error != nil && !lookup.Error.NotFound():
			result.Errors = append(result.Errors, newObjectError(object, ImportErrorDetail{
				Type:       ErrorKindUnknown,
				StatusCode: lookup.Error.StatusCode,
				Message:    lookup.Error.Message,
			}))
			continue
		case lookup.Found() && params.CreateNewCopies && !retry.Overwrite:
			result.Filtered = append(result.Filtered, object)
			if retry.DestinationID != "" {
				result.IDMap[key] = ImportIDEntry{ID: retry.DestinationID, OmitOriginID: true}
			}
			continue
		case lookup.Found() && !params.IgnoreRegularConflicts && !retry.Overwrite:
			result.Errors = append(result.Errors, newObjectError(object, ImportErrorDetail{
				Type:          ErrorKindConflict,
				DestinationID: retry.DestinationID,
			}))
			continue
		}
		result.Filtered = append(result.Filtered, object)
		if lookup.Found() {
			result.PendingOverwrites[key] = struct{}{}
		}
		if retry.DestinationID != "" {
			result.IDMap[key] = ImportIDEntry{ID: retry.DestinationID}
		}
	}
	return result, nil
}

type originConflictsParams struct {
	Objects                []SavedObject
	Store                  ObjectStore
	Namespace              string
	IgnoreRegularConflicts bool
	IDMap                  ImportIDMap
	NewID                  IDGenerator
	SearchLimit            int
	Queue                  *taskqueue.Queue
}

type originConflictsResult struct {
	Errors            []ImportError
	IDMap             ImportIDMap
	PendingOverwrites KeySet
}

type originMatch struct {
	object       SavedObject
	destinations []SavedObject
}

const defaultOriginSearchLimit = 10

// checkOriginConflicts finds existing objects that share an origin with the
// imported ones and decides, per object, whether to overwrite, copy or
// report the conflict.
func checkOriginConflicts(ctx context.Context, params originConflictsParams) (originConflictsResult, error) {
	result := originConflictsResult{
		IDMap:             ImportIDMap{},
		PendingOverwrites: KeySet{},
	}
	if len(params.Objects) == 0 {
		return result, nil
	}
	if params.Store == nil {
		return originConflictsResult{}, importBadInputError("core: object store is required to check origin conflicts", nil)
	}
	newID := params.NewID
	if newID == nil {
		newID = defaultIDGenerator
	}
	limit := params.SearchLimit
	if limit <= 0 {
		limit = defaultOriginSearchLimit
	}

	importing := KeySet{}
	for _, object := range params.Objects {
		importing[object.Key()] = struct{}{}
		if entry, ok := params.IDMap[object.Key()]; ok && entry.ID != "" {
			importing[ObjectKey{Type: object.Type, ID: entry.ID}] = struct{}{}
		}
	}

	queue := params.Queue
	if queue == nil {
		queue = taskqueue.New(taskqueue.DefaultMaxConcurrent)
	}
	matches, err := taskqueue.Map(ctx, queue, params.Objects, func(taskCtx context.Context, object SavedObject) (originMatch, error) {
		found, err := params.Store.FindByOrigin(taskCtx, OriginQuery{
			Type:      object.Type,
			OriginID:  originOrID(object),
			Namespace: params.Namespace,
			Limit:     limit,
		})
		if err != nil {
			return originMatch{}, err
		}
		match := originMatch{object: object}
		for _, candidate := range found {
			if importing.Has(candidate.Key()) {
				continue
			}
			match.destinations = append(match.destinations, candidate)
		}
		return match, nil
	})
	if err != nil {
		return originConflictsResult{}, importStoreError(err, "core: failed to check origin conflicts")
	}

	sources := map[ObjectKey]int{}
	for _, match := range matches {
		if len(match.destinations) == 0 {
			continue
		}
		sources[originKey(match.object)]++
	}

	for _, match := range matches {
		if len(match.destinations) == 0 {
			continue
		}
		object := match.object
		key := object.Key()
		sourceCount := sources[originKey(object)]
		switch {
		case sourceCount == 1 && len(match.destinations) == 1:
			destination := match.destinations[0]
			if params.IgnoreRegularConflicts {
				result.IDMap[key] = ImportIDEntry{ID: destination.ID}
				result.PendingOverwrites[key] = struct{}{}
				continue
			}
			result.Errors = append(result.Errors, newObjectError(object, ImportErrorDetail{
				Type:          ErrorKindConflict,
				DestinationID: destination.ID,
			}))
		case sourceCount > 1:
			result.IDMap[key] = ImportIDEntry{ID: newID(), OmitOriginID: true}
		default:
			result.Errors = append(result.Errors, newObjectError(object, ImportErrorDetail{
				Type:         ErrorKindAmbiguousConflict,
				Destinations: conflictDestinations(match.destinations),
			}))
		}
	}
	return result, nil
}

func originOrID(object SavedObject) string {
	if object.OriginID != "" {
		return object.OriginID
	}
	return object.ID
}

func originKey(object SavedObject) ObjectKey {
	return ObjectKey{Type: object.Type, ID: originOrID(object)}
}

func conflictDestinations(objects []SavedObject) []ConflictDestination {
	out := make([]ConflictDestination, 0, len(objects))
	for _, object := range objects {
		out = append(out, ConflictDestination{
			ID:        object.ID,
			Title:     object.Title(),
			UpdatedAt: object.UpdatedAt,
		})
	}
	return out
}
