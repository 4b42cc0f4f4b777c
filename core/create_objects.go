package core

import (
	"context"
	"fmt"

	"github.com/goliatone/go-savedobjects/taskqueue"
)

type createObjectsParams struct {
	Objects           []SavedObject
	AccumulatedErrors []ImportError
	Store             ObjectStore
	IDMap             ImportIDMap
	Overwrite         bool
	Namespace         string
	Workspaces        []string
	DataSourceID      string
	DataSourceTitle   string
	DataSourceType    string
	BatchSize         int
	Queue             *taskqueue.Queue
}

type createObjectsResult struct {
	Errors  []ImportError
	Created []SavedObject
}

// createObjects writes every object that has not failed an earlier stage.
// While a resolvable error is pending nothing is written and the objects that
// would have been created are reported instead. Data source objects are
// skipped when importing into a data source.
func createObjects(ctx context.Context, params createObjectsParams) (createObjectsResult, error) {
	dataSourceType := params.DataSourceType
	if dataSourceType == "" {
		dataSourceType = DefaultDataSourceType
	}
	failed := KeySet{}
	resolvablePending := false
	for _, importErr := range params.AccumulatedErrors {
		failed[importErr.Key()] = struct{}{}
		if importErr.Error.Type.Resolvable() {
			resolvablePending = true
		}
	}

	pending := make([]SavedObject, 0, len(params.Objects))
	for _, object := range params.Objects {
		if failed.Has(object.Key()) {
			continue
		}
		if params.DataSourceID != "" && object.Type == dataSourceType {
			continue
		}
		pending = append(pending, object)
	}
	if len(pending) == 0 {
		return createObjectsResult{}, nil
	}

	toCreate := make([]SavedObject, 0, len(pending))
	for _, object := range pending {
		next := remapObject(object, params.IDMap)
		next = applyDataSourceTarget(next, params.DataSourceID, params.DataSourceTitle, params.DataSourceType)
		toCreate = append(toCreate, next)
	}

	written := make([]BulkCreateResult, 0, len(toCreate))
	if resolvablePending {
		for _, object := range toCreate {
			written = append(written, BulkCreateResult{Object: object})
		}
	} else {
		if params.Store == nil {
			return createObjectsResult{}, importBadInputError("core: object store is required to create objects", nil)
		}
		results, err := bulkCreateBatched(ctx, params, toCreate)
		if err != nil {
			return createObjectsResult{}, importStoreError(err, "core: failed to create saved objects")
		}
		written = results
	}

	// Results are positional: the store answers in input order.
	result := createObjectsResult{}
	for i, item := range written {
		source := pending[i]
		if item.Error != nil {
			result.Errors = append(result.Errors, creationError(source, toCreate[i].ID, item.Error))
			continue
		}
		created := item.Object.Clone()
		createdID := created.ID
		created.ID = source.ID
		created.DestinationID = ""
		if createdID != source.ID {
			created.DestinationID = createdID
		}
		result.Created = append(result.Created, created)
	}
	return result, nil
}

// remapObject applies the id map to the object and its references. A
// remapped object records its lineage unless the map entry omits it.
func remapObject(object SavedObject, idMap ImportIDMap) SavedObject {
	next := object.Clone()
	if len(next.References) > 0 {
		for i, ref := range next.References {
			if entry, ok := idMap[ObjectKey{Type: ref.Type, ID: ref.ID}]; ok && entry.ID != "" {
				next.References[i].ID = entry.ID
			}
		}
	}
	entry, ok := idMap[object.Key()]
	if !ok || entry.ID == "" {
		return next
	}
	next.ID = entry.ID
	switch {
	case entry.OmitOriginID:
		next.OriginID = ""
	case next.OriginID == "":
		next.OriginID = object.ID
	}
	return next
}

func creationError(source SavedObject, attemptedID string, objectErr *ObjectError) ImportError {
	if objectErr.Conflict() {
		detail := ImportErrorDetail{Type: ErrorKindConflict}
		if attemptedID != "" && attemptedID != source.ID {
			detail.DestinationID = attemptedID
		}
		return newObjectError(source, detail)
	}
	message := objectErr.Message
	if message == "" {
		message = objectErr.Error
	}
	return newObjectError(source, ImportErrorDetail{
		Type:       ErrorKindUnknown,
		StatusCode: objectErr.StatusCode,
		Message:    message,
	})
}

func bulkCreateBatched(ctx context.Context, params createObjectsParams, objects []SavedObject) ([]BulkCreateResult, error) {
	queue := params.Queue
	if queue == nil {
		queue = taskqueue.New(taskqueue.DefaultMaxConcurrent)
	}
	opts := CreateOptions{
		Namespace:  params.Namespace,
		Overwrite:  params.Overwrite,
		Workspaces: append([]string(nil), params.Workspaces...),
	}
	perBatch, err := taskqueue.Map(ctx, queue, chunk(objects, params.BatchSize), func(taskCtx context.Context, batch []SavedObject) ([]BulkCreateResult, error) {
		results, err := params.Store.BulkCreate(taskCtx, batch, opts)
		if err != nil {
			return nil, err
		}
		if len(results) != len(batch) {
			return nil, fmt.Errorf("core: bulk create returned %d results for %d objects", len(results), len(batch))
		}
		return results, nil
	})
	if err != nil {
		return nil, err
	}
	out := make([]BulkCreateResult, 0, len(objects))
	for _, results := range perBatch {
		out = append(out, results...)
	}
	return out, nil
}
