package core

import (
	"context"
	"fmt"

	"github.com/goliatone/go-savedobjects/taskqueue"
)

type validateReferencesParams struct {
	Objects        []SavedObject
	Store          ObjectStore
	Namespace      string
	Retries        []Retry
	ReferenceTypes []string
	BatchSize      int
	Queue          *taskqueue.Queue
}

// validateReferences reports, once per object, the references of the
// enforced types that neither the import nor the store can satisfy.
func validateReferences(ctx context.Context, params validateReferencesParams) ([]ImportError, error) {
	skip := KeySet{}
	for _, retry := range params.Retries {
		if retry.IgnoreMissingReferences {
			skip[retry.Key()] = struct{}{}
		}
	}
	enforced := referenceTypeFilter(params.ReferenceTypes)

	missing, err := missingReferenceKeys(ctx, params, skip, enforced)
	if err != nil {
		return nil, err
	}
	if len(missing) == 0 {
		return nil, nil
	}

	errs := []ImportError{}
	for _, object := range params.Objects {
		if skip.Has(object.Key()) {
			continue
		}
		refs := []MissingReference{}
		for _, ref := range object.References {
			if !enforced(ref.Type) {
				continue
			}
			if missing.Has(ObjectKey{Type: ref.Type, ID: ref.ID}) {
				refs = append(refs, MissingReference{Type: ref.Type, ID: ref.ID})
			}
		}
		if len(refs) == 0 {
			continue
		}
		errs = append(errs, newObjectError(object, ImportErrorDetail{
			Type:       ErrorKindMissingReferences,
			References: refs,
		}))
	}
	return errs, nil
}

func missingReferenceKeys(
	ctx context.Context,
	params validateReferencesParams,
	skip KeySet,
	enforced func(string) bool,
) (KeySet, error) {
	candidates := []ObjectKey{}
	collected := KeySet{}
	for _, object := range params.Objects {
		if skip.Has(object.Key()) {
			continue
		}
		for _, ref := range object.References {
			if !enforced(ref.Type) {
				continue
			}
			key := ObjectKey{Type: ref.Type, ID: ref.ID}
			if collected.Has(key) {
				continue
			}
			collected[key] = struct{}{}
			candidates = append(candidates, key)
		}
	}
	imported := KeySet{}
	for _, object := range params.Objects {
		imported[object.Key()] = struct{}{}
	}
	lookups := make([]ObjectKey, 0, len(candidates))
	for _, key := range candidates {
		if !imported.Has(key) {
			lookups = append(lookups, key)
		}
	}
	if len(lookups) == 0 {
		return nil, nil
	}
	if params.Store == nil {
		return nil, importBadInputError("core: object store is required to validate references", nil)
	}

	results, err := bulkGetBatched(ctx, params.Store, params.Queue, lookups, params.BatchSize, StoreOptions{Namespace: params.Namespace})
	if err != nil {
		return nil, importStoreError(err, "core: failed to look up references")
	}

	failed := []string{}
	missing := KeySet{}
	for _, result := range results {
		switch {
		case result.Found():
		case result.Error.NotFound():
			missing[result.Key] = struct{}{}
		default:
			failed = append(failed, result.Key.String())
		}
	}
	if len(failed) > 0 {
		return nil, importBadInputError(
			fmt.Sprintf("core: failed to validate references for %d objects", len(failed)),
			map[string]any{"objects": failed},
		)
	}
	return missing, nil
}

func referenceTypeFilter(types []string) func(string) bool {
	if len(types) == 0 {
		return func(string) bool { return true }
	}
	allowed := make(map[string]struct{}, len(types))
	for _, name := range types {
		if name == "*" {
			return func(string) bool { return true }
		}
		allowed[name] = struct{}{}
	}
	return func(name string) bool {
		_, ok := allowed[name]
		return ok
	}
}

// bulkGetBatched splits keys into batches dispatched through queue and
// returns the results in key order.
func bulkGetBatched(
	ctx context.Context,
	store ObjectStore,
	queue *taskqueue.Queue,
	keys []ObjectKey,
	batchSize int,
	opts StoreOptions,
) ([]BulkGetResult, error) {
	batches := chunk(keys, batchSize)
	if queue == nil {
		queue = taskqueue.New(taskqueue.DefaultMaxConcurrent)
	}
	perBatch, err := taskqueue.Map(ctx, queue, batches, func(taskCtx context.Context, batch []ObjectKey) ([]BulkGetResult, error) {
		results, err := store.BulkGet(taskCtx, batch, opts)
		if err != nil {
			return nil, err
		}
		if len(results) != len(batch) {
			return nil, fmt.Errorf("core: bulk get returned %d results for %d keys", len(results), len(batch))
		}
		return results, nil
	})
	if err != nil {
		return nil, err
	}
	out := make([]BulkGetResult, 0, len(keys))
	for _, results := range perBatch {
		out = append(out, results...)
	}
	return out, nil
}

func chunk[T any](items []T, size int) [][]T {
	if len(items) == 0 {
		return nil
	}
	if size <= 0 || size >= len(items) {
		return [][]T{items}
	}
	out := make([][]T, 0, (len(items)+size-1)/size)
	for start := 0; start < len(items); start += size {
		end := start + size
		if end > len(items) {
			end = len(items)
		}
		out = append(out, items[start:end])
	}
	return out
}
