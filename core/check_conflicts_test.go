package core

import (
	"context"
	"net/http"
	"testing"
)

func conflictFixtureStore() *MemoryObjectStore {
	store := NewMemoryObjectStore()
	store.Put("", newObject("foo-type", "a", "Existing A"))
	store.Put("", newObject("foo-type", "b", "Existing B"))
	return store
}

func TestCheckConflictsReportsExistingObjects(t *testing.T) {
	objects := []SavedObject{
		newObject("foo-type", "a", "A"),
		newObject("foo-type", "b", "B"),
		newObject("foo-type", "c", "C"),
	}
	result, err := checkConflicts(context.Background(), checkConflictsParams{
		Objects: objects,
		Store:   conflictFixtureStore(),
	})
	if err != nil {
		t.Fatalf("check conflicts: %v", err)
	}
	kinds := errorKinds(result.Errors)
	if len(kinds) != 2 || kinds[0] != ErrorKindConflict || kinds[1] != ErrorKindConflict {
		t.Fatalf("expected two conflicts, got %+v", result.Errors)
	}
	if len(result.Filtered) != 1 || result.Filtered[0].ID != "c" {
		t.Fatalf("expected only c to pass, got %+v", result.Filtered)
	}
	if len(result.PendingOverwrites) != 0 {
		t.Fatalf("expected no pending overwrites, got %v", result.PendingOverwrites)
	}
}

func TestCheckConflictsWithOverwriteMarksPendingOverwrites(t *testing.T) {
	objects := []SavedObject{
		newObject("foo-type", "a", "A"),
		newObject("foo-type", "b", "B"),
		newObject("foo-type", "c", "C"),
	}
	result, err := checkConflicts(context.Background(), checkConflictsParams{
		Objects:                objects,
		Store:                  conflictFixtureStore(),
		IgnoreRegularConflicts: true,
	})
	if err != nil {
		t.Fatalf("check conflicts: %v", err)
	}
	if len(result.Errors) != 0 || len(result.Filtered) != 3 {
		t.Fatalf("expected all objects to pass, got errors=%+v filtered=%d", result.Errors, len(result.Filtered))
	}
	for _, id := range []string{"a", "b"} {
		if !result.PendingOverwrites.Has(ObjectKey{Type: "foo-type", ID: id}) {
			t.Fatalf("expected %s to be a pending overwrite", id)
		}
	}
	if result.PendingOverwrites.Has(ObjectKey{Type: "foo-type", ID: "c"}) {
		t.Fatalf("expected c not to be a pending overwrite")
	}
}

func TestCheckConflictsHonoursRetryDestinations(t *testing.T) {
	objects := []SavedObject{
		newObject("foo-type", "b", "B"),
		newObject("foo-type", "c", "C"),
	}
	result, err := checkConflicts(context.Background(), checkConflictsParams{
		Objects: objects,
		Store:   conflictFixtureStore(),
		Retries: []Retry{
			{Type: "foo-type", ID: "b", DestinationID: "fresh"},
			{Type: "foo-type", ID: "c", DestinationID: "a", Overwrite: true},
		},
	})
	if err != nil {
		t.Fatalf("check conflicts: %v", err)
	}
	if len(result.Errors) != 0 || len(result.Filtered) != 2 {
		t.Fatalf("expected both retries to pass, got %+v", result.Errors)
	}
	if got := result.IDMap[ObjectKey{Type: "foo-type", ID: "b"}]; got.ID != "fresh" {
		t.Fatalf("expected b to map to fresh, got %+v", got)
	}
	if got := result.IDMap[ObjectKey{Type: "foo-type", ID: "c"}]; got.ID != "a" {
		t.Fatalf("expected c to map to a, got %+v", got)
	}
	if !result.PendingOverwrites.Has(ObjectKey{Type: "foo-type", ID: "c"}) {
		t.Fatalf("expected c to overwrite its destination")
	}
}

func TestCheckConflictsReportsUnknownLookupErrors(t *testing.T) {
	store := newFailingStore()
	store.getFailures["a"] = &ObjectError{StatusCode: http.StatusInternalServerError, Error: "Internal Server Error", Message: "shard failure"}

	result, err := checkConflicts(context.Background(), checkConflictsParams{
		Objects: []SavedObject{newObject("foo-type", "a", "A")},
		Store:   store,
	})
	if err != nil {
		t.Fatalf("check conflicts: %v", err)
	}
	if len(result.Errors) != 1 {
		t.Fatalf("expected one error, got %+v", result.Errors)
	}
	detail := result.Errors[0].Error
	if detail.Type != ErrorKindUnknown || detail.StatusCode != http.StatusInternalServerError || detail.Message != "shard failure" {
		t.Fatalf("unexpected error detail: %+v", detail)
	}
}

func TestCheckOriginConflictsSingleDestination(t *testing.T) {
	store := NewMemoryObjectStore()
	store.Put("", SavedObject{Type: "foo-type", ID: "dest1", OriginID: "orig", Attributes: map[string]any{"title": "Dest"}})

	objects := []SavedObject{newObject("foo-type", "orig", "Orig")}
	result, err := checkOriginConflicts(context.Background(), originConflictsParams{
		Objects: objects,
		Store:   store,
	})
	if err != nil {
		t.Fatalf("origin conflicts: %v", err)
	}
	if len(result.Errors) != 1 || result.Errors[0].Error.Type != ErrorKindConflict || result.Errors[0].Error.DestinationID != "dest1" {
		t.Fatalf("expected conflict with dest1, got %+v", result.Errors)
	}

	result, err = checkOriginConflicts(context.Background(), originConflictsParams{
		Objects:                objects,
		Store:                  store,
		IgnoreRegularConflicts: true,
	})
	if err != nil {
		t.Fatalf("origin conflicts: %v", err)
	}
	key := ObjectKey{Type: "foo-type", ID: "orig"}
	if len(result.Errors) != 0 {
		t.Fatalf("expected no errors with overwrite, got %+v", result.Errors)
	}
	if got := result.IDMap[key]; got.ID != "dest1" || got.OmitOriginID {
		t.Fatalf("expected orig to overwrite dest1, got %+v", got)
	}
	if !result.PendingOverwrites.Has(key) {
		t.Fatalf("expected orig to be a pending overwrite")
	}
}

func TestCheckOriginConflictsMultipleSourcesGetNewIDs(t *testing.T) {
	store := NewMemoryObjectStore()
	store.Put("", SavedObject{Type: "foo-type", ID: "dest1", OriginID: "orig"})

	result, err := checkOriginConflicts(context.Background(), originConflictsParams{
		Objects: []SavedObject{
			{Type: "foo-type", ID: "x1", OriginID: "orig"},
			{Type: "foo-type", ID: "x2", OriginID: "orig"},
		},
		Store: store,
		NewID: sequentialIDs("copy"),
	})
	if err != nil {
		t.Fatalf("origin conflicts: %v", err)
	}
	if len(result.Errors) != 0 {
		t.Fatalf("expected no errors, got %+v", result.Errors)
	}
	seen := map[string]struct{}{}
	for _, id := range []string{"x1", "x2"} {
		entry := result.IDMap[ObjectKey{Type: "foo-type", ID: id}]
		if entry.ID == "" || !entry.OmitOriginID {
			t.Fatalf("expected %s to get a new id without origin, got %+v", id, entry)
		}
		seen[entry.ID] = struct{}{}
	}
	if len(seen) != 2 {
		t.Fatalf("expected distinct new ids, got %v", seen)
	}
}

func TestCheckOriginConflictsAmbiguousDestinations(t *testing.T) {
	store := NewMemoryObjectStore()
	store.Put("", SavedObject{Type: "foo-type", ID: "older", OriginID: "orig2", UpdatedAt: timeAt(1), Attributes: map[string]any{"title": "Older"}})
	store.Put("", SavedObject{Type: "foo-type", ID: "newer", OriginID: "orig2", UpdatedAt: timeAt(2), Attributes: map[string]any{"title": "Newer"}})

	result, err := checkOriginConflicts(context.Background(), originConflictsParams{
		Objects: []SavedObject{newObject("foo-type", "orig2", "Orig")},
		Store:   store,
	})
	if err != nil {
		t.Fatalf("origin conflicts: %v", err)
	}
	if len(result.Errors) != 1 || result.Errors[0].Error.Type != ErrorKindAmbiguousConflict {
		t.Fatalf("expected ambiguous conflict, got %+v", result.Errors)
	}
	destinations := result.Errors[0].Error.Destinations
	if len(destinations) != 2 || destinations[0].ID != "newer" || destinations[1].ID != "older" {
		t.Fatalf("expected destinations by recency, got %+v", destinations)
	}
	if destinations[0].Title != "Newer" || destinations[0].UpdatedAt == nil {
		t.Fatalf("expected destination details, got %+v", destinations[0])
	}
}

func TestCheckOriginConflictsIgnoresObjectsBeingImported(t *testing.T) {
	store := NewMemoryObjectStore()
	store.Put("", SavedObject{Type: "foo-type", ID: "dest1", OriginID: "orig"})

	result, err := checkOriginConflicts(context.Background(), originConflictsParams{
		Objects: []SavedObject{
			newObject("foo-type", "orig", "Orig"),
			{Type: "foo-type", ID: "dest1", OriginID: "orig"},
		},
		Store: store,
	})
	if err != nil {
		t.Fatalf("origin conflicts: %v", err)
	}
	if len(result.Errors) != 0 || len(result.IDMap) != 0 {
		t.Fatalf("expected no origin conflicts, got errors=%+v idMap=%+v", result.Errors, result.IDMap)
	}
}

func TestCheckOriginConflictsExcludesMappedDestinations(t *testing.T) {
	store := NewMemoryObjectStore()
	store.Put("", SavedObject{Type: "foo-type", ID: "dest1", OriginID: "orig"})

	result, err := checkOriginConflicts(context.Background(), originConflictsParams{
		Objects: []SavedObject{newObject("foo-type", "orig", "Orig")},
		Store:   store,
		IDMap:   ImportIDMap{{Type: "foo-type", ID: "orig"}: {ID: "dest1"}},
	})
	if err != nil {
		t.Fatalf("origin conflicts: %v", err)
	}
	if len(result.Errors) != 0 {
		t.Fatalf("expected mapped destination to be excluded, got %+v", result.Errors)
	}
}
