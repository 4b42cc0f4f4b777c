package core

import (
	"context"
	"net/http"
	"testing"

	goerrors "github.com/goliatone/go-errors"

	"github.com/goliatone/go-savedobjects/taskqueue"
)

func TestValidateReferencesReportsMissingEnforcedReferences(t *testing.T) {
	store := NewMemoryObjectStore()
	store.Put("ns", newObject("index-pattern", "existing", "Existing"))

	objects := []SavedObject{
		newObject("visualization", "a", "A",
			ref("index-pattern", "existing"),
			ref("index-pattern", "missing"),
			ref("search", "collected"),
			ref("dashboard", "not-enforced"),
		),
		newObject("search", "collected", "Collected"),
		newObject("visualization", "b", "B", ref("search", "gone")),
		newObject("visualization", "c", "C", ref("index-pattern", "missing")),
	}
	errs, err := validateReferences(context.Background(), validateReferencesParams{
		Objects:        objects,
		Store:          store,
		Namespace:      "ns",
		Retries:        []Retry{{Type: "visualization", ID: "c", IgnoreMissingReferences: true}},
		ReferenceTypes: DefaultReferenceTypes,
		BatchSize:      1,
		Queue:          taskqueue.New(2),
	})
	if err != nil {
		t.Fatalf("validate references: %v", err)
	}
	if len(errs) != 2 {
		t.Fatalf("expected 2 errors, got %+v", errs)
	}
	if errs[0].ID != "a" || errs[0].Error.Type != ErrorKindMissingReferences {
		t.Fatalf("unexpected first error: %+v", errs[0])
	}
	if len(errs[0].Error.References) != 1 || errs[0].Error.References[0] != (MissingReference{Type: "index-pattern", ID: "missing"}) {
		t.Fatalf("unexpected missing references: %+v", errs[0].Error.References)
	}
	if errs[1].ID != "b" || errs[1].Error.References[0] != (MissingReference{Type: "search", ID: "gone"}) {
		t.Fatalf("unexpected second error: %+v", errs[1])
	}
}

func TestValidateReferencesSkipsStoreWhenNothingToLookUp(t *testing.T) {
	store := newFailingStore()
	store.err = context.DeadlineExceeded
	errs, err := validateReferences(context.Background(), validateReferencesParams{
		Objects: []SavedObject{
			newObject("search", "s", "S"),
			newObject("visualization", "v", "V", ref("search", "s")),
		},
		Store:          store,
		ReferenceTypes: DefaultReferenceTypes,
	})
	if err != nil {
		t.Fatalf("expected no store call, got %v", err)
	}
	if len(errs) != 0 {
		t.Fatalf("expected no errors, got %+v", errs)
	}
}

func TestValidateReferencesWildcardEnforcesEveryType(t *testing.T) {
	errs, err := validateReferences(context.Background(), validateReferencesParams{
		Objects:        []SavedObject{newObject("dashboard", "d", "D", ref("visualization", "v"))},
		Store:          NewMemoryObjectStore(),
		ReferenceTypes: []string{"*"},
	})
	if err != nil {
		t.Fatalf("validate references: %v", err)
	}
	if len(errs) != 1 || errs[0].Error.References[0].ID != "v" {
		t.Fatalf("expected visualization reference to be enforced, got %+v", errs)
	}
}

func TestValidateReferencesFailsOnLookupErrors(t *testing.T) {
	store := newFailingStore()
	store.getFailures["broken"] = &ObjectError{StatusCode: http.StatusInternalServerError, Error: "Internal", Message: "boom"}

	_, err := validateReferences(context.Background(), validateReferencesParams{
		Objects:        []SavedObject{newObject("visualization", "v", "V", ref("index-pattern", "broken"))},
		Store:          store,
		ReferenceTypes: DefaultReferenceTypes,
	})
	var richErr *goerrors.Error
	if !goerrors.As(err, &richErr) {
		t.Fatalf("expected go-errors error, got %v", err)
	}
	if richErr.TextCode != ImportErrorBadInput {
		t.Fatalf("expected %s, got %s", ImportErrorBadInput, richErr.TextCode)
	}
}

func TestChunkSplitsIntoBatches(t *testing.T) {
	batches := chunk([]int{1, 2, 3, 4, 5}, 2)
	if len(batches) != 3 || len(batches[2]) != 1 || batches[2][0] != 5 {
		t.Fatalf("unexpected batches: %v", batches)
	}
	if got := chunk([]int{1, 2}, 0); len(got) != 1 || len(got[0]) != 2 {
		t.Fatalf("expected a single batch for size 0, got %v", got)
	}
	if got := chunk([]int(nil), 3); got != nil {
		t.Fatalf("expected nil for empty input, got %v", got)
	}
}
