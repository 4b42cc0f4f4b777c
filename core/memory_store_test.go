package core

import (
	"context"
	"testing"
	"time"
)

func TestMemoryObjectStoreNamespaces(t *testing.T) {
	store := NewMemoryObjectStore()
	store.Put("team-a", newObject("foo-type", "a", "A"))

	results, err := store.BulkGet(context.Background(), []ObjectKey{{Type: "foo-type", ID: "a"}}, StoreOptions{})
	if err != nil {
		t.Fatalf("bulk get: %v", err)
	}
	if results[0].Found() || !results[0].Error.NotFound() {
		t.Fatalf("expected default namespace to miss, got %+v", results[0])
	}
	results, err = store.BulkGet(context.Background(), []ObjectKey{{Type: "foo-type", ID: "a"}}, StoreOptions{Namespace: "team-a"})
	if err != nil {
		t.Fatalf("bulk get: %v", err)
	}
	if !results[0].Found() || results[0].Object.Title() != "A" {
		t.Fatalf("expected object in team-a, got %+v", results[0])
	}
}

func TestMemoryObjectStoreBulkCreateConflicts(t *testing.T) {
	store := NewMemoryObjectStore()
	fixed := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	store.now = func() time.Time { return fixed }
	store.Put("", newObject("foo-type", "a", "Old"))

	results, err := store.BulkCreate(context.Background(), []SavedObject{
		newObject("foo-type", "a", "New"),
		newObject("foo-type", "b", "B"),
	}, CreateOptions{})
	if err != nil {
		t.Fatalf("bulk create: %v", err)
	}
	if results[0].Error == nil || !results[0].Error.Conflict() {
		t.Fatalf("expected conflict for a, got %+v", results[0])
	}
	if results[1].Error != nil || results[1].Object.UpdatedAt == nil || !results[1].Object.UpdatedAt.Equal(fixed) {
		t.Fatalf("expected b to be created with timestamp, got %+v", results[1])
	}

	results, err = store.BulkCreate(context.Background(), []SavedObject{newObject("foo-type", "a", "New")}, CreateOptions{Overwrite: true})
	if err != nil {
		t.Fatalf("bulk create: %v", err)
	}
	if results[0].Error != nil {
		t.Fatalf("expected overwrite to succeed, got %+v", results[0].Error)
	}
	stored, _ := store.Get("", ObjectKey{Type: "foo-type", ID: "a"})
	if stored.Title() != "New" {
		t.Fatalf("expected overwritten title, got %q", stored.Title())
	}
}

func TestMemoryObjectStoreFindByOriginLimit(t *testing.T) {
	store := NewMemoryObjectStore()
	for i, id := range []string{"one", "two", "three"} {
		store.Put("", SavedObject{Type: "foo-type", ID: id, OriginID: "root", UpdatedAt: timeAt(i)})
	}
	store.Put("", SavedObject{Type: "index-pattern", ID: "other", OriginID: "root"})

	found, err := store.FindByOrigin(context.Background(), OriginQuery{Type: "foo-type", OriginID: "root", Limit: 2})
	if err != nil {
		t.Fatalf("find by origin: %v", err)
	}
	if len(found) != 2 || found[0].ID != "three" || found[1].ID != "two" {
		t.Fatalf("expected two most recent matches, got %+v", found)
	}
}

func TestMemoryTypeRegistry(t *testing.T) {
	registry := NewMemoryTypeRegistry(
		ObjectType{Name: "visible", Management: TypeManagement{ImportableAndExportable: true, Icon: "eye"}},
		ObjectType{Name: "hidden"},
	)
	if err := registry.Register(ObjectType{Name: "  "}); err == nil {
		t.Fatalf("expected empty name to be rejected")
	}
	names := supportedTypeNames(registry)
	if len(names) != 1 || names[0] != "visible" {
		t.Fatalf("expected only importable types, got %v", names)
	}
	if typeIcon(registry, "visible") != "eye" || typeIcon(registry, "missing") != "" {
		t.Fatalf("unexpected icons")
	}
}

func TestDefaultTypeRegistry(t *testing.T) {
	registry := NewDefaultTypeRegistry()
	names := supportedTypeNames(registry)
	if len(names) != len(DefaultObjectTypes()) {
		t.Fatalf("expected every default type to be importable, got %v", names)
	}
	if typeIcon(registry, "dashboard") != "dashboardApp" {
		t.Fatalf("unexpected dashboard icon %q", typeIcon(registry, "dashboard"))
	}
	if _, ok := registry.Type(DefaultDataSourceType); !ok {
		t.Fatalf("expected data source type to be registered")
	}
}
