package savedobjects_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/goliatone/go-savedobjects"
	importcommand "github.com/goliatone/go-savedobjects/command"
	"github.com/goliatone/go-savedobjects/core"
)

const compositionObjects = `{"type":"dashboard","id":"dash","attributes":{"title":"Overview"},"references":[]}
{"type":"index-pattern","id":"ip","attributes":{"title":"logs-*"},"references":[]}
{"type":"observability-panel","id":"panel","attributes":{"title":"Latency"},"references":[{"type":"index-pattern","id":"ip","name":"ref_0"}]}
`

func TestComposition_FacadeImportsFromFileWithExtendedTypes(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "export.ndjson"), []byte(compositionObjects), 0o600); err != nil {
		t.Fatalf("write fixture: %v", err)
	}

	hooks := savedobjects.NewExtensionHooks()
	if err := hooks.RegisterTypePack(savedobjects.TypePack{
		Name: "observability",
		Types: []core.ObjectType{{
			Name:       "observability-panel",
			Management: core.TypeManagement{ImportableAndExportable: true, Icon: "panel"},
		}},
	}); err != nil {
		t.Fatalf("register type pack: %v", err)
	}
	registry, err := hooks.TypeRegistry()
	if err != nil {
		t.Fatalf("type registry: %v", err)
	}

	store := savedobjects.MemoryObjectStore()
	svc, err := savedobjects.NewService(savedobjects.DefaultConfig(),
		savedobjects.WithObjectStore(store),
		savedobjects.WithDataSourceDirectory(savedobjects.MemoryDataSourceDirectory()),
		savedobjects.WithTypeRegistry(registry),
	)
	if err != nil {
		t.Fatalf("new service: %v", err)
	}
	facade, err := savedobjects.NewFacade(svc, savedobjects.WithSourceOpener(savedobjects.SourceRouter(dir, nil)))
	if err != nil {
		t.Fatalf("new facade: %v", err)
	}

	result, err := facade.ImportFromSource(context.Background(), "file://export.ndjson", importcommand.ImportOptions{})
	if err != nil {
		t.Fatalf("import from file: %v", err)
	}
	if !result.Success || result.SuccessCount != 3 {
		t.Fatalf("expected three imported objects, got %+v", result)
	}
	for _, success := range result.SuccessResults {
		if success.Type == "observability-panel" && success.Meta.Icon != "panel" {
			t.Fatalf("expected pack icon on success result, got %+v", success)
		}
	}
	if store.Len("") != 3 {
		t.Fatalf("expected three stored objects, got %d", store.Len(""))
	}

	if _, err := facade.ImportFromSource(context.Background(), "s3://bucket/export.ndjson", importcommand.ImportOptions{}); err == nil {
		t.Fatalf("expected s3 location to fail without an s3 opener")
	}
}
