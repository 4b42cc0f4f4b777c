package core

import (
	"sort"
	"strings"
	"sync"
)

// MemoryTypeRegistry holds the saved object types known to the importer.
type MemoryTypeRegistry struct {
	mu    sync.RWMutex
	types map[string]ObjectType
}

func NewMemoryTypeRegistry(types ...ObjectType) *MemoryTypeRegistry {
	registry := &MemoryTypeRegistry{types: map[string]ObjectType{}}
	for _, objectType := range types {
		_ = registry.Register(objectType)
	}
	return registry
}

// DefaultObjectTypes lists the dashboard object types that can be imported
// out of the box.
func DefaultObjectTypes() []ObjectType {
	importable := func(name string, icon string) ObjectType {
		return ObjectType{Name: name, Management: TypeManagement{ImportableAndExportable: true, Icon: icon}}
	}
	return []ObjectType{
		importable("config", "managementApp"),
		importable("index-pattern", "indexPatternApp"),
		importable("search", "discoverApp"),
		importable("visualization", "visualizeApp"),
		importable("visualization-visbuilder", "visBuilder"),
		importable("dashboard", "dashboardApp"),
		importable("augment-vis", "visualizeApp"),
		importable("query", "search"),
		importable("url", "link"),
		importable(DefaultDataSourceType, "database"),
	}
}

func NewDefaultTypeRegistry() *MemoryTypeRegistry {
	return NewMemoryTypeRegistry(DefaultObjectTypes()...)
}

func (r *MemoryTypeRegistry) Register(objectType ObjectType) error {
	if r == nil {
		return importBadInputError("core: type registry is nil", nil)
	}
	name := strings.TrimSpace(objectType.Name)
	if name == "" {
		return importBadInputError("core: object type name is required", nil)
	}
	objectType.Name = name
	r.mu.Lock()
	defer r.mu.Unlock()
	r.types[name] = objectType
	return nil
}

func (r *MemoryTypeRegistry) Type(name string) (ObjectType, bool) {
	if r == nil {
		return ObjectType{}, false
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	objectType, ok := r.types[strings.TrimSpace(name)]
	return objectType, ok
}

func (r *MemoryTypeRegistry) ImportableAndExportableTypes() []ObjectType {
	if r == nil {
		return nil
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]ObjectType, 0, len(r.types))
	for _, objectType := range r.types {
		if objectType.Management.ImportableAndExportable {
			out = append(out, objectType)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].Name < out[j].Name
	})
	return out
}

func supportedTypeNames(registry TypeRegistry) []string {
	if registry == nil {
		return nil
	}
	types := registry.ImportableAndExportableTypes()
	names := make([]string, 0, len(types))
	for _, objectType := range types {
		names = append(names, objectType.Name)
	}
	return names
}

func typeIcon(registry TypeRegistry, name string) string {
	if registry == nil {
		return ""
	}
	objectType, ok := registry.Type(name)
	if !ok {
		return ""
	}
	return objectType.Management.Icon
}
