package savedobjects

import (
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/goliatone/go-savedobjects/core"
)

// TypePack is a named group of saved object types contributed by a plugin.
type TypePack struct {
	Name  string
	Types []core.ObjectType
}

type CommandBundleFactory func(service ImportService) (any, error)

type ExtensionHooks struct {
	mu sync.RWMutex

	typePacks map[string]TypePack
	bundles   map[string]CommandBundleFactory
}

func NewExtensionHooks() *ExtensionHooks {
	return &ExtensionHooks{
		typePacks: map[string]TypePack{},
		bundles:   map[string]CommandBundleFactory{},
	}
}

func (h *ExtensionHooks) RegisterTypePack(pack TypePack) error {
	if h == nil {
		return fmt.Errorf("savedobjects: extension hooks are nil")
	}
	name := strings.TrimSpace(pack.Name)
	if name == "" {
		return fmt.Errorf("savedobjects: type pack name is required")
	}
	if len(pack.Types) == 0 {
		return fmt.Errorf("savedobjects: type pack %q has no types", name)
	}
	for _, objectType := range pack.Types {
		if strings.TrimSpace(objectType.Name) == "" {
			return fmt.Errorf("savedobjects: type pack %q contains a type without name", name)
		}
	}

	normalized := TypePack{
		Name:  name,
		Types: append([]core.ObjectType(nil), pack.Types...),
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	if _, exists := h.typePacks[name]; exists {
		return fmt.Errorf("savedobjects: type pack %q already registered", name)
	}
	h.typePacks[name] = normalized
	return nil
}

func (h *ExtensionHooks) RegisterCommandBundle(name string, factory CommandBundleFactory) error {
	if h == nil {
		return fmt.Errorf("savedobjects: extension hooks are nil")
	}
	name = strings.TrimSpace(name)
	if name == "" {
		return fmt.Errorf("savedobjects: command bundle name is required")
	}
	if factory == nil {
		return fmt.Errorf("savedobjects: command bundle %q factory is required", name)
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	if _, exists := h.bundles[name]; exists {
		return fmt.Errorf("savedobjects: command bundle %q already registered", name)
	}
	h.bundles[name] = factory
	return nil
}

// ApplyTypePacks registers every pack type in name order. A later pack
// replaces a type of the same name registered by an earlier one.
func (h *ExtensionHooks) ApplyTypePacks(registry *core.MemoryTypeRegistry) error {
	if h == nil {
		return nil
	}
	if registry == nil {
		return fmt.Errorf("savedobjects: type registry is required")
	}
	for _, pack := range h.TypePacks() {
		for _, objectType := range pack.Types {
			if err := registry.Register(objectType); err != nil {
				return err
			}
		}
	}
	return nil
}

// TypeRegistry returns the default types extended with every registered pack.
func (h *ExtensionHooks) TypeRegistry() (*core.MemoryTypeRegistry, error) {
	registry := core.NewDefaultTypeRegistry()
	if err := h.ApplyTypePacks(registry); err != nil {
		return nil, err
	}
	return registry, nil
}

func (h *ExtensionHooks) BuildCommandBundles(service ImportService) (map[string]any, error) {
	if h == nil {
		return map[string]any{}, nil
	}
	if service == nil {
		return nil, fmt.Errorf("savedobjects: import service is required")
	}

	h.mu.RLock()
	names := make([]string, 0, len(h.bundles))
	factories := make(map[string]CommandBundleFactory, len(h.bundles))
	for name, factory := range h.bundles {
		names = append(names, name)
		factories[name] = factory
	}
	h.mu.RUnlock()
	sort.Strings(names)

	result := make(map[string]any, len(names))
	for _, name := range names {
		bundle, err := factories[name](service)
		if err != nil {
			return nil, err
		}
		result[name] = bundle
	}
	return result, nil
}

func (h *ExtensionHooks) TypePacks() []TypePack {
	if h == nil {
		return nil
	}
	h.mu.RLock()
	defer h.mu.RUnlock()

	names := make([]string, 0, len(h.typePacks))
	for name := range h.typePacks {
		names = append(names, name)
	}
	sort.Strings(names)

	out := make([]TypePack, 0, len(names))
	for _, name := range names {
		pack := h.typePacks[name]
		out = append(out, TypePack{
			Name:  pack.Name,
			Types: append([]core.ObjectType(nil), pack.Types...),
		})
	}
	return out
}

func (h *ExtensionHooks) BundleNames() []string {
	if h == nil {
		return nil
	}
	h.mu.RLock()
	defer h.mu.RUnlock()
	names := make([]string, 0, len(h.bundles))
	for name := range h.bundles {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
