package core

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"
)

// MemoryObjectStore is a namespace scoped in-memory ObjectStore.
type MemoryObjectStore struct {
	mu      sync.RWMutex
	objects map[string]map[ObjectKey]SavedObject
	now     func() time.Time
}

func NewMemoryObjectStore() *MemoryObjectStore {
	return &MemoryObjectStore{
		objects: map[string]map[ObjectKey]SavedObject{},
		now:     func() time.Time { return time.Now().UTC() },
	}
}

// Put stores object as is, replacing any object with the same key.
func (s *MemoryObjectStore) Put(namespace string, object SavedObject) {
	if s == nil {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.bucket(namespace)[object.Key()] = object.Clone()
}

func (s *MemoryObjectStore) Get(namespace string, key ObjectKey) (SavedObject, bool) {
	if s == nil {
		return SavedObject{}, false
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	object, ok := s.objects[normalizeNamespace(namespace)][key]
	if !ok {
		return SavedObject{}, false
	}
	return object.Clone(), true
}

func (s *MemoryObjectStore) Len(namespace string) int {
	if s == nil {
		return 0
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.objects[normalizeNamespace(namespace)])
}

func (s *MemoryObjectStore) BulkGet(_ context.Context, keys []ObjectKey, opts StoreOptions) ([]BulkGetResult, error) {
	if s == nil {
		return nil, importBadInputError("core: object store is nil", nil)
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	bucket := s.objects[normalizeNamespace(opts.Namespace)]
	out := make([]BulkGetResult, 0, len(keys))
	for _, key := range keys {
		object, ok := bucket[key]
		if !ok {
			out = append(out, BulkGetResult{Key: key, Error: NotFoundObjectError(key)})
			continue
		}
		out = append(out, BulkGetResult{Key: key, Object: object.Clone()})
	}
	return out, nil
}

func (s *MemoryObjectStore) FindByOrigin(_ context.Context, query OriginQuery) ([]SavedObject, error) {
	if s == nil {
		return nil, importBadInputError("core: object store is nil", nil)
	}
	originID := strings.TrimSpace(query.OriginID)
	if originID == "" {
		return nil, nil
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := []SavedObject{}
	for key, object := range s.objects[normalizeNamespace(query.Namespace)] {
		if key.Type != query.Type {
			continue
		}
		if key.ID == originID || object.OriginID == originID {
			out = append(out, object.Clone())
		}
	}
	sortByUpdatedDesc(out)
	if query.Limit > 0 && len(out) > query.Limit {
		out = out[:query.Limit]
	}
	return out, nil
}

func (s *MemoryObjectStore) BulkCreate(_ context.Context, objects []SavedObject, opts CreateOptions) ([]BulkCreateResult, error) {
	if s == nil {
		return nil, importBadInputError("core: object store is nil", nil)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	bucket := s.bucket(opts.Namespace)
	out := make([]BulkCreateResult, 0, len(objects))
	for _, object := range objects {
		key := object.Key()
		if _, exists := bucket[key]; exists && !opts.Overwrite {
			out = append(out, BulkCreateResult{Object: object, Error: ConflictObjectError(key)})
			continue
		}
		stored := object.Clone()
		stored.DestinationID = ""
		updatedAt := s.now()
		stored.UpdatedAt = &updatedAt
		if len(opts.Workspaces) > 0 {
			stored.Workspaces = append([]string(nil), opts.Workspaces...)
		}
		bucket[key] = stored
		out = append(out, BulkCreateResult{Object: stored.Clone()})
	}
	return out, nil
}

func (s *MemoryObjectStore) bucket(namespace string) map[ObjectKey]SavedObject {
	namespace = normalizeNamespace(namespace)
	bucket, ok := s.objects[namespace]
	if !ok {
		bucket = map[ObjectKey]SavedObject{}
		s.objects[namespace] = bucket
	}
	return bucket
}

// MemoryDataSourceDirectory assigns data source ids to workspaces.
type MemoryDataSourceDirectory struct {
	mu          sync.RWMutex
	assignments map[string][]string
}

func NewMemoryDataSourceDirectory() *MemoryDataSourceDirectory {
	return &MemoryDataSourceDirectory{assignments: map[string][]string{}}
}

func (d *MemoryDataSourceDirectory) Assign(workspace string, dataSourceIDs ...string) {
	if d == nil {
		return
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	d.assignments[workspace] = append(d.assignments[workspace], dataSourceIDs...)
}

func (d *MemoryDataSourceDirectory) ListDataSources(_ context.Context, workspace string) ([]string, error) {
	if d == nil {
		return nil, nil
	}
	d.mu.RLock()
	defer d.mu.RUnlock()
	return append([]string(nil), d.assignments[workspace]...), nil
}

func normalizeNamespace(namespace string) string {
	namespace = strings.TrimSpace(namespace)
	if namespace == "" {
		return DefaultNamespace
	}
	return namespace
}

func sortByUpdatedDesc(objects []SavedObject) {
	sort.SliceStable(objects, func(i, j int) bool {
		left, right := objects[i].UpdatedAt, objects[j].UpdatedAt
		switch {
		case left == nil && right == nil:
			return objects[i].ID < objects[j].ID
		case left == nil:
			return false
		case right == nil:
			return true
		case left.Equal(*right):
			return objects[i].ID < objects[j].ID
		default:
			return left.After(*right)
		}
	})
}
