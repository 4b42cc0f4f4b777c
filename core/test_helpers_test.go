package core

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"sync"
	"testing"
	"time"

	glog "github.com/goliatone/go-logger/glog"
)

var testTypeNames = []string{"foo-type", "index-pattern", "search", "visualization", "dashboard", "data-source"}

func testRegistry() *MemoryTypeRegistry {
	registry := NewMemoryTypeRegistry()
	for _, name := range testTypeNames {
		_ = registry.Register(ObjectType{
			Name: name,
			Management: TypeManagement{
				Icon:                    name + "-icon",
				ImportableAndExportable: true,
			},
		})
	}
	return registry
}

func newObject(objectType string, id string, title string, refs ...Reference) SavedObject {
	return SavedObject{
		Type:       objectType,
		ID:         id,
		Attributes: map[string]any{"title": title},
		References: refs,
	}
}

func ref(objectType string, id string) Reference {
	return Reference{Type: objectType, ID: id, Name: objectType + "_" + id}
}

func ndjson(t *testing.T, objects ...SavedObject) io.Reader {
	t.Helper()
	var buf bytes.Buffer
	for _, object := range objects {
		line, err := json.Marshal(object)
		if err != nil {
			t.Fatalf("marshal object %s: %v", object.Key(), err)
		}
		buf.Write(line)
		buf.WriteByte('\n')
	}
	return &buf
}

func sequentialIDs(prefix string) IDGenerator {
	var mu sync.Mutex
	next := 0
	return func() string {
		mu.Lock()
		defer mu.Unlock()
		next++
		return fmt.Sprintf("%s-%d", prefix, next)
	}
}

func newTestService(t *testing.T, store ObjectStore, opts ...Option) *Service {
	t.Helper()
	base := []Option{
		WithObjectStore(store),
		WithTypeRegistry(testRegistry()),
		WithIDGenerator(sequentialIDs("new")),
		WithLogger(glog.Nop()),
	}
	svc, err := NewService(Config{}, append(base, opts...)...)
	if err != nil {
		t.Fatalf("new service: %v", err)
	}
	return svc
}

func timeAt(minute int) *time.Time {
	value := time.Date(2026, 1, 1, 12, minute, 0, 0, time.UTC)
	return &value
}

func errorKinds(errs []ImportError) []ErrorKind {
	out := make([]ErrorKind, 0, len(errs))
	for _, importErr := range errs {
		out = append(out, importErr.Error.Type)
	}
	return out
}

func errorKeys(errs []ImportError) []ObjectKey {
	out := make([]ObjectKey, 0, len(errs))
	for _, importErr := range errs {
		out = append(out, importErr.Key())
	}
	return out
}

// failingStore answers BulkGet and BulkCreate with a fixed per-object error
// for the configured ids.
type failingStore struct {
	*MemoryObjectStore
	getFailures    map[string]*ObjectError
	createFailures map[string]*ObjectError
	err            error
	createCalls    int
	mu             sync.Mutex
}

func newFailingStore() *failingStore {
	return &failingStore{
		MemoryObjectStore: NewMemoryObjectStore(),
		getFailures:       map[string]*ObjectError{},
		createFailures:    map[string]*ObjectError{},
	}
}

func (s *failingStore) BulkGet(ctx context.Context, keys []ObjectKey, opts StoreOptions) ([]BulkGetResult, error) {
	if s.err != nil {
		return nil, s.err
	}
	results, err := s.MemoryObjectStore.BulkGet(ctx, keys, opts)
	if err != nil {
		return nil, err
	}
	for i, result := range results {
		if failure, ok := s.getFailures[result.Key.ID]; ok {
			results[i] = BulkGetResult{Key: result.Key, Error: failure}
		}
	}
	return results, nil
}

func (s *failingStore) BulkCreate(ctx context.Context, objects []SavedObject, opts CreateOptions) ([]BulkCreateResult, error) {
	s.mu.Lock()
	s.createCalls++
	s.mu.Unlock()
	if s.err != nil {
		return nil, s.err
	}
	out := make([]BulkCreateResult, 0, len(objects))
	for _, object := range objects {
		if failure, ok := s.createFailures[object.ID]; ok {
			out = append(out, BulkCreateResult{Object: object, Error: failure})
			continue
		}
		results, err := s.MemoryObjectStore.BulkCreate(ctx, []SavedObject{object}, opts)
		if err != nil {
			return nil, err
		}
		out = append(out, results...)
	}
	return out, nil
}

type stubLogger struct{}

func (stubLogger) Trace(string, ...any) {}
func (stubLogger) Debug(string, ...any) {}
func (stubLogger) Info(string, ...any)  {}
func (stubLogger) Warn(string, ...any)  {}
func (stubLogger) Error(string, ...any) {}
func (stubLogger) Fatal(string, ...any) {}
func (s stubLogger) WithContext(context.Context) Logger {
	return s
}

type stubLoggerProvider struct {
	logger Logger
}

func (s stubLoggerProvider) GetLogger(string) Logger {
	return s.logger
}

type mapRawLoader struct {
	values map[string]any
}

func (l mapRawLoader) LoadRaw(context.Context) (map[string]any, error) {
	if len(l.values) == 0 {
		return map[string]any{}, nil
	}
	out := make(map[string]any, len(l.values))
	for key, value := range l.values {
		out[key] = value
	}
	return out, nil
}
