package core

import (
	"context"
	"io"
	"net/http"

	glog "github.com/goliatone/go-logger/glog"
)

type ReadStream = io.Reader

// ObjectError is the per-object failure reported by a store bulk operation.
type ObjectError struct {
	StatusCode int    `json:"statusCode"`
	Error      string `json:"error,omitempty"`
	Message    string `json:"message,omitempty"`
}

func (e *ObjectError) NotFound() bool {
	return e != nil && e.StatusCode == 404
}

func (e *ObjectError) Conflict() bool {
	return e != nil && e.StatusCode == 409
}

func NotFoundObjectError(key ObjectKey) *ObjectError {
	return &ObjectError{
		StatusCode: http.StatusNotFound,
		Error:      "Not Found",
		Message:    "Saved object [" + key.String() + "] not found",
	}
}

func ConflictObjectError(key ObjectKey) *ObjectError {
	return &ObjectError{
		StatusCode: http.StatusConflict,
		Error:      "Conflict",
		Message:    "Saved object [" + key.String() + "] conflict",
	}
}

type BulkGetResult struct {
	Key    ObjectKey
	Object SavedObject
	Error  *ObjectError
}

func (r BulkGetResult) Found() bool {
	return r.Error == nil
}

type BulkCreateResult struct {
	Object SavedObject
	Error  *ObjectError
}

type StoreOptions struct {
	Namespace string
}

type CreateOptions struct {
	Namespace  string
	Overwrite  bool
	Workspaces []string
}

type OriginQuery struct {
	Type      string
	OriginID  string
	Namespace string
	Limit     int
}

// ObjectStore is the destination of an import. BulkGet and BulkCreate must
// return one result per input, in input order.
type ObjectStore interface {
	BulkGet(ctx context.Context, keys []ObjectKey, opts StoreOptions) ([]BulkGetResult, error)
	// FindByOrigin returns objects of the given type whose id or origin id
	// equals the query origin id, most recently updated first.
	FindByOrigin(ctx context.Context, query OriginQuery) ([]SavedObject, error)
	BulkCreate(ctx context.Context, objects []SavedObject, opts CreateOptions) ([]BulkCreateResult, error)
}

// DataSourceDirectory lists the ids of the data sources assigned to a workspace.
type DataSourceDirectory interface {
	ListDataSources(ctx context.Context, workspace string) ([]string, error)
}

type TypeManagement struct {
	Icon                    string
	ImportableAndExportable bool
}

type ObjectType struct {
	Name       string
	Management TypeManagement
}

type TypeRegistry interface {
	ImportableAndExportableTypes() []ObjectType
	Type(name string) (ObjectType, bool)
}

type IDGenerator func() string

type MetricsRecorder interface {
	IncCounter(ctx context.Context, name string, value int64, tags map[string]string)
	ObserveHistogram(ctx context.Context, name string, value float64, tags map[string]string)
}

type ImportService interface {
	Import(ctx context.Context, req ImportRequest) (ImportResult, error)
	ResolveImportErrors(ctx context.Context, req ResolveImportErrorsRequest) (ImportResult, error)
}

type StoreProvider interface {
	ObjectStore() ObjectStore
	DataSourceDirectory() DataSourceDirectory
}

type RepositoryStoreFactory interface {
	BuildStores(persistenceClient any) (StoreProvider, error)
}

type Logger = glog.Logger

type LoggerProvider = glog.LoggerProvider

type FieldsLogger = glog.FieldsLogger
