package core

import (
	"fmt"
	"strings"
	"time"
)

const (
	DefaultNamespace      = "default"
	DefaultDataSourceType = "data-source"
	dataSourceIDSeparator = "_"
)

type Reference struct {
	Type string `json:"type"`
	ID   string `json:"id"`
	Name string `json:"name"`
}

type SavedObject struct {
	Type             string            `json:"type"`
	ID               string            `json:"id"`
	Attributes       map[string]any    `json:"attributes"`
	References       []Reference       `json:"references"`
	OriginID         string            `json:"originId,omitempty"`
	DestinationID    string            `json:"destinationId,omitempty"`
	Workspaces       []string          `json:"workspaces,omitempty"`
	MigrationVersion map[string]string `json:"migrationVersion,omitempty"`
	UpdatedAt        *time.Time        `json:"updated_at,omitempty"`
}

// Key identifies the object by the type and id it was imported with.
func (o SavedObject) Key() ObjectKey {
	return ObjectKey{Type: o.Type, ID: o.ID}
}

// Title returns attributes.title when present as a string.
func (o SavedObject) Title() string {
	if o.Attributes == nil {
		return ""
	}
	title, _ := o.Attributes["title"].(string)
	return title
}

func (o SavedObject) Clone() SavedObject {
	out := o
	out.Attributes = copyAnyMap(o.Attributes)
	out.References = append([]Reference(nil), o.References...)
	out.Workspaces = append([]string(nil), o.Workspaces...)
	if o.MigrationVersion != nil {
		out.MigrationVersion = make(map[string]string, len(o.MigrationVersion))
		for key, value := range o.MigrationVersion {
			out.MigrationVersion[key] = value
		}
	}
	if o.UpdatedAt != nil {
		value := *o.UpdatedAt
		out.UpdatedAt = &value
	}
	return out
}

// ObjectKey is the composite identity of a saved object. It is comparable and
// used directly as a map key so type or id values containing ':' never collide.
type ObjectKey struct {
	Type string
	ID   string
}

func (k ObjectKey) String() string {
	return k.Type + ":" + k.ID
}

type ImportIDEntry struct {
	ID           string `json:"id,omitempty"`
	OmitOriginID bool   `json:"omitOriginId,omitempty"`
}

// ImportIDMap maps the key an object was imported with to the id it will be
// created under.
type ImportIDMap map[ObjectKey]ImportIDEntry

func (m ImportIDMap) Clone() ImportIDMap {
	out := make(ImportIDMap, len(m))
	for key, entry := range m {
		out[key] = entry
	}
	return out
}

// Merge returns a new map holding m overlaid with next. An entry in next
// without an id never erases an id already assigned in m.
func (m ImportIDMap) Merge(next ImportIDMap) ImportIDMap {
	out := m.Clone()
	for key, entry := range next {
		current, exists := out[key]
		if exists && current.ID != "" && entry.ID == "" {
			current.OmitOriginID = current.OmitOriginID || entry.OmitOriginID
			out[key] = current
			continue
		}
		out[key] = entry
	}
	return out
}

type KeySet map[ObjectKey]struct{}

func NewKeySet(keys ...ObjectKey) KeySet {
	set := make(KeySet, len(keys))
	for _, key := range keys {
		set[key] = struct{}{}
	}
	return set
}

func (s KeySet) Has(key ObjectKey) bool {
	_, ok := s[key]
	return ok
}

func (s KeySet) Union(other KeySet) KeySet {
	out := make(KeySet, len(s)+len(other))
	for key := range s {
		out[key] = struct{}{}
	}
	for key := range other {
		out[key] = struct{}{}
	}
	return out
}

type ErrorKind string

const (
	ErrorKindConflict          ErrorKind = "conflict"
	ErrorKindAmbiguousConflict ErrorKind = "ambiguous_conflict"
	ErrorKindMissingReferences ErrorKind = "missing_references"
	ErrorKindMissingDataSource ErrorKind = "missing_data_source"
	ErrorKindUnsupportedType   ErrorKind = "unsupported_type"
	ErrorKindUnknown           ErrorKind = "unknown"
)

// Resolvable reports whether a retry can fix the error. While any resolvable
// error is pending the import does not write to the store.
func (k ErrorKind) Resolvable() bool {
	switch k {
	case ErrorKindConflict, ErrorKindAmbiguousConflict, ErrorKindMissingReferences:
		return true
	default:
		return false
	}
}

type MissingReference struct {
	Type string `json:"type"`
	ID   string `json:"id"`
}

type ConflictDestination struct {
	ID        string     `json:"id"`
	Title     string     `json:"title,omitempty"`
	UpdatedAt *time.Time `json:"updatedAt,omitempty"`
}

type ImportErrorDetail struct {
	Type          ErrorKind             `json:"type"`
	DestinationID string                `json:"destinationId,omitempty"`
	References    []MissingReference    `json:"references,omitempty"`
	Destinations  []ConflictDestination `json:"destinations,omitempty"`
	DataSource    string                `json:"dataSource,omitempty"`
	StatusCode    int                   `json:"statusCode,omitempty"`
	Message       string                `json:"message,omitempty"`
}

type ObjectMeta struct {
	Title string `json:"title,omitempty"`
	Icon  string `json:"icon,omitempty"`
}

type ImportError struct {
	Type      string            `json:"type"`
	ID        string            `json:"id"`
	Title     string            `json:"title,omitempty"`
	Meta      ObjectMeta        `json:"meta"`
	Error     ImportErrorDetail `json:"error"`
	Overwrite bool              `json:"overwrite,omitempty"`
}

func (e ImportError) Key() ObjectKey {
	return ObjectKey{Type: e.Type, ID: e.ID}
}

func newObjectError(object SavedObject, detail ImportErrorDetail) ImportError {
	title := object.Title()
	return ImportError{
		Type:  object.Type,
		ID:    object.ID,
		Title: title,
		Meta:  ObjectMeta{Title: title},
		Error: detail,
	}
}

type ImportSuccess struct {
	Type          string     `json:"type"`
	ID            string     `json:"id"`
	Meta          ObjectMeta `json:"meta"`
	DestinationID string     `json:"destinationId,omitempty"`
	Overwrite     bool       `json:"overwrite,omitempty"`
	CreateNewCopy bool       `json:"createNewCopy,omitempty"`
}

type ImportResult struct {
	Success        bool            `json:"success"`
	SuccessCount   int             `json:"successCount"`
	SuccessResults []ImportSuccess `json:"successResults,omitempty"`
	Errors         []ImportError   `json:"errors,omitempty"`
}

type ImportRequest struct {
	ReadStream        ReadStream
	ObjectLimit       int
	Overwrite         bool
	Namespace         string
	CreateNewCopies   bool
	DataSourceID      string
	DataSourceTitle   string
	DataSourceEnabled bool
	Workspaces        []string
	IsCopy            bool
}

func (r ImportRequest) Validate() error {
	if r.ReadStream == nil {
		return fmt.Errorf("core: read stream is required")
	}
	if r.ObjectLimit < 0 {
		return fmt.Errorf("core: invalid object limit, must not be negative")
	}
	if r.CreateNewCopies && r.Overwrite {
		return fmt.Errorf("core: overwrite and create new copies are mutually exclusive, invalid request")
	}
	return nil
}

type ReplaceReference struct {
	Type string `json:"type"`
	From string `json:"from"`
	To   string `json:"to"`
}

// Retry describes how one object of a previous import should be resolved.
type Retry struct {
	Type                    string             `json:"type"`
	ID                      string             `json:"id"`
	Overwrite               bool               `json:"overwrite"`
	DestinationID           string             `json:"destinationId,omitempty"`
	ReplaceReferences       []ReplaceReference `json:"replaceReferences"`
	CreateNewCopy           bool               `json:"createNewCopy,omitempty"`
	IgnoreMissingReferences bool               `json:"ignoreMissingReferences,omitempty"`
}

func (r Retry) Key() ObjectKey {
	return ObjectKey{Type: r.Type, ID: r.ID}
}

type ResolveImportErrorsRequest struct {
	ReadStream      ReadStream
	ObjectLimit     int
	Retries         []Retry
	Namespace       string
	CreateNewCopies bool
}

func (r ResolveImportErrorsRequest) Validate() error {
	if r.ReadStream == nil {
		return fmt.Errorf("core: read stream is required")
	}
	if r.ObjectLimit < 0 {
		return fmt.Errorf("core: invalid object limit, must not be negative")
	}
	seen := make(map[ObjectKey]struct{}, len(r.Retries))
	destinations := make(map[ObjectKey]struct{}, len(r.Retries))
	for _, retry := range r.Retries {
		if strings.TrimSpace(retry.Type) == "" || strings.TrimSpace(retry.ID) == "" {
			return fmt.Errorf("core: retry type and id are required")
		}
		if _, ok := seen[retry.Key()]; ok {
			return fmt.Errorf("core: non-unique retry objects: [%s]", retry.Key())
		}
		seen[retry.Key()] = struct{}{}
		if retry.DestinationID == "" {
			continue
		}
		destination := ObjectKey{Type: retry.Type, ID: retry.DestinationID}
		if _, ok := destinations[destination]; ok {
			return fmt.Errorf("core: non-unique retry destinations: [%s]", destination)
		}
		destinations[destination] = struct{}{}
	}
	return nil
}

func retryIndex(retries []Retry) map[ObjectKey]Retry {
	out := make(map[ObjectKey]Retry, len(retries))
	for _, retry := range retries {
		out[retry.Key()] = retry
	}
	return out
}

func copyAnyMap(in map[string]any) map[string]any {
	if len(in) == 0 {
		return map[string]any{}
	}
	out := make(map[string]any, len(in))
	for key, value := range in {
		out[key] = value
	}
	return out
}
