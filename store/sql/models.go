package sqlstore

import (
	"strings"
	"time"

	"github.com/goliatone/go-savedobjects/core"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

type savedObjectRecord struct {
	bun.BaseModel `bun:"table:saved_objects,alias:so"`

	ID               string            `bun:"id,pk"`
	Namespace        string            `bun:"namespace,notnull"`
	Type             string            `bun:"type,notnull"`
	ObjectID         string            `bun:"object_id,notnull"`
	OriginID         string            `bun:"origin_id,notnull"`
	Attributes       map[string]any    `bun:"attributes,type:jsonb,notnull"`
	References       []core.Reference  `bun:"object_references,type:jsonb,notnull"`
	Workspaces       []string          `bun:"workspaces,type:jsonb,notnull"`
	MigrationVersion map[string]string `bun:"migration_version,type:jsonb,notnull"`
	CreatedAt        time.Time         `bun:"created_at,nullzero,notnull,default:current_timestamp"`
	UpdatedAt        time.Time         `bun:"updated_at,nullzero,notnull,default:current_timestamp"`
}

type dataSourceAssignmentRecord struct {
	bun.BaseModel `bun:"table:data_source_assignments,alias:dsa"`

	ID           string    `bun:"id,pk"`
	Workspace    string    `bun:"workspace,notnull"`
	DataSourceID string    `bun:"data_source_id,notnull"`
	CreatedAt    time.Time `bun:"created_at,nullzero,notnull,default:current_timestamp"`
}

func newSavedObjectRecord(namespace string, object core.SavedObject, workspaces []string, now time.Time) *savedObjectRecord {
	record := &savedObjectRecord{
		ID:               uuid.NewString(),
		Namespace:        namespace,
		Type:             object.Type,
		ObjectID:         object.ID,
		OriginID:         object.OriginID,
		Attributes:       copyAnyMap(object.Attributes),
		References:       append([]core.Reference{}, object.References...),
		Workspaces:       append([]string{}, object.Workspaces...),
		MigrationVersion: copyStringMap(object.MigrationVersion),
		CreatedAt:        now,
		UpdatedAt:        now,
	}
	if len(workspaces) > 0 {
		record.Workspaces = append([]string{}, workspaces...)
	}
	return record
}

func (r *savedObjectRecord) toDomain() core.SavedObject {
	if r == nil {
		return core.SavedObject{}
	}
	updatedAt := r.UpdatedAt.UTC()
	object := core.SavedObject{
		Type:             r.Type,
		ID:               r.ObjectID,
		OriginID:         r.OriginID,
		Attributes:       copyAnyMap(r.Attributes),
		References:       append([]core.Reference{}, r.References...),
		MigrationVersion: copyStringMap(r.MigrationVersion),
		UpdatedAt:        &updatedAt,
	}
	if len(r.Workspaces) > 0 {
		object.Workspaces = append([]string(nil), r.Workspaces...)
	}
	return object
}

func (r *savedObjectRecord) key() core.ObjectKey {
	return core.ObjectKey{Type: r.Type, ID: r.ObjectID}
}

func namespaceOrDefault(namespace string) string {
	namespace = strings.TrimSpace(namespace)
	if namespace == "" {
		return core.DefaultNamespace
	}
	return namespace
}

func copyAnyMap(in map[string]any) map[string]any {
	out := make(map[string]any, len(in))
	for key, value := range in {
		out[key] = value
	}
	return out
}

func copyStringMap(in map[string]string) map[string]string {
	out := make(map[string]string, len(in))
	for key, value := range in {
		out[key] = value
	}
	return out
}
