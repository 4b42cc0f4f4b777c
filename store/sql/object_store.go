package sqlstore

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	repository "github.com/goliatone/go-repository-bun"
	"github.com/goliatone/go-savedobjects/core"
	"github.com/uptrace/bun"
)

// ObjectStore persists saved objects in the saved_objects table. Rows are
// unique per (namespace, type, object_id).
type ObjectStore struct {
	db   *bun.DB
	repo repository.Repository[*savedObjectRecord]
	now  func() time.Time
}

func (s *ObjectStore) BulkGet(ctx context.Context, keys []core.ObjectKey, opts core.StoreOptions) ([]core.BulkGetResult, error) {
	if s == nil || s.repo == nil {
		return nil, fmt.Errorf("sqlstore: object store is not configured")
	}
	if len(keys) == 0 {
		return []core.BulkGetResult{}, nil
	}

	ids := make([]string, 0, len(keys))
	seen := map[string]struct{}{}
	for _, key := range keys {
		if _, ok := seen[key.ID]; ok {
			continue
		}
		seen[key.ID] = struct{}{}
		ids = append(ids, key.ID)
	}

	records, _, err := s.repo.List(ctx,
		repository.SelectBy("namespace", "=", namespaceOrDefault(opts.Namespace)),
		repository.SelectRawProcessor(func(q *bun.SelectQuery) *bun.SelectQuery {
			return q.Where("?TableAlias.object_id IN (?)", bun.In(ids))
		}),
	)
	if err != nil {
		return nil, err
	}

	byKey := make(map[core.ObjectKey]*savedObjectRecord, len(records))
	for _, record := range records {
		byKey[record.key()] = record
	}

	out := make([]core.BulkGetResult, 0, len(keys))
	for _, key := range keys {
		record, ok := byKey[key]
		if !ok {
			out = append(out, core.BulkGetResult{Key: key, Error: core.NotFoundObjectError(key)})
			continue
		}
		out = append(out, core.BulkGetResult{Key: key, Object: record.toDomain()})
	}
	return out, nil
}

func (s *ObjectStore) FindByOrigin(ctx context.Context, query core.OriginQuery) ([]core.SavedObject, error) {
	if s == nil || s.repo == nil {
		return nil, fmt.Errorf("sqlstore: object store is not configured")
	}
	originID := query.OriginID
	if strings.TrimSpace(originID) == "" {
		return nil, nil
	}

	criteria := []repository.SelectCriteria{
		repository.SelectBy("namespace", "=", namespaceOrDefault(query.Namespace)),
		repository.SelectBy("type", "=", query.Type),
		repository.SelectRawProcessor(func(q *bun.SelectQuery) *bun.SelectQuery {
			return q.Where("(?TableAlias.object_id = ? OR ?TableAlias.origin_id = ?)", originID, originID).
				OrderExpr("?TableAlias.updated_at DESC, ?TableAlias.object_id ASC")
		}),
	}
	if query.Limit > 0 {
		criteria = append(criteria, repository.SelectPaginate(query.Limit, 0))
	}

	records, _, err := s.repo.List(ctx, criteria...)
	if err != nil {
		return nil, err
	}
	out := make([]core.SavedObject, 0, len(records))
	for _, record := range records {
		out = append(out, record.toDomain())
	}
	return out, nil
}

// BulkCreate writes all objects in one transaction. Objects that already
// exist are reported as conflicts unless opts.Overwrite is set, in which case
// the existing row is replaced in place.
func (s *ObjectStore) BulkCreate(ctx context.Context, objects []core.SavedObject, opts core.CreateOptions) ([]core.BulkCreateResult, error) {
	if s == nil || s.db == nil {
		return nil, fmt.Errorf("sqlstore: object store is not configured")
	}
	if len(objects) == 0 {
		return []core.BulkCreateResult{}, nil
	}
	namespace := namespaceOrDefault(opts.Namespace)
	now := s.clock()

	out := make([]core.BulkCreateResult, 0, len(objects))
	err := s.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		out = out[:0]
		for _, object := range objects {
			key := object.Key()
			if strings.TrimSpace(key.Type) == "" || strings.TrimSpace(key.ID) == "" {
				return fmt.Errorf("sqlstore: saved object type and id are required")
			}
			existing, err := findSavedObjectTx(ctx, tx, namespace, key)
			if err != nil {
				return err
			}
			if existing != nil && !opts.Overwrite {
				out = append(out, core.BulkCreateResult{Object: object, Error: core.ConflictObjectError(key)})
				continue
			}

			record := newSavedObjectRecord(namespace, object, opts.Workspaces, now)
			if existing != nil {
				record.ID = existing.ID
				record.CreatedAt = existing.CreatedAt
				if _, err := tx.NewUpdate().
					Model(record).
					Where("id = ?", existing.ID).
					Exec(ctx); err != nil {
					return err
				}
			} else if _, err := tx.NewInsert().Model(record).Exec(ctx); err != nil {
				return err
			}
			out = append(out, core.BulkCreateResult{Object: record.toDomain()})
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (s *ObjectStore) clock() time.Time {
	if s.now != nil {
		return s.now().UTC()
	}
	return time.Now().UTC()
}

func findSavedObjectTx(ctx context.Context, tx bun.Tx, namespace string, key core.ObjectKey) (*savedObjectRecord, error) {
	record := &savedObjectRecord{}
	err := tx.NewSelect().
		Model(record).
		Where("?TableAlias.namespace = ?", namespace).
		Where("?TableAlias.type = ?", key.Type).
		Where("?TableAlias.object_id = ?", key.ID).
		Limit(1).
		Scan(ctx)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}
	return record, nil
}
