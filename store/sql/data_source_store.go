package sqlstore

import (
	"context"
	"fmt"
	"strings"
	"time"

	repository "github.com/goliatone/go-repository-bun"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// DataSourceStore keeps the workspace to data source assignments used when
// validating imports into a data source.
type DataSourceStore struct {
	db   *bun.DB
	repo repository.Repository[*dataSourceAssignmentRecord]
}

func (s *DataSourceStore) ListDataSources(ctx context.Context, workspace string) ([]string, error) {
	if s == nil || s.repo == nil {
		return nil, fmt.Errorf("sqlstore: data source store is not configured")
	}
	workspace = strings.TrimSpace(workspace)
	if workspace == "" {
		return nil, fmt.Errorf("sqlstore: workspace is required")
	}
	records, _, err := s.repo.List(ctx,
		repository.SelectBy("workspace", "=", workspace),
		repository.SelectRawProcessor(func(q *bun.SelectQuery) *bun.SelectQuery {
			return q.OrderExpr("?TableAlias.created_at ASC, ?TableAlias.data_source_id ASC")
		}),
	)
	if err != nil {
		return nil, err
	}
	out := make([]string, 0, len(records))
	for _, record := range records {
		out = append(out, record.DataSourceID)
	}
	return out, nil
}

// Assign links data sources to a workspace. Existing assignments are kept.
func (s *DataSourceStore) Assign(ctx context.Context, workspace string, dataSourceIDs ...string) error {
	if s == nil || s.db == nil {
		return fmt.Errorf("sqlstore: data source store is not configured")
	}
	workspace = strings.TrimSpace(workspace)
	if workspace == "" {
		return fmt.Errorf("sqlstore: workspace is required")
	}
	now := time.Now().UTC()
	return s.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		for _, id := range dataSourceIDs {
			id = strings.TrimSpace(id)
			if id == "" {
				return fmt.Errorf("sqlstore: data source id is required")
			}
			count, err := tx.NewSelect().
				Model((*dataSourceAssignmentRecord)(nil)).
				Where("?TableAlias.workspace = ?", workspace).
				Where("?TableAlias.data_source_id = ?", id).
				Count(ctx)
			if err != nil {
				return err
			}
			if count > 0 {
				continue
			}
			record := &dataSourceAssignmentRecord{
				ID:           uuid.NewString(),
				Workspace:    workspace,
				DataSourceID: id,
				CreatedAt:    now,
			}
			if _, err := tx.NewInsert().Model(record).Exec(ctx); err != nil {
				return err
			}
		}
		return nil
	})
}
