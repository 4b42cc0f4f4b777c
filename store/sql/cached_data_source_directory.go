package sqlstore

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	repositorycache "github.com/goliatone/go-repository-cache/cache"
)

const dataSourcesCacheKeyPrefix = "go-savedobjects::data_sources::v1"

// DataSourceAssigner lists and assigns the data sources of a workspace.
type DataSourceAssigner interface {
	ListDataSources(ctx context.Context, workspace string) ([]string, error)
	Assign(ctx context.Context, workspace string, dataSourceIDs ...string) error
}

// CachedDataSourceDirectory serves workspace data source lists from a cache
// and invalidates the workspace entry on every assignment.
type CachedDataSourceDirectory struct {
	base  DataSourceAssigner
	cache repositorycache.CacheService
}

func NewCachedDataSourceDirectory(
	base DataSourceAssigner,
	cacheService repositorycache.CacheService,
) (*CachedDataSourceDirectory, error) {
	if base == nil {
		return nil, fmt.Errorf("sqlstore: base data source store is required")
	}
	if cacheService == nil {
		return nil, fmt.Errorf("sqlstore: data source cache service is required")
	}
	return &CachedDataSourceDirectory{base: base, cache: cacheService}, nil
}

// DataSourcesCacheKey returns go-savedobjects::data_sources::v1::<workspace>
// with the workspace URL-path escaped.
func DataSourcesCacheKey(workspace string) (string, error) {
	workspace = strings.TrimSpace(workspace)
	if workspace == "" {
		return "", fmt.Errorf("sqlstore: workspace is required")
	}
	return dataSourcesCacheKeyPrefix + "::" + url.PathEscape(workspace), nil
}

func (d *CachedDataSourceDirectory) ListDataSources(ctx context.Context, workspace string) ([]string, error) {
	if d == nil || d.base == nil || d.cache == nil {
		return nil, fmt.Errorf("sqlstore: cached data source directory is not configured")
	}
	cacheKey, err := DataSourcesCacheKey(workspace)
	if err != nil {
		return nil, err
	}
	workspace = strings.TrimSpace(workspace)
	ids, err := repositorycache.GetOrFetch(ctx, d.cache, cacheKey, func(ctx context.Context) ([]string, error) {
		fetched, fetchErr := d.base.ListDataSources(ctx, workspace)
		if fetchErr != nil {
			return nil, fetchErr
		}
		return append([]string{}, fetched...), nil
	})
	if err != nil {
		return nil, err
	}
	return append([]string{}, ids...), nil
}

func (d *CachedDataSourceDirectory) Assign(ctx context.Context, workspace string, dataSourceIDs ...string) error {
	if d == nil || d.base == nil || d.cache == nil {
		return fmt.Errorf("sqlstore: cached data source directory is not configured")
	}
	cacheKey, err := DataSourcesCacheKey(workspace)
	if err != nil {
		return err
	}
	if err := d.base.Assign(ctx, workspace, dataSourceIDs...); err != nil {
		return err
	}
	return d.cache.Delete(ctx, cacheKey)
}
