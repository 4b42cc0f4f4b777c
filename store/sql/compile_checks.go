package sqlstore

import "github.com/goliatone/go-savedobjects/core"

var (
	_ core.ObjectStore            = (*ObjectStore)(nil)
	_ core.DataSourceDirectory    = (*DataSourceStore)(nil)
	_ core.DataSourceDirectory    = (*CachedDataSourceDirectory)(nil)
	_ DataSourceAssigner          = (*DataSourceStore)(nil)
	_ core.StoreProvider          = (*RepositoryFactory)(nil)
	_ core.RepositoryStoreFactory = (*RepositoryFactory)(nil)
)
