package savedobjects

import (
	"github.com/goliatone/go-savedobjects/core"
	"github.com/goliatone/go-savedobjects/source"
	sqlstore "github.com/goliatone/go-savedobjects/store/sql"
)

// SQLRepositoryFactory returns a factory that builds the SQL stores from the
// persistence client passed to WithPersistenceClient.
func SQLRepositoryFactory(opts ...sqlstore.FactoryOption) *sqlstore.RepositoryFactory {
	return sqlstore.NewRepositoryFactory(opts...)
}

func MemoryObjectStore() *core.MemoryObjectStore {
	return core.NewMemoryObjectStore()
}

func MemoryDataSourceDirectory() *core.MemoryDataSourceDirectory {
	return core.NewMemoryDataSourceDirectory()
}

func FileSource(root string) source.Opener {
	return source.FileOpener{Root: root}
}

func S3Source(cfg source.S3Config) (source.Opener, error) {
	opener, err := source.NewS3Opener(cfg)
	if err != nil {
		return nil, err
	}
	return opener, nil
}

// SourceRouter routes plain and file:// locations to root and s3:// locations
// to s3 when it is set.
func SourceRouter(root string, s3 source.Opener) *source.Router {
	router := source.NewRouter().Register("file", FileSource(root))
	if s3 != nil {
		router.Register("s3", s3)
	}
	return router
}
