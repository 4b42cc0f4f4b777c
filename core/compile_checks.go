package core

import glog "github.com/goliatone/go-logger/glog"

var (
	_ ImportService       = (*Service)(nil)
	_ ObjectStore         = (*MemoryObjectStore)(nil)
	_ DataSourceDirectory = (*MemoryDataSourceDirectory)(nil)
	_ TypeRegistry        = (*MemoryTypeRegistry)(nil)
	_ ConfigProvider      = (*CfgxConfigProvider)(nil)
	_ OptionsResolver     = GoOptionsResolver{}

	_ Logger         = glog.Nop()
	_ LoggerProvider = glog.ProviderFromLogger(glog.Nop())
)
