package command

import gocmd "github.com/goliatone/go-command"

var (
	_ gocmd.Commander[ImportMessage]                        = (*ImportCommand)(nil)
	_ gocmd.Commander[ResolveImportErrorsMessage]           = (*ResolveImportErrorsCommand)(nil)
	_ gocmd.Commander[ImportFromSourceMessage]              = (*ImportFromSourceCommand)(nil)
	_ gocmd.Commander[ResolveImportErrorsFromSourceMessage] = (*ResolveImportErrorsFromSourceCommand)(nil)
)
