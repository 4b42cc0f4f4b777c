package savedobjects

import (
	"context"
	"fmt"

	gocmd "github.com/goliatone/go-command"

	importcommand "github.com/goliatone/go-savedobjects/command"
	"github.com/goliatone/go-savedobjects/core"
	"github.com/goliatone/go-savedobjects/source"
)

type Commands struct {
	Import                        *importcommand.ImportCommand
	ResolveImportErrors           *importcommand.ResolveImportErrorsCommand
	ImportFromSource              *importcommand.ImportFromSourceCommand
	ResolveImportErrorsFromSource *importcommand.ResolveImportErrorsFromSourceCommand
}

// Facade bundles the import commands around one service and runs them with
// a result collector, so callers get the ImportResult back directly.
type Facade struct {
	service  ImportService
	opener   source.Opener
	commands Commands
}

type FacadeOption func(*facadeOptions)

type facadeOptions struct {
	opener source.Opener
}

// WithSourceOpener sets the opener used by the source commands. Without it
// only local file locations can be imported.
func WithSourceOpener(opener source.Opener) FacadeOption {
	return func(options *facadeOptions) {
		options.opener = opener
	}
}

func NewFacade(service ImportService, opts ...FacadeOption) (*Facade, error) {
	if service == nil {
		return nil, fmt.Errorf("savedobjects: import service is required")
	}
	cfg := facadeOptions{}
	for _, opt := range opts {
		if opt == nil {
			continue
		}
		opt(&cfg)
	}
	opener := cfg.opener
	if opener == nil {
		opener = source.NewRouter().Register("file", source.FileOpener{})
	}

	return &Facade{
		service: service,
		opener:  opener,
		commands: Commands{
			Import:                        importcommand.NewImportCommand(service),
			ResolveImportErrors:           importcommand.NewResolveImportErrorsCommand(service),
			ImportFromSource:              importcommand.NewImportFromSourceCommand(service, opener),
			ResolveImportErrorsFromSource: importcommand.NewResolveImportErrorsFromSourceCommand(service, opener),
		},
	}, nil
}

func (f *Facade) Commands() Commands {
	if f == nil {
		return Commands{}
	}
	return f.commands
}

func (f *Facade) Service() ImportService {
	if f == nil {
		return nil
	}
	return f.service
}

func (f *Facade) Opener() source.Opener {
	if f == nil {
		return nil
	}
	return f.opener
}

func (f *Facade) Import(ctx context.Context, req ImportRequest) (ImportResult, error) {
	if f == nil {
		return ImportResult{}, fmt.Errorf("savedobjects: facade is nil")
	}
	msg := importcommand.ImportMessage{Request: req}
	return runCommand(ctx, f.commands.Import, msg)
}

func (f *Facade) ResolveImportErrors(ctx context.Context, req ResolveImportErrorsRequest) (ImportResult, error) {
	if f == nil {
		return ImportResult{}, fmt.Errorf("savedobjects: facade is nil")
	}
	msg := importcommand.ResolveImportErrorsMessage{Request: req}
	return runCommand(ctx, f.commands.ResolveImportErrors, msg)
}

func (f *Facade) ImportFromSource(ctx context.Context, location string, options importcommand.ImportOptions) (ImportResult, error) {
	if f == nil {
		return ImportResult{}, fmt.Errorf("savedobjects: facade is nil")
	}
	msg := importcommand.ImportFromSourceMessage{Location: location, Options: options}
	return runCommand(ctx, f.commands.ImportFromSource, msg)
}

func (f *Facade) ResolveImportErrorsFromSource(
	ctx context.Context,
	msg importcommand.ResolveImportErrorsFromSourceMessage,
) (ImportResult, error) {
	if f == nil {
		return ImportResult{}, fmt.Errorf("savedobjects: facade is nil")
	}
	return runCommand(ctx, f.commands.ResolveImportErrorsFromSource, msg)
}

type validatedMessage interface {
	Validate() error
}

func runCommand[T validatedMessage](ctx context.Context, cmd gocmd.Commander[T], msg T) (core.ImportResult, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	if err := msg.Validate(); err != nil {
		return core.ImportResult{}, err
	}
	collector := gocmd.NewResult[core.ImportResult]()
	if err := cmd.Execute(gocmd.ContextWithResult(ctx, collector), msg); err != nil {
		return core.ImportResult{}, err
	}
	result, _ := collector.Load()
	return result, nil
}
