package command

import (
	"context"
	"fmt"

	gocmd "github.com/goliatone/go-command"
	"github.com/goliatone/go-savedobjects/core"
	"github.com/goliatone/go-savedobjects/source"
)

type ImportCommand struct {
	service core.ImportService
}

func NewImportCommand(service core.ImportService) *ImportCommand {
	return &ImportCommand{service: service}
}

func (c *ImportCommand) Execute(ctx context.Context, msg ImportMessage) error {
	if c == nil || c.service == nil {
		return commandDependencyError("command: import service is required")
	}
	out, err := c.service.Import(ctx, msg.Request)
	if err != nil {
		return err
	}
	storeResult(ctx, out)
	return nil
}

type ResolveImportErrorsCommand struct {
	service core.ImportService
}

func NewResolveImportErrorsCommand(service core.ImportService) *ResolveImportErrorsCommand {
	return &ResolveImportErrorsCommand{service: service}
}

func (c *ResolveImportErrorsCommand) Execute(ctx context.Context, msg ResolveImportErrorsMessage) error {
	if c == nil || c.service == nil {
		return commandDependencyError("command: import service is required")
	}
	out, err := c.service.ResolveImportErrors(ctx, msg.Request)
	if err != nil {
		return err
	}
	storeResult(ctx, out)
	return nil
}

// ImportFromSourceCommand opens the location with its opener and imports
// the stream. The stream is closed once the import returns.
type ImportFromSourceCommand struct {
	service core.ImportService
	opener  source.Opener
}

func NewImportFromSourceCommand(service core.ImportService, opener source.Opener) *ImportFromSourceCommand {
	return &ImportFromSourceCommand{service: service, opener: opener}
}

func (c *ImportFromSourceCommand) Execute(ctx context.Context, msg ImportFromSourceMessage) error {
	if c == nil || c.service == nil {
		return commandDependencyError("command: import service is required")
	}
	if c.opener == nil {
		return commandDependencyError("command: import source opener is required")
	}
	stream, err := c.opener.Open(ctx, msg.Location)
	if err != nil {
		return commandSourceError(err, msg.Location)
	}
	defer func() { _ = stream.Close() }()

	out, err := c.service.Import(ctx, msg.Options.Request(stream))
	if err != nil {
		return err
	}
	storeResult(ctx, out)
	return nil
}

type ResolveImportErrorsFromSourceCommand struct {
	service core.ImportService
	opener  source.Opener
}

func NewResolveImportErrorsFromSourceCommand(service core.ImportService, opener source.Opener) *ResolveImportErrorsFromSourceCommand {
	return &ResolveImportErrorsFromSourceCommand{service: service, opener: opener}
}

func (c *ResolveImportErrorsFromSourceCommand) Execute(ctx context.Context, msg ResolveImportErrorsFromSourceMessage) error {
	if c == nil || c.service == nil {
		return commandDependencyError("command: import service is required")
	}
	if c.opener == nil {
		return commandDependencyError("command: import source opener is required")
	}
	stream, err := c.opener.Open(ctx, msg.Location)
	if err != nil {
		return commandSourceError(err, msg.Location)
	}
	defer func() { _ = stream.Close() }()

	out, err := c.service.ResolveImportErrors(ctx, msg.Request(stream))
	if err != nil {
		return err
	}
	storeResult(ctx, out)
	return nil
}

func storeResult[T any](ctx context.Context, value T) {
	collector := gocmd.ResultFromContext[T](ctx)
	if collector == nil {
		return
	}
	collector.Store(value)
}

func sourceLabel(location string) string {
	return fmt.Sprintf("command: failed to open import source %q", location)
}
