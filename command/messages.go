package command

import (
	"fmt"
	"strings"

	"github.com/goliatone/go-savedobjects/core"
)

const (
	TypeImport                    = "savedobjects.command.import"
	TypeResolveImportErrors       = "savedobjects.command.resolve_import_errors"
	TypeImportFromSource          = "savedobjects.command.import_from_source"
	TypeResolveImportErrorsSource = "savedobjects.command.resolve_import_errors_from_source"
)

type ImportMessage struct {
	Request core.ImportRequest
}

func (ImportMessage) Type() string { return TypeImport }

func (m ImportMessage) Validate() error {
	return commandWrapValidation(m.Request.Validate(), "command: invalid import request")
}

type ResolveImportErrorsMessage struct {
	Request core.ResolveImportErrorsRequest
}

func (ResolveImportErrorsMessage) Type() string { return TypeResolveImportErrors }

func (m ResolveImportErrorsMessage) Validate() error {
	return commandWrapValidation(m.Request.Validate(), "command: invalid resolve import errors request")
}

// ImportOptions carries every import setting except the stream, so import
// requests can travel through queues and be rebuilt next to the source.
type ImportOptions struct {
	ObjectLimit       int      `json:"object_limit,omitempty"`
	Overwrite         bool     `json:"overwrite,omitempty"`
	Namespace         string   `json:"namespace,omitempty"`
	CreateNewCopies   bool     `json:"create_new_copies,omitempty"`
	DataSourceID      string   `json:"data_source_id,omitempty"`
	DataSourceTitle   string   `json:"data_source_title,omitempty"`
	DataSourceEnabled bool     `json:"data_source_enabled,omitempty"`
	Workspaces        []string `json:"workspaces,omitempty"`
	IsCopy            bool     `json:"is_copy,omitempty"`
}

func (o ImportOptions) Request(stream core.ReadStream) core.ImportRequest {
	return core.ImportRequest{
		ReadStream:        stream,
		ObjectLimit:       o.ObjectLimit,
		Overwrite:         o.Overwrite,
		Namespace:         strings.TrimSpace(o.Namespace),
		CreateNewCopies:   o.CreateNewCopies,
		DataSourceID:      strings.TrimSpace(o.DataSourceID),
		DataSourceTitle:   o.DataSourceTitle,
		DataSourceEnabled: o.DataSourceEnabled,
		Workspaces:        append([]string(nil), o.Workspaces...),
		IsCopy:            o.IsCopy,
	}
}

type ImportFromSourceMessage struct {
	Location string
	Options  ImportOptions
}

func (ImportFromSourceMessage) Type() string { return TypeImportFromSource }

func (m ImportFromSourceMessage) Validate() error {
	if strings.TrimSpace(m.Location) == "" {
		return commandValidationError("location", "location is required")
	}
	if m.Options.ObjectLimit < 0 {
		return commandValidationError("object_limit", "object limit must not be negative")
	}
	if m.Options.Overwrite && m.Options.CreateNewCopies {
		return commandInvalidInputError("command: overwrite and create new copies are mutually exclusive")
	}
	return nil
}

type ResolveImportErrorsFromSourceMessage struct {
	Location        string
	Namespace       string
	ObjectLimit     int
	CreateNewCopies bool
	Retries         []core.Retry
}

func (ResolveImportErrorsFromSourceMessage) Type() string { return TypeResolveImportErrorsSource }

func (m ResolveImportErrorsFromSourceMessage) Validate() error {
	if strings.TrimSpace(m.Location) == "" {
		return commandValidationError("location", "location is required")
	}
	for i, retry := range m.Retries {
		if strings.TrimSpace(retry.Type) == "" || strings.TrimSpace(retry.ID) == "" {
			return commandValidationError(fmt.Sprintf("retries[%d]", i), "retry type and id are required")
		}
	}
	return nil
}

func (m ResolveImportErrorsFromSourceMessage) Request(stream core.ReadStream) core.ResolveImportErrorsRequest {
	return core.ResolveImportErrorsRequest{
		ReadStream:      stream,
		ObjectLimit:     m.ObjectLimit,
		Retries:         append([]core.Retry(nil), m.Retries...),
		Namespace:       strings.TrimSpace(m.Namespace),
		CreateNewCopies: m.CreateNewCopies,
	}
}
