package gojob

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"

	job "github.com/goliatone/go-job"

	"github.com/goliatone/go-savedobjects/command"
	"github.com/goliatone/go-savedobjects/core"
)

const (
	paramNamespace         = "namespace"
	paramObjectLimit       = "object_limit"
	paramOverwrite         = "overwrite"
	paramCreateNewCopies   = "create_new_copies"
	paramDataSourceID      = "data_source_id"
	paramDataSourceTitle   = "data_source_title"
	paramDataSourceEnabled = "data_source_enabled"
	paramWorkspaces        = "workspaces"
	paramIsCopy            = "is_copy"
	paramRetries           = "retries"

	dedupDrop = job.DeduplicationPolicy("drop")
)

// ImportJobMessage encodes an import from a source location as a go-job
// execution message. The location travels as the script path.
func ImportJobMessage(msg command.ImportFromSourceMessage, idempotencyKey string) (*job.ExecutionMessage, error) {
	if err := msg.Validate(); err != nil {
		return nil, err
	}
	opts := msg.Options
	params := map[string]any{
		paramNamespace:         strings.TrimSpace(opts.Namespace),
		paramObjectLimit:       opts.ObjectLimit,
		paramOverwrite:         opts.Overwrite,
		paramCreateNewCopies:   opts.CreateNewCopies,
		paramDataSourceID:      strings.TrimSpace(opts.DataSourceID),
		paramDataSourceTitle:   opts.DataSourceTitle,
		paramDataSourceEnabled: opts.DataSourceEnabled,
		paramIsCopy:            opts.IsCopy,
	}
	if len(opts.Workspaces) > 0 {
		params[paramWorkspaces] = append([]string(nil), opts.Workspaces...)
	}
	return newExecutionMessage(JobIDImport, msg.Location, params, idempotencyKey), nil
}

// ResolveImportErrorsJobMessage encodes a retry run. Retries are stored as a
// JSON string so they survive queue backends that only keep scalars.
func ResolveImportErrorsJobMessage(msg command.ResolveImportErrorsFromSourceMessage, idempotencyKey string) (*job.ExecutionMessage, error) {
	if err := msg.Validate(); err != nil {
		return nil, err
	}
	retries, err := json.Marshal(msg.Retries)
	if err != nil {
		return nil, fmt.Errorf("gojob: encode retries: %w", err)
	}
	params := map[string]any{
		paramNamespace:       strings.TrimSpace(msg.Namespace),
		paramObjectLimit:     msg.ObjectLimit,
		paramCreateNewCopies: msg.CreateNewCopies,
		paramRetries:         string(retries),
	}
	return newExecutionMessage(JobIDResolveImportErrors, msg.Location, params, idempotencyKey), nil
}

func newExecutionMessage(jobID string, location string, params map[string]any, idempotencyKey string) *job.ExecutionMessage {
	out := &job.ExecutionMessage{
		JobID:          jobID,
		ScriptPath:     strings.TrimSpace(location),
		Parameters:     params,
		IdempotencyKey: strings.TrimSpace(idempotencyKey),
	}
	if out.IdempotencyKey != "" {
		out.DedupPolicy = dedupDrop
	}
	return out
}

// DecodeImportJob rebuilds the import command message from a delivery.
func DecodeImportJob(msg *job.ExecutionMessage) (command.ImportFromSourceMessage, error) {
	if msg == nil {
		return command.ImportFromSourceMessage{}, fmt.Errorf("gojob: execution message is required")
	}
	if strings.TrimSpace(msg.JobID) != JobIDImport {
		return command.ImportFromSourceMessage{}, fmt.Errorf("gojob: unexpected job id %q", msg.JobID)
	}
	params := copyAnyMap(msg.Parameters)
	limit, err := intParam(params, paramObjectLimit)
	if err != nil {
		return command.ImportFromSourceMessage{}, err
	}
	workspaces, err := stringsParam(params, paramWorkspaces)
	if err != nil {
		return command.ImportFromSourceMessage{}, err
	}
	out := command.ImportFromSourceMessage{
		Location: strings.TrimSpace(msg.ScriptPath),
		Options: command.ImportOptions{
			ObjectLimit:       limit,
			Overwrite:         boolParam(params, paramOverwrite),
			Namespace:         stringParam(params, paramNamespace),
			CreateNewCopies:   boolParam(params, paramCreateNewCopies),
			DataSourceID:      stringParam(params, paramDataSourceID),
			DataSourceTitle:   stringParam(params, paramDataSourceTitle),
			DataSourceEnabled: boolParam(params, paramDataSourceEnabled),
			Workspaces:        workspaces,
			IsCopy:            boolParam(params, paramIsCopy),
		},
	}
	return out, out.Validate()
}

// DecodeResolveImportErrorsJob rebuilds the retry command message from a delivery.
func DecodeResolveImportErrorsJob(msg *job.ExecutionMessage) (command.ResolveImportErrorsFromSourceMessage, error) {
	if msg == nil {
		return command.ResolveImportErrorsFromSourceMessage{}, fmt.Errorf("gojob: execution message is required")
	}
	if strings.TrimSpace(msg.JobID) != JobIDResolveImportErrors {
		return command.ResolveImportErrorsFromSourceMessage{}, fmt.Errorf("gojob: unexpected job id %q", msg.JobID)
	}
	params := copyAnyMap(msg.Parameters)
	limit, err := intParam(params, paramObjectLimit)
	if err != nil {
		return command.ResolveImportErrorsFromSourceMessage{}, err
	}
	retries, err := retriesParam(params)
	if err != nil {
		return command.ResolveImportErrorsFromSourceMessage{}, err
	}
	out := command.ResolveImportErrorsFromSourceMessage{
		Location:        strings.TrimSpace(msg.ScriptPath),
		Namespace:       stringParam(params, paramNamespace),
		ObjectLimit:     limit,
		CreateNewCopies: boolParam(params, paramCreateNewCopies),
		Retries:         retries,
	}
	return out, out.Validate()
}

func stringParam(params map[string]any, key string) string {
	switch value := params[key].(type) {
	case string:
		return strings.TrimSpace(value)
	case fmt.Stringer:
		return strings.TrimSpace(value.String())
	default:
		return ""
	}
}

func boolParam(params map[string]any, key string) bool {
	switch value := params[key].(type) {
	case bool:
		return value
	case string:
		parsed, err := strconv.ParseBool(strings.TrimSpace(value))
		return err == nil && parsed
	default:
		return false
	}
}

func intParam(params map[string]any, key string) (int, error) {
	switch value := params[key].(type) {
	case nil:
		return 0, nil
	case int:
		return value, nil
	case int32:
		return int(value), nil
	case int64:
		return int(value), nil
	case float64:
		if value != math.Trunc(value) {
			return 0, fmt.Errorf("gojob: parameter %s must be an integer", key)
		}
		return int(value), nil
	case json.Number:
		parsed, err := value.Int64()
		if err != nil {
			return 0, fmt.Errorf("gojob: parameter %s: %w", key, err)
		}
		return int(parsed), nil
	case string:
		if strings.TrimSpace(value) == "" {
			return 0, nil
		}
		parsed, err := strconv.Atoi(strings.TrimSpace(value))
		if err != nil {
			return 0, fmt.Errorf("gojob: parameter %s: %w", key, err)
		}
		return parsed, nil
	default:
		return 0, fmt.Errorf("gojob: parameter %s has unsupported type %T", key, value)
	}
}

func stringsParam(params map[string]any, key string) ([]string, error) {
	switch value := params[key].(type) {
	case nil:
		return nil, nil
	case []string:
		return append([]string(nil), value...), nil
	case []any:
		out := make([]string, 0, len(value))
		for _, item := range value {
			text, ok := item.(string)
			if !ok {
				return nil, fmt.Errorf("gojob: parameter %s must hold strings", key)
			}
			out = append(out, text)
		}
		return out, nil
	case string:
		if strings.TrimSpace(value) == "" {
			return nil, nil
		}
		parts := strings.Split(value, ",")
		out := make([]string, 0, len(parts))
		for _, part := range parts {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
		return out, nil
	default:
		return nil, fmt.Errorf("gojob: parameter %s has unsupported type %T", key, value)
	}
}

func retriesParam(params map[string]any) ([]core.Retry, error) {
	var raw []byte
	switch value := params[paramRetries].(type) {
	case nil:
		return nil, nil
	case string:
		if strings.TrimSpace(value) == "" {
			return nil, nil
		}
		raw = []byte(value)
	case []core.Retry:
		return append([]core.Retry(nil), value...), nil
	default:
		encoded, err := json.Marshal(value)
		if err != nil {
			return nil, fmt.Errorf("gojob: parameter %s: %w", paramRetries, err)
		}
		raw = encoded
	}
	var retries []core.Retry
	if err := json.Unmarshal(raw, &retries); err != nil {
		return nil, fmt.Errorf("gojob: parameter %s: %w", paramRetries, err)
	}
	return retries, nil
}
