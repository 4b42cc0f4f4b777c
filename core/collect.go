package core

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
)

type collectParams struct {
	Reader         io.Reader
	ObjectLimit    int
	SupportedTypes []string
	MaxLineBytes   int
	// Filter drops objects after the type check without reporting an error.
	Filter func(SavedObject) bool
}

type collectResult struct {
	Errors  []ImportError
	Objects []SavedObject
	IDMap   ImportIDMap
}

type ndjsonLine struct {
	SavedObject
	ExportedCount *int `json:"exportedCount,omitempty"`
}

func collectSavedObjects(ctx context.Context, params collectParams) (collectResult, error) {
	if params.Reader == nil {
		return collectResult{}, importBadInputError("core: read stream is required", nil)
	}
	supported := make(map[string]struct{}, len(params.SupportedTypes))
	for _, name := range params.SupportedTypes {
		supported[name] = struct{}{}
	}
	maxLine := params.MaxLineBytes
	if maxLine <= 0 {
		maxLine = DefaultMaxLineBytes
	}

	initial := 64 * 1024
	if initial > maxLine {
		initial = maxLine
	}
	scanner := bufio.NewScanner(params.Reader)
	scanner.Buffer(make([]byte, 0, initial), maxLine)

	result := collectResult{IDMap: ImportIDMap{}}
	seen := map[ObjectKey]int{}
	order := []ObjectKey{}
	count := 0
	lineNumber := 0
	for scanner.Scan() {
		if err := ctx.Err(); err != nil {
			return collectResult{}, err
		}
		lineNumber++
		line := bytes.TrimSpace(scanner.Bytes())
		if len(line) == 0 {
			continue
		}
		var decoded ndjsonLine
		if err := json.Unmarshal(line, &decoded); err != nil {
			return collectResult{}, importBadInputError(
				fmt.Sprintf("core: invalid import object on line %d", lineNumber),
				map[string]any{"line": lineNumber, "cause": err.Error()},
			)
		}
		if decoded.ExportedCount != nil {
			continue
		}
		object := decoded.SavedObject
		if strings.TrimSpace(object.Type) == "" || strings.TrimSpace(object.ID) == "" {
			return collectResult{}, importBadInputError(
				fmt.Sprintf("core: import object on line %d requires type and id", lineNumber),
				map[string]any{"line": lineNumber},
			)
		}

		count++
		if params.ObjectLimit > 0 && count > params.ObjectLimit {
			return collectResult{}, importSizeExceededError(params.ObjectLimit)
		}

		key := object.Key()
		if seen[key] == 0 {
			order = append(order, key)
		}
		seen[key]++

		if _, ok := supported[object.Type]; !ok {
			result.Errors = append(result.Errors, newObjectError(object, ImportErrorDetail{Type: ErrorKindUnsupportedType}))
			continue
		}
		if params.Filter != nil && !params.Filter(object) {
			continue
		}
		if object.MigrationVersion == nil {
			object.MigrationVersion = map[string]string{}
		}
		if object.Attributes == nil {
			object.Attributes = map[string]any{}
		}
		result.IDMap[key] = ImportIDEntry{}
		result.Objects = append(result.Objects, object)
	}
	if err := scanner.Err(); err != nil {
		if errors.Is(err, bufio.ErrTooLong) {
			return collectResult{}, importBadInputError(
				fmt.Sprintf("core: import line %d exceeds %d bytes", lineNumber+1, maxLine),
				map[string]any{"line": lineNumber + 1},
			)
		}
		return collectResult{}, importBadInputError("core: failed to read import stream", map[string]any{"cause": err.Error()})
	}

	duplicates := []string{}
	for _, key := range order {
		if seen[key] > 1 {
			duplicates = append(duplicates, key.String())
		}
	}
	if len(duplicates) > 0 {
		return collectResult{}, importBadInputError(
			fmt.Sprintf("core: non-unique import objects detected: [%s]", strings.Join(duplicates, ",")),
			map[string]any{"objects": duplicates},
		)
	}
	return result, nil
}

// checkDataSourceSupport flags objects that can only be imported when data
// sources are enabled: data source objects, objects referencing one and
// objects whose id carries a data source prefix.
func checkDataSourceSupport(objects []SavedObject, dataSourceType string) []ImportError {
	if dataSourceType == "" {
		dataSourceType = DefaultDataSourceType
	}
	errs := []ImportError{}
	for _, object := range objects {
		if !requiresDataSource(object, dataSourceType) {
			continue
		}
		errs = append(errs, newObjectError(object, ImportErrorDetail{Type: ErrorKindUnsupportedType}))
	}
	return errs
}

func requiresDataSource(object SavedObject, dataSourceType string) bool {
	if object.Type == dataSourceType {
		return true
	}
	for _, ref := range object.References {
		if ref.Type == dataSourceType {
			return true
		}
	}
	_, _, prefixed := splitDataSourceID(object.ID)
	return prefixed
}
