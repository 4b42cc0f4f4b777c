package core

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/google/uuid"
)

// splitDataSourceID splits "<data source uuid>_<raw id>". Only a prefix that
// parses as a UUID counts as a data source prefix.
func splitDataSourceID(id string) (dataSourceID string, rawID string, ok bool) {
	prefix, rest, found := strings.Cut(id, dataSourceIDSeparator)
	if !found || prefix == "" || rest == "" {
		return "", id, false
	}
	if _, err := uuid.Parse(prefix); err != nil {
		return "", id, false
	}
	return prefix, rest, true
}

func prefixDataSourceID(dataSourceID string, rawID string) string {
	if dataSourceID == "" {
		return rawID
	}
	return dataSourceID + dataSourceIDSeparator + rawID
}

type validateDataSourcesParams struct {
	Objects        []SavedObject
	Directory      DataSourceDirectory
	Workspaces     []string
	DataSourceType string
}

// validateDataSources reports objects referencing data sources that are not
// assigned to any of the target workspaces.
func validateDataSources(ctx context.Context, params validateDataSourcesParams) ([]ImportError, error) {
	if len(params.Objects) == 0 || len(params.Workspaces) == 0 {
		return nil, nil
	}
	if params.Directory == nil {
		return nil, importBadInputError("core: data source directory is required to validate data sources", nil)
	}
	dataSourceType := params.DataSourceType
	if dataSourceType == "" {
		dataSourceType = DefaultDataSourceType
	}

	assigned := map[string]struct{}{}
	for _, workspace := range params.Workspaces {
		ids, err := params.Directory.ListDataSources(ctx, workspace)
		if err != nil {
			return nil, importStoreError(err, "core: failed to list workspace data sources")
		}
		for _, id := range ids {
			assigned[id] = struct{}{}
		}
	}

	errs := []ImportError{}
	for _, object := range params.Objects {
		missing := []string{}
		seen := map[string]struct{}{}
		for _, ref := range object.References {
			if ref.Type != dataSourceType {
				continue
			}
			if _, ok := assigned[ref.ID]; ok {
				continue
			}
			if _, dup := seen[ref.ID]; dup {
				continue
			}
			seen[ref.ID] = struct{}{}
			missing = append(missing, ref.ID)
		}
		if len(missing) == 0 {
			continue
		}
		errs = append(errs, newObjectError(object, ImportErrorDetail{
			Type:       ErrorKindMissingDataSource,
			DataSource: strings.Join(missing, ", "),
		}))
	}
	return errs, nil
}

type regenerateIDsParams struct {
	Objects      []SavedObject
	DataSourceID string
	NewID        IDGenerator
}

// regenerateIDs assigns every object a fresh id and drops its origin.
func regenerateIDs(params regenerateIDsParams) ImportIDMap {
	newID := params.NewID
	if newID == nil {
		newID = uuid.NewString
	}
	out := make(ImportIDMap, len(params.Objects))
	for _, object := range params.Objects {
		out[object.Key()] = ImportIDEntry{
			ID:           prefixDataSourceID(params.DataSourceID, newID()),
			OmitOriginID: true,
		}
	}
	return out
}

type dataSourceConflictsParams struct {
	Objects                []SavedObject
	IgnoreRegularConflicts bool
	DataSourceID           string
	DataSourceType         string
	Retries                []Retry
}

type dataSourceConflictsResult struct {
	Errors            []ImportError
	Filtered          []SavedObject
	IDMap             ImportIDMap
	PendingOverwrites KeySet
}

// checkDataSourceConflicts moves objects under the target data source. Data
// source objects themselves are never imported into another data source.
func checkDataSourceConflicts(params dataSourceConflictsParams) dataSourceConflictsResult {
	result := dataSourceConflictsResult{
		IDMap:             ImportIDMap{},
		PendingOverwrites: KeySet{},
	}
	dataSourceType := params.DataSourceType
	if dataSourceType == "" {
		dataSourceType = DefaultDataSourceType
	}
	retries := retryIndex(params.Retries)
	for _, object := range params.Objects {
		if object.Type == dataSourceType {
			continue
		}
		key := object.Key()
		previous, rawID, prefixed := splitDataSourceID(object.ID)
		switch {
		case prefixed && previous == params.DataSourceID:
			result.Filtered = append(result.Filtered, object)
		case prefixed && !params.IgnoreRegularConflicts:
			result.Errors = append(result.Errors, newObjectError(object, ImportErrorDetail{
				Type:          ErrorKindConflict,
				DestinationID: retries[key].DestinationID,
			}))
		case prefixed:
			result.IDMap[key] = ImportIDEntry{
				ID:           prefixDataSourceID(params.DataSourceID, rawID),
				OmitOriginID: true,
			}
			result.PendingOverwrites[key] = struct{}{}
			result.Filtered = append(result.Filtered, object)
		default:
			result.IDMap[key] = ImportIDEntry{
				ID:           prefixDataSourceID(params.DataSourceID, rawID),
				OmitOriginID: params.IgnoreRegularConflicts,
			}
			result.Filtered = append(result.Filtered, object)
		}
	}
	return result
}

// applyDataSourceTarget rewrites an object that is about to be created under
// a data source: index patterns point at the data source, saved searches and
// visualizations point at the prefixed index pattern, and titles of
// user-facing objects carry the data source title.
func applyDataSourceTarget(object SavedObject, dataSourceID string, dataSourceTitle string, dataSourceType string) SavedObject {
	if dataSourceID == "" {
		return object
	}
	if dataSourceType == "" {
		dataSourceType = DefaultDataSourceType
	}
	object = object.Clone()
	switch object.Type {
	case "dashboard", "visualization", "search":
		if title := object.Title(); title != "" && dataSourceTitle != "" {
			object.Attributes["title"] = title + dataSourceIDSeparator + dataSourceTitle
		}
	case "index-pattern":
		object.References = []Reference{{
			ID:   dataSourceID,
			Type: dataSourceType,
			Name: "dataSource",
		}}
	}
	if object.Type == "visualization" || object.Type == "search" {
		object.Attributes = rewriteSearchSourceIndex(object.Attributes, dataSourceID)
	}
	return object
}

func rewriteSearchSourceIndex(attributes map[string]any, dataSourceID string) map[string]any {
	meta, ok := attributes["kibanaSavedObjectMeta"].(map[string]any)
	if !ok {
		return attributes
	}
	raw, ok := meta["searchSourceJSON"].(string)
	if !ok || strings.TrimSpace(raw) == "" {
		return attributes
	}
	searchSource := map[string]any{}
	if err := json.Unmarshal([]byte(raw), &searchSource); err != nil {
		return attributes
	}
	index, ok := searchSource["index"].(string)
	if !ok || index == "" {
		return attributes
	}
	if _, rawIndex, prefixed := splitDataSourceID(index); prefixed {
		index = rawIndex
	}
	searchSource["index"] = prefixDataSourceID(dataSourceID, index)
	encoded, err := json.Marshal(searchSource)
	if err != nil {
		return attributes
	}
	nextMeta := make(map[string]any, len(meta))
	for key, value := range meta {
		nextMeta[key] = value
	}
	nextMeta["searchSourceJSON"] = string(encoded)
	out := copyAnyMap(attributes)
	out["kibanaSavedObjectMeta"] = nextMeta
	return out
}
