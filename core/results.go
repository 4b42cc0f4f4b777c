package core

type resultAssembler struct {
	registry        TypeRegistry
	createNewCopies bool
}

func (a resultAssembler) success(object SavedObject, overwrite bool) ImportSuccess {
	entry := ImportSuccess{
		Type: object.Type,
		ID:   object.ID,
		Meta: ObjectMeta{
			Title: object.Title(),
			Icon:  typeIcon(a.registry, object.Type),
		},
		DestinationID: object.DestinationID,
		Overwrite:     overwrite,
	}
	// A remapped object without lineage was created as a new copy even though
	// copy mode was not requested.
	if object.DestinationID != "" && object.OriginID == "" && !a.createNewCopies {
		entry.CreateNewCopy = true
	}
	return entry
}

func (a resultAssembler) failure(importErr ImportError, pending KeySet) ImportError {
	out := importErr
	out.Meta.Icon = typeIcon(a.registry, importErr.Type)
	if pending.Has(importErr.Key()) {
		out.Overwrite = true
	}
	return out
}

func (a resultAssembler) assemble(created []SavedObject, errs []ImportError, pending KeySet) ImportResult {
	result := ImportResult{
		Success:      len(errs) == 0,
		SuccessCount: len(created),
	}
	if len(created) > 0 {
		result.SuccessResults = make([]ImportSuccess, 0, len(created))
		for _, object := range created {
			result.SuccessResults = append(result.SuccessResults, a.success(object, pending.Has(object.Key())))
		}
	}
	if len(errs) > 0 {
		result.Errors = make([]ImportError, 0, len(errs))
		for _, importErr := range errs {
			result.Errors = append(result.Errors, a.failure(importErr, pending))
		}
	}
	return result
}
