package sqlstore

import (
	"strings"

	repository "github.com/goliatone/go-repository-bun"
	"github.com/google/uuid"
)

func savedObjectHandlers() repository.ModelHandlers[*savedObjectRecord] {
	return repository.ModelHandlers[*savedObjectRecord]{
		NewRecord: func() *savedObjectRecord {
			return &savedObjectRecord{}
		},
		GetID: func(record *savedObjectRecord) uuid.UUID {
			if record == nil {
				return uuid.Nil
			}
			return parseUUID(record.ID)
		},
		SetID: func(record *savedObjectRecord, id uuid.UUID) {
			if record == nil {
				return
			}
			record.ID = id.String()
		},
		GetIdentifier: func() string {
			return "id"
		},
		GetIdentifierValue: func(record *savedObjectRecord) string {
			if record == nil {
				return ""
			}
			return strings.TrimSpace(record.ID)
		},
	}
}

func dataSourceAssignmentHandlers() repository.ModelHandlers[*dataSourceAssignmentRecord] {
	return repository.ModelHandlers[*dataSourceAssignmentRecord]{
		NewRecord: func() *dataSourceAssignmentRecord {
			return &dataSourceAssignmentRecord{}
		},
		GetID: func(record *dataSourceAssignmentRecord) uuid.UUID {
			if record == nil {
				return uuid.Nil
			}
			return parseUUID(record.ID)
		},
		SetID: func(record *dataSourceAssignmentRecord, id uuid.UUID) {
			if record == nil {
				return
			}
			record.ID = id.String()
		},
		GetIdentifier: func() string {
			return "id"
		},
		GetIdentifierValue: func(record *dataSourceAssignmentRecord) string {
			if record == nil {
				return ""
			}
			return strings.TrimSpace(record.ID)
		},
	}
}

func parseUUID(value string) uuid.UUID {
	parsed, err := uuid.Parse(strings.TrimSpace(value))
	if err != nil {
		return uuid.Nil
	}
	return parsed
}
