package core

import (
	"fmt"
	"net/http"
	"strings"

	goerrors "github.com/goliatone/go-errors"
)

const (
	ImportErrorBadInput     = "IMPORT_BAD_INPUT"
	ImportErrorSizeExceeded = "IMPORT_SIZE_EXCEEDED"
	ImportErrorStoreFailure = "IMPORT_STORE_FAILURE"
	ImportErrorInternal     = "IMPORT_INTERNAL_ERROR"
)

func importSizeExceededError(limit int) *goerrors.Error {
	return newImportError(
		fmt.Sprintf("core: can't import more than %d objects", limit),
		goerrors.CategoryBadInput,
		ImportErrorSizeExceeded,
	)
}

func importBadInputError(message string, metadata map[string]any) *goerrors.Error {
	err := newImportError(message, goerrors.CategoryBadInput, ImportErrorBadInput)
	if len(metadata) > 0 {
		err = err.WithMetadata(metadata)
	}
	return err
}

func importStoreError(err error, message string) *goerrors.Error {
	return ensureImportErrorEnvelope(
		goerrors.Wrap(err, goerrors.CategoryExternal, message).
			WithTextCode(ImportErrorStoreFailure),
	)
}

func importErrorMapper(err error) *goerrors.Error {
	if err == nil {
		return nil
	}

	var richErr *goerrors.Error
	if goerrors.As(err, &richErr) {
		return ensureImportErrorEnvelope(richErr)
	}

	msg := strings.ToLower(strings.TrimSpace(err.Error()))
	switch {
	case strings.Contains(msg, "can't import more than"):
		return newImportError(err.Error(), goerrors.CategoryBadInput, ImportErrorSizeExceeded)
	case strings.Contains(msg, "required"), strings.Contains(msg, "invalid"),
		strings.Contains(msg, "non-unique"), strings.Contains(msg, "must not"):
		return newImportError(err.Error(), goerrors.CategoryBadInput, ImportErrorBadInput)
	}

	mapped := goerrors.MapToError(err, goerrors.DefaultErrorMappers())
	return ensureImportErrorEnvelope(mapped)
}

func newImportError(message string, category goerrors.Category, textCode string) *goerrors.Error {
	return ensureImportErrorEnvelope(
		goerrors.New(message, category).
			WithTextCode(textCode),
	)
}

func ensureImportErrorEnvelope(err *goerrors.Error) *goerrors.Error {
	if err == nil {
		return nil
	}
	if err.Code == 0 {
		err.Code = importHTTPStatus(err.Category)
	}
	if strings.TrimSpace(err.TextCode) == "" {
		err.TextCode = defaultImportTextCode(err.Category)
	}
	if err.Category == goerrors.CategoryInternal && strings.TrimSpace(err.Message) == "" {
		err.Message = "An unexpected error occurred"
	}
	return err
}

func defaultImportTextCode(category goerrors.Category) string {
	switch category {
	case goerrors.CategoryBadInput, goerrors.CategoryValidation:
		return ImportErrorBadInput
	case goerrors.CategoryExternal:
		return ImportErrorStoreFailure
	default:
		return ImportErrorInternal
	}
}

func importHTTPStatus(category goerrors.Category) int {
	switch category {
	case goerrors.CategoryBadInput, goerrors.CategoryValidation:
		return http.StatusBadRequest
	case goerrors.CategoryNotFound:
		return http.StatusNotFound
	case goerrors.CategoryConflict:
		return http.StatusConflict
	case goerrors.CategoryExternal:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}
