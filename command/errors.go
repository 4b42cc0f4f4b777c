package command

import (
	"errors"
	"net/http"

	goerrors "github.com/goliatone/go-errors"
	"github.com/goliatone/go-savedobjects/core"
	"github.com/goliatone/go-savedobjects/source"
)

func commandDependencyError(message string) error {
	return goerrors.New(message, goerrors.CategoryInternal).
		WithCode(http.StatusInternalServerError).
		WithTextCode(core.ImportErrorInternal)
}

func commandValidationError(field string, message string) error {
	return goerrors.NewValidation("command: validation failed", goerrors.FieldError{
		Field:   field,
		Message: message,
	}).
		WithCode(http.StatusBadRequest).
		WithTextCode(core.ImportErrorBadInput).
		WithSeverity(goerrors.SeverityError)
}

func commandInvalidInputError(message string) error {
	return goerrors.New(message, goerrors.CategoryBadInput).
		WithCode(http.StatusBadRequest).
		WithTextCode(core.ImportErrorBadInput)
}

func commandWrapValidation(err error, message string) error {
	if err == nil {
		return nil
	}
	return goerrors.Wrap(err, goerrors.CategoryValidation, message).
		WithCode(http.StatusBadRequest).
		WithTextCode(core.ImportErrorBadInput)
}

// commandSourceError reports a missing source as not found and any other
// open failure as an external failure.
func commandSourceError(err error, location string) error {
	if errors.Is(err, source.ErrNotFound) {
		return goerrors.Wrap(err, goerrors.CategoryNotFound, sourceLabel(location)).
			WithCode(http.StatusNotFound).
			WithTextCode(core.ImportErrorBadInput)
	}
	return goerrors.Wrap(err, goerrors.CategoryExternal, sourceLabel(location)).
		WithCode(http.StatusBadGateway).
		WithTextCode(core.ImportErrorStoreFailure)
}
