package services

import (
	stderrors "errors"
	"fmt"

	"github.com/abrezinsky/galajudge/internal/errors"
	"github.com/abrezinsky/galajudge/internal/repository"
)

// Service errors
var (
	ErrInvalidAccessCode = errors.Forbidden("invalid access code")
	ErrBaseURLNotSet     = errors.Validation("base_url not configured")
	ErrNoTablesSpecified = errors.Validation("no tables specified")
	ErrAlreadySeeded     = errors.Conflict("database already holds galas")
)

// InvalidTableError represents an invalid table name error
type InvalidTableError struct {
	Table string
}

func (e *InvalidTableError) Error() string {
	return fmt.Sprintf("invalid table name: %s", e.Table)
}

// storeErr translates a repository error, naming the missing record on
// ErrNotFound and wrapping everything else as internal.
func storeErr(err error, what string, id int) error {
	if err == nil {
		return nil
	}
	if stderrors.Is(err, repository.ErrNotFound) {
		return errors.NotFoundf("%s %d not found", what, id)
	}
	var appErr *errors.Error
	if stderrors.As(err, &appErr) {
		return err
	}
	return errors.Wrap(err, errors.ErrInternal, "failed to load "+what)
}

func lockedErr() error {
	return errors.Conflict("gala is locked").WithCode(errors.CodeGalaLocked)
}

func submittedErr() error {
	return errors.Conflict("evaluations already submitted for this gala").WithCode(errors.CodeAlreadySubmitted)
}

// closedErr maps a store refusal to the matching write error, or nil when
// err is not a refusal.
func closedErr(err error) error {
	switch {
	case stderrors.Is(err, repository.ErrGalaLocked):
		return lockedErr()
	case stderrors.Is(err, repository.ErrSubmitted):
		return submittedErr()
	}
	return nil
}
