package store

import (
	"errors"

	"github.com/dmitrymomot/resumekit/pkg/entitlement"
	"github.com/dmitrymomot/resumekit/pkg/pg"
)

var ErrUserExists = errors.New("user already exists")

// storageErr classifies a database error: no rows become ErrNotFound,
// everything else is a retryable ErrStorage.
func storageErr(err error) error {
	switch {
	case err == nil:
		return nil
	case pg.IsNotFoundError(err):
		return entitlement.ErrNotFound
	default:
		return errors.Join(entitlement.ErrStorage, err)
	}
}
