package postgres

import (
	"errors"
	"fmt"

	"github.com/fekuna/omnipos-catalog-service/internal/apperr"
	"github.com/lib/pq"
)

const (
	uniqueViolation     = "23505"
	foreignKeyViolation = "23503"
)

// MapError translates constraint violations into apperr kinds and keeps the
// driver error as the cause. Other errors pass through unchanged.
func MapError(err error) error {
	var pqErr *pq.Error
	if !errors.As(err, &pqErr) {
		return err
	}

	switch pqErr.Code {
	case uniqueViolation:
		return fmt.Errorf("%w: %s: %w", apperr.ErrConflict, pqErr.Constraint, err)
	case foreignKeyViolation:
		return fmt.Errorf("%w: %s: %w", apperr.ErrNotFound, pqErr.Constraint, err)
	default:
		return err
	}
}
