package storage

import (
	"errors"

	"github.com/seiflawfirm/site/libs/db"
	"github.com/seiflawfirm/site/services/site-service/internal/model"
)

// ErrConflict is returned when a write collides with a unique key.
var ErrConflict = errors.New("conflict")

func IsNotFound(err error) bool {
	return errors.Is(err, model.ErrNotFound) || db.IsNotFound(err)
}

func IsConflict(err error) bool {
	return errors.Is(err, ErrConflict) || errors.Is(err, ErrIdempotencyMismatch) || db.IsUniqueViolation(err)
}
