package repository

import (
	"errors"

	"github.com/Blokmap/backend/internal/apperrors"
	"gorm.io/gorm"
)

// translate maps gorm storage errors onto the core error taxonomy so callers
// never have to import gorm to branch on outcomes.
func translate(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, gorm.ErrRecordNotFound):
		return apperrors.ErrNotFound
	case errors.Is(err, gorm.ErrDuplicatedKey):
		return apperrors.ErrConflict
	default:
		return err
	}
}
