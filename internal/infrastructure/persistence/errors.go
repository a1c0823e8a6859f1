package persistence

import (
	"github.com/cuotas/backend/internal/domain/shared"
)

// storageError passes domain errors through and wraps anything else as STORAGE_FAILURE
func storageError(op string, err error) error {
	if err == nil {
		return nil
	}
	if shared.KindOf(err) != "" {
		return err
	}
	return shared.NewStorageError(op, err)
}
