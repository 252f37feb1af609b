package service

import (
	"errors"

	"github.com/whoamaiii/sensetrack/internal/repository"
)

// IsNotFound reports whether err was caused by a missing record.
func IsNotFound(err error) bool {
	return errors.Is(err, repository.ErrNotFound)
}
