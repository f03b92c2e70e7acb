package repositories

import (
	"errors"

	"kb-portal/models"

	"gorm.io/gorm"
)

// notFound converts gorm's missing-row error into models.ErrorNotFound.
func notFound(err error, resource string, key interface{}) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return models.ErrorNotFound{Resource: resource, Key: key}
	}
	return err
}

func isNotFound(err error) bool {
	var nf models.ErrorNotFound
	return errors.As(err, &nf)
}
