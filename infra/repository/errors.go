package repository

import (
	"errors"

	"github.com/amirasaad/sandbank/pkg/domain"
	"gorm.io/gorm"
)

// MapGormErrorToDomain converts GORM errors to domain errors.
// Traverses the error chain to find GORM errors and maps them to appropriate domain errors.
func MapGormErrorToDomain(err error) error {
	if err == nil {
		return nil
	}

	currentErr := err
	for currentErr != nil {
		switch {
		case errors.Is(currentErr, gorm.ErrDuplicatedKey):
			return domain.ErrAlreadyExists
		case errors.Is(currentErr, gorm.ErrRecordNotFound):
			return domain.ErrNotFound
		}
		currentErr = errors.Unwrap(currentErr)
	}

	return err
}

// WrapError runs a GORM operation and maps its error.
//
//	err := WrapError(func() error {
//	    return r.db.WithContext(ctx).Create(&m).Error
//	})
func WrapError(op func() error) error {
	return MapGormErrorToDomain(op())
}

// mapNotFound maps err like MapGormErrorToDomain and replaces a generic
// not found with the entity specific notFound error.
func mapNotFound(err, notFound error) error {
	mapped := MapGormErrorToDomain(err)
	if errors.Is(mapped, domain.ErrNotFound) {
		return notFound
	}
	return mapped
}
