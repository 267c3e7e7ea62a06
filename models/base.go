package models

import (
	"errors"

	"bitbucket.org/mmdatafocus/bakery_backend/utils"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// forUpdate adds SELECT ... FOR UPDATE. Dialects without row locks (sqlite) ignore the clause.
func forUpdate(tx *gorm.DB) *gorm.DB {
	return tx.Clauses(clause.Locking{Strength: "UPDATE"})
}

// fetchOne loads a row by id, translating a missing row into a NotFound error naming label.
func fetchOne[T any](tx *gorm.DB, label string, id int) (*T, error) {
	var result T
	err := tx.First(&result, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, utils.NotFound("%s not found", label)
		}
		return nil, err
	}
	return &result, nil
}

// countWhere counts rows of T matching condition.
func countWhere[T any](tx *gorm.DB, condition string, values ...interface{}) (int64, error) {
	var model T
	var count int64
	if err := tx.Model(&model).Where(condition, values...).Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

// ValidateUnique fails with Conflict when another row of T already holds value in column.
func ValidateUnique[T any](tx *gorm.DB, column string, value interface{}, exceptId int) error {
	var count int64
	var err error
	if exceptId == 0 {
		count, err = countWhere[T](tx, column+" = ?", value)
	} else {
		count, err = countWhere[T](tx, column+" = ? AND id <> ?", value, exceptId)
	}
	if err != nil {
		return err
	}
	if count > 0 {
		return utils.Conflict("duplicate %s", column)
	}
	return nil
}

// uniqueConflict rewords a Conflict from ValidateUnique and passes any other error through.
func uniqueConflict(err error, message string) error {
	if utils.ErrorKind(err) == utils.ErrConflict {
		return utils.Conflict("%s", message)
	}
	return err
}

// translateWriteErr maps unique-key violations that slipped past ValidateUnique to Conflict.
func translateWriteErr(err error, what string) error {
	if err == nil {
		return nil
	}
	if utils.IsDuplicateKeyErr(err) {
		return utils.Conflict("duplicate %s", what)
	}
	return err
}
