package utils

import (
	"errors"
	"fmt"
	"strings"

	mysqlDriver "github.com/go-sql-driver/mysql"
	"github.com/shopspring/decimal"
)

// Error kinds. Every expected failure wraps exactly one of these; callers test with errors.Is.
var (
	ErrForbidden         = errors.New("forbidden")
	ErrNotFound          = errors.New("not found")
	ErrValidation        = errors.New("validation error")
	ErrOutOfStock        = errors.New("out of stock")
	ErrInsufficientStock = errors.New("insufficient stock")
	ErrConflict          = errors.New("conflict")
	ErrUnauthorized      = errors.New("unauthorized")
)

// AppError pairs an error kind with a message meant for the caller.
type AppError struct {
	Kind    error
	Message string
}

func NewError(kind error, format string, args ...any) *AppError {
	return &AppError{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

func (e *AppError) Error() string { return e.Message }

func (e *AppError) Unwrap() error { return e.Kind }

func Forbidden(format string, args ...any) error  { return NewError(ErrForbidden, format, args...) }
func NotFound(format string, args ...any) error   { return NewError(ErrNotFound, format, args...) }
func Validation(format string, args ...any) error { return NewError(ErrValidation, format, args...) }
func Conflict(format string, args ...any) error   { return NewError(ErrConflict, format, args...) }
func OutOfStock(format string, args ...any) error { return NewError(ErrOutOfStock, format, args...) }

func Unauthorized(format string, args ...any) error {
	return NewError(ErrUnauthorized, format, args...)
}

// Shortage describes one ingredient that cannot cover a requested amount.
type Shortage struct {
	IngredientId int             `json:"ingredient_id"`
	Name         string          `json:"name"`
	Unit         string          `json:"unit"`
	Required     decimal.Decimal `json:"required"`
	Available    decimal.Decimal `json:"available"`
}

// InsufficientStockError lists every short ingredient, not just the first one.
type InsufficientStockError struct {
	Shortages []Shortage
}

func (e *InsufficientStockError) Error() string {
	if len(e.Shortages) == 0 {
		return "insufficient stock"
	}
	parts := make([]string, 0, len(e.Shortages))
	for _, s := range e.Shortages {
		parts = append(parts, fmt.Sprintf("%s (required %s%s, available %s%s)",
			s.Name, s.Required.String(), s.Unit, s.Available.String(), s.Unit))
	}
	return "insufficient stock: " + strings.Join(parts, ", ")
}

func (e *InsufficientStockError) Unwrap() error { return ErrInsufficientStock }

// ErrorKind returns the matching kind, or nil for internal failures.
func ErrorKind(err error) error {
	for _, kind := range []error{ErrForbidden, ErrNotFound, ErrValidation, ErrOutOfStock, ErrInsufficientStock, ErrConflict, ErrUnauthorized} {
		if errors.Is(err, kind) {
			return kind
		}
	}
	return nil
}

func IsDuplicateKeyErr(err error) bool {
	var mysqlErr *mysqlDriver.MySQLError
	if errors.As(err, &mysqlErr) {
		return mysqlErr.Number == 1062
	}
	// sqlite reports unique violations as plain text
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}

func ErrorPanic(err error) {
	if err != nil {
		panic(err)
	}
}
