// Package repo implements the data persistence layer for user records,
// backed by GORM. This file provides repository functions for the User model.
//
// All functions are context-aware and accept a *gorm.DB handle, making them
// safe for use within transactions or connection-scoped operations.
// They follow the "thin repository" approach: no business logic, only CRUD
// persistence and query composition.
//
// Error semantics:
//   - When a user is not found, functions return gorm.ErrRecordNotFound
//     (also exported here as ErrNotFound for convenience).
//   - On DB errors (constraint violations, connectivity issues, etc.),
//     the gorm error is propagated; use IsUniqueViolation to detect
//     duplicate emails.
package repo

import (
	"context"
	"errors"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"

	"github.com/tbourn/go-user-records/internal/domain"
)

// ErrNotFound is returned when a requested record does not exist.
// It aliases gorm.ErrRecordNotFound for convenience and consistency
// across the service layer and handlers.
var ErrNotFound = gorm.ErrRecordNotFound

// createBatchSize bounds the rows per INSERT statement.
const createBatchSize = 100

// CreateUsers inserts users in batches. IDs are written back into the
// slice. Callers wanting all-or-nothing semantics pass a transaction handle.
func CreateUsers(ctx context.Context, db *gorm.DB, users []domain.User) error {
	if len(users) == 0 {
		return nil
	}
	return db.WithContext(ctx).CreateInBatches(&users, createBatchSize).Error
}

// QueryUsers returns the users matching f, ordered by id ascending. It
// returns an empty result (not an error) when nothing matches.
func QueryUsers(ctx context.Context, db *gorm.DB, f domain.FilterCriteria) ([]domain.User, error) {
	var out []domain.User
	err := db.WithContext(ctx).
		Scopes(Scope(BuildPredicates(f))).
		Order("id asc").
		Find(&out).Error
	return out, err
}

// GetUser fetches a single user by id, or ErrNotFound if missing.
func GetUser(ctx context.Context, db *gorm.DB, id uint) (*domain.User, error) {
	var u domain.User
	if err := db.WithContext(ctx).First(&u, id).Error; err != nil {
		return nil, err
	}
	return &u, nil
}

// DeleteUser hard-deletes the user with the given id. It returns ErrNotFound
// when no row was affected.
func DeleteUser(ctx context.Context, db *gorm.DB, id uint) error {
	res := db.WithContext(ctx).Delete(&domain.User{}, id)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// IsUniqueViolation reports whether err is a unique-constraint failure from
// any supported dialect.
func IsUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505" // unique_violation
	}
	// glebarez/sqlite often returns plain-text errors for UNIQUE violations.
	low := strings.ToLower(err.Error())
	return strings.Contains(low, "unique constraint failed") ||
		strings.Contains(low, "constraint failed: unique")
}
