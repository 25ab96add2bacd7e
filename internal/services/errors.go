// Package services defines the business logic for user records.
// This file centralizes service-level error values so that they can be
// consistently returned by service methods and checked by callers.
//
// Translation into user-facing messages or HTTP status codes is performed at
// the handler layer.
package services

import "errors"

var (
	// ErrInvalidCount is returned when a populate request asks for fewer
	// than one or more than MaxPopulate users.
	ErrInvalidCount = errors.New("count out of range")

	// ErrUserNotFound indicates that the requested user does not exist.
	// Deleting the same id twice yields it on the second call.
	ErrUserNotFound = errors.New("user not found")

	// ErrDuplicateEmail is returned when a generated email collides with an
	// existing one. The whole batch is rolled back.
	ErrDuplicateEmail = errors.New("email already exists")

	// ErrInvalidUser is returned when the generator produces a user that
	// fails validation. It signals a generator defect, not bad input.
	ErrInvalidUser = errors.New("invalid user")
)
