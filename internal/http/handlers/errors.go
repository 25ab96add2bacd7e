// Package handlers defines HTTP-layer error codes used across all API endpoints.
//
// This file centralizes symbolic error code constants that are mapped to
// responses (via the `fail()` helper in this package). These codes provide
// clients with a stable, machine-readable error taxonomy that supplements
// human-readable messages.
//
// Conventions:
//   - Codes are lowercase, snake_case.
//   - Generic codes mirror common HTTP status semantics.
//   - Operation codes (e.g., populate_failed) mark failures of a specific
//     operation that cannot be conveyed by status alone.
//
// Example response:
//
//	{
//	  "request_id": "e1b9be03-4999-4289-9f03-999b042d65d6",
//	  "code": "query_failed",
//	  "message": "Error fetching users"
//	}
package handlers

const (
	ErrCodeBadRequest       = "bad_request"
	ErrCodeNotFound         = "not_found"
	ErrCodeMethodNotAllowed = "method_not_allowed"
	ErrCodePayloadTooLarge  = "payload_too_large"
	ErrCodeRateLimited      = "too_many_requests"
	ErrCodeInternal         = "internal_error"

	// Operation-specific:
	ErrCodePopulateFailed = "populate_failed"
	ErrCodeQueryFailed    = "query_failed"
	ErrCodeDeleteFailed   = "delete_failed"
)

// User-visible messages for failed operations.
const (
	MsgPopulateFailed = "Error populating database"
	MsgQueryFailed    = "Error fetching users"
	MsgUserNotFound   = "User not found"
	MsgDeleteFailed   = "Error deleting user"
)
