// Package handlers defines HTTP-layer error codes used across all endpoints.
//
// Codes are lowercase snake_case. Generic codes mirror HTTP status semantics;
// domain codes name the operation that failed. Clients branch on the code and
// show the "error" text.
package handlers

const (
	ErrCodeBadRequest       = "bad_request"
	ErrCodeNotFound         = "not_found"
	ErrCodeMethodNotAllowed = "method_not_allowed"
	ErrCodeRateLimited      = "too_many_requests"
	ErrCodeInternal         = "internal_error"

	// Domain-specific:
	ErrCodeQueryFailed   = "query_failed"
	ErrCodeDBUnavailable = "db_unavailable"
)
