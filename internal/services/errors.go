// Package services defines the business logic for the water-consumption API.
// This file centralizes service-level error values so handlers can map them
// to HTTP status codes consistently.
package services

import "errors"

// ErrInvalidPage is returned when the requested page offset is negative.
var ErrInvalidPage = errors.New("page must be a non-negative integer")
