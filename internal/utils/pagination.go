// Package utils provides small, generic helper functions used across
// different layers of the application. These utilities are independent
// of domain or business logic.
package utils

import (
	"errors"
	"strconv"
	"strings"
)

// ErrNotNonNegative is returned by ParseNonNegative for input that is not a
// base-10 integer >= 0.
var ErrNotNonNegative = errors.New("must be a non-negative integer")

// ParseNonNegative parses s as a non-negative int. Empty input (after
// trimming) yields def; malformed or negative input is an error so callers
// can reject it instead of silently substituting a default.
//
// Example:
//
//	n, _ := utils.ParseNonNegative("42", 0) // 42
//	n, _ = utils.ParseNonNegative("", 0)    // 0
//	_, err := utils.ParseNonNegative("x", 0) // ErrNotNonNegative
func ParseNonNegative(s string, def int) (int, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return def, nil
	}
	n, err := strconv.Atoi(s)
	if err != nil || n < 0 {
		return 0, ErrNotNonNegative
	}
	return n, nil
}
