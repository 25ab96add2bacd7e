// Package utils provides small, generic helper functions used across
// different layers of the application. These utilities are independent
// of domain or business logic.
package utils

import (
	"strconv"
	"strings"
)

// AtoiDefault converts a string to an int using strconv.Atoi. An empty
// (or all-blank) string yields def; anything else must parse.
//
// Example:
//
//	n, _ := utils.AtoiDefault("42", 0) // 42
//	n, _ = utils.AtoiDefault("", 10)   // 10
//	_, err := utils.AtoiDefault("x", 5) // err != nil
func AtoiDefault(s string, def int) (int, error) {
	if strings.TrimSpace(s) == "" {
		return def, nil
	}
	return strconv.Atoi(s)
}

// ParseID parses a non-negative decimal identifier. Zero is valid input;
// it simply never matches a stored row.
func ParseID(s string) (uint, error) {
	n, err := strconv.ParseUint(s, 10, strconv.IntSize)
	if err != nil {
		return 0, err
	}
	return uint(n), nil
}
