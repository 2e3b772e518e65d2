// Package utils provides small, generic helper functions used across
// different layers of the application. These utilities are independent
// of domain or business logic.
package utils

import "strconv"

// AtoiDefault parses s as a decimal int, returning def when s is empty or
// not a valid int (no trimming, overflow included).
//
//	utils.AtoiDefault("42", 0) // 42
//	utils.AtoiDefault("x", 5)  // 5
func AtoiDefault(s string, def int) int {
	if s == "" {
		return def
	}
	if n, err := strconv.Atoi(s); err == nil {
		return n
	}
	return def
}

// ClampPage bounds a 1-based page number and a page size. A page below 1
// becomes 1; a non-positive size becomes defSize; sizes above maxSize are
// capped when maxSize > 0.
func ClampPage(page, size, defSize, maxSize int) (int, int) {
	if page < 1 {
		page = 1
	}
	if size <= 0 {
		size = defSize
	}
	if size <= 0 {
		size = 1
	}
	if maxSize > 0 && size > maxSize {
		size = maxSize
	}
	return page, size
}

// Offset returns the number of rows to skip for a clamped page.
func Offset(page, size int) int {
	return (page - 1) * size
}

// TotalPages returns ceil(total/size), or 0 for an empty result.
func TotalPages(total int64, size int) int {
	if total <= 0 || size <= 0 {
		return 0
	}
	return int((total + int64(size) - 1) / int64(size))
}
