// Package sanitizer normalizes case-record input before validation and
// storage.
//
// All functions are idempotent and never fail: invalid input degrades to an
// empty string or a nil pointer.
//
// Normalization includes:
//   - CUIJ: strip the IPP / EXP / INC filing prefix, collapse whitespace
//   - Free text (caratula, juzgado, objeto): collapse whitespace, trim
package sanitizer
