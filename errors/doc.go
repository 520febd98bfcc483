// Package errors defines the structured error types used throughout the
// bridge. Every failure carries a Phase (where in processing it happened)
// and a Kind (what went wrong), plus an optional path to the offending
// value, so callers can branch on error class without string matching.
package errors
