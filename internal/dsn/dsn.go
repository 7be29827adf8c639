// Copyright (c) 2025 Seedfast
// Licensed under the MIT License. See LICENSE file in the project root for details.

// Package dsn parses, validates and canonicalizes PostgreSQL connection endpoints.
// Every place that hands an endpoint to the driver goes through Canonical, so the
// legacy postgres:// scheme and postgresql:// reach the pool layer identically.
package dsn

import (
	"fmt"
	"strings"
)

const (
	schemeCanonical = "postgresql://"
	schemeLegacy    = "postgres://"
)

// Info contains parsed information from a DSN string.
type Info struct {
	Host     string
	Port     string
	User     string
	Password string
	Database string
	Params   map[string]string
	Original string
}

// ParseError represents an error that occurred during DSN parsing.
type ParseError struct {
	DSN    string
	Reason string
	Hint   string
}

func (e *ParseError) Error() string {
	if e.Hint != "" {
		return fmt.Sprintf("invalid DSN format: %s\nHint: %s", e.Reason, e.Hint)
	}
	return fmt.Sprintf("invalid DSN format: %s", e.Reason)
}

func newParseError(dsn, reason, hint string) *ParseError {
	return &ParseError{DSN: dsn, Reason: reason, Hint: hint}
}

// IsPostgres reports whether dsn uses a PostgreSQL URL scheme, in any case.
func IsPostgres(dsn string) bool {
	lower := strings.ToLower(dsn)
	return strings.HasPrefix(lower, schemeLegacy) || strings.HasPrefix(lower, schemeCanonical)
}

// Canonical rewrites a leading postgres:// to postgresql:// and leaves anything
// else untouched.
func Canonical(endpoint string) string {
	if len(endpoint) >= len(schemeLegacy) && strings.EqualFold(endpoint[:len(schemeLegacy)], schemeLegacy) {
		return schemeCanonical + endpoint[len(schemeLegacy):]
	}
	return endpoint
}

// Parse validates dsn and returns it re-encoded in canonical form.
func Parse(dsn string) (string, error) {
	info, err := ParseInfo(dsn)
	if err != nil {
		return "", err
	}
	return info.Normalize(), nil
}

// ParseInfo parses dsn into its parts.
func ParseInfo(dsn string) (*Info, error) {
	if strings.TrimSpace(dsn) == "" {
		return nil, newParseError(dsn, "empty DSN", "provide a valid database connection string")
	}
	if !IsPostgres(dsn) {
		return nil, newParseError(dsn, "unsupported scheme", "use postgres:// or postgresql://")
	}
	return parsePostgres(dsn)
}

// DBName returns the database name of dsn, or "" when it cannot be parsed.
func DBName(dsn string) string {
	info, err := ParseInfo(dsn)
	if err != nil {
		return ""
	}
	return info.Database
}
