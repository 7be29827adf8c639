// Copyright (c) 2025 Seedfast
// Licensed under the MIT License. See LICENSE file in the project root for details.

// Package errors defines typed errors with categories for user-friendly reporting.
// Every failure the query engine can produce carries a machine-readable Kind so that
// callers can tell a rejected batch from a single failed query, and a failed query
// caused by policy from one caused by infrastructure or by the backend itself.
//
// Batch-shape kinds reject a whole batch before anything runs. All other kinds are
// recorded on the individual query result and never abort sibling queries.
package errors

import (
	stderrors "errors"
	"fmt"
)

// Kind is a machine-readable error category.
type Kind string

const (
	// EmptyBatch indicates a batch with zero queries.
	EmptyBatch Kind = "empty_batch"
	// BatchTooLarge indicates a batch above the configured maximum size.
	BatchTooLarge Kind = "batch_too_large"
	// MalformedRequest indicates a batch item without a dataset id or SQL text.
	MalformedRequest Kind = "malformed_request"

	// EmptyQuery indicates SQL text that parses to no statements.
	EmptyQuery Kind = "empty_query"
	// InvalidQuery indicates SQL text the PostgreSQL parser rejects.
	InvalidQuery Kind = "invalid_query"
	// DisallowedStatement indicates a statement whose type is not SELECT.
	DisallowedStatement Kind = "disallowed_statement"
	// DangerousKeyword indicates a denylisted keyword anywhere in the SQL text.
	DangerousKeyword Kind = "dangerous_keyword"

	// DatasetUnavailable indicates an unknown or inactive dataset.
	DatasetUnavailable Kind = "dataset_unavailable"
	// PoolCreationFailed indicates a dataset pool could not be established.
	PoolCreationFailed Kind = "pool_creation_failed"
	// ConnectionFailure indicates a dial, TLS, DNS or timeout problem talking to a dataset.
	ConnectionFailure Kind = "connection_failure"
	// ExecutionFailure indicates the backend rejected or failed the query.
	ExecutionFailure Kind = "execution_failure"

	// Internal indicates a bug, such as a recovered panic inside a query task.
	Internal Kind = "internal"
)

// E wraps an error with kind and human-friendly message.
type E struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *E) Error() string {
	switch {
	case e.Message == "" && e.Err != nil:
		return fmt.Sprintf("%s: %v", e.Kind, e.Err)
	case e.Err != nil:
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	default:
		return fmt.Sprintf("%s: %s", e.Kind, e.Message)
	}
}

func (e *E) Unwrap() error { return e.Err }

func Wrap(kind Kind, msg string, err error) *E { return &E{Kind: kind, Message: msg, Err: err} }
func New(kind Kind, msg string) *E             { return &E{Kind: kind, Message: msg} }

// KindOf returns the kind of the outermost *E in err's chain, or "" when there is none.
func KindOf(err error) Kind {
	var e *E
	if stderrors.As(err, &e) {
		return e.Kind
	}
	return ""
}

// Is reports whether err carries the given kind anywhere in its chain.
func Is(err error, kind Kind) bool {
	for err != nil {
		var e *E
		if !stderrors.As(err, &e) {
			return false
		}
		if e.Kind == kind {
			return true
		}
		err = e.Err
	}
	return false
}

// IsBatchShape reports whether kind rejects a whole batch.
func IsBatchShape(kind Kind) bool {
	switch kind {
	case EmptyBatch, BatchTooLarge, MalformedRequest:
		return true
	}
	return false
}

// Describe renders err for a caller without the kind prefix. Backend errors wrapped
// without a message come out exactly as the backend reported them.
func Describe(err error) string {
	if err == nil {
		return ""
	}
	var e *E
	if !stderrors.As(err, &e) {
		return err.Error()
	}
	switch {
	case e.Message == "" && e.Err != nil:
		return e.Err.Error()
	case e.Err != nil:
		return e.Message + ": " + e.Err.Error()
	default:
		return e.Message
	}
}
