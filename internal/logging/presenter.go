// Copyright (c) 2025 Seedfast
// Licensed under the MIT License. See LICENSE file in the project root for details.

package logging

import (
	"fmt"
	"strings"

	"github.com/pterm/pterm"

	"panelq/cli/internal/errors"
)

// PresentError formats an error for user display with masking.
func PresentError(context string, err error) string {
	if err == nil {
		return ""
	}
	return fmt.Sprintf("%s: %s", context, Mask(errors.Describe(err)))
}

// FormatFailure renders a failed query or rejected batch with a title, the likely
// causes for its kind and the masked detail text.
func FormatFailure(kind errors.Kind, detail string) string {
	var b strings.Builder

	b.WriteString(pterm.NewStyle(pterm.FgRed, pterm.Bold).Sprint(failureTitle(kind)))
	b.WriteString("\n")

	switch kind {
	case errors.EmptyBatch, errors.BatchTooLarge, errors.MalformedRequest:
		b.WriteString("The batch was rejected before any query ran.\n")
	case errors.EmptyQuery, errors.InvalidQuery, errors.DisallowedStatement, errors.DangerousKeyword:
		b.WriteString("Only read-only SELECT queries are accepted.\n")
		b.WriteString("Keywords such as DROP, DELETE, UPDATE, INSERT, ALTER, CREATE and TRUNCATE are refused\n")
		b.WriteString("anywhere in the text, including inside column names like updated_at.\n")
	case errors.DatasetUnavailable:
		b.WriteString("The dataset is unknown, inactive or has no stored endpoint.\n")
		b.WriteString("  • Run 'panelq datasets' to list known datasets\n")
		b.WriteString("  • Run 'panelq connect <dataset-id>' to store an endpoint\n")
	case errors.PoolCreationFailed, errors.ConnectionFailure:
		b.WriteString("The dataset database could not be reached.\n")
		b.WriteString("This usually happens when:\n")
		b.WriteString("  • The host is down or unreachable from this machine\n")
		b.WriteString("  • A firewall or proxy closed the connection\n")
		b.WriteString("  • The credentials or TLS settings are wrong\n")
	case errors.ExecutionFailure:
		b.WriteString("The database rejected the query.\n")
	default:
		b.WriteString("An unexpected error occurred.\n")
	}

	if strings.TrimSpace(detail) != "" {
		b.WriteString(pterm.NewStyle(pterm.FgGray).Sprint("Details: " + Mask(detail)))
		b.WriteString("\n")
	}
	return b.String()
}

func failureTitle(kind errors.Kind) string {
	switch kind {
	case errors.EmptyBatch, errors.BatchTooLarge, errors.MalformedRequest:
		return "Batch Rejected"
	case errors.EmptyQuery, errors.InvalidQuery, errors.DisallowedStatement, errors.DangerousKeyword:
		return "Query Not Allowed"
	case errors.DatasetUnavailable:
		return "Dataset Unavailable"
	case errors.PoolCreationFailed, errors.ConnectionFailure:
		return "Connection Failed"
	case errors.ExecutionFailure:
		return "Query Failed"
	default:
		return "Internal Error"
	}
}
