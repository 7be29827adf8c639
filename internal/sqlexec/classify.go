// Copyright (c) 2025 Seedfast
// Licensed under the MIT License. See LICENSE file in the project root for details.

package sqlexec

import (
	"context"
	stderrors "errors"
	"fmt"
	"net"
	"strings"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgconn"

	"panelq/cli/internal/errors"
)

// classify maps a driver error onto an error kind. Backend errors keep their text
// verbatim; connection problems become ConnectionFailure.
func classify(err error, commandTimeout time.Duration) error {
	if err == nil {
		return nil
	}
	var typed *errors.E
	if stderrors.As(err, &typed) {
		return err
	}

	var pgErr *pgconn.PgError
	if stderrors.As(err, &pgErr) {
		return errors.Wrap(errors.ExecutionFailure, "", err)
	}
	var connErr *pgconn.ConnectError
	if stderrors.As(err, &connErr) {
		return errors.Wrap(errors.ConnectionFailure, "connect", err)
	}
	if stderrors.Is(err, context.DeadlineExceeded) || pgconn.Timeout(err) {
		return errors.Wrap(errors.ExecutionFailure,
			fmt.Sprintf("query exceeded command timeout of %s", commandTimeout), err)
	}
	if isNetworkError(err) {
		return errors.Wrap(errors.ConnectionFailure, "connection lost", err)
	}
	return errors.Wrap(errors.ExecutionFailure, "", err)
}

// isNetworkError reports dial, DNS, refused, TLS and socket timeout failures.
func isNetworkError(err error) bool {
	var dnsErr *net.DNSError
	if stderrors.As(err, &dnsErr) {
		return true
	}
	var opErr *net.OpError
	if stderrors.As(err, &opErr) {
		return true
	}
	if stderrors.Is(err, syscall.ECONNREFUSED) || stderrors.Is(err, syscall.ECONNRESET) {
		return true
	}
	var netErr net.Error
	if stderrors.As(err, &netErr) && netErr.Timeout() {
		return true
	}

	lower := strings.ToLower(err.Error())
	for _, marker := range []string{"connection refused", "no such host", "tls", "certificate", "handshake", "broken pipe"} {
		if strings.Contains(lower, marker) {
			return true
		}
	}
	return false
}
