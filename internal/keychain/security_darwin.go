// Copyright (c) 2025 Seedfast
// Licensed under the MIT License. See LICENSE file in the project root for details.

//go:build darwin

package keychain

import (
	"bytes"
	"fmt"
	"log/slog"
	"os/exec"
	"strings"
)

// securityBackend stores dataset endpoints through the macOS security tool,
// which avoids the per-binary keychain ACL prompts of the native backend.
type securityBackend struct{}

func newSecurityBackend() (*securityBackend, error) {
	if _, err := exec.LookPath("security"); err != nil {
		return nil, fmt.Errorf("security command not found: %w", err)
	}
	return &securityBackend{}, nil
}

// errItemMissing is the stderr fragment security prints for absent items.
const errItemMissing = "could not be found"

// security runs one subcommand against the panelq account and returns
// trimmed stdout. missing reports whether the item did not exist.
func security(args ...string) (out string, missing bool, err error) {
	cmd := exec.Command("security", args...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		msg := strings.TrimSpace(stderr.String())
		if strings.Contains(msg, errItemMissing) {
			return "", true, nil
		}
		return "", false, fmt.Errorf("security %s: %s: %w", args[0], msg, err)
	}
	return strings.TrimSpace(stdout.String()), false, nil
}

// Set stores or replaces an endpoint. Values are never logged.
func (s *securityBackend) Set(key, value string) error {
	_, _, err := security("add-generic-password", "-a", ServiceName, "-s", key, "-w", value, "-U")
	if err != nil {
		return fmt.Errorf("store %q: %w", key, err)
	}
	slog.Debug("keychain set", "key", key, "value_len", len(value))
	return nil
}

func (s *securityBackend) Get(key string) (string, error) {
	value, missing, err := security("find-generic-password", "-a", ServiceName, "-s", key, "-w")
	switch {
	case err != nil:
		return "", fmt.Errorf("read %q: %w", key, err)
	case missing:
		slog.Debug("keychain miss", "key", key)
		return "", ErrNotFound
	}
	return value, nil
}

// Delete removes an endpoint. Deleting an absent key is not an error.
func (s *securityBackend) Delete(key string) error {
	if _, _, err := security("delete-generic-password", "-a", ServiceName, "-s", key); err != nil {
		return fmt.Errorf("delete %q: %w", key, err)
	}
	return nil
}
