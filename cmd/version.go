// Copyright (c) 2025 Seedfast
// Licensed under the MIT License. See LICENSE file in the project root for details.

package cmd

// Build metadata, set at build time with
// -ldflags "-X panelq/cli/cmd.Version=... -X panelq/cli/cmd.Commit=...".
var (
	Version = "0.0.0-dev"
	Commit  = "none"
)
