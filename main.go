// Copyright (c) 2025 Seedfast
// Licensed under the MIT License. See LICENSE file in the project root for details.

// Package main is the entry point for the panelq CLI.
// It runs read-only query batches against many PostgreSQL datasets.
package main

import (
	"panelq/cli/cmd"
)

func main() {
	cmd.Execute()
}
