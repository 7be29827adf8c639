// Copyright (c) 2025 Seedfast
// Licensed under the MIT License. See LICENSE file in the project root for details.

package cmd

import (
	"bytes"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"panelq/cli/internal/dispatch"
	"panelq/cli/internal/result"
)

var runOut outputFlags

// runCmd executes a batch file.
var runCmd = &cobra.Command{
	Use:   "run <batch-file|->",
	Short: "Run a batch of queries in parallel",
	Long: `The run command executes every query of a batch file in parallel and prints
one result per query, in file order. A failing query does not stop the others.

The file is YAML or JSON. It is either a list of queries or an object with a
"queries" list:

  queries:
    - dataset_id: 1
      label: Reach by NCCS
      query: SELECT nccs, SUM(weight) FROM viewers GROUP BY nccs
    - dataset_id: 2
      query: SELECT COUNT(*) FROM sessions

Use "-" to read the batch from stdin.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		data, err := readBatchInput(cmd, args[0])
		if err != nil {
			return err
		}
		req, err := parseBatch(data)
		if err != nil {
			return err
		}
		return runBatch(cmd, "run", &runOut, req)
	},
}

func readBatchInput(cmd *cobra.Command, path string) ([]byte, error) {
	if path == "-" {
		return io.ReadAll(cmd.InOrStdin())
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read batch file: %w", err)
	}
	return data, nil
}

// parseBatch accepts a YAML or JSON batch, either as an object with a queries
// list or as a bare list of queries.
func parseBatch(data []byte) (dispatch.BatchRequest, error) {
	var req dispatch.BatchRequest
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 {
		return req, nil
	}

	var node yaml.Node
	if err := yaml.Unmarshal(trimmed, &node); err != nil {
		return req, fmt.Errorf("parse batch: %w", err)
	}
	if len(node.Content) > 0 && node.Content[0].Kind == yaml.SequenceNode {
		var queries []result.Request
		if err := node.Content[0].Decode(&queries); err != nil {
			return req, fmt.Errorf("parse batch: %w", err)
		}
		req.Queries = queries
		return req, nil
	}
	if err := node.Decode(&req); err != nil {
		return req, fmt.Errorf("parse batch: %w", err)
	}
	return req, nil
}

func init() {
	runOut.register(runCmd)
	rootCmd.AddCommand(runCmd)
}
