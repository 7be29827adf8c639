// Copyright (c) 2025 Seedfast
// Licensed under the MIT License. See LICENSE file in the project root for details.

package cmd

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"panelq/cli/internal/dispatch"
	"panelq/cli/internal/result"
)

var (
	queryOut   outputFlags
	queryLabel string
)

// queryCmd runs one query against one dataset.
var queryCmd = &cobra.Command{
	Use:   "query <dataset-id> <sql>",
	Short: "Run a single read-only query",
	Long: `The query command runs one SELECT against one dataset. Raw (non-aggregated)
queries without a LIMIT are capped to a few rows; aggregated queries get a larger cap.

Example: panelq query 3 "SELECT nccs, COUNT(*) FROM viewers GROUP BY nccs"`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := parseDatasetID(args[0])
		if err != nil {
			return err
		}
		req := dispatch.BatchRequest{Queries: []result.Request{{DatasetID: id, SQL: args[1], Label: queryLabel}}}
		return runBatch(cmd, "query", &queryOut, req)
	},
}

func parseDatasetID(s string) (int64, error) {
	id, err := strconv.ParseInt(s, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid dataset id %q: must be a positive integer", s)
	}
	return id, nil
}

func init() {
	queryOut.register(queryCmd)
	queryCmd.Flags().StringVar(&queryLabel, "label", "", "Label shown with the result")
	rootCmd.AddCommand(queryCmd)
}
