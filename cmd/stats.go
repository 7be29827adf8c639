// Copyright (c) 2025 Seedfast
// Licensed under the MIT License. See LICENSE file in the project root for details.

package cmd

import (
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"time"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"panelq/cli/internal/querylog"
)

var (
	statsDays int
	statsJSON bool
)

// statsCmd summarizes the local query log.
var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Summarize the query log",
	Long: `The stats command reads the local query log and reports totals, success rate,
average execution time and per-dataset counts. Use --days to limit the period.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if cfg.QueryLog.File == "" {
			return fmt.Errorf("query log is disabled (query_log.enabled=false)")
		}
		entries, err := querylog.ReadFile(cfg.QueryLog.File)
		if err != nil {
			return fmt.Errorf("read query log: %w", err)
		}

		var since time.Time
		if statsDays > 0 {
			since = time.Now().AddDate(0, 0, -statsDays)
		}
		st := querylog.Aggregate(entries, since)

		if statsJSON {
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			return enc.Encode(st)
		}

		period := "all time"
		if statsDays > 0 {
			period = fmt.Sprintf("last %d days", statsDays)
		}
		pterm.DefaultSection.Println("Query log, " + period)
		pterm.Printf("Total:        %d\n", st.TotalQueries)
		pterm.Printf("Successful:   %d\n", st.Successful)
		pterm.Printf("Failed:       %d\n", st.Failed)
		pterm.Printf("Success rate: %.1f%%\n", st.SuccessRate)
		pterm.Printf("Average time: %.0fms\n", st.AvgExecutionMillis)

		if len(st.ByDataset) > 0 {
			ids := make([]int64, 0, len(st.ByDataset))
			for id := range st.ByDataset {
				ids = append(ids, id)
			}
			sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
			data := [][]string{{"Dataset", "Queries"}}
			for _, id := range ids {
				data = append(data, []string{fmt.Sprint(id), fmt.Sprint(st.ByDataset[id])})
			}
			pterm.Println()
			if err := pterm.DefaultTable.WithHasHeader().WithData(data).Render(); err != nil {
				return err
			}
		}
		if len(st.ByErrorKind) > 0 {
			pterm.Println()
			kinds := make([]string, 0, len(st.ByErrorKind))
			for kind := range st.ByErrorKind {
				kinds = append(kinds, kind)
			}
			sort.Strings(kinds)
			pterm.Println("Failures by kind:")
			for _, kind := range kinds {
				pterm.Printf("  %s: %d\n", kind, st.ByErrorKind[kind])
			}
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(statsCmd)
	statsCmd.Flags().IntVar(&statsDays, "days", 0, "Only include the last N days (0 = all)")
	statsCmd.Flags().BoolVar(&statsJSON, "json", false, "Print statistics as JSON")
}
