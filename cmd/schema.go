// Copyright (c) 2025 Seedfast
// Licensed under the MIT License. See LICENSE file in the project root for details.

package cmd

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"panelq/cli/internal/dsn"
	"panelq/cli/internal/sqlexec"
)

var schemaJSON bool

// schemaCmd lists the tables and columns of a dataset.
var schemaCmd = &cobra.Command{
	Use:   "schema <dataset-id>",
	Short: "Show the tables and columns of a dataset",
	Long: `The schema command lists the public base tables of a dataset database with
their columns, and reports the first weight and segment columns it recognizes.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := parseDatasetID(args[0])
		if err != nil {
			return err
		}
		a, err := resolveOnly()
		if err != nil {
			return err
		}
		cred, err := a.resolver.Resolve(cmd.Context(), id)
		if err != nil {
			return err
		}

		s, err := sqlexec.InspectEndpoint(cmd.Context(), cred.Endpoint, cfg.Pool, nil)
		if err != nil {
			return err
		}

		if schemaJSON {
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			return enc.Encode(s)
		}

		name := cred.Name
		if name == "" {
			name = dsn.DBName(cred.Endpoint)
		}
		pterm.DefaultHeader.Println(fmt.Sprintf("%s (dataset %d): %d tables", name, id, len(s.Tables)))
		for _, t := range s.Tables {
			pterm.DefaultSection.Println(t.Name)
			data := [][]string{{"Column", "Type", "Nullable"}}
			for _, c := range t.Columns {
				nullable := "✗"
				if c.Nullable {
					nullable = "✓"
				}
				data = append(data, []string{c.Name, c.DataType, nullable})
			}
			if err := pterm.DefaultTable.WithHasHeader().WithData(data).Render(); err != nil {
				return err
			}
		}
		if s.WeightColumn != "" {
			pterm.Info.Println("Weight column:", s.WeightColumn)
		}
		if s.SegmentColumn != "" {
			pterm.Info.Println("Segment column:", s.SegmentColumn, "(A1 merges into A; C, D and E into C/D/E)")
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(schemaCmd)
	schemaCmd.Flags().BoolVar(&schemaJSON, "json", false, "Print the schema as JSON")
}
