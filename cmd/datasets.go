// Copyright (c) 2025 Seedfast
// Licensed under the MIT License. See LICENSE file in the project root for details.

package cmd

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"
)

var (
	datasetsJSON bool
	datasetsAll  bool
)

// datasetsCmd lists the dataset catalog.
var datasetsCmd = &cobra.Command{
	Use:   "datasets",
	Short: "List known datasets",
	Long: `The datasets command lists the entries of the dataset catalog
($XDG_CONFIG_HOME/panelq/datasets.yaml by default). Inactive datasets are hidden
unless --all is given.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := resolveOnly()
		if err != nil {
			return err
		}
		list := a.catalog.Active()
		if datasetsAll {
			list = a.catalog.Datasets
		}

		if datasetsJSON {
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			return enc.Encode(list)
		}
		if len(list) == 0 {
			pterm.Println("No datasets in", cfg.Datasets.File)
			pterm.Println("Run: panelq connect <dataset-id> --name <name>")
			return nil
		}

		data := [][]string{{"ID", "Name", "Active", "Endpoint", "Description"}}
		for _, ds := range list {
			_, source := locateEndpoint(a.catalog, ds.ID)
			if source == "" {
				source = pterm.Yellow("missing")
			}
			active := "yes"
			if !ds.Active {
				active = "no"
			}
			data = append(data, []string{fmt.Sprint(ds.ID), ds.Name, active, source, truncateText(ds.Description, 60)})
		}
		return pterm.DefaultTable.WithHasHeader().WithData(data).Render()
	},
}

func truncateText(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n]) + "..."
}

func init() {
	rootCmd.AddCommand(datasetsCmd)
	datasetsCmd.Flags().BoolVar(&datasetsJSON, "json", false, "Print datasets as JSON")
	datasetsCmd.Flags().BoolVar(&datasetsAll, "all", false, "Include inactive datasets")
}
