// Copyright (c) 2025 Seedfast
// Licensed under the MIT License. See LICENSE file in the project root for details.

package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"panelq/cli/internal/credentials"
	"panelq/cli/internal/keychain"
)

var disconnectDeactivate bool

// disconnectCmd removes a dataset endpoint from the OS keychain.
var disconnectCmd = &cobra.Command{
	Use:   "disconnect <dataset-id>",
	Short: "Remove the stored endpoint of a dataset",
	Long: `The disconnect command deletes the dataset's DSN from the OS keychain. With
--deactivate the dataset is also marked inactive in the catalog, so queries against
it fail with dataset_unavailable even when an environment variable still holds an
endpoint.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := parseDatasetID(args[0])
		if err != nil {
			return err
		}

		if km, err := keychain.GetManager(); err == nil {
			if err := km.ClearDatasetEndpoint(id); err != nil {
				return err
			}
		}

		if disconnectDeactivate {
			catalog, err := credentials.LoadCatalog(cfg.Datasets.File)
			if err != nil {
				return err
			}
			if ds, ok := catalog.Lookup(id); ok {
				ds.Active = false
				catalog.Upsert(ds)
				if err := catalog.Save(cfg.Datasets.File); err != nil {
					return err
				}
			}
		}

		fmt.Printf("✅ Stored endpoint for dataset %d has been removed\n", id)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(disconnectCmd)
	disconnectCmd.Flags().BoolVar(&disconnectDeactivate, "deactivate", false, "Also mark the dataset inactive in the catalog")
}
