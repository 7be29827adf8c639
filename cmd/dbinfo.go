// Copyright (c) 2025 Seedfast
// Licensed under the MIT License. See LICENSE file in the project root for details.

package cmd

import (
	stderrors "errors"
	"fmt"
	"os"
	"strings"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"panelq/cli/internal/credentials"
	"panelq/cli/internal/dsn"
	"panelq/cli/internal/keychain"
	"panelq/cli/internal/logging"
)

// dbinfoCmd shows where a dataset's endpoint comes from, with the password masked.
var dbinfoCmd = &cobra.Command{
	Use:   "dbinfo <dataset-id>",
	Short: "Show the endpoint configured for a dataset",
	Long: `The dbinfo command displays the connection string (DSN) panelq would use for a
dataset and where it comes from: the catalog, an environment variable or the OS
keychain. The password is masked.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := parseDatasetID(args[0])
		if err != nil {
			return err
		}
		catalog, err := credentials.LoadCatalog(cfg.Datasets.File)
		if err != nil {
			return err
		}

		endpoint, source := locateEndpoint(catalog, id)
		if endpoint == "" {
			pterm.Println("⚠️  No endpoint configured for dataset", id)
			pterm.Printf("   Run: panelq connect %d  (or set %s)\n", id, credentials.EnvVar(id))
			return nil
		}

		body := logging.Mask(endpoint)
		if info, err := dsn.ParseInfo(endpoint); err == nil {
			body = fmt.Sprintf("%s\n\nServer: %s\nUser:   %s", body, info.Display(), info.User)
		}

		title := fmt.Sprintf("Dataset %d", id)
		if ds, ok := catalog.Lookup(id); ok {
			title = fmt.Sprintf("%s (%d)", ds.Name, id)
			if !ds.Active {
				title += " [inactive]"
			}
		}
		pterm.Println("Using endpoint from", source)
		pterm.Println()
		pterm.DefaultBox.
			WithTitle(pterm.NewStyle(pterm.FgCyan, pterm.Bold).Sprint(title)).
			WithPadding(1).
			Println(body)
		pterm.Println()
		pterm.Printf("To update this endpoint, run: panelq connect %d\n", id)
		return nil
	},
}

// locateEndpoint follows the same order as the resolver and names the source.
func locateEndpoint(catalog *credentials.Catalog, id int64) (endpoint, source string) {
	if ds, ok := catalog.Lookup(id); ok {
		if ds.Endpoint != "" {
			return ds.Endpoint, "the dataset catalog"
		}
		if ds.EndpointEnv != "" {
			if v := strings.TrimSpace(os.Getenv(ds.EndpointEnv)); v != "" {
				return v, ds.EndpointEnv + " environment variable"
			}
		}
	}
	if v := strings.TrimSpace(os.Getenv(credentials.EnvVar(id))); v != "" {
		return v, credentials.EnvVar(id) + " environment variable"
	}
	if !cfg.Datasets.Keychain {
		return "", ""
	}
	km, err := keychain.GetManager()
	if err != nil {
		return "", ""
	}
	v, err := km.LoadDatasetEndpoint(id)
	if err != nil {
		if !stderrors.Is(err, keychain.ErrNotFound) {
			logger.Debug("keychain lookup failed", "dataset_id", id, "error", err)
		}
		return "", ""
	}
	return v, "OS keychain"
}

func init() {
	rootCmd.AddCommand(dbinfoCmd)
}
