// Copyright (c) 2025 Seedfast
// Licensed under the MIT License. See LICENSE file in the project root for details.

package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"panelq/cli/internal/config"
	"panelq/cli/internal/credentials"
	"panelq/cli/internal/dispatch"
	"panelq/cli/internal/keychain"
	"panelq/cli/internal/metrics"
	"panelq/cli/internal/progress"
	"panelq/cli/internal/querylog"
	"panelq/cli/internal/sqlexec"
)

// app is the engine wired from configuration for one command invocation.
type app struct {
	cfg        *config.Config
	log        *slog.Logger
	metrics    *metrics.Metrics
	catalog    *credentials.Catalog
	resolver   *credentials.CatalogResolver
	registry   *sqlexec.Registry
	dispatcher *dispatch.Dispatcher

	sink    *querylog.AsyncSink
	logFile *os.File
}

// newApp builds the engine. tool is recorded as client info on query log entries.
// observer may be nil.
func newApp(tool string, observer progress.Observer) (*app, error) {
	a := &app{cfg: cfg, log: logger}
	if cfg.Metrics.Enabled {
		a.metrics = metrics.New()
	}

	if err := a.loadResolver(); err != nil {
		return nil, err
	}

	var sink querylog.Sink = querylog.Nop{}
	if cfg.QueryLog.Enabled {
		if err := os.MkdirAll(filepath.Dir(cfg.QueryLog.File), 0o700); err != nil {
			return nil, fmt.Errorf("create query log dir: %w", err)
		}
		f, err := querylog.OpenFile(cfg.QueryLog.File)
		if err != nil {
			return nil, fmt.Errorf("open query log: %w", err)
		}
		a.logFile = f
		a.sink = querylog.NewAsyncSink(f, cfg.QueryLog.Buffer, logger, a.metrics)
		sink = a.sink
	}

	a.registry = sqlexec.NewRegistry(cfg.Pool,
		sqlexec.WithRegistryLogger(logger),
		sqlexec.WithRegistryMetrics(a.metrics))
	strategy, err := sqlexec.NewStrategy(cfg, a.registry, logger, a.metrics)
	if err != nil {
		a.Close()
		return nil, err
	}

	a.dispatcher, err = dispatch.New(dispatch.Options{
		Query:      cfg.Query,
		Resolver:   a.resolver,
		Strategy:   strategy,
		Sink:       sink,
		Logger:     logger,
		Metrics:    a.metrics,
		Observer:   observer,
		ClientInfo: map[string]string{"tool": tool},
	})
	if err != nil {
		a.Close()
		return nil, err
	}
	return a, nil
}

// loadResolver reads the dataset catalog and sets up endpoint sources:
// environment first, then the OS keychain when enabled and available.
func (a *app) loadResolver() error {
	catalog, err := credentials.LoadCatalog(a.cfg.Datasets.File)
	if err != nil {
		return err
	}
	a.catalog = catalog

	sources := []credentials.EndpointSource{credentials.EnvSource{}}
	if a.cfg.Datasets.Keychain {
		if km, err := keychain.GetManager(); err == nil {
			sources = append(sources, credentials.KeychainSource{Store: km})
		} else {
			a.log.Debug("keychain unavailable, using environment only", "error", err)
		}
	}
	a.resolver = &credentials.CatalogResolver{Catalog: catalog, Sources: sources}
	return nil
}

// Close releases pools, drains the query log and writes the metrics textfile.
func (a *app) Close() {
	if a.registry != nil {
		a.registry.Close()
	}
	if a.sink != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		if err := a.sink.Close(ctx); err != nil {
			a.log.Warn("query log did not drain", "error", err)
		}
		cancel()
	}
	if a.logFile != nil {
		_ = a.logFile.Close()
	}
	if a.metrics != nil && a.cfg.Metrics.Textfile != "" {
		if err := a.writeMetrics(); err != nil {
			a.log.Warn("write metrics textfile", "error", err)
		}
	}
}

func (a *app) writeMetrics() error {
	if err := os.MkdirAll(filepath.Dir(a.cfg.Metrics.Textfile), 0o700); err != nil {
		return err
	}
	return a.metrics.WriteTextfile(a.cfg.Metrics.Textfile)
}

// resolveOnly builds just the catalog and resolver, for commands that do not
// execute batches.
func resolveOnly() (*app, error) {
	a := &app{cfg: cfg, log: logger}
	if err := a.loadResolver(); err != nil {
		return nil, err
	}
	return a, nil
}
