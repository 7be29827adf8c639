// Copyright (c) 2025 Seedfast
// Licensed under the MIT License. See LICENSE file in the project root for details.

package credentials

import (
	"context"
	stderrors "errors"
	"fmt"
	"os"

	"panelq/cli/internal/errors"
	"panelq/cli/internal/keychain"
)

// Credential is what the engine needs to reach a dataset.
type Credential struct {
	DatasetID int64
	Name      string
	Endpoint  string
	Active    bool
}

// Resolver maps a dataset id to its credential. Unknown or inactive datasets fail
// with errors.DatasetUnavailable.
type Resolver interface {
	Resolve(ctx context.Context, datasetID int64) (Credential, error)
}

// ResolverFunc adapts a function to Resolver.
type ResolverFunc func(ctx context.Context, datasetID int64) (Credential, error)

func (f ResolverFunc) Resolve(ctx context.Context, datasetID int64) (Credential, error) {
	return f(ctx, datasetID)
}

// ErrNoEndpoint is returned by an EndpointSource that holds nothing for a dataset.
var ErrNoEndpoint = stderrors.New("no endpoint stored")

// EndpointSource is one place endpoints can be stored.
type EndpointSource interface {
	Endpoint(ctx context.Context, datasetID int64) (string, error)
}

// EnvSource reads PANELQ_DATASET_<ID>_URL.
type EnvSource struct {
	Getenv func(string) string
}

// EnvVar returns the variable name holding the endpoint of a dataset.
func EnvVar(datasetID int64) string {
	return fmt.Sprintf("PANELQ_DATASET_%d_URL", datasetID)
}

func (s EnvSource) Endpoint(_ context.Context, datasetID int64) (string, error) {
	getenv := s.Getenv
	if getenv == nil {
		getenv = os.Getenv
	}
	if v := getenv(EnvVar(datasetID)); v != "" {
		return v, nil
	}
	return "", ErrNoEndpoint
}

// EndpointStore is the subset of keychain.Manager used for lookups.
type EndpointStore interface {
	LoadDatasetEndpoint(datasetID int64) (string, error)
}

// KeychainSource reads endpoints saved by `panelq connect`.
type KeychainSource struct {
	Store EndpointStore
}

func (s KeychainSource) Endpoint(_ context.Context, datasetID int64) (string, error) {
	v, err := s.Store.LoadDatasetEndpoint(datasetID)
	if stderrors.Is(err, keychain.ErrNotFound) {
		return "", ErrNoEndpoint
	}
	if err != nil {
		return "", err
	}
	return v, nil
}

// CatalogResolver combines catalog metadata with endpoint sources. An inline
// endpoint or endpoint_env in the catalog wins; otherwise sources are tried in
// order. Datasets missing from the catalog are allowed when a source knows them.
type CatalogResolver struct {
	Catalog *Catalog
	Sources []EndpointSource
	Getenv  func(string) string
}

// Resolve implements Resolver.
func (r *CatalogResolver) Resolve(ctx context.Context, datasetID int64) (Credential, error) {
	cred := Credential{DatasetID: datasetID, Active: true}

	if r.Catalog != nil {
		if ds, ok := r.Catalog.Lookup(datasetID); ok {
			if !ds.Active {
				return Credential{}, errors.New(errors.DatasetUnavailable,
					fmt.Sprintf("dataset %d (%s) is inactive", datasetID, ds.Name))
			}
			cred.Name = ds.Name
			cred.Endpoint = ds.Endpoint
			if cred.Endpoint == "" && ds.EndpointEnv != "" {
				cred.Endpoint = r.getenv(ds.EndpointEnv)
			}
		}
	}

	var lastErr error
	for _, src := range r.Sources {
		if cred.Endpoint != "" {
			break
		}
		ep, err := src.Endpoint(ctx, datasetID)
		switch {
		case err == nil:
			cred.Endpoint = ep
		case !stderrors.Is(err, ErrNoEndpoint):
			lastErr = err
		}
	}

	if cred.Endpoint == "" {
		if lastErr != nil {
			return Credential{}, errors.Wrap(errors.DatasetUnavailable,
				fmt.Sprintf("resolve endpoint for dataset %d", datasetID), lastErr)
		}
		return Credential{}, errors.New(errors.DatasetUnavailable,
			fmt.Sprintf("dataset %d not found or has no endpoint", datasetID))
	}
	return cred, nil
}

func (r *CatalogResolver) getenv(key string) string {
	if r.Getenv != nil {
		return r.Getenv(key)
	}
	return os.Getenv(key)
}
