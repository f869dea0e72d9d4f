// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package source queries the external clinical-trial, literature, and
// regulatory APIs and returns their records in source-native form.
//
// Every client wraps one paginated search API behind the Client interface.
// Clients hold only static configuration; a failed fetch is reported as a
// types.KindSourceUnavailable error and never panics past Fetch.
package source

import (
	"context"
	"fmt"
	"io"
	"net/http"

	"github.com/pdiddy/landscape-engine/internal/httputil"
	"github.com/pdiddy/landscape-engine/internal/logger"
	"github.com/pdiddy/landscape-engine/pkg/types"
)

// maxPageSize is the largest page any client requests.
const maxPageSize = 100

// RawRecord is one record in the shape the source returned it.
type RawRecord struct {
	Source types.SourceID
	// Kind distinguishes datasets within a source (e.g. openFDA label vs
	// event). Empty for single-dataset sources.
	Kind    string
	Payload map[string]any
}

// Client searches a single external source.
//
// Fetch returns the records it could retrieve. On total failure it returns
// no records and a KindSourceUnavailable error. When some pages or
// datasets succeeded and others failed it returns both the records and the
// error, and the caller decides how to report the partial result.
type Client interface {
	ID() types.SourceID
	Fetch(ctx context.Context, req types.ResearchRequest) ([]RawRecord, error)
}

// Narrower is implemented by clients that apply a source-specific filter
// to raw records after fetching and before normalization.
type Narrower interface {
	Narrow(records []RawRecord) []RawRecord
}

// FromConfig builds the enabled clients in registration order.
func FromConfig(cfg types.SourcesConfig, log logger.Logger) []Client {
	var clients []Client
	if cfg.Trials.Enabled {
		clients = append(clients, NewClinicalTrialsClient(cfg.Trials, cfg.HTTPConfig, log))
	}
	if cfg.Literature.Enabled {
		clients = append(clients, NewPubMedClient(cfg.Literature, cfg.HTTPConfig, log))
	}
	if cfg.Regulatory.Enabled {
		clients = append(clients, NewOpenFDAClient(cfg.Regulatory, cfg.HTTPConfig, log))
	}
	return clients
}

func newHTTPClient(cfg types.HTTPConfig) *http.Client {
	return &http.Client{Timeout: cfg.Timeout}
}

// get issues a GET with the configured User-Agent and 429 retry policy.
// The caller must close the response body.
func get(ctx context.Context, hc *http.Client, cfg types.HTTPConfig, rawURL, accept string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	if cfg.UserAgent != "" {
		req.Header.Set("User-Agent", cfg.UserAgent)
	}
	if accept != "" {
		req.Header.Set("Accept", accept)
	}
	return httputil.DoWithRetry(ctx, hc, req, cfg.MaxRetries)
}

// statusError drains the body and describes a non-2xx response.
func statusError(resp *http.Response) error {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
	if len(body) > 0 {
		return fmt.Errorf("HTTP %d: %s", resp.StatusCode, body)
	}
	return fmt.Errorf("HTTP %d", resp.StatusCode)
}

// pageSize clamps the configured page size to [1, maxPageSize] and to the
// number of records still wanted.
func pageSize(configured, remaining int) int {
	n := configured
	if n <= 0 || n > maxPageSize {
		n = maxPageSize
	}
	if remaining < n {
		n = remaining
	}
	if n < 1 {
		n = 1
	}
	return n
}

func orNop(log logger.Logger) logger.Logger {
	if log == nil {
		return logger.NewNop()
	}
	return log
}
