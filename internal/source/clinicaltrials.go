// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package source

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/pdiddy/landscape-engine/internal/logger"
	"github.com/pdiddy/landscape-engine/pkg/types"
)

// clinicalTrialsBase is the ClinicalTrials.gov v2 API root. Declared as a
// var so tests can substitute an httptest server.
var clinicalTrialsBase = "https://clinicaltrials.gov/api/v2"

// activeStatusTerms are matched case-insensitively as substrings of a
// study's overall status.
var activeStatusTerms = []string{"recruiting", "active", "enrolling"}

// ClinicalTrialsClient queries the ClinicalTrials.gov studies endpoint.
type ClinicalTrialsClient struct {
	HTTP   *http.Client
	Config types.TrialsConfig
	Opts   types.HTTPConfig
	Log    logger.Logger
}

// NewClinicalTrialsClient returns a client with a timeout-bound HTTP client.
func NewClinicalTrialsClient(cfg types.TrialsConfig, opts types.HTTPConfig, log logger.Logger) *ClinicalTrialsClient {
	return &ClinicalTrialsClient{
		HTTP:   newHTTPClient(opts),
		Config: cfg,
		Opts:   opts,
		Log:    orNop(log).With(logger.String("source", string(types.SourceTrials))),
	}
}

// ID returns types.SourceTrials.
func (c *ClinicalTrialsClient) ID() types.SourceID { return types.SourceTrials }

type studiesResponse struct {
	Studies       []map[string]any `json:"studies"`
	NextPageToken string           `json:"nextPageToken"`
}

// Fetch pages through /studies until max_results studies are collected or
// the API reports no further pages.
func (c *ClinicalTrialsClient) Fetch(ctx context.Context, req types.ResearchRequest) ([]RawRecord, error) {
	term := buildTrialsTerm(req)
	if term == "" {
		return nil, types.SourceUnavailable(types.SourceTrials, "query", fmt.Errorf("no usable keywords"))
	}

	base := c.Config.BaseURL
	if base == "" {
		base = clinicalTrialsBase
	}
	maxResults := c.Config.MaxResults
	if maxResults <= 0 {
		maxResults = maxPageSize
	}

	var records []RawRecord
	token := ""
	for page := 0; len(records) < maxResults; page++ {
		params := url.Values{
			"format":     {"json"},
			"query.term": {term},
			"pageSize":   {strconv.Itoa(pageSize(c.Config.PageSize, maxResults-len(records)))},
		}
		if req.Indication != "" {
			params.Set("query.cond", req.Indication)
		}
		if token != "" {
			params.Set("pageToken", token)
		}

		sr, err := c.fetchPage(ctx, base+"/studies?"+params.Encode())
		if err != nil {
			err = types.SourceUnavailable(types.SourceTrials, fmt.Sprintf("page %d", page+1), err)
			if len(records) > 0 {
				c.Log.Warn("later page failed, keeping earlier pages", logger.Err(err), logger.Int("records", len(records)))
			}
			return records, err
		}

		for _, study := range sr.Studies {
			if len(records) >= maxResults {
				break
			}
			records = append(records, RawRecord{Source: types.SourceTrials, Payload: study})
		}

		if sr.NextPageToken == "" || len(sr.Studies) == 0 {
			break
		}
		token = sr.NextPageToken
	}

	c.Log.Debug("fetched studies", logger.Int("records", len(records)))
	return records, nil
}

func (c *ClinicalTrialsClient) fetchPage(ctx context.Context, reqURL string) (*studiesResponse, error) {
	start := time.Now()
	resp, err := get(ctx, c.HTTP, c.Opts, reqURL, "application/json")
	if err != nil {
		return nil, fmt.Errorf("ClinicalTrials.gov request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, statusError(resp)
	}

	var sr studiesResponse
	if err := json.NewDecoder(resp.Body).Decode(&sr); err != nil {
		return nil, fmt.Errorf("parsing ClinicalTrials.gov response: %w", err)
	}
	c.Log.Debug("fetched page", logger.Int("studies", len(sr.Studies)), logger.Duration("elapsed", time.Since(start)))
	return &sr, nil
}

// Narrow applies FilterActive when the source is configured for active
// studies only.
func (c *ClinicalTrialsClient) Narrow(records []RawRecord) []RawRecord {
	if !c.Config.ActiveOnly {
		return records
	}
	return FilterActive(records)
}

// FilterActive keeps studies whose overall status contains any of the
// active-status terms, case-insensitively. Records without a status are
// dropped.
func FilterActive(records []RawRecord) []RawRecord {
	var out []RawRecord
	for _, r := range records {
		status := strings.ToLower(digString(r.Payload, "protocolSection", "statusModule", "overallStatus"))
		if status == "" {
			continue
		}
		for _, term := range activeStatusTerms {
			if strings.Contains(status, term) {
				out = append(out, r)
				break
			}
		}
	}
	return out
}

// buildTrialsTerm ORs the keywords and ANDs the drug name to narrow the
// search. The indication is sent separately as query.cond.
func buildTrialsTerm(req types.ResearchRequest) string {
	kw := orGroup(cleanTerms(req.Keywords), quoteIfPhrase)
	drug := ""
	if d := strings.TrimSpace(req.DrugName); d != "" {
		drug = quoteIfPhrase(d)
	}
	return andClauses(kw, drug)
}
