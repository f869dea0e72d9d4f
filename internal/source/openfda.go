// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package source

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/pdiddy/landscape-engine/internal/logger"
	"github.com/pdiddy/landscape-engine/pkg/types"
)

// openFDABase is the openFDA API root. Declared as a var so tests can
// substitute an httptest server.
var openFDABase = "https://api.fda.gov"

// openFDA dataset kinds, as stored on RawRecord.Kind.
const (
	KindLabel       = "label"
	KindEvent       = "event"
	KindEnforcement = "enforcement"
)

// fdaEndpoint describes one openFDA drug dataset.
type fdaEndpoint struct {
	kind string
	path string
	sort string
	// drugField is the field a drug name is matched against.
	drugField string
	// keywordLimit caps how many keywords are ORed when no drug name is
	// given. Zero means all keywords.
	keywordLimit int
}

var fdaEndpoints = map[string]fdaEndpoint{
	KindLabel: {
		kind:      KindLabel,
		path:      "/drug/label.json",
		sort:      "effective_time:desc",
		drugField: "openfda.generic_name",
	},
	KindEvent: {
		kind:         KindEvent,
		path:         "/drug/event.json",
		sort:         "receivedate:desc",
		drugField:    "patient.drug.medicinalproduct",
		keywordLimit: 3,
	},
	KindEnforcement: {
		kind:         KindEnforcement,
		path:         "/drug/enforcement.json",
		sort:         "recall_initiation_date:desc",
		drugField:    "product_description",
		keywordLimit: 3,
	},
}

// maxFDASkip is the largest skip value openFDA accepts.
const maxFDASkip = 25000

// OpenFDAClient queries the openFDA drug label, adverse event, and
// enforcement (recall) datasets.
type OpenFDAClient struct {
	HTTP   *http.Client
	Config types.RegulatoryConfig
	Opts   types.HTTPConfig
	Log    logger.Logger
}

// NewOpenFDAClient returns a client with a timeout-bound HTTP client.
func NewOpenFDAClient(cfg types.RegulatoryConfig, opts types.HTTPConfig, log logger.Logger) *OpenFDAClient {
	return &OpenFDAClient{
		HTTP:   newHTTPClient(opts),
		Config: cfg,
		Opts:   opts,
		Log:    orNop(log).With(logger.String("source", string(types.SourceRegulatory))),
	}
}

// ID returns types.SourceRegulatory.
func (c *OpenFDAClient) ID() types.SourceID { return types.SourceRegulatory }

type fdaResponse struct {
	Meta struct {
		Results struct {
			Total int `json:"total"`
		} `json:"results"`
	} `json:"meta"`
	Results []map[string]any `json:"results"`
}

// errNoMatches is returned for openFDA's 404, which means "no results".
var errNoMatches = errors.New("no matches")

// Fetch queries each configured dataset in turn. The max_results budget is
// split evenly across datasets. The source fails only when every dataset
// fails; a dataset with no matches is not a failure.
func (c *OpenFDAClient) Fetch(ctx context.Context, req types.ResearchRequest) ([]RawRecord, error) {
	kinds := c.Config.Endpoints
	if len(kinds) == 0 {
		kinds = []string{KindLabel, KindEvent, KindEnforcement}
	}
	maxResults := c.Config.MaxResults
	if maxResults <= 0 {
		maxResults = maxPageSize
	}

	var (
		records []RawRecord
		errs    []error
	)
	for i, kind := range kinds {
		ep, ok := fdaEndpoints[kind]
		if !ok {
			errs = append(errs, fmt.Errorf("%s: unknown endpoint", kind))
			continue
		}
		budget := maxResults / len(kinds)
		if i < maxResults%len(kinds) {
			budget++
		}
		if budget == 0 {
			continue
		}

		got, err := c.fetchEndpoint(ctx, ep, req, budget)
		records = append(records, got...)
		if err != nil {
			c.Log.Warn("dataset failed", logger.String("dataset", kind), logger.Err(err))
			errs = append(errs, fmt.Errorf("%s: %w", kind, err))
		}
	}

	if len(errs) == 0 {
		return records, nil
	}
	err := types.SourceUnavailable(types.SourceRegulatory, "search", errors.Join(errs...))
	if len(errs) == len(kinds) && len(records) == 0 {
		return nil, err
	}
	return records, err
}

func (c *OpenFDAClient) fetchEndpoint(ctx context.Context, ep fdaEndpoint, req types.ResearchRequest, budget int) ([]RawRecord, error) {
	search := buildFDASearch(ep, req)
	if search == "" {
		return nil, fmt.Errorf("no usable keywords")
	}

	base := c.Config.BaseURL
	if base == "" {
		base = openFDABase
	}

	var records []RawRecord
	for len(records) < budget && len(records) <= maxFDASkip {
		params := url.Values{
			"search": {search},
			"limit":  {strconv.Itoa(pageSize(c.Config.PageSize, budget-len(records)))},
			"sort":   {ep.sort},
		}
		if len(records) > 0 {
			params.Set("skip", strconv.Itoa(len(records)))
		}
		if c.Config.APIKey != "" {
			params.Set("api_key", c.Config.APIKey)
		}

		fr, err := c.fetchPage(ctx, base+ep.path+"?"+params.Encode())
		if errors.Is(err, errNoMatches) {
			break
		}
		if err != nil {
			return records, err
		}
		for _, r := range fr.Results {
			records = append(records, RawRecord{Source: types.SourceRegulatory, Kind: ep.kind, Payload: r})
		}
		if len(fr.Results) == 0 || len(records) >= fr.Meta.Results.Total {
			break
		}
	}
	if len(records) > budget {
		records = records[:budget]
	}
	return records, nil
}

func (c *OpenFDAClient) fetchPage(ctx context.Context, reqURL string) (*fdaResponse, error) {
	resp, err := get(ctx, c.HTTP, c.Opts, reqURL, "application/json")
	if err != nil {
		return nil, fmt.Errorf("openFDA request: %w", err)
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
	case http.StatusNotFound:
		return nil, errNoMatches
	default:
		return nil, statusError(resp)
	}

	var fr fdaResponse
	if err := json.NewDecoder(resp.Body).Decode(&fr); err != nil {
		return nil, fmt.Errorf("parsing openFDA response: %w", err)
	}
	return &fr, nil
}

// buildFDASearch builds the openFDA search expression for one dataset.
// With a drug name the dataset's drug field is matched, and for labels the
// quoted keywords are ANDed on to narrow the match. Without a drug name the
// quoted keywords are ORed. An indication narrows label searches only.
func buildFDASearch(ep fdaEndpoint, req types.ResearchRequest) string {
	terms := cleanTerms(req.Keywords)
	drug := strings.TrimSpace(req.DrugName)

	var expr string
	switch {
	case drug != "" && ep.kind == KindLabel:
		expr = andClauses(ep.drugField+":"+quote(drug), orGroup(terms, quote))
	case drug != "":
		expr = ep.drugField + ":" + quote(drug)
	default:
		if ep.keywordLimit > 0 {
			terms = firstN(terms, ep.keywordLimit)
		}
		expr = orGroup(terms, quote)
	}
	if expr == "" {
		return ""
	}
	if ind := strings.TrimSpace(req.Indication); ind != "" && ep.kind == KindLabel {
		expr = andClauses(expr, "indications_and_usage:"+quote(ind))
	}
	return expr
}
