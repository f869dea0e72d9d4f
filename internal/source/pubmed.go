// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package source

import (
	"context"
	"encoding/xml"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"golang.org/x/time/rate"

	"github.com/pdiddy/landscape-engine/internal/logger"
	"github.com/pdiddy/landscape-engine/pkg/types"
)

// pubMedBase is the NCBI E-utilities root. Declared as a var so tests can
// substitute an httptest server.
var pubMedBase = "https://eutils.ncbi.nlm.nih.gov/entrez/eutils"

// NCBI allows 3 requests per second without a key and 10 with one.
const (
	ncbiRateAnonymous = 3
	ncbiRateWithKey   = 10
)

// PubMedClient searches PubMed with esearch and retrieves abstracts with
// efetch. Both endpoints return XML.
type PubMedClient struct {
	HTTP    *http.Client
	Config  types.LiteratureConfig
	Opts    types.HTTPConfig
	Log     logger.Logger
	limiter *rate.Limiter
}

// NewPubMedClient returns a client limited to the NCBI request rate.
func NewPubMedClient(cfg types.LiteratureConfig, opts types.HTTPConfig, log logger.Logger) *PubMedClient {
	rps := cfg.RateLimit
	if rps <= 0 {
		rps = ncbiRateAnonymous
		if cfg.APIKey != "" {
			rps = ncbiRateWithKey
		}
	}
	return &PubMedClient{
		HTTP:    newHTTPClient(opts),
		Config:  cfg,
		Opts:    opts,
		Log:     orNop(log).With(logger.String("source", string(types.SourceLiterature))),
		limiter: rate.NewLimiter(rate.Limit(rps), 1),
	}
}

// ID returns types.SourceLiterature.
func (c *PubMedClient) ID() types.SourceID { return types.SourceLiterature }

type eSearchResult struct {
	Count int      `xml:"Count"`
	IDs   []string `xml:"IdList>Id"`
	Error string   `xml:"ERROR"`
}

type pubmedArticleSet struct {
	Articles []pubmedArticle `xml:"PubmedArticle"`
}

type pubmedArticle struct {
	PMID    string `xml:"MedlineCitation>PMID"`
	Article struct {
		Title    innerText      `xml:"ArticleTitle"`
		Abstract []abstractText `xml:"Abstract>AbstractText"`
		Authors  []struct {
			LastName       string `xml:"LastName"`
			ForeName       string `xml:"ForeName"`
			CollectiveName string `xml:"CollectiveName"`
		} `xml:"AuthorList>Author"`
		Journal struct {
			Title   string `xml:"Title"`
			PubDate struct {
				Year        string `xml:"Year"`
				Month       string `xml:"Month"`
				Day         string `xml:"Day"`
				MedlineDate string `xml:"MedlineDate"`
			} `xml:"JournalIssue>PubDate"`
		} `xml:"Journal"`
	} `xml:"MedlineCitation>Article"`
	MeshHeadings []string `xml:"MedlineCitation>MeshHeadingList>MeshHeading>DescriptorName"`
}

// innerText captures element text with any inline markup (<i>, <sup>)
// stripped.
type innerText string

func (t *innerText) UnmarshalXML(d *xml.Decoder, _ xml.StartElement) error {
	var b strings.Builder
	depth := 0
	for {
		tok, err := d.Token()
		if err != nil {
			return err
		}
		switch v := tok.(type) {
		case xml.CharData:
			b.Write(v)
		case xml.StartElement:
			depth++
		case xml.EndElement:
			if depth == 0 {
				*t = innerText(strings.Join(strings.Fields(b.String()), " "))
				return nil
			}
			depth--
		}
	}
}

// abstractText is one AbstractText section with its optional Label.
type abstractText struct {
	Label string
	Text  string
}

func (a *abstractText) UnmarshalXML(d *xml.Decoder, start xml.StartElement) error {
	for _, attr := range start.Attr {
		if attr.Name.Local == "Label" {
			a.Label = attr.Value
		}
	}
	var t innerText
	if err := t.UnmarshalXML(d, start); err != nil {
		return err
	}
	a.Text = string(t)
	return nil
}

// Fetch collects up to max_results PMIDs with esearch, then retrieves
// the articles in batches with efetch.
func (c *PubMedClient) Fetch(ctx context.Context, req types.ResearchRequest) ([]RawRecord, error) {
	term := buildPubMedTerm(req, c.Config.SinceYear)
	if term == "" {
		return nil, types.SourceUnavailable(types.SourceLiterature, "query", fmt.Errorf("no usable keywords"))
	}

	maxResults := c.Config.MaxResults
	if maxResults <= 0 {
		maxResults = 50
	}

	ids, err := c.search(ctx, term, maxResults)
	if err != nil {
		return nil, types.SourceUnavailable(types.SourceLiterature, "esearch", err)
	}
	if len(ids) == 0 {
		return nil, nil
	}

	var records []RawRecord
	for start := 0; start < len(ids); {
		end := start + pageSize(c.Config.PageSize, len(ids)-start)
		articles, err := c.fetchArticles(ctx, ids[start:end])
		if err != nil {
			err = types.SourceUnavailable(types.SourceLiterature, "efetch", err)
			if len(records) > 0 {
				c.Log.Warn("efetch batch failed, keeping earlier batches", logger.Err(err), logger.Int("records", len(records)))
			}
			return records, err
		}
		for _, a := range articles {
			records = append(records, RawRecord{Source: types.SourceLiterature, Payload: articlePayload(a)})
		}
		start = end
	}

	c.Log.Debug("fetched articles", logger.Int("ids", len(ids)), logger.Int("records", len(records)))
	return records, nil
}

func (c *PubMedClient) search(ctx context.Context, term string, maxResults int) ([]string, error) {
	base := c.base()
	var ids []string
	for len(ids) < maxResults {
		params := url.Values{
			"db":       {"pubmed"},
			"term":     {term},
			"retmax":   {strconv.Itoa(pageSize(c.Config.PageSize, maxResults-len(ids)))},
			"retstart": {strconv.Itoa(len(ids))},
			"retmode":  {"xml"},
			"sort":     {"date"},
		}
		c.addKey(params)

		var res eSearchResult
		if err := c.getXML(ctx, base+"/esearch.fcgi?"+params.Encode(), &res); err != nil {
			return ids, err
		}
		if res.Error != "" {
			return ids, fmt.Errorf("esearch error: %s", res.Error)
		}
		ids = append(ids, res.IDs...)
		if len(res.IDs) == 0 || len(ids) >= res.Count {
			break
		}
	}
	if len(ids) > maxResults {
		ids = ids[:maxResults]
	}
	return ids, nil
}

func (c *PubMedClient) fetchArticles(ctx context.Context, ids []string) ([]pubmedArticle, error) {
	params := url.Values{
		"db":      {"pubmed"},
		"id":      {strings.Join(ids, ",")},
		"retmode": {"xml"},
		"rettype": {"abstract"},
	}
	c.addKey(params)

	var set pubmedArticleSet
	if err := c.getXML(ctx, c.base()+"/efetch.fcgi?"+params.Encode(), &set); err != nil {
		return nil, err
	}
	return set.Articles, nil
}

func (c *PubMedClient) getXML(ctx context.Context, reqURL string, dst any) error {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return err
		}
	}
	resp, err := get(ctx, c.HTTP, c.Opts, reqURL, "application/xml")
	if err != nil {
		return fmt.Errorf("PubMed request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return statusError(resp)
	}
	if err := xml.NewDecoder(resp.Body).Decode(dst); err != nil {
		return fmt.Errorf("parsing PubMed response: %w", err)
	}
	return nil
}

func (c *PubMedClient) base() string {
	if c.Config.BaseURL != "" {
		return c.Config.BaseURL
	}
	return pubMedBase
}

func (c *PubMedClient) addKey(params url.Values) {
	if c.Config.APIKey != "" {
		params.Set("api_key", c.Config.APIKey)
	}
}

// articlePayload flattens a parsed article into the generic payload
// shape stored on the record.
func articlePayload(a pubmedArticle) map[string]any {
	var abstract []string
	for _, p := range a.Article.Abstract {
		text := p.Text
		if p.Label != "" && text != "" {
			text = p.Label + ": " + text
		}
		if text != "" {
			abstract = append(abstract, text)
		}
	}

	authors := []string{}
	for _, au := range a.Article.Authors {
		name := strings.TrimSpace(au.ForeName + " " + au.LastName)
		if name == "" {
			name = au.CollectiveName
		}
		if name != "" {
			authors = append(authors, name)
		}
	}

	mesh := []string{}
	for _, m := range a.MeshHeadings {
		if m = strings.TrimSpace(m); m != "" {
			mesh = append(mesh, m)
		}
	}

	pd := a.Article.Journal.PubDate
	payload := map[string]any{
		"pmid":     strings.TrimSpace(a.PMID),
		"title":    string(a.Article.Title),
		"abstract": strings.Join(abstract, "\n"),
		"authors":  authors,
		"journal":  a.Article.Journal.Title,
		"pub_date": map[string]any{
			"year":         pd.Year,
			"month":        pd.Month,
			"day":          pd.Day,
			"medline_date": pd.MedlineDate,
		},
		"mesh_terms": mesh,
	}
	if pmid := strings.TrimSpace(a.PMID); pmid != "" {
		payload["url"] = "https://pubmed.ncbi.nlm.nih.gov/" + pmid + "/"
	}
	return payload
}

// buildPubMedTerm ORs the keywords and ANDs the drug name, indication, and
// publication-year floor.
func buildPubMedTerm(req types.ResearchRequest, sinceYear int) string {
	kw := orGroup(cleanTerms(req.Keywords), quoteIfPhrase)
	if kw == "" {
		return ""
	}
	var drug, indication, years string
	if d := strings.TrimSpace(req.DrugName); d != "" {
		drug = quoteIfPhrase(d)
	}
	if i := strings.TrimSpace(req.Indication); i != "" {
		indication = quoteIfPhrase(i)
	}
	if sinceYear > 0 {
		years = fmt.Sprintf(`("%d"[Date - Publication] : "3000"[Date - Publication])`, sinceYear)
	}
	return andClauses(kw, drug, indication, years)
}
