// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package source

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/landscape-engine/pkg/types"
)

const efetchXML = `<?xml version="1.0" ?>
<PubmedArticleSet>
  <PubmedArticle>
    <MedlineCitation>
      <PMID Version="1">38000001</PMID>
      <Article>
        <Journal>
          <Title>The Lancet Oncology</Title>
          <JournalIssue><PubDate><Year>2024</Year><Month>Mar</Month><Day>5</Day></PubDate></JournalIssue>
        </Journal>
        <ArticleTitle>Pembrolizumab in <i>advanced</i> melanoma</ArticleTitle>
        <Abstract>
          <AbstractText Label="BACKGROUND">Checkpoint inhibitors changed care.</AbstractText>
          <AbstractText Label="RESULTS">Survival improved.</AbstractText>
        </Abstract>
        <AuthorList>
          <Author><LastName>Smith</LastName><ForeName>Jane</ForeName></Author>
          <Author><CollectiveName>KEYNOTE Investigators</CollectiveName></Author>
        </AuthorList>
      </Article>
      <MeshHeadingList>
        <MeshHeading><DescriptorName UI="D008545">Melanoma</DescriptorName></MeshHeading>
        <MeshHeading><DescriptorName UI="D000074322">Antineoplastic Agents, Immunological</DescriptorName></MeshHeading>
      </MeshHeadingList>
    </MedlineCitation>
  </PubmedArticle>
  <PubmedArticle>
    <MedlineCitation>
      <PMID>38000002</PMID>
      <Article><ArticleTitle>Second</ArticleTitle></Article>
    </MedlineCitation>
  </PubmedArticle>
</PubmedArticleSet>`

func newPubMedClient(baseURL string, maxResults int) *PubMedClient {
	cfg := types.LiteratureConfig{SourceConfig: types.SourceConfig{Enabled: true, BaseURL: baseURL, MaxResults: maxResults, APIKey: "k", RateLimit: 1000}}
	return NewPubMedClient(cfg, types.HTTPConfig{Timeout: 5 * time.Second}, nil)
}

func TestPubMedFetch(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		assert.Equal(t, "pubmed", q.Get("db"))
		assert.Equal(t, "k", q.Get("api_key"))
		switch r.URL.Path {
		case "/esearch.fcgi":
			assert.Equal(t, "keytruda", q.Get("term"))
			assert.Equal(t, "date", q.Get("sort"))
			fmt.Fprint(w, `<eSearchResult><Count>2</Count><IdList><Id>38000001</Id><Id>38000002</Id></IdList></eSearchResult>`)
		case "/efetch.fcgi":
			assert.Equal(t, "38000001,38000002", q.Get("id"))
			assert.Equal(t, "abstract", q.Get("rettype"))
			fmt.Fprint(w, efetchXML)
		default:
			t.Errorf("unexpected path %s", r.URL.Path)
		}
	}))
	defer ts.Close()

	records, err := newPubMedClient(ts.URL, 10).Fetch(context.Background(), types.ResearchRequest{Keywords: []string{"keytruda"}})
	require.NoError(t, err)
	require.Len(t, records, 2)

	p := records[0].Payload
	assert.Equal(t, types.SourceLiterature, records[0].Source)
	assert.Equal(t, "38000001", p["pmid"])
	assert.Equal(t, "Pembrolizumab in advanced melanoma", p["title"])
	assert.Equal(t, "BACKGROUND: Checkpoint inhibitors changed care.\nRESULTS: Survival improved.", p["abstract"])
	assert.Equal(t, []string{"Jane Smith", "KEYNOTE Investigators"}, p["authors"])
	assert.Equal(t, "The Lancet Oncology", p["journal"])
	assert.Equal(t, []string{"Melanoma", "Antineoplastic Agents, Immunological"}, p["mesh_terms"])
	assert.Equal(t, "2024", digString(p, "pub_date", "year"))
	assert.Equal(t, "https://pubmed.ncbi.nlm.nih.gov/38000001/", p["url"])

	// Missing optional elements become empty values.
	p2 := records[1].Payload
	assert.Equal(t, "", p2["abstract"])
	assert.Equal(t, []string{}, p2["authors"])
}

func TestPubMedSearchPaging(t *testing.T) {
	var starts []string
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		if r.URL.Path == "/esearch.fcgi" {
			starts = append(starts, q.Get("retstart")+"/"+q.Get("retmax"))
			if q.Get("retstart") == "0" {
				fmt.Fprint(w, `<eSearchResult><Count>500</Count><IdList><Id>1</Id><Id>2</Id></IdList></eSearchResult>`)
				return
			}
			fmt.Fprint(w, `<eSearchResult><Count>500</Count><IdList><Id>3</Id></IdList></eSearchResult>`)
			return
		}
		ids := strings.Split(q.Get("id"), ",")
		var b strings.Builder
		b.WriteString("<PubmedArticleSet>")
		for _, id := range ids {
			fmt.Fprintf(&b, "<PubmedArticle><MedlineCitation><PMID>%s</PMID></MedlineCitation></PubmedArticle>", id)
		}
		b.WriteString("</PubmedArticleSet>")
		fmt.Fprint(w, b.String())
	}))
	defer ts.Close()

	c := newPubMedClient(ts.URL, 3)
	c.Config.PageSize = 2
	records, err := c.Fetch(context.Background(), types.ResearchRequest{Keywords: []string{"x"}})
	require.NoError(t, err)
	assert.Equal(t, []string{"0/2", "2/1"}, starts)
	require.Len(t, records, 3)
	assert.Equal(t, "3", records[2].Payload["pmid"])
}

func TestPubMedNoResults(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/esearch.fcgi" {
			t.Errorf("efetch should not be called")
		}
		fmt.Fprint(w, `<eSearchResult><Count>0</Count><IdList></IdList></eSearchResult>`)
	}))
	defer ts.Close()

	records, err := newPubMedClient(ts.URL, 10).Fetch(context.Background(), types.ResearchRequest{Keywords: []string{"x"}})
	require.NoError(t, err)
	assert.Empty(t, records)
}

func TestPubMedFailures(t *testing.T) {
	tests := []struct {
		name    string
		handler http.HandlerFunc
	}{
		{"esearch error status", func(w http.ResponseWriter, _ *http.Request) { w.WriteHeader(http.StatusInternalServerError) }},
		{"esearch error element", func(w http.ResponseWriter, _ *http.Request) {
			fmt.Fprint(w, `<eSearchResult><ERROR>Invalid query</ERROR></eSearchResult>`)
		}},
		{"efetch malformed", func(w http.ResponseWriter, r *http.Request) {
			if r.URL.Path == "/esearch.fcgi" {
				fmt.Fprint(w, `<eSearchResult><Count>1</Count><IdList><Id>1</Id></IdList></eSearchResult>`)
				return
			}
			fmt.Fprint(w, `<PubmedArticleSet><PubmedArticle>`)
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ts := httptest.NewServer(tt.handler)
			defer ts.Close()

			records, err := newPubMedClient(ts.URL, 10).Fetch(context.Background(), types.ResearchRequest{Keywords: []string{"x"}})
			assert.ErrorIs(t, err, types.ErrSourceUnavailable)
			assert.Empty(t, records)
		})
	}
}

func TestNewPubMedClientRate(t *testing.T) {
	anon := NewPubMedClient(types.LiteratureConfig{}, types.HTTPConfig{}, nil)
	assert.InDelta(t, 3, float64(anon.limiter.Limit()), 0.001)

	keyed := NewPubMedClient(types.LiteratureConfig{SourceConfig: types.SourceConfig{APIKey: "k"}}, types.HTTPConfig{}, nil)
	assert.InDelta(t, 10, float64(keyed.limiter.Limit()), 0.001)
}
