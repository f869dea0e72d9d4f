// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package normalize

import (
	"strings"

	"github.com/pdiddy/landscape-engine/internal/source"
	"github.com/pdiddy/landscape-engine/pkg/types"
)

// Literature normalizes PubMed article payloads.
type Literature struct{}

// Source returns types.SourceLiterature.
func (Literature) Source() types.SourceID { return types.SourceLiterature }

type articleView struct {
	PMID     string   `mapstructure:"pmid"`
	Title    string   `mapstructure:"title"`
	Abstract string   `mapstructure:"abstract"`
	Authors  []string `mapstructure:"authors"`
	Journal  string   `mapstructure:"journal"`
	PubDate  struct {
		Year        string `mapstructure:"year"`
		Month       string `mapstructure:"month"`
		Day         string `mapstructure:"day"`
		MedlineDate string `mapstructure:"medline_date"`
	} `mapstructure:"pub_date"`
	MeshTerms []string `mapstructure:"mesh_terms"`
	URL       string   `mapstructure:"url"`
}

// Normalize maps an article. The first author stands in as the owner.
func (Literature) Normalize(raw source.RawRecord) (*types.DataRecord, error) {
	var v articleView
	derr := decode(raw.Payload, &v)
	pmid := strings.TrimSpace(v.PMID)
	if pmid == "" {
		return nil, missingID(types.SourceLiterature, derr, "article has no pmid")
	}

	url := v.URL
	if url == "" {
		url = "https://pubmed.ncbi.nlm.nih.gov/" + pmid + "/"
	}
	detail := &types.ArticleDetail{
		PMID:      pmid,
		Abstract:  v.Abstract,
		Authors:   nonNil(v.Authors),
		Journal:   v.Journal,
		MeshTerms: nonNil(v.MeshTerms),
		URL:       url,
	}

	return partial(&types.DataRecord{
		Source:         types.SourceLiterature,
		NativeID:       pmid,
		Title:          v.Title,
		StatusOrPhase:  v.Journal,
		SponsorOrOwner: first(v.Authors),
		PublishedAt:    parseDateParts(v.PubDate.Year, v.PubDate.Month, v.PubDate.Day, v.PubDate.MedlineDate),
		RawPayload:     raw.Payload,
		Article:        detail,
	}, derr)
}
