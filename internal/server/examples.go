// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package server

import "github.com/pdiddy/landscape-engine/pkg/types"

// Example is a suggested research topic.
type Example struct {
	Topic       string             `json:"topic"`
	Mode        types.ResearchMode `json:"type"`
	Description string             `json:"description"`
}

// Examples are served by GET /api/examples.
var Examples = []Example{
	{"CAR-T cell therapy in hematologic malignancies", types.ModeTopic, "Research on CAR-T cell therapies for blood cancers"},
	{"Ozempic", types.ModePipeline, "Drug pipeline research for Ozempic (semaglutide)"},
	{"Rare disease gene therapy approaches", types.ModeTopic, "Research on gene therapy for rare genetic disorders"},
	{"Pfizer oncology pipeline", types.ModePipeline, "Company-specific oncology pipeline research"},
	{"mRNA vaccine technology platforms", types.ModeTopic, "Research on mRNA vaccine development and applications"},
	{"Humira biosimilars market", types.ModeTopic, "Competitive landscape of Humira biosimilars"},
	{"Moderna respiratory pipeline", types.ModePipeline, "Company-specific respiratory disease pipeline"},
	{"CRISPR gene editing therapeutics", types.ModeTopic, "Research on CRISPR-based therapeutic approaches"},
}
