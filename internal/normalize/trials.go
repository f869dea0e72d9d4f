// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package normalize

import (
	"strings"

	"github.com/pdiddy/landscape-engine/internal/source"
	"github.com/pdiddy/landscape-engine/pkg/types"
)

// Trials normalizes ClinicalTrials.gov v2 study records.
type Trials struct{}

// Source returns types.SourceTrials.
func (Trials) Source() types.SourceID { return types.SourceTrials }

type studyView struct {
	Protocol struct {
		Identification struct {
			NCTID         string `mapstructure:"nctId"`
			BriefTitle    string `mapstructure:"briefTitle"`
			OfficialTitle string `mapstructure:"officialTitle"`
		} `mapstructure:"identificationModule"`
		Status struct {
			OverallStatus string `mapstructure:"overallStatus"`
			Start         struct {
				Date string `mapstructure:"date"`
			} `mapstructure:"startDateStruct"`
			Completion struct {
				Date string `mapstructure:"date"`
			} `mapstructure:"completionDateStruct"`
		} `mapstructure:"statusModule"`
		Sponsors struct {
			Lead struct {
				Name string `mapstructure:"name"`
			} `mapstructure:"leadSponsor"`
		} `mapstructure:"sponsorCollaboratorsModule"`
		Design struct {
			Phases []string `mapstructure:"phases"`
		} `mapstructure:"designModule"`
		Conditions struct {
			Conditions []string `mapstructure:"conditions"`
		} `mapstructure:"conditionsModule"`
		Arms struct {
			Interventions []struct {
				Type string `mapstructure:"type"`
				Name string `mapstructure:"name"`
			} `mapstructure:"interventions"`
		} `mapstructure:"armsInterventionsModule"`
	} `mapstructure:"protocolSection"`
}

// Normalize extracts identification, status, sponsor, and design fields
// from the protocolSection of a study.
func (Trials) Normalize(raw source.RawRecord) (*types.DataRecord, error) {
	var v studyView
	derr := decode(raw.Payload, &v)
	p := v.Protocol
	id := strings.TrimSpace(p.Identification.NCTID)
	if id == "" {
		return nil, missingID(types.SourceTrials, derr, "study has no nctId")
	}

	title := p.Identification.BriefTitle
	if title == "" {
		title = p.Identification.OfficialTitle
	}

	var interventions []string
	for _, iv := range p.Arms.Interventions {
		if iv.Name != "" {
			interventions = append(interventions, iv.Name)
		}
	}

	detail := &types.TrialDetail{
		NCTID:          id,
		OverallStatus:  p.Status.OverallStatus,
		Phases:         nonNil(p.Design.Phases),
		Conditions:     nonNil(p.Conditions.Conditions),
		Interventions:  nonNil(interventions),
		LeadSponsor:    p.Sponsors.Lead.Name,
		StartDate:      p.Status.Start.Date,
		CompletionDate: p.Status.Completion.Date,
		URL:            "https://clinicaltrials.gov/study/" + id,
	}

	return partial(&types.DataRecord{
		Source:         types.SourceTrials,
		NativeID:       id,
		Title:          title,
		StatusOrPhase:  trialStatusOrPhase(detail),
		SponsorOrOwner: detail.LeadSponsor,
		PublishedAt:    parseDate(detail.StartDate),
		RawPayload:     raw.Payload,
		Trial:          detail,
	}, derr)
}

// trialStatusOrPhase renders e.g. "PHASE2/PHASE3, RECRUITING".
func trialStatusOrPhase(d *types.TrialDetail) string {
	var parts []string
	if len(d.Phases) > 0 {
		parts = append(parts, strings.Join(d.Phases, "/"))
	}
	if d.OverallStatus != "" {
		parts = append(parts, d.OverallStatus)
	}
	return strings.Join(parts, ", ")
}
