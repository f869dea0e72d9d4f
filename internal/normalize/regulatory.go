// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package normalize

import (
	"strings"

	"github.com/pdiddy/landscape-engine/internal/source"
	"github.com/pdiddy/landscape-engine/pkg/types"
)

// Regulatory normalizes openFDA label, adverse event, and enforcement
// records. Native IDs are prefixed with the dataset so IDs from different
// datasets cannot collide.
type Regulatory struct{}

// Source returns types.SourceRegulatory.
func (Regulatory) Source() types.SourceID { return types.SourceRegulatory }

type openFDAFields struct {
	BrandName        []string `mapstructure:"brand_name"`
	GenericName      []string `mapstructure:"generic_name"`
	ManufacturerName []string `mapstructure:"manufacturer_name"`
	SubstanceName    []string `mapstructure:"substance_name"`
	Route            []string `mapstructure:"route"`
	DosageForm       []string `mapstructure:"dosage_form"`
}

type labelView struct {
	ID            string        `mapstructure:"id"`
	SetID         string        `mapstructure:"set_id"`
	EffectiveTime string        `mapstructure:"effective_time"`
	Indications   []string      `mapstructure:"indications_and_usage"`
	OpenFDA       openFDAFields `mapstructure:"openfda"`
}

type eventView struct {
	SafetyReportID string `mapstructure:"safetyreportid"`
	Serious        string `mapstructure:"serious"`
	ReceiveDate    string `mapstructure:"receivedate"`
	Patient        struct {
		Drug []struct {
			MedicinalProduct string        `mapstructure:"medicinalproduct"`
			OpenFDA          openFDAFields `mapstructure:"openfda"`
		} `mapstructure:"drug"`
		Reaction []struct {
			Term string `mapstructure:"reactionmeddrapt"`
		} `mapstructure:"reaction"`
	} `mapstructure:"patient"`
}

type enforcementView struct {
	RecallNumber         string        `mapstructure:"recall_number"`
	EventID              string        `mapstructure:"event_id"`
	ProductDescription   string        `mapstructure:"product_description"`
	RecallingFirm        string        `mapstructure:"recalling_firm"`
	ReasonForRecall      string        `mapstructure:"reason_for_recall"`
	RecallInitiationDate string        `mapstructure:"recall_initiation_date"`
	Classification       string        `mapstructure:"classification"`
	Status               string        `mapstructure:"status"`
	OpenFDA              openFDAFields `mapstructure:"openfda"`
}

// Normalize dispatches on the openFDA dataset recorded in raw.Kind.
func (Regulatory) Normalize(raw source.RawRecord) (*types.DataRecord, error) {
	switch raw.Kind {
	case source.KindLabel:
		return normalizeLabel(raw)
	case source.KindEvent:
		return normalizeEvent(raw)
	case source.KindEnforcement:
		return normalizeEnforcement(raw)
	}
	return nil, types.MalformedRecord(types.SourceRegulatory, "unknown openFDA dataset %q", raw.Kind)
}

func normalizeLabel(raw source.RawRecord) (*types.DataRecord, error) {
	var v labelView
	derr := decode(raw.Payload, &v)
	id := strings.TrimSpace(v.ID)
	if id == "" {
		id = strings.TrimSpace(v.SetID)
	}
	if id == "" {
		return nil, missingID(types.SourceRegulatory, derr, "label has no id or set_id")
	}

	detail := fromOpenFDA(types.RegulatoryLabel, v.OpenFDA)
	detail.Indications = strings.Join(v.Indications, "\n")

	return partial(&types.DataRecord{
		Source:         types.SourceRegulatory,
		NativeID:       "label/" + id,
		Title:          productTitle(detail, "Drug label"),
		StatusOrPhase:  "label",
		SponsorOrOwner: first(detail.Manufacturers),
		PublishedAt:    parseDate(v.EffectiveTime),
		RawPayload:     raw.Payload,
		Regulatory:     detail,
	}, derr)
}

func normalizeEvent(raw source.RawRecord) (*types.DataRecord, error) {
	var v eventView
	derr := decode(raw.Payload, &v)
	id := strings.TrimSpace(v.SafetyReportID)
	if id == "" {
		return nil, missingID(types.SourceRegulatory, derr, "adverse event has no safetyreportid")
	}

	detail := &types.RegulatoryDetail{Kind: types.RegulatoryAdverseEvent, Serious: v.Serious == "1"}
	product := ""
	if len(v.Patient.Drug) > 0 {
		d := v.Patient.Drug[0]
		product = d.MedicinalProduct
		detail = fromOpenFDA(types.RegulatoryAdverseEvent, d.OpenFDA)
		detail.Serious = v.Serious == "1"
	}
	for _, r := range v.Patient.Reaction {
		if r.Term != "" {
			detail.Reactions = append(detail.Reactions, r.Term)
		}
	}
	detail.Reactions = nonNil(detail.Reactions)

	status := "non-serious"
	if detail.Serious {
		status = "serious"
	}
	title := "Adverse event report"
	if product != "" {
		title += ": " + product
	}

	return partial(&types.DataRecord{
		Source:         types.SourceRegulatory,
		NativeID:       "event/" + id,
		Title:          title,
		StatusOrPhase:  status,
		SponsorOrOwner: first(detail.Manufacturers),
		PublishedAt:    parseDate(v.ReceiveDate),
		RawPayload:     raw.Payload,
		Regulatory:     detail,
	}, derr)
}

func normalizeEnforcement(raw source.RawRecord) (*types.DataRecord, error) {
	var v enforcementView
	derr := decode(raw.Payload, &v)
	id := strings.TrimSpace(v.RecallNumber)
	if id == "" {
		id = strings.TrimSpace(v.EventID)
	}
	if id == "" {
		return nil, missingID(types.SourceRegulatory, derr, "enforcement report has no recall_number or event_id")
	}

	detail := fromOpenFDA(types.RegulatoryRecall, v.OpenFDA)
	detail.Reason = v.ReasonForRecall
	detail.Classification = v.Classification
	if len(detail.Manufacturers) == 0 && v.RecallingFirm != "" {
		detail.Manufacturers = []string{v.RecallingFirm}
	}

	status := strings.TrimSpace(strings.Join([]string{v.Classification, v.Status}, " "))
	return partial(&types.DataRecord{
		Source:         types.SourceRegulatory,
		NativeID:       "recall/" + id,
		Title:          truncate(v.ProductDescription, 200),
		StatusOrPhase:  status,
		SponsorOrOwner: v.RecallingFirm,
		PublishedAt:    parseDate(v.RecallInitiationDate),
		RawPayload:     raw.Payload,
		Regulatory:     detail,
	}, derr)
}

func fromOpenFDA(kind types.RegulatoryKind, f openFDAFields) *types.RegulatoryDetail {
	return &types.RegulatoryDetail{
		Kind:           kind,
		BrandNames:     nonNil(f.BrandName),
		GenericNames:   nonNil(f.GenericName),
		Manufacturers:  nonNil(f.ManufacturerName),
		SubstanceNames: nonNil(f.SubstanceName),
		Routes:         nonNil(f.Route),
		DosageForms:    nonNil(f.DosageForm),
	}
}

// productTitle renders "BRAND (generic)" from whichever names are present.
func productTitle(d *types.RegulatoryDetail, fallback string) string {
	brand, generic := first(d.BrandNames), first(d.GenericNames)
	switch {
	case brand != "" && generic != "" && !strings.EqualFold(brand, generic):
		return brand + " (" + generic + ")"
	case brand != "":
		return brand
	case generic != "":
		return generic
	}
	return fallback
}

func truncate(s string, n int) string {
	s = strings.TrimSpace(s)
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return strings.TrimSpace(string(r[:n])) + "..."
}
