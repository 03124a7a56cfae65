package service

import (
	"strings"

	"github.com/boddenberg/phuket-immo-bfa/internal/domain"
	"github.com/boddenberg/phuket-immo-bfa/internal/format"
)

// PropertyDraft is the admin form payload. Highlights and images can be sent
// as lists or as newline separated text; both are merged.
type PropertyDraft struct {
	StatusCategory domain.Category      `json:"statusCategory"`
	ProjectName    string               `json:"projectName"`
	Area           string               `json:"area"`
	PropertyType   domain.PropertyType  `json:"propertyType"`
	Ownership      domain.Ownership     `json:"ownership"`
	Completion     string               `json:"completion"`
	UnitTypes      []domain.UnitType    `json:"unitTypes"`
	SizeSqmFrom    float64              `json:"sizeSqmFrom"`
	SizeSqmTo      float64              `json:"sizeSqmTo"`
	PriceFromTHB   int64                `json:"priceFromTHB"`
	Highlights     []string             `json:"highlights"`
	HighlightsText string               `json:"highlightsText"`
	Images         []string             `json:"images"`
	ImagesText     string               `json:"imagesText"`
	Docs           []domain.DocRef      `json:"docs"`
	Transparency   *domain.Transparency `json:"transparency"`
	OperatorModel  string               `json:"operatorModel"`
	Description    string               `json:"description"`
	IsPublished    bool                 `json:"isPublished"`
	Order          int                  `json:"order"`
}

// PropertyEditor turns admin drafts into property records. The EUR price is
// always derived from the THB price.
type PropertyEditor struct {
	thbPerEUR float64
}

// NewPropertyEditor creates an editor converting with thbPerEUR.
func NewPropertyEditor(thbPerEUR float64) *PropertyEditor {
	return &PropertyEditor{thbPerEUR: thbPerEUR}
}

// Build validates d and returns the property it describes.
func (e *PropertyEditor) Build(d PropertyDraft) (domain.Property, error) {
	highlights := mergeLines(d.Highlights, d.HighlightsText)
	images := mergeLines(d.Images, d.ImagesText)

	switch {
	case strings.TrimSpace(d.ProjectName) == "":
		return domain.Property{}, &domain.ErrValidation{Field: "projectName", Message: "Projektname ist erforderlich"}
	case strings.TrimSpace(d.Area) == "":
		return domain.Property{}, &domain.ErrValidation{Field: "area", Message: "Lage/Area ist erforderlich"}
	case d.PriceFromTHB <= 0:
		return domain.Property{}, &domain.ErrValidation{Field: "priceFromTHB", Message: "Preis (THB) ist erforderlich"}
	case len(images) == 0:
		return domain.Property{}, &domain.ErrValidation{Field: "images", Message: "Mindestens 1 Bild-URL ist erforderlich"}
	}

	p := domain.Property{
		StatusCategory: d.StatusCategory,
		ProjectName:    strings.TrimSpace(d.ProjectName),
		Area:           strings.TrimSpace(d.Area),
		PropertyType:   d.PropertyType,
		Ownership:      d.Ownership,
		Completion:     optional(d.Completion),
		UnitTypes:      orEmptyUnits(d.UnitTypes),
		SizeSqmFrom:    d.SizeSqmFrom,
		SizeSqmTo:      d.SizeSqmTo,
		PriceFromTHB:   d.PriceFromTHB,
		PriceFromEUR:   format.NiceEUR(d.PriceFromTHB, e.thbPerEUR),
		Highlights:     highlights,
		Images:         images,
		Docs:           orEmptyDocs(d.Docs),
		Transparency:   d.Transparency,
		OperatorModel:  optional(d.OperatorModel),
		Description:    strings.TrimSpace(d.Description),
		IsPublished:    d.IsPublished,
		Order:          d.Order,
	}
	if err := p.Validate(); err != nil {
		return domain.Property{}, err
	}
	return p, nil
}

// PreparePatch normalizes a patch against the current record and checks
// that the merged result is still valid. A changed THB price re-derives the
// EUR price.
func (e *PropertyEditor) PreparePatch(current domain.Property, patch *domain.PropertyPatch) error {
	patch.PriceFromEUR = nil
	if patch.Empty() {
		return &domain.ErrValidation{Field: "body", Message: "no fields to update"}
	}
	if patch.Highlights != nil {
		lines := mergeLines(*patch.Highlights, "")
		patch.Highlights = &lines
	}
	if patch.Images != nil {
		lines := mergeLines(*patch.Images, "")
		patch.Images = &lines
	}
	if patch.PriceFromTHB != nil {
		eur := format.NiceEUR(*patch.PriceFromTHB, e.thbPerEUR)
		patch.PriceFromEUR = &eur
	}

	merged := current.Clone()
	patch.Apply(&merged)
	switch {
	case strings.TrimSpace(merged.ProjectName) == "":
		return &domain.ErrValidation{Field: "projectName", Message: "Projektname ist erforderlich"}
	case strings.TrimSpace(merged.Area) == "":
		return &domain.ErrValidation{Field: "area", Message: "Lage/Area ist erforderlich"}
	case merged.PriceFromTHB <= 0:
		return &domain.ErrValidation{Field: "priceFromTHB", Message: "Preis (THB) ist erforderlich"}
	case len(merged.Images) == 0:
		return &domain.ErrValidation{Field: "images", Message: "Mindestens 1 Bild-URL ist erforderlich"}
	}
	return merged.Validate()
}

// mergeLines joins list entries and newline separated text, trimmed, with
// empty lines dropped.
func mergeLines(list []string, text string) []string {
	out := make([]string, 0, len(list))
	for _, s := range list {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	for _, s := range strings.Split(text, "\n") {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}

func optional(s string) *string {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	return &s
}

func orEmptyUnits(u []domain.UnitType) []domain.UnitType {
	if u == nil {
		return []domain.UnitType{}
	}
	return u
}

func orEmptyDocs(d []domain.DocRef) []domain.DocRef {
	if d == nil {
		return []domain.DocRef{}
	}
	return d
}
