// Package domain defines the core business entities of the Phuket property
// BFA. These models are independent of the backing store and represent the
// canonical data structures used throughout the service.
package domain

import (
	"fmt"
	"strings"
	"time"
)

// ============================================================
// Property catalog
// ============================================================

// Category is the construction-status bucket a property is listed under.
type Category string

const (
	CategoryReady Category = "READY"
	Category2026  Category = "2026"
	Category2027  Category = "2027"
)

// Categories lists every category in display order.
var Categories = []Category{CategoryReady, Category2026, Category2027}

// Valid reports whether c is one of the known categories.
func (c Category) Valid() bool {
	switch c {
	case CategoryReady, Category2026, Category2027:
		return true
	}
	return false
}

// PropertyType is the structural type of a project.
type PropertyType string

const (
	PropertyTypeCondo PropertyType = "CONDO"
	PropertyTypeVilla PropertyType = "VILLA"
)

// Valid reports whether t is a known property type.
func (t PropertyType) Valid() bool {
	return t == PropertyTypeCondo || t == PropertyTypeVilla
}

// Ownership is the legal holding structure offered to foreign buyers.
type Ownership string

const (
	OwnershipLeasehold Ownership = "LEASEHOLD"
	OwnershipFreehold  Ownership = "FREEHOLD"
	OwnershipMixed     Ownership = "MIXED"
)

// Valid reports whether o is a known ownership structure.
func (o Ownership) Valid() bool {
	switch o {
	case OwnershipLeasehold, OwnershipFreehold, OwnershipMixed:
		return true
	}
	return false
}

// UnitType describes one unit layout offered inside a project.
type UnitType struct {
	Name         string  `json:"name"`
	SizeSqmFrom  float64 `json:"sizeSqmFrom"`
	SizeSqmTo    float64 `json:"sizeSqmTo"`
	PriceFromTHB int64   `json:"priceFromTHB"`
	PriceFromEUR int64   `json:"priceFromEUR"`
}

// Transparency holds the running and one-off cost figures of a project.
// Every field is optional.
type Transparency struct {
	CamPerSqm     *float64 `json:"camPerSqm,omitempty"`
	SinkingFund   *float64 `json:"sinkingFund,omitempty"`
	TransferFee   string   `json:"transferFee,omitempty"`
	ManagementFee string   `json:"managementFee,omitempty"`
	Notes         string   `json:"notes,omitempty"`
}

// DocRef is a downloadable document attached to a property.
type DocRef struct {
	Title string `json:"title"`
	URL   string `json:"url"`
}

// Property is a catalog entry.
//
// PriceFromTHB is authoritative; PriceFromEUR is a rounded display projection.
// Order is unique within a category, not globally. Completion is "YYYY-MM"
// or nil for projects that are already finished.
type Property struct {
	ID             string        `json:"id"`
	StatusCategory Category      `json:"statusCategory"`
	ProjectName    string        `json:"projectName"`
	Area           string        `json:"area"`
	PropertyType   PropertyType  `json:"propertyType"`
	UnitTypes      []UnitType    `json:"unitTypes"`
	SizeSqmFrom    float64       `json:"sizeSqmFrom"`
	SizeSqmTo      float64       `json:"sizeSqmTo"`
	PriceFromTHB   int64         `json:"priceFromTHB"`
	PriceFromEUR   int64         `json:"priceFromEUR"`
	Ownership      Ownership     `json:"ownership"`
	Completion     *string       `json:"completion"`
	Highlights     []string      `json:"highlights"`
	Transparency   *Transparency `json:"transparency,omitempty"`
	OperatorModel  *string       `json:"operatorModel"`
	Docs           []DocRef      `json:"docs"`
	Images         []string      `json:"images"`
	Description    string        `json:"description,omitempty"`
	IsPublished    bool          `json:"isPublished"`
	Order          int           `json:"order"`
	CreatedAt      time.Time     `json:"createdAt"`
	UpdatedAt      time.Time     `json:"updatedAt"`
}

// PrimaryImage returns the first image URL, or "" when there is none.
func (p *Property) PrimaryImage() string {
	if len(p.Images) == 0 {
		return ""
	}
	return p.Images[0]
}

// Validate checks the structural invariants of a property record.
func (p *Property) Validate() error {
	if !p.StatusCategory.Valid() {
		return &ErrValidation{Field: "statusCategory", Message: fmt.Sprintf("unknown category %q", p.StatusCategory)}
	}
	if !p.PropertyType.Valid() {
		return &ErrValidation{Field: "propertyType", Message: fmt.Sprintf("unknown property type %q", p.PropertyType)}
	}
	if !p.Ownership.Valid() {
		return &ErrValidation{Field: "ownership", Message: fmt.Sprintf("unknown ownership %q", p.Ownership)}
	}
	if p.SizeSqmFrom <= 0 || p.SizeSqmTo <= 0 {
		return &ErrValidation{Field: "sizeSqmFrom", Message: "size must be positive"}
	}
	if p.SizeSqmFrom > p.SizeSqmTo {
		return &ErrValidation{Field: "sizeSqmTo", Message: "sizeSqmTo must be greater than or equal to sizeSqmFrom"}
	}
	if p.Completion != nil {
		if _, err := time.Parse("2006-01", *p.Completion); err != nil {
			return &ErrValidation{Field: "completion", Message: "completion must be formatted as YYYY-MM"}
		}
	}
	return nil
}

// Clone returns a deep copy so callers can mutate the result freely.
func (p Property) Clone() Property {
	out := p
	out.UnitTypes = append([]UnitType(nil), p.UnitTypes...)
	out.Highlights = append([]string(nil), p.Highlights...)
	out.Docs = append([]DocRef(nil), p.Docs...)
	out.Images = append([]string(nil), p.Images...)
	if p.Completion != nil {
		c := *p.Completion
		out.Completion = &c
	}
	if p.OperatorModel != nil {
		m := *p.OperatorModel
		out.OperatorModel = &m
	}
	if p.Transparency != nil {
		t := *p.Transparency
		out.Transparency = &t
	}
	return out
}

// PropertyPatch is a partial update. Nil fields are left untouched.
// An empty Completion or OperatorModel clears the value.
type PropertyPatch struct {
	StatusCategory *Category      `json:"statusCategory,omitempty"`
	ProjectName    *string        `json:"projectName,omitempty"`
	Area           *string        `json:"area,omitempty"`
	PropertyType   *PropertyType  `json:"propertyType,omitempty"`
	UnitTypes      *[]UnitType    `json:"unitTypes,omitempty"`
	SizeSqmFrom    *float64       `json:"sizeSqmFrom,omitempty"`
	SizeSqmTo      *float64       `json:"sizeSqmTo,omitempty"`
	PriceFromTHB   *int64         `json:"priceFromTHB,omitempty"`
	PriceFromEUR   *int64         `json:"-"` // derived from PriceFromTHB only
	Ownership      *Ownership     `json:"ownership,omitempty"`
	Completion     *string        `json:"completion,omitempty"`
	Highlights     *[]string      `json:"highlights,omitempty"`
	Transparency   *Transparency  `json:"transparency,omitempty"`
	OperatorModel  *string        `json:"operatorModel,omitempty"`
	Docs           *[]DocRef      `json:"docs,omitempty"`
	Images         *[]string      `json:"images,omitempty"`
	Description    *string        `json:"description,omitempty"`
	IsPublished    *bool          `json:"isPublished,omitempty"`
	Order          *int           `json:"order,omitempty"`
}

// Apply writes every set field of the patch onto p.
func (pp *PropertyPatch) Apply(p *Property) {
	if pp.StatusCategory != nil {
		p.StatusCategory = *pp.StatusCategory
	}
	if pp.ProjectName != nil {
		p.ProjectName = *pp.ProjectName
	}
	if pp.Area != nil {
		p.Area = *pp.Area
	}
	if pp.PropertyType != nil {
		p.PropertyType = *pp.PropertyType
	}
	if pp.UnitTypes != nil {
		p.UnitTypes = append([]UnitType(nil), (*pp.UnitTypes)...)
	}
	if pp.SizeSqmFrom != nil {
		p.SizeSqmFrom = *pp.SizeSqmFrom
	}
	if pp.SizeSqmTo != nil {
		p.SizeSqmTo = *pp.SizeSqmTo
	}
	if pp.PriceFromTHB != nil {
		p.PriceFromTHB = *pp.PriceFromTHB
	}
	if pp.PriceFromEUR != nil {
		p.PriceFromEUR = *pp.PriceFromEUR
	}
	if pp.Ownership != nil {
		p.Ownership = *pp.Ownership
	}
	if pp.Completion != nil {
		p.Completion = nonEmpty(*pp.Completion)
	}
	if pp.Highlights != nil {
		p.Highlights = append([]string(nil), (*pp.Highlights)...)
	}
	if pp.Transparency != nil {
		t := *pp.Transparency
		p.Transparency = &t
	}
	if pp.OperatorModel != nil {
		p.OperatorModel = nonEmpty(*pp.OperatorModel)
	}
	if pp.Docs != nil {
		p.Docs = append([]DocRef(nil), (*pp.Docs)...)
	}
	if pp.Images != nil {
		p.Images = append([]string(nil), (*pp.Images)...)
	}
	if pp.Description != nil {
		p.Description = *pp.Description
	}
	if pp.IsPublished != nil {
		p.IsPublished = *pp.IsPublished
	}
	if pp.Order != nil {
		p.Order = *pp.Order
	}
}

// Empty reports whether the patch carries no field at all.
func (pp *PropertyPatch) Empty() bool {
	return *pp == PropertyPatch{}
}

func nonEmpty(s string) *string {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	return &s
}

// GroupedProperties is the per-category view of a catalog snapshot.
type GroupedProperties struct {
	Ready []Property `json:"READY"`
	Y2026 []Property `json:"2026"`
	Y2027 []Property `json:"2027"`
}

// Bucket returns the slice for category c.
func (g *GroupedProperties) Bucket(c Category) []Property {
	switch c {
	case CategoryReady:
		return g.Ready
	case Category2026:
		return g.Y2026
	case Category2027:
		return g.Y2027
	}
	return nil
}

// ============================================================
// Catalog snapshots
// ============================================================

// SnapshotSource tells where the records of a snapshot came from.
type SnapshotSource string

const (
	SourceRemote SnapshotSource = "remote"
	SourceSeed   SnapshotSource = "seed"
	SourceLocal  SnapshotSource = "local"
	SourceNone   SnapshotSource = "none"
)

// CatalogSnapshot is the state a catalog subscription currently exposes.
type CatalogSnapshot struct {
	Properties []Property     `json:"properties"`
	Source     SnapshotSource `json:"source"`
	Scope      Scope          `json:"scope"`
	Loading    bool           `json:"isLoading"`
	Error      string         `json:"error,omitempty"`
}
