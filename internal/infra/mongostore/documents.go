package mongostore

import (
	"strings"
	"time"

	"github.com/boddenberg/phuket-immo-bfa/internal/domain"

	"go.mongodb.org/mongo-driver/v2/bson"
)

type unitTypeDoc struct {
	Name         string  `bson:"name"`
	SizeSqmFrom  float64 `bson:"sizeSqmFrom"`
	SizeSqmTo    float64 `bson:"sizeSqmTo"`
	PriceFromTHB int64   `bson:"priceFromTHB"`
	PriceFromEUR int64   `bson:"priceFromEUR"`
}

type transparencyDoc struct {
	CamPerSqm     *float64 `bson:"camPerSqm,omitempty"`
	SinkingFund   *float64 `bson:"sinkingFund,omitempty"`
	TransferFee   string   `bson:"transferFee,omitempty"`
	ManagementFee string   `bson:"managementFee,omitempty"`
	Notes         string   `bson:"notes,omitempty"`
}

type docRefDoc struct {
	Title string `bson:"title"`
	URL   string `bson:"url"`
}

// propertyDoc mirrors the field names of the web client's documents.
type propertyDoc struct {
	ID             string           `bson:"_id"`
	StatusCategory string           `bson:"statusCategory"`
	ProjectName    string           `bson:"projectName"`
	Area           string           `bson:"area"`
	PropertyType   string           `bson:"propertyType"`
	UnitTypes      []unitTypeDoc    `bson:"unitTypes"`
	SizeSqmFrom    float64          `bson:"sizeSqmFrom"`
	SizeSqmTo      float64          `bson:"sizeSqmTo"`
	PriceFromTHB   int64            `bson:"priceFromTHB"`
	PriceFromEUR   int64            `bson:"priceFromEUR"`
	Ownership      string           `bson:"ownership"`
	Completion     *string          `bson:"completion"`
	Highlights     []string         `bson:"highlights"`
	Transparency   *transparencyDoc `bson:"transparency,omitempty"`
	OperatorModel  *string          `bson:"operatorModel"`
	Docs           []docRefDoc      `bson:"docs"`
	Images         []string         `bson:"images"`
	Description    string           `bson:"description,omitempty"`
	IsPublished    bool             `bson:"isPublished"`
	Order          int              `bson:"order"`
	CreatedAt      time.Time        `bson:"createdAt"`
	UpdatedAt      time.Time        `bson:"updatedAt"`
}

func (d *propertyDoc) toDomain() domain.Property {
	p := domain.Property{
		ID:             d.ID,
		StatusCategory: domain.Category(d.StatusCategory),
		ProjectName:    d.ProjectName,
		Area:           d.Area,
		PropertyType:   domain.PropertyType(d.PropertyType),
		SizeSqmFrom:    d.SizeSqmFrom,
		SizeSqmTo:      d.SizeSqmTo,
		PriceFromTHB:   d.PriceFromTHB,
		PriceFromEUR:   d.PriceFromEUR,
		Ownership:      domain.Ownership(d.Ownership),
		Completion:     d.Completion,
		Highlights:     d.Highlights,
		OperatorModel:  d.OperatorModel,
		Images:         d.Images,
		Description:    d.Description,
		IsPublished:    d.IsPublished,
		Order:          d.Order,
		CreatedAt:      d.CreatedAt,
		UpdatedAt:      d.UpdatedAt,
	}
	for _, u := range d.UnitTypes {
		p.UnitTypes = append(p.UnitTypes, domain.UnitType(u))
	}
	for _, r := range d.Docs {
		p.Docs = append(p.Docs, domain.DocRef(r))
	}
	if d.Transparency != nil {
		t := domain.Transparency(*d.Transparency)
		p.Transparency = &t
	}
	return p
}

func propertyDocFrom(p *domain.Property) propertyDoc {
	d := propertyDoc{
		ID:             p.ID,
		StatusCategory: string(p.StatusCategory),
		ProjectName:    p.ProjectName,
		Area:           p.Area,
		PropertyType:   string(p.PropertyType),
		SizeSqmFrom:    p.SizeSqmFrom,
		SizeSqmTo:      p.SizeSqmTo,
		PriceFromTHB:   p.PriceFromTHB,
		PriceFromEUR:   p.PriceFromEUR,
		Ownership:      string(p.Ownership),
		Completion:     p.Completion,
		Highlights:     orEmpty(p.Highlights),
		OperatorModel:  p.OperatorModel,
		Images:         orEmpty(p.Images),
		Description:    p.Description,
		IsPublished:    p.IsPublished,
		Order:          p.Order,
		CreatedAt:      p.CreatedAt.UTC(),
		UpdatedAt:      p.UpdatedAt.UTC(),
		UnitTypes:      unitTypeDocs(p.UnitTypes),
		Docs:           docRefDocs(p.Docs),
	}
	if p.Transparency != nil {
		t := transparencyDoc(*p.Transparency)
		d.Transparency = &t
	}
	return d
}

func unitTypeDocs(in []domain.UnitType) []unitTypeDoc {
	out := make([]unitTypeDoc, 0, len(in))
	for _, u := range in {
		out = append(out, unitTypeDoc(u))
	}
	return out
}

func docRefDocs(in []domain.DocRef) []docRefDoc {
	out := make([]docRefDoc, 0, len(in))
	for _, r := range in {
		out = append(out, docRefDoc(r))
	}
	return out
}

// patchUpdate builds the $set and $unset documents of a partial update.
// Blank completion or operator model values unset the field.
func patchUpdate(pp *domain.PropertyPatch) (set bson.D, unset bson.D) {
	add := func(k string, v any) { set = append(set, bson.E{Key: k, Value: v}) }

	if pp.StatusCategory != nil {
		add("statusCategory", string(*pp.StatusCategory))
	}
	if pp.ProjectName != nil {
		add("projectName", *pp.ProjectName)
	}
	if pp.Area != nil {
		add("area", *pp.Area)
	}
	if pp.PropertyType != nil {
		add("propertyType", string(*pp.PropertyType))
	}
	if pp.UnitTypes != nil {
		add("unitTypes", unitTypeDocs(*pp.UnitTypes))
	}
	if pp.SizeSqmFrom != nil {
		add("sizeSqmFrom", *pp.SizeSqmFrom)
	}
	if pp.SizeSqmTo != nil {
		add("sizeSqmTo", *pp.SizeSqmTo)
	}
	if pp.PriceFromTHB != nil {
		add("priceFromTHB", *pp.PriceFromTHB)
	}
	if pp.PriceFromEUR != nil {
		add("priceFromEUR", *pp.PriceFromEUR)
	}
	if pp.Ownership != nil {
		add("ownership", string(*pp.Ownership))
	}
	if pp.Completion != nil {
		if v := strings.TrimSpace(*pp.Completion); v != "" {
			add("completion", v)
		} else {
			add("completion", nil)
		}
	}
	if pp.Highlights != nil {
		add("highlights", orEmpty(*pp.Highlights))
	}
	if pp.Transparency != nil {
		add("transparency", transparencyDoc(*pp.Transparency))
	}
	if pp.OperatorModel != nil {
		if v := strings.TrimSpace(*pp.OperatorModel); v != "" {
			add("operatorModel", v)
		} else {
			add("operatorModel", nil)
		}
	}
	if pp.Docs != nil {
		add("docs", docRefDocs(*pp.Docs))
	}
	if pp.Images != nil {
		add("images", orEmpty(*pp.Images))
	}
	if pp.Description != nil {
		if *pp.Description == "" {
			unset = append(unset, bson.E{Key: "description", Value: ""})
		} else {
			add("description", *pp.Description)
		}
	}
	if pp.IsPublished != nil {
		add("isPublished", *pp.IsPublished)
	}
	if pp.Order != nil {
		add("order", *pp.Order)
	}
	return set, unset
}

type leadDoc struct {
	ID                string    `bson:"_id"`
	Name              string    `bson:"name"`
	Phone             string    `bson:"phone"`
	Email             string    `bson:"email,omitempty"`
	Budget            string    `bson:"budget,omitempty"`
	Goal              string    `bson:"goal,omitempty"`
	Horizon           string    `bson:"horizon,omitempty"`
	PreferredCategory string    `bson:"preferredCategory,omitempty"`
	DsgvoConsent      bool      `bson:"dsgvoConsent"`
	MarketingConsent  bool      `bson:"marketingConsent"`
	Source            string    `bson:"source"`
	CreatedAt         time.Time `bson:"createdAt"`
}

func leadDocFrom(l *domain.Lead) leadDoc {
	return leadDoc{
		ID:                l.ID,
		Name:              l.Name,
		Phone:             l.Phone,
		Email:             l.Email,
		Budget:            l.Budget,
		Goal:              string(l.Goal),
		Horizon:           string(l.Horizon),
		PreferredCategory: string(l.PreferredCategory),
		DsgvoConsent:      l.DsgvoConsent,
		MarketingConsent:  l.MarketingConsent,
		Source:            l.Source,
		CreatedAt:         l.CreatedAt.UTC(),
	}
}

func (d *leadDoc) toDomain() domain.Lead {
	return domain.Lead{
		ID:                d.ID,
		Name:              d.Name,
		Phone:             d.Phone,
		Email:             d.Email,
		Budget:            d.Budget,
		Goal:              domain.Goal(d.Goal),
		Horizon:           domain.Horizon(d.Horizon),
		PreferredCategory: domain.Category(d.PreferredCategory),
		DsgvoConsent:      d.DsgvoConsent,
		MarketingConsent:  d.MarketingConsent,
		Source:            d.Source,
		CreatedAt:         d.CreatedAt,
	}
}

func orEmpty(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
