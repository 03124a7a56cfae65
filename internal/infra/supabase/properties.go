package supabase

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/boddenberg/phuket-immo-bfa/internal/domain"
	"github.com/boddenberg/phuket-immo-bfa/internal/infra/resilience"
	"github.com/boddenberg/phuket-immo-bfa/internal/port"

	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

// ============================================================
// PropertyStore implementation: properties table via PostgREST
// ============================================================

// propertyRow maps the properties table. "order" is reserved in SQL, the
// column is sort_order.
type propertyRow struct {
	ID             string               `json:"id,omitempty"`
	StatusCategory string               `json:"status_category"`
	ProjectName    string               `json:"project_name"`
	Area           string               `json:"area"`
	PropertyType   string               `json:"property_type"`
	UnitTypes      []domain.UnitType    `json:"unit_types"`
	SizeSqmFrom    float64              `json:"size_sqm_from"`
	SizeSqmTo      float64              `json:"size_sqm_to"`
	PriceFromTHB   int64                `json:"price_from_thb"`
	PriceFromEUR   int64                `json:"price_from_eur"`
	Ownership      string               `json:"ownership"`
	Completion     *string              `json:"completion"`
	Highlights     []string             `json:"highlights"`
	Transparency   *domain.Transparency `json:"transparency"`
	OperatorModel  *string              `json:"operator_model"`
	Docs           []domain.DocRef      `json:"docs"`
	Images         []string             `json:"images"`
	Description    string               `json:"description"`
	IsPublished    bool                 `json:"is_published"`
	SortOrder      int                  `json:"sort_order"`
	CreatedAt      string               `json:"created_at,omitempty"`
	UpdatedAt      string               `json:"updated_at,omitempty"`
}

func (r *propertyRow) toDomain() domain.Property {
	return domain.Property{
		ID:             r.ID,
		StatusCategory: domain.Category(r.StatusCategory),
		ProjectName:    r.ProjectName,
		Area:           r.Area,
		PropertyType:   domain.PropertyType(r.PropertyType),
		UnitTypes:      r.UnitTypes,
		SizeSqmFrom:    r.SizeSqmFrom,
		SizeSqmTo:      r.SizeSqmTo,
		PriceFromTHB:   r.PriceFromTHB,
		PriceFromEUR:   r.PriceFromEUR,
		Ownership:      domain.Ownership(r.Ownership),
		Completion:     r.Completion,
		Highlights:     r.Highlights,
		Transparency:   r.Transparency,
		OperatorModel:  r.OperatorModel,
		Docs:           r.Docs,
		Images:         r.Images,
		Description:    r.Description,
		IsPublished:    r.IsPublished,
		Order:          r.SortOrder,
		CreatedAt:      parseTimestamp(r.CreatedAt),
		UpdatedAt:      parseTimestamp(r.UpdatedAt),
	}
}

func propertyRowFrom(p *domain.Property) propertyRow {
	return propertyRow{
		StatusCategory: string(p.StatusCategory),
		ProjectName:    p.ProjectName,
		Area:           p.Area,
		PropertyType:   string(p.PropertyType),
		UnitTypes:      nonNil(p.UnitTypes),
		SizeSqmFrom:    p.SizeSqmFrom,
		SizeSqmTo:      p.SizeSqmTo,
		PriceFromTHB:   p.PriceFromTHB,
		PriceFromEUR:   p.PriceFromEUR,
		Ownership:      string(p.Ownership),
		Completion:     p.Completion,
		Highlights:     nonNil(p.Highlights),
		Transparency:   p.Transparency,
		OperatorModel:  p.OperatorModel,
		Docs:           nonNil(p.Docs),
		Images:         nonNil(p.Images),
		Description:    p.Description,
		IsPublished:    p.IsPublished,
		SortOrder:      p.Order,
		CreatedAt:      p.CreatedAt.UTC().Format(time.RFC3339),
		UpdatedAt:      p.UpdatedAt.UTC().Format(time.RFC3339),
	}
}

// patchColumns translates a PropertyPatch into PostgREST column updates.
func patchColumns(pp *domain.PropertyPatch) map[string]any {
	cols := make(map[string]any)
	if pp.StatusCategory != nil {
		cols["status_category"] = string(*pp.StatusCategory)
	}
	if pp.ProjectName != nil {
		cols["project_name"] = *pp.ProjectName
	}
	if pp.Area != nil {
		cols["area"] = *pp.Area
	}
	if pp.PropertyType != nil {
		cols["property_type"] = string(*pp.PropertyType)
	}
	if pp.UnitTypes != nil {
		cols["unit_types"] = nonNil(*pp.UnitTypes)
	}
	if pp.SizeSqmFrom != nil {
		cols["size_sqm_from"] = *pp.SizeSqmFrom
	}
	if pp.SizeSqmTo != nil {
		cols["size_sqm_to"] = *pp.SizeSqmTo
	}
	if pp.PriceFromTHB != nil {
		cols["price_from_thb"] = *pp.PriceFromTHB
	}
	if pp.PriceFromEUR != nil {
		cols["price_from_eur"] = *pp.PriceFromEUR
	}
	if pp.Ownership != nil {
		cols["ownership"] = string(*pp.Ownership)
	}
	if pp.Completion != nil {
		cols["completion"] = nullIfBlank(*pp.Completion)
	}
	if pp.Highlights != nil {
		cols["highlights"] = nonNil(*pp.Highlights)
	}
	if pp.Transparency != nil {
		cols["transparency"] = pp.Transparency
	}
	if pp.OperatorModel != nil {
		cols["operator_model"] = nullIfBlank(*pp.OperatorModel)
	}
	if pp.Docs != nil {
		cols["docs"] = nonNil(*pp.Docs)
	}
	if pp.Images != nil {
		cols["images"] = nonNil(*pp.Images)
	}
	if pp.Description != nil {
		cols["description"] = *pp.Description
	}
	if pp.IsPublished != nil {
		cols["is_published"] = *pp.IsPublished
	}
	if pp.Order != nil {
		cols["sort_order"] = *pp.Order
	}
	return cols
}

func propertiesPath(q port.PropertyQuery) string {
	path := tableProperties + "?select=*&order=status_category.asc,sort_order.asc"
	if q.PublishedOnly {
		path += "&is_published=eq.true"
	}
	return path
}

func decodeProperties(body []byte) ([]domain.Property, error) {
	var rows []propertyRow
	if len(body) > 0 {
		if err := json.Unmarshal(body, &rows); err != nil {
			return nil, fmt.Errorf("decode properties: %w", err)
		}
	}
	out := make([]domain.Property, 0, len(rows))
	for i := range rows {
		out = append(out, rows[i].toDomain())
	}
	return out, nil
}

// ListProperties runs the catalog query once.
func (c *Client) ListProperties(ctx context.Context, q port.PropertyQuery) ([]domain.Property, error) {
	ctx, span := tracer.Start(ctx, "Supabase.ListProperties")
	defer span.End()
	span.SetAttributes(attribute.Bool("query.published_only", q.PublishedOnly))

	body, err := c.fetchProperties(ctx, q)
	if err != nil {
		return nil, err
	}
	return decodeProperties(body)
}

func (c *Client) fetchProperties(ctx context.Context, q port.PropertyQuery) ([]byte, error) {
	var body []byte
	err := c.call(ctx, "supabase/properties", func() error {
		b, err := c.doGet(ctx, propertiesPath(q))
		if err != nil {
			return err
		}
		body = b
		return nil
	})
	return body, err
}

// WatchProperties polls the catalog query and pushes every changed result set.
func (c *Client) WatchProperties(ctx context.Context, q port.PropertyQuery, onSnapshot port.PropertySnapshotFunc, onError port.ErrorFunc) (port.CancelFunc, error) {
	c.logger.Info("supabase: watching properties", zap.Bool("published_only", q.PublishedOnly))

	cancel := c.watch(ctx, "properties",
		func(ctx context.Context) ([]byte, error) { return c.fetchProperties(ctx, q) },
		func(body []byte) error {
			props, err := decodeProperties(body)
			if err != nil {
				return err
			}
			onSnapshot(props)
			return nil
		},
		onError,
	)
	return cancel, nil
}

// CreateProperty inserts a property and returns the id assigned by the database.
func (c *Client) CreateProperty(ctx context.Context, p *domain.Property) (string, error) {
	ctx, span := tracer.Start(ctx, "Supabase.CreateProperty")
	defer span.End()

	row := propertyRowFrom(p)
	var id string
	err := c.callOnce(ctx, "supabase/properties", func() error {
		body, err := c.doPost(ctx, tableProperties, row)
		if err != nil {
			return err
		}
		var created []propertyRow
		if err := json.Unmarshal(body, &created); err != nil || len(created) == 0 {
			return resilience.Permanent(fmt.Errorf("decode created property: %w", errOrEmpty(err)))
		}
		id = created[0].ID
		return nil
	})
	if err != nil {
		return "", err
	}

	span.SetAttributes(attribute.String("property.id", id))
	c.logger.Info("supabase: property created", zap.String("id", id), zap.String("project", p.ProjectName))
	return id, nil
}

// UpdateProperty applies a partial update and bumps updated_at.
func (c *Client) UpdateProperty(ctx context.Context, id string, patch *domain.PropertyPatch) error {
	ctx, span := tracer.Start(ctx, "Supabase.UpdateProperty")
	defer span.End()
	span.SetAttributes(attribute.String("property.id", id))

	cols := patchColumns(patch)
	cols["updated_at"] = time.Now().UTC().Format(time.RFC3339)

	return c.callOnce(ctx, "supabase/properties", func() error {
		return c.doPatch(ctx, tableProperties+"?id=eq."+url.QueryEscape(id), cols)
	})
}

// DeleteProperty removes a property. Deleting a missing id is not an error.
func (c *Client) DeleteProperty(ctx context.Context, id string) error {
	ctx, span := tracer.Start(ctx, "Supabase.DeleteProperty")
	defer span.End()
	span.SetAttributes(attribute.String("property.id", id))

	return c.callOnce(ctx, "supabase/properties", func() error {
		return c.doDelete(ctx, tableProperties+"?id=eq."+url.QueryEscape(id))
	})
}

// ReorderProperties sets sort_order = index for every id. The
// reorder_properties function updates all rows in one transaction.
func (c *Client) ReorderProperties(ctx context.Context, orderedIDs []string) error {
	ctx, span := tracer.Start(ctx, "Supabase.ReorderProperties")
	defer span.End()
	span.SetAttributes(attribute.Int("property.count", len(orderedIDs)))

	args := map[string]any{"ids": orderedIDs}
	return c.callOnce(ctx, "supabase/properties", func() error {
		_, err := c.doRPC(ctx, "reorder_properties", args)
		return err
	})
}

func parseTimestamp(s string) time.Time {
	if s == "" {
		return time.Time{}
	}
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		// PostgREST renders timestamptz without the "T" for some column types.
		t, _ = time.Parse("2006-01-02 15:04:05.999999-07", s)
	}
	return t
}

func nullIfBlank(s string) any {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	return s
}

func nonNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}

func errOrEmpty(err error) error {
	if err != nil {
		return err
	}
	return fmt.Errorf("empty representation")
}
