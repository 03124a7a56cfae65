package supabase

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"time"

	"github.com/boddenberg/phuket-immo-bfa/internal/domain"
	"github.com/boddenberg/phuket-immo-bfa/internal/infra/resilience"
	"github.com/boddenberg/phuket-immo-bfa/internal/port"

	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

// ============================================================
// LeadStore / LeadFeed / RoleStore: leads and admins tables
// ============================================================

type leadRow struct {
	ID                string `json:"id,omitempty"`
	Name              string `json:"name"`
	Phone             string `json:"phone"`
	Email             string `json:"email"`
	Budget            string `json:"budget"`
	Goal              string `json:"goal"`
	Horizon           string `json:"horizon"`
	PreferredCategory string `json:"preferred_category"`
	DsgvoConsent      bool   `json:"dsgvo_consent"`
	MarketingConsent  bool   `json:"marketing_consent"`
	Source            string `json:"source"`
	CreatedAt         string `json:"created_at"`
}

func (r *leadRow) toDomain() domain.Lead {
	return domain.Lead{
		ID:                r.ID,
		Name:              r.Name,
		Phone:             r.Phone,
		Email:             r.Email,
		Budget:            r.Budget,
		Goal:              domain.Goal(r.Goal),
		Horizon:           domain.Horizon(r.Horizon),
		PreferredCategory: domain.Category(r.PreferredCategory),
		DsgvoConsent:      r.DsgvoConsent,
		MarketingConsent:  r.MarketingConsent,
		Source:            r.Source,
		CreatedAt:         parseTimestamp(r.CreatedAt),
	}
}

// CreateLead inserts a lead and fills lead.ID with the database id.
// Submissions are not retried.
func (c *Client) CreateLead(ctx context.Context, lead *domain.Lead) error {
	ctx, span := tracer.Start(ctx, "Supabase.CreateLead")
	defer span.End()

	row := leadRow{
		Name:              lead.Name,
		Phone:             lead.Phone,
		Email:             lead.Email,
		Budget:            lead.Budget,
		Goal:              string(lead.Goal),
		Horizon:           string(lead.Horizon),
		PreferredCategory: string(lead.PreferredCategory),
		DsgvoConsent:      lead.DsgvoConsent,
		MarketingConsent:  lead.MarketingConsent,
		Source:            lead.Source,
		CreatedAt:         lead.CreatedAt.UTC().Format(time.RFC3339Nano),
	}

	err := c.callOnce(ctx, "supabase/leads", func() error {
		body, err := c.doPost(ctx, tableLeads, row)
		if err != nil {
			return err
		}
		var created []leadRow
		if err := json.Unmarshal(body, &created); err != nil {
			return resilience.Permanent(fmt.Errorf("decode created lead: %w", err))
		}
		if len(created) > 0 {
			lead.ID = created[0].ID
		}
		return nil
	})
	if err != nil {
		return err
	}

	span.SetAttributes(attribute.String("lead.id", lead.ID))
	return nil
}

// WatchLeads polls the lead table, newest first.
func (c *Client) WatchLeads(ctx context.Context, onSnapshot port.LeadSnapshotFunc, onError port.ErrorFunc) (port.CancelFunc, error) {
	c.logger.Info("supabase: watching leads")

	fetch := func(ctx context.Context) ([]byte, error) {
		var body []byte
		err := c.call(ctx, "supabase/leads", func() error {
			b, err := c.doGet(ctx, tableLeads+"?select=*&order=created_at.desc")
			if err != nil {
				return err
			}
			body = b
			return nil
		})
		return body, err
	}

	cancel := c.watch(ctx, "leads", fetch, func(body []byte) error {
		var rows []leadRow
		if len(body) > 0 {
			if err := json.Unmarshal(body, &rows); err != nil {
				return fmt.Errorf("decode leads: %w", err)
			}
		}
		leads := make([]domain.Lead, 0, len(rows))
		for i := range rows {
			leads = append(leads, rows[i].toDomain())
		}
		onSnapshot(leads)
		return nil
	}, onError)
	return cancel, nil
}

type adminRow struct {
	UID  string `json:"uid"`
	Role string `json:"role"`
}

// GetRole reads the admins record for uid. A missing record returns (nil, nil).
func (c *Client) GetRole(ctx context.Context, uid string) (*domain.RoleRecord, error) {
	ctx, span := tracer.Start(ctx, "Supabase.GetRole")
	defer span.End()
	span.SetAttributes(attribute.String("admin.uid", uid))

	var rows []adminRow
	err := c.call(ctx, "supabase/admins", func() error {
		body, err := c.doGet(ctx, tableAdmins+"?select=uid,role&limit=1&uid=eq."+url.QueryEscape(uid))
		if err != nil {
			return err
		}
		rows = nil
		if len(body) == 0 {
			return nil
		}
		if err := json.Unmarshal(body, &rows); err != nil {
			return resilience.Permanent(fmt.Errorf("decode admins: %w", err))
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		c.logger.Debug("supabase: no admin record", zap.String("uid", uid))
		return nil, nil
	}
	return &domain.RoleRecord{UID: rows[0].UID, Role: rows[0].Role}, nil
}
