package handler

import (
	"net/http"

	"github.com/boddenberg/phuket-immo-bfa/internal/domain"
)

// ============================================================
// Contact form
// ============================================================

func submitLeadHandler(d Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "POST /leads")
		defer span.End()

		if d.Leads == nil {
			writeError(w, http.StatusServiceUnavailable, "lead intake not configured")
			return
		}
		var draft domain.LeadDraft
		if err := decodeJSON(w, r, &draft); err != nil {
			handleServiceError(w, err, d.Logger)
			return
		}
		lead, err := d.Leads.Submit(ctx, draft)
		if err != nil {
			handleServiceError(w, err, d.Logger)
			return
		}
		writeJSON(w, http.StatusCreated, domain.SuccessResponse{
			Message: "Vielen Dank! Wir melden uns innerhalb von 24 Stunden bei Ihnen.",
			ID:      lead.ID,
		})
	}
}

type validateLeadResponse struct {
	Valid  bool               `json:"valid"`
	Fields domain.FieldErrors `json:"fields"`
}

func validateLeadHandler(d Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if d.Leads == nil {
			writeError(w, http.StatusServiceUnavailable, "lead intake not configured")
			return
		}
		var draft domain.LeadDraft
		if err := decodeJSON(w, r, &draft); err != nil {
			handleServiceError(w, err, d.Logger)
			return
		}
		errs := d.Leads.Validate(draft)
		writeJSON(w, http.StatusOK, validateLeadResponse{Valid: errs.OK(), Fields: errs})
	}
}

func whatsAppHandler(d Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if d.Leads == nil {
			writeError(w, http.StatusServiceUnavailable, "contact not configured")
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"url": d.Leads.WhatsAppLink(r.URL.Query().Get("name"))})
	}
}

// ============================================================
// Admin inbox
// ============================================================

func listLeadsHandler(d Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		_, span := tracer.Start(r.Context(), "GET /admin/leads")
		defer span.End()

		snap := GateFromContext(r.Context()).Inbox().Snapshot()
		writeJSON(w, http.StatusOK, domain.ListResponse[domain.Lead]{
			Data:  snap.Leads,
			Total: len(snap.Leads),
			Error: snap.Error,
		})
	}
}
