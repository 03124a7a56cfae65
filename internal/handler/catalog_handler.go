package handler

import (
	"net/http"

	"github.com/boddenberg/phuket-immo-bfa/internal/domain"
	"github.com/boddenberg/phuket-immo-bfa/internal/service"

	"github.com/go-chi/chi/v5"
	"go.opentelemetry.io/otel/attribute"
)

// ============================================================
// Public catalog
// ============================================================

func publicStore(d Deps, w http.ResponseWriter) *service.CatalogStore {
	if d.Sessions == nil {
		writeError(w, http.StatusServiceUnavailable, "catalog not configured")
		return nil
	}
	return d.Sessions.Public().Store()
}

func listPropertiesHandler(d Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		_, span := tracer.Start(r.Context(), "GET /properties")
		defer span.End()

		store := publicStore(d, w)
		if store == nil {
			return
		}
		snap := store.Snapshot()
		span.SetAttributes(attribute.String("catalog.source", string(snap.Source)))
		writeJSON(w, http.StatusOK, snap)
	}
}

type groupedResponse struct {
	Groups  domain.GroupedProperties `json:"groups"`
	Source  domain.SnapshotSource    `json:"source"`
	Loading bool                     `json:"isLoading"`
	Error   string                   `json:"error,omitempty"`
}

func groupedPropertiesHandler(d Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		_, span := tracer.Start(r.Context(), "GET /properties/grouped")
		defer span.End()

		store := publicStore(d, w)
		if store == nil {
			return
		}
		snap := store.Snapshot()
		writeJSON(w, http.StatusOK, groupedResponse{
			Groups:  service.GroupProperties(snap.Properties),
			Source:  snap.Source,
			Loading: snap.Loading,
			Error:   snap.Error,
		})
	}
}

func getPropertyHandler(d Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		_, span := tracer.Start(r.Context(), "GET /properties/{id}")
		defer span.End()

		store := publicStore(d, w)
		if store == nil {
			return
		}
		id := chi.URLParam(r, "id")
		p, ok := store.Get(id)
		if !ok {
			handleServiceError(w, &domain.ErrNotFound{Resource: "property", ID: id}, d.Logger)
			return
		}
		writeJSON(w, http.StatusOK, p)
	}
}

func inquiryLinkHandler(d Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		_, span := tracer.Start(r.Context(), "GET /properties/{id}/inquiry-link")
		defer span.End()

		if d.Leads == nil {
			writeError(w, http.StatusServiceUnavailable, "contact not configured")
			return
		}
		store := publicStore(d, w)
		if store == nil {
			return
		}
		id := chi.URLParam(r, "id")
		p, ok := store.Get(id)
		if !ok {
			handleServiceError(w, &domain.ErrNotFound{Resource: "property", ID: id}, d.Logger)
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"url": d.Leads.InquiryLink(p)})
	}
}

// ============================================================
// Admin catalog
// ============================================================

func adminListPropertiesHandler(d Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		_, span := tracer.Start(r.Context(), "GET /admin/properties")
		defer span.End()

		snap := GateFromContext(r.Context()).Store().Snapshot()
		writeJSON(w, http.StatusOK, snap)
	}
}

func createPropertyHandler(d Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "POST /admin/properties")
		defer span.End()

		var draft service.PropertyDraft
		if err := decodeJSON(w, r, &draft); err != nil {
			handleServiceError(w, err, d.Logger)
			return
		}
		p, err := d.Editor.Build(draft)
		if err != nil {
			handleServiceError(w, err, d.Logger)
			return
		}
		id, err := d.Catalog.AddProperty(ctx, p)
		if err != nil {
			handleServiceError(w, err, d.Logger)
			return
		}
		writeJSON(w, http.StatusCreated, domain.SuccessResponse{Message: "Objekt angelegt", ID: id})
	}
}

// currentProperty reads the record as the authorized session sees it.
func currentProperty(r *http.Request, id string) (domain.Property, error) {
	p, ok := GateFromContext(r.Context()).Store().Get(id)
	if !ok {
		return domain.Property{}, &domain.ErrNotFound{Resource: "property", ID: id}
	}
	return p, nil
}

func updatePropertyHandler(d Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "PATCH /admin/properties/{id}")
		defer span.End()

		id := chi.URLParam(r, "id")
		var patch domain.PropertyPatch
		if err := decodeJSON(w, r, &patch); err != nil {
			handleServiceError(w, err, d.Logger)
			return
		}
		current, err := currentProperty(r, id)
		if err != nil {
			handleServiceError(w, err, d.Logger)
			return
		}
		if err := d.Editor.PreparePatch(current, &patch); err != nil {
			handleServiceError(w, err, d.Logger)
			return
		}
		if err := d.Catalog.UpdateProperty(ctx, id, &patch); err != nil {
			handleServiceError(w, err, d.Logger)
			return
		}
		writeJSON(w, http.StatusOK, domain.SuccessResponse{Message: "Objekt aktualisiert", ID: id})
	}
}

func deletePropertyHandler(d Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "DELETE /admin/properties/{id}")
		defer span.End()

		id := chi.URLParam(r, "id")
		if err := d.Catalog.DeleteProperty(ctx, id); err != nil {
			handleServiceError(w, err, d.Logger)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

func togglePublishHandler(d Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "POST /admin/properties/{id}/publish")
		defer span.End()

		id := chi.URLParam(r, "id")
		current, err := currentProperty(r, id)
		if err != nil {
			handleServiceError(w, err, d.Logger)
			return
		}
		published := !current.IsPublished
		if err := d.Catalog.UpdateProperty(ctx, id, &domain.PropertyPatch{IsPublished: &published}); err != nil {
			handleServiceError(w, err, d.Logger)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"id": id, "isPublished": published})
	}
}

type reorderRequest struct {
	IDs []string `json:"ids"`
}

func reorderHandler(d Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "PUT /admin/categories/{category}/order")
		defer span.End()

		category := domain.Category(chi.URLParam(r, "category"))
		if !category.Valid() {
			handleServiceError(w, &domain.ErrValidation{Field: "category", Message: "unknown category " + string(category)}, d.Logger)
			return
		}
		var req reorderRequest
		if err := decodeJSON(w, r, &req); err != nil {
			handleServiceError(w, err, d.Logger)
			return
		}
		if len(req.IDs) == 0 {
			handleServiceError(w, &domain.ErrValidation{Field: "ids", Message: "at least one id is required"}, d.Logger)
			return
		}
		if err := d.Catalog.Reorder(ctx, category, req.IDs); err != nil {
			handleServiceError(w, err, d.Logger)
			return
		}
		writeJSON(w, http.StatusOK, domain.SuccessResponse{Message: "Reihenfolge gespeichert"})
	}
}
