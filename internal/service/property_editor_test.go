package service_test

import (
	"errors"
	"testing"

	"github.com/boddenberg/phuket-immo-bfa/internal/domain"
	"github.com/boddenberg/phuket-immo-bfa/internal/service"
)

func TestPropertyEditor_Build(t *testing.T) {
	e := service.NewPropertyEditor(36.2)

	p, err := e.Build(service.PropertyDraft{
		StatusCategory: domain.Category2027,
		ProjectName:    " Naiharn Villas ",
		Area:           "Nai Harn",
		PropertyType:   domain.PropertyTypeVilla,
		Ownership:      domain.OwnershipFreehold,
		Completion:     "2027-06",
		SizeSqmFrom:    180,
		SizeSqmTo:      260,
		PriceFromTHB:   18500000,
		Highlights:     []string{"Pool", " "},
		HighlightsText: "Meerblick\n\nRuhige Lage",
		ImagesText:     "https://example.com/1.jpg\n https://example.com/2.jpg ",
	})
	if err != nil {
		t.Fatal(err)
	}

	if p.ProjectName != "Naiharn Villas" {
		t.Errorf("expected trimmed name, got %q", p.ProjectName)
	}
	if len(p.Highlights) != 3 || len(p.Images) != 2 {
		t.Errorf("unexpected lists: highlights=%v images=%v", p.Highlights, p.Images)
	}
	if p.PriceFromEUR != 511000 {
		t.Errorf("expected EUR 511000, got %d", p.PriceFromEUR)
	}
	if p.Completion == nil || *p.Completion != "2027-06" {
		t.Errorf("unexpected completion %v", p.Completion)
	}
}

func TestPropertyEditor_BuildRequiredFields(t *testing.T) {
	e := service.NewPropertyEditor(36.2)
	base := service.PropertyDraft{
		StatusCategory: domain.CategoryReady,
		ProjectName:    "X",
		Area:           "Rawai",
		PropertyType:   domain.PropertyTypeCondo,
		Ownership:      domain.OwnershipLeasehold,
		PriceFromTHB:   3000000,
		Images:         []string{"https://example.com/x.jpg"},
	}

	tests := []struct {
		field  string
		mutate func(*service.PropertyDraft)
	}{
		{"projectName", func(d *service.PropertyDraft) { d.ProjectName = " " }},
		{"area", func(d *service.PropertyDraft) { d.Area = "" }},
		{"priceFromTHB", func(d *service.PropertyDraft) { d.PriceFromTHB = 0 }},
		{"images", func(d *service.PropertyDraft) { d.Images = []string{" "} }},
		{"sizeSqmTo", func(d *service.PropertyDraft) { d.SizeSqmFrom, d.SizeSqmTo = 80, 40 }},
	}
	for _, tt := range tests {
		t.Run(tt.field, func(t *testing.T) {
			d := base
			tt.mutate(&d)
			_, err := e.Build(d)
			var valErr *domain.ErrValidation
			if !errors.As(err, &valErr) || valErr.Field != tt.field {
				t.Errorf("expected validation error on %s, got %v", tt.field, err)
			}
		})
	}
}

func TestPropertyEditor_PreparePatch(t *testing.T) {
	e := service.NewPropertyEditor(36.2)
	current := testProperty("Current", domain.CategoryReady, 1, true)

	price := int64(7240000)
	patch := &domain.PropertyPatch{PriceFromTHB: &price}
	if err := e.PreparePatch(current, patch); err != nil {
		t.Fatal(err)
	}
	if patch.PriceFromEUR == nil || *patch.PriceFromEUR != 200000 {
		t.Errorf("expected derived EUR 200000, got %v", patch.PriceFromEUR)
	}

	eurOnly := int64(1)
	if err := e.PreparePatch(current, &domain.PropertyPatch{PriceFromEUR: &eurOnly}); err == nil {
		t.Error("a patch carrying only a EUR price must be rejected as empty")
	}

	name := "Renamed"
	stale := int64(1)
	patch = &domain.PropertyPatch{ProjectName: &name, PriceFromEUR: &stale}
	if err := e.PreparePatch(current, patch); err != nil {
		t.Fatal(err)
	}
	if patch.PriceFromEUR != nil {
		t.Errorf("EUR price without a THB change must be dropped, got %d", *patch.PriceFromEUR)
	}

	empty := []string{" "}
	err := e.PreparePatch(current, &domain.PropertyPatch{Images: &empty})
	var valErr *domain.ErrValidation
	if !errors.As(err, &valErr) || valErr.Field != "images" {
		t.Errorf("expected images error, got %v", err)
	}

	if err := e.PreparePatch(current, &domain.PropertyPatch{}); !errors.As(err, &valErr) {
		t.Errorf("expected empty patch to be rejected, got %v", err)
	}
}
