package mongostore

import (
	"testing"
	"time"

	"github.com/boddenberg/phuket-immo-bfa/internal/domain"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
)

func TestPropertyDoc_RoundTrip(t *testing.T) {
	seed := domain.SeedProperties()[0]
	seed.Transparency = &domain.Transparency{TransferFee: "2 %"}

	doc := propertyDocFrom(&seed)
	got := doc.toDomain()

	if got.ID != seed.ID || got.ProjectName != seed.ProjectName || got.Order != seed.Order {
		t.Errorf("scalar fields lost: %+v", got)
	}
	if len(got.Images) != len(seed.Images) || len(got.Highlights) != len(seed.Highlights) {
		t.Errorf("list fields lost: %+v", got)
	}
	if got.Transparency == nil || got.Transparency.TransferFee != "2 %" {
		t.Errorf("transparency lost: %+v", got.Transparency)
	}
}

func TestPatchUpdate(t *testing.T) {
	name := "Trees Residence"
	blank := " "
	desc := ""
	order := 4

	set, unset := patchUpdate(&domain.PropertyPatch{
		ProjectName: &name,
		Completion:  &blank,
		Description: &desc,
		Order:       &order,
	})

	got := map[string]any{}
	for _, e := range set {
		got[e.Key] = e.Value
	}
	if got["projectName"] != name {
		t.Errorf("expected projectName to be set, got %v", got["projectName"])
	}
	if v, ok := got["completion"]; !ok || v != nil {
		t.Errorf("expected completion to be set to null, got %v", v)
	}
	if got["order"] != 4 {
		t.Errorf("expected order 4, got %v", got["order"])
	}
	if len(unset) != 1 || unset[0].Key != "description" {
		t.Errorf("expected description to be unset, got %v", unset)
	}
	if _, ok := got["area"]; ok {
		t.Error("untouched fields must not be written")
	}
}

func TestReorderModels_IndexBecomesOrder(t *testing.T) {
	ids := []string{"c", "a", "b"}
	models := reorderModels(ids, time.Now())

	if len(models) != len(ids) {
		t.Fatalf("expected %d models, got %d", len(ids), len(models))
	}
	for i, m := range models {
		u, ok := m.(*mongo.UpdateOneModel)
		if !ok {
			t.Fatalf("expected UpdateOneModel, got %T", m)
		}
		filter := u.Filter.(bson.D)
		if filter[0].Value != ids[i] {
			t.Errorf("model %d targets %v, want %s", i, filter[0].Value, ids[i])
		}
		set := u.Update.(bson.D)[0].Value.(bson.D)
		if set[0].Key != "order" || set[0].Value != i {
			t.Errorf("model %d sets %v, want order=%d", i, set[0], i)
		}
	}
}
