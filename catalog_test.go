package erpsync

import (
	"errors"
	"testing"
)

func sampleCategories() []Category {
	return []Category{
		{ID: "c1", Name: "Lavage extérieur", Active: true},
		{ID: "c2", Name: "Lavage intérieur", Active: true},
		{ID: "c3", Name: "Carrosserie", ParentID: strPtr("c1"), PriceHT: floatPtr(45), Active: true},
		{ID: "c4", Name: "Jantes", ParentID: strPtr("c1"), Active: false},
		{ID: "c5", Name: "Orphan", ParentID: strPtr("gone"), Active: true},
	}
}

func TestBuildCategoryTree(t *testing.T) {
	tree := BuildCategoryTree(sampleCategories())
	if len(tree) != 2 {
		t.Fatalf("got %d roots, want 2", len(tree))
	}
	if tree[0].Category.ID != "c1" || tree[1].Category.ID != "c2" {
		t.Errorf("root order = %s, %s", tree[0].Category.ID, tree[1].Category.ID)
	}
	if len(tree[0].Children) != 2 {
		t.Fatalf("c1 has %d children, want 2", len(tree[0].Children))
	}
	if tree[0].Children[0].ID != "c3" || tree[0].Children[1].ID != "c4" {
		t.Errorf("children order = %s, %s", tree[0].Children[0].ID, tree[0].Children[1].ID)
	}
	if len(tree[1].Children) != 0 {
		t.Errorf("c2 has %d children, want 0", len(tree[1].Children))
	}
}

func TestBuildCategoryTreeDropsOrphans(t *testing.T) {
	for _, node := range BuildCategoryTree(sampleCategories()) {
		for _, child := range node.Children {
			if child.ID == "c5" {
				t.Error("orphan child attached to a root")
			}
		}
	}
}

func TestValidateCategoryParent(t *testing.T) {
	cats := sampleCategories()

	if err := ValidateCategoryParent(cats, "c2", nil); err != nil {
		t.Errorf("nil parent: %v", err)
	}
	if err := ValidateCategoryParent(cats, "c2", strPtr("c1")); err != nil {
		t.Errorf("root parent: %v", err)
	}
	if err := ValidateCategoryParent(cats, "c2", strPtr("c3")); !errors.Is(err, ErrCategoryDepth) {
		t.Errorf("child parent err = %v, want ErrCategoryDepth", err)
	}
	if err := ValidateCategoryParent(cats, "c2", strPtr("c2")); !errors.Is(err, ErrCategorySelfParent) {
		t.Errorf("self parent err = %v, want ErrCategorySelfParent", err)
	}
	if err := ValidateCategoryParent(cats, "c2", strPtr("missing")); !errors.Is(err, ErrCategoryParentMissing) {
		t.Errorf("missing parent err = %v, want ErrCategoryParentMissing", err)
	}
}

func TestComputeCatalogSummary(t *testing.T) {
	services := []Service{
		{ID: "s1", Active: true, Options: []ServiceOption{
			{ID: "o1", UnitPriceHT: 30, DefaultDurationMin: 45, Active: true},
			{ID: "o2", UnitPriceHT: 50, DefaultDurationMin: 75, Active: true},
			{ID: "o3", UnitPriceHT: 999, DefaultDurationMin: 999, Active: false},
		}},
		{ID: "s2", Active: false},
	}
	s := ComputeCatalogSummary(services)

	if s.ServiceCount != 2 || s.ActiveServices != 1 {
		t.Errorf("services = %d/%d, want 2/1", s.ServiceCount, s.ActiveServices)
	}
	if s.OptionCount != 3 || s.ActiveOptions != 2 {
		t.Errorf("options = %d/%d, want 3/2", s.OptionCount, s.ActiveOptions)
	}
	if s.AverageOptionPrice != 40 {
		t.Errorf("AverageOptionPrice = %v, want inactive options excluded", s.AverageOptionPrice)
	}
	if s.AverageDurationMin != 60 {
		t.Errorf("AverageDurationMin = %v, want 60", s.AverageDurationMin)
	}
}

func TestComputeCatalogSummaryEmpty(t *testing.T) {
	s := ComputeCatalogSummary(nil)
	if s.AverageOptionPrice != 0 || s.AverageDurationMin != 0 {
		t.Errorf("empty summary averages not zero: %+v", s)
	}
}
