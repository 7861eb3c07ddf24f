package erpsync

import "errors"

// Catalog categories form at most a two-level tree: roots have no parent,
// children point directly to a root. Deeper nesting is rejected at validation
// time so the tree view never has to recurse.

// ErrCategoryDepth is returned when a category would be nested under a child.
var ErrCategoryDepth = errors.New("une catégorie ne peut pas être rattachée à une sous-catégorie")

// ErrCategoryParentMissing is returned when the referenced parent does not exist.
var ErrCategoryParentMissing = errors.New("catégorie parente introuvable")

// ErrCategorySelfParent is returned when a category references itself.
var ErrCategorySelfParent = errors.New("une catégorie ne peut pas être sa propre parente")

// CategoryNode is one root of the category tree with its children attached.
type CategoryNode struct {
	Category Category   `json:"category"`
	Children []Category `json:"children"`
}

// BuildCategoryTree groups categories into roots and their children,
// preserving input order at both levels. Children whose parent is absent are
// dropped rather than promoted.
func BuildCategoryTree(categories []Category) []CategoryNode {
	roots := make([]CategoryNode, 0, len(categories))
	rootIndex := make(map[string]int, len(categories))
	for _, c := range categories {
		if c.ParentID == nil || *c.ParentID == "" {
			rootIndex[c.ID] = len(roots)
			roots = append(roots, CategoryNode{Category: c})
		}
	}
	for _, c := range categories {
		if c.ParentID == nil || *c.ParentID == "" {
			continue
		}
		if i, ok := rootIndex[*c.ParentID]; ok {
			roots[i].Children = append(roots[i].Children, c)
		}
	}
	return roots
}

// ValidateCategoryParent checks that setting parentID on the category with
// the given id keeps the tree two levels deep. A nil or empty parent is
// always valid.
func ValidateCategoryParent(categories []Category, id string, parentID *string) error {
	if parentID == nil || *parentID == "" {
		return nil
	}
	if *parentID == id {
		return ErrCategorySelfParent
	}
	for _, c := range categories {
		if c.ID != *parentID {
			continue
		}
		if c.ParentID != nil && *c.ParentID != "" {
			return ErrCategoryDepth
		}
		return nil
	}
	return ErrCategoryParentMissing
}

// CatalogSummary aggregates the service catalog for the settings screen.
type CatalogSummary struct {
	ServiceCount       int     `json:"serviceCount"`
	ActiveServices     int     `json:"activeServices"`
	OptionCount        int     `json:"optionCount"`
	ActiveOptions      int     `json:"activeOptions"`
	AverageOptionPrice float64 `json:"averageOptionPrice"`
	AverageDurationMin float64 `json:"averageDurationMin"`
}

// ComputeCatalogSummary derives the catalog figures. Averages cover active
// options only and collapse to zero when there are none.
func ComputeCatalogSummary(services []Service) CatalogSummary {
	var s CatalogSummary
	var priceSum, durationSum float64
	for _, svc := range services {
		s.ServiceCount++
		if svc.Active {
			s.ActiveServices++
		}
		for _, opt := range svc.Options {
			s.OptionCount++
			if !opt.Active {
				continue
			}
			s.ActiveOptions++
			priceSum += opt.UnitPriceHT
			durationSum += float64(opt.DefaultDurationMin)
		}
	}
	if s.ActiveOptions > 0 {
		s.AverageOptionPrice = Round2(priceSum / float64(s.ActiveOptions))
		s.AverageDurationMin = Round2(durationSum / float64(s.ActiveOptions))
	}
	return s
}
