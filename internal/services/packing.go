package services

import (
	"sort"

	domain "github.com/enviostack/shipping-api/internal/domain"
)

// packForRule partitions the lines assigned to one rule into parcels under
// the given constraints. First-fit decreasing: lines are taken heaviest
// first and split at unit granularity whenever a full line would breach the
// item-count or weight ceiling. A single unit that alone exceeds a ceiling
// still gets its own parcel, flagged Oversize, because the partition cannot
// be refined further.
//
// Deterministic and O(n log n) in the number of lines; not guaranteed to
// minimise parcel count.
func packForRule(ruleID string, lines []domain.LineItem, constraints domain.PackagingConstraints) ([]domain.Package, error) {
	lines = mergeLinesByProduct(lines)
	if len(lines) == 0 {
		return nil, nil
	}

	if constraints.Unbounded() {
		pkg := domain.Package{RuleID: ruleID}
		for _, line := range lines {
			pkg.Items = append(pkg.Items, domain.PackageItem{
				ProductID:       line.ProductID,
				Quantity:        line.Quantity,
				UnitWeightGrams: line.UnitWeightGrams,
				UnitPrice:       line.UnitPrice,
			})
			pkg.WeightGrams += line.LineWeightGrams()
		}
		return []domain.Package{pkg}, nil
	}

	sorted := make([]domain.LineItem, len(lines))
	copy(sorted, lines)
	sort.SliceStable(sorted, func(i, j int) bool {
		wi, wj := sorted[i].LineWeightGrams(), sorted[j].LineWeightGrams()
		if wi != wj {
			return wi > wj
		}
		return sorted[i].ProductID < sorted[j].ProductID
	})

	maxItems := constraints.MaxItemsPerPackage
	maxWeight := constraints.MaxWeightGrams

	var (
		packages []domain.Package
		current  domain.Package
		count    int
	)
	current.RuleID = ruleID

	flush := func() {
		if count > 0 {
			packages = append(packages, current)
			current = domain.Package{RuleID: ruleID}
			count = 0
		}
	}

	placed := 0
	wanted := 0
	for _, line := range sorted {
		wanted += line.Quantity
		for unit := 0; unit < line.Quantity; unit++ {
			w := line.UnitWeightGrams

			fitsCount := maxItems <= 0 || count+1 <= maxItems
			fitsWeight := maxWeight <= 0 || current.WeightGrams+w <= maxWeight
			if !fitsCount || !fitsWeight {
				flush()
				// Re-evaluate against an empty parcel.
				fitsCount = maxItems <= 0 || maxItems >= 1
				fitsWeight = maxWeight <= 0 || w <= maxWeight
				if !fitsCount || !fitsWeight {
					// The unit alone breaches a ceiling: ship it anyway, flagged.
					packages = append(packages, domain.Package{
						RuleID:      ruleID,
						Items:       []domain.PackageItem{unitItem(line)},
						WeightGrams: w,
						Oversize:    true,
					})
					placed++
					continue
				}
			}

			appendUnit(&current, line)
			current.WeightGrams += w
			count++
			placed++
		}
	}
	flush()

	if placed != wanted {
		return nil, &PackagingInfeasibleError{RuleID: ruleID}
	}
	return packages, nil
}

func unitItem(line domain.LineItem) domain.PackageItem {
	return domain.PackageItem{
		ProductID:       line.ProductID,
		Quantity:        1,
		UnitWeightGrams: line.UnitWeightGrams,
		UnitPrice:       line.UnitPrice,
	}
}

// appendUnit adds one unit of the line, merging into an existing entry for
// the same product when possible.
func appendUnit(pkg *domain.Package, line domain.LineItem) {
	for i := range pkg.Items {
		if pkg.Items[i].ProductID == line.ProductID {
			pkg.Items[i].Quantity++
			return
		}
	}
	pkg.Items = append(pkg.Items, unitItem(line))
}
