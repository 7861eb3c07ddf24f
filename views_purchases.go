package erpsync

import "time"

// PurchaseFilter is conjunctive: a purchase must satisfy every populated
// field. Sentinel values ("", "Tous", "Toutes") leave a dimension open.
type PurchaseFilter struct {
	Search   string
	Status   string
	Category string
	Dates    DateRange
}

// ActiveCount reports how many dimensions are constraining the result.
func (f PurchaseFilter) ActiveCount() int {
	n := 0
	if f.Search != "" {
		n++
	}
	if !isSentinel(f.Status) {
		n++
	}
	if !isSentinel(f.Category) {
		n++
	}
	if !f.Dates.isOpen() {
		n++
	}
	return n
}

// CompanyNameLookup resolves a company id to its display name for search
// purposes. A nil lookup disables company-name matching.
type CompanyNameLookup func(companyID string) string

// CompanyNames builds a lookup over the given companies.
func CompanyNames(companies []Company) CompanyNameLookup {
	byID := make(map[string]string, len(companies))
	for _, c := range companies {
		byID[c.ID] = c.Name
	}
	return func(id string) string { return byID[id] }
}

// FilterPurchases applies the filter and returns matches sorted by date
// descending. The input slice is never modified.
func FilterPurchases(purchases []Purchase, f PurchaseFilter, names CompanyNameLookup) []Purchase {
	matched := make([]Purchase, 0, len(purchases))
	for _, p := range purchases {
		if f.Search != "" {
			company := ""
			if names != nil && p.CompanyID != nil {
				company = names(*p.CompanyID)
			}
			if !matchesSearch(f.Search, p.Vendor, p.Reference, p.Description, company) {
				continue
			}
		}
		if !isSentinel(f.Status) && string(p.Status) != f.Status {
			continue
		}
		if !isSentinel(f.Category) && p.Category != f.Category {
			continue
		}
		if !f.Dates.Contains(p.Date) {
			continue
		}
		matched = append(matched, p)
	}
	return sortedCopy(matched, func(a, b Purchase) bool { return a.Date > b.Date })
}

// PurchaseTotals aggregates amounts over a set of purchases. VAT is derived
// as TTC minus HT so the three figures always reconcile.
type PurchaseTotals struct {
	TotalHT        float64 `json:"totalHt"`
	TotalVAT       float64 `json:"totalVat"`
	TotalTTC       float64 `json:"totalTtc"`
	MonthlyAverage float64 `json:"monthlyAverage"`
}

// ComputePurchaseTotals sums the set and spreads the TTC total over the
// covered months. The month count is the inclusive span between the earliest
// and latest purchase dates, never less than one.
func ComputePurchaseTotals(purchases []Purchase) PurchaseTotals {
	var t PurchaseTotals
	var earliest, latest time.Time
	for _, p := range purchases {
		t.TotalHT += p.AmountHT
		t.TotalTTC += p.AmountTTC
		if d, ok := parseAnyDate(p.Date); ok {
			if earliest.IsZero() || d.Before(earliest) {
				earliest = d
			}
			if latest.IsZero() || d.After(latest) {
				latest = d
			}
		}
	}
	t.TotalHT = Round2(t.TotalHT)
	t.TotalTTC = Round2(t.TotalTTC)
	t.TotalVAT = Round2(t.TotalTTC - t.TotalHT)
	months := 1
	if !earliest.IsZero() {
		span := (latest.Year()-earliest.Year())*12 + int(latest.Month()) - int(earliest.Month())
		if span+1 > months {
			months = span + 1
		}
	}
	t.MonthlyAverage = Round2(t.TotalTTC / float64(months))
	return t
}

// PurchaseKPIs are the headline figures shown above the purchase list. They
// are computed over the filtered set, not the full store.
type PurchaseKPIs struct {
	Count           int            `json:"count"`
	PaidCount       int            `json:"paidCount"`
	DistinctVendors int            `json:"distinctVendors"`
	Totals          PurchaseTotals `json:"totals"`
}

// ComputePurchaseKPIs derives the purchase KPIs. An empty set yields zeros.
func ComputePurchaseKPIs(purchases []Purchase) PurchaseKPIs {
	k := PurchaseKPIs{
		Count:           len(purchases),
		DistinctVendors: CountDistinct(purchases, func(p Purchase) string { return p.Vendor }),
		Totals:          ComputePurchaseTotals(purchases),
	}
	for _, p := range purchases {
		if p.Status == PurchasePaid {
			k.PaidCount++
		}
	}
	return k
}
