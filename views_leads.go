package erpsync

import "math"

// LeadFilter is conjunctive over the populated dimensions. The date range
// applies to the next step date, falling back to the creation date when no
// next step is planned.
type LeadFilter struct {
	Search  string
	Status  string
	Owner   string
	Source  string
	Segment string
	Tag     string
	Dates   DateRange
}

// ActiveCount reports how many dimensions are constraining the result.
func (f LeadFilter) ActiveCount() int {
	n := 0
	if f.Search != "" {
		n++
	}
	for _, v := range []string{f.Status, f.Owner, f.Source, f.Segment, f.Tag} {
		if !isSentinel(v) {
			n++
		}
	}
	if !f.Dates.isOpen() {
		n++
	}
	return n
}

func leadEffectiveDate(l Lead) string {
	if l.NextStepDate != nil && *l.NextStepDate != "" {
		return *l.NextStepDate
	}
	return l.CreatedAt
}

// FilterLeads applies the filter. Order of the input is preserved.
func FilterLeads(leads []Lead, f LeadFilter) []Lead {
	matched := make([]Lead, 0, len(leads))
	for _, l := range leads {
		if f.Search != "" && !matchesSearch(f.Search, l.Contact, l.Company, l.Email, l.Phone) {
			continue
		}
		if !isSentinel(f.Status) && string(l.Status) != f.Status {
			continue
		}
		if !isSentinel(f.Owner) && l.Owner != f.Owner {
			continue
		}
		if !isSentinel(f.Source) && l.Source != f.Source {
			continue
		}
		if !isSentinel(f.Segment) && l.Segment != f.Segment {
			continue
		}
		if !isSentinel(f.Tag) && !leadHasTag(l, f.Tag) {
			continue
		}
		if !f.Dates.Contains(leadEffectiveDate(l)) {
			continue
		}
		matched = append(matched, l)
	}
	return matched
}

func leadHasTag(l Lead, tag string) bool {
	for _, t := range l.Tags {
		if t == tag {
			return true
		}
	}
	return false
}

// LeadKPIs are the headline pipeline figures. Active excludes terminal
// statuses, InQualification covers the two mid-pipeline stages.
type LeadKPIs struct {
	Total            int     `json:"total"`
	Active           int     `json:"active"`
	InQualification  int     `json:"inQualification"`
	DistinctOwners   int     `json:"distinctOwners"`
	TotalEstimated   float64 `json:"totalEstimated"`
	AverageEstimated float64 `json:"averageEstimated"`
}

// ComputeLeadKPIs derives the lead KPIs. An empty set yields zeros, the
// average in particular.
func ComputeLeadKPIs(leads []Lead) LeadKPIs {
	k := LeadKPIs{
		Total:          len(leads),
		DistinctOwners: CountDistinct(leads, func(l Lead) string { return l.Owner }),
	}
	for _, l := range leads {
		if l.Status != LeadLost && l.Status != LeadWon {
			k.Active++
		}
		if l.Status == LeadInProgress || l.Status == LeadQuoteSent {
			k.InQualification++
		}
		if l.EstimatedValue != nil {
			k.TotalEstimated += *l.EstimatedValue
		}
	}
	k.TotalEstimated = Round2(k.TotalEstimated)
	if k.Total > 0 {
		k.AverageEstimated = Round2(k.TotalEstimated / float64(k.Total))
	}
	return k
}

// PipelineBucket is one status column of the pipeline board.
type PipelineBucket struct {
	Status         LeadStatus `json:"status"`
	Leads          []Lead     `json:"leads"`
	Count          int        `json:"count"`
	TotalEstimated float64    `json:"totalEstimated"`
	ShareOfAll     float64    `json:"shareOfAll"`
	NextLead       *Lead      `json:"nextLead,omitempty"`
}

// ComputePipeline buckets leads by status in pipeline order. Within a bucket
// leads are sorted by next step date ascending with undated leads last, ties
// broken by creation date descending. NextLead is the head of that order.
func ComputePipeline(leads []Lead) []PipelineBucket {
	total := len(leads)
	byStatus := make(map[LeadStatus][]Lead, len(PipelineStatuses))
	for _, l := range leads {
		byStatus[l.Status] = append(byStatus[l.Status], l)
	}
	buckets := make([]PipelineBucket, 0, len(PipelineStatuses))
	for _, status := range PipelineStatuses {
		bucket := PipelineBucket{Status: status}
		bucket.Leads = sortedCopy(byStatus[status], leadPipelineLess)
		bucket.Count = len(bucket.Leads)
		for _, l := range bucket.Leads {
			if l.EstimatedValue != nil {
				bucket.TotalEstimated += *l.EstimatedValue
			}
		}
		bucket.TotalEstimated = Round2(bucket.TotalEstimated)
		if total > 0 {
			bucket.ShareOfAll = float64(bucket.Count) / float64(total)
		}
		if bucket.Count > 0 {
			next := bucket.Leads[0]
			bucket.NextLead = &next
		}
		buckets = append(buckets, bucket)
	}
	return buckets
}

func leadPipelineLess(a, b Lead) bool {
	na, nb := nextStepEpoch(a), nextStepEpoch(b)
	if na != nb {
		return na < nb
	}
	return createdEpoch(a) > createdEpoch(b)
}

// nextStepEpoch maps a missing or unparseable next step date to +Inf so such
// leads sort after every dated one.
func nextStepEpoch(l Lead) float64 {
	if l.NextStepDate == nil || *l.NextStepDate == "" {
		return math.Inf(1)
	}
	t, ok := parseAnyDate(*l.NextStepDate)
	if !ok {
		return math.Inf(1)
	}
	return float64(t.UnixMilli())
}

func createdEpoch(l Lead) float64 {
	t, ok := parseAnyDate(l.CreatedAt)
	if !ok {
		return 0
	}
	return float64(t.UnixMilli())
}
