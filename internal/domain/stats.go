package domain

import "sort"

// UserStats summarizes one user's estimates and templates.
type UserStats struct {
	Estimates    int
	Templates    int
	Totals       Totals
	TopTemplates []*WorkTemplate
}

// AverageCost is the mean estimate cost, or 0 without estimates.
func (s UserStats) AverageCost() float64 {
	if s.Estimates == 0 {
		return 0
	}
	return s.Totals.Cost / float64(s.Estimates)
}

// ComputeUserStats aggregates the cached totals of estimates and picks the
// top most used of templates. Ties keep the given order. Inactive templates
// are not counted.
func ComputeUserStats(estimates []*Estimate, templates []*WorkTemplate, top int) UserStats {
	var st UserStats
	st.Estimates = len(estimates)
	for _, e := range estimates {
		st.Totals.Cost += e.TotalCost
		st.Totals.Duration += e.TotalDuration
	}

	active := make([]*WorkTemplate, 0, len(templates))
	for _, t := range templates {
		if t.IsActive {
			active = append(active, t)
		}
	}
	st.Templates = len(active)

	sort.SliceStable(active, func(i, j int) bool {
		return active[i].UsageCount > active[j].UsageCount
	})
	if top > len(active) {
		top = len(active)
	}
	if top > 0 {
		st.TopTemplates = active[:top]
	}
	return st
}
