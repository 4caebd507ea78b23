package domain

// Analysis is advisory feedback on an estimate. Every part may be empty.
type Analysis struct {
	Suggestions []string
	Tips        []string
	Risks       []string
	CostRange   *CostRange
}

// CostRange is the suggested spread around an estimate's total.
type CostRange struct {
	Min       float64
	Max       float64
	BufferPct float64
}

// IsEmpty reports whether the analysis carries nothing to show.
func (a *Analysis) IsEmpty() bool {
	return a == nil || (len(a.Suggestions) == 0 && len(a.Tips) == 0 && len(a.Risks) == 0 && a.CostRange == nil)
}
