package domain

import (
	"math"
	"time"
)

// Estimate is an owned, titled collection of costed and timed items.
// TotalCost and TotalDuration are denormalized sums over the estimate's
// items and are only ever written by the persistence layer in the same
// transaction as the item mutation that changed them.
type Estimate struct {
	ID            string
	OwnerID       string
	Title         string
	Description   string
	TotalCost     float64
	TotalDuration float64
	ItemCount     int
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// Totals returns the estimate's cached aggregate values.
func (e *Estimate) Totals() Totals {
	return Totals{Cost: e.TotalCost, Duration: e.TotalDuration}
}

// DisplayID returns a short identifier for display.
func (e *Estimate) DisplayID() string {
	if len(e.ID) >= 8 {
		return e.ID[:8]
	}
	return e.ID
}

type EstimateItem struct {
	ID          string
	EstimateID  string
	Name        string
	Description string
	Duration    float64 // hours
	Cost        float64
	OrderIndex  int
	TemplateID  *string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// Totals is the aggregate cost and duration of a set of items.
type Totals struct {
	Cost     float64
	Duration float64
}

// SumItems computes totals directly from items.
func SumItems(items []*EstimateItem) Totals {
	var t Totals
	for _, it := range items {
		t.Cost += it.Cost
		t.Duration += it.Duration
	}
	return t
}

// HourlyRate returns cost per hour, or 0 when there is no duration.
func (t Totals) HourlyRate() float64 {
	if t.Duration <= 0 {
		return 0
	}
	return t.Cost / t.Duration
}

// ApproxEqual compares totals with a tolerance suitable for summed floats.
func (t Totals) ApproxEqual(o Totals) bool {
	const eps = 1e-6
	return math.Abs(t.Cost-o.Cost) < eps && math.Abs(t.Duration-o.Duration) < eps
}

// NewItem carries the validated fields for an item about to be added.
type NewItem struct {
	Name        string
	Description string
	Duration    float64
	Cost        float64
	TemplateID  *string
}

// BatchResult reports the outcome of adding several items one by one.
type BatchResult struct {
	Added  []*EstimateItem
	Failed []ItemFailure
}

// ItemFailure is one candidate item that could not be stored.
type ItemFailure struct {
	Name string
	Err  error
}
