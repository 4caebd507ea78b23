package service

import (
	"fmt"
	"math"
	"strings"

	"github.com/alexanderramin/estibot/internal/domain"
)

// checkAmounts rejects values that must never reach storage: negative or
// non-finite durations and costs.
func checkAmounts(duration, cost float64) error {
	if math.IsNaN(duration) || math.IsInf(duration, 0) || duration < 0 {
		return fmt.Errorf("duration %v: %w", duration, domain.ErrInvalidValue)
	}
	if math.IsNaN(cost) || math.IsInf(cost, 0) || cost < 0 {
		return fmt.Errorf("cost %v: %w", cost, domain.ErrInvalidValue)
	}
	return nil
}

// checkName rejects blank required text.
func checkName(field, value string) error {
	if strings.TrimSpace(value) == "" {
		return fmt.Errorf("%s is empty: %w", field, domain.ErrInvalidValue)
	}
	return nil
}

// placeAt returns items reordered so that target sits at 1-based position,
// clamped to the valid range.
func placeAt(items []*domain.EstimateItem, targetID string, position int) []*domain.EstimateItem {
	var target *domain.EstimateItem
	rest := make([]*domain.EstimateItem, 0, len(items))
	for _, it := range items {
		if it.ID == targetID {
			target = it
			continue
		}
		rest = append(rest, it)
	}
	if target == nil {
		return items
	}
	idx := position - 1
	if idx < 0 {
		idx = 0
	}
	if idx > len(rest) {
		idx = len(rest)
	}
	out := make([]*domain.EstimateItem, 0, len(items))
	out = append(out, rest[:idx]...)
	out = append(out, target)
	out = append(out, rest[idx:]...)
	return out
}
