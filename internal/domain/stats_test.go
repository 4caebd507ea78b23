package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestComputeUserStats(t *testing.T) {
	estimates := []*Estimate{
		{Title: "Shop", TotalCost: 168000, TotalDuration: 56},
		{Title: "Landing", TotalCost: 32000, TotalDuration: 24},
	}
	templates := []*WorkTemplate{
		{Name: "Design", UsageCount: 2, IsActive: true},
		{Name: "QA", UsageCount: 7, IsActive: true},
		{Name: "Retired", UsageCount: 50, IsActive: false},
		{Name: "Deploy", UsageCount: 2, IsActive: true},
		{Name: "Copy", UsageCount: 0, IsActive: true},
	}

	st := ComputeUserStats(estimates, templates, 3)
	assert.Equal(t, 2, st.Estimates)
	assert.Equal(t, 4, st.Templates)
	assert.Equal(t, Totals{Cost: 200000, Duration: 80}, st.Totals)
	assert.InDelta(t, 100000.0, st.AverageCost(), 1e-9)
	assert.InDelta(t, 2500.0, st.Totals.HourlyRate(), 1e-9)

	require.Len(t, st.TopTemplates, 3)
	assert.Equal(t, "QA", st.TopTemplates[0].Name)
	assert.Equal(t, "Design", st.TopTemplates[1].Name, "ties keep list order")
	assert.Equal(t, "Deploy", st.TopTemplates[2].Name)
	assert.Equal(t, "Design", templates[0].Name, "input is not reordered")
}

func TestComputeUserStats_Empty(t *testing.T) {
	st := ComputeUserStats(nil, nil, 3)
	assert.Zero(t, st.Estimates)
	assert.Zero(t, st.AverageCost())
	assert.Zero(t, st.Totals.HourlyRate())
	assert.Empty(t, st.TopTemplates)
}
