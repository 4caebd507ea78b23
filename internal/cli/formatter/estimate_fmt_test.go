package formatter

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/alexanderramin/estibot/internal/conversation"
	"github.com/alexanderramin/estibot/internal/domain"
	"github.com/stretchr/testify/assert"
)

func TestFormatEstimateList(t *testing.T) {
	now := time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)
	out := FormatEstimateList([]*domain.Estimate{
		{ID: "aaaaaaaa-1111", Title: "Shop", ItemCount: 2, TotalDuration: 56, TotalCost: 168000, UpdatedAt: now},
		{ID: "bbbbbbbb-2222", Title: "Landing", UpdatedAt: now.AddDate(0, 0, -3)},
	}, now)

	assert.Contains(t, out, "ESTIMATES")
	assert.Contains(t, out, "aaaaaaaa")
	assert.Contains(t, out, "168 000")
	assert.Contains(t, out, "Today")
	assert.Contains(t, out, "3d ago")

	assert.Contains(t, FormatEstimateList(nil, now), "No estimates yet")
}

func TestFormatEstimate(t *testing.T) {
	tplID := "t1"
	est := &domain.Estimate{ID: "e1", Title: "Shop", Description: "Soap shop", TotalDuration: 48, TotalCost: 140000}
	out := FormatEstimate(est, []*domain.EstimateItem{
		{Name: "Design", Duration: 8, Cost: 20000},
		{Name: "Backend", Duration: 40, Cost: 120000, TemplateID: &tplID},
	})

	assert.Contains(t, out, "Soap shop")
	assert.Contains(t, out, "Backend")
	assert.Contains(t, out, "template")
	assert.Contains(t, out, "48h")
	assert.Contains(t, out, "140 000")
	assert.Contains(t, out, "2 916.67/h")

	empty := FormatEstimate(&domain.Estimate{ID: "e2", Title: "Empty"}, nil)
	assert.Contains(t, empty, "No items yet.")
	assert.NotContains(t, empty, "Rate:")
}

func TestFormatTemplateList_GroupsByCategory(t *testing.T) {
	out := FormatTemplateList([]*domain.WorkTemplate{
		{ID: "t1", Name: "Unit tests", Category: domain.CategoryTesting, UsageCount: 9},
		{ID: "t2", Name: "Misc", UsageCount: 4},
		{ID: "t3", Name: "REST endpoint", Category: domain.CategoryBackend, UsageCount: 2},
	})

	backend := strings.Index(out, "Backend")
	testing_ := strings.Index(out, "Testing")
	uncategorized := strings.Index(out, "Uncategorized")
	assert.True(t, backend >= 0 && testing_ > backend && uncategorized > testing_, out)

	assert.Contains(t, FormatTemplateList(nil), "No templates yet")
}

func TestFormatTemplate(t *testing.T) {
	out := FormatTemplate(&domain.WorkTemplate{
		ID: "t1", Name: "Code review", Description: "Per PR", Category: domain.CategoryBackend,
		DefaultDuration: 1.5, DefaultCost: 4500, UsageCount: 3,
	})
	assert.Contains(t, out, "Code review")
	assert.Contains(t, out, "Per PR")
	assert.Contains(t, out, "1.5h")
	assert.Contains(t, out, "4 500")
}

func TestFormatAnalysis(t *testing.T) {
	out := FormatAnalysis(&domain.Analysis{
		Suggestions: []string{"Add QA"},
		Risks:       []string{"Scope creep"},
		CostRange:   &domain.CostRange{Min: 150000, Max: 210000, BufferPct: 15},
	})
	assert.Contains(t, out, "SUGGESTIONS")
	assert.Contains(t, out, "Add QA")
	assert.Contains(t, out, "Scope creep")
	assert.NotContains(t, out, "OPTIMIZATION")
	assert.Contains(t, out, "150 000 to 210 000")
	assert.Contains(t, out, "buffer 15%")

	assert.Contains(t, FormatAnalysis(&domain.Analysis{}), "nothing to add")
}

func TestFormatMessage(t *testing.T) {
	prompt := FormatMessage(conversation.OutboundMessage{
		Kind: conversation.KindPrompt, Text: "Pick a category, or \"skip\":", Options: []string{"Frontend", "skip"},
	})
	assert.Contains(t, prompt, "1. Frontend")
	assert.Contains(t, prompt, "2. skip")

	rejected := FormatMessage(conversation.OutboundMessage{Kind: conversation.KindRejected, Text: "Too short.\nEnter the title:"})
	assert.Contains(t, rejected, "Too short.")
	assert.Contains(t, rejected, "Enter the title:")

	done := FormatMessage(conversation.OutboundMessage{
		Kind: conversation.KindCompleted, Text: "Added 1 item(s).",
		Failures: []domain.ItemFailure{{Name: "Bad", Err: errors.New("invalid value")}},
	})
	assert.Contains(t, done, "Added 1 item(s).")
	assert.Contains(t, done, "Bad: invalid value")

	assert.Empty(t, FormatMessage(conversation.OutboundMessage{Kind: conversation.KindDuplicate}))
}

func TestFormatStats(t *testing.T) {
	st := domain.ComputeUserStats(
		[]*domain.Estimate{
			{TotalCost: 168000, TotalDuration: 56},
			{TotalCost: 32000, TotalDuration: 24},
		},
		[]*domain.WorkTemplate{
			{Name: "Design", UsageCount: 2, IsActive: true},
			{Name: "QA pass", UsageCount: 7, IsActive: true},
		},
		3,
	)
	out := FormatStats(st)

	assert.Contains(t, out, "STATISTICS")
	assert.Contains(t, out, "200 000")
	assert.Contains(t, out, "80h")
	assert.Contains(t, out, "100 000")
	assert.Contains(t, out, "2 500/h")
	assert.Less(t, strings.Index(out, "1. QA pass"), strings.Index(out, "2. Design"))
	assert.Contains(t, out, "(7 uses)")

	assert.Contains(t, FormatStats(domain.UserStats{}), "No data yet")
}
