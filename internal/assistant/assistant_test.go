package assistant

import (
	"context"
	"errors"
	"math"
	"testing"

	"github.com/alexanderramin/estibot/internal/domain"
	"github.com/alexanderramin/estibot/internal/llm"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeClient struct {
	text string
	err  error
	last llm.GenerateRequest
}

func (f *fakeClient) Generate(_ context.Context, req llm.GenerateRequest) (*llm.GenerateResponse, error) {
	f.last = req
	if f.err != nil {
		return nil, f.err
	}
	return &llm.GenerateResponse{Text: f.text, Model: "test", Attempts: 1}, nil
}

func (f *fakeClient) Available(context.Context) bool { return true }

func TestGenerateItems_ObjectPayload(t *testing.T) {
	client := &fakeClient{text: `{"items":[
		{"name":" Catalog ","description":"product pages","duration":40,"cost":100000},
		{"name":"Checkout","duration":"12,5","cost":"31 250"}
	]}`}
	a := New(client, 0, nil)

	items, err := a.GenerateItems(context.Background(), "A shop for handmade soap", domain.ProjectEcommerce)
	require.NoError(t, err)
	require.Len(t, items, 2)
	assert.Equal(t, domain.NewItem{Name: "Catalog", Description: "product pages", Duration: 40, Cost: 100000}, items[0])
	assert.Equal(t, 12.5, items[1].Duration)
	assert.Equal(t, 31250.0, items[1].Cost)

	assert.Equal(t, llm.TaskGenerateItems, client.last.Task)
	assert.True(t, client.last.JSON)
	assert.Contains(t, client.last.UserPrompt, "Online store")
	assert.Contains(t, client.last.UserPrompt, "checkout")
	assert.Contains(t, client.last.UserPrompt, "A shop for handmade soap")
}

func TestGenerateItems_BareArrayInFence(t *testing.T) {
	client := &fakeClient{text: "```json\n[{\"name\":\"Landing copy\",\"duration\":6,\"cost\":9000}]\n```"}
	items, err := New(client, 0, nil).GenerateItems(context.Background(), "Landing for a bakery", domain.ProjectLanding)
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, "Landing copy", items[0].Name)
}

func TestGenerateItems_CapsAtMaxItems(t *testing.T) {
	client := &fakeClient{text: `[{"name":"a1","duration":1,"cost":1},{"name":"a2","duration":1,"cost":1},{"name":"a3","duration":1,"cost":1}]`}
	items, err := New(client, 2, nil).GenerateItems(context.Background(), "three things to do", domain.ProjectOther)
	require.NoError(t, err)
	assert.Len(t, items, 2)
}

func TestGenerateItems_UnparseableNumberBecomesNaN(t *testing.T) {
	client := &fakeClient{text: `[{"name":"Audit","duration":"a while","cost":null}]`}
	items, err := New(client, 0, nil).GenerateItems(context.Background(), "security audit of an API", domain.ProjectAPI)
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.True(t, math.IsNaN(items[0].Duration))
	assert.Zero(t, items[0].Cost)
}

func TestGenerateItems_Errors(t *testing.T) {
	_, err := New(&fakeClient{err: llm.ErrTimeout}, 0, nil).GenerateItems(context.Background(), "desc text here", domain.ProjectAPI)
	assert.ErrorIs(t, err, llm.ErrTimeout)

	_, err = New(&fakeClient{text: "Sorry, I can't help."}, 0, nil).GenerateItems(context.Background(), "desc text here", domain.ProjectAPI)
	assert.ErrorIs(t, err, llm.ErrInvalidOutput)
}

func TestAnalyze(t *testing.T) {
	client := &fakeClient{text: `{
		"suggestions": ["Add QA", "  "],
		"optimization_tips": ["Reuse a UI kit"],
		"risk_factors": ["Payment provider approval"],
		"total_estimation": {"min_cost": 150000, "max_cost": 210000, "recommended_buffer": 15}
	}`}
	est := &domain.Estimate{ID: "e1", Title: "Shop", Description: "Soap shop"}
	items := []*domain.EstimateItem{
		{Name: "Catalog", Duration: 40, Cost: 100000},
		{Name: "Checkout", Duration: 16, Cost: 68000},
	}

	analysis, err := New(client, 0, nil).Analyze(context.Background(), est, items)
	require.NoError(t, err)
	assert.Equal(t, []string{"Add QA"}, analysis.Suggestions)
	assert.Equal(t, []string{"Reuse a UI kit"}, analysis.Tips)
	assert.Equal(t, []string{"Payment provider approval"}, analysis.Risks)
	require.NotNil(t, analysis.CostRange)
	assert.Equal(t, domain.CostRange{Min: 150000, Max: 210000, BufferPct: 15}, *analysis.CostRange)

	assert.Equal(t, llm.TaskAnalyze, client.last.Task)
	assert.Contains(t, client.last.UserPrompt, "- Checkout: 16h, 68000")
	assert.Contains(t, client.last.UserPrompt, "Total cost: 168000")
}

func TestAnalyze_DropsInconsistentRange(t *testing.T) {
	client := &fakeClient{text: `{"suggestions":[],"total_estimation":{"min_cost":5,"max_cost":1}}`}
	analysis, err := New(client, 0, nil).Analyze(context.Background(), &domain.Estimate{ID: "e1"}, nil)
	require.NoError(t, err)
	assert.Nil(t, analysis.CostRange)
	assert.True(t, analysis.IsEmpty())
}

func TestAnalyze_Errors(t *testing.T) {
	boom := errors.New("boom")
	_, err := New(&fakeClient{err: boom}, 0, nil).Analyze(context.Background(), &domain.Estimate{ID: "e1"}, nil)
	assert.ErrorIs(t, err, boom)

	_, err = New(&fakeClient{text: "no json"}, 0, nil).Analyze(context.Background(), &domain.Estimate{ID: "e1"}, nil)
	assert.ErrorIs(t, err, llm.ErrInvalidOutput)
}
