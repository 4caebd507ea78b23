package conversation

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alexanderramin/estibot/internal/domain"
	"github.com/alexanderramin/estibot/internal/flow"
	"github.com/alexanderramin/estibot/internal/repository"
	"github.com/alexanderramin/estibot/internal/service"
	"github.com/alexanderramin/estibot/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func runGenerate(t *testing.T, e *Engine, userID string, seed Seed) OutboundMessage {
	t.Helper()
	require.Equal(t, KindPrompt, e.StartFlow(context.Background(), userID, flow.AssistantGenerate, seed).Kind)
	require.Equal(t, KindPrompt, say(e, userID, "An online shop for handmade goods").Kind)
	return say(e, userID, "ecommerce")
}

func TestAssistantGenerate_EmptyResultIsNotAnError(t *testing.T) {
	env := newTestEnv(t)
	gen := &fakeGenerator{}
	e := env.engine(WithGenerator(gen))

	msg := runGenerate(t, e, env.user.ID, Seed{})
	assert.Equal(t, KindCompleted, msg.Kind)
	assert.Zero(t, msg.ItemsAdded)
	assert.Contains(t, msg.Text, "No items generated")
	assert.Nil(t, msg.Estimate)
	assert.Empty(t, env.listEstimates(t), "no estimate for an empty result")
	assert.Equal(t, 1, gen.calls)
	assert.Equal(t, domain.ProjectEcommerce, gen.last.kind)
	assert.Equal(t, 1, env.recorder.get("assistant:generate_items:empty"))
}

func TestAssistantGenerate_WithoutGenerator(t *testing.T) {
	env := newTestEnv(t)
	e := env.engine()

	msg := runGenerate(t, e, env.user.ID, Seed{})
	assert.Equal(t, KindCompleted, msg.Kind)
	assert.Zero(t, msg.ItemsAdded)
}

func TestAssistantGenerate_ErrorCountsAsEmpty(t *testing.T) {
	env := newTestEnv(t)
	e := env.engine(WithGenerator(&fakeGenerator{err: errors.New("model unavailable")}))

	msg := runGenerate(t, e, env.user.ID, Seed{})
	assert.Equal(t, KindCompleted, msg.Kind)
	assert.Zero(t, msg.ItemsAdded)
	assert.Equal(t, 1, env.recorder.get("assistant:generate_items:error"))
}

func TestAssistantGenerate_TimeoutCountsAsEmpty(t *testing.T) {
	env := newTestEnv(t)
	gen := &fakeGenerator{
		block:   true,
		release: make(chan struct{}),
		items:   []domain.NewItem{{Name: "Too late", Duration: 1, Cost: 1}},
	}
	t.Cleanup(func() { close(gen.release) })
	e := env.engine(WithGenerator(gen), WithGenerateTimeout(20*time.Millisecond))

	start := time.Now()
	msg := runGenerate(t, e, env.user.ID, Seed{})
	assert.Less(t, time.Since(start), 5*time.Second)
	assert.Equal(t, KindCompleted, msg.Kind)
	assert.Zero(t, msg.ItemsAdded)
	assert.Empty(t, env.listEstimates(t))
	assert.Equal(t, 1, env.recorder.get("assistant:generate_items:timeout"))

	assert.Equal(t, KindPrompt, e.StartFlow(context.Background(), env.user.ID, flow.CreateEstimate, Seed{}).Kind,
		"user is not stuck after a timeout")
}

func TestAssistantGenerate_CreatesEstimateWithItems(t *testing.T) {
	env := newTestEnv(t)
	gen := &fakeGenerator{items: []domain.NewItem{
		{Name: "Catalog", Description: "Product pages", Duration: 40, Cost: 120000},
		{Name: "Checkout <script>", Duration: 16, Cost: 48000},
		{Name: "X", Duration: 1, Cost: 1},             // name too short
		{Name: "Free lunch", Duration: 0, Cost: 0},    // zero duration
		{Name: "Gold plating", Duration: 5, Cost: -1}, // negative cost
	}}
	e := env.engine(WithGenerator(gen))

	msg := runGenerate(t, e, env.user.ID, Seed{})
	require.Equal(t, KindCompleted, msg.Kind, msg.Text)
	assert.Equal(t, 2, msg.ItemsAdded)
	assert.Len(t, msg.Failures, 3)
	for _, f := range msg.Failures {
		assert.ErrorIs(t, f.Err, domain.ErrInvalidValue)
	}

	require.NotNil(t, msg.Estimate)
	assert.Equal(t, "AI estimate: Online store", msg.Estimate.Title)
	assert.Equal(t, "An online shop for handmade goods", msg.Estimate.Description)
	assert.Equal(t, 168000.0, msg.Estimate.TotalCost)
	assert.Equal(t, 56.0, msg.Estimate.TotalDuration)

	items, err := env.estimates.ListItems(context.Background(), msg.Estimate.ID)
	require.NoError(t, err)
	require.Len(t, items, 2)
	assert.Equal(t, "Catalog", items[0].Name)
	assert.Equal(t, "Checkout script", items[1].Name)
	assert.Equal(t, 2, env.recorder.get("items:assistant"))
}

func TestAssistantGenerate_NoStoredItemsLeavesNoEstimate(t *testing.T) {
	env := newTestEnv(t)
	uow := &testutil.FailOnNthExecUoW{
		DB:     env.db,
		FailOn: 1,
		Match:  "INSERT INTO estimate_items",
		Err:    errors.New("disk I/O error"),
	}
	estimates := service.NewEstimateService(
		repository.NewSQLiteEstimateRepo(env.db),
		repository.NewSQLiteItemRepo(env.db),
		uow,
	)
	gen := &fakeGenerator{items: []domain.NewItem{
		{Name: "Catalog", Duration: 40, Cost: 120000},
		{Name: "Checkout", Duration: 16, Cost: 48000},
	}}
	e := New(estimates, env.templates, env.drafts, WithGenerator(gen), WithMetrics(env.recorder))

	msg := runGenerate(t, e, env.user.ID, Seed{})
	assert.Equal(t, KindCompleted, msg.Kind)
	assert.Zero(t, msg.ItemsAdded)
	assert.Len(t, msg.Failures, 2)
	assert.Nil(t, msg.Estimate)
	assert.Contains(t, msg.Text, "no estimate was created")
	assert.Empty(t, env.listEstimates(t))
}

func TestAssistantGenerate_AppendsToSeedEstimate(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	est := env.mustEstimate(t, "Existing")
	_, err := env.estimates.AddItem(ctx, est.ID, domain.NewItem{Name: "Design", Duration: 8, Cost: 20000})
	require.NoError(t, err)

	gen := &fakeGenerator{items: []domain.NewItem{{Name: "Build", Duration: 40, Cost: 120000}}}
	e := env.engine(WithGenerator(gen))

	msg := runGenerate(t, e, env.user.ID, Seed{TargetEstimateID: est.ID})
	require.Equal(t, KindCompleted, msg.Kind)
	assert.Equal(t, 1, msg.ItemsAdded)
	require.NotNil(t, msg.Estimate)
	assert.Equal(t, est.ID, msg.Estimate.ID)
	assert.Equal(t, 140000.0, msg.Estimate.TotalCost)
	assert.Equal(t, 48.0, msg.Estimate.TotalDuration)
	assert.Len(t, env.listEstimates(t), 1)
}

func TestAssistantGenerate_SeedEstimateDeleted(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	est := env.mustEstimate(t, "Existing")
	gen := &fakeGenerator{items: []domain.NewItem{{Name: "Build", Duration: 40, Cost: 120000}}}
	e := env.engine(WithGenerator(gen))

	e.StartFlow(ctx, env.user.ID, flow.AssistantGenerate, Seed{TargetEstimateID: est.ID})
	say(e, env.user.ID, "An online shop for handmade goods")
	require.NoError(t, env.estimates.Delete(ctx, est.ID, env.user.ID))

	msg := say(e, env.user.ID, "ecommerce")
	assert.Equal(t, KindNotFound, msg.Kind)
	_, ok := env.drafts.Get(env.user.ID)
	assert.False(t, ok)
}

func TestAssistantGenerate_ValidatesDescriptionAndKind(t *testing.T) {
	env := newTestEnv(t)
	e := env.engine()

	e.StartFlow(context.Background(), env.user.ID, flow.AssistantGenerate, Seed{})
	assert.Equal(t, KindRejected, say(e, env.user.ID, "too short").Kind)
	assert.Equal(t, KindPrompt, say(e, env.user.ID, "A booking site for a dental clinic").Kind)
	assert.Equal(t, KindRejected, say(e, env.user.ID, "skip").Kind, "project kind is required")
	assert.Equal(t, KindRejected, say(e, env.user.ID, "spaceship").Kind)
	assert.Equal(t, KindCompleted, say(e, env.user.ID, "WEB_APP").Kind)
}

func TestInstantiateFromTemplate(t *testing.T) {
	env := newTestEnv(t)
	e := env.engine()
	ctx := context.Background()
	est := env.mustEstimate(t, "Website")
	tpl, err := env.templates.Create(ctx, env.user.ID, domain.NewTemplate{
		Name: "Landing layout", DefaultDuration: 6, DefaultCost: 9000, Category: domain.CategoryFrontend,
	})
	require.NoError(t, err)

	const n = 4
	for i := 0; i < n; i++ {
		item, err := e.InstantiateFromTemplate(ctx, env.user.ID, est.ID, tpl.ID)
		require.NoError(t, err)
		require.NotNil(t, item.TemplateID)
		assert.Equal(t, tpl.ID, *item.TemplateID)
		assert.Equal(t, 6.0, item.Duration)
	}

	fresh, err := env.templates.Get(ctx, tpl.ID, env.user.ID)
	require.NoError(t, err)
	assert.Equal(t, n, fresh.UsageCount)

	got, err := env.estimates.Get(ctx, est.ID, env.user.ID)
	require.NoError(t, err)
	assert.Equal(t, 36000.0, got.TotalCost)
	assert.Equal(t, 24.0, got.TotalDuration)
	assert.Equal(t, n, env.recorder.get("items:template"))
}

func TestInstantiateFromTemplate_Errors(t *testing.T) {
	env := newTestEnv(t)
	e := env.engine()
	ctx := context.Background()
	est := env.mustEstimate(t, "Website")
	tpl, err := env.templates.Create(ctx, env.user.ID, domain.NewTemplate{Name: "Copywriting", DefaultDuration: 2, DefaultCost: 3000})
	require.NoError(t, err)

	_, err = e.InstantiateFromTemplate(ctx, env.user.ID, "missing", tpl.ID)
	assert.ErrorIs(t, err, domain.ErrEstimateNotFound)

	_, err = e.InstantiateFromTemplate(ctx, env.user.ID, est.ID, "missing")
	assert.ErrorIs(t, err, domain.ErrTemplateNotFound)

	other := mustOtherUser(t, env)
	_, err = e.InstantiateFromTemplate(ctx, other.ID, est.ID, tpl.ID)
	assert.ErrorIs(t, err, domain.ErrEstimateNotFound, "estimates are owner scoped")

	require.NoError(t, env.templates.SoftDelete(ctx, tpl.ID, env.user.ID))
	_, err = e.InstantiateFromTemplate(ctx, env.user.ID, est.ID, tpl.ID)
	assert.ErrorIs(t, err, domain.ErrTemplateNotFound)

	items, err := env.estimates.ListItems(ctx, est.ID)
	require.NoError(t, err)
	assert.Empty(t, items)
	fresh, err := env.templates.Get(ctx, tpl.ID, env.user.ID)
	require.NoError(t, err)
	assert.Zero(t, fresh.UsageCount)
}

func TestInstantiateFromTemplate_UsageFailureIsNotFatal(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	e := New(env.estimates, brokenUsage{Templates: env.templates}, env.drafts)
	est := env.mustEstimate(t, "Website")
	tpl, err := env.templates.Create(ctx, env.user.ID, domain.NewTemplate{Name: "Copywriting", DefaultDuration: 2, DefaultCost: 3000})
	require.NoError(t, err)

	item, err := e.InstantiateFromTemplate(ctx, env.user.ID, est.ID, tpl.ID)
	require.NoError(t, err)
	require.NotNil(t, item)

	fresh, err := env.templates.Get(ctx, tpl.ID, env.user.ID)
	require.NoError(t, err)
	assert.Zero(t, fresh.UsageCount)
	items, err := env.estimates.ListItems(ctx, est.ID)
	require.NoError(t, err)
	assert.Len(t, items, 1)
}

func TestAnalyze(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	est := env.mustEstimate(t, "Website")
	_, err := env.estimates.AddItem(ctx, est.ID, domain.NewItem{Name: "Design", Duration: 8, Cost: 20000})
	require.NoError(t, err)

	analyzer := &fakeAnalyzer{analysis: &domain.Analysis{
		Risks:     []string{"No testing budget"},
		CostRange: &domain.CostRange{Min: 20000, Max: 26000, BufferPct: 30},
	}}
	e := env.engine(WithAnalyzer(analyzer))

	got, err := e.Analyze(ctx, env.user.ID, est.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{"No testing budget"}, got.Risks)
	assert.Equal(t, 1, analyzer.gotItems)
	assert.Equal(t, 1, env.recorder.get("assistant:analyze:ok"))

	_, err = e.Analyze(ctx, env.user.ID, "missing")
	assert.ErrorIs(t, err, domain.ErrEstimateNotFound)
}

func TestAnalyze_FailureIsEmpty(t *testing.T) {
	env := newTestEnv(t)
	est := env.mustEstimate(t, "Website")

	e := env.engine(WithAnalyzer(&fakeAnalyzer{err: errors.New("bad output")}))
	got, err := e.Analyze(context.Background(), env.user.ID, est.ID)
	require.NoError(t, err)
	assert.True(t, got.IsEmpty())

	e = env.engine()
	got, err = e.Analyze(context.Background(), env.user.ID, est.ID)
	require.NoError(t, err)
	assert.True(t, got.IsEmpty())
}
