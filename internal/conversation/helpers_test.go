package conversation

import (
	"context"
	"database/sql"
	"sync"
	"testing"
	"time"

	"github.com/alexanderramin/estibot/internal/domain"
	"github.com/alexanderramin/estibot/internal/repository"
	"github.com/alexanderramin/estibot/internal/service"
	"github.com/alexanderramin/estibot/internal/session"
	"github.com/alexanderramin/estibot/internal/testutil"
	"github.com/stretchr/testify/require"
)

type testEnv struct {
	db        *sql.DB
	estimates service.EstimateService
	templates service.TemplateService
	drafts    *session.Store
	recorder  *countingRecorder
	user      *domain.User
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	database := testutil.NewTestDB(t)
	uow := testutil.NewTestUoW(database)
	drafts := session.New(0)
	t.Cleanup(drafts.Close)
	return &testEnv{
		db: database,
		estimates: service.NewEstimateService(
			repository.NewSQLiteEstimateRepo(database),
			repository.NewSQLiteItemRepo(database),
			uow,
		),
		templates: service.NewTemplateService(repository.NewSQLiteTemplateRepo(database), uow),
		drafts:    drafts,
		recorder:  newCountingRecorder(),
		user:      testutil.MustInsertUser(t, database, "Ann"),
	}
}

func (env *testEnv) engine(opts ...Option) *Engine {
	opts = append([]Option{WithMetrics(env.recorder)}, opts...)
	return New(env.estimates, env.templates, env.drafts, opts...)
}

func (env *testEnv) mustEstimate(t *testing.T, title string) *domain.Estimate {
	t.Helper()
	est, err := env.estimates.Create(context.Background(), env.user.ID, title, "")
	require.NoError(t, err)
	return est
}

func (env *testEnv) listEstimates(t *testing.T) []*domain.Estimate {
	t.Helper()
	list, err := env.estimates.List(context.Background(), env.user.ID)
	require.NoError(t, err)
	return list
}

func mustOtherUser(t *testing.T, env *testEnv) *domain.User {
	t.Helper()
	return testutil.MustInsertUser(t, env.db, "Other")
}

// say sends one text event without an event id.
func say(e *Engine, userID, text string) OutboundMessage {
	return e.HandleEvent(context.Background(), Event{UserID: userID, Text: text})
}

type countingRecorder struct {
	mu     sync.Mutex
	counts map[string]int
}

func newCountingRecorder() *countingRecorder {
	return &countingRecorder{counts: make(map[string]int)}
}

func (r *countingRecorder) add(key string, n int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.counts[key] += n
}

func (r *countingRecorder) get(key string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.counts[key]
}

func (r *countingRecorder) FlowStarted(flow string)   { r.add("started:"+flow, 1) }
func (r *countingRecorder) FlowCompleted(flow string) { r.add("completed:"+flow, 1) }
func (r *countingRecorder) FlowCancelled(flow string) { r.add("cancelled:"+flow, 1) }
func (r *countingRecorder) FlowFailed(flow, kind string) {
	r.add("failed:"+flow+":"+kind, 1)
}
func (r *countingRecorder) InputRejected(flow, field, reason string) {
	r.add("rejected:"+flow+":"+field, 1)
}
func (r *countingRecorder) ItemsAdded(source string, n int) { r.add("items:"+source, n) }
func (r *countingRecorder) AssistantCall(task, outcome string, _ time.Duration) {
	r.add("assistant:"+task+":"+outcome, 1)
}

// fakeGenerator returns fixed items. When block is set it waits for it or
// for release, ignoring ctx, to simulate an unresponsive collaborator.
type fakeGenerator struct {
	items   []domain.NewItem
	err     error
	block   bool
	release chan struct{}

	mu    sync.Mutex
	calls int
	last  struct {
		description string
		kind        domain.ProjectKind
	}
}

func (g *fakeGenerator) GenerateItems(_ context.Context, description string, kind domain.ProjectKind) ([]domain.NewItem, error) {
	g.mu.Lock()
	g.calls++
	g.last.description = description
	g.last.kind = kind
	g.mu.Unlock()
	if g.block {
		<-g.release
	}
	return g.items, g.err
}

type fakeAnalyzer struct {
	analysis *domain.Analysis
	err      error
	gotItems int
}

func (a *fakeAnalyzer) Analyze(_ context.Context, _ *domain.Estimate, items []*domain.EstimateItem) (*domain.Analysis, error) {
	a.gotItems = len(items)
	return a.analysis, a.err
}

// flakyEstimates fails selected calls with a storage error.
type flakyEstimates struct {
	Estimates
	failCreate  bool
	failAddItem bool
}

func (f *flakyEstimates) Create(ctx context.Context, ownerID, title, description string) (*domain.Estimate, error) {
	if f.failCreate {
		return nil, &domain.StorageError{Op: "create estimate", Err: sql.ErrConnDone}
	}
	return f.Estimates.Create(ctx, ownerID, title, description)
}

func (f *flakyEstimates) AddItem(ctx context.Context, estimateID string, item domain.NewItem) (*domain.EstimateItem, error) {
	if f.failAddItem {
		return nil, &domain.StorageError{Op: "add item", Err: sql.ErrConnDone}
	}
	return f.Estimates.AddItem(ctx, estimateID, item)
}

// brokenUsage fails every usage increment.
type brokenUsage struct {
	Templates
}

func (brokenUsage) IncrementUsage(context.Context, string) error {
	return &domain.StorageError{Op: "increment template usage", Err: sql.ErrConnDone}
}
