package conversation

import (
	"context"
	"time"

	"github.com/alexanderramin/estibot/internal/domain"
	"github.com/alexanderramin/estibot/internal/session"
)

// Estimates is the slice of the estimate service the engine drives.
// service.EstimateService satisfies it.
type Estimates interface {
	Create(ctx context.Context, ownerID, title, description string) (*domain.Estimate, error)
	Get(ctx context.Context, id, ownerID string) (*domain.Estimate, error)
	AddItem(ctx context.Context, estimateID string, item domain.NewItem) (*domain.EstimateItem, error)
	AddItems(ctx context.Context, estimateID string, items []domain.NewItem) (*domain.BatchResult, error)
	ListItems(ctx context.Context, estimateID string) ([]*domain.EstimateItem, error)
	Delete(ctx context.Context, id, ownerID string) error
}

// Templates is the slice of the template service the engine drives.
type Templates interface {
	Create(ctx context.Context, ownerID string, t domain.NewTemplate) (*domain.WorkTemplate, error)
	Get(ctx context.Context, id, ownerID string) (*domain.WorkTemplate, error)
	IncrementUsage(ctx context.Context, id string) error
}

// Drafts is the per-user session store. *session.Store satisfies it.
type Drafts interface {
	Begin(userID, flow, targetEstimateID string) *session.Draft
	Get(userID string) (*session.Draft, bool)
	Update(userID string, fn func(d *session.Draft) error) (*session.Draft, error)
	Take(userID, draftID string) (*session.Draft, bool)
	Clear(userID string)
}

// Generator proposes candidate items for a project description. Errors and
// empty results are both treated as "nothing generated".
type Generator interface {
	GenerateItems(ctx context.Context, description string, kind domain.ProjectKind) ([]domain.NewItem, error)
}

// Analyzer produces advisory feedback on an estimate.
type Analyzer interface {
	Analyze(ctx context.Context, est *domain.Estimate, items []*domain.EstimateItem) (*domain.Analysis, error)
}

// Deduper reports whether an inbound event key was seen before, marking it
// seen otherwise. Forget unmarks a key whose event was not processed.
// *dedupe.Cache satisfies it.
type Deduper interface {
	Seen(key string) bool
	Forget(key string)
}

// Recorder counts conversation outcomes. *metrics.Collector satisfies it.
type Recorder interface {
	FlowStarted(flow string)
	FlowCompleted(flow string)
	FlowCancelled(flow string)
	FlowFailed(flow, kind string)
	InputRejected(flow, field, reason string)
	ItemsAdded(source string, n int)
	AssistantCall(task, outcome string, d time.Duration)
}

type noopRecorder struct{}

func (noopRecorder) FlowStarted(string) {}
func (noopRecorder) FlowCompleted(string) {}
func (noopRecorder) FlowCancelled(string) {}
func (noopRecorder) FlowFailed(string, string) {}
func (noopRecorder) InputRejected(string, string, string) {}
func (noopRecorder) ItemsAdded(string, int) {}
func (noopRecorder) AssistantCall(string, string, time.Duration) {}
