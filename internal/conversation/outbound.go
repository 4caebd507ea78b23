package conversation

import (
	"github.com/alexanderramin/estibot/internal/domain"
	"github.com/alexanderramin/estibot/internal/flow"
)

// MessageKind classifies an outbound message for the transport.
type MessageKind string

const (
	// KindPrompt asks for the next field.
	KindPrompt MessageKind = "prompt"
	// KindRejected repeats the current field's prompt after invalid input.
	KindRejected MessageKind = "rejected"
	// KindCompleted reports the outcome of a finished flow.
	KindCompleted MessageKind = "completed"
	KindCancelled MessageKind = "cancelled"
	// KindNotFound means an entity the flow depended on no longer exists.
	// The draft has been discarded.
	KindNotFound MessageKind = "not_found"
	// KindStorageError means the write did not apply. The draft has been
	// discarded and the user may start over.
	KindStorageError MessageKind = "storage_error"
	// KindNoFlow means the event belongs to the menu layer: there is no
	// active draft for the user.
	KindNoFlow MessageKind = "no_flow"
	// KindDuplicate marks a redelivered event that was ignored.
	KindDuplicate MessageKind = "duplicate"
	KindThrottled MessageKind = "throttled"
)

// OutboundMessage is the engine's reply to one inbound event.
type OutboundMessage struct {
	Kind MessageKind
	Flow flow.Kind
	Text string

	// Field and Options describe the field being prompted for.
	Field   string
	Options []string

	Estimate *domain.Estimate
	Item     *domain.EstimateItem
	Template *domain.WorkTemplate

	// ItemsAdded and Failures summarize a batch of assistant items.
	ItemsAdded int
	Failures   []domain.ItemFailure
}
