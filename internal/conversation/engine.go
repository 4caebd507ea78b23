// Package conversation drives the multi-step data-entry flows.
//
// An Engine takes one inbound event at a time, checks it against the field
// the user's draft is waiting for, and performs the flow's single
// persistence effect once the last field is filled. Drafts live in the
// session store; the engine itself holds no per-user state except rate
// limiters.
package conversation

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/alexanderramin/estibot/internal/dedupe"
	"github.com/alexanderramin/estibot/internal/domain"
	"github.com/alexanderramin/estibot/internal/flow"
	"github.com/alexanderramin/estibot/internal/service"
	"github.com/alexanderramin/estibot/internal/session"
	"github.com/alexanderramin/estibot/internal/validate"
)

// DefaultGenerateTimeout bounds a single generator call.
const DefaultGenerateTimeout = 60 * time.Second

// maxStaleRetries bounds how often an event is re-applied after the draft
// moved underneath it.
const maxStaleRetries = 3

// errStale means the draft changed between read and write.
var errStale = errors.New("draft changed concurrently")

// CancelTokens end the active flow from any field.
var CancelTokens = []string{"cancel", "/cancel"}

// IsCancel reports whether input is a cancel token.
func IsCancel(input string) bool {
	in := strings.TrimSpace(input)
	for _, tok := range CancelTokens {
		if strings.EqualFold(in, tok) {
			return true
		}
	}
	return false
}

// Event is one inbound message from a user.
type Event struct {
	UserID string
	// EventID identifies a delivery; a redelivery carries the same ID.
	// Empty disables duplicate detection for the event.
	EventID string
	Text    string
	// Choice is set instead of Text when the user picked a prompt option.
	Choice string
}

func (ev Event) input() string {
	if ev.Choice != "" {
		return ev.Choice
	}
	return ev.Text
}

// Seed carries context bound by the menu action that starts a flow.
type Seed struct {
	TargetEstimateID string
}

// Engine is safe for concurrent use by many users.
type Engine struct {
	estimates Estimates
	templates Templates
	drafts    Drafts

	generator       Generator
	analyzer        Analyzer
	dedupe          Deduper
	limiter         *userLimiters
	ratePerMinute   int
	generateTimeout time.Duration

	observer service.UseCaseObserver
	metrics  Recorder
	logger   *slog.Logger
	now      func() time.Time
}

// Option configures an Engine.
type Option func(*Engine)

func WithGenerator(g Generator) Option {
	return func(e *Engine) { e.generator = g }
}

func WithAnalyzer(a Analyzer) Option {
	return func(e *Engine) { e.analyzer = a }
}

// WithDedupe drops events whose EventID was already seen.
func WithDedupe(d Deduper) Option {
	return func(e *Engine) { e.dedupe = d }
}

// WithRateLimit allows each user perMinute events per minute, with bursts of
// the same size. Zero or less disables throttling.
func WithRateLimit(perMinute int) Option {
	return func(e *Engine) { e.ratePerMinute = perMinute }
}

// WithGenerateTimeout bounds the generator call. A call that does not
// answer in time counts as an empty result.
func WithGenerateTimeout(d time.Duration) Option {
	return func(e *Engine) {
		if d > 0 {
			e.generateTimeout = d
		}
	}
}

func WithObserver(obs service.UseCaseObserver) Option {
	return func(e *Engine) {
		if obs != nil {
			e.observer = obs
		}
	}
}

func WithMetrics(r Recorder) Option {
	return func(e *Engine) {
		if r != nil {
			e.metrics = r
		}
	}
}

func WithLogger(l *slog.Logger) Option {
	return func(e *Engine) {
		if l != nil {
			e.logger = l
		}
	}
}

// WithClock overrides the time source used for rate limiting.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) { e.now = now }
}

// New creates an Engine. Generator and analyzer are optional; without them
// generation yields nothing and analysis is empty.
func New(estimates Estimates, templates Templates, drafts Drafts, opts ...Option) *Engine {
	e := &Engine{
		estimates:       estimates,
		templates:       templates,
		drafts:          drafts,
		generateTimeout: DefaultGenerateTimeout,
		observer:        service.NoopUseCaseObserver{},
		metrics:         noopRecorder{},
		logger:          slog.New(slog.DiscardHandler),
		now:             time.Now,
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.ratePerMinute > 0 {
		e.limiter = newUserLimiters(e.ratePerMinute, e.now)
	}
	return e
}

// HandleEvent applies one inbound event to the user's active flow.
func (e *Engine) HandleEvent(ctx context.Context, ev Event) OutboundMessage {
	var key string
	if ev.EventID != "" && e.dedupe != nil {
		key = dedupe.Key(ev.UserID, ev.EventID)
		if e.dedupe.Seen(key) {
			return OutboundMessage{Kind: KindDuplicate}
		}
	}
	if e.limiter != nil && !e.limiter.Allow(ev.UserID) {
		// A throttled event was never applied, so its redelivery must be.
		if key != "" {
			e.dedupe.Forget(key)
		}
		return OutboundMessage{Kind: KindThrottled, Text: "Too many messages. Please wait a moment."}
	}

	input := ev.input()
	for attempt := 0; attempt <= maxStaleRetries; attempt++ {
		msg, err := e.step(ctx, ev.UserID, input)
		if !errors.Is(err, errStale) {
			return msg
		}
	}
	e.logger.WarnContext(ctx, "draft kept changing, event dropped", "user_id", ev.UserID)
	return noFlow()
}

// step applies input to the draft as it is now. It returns errStale when the
// draft moved between reading it and writing it back.
func (e *Engine) step(ctx context.Context, userID, input string) (OutboundMessage, error) {
	d, ok := e.drafts.Get(userID)
	if !ok {
		return noFlow(), nil
	}
	kind := flow.Kind(d.Flow)

	if IsCancel(input) {
		if _, ok := e.drafts.Take(userID, d.ID); !ok {
			return OutboundMessage{}, errStale
		}
		e.metrics.FlowCancelled(d.Flow)
		e.observe(ctx, "cancel-flow", time.Now().UTC(), userID, kind, nil, nil)
		return OutboundMessage{Kind: KindCancelled, Flow: kind, Text: "Cancelled. Nothing was saved."}, nil
	}

	def, ok := flow.Lookup(kind)
	if !ok {
		e.drafts.Take(userID, d.ID)
		return noFlow(), nil
	}
	field, ok := def.Field(d.FieldIndex)
	if !ok {
		// Every field is filled: another delivery is completing this draft.
		return noFlow(), nil
	}

	value, rej := field.Accept(input)
	if rej != nil {
		e.metrics.InputRejected(d.Flow, field.Name, string(rej.Reason))
		return OutboundMessage{
			Kind:    KindRejected,
			Flow:    kind,
			Text:    rej.Message + "\n" + field.Prompt,
			Field:   field.Name,
			Options: field.PromptOptions(),
		}, nil
	}

	next, err := e.drafts.Update(userID, func(cur *session.Draft) error {
		if cur.ID != d.ID || cur.FieldIndex != d.FieldIndex {
			return errStale
		}
		cur.Fields[field.Name] = value
		cur.FieldIndex++
		return nil
	})
	switch {
	case errors.Is(err, errStale):
		return OutboundMessage{}, errStale
	case err != nil:
		// Expired between Get and Update.
		return noFlow(), nil
	}

	if nf, ok := def.Field(next.FieldIndex); ok {
		return prompt(kind, nf), nil
	}
	taken, ok := e.drafts.Take(userID, next.ID)
	if !ok {
		return noFlow(), nil
	}
	return e.complete(ctx, def, taken), nil
}

// StartFlow begins kind for userID, discarding any draft in progress.
func (e *Engine) StartFlow(ctx context.Context, userID string, kind flow.Kind, seed Seed) OutboundMessage {
	def, ok := flow.Lookup(kind)
	if !ok {
		return OutboundMessage{Kind: KindNoFlow, Text: fmt.Sprintf("Unknown action %q.", kind)}
	}

	if def.RequiresEstimate && seed.TargetEstimateID == "" {
		e.drafts.Clear(userID)
		e.metrics.FlowFailed(string(kind), string(KindNotFound))
		return OutboundMessage{Kind: KindNotFound, Flow: kind, Text: "Pick an estimate first."}
	}
	if seed.TargetEstimateID != "" {
		if _, err := e.estimates.Get(ctx, seed.TargetEstimateID, userID); err != nil {
			e.drafts.Clear(userID)
			return e.failure(ctx, kind, err)
		}
	}

	d := e.drafts.Begin(userID, string(kind), seed.TargetEstimateID)
	e.metrics.FlowStarted(string(kind))
	e.logger.DebugContext(ctx, "flow started", "user_id", userID, "flow", kind, "draft_id", d.ID)

	first, _ := def.Field(0)
	msg := prompt(kind, first)
	msg.Text = def.Title + "\n" + msg.Text
	return msg
}

// InstantiateFromTemplate adds one item built from the template's defaults
// to the estimate and bumps the template's usage count. The count is
// best-effort: once the item is stored, a failed increment is only logged.
func (e *Engine) InstantiateFromTemplate(ctx context.Context, userID, estimateID, templateID string) (item *domain.EstimateItem, err error) {
	startedAt := time.Now().UTC()
	defer func() {
		e.observe(ctx, "instantiate-template", startedAt, userID, "", map[string]any{
			"estimate_id": estimateID,
			"template_id": templateID,
		}, err)
	}()

	if _, err := e.estimates.Get(ctx, estimateID, userID); err != nil {
		return nil, err
	}
	tpl, err := e.templates.Get(ctx, templateID, userID)
	if err != nil {
		return nil, err
	}
	if !tpl.IsActive {
		return nil, fmt.Errorf("template %s is deleted: %w", templateID, domain.ErrTemplateNotFound)
	}

	item, err = e.estimates.AddItem(ctx, estimateID, tpl.ToNewItem())
	if err != nil {
		return nil, err
	}
	e.metrics.ItemsAdded("template", 1)

	if incErr := e.templates.IncrementUsage(ctx, tpl.ID); incErr != nil {
		e.logger.WarnContext(ctx, "template usage not incremented",
			"template_id", tpl.ID, "item_id", item.ID, "error", incErr)
	}
	return item, nil
}

// Analyze returns advisory feedback for one of the user's estimates. Only a
// missing estimate or a storage failure is an error; analyzer failures give
// an empty analysis.
func (e *Engine) Analyze(ctx context.Context, userID, estimateID string) (*domain.Analysis, error) {
	est, err := e.estimates.Get(ctx, estimateID, userID)
	if err != nil {
		return nil, err
	}
	items, err := e.estimates.ListItems(ctx, estimateID)
	if err != nil {
		return nil, err
	}
	if e.analyzer == nil {
		return &domain.Analysis{}, nil
	}

	startedAt := time.Now()
	actx, cancel := context.WithTimeout(ctx, e.generateTimeout)
	defer cancel()

	type result struct {
		analysis *domain.Analysis
		err      error
	}
	ch := make(chan result, 1)
	go func() {
		a, err := e.analyzer.Analyze(actx, est, items)
		ch <- result{a, err}
	}()

	var res result
	select {
	case res = <-ch:
	case <-actx.Done():
		res.err = actx.Err()
	}

	outcome := "ok"
	switch {
	case res.err != nil:
		outcome = "error"
		e.logger.WarnContext(ctx, "analysis failed", "estimate_id", estimateID, "error", res.err)
		res.analysis = nil
	case res.analysis.IsEmpty():
		outcome = "empty"
	}
	e.metrics.AssistantCall("analyze", outcome, time.Since(startedAt))

	if res.analysis == nil {
		return &domain.Analysis{}, nil
	}
	return res.analysis, nil
}

// complete performs the flow's persistence effect. The draft has already
// been taken from the store, so a retry needs a fresh flow.
func (e *Engine) complete(ctx context.Context, def *flow.Definition, d *session.Draft) OutboundMessage {
	startedAt := time.Now().UTC()

	var (
		msg OutboundMessage
		err error
	)
	switch def.Kind {
	case flow.CreateEstimate:
		msg, err = e.completeCreateEstimate(ctx, d)
	case flow.AddItemManual:
		msg, err = e.completeAddItem(ctx, d)
	case flow.CreateTemplate:
		msg, err = e.completeCreateTemplate(ctx, d)
	case flow.AssistantGenerate:
		msg, err = e.completeGenerate(ctx, d)
	default:
		err = fmt.Errorf("no completion for flow %q", def.Kind)
	}

	e.observe(ctx, "complete-flow", startedAt, d.UserID, def.Kind, map[string]any{
		"draft_id":    d.ID,
		"items_added": msg.ItemsAdded,
	}, err)
	if err != nil {
		return e.failure(ctx, def.Kind, err)
	}

	e.metrics.FlowCompleted(string(def.Kind))
	msg.Kind = KindCompleted
	msg.Flow = def.Kind
	return msg
}

func (e *Engine) completeCreateEstimate(ctx context.Context, d *session.Draft) (OutboundMessage, error) {
	est, err := e.estimates.Create(ctx, d.UserID, d.Fields[flow.FieldTitle], d.Fields[flow.FieldDescription])
	if err != nil {
		return OutboundMessage{}, err
	}
	return OutboundMessage{
		Estimate: est,
		Text:     fmt.Sprintf("Estimate %q created.", est.Title),
	}, nil
}

func (e *Engine) completeAddItem(ctx context.Context, d *session.Draft) (OutboundMessage, error) {
	duration, err := flow.ParseNumber(d.Fields[flow.FieldDuration])
	if err != nil {
		return OutboundMessage{}, fmt.Errorf("reading duration: %w", err)
	}
	cost, err := flow.ParseNumber(d.Fields[flow.FieldCost])
	if err != nil {
		return OutboundMessage{}, fmt.Errorf("reading cost: %w", err)
	}

	item, err := e.estimates.AddItem(ctx, d.TargetEstimateID, domain.NewItem{
		Name:     d.Fields[flow.FieldName],
		Duration: duration,
		Cost:     cost,
	})
	if err != nil {
		return OutboundMessage{}, err
	}
	e.metrics.ItemsAdded("manual", 1)

	msg := OutboundMessage{
		Item: item,
		Text: fmt.Sprintf("Item %q added: %s h, cost %s.", item.Name, amount(item.Duration), amount(item.Cost)),
	}
	if est, err := e.estimates.Get(ctx, d.TargetEstimateID, d.UserID); err == nil {
		msg.Estimate = est
		msg.Text += fmt.Sprintf("\nEstimate total: %s h, cost %s.", amount(est.TotalDuration), amount(est.TotalCost))
	}
	return msg, nil
}

func (e *Engine) completeCreateTemplate(ctx context.Context, d *session.Draft) (OutboundMessage, error) {
	duration, err := flow.ParseNumber(d.Fields[flow.FieldDuration])
	if err != nil {
		return OutboundMessage{}, fmt.Errorf("reading duration: %w", err)
	}
	cost, err := flow.ParseNumber(d.Fields[flow.FieldCost])
	if err != nil {
		return OutboundMessage{}, fmt.Errorf("reading cost: %w", err)
	}

	tpl, err := e.templates.Create(ctx, d.UserID, domain.NewTemplate{
		Name:            d.Fields[flow.FieldName],
		Description:     d.Fields[flow.FieldDescription],
		Category:        domain.Category(d.Fields[flow.FieldCategory]),
		DefaultDuration: duration,
		DefaultCost:     cost,
	})
	if err != nil {
		return OutboundMessage{}, err
	}
	return OutboundMessage{
		Template: tpl,
		Text:     fmt.Sprintf("Template %q saved (%s).", tpl.Name, tpl.CategoryLabel()),
	}, nil
}

// completeGenerate asks the generator for candidate items and stores the
// valid ones. Without a bound estimate a new one is created, but only when
// there is something to put in it.
func (e *Engine) completeGenerate(ctx context.Context, d *session.Draft) (OutboundMessage, error) {
	description := d.Fields[flow.FieldDescription]
	kind := domain.ProjectKind(d.Fields[flow.FieldProjectKind])

	valid, failures := screenCandidates(e.generate(ctx, description, kind))
	if len(valid) == 0 {
		return OutboundMessage{
			Failures: failures,
			Text:     "No items generated. Try a more detailed description or add items manually.",
		}, nil
	}

	estimateID := d.TargetEstimateID
	var est *domain.Estimate
	if estimateID == "" {
		created, err := e.estimates.Create(ctx, d.UserID, "AI estimate: "+kind.Label(), description)
		if err != nil {
			return OutboundMessage{}, err
		}
		est, estimateID = created, created.ID
	}
	createdHere := d.TargetEstimateID == ""

	res, err := e.estimates.AddItems(ctx, estimateID, valid)
	if err != nil {
		return OutboundMessage{}, err
	}
	e.metrics.ItemsAdded("assistant", len(res.Added))
	failures = append(failures, res.Failed...)

	if createdHere && len(res.Added) == 0 {
		e.discardEstimate(ctx, d.UserID, estimateID)
		return OutboundMessage{
			Failures: failures,
			Text:     fmt.Sprintf("No items could be saved. %d item(s) failed, no estimate was created.", len(failures)),
		}, nil
	}

	if fresh, err := e.estimates.Get(ctx, estimateID, d.UserID); err == nil {
		est = fresh
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Added %d item(s)", len(res.Added))
	if est != nil {
		fmt.Fprintf(&b, " to %q. Total: %s h, cost %s.", est.Title, amount(est.TotalDuration), amount(est.TotalCost))
	} else {
		b.WriteString(".")
	}
	if len(failures) > 0 {
		fmt.Fprintf(&b, "\n%d item(s) could not be added.", len(failures))
	}
	return OutboundMessage{
		Estimate:   est,
		ItemsAdded: len(res.Added),
		Failures:   failures,
		Text:       b.String(),
	}, nil
}

// discardEstimate removes an estimate the assistant flow created but could
// not fill.
func (e *Engine) discardEstimate(ctx context.Context, userID, estimateID string) {
	if err := e.estimates.Delete(ctx, estimateID, userID); err != nil {
		e.logger.WarnContext(ctx, "empty assistant estimate not removed",
			"user_id", userID, "estimate_id", estimateID, "error", err)
	}
}

// generate calls the generator within the configured bound. Errors, a missed
// deadline and an empty answer all yield nil.
func (e *Engine) generate(ctx context.Context, description string, kind domain.ProjectKind) []domain.NewItem {
	if e.generator == nil {
		return nil
	}

	startedAt := time.Now()
	gctx, cancel := context.WithTimeout(ctx, e.generateTimeout)
	defer cancel()

	type result struct {
		items []domain.NewItem
		err   error
	}
	ch := make(chan result, 1)
	go func() {
		items, err := e.generator.GenerateItems(gctx, description, kind)
		ch <- result{items, err}
	}()

	var res result
	select {
	case res = <-ch:
	case <-gctx.Done():
		res.err = gctx.Err()
	}

	outcome := "ok"
	switch {
	case errors.Is(res.err, context.DeadlineExceeded):
		outcome = "timeout"
	case res.err != nil:
		outcome = "error"
	case len(res.items) == 0:
		outcome = "empty"
	}
	e.metrics.AssistantCall("generate_items", outcome, time.Since(startedAt))
	if res.err != nil {
		e.logger.WarnContext(ctx, "item generation failed", "project_kind", kind, "error", res.err)
		return nil
	}
	return res.items
}

// screenCandidates applies the manual-entry rules to generated items so that
// nothing unvalidated reaches storage.
func screenCandidates(items []domain.NewItem) ([]domain.NewItem, []domain.ItemFailure) {
	var (
		valid    []domain.NewItem
		failures []domain.ItemFailure
	)
	for _, it := range items {
		name := validate.SanitizeText(it.Name)
		rej := validate.TextLength(name, 3, 200)
		if rej == nil {
			rej = validate.DurationValue(it.Duration)
		}
		if rej == nil {
			rej = validate.CostValue(it.Cost)
		}
		if rej != nil {
			failures = append(failures, domain.ItemFailure{
				Name: name,
				Err:  fmt.Errorf("%w: %s", domain.ErrInvalidValue, rej.Message),
			})
			continue
		}
		valid = append(valid, domain.NewItem{
			Name:        name,
			Description: validate.SanitizeText(it.Description),
			Duration:    it.Duration,
			Cost:        it.Cost,
		})
	}
	return valid, failures
}

// failure turns an error into the message for an aborted flow.
func (e *Engine) failure(ctx context.Context, kind flow.Kind, err error) OutboundMessage {
	if errors.Is(err, domain.ErrNotFound) {
		e.metrics.FlowFailed(string(kind), string(KindNotFound))
		return OutboundMessage{Kind: KindNotFound, Flow: kind, Text: notFoundText(err)}
	}
	e.metrics.FlowFailed(string(kind), string(KindStorageError))
	e.logger.ErrorContext(ctx, "flow failed", "flow", kind, "error", err)
	return OutboundMessage{
		Kind: KindStorageError,
		Flow: kind,
		Text: "Could not save. Nothing was changed; please try again.",
	}
}

func notFoundText(err error) string {
	switch {
	case errors.Is(err, domain.ErrEstimateNotFound):
		return "That estimate no longer exists."
	case errors.Is(err, domain.ErrTemplateNotFound):
		return "That template no longer exists."
	case errors.Is(err, domain.ErrItemNotFound):
		return "That item no longer exists."
	default:
		return "That no longer exists."
	}
}

func (e *Engine) observe(ctx context.Context, name string, startedAt time.Time, userID string, kind flow.Kind, fields map[string]any, err error) {
	all := map[string]any{"user_id": userID}
	if kind != "" {
		all["flow"] = string(kind)
	}
	for k, v := range fields {
		all[k] = v
	}
	e.observer.ObserveUseCase(ctx, service.UseCaseEvent{
		Name:      name,
		StartedAt: startedAt,
		Duration:  time.Since(startedAt),
		Success:   err == nil,
		Err:       err,
		Fields:    all,
	})
}

func prompt(kind flow.Kind, f flow.Field) OutboundMessage {
	return OutboundMessage{
		Kind:    KindPrompt,
		Flow:    kind,
		Text:    f.Prompt,
		Field:   f.Name,
		Options: f.PromptOptions(),
	}
}

func noFlow() OutboundMessage {
	return OutboundMessage{Kind: KindNoFlow}
}

func amount(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
