// Package assistant generates and reviews estimate items with a language
// model. Every call is best effort: callers treat errors as empty results.
package assistant

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"math"
	"strconv"
	"strings"

	"github.com/alexanderramin/estibot/internal/domain"
	"github.com/alexanderramin/estibot/internal/llm"
)

// DefaultMaxItems caps how many generated candidates are returned.
const DefaultMaxItems = 15

// Assistant implements the conversation Generator and Analyzer over an
// llm.Client.
type Assistant struct {
	client   llm.Client
	maxItems int
	logger   *slog.Logger
}

// New creates an Assistant. maxItems <= 0 uses DefaultMaxItems.
func New(client llm.Client, maxItems int, logger *slog.Logger) *Assistant {
	if maxItems <= 0 {
		maxItems = DefaultMaxItems
	}
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Assistant{client: client, maxItems: maxItems, logger: logger}
}

type generatedItem struct {
	Name        string     `json:"name"`
	Description string     `json:"description"`
	Duration    flexNumber `json:"duration"`
	Cost        flexNumber `json:"cost"`
}

type generatedPayload struct {
	Items []generatedItem `json:"items"`
}

// GenerateItems asks the model for candidate items. Values are returned as
// the model produced them; the caller screens them.
func (a *Assistant) GenerateItems(ctx context.Context, description string, kind domain.ProjectKind) ([]domain.NewItem, error) {
	resp, err := a.client.Generate(ctx, llm.GenerateRequest{
		Task:         llm.TaskGenerateItems,
		SystemPrompt: generateSystemPrompt,
		UserPrompt:   generatePrompt(description, kind),
		JSON:         true,
	})
	if err != nil {
		a.logger.Warn("generating items failed", "kind", string(kind), "error", err)
		return nil, fmt.Errorf("generating items: %w", err)
	}

	raw, err := parseItems(resp.Text)
	if err != nil {
		a.logger.Warn("unusable item output", "kind", string(kind), "error", err)
		return nil, err
	}
	if len(raw) > a.maxItems {
		raw = raw[:a.maxItems]
	}

	items := make([]domain.NewItem, 0, len(raw))
	for _, g := range raw {
		items = append(items, domain.NewItem{
			Name:        strings.TrimSpace(g.Name),
			Description: strings.TrimSpace(g.Description),
			Duration:    float64(g.Duration),
			Cost:        float64(g.Cost),
		})
	}
	a.logger.Info("items generated", "kind", string(kind), "count", len(items), "attempts", resp.Attempts)
	return items, nil
}

// parseItems accepts either a bare array of items or an object wrapping it.
func parseItems(text string) ([]generatedItem, error) {
	if arr, err := llm.ExtractJSON[[]generatedItem](text, nil); err == nil {
		return arr, nil
	}
	payload, err := llm.ExtractJSON[generatedPayload](text, nil)
	if err != nil {
		return nil, fmt.Errorf("parsing items: %w", err)
	}
	return payload.Items, nil
}

func generatePrompt(description string, kind domain.ProjectKind) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Project type: %s\n", kind.Label())
	if hint, ok := kindHints[string(kind)]; ok {
		fmt.Fprintf(&b, "%s\n", hint)
	}
	fmt.Fprintf(&b, "Project description:\n%s\n", description)
	return b.String()
}

type analysisPayload struct {
	Suggestions      []string `json:"suggestions"`
	OptimizationTips []string `json:"optimization_tips"`
	RiskFactors      []string `json:"risk_factors"`
	TotalEstimation  *struct {
		MinCost           flexNumber `json:"min_cost"`
		MaxCost           flexNumber `json:"max_cost"`
		RecommendedBuffer flexNumber `json:"recommended_buffer"`
	} `json:"total_estimation"`
}

// Analyze asks the model to review est and its items.
func (a *Assistant) Analyze(ctx context.Context, est *domain.Estimate, items []*domain.EstimateItem) (*domain.Analysis, error) {
	resp, err := a.client.Generate(ctx, llm.GenerateRequest{
		Task:         llm.TaskAnalyze,
		SystemPrompt: analyzeSystemPrompt,
		UserPrompt:   analyzePrompt(est, items),
		JSON:         true,
	})
	if err != nil {
		a.logger.Warn("analyzing estimate failed", "estimate_id", est.ID, "error", err)
		return nil, fmt.Errorf("analyzing estimate: %w", err)
	}

	payload, err := llm.ExtractJSON[analysisPayload](resp.Text, nil)
	if err != nil {
		a.logger.Warn("unusable analysis output", "estimate_id", est.ID, "error", err)
		return nil, fmt.Errorf("parsing analysis: %w", err)
	}

	analysis := &domain.Analysis{
		Suggestions: nonBlank(payload.Suggestions),
		Tips:        nonBlank(payload.OptimizationTips),
		Risks:       nonBlank(payload.RiskFactors),
	}
	if te := payload.TotalEstimation; te != nil {
		lo, hi := float64(te.MinCost), float64(te.MaxCost)
		if hi > 0 && lo >= 0 && lo <= hi {
			analysis.CostRange = &domain.CostRange{Min: lo, Max: hi, BufferPct: max(float64(te.RecommendedBuffer), 0)}
		}
	}
	return analysis, nil
}

func analyzePrompt(est *domain.Estimate, items []*domain.EstimateItem) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Title: %s\n", est.Title)
	if est.Description != "" {
		fmt.Fprintf(&b, "Description: %s\n", est.Description)
	}
	b.WriteString("Items:\n")
	for _, it := range items {
		fmt.Fprintf(&b, "- %s: %sh, %s\n", it.Name, formatNumber(it.Duration), formatNumber(it.Cost))
	}
	totals := domain.SumItems(items)
	fmt.Fprintf(&b, "Total cost: %s\nTotal duration: %sh\n", formatNumber(totals.Cost), formatNumber(totals.Duration))
	return b.String()
}

func nonBlank(in []string) []string {
	var out []string
	for _, s := range in {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}

func formatNumber(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// flexNumber decodes a JSON number or a numeric string such as "12,5" or
// "1 500". Anything else decodes as NaN so that screening rejects it.
type flexNumber float64

func (n *flexNumber) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*n = 0
		return nil
	}
	var f float64
	if err := json.Unmarshal(data, &f); err == nil {
		*n = flexNumber(f)
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return fmt.Errorf("number expected, got %s", data)
	}
	s = strings.NewReplacer(" ", "", "\u00a0", "", ",", ".").Replace(strings.TrimSpace(s))
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		f = math.NaN()
	}
	*n = flexNumber(f)
	return nil
}
