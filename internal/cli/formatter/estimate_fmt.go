package formatter

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/alexanderramin/estibot/internal/domain"
)

// FormatEstimateList renders the user's estimates, newest first as given.
func FormatEstimateList(estimates []*domain.Estimate, now time.Time) string {
	if len(estimates) == 0 {
		return Dim("No estimates yet. Start one with /new or 'estibot chat'.") + "\n"
	}

	cols := []Column{
		{Title: "#"}, {Title: "ID"}, {Title: "TITLE"},
		{Title: "ITEMS", Right: true}, {Title: "HOURS", Right: true}, {Title: "COST", Right: true},
		{Title: "UPDATED"},
	}
	rows := make([][]string, 0, len(estimates))
	for i, e := range estimates {
		rows = append(rows, []string{
			strconv.Itoa(i + 1),
			TruncID(e.ID),
			Bold(e.Title),
			strconv.Itoa(e.ItemCount),
			Number(e.TotalDuration),
			Money(e.TotalCost),
			Dim(RelativeDateFrom(e.UpdatedAt, now)),
		})
	}
	return RenderBox("Estimates", RenderTable(cols, rows))
}

// FormatEstimate renders one estimate with its items and totals.
func FormatEstimate(e *domain.Estimate, items []*domain.EstimateItem) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s  %s\n", StyleBold.Render(e.Title), TruncID(e.ID))
	if e.Description != "" {
		fmt.Fprintf(&b, "%s\n", Dim(e.Description))
	}
	b.WriteString("\n")

	if len(items) == 0 {
		b.WriteString(Dim("No items yet.") + "\n")
	} else {
		cols := []Column{
			{Title: "#", Right: true}, {Title: "ITEM"},
			{Title: "HOURS", Right: true}, {Title: "COST", Right: true}, {Title: "SOURCE"},
		}
		rows := make([][]string, 0, len(items))
		for i, it := range items {
			source := Dim("manual")
			if it.TemplateID != nil {
				source = StyleBlue.Render("template")
			}
			rows = append(rows, []string{strconv.Itoa(i + 1), it.Name, Number(it.Duration), Money(it.Cost), source})
		}
		b.WriteString(RenderTable(cols, rows))
	}

	b.WriteString("\n")
	b.WriteString(FormatTotals(e.Totals()))
	return RenderBox("Estimate", b.String())
}

// FormatTotals renders the totals line and, when hours are known, the
// average hourly rate.
func FormatTotals(t domain.Totals) string {
	line := fmt.Sprintf("%s %s   %s %s", Dim("Total:"), StyleGreen.Render(Hours(t.Duration)), Dim("Cost:"), StyleGreen.Render(Money(t.Cost)))
	if rate := t.HourlyRate(); rate > 0 {
		line += fmt.Sprintf("   %s %s", Dim("Rate:"), Money(roundCents(rate))+"/h")
	}
	return line + "\n"
}

// FormatStats renders the user's overall figures and most used templates.
func FormatStats(st domain.UserStats) string {
	if st.Estimates == 0 {
		return RenderBox("Statistics", Dim("No data yet. Create your first estimate with /new.")+"\n")
	}

	var b strings.Builder
	row := func(label, value string) {
		fmt.Fprintf(&b, "%-16s %s\n", Dim(label), value)
	}
	row("Estimates:", strconv.Itoa(st.Estimates))
	row("Templates:", strconv.Itoa(st.Templates))
	row("Total cost:", StyleGreen.Render(Money(roundCents(st.Totals.Cost))))
	row("Total time:", StyleGreen.Render(Hours(st.Totals.Duration)))
	row("Average cost:", Money(roundCents(st.AverageCost())))
	row("Hourly rate:", Money(roundCents(st.Totals.HourlyRate()))+"/h")

	if len(st.TopTemplates) > 0 {
		b.WriteString("\n" + Bold("Most used templates") + "\n")
		for i, t := range st.TopTemplates {
			fmt.Fprintf(&b, "%d. %s %s\n", i+1, t.Name, Dim(fmt.Sprintf("(%d uses)", t.UsageCount)))
		}
	}
	return RenderBox("Statistics", b.String())
}

// FormatTemplateList renders templates grouped by category, most used first
// within each group.
func FormatTemplateList(templates []*domain.WorkTemplate) string {
	if len(templates) == 0 {
		return Dim("No templates yet. Create one with /template.") + "\n"
	}

	groups := make(map[string][]*domain.WorkTemplate)
	var order []string
	for _, t := range templates {
		label := t.CategoryLabel()
		if _, ok := groups[label]; !ok {
			order = append(order, label)
		}
		groups[label] = append(groups[label], t)
	}

	var b strings.Builder
	for gi, label := range orderCategories(order) {
		if gi > 0 {
			b.WriteString("\n")
		}
		b.WriteString(CategoryBadge(label) + "\n")
		cols := []Column{
			{Title: "ID"}, {Title: "NAME"},
			{Title: "HOURS", Right: true}, {Title: "COST", Right: true}, {Title: "USED", Right: true},
		}
		rows := make([][]string, 0, len(groups[label]))
		for _, t := range groups[label] {
			rows = append(rows, []string{
				TruncID(t.ID), Bold(t.Name), Number(t.DefaultDuration), Money(t.DefaultCost), strconv.Itoa(t.UsageCount),
			})
		}
		b.WriteString(RenderTable(cols, rows))
	}
	return RenderBox("Templates", b.String())
}

// orderCategories sorts group labels by the fixed category order, with
// anything unknown (including "Uncategorized") last.
func orderCategories(labels []string) []string {
	rank := make(map[string]int, len(domain.Categories))
	for i, c := range domain.Categories {
		rank[string(c)] = i
	}
	out := append([]string(nil), labels...)
	pos := func(s string) int {
		if r, ok := rank[s]; ok {
			return r
		}
		return len(rank)
	}
	for i := 1; i < len(out); i++ {
		for j := i; j > 0 && pos(out[j]) < pos(out[j-1]); j-- {
			out[j], out[j-1] = out[j-1], out[j]
		}
	}
	return out
}

// FormatTemplate renders one template's details.
func FormatTemplate(t *domain.WorkTemplate) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s  %s\n\n", StyleBold.Render(t.Name), CategoryBadge(string(t.Category)))
	if t.Description != "" {
		fmt.Fprintf(&b, "  %s\n\n", t.Description)
	}
	fmt.Fprintf(&b, "  %s  %s\n", StyleDim.Render("HOURS"), Hours(t.DefaultDuration))
	fmt.Fprintf(&b, "  %s   %s\n", StyleDim.Render("COST"), Money(t.DefaultCost))
	fmt.Fprintf(&b, "  %s   %d\n", StyleDim.Render("USED"), t.UsageCount)
	fmt.Fprintf(&b, "  %s     %s\n", StyleDim.Render("ID"), Dim(t.ID))
	return RenderBox("Template", b.String())
}

// FormatAnalysis renders assistant feedback on an estimate.
func FormatAnalysis(a *domain.Analysis) string {
	if a.IsEmpty() {
		return Dim("The assistant had nothing to add. It may be disabled or unavailable.") + "\n"
	}

	var b strings.Builder
	section := func(title string, style func(...string) string, lines []string) {
		if len(lines) == 0 {
			return
		}
		if b.Len() > 0 {
			b.WriteString("\n")
		}
		b.WriteString(Header(title) + "\n")
		for _, l := range lines {
			fmt.Fprintf(&b, "%s %s\n", style("•"), l)
		}
	}
	section("Suggestions", StyleBlue.Render, a.Suggestions)
	section("Optimization", StyleGreen.Render, a.Tips)
	section("Risks", StyleRed.Render, a.Risks)

	if r := a.CostRange; r != nil {
		if b.Len() > 0 {
			b.WriteString("\n")
		}
		b.WriteString(Header("Cost range") + "\n")
		fmt.Fprintf(&b, "%s to %s", Money(r.Min), Money(r.Max))
		if r.BufferPct > 0 {
			fmt.Fprintf(&b, " %s", Dim(fmt.Sprintf("(buffer %s%%)", Number(r.BufferPct))))
		}
		b.WriteString("\n")
	}
	return RenderBox("Analysis", b.String())
}

func roundCents(v float64) float64 {
	f, _ := strconv.ParseFloat(strconv.FormatFloat(v, 'f', 2, 64), 64)
	return f
}
