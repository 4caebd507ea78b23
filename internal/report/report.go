// Package report renders an estimate with its items and totals for export.
package report

import (
	"bytes"
	"errors"
	"fmt"
	"html"
	"strconv"
	"strings"

	"github.com/alexanderramin/estibot/internal/domain"
	"github.com/charmbracelet/lipgloss"
	"github.com/microcosm-cc/bluemonday"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
)

type Format string

const (
	FormatText     Format = "text"
	FormatMarkdown Format = "markdown"
	FormatHTML     Format = "html"
)

// Formats lists the supported formats in display order.
var Formats = []Format{FormatText, FormatMarkdown, FormatHTML}

var ErrUnknownFormat = errors.New("unknown report format")

// ParseFormat maps a user-supplied name (including common aliases) to a Format.
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "text", "txt":
		return FormatText, nil
	case "markdown", "md":
		return FormatMarkdown, nil
	case "html", "htm":
		return FormatHTML, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownFormat, s)
	}
}

// Extension returns the file extension conventionally used for f.
func (f Format) Extension() string {
	switch f {
	case FormatMarkdown:
		return ".md"
	case FormatHTML:
		return ".html"
	default:
		return ".txt"
	}
}

var (
	markdown = goldmark.New(goldmark.WithExtensions(extension.Table))
	policy   = bluemonday.UGCPolicy()
)

// Render produces the report for est in the requested format. totals is
// passed separately so callers can render the cached aggregate or one
// recomputed from items.
func Render(est *domain.Estimate, items []*domain.EstimateItem, totals domain.Totals, format Format) ([]byte, error) {
	switch format {
	case FormatText:
		return []byte(renderText(est, items, totals)), nil
	case FormatMarkdown:
		return []byte(renderMarkdown(est, items, totals)), nil
	case FormatHTML:
		return renderHTML(est, items, totals)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownFormat, format)
	}
}

func renderText(est *domain.Estimate, items []*domain.EstimateItem, totals domain.Totals) string {
	var b strings.Builder
	title := "ESTIMATE: " + est.Title
	b.WriteString(title + "\n")
	b.WriteString(strings.Repeat("=", lipgloss.Width(title)) + "\n")
	if est.Description != "" {
		b.WriteString(est.Description + "\n")
	}
	if !est.CreatedAt.IsZero() {
		fmt.Fprintf(&b, "Created: %s\n", est.CreatedAt.Format("2006-01-02"))
	}
	b.WriteString("\n")

	if len(items) == 0 {
		b.WriteString("No items.\n\n")
	} else {
		rows := make([][]string, 0, len(items))
		for i, it := range items {
			rows = append(rows, []string{strconv.Itoa(i + 1), it.Name, Number(it.Duration), Number(it.Cost)})
		}
		b.WriteString(textTable([]string{"#", "Item", "Hours", "Cost"}, rows))
		b.WriteString("\n")
		for i, it := range items {
			if it.Description != "" {
				fmt.Fprintf(&b, "%d. %s\n", i+1, it.Description)
			}
		}
		b.WriteString("\n")
	}

	fmt.Fprintf(&b, "Total duration: %s h\n", Number(totals.Duration))
	fmt.Fprintf(&b, "Total cost: %s\n", Number(totals.Cost))
	if rate := totals.HourlyRate(); rate > 0 {
		fmt.Fprintf(&b, "Average rate: %s per hour\n", Number(round2(rate)))
	}
	return b.String()
}

// textTable pads columns to their widest cell. Widths are measured in
// terminal cells so non-ASCII names line up.
func textTable(headers []string, rows [][]string) string {
	const colGap = 2
	widths := make([]int, len(headers))
	for i, h := range headers {
		widths[i] = lipgloss.Width(h)
	}
	for _, row := range rows {
		for i, cell := range row {
			widths[i] = max(widths[i], lipgloss.Width(cell))
		}
	}

	var b strings.Builder
	writeRow := func(row []string) {
		var line strings.Builder
		for i, cell := range row {
			line.WriteString(cell)
			if i < len(row)-1 {
				line.WriteString(strings.Repeat(" ", widths[i]-lipgloss.Width(cell)+colGap))
			}
		}
		b.WriteString(strings.TrimRight(line.String(), " ") + "\n")
	}
	writeRow(headers)
	sep := make([]string, len(widths))
	for i, w := range widths {
		sep[i] = strings.Repeat("-", w)
	}
	writeRow(sep)
	for _, row := range rows {
		writeRow(row)
	}
	return b.String()
}

func renderMarkdown(est *domain.Estimate, items []*domain.EstimateItem, totals domain.Totals) string {
	var b strings.Builder
	fmt.Fprintf(&b, "# %s\n\n", escapeMarkdown(est.Title))
	if est.Description != "" {
		fmt.Fprintf(&b, "%s\n\n", escapeMarkdown(est.Description))
	}
	if !est.CreatedAt.IsZero() {
		fmt.Fprintf(&b, "_Created %s_\n\n", est.CreatedAt.Format("2006-01-02"))
	}

	if len(items) == 0 {
		b.WriteString("No items.\n\n")
	} else {
		b.WriteString("| # | Item | Description | Hours | Cost |\n")
		b.WriteString("|---|------|-------------|------:|-----:|\n")
		for i, it := range items {
			fmt.Fprintf(&b, "| %d | %s | %s | %s | %s |\n",
				i+1, escapeMarkdown(it.Name), escapeMarkdown(it.Description), Number(it.Duration), Number(it.Cost))
		}
		b.WriteString("\n")
	}

	fmt.Fprintf(&b, "**Total duration:** %s h\n\n", Number(totals.Duration))
	fmt.Fprintf(&b, "**Total cost:** %s\n", Number(totals.Cost))
	if rate := totals.HourlyRate(); rate > 0 {
		fmt.Fprintf(&b, "\n**Average rate:** %s per hour\n", Number(round2(rate)))
	}
	return b.String()
}

func renderHTML(est *domain.Estimate, items []*domain.EstimateItem, totals domain.Totals) ([]byte, error) {
	var body bytes.Buffer
	if err := markdown.Convert([]byte(renderMarkdown(est, items, totals)), &body); err != nil {
		return nil, fmt.Errorf("converting markdown: %w", err)
	}

	var b bytes.Buffer
	b.WriteString("<!DOCTYPE html>\n<html>\n<head>\n<meta charset=\"utf-8\">\n")
	fmt.Fprintf(&b, "<title>%s</title>\n", html.EscapeString(est.Title))
	b.WriteString("</head>\n<body>\n")
	b.Write(policy.SanitizeBytes(body.Bytes()))
	b.WriteString("</body>\n</html>\n")
	return b.Bytes(), nil
}

var markdownEscaper = strings.NewReplacer(
	`\`, `\\`, "`", "\\`", "*", `\*`, "_", `\_`, "[", `\[`, "]", `\]`,
	"<", `\<`, ">", `\>`, "#", `\#`, "|", `\|`,
	"\r\n", " ", "\n", " ",
)

// escapeMarkdown neutralizes user text so it renders literally inside a
// paragraph or a table cell.
func escapeMarkdown(s string) string {
	return markdownEscaper.Replace(s)
}

// Number formats v without trailing zeros.
func Number(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

func round2(v float64) float64 {
	f, _ := strconv.ParseFloat(strconv.FormatFloat(v, 'f', 2, 64), 64)
	return f
}
