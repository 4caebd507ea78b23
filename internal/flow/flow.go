// Package flow declares the multi-step conversations as ordered field lists.
// The conversation engine walks a Definition one Field at a time.
package flow

import (
	"strconv"
	"strings"

	"github.com/alexanderramin/estibot/internal/domain"
	"github.com/alexanderramin/estibot/internal/validate"
)

type Kind string

const (
	CreateEstimate    Kind = "create_estimate"
	AddItemManual     Kind = "add_item_manual"
	CreateTemplate    Kind = "create_template"
	AssistantGenerate Kind = "assistant_generate"
)

// FieldType selects the validator applied to a field's input.
type FieldType int

const (
	Text FieldType = iota
	Duration
	Cost
	Choice
)

func (t FieldType) String() string {
	switch t {
	case Duration:
		return "duration"
	case Cost:
		return "cost"
	case Choice:
		return "choice"
	default:
		return "text"
	}
}

// Field names shared by the flows and their completion handlers.
const (
	FieldTitle       = "title"
	FieldDescription = "description"
	FieldName        = "name"
	FieldDuration    = "duration"
	FieldCost        = "cost"
	FieldCategory    = "category"
	FieldProjectKind = "project_kind"
)

// SkipTokens are accepted in place of a value for optional fields.
var SkipTokens = []string{"skip", "-"}

// IsSkip reports whether input is a skip token.
func IsSkip(input string) bool {
	in := strings.TrimSpace(input)
	for _, tok := range SkipTokens {
		if strings.EqualFold(in, tok) {
			return true
		}
	}
	return false
}

type Field struct {
	Name     string
	Type     FieldType
	Required bool
	// MinLen and MaxLen bound Text fields, in characters.
	MinLen  int
	MaxLen  int
	Options []string
	Prompt  string
}

// Accept validates raw input for the field and returns the value to store.
// Optional fields take a skip token as the empty value.
func (f Field) Accept(raw string) (string, *validate.Rejection) {
	if !f.Required && IsSkip(raw) {
		return "", nil
	}
	switch f.Type {
	case Duration:
		v, rej := validate.Duration(raw)
		if rej != nil {
			return "", rej
		}
		return formatNumber(v), nil
	case Cost:
		v, rej := validate.Cost(raw)
		if rej != nil {
			return "", rej
		}
		return formatNumber(v), nil
	case Choice:
		return validate.Choice(raw, f.Options)
	default:
		clean := validate.SanitizeText(raw)
		if rej := validate.TextLength(clean, f.MinLen, f.MaxLen); rej != nil {
			return "", rej
		}
		return clean, nil
	}
}

// PromptOptions returns the selectable answers shown with the prompt.
func (f Field) PromptOptions() []string {
	if f.Type != Choice {
		return nil
	}
	out := append([]string(nil), f.Options...)
	if !f.Required {
		out = append(out, SkipTokens[0])
	}
	return out
}

func formatNumber(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// ParseNumber reads back a value stored by Accept for a numeric field.
func ParseNumber(s string) (float64, error) {
	return strconv.ParseFloat(s, 64)
}

type Definition struct {
	Kind  Kind
	Title string
	// RequiresEstimate means the flow can only start with a bound target.
	RequiresEstimate bool
	Fields           []Field
}

// Field returns the field at index i, or false past the end.
func (d *Definition) Field(i int) (Field, bool) {
	if i < 0 || i >= len(d.Fields) {
		return Field{}, false
	}
	return d.Fields[i], true
}

// Complete reports whether index is past the last field.
func (d *Definition) Complete(index int) bool {
	return index >= len(d.Fields)
}

var definitions = map[Kind]*Definition{
	CreateEstimate: {
		Kind:  CreateEstimate,
		Title: "New estimate",
		Fields: []Field{
			{Name: FieldTitle, Type: Text, Required: true, MinLen: 3, MaxLen: 200,
				Prompt: "Enter the estimate title (3-200 characters):"},
			{Name: FieldDescription, Type: Text, MinLen: 0, MaxLen: 1000,
				Prompt: "Enter a description (up to 1000 characters), or \"skip\":"},
		},
	},
	AddItemManual: {
		Kind:             AddItemManual,
		Title:            "Add item",
		RequiresEstimate: true,
		Fields: []Field{
			{Name: FieldName, Type: Text, Required: true, MinLen: 3, MaxLen: 200,
				Prompt: "Enter the item name (3-200 characters):"},
			{Name: FieldDuration, Type: Duration, Required: true,
				Prompt: "Enter the duration in hours (e.g. 8 or 2.5):"},
			{Name: FieldCost, Type: Cost, Required: true,
				Prompt: "Enter the cost:"},
		},
	},
	CreateTemplate: {
		Kind:  CreateTemplate,
		Title: "New template",
		Fields: []Field{
			{Name: FieldName, Type: Text, Required: true, MinLen: 3, MaxLen: 100,
				Prompt: "Enter the template name (3-100 characters):"},
			{Name: FieldDescription, Type: Text, MinLen: 0, MaxLen: 500,
				Prompt: "Enter a description (up to 500 characters), or \"skip\":"},
			{Name: FieldDuration, Type: Duration, Required: true,
				Prompt: "Enter the default duration in hours:"},
			{Name: FieldCost, Type: Cost, Required: true,
				Prompt: "Enter the default cost:"},
			{Name: FieldCategory, Type: Choice, Options: domain.CategoryNames(),
				Prompt: "Pick a category, or \"skip\":"},
		},
	},
	AssistantGenerate: {
		Kind:  AssistantGenerate,
		Title: "Generate with assistant",
		Fields: []Field{
			{Name: FieldDescription, Type: Text, Required: true, MinLen: 10, MaxLen: 1000,
				Prompt: "Describe the project (at least 10 characters):"},
			{Name: FieldProjectKind, Type: Choice, Required: true, Options: domain.ProjectKindNames(),
				Prompt: "Pick the project type:"},
		},
	},
}

// Lookup returns the definition for kind.
func Lookup(kind Kind) (*Definition, bool) {
	d, ok := definitions[kind]
	return d, ok
}

// Kinds lists every flow in menu order.
func Kinds() []Kind {
	return []Kind{CreateEstimate, AddItemManual, CreateTemplate, AssistantGenerate}
}
