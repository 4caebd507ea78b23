package cli

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/alexanderramin/estibot/internal/conversation"
	"github.com/alexanderramin/estibot/internal/domain"
	"github.com/charmbracelet/huh"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubGenerator struct {
	items []domain.NewItem
}

func (g stubGenerator) GenerateItems(context.Context, string, domain.ProjectKind) ([]domain.NewItem, error) {
	return g.items, nil
}

// runScript drives a chat session with canned input and an optional
// chooser standing in for the select widget.
func runScript(t *testing.T, app *App, script string, choose func(string, []string) (string, error)) string {
	t.Helper()
	out := new(bytes.Buffer)
	s := &chatSession{
		app:    app,
		owner:  ownerID(t, app),
		in:     strings.NewReader(script),
		out:    out,
		choose: choose,
	}
	require.NoError(t, s.run(context.Background()))
	return out.String()
}

func TestChat_CreateEstimate(t *testing.T) {
	app := testApp(t)

	out, err := executeCmd(t, app, "/new\nWebsite redesign\nskip\n/list\n/quit\n", "chat")
	require.NoError(t, err)
	assert.Contains(t, out, "New estimate")
	assert.Contains(t, out, `Estimate "Website redesign" created.`)

	list, err := app.Estimates.List(context.Background(), ownerID(t, app))
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "Website redesign", list[0].Title)
	assert.Empty(t, list[0].Description)
}

func TestChat_BareRootRunsChat(t *testing.T) {
	app := testApp(t)

	out, err := executeCmd(t, app, "/help\n")
	require.NoError(t, err)
	assert.Contains(t, out, "/generate [ESTIMATE]")
}

func TestChat_RejectedInputRepromptsSameField(t *testing.T) {
	app := testApp(t)

	out := runScript(t, app, "/new\nab\nLong enough\nskip\n", nil)
	assert.Equal(t, 2, strings.Count(out, "Enter the estimate title"))
	assert.Contains(t, out, `Estimate "Long enough" created.`)
}

func TestChat_AddItemUpdatesTotals(t *testing.T) {
	app := testApp(t)
	est := seedEstimate(t, app, "Website")

	out := runScript(t, app, "/add 1\nQA pass\n8\n12000\n", nil)
	assert.Contains(t, out, `Item "QA pass" added`)
	assert.Contains(t, out, "Estimate total: 56 h, cost 152000.")

	fetched, err := app.Estimates.Get(context.Background(), est.ID, ownerID(t, app))
	require.NoError(t, err)
	assert.Equal(t, 3, fetched.ItemCount)
}

func TestChat_CancelDiscardsDraft(t *testing.T) {
	app := testApp(t)

	out := runScript(t, app, "/new\nDraft title\n/cancel\n/cancel\n", nil)
	assert.Contains(t, out, "Cancelled. Nothing was saved.")
	assert.Contains(t, out, "Nothing in progress")

	list, err := app.Estimates.List(context.Background(), ownerID(t, app))
	require.NoError(t, err)
	assert.Empty(t, list)
}

func TestChat_TextWithoutFlow(t *testing.T) {
	app := testApp(t)

	out := runScript(t, app, "hello\n/bogus\n", nil)
	assert.Contains(t, out, "Nothing in progress")
	assert.Contains(t, out, "Unknown command /bogus")
}

func TestChat_UsageAndResolveErrors(t *testing.T) {
	app := testApp(t)

	out := runScript(t, app, "/add\n/show 4\n", nil)
	assert.Contains(t, out, "Usage: /add ESTIMATE")
	assert.Contains(t, out, "no estimate #4")
}

func TestChat_TemplateWithChooser(t *testing.T) {
	app := testApp(t)

	var offered []string
	choose := func(title string, options []string) (string, error) {
		offered = options
		return "Backend", nil
	}
	out := runScript(t, app, "/template\nAPI endpoint\nskip\n4\n8000\n", choose)
	assert.Contains(t, out, `Template "API endpoint" saved (Backend).`)
	assert.Contains(t, offered, "skip")

	templates, err := app.Templates.List(context.Background(), ownerID(t, app))
	require.NoError(t, err)
	require.Len(t, templates, 1)
	assert.Equal(t, domain.CategoryBackend, templates[0].Category)
}

func TestChat_ChooserAbortCancels(t *testing.T) {
	app := testApp(t)

	choose := func(string, []string) (string, error) {
		return "", huh.ErrUserAborted
	}
	out := runScript(t, app, "/template\nAPI endpoint\nskip\n4\n8000\n", choose)
	assert.Contains(t, out, "Cancelled.")

	templates, err := app.Templates.List(context.Background(), ownerID(t, app))
	require.NoError(t, err)
	assert.Empty(t, templates)
}

func TestChat_UseTemplate(t *testing.T) {
	app := testApp(t)
	est := seedEstimate(t, app, "Website")
	tpl := seedTemplate(t, app, "Regression pass")

	out := runScript(t, app, "/use regression-pass 1\n/use "+tpl.ID[:8]+" 1\n/show 1\n", nil)
	assert.Contains(t, out, "template not found")
	assert.Contains(t, out, `Added "Regression pass" to "Website"`)

	items, err := app.Estimates.ListItems(context.Background(), est.ID)
	require.NoError(t, err)
	assert.Len(t, items, 3)
}

func TestChat_GenerateDisabled(t *testing.T) {
	app := testApp(t)

	out := runScript(t, app, "/generate\n", nil)
	assert.Contains(t, out, "assistant is disabled")
}

func TestChat_GenerateCreatesEstimate(t *testing.T) {
	app := testApp(t, conversation.WithGenerator(stubGenerator{items: []domain.NewItem{
		{Name: "Catalog", Duration: 24, Cost: 60000},
		{Name: "Checkout", Duration: 16, Cost: 45000},
		{Name: "x", Duration: 1, Cost: 1},
	}}))
	app.AssistantEnabled = true

	out := runScript(t, app, "/generate\nA shop selling handmade mugs\necommerce\n", nil)
	assert.Contains(t, out, `Added 2 item(s) to "AI estimate: Online store"`)
	assert.Contains(t, out, "1 item(s) could not be added.")

	list, err := app.Estimates.List(context.Background(), ownerID(t, app))
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, 105000.0, list[0].TotalCost)
}

func TestChat_InputErrorIsReturned(t *testing.T) {
	app := testApp(t)
	s := &chatSession{app: app, owner: ownerID(t, app), in: failingReader{}, out: new(bytes.Buffer)}

	err := s.run(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "read failed")
}

type failingReader struct{}

func (failingReader) Read([]byte) (int, error) { return 0, errors.New("read failed") }

func TestChat_Stats(t *testing.T) {
	app := testApp(t)
	seedEstimate(t, app, "Website")

	out := runScript(t, app, "/stats\n", nil)
	assert.Contains(t, out, "STATISTICS")
	assert.Contains(t, out, "140 000")
	assert.Contains(t, out, "48h")
}
