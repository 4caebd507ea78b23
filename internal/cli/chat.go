package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/alexanderramin/estibot/internal/cli/formatter"
	"github.com/alexanderramin/estibot/internal/conversation"
	"github.com/alexanderramin/estibot/internal/flow"
	"github.com/google/uuid"
	"github.com/spf13/cobra"
)

const chatHelp = `Commands:
  /new                   start a new estimate
  /add ESTIMATE          add an item to an estimate
  /template              save a reusable work template
  /generate [ESTIMATE]   let the assistant propose items
  /use TEMPLATE ESTIMATE add an item from a template
  /list                  list your estimates
  /show ESTIMATE         show an estimate
  /templates             list your templates
  /analyze ESTIMATE      ask the assistant to review an estimate
  /stats                 show totals across everything you own
  /cancel                abandon the current step
  /quit                  leave
ESTIMATE is a number from /list or an ID prefix.`

func newChatCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "chat",
		Short: "Start the conversational estimate builder",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runChat(cmd, app)
		},
	}
}

type chatSession struct {
	app    *App
	owner  string
	in     io.Reader
	out    io.Writer
	choose func(title string, options []string) (string, error)
}

func runChat(cmd *cobra.Command, app *App) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	owner, err := app.owner(ctx)
	if err != nil {
		return err
	}
	s := &chatSession{app: app, owner: owner, in: cmd.InOrStdin(), out: cmd.OutOrStdout()}
	if app.interactive() {
		s.choose = selectOption
	}
	return s.run(ctx)
}

func (s *chatSession) run(ctx context.Context) error {
	fmt.Fprintln(s.out, formatter.Header("estibot"))
	fmt.Fprintln(s.out, formatter.Dim("Type /help for commands."))

	lines := newLineReader(s.in)
	for {
		fmt.Fprint(s.out, formatter.StyleHeader.Render("> "))
		line, err := lines.ReadLine()
		if err != nil && line == "" {
			if errors.Is(err, io.EOF) {
				fmt.Fprintln(s.out)
				return nil
			}
			return err
		}
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		if quit := s.handleLine(ctx, line); quit {
			return nil
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
	}
}

// handleLine dispatches one line of input and reports whether to quit.
func (s *chatSession) handleLine(ctx context.Context, line string) bool {
	if !strings.HasPrefix(line, "/") || conversation.IsCancel(line) {
		s.send(ctx, conversation.Event{Text: line})
		return false
	}

	fields := strings.Fields(line)
	name, args := strings.ToLower(fields[0]), fields[1:]
	switch name {
	case "/quit", "/exit":
		return true
	case "/help":
		fmt.Fprintln(s.out, chatHelp)
	case "/new":
		s.start(ctx, flow.CreateEstimate, "")
	case "/template":
		s.start(ctx, flow.CreateTemplate, "")
	case "/add":
		if len(args) != 1 {
			s.usage("/add ESTIMATE")
			return false
		}
		if id, ok := s.estimateID(ctx, args[0]); ok {
			s.start(ctx, flow.AddItemManual, id)
		}
	case "/generate":
		if !s.app.AssistantEnabled {
			fmt.Fprintln(s.out, formatter.Dim("The assistant is disabled. Set ESTIBOT_LLM_ENABLED=true to use it."))
			return false
		}
		target := ""
		if len(args) == 1 {
			id, ok := s.estimateID(ctx, args[0])
			if !ok {
				return false
			}
			target = id
		}
		s.start(ctx, flow.AssistantGenerate, target)
	case "/use":
		if len(args) != 2 {
			s.usage("/use TEMPLATE ESTIMATE")
			return false
		}
		s.useTemplate(ctx, args[0], args[1])
	case "/list":
		estimates, err := s.app.Estimates.List(ctx, s.owner)
		if err != nil {
			s.fail(err)
			return false
		}
		fmt.Fprintln(s.out, formatter.FormatEstimateList(estimates, s.app.now()))
	case "/show":
		if len(args) != 1 {
			s.usage("/show ESTIMATE")
			return false
		}
		s.show(ctx, args[0])
	case "/templates":
		templates, err := s.app.Templates.List(ctx, s.owner)
		if err != nil {
			s.fail(err)
			return false
		}
		fmt.Fprintln(s.out, formatter.FormatTemplateList(templates))
	case "/stats":
		st, err := userStats(ctx, s.app, s.owner)
		if err != nil {
			s.fail(err)
			return false
		}
		fmt.Fprintln(s.out, formatter.FormatStats(st))
	case "/analyze":
		if len(args) != 1 {
			s.usage("/analyze ESTIMATE")
			return false
		}
		s.analyze(ctx, args[0])
	default:
		fmt.Fprintf(s.out, "Unknown command %s. Type /help for commands.\n", fields[0])
	}
	return false
}

func (s *chatSession) start(ctx context.Context, kind flow.Kind, target string) {
	s.deliver(ctx, s.app.Engine.StartFlow(ctx, s.owner, kind, conversation.Seed{TargetEstimateID: target}))
}

func (s *chatSession) send(ctx context.Context, ev conversation.Event) {
	ev.UserID = s.owner
	ev.EventID = uuid.NewString()
	msg := s.app.Engine.HandleEvent(ctx, ev)
	if msg.Kind == conversation.KindNoFlow {
		fmt.Fprintln(s.out, formatter.Dim("Nothing in progress. Type /help for commands."))
		return
	}
	s.deliver(ctx, msg)
}

// deliver prints msg and, in an interactive terminal, collects option picks
// with a select widget until the engine stops asking for one.
func (s *chatSession) deliver(ctx context.Context, msg conversation.OutboundMessage) {
	for {
		if out := formatter.FormatMessage(msg); out != "" {
			fmt.Fprintln(s.out, out)
		}
		if s.choose == nil || len(msg.Options) == 0 {
			return
		}

		title, _, _ := strings.Cut(msg.Text, "\n")
		if msg.Kind == conversation.KindRejected {
			_, title, _ = strings.Cut(msg.Text, "\n")
		}
		picked, err := s.choose(title, msg.Options)
		ev := conversation.Event{UserID: s.owner, EventID: uuid.NewString(), Choice: picked}
		if err != nil {
			ev.Choice, ev.Text = "", conversation.CancelTokens[0]
		}
		msg = s.app.Engine.HandleEvent(ctx, ev)
		if msg.Kind == conversation.KindNoFlow {
			return
		}
	}
}

func (s *chatSession) estimateID(ctx context.Context, ref string) (string, bool) {
	est, err := resolveEstimate(ctx, s.app, s.owner, ref)
	if err != nil {
		s.fail(err)
		return "", false
	}
	return est.ID, true
}

func (s *chatSession) useTemplate(ctx context.Context, templateRef, estimateRef string) {
	t, err := resolveTemplate(ctx, s.app, s.owner, templateRef)
	if err != nil {
		s.fail(err)
		return
	}
	est, err := resolveEstimate(ctx, s.app, s.owner, estimateRef)
	if err != nil {
		s.fail(err)
		return
	}
	item, err := s.app.Engine.InstantiateFromTemplate(ctx, s.owner, est.ID, t.ID)
	if err != nil {
		s.fail(err)
		return
	}
	fmt.Fprintf(s.out, "%s Added %q to %q (%s, %s).\n", formatter.StyleGreen.Render("✔"),
		item.Name, est.Title, formatter.Hours(item.Duration), formatter.Money(item.Cost))
}

func (s *chatSession) show(ctx context.Context, ref string) {
	est, err := resolveEstimate(ctx, s.app, s.owner, ref)
	if err != nil {
		s.fail(err)
		return
	}
	items, err := s.app.Estimates.ListItems(ctx, est.ID)
	if err != nil {
		s.fail(err)
		return
	}
	fmt.Fprintln(s.out, formatter.FormatEstimate(est, items))
}

func (s *chatSession) analyze(ctx context.Context, ref string) {
	est, err := resolveEstimate(ctx, s.app, s.owner, ref)
	if err != nil {
		s.fail(err)
		return
	}
	fmt.Fprintln(s.out, formatter.Dim("Asking the assistant..."))
	analysis, err := s.app.Engine.Analyze(ctx, s.owner, est.ID)
	if err != nil {
		s.fail(err)
		return
	}
	fmt.Fprintln(s.out, formatter.FormatAnalysis(analysis))
}

func (s *chatSession) usage(u string) {
	fmt.Fprintf(s.out, "Usage: %s\n", u)
}

func (s *chatSession) fail(err error) {
	fmt.Fprintln(s.out, formatter.StyleRed.Render("Error: "+err.Error()))
}
