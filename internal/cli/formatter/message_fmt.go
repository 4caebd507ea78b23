package formatter

import (
	"fmt"
	"strings"

	"github.com/alexanderramin/estibot/internal/conversation"
)

// FormatMessage renders an engine reply for the terminal. Options are listed
// numbered so a non-interactive user can answer with the option text.
func FormatMessage(msg conversation.OutboundMessage) string {
	var b strings.Builder

	switch msg.Kind {
	case conversation.KindDuplicate:
		return ""
	case conversation.KindPrompt:
		b.WriteString(StyleFg.Render(msg.Text))
	case conversation.KindRejected:
		msgLine, promptLine, _ := strings.Cut(msg.Text, "\n")
		b.WriteString(StyleYellow.Render(msgLine))
		if promptLine != "" {
			b.WriteString("\n" + StyleFg.Render(promptLine))
		}
	case conversation.KindCompleted:
		b.WriteString(StyleGreen.Render("✔ ") + msg.Text)
	case conversation.KindCancelled:
		b.WriteString(Dim(msg.Text))
	case conversation.KindNotFound, conversation.KindStorageError:
		b.WriteString(StyleRed.Render(msg.Text))
	case conversation.KindThrottled:
		b.WriteString(StyleYellow.Render(msg.Text))
	default:
		if msg.Text != "" {
			b.WriteString(msg.Text)
		}
	}

	for i, opt := range msg.Options {
		fmt.Fprintf(&b, "\n  %s %s", Dim(fmt.Sprintf("%d.", i+1)), opt)
	}
	for _, f := range msg.Failures {
		fmt.Fprintf(&b, "\n  %s %s: %v", StyleRed.Render("✖"), f.Name, f.Err)
	}
	return b.String()
}
