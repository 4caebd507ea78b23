// Package cli is the local terminal transport: cobra commands for browsing
// and exporting estimates, and a chat loop that feeds the conversation engine.
package cli

import (
	"context"
	"fmt"
	"time"

	"github.com/alexanderramin/estibot/internal/conversation"
	"github.com/alexanderramin/estibot/internal/service"
	"github.com/spf13/cobra"
)

// App holds references to everything CLI commands need.
type App struct {
	Users     service.UserService
	Estimates service.EstimateService
	Templates service.TemplateService
	Engine    *conversation.Engine

	// LocalUser is the external id the terminal acts as.
	LocalUser string
	// AssistantEnabled tells the chat whether /generate and /analyze can
	// produce anything.
	AssistantEnabled bool

	IsInteractive func() bool
	Now           func() time.Time
}

func (a *App) interactive() bool {
	return a.IsInteractive != nil && a.IsInteractive()
}

func (a *App) now() time.Time {
	if a.Now != nil {
		return a.Now()
	}
	return time.Now()
}

// owner returns the internal id of the local user, registering it on first use.
func (a *App) owner(ctx context.Context) (string, error) {
	u, err := a.Users.EnsureUser(ctx, a.LocalUser, a.LocalUser)
	if err != nil {
		return "", fmt.Errorf("registering local user: %w", err)
	}
	return u.ID, nil
}

// NewRootCmd creates the top-level "estibot" command and registers all
// subcommands against the provided App. Running it bare starts the chat.
func NewRootCmd(app *App) *cobra.Command {
	root := &cobra.Command{
		Use:          "estibot",
		Short:        "Build project estimates from a conversation",
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runChat(cmd, app)
		},
	}

	root.AddCommand(
		newChatCmd(app),
		newEstimateCmd(app),
		newItemCmd(app),
		newTemplateCmd(app),
		newStatsCmd(app),
	)

	return root
}
