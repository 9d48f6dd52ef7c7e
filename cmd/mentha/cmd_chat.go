package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/mentha-ai/mentha-cli/internal/chat"
	"github.com/mentha-ai/mentha-cli/internal/history"
	"github.com/mentha-ai/mentha-cli/internal/models"
	"github.com/mentha-ai/mentha-cli/internal/providers"
	"github.com/mentha-ai/mentha-cli/internal/render"
	"github.com/spf13/cobra"
)

const chatHelp = `  /providers [ids]   show or replace the provider selection
  /toggle <id>       add or remove one provider
  /collapse <id>     collapse or expand a card of the last answer
  /collapse-all      collapse or expand every card of the last answer
  /history           list stored sessions
  /resume <id>       reopen a stored session
  /new               start a new chat
  /quit              exit`

var chatCmd = &cobra.Command{
	Use:   "chat [prompt]",
	Short: "Ask every selected AI provider the same question",
	Long: `Start an interactive multi-provider chat for the brand. With a prompt
argument, runs a single turn and exits.

Commands inside the chat:
` + chatHelp,
	Args:    cobra.MaximumNArgs(1),
	PreRunE: requireBrand,
	RunE:    runChat,
}

func init() {
	chatCmd.Flags().StringSlice("providers", nil, "Providers to query (defaults to MENTHA_PROVIDERS)")
}

func runChat(cmd *cobra.Command, args []string) error {
	selection := cfg.Providers
	if names, _ := cmd.Flags().GetStringSlice("providers"); len(names) > 0 {
		ids, err := providers.ParseList(names)
		if err != nil {
			return err
		}
		selection = ids
	}

	session := chat.NewSession(client, cfg.BrandID)
	defer session.Close()
	if err := session.SetProviders(selection); err != nil {
		return err
	}

	panel := history.NewPanel(client, cfg.BrandID)
	defer panel.Close()
	panel.Attach(session)

	r := newREPL(session, panel, cmd.OutOrStdout())

	if len(args) == 1 {
		return r.ask(cmd.Context(), args[0])
	}

	if _, err := panel.Load(cmd.Context()); err != nil {
		fmt.Fprintln(cmd.ErrOrStderr(), "warning: chat history unavailable")
	}

	fmt.Fprintf(r.out, "Chatting as %s. Type /help for commands.\n", cfg.DisplayBrand())
	return r.run(cmd.Context(), cmd.InOrStdin())
}

type repl struct {
	session *chat.Session
	panel   *history.Panel
	views   *render.Views
	out     io.Writer
	now     func() time.Time
}

func newREPL(session *chat.Session, panel *history.Panel, out io.Writer) *repl {
	return &repl{
		session: session,
		panel:   panel,
		views:   render.NewViews(),
		out:     out,
		now:     time.Now,
	}
}

func (r *repl) run(ctx context.Context, in io.Reader) error {
	scanner := bufio.NewScanner(in)
	for {
		fmt.Fprint(r.out, "> ")
		if !scanner.Scan() {
			return scanner.Err()
		}

		quit, err := r.handle(ctx, scanner.Text())
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			fmt.Fprintf(r.out, "error: %v\n", err)
		}
		if quit {
			return nil
		}
	}
}

func (r *repl) handle(ctx context.Context, line string) (bool, error) {
	line = strings.TrimSpace(line)
	if line == "" {
		return false, nil
	}
	if !strings.HasPrefix(line, "/") {
		return false, r.ask(ctx, line)
	}

	fields := strings.Fields(line)
	command, rest := fields[0], fields[1:]

	switch command {
	case "/quit", "/exit":
		return true, nil
	case "/help":
		fmt.Fprintln(r.out, chatHelp)
	case "/providers":
		if len(rest) > 0 {
			ids, err := providers.ParseList(strings.Split(strings.Join(rest, ","), ","))
			if err != nil {
				return false, err
			}
			if err := r.session.SetProviders(ids); err != nil {
				return false, err
			}
		}
		render.ProviderList(r.out, r.session.Providers())
	case "/toggle":
		if len(rest) != 1 {
			return false, errors.New("usage: /toggle <provider>")
		}
		id, err := providers.Parse(rest[0])
		if err != nil {
			return false, err
		}
		if err := r.session.ToggleProvider(id); err != nil {
			return false, err
		}
		render.ProviderList(r.out, r.session.Providers())
	case "/collapse":
		if len(rest) != 1 {
			return false, errors.New("usage: /collapse <provider>")
		}
		id, err := providers.Parse(rest[0])
		if err != nil {
			return false, err
		}
		msg, ok := r.lastAnswer()
		if !ok {
			return false, errors.New("nothing to collapse yet")
		}
		r.views.For(msg.ID).Toggle(id)
		render.Message(r.out, msg, r.views.For(msg.ID))
	case "/collapse-all":
		msg, ok := r.lastAnswer()
		if !ok {
			return false, errors.New("nothing to collapse yet")
		}
		ids := make([]providers.ID, 0, len(msg.Responses))
		for _, resp := range msg.Responses {
			ids = append(ids, resp.Provider)
		}
		r.views.For(msg.ID).ToggleAll(ids)
		render.Message(r.out, msg, r.views.For(msg.ID))
	case "/history":
		sessions, err := r.panel.Load(ctx)
		if err != nil {
			return false, fmt.Errorf("failed to load history: %w", err)
		}
		render.SessionList(r.out, sessions, r.panel.Selected(), r.now())
	case "/resume":
		if len(rest) != 1 {
			return false, errors.New("usage: /resume <session-id>")
		}
		if err := r.panel.Select(r.session, rest[0]); err != nil {
			return false, err
		}
		r.views.Reset()
		render.Transcript(r.out, r.session.Messages(), r.views)
	case "/new":
		r.session.NewChat()
		r.panel.Clear()
		r.views.Reset()
		fmt.Fprintln(r.out, "Started a new chat.")
	default:
		return false, fmt.Errorf("unknown command %s", command)
	}

	return false, nil
}

func (r *repl) ask(ctx context.Context, prompt string) error {
	turn, err := r.session.Submit(ctx, prompt)
	if err != nil {
		return err
	}

	if user, ok := r.session.Message(turn.UserMessageID); ok {
		render.Message(r.out, user, r.views.For(user.ID))
	}
	if pending, ok := r.session.Message(turn.AssistantMessageID); ok {
		render.Message(r.out, pending, r.views.For(pending.ID))
	}

	if err := turn.Wait(ctx); err != nil {
		return err
	}

	answer, ok := r.session.Message(turn.AssistantMessageID)
	if !ok {
		return nil
	}
	fmt.Fprintln(r.out)
	render.Message(r.out, answer, r.views.For(answer.ID))
	return nil
}

func (r *repl) lastAnswer() (models.ChatMessage, bool) {
	messages := r.session.Messages()
	for i := len(messages) - 1; i >= 0; i-- {
		if messages[i].Role == models.RoleAssistant {
			return messages[i], true
		}
	}
	return models.ChatMessage{}, false
}
