package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/chzyer/readline"
	"github.com/spf13/cobra"

	"github.com/leroylim/it-guru-assistant-chatbot/internal/export"
	"github.com/leroylim/it-guru-assistant-chatbot/internal/prompts"
	"github.com/leroylim/it-guru-assistant-chatbot/internal/session"
)

func newChatCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "chat",
		Short: "Interactive chat REPL",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.initialize(); err != nil {
				return err
			}
			return a.runChat()
		},
	}
}

const chatHelp = `Commands:
  /help                 show this help
  /model                pick another model
  /export [file.md]     export the transcript as markdown (or JSON with .json)
  /reformat <style>     re-render the last answer (definition, step_by_step,
                        troubleshoot, comparison)
  /sources              show the sources of the last answer
  /quit                 leave the chat`

// reformatStyles are the styles /reformat accepts; each has a dedicated
// rewrite instruction rather than the generic fallback.
var reformatStyles = []string{"definition", "step_by_step", "troubleshoot", "comparison"}

func (a *app) runChat() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	sess := session.New(a.cfg.DefaultModel)
	sess.AppendWelcome(prompts.WelcomeText)

	fmt.Println(renderBanner("IT Guru "+version, "model: "+a.cfg.DefaultModel))
	fmt.Println(renderTranscriptMarkdown(prompts.WelcomeText))
	fmt.Println(styleHint("Type /help for commands, /quit to exit."))

	homeDir, _ := os.UserHomeDir()
	historyFile := filepath.Join(homeDir, ".itguru-history")

	rl, err := readline.NewEx(&readline.Config{
		Prompt:            bold("you> "),
		HistoryFile:       historyFile,
		InterruptPrompt:   "^C",
		EOFPrompt:         "exit",
		HistorySearchFold: true,
		Stdin:             readline.NewCancelableStdin(os.Stdin),
		Stdout:            os.Stdout,
		Stderr:            os.Stderr,
	})
	if err != nil {
		return fmt.Errorf("failed to initialize readline: %w", err)
	}
	defer rl.Close()

	var lastAnswer string

	for {
		input, err := rl.Readline()
		if err == readline.ErrInterrupt {
			if len(input) == 0 {
				fmt.Println("\nGoodbye!")
				return nil
			}
			continue
		} else if err == io.EOF {
			fmt.Println("\nGoodbye!")
			return nil
		}

		input = strings.TrimSpace(input)
		if input == "" {
			continue
		}
		if input == "exit" || input == "quit" || input == "/quit" || input == "q" {
			fmt.Println("Goodbye!")
			return nil
		}

		if strings.HasPrefix(input, "/") {
			if err := a.handleChatCommand(ctx, sess, input, lastAnswer); err != nil {
				fmt.Println(styleError(err.Error()))
			}
			continue
		}

		answer, err := a.streamTurn(ctx, sess, input)
		if err != nil {
			fmt.Println(styleError(err.Error()))
			if ctx.Err() != nil {
				return nil
			}
			continue
		}
		lastAnswer = answer
	}
}

// streamTurn runs one chat exchange, printing fragments as they arrive.
func (a *app) streamTurn(ctx context.Context, sess *session.SessionContext, query string) (string, error) {
	sess.AppendMessage(session.RoleUser, query)

	fmt.Println()
	var answer strings.Builder
	for fragment := range a.orchestrator.StreamAnswer(ctx, sess, query) {
		if fragment.Err != nil {
			fmt.Println()
			return answer.String(), fragment.Err
		}
		if fragment.Content == "" {
			continue
		}
		answer.WriteString(fragment.Content)
		fmt.Print(fragment.Content)
	}
	fmt.Println()

	stored := answer.String()
	sourcesMD := sess.LastSourcesMarkdown()
	if sourcesMD != "" {
		stored += sourcesMD
		if !a.cfg.HideSources {
			fmt.Println(renderTranscriptMarkdown(sourcesMD))
		}
	}
	sess.AppendMessage(session.RoleAssistant, stored)

	if info := sess.LastIntent(); info != nil && !a.cfg.HideIntent {
		fmt.Println(styleHint(fmt.Sprintf("route: %s (%s, confidence %.2f)", info.Source, info.Method, info.Confidence)))
	}

	followups := a.orchestrator.GenerateFollowups(ctx, sess, query, answer.String(), followupContext(sess))
	for _, followup := range followups {
		fmt.Println(gray("  • " + followup))
	}
	fmt.Println()

	return answer.String(), nil
}

func (a *app) handleChatCommand(ctx context.Context, sess *session.SessionContext, input, lastAnswer string) error {
	fields := strings.Fields(input)
	switch fields[0] {
	case "/help":
		fmt.Println(chatHelp)
		return nil

	case "/model":
		model, err := a.pickModel(ctx)
		if err != nil {
			return err
		}
		sess.SelectModel(model)
		fmt.Println(styleSuccess("switched to " + model))
		return nil

	case "/export":
		path := fmt.Sprintf("itguru-transcript-%s.md", time.Now().Format("20060102-150405"))
		if len(fields) > 1 {
			path = fields[1]
		}
		transcript := export.FromSession(sess)
		var data []byte
		if strings.HasSuffix(path, ".json") {
			raw, err := transcript.JSON()
			if err != nil {
				return err
			}
			data = raw
		} else {
			data = []byte(transcript.Markdown())
		}
		if err := os.WriteFile(path, data, 0o644); err != nil {
			return fmt.Errorf("write transcript: %w", err)
		}
		fmt.Println(styleSuccess("exported to " + path))
		return nil

	case "/reformat":
		if len(fields) < 2 {
			return fmt.Errorf("usage: /reformat <%s>", strings.Join(reformatStyles, "|"))
		}
		if lastAnswer == "" {
			return fmt.Errorf("nothing to reformat yet")
		}
		reformatted, err := a.orchestrator.Reformat(ctx, sess, lastAnswer, fields[1], followupContext(sess))
		if err != nil {
			return err
		}
		fmt.Println(renderTranscriptMarkdown(reformatted))
		return nil

	case "/sources":
		sourcesMD := sess.LastSourcesMarkdown()
		if sourcesMD == "" {
			fmt.Println(styleHint("no sources for the last answer"))
			return nil
		}
		fmt.Println(renderTranscriptMarkdown(sourcesMD))
		return nil

	default:
		return fmt.Errorf("unknown command %s, try /help", fields[0])
	}
}
