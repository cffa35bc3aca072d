package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/leroylim/it-guru-assistant-chatbot/internal/session"
)

func newAskCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "ask <question>",
		Short: "Ask a single question and print the answer",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.initialize(); err != nil {
				return err
			}
			return a.runAsk(strings.Join(args, " "))
		},
	}
}

func (a *app) runAsk(query string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	sess := session.New(a.cfg.DefaultModel)
	sess.AppendMessage(session.RoleUser, query)

	fmt.Println(styleStatus("Thinking..."))

	answer, sourcesMD, err := a.orchestrator.AnswerQuery(ctx, sess, query)
	if err != nil {
		if answer != "" {
			// Print what arrived before the failure.
			fmt.Println(answer)
		}
		return fmt.Errorf("answer failed: %w", err)
	}

	renderer, rendererErr := NewMarkdownRenderer(!isTTY())
	if rendererErr != nil {
		fmt.Println(answer)
	} else {
		fmt.Print(renderer.Render(answer))
	}

	if sourcesMD != "" && !a.cfg.HideSources {
		if rendererErr != nil {
			fmt.Println(sourcesMD)
		} else {
			fmt.Print(renderer.Render(sourcesMD))
		}
	}

	if info := sess.LastIntent(); info != nil && !a.cfg.HideIntent {
		fmt.Println(styleHint(fmt.Sprintf("route: %s (%s, confidence %.2f)", info.Source, info.Method, info.Confidence)))
	}

	followups := a.orchestrator.GenerateFollowups(ctx, sess, query, answer, followupContext(sess))
	if len(followups) > 0 {
		fmt.Println()
		fmt.Println(bold("You could also ask:"))
		for _, followup := range followups {
			fmt.Println(gray("  • " + followup))
		}
	}
	return nil
}

// followupContext renders the last results as compact "title: url" lines.
func followupContext(sess *session.SessionContext) string {
	results := sess.LastResults()
	lines := make([]string, 0, len(results))
	for _, r := range results {
		lines = append(lines, r.Title+": "+r.URL)
	}
	return strings.Join(lines, "\n")
}
