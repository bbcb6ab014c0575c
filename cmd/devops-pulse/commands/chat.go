package commands

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os/signal"
	"syscall"

	"devops-pulse/internal/chat"
	"devops-pulse/internal/insights"
	"devops-pulse/internal/intent"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

const systemPrompt = `You are an Azure DevOps Operations Agent with access to Azure DevOps MCP tools.
Your responsibility is to retrieve, manage, and create Azure DevOps resources using the available MCP tool actions only.
You must:
Use MCP tools for all Azure DevOps interactions
Never fabricate data
Always confirm required identifiers before performing write actions`

var chatMessages []string

var chatCmd = &cobra.Command{
	Use:   "chat",
	Short: "Run a one-shot insight or tool-calling conversation",
	Long: `Classifies the given messages against the supported insight categories and
runs the matching tool plan. When no category matches, the request falls back
to a full tool-calling conversation with the completion model.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if len(chatMessages) == 0 {
			return errors.New("at least one message is required (use -m)")
		}

		ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		reg, err := bootstrapRegistry(ctx)
		if err != nil {
			return err
		}
		defer reg.Close()

		svc := insights.New(reg, cfg.Project, cfg.Team)

		outcome, handled, err := svc.HandleInsight(ctx, chatMessages)
		var needsInput *intent.NeedsInputError
		if errors.As(err, &needsInput) {
			return fmt.Errorf("cannot answer without %s; include it in the message", needsInput.Field)
		}
		if err != nil {
			return err
		}

		if handled {
			out, _ := json.MarshalIndent(outcome, "", "  ")
			fmt.Println(string(out))
			return nil
		}

		// No insight category matched; hand the conversation to the model.
		completer, err := chat.NewAzureCompleter(cfg.Model)
		if err != nil {
			return err
		}

		history := []chat.Message{chat.SystemMessage(systemPrompt)}
		for _, m := range chatMessages {
			history = append(history, chat.UserMessage(m))
		}

		loop := chat.NewLoop(completer, reg, cfg.MaxRoundTrips)
		history, err = loop.Run(ctx, history)
		if err != nil {
			log.Error().Err(err).Msg("Conversation failed")
			return err
		}

		for i := len(history) - 1; i >= 0; i-- {
			if history[i].Role == "assistant" && history[i].Content != "" {
				fmt.Println(history[i].Content)
				break
			}
		}
		return nil
	},
}

func init() {
	chatCmd.Flags().StringArrayVarP(&chatMessages, "message", "m", nil, "user message to send (repeatable)")
	rootCmd.AddCommand(chatCmd)
}
