package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"gigachat/pkg/core"
)

type chatFlags struct {
	prompt      string
	system      string
	model       string
	temperature float64
	maxTokens   int
	stream      bool
}

func (a *App) newChatCommand() *cobra.Command {
	var f chatFlags
	cmd := &cobra.Command{
		Use:   "chat [prompt]",
		Short: "Send a chat completion request",
		Long: `Send a chat completion request.

Examples:
  gigachat chat "Hello"
  gigachat chat --system "Answer in one word" --prompt "Capital of France?"
  gigachat chat --stream "Tell me a story"`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if f.prompt == "" {
				f.prompt = strings.Join(args, " ")
			}
			if f.prompt == "" {
				return exitWithCode(ExitValidation, fmt.Errorf("prompt required: pass it as an argument or with --prompt"))
			}
			return a.runChat(cmd, f)
		},
	}

	cmd.Flags().StringVar(&f.prompt, "prompt", "", "user message")
	cmd.Flags().StringVar(&f.system, "system", "", "system message")
	cmd.Flags().StringVar(&f.model, "model", "", "model (default from config)")
	cmd.Flags().Float64Var(&f.temperature, "temperature", 0, "temperature (0 = service default)")
	cmd.Flags().IntVar(&f.maxTokens, "max-tokens", 0, "max tokens (0 = service default)")
	cmd.Flags().BoolVar(&f.stream, "stream", false, "print the answer as it is generated")
	return cmd
}

func (a *App) runChat(cmd *cobra.Command, f chatFlags) error {
	ctx := cmd.Context()
	client, err := a.client(ctx)
	if err != nil {
		return err
	}

	var messages []core.Message
	if f.system != "" {
		messages = append(messages, core.SystemMessage(f.system))
	}
	messages = append(messages, core.UserMessage(f.prompt))

	b := client.Generate().WithMessages(messages...)
	if f.model != "" {
		b.WithModel(core.ChatModel(f.model))
	}
	if f.temperature > 0 {
		b.WithTemperature(f.temperature)
	}
	if f.maxTokens > 0 {
		b.WithMaxTokens(f.maxTokens)
	}

	if !f.stream {
		resp, err := b.Execute(ctx)
		if err != nil {
			return classify(err)
		}
		if a.jsonOutput {
			return a.outputJSON(resp)
		}
		fmt.Fprintln(a.stdout, resp.Text())
		a.logger.Debug("chat usage",
			"prompt_tokens", resp.Usage.PromptTokens,
			"completion_tokens", resp.Usage.CompletionTokens,
			"total_tokens", resp.Usage.TotalTokens,
		)
		return nil
	}

	stream, err := b.ExecuteStream(ctx)
	if err != nil {
		return classify(err)
	}
	defer stream.Close()

	for chunk, err := range stream.All() {
		if err != nil {
			fmt.Fprintln(a.stdout)
			return classify(err)
		}
		if a.jsonOutput {
			if err := a.outputJSON(chunk); err != nil {
				return err
			}
			continue
		}
		fmt.Fprint(a.stdout, chunk.Text())
	}
	if !a.jsonOutput {
		fmt.Fprintln(a.stdout)
	}
	return nil
}
