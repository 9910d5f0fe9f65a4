package cli

import (
	"bufio"
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"gigachat/pkg/core"
	"gigachat/pkg/gigachat"
)

func (a *App) newBatchCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "batch",
		Short: "Submit and track asynchronous batch jobs",
	}
	cmd.AddCommand(a.newBatchSubmitCommand())
	cmd.AddCommand(a.newBatchStatusCommand())
	cmd.AddCommand(a.newBatchWaitCommand())
	return cmd
}

func (a *App) newBatchSubmitCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "submit requests.jsonl",
		Short: "Submit chat requests, one JSON object per line",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			reqs, err := readRequests(args[0])
			if err != nil {
				return exitWithCode(ExitValidation, err)
			}

			for i := range reqs {
				if reqs[i].Model == "" {
					reqs[i].Model = core.ChatModel(a.cfg.GigaChat.Model)
				}
			}

			client, err := a.client(cmd.Context())
			if err != nil {
				return err
			}
			h, err := client.Batch().WithRequests(reqs...).Execute(cmd.Context())
			if err != nil {
				return classify(err)
			}
			if a.jsonOutput {
				return a.outputJSON(h.Created())
			}
			fmt.Fprintln(a.stdout, h.ID())
			return nil
		},
	}
}

// readRequests parses a JSONL file of chat requests.
func readRequests(path string) ([]core.ChatRequest, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var reqs []core.ChatRequest
	scanner := bufio.NewScanner(bytes.NewReader(raw))
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	line := 0
	for scanner.Scan() {
		line++
		text := bytes.TrimSpace(scanner.Bytes())
		if len(text) == 0 {
			continue
		}
		var req core.ChatRequest
		if err := json.Unmarshal(text, &req); err != nil {
			return nil, fmt.Errorf("%s:%d: %w", path, line, err)
		}
		reqs = append(reqs, req)
	}
	return reqs, scanner.Err()
}

func (a *App) newBatchStatusCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "status batch-id",
		Short: "Show the progress of a batch, or its results when completed",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := a.client(cmd.Context())
			if err != nil {
				return err
			}
			result, err := client.BatchHandler(args[0]).Check(cmd.Context())
			if err != nil {
				return classify(err)
			}
			return a.printBatchResult(result)
		},
	}
}

func (a *App) newBatchWaitCommand() *cobra.Command {
	var interval time.Duration
	cmd := &cobra.Command{
		Use:   "wait batch-id",
		Short: "Poll a batch until it completes and print its results",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := a.client(cmd.Context())
			if err != nil {
				return err
			}
			done, err := gigachat.PollBatch(cmd.Context(), client.BatchHandler(args[0]), interval,
				func(r core.BatchCheckResult) {
					if p, ok := r.(*core.BatchInProgress); ok {
						a.logger.Info("batch in progress", "batch_id", args[0], "ready", p.Ready, "total", p.Total)
						return
					}
					a.logger.Info("batch pending", "batch_id", args[0])
				})
			if err != nil {
				return classify(err)
			}
			return a.printBatchResult(done)
		},
	}
	cmd.Flags().DurationVar(&interval, "interval", gigachat.DefaultPollInterval, "polling interval")
	return cmd
}

type batchItemOutput struct {
	Index int                  `json:"index"`
	Text  string               `json:"text,omitempty"`
	Error *core.BatchItemError `json:"error,omitempty"`
}

func (a *App) printBatchResult(result core.BatchCheckResult) error {
	switch r := result.(type) {
	case *core.BatchPending:
		if a.jsonOutput {
			return a.outputJSON(map[string]any{"status": core.BatchStatusCreated})
		}
		fmt.Fprintln(a.stdout, "pending")
	case *core.BatchInProgress:
		if a.jsonOutput {
			return a.outputJSON(map[string]any{"status": core.BatchStatusInProgress, "ready": r.Ready, "total": r.Total})
		}
		fmt.Fprintf(a.stdout, "in progress: %d/%d\n", r.Ready, r.Total)
	case *core.BatchSuccess:
		items := make([]batchItemOutput, len(r.Responses))
		for i, item := range r.Responses {
			items[i] = batchItemOutput{Index: i, Text: item.Response.Text(), Error: item.Err}
		}
		if a.jsonOutput {
			return a.outputJSON(map[string]any{"status": core.BatchStatusCompleted, "failed": r.Failed(), "results": items})
		}
		fmt.Fprintf(a.stdout, "completed: %d results, %d failed\n", len(items), r.Failed())
		for _, it := range items {
			if it.Error != nil {
				fmt.Fprintf(a.stdout, "[%d] error %d: %s\n", it.Index, it.Error.Status, it.Error.Message)
				continue
			}
			fmt.Fprintf(a.stdout, "[%d] %s\n", it.Index, it.Text)
		}
	}
	return nil
}
