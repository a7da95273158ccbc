package cmd

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/abhisek/prepquiz/internal/llm"
	"github.com/spf13/cobra"
)

var llmCmd = &cobra.Command{
	Use:   "llm",
	Short: "Work with the LLM question source",
}

var healthSchema = &llm.Schema{
	Name:        "health-check",
	Description: "A one-word health check reply.",
	Definition: map[string]any{
		"type": "object",
		"properties": map[string]any{
			"status": map[string]any{"type": "string"},
		},
		"required":             []any{"status"},
		"additionalProperties": false,
	},
}

var llmTestCmd = &cobra.Command{
	Use:   "test",
	Short: "Send a small request to the configured LLM provider",
	Long: "Send a small structured request to the configured provider and report " +
		"the model, latency, and token usage. Providers: " + strings.Join(llm.Providers, ", ") + ".",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		logger := cfg.Log.NewLogger(os.Stderr)

		ctx := cmd.Context()
		name := cfg.LLM.Provider
		var provider llm.Provider
		if cfg.LLM.Validate() == nil {
			provider, err = llm.NewProvider(ctx, cfg.LLM, nil, logger)
		} else {
			// Nothing configured for prepquiz; try the vendor key variables.
			if discovered, ok := llm.DiscoverConfig(); ok {
				name = discovered.Provider
			}
			provider, err = llm.NewProviderFromEnv(ctx, nil, logger)
		}
		if err != nil {
			return err
		}

		fmt.Printf("Provider:  %s\n", name)
		fmt.Printf("Model:     %s\n", provider.ModelID())

		start := time.Now()
		resp, err := provider.Generate(llm.WithPurpose(ctx, llm.PurposeHealthCheck), llm.Request{
			System: "You are a health check. Reply with status \"ok\".",
			Messages: []llm.Message{
				{Role: llm.RoleUser, Content: "Reply with status ok."},
			},
			Schema:    healthSchema,
			MaxTokens: 64,
		})
		if err != nil {
			return fmt.Errorf("health check failed: %w", err)
		}

		var out struct {
			Status string `json:"status"`
		}
		if err := json.Unmarshal(resp.Content, &out); err != nil {
			return fmt.Errorf("health check returned malformed JSON: %w", err)
		}

		fmt.Printf("Served by: %s\n", resp.Model)
		fmt.Printf("Reply:     %s\n", out.Status)
		fmt.Printf("Latency:   %dms\n", time.Since(start).Milliseconds())
		fmt.Printf("Tokens:    %d in / %d out\n", resp.Usage.InputTokens, resp.Usage.OutputTokens)
		if cost := llm.LookupCost(resp.Model); cost != nil {
			fmt.Printf("Cost:      %s\n", formatCost(cost.Cost(resp.Usage.InputTokens, resp.Usage.OutputTokens)))
		}
		return nil
	},
}

func init() {
	llmCmd.AddCommand(llmTestCmd)
}
