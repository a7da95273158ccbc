package cmd

import (
	"fmt"
	"strings"

	"github.com/abhisek/prepquiz/internal/llm"
	"github.com/abhisek/prepquiz/internal/quiz"
	"github.com/abhisek/prepquiz/internal/screens/dashboard"
	"github.com/abhisek/prepquiz/internal/stats"
	"github.com/abhisek/prepquiz/internal/store"
	"github.com/spf13/cobra"
)

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show score statistics and LLM usage",
	RunE: func(cmd *cobra.Command, args []string) error {
		topicVal, _ := cmd.Flags().GetString("topic")
		var topic string
		if topicVal != "" {
			t, err := quiz.LookupTopic(topicVal)
			if err != nil {
				return err
			}
			topic = t.Name
		}

		e, err := openEnv(cmd, false)
		if err != nil {
			return err
		}
		defer e.Close()

		ctx := cmd.Context()
		user := configuredUser(e.cfg)

		records, err := e.store.AttemptRepo().QueryAttempts(ctx,
			store.AttemptFilter{UserID: user.ID, Topic: topic}, store.QueryOpts{})
		if err != nil {
			return fmt.Errorf("query attempts: %w", err)
		}

		d := stats.Aggregate(records, stats.DefaultTrendLen)
		if d.Attempts == 0 {
			fmt.Println("No tests taken yet.")
		} else {
			printDashboard(d)
		}

		usage, err := e.store.EventRepo().LLMUsage(ctx)
		if err != nil {
			return fmt.Errorf("query LLM usage: %w", err)
		}
		if len(usage) > 0 {
			fmt.Println()
			printLLMUsage(usage)
		}
		return nil
	},
}

func init() {
	statsCmd.Flags().String("topic", "", "Only include one topic")
}

func printDashboard(d stats.Dashboard) {
	fmt.Printf("%d tests · %d topics · %.0f%% average\n", d.Attempts, d.Topics, d.AveragePct*100)
	if d.Undelivered > 0 {
		fmt.Printf("%d results not delivered; run `prepquiz history --resend`.\n", d.Undelivered)
	}
	fmt.Println()

	fmt.Printf("%-28s  %-10s  %5s  %7s  %7s  %7s  %4s\n",
		"Topic", "Mode", "Tests", "Best", "Average", "Last", "Auto")
	fmt.Println(strings.Repeat("─", 80))
	for _, r := range d.Rows {
		fmt.Printf("%-28s  %-10s  %5d  %7s  %6.0f%%  %7d  %4d\n",
			truncate(r.Topic, 28),
			r.Mode.DisplayName(),
			r.Attempts,
			fmt.Sprintf("%d/%d", r.Best, r.Total),
			r.AveragePct*100,
			r.Last,
			r.AutoCount,
		)
	}

	if len(d.Trends) > 0 {
		fmt.Println()
		fmt.Println("Recent results")
		fmt.Println(strings.Repeat("─", 80))
		for _, t := range d.Trends {
			fmt.Printf("%-28s  %s\n", truncate(t.Topic, 28), dashboard.Sparkline(t.Percent))
		}
	}
}

func printLLMUsage(usage []store.LLMUsage) {
	fmt.Println("LLM Usage and Estimated Cost (USD)")
	fmt.Println(strings.Repeat("─", 80))
	fmt.Printf("%-12s  %-28s  %6s  %10s  %10s  %9s\n",
		"Provider", "Model", "Calls", "Input", "Output", "Cost")
	fmt.Println(strings.Repeat("─", 80))

	var totalCost float64
	var unknownModels []string
	for _, u := range usage {
		calls := fmt.Sprintf("%d", u.Requests)
		if u.Failures > 0 {
			calls = fmt.Sprintf("%d!", u.Requests)
		}
		cost := llm.LookupCost(u.Model)
		if cost == nil {
			unknownModels = append(unknownModels, u.Model)
			fmt.Printf("%-12s  %-28s  %6s  %10d  %10d  %9s\n",
				u.Provider, truncate(u.Model, 28), calls, u.InputTokens, u.OutputTokens, "?")
			continue
		}
		c := cost.Cost(u.InputTokens, u.OutputTokens)
		totalCost += c
		fmt.Printf("%-12s  %-28s  %6s  %10d  %10d  %9s\n",
			u.Provider, truncate(u.Model, 28), calls, u.InputTokens, u.OutputTokens, formatCost(c))
	}

	fmt.Println(strings.Repeat("─", 80))
	label := "TOTAL"
	if len(unknownModels) > 0 {
		label = "TOTAL (partial)"
	}
	fmt.Printf("%-42s  %6s  %10s  %10s  %9s\n", label, "", "", "", formatCost(totalCost))

	if len(unknownModels) > 0 {
		fmt.Printf("\nPricing unavailable for: %s\n", strings.Join(unknownModels, ", "))
	}
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max]
}

func formatCost(usd float64) string {
	if usd < 0.01 {
		return fmt.Sprintf("$%.4f", usd)
	}
	return fmt.Sprintf("$%.2f", usd)
}
