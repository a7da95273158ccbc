package cmd

import (
	"fmt"
	"strings"

	"github.com/abhisek/prepquiz/internal/gating"
	"github.com/abhisek/prepquiz/internal/quiz"
	"github.com/spf13/cobra"
)

var levelsCmd = &cobra.Command{
	Use:   "levels",
	Short: "Show which modes of a topic are unlocked",
	RunE: func(cmd *cobra.Command, args []string) error {
		topicVal, _ := cmd.Flags().GetString("topic")
		topic, err := quiz.LookupTopic(topicVal)
		if err != nil {
			return err
		}

		e, err := openEnv(cmd, false)
		if err != nil {
			return err
		}
		defer e.Close()

		user, err := requireUser(e.cfg)
		if err != nil {
			return err
		}

		levels, err := e.svc.Gate().Levels(cmd.Context(), user.ID, topic.Name)
		if err != nil {
			return fmt.Errorf("levels: %w", err)
		}

		fmt.Printf("%s for %s\n\n", topic.Name, user.DisplayName())
		fmt.Printf("%-11s  %9s  %7s  %-6s  %s\n", "Mode", "Questions", "Minutes", "Best", "Status")
		fmt.Println(strings.Repeat("─", 52))
		for _, l := range levels {
			best := "-"
			if l.HasBest {
				best = fmt.Sprintf("%d/%d", l.Best, l.Mode.QuestionCount())
			}
			status := "open"
			if !l.Unlocked {
				prev, _ := l.Mode.Previous()
				status = fmt.Sprintf("locked (needs %d on %s)", l.Required, prev.DisplayName())
			}
			fmt.Printf("%-11s  %9d  %7d  %-6s  %s\n",
				l.Mode.DisplayName(), l.Mode.QuestionCount(), int(l.Mode.TimeBudget().Minutes()), best, status)
		}

		if len(levels) > 0 && levels[0].Source == gating.SourceLocal {
			fmt.Println("\nBackend unavailable: unlocks are based on tests taken on this device.")
		}
		return nil
	},
}

func init() {
	levelsCmd.Flags().String("topic", "", "Topic name (required)")
	_ = levelsCmd.MarkFlagRequired("topic")
}
