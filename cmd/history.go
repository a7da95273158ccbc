package cmd

import (
	"fmt"
	"strings"
	"time"

	"github.com/abhisek/prepquiz/internal/session"
	"github.com/abhisek/prepquiz/internal/store"
	"github.com/spf13/cobra"
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "List past test results",
	RunE: func(cmd *cobra.Command, args []string) error {
		limit, _ := cmd.Flags().GetInt("limit")
		undelivered, _ := cmd.Flags().GetBool("undelivered")
		resend, _ := cmd.Flags().GetBool("resend")

		e, err := openEnv(cmd, false)
		if err != nil {
			return err
		}
		defer e.Close()

		// An unset user covers everyone on this device.
		user := configuredUser(e.cfg)
		ctx := cmd.Context()

		if resend {
			if err := e.client.Health(ctx); err != nil {
				return fmt.Errorf("backend unreachable at %s: %w", e.client.BaseURL(), err)
			}
			rep, err := e.svc.Resend(ctx, user.ID)
			if err != nil {
				return err
			}
			if rep.Sent == 0 && rep.Failed == 0 {
				fmt.Println("Every result has been delivered.")
				return nil
			}
			fmt.Printf("Delivered %d, failed %d.\n", rep.Sent, rep.Failed)
			for _, msg := range rep.Errors {
				fmt.Println("  " + msg)
			}
			if rep.Failed > 0 {
				return fmt.Errorf("%d results are still undelivered", rep.Failed)
			}
			return nil
		}

		records, err := e.store.AttemptRepo().QueryAttempts(ctx,
			store.AttemptFilter{UserID: user.ID, UndeliveredOnly: undelivered},
			store.QueryOpts{Limit: limit})
		if err != nil {
			return fmt.Errorf("query attempts: %w", err)
		}

		if len(records) == 0 {
			if undelivered {
				fmt.Println("No undelivered results.")
			} else {
				fmt.Println("No tests taken yet.")
			}
			return nil
		}

		fmt.Printf("%-16s  %-12s  %-28s  %-10s  %7s  %6s  %s\n",
			"When", "User", "Topic", "Mode", "Score", "Time", "Delivered")
		fmt.Println(strings.Repeat("─", 100))

		for _, rec := range records {
			r := rec.Result
			delivered := "✓"
			if !r.Delivered {
				delivered = "✗ " + truncate(r.DeliveryError, 30)
			}
			elapsed := session.FormatClock(time.Duration(r.ElapsedSecs) * time.Second)
			if r.Auto {
				elapsed += "*"
			}
			fmt.Printf("%-16s  %-12s  %-28s  %-10s  %7s  %6s  %s\n",
				rec.Timestamp.Local().Format("2006-01-02 15:04"),
				truncate(r.UserID, 12),
				truncate(r.Topic, 28),
				r.Mode.DisplayName(),
				fmt.Sprintf("%d/%d", r.Score, r.Total),
				elapsed,
				delivered,
			)
		}
		fmt.Println("\n* submitted when time ran out")
		return nil
	},
}

func init() {
	historyCmd.Flags().IntP("limit", "n", 20, "Number of results to show")
	historyCmd.Flags().Bool("undelivered", false, "Only show results the backend has not acknowledged")
	historyCmd.Flags().Bool("resend", false, "Post every undelivered result again")
}
