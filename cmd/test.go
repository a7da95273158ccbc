package cmd

import (
	"errors"
	"fmt"
	"os"

	"github.com/abhisek/prepquiz/internal/plain"
	"github.com/abhisek/prepquiz/internal/quiz"
	"github.com/abhisek/prepquiz/internal/session"
	"github.com/spf13/cobra"
)

var testCmd = &cobra.Command{
	Use:   "test",
	Short: "Start a test for a topic and mode",
	RunE: func(cmd *cobra.Command, args []string) error {
		topicVal, _ := cmd.Flags().GetString("topic")
		modeVal, _ := cmd.Flags().GetString("mode")
		plainMode, _ := cmd.Flags().GetBool("plain")

		topic, err := quiz.LookupTopic(topicVal)
		if err != nil {
			return err
		}
		mode, err := quiz.ParseMode(modeVal)
		if err != nil {
			return err
		}

		if !plainMode {
			return runApp(cmd, launch{topic: topic.Name, mode: mode})
		}
		return runPlain(cmd, topic.Name, mode)
	},
}

func init() {
	testCmd.Flags().String("topic", "", "Topic name, e.g. \"Percentages\" (required)")
	testCmd.Flags().String("mode", string(quiz.ModeEasy), "Mode: easy, moderate, hard, or final")
	testCmd.Flags().Bool("plain", false, "Run a line-oriented test on stdin/stdout instead of the TUI")
	_ = testCmd.MarkFlagRequired("topic")
}

func runPlain(cmd *cobra.Command, topic string, mode quiz.Mode) error {
	e, err := openEnv(cmd, false)
	if err != nil {
		return err
	}
	defer e.Close()

	user, err := requireUser(e.cfg)
	if err != nil {
		return err
	}

	r := plain.New(e.svc, os.Stdin, os.Stdout, plain.WithLogger(e.logger))
	_, err = r.Run(cmd.Context(), user, topic, mode)

	switch {
	case err == nil:
		return nil
	case errors.Is(err, plain.ErrQuit):
		fmt.Println("Test abandoned. Nothing was scored.")
		return nil
	case session.IsDeliveryError(err):
		// The runner already reported it; the result is stored.
		return nil
	}
	return err
}
