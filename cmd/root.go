package cmd

import (
	"fmt"

	"github.com/abhisek/prepquiz/internal/auth"
	"github.com/abhisek/prepquiz/internal/config"
	"github.com/abhisek/prepquiz/internal/store"
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "prepquiz",
	Short: "Timed placement practice tests",
	Long: "prepquiz is a terminal client for a placement-training backend. Take timed " +
		"aptitude tests, unlock harder levels, and track your scores.",
	SilenceUsage: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runApp(cmd, launch{splash: true})
	},
}

func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().String("config", "", "Path to YAML config file (default $XDG_CONFIG_HOME/prepquiz/config.yaml)")
	rootCmd.PersistentFlags().String("db", "", "Path to SQLite database file (overrides PREPQUIZ_DB env var)")
	rootCmd.PersistentFlags().String("user", "", "User ID to sign in as (overrides PREPQUIZ_USER env var)")
	rootCmd.PersistentFlags().String("api", "", "Backend base URL (overrides PREPQUIZ_API_URL env var)")

	rootCmd.AddCommand(testCmd)
	rootCmd.AddCommand(levelsCmd)
	rootCmd.AddCommand(historyCmd)
	rootCmd.AddCommand(statsCmd)
	rootCmd.AddCommand(mockBackendCmd)
	rootCmd.AddCommand(llmCmd)
	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(updateCmd)
}

// loadConfig reads the config file and environment, then applies the
// persistent flags on top.
func loadConfig(cmd *cobra.Command) (config.Config, error) {
	path, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(path)
	if err != nil {
		return config.Config{}, err
	}
	if p, _ := cmd.Flags().GetString("db"); p != "" {
		cfg.DB = p
	}
	if u, _ := cmd.Flags().GetString("api"); u != "" {
		cfg.API.BaseURL = u
	}
	if id, _ := cmd.Flags().GetString("user"); id != "" && id != cfg.User.ID {
		cfg.User = config.UserConfig{ID: id}
	}
	return cfg, nil
}

// resolveDBPath returns the database path using --db or the config file
// (highest priority), then PREPQUIZ_DB env var, then the default XDG path.
func resolveDBPath(cfg config.Config) (string, error) {
	if cfg.DB != "" {
		return cfg.DB, store.EnsureDir(cfg.DB)
	}
	return store.DefaultDBPath()
}

// configuredUser returns the learner named by --user or the config, or
// the zero User when none is.
func configuredUser(cfg config.Config) auth.User {
	if cfg.User.ID == "" {
		return auth.User{}
	}
	return auth.New(cfg.User.ID, cfg.User.Name)
}

// requireUser is configuredUser for commands that cannot prompt.
func requireUser(cfg config.Config) (auth.User, error) {
	u := configuredUser(cfg)
	if err := u.Require(); err != nil {
		return u, fmt.Errorf("%w: pass --user or set PREPQUIZ_USER", err)
	}
	return u, nil
}
