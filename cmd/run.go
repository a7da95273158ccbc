package cmd

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/abhisek/prepquiz/internal/api"
	"github.com/abhisek/prepquiz/internal/app"
	"github.com/abhisek/prepquiz/internal/auth"
	"github.com/abhisek/prepquiz/internal/config"
	"github.com/abhisek/prepquiz/internal/gating"
	"github.com/abhisek/prepquiz/internal/llm"
	"github.com/abhisek/prepquiz/internal/practice"
	"github.com/abhisek/prepquiz/internal/quiz"
	"github.com/abhisek/prepquiz/internal/screens"
	"github.com/abhisek/prepquiz/internal/session"
	"github.com/abhisek/prepquiz/internal/source"
	"github.com/abhisek/prepquiz/internal/store"
	"github.com/spf13/cobra"
)

// env is what a command needs to run tests: the config, the open store,
// and the practice service built on them.
type env struct {
	cfg     config.Config
	store   *store.Store
	client  *api.Client
	svc     *practice.Service
	logger  *slog.Logger
	closers []io.Closer
}

func (e *env) Close() {
	for i := len(e.closers) - 1; i >= 0; i-- {
		e.closers[i].Close()
	}
}

// openEnv loads config, opens the store, and wires the practice service.
// With tui set, logs go to the log file instead of stderr.
func openEnv(cmd *cobra.Command, tui bool) (*env, error) {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return nil, err
	}
	e := &env{cfg: cfg}

	e.logger = cfg.Log.NewLogger(os.Stderr)
	if tui {
		logger, f, err := cfg.Log.OpenFileLogger()
		if err != nil {
			fmt.Fprintln(os.Stderr, "Warning: logging disabled:", err)
			logger = cfg.Log.NewLogger(io.Discard)
		} else {
			e.closers = append(e.closers, f)
		}
		e.logger = logger
	}
	slog.SetDefault(e.logger)

	dbPath, err := resolveDBPath(cfg)
	if err != nil {
		e.Close()
		return nil, fmt.Errorf("resolve DB path: %w", err)
	}
	st, err := store.Open(dbPath)
	if err != nil {
		e.Close()
		return nil, fmt.Errorf("open store: %w", err)
	}
	e.store = st
	e.closers = append(e.closers, st)

	events := st.EventRepo()
	e.client = api.NewClient(cfg.API.BaseURL,
		api.WithTimeout(cfg.API.Timeout),
		api.WithRecorder(events),
		api.WithLogger(e.logger),
	)

	src, err := buildSource(cmd.Context(), cfg, e.client, events, e.logger)
	if err != nil {
		e.Close()
		return nil, err
	}

	attempts := st.AttemptRepo()
	e.svc = practice.NewService(practice.Deps{
		Source:   src,
		Poster:   e.client,
		Gate:     gating.NewChecker(e.client, attempts, e.logger),
		Attempts: attempts,
		Events:   events,
		Grader:   cfg.Grader(),
		Logger:   e.logger,
	})
	return e, nil
}

// buildSource picks the question source. The LLM source must be fully
// configured; the backend source gains an LLM fallback only when it is.
func buildSource(ctx context.Context, cfg config.Config, client *api.Client, rec llm.Recorder, logger *slog.Logger) (session.QuestionSource, error) {
	if cfg.Source == config.SourceLLM {
		provider, err := llm.NewProvider(ctx, cfg.LLM, rec, logger)
		if err != nil {
			return nil, fmt.Errorf("LLM source: %w", err)
		}
		return source.NewLLM(provider, source.DefaultLLMConfig(), logger), nil
	}

	if cfg.LLM.Validate() != nil {
		return client, nil
	}
	provider, err := llm.NewProvider(ctx, cfg.LLM, rec, logger)
	if err != nil {
		logger.Warn("LLM fallback unavailable", "error", err)
		return client, nil
	}
	return &source.Fallback{
		Primary:   client,
		Secondary: source.NewLLM(provider, source.DefaultLLMConfig(), logger),
		Logger:    logger,
	}, nil
}

// launch selects where the TUI starts.
type launch struct {
	splash bool
	topic  string
	mode   quiz.Mode
}

// runApp opens the store, builds dependencies, and launches the TUI.
func runApp(cmd *cobra.Command, l launch) error {
	e, err := openEnv(cmd, true)
	if err != nil {
		return err
	}
	defer e.Close()

	statePath := config.StatePath()
	state, err := config.LoadState(statePath)
	if err != nil {
		e.logger.Warn("ignoring unreadable state file", "path", statePath, "error", err)
	}

	return app.Run(app.Options{
		Deps: screens.Deps{
			Practice: e.svc,
			Attempts: e.store.AttemptRepo(),
			User:     configuredUser(e.cfg),
			Logger:   e.logger,
		},
		LastUser: auth.New(state.LastUserID, state.LastUserName),
		OnLogin: func(u auth.User) error {
			state.LastUserID = u.ID
			state.LastUserName = u.Name
			return config.SaveState(statePath, state)
		},
		Splash: l.splash,
		Topic:  l.topic,
		Mode:   l.mode,
	})
}
