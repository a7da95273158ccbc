package cmd

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/abhisek/prepquiz/internal/mockbackend"
	"github.com/spf13/cobra"
)

const shutdownTimeout = 5 * time.Second

var mockBackendCmd = &cobra.Command{
	Use:   "mock-backend",
	Short: "Serve a local stand-in for the placement-training backend",
	RunE: func(cmd *cobra.Command, args []string) error {
		addr, _ := cmd.Flags().GetString("addr")
		bankPath, _ := cmd.Flags().GetString("bank")

		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		logger := cfg.Log.NewLogger(os.Stderr)

		bank, err := loadBank(bankPath)
		if err != nil {
			return err
		}

		server := &http.Server{
			Addr:              addr,
			Handler:           mockbackend.NewServer(bank, logger).Router(),
			ReadHeaderTimeout: 10 * time.Second,
		}

		errs := make(chan error, 1)
		go func() {
			logger.Info("mock backend listening", "addr", addr, "topics", len(bank.Topics()))
			errs <- server.ListenAndServe()
		}()

		shutdown := make(chan os.Signal, 1)
		signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)
		defer signal.Stop(shutdown)

		select {
		case err := <-errs:
			if errors.Is(err, http.ErrServerClosed) {
				return nil
			}
			return fmt.Errorf("mock backend: %w", err)

		case sig := <-shutdown:
			logger.Info("shutting down", "signal", sig.String())

			ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
			defer cancel()
			if err := server.Shutdown(ctx); err != nil {
				logger.Error("could not stop server gracefully", "error", err)
				return server.Close()
			}
		}
		return nil
	},
}

func init() {
	mockBackendCmd.Flags().String("addr", ":8000", "Listen address")
	mockBackendCmd.Flags().String("bank", "", "YAML question bank (default: built-in bank)")
}

func loadBank(path string) (*mockbackend.Bank, error) {
	if path == "" {
		return mockbackend.DefaultBank()
	}
	bank, err := mockbackend.LoadBank(path)
	if err != nil {
		return nil, fmt.Errorf("load bank: %w", err)
	}
	return bank, nil
}
