package main

import (
	"context"
	"encoding/json"
	"log/slog"
	"os"

	"github.com/creastat/wallet"
	"github.com/creastat/wallet/config"
	"github.com/creastat/wallet/logger"
	"github.com/creastat/wallet/session"
	"github.com/spf13/cobra"
)

// sessionCommand builds a one-shot command that restores the stored session
// and then runs fn against it.
func sessionCommand(use, short string, fn func(ctx context.Context, a *app) (session.State, error)) *cobra.Command {
	cfg, loadErr := config.Load()
	var asJSON bool

	cmd := &cobra.Command{
		Use:   use,
		Short: short,
		RunE: func(cmd *cobra.Command, args []string) error {
			if loadErr != nil {
				return loadErr
			}
			ctx := cmd.Context()
			if ctx == nil {
				ctx = context.Background()
			}

			log := logger.Init(logger.Config{
				DataDir: cfg.DataDir,
				DevMode: true,
				Command: use,
				Level:   slog.LevelWarn,
			})

			a, err := newApp(ctx, cfg, log, nil)
			if err != nil {
				return err
			}
			defer a.Close()

			if err := a.manager.Start(ctx); err != nil {
				return err
			}

			state, err := fn(ctx, a)
			if asJSON {
				enc := json.NewEncoder(os.Stdout)
				enc.SetIndent("", "  ")
				if encErr := enc.Encode(state); encErr != nil {
					return encErr
				}
				return err
			}
			if err != nil {
				return err
			}
			printState(state)
			return nil
		},
	}

	bindFlags(cmd, &cfg)
	cmd.Flags().BoolVar(&asJSON, "json", false, "print the session as JSON")
	return cmd
}

func statusCmd() *cobra.Command {
	return sessionCommand("status", "Show the stored session after reconciling it with the wallet",
		func(ctx context.Context, a *app) (session.State, error) {
			return a.manager.State(), nil
		})
}

func connectCmd() *cobra.Command {
	return sessionCommand("connect", "Request wallet access and store the session",
		func(ctx context.Context, a *app) (session.State, error) {
			return a.manager.Connect(ctx)
		})
}

func disconnectCmd() *cobra.Command {
	return sessionCommand("disconnect", "Drop the stored session",
		func(ctx context.Context, a *app) (session.State, error) {
			return a.manager.Disconnect(ctx), nil
		})
}

func printState(s session.State) {
	if !s.Connected {
		warn("Not connected")
		if s.LastError != "" {
			info("Last error: %s", s.LastError)
		}
		return
	}

	display := s.Account
	if checksummed, err := wallet.ChecksumAddress(s.Account); err == nil {
		display = checksummed
	}
	success("Connected as %s", wallet.ShortAddress(display))
	info("Account: %s", display)
	if s.ChainID != "" {
		info("Chain:   %s", s.ChainID)
	}
}
