// Copyright (c) 2025 AccelByte Inc. All Rights Reserved.
// This is licensed software from AccelByte Inc, for limitations
// and restrictions contact your company contract manager.

package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/AccelByte/extend-lifecycle-engine/internal/app"
	"github.com/AccelByte/extend-lifecycle-engine/internal/config"
	"github.com/AccelByte/extend-lifecycle-engine/pkg/common"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

var (
	cfg    *config.Config
	dryRun bool
)

var rootCmd = &cobra.Command{
	Use:   "lifecycle-engine",
	Short: "Player lifecycle intelligence engine",
	Long: `Classifies every enrolled user into a lifecycle state, scores churn risk,
and dispatches the interventions configured for that state.

Run without a subcommand to start the service.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		cfg, err = config.Load()
		if err != nil {
			return err
		}
		if err := cfg.Validate(); err != nil {
			return fmt.Errorf("invalid configuration: %w", err)
		}
		return common.ConfigureLogging(cfg.LogLevel, cfg.LogFormat)
	},
	RunE: serve,
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the API, health probes and the cycle scheduler",
	RunE:  serve,
}

var runOnceCmd = &cobra.Command{
	Use:   "run-once",
	Short: "Run a single evaluation cycle and print its report",
	Long: `Evaluates every enrolled user once, redelivering pending dispatches first.
With --dry-run every user is previewed and nothing is written or dispatched.`,
	RunE: runOnce,
}

func init() {
	runOnceCmd.Flags().BoolVar(&dryRun, "dry-run", false, "Preview every user without writing state or dispatching")

	rootCmd.AddCommand(serveCmd, runOnceCmd)
}

func serve(cmd *cobra.Command, args []string) error {
	logrus.Infof("starting lifecycle engine (environment: %s)", cfg.Environment)

	ctx := cmd.Context()
	application, err := app.New(ctx, cfg)
	if err != nil {
		return fmt.Errorf("failed to initialize application: %w", err)
	}

	return application.Run(ctx)
}

func runOnce(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	application, err := app.New(ctx, cfg)
	if err != nil {
		return fmt.Errorf("failed to initialize application: %w", err)
	}
	defer application.Close(context.Background())

	report, err := application.RunOnce(ctx, dryRun)
	if err != nil {
		return fmt.Errorf("evaluation cycle failed: %w", err)
	}

	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(report)
}

func main() {
	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		logrus.Error(err)
		os.Exit(1)
	}
}
