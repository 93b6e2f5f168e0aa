package main

import (
	"context"
	"fmt"
	"os"

	"github.com/caveo-app/caveo-api/internal/account/app"
	"github.com/spf13/cobra"
)

func main() {
	if err := newRootCmd().ExecuteContext(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var envFile string

	serve := &cobra.Command{
		Use:   "serve",
		Short: "Run the account API and the provider sync reconciler",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := app.LoadConfig(envFile)
			if err != nil {
				return err
			}
			application, err := app.New(cmd.Context(), cfg)
			if err != nil {
				return fmt.Errorf("failed to initialize application: %w", err)
			}
			return application.Run(cmd.Context())
		},
	}

	migrate := &cobra.Command{
		Use:   "migrate",
		Short: "Apply database migrations and exit",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := app.LoadConfig(envFile)
			if err != nil {
				return err
			}
			logger := app.NewLogger(cfg)

			st, err := app.OpenStore(cmd.Context(), cfg.Database)
			if err != nil {
				return fmt.Errorf("failed to open database: %w", err)
			}
			defer st.Close()

			if err := st.ApplyMigrations(); err != nil {
				return fmt.Errorf("failed to apply database migrations: %w", err)
			}
			logger.Info("database migrations applied successfully", "driver", cfg.Database.Driver)
			return nil
		},
	}

	root := &cobra.Command{
		Use:           "caveo",
		Short:         "Caveo account API",
		Version:       app.BuildVersion,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE:          serve.RunE,
	}
	root.PersistentFlags().StringVar(&envFile, "env-file", ".env", "path to a .env file, loaded when it exists")
	root.AddCommand(serve, migrate)

	return root
}
