package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/amaxoft/portal-gateway/internal/config"
	"github.com/amaxoft/portal-gateway/internal/observability"
	"github.com/amaxoft/portal-gateway/internal/persistence"
)

func newMigrateCommand() *cobra.Command {
	var dir string

	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Apply pending SQL migrations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			if dir == "" {
				dir = cfg.Postgres.MigrationsDir
			}

			logger, err := observability.NewLogger(cfg.Logger)
			if err != nil {
				return fmt.Errorf("init logger: %w", err)
			}
			defer logger.Sync() //nolint:errcheck

			ctx := commandContext(cmd)
			pg, err := persistence.NewPostgres(ctx, cfg.Postgres, logger)
			if err != nil {
				return fmt.Errorf("connect postgres: %w", err)
			}
			defer pg.Close()
			if !pg.Configured() {
				return errors.New("POSTGRES_DSN is required for migrate")
			}

			applied, err := persistence.RunMigrations(ctx, pg.Pool, dir, logger)
			if err != nil {
				return err
			}
			if applied == 0 {
				cmd.Println("No schema changes to apply.")
				return nil
			}
			cmd.Printf("Applied %d migration(s).\n", applied)
			return nil
		},
	}
	cmd.Flags().StringVar(&dir, "dir", "", "Migrations directory. Defaults to POSTGRES_MIGRATIONS_DIR.")
	return cmd
}
