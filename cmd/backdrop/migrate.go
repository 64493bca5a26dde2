package main

import (
	"github.com/spf13/cobra"

	"github.com/dmitrymomot/backdrop/pkg/logger"
	"github.com/dmitrymomot/backdrop/pkg/pg"
	"github.com/dmitrymomot/backdrop/pkg/profile"
)

func newMigrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply pending database migrations and exit",
		Args:  cobra.NoArgs,
		RunE:  runMigrate,
	}
}

func runMigrate(cmd *cobra.Command, _ []string) error {
	var (
		app    appConfig
		logCfg logger.Config
		pgCfg  pg.Config
	)
	if err := loadConfig(cmd, into(&app), into(&logCfg), into(&pgCfg)); err != nil {
		return err
	}
	log := newLogger(app, logCfg)
	ctx := cmd.Context()

	pool, err := pg.Connect(ctx, pgCfg)
	if err != nil {
		return err
	}
	defer pool.Close()

	return pg.Migrate(ctx, pool, profile.Migrations, pgCfg, log)
}
