package main

import (
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/dmitrymomot/backdrop/pkg/config"
	"github.com/dmitrymomot/backdrop/pkg/logger"
	"github.com/dmitrymomot/backdrop/pkg/requestid"
	"github.com/dmitrymomot/backdrop/pkg/session"
)

// appConfig holds settings shared by every command.
type appConfig struct {
	Env  string `env:"APP_ENV" envDefault:"development"`
	Name string `env:"APP_NAME" envDefault:"backdrop"`
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:     "backdrop",
		Short:   "Subscription billing backend",
		Long:    "backdrop serves the subscription API (checkout, cancel, status, webhooks) behind session authentication.",
		Version: version,
		// Bare invocation behaves as "serve".
		RunE:          runServe,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringSlice("env-file", []string{".env"}, "dotenv files to read before parsing the environment")
	root.Flags().Bool("migrate", false, "apply database migrations before serving")

	root.AddCommand(newServeCmd())
	root.AddCommand(newMigrateCmd())
	return root
}

// loadConfig reads the dotenv files named by --env-file into every config
// struct passed in.
func loadConfig(cmd *cobra.Command, targets ...func(...config.Option) error) error {
	files, err := cmd.Flags().GetStringSlice("env-file")
	if err != nil {
		return err
	}
	for _, load := range targets {
		if err := load(config.WithEnvFiles(files...)); err != nil {
			return err
		}
	}
	return nil
}

// into adapts config.Load for loadConfig.
func into[T any](v *T) func(...config.Option) error {
	return func(opts ...config.Option) error { return config.Load(v, opts...) }
}

func newLogger(app appConfig, cfg logger.Config) *slog.Logger {
	return logger.NewFromConfig(cfg,
		logger.WithEnvironment(app.Env, app.Name),
		logger.WithAttr(slog.String("version", version)),
		logger.WithContextExtractors(
			requestid.LoggerExtractor(),
			session.LoggerExtractor(),
		),
	)
}
