package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/spf13/cobra"

	"github.com/dmitrymomot/backdrop/handler"
	"github.com/dmitrymomot/backdrop/modules/subscription"
	"github.com/dmitrymomot/backdrop/pkg/billing"
	"github.com/dmitrymomot/backdrop/pkg/guard"
	"github.com/dmitrymomot/backdrop/pkg/httpserver"
	"github.com/dmitrymomot/backdrop/pkg/logger"
	"github.com/dmitrymomot/backdrop/pkg/pg"
	"github.com/dmitrymomot/backdrop/pkg/profile"
	"github.com/dmitrymomot/backdrop/pkg/redis"
	"github.com/dmitrymomot/backdrop/pkg/requestid"
	"github.com/dmitrymomot/backdrop/pkg/session"
	subsvc "github.com/dmitrymomot/backdrop/pkg/subscription"
)

func newServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP server (default when no subcommand is given)",
		Args:  cobra.NoArgs,
		RunE:  runServe,
	}
	cmd.Flags().Bool("migrate", false, "apply database migrations before serving")
	return cmd
}

type serveConfig struct {
	App          appConfig
	Log          logger.Config
	HTTP         httpserver.Config
	PG           pg.Config
	Redis        redis.Config
	Session      session.Config
	Billing      billing.Config
	Subscription subsvc.Config
	Guard        guard.Config
}

func runServe(cmd *cobra.Command, _ []string) error {
	var cfg serveConfig
	if err := loadConfig(cmd,
		into(&cfg.App), into(&cfg.Log), into(&cfg.HTTP), into(&cfg.PG), into(&cfg.Redis),
		into(&cfg.Session), into(&cfg.Billing), into(&cfg.Subscription), into(&cfg.Guard),
	); err != nil {
		return err
	}

	log := newLogger(cfg.App, cfg.Log)
	ctx := cmd.Context()

	pool, err := pg.Connect(ctx, cfg.PG)
	if err != nil {
		return err
	}
	defer pool.Close()

	if migrate, _ := cmd.Flags().GetBool("migrate"); migrate {
		if err := pg.Migrate(ctx, pool, profile.Migrations, cfg.PG, log); err != nil {
			return err
		}
	}

	checks := map[string]httpserver.Check{"postgres": pg.Healthcheck(pool)}

	var locker subsvc.Locker = subsvc.NewMemoryLocker()
	if cfg.Redis.Enabled() {
		rdb, err := redis.Connect(ctx, cfg.Redis)
		if err != nil {
			return err
		}
		defer func() { _ = rdb.Close() }()
		locker = subsvc.NewRedisLocker(rdb)
		checks["redis"] = redis.Healthcheck(rdb)
	} else {
		log.WarnContext(ctx, "REDIS_URL not set, customer creation lock is local to this process")
	}

	resolver, err := session.NewFromConfig(ctx, cfg.Session)
	if err != nil {
		return err
	}

	provider, err := billing.New(cfg.Billing, log)
	if err != nil {
		return err
	}

	opts := []subsvc.Option{
		subsvc.WithConfig(cfg.Subscription),
		subsvc.WithLogger(log),
		subsvc.WithLocker(locker),
	}
	if cfg.Subscription.PlansFile != "" {
		catalog, err := subsvc.LoadCatalog(cfg.Subscription.PlansFile)
		if err != nil {
			return err
		}
		opts = append(opts, subsvc.WithCatalog(catalog))
		log.InfoContext(ctx, "plan catalog loaded", slog.Int("plans", len(catalog.Plans())))
	}
	svc := subsvc.NewService(profile.NewPostgresStore(pool), provider, opts...)

	router := newRouter(routerDeps{
		log:      log,
		resolver: resolver,
		guard:    guard.NewFromConfig(cfg.Guard),
		service:  svc,
		checks:   checks,
	})

	log.InfoContext(ctx, "starting backdrop",
		logger.Provider(provider.Name()),
		slog.String("version", version),
	)
	if err := httpserver.New(cfg.HTTP, log).Run(ctx, router); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}

type routerDeps struct {
	log      *slog.Logger
	resolver session.Resolver
	guard    *guard.Guard
	service  subscription.Service
	checks   map[string]httpserver.Check
}

func newRouter(d routerDeps) http.Handler {
	r := chi.NewRouter()
	r.Use(
		requestid.Middleware,
		middleware.Recoverer,
		session.Middleware(d.resolver),
		d.guard.Middleware,
	)

	r.Get("/health/live", httpserver.LivenessHandler())
	r.Get("/health/ready", httpserver.ReadinessHandler(d.log, d.checks))
	r.Mount("/subscription", subscription.Router(d.service, d.log))
	r.NotFound(handler.Wrap[struct{}](func(handler.Context, struct{}) handler.Response {
		return handler.Fail(handler.ErrNotFound)
	}, handler.WithErrorHandler[struct{}](handler.NewErrorHandler(d.log))))

	return r
}
