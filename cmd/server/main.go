package main

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	goredis "github.com/redis/go-redis/v9"

	billingmodule "github.com/dmitrymomot/resumekit/modules/billing"
	"github.com/dmitrymomot/resumekit/pkg/admin"
	"github.com/dmitrymomot/resumekit/pkg/billing"
	"github.com/dmitrymomot/resumekit/pkg/config"
	"github.com/dmitrymomot/resumekit/pkg/email"
	"github.com/dmitrymomot/resumekit/pkg/entitlement"
	"github.com/dmitrymomot/resumekit/pkg/httpserver"
	"github.com/dmitrymomot/resumekit/pkg/logger"
	"github.com/dmitrymomot/resumekit/pkg/pg"
	"github.com/dmitrymomot/resumekit/pkg/reconcile"
	"github.com/dmitrymomot/resumekit/pkg/redis"
	"github.com/dmitrymomot/resumekit/pkg/tier"
	"github.com/dmitrymomot/resumekit/pkg/usage"
	"github.com/dmitrymomot/resumekit/svc/store"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	log, err := newLogger()
	if err != nil {
		slog.Error("invalid logger configuration", logger.Error(err))
		os.Exit(1)
	}
	logger.SetAsDefault(log)

	if err := run(ctx, log); err != nil {
		log.Error("server stopped with error", logger.Error(err))
		os.Exit(1)
	}
}

func newLogger() (*slog.Logger, error) {
	cfg, err := config.Load[logger.Config]()
	if err != nil {
		return nil, err
	}
	opts, err := logger.FromConfig(cfg)
	if err != nil {
		return nil, err
	}
	opts = append(opts, logger.WithContextExtractors(func(ctx context.Context) (slog.Attr, bool) {
		if id := middleware.GetReqID(ctx); id != "" {
			return logger.RequestID(id), true
		}
		return slog.Attr{}, false
	}))
	return logger.New(opts...), nil
}

func run(ctx context.Context, log *slog.Logger) error {
	appCfg := config.MustLoad[appConfig]()

	pgCfg := config.MustLoad[pg.Config]()
	pool, err := pg.Connect(ctx, pgCfg)
	if err != nil {
		return err
	}
	defer pool.Close()

	if err := pg.Migrate(ctx, pool, store.Migrations, store.MigrationsDir, pgCfg.MigrationsTable, log); err != nil {
		return err
	}
	db := store.New(pool)

	catalog, err := tier.NewSource(config.MustLoad[tier.Config]()).Load(ctx)
	if err != nil {
		return err
	}

	resolver := entitlement.NewResolver(catalog, entitlement.WithCancellationGrace(appCfg.CancellationGrace))

	checks := map[string]httpserver.Check{"postgres": pg.Healthcheck(pool)}

	var (
		counters usage.Store = db
		redisCli *goredis.Client
	)
	if redisCfg := config.MustLoad[redis.Config](); redisCfg.Enabled() {
		redisCli, err = redis.Connect(ctx, redisCfg)
		if err != nil {
			return err
		}
		defer func() { _ = redisCli.Close() }()

		counters = usage.NewRedisStore(redisCli,
			usage.WithKeyPrefix(redisCfg.KeyPrefix),
			usage.WithUserChecker(db),
		)
		checks["redis"] = redis.Healthcheck(redisCli)
	}
	usageSvc := usage.NewService(counters, usage.WithLogger(log.With(logger.Component("usage"))))

	reconciler := reconcile.New(db, catalog,
		reconcile.WithLogger(log.With(logger.Component("reconcile"))),
		reconcile.WithMaxAttempts(appCfg.ReplayMaxAttempts),
	)

	providers, err := newProviders()
	if err != nil {
		return err
	}
	billingCfg := config.MustLoad[billing.Config]()

	sender, err := email.NewSender(config.MustLoad[email.Config](), log.With(logger.Component("email")))
	if err != nil {
		return err
	}
	adminSvc := admin.NewService(db, catalog,
		admin.WithLogger(log.With(logger.Component("admin"))),
		admin.WithSender(sender),
	)

	module := billingmodule.New(billingmodule.Options{
		Accounts:   accountLoader{store: db, usage: usageSvc, separate: redisCli != nil},
		Resolver:   resolver,
		Usage:      usageSvc,
		Receiver:   billing.NewReceiver(reconciler, log.With(logger.Component("webhooks")), providers.all...),
		Checkout:   providers.checkout(billingCfg.CheckoutProvider),
		Portal:     providers.portal(billingCfg.CheckoutProvider),
		Config:     billingCfg,
		Admin:      adminSvc,
		AdminToken: appCfg.AdminToken,
		Logger:     log.With(logger.Component("http")),
	})
	if appCfg.AdminToken == "" {
		log.WarnContext(ctx, "ADMIN_TOKEN is empty, admin routes are disabled")
	}

	replay, err := newReplayScheduler(log, reconciler, appCfg)
	if err != nil {
		return err
	}

	root := chi.NewRouter()
	root.Get("/livez", httpserver.LivenessHandler())
	root.Get("/readyz", httpserver.ReadinessHandler(log, checks))
	root.Mount("/", module.Router())

	srv := httpserver.NewFromConfig(config.MustLoad[httpserver.Config](),
		httpserver.WithLogger(log.With(logger.Component("httpserver"))),
		httpserver.WithStartHook(func(ctx context.Context, log *slog.Logger) error {
			replay.Start()
			log.InfoContext(ctx, "replay scheduler started", slog.String("schedule", appCfg.ReplaySchedule))
			return nil
		}),
		httpserver.WithStopHook(func(ctx context.Context, log *slog.Logger) error {
			select {
			case <-replay.Stop().Done():
				return nil
			case <-ctx.Done():
				return errors.Join(errors.New("replay job still running"), ctx.Err())
			}
		}),
	)

	return srv.Run(ctx, root)
}

// accountLoader reads facts from Postgres. When usage counters live in
// Redis they are read from there instead of the users row.
type accountLoader struct {
	store    *store.Store
	usage    *usage.Service
	separate bool
}

func (l accountLoader) Account(ctx context.Context, userID uuid.UUID) (entitlement.Account, error) {
	acc, err := l.store.Account(ctx, userID)
	if err != nil || !l.separate {
		return acc, err
	}
	c, err := l.usage.Counters(ctx, userID)
	if err != nil {
		return entitlement.Account{}, err
	}
	acc.Counters = c
	return acc, nil
}
