package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/dmitrymomot/scrapekit/migrations"
	"github.com/dmitrymomot/scrapekit/pkg/auth"
	"github.com/dmitrymomot/scrapekit/pkg/billing"
	"github.com/dmitrymomot/scrapekit/pkg/clientip"
	"github.com/dmitrymomot/scrapekit/pkg/config"
	"github.com/dmitrymomot/scrapekit/pkg/email"
	"github.com/dmitrymomot/scrapekit/pkg/environment"
	"github.com/dmitrymomot/scrapekit/pkg/httpserver"
	"github.com/dmitrymomot/scrapekit/pkg/logger"
	"github.com/dmitrymomot/scrapekit/pkg/pg"
	"github.com/dmitrymomot/scrapekit/pkg/ratelimiter"
	"github.com/dmitrymomot/scrapekit/pkg/redis"
	"github.com/dmitrymomot/scrapekit/pkg/requestid"
	"github.com/dmitrymomot/scrapekit/svc/account"
	"github.com/dmitrymomot/scrapekit/svc/apikey"
	billingsvc "github.com/dmitrymomot/scrapekit/svc/billing"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx); err != nil {
		slog.Error("server terminated", logger.Error(err))
		os.Exit(1)
	}
}

func run(ctx context.Context) error {
	var (
		app     appConfig
		logCfg  logger.Config
		pgCfg   pg.Config
		rdbCfg  redis.Config
		planCfg billing.Config
		mailCfg email.Config
		authCfg auth.Config
		httpCfg httpserver.Config
	)
	for _, load := range []func() error{
		func() error { return config.Load(&app) },
		func() error { return config.Load(&logCfg) },
		func() error { return config.Load(&pgCfg) },
		func() error { return config.Load(&rdbCfg) },
		func() error { return config.Load(&planCfg) },
		func() error { return config.Load(&mailCfg) },
		func() error { return config.Load(&authCfg) },
		func() error { return config.Load(&httpCfg) },
	} {
		if err := load(); err != nil {
			return err
		}
	}

	log := logger.New(
		logger.WithEnvironment(app.Env, app.Name),
		logger.WithConfig(logCfg),
		logger.WithContextExtractors(
			requestid.LoggerExtractor(),
			environment.LoggerExtractor(),
			auth.LoggerExtractor(),
			clientip.LoggerExtractor(),
		),
	)
	slog.SetDefault(log)

	pool, err := pg.Connect(ctx, pgCfg, log)
	if err != nil {
		return err
	}
	defer pool.Close()

	if err := pg.Migrate(ctx, pool, migrations.FS, pgCfg, log); err != nil {
		return err
	}
	store := account.NewStore(pool)

	rdb, err := redis.Connect(ctx, rdbCfg, log)
	if err != nil {
		return err
	}
	defer rdb.Close()

	limits := ratelimiter.NewRedisStore(rdb)
	checkoutLimiter, err := ratelimiter.NewFixedWindow(limits, app.Checkout)
	if err != nil {
		return fmt.Errorf("checkout limiter: %w", err)
	}
	publicLimiter, err := ratelimiter.NewFixedWindow(limits, app.Public, ratelimiter.WithKeyPrefix("public:"))
	if err != nil {
		return fmt.Errorf("public limiter: %w", err)
	}

	catalog, err := billing.NewCatalogFromConfig(planCfg)
	if err != nil {
		return fmt.Errorf("plan catalog: %w", err)
	}
	provider, err := newProvider(app.Provider)
	if err != nil {
		return err
	}

	sender, err := email.NewSender(mailCfg)
	if err != nil {
		return err
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	appURL := strings.TrimRight(app.URL, "/")
	svc := billing.NewService(catalog, provider, store,
		billing.WithLogger(log),
		billing.WithCheckoutURLs(appURL+"/credits?success=true", appURL+"/credits?canceled=true"),
		billing.WithPortalReturnURL(appURL+"/account"),
		billing.WithCheckoutLimiter(ratelimiter.NewGate(checkoutLimiter)),
		billing.WithNotifier(billingsvc.NewReceiptNotifier(sender,
			billingsvc.WithReceiptApp(app.Name, appURL+"/credits"),
		)),
	)
	billingHTTP := billingsvc.NewHandlers(svc,
		billingsvc.WithLogger(log),
		billingsvc.WithMetrics(billingsvc.NewMetrics(reg)),
		billingsvc.WithProvider(app.Provider),
	)

	tokens, err := auth.NewTokens(authCfg)
	if err != nil {
		return err
	}
	keys := apikey.NewService(store,
		apikey.WithLogger(log),
		apikey.WithMaxKeys(app.MaxAPIKeys),
	)
	authenticate := auth.Middleware(tokens, auth.WithKeyResolver(keys.Authenticate))

	r := chi.NewRouter()
	r.Use(
		requestid.Middleware,
		environment.Middleware(environment.Normalize(app.Env)),
		clientip.New(app.TrustedIPHeaders...).Middleware,
	)

	r.Get("/health/live", httpserver.LivenessHandler())
	r.Get("/health/ready", httpserver.ReadinessHandler(log,
		httpserver.Check{Name: "postgres", Fn: pg.Healthcheck(pool)},
		httpserver.Check{Name: "redis", Fn: redis.Healthcheck(rdb)},
	))
	r.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))

	r.Group(func(r chi.Router) {
		r.Use(ratelimiter.Middleware(publicLimiter, publicKey))
		r.Mount("/billing", billingHTTP.Handle(authenticate))
		r.Route("/account", func(r chi.Router) {
			r.Use(authenticate)
			r.Get("/me", billingHTTP.Me())
			r.Mount("/api-keys", keys.Handle())
		})
	})

	return httpserver.NewFromConfig(httpCfg, httpserver.WithLogger(log)).Run(ctx, r)
}

// publicKey limits by client address. Webhooks come from a handful of
// processor addresses and are never limited.
func publicKey(r *http.Request) string {
	if strings.HasSuffix(r.URL.Path, "/webhooks") {
		return ""
	}
	return clientip.RateLimitKey(r)
}

func newProvider(name string) (billing.Provider, error) {
	switch strings.ToLower(name) {
	case "stripe":
		var cfg billing.StripeConfig
		if err := config.Load(&cfg); err != nil {
			return nil, err
		}
		return billing.NewStripeProvider(cfg)
	case "paddle":
		var cfg billing.PaddleConfig
		if err := config.Load(&cfg); err != nil {
			return nil, err
		}
		return billing.NewPaddleProvider(cfg)
	}
	return nil, fmt.Errorf("unknown billing provider %q", name)
}
