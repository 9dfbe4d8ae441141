// Package httpserver runs an http.Server with graceful shutdown and health probes.
//
// Run blocks until the context is cancelled or SIGINT/SIGTERM arrives, then
// shuts down within the configured timeout. Listen failures wrap ErrStart and
// shutdown failures wrap ErrShutdown.
//
//	r := chi.NewRouter()
//	r.Get("/health/live", httpserver.LivenessHandler())
//	r.Get("/health/ready", httpserver.ReadinessHandler(log,
//		httpserver.Check{Name: "postgres", Fn: pg.Healthcheck(pool)},
//		httpserver.Check{Name: "redis", Fn: redis.Healthcheck(client)},
//	))
//
//	srv := httpserver.NewFromConfig(cfg, httpserver.WithLogger(log))
//	if err := srv.Run(ctx, r); err != nil {
//		return err
//	}
package httpserver
