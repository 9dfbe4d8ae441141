// Package redis connects to Redis and exposes a readiness probe.
//
// Config is populated from REDIS_* environment variables. Connect retries the
// initial ping with a fixed delay so the service can start alongside Redis:
//
//	client, err := redis.Connect(ctx, cfg, log)
//	if err != nil {
//		return err
//	}
//	defer client.Close()
//
//	checks := map[string]func(context.Context) error{
//		"redis": redis.Healthcheck(client),
//	}
//
// Errors are sentinels joined with the go-redis cause via errors.Join.
package redis
