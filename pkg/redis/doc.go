// Package redis connects to Redis through go-redis/v9 with retries and
// exposes a readiness check for the health endpoints.
//
// Redis is optional: when REDIS_URL is empty, Config.Enabled reports false
// and callers are expected to use an in-process substitute.
//
//	var cfg redis.Config
//	if err := config.Load(&cfg); err != nil {
//		return err
//	}
//	if cfg.Enabled() {
//		client, err := redis.Connect(ctx, cfg)
//		...
//	}
package redis
