// Package redis connects the optional Redis usage counter backend.
//
//	if cfg.Enabled() {
//		client, err := redis.Connect(ctx, cfg)
//		...
//		store := usage.NewRedisStore(client, usage.WithKeyPrefix(cfg.KeyPrefix))
//	}
package redis
