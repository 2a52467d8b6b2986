// Package redis provides the Redis client and its lifecycle component.
//
// The peer-connection store keeps its heartbeats here. Configuration comes
// from REDIS_URL (redis:// or rediss://) or from an explicit address:
//
//	comp := redis.NewComponent(redis.Config{URL: os.Getenv("REDIS_URL")}, log)
//	if err := comp.Start(ctx); err != nil {
//	    return err
//	}
//	store := peers.NewStore(comp.Client(), log)
package redis
