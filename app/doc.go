// Package app wires pvpauth together and runs it.
//
// Startup happens in two phases. Phase 1 starts the infrastructure
// components (observability, database, redis, Google key cache). Phase 2
// builds the identity, sign-in, social and peer services on top of them,
// mounts the API on the HTTP server and starts it. Shutdown runs the stop
// hooks and stops every component in reverse registration order.
//
//	cfg, err := app.Load()
//	if err != nil {
//	    log.Fatal(err)
//	}
//	a, err := app.New(cfg)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	err = a.Run(ctx)
package app
