package app

import (
	"github.com/kbukum/pvpauth/api"
	"github.com/kbukum/pvpauth/auth/google"
	"github.com/kbukum/pvpauth/auth/lichess"
	"github.com/kbukum/pvpauth/auth/provider"
	"github.com/kbukum/pvpauth/auth/session"
	"github.com/kbukum/pvpauth/encryption"
	"github.com/kbukum/pvpauth/identity"
	"github.com/kbukum/pvpauth/peers"
	"github.com/kbukum/pvpauth/server"
	"github.com/kbukum/pvpauth/signin"
	"github.com/kbukum/pvpauth/social"
)

// configure builds the services over the started infrastructure and
// registers the HTTP server component. Database and Redis handles exist
// only after Phase 1.
func (a *App) configure() error {
	cfg := a.Cfg
	db := a.database.DB()

	googleVerifier, err := google.NewVerifier(cfg.Google, a.keys)
	if err != nil {
		return err
	}
	var storeOpts []identity.TokenStoreOption
	if cfg.Tokens.Enabled() {
		enc, err := encryption.New(cfg.Tokens)
		if err != nil {
			return err
		}
		storeOpts = append(storeOpts, identity.WithEncryptor(enc))
	}
	lichessClient, err := lichess.NewClient(cfg.Lichess, identity.NewTokenStore(db, storeOpts...))
	if err != nil {
		return err
	}
	issuer, err := session.NewIssuer(cfg.JWT)
	if err != nil {
		return err
	}

	linker := identity.NewLinker(db, identity.WithLogger(a.Logger))
	signinService, err := signin.NewService(
		provider.NewResolver(googleVerifier, lichessClient),
		linker,
		issuer,
		signin.WithLogger(a.Logger),
		signin.WithMetrics(a.observability.Metrics()),
	)
	if err != nil {
		return err
	}

	handler, err := api.NewHandler(api.Deps{
		SignIn:  signinService,
		Users:   linker,
		Social:  social.NewService(db, a.Logger),
		Peers:   peers.NewStore(a.redis.Client(), a.Logger, peers.WithWindow(cfg.Peers.Window)),
		Session: issuer,
		Log:     a.Logger,
	})
	if err != nil {
		return err
	}

	srv := server.New(cfg.Server, a.Logger)
	srv.RegisterProbes(a.Name, a.Components.HealthAll)
	handler.Register(srv.GinEngine(), api.Options{
		Metrics:       a.observability.Metrics,
		AuthRateLimit: cfg.Server.AuthRateLimit,
	})

	a.server = srv
	return a.Components.Register(server.NewComponent(srv))
}
