// @title                       Identity Auth API
// @version                     1.0
// @description                 Wallet challenge-response and email/password authentication for admins, merchants and shoppers.
// @BasePath                    /
// @securityDefinitions.apikey  BearerAuth
// @in                          header
// @name                        Authorization
// @description                 Type "Bearer" followed by a space and the session token.
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	goredis "github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/bazaar-market/identity-auth/internal/api"
	"github.com/bazaar-market/identity-auth/internal/api/handler"
	"github.com/bazaar-market/identity-auth/internal/core/domain"
	"github.com/bazaar-market/identity-auth/internal/core/ports"
	"github.com/bazaar-market/identity-auth/internal/core/service"
	"github.com/bazaar-market/identity-auth/internal/infrastructure/config"
	"github.com/bazaar-market/identity-auth/internal/infrastructure/db/memory"
	mongostore "github.com/bazaar-market/identity-auth/internal/infrastructure/db/mongo"
	redisstore "github.com/bazaar-market/identity-auth/internal/infrastructure/db/redis"
	"github.com/bazaar-market/identity-auth/internal/infrastructure/queue"
	"github.com/bazaar-market/identity-auth/pkg/logger"
)

const (
	serviceName     = "identity-auth"
	shutdownTimeout = 10 * time.Second
)

// stores groups the persistence adapters selected by STORE_DRIVER.
type stores struct {
	admins    ports.IdentityRepository
	merchants ports.IdentityRepository
	shoppers  ports.IdentityRepository
	events    ports.AuthEventRepository
	health    []handler.DependencyCheck
	close     func(context.Context)
}

func main() {
	ctx := context.Background()

	cfg, err := config.Load(ctx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config: %v\n", err)
		os.Exit(1)
	}

	log := logger.Init(logger.Options{
		Level:   cfg.LogLevel,
		Pretty:  cfg.IsDevelopment(),
		Service: serviceName,
		Env:     cfg.Env,
	})

	proxies, err := cfg.TrustedProxyNets()
	if err != nil {
		log.Fatal().Err(err).Msg("parse trusted proxies")
	}

	st, err := openStores(ctx, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Str("driver", cfg.Store.Driver).Msg("open store")
	}

	rdb, err := redisstore.Connect(ctx, redisstore.Config{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	if err != nil {
		// Redis only backs the replay guard and the attempt limiter; the
		// in-memory profile runs without them.
		if cfg.Store.Driver != config.StoreMemory {
			log.Fatal().Err(err).Msg("connect redis")
		}
		log.Warn().Err(err).Msg("redis unavailable, replay guard and rate limiting disabled")
		rdb = nil
	}

	var (
		replay  ports.ReplayGuard
		limiter ports.AttemptLimiter
		health  = st.health
	)
	if rdb != nil {
		replay = redisstore.NewReplayGuard(rdb, cfg.Auth.ReplayTTL)
		limiter = redisstore.NewAttemptLimiter(rdb, cfg.Auth.AttemptsPerMinute, time.Minute)
		health = append(health, handler.RedisCheck(rdb))
	}

	workerCtx, stopWorkers := context.WithCancel(ctx)
	defer stopWorkers()
	dispatcher := queue.NewDispatcher(cfg.Auth.AuditWorkers, st.events, log)
	dispatcher.Start(workerCtx)

	identities := service.NewIdentityDirectory(st.admins, st.merchants, st.shoppers)
	nonces := service.NewNonceManager(nil)
	sessions := service.NewJWTSessionIssuer(cfg.Session.Secret, cfg.Session.TTL)

	e := api.NewRouter(api.Dependencies{
		Wallet: service.NewWalletAuthService(service.WalletAuthDeps{
			Identities:    identities,
			Nonces:        nonces,
			Verifier:      service.NewEthSignatureVerifier(),
			Sessions:      sessions,
			ReplayGuard:   replay,
			Events:        dispatcher,
			AccessLogSize: cfg.Auth.AccessLogSize,
		}, log),
		Password: service.NewPasswordAuthService(
			identities,
			nonces,
			service.NewBcryptHasher(cfg.Auth.BcryptCost),
			sessions,
			dispatcher,
			log,
		),
		Authorizer:  service.NewAuthorizer(identities, sessions),
		AuditEvents: st.events,
		Limiter:     limiter,
		Health:      health,

		TrustedProxies: proxies,
		Log:            log,
	})

	srvErrCh := make(chan error, 1)
	go func() {
		log.Info().Str("port", cfg.Port).Str("driver", cfg.Store.Driver).Msg("server starting")
		srvErrCh <- e.Start(":" + cfg.Port)
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		log.Info().Str("signal", sig.String()).Msg("shutdown signal received")
	case err := <-srvErrCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("server error")
		}
		return
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := e.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("shutdown error")
	}
	stopWorkers()
	if rdb != nil {
		closeRedis(rdb, log)
	}
	st.close(shutdownCtx)

	log.Info().Msg("server exited cleanly")
}

func openStores(ctx context.Context, cfg *config.Config, log zerolog.Logger) (*stores, error) {
	if cfg.Store.Driver == config.StoreMemory {
		log.Warn().Msg("using in-memory store, data is lost on restart")
		return &stores{
			admins:    memory.NewIdentityRepository(),
			merchants: memory.NewIdentityRepository(),
			shoppers:  memory.NewIdentityRepository(),
			events:    memory.NewAuthEventRepository(0),
			close:     func(context.Context) {},
		}, nil
	}

	client, db, err := mongostore.Connect(ctx, mongostore.Config{
		URI:      cfg.Mongo.URI,
		Database: cfg.Mongo.Database,
		AppName:  serviceName,
	})
	if err != nil {
		return nil, err
	}

	repos := make(map[domain.IdentityClass]*mongostore.IdentityRepository, len(domain.IdentityClasses))
	for _, class := range domain.IdentityClasses {
		repo, err := mongostore.NewIdentityRepository(db, class)
		if err != nil {
			return nil, err
		}
		if err := repo.EnsureIndexes(ctx); err != nil {
			return nil, fmt.Errorf("ensure %s indexes: %w", class, err)
		}
		repos[class] = repo
	}

	events := mongostore.NewAuthEventRepository(db)
	if err := events.EnsureIndexes(ctx); err != nil {
		return nil, fmt.Errorf("ensure auth event indexes: %w", err)
	}

	return &stores{
		admins:    repos[domain.ClassAdmin],
		merchants: repos[domain.ClassMerchant],
		shoppers:  repos[domain.ClassShopper],
		events:    events,
		health:    []handler.DependencyCheck{handler.MongoCheck(db)},
		close: func(ctx context.Context) {
			if err := client.Disconnect(ctx); err != nil {
				log.Warn().Err(err).Msg("close mongo")
			}
		},
	}, nil
}

func closeRedis(rdb *goredis.Client, log zerolog.Logger) {
	if err := rdb.Close(); err != nil {
		log.Warn().Err(err).Msg("close redis")
	}
}
