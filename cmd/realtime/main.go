package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/docopt/docopt-go"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"

	"github.com/gogotex/gogotex/backend/go-realtime/internal/config"
	"github.com/gogotex/gogotex/backend/go-realtime/internal/database"
	"github.com/gogotex/gogotex/backend/go-realtime/internal/oidc"
	"github.com/gogotex/gogotex/backend/go-realtime/internal/realtime/handler"
	"github.com/gogotex/gogotex/backend/go-realtime/internal/realtime/migration"
	"github.com/gogotex/gogotex/backend/go-realtime/internal/realtime/repository"
	"github.com/gogotex/gogotex/backend/go-realtime/internal/realtime/schemaversion"
	"github.com/gogotex/gogotex/backend/go-realtime/internal/realtime/service"
	"github.com/gogotex/gogotex/backend/go-realtime/internal/storage"
	"github.com/gogotex/gogotex/backend/go-realtime/pkg/logger"
	"github.com/gogotex/gogotex/backend/go-realtime/pkg/metrics"
	"github.com/gogotex/gogotex/backend/go-realtime/pkg/middleware"
)

const mongoConnectAttempts = 5

const version = "0.3.0"

const usage = `Realtime document service.

Usage:
    realtime [serve]
    realtime rollback <collection> --from=<version> --to=<version>
    realtime -h | --help
    realtime --version

Options:
    --from=<version>  Version the collection is rolled back to.
    --to=<version>    Version the archived documents were migrated to.
`

func main() {
	logger.Init(os.Getenv("LOG_LEVEL"))
	defer logger.Sync()

	opts, err := docopt.ParseArgs(usage, os.Args[1:], version)
	if err != nil {
		logger.Fatalf("invalid arguments: %v", err)
	}

	cfg, err := config.LoadConfig()
	if err != nil {
		logger.Fatalf("failed to load config: %v", err)
	}
	logger.Init(cfg.LogLevel)
	logger.Infof("config loaded: level=%s keycloak=%v mongo=%v redis=%v minio=%v", logger.LevelString(), cfg.Keycloak.URL != "", cfg.MongoDB.URI != "", cfg.Redis.Host != "", cfg.MinIO.Endpoint != "")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if rollback_, _ := opts.Bool("rollback"); rollback_ {
		rollback(ctx, cfg, opts)
		return
	}
	serve(ctx, cfg)
}

// app holds the dependencies shared by every command.
type app struct {
	srv     *service.Server
	archive *storage.MinIOStorage
	redis   *redis.Client
	closers []func()
}

func (a *app) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
}

func newApp(ctx context.Context, cfg *config.Config, needArchive bool) *app {
	a := &app{}

	var store repository.Store
	var versions schemaversion.Repository
	if cfg.MongoDB.URI != "" {
		client, err := database.ConnectMongoWithRetry(ctx, cfg.MongoDB.URI, cfg.MongoDB.Timeout, mongoConnectAttempts)
		if err != nil {
			logger.Fatalf("%v", err)
		}
		a.closers = append(a.closers, func() { _ = client.Disconnect(context.Background()) })
		db := client.Database(cfg.MongoDB.Database)
		store = repository.NewMongoStore(db)
		versions = schemaversion.NewMongoRepository(db.Collection(schemaversion.CollectionName))
		logger.Infof("using MongoDB database %s", cfg.MongoDB.Database)
	} else {
		logger.Warnf("MONGODB_URI not set; documents are kept in memory")
		store = repository.NewMemoryStore()
		versions = schemaversion.NewMemoryRepository()
	}

	if addr := cfg.Redis.Addr(); addr != "" {
		client := redis.NewClient(&redis.Options{Addr: addr, Password: cfg.Redis.Password, DB: cfg.Redis.DB})
		if err := client.Ping(ctx).Err(); err != nil {
			logger.Warnf("failed to connect to Redis (%s): %v; snapshot cache disabled", addr, err)
			_ = client.Close()
		} else {
			a.redis = client
			a.closers = append(a.closers, func() { _ = client.Close() })
			store = repository.NewCachedStore(store, client, "", cfg.Cache.TTL)
			logger.Infof("snapshot cache enabled (%s, ttl=%s)", addr, cfg.Cache.TTL)
		}
	}

	opts := []migration.Option{
		migration.WithConcurrency(cfg.Migration.DocConcurrency, cfg.Migration.CollectionConcurrency),
	}
	if cfg.Migration.Archive || needArchive {
		archive, err := storage.NewMinIOStorage(ctx, &storage.MinIOConfig{
			Endpoint:  cfg.MinIO.Endpoint,
			AccessKey: cfg.MinIO.AccessKey,
			SecretKey: cfg.MinIO.SecretKey,
			UseSSL:    cfg.MinIO.UseSSL,
			Bucket:    cfg.MinIO.Bucket,
		})
		if err != nil {
			logger.Fatalf("migration archive: %v", err)
		}
		a.archive = archive
		if cfg.Migration.Archive {
			opts = append(opts, migration.WithArchiver(archive))
			logger.Infof("archiving pre-migration documents to bucket %s", cfg.MinIO.Bucket)
		}
	}

	srv, err := service.NewServer(store, versions, []service.DocService{
		service.NewSFProjectService(),
		service.NewUserService(),
	}, opts...)
	if err != nil {
		logger.Fatalf("invalid document services: %v", err)
	}
	a.srv = srv
	return a
}

// rollback restores the archived pre-migration copies of a collection and
// resets its schema version. The next serve migrates it again.
func rollback(ctx context.Context, cfg *config.Config, opts docopt.Opts) {
	collection, _ := opts.String("<collection>")
	from, err := intOpt(opts, "--from")
	if err != nil {
		logger.Fatalf("%v", err)
	}
	to, err := intOpt(opts, "--to")
	if err != nil {
		logger.Fatalf("%v", err)
	}

	a := newApp(ctx, cfg, true)
	defer a.Close()
	n, err := a.srv.Rollback(ctx, a.archive, collection, from, to)
	if err != nil {
		logger.Fatalf("rollback %s: %v", collection, err)
	}
	logger.Infof("rolled back %s from v%d to v%d; %d documents restored", collection, to, from, n)
}

func intOpt(opts docopt.Opts, name string) (int, error) {
	raw, err := opts.String(name)
	if err != nil {
		return 0, fmt.Errorf("%s is required", name)
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("%s: %q is not a version", name, raw)
	}
	return v, nil
}

func serve(ctx context.Context, cfg *config.Config) {
	metrics.RegisterCollectors(prometheus.DefaultRegisterer)

	a := newApp(ctx, cfg, false)
	defer a.Close()
	srv := a.srv

	if err := srv.MigrateIfNecessary(ctx); err != nil {
		logger.Fatalf("migration failed: %v", err)
	}
	logger.Infof("documents migrated; collections=%v", srv.Collections())

	verifier, err := newVerifier(ctx, cfg)
	if err != nil {
		logger.Fatalf("token verifier: %v", err)
	}

	r := gin.New()
	r.Use(gin.Logger(), gin.Recovery())

	r.GET("/health", func(c *gin.Context) {
		c.String(http.StatusOK, "healthy")
	})
	r.GET("/ready", func(c *gin.Context) {
		if !srv.Ready() {
			c.JSON(http.StatusServiceUnavailable, gin.H{"ready": false})
			return
		}
		c.JSON(http.StatusOK, gin.H{"ready": true, "cache": a.redis != nil})
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))
	handler.RegisterSwagger(r)

	var validateMW []gin.HandlerFunc
	if cfg.RateLimit.Enabled {
		if cfg.RateLimit.UseRedis && a.redis != nil {
			validateMW = append(validateMW, middleware.RedisRateLimitMiddleware(a.redis, cfg.RateLimit.RPS, cfg.RateLimit.Burst, cfg.RateLimit.Window))
		} else {
			validateMW = append(validateMW, middleware.RateLimitMiddleware(cfg.RateLimit.RPS, cfg.RateLimit.Burst))
		}
	}
	handler.RegisterRoutes(r.Group("/api/v1/realtime"), srv, middleware.AuthMiddleware(verifier), validateMW...)

	addr := fmt.Sprintf("%s:%s", cfg.Server.Host, cfg.Server.Port)
	httpSrv := &http.Server{
		Addr:         addr,
		Handler:      r,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}
	go func() {
		logger.Infof("starting realtime service on %s", addr)
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatalf("server failed: %v", err)
		}
	}()

	<-ctx.Done()
	logger.Infof("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := httpSrv.Shutdown(shutdownCtx); err != nil {
		logger.Errorf("shutdown: %v", err)
	}
}

// newVerifier prefers Keycloak discovery, then a shared HMAC secret, and only
// falls back to unverified parsing when neither is configured.
func newVerifier(ctx context.Context, cfg *config.Config) (middleware.Verifier, error) {
	if issuer := cfg.Keycloak.IssuerURL(); issuer != "" {
		return oidc.NewVerifier(ctx, issuer, cfg.Keycloak.ClientID)
	}
	if cfg.JWT.Secret != "" {
		return oidc.NewHMACVerifier(cfg.JWT.Secret)
	}
	logger.Warnf("using insecure token verifier; do not run this in production")
	return oidc.NewInsecureVerifier(), nil
}
