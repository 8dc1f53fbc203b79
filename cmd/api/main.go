package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	redisclient "github.com/redis/go-redis/v9"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/robertarktes/ticket-checkout/internal/adapters/crdb"
	mongoadapter "github.com/robertarktes/ticket-checkout/internal/adapters/mongo"
	redisadapter "github.com/robertarktes/ticket-checkout/internal/adapters/redis"
	smtpadapter "github.com/robertarktes/ticket-checkout/internal/adapters/smtp"
	stripeadapter "github.com/robertarktes/ticket-checkout/internal/adapters/stripe"
	"github.com/robertarktes/ticket-checkout/internal/checkout"
	"github.com/robertarktes/ticket-checkout/internal/config"
	httphandler "github.com/robertarktes/ticket-checkout/internal/http"
	"github.com/robertarktes/ticket-checkout/internal/idempotency"
	"github.com/robertarktes/ticket-checkout/internal/notify"
	"github.com/robertarktes/ticket-checkout/internal/observability"
	"github.com/robertarktes/ticket-checkout/internal/payment"
	"github.com/robertarktes/ticket-checkout/internal/rateLimit"
	"github.com/robertarktes/ticket-checkout/internal/ticket"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	shutdown, err := observability.SetupOTel(context.Background(), cfg)
	if err != nil {
		log.Fatalf("failed to setup otel: %v", err)
	}
	defer shutdown()

	logger := observability.NewLogger()
	observability.InitMetrics()

	probes := map[string]httphandler.Probe{}
	deps := checkout.Deps{}

	var provider payment.Provider
	if cfg.Payment.Configured() {
		provider = stripeadapter.NewProvider(cfg.Payment)
	} else {
		logger.Warn("STRIPE_SECRET_KEY not set, checkout will fail with a configuration error")
	}
	deps.Payments = payment.NewOrchestrator(provider, cfg.Payment, logger)

	var mailer notify.Mailer
	if cfg.Mail.Configured() {
		mailer = smtpadapter.NewMailer(cfg.Mail)
	} else {
		logger.WithField("missing", cfg.Mail.Missing()).Warn("SMTP not configured, notifications will not be delivered")
	}
	dispatcher := notify.NewDispatcher(mailer, notify.Options{
		Brand:            cfg.Ticket.Brand,
		BillingAddress:   cfg.Mail.BillingAddress,
		Timeout:          cfg.Mail.Timeout,
		VerifyBeforeSend: true,
	}, logger)
	deps.Notifier = dispatcher

	deps.Tickets = ticket.NewGenerator(ticket.NewPDFRenderer(cfg.Ticket), ticket.NewTextRenderer(cfg.Ticket.Brand), logger)

	if cfg.CRDBDSN != "" {
		pool, err := pgxpool.New(context.Background(), cfg.CRDBDSN)
		if err != nil {
			log.Fatalf("failed to connect to crdb: %v", err)
		}
		defer pool.Close()
		if err := crdb.Migrate(context.Background(), pool); err != nil {
			log.Fatalf("failed to migrate crdb: %v", err)
		}
		repo := crdb.NewRepository(pool)
		deps.Store = repo
		probes["crdb"] = repo.Ping
	}

	if cfg.MongoURI != "" {
		mongoClient, err := mongo.Connect(context.Background(), options.Client().ApplyURI(cfg.MongoURI))
		if err != nil {
			log.Fatalf("failed to connect to mongo: %v", err)
		}
		defer mongoClient.Disconnect(context.Background())
		catalog := mongoadapter.NewCatalogRepository(mongoClient.Database(cfg.MongoDB), logger)
		if err := catalog.EnsureIndexes(context.Background()); err != nil {
			logger.WithError(err).Warn("failed to ensure catalog indexes")
		}
		deps.Catalog = catalog
		probes["mongo"] = func(ctx context.Context) error { return mongoClient.Ping(ctx, nil) }
	}

	var (
		limiter httphandler.Limiter
		idemp   httphandler.IdempotencyStore
	)
	if cfg.RedisAddr != "" {
		redisClient := redisclient.NewClient(&redisclient.Options{Addr: cfg.RedisAddr})
		defer redisClient.Close()
		redisCache := redisadapter.NewCache(redisClient, cfg.BookingCacheTTL)
		deps.Cache = redisCache
		limiter = rateLimit.NewRateLimiter(redisCache)
		idemp = idempotency.NewIdempotency(redisadapter.NewIdempotency(redisClient), cfg.IdempotencyTTL)
		probes["redis"] = redisCache.Ping
	}

	service := checkout.NewService(deps, cfg.DefaultVenue, logger)
	handlers := httphandler.NewHandlers(cfg, service, dispatcher, probes, logger)

	r := httphandler.SetupRouter(handlers, logger, limiter, idemp, cfg.CheckoutRate)

	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logger.WithField("addr", cfg.HTTPAddr).Info("listening")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("listen: %s\n", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info("Shutdown Server ...")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Fatal("Server Shutdown:", err)
	}
	logger.Info("Server exiting")
}
