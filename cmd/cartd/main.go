package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/storefront/cart-ledger/internal/catalog"
	"github.com/storefront/cart-ledger/internal/events"
	"github.com/storefront/cart-ledger/internal/httpapi"
	"github.com/storefront/cart-ledger/internal/journal"
	"github.com/storefront/cart-ledger/internal/ledger"
	"github.com/storefront/cart-ledger/internal/orders"
	"github.com/storefront/cart-ledger/internal/store"
)

type Config struct {
	HTTPPort         string
	StoreBackend     string // memory, redis or mongo
	RedisAddr        string
	RedisPassword    string
	MongoURI         string
	MongoDBName      string
	CatalogDBPath    string
	CatalogMigration string
	CatalogTTL       time.Duration
	OrderAPIBaseURL  string
	OrderAPITimeout  time.Duration
	JournalEnabled   bool
	JournalCreds     *journal.Credentials
	KafkaBrokers     string
	RequestTimeout   time.Duration
	ShutdownTimeout  time.Duration
}

func loadConfig() *Config {
	journalPort, _ := strconv.Atoi(getEnv("JOURNAL_DB_PORT", "5432"))
	return &Config{
		HTTPPort:         getEnv("HTTP_PORT", "8080"),
		StoreBackend:     getEnv("CART_STORE", "memory"),
		RedisAddr:        getEnv("REDIS_ADDR", "localhost:6379"),
		RedisPassword:    getEnv("REDIS_PASSWORD", ""),
		MongoURI:         getEnv("MONGO_URI", "mongodb://localhost:27017"),
		MongoDBName:      getEnv("MONGO_DB_NAME", "cartdb"),
		CatalogDBPath:    getEnv("CATALOG_DB_PATH", "catalog.db"),
		CatalogMigration: getEnv("CATALOG_MIGRATIONS", "internal/catalog/migrations"),
		CatalogTTL:       5 * time.Minute,
		OrderAPIBaseURL:  getEnv("ORDER_API_URL", "http://localhost:9090"),
		OrderAPITimeout:  15 * time.Second,
		JournalEnabled:   getEnv("JOURNAL_ENABLED", "false") == "true",
		JournalCreds: &journal.Credentials{
			Host:              getEnv("JOURNAL_DB_HOST", "localhost"),
			Port:              journalPort,
			User:              getEnv("JOURNAL_DB_USER", "postgres"),
			Password:          getEnv("JOURNAL_DB_PASSWORD", "postgres"),
			DBName:            getEnv("JOURNAL_DB_NAME", "checkouts"),
			MigrationsDirPath: getEnv("JOURNAL_MIGRATIONS", "internal/journal/migrations"),
		},
		KafkaBrokers:    getEnv("KAFKA_BROKERS", "localhost:9092"),
		RequestTimeout:  30 * time.Second,
		ShutdownTimeout: 10 * time.Second,
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func main() {
	cfg := loadConfig()
	ctx := context.Background()

	cartStore := buildStore(ctx, cfg)

	// Catalog: sqlite repository behind a TTL cache
	repo, err := catalog.NewRepository(cfg.CatalogDBPath)
	if err != nil {
		log.Fatalf("Failed to open catalog database: %v", err)
	}
	defer repo.Close()
	if err := repo.RunMigrations(cfg.CatalogMigration); err != nil {
		log.Fatalf("Failed to run catalog migrations: %v", err)
	}
	cachedCatalog := catalog.NewCachedCatalog(repo, cfg.CatalogTTL)
	log.Printf("Catalog ready at %s", cfg.CatalogDBPath)

	orderClient := orders.NewClient(cfg.OrderAPIBaseURL, cfg.OrderAPITimeout)
	log.Printf("Order API at %s", cfg.OrderAPIBaseURL)

	// Optional checkout journal + outbox publishing
	var recorder ledger.CheckoutRecorder
	var ordersHandler *httpapi.OrdersHandler
	pollerCtx, stopPoller := context.WithCancel(ctx)
	defer stopPoller()
	if cfg.JournalEnabled {
		journalRepo, err := journal.NewRepository(cfg.JournalCreds)
		if err != nil {
			log.Fatalf("Failed to connect to journal database: %v", err)
		}
		defer journalRepo.Close()
		if err := journalRepo.RunMigrations(cfg.JournalCreds); err != nil {
			log.Fatalf("Failed to run journal migrations: %v", err)
		}
		recorder = journalRepo
		ordersHandler = httpapi.NewOrdersHandler(journalRepo, cfg.RequestTimeout)

		poller := events.NewOutboxPoller(journalRepo, cfg.KafkaBrokers)
		go poller.Run(pollerCtx)
		log.Printf("Checkout journal enabled, publishing to %s", cfg.KafkaBrokers)
	}

	registry := ledger.NewRegistry(cartStore, orderClient, recorder)

	cartHandler := httpapi.NewCartHandler(registry, cachedCatalog, cfg.RequestTimeout)
	checkoutHandler := httpapi.NewCheckoutHandler(registry, cfg.RequestTimeout)
	productHandler := httpapi.NewProductHandler(cachedCatalog, cfg.RequestTimeout)

	router := httpapi.NewRouter(cartHandler, checkoutHandler, productHandler, ordersHandler, cfg.RequestTimeout)

	srv := &http.Server{
		Addr:         ":" + cfg.HTTPPort,
		Handler:      router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Printf("Cart ledger listening on :%s", cfg.HTTPPort)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("server error: %v", err)
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("shutting down server...")
	stopPoller()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Fatalf("server forced to shutdown: %v", err)
	}
	log.Println("Cart ledger stopped")
}

func buildStore(ctx context.Context, cfg *Config) store.Store {
	switch cfg.StoreBackend {
	case "redis":
		redisClient := redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       0,
		})
		if err := redisClient.Ping(ctx).Err(); err != nil {
			log.Fatal("Redis connection failed:", err)
		}
		log.Printf("Cart store: redis at %s", cfg.RedisAddr)
		return store.NewRedisStore(redisClient)
	case "mongo":
		mongoDB, err := store.ConnectMongoDB(ctx, cfg.MongoURI, cfg.MongoDBName)
		if err != nil {
			log.Fatalf("Failed to connect to MongoDB: %v", err)
		}
		mongoStore := store.NewMongoStore(mongoDB)
		if err := mongoStore.CreateIndexes(ctx); err != nil {
			log.Fatalf("Failed to create MongoDB indexes: %v", err)
		}
		log.Printf("Cart store: mongodb at %s", cfg.MongoURI)
		return mongoStore
	default:
		log.Printf("Cart store: in-memory (carts will not survive a restart)")
		return store.NewMemoryStore()
	}
}
