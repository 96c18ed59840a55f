package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/bwmarrin/snowflake"
	"golang.org/x/sync/errgroup"

	"github.com/PxPatel/matching-service/config"
	"github.com/PxPatel/matching-service/internal/api/handlers"
	"github.com/PxPatel/matching-service/internal/api/routes"
	"github.com/PxPatel/matching-service/internal/broadcast"
	"github.com/PxPatel/matching-service/internal/ledger"
	"github.com/PxPatel/matching-service/internal/logger"
	"github.com/PxPatel/matching-service/internal/matching"
	"github.com/PxPatel/matching-service/internal/metrics"
	"github.com/PxPatel/matching-service/internal/service"
	"github.com/PxPatel/matching-service/internal/storage"
	"github.com/PxPatel/matching-service/internal/storage/file"
	"github.com/PxPatel/matching-service/internal/storage/memory"
	"github.com/PxPatel/matching-service/internal/storage/pebble"
	"github.com/PxPatel/matching-service/internal/storage/postgres"
	"github.com/PxPatel/matching-service/internal/storage/redis"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	if err := logger.Init(logger.Config{
		Level:      cfg.Logger.Level,
		FilePath:   cfg.Logger.FilePath,
		MaxSizeMB:  cfg.Logger.MaxSizeMB,
		MaxBackups: cfg.Logger.MaxBackups,
		MaxAgeDays: cfg.Logger.MaxAgeDays,
		Compress:   cfg.Logger.Compress,
	}); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	if err := run(cfg); err != nil {
		logger.Error("Server exited with error", logger.Fields{"error": err})
		logger.Sync()
		os.Exit(1)
	}
	logger.Info("Server exited successfully", nil)
}

func run(cfg *config.Config) error {
	logger.Info("Starting order matching service", logger.Fields{
		"version":   handlers.Version,
		"lock_mode": cfg.Engine.LockMode,
		"node_id":   cfg.Engine.NodeID,
	})

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Build storage layers based on configuration
	orderStore, tradeStore := buildStorageLayers(cfg)
	defer func() {
		if err := orderStore.Close(); err != nil {
			logger.Error("Failed to close order store", logger.Fields{"error": err})
		}
	}()

	trades, err := ledger.New(tradeStore, cfg.Engine.NodeID)
	if err != nil {
		return err
	}
	defer func() {
		if err := trades.Close(); err != nil {
			logger.Error("Failed to close trade ledger", logger.Fields{"error": err})
		}
	}()

	orderIDs, err := snowflake.NewNode(cfg.Engine.NodeID)
	if err != nil {
		return fmt.Errorf("order id node: %w", err)
	}

	var prom *metrics.Prometheus
	var engineMetrics matching.MetricsRecorder = matching.NopMetrics{}
	var orderCounter service.OrderCounter
	if cfg.Metrics.Enabled {
		prom = metrics.NewPrometheus()
		engineMetrics = prom
		orderCounter = prom
	}

	publishers, hub, closePublishers := buildPublishers(cfg)
	defer closePublishers()

	engine := matching.NewEngineWithConfig(&matching.EngineConfig{
		Orders:    orderStore,
		Ledger:    trades,
		Metrics:   engineMetrics,
		Publisher: publishers,
		LockMode:  cfg.LockMode(),
	})

	h := handlers.NewHandler(
		service.NewOrderService(engine, orderStore, orderIDs, orderCounter),
		engine,
		trades,
		service.NewRecommender(engine.GetOrderBook(), trades),
		handlers.Limits{
			DefaultDepth: cfg.API.DefaultOrderBookDepth,
			MaxDepth:     cfg.API.MaxOrderBookDepth,
			DefaultList:  cfg.API.DefaultListLimit,
			MaxList:      cfg.API.MaxListLimit,
		},
	)

	opts := routes.Options{AllowedOrigins: cfg.Server.AllowedOrigins}
	if prom != nil {
		opts.Metrics = prom.Handler()
	}
	if hub != nil {
		opts.WebSocket = hub
	}

	server := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      routes.SetupRoutes(h, opts),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	g, gctx := errgroup.WithContext(ctx)

	if hub != nil {
		g.Go(func() error {
			hub.Run(gctx)
			return nil
		})
	}

	g.Go(func() error {
		logger.Info("Server starting", logger.Fields{
			"port":    cfg.Server.Port,
			"address": fmt.Sprintf("http://localhost:%s", cfg.Server.Port),
		})
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("listen: %w", err)
		}
		return nil
	})

	// Graceful shutdown on signal or on the first failure
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("Server shutting down...", nil)

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("forced shutdown: %w", err)
		}
		return nil
	})

	return g.Wait()
}

// buildPublishers assembles the trade broadcast sinks. The hub is nil when
// WebSocket streaming is disabled.
func buildPublishers(cfg *config.Config) (broadcast.Fanout, *broadcast.Hub, func()) {
	var sinks broadcast.Fanout
	var hub *broadcast.Hub
	var kafka *broadcast.KafkaPublisher

	if cfg.WebSocket.Enabled {
		hub = broadcast.NewHub(broadcast.HubConfig{SendBuffer: cfg.WebSocket.SendBuffer})
		sinks = append(sinks, hub)
		logger.Info("WebSocket trade stream enabled", logger.Fields{"path": "/ws"})
	}

	if cfg.Kafka.Enabled {
		kafka = broadcast.NewKafkaPublisher(broadcast.KafkaConfig{
			Brokers:      cfg.Kafka.Brokers,
			Topic:        cfg.Kafka.Topic,
			WriteTimeout: cfg.Kafka.WriteTimeout,
		})
		sinks = append(sinks, kafka)
		logger.Info("Kafka trade publisher enabled", logger.Fields{
			"brokers": cfg.Kafka.Brokers,
			"topic":   cfg.Kafka.Topic,
		})
	}

	closeAll := func() {
		if kafka == nil {
			return
		}
		if err := kafka.Close(); err != nil {
			logger.Error("Failed to close Kafka publisher", logger.Fields{"error": err})
		}
	}
	return sinks, hub, closeAll
}

// buildStorageLayers constructs the storage layers based on configuration.
// Returns composite stores that layer memory, Redis, Postgres and Pebble storage.
func buildStorageLayers(cfg *config.Config) (storage.OrderStore, storage.TradeStore) {
	var orderStores []storage.OrderStore
	var tradeStores []storage.TradeStore

	// L1: In-memory (fastest) - if enabled
	if cfg.Memory.Enabled {
		orderStores = append(orderStores, memory.NewInMemoryOrderStore(cfg.Memory.MaxOrders))
		tradeStores = append(tradeStores, memory.NewInMemoryTradeStore(cfg.Memory.MaxTrades))

		logger.Info("In-memory storage layer enabled", logger.Fields{
			"max_orders": cfg.Memory.MaxOrders,
			"max_trades": cfg.Memory.MaxTrades,
		})
	}

	// L2: Redis (distributed cache) - if enabled
	if cfg.Redis.Enabled {
		redisCfg := redis.RedisConfig{
			Host:         cfg.Redis.Host,
			Port:         cfg.Redis.Port,
			Password:     cfg.Redis.Password,
			DB:           cfg.Redis.DB,
			MaxRetries:   cfg.Redis.MaxRetries,
			PoolSize:     cfg.Redis.PoolSize,
			MinIdleConns: cfg.Redis.MinIdleConns,
			TLSEnabled:   cfg.Redis.TLSEnabled,
			OrderTTL:     cfg.Redis.OrderTTL,
			MaxOrders:    cfg.Redis.MaxOrders,
			MaxTrades:    cfg.Redis.MaxTrades,
		}

		orderClient, err := redis.NewRedisClient(redisCfg)
		if err != nil {
			logger.Warn("Failed to connect to Redis, continuing without distributed cache", logger.Fields{"error": err})
		} else if tradeClient, err := redis.NewRedisClient(redisCfg); err != nil {
			orderClient.Close()
			logger.Warn("Failed to connect to Redis, continuing without distributed cache", logger.Fields{"error": err})
		} else {
			logger.Info("Redis cache connected successfully", logger.Fields{
				"host": cfg.Redis.Host,
				"port": cfg.Redis.Port,
			})
			orderStores = append(orderStores, redis.NewRedisOrderStoreWithClient(orderClient, redisCfg))
			tradeStores = append(tradeStores, redis.NewRedisTradeStoreWithClient(tradeClient, redisCfg))
		}
	}

	// L3: PostgreSQL (persistent storage) - if enabled
	if cfg.Database.Enabled {
		pool, err := postgres.OpenPool(postgres.PostgresConfig{
			Host:            cfg.Database.Host,
			Port:            cfg.Database.Port,
			Database:        cfg.Database.Name,
			User:            cfg.Database.User,
			Password:        cfg.Database.Password,
			MaxConns:        cfg.Database.MaxConns,
			MaxIdleConns:    cfg.Database.MaxIdleConns,
			ConnMaxLifetime: cfg.Database.ConnMaxLifetime,
			SSLMode:         cfg.Database.SSLMode,
		})
		if err != nil {
			logger.Warn("Failed to connect to PostgreSQL, continuing without persistent storage", logger.Fields{"error": err})
		} else {
			logger.Info("PostgreSQL connected successfully", logger.Fields{
				"host":     cfg.Database.Host,
				"database": cfg.Database.Name,
			})
			// Both stores share the pool; closing it twice is a no-op
			orderStores = append(orderStores, postgres.NewPostgresOrderStoreWithPool(pool))
			tradeStores = append(tradeStores, postgres.NewPostgresTradeStoreWithPool(pool))
		}
	}

	// Local order journal - if enabled
	if cfg.Pebble.Enabled {
		journal, err := pebble.NewOrderJournal(cfg.Pebble.Path, pebble.Options{Sync: cfg.Pebble.Sync})
		if err != nil {
			logger.Warn("Failed to open order journal, continuing without it", logger.Fields{"error": err})
		} else {
			orderStores = append(orderStores, journal)
			logger.Info("Pebble order journal enabled", logger.Fields{"path": cfg.Pebble.Path})
		}
	}

	// File storage (audit log)
	if cfg.Engine.TradeLogPath != "" {
		if fileTradeStore, err := file.NewFileTradeStore(cfg.Engine.TradeLogPath); err == nil {
			tradeStores = append(tradeStores, fileTradeStore)
			logger.Info("Trade file log enabled", logger.Fields{"path": cfg.Engine.TradeLogPath})
		} else {
			logger.Warn("Failed to open trade log", logger.Fields{"error": err})
		}
	}

	// Trades always have somewhere to go
	if len(tradeStores) == 0 {
		tradeStores = append(tradeStores, memory.NewInMemoryTradeStore(1000))
	}
	if len(orderStores) == 0 {
		logger.Warn("No order store available, falling back to memory", nil)
		orderStores = append(orderStores, memory.NewInMemoryOrderStore(100000))
	}

	logger.Info("Storage layers initialized", logger.Fields{
		"order_layers": len(orderStores),
		"trade_layers": len(tradeStores),
	})

	return storage.NewCompositeOrderStore(orderStores...), storage.NewCompositeTradeStore(tradeStores...)
}
