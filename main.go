// main.go
package main

import (
	"context"
	"log"
	"time"

	"resource-booking/cmd"
	"resource-booking/internal/data/repository"
	"resource-booking/internal/wire"
	"resource-booking/pkg/database"
	"resource-booking/pkg/lock"
	"resource-booking/pkg/messaging"
	"resource-booking/pkg/utils"

	"go.uber.org/zap"
)

func main() {
	// Load config
	config, err := utils.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// Initialize logger
	logger, err := utils.InitLogger(config.App.LogPath, config.App.Name, config.App.Debug)
	if err != nil {
		log.Printf("Failed to init logger: %v. Using standard log.", err)
		logger, _ = zap.NewProduction()
	}
	defer logger.Sync()

	logger.Info("Starting application",
		zap.String("app", config.App.Name),
		zap.String("port", config.App.Port),
		zap.Bool("debug", config.App.Debug),
		zap.String("store", config.App.StoreBackend),
		zap.String("lock", config.Lock.Backend),
	)

	// Connect to the selected store
	backends, closeStore := openStore(config, logger)
	defer closeStore()

	repos, err := repository.NewRepository(config.App.StoreBackend, backends, logger)
	if err != nil {
		logger.Fatal("Failed to initialize repository", zap.Error(err))
	}

	locker, closeLock := openLocker(config, logger)
	defer closeLock()

	publisher := openPublisher(config, logger)
	defer func() {
		if err := publisher.Close(); err != nil {
			logger.Warn("Failed to flush event publisher", zap.Error(err))
		}
	}()

	// Wire all dependencies
	app := wire.Wiring(repos, wire.Deps{Locker: locker, Publisher: publisher}, config, logger)

	// Start server
	logger.Info("Starting HTTP server", zap.String("port", config.App.Port))

	if err := cmd.APIServer(app.Router, config.App.Port, config.App.ShutdownTimeout, logger); err != nil {
		logger.Error("Server stopped with error", zap.Error(err))
		return
	}
	logger.Info("Server stopped")
}

func openStore(config *utils.Config, logger *zap.Logger) (repository.Backends, func()) {
	switch config.App.StoreBackend {
	case repository.BackendPostgres:
		db, err := database.InitDB(config.Database)
		if err != nil {
			logger.Fatal("Failed to connect to database", zap.Error(err))
		}
		logger.Info("Database connected successfully")

		if config.Database.Migrate {
			ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
			defer cancel()
			if err := database.Migrate(ctx, db, logger); err != nil {
				db.Close()
				logger.Fatal("Failed to migrate database", zap.Error(err))
			}
		}
		return repository.Backends{Postgres: db}, db.Close

	case repository.BackendMongo:
		client, db, err := database.InitMongo(config.Mongo)
		if err != nil {
			logger.Fatal("Failed to connect to mongo", zap.Error(err))
		}
		logger.Info("Mongo connected successfully", zap.String("database", config.Mongo.Database))

		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := repository.EnsureMongoIndexes(ctx, db); err != nil {
			_ = client.Disconnect(context.Background())
			logger.Fatal("Failed to create mongo indexes", zap.Error(err))
		}

		return repository.Backends{Mongo: db}, func() {
			if err := client.Disconnect(context.Background()); err != nil {
				logger.Warn("Failed to disconnect mongo", zap.Error(err))
			}
		}

	default:
		logger.Warn("Using in-memory store, bookings are lost on restart")
		return repository.Backends{}, func() {}
	}
}

func openLocker(config *utils.Config, logger *zap.Logger) (lock.Locker, func()) {
	switch config.Lock.Backend {
	case "redis":
		client, err := database.InitRedis(config.Redis)
		if err != nil {
			logger.Fatal("Failed to connect to redis", zap.Error(err))
		}
		logger.Info("Redis lock enabled", zap.String("addr", config.Redis.Addr))
		return lock.NewRedisLocker(client, config.Lock.TTL, config.Lock.Wait), func() { _ = client.Close() }
	case "local":
		return lock.NewLocalLocker(config.Lock.Wait), func() {}
	default:
		return nil, func() {}
	}
}

func openPublisher(config *utils.Config, logger *zap.Logger) messaging.Publisher {
	if len(config.Kafka.Brokers) == 0 {
		return messaging.NopPublisher{}
	}

	publisher, err := messaging.NewKafkaPublisher(config.Kafka.Brokers, config.Kafka.Topic, logger)
	if err != nil {
		logger.Fatal("Failed to create kafka publisher", zap.Error(err))
	}
	logger.Info("Kafka publisher enabled", zap.Strings("brokers", config.Kafka.Brokers), zap.String("topic", config.Kafka.Topic))
	return publisher
}
