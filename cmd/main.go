package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"aptitude-service/internal/config"
	minioDB "aptitude-service/internal/database/minio"
	mongoDB "aptitude-service/internal/database/mongo"
	redisDB "aptitude-service/internal/database/redis"
	"aptitude-service/internal/event"
	grpcServer "aptitude-service/internal/grpc"
	"aptitude-service/internal/handlers"
	"aptitude-service/internal/llm"
	"aptitude-service/internal/logger"
	"aptitude-service/internal/middleware"
	"aptitude-service/internal/repository"
	"aptitude-service/internal/service"
	"aptitude-service/internal/store"
	"aptitude-service/pkg/discovery"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/mongo"
)

func main() {
	cfg := config.Load()

	logger.Init(cfg.Server.LogLevel)
	if cfg.Server.LogDir != "" {
		logFile, err := logger.SetupFile(cfg.Server.LogDir)
		if err != nil {
			log.Fatalf("Failed to set up logging: %v", err)
		}
		defer logFile.Close()
	}
	gin.SetMode(cfg.Server.GinMode)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	testStore, mongoClient, err := setupStore(ctx, cfg)
	cancel()
	if err != nil {
		log.Fatalf("Failed to initialize %s store: %v", cfg.Store.Backend, err)
	}
	logger.Info("Using %s test store", testStore.Backend())

	gen, err := llm.New(cfg.LLM)
	var generator llm.Generator
	if err != nil {
		logger.Warn("Model provider unavailable, questions will use fallbacks: %v", err)
	} else {
		generator = gen
	}

	var publisher event.Publisher
	if cfg.RabbitMQ.Enabled {
		ep, err := event.NewEventPublisher(cfg.RabbitMQ.URI, cfg.RabbitMQ.Exchange)
		if err != nil {
			logger.Warn("Failed to initialize event publisher: %v", err)
		} else {
			publisher = ep
		}
	} else {
		log.Println("RabbitMQ not configured, events will not be published")
	}

	svc := service.NewTestService(service.Deps{
		Store:       testStore,
		Generator:   generator,
		Events:      publisher,
		Concurrency: int(cfg.LLM.MaxConcurrency),
	})

	health := grpcServer.NewHealthServer(cfg.Server.ServiceName)
	loadCtx, loadCancel := context.WithTimeout(context.Background(), time.Minute)
	if err := loadChunks(loadCtx, cfg, svc); err != nil {
		logger.Warn("No chunks loaded, chunk-based endpoints will answer 400: %v", err)
	}
	loadCancel()
	health.SetReady(svc.ChunkCount() > 0)

	r := gin.New()
	r.Use(middleware.RequestLogger())
	r.Use(gin.Recovery())
	r.Use(cors.New(cors.Config{
		AllowOrigins:     cfg.Server.AllowedOrigins,
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Content-Type", "Content-Length", "Accept-Encoding", "Authorization", "accept", "origin", "Cache-Control", "X-Requested-With"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))
	handlers.RegisterRoutes(r, svc, handlers.RouterConfig{
		ServiceName: cfg.Server.ServiceName,
		Version:     cfg.Server.ServiceVersion,
		Production:  cfg.IsProduction(),
		JWTSecret:   cfg.Auth.JWTSecret,
	})

	srv := &http.Server{
		Addr:         fmt.Sprintf("%s:%s", cfg.Server.Host, cfg.Server.Port),
		Handler:      r,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}
	grpcSrv := grpcServer.NewServer(health)

	var registry *discovery.ServiceRegistry
	if cfg.Consul.Enabled {
		registry, err = discovery.NewServiceRegistry(cfg)
		if err != nil {
			logger.Warn("Service discovery init failed: %v", err)
		} else if err := registry.Register(); err != nil {
			logger.Warn("Service registration failed: %v", err)
		}
	}

	shutdownChan := make(chan os.Signal, 1)
	doneChan := make(chan bool, 1)
	grpcDoneChan := make(chan bool, 1)

	signal.Notify(shutdownChan, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		log.Printf("Starting server on %s", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("Error starting server: %v", err)
		}
		doneChan <- true
	}()

	go func() {
		grpcListener, err := net.Listen("tcp", ":"+cfg.Server.GRPCPort)
		if err != nil {
			log.Fatalf("Failed to listen on gRPC port %s: %v", cfg.Server.GRPCPort, err)
		}
		log.Printf("Starting gRPC server on port %s", cfg.Server.GRPCPort)
		if err := grpcSrv.Serve(grpcListener); err != nil {
			log.Printf("gRPC server stopped: %v", err)
		}
		grpcDoneChan <- true
	}()

	<-shutdownChan
	log.Println("Shutting down server...")
	health.Shutdown()

	if registry != nil {
		if err := registry.Deregister(); err != nil {
			log.Printf("Error deregistering from service discovery: %v", err)
		}
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("Error shutting down HTTP server: %v", err)
	}
	grpcSrv.GracefulStop()

	if publisher != nil {
		if err := publisher.Close(); err != nil {
			log.Printf("Error closing event publisher: %v", err)
		}
	}
	mongoDB.Disconnect(mongoClient)

	<-doneChan
	<-grpcDoneChan
	log.Println("Server shutdown complete")
}

// setupStore picks the test store backend. The mongo client is returned so
// it can be disconnected on shutdown; it is nil for other backends.
func setupStore(ctx context.Context, cfg *config.Config) (store.TestStore, *mongo.Client, error) {
	switch cfg.Store.Backend {
	case "mongo", "mongodb":
		client, db, err := mongoDB.Connect(ctx, cfg.MongoDB)
		if err != nil {
			return nil, nil, err
		}
		return store.NewMongoStore(db, cfg.MongoDB.Collection), client, nil
	case "redis":
		client, err := redisDB.NewClient(ctx, cfg.Redis)
		if err != nil {
			return nil, nil, err
		}
		return store.NewRedisStore(client, cfg.Redis.KeyPrefix, cfg.Redis.TTL), nil, nil
	case "", "memory":
		return store.NewMemoryStore(), nil, nil
	default:
		return nil, nil, fmt.Errorf("unknown store backend %q", cfg.Store.Backend)
	}
}

// loadChunks reads the preprocessed chunk file. A minio:// location needs
// the object store client.
func loadChunks(ctx context.Context, cfg *config.Config, svc *service.TestService) error {
	var objects repository.ObjectStore
	if _, _, ok := repository.ParseObjectLocation(cfg.Book.ChunksPath); ok {
		client, err := minioDB.NewClient(cfg.MinIO)
		if err != nil {
			return err
		}
		objects = client
	}

	chunks, err := repository.NewChunkRepository(objects).Load(ctx, cfg.Book.ChunksPath)
	if err != nil {
		return err
	}
	svc.SetChunks(chunks)
	return nil
}
