package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"log"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/easylease/sublease/internal/auth"
	"github.com/easylease/sublease/internal/config"
	"github.com/easylease/sublease/internal/data"
	"github.com/easylease/sublease/internal/db"
	"github.com/easylease/sublease/internal/geocode"
	"github.com/easylease/sublease/internal/httpapi"
	"github.com/easylease/sublease/internal/listing"
	"github.com/easylease/sublease/internal/logging"
	"github.com/easylease/sublease/internal/middleware"
	"github.com/easylease/sublease/internal/pg"
	"github.com/easylease/sublease/internal/storage"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials"
)

func main() {
	seedFile := flag.String("seed-universities", "", "replace the universities collection with the JSON array in this file and exit")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	logCloser, err := logging.Setup(cfg.LogFile)
	if err != nil {
		log.Fatalf("logging: %v", err)
	}
	defer logCloser.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Initialize databases
	dbClient, err := db.New(ctx, cfg.MongoURI)
	if err != nil {
		log.Fatalf("failed to connect to MongoDB: %v", err)
	}
	defer func() {
		_ = dbClient.Close(context.Background())
	}()

	if err := dbClient.CreateIndexes(ctx); err != nil {
		log.Fatalf("failed to create indexes: %v", err)
	}

	universities := data.NewUniversitiesStore(dbClient.UniversitiesCollection())
	if *seedFile != "" {
		n, err := seedUniversities(ctx, universities, *seedFile)
		if err != nil {
			log.Fatalf("seed universities: %v", err)
		}
		log.Printf("inserted %d universities", n)
		return
	}

	pgStore, err := pg.New(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("failed to connect to PostgreSQL: %v", err)
	}
	defer pgStore.Close()

	if err := pgStore.Migrate(ctx); err != nil {
		log.Fatalf("failed to migrate PostgreSQL: %v", err)
	}

	usersStore := data.NewUsersStore(dbClient.UsersCollection())
	msgsStore := data.NewMessagesStore(dbClient.MessagesCollection())

	// JWT_KEYS enables key rotation; JWT_SECRET is the single-key fallback.
	var jwtMgr *auth.JWTManager
	if len(cfg.JWT.Keys) > 0 {
		jwtMgr = auth.NewJWTManagerFromKeys(cfg.JWT.Keys, cfg.JWT.ActiveKID, cfg.JWT.TTL)
	} else {
		jwtMgr = auth.NewJWTManager(cfg.JWT.Secret, cfg.JWT.TTL)
	}

	// Register and Login are rate limited per email
	limiterStore := middleware.NewLimiterStore(cfg.RateLimit.RPM, cfg.RateLimit.Burst, 1*time.Minute)
	defer limiterStore.Stop()

	var serverOpts []grpc.ServerOption
	if cfg.TLS.CertFile != "" && cfg.TLS.KeyFile != "" {
		creds, err := credentials.NewServerTLSFromFile(cfg.TLS.CertFile, cfg.TLS.KeyFile)
		if err != nil {
			log.Fatalf("failed to load TLS certs: %v", err)
		}
		serverOpts = append(serverOpts, grpc.Creds(creds))
	}

	serverOpts = append(serverOpts, grpc.ChainUnaryInterceptor(
		middleware.RateLimitUnaryInterceptor(limiterStore, publicMethods),
		authUnaryInterceptor(jwtMgr),
	))
	serverOpts = append(serverOpts, grpc.ChainStreamInterceptor(authStreamInterceptor(jwtMgr)))

	grpcServer := grpc.NewServer(serverOpts...)

	hub := NewConnectionHub()
	srv := newServer(usersStore, msgsStore, jwtMgr, hub)
	srv.profiles = pgStore
	registerService(grpcServer, srv)

	if cfg.MessageFeed == config.FeedChangeStream {
		feed, err := msgsStore.Watch(ctx)
		if err != nil {
			log.Fatalf("failed to open message change stream: %v", err)
		}
		srv.directPublish = false
		go func() {
			if err := runFeed(ctx, feed, hub); err != nil {
				log.Printf("realtime delivery stopped: %v", err)
			}
		}()
	}

	// HTTP API
	deps := httpapi.Deps{
		Universities: universities,
		Legacy:       data.NewLegacyListingsStore(dbClient.ListingsCollection()),
		Listings:     pgStore,
		Favorites:    pgStore,
		Profiles:     pgStore,
		JWT:          jwtMgr,
	}
	if cfg.S3.Enabled() {
		images, err := storage.New(ctx, cfg.S3)
		if err != nil {
			log.Fatalf("failed to configure object storage: %v", err)
		}
		deps.Images = images
	} else {
		log.Printf("S3_BUCKET not set; image uploads are disabled")
	}
	if cfg.GeocoderKey != "" {
		deps.Geocoder = geocode.NewClient(cfg.GeocoderKey)
	} else {
		log.Printf("GEOCODER_API_KEY not set; listings are stored without coordinates")
	}

	httpLimiter := middleware.NewLimiterStore(cfg.RateLimit.RPM, cfg.RateLimit.Burst, 1*time.Minute)
	defer httpLimiter.Stop()
	deps.Limiter = httpLimiter

	httpServer := &http.Server{
		Addr:              ":" + cfg.HTTPPort,
		Handler:           httpapi.Handler(httpapi.New(deps).Router(), cfg.CORSOrigins),
		ReadHeaderTimeout: 10 * time.Second,
	}

	grpcAddr := fmt.Sprintf(":%s", cfg.GRPCPort)
	lis, err := net.Listen("tcp", grpcAddr)
	if err != nil {
		log.Fatalf("failed to listen: %v", err)
	}

	go func() {
		log.Printf("gRPC server listening on %s", grpcAddr)
		if err := grpcServer.Serve(lis); err != nil {
			log.Fatalf("gRPC server exit: %v", err)
		}
	}()

	go func() {
		log.Printf("HTTP server listening on %s", httpServer.Addr)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("HTTP server exit: %v", err)
		}
	}()

	// Graceful shutdown on SIGINT/SIGTERM
	<-ctx.Done()
	log.Printf("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Printf("HTTP shutdown: %v", err)
	}
	grpcServer.GracefulStop()
}

// seedUniversities replaces the universities collection with the JSON array
// in path.
func seedUniversities(ctx context.Context, store *data.UniversitiesStore, path string) (int, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return 0, err
	}
	var unis []listing.University
	if err := json.Unmarshal(raw, &unis); err != nil {
		return 0, fmt.Errorf("parse %s: %w", path, err)
	}
	if err := store.Replace(ctx, unis); err != nil {
		return 0, err
	}
	return len(unis), nil
}
