package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/cors"

	// OpenTelemetry
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.17.0"

	// PostgreSQL Driver
	"github.com/exaring/otelpgx"
	"github.com/jackc/pgx/v5/pgxpool"

	// Redis + NATS
	"github.com/nats-io/nats.go"
	"github.com/redis/go-redis/extra/redisotel/v9"
	"github.com/redis/go-redis/v9"

	// Interne
	"github.com/jupiterclapton/bestfit/config"
	"github.com/jupiterclapton/bestfit/internal/adapters/primary/events"
	httpadapter "github.com/jupiterclapton/bestfit/internal/adapters/primary/http"
	"github.com/jupiterclapton/bestfit/internal/adapters/secondary/blobstore"
	"github.com/jupiterclapton/bestfit/internal/adapters/secondary/directory"
	"github.com/jupiterclapton/bestfit/internal/adapters/secondary/eventbroker"
	"github.com/jupiterclapton/bestfit/internal/adapters/secondary/identity"
	"github.com/jupiterclapton/bestfit/internal/adapters/secondary/repository"
	"github.com/jupiterclapton/bestfit/internal/core/ports"
	"github.com/jupiterclapton/bestfit/internal/core/services"
)

func main() {
	// 1. Charger la Config
	cfg, err := config.Load()
	if err != nil {
		panic(fmt.Sprintf("failed to load config: %v", err))
	}

	// 2. Initialiser le Logger (slog JSON pour la prod, Text pour le dev)
	initLogger(cfg)
	slog.Info("🚀 Starting bestfit", "env", cfg.Env, "port", cfg.HTTPPort, "storage", cfg.StorageBackend)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// 3. Initialiser le Tracing (OpenTelemetry)
	tp, err := initTracer(ctx, cfg)
	if err != nil {
		slog.Error("Failed to init tracer", "error", err)
	} else {
		defer func() {
			if err := tp.Shutdown(context.Background()); err != nil {
				slog.Error("Error shutting down tracer", "error", err)
			}
		}()
	}

	// 4. Infrastructure : annuaire de profils (Postgres)
	dbConfig, err := pgxpool.ParseConfig(cfg.DBUrl)
	if err != nil {
		slog.Error("Unable to parse DB config", "error", err)
		os.Exit(1)
	}
	dbConfig.ConnConfig.Tracer = otelpgx.NewTracer()

	dbPool, err := pgxpool.NewWithConfig(ctx, dbConfig)
	if err != nil {
		slog.Error("Unable to connect to database", "error", err)
		os.Exit(1)
	}
	defer dbPool.Close()

	// Vérification connectivité immédiate (Fail Fast)
	if err := dbPool.Ping(ctx); err != nil {
		slog.Error("Database ping failed", "error", err)
		os.Exit(1)
	}
	slog.Info("✅ Database connected")

	// 5. Infrastructure : cache local de posts (file ou redis)
	blobs, err := buildBlobStore(cfg)
	if err != nil {
		slog.Error("Failed to init blob store", "error", err)
		os.Exit(1)
	}
	slog.Info("✅ Blob store ready", "backend", cfg.StorageBackend)

	// 6. Infrastructure : Event Broker (NATS)
	nc, err := nats.Connect(cfg.NatsUrl)
	if err != nil {
		slog.Error("Failed to connect to NATS", "error", err)
		os.Exit(1)
	}
	defer nc.Drain()
	slog.Info("✅ NATS connected")

	// 7. Infrastructure : Identité (clé publique seule, on ne signe pas)
	pubKey, err := os.ReadFile(cfg.RSAPublicKeyPath)
	if err != nil {
		slog.Error("Failed to read RSA public key", "error", err)
		os.Exit(1)
	}
	idp, err := identity.NewJWTProvider(pubKey)
	if err != nil {
		slog.Error("Failed to init JWT provider", "error", err)
		os.Exit(1)
	}

	// 8. Wiring (Injection de dépendances) - Adapters -> Services
	publisher := eventbroker.NewNatsPublisher(nc)
	repo := repository.NewBlobRepo(blobs, cfg.PostsBlobKey)
	postStore := services.NewPostStore(repo, publisher)
	profileDir := directory.NewPostgresDirectory(dbPool)
	profileService := services.NewProfileService(profileDir, postStore, publisher)

	// Consumer : cascades déclenchées par événements externes
	eventHandler := events.NewEventHandler(postStore)
	if err := eventHandler.Subscribe(nc); err != nil {
		slog.Error("Failed to subscribe to NATS subjects", "error", err)
		os.Exit(1)
	}

	// 9. Chaîne de Middlewares HTTP
	mux := http.NewServeMux()
	httpadapter.NewHandler(postStore, profileService).Register(mux)
	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusOK) })

	var h http.Handler = mux

	// A. Auth (injecte l'utilisateur courant)
	h = httpadapter.AuthMiddleware(idp)(h)

	// B. CORS
	c := cors.New(cors.Options{
		AllowedOrigins:   []string{"http://localhost:3000", "http://localhost:19006"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Authorization", "Content-Type", "baggage", "sentry-trace"},
		AllowCredentials: true,
	})
	h = c.Handler(h)

	// C. OTEL HTTP (Racine)
	h = otelhttp.NewHandler(h, "bestfit-api", otelhttp.WithSpanNameFormatter(func(operation string, r *http.Request) string {
		return fmt.Sprintf("HTTP %s %s", r.Method, r.URL.Path)
	}))

	// 10. Démarrage Graceful
	srv := &http.Server{
		Addr:    ":" + cfg.HTTPPort,
		Handler: h,
	}

	go func() {
		slog.Info("📡 API listening", "port", cfg.HTTPPort)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("HTTP server error", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)

	sig := <-quit
	slog.Info("⚠️  Signal received, shutting down...", "signal", sig)

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("Forced shutdown", "error", err)
	}
	slog.Info("👋 Service stopped")
}

// --- HELPERS ---

func buildBlobStore(cfg *config.Config) (ports.BlobStore, error) {
	switch cfg.StorageBackend {
	case "redis":
		opts, err := redis.ParseURL(cfg.RedisUrl)
		if err != nil {
			return nil, fmt.Errorf("parse redis url: %w", err)
		}
		client := redis.NewClient(opts)
		if err := redisotel.InstrumentTracing(client); err != nil {
			return nil, fmt.Errorf("instrument redis: %w", err)
		}
		return blobstore.NewRedisStore(client), nil
	default:
		return blobstore.NewFileStore(cfg.StoragePath)
	}
}

func initLogger(cfg *config.Config) {
	var handler slog.Handler
	if cfg.Env == "local" {
		handler = slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug})
	} else {
		handler = slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo})
	}
	slog.SetDefault(slog.New(handler))
}

func initTracer(ctx context.Context, cfg *config.Config) (*sdktrace.TracerProvider, error) {
	exporter, err := otlptracegrpc.New(ctx,
		otlptracegrpc.WithEndpoint(cfg.OtelEndpoint),
		otlptracegrpc.WithInsecure(), // En prod, gérez le TLS
	)
	if err != nil {
		return nil, err
	}

	res, err := resource.New(ctx,
		resource.WithAttributes(
			semconv.ServiceNameKey.String(cfg.ServiceName),
			semconv.ServiceVersionKey.String("1.0.0"),
			semconv.DeploymentEnvironmentKey.String(cfg.Env),
		),
	)
	if err != nil {
		return nil, err
	}

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(res),
	)

	otel.SetTracerProvider(tp)
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(propagation.TraceContext{}, propagation.Baggage{}))

	return tp, nil
}
