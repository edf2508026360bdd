package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/pawradar/pawradar/internal/database"
	"github.com/pawradar/pawradar/internal/dispatch"
	"github.com/pawradar/pawradar/internal/logging"
	"github.com/pawradar/pawradar/internal/server"
)

func main() {
	// A missing .env is fine; real deployments set the environment directly.
	_ = godotenv.Load()

	logger := logging.Setup(os.Getenv("PAWRADAR_LOG_LEVEL"), os.Getenv("PAWRADAR_LOG_FORMAT"))

	port := envOr("PAWRADAR_PORT", "8080")
	dbPath := envOr("PAWRADAR_DB_PATH", "pawradar.db")

	authSecret := os.Getenv("PAWRADAR_AUTH_SECRET")
	if authSecret == "" {
		log.Fatal("PAWRADAR_AUTH_SECRET is required")
	}

	db, err := database.Open(dbPath)
	if err != nil {
		log.Fatalf("failed to open database: %v", err)
	}
	defer db.Close()

	cfg := server.Config{
		AuthSecret:      []byte(authSecret),
		GatewayEndpoint: os.Getenv("PAWRADAR_PUSH_GATEWAY_URL"),
		GatewayToken:    os.Getenv("PAWRADAR_PUSH_GATEWAY_TOKEN"),
		VAPIDPublicKey:  os.Getenv("PAWRADAR_VAPID_PUBLIC_KEY"),
		VAPIDPrivateKey: os.Getenv("PAWRADAR_VAPID_PRIVATE_KEY"),
		VAPIDSubscriber: envOr("PAWRADAR_VAPID_SUBSCRIBER", "mailto:ops@pawradar.app"),
		MaxRadiusMeters: envFloat("PAWRADAR_MAX_RADIUS_METERS", 10000),
		Freshness:       envDuration("PAWRADAR_LOCATION_FRESHNESS", 24*time.Hour),
		Dispatch: dispatch.Config{
			Interval:   envDuration("PAWRADAR_SWEEP_INTERVAL", time.Minute),
			BatchLimit: envInt("PAWRADAR_BATCH_LIMIT", 50),
			RetryAge:   envDuration("PAWRADAR_RETRY_AGE", 2*time.Minute),
			Retention:  envDuration("PAWRADAR_RETENTION", 7*24*time.Hour),
		},
	}

	srv := server.New(db, cfg, logger)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	srv.Scheduler().Start(ctx)
	defer srv.Scheduler().Stop()

	// Expired rate-limit windows accumulate without this.
	go func() {
		ticker := time.NewTicker(10 * time.Minute)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				srv.RateLimiter().Cleanup()
			}
		}
	}()

	httpServer := &http.Server{
		Addr:         ":" + port,
		Handler:      srv.Router(),
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	go func() {
		logger.Info("pawradar listening", "port", port)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("server error: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down")
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Fatalf("shutdown error: %v", err)
	}
}

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func envInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return def
}

func envFloat(key string, def float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return def
}

func envDuration(key string, def time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return def
}
