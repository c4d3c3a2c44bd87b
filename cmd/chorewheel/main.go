package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"chorewheel/internal/backup"
	"chorewheel/internal/database"
	"chorewheel/internal/jobs"
	"chorewheel/internal/logging"
	"chorewheel/internal/server"
)

func main() {
	port := envOr("CHOREWHEEL_PORT", "8080")
	dbPath := envOr("CHOREWHEEL_DB_PATH", "chorewheel.db")

	logger := logging.Setup(os.Getenv("CHOREWHEEL_LOG_LEVEL"), os.Getenv("CHOREWHEEL_LOG_FORMAT"))

	db, err := database.Open(dbPath)
	if err != nil {
		log.Fatalf("failed to open database: %v", err)
	}
	defer db.Close()

	retention, _ := strconv.Atoi(os.Getenv("CHOREWHEEL_BACKUP_RETENTION_DAYS"))
	cfg := server.Config{
		VAPIDPublicKey:  os.Getenv("CHOREWHEEL_VAPID_PUBLIC_KEY"),
		VAPIDPrivateKey: os.Getenv("CHOREWHEEL_VAPID_PRIVATE_KEY"),
		PushSubscriber:  envOr("CHOREWHEEL_PUSH_SUBSCRIBER", "mailto:admin@localhost"),
		Backup: backup.Config{
			S3: backup.S3Config{
				Endpoint:  os.Getenv("CHOREWHEEL_S3_ENDPOINT"),
				Bucket:    os.Getenv("CHOREWHEEL_S3_BUCKET"),
				Region:    envOr("CHOREWHEEL_S3_REGION", "auto"),
				AccessKey: os.Getenv("CHOREWHEEL_S3_ACCESS_KEY"),
				SecretKey: os.Getenv("CHOREWHEEL_S3_SECRET_KEY"),
			},
			DBPath:        dbPath,
			RetentionDays: retention,
		},
	}

	srv := server.New(db, cfg, logger)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	scheduler := jobs.NewScheduler(
		srv.Generator(),
		srv.HouseholdStore(),
		srv.SessionStore(),
		srv.BackupManager(),
		srv.Notifier(),
		logger,
	)
	if err := scheduler.Start(ctx); err != nil {
		log.Fatalf("failed to start scheduler: %v", err)
	}
	defer scheduler.Stop()

	srv.RateLimiter().StartCleanup(ctx, 5*time.Minute)

	httpServer := &http.Server{
		Addr:         ":" + port,
		Handler:      srv.Router(),
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	go func() {
		fmt.Printf("Chorewheel running at http://localhost:%s\n", port)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("server error: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	fmt.Println("\nShutting down...")
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Fatalf("shutdown error: %v", err)
	}
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
