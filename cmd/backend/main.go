package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"filedrive/internal/db"
	"filedrive/internal/server"
)

func main() {
	// A .env file is a convenience for local development; absence is fine.
	_ = godotenv.Load()

	addr := getenvDefault("FD_ADDR", ":8080")

	build := server.BuildInfo{
		Version: getenvDefault("FD_VERSION", "dev"),
		Commit:  getenvDefault("FD_COMMIT", "unknown"),
	}

	auth := server.AuthConfig{
		SessionSecret: os.Getenv("FD_SESSION_SECRET"),
		SessionTTL:    12 * time.Hour,
		CookieName:    "fd_session",
	}
	if auth.SessionSecret == "" {
		log.Printf("service=backend msg=%q", "missing FD_SESSION_SECRET")
		os.Exit(1)
	}

	dbConn, err := server.OpenDB(os.Getenv("DATABASE_URL"))
	if err != nil {
		log.Printf("service=backend msg=%q err=%v", "db_connect_failed", err)
		os.Exit(1)
	}
	defer func() { _ = dbConn.Close() }()

	log.Printf("service=backend msg=%q", "running_migrations")
	if err := db.RunMigrations(dbConn); err != nil {
		log.Printf("service=backend msg=%q err=%v", "migration_failed", err)
		os.Exit(1)
	}

	storageKind := getenvDefault("FD_STORAGE", "local")
	blobs, err := server.NewBlobStore(storageKind, getenvDefault("FD_UPLOAD_DIR", "uploads"))
	if err != nil {
		log.Printf("service=backend msg=%q err=%v", "storage_init_failed", err)
		os.Exit(1)
	}

	maxUpload, err := parseMaxUploadBytes()
	if err != nil {
		log.Printf("service=backend msg=%q err=%v", "bad_FD_MAX_UPLOAD_BYTES", err)
		os.Exit(1)
	}

	srv := server.New(server.Config{
		Addr:             addr,
		Build:            build,
		Auth:             auth,
		DB:               dbConn,
		Blobs:            blobs,
		EnforceOwnership: os.Getenv("FD_ENFORCE_OWNERSHIP") == "true",
		MaxUploadBytes:   maxUpload,
	})

	errCh := make(chan error, 1)
	go func() {
		log.Printf("service=backend msg=%q addr=%s storage=%s version=%s",
			"starting", addr, storageKind, build.Version)
		errCh <- srv.Start()
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		log.Printf("service=backend msg=%q signal=%s", "shutting_down", sig.String())
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(ctx); err != nil {
			log.Printf("service=backend msg=%q err=%v", "shutdown_error", err)
			os.Exit(1)
		}
		log.Printf("service=backend msg=%q", "shutdown_complete")
	case err := <-errCh:
		if err != nil {
			log.Printf("service=backend msg=%q err=%v", "server_error", err)
			os.Exit(1)
		}
	}
}

func parseMaxUploadBytes() (int64, error) {
	raw := os.Getenv("FD_MAX_UPLOAD_BYTES")
	if raw == "" {
		return 0, nil // no limit configured
	}
	return strconv.ParseInt(raw, 10, 64)
}

func getenvDefault(key, def string) string {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	return v
}
