package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/PhilHem/timeremaining/backend/auth"
	"github.com/PhilHem/timeremaining/backend/config"
	"github.com/PhilHem/timeremaining/backend/database"
	"github.com/PhilHem/timeremaining/backend/handlers"
	"github.com/PhilHem/timeremaining/backend/logger"
	"github.com/PhilHem/timeremaining/backend/middleware"
	"github.com/PhilHem/timeremaining/backend/session"
	"github.com/PhilHem/timeremaining/backend/store"
	"github.com/PhilHem/timeremaining/backend/totp"
)

func main() {
	configPath := os.Getenv("CONFIG_FILE")
	if configPath == "" {
		configPath = "config.yaml"
	}

	// Load configuration
	if err := config.Load(configPath); err != nil {
		log.Fatal("Failed to load config:", err)
	}
	if err := config.C.Validate(); err != nil {
		log.Fatal("Invalid config:\n", err)
	}

	db, err := database.Open(config.C.DatabasePath)
	if err != nil {
		log.Fatal("Failed to init database:", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Initialize structured logging
	slog.SetDefault(logger.New(config.C.Logs.Level, db, config.C.Logs.Persist))
	if config.C.Logs.Persist {
		go logger.CleanupOldLogs(ctx, db, config.C.Logs.Retention, time.Hour)
	}

	st, err := store.NewGormStore(db, config.C.Password)
	if err != nil {
		log.Fatal("Failed to init store:", err)
	}

	// Initialize session issuer with configured secret and timeout
	issuer, err := session.NewIssuer(config.C.Session.Secret, config.C.Session.Timeout, config.C.Session.Secure)
	if err != nil {
		log.Fatal("Failed to init session:", err)
	}

	svc := auth.NewService(st, issuer, totp.NewVerifier(config.C.TOTP.Window), auth.Options{
		Timeout:      config.C.StoreTimeout,
		PendingTTL:   config.C.TOTP.PendingTTL,
		PreventReuse: config.C.TOTP.PreventReuse,
	})

	mux := http.NewServeMux()
	handlers.New(svc, issuer, handlers.Options{
		AppID:        config.C.Validation.AppID,
		AppSecret:    []byte(config.C.Validation.AppSecret),
		MaxBodyBytes: config.C.Validation.MaxBodyBytes,
	}).Register(mux)

	// Wrap all routes with security headers and request logging
	handler := middleware.RequestLogger(middleware.SecurityHeaders(mux))

	srv := &http.Server{
		Addr:              config.C.Listen,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			slog.Error("shutdown failed", "source", "main", "error", err.Error())
		}
	}()

	slog.Info("server starting", "source", "main", "listen", config.C.Listen, "tls", config.C.TLS.Enabled)
	fmt.Printf("Server running at %s\n", config.C.Listen)

	if config.C.TLS.Enabled {
		err = srv.ListenAndServeTLS(config.C.TLS.Cert, config.C.TLS.Key)
	} else {
		err = srv.ListenAndServe()
	}
	if !errors.Is(err, http.ErrServerClosed) {
		log.Fatal(err)
	}
	slog.Info("server stopped", "source", "main")
}
