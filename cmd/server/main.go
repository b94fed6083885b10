// Package main initializes and starts the StudyDesk API server, setting up
// configuration, logging, the database connection, repositories, services,
// handlers and optional TLS.
package main

import (
	"cmp"
	"context"
	"crypto/tls"
	"crypto/x509"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	nethttp "net/http"

	"github.com/atinyakov/StudyDesk/internal/config"
	"github.com/atinyakov/StudyDesk/internal/db"
	"github.com/atinyakov/StudyDesk/internal/logger"
	"github.com/atinyakov/StudyDesk/internal/repository"
	"github.com/atinyakov/StudyDesk/internal/server/handler/http"
	"github.com/atinyakov/StudyDesk/internal/service"
	"go.uber.org/zap"
)

var (
	// version holds the build version set via ldflags.
	version string
	// buildDate holds the build timestamp set via ldflags.
	buildDate string
)

const shutdownTimeout = 10 * time.Second

func main() {
	// Parse command-line, file and environment configuration.
	options := config.Parse()

	fmt.Printf("Build version: %s\n", cmp.Or(version, "N/A"))
	fmt.Printf("Build date: %s\n", cmp.Or(buildDate, "N/A"))

	log := logger.New()
	defer func() { _ = log.Log.Sync() }()
	if err := log.Init(options.LogLevel, logger.WithFile(logger.FileOptions{Path: options.LogFile})); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	zapLogger := log.Log

	if options.JWTSecret == "" && !options.TLSEnabled() {
		zapLogger.Warn("no JWT secret and no TLS configured: every API request will be rejected")
	}

	postgresDB, err := db.InitPostgres(options.DatabaseDSN)
	if err != nil {
		zapLogger.Fatal("cannot init database", zap.Error(err))
	}
	defer postgresDB.Close()

	// Repositories.
	userRepo := repository.NewPostgresUserRepository(postgresDB)
	noteRepo := repository.NewPostgresNoteRepository(postgresDB)
	planRepo := repository.NewPostgresPlanRepository(postgresDB)
	todoRepo := repository.NewPostgresTodoRepository(postgresDB)

	// Services.
	userService := service.NewUserService(userRepo)
	noteService := service.NewNoteService(noteRepo)
	planService := service.NewPlanService(planRepo, todoRepo)
	todoService := service.NewTodoService(todoRepo, planRepo)

	handlers := http.Handlers{
		Notes: &http.NoteHandler{NoteService: noteService, Logger: zapLogger},
		Plans: &http.PlanHandler{PlanService: planService, Logger: zapLogger},
		Todos: &http.TodoHandler{TodoService: todoService, Logger: zapLogger},
		Users: &http.UserHandler{UserService: userService, Logger: zapLogger},
	}
	router := http.NewRouter(handlers, userService, []byte(options.JWTSecret), zapLogger)

	server := &nethttp.Server{
		Addr:              options.Port,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
	}
	if options.TLSEnabled() {
		tlsConfig, err := serverTLS(options)
		if err != nil {
			zapLogger.Fatal("failed to configure TLS", zap.Error(err))
		}
		server.TLSConfig = tlsConfig
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		zapLogger.Info("starting server",
			zap.String("addr", options.Port),
			zap.Bool("tls", options.TLSEnabled()),
		)
		if options.TLSEnabled() {
			errCh <- server.ListenAndServeTLS("", "")
		} else {
			errCh <- server.ListenAndServe()
		}
	}()

	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, nethttp.ErrServerClosed) {
			zapLogger.Fatal("server failed", zap.Error(err))
		}
	case <-ctx.Done():
		zapLogger.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			zapLogger.Error("graceful shutdown failed", zap.Error(err))
		}
	}
}

// serverTLS loads the server key pair and, if configured, the CA that
// verifies client certificates. Client certificates are optional; a bearer
// token still authenticates requests without one.
func serverTLS(options *config.Options) (*tls.Config, error) {
	cert, err := tls.LoadX509KeyPair(options.TLSCert, options.TLSKey)
	if err != nil {
		return nil, fmt.Errorf("load server TLS cert/key: %w", err)
	}
	cfg := &tls.Config{
		Certificates: []tls.Certificate{cert},
		MinVersion:   tls.VersionTLS12,
	}
	if options.TLSClientCA == "" {
		return cfg, nil
	}

	caCert, err := os.ReadFile(options.TLSClientCA)
	if err != nil {
		return nil, fmt.Errorf("read client CA cert: %w", err)
	}
	pool := x509.NewCertPool()
	if ok := pool.AppendCertsFromPEM(caCert); !ok {
		return nil, errors.New("failed to append client CA cert to pool")
	}
	cfg.ClientCAs = pool
	cfg.ClientAuth = tls.VerifyClientCertIfGiven
	return cfg, nil
}
