package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"github.com/Skotchmaster/meetsync/internal/config"
	"github.com/Skotchmaster/meetsync/internal/db"
	"github.com/Skotchmaster/meetsync/internal/es"
	"github.com/Skotchmaster/meetsync/internal/handlers"
	"github.com/Skotchmaster/meetsync/internal/logging"
	authmw "github.com/Skotchmaster/meetsync/internal/middleware/auth"
	loggingmw "github.com/Skotchmaster/meetsync/internal/middleware/logging"
	"github.com/Skotchmaster/meetsync/internal/mykafka"
	"github.com/Skotchmaster/meetsync/internal/repo"
	"github.com/Skotchmaster/meetsync/internal/service"
	"github.com/Skotchmaster/meetsync/internal/stream"
	"github.com/Skotchmaster/meetsync/internal/tokens"
	httpserver "github.com/Skotchmaster/meetsync/internal/transport/http"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("config_error", "error", err)
		os.Exit(1)
	}

	l := logging.New(cfg.LogLevel)
	slog.SetDefault(l)

	ctx := context.Background()
	gdb, err := db.Open(ctx, cfg.DBDriver, cfg.DatabaseURL)
	if err != nil {
		l.Error("db_open_failed", "driver", cfg.DBDriver, "error", err)
		os.Exit(1)
	}
	if err := db.Migrate(gdb); err != nil {
		l.Error("db_migrate_failed", "error", err)
		os.Exit(1)
	}
	users := repo.NewGormRepo(gdb)

	streamClient := stream.NewClient(cfg.StreamAPIKey, cfg.StreamSecret, cfg.StreamBaseURL, cfg.StreamTimeout)
	bridge := stream.NewBridge(streamClient, cfg.StreamTimeout)
	sessions := tokens.NewSessionIssuer(cfg.JWTSecret)

	authSvc := &service.AuthService{Repo: users, Tokens: sessions, Stream: bridge, AdminEmails: cfg.AdminEmails}
	meetingSvc := &service.MeetingService{
		Calls:    streamClient,
		CallType: cfg.StreamCallType,
		Timeout:  cfg.StreamTimeout,
	}

	var prod *mykafka.Producer
	if len(cfg.KafkaBrokers) > 0 {
		prod, err = mykafka.NewProducer(cfg.KafkaBrokers, l)
		if err != nil {
			l.Error("kafka_init_failed", "error", err)
			os.Exit(1)
		}
		authSvc.Events = prod
		meetingSvc.Events = prod
	} else {
		l.Info("kafka_disabled")
	}

	if cfg.ESURL != "" {
		esClient, err := es.NewClient(cfg, l)
		if err != nil {
			l.Error("es_init_failed", "error", err)
			os.Exit(1)
		}
		meetingSvc.Directory = es.NewDirectory(esClient, cfg.ESIndex)
	} else {
		l.Info("meeting_directory_disabled")
	}

	e := echo.New()
	e.HideBanner = true
	e.Pre(middleware.RemoveTrailingSlash())
	e.Use(
		middleware.Recover(),
		middleware.RequestID(),
		middleware.Secure(),
		middleware.CORSWithConfig(middleware.CORSConfig{
			AllowOrigins:     []string{cfg.CORSOrigin},
			AllowMethods:     []string{http.MethodGet, http.MethodPost, http.MethodOptions},
			AllowHeaders:     []string{echo.HeaderContentType, echo.HeaderAuthorization},
			AllowCredentials: true,
		}),
		loggingmw.RequestLogger(l),
	)

	httpserver.Register(e, &httpserver.Deps{
		AuthHandler:    &handlers.AuthHandler{Auth: authSvc, SecureCookies: cfg.IsProduction()},
		MeetingHandler: &handlers.MeetingHandler{Meetings: meetingSvc},
		Gate:           authmw.NewGate(sessions, users),
	})

	srv := &http.Server{
		Addr:         cfg.Addr(),
		Handler:      e,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
	go func() {
		l.Info("http_listening", "addr", srv.Addr, "env", cfg.Env)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			l.Error("http_server_error", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	go func() {
		<-quit
		l.Warn("force exit")
		os.Exit(1)
	}()

	l.Info("shutting down...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		l.Error("server_shutdown_error", "error", err)
	}
	if err := db.Close(gdb); err != nil {
		l.Error("db_close_error", "error", err)
	}
	if prod != nil {
		if err := prod.Close(); err != nil {
			l.Error("kafka_close_error", "error", err)
		}
	}

	l.Info("shutdown complete")
}
