package app

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/audiolyze/server/internal/controller"
	"github.com/audiolyze/server/internal/repository/media/minio"
	sessionRedis "github.com/audiolyze/server/internal/repository/session/redis"
	"github.com/audiolyze/server/internal/repository/wssender"
	"github.com/audiolyze/server/internal/service/session"
	"github.com/audiolyze/server/pkg/ctxlogger"
	"github.com/audiolyze/server/pkg/redisclient"
)

type AppConfig struct {
	Host     string `json:"host"`
	Port     int    `json:"port"`
	LogLevel string `json:"log_level"`

	QueueLockedHead int `json:"queue_locked_head"`
	GracePeriodSec  int `json:"grace_period_sec"`
	ChatJoinReplay  int `json:"chat_join_replay"`
	SessionExpHours int `json:"session_exp_hours"`

	RedisHost     string `json:"redis_host"`
	RedisPort     int    `json:"redis_port"`
	RedisPassword string `json:"-"`

	MinioEndpoint  string `json:"minio_endpoint"`
	MinioAccessKey string `json:"-"`
	MinioSecretKey string `json:"-"`
	MinioBucket    string `json:"minio_bucket"`
	MinioUseSSL    bool   `json:"minio_use_ssl"`
}

func (cfg *AppConfig) Validate() error {
	if cfg.Port < 1 || cfg.Port > 65535 {
		return fmt.Errorf("port must be between 1 and 65535")
	}
	if cfg.QueueLockedHead < 1 {
		return fmt.Errorf("queue locked head must be greater than 0")
	}
	if cfg.GracePeriodSec < 1 {
		return fmt.Errorf("grace period must be greater than 0")
	}
	return nil
}

func Run(ctx context.Context, cfg *AppConfig) error {
	logLevel := slog.LevelInfo
	if err := logLevel.UnmarshalText([]byte(strings.ToUpper(cfg.LogLevel))); err != nil {
		log.Fatal(err)
	}

	h := ctxlogger.ContextHandler{
		Handler: slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
			Level:     logLevel,
			AddSource: true,
		}),
	}

	logger := slog.New(&h)

	rc, err := redisclient.NewRedisClient(&redisclient.Config{
		Host:     cfg.RedisHost,
		Port:     cfg.RedisPort,
		Password: cfg.RedisPassword,
	})
	if err != nil {
		return fmt.Errorf("failed to create redis client: %w", err)
	}
	defer rc.Close()

	sessionRepo := sessionRedis.NewRepo(rc, time.Duration(cfg.SessionExpHours)*time.Hour)
	sender := wssender.NewRepo(logger)

	sessionService := session.NewService(sessionRepo, &session.Config{
		LockedHeadSize: cfg.QueueLockedHead,
		GracePeriod:    time.Duration(cfg.GracePeriodSec) * time.Second,
		ChatJoinReplay: cfg.ChatJoinReplay,
	}, logger)

	var mux http.Handler
	if cfg.MinioEndpoint != "" {
		mediaRepo, err := minio.NewRepo(ctx, &minio.Config{
			Endpoint:  cfg.MinioEndpoint,
			AccessKey: cfg.MinioAccessKey,
			SecretKey: cfg.MinioSecretKey,
			Bucket:    cfg.MinioBucket,
			UseSSL:    cfg.MinioUseSSL,
		})
		if err != nil {
			return fmt.Errorf("failed to create media repo: %w", err)
		}
		mux = controller.NewController(sessionService, sender, mediaRepo, logger).GetMux()
	} else {
		// uploads are disabled without object storage, everything else works
		mux = controller.NewController(sessionService, sender, nil, logger).GetMux()
	}

	server := &http.Server{Addr: fmt.Sprintf("%s:%d", cfg.Host, cfg.Port), Handler: mux}

	// graceful shutdown
	serverCtx, serverStopCtx := context.WithCancel(ctx)

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGHUP, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)
	go func() {
		<-sig

		shutdownCtx, c := context.WithTimeout(serverCtx, 30*time.Second)
		defer c()

		go func() {
			<-shutdownCtx.Done()
			if shutdownCtx.Err() == context.DeadlineExceeded {
				log.Fatal("graceful shutdown timed out.. forcing exit.")
			}
		}()

		err := server.Shutdown(shutdownCtx)
		if err != nil {
			log.Fatal(err)
		}
		serverStopCtx()
	}()

	logger.InfoContext(serverCtx, "starting server", "address", server.Addr)
	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}

	<-serverCtx.Done()

	return nil
}
