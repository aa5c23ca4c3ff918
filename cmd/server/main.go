package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/audiolyze/server/internal/app"
)

type configVar[T any] struct {
	envKey       string
	flagKey      string
	defaultValue T
}

var (
	host = configVar[string]{
		envKey:       "SERVER_HOST",
		flagKey:      "host",
		defaultValue: "0.0.0.0",
	}
	port = configVar[int]{
		envKey:       "SERVER_PORT",
		flagKey:      "port",
		defaultValue: 8080,
	}
	logLevel = configVar[string]{
		envKey:       "SERVER_LOG_LEVEL",
		flagKey:      "log-level",
		defaultValue: "INFO",
	}
	queueLockedHead = configVar[int]{
		envKey:       "SERVER_QUEUE_LOCKED_HEAD",
		flagKey:      "queue-locked-head",
		defaultValue: 3,
	}
	gracePeriodSec = configVar[int]{
		envKey:       "SERVER_GRACE_PERIOD_SEC",
		flagKey:      "grace-period-sec",
		defaultValue: 60,
	}
	chatJoinReplay = configVar[int]{
		envKey:       "SERVER_CHAT_JOIN_REPLAY",
		flagKey:      "chat-join-replay",
		defaultValue: 50,
	}
	sessionExpHours = configVar[int]{
		envKey:       "SERVER_SESSION_EXP_HOURS",
		flagKey:      "session-exp-hours",
		defaultValue: 24,
	}
	redisHost = configVar[string]{
		envKey:       "REDIS_HOST",
		flagKey:      "redis-host",
		defaultValue: "localhost",
	}
	redisPort = configVar[int]{
		envKey:       "REDIS_PORT",
		flagKey:      "redis-port",
		defaultValue: 6379,
	}
	redisPassword = configVar[string]{
		envKey:       "REDIS_PASSWORD",
		flagKey:      "redis-password",
		defaultValue: "",
	}
	minioEndpoint = configVar[string]{
		envKey:       "MINIO_ENDPOINT",
		flagKey:      "minio-endpoint",
		defaultValue: "",
	}
	minioAccessKey = configVar[string]{
		envKey:       "MINIO_ACCESS_KEY",
		flagKey:      "minio-access-key",
		defaultValue: "",
	}
	minioSecretKey = configVar[string]{
		envKey:       "MINIO_SECRET_KEY",
		flagKey:      "minio-secret-key",
		defaultValue: "",
	}
	minioBucket = configVar[string]{
		envKey:       "MINIO_BUCKET",
		flagKey:      "minio-bucket",
		defaultValue: "audiolyze-media",
	}
	minioUseSSL = configVar[bool]{
		envKey:       "MINIO_USE_SSL",
		flagKey:      "minio-use-ssl",
		defaultValue: false,
	}
)

func loadAppConfig() *app.AppConfig {
	pflag.String(host.flagKey, host.defaultValue, "Server host")
	pflag.Int(port.flagKey, port.defaultValue, "Server port")
	pflag.String(logLevel.flagKey, logLevel.defaultValue, "Logging level")
	pflag.Int(queueLockedHead.flagKey, queueLockedHead.defaultValue, "Number of leading queue items locked against reordering")
	pflag.Int(gracePeriodSec.flagKey, gracePeriodSec.defaultValue, "Seconds a disconnected member keeps its identity")
	pflag.Int(chatJoinReplay.flagKey, chatJoinReplay.defaultValue, "Chat messages replayed to a joining member")
	pflag.Int(sessionExpHours.flagKey, sessionExpHours.defaultValue, "Hours before idle session keys expire")
	pflag.String(redisHost.flagKey, redisHost.defaultValue, "Redis host")
	pflag.Int(redisPort.flagKey, redisPort.defaultValue, "Redis port")
	pflag.String(redisPassword.flagKey, redisPassword.defaultValue, "Redis password")
	pflag.String(minioEndpoint.flagKey, minioEndpoint.defaultValue, "MinIO endpoint, empty disables uploads")
	pflag.String(minioAccessKey.flagKey, minioAccessKey.defaultValue, "MinIO access key")
	pflag.String(minioSecretKey.flagKey, minioSecretKey.defaultValue, "MinIO secret key")
	pflag.String(minioBucket.flagKey, minioBucket.defaultValue, "MinIO bucket for uploaded audio")
	pflag.Bool(minioUseSSL.flagKey, minioUseSSL.defaultValue, "Use TLS for MinIO")
	pflag.Parse()

	viper.BindPFlags(pflag.CommandLine)

	viper.BindEnv(host.flagKey, host.envKey)
	viper.BindEnv(port.flagKey, port.envKey)
	viper.BindEnv(logLevel.flagKey, logLevel.envKey)
	viper.BindEnv(queueLockedHead.flagKey, queueLockedHead.envKey)
	viper.BindEnv(gracePeriodSec.flagKey, gracePeriodSec.envKey)
	viper.BindEnv(chatJoinReplay.flagKey, chatJoinReplay.envKey)
	viper.BindEnv(sessionExpHours.flagKey, sessionExpHours.envKey)
	viper.BindEnv(redisHost.flagKey, redisHost.envKey)
	viper.BindEnv(redisPort.flagKey, redisPort.envKey)
	viper.BindEnv(redisPassword.flagKey, redisPassword.envKey)
	viper.BindEnv(minioEndpoint.flagKey, minioEndpoint.envKey)
	viper.BindEnv(minioAccessKey.flagKey, minioAccessKey.envKey)
	viper.BindEnv(minioSecretKey.flagKey, minioSecretKey.envKey)
	viper.BindEnv(minioBucket.flagKey, minioBucket.envKey)
	viper.BindEnv(minioUseSSL.flagKey, minioUseSSL.envKey)

	viper.SetDefault(host.flagKey, host.defaultValue)
	viper.SetDefault(port.flagKey, port.defaultValue)
	viper.SetDefault(logLevel.flagKey, logLevel.defaultValue)
	viper.SetDefault(queueLockedHead.flagKey, queueLockedHead.defaultValue)
	viper.SetDefault(gracePeriodSec.flagKey, gracePeriodSec.defaultValue)
	viper.SetDefault(chatJoinReplay.flagKey, chatJoinReplay.defaultValue)
	viper.SetDefault(sessionExpHours.flagKey, sessionExpHours.defaultValue)
	viper.SetDefault(redisHost.flagKey, redisHost.defaultValue)
	viper.SetDefault(redisPort.flagKey, redisPort.defaultValue)
	viper.SetDefault(redisPassword.flagKey, redisPassword.defaultValue)
	viper.SetDefault(minioEndpoint.flagKey, minioEndpoint.defaultValue)
	viper.SetDefault(minioAccessKey.flagKey, minioAccessKey.defaultValue)
	viper.SetDefault(minioSecretKey.flagKey, minioSecretKey.defaultValue)
	viper.SetDefault(minioBucket.flagKey, minioBucket.defaultValue)
	viper.SetDefault(minioUseSSL.flagKey, minioUseSSL.defaultValue)

	config := &app.AppConfig{
		Host:            viper.GetString(host.flagKey),
		Port:            viper.GetInt(port.flagKey),
		LogLevel:        viper.GetString(logLevel.flagKey),
		QueueLockedHead: viper.GetInt(queueLockedHead.flagKey),
		GracePeriodSec:  viper.GetInt(gracePeriodSec.flagKey),
		ChatJoinReplay:  viper.GetInt(chatJoinReplay.flagKey),
		SessionExpHours: viper.GetInt(sessionExpHours.flagKey),
		RedisHost:       viper.GetString(redisHost.flagKey),
		RedisPort:       viper.GetInt(redisPort.flagKey),
		RedisPassword:   viper.GetString(redisPassword.flagKey),
		MinioEndpoint:   viper.GetString(minioEndpoint.flagKey),
		MinioAccessKey:  viper.GetString(minioAccessKey.flagKey),
		MinioSecretKey:  viper.GetString(minioSecretKey.flagKey),
		MinioBucket:     viper.GetString(minioBucket.flagKey),
		MinioUseSSL:     viper.GetBool(minioUseSSL.flagKey),
	}

	return config
}

func main() {
	cfg := loadAppConfig()
	if err := cfg.Validate(); err != nil {
		log.Fatal(err)
	}

	cfgJSON, _ := json.Marshal(cfg)
	fmt.Printf("starting with config: %s\n", cfgJSON)

	if err := app.Run(context.Background(), cfg); err != nil {
		log.Fatal(err)
	}
}
