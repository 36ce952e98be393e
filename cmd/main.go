package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/Shopify/sarama"
	"github.com/gin-gonic/gin"
	"github.com/golang-migrate/migrate/v4"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/jmoiron/sqlx"
	"github.com/joho/godotenv"
	"github.com/practice-sem-2/chat-rooms-service/internal/auth"
	"github.com/practice-sem-2/chat-rooms-service/internal/notifications"
	"github.com/practice-sem-2/chat-rooms-service/internal/server"
	storage "github.com/practice-sem-2/chat-rooms-service/internal/storages"
	usecase "github.com/practice-sem-2/chat-rooms-service/internal/usecases"
	"github.com/practice-sem-2/chat-rooms-service/migrations"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	"github.com/spf13/viper"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	"google.golang.org/grpc/health/grpc_health_v1"
)

func initLogger(level string) *logrus.Logger {

	logger := logrus.New()
	logger.SetFormatter(&logrus.JSONFormatter{})

	logLevel, err := logrus.ParseLevel(level)
	if err != nil {
		logger.SetLevel(logrus.InfoLevel)
		logger.
			WithField("log_level", level).
			Warning("specified invalid log level")
	} else {
		logger.SetLevel(logLevel)
		logger.
			WithField("log_level", level).
			Infof("specified %s log level", logLevel.String())
	}

	return logger
}

func initConfig() {
	viper.SetDefault("UPDATES_TOPIC", "chat-updates")
	viper.SetDefault("JOIN_LIMIT", 5)
	viper.SetDefault("JOIN_WINDOW", time.Minute)
	viper.SetDefault("SMTP_PORT", 587)
	viper.SetDefault("SMTP_TIMEOUT", 10*time.Second)
	viper.SetDefault("GRPC_PORT", 9090)
	viper.SetDefault("MAX_ID_ATTEMPTS", usecase.DefaultConfig().MaxIdAttempts)
	viper.AutomaticEnv()
}

func initDB(dsn string, logger *logrus.Logger) *sqlx.DB {
	db, err := sqlx.Connect("pgx", dsn)
	if err != nil {
		logger.Fatalf("can't connect to database: %s", err.Error())
	}

	err = db.Ping()

	if err != nil {
		logger.Fatalf("database ping failed: %s", err.Error())
	}

	logger.Info("successfully connected to database")
	return db
}

func runMigrations(dsn string, logger *logrus.Logger) {
	m, err := migrations.New(dsn)
	if err != nil {
		logger.Fatalf("can't open migrations: %s", err.Error())
	}
	defer m.Close()

	err = m.Up()
	if err != nil && !errors.Is(err, migrate.ErrNoChange) {
		logger.Fatalf("failed to migrate database: %s", err.Error())
	}

	version, _, _ := m.Version()
	logger.WithField("version", version).Info("database migrated")
}

// initProducer returns nil when no brokers are configured, which disables updates.
func initProducer(logger *logrus.Logger) sarama.SyncProducer {
	brokers := viper.GetString("KAFKA_BROKERS")
	if len(brokers) == 0 {
		logger.Warning("KAFKA_BROKERS is not defined, chat updates are disabled")
		return nil
	}

	addrs := strings.Split(brokers, ",")
	config := sarama.NewConfig()
	config.Producer.Partitioner = sarama.NewHashPartitioner
	config.Producer.RequiredAcks = sarama.WaitForLocal
	config.Producer.Timeout = 10 * time.Second
	config.Producer.Return.Successes = true
	producer, err := sarama.NewSyncProducer(addrs, config)

	if err != nil {
		logger.WithError(err).Fatalf("can't create producer")
	}

	return producer
}

func initRedis(ctx context.Context, logger *logrus.Logger) *redis.Client {
	addr := viper.GetString("REDIS_ADDR")
	if len(addr) == 0 {
		logger.Warning("REDIS_ADDR is not defined, join rate limiting is disabled")
		return nil
	}

	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: viper.GetString("REDIS_PASSWORD"),
		DB:       viper.GetInt("REDIS_DB"),
	})

	if err := client.Ping(ctx).Err(); err != nil {
		logger.Fatalf("redis ping failed: %s", err.Error())
	}

	logger.Info("successfully connected to redis")
	return client
}

func initNotifier(logger *logrus.Logger) usecase.Notifier {
	host := viper.GetString("SMTP_HOST")
	if len(host) == 0 {
		logger.Warning("SMTP_HOST is not defined, invites are only logged")
		return notifications.NewLogSender(logger)
	}

	sender, err := notifications.NewEmailSender(notifications.SMTPConfig{
		Host:     host,
		Port:     viper.GetInt("SMTP_PORT"),
		Username: viper.GetString("SMTP_USERNAME"),
		Password: viper.GetString("SMTP_PASSWORD"),
		From:     viper.GetString("SMTP_FROM"),
		Timeout:  viper.GetDuration("SMTP_TIMEOUT"),
	})
	if err != nil {
		logger.Fatalf("can't create email sender: %s", err.Error())
	}

	return sender
}

func initHealthServer(address string, ping func(ctx context.Context) error, logger *logrus.Logger) (*grpc.Server, *health.Server, net.Listener) {

	listener, err := net.Listen("tcp", address)
	logger.Infof("grpc health listening on %s", address)

	if err != nil {
		logger.Fatalf("can't listen to address: %s", err.Error())
	}

	grpcServer := grpc.NewServer()
	healthServer := health.NewServer()
	grpc_health_v1.RegisterHealthServer(grpcServer, healthServer)

	go watchHealth(healthServer, ping)

	return grpcServer, healthServer, listener
}

func watchHealth(hs *health.Server, ping func(ctx context.Context) error) {
	ticker := time.NewTicker(10 * time.Second)
	defer ticker.Stop()

	for {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		status := grpc_health_v1.HealthCheckResponse_SERVING
		if ping(ctx) != nil {
			status = grpc_health_v1.HealthCheckResponse_NOT_SERVING
		}
		cancel()
		hs.SetServingStatus("", status)

		<-ticker.C
	}
}

func main() {
	_ = godotenv.Load()
	initConfig()
	ctx := context.Background()

	var host string
	var port int
	var logLevel string

	flag.IntVar(&port, "port", 80, "port on which server will be started")
	flag.StringVar(&host, "host", "0.0.0.0", "host on which server will be started")
	flag.StringVar(&logLevel, "log", "info", "log level")

	flag.Parse()

	logger := initLogger(logLevel)

	dsn := viper.GetString("DB_DSN")
	if viper.GetBool("MIGRATE_ON_START") {
		runMigrations(dsn, logger)
	}

	db := initDB(dsn, logger)
	defer func(db *sqlx.DB) {
		err := db.Close()
		if err != nil {
			logger.Errorf("during db connection close an error occurred: %s", err.Error())
		}
	}(db)

	producer := initProducer(logger)
	if producer != nil {
		defer producer.Close()
	}

	store := storage.NewRegistry(db, producer, &storage.UpdatesStoreConfig{
		UpdatesTopic: viper.GetString("UPDATES_TOPIC"),
	})

	chatsUsecase := usecase.NewChatsUsecase(store, initNotifier(logger), logger, usecase.Config{
		StrictChatChecks: viper.GetBool("STRICT_CHAT_CHECKS"),
		MaxIdAttempts:    viper.GetInt("MAX_ID_ATTEMPTS"),
		NotifyTimeout:    viper.GetDuration("SMTP_TIMEOUT"),
	})

	verifier, err := auth.NewVerifierFromFile(viper.GetString("JWT_PUBLIC_KEY_PATH"))

	if err != nil {
		logger.Fatalf("verifier can't read public key: %s", err.Error())
	}

	opts := []server.Option{server.WithHealthCheck(store.Ping)}
	if client := initRedis(ctx, logger); client != nil {
		defer client.Close()
		opts = append(opts, server.WithJoinLimiter(storage.NewLimitsStorage(client, storage.LimitsConfig{
			JoinLimit:  viper.GetInt("JOIN_LIMIT"),
			JoinWindow: viper.GetDuration("JOIN_WINDOW"),
		})))
	}

	if logger.GetLevel() < logrus.DebugLevel {
		gin.SetMode(gin.ReleaseMode)
	}

	chatServer := server.NewChatServer(chatsUsecase, verifier, logger, opts...)
	address := fmt.Sprintf("%s:%d", host, port)
	srv := &http.Server{
		Addr:              address,
		Handler:           chatServer.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	grpcAddress := fmt.Sprintf("%s:%d", host, viper.GetInt("GRPC_PORT"))
	grpcSrv, healthSrv, lis := initHealthServer(grpcAddress, store.Ping, logger)
	go func() {
		if err := grpcSrv.Serve(lis); err != nil {
			logger.Errorf("grpc serving error: %s", err.Error())
		}
	}()

	osSignal := make(chan os.Signal, 1)
	signal.Notify(osSignal,
		syscall.SIGHUP,
		syscall.SIGINT,
		syscall.SIGTERM,
		syscall.SIGQUIT)

	stopped := make(chan struct{})
	go func() {
		defer close(stopped)
		sig := <-osSignal
		logger.Infof("%s caught. Gracefully shutdown", sig.String())

		healthSrv.Shutdown()
		grpcSrv.GracefulStop()

		shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Errorf("http shutdown error: %s", err.Error())
		}
	}()

	logger.Infof("start listening on %s", address)
	err = srv.ListenAndServe()
	if err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Fatalf("http serving error: %s", err.Error())
	}
	<-stopped
}
