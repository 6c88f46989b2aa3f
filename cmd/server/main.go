package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/DoyleJ11/spin-rooms-backend/internal/config"
	"github.com/DoyleJ11/spin-rooms-backend/internal/engine"
	"github.com/DoyleJ11/spin-rooms-backend/internal/httpapi"
	"github.com/DoyleJ11/spin-rooms-backend/internal/hub"
	"github.com/DoyleJ11/spin-rooms-backend/internal/lobby"
	"github.com/DoyleJ11/spin-rooms-backend/internal/logger"
	"github.com/DoyleJ11/spin-rooms-backend/internal/metrics"
	"github.com/DoyleJ11/spin-rooms-backend/internal/notify"
	"github.com/DoyleJ11/spin-rooms-backend/internal/recording"
	"github.com/DoyleJ11/spin-rooms-backend/internal/store"
	"github.com/DoyleJ11/spin-rooms-backend/internal/users"
	"github.com/DoyleJ11/spin-rooms-backend/internal/wallet"
)

func main() {
	cfg := config.Load()
	log, err := logger.New(cfg.ServiceName, cfg.Env)
	if err != nil {
		panic(err)
	}
	defer log.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Redis is only dialled when a backend asks for it
	var rdb *redis.Client
	if cfg.StoreBackend == config.BackendRedis || cfg.RecordingBackend == config.BackendRedis {
		rdb, err = store.ConnectRedis(ctx, cfg.RedisAddr)
		if err != nil {
			log.Fatal("redis", zap.Error(err))
		}
		defer rdb.Close()
	}

	var kv store.KV = store.NewMemoryKV()
	if cfg.StoreBackend == config.BackendRedis {
		kv = store.NewRedisKV(rdb, cfg.RedisPrefix)
	}

	recs, closeRecs, err := openRecordings(cfg, kv, rdb, log)
	if err != nil {
		log.Fatal("recordings", zap.Error(err))
	}
	defer closeRecs()

	seed := cfg.RandomSeed
	if seed == 0 {
		seed = uint64(time.Now().UnixNano())
	}

	var w wallet.Wallet
	switch cfg.WalletBackend {
	case config.WalletHTTP:
		w = wallet.NewClient(cfg.WalletURL)
	default:
		w = wallet.NewStub(cfg.WalletFailureRate, engine.NewSource(seed+2))
	}

	m := metrics.New()
	rooms := store.NewRoomStore(kv)
	userStore := users.NewKVStore(kv)

	h, err := hub.NewHub(ctx, lobby.Deps{
		Store:      rooms,
		Recordings: recs,
		Users:      userStore,
		Wallet:     w,
		Notifier:   notify.NewLogSink(log),
		Metrics:    m,
		Log:        log,
		Tickets:    engine.NewSource(seed),
		Wheel:      engine.NewSource(seed + 1),
		Countdown:  cfg.SpinCountdownSec,
		Tick:       cfg.SpinTick,
	})
	if err != nil {
		log.Fatal("hub", zap.Error(err))
	}

	// metrics/health
	metricsSrv := m.NewServer(cfg.MetricsPort, func(ctx context.Context) error {
		if rdb != nil {
			return rdb.Ping(ctx).Err()
		}
		return nil
	})
	go func() {
		log.Info("metrics/health", zap.String("addr", metricsSrv.Addr))
		if err := metricsSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("metrics server", zap.Error(err))
		}
	}()

	apiSrv := &http.Server{
		Addr: fmt.Sprintf(":%s", cfg.HTTPPort),
		Handler: httpapi.SetupRoutes(httpapi.API{
			Hub:        h,
			Recordings: recs,
			Users:      userStore,
			Log:        log,
		}),
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		log.Info("spin-rooms listening", zap.String("addr", apiSrv.Addr))
		if err := apiSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("api", zap.Error(err))
		}
	}()

	<-ctx.Done()
	log.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownGrace)
	defer cancel()
	_ = apiSrv.Shutdown(shutdownCtx)
	_ = metricsSrv.Shutdown(shutdownCtx)

	select {
	case h.Inbox() <- hub.ShutdownHub{}:
	case <-h.Done():
	}
	<-h.Done()
}

// openRecordings picks the recording log backend and wraps it with the
// room_finished publisher when Kafka brokers are configured.
func openRecordings(cfg config.Config, kv store.KV, rdb *redis.Client, log *zap.Logger) (recording.Log, func(), error) {
	closers := []func(){}
	closeAll := func() {
		for _, c := range closers {
			c()
		}
	}

	var recs recording.Log
	switch cfg.RecordingBackend {
	case config.BackendRedis:
		recs = recording.NewRedisLog(rdb, cfg.RedisPrefix)
	case config.BackendPostgres:
		db, err := recording.OpenPostgres(cfg.PostgresDSN)
		if err != nil {
			return nil, closeAll, err
		}
		if sqlDB, err := db.DB(); err == nil {
			closers = append(closers, func() { _ = sqlDB.Close() })
		}
		recs = recording.NewGormLog(db)
	default:
		recs = recording.NewKVLog(kv)
	}

	if cfg.KafkaBrokers != "" {
		writer := recording.NewKafkaWriter(strings.Split(cfg.KafkaBrokers, ","), cfg.TopicRoomFinished)
		closers = append(closers, func() { _ = writer.Close() })
		recs = recording.NewKafkaLog(recs, writer, log)
		log.Info("publishing room_finished", zap.String("topic", cfg.TopicRoomFinished))
	}
	return recs, closeAll, nil
}
