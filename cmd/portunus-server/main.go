package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/BrandonDHaskell/Portunus/keypad/internal/config"
	"github.com/BrandonDHaskell/Portunus/keypad/internal/db"
	"github.com/BrandonDHaskell/Portunus/keypad/internal/grpcapi"
	"github.com/BrandonDHaskell/Portunus/keypad/internal/httpapi"
	"github.com/BrandonDHaskell/Portunus/keypad/internal/logging"
	"github.com/BrandonDHaskell/Portunus/keypad/internal/mqtt"
	"github.com/BrandonDHaskell/Portunus/keypad/internal/portunus/service"
	"github.com/BrandonDHaskell/Portunus/keypad/internal/portunus/store"
	"github.com/BrandonDHaskell/Portunus/keypad/internal/portunus/store/memory"
	redisstore "github.com/BrandonDHaskell/Portunus/keypad/internal/portunus/store/redis"
	sqlitestore "github.com/BrandonDHaskell/Portunus/keypad/internal/portunus/store/sqlite"
	"github.com/BrandonDHaskell/Portunus/keypad/internal/telemetry"
)

// stores is the set of repositories one backend provides.  history is the
// backend's own heartbeat log, pruned on a schedule.
type stores struct {
	points  store.PointStore
	codes   store.CodeStore
	events  store.AccessEventStore
	cache   store.ConfigCache
	history store.HeartbeatLog
	close   func()
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}

	logger, err := logging.New(cfg.Log.Level, cfg.Log.Format)
	if err != nil {
		fmt.Fprintf(os.Stderr, "logging: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = logger.Sync() }()

	if err := run(cfg, logger); err != nil {
		logger.Error("portunus-server exited", zap.Error(err))
		os.Exit(1)
	}
}

func run(cfg config.Config, logger *zap.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	st, err := openStores(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer st.close()

	cache := st.cache
	pruneHistory := true
	if cfg.CacheBackend == "redis" {
		client, err := redisstore.Dial(ctx, cfg.RedisURL)
		if err != nil {
			return err
		}
		defer client.Close()
		cache = redisstore.NewConfigCache(client)
		// The redis cache keeps no heartbeat history.
		pruneHistory = false
		logger.Info("config cache on redis")
	}

	var publisher service.EventPublisher
	if cfg.MQTTBroker != "" {
		pub, err := mqtt.NewRealPublisher(cfg.MQTTBroker, cfg.MQTTClientID)
		if err != nil {
			return err
		}
		defer pub.Close()

		fanout := service.NewEventFanout(pub, 0, logger)
		defer func() {
			closeCtx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
			defer cancel()
			fanout.Close(closeCtx)
		}()
		publisher = fanout
		logger.Info("mqtt event fan-out enabled", zap.String("broker", cfg.MQTTBroker))
	}

	var sink service.TelemetrySink = telemetry.Nop{}
	influx, err := telemetry.Connect(ctx, telemetry.Config{
		URL:    cfg.Influx.URL,
		Token:  cfg.Influx.Token,
		Org:    cfg.Influx.Org,
		Bucket: cfg.Influx.Bucket,
	}, logger)
	switch {
	case errors.Is(err, telemetry.ErrDisabled):
	case err != nil:
		// Telemetry is optional; the server runs without it.
		logger.Warn("heartbeat telemetry disabled", zap.Error(err))
	default:
		defer influx.Close()
		sink = influx
	}

	registry := service.NewPointRegistry(st.points)
	heartbeats := service.NewHeartbeatService(cache, registry, logger, service.WithTelemetry(sink))
	recorder := service.NewEventRecorder(st.events, publisher, logger)
	access := service.NewAccessService(registry, st.codes, recorder, logger)
	dashboard := service.NewDashboardService(st.points, cache, st.events, st.codes, logger)

	httpSrv := httpapi.NewServer(httpapi.Dependencies{
		Logger:           logger,
		Addr:             cfg.HTTPAddr,
		HeartbeatService: heartbeats,
		AccessService:    access,
		DashboardService: dashboard,
		JWTSecret:        cfg.JWTSecret,
		StreamInterval:   time.Duration(cfg.DashboardPollSeconds) * time.Second,
	})

	var grpcSrv *grpcapi.Server
	var grpcLis net.Listener
	if cfg.GRPCAddr != "" {
		grpcLis, err = net.Listen("tcp", cfg.GRPCAddr)
		if err != nil {
			return fmt.Errorf("grpc listen: %w", err)
		}
		grpcSrv = grpcapi.NewServer(grpcapi.Dependencies{
			Logger:           logger,
			HeartbeatService: heartbeats,
			AccessService:    access,
		})
	}

	var pruner *service.HeartbeatPruner
	if pruneHistory {
		pruner = service.NewHeartbeatPruner(st.history, service.PrunerConfig{
			RetentionDays: cfg.HeartbeatRetentionDays,
			IntervalHours: cfg.PruneIntervalHours,
		}, logger)
		pruner.Start(ctx)
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		logger.Info("http listening", zap.String("addr", cfg.HTTPAddr))
		if err := httpSrv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})

	if grpcSrv != nil {
		g.Go(func() error {
			logger.Info("grpc listening", zap.String("addr", cfg.GRPCAddr))
			if err := grpcSrv.Serve(grpcLis); err != nil {
				return fmt.Errorf("grpc server: %w", err)
			}
			return nil
		})
	}

	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutting down")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		if pruner != nil {
			pruner.Stop()
		}
		if grpcSrv != nil {
			grpcSrv.Shutdown(shutdownCtx)
		}
		return httpSrv.Shutdown(shutdownCtx)
	})

	return g.Wait()
}

func openStores(ctx context.Context, cfg config.Config, logger *zap.Logger) (*stores, error) {
	if cfg.StoreBackend == "memory" {
		points := memory.NewPointStore()
		codes := memory.NewCodeStore()
		if cfg.Env == "dev" {
			if err := seedMemory(points, codes, cfg.DevAccountID); err != nil {
				return nil, err
			}
		}
		cache := memory.NewConfigCache()
		logger.Info("using in-memory stores")
		return &stores{
			points:  points,
			codes:   codes,
			events:  memory.NewAccessEventStore(),
			cache:   cache,
			history: cache,
			close:   func() {},
		}, nil
	}

	sqlDB, err := db.Open(ctx, db.Config{Path: cfg.DBPath})
	if err != nil {
		return nil, err
	}
	if cfg.Env == "dev" {
		if err := db.SeedDev(ctx, sqlDB, cfg.DevAccountID); err != nil {
			_ = sqlDB.Close()
			return nil, err
		}
	}
	reader, err := db.OpenReader(ctx, db.Config{Path: cfg.DBPath})
	if err != nil {
		_ = sqlDB.Close()
		return nil, err
	}
	writer := db.NewWorker(sqlDB)
	cache := sqlitestore.NewConfigCache(reader, writer)
	logger.Info("using sqlite stores", zap.String("path", cfg.DBPath))

	return &stores{
		points:  sqlitestore.NewPointStore(reader, writer),
		codes:   sqlitestore.NewCodeStore(reader, writer),
		events:  sqlitestore.NewAccessEventStore(reader, writer),
		cache:   cache,
		history: cache,
		close: func() {
			writer.Close()
			_ = reader.Close()
			_ = sqlDB.Close()
		},
	}, nil
}

// seedMemory mirrors db.SeedDev for the in-memory backend.
func seedMemory(points *memory.PointStore, codes *memory.CodeStore, accountID int64) error {
	hub := points.AddHub(store.Hub{AccountID: accountID, Name: "Main Hub", Description: "Dev"})
	door := points.AddPoint(store.Point{HubID: hub.ID, Name: "Front Door", Description: "Main entrance"})

	if _, err := codes.AddPointCode(store.PointCode{PointID: door.ID, Name: "Installer", Code: "123456", Enabled: true}); err != nil {
		return fmt.Errorf("seed point code: %w", err)
	}
	user, err := codes.AddUser(store.AccessUser{AccountID: accountID, Name: "Dev User", Code: "4321"})
	if err != nil {
		return fmt.Errorf("seed user: %w", err)
	}
	return codes.GrantPoint(user.ID, door.ID)
}
