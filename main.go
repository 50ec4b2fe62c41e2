package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/wfunc/roulette/broadcast"
	"github.com/wfunc/roulette/config"
	"github.com/wfunc/roulette/cooldown"
	"github.com/wfunc/roulette/logger"
	"github.com/wfunc/roulette/monitor"
	"github.com/wfunc/roulette/persistence"
	"github.com/wfunc/roulette/room"
	"github.com/wfunc/roulette/rpc"
	"github.com/wfunc/roulette/server"
	"github.com/wfunc/roulette/services"
	"github.com/wfunc/roulette/timer"
)

const shutdownTimeout = 10 * time.Second

var rootCmd = &cobra.Command{
	Use:   "roulette",
	Short: "Revolver elimination game rooms over WebSocket",
	RunE:  run,
}

var flagConfig string

func init() {
	rootCmd.PersistentFlags().StringVar(&flagConfig, "config", ".", "directory containing config.yaml")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func openStore(cfg config.DatabaseConfig) (persistence.Store, error) {
	if !cfg.Enabled {
		logger.Log.Info("Database disabled, keeping round history in memory.")
		return persistence.NewMemoryStore(), nil
	}
	db, err := persistence.NewGormPostgreSQL(cfg.Postgres)
	if err != nil {
		return nil, fmt.Errorf("connect database: %w", err)
	}
	logger.Log.Info("Database connection successful.")
	return db, nil
}

func run(cmd *cobra.Command, args []string) error {
	// Load configuration
	cfg, err := config.LoadConfig(flagConfig)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	// Initialize logger
	logger.Init(cfg.Log.Level)
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	store, err := openStore(cfg.Database)
	if err != nil {
		return err
	}
	defer store.Close()

	recorder := persistence.NewRecorder(store, 256)
	recorder.Start()
	defer recorder.Close()

	mon := monitor.NewMonitor("roulette")
	cooldowns := cooldown.NewStore()
	timers := timer.NewTimerManager(50 * time.Millisecond)
	defer timers.Stop()

	sessionBroadcaster := broadcast.NewRoomBroadcaster()
	registry := room.NewRegistry(room.Settings{
		Options: room.Options{
			MaxPlayers:   cfg.Game.MaxPlayers,
			LobbySeconds: cfg.Game.LobbySeconds,
			RoundSeconds: cfg.Game.RoundSeconds,
			ResetDelay:   cfg.Game.ResetDelay,
			Cooldown:     cfg.Game.Cooldown,
		},
		EliminationChance: cfg.Game.EliminationChance,
	}, room.Dependencies{
		Broadcaster: broadcast.Multi(sessionBroadcaster, recorder),
		Cooldowns:   cooldowns,
		Timers:      timers,
		Observer:    mon,
	})
	for _, id := range cfg.Game.Rooms {
		registry.CreateRoom(id)
	}
	mon.SetActiveRooms(len(cfg.Game.Rooms))
	if cfg.Game.SeedDemoPlayers {
		if err := registry.SeedDemo(cfg.Game.Rooms[0]); err != nil {
			logger.Log.Warnf("seed demo players: %v", err)
		}
	}

	heartbeat := timer.NewHeartbeat(cfg.Game.TickInterval, registry, cooldowns)

	gameServer := server.NewGameServer(cfg.Server.HTTPAddress, server.Options{
		ReadLimit:        cfg.Server.ReadLimit,
		Heartbeat:        cfg.Server.Heartbeat,
		IntentsPerSecond: cfg.Limits.IntentsPerSecond,
		IntentBurst:      cfg.Limits.IntentBurst,
	}, registry, sessionBroadcaster, mon)

	rpcServer, err := rpc.NewServer(cfg.Server.RPCAddress)
	if err != nil {
		return fmt.Errorf("listen rpc: %w", err)
	}
	admin := rpc.NewAdminService(registry, cooldowns, services.NewStatsService(store))
	if err := rpcServer.Register(rpc.AdminServiceName, admin); err != nil {
		return fmt.Errorf("register admin service: %w", err)
	}

	healthServer, err := rpc.NewHealthServer(cfg.Server.GRPCAddress)
	if err != nil {
		return fmt.Errorf("listen grpc: %w", err)
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(gameServer.Start)
	g.Go(rpcServer.Start)
	g.Go(healthServer.Serve)

	heartbeat.Start(gctx)
	healthServer.SetServing(true)
	logger.Log.Infof("Serving %d rooms, tick every %v", len(cfg.Game.Rooms), cfg.Game.TickInterval)

	g.Go(func() error {
		<-gctx.Done()
		logger.Log.Info("Shutting down.")
		healthServer.SetServing(false)
		heartbeat.Stop()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		err := gameServer.Shutdown(shutdownCtx)
		rpcServer.Stop()
		healthServer.Stop()
		registry.Close()
		return err
	})

	return g.Wait()
}
