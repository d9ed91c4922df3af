package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/wfunc/partyroom/config"
	"github.com/wfunc/partyroom/events"
	"github.com/wfunc/partyroom/logger"
	"github.com/wfunc/partyroom/models"
	"github.com/wfunc/partyroom/monitor"
	"github.com/wfunc/partyroom/persistence"
	"github.com/wfunc/partyroom/room"
	"github.com/wfunc/partyroom/rpc"
	"github.com/wfunc/partyroom/server"
	"github.com/wfunc/partyroom/services"
	"github.com/wfunc/partyroom/timer"
)

func main() {
	configPath := flag.String("config", ".", "directory containing config.yaml")
	flag.Parse()

	// Load configuration
	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		panic(err)
	}

	// Initialize logger
	logger.Init(cfg.Log.Level, cfg.Log.Development)
	defer logger.Sync()

	mon := monitor.NewMonitor("partyroom")
	mon.PublishExpvar()

	// Initialize result storage
	recorder, err := persistence.Open(cfg.Database)
	if err != nil {
		logger.Log.Fatalf("Failed to open result store: %v", err)
	}
	logger.Log.Infof("Result store ready (driver %q).", cfg.Database.Driver)

	publisher := events.New(cfg.Kafka.Brokers, cfg.Kafka.Topic)
	results := services.NewResultService(recorder, publisher)
	results.OnRecorded = func(res *models.GameResult, saveErr, publishErr error) {
		if saveErr != nil {
			mon.IncResultErrors("save")
		}
		if publishErr != nil {
			mon.IncResultErrors("publish")
		}
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	timers := timer.NewTimerManager(nil)
	go timers.Start(ctx)

	// Initialize Game Server
	gameServer := server.NewGameServer(server.Options{
		Addr: cfg.Server.HTTPAddress,
		Rooms: room.NewRoomManager(
			room.WithTTL(cfg.Rooms.TTL),
			room.WithCodeAttempts(cfg.Rooms.CodeAttempts),
		),
		Timers:        timers,
		Results:       results,
		Monitor:       mon,
		ShuffleDelay:  cfg.Rooms.ShuffleDelay,
		SweepInterval: cfg.Rooms.SweepInterval,
		Heartbeat:     cfg.Server.Heartbeat,
		SendBuffer:    cfg.Server.SendBuffer,
	})

	// Admin RPC
	rpcServer, err := rpc.NewServer(cfg.Server.RPCAddress)
	if err != nil {
		logger.Log.Fatalf("Failed to create RPC server: %v", err)
	}
	if err := rpcServer.Register("LobbyService", rpc.NewLobbyService(gameServer, results)); err != nil {
		logger.Log.Fatalf("Failed to register RPC service: %v", err)
	}
	go rpcServer.Start()

	errCh := make(chan error, 1)
	go func() {
		errCh <- gameServer.Start()
	}()

	select {
	case err := <-errCh:
		if err != nil {
			logger.Log.Errorf("Game server stopped: %v", err)
		}
	case <-ctx.Done():
		logger.Log.Info("Shutting down.")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := gameServer.Shutdown(shutdownCtx); err != nil {
		logger.Log.Warnf("HTTP shutdown: %v", err)
	}
	rpcServer.Stop()
	if err := results.Close(); err != nil {
		logger.Log.Warnf("Closing result service: %v", err)
	}
}
