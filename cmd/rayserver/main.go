// Command rayserver is the dedicated game server.
package main

import (
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/andersfylling/predictsim/internal/config"
	"github.com/andersfylling/predictsim/internal/game"
	"github.com/andersfylling/predictsim/internal/network"
	"github.com/andersfylling/predictsim/internal/protocol"
	"github.com/andersfylling/predictsim/internal/server"
	"github.com/andersfylling/predictsim/internal/simulation"
)

// Version is set at build time.
var Version = "dev"

func main() {
	configPath := flag.String("config", "rayserver.toml", "path to a TOML config file")
	flag.Parse()

	fmt.Printf("Rayman Server v%s\n", Version)

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	log := slog.Default()
	srv := server.New(cfg.ServerConfig(), cfg.StepInterval(), log)

	world := game.NewWorld(srv.Instance())
	world.SetLevel(game.DemoLevelForViewport(80, 45))
	srv.Instance().RunStartup()

	world.SpawnEnemy("slime", 10, 15, 10)
	world.SpawnEnemy("slime", 10, 28, 14)

	var (
		sessionMu     sync.Mutex
		sessionPlayer = make(map[string]int)
		nextPlayerNum = 1
	)

	// ClientRequests resolve to an apply tick via server.ResolveClientRequest
	// (§4.6), but game.World has no tick-scheduled intent queue yet, so the
	// resolved intent is applied directly to current state; applyAt is kept
	// only for the late-request log line below.
	srv.OnClientRequest(func(sess *server.Session, applyAt simulation.Tick, intent protocol.Intent) {
		sessionMu.Lock()
		playerNum, ok := sessionPlayer[sess.ConnID]
		if !ok {
			playerNum = nextPlayerNum
			nextPlayerNum++
			sessionPlayer[sess.ConnID] = playerNum
			world.SpawnPlayer(sess.ConnID, playerNum, 5, 10)
		}
		sessionMu.Unlock()

		if applyAt != srv.Tick() {
			log.Debug("applying client request off current tick", "conn", sess.ConnID, "apply_at", applyAt, "current", srv.Tick())
		}
		world.SetPlayerIntent(playerNum, intent)
	})

	srv.OnSnapshot(func() protocol.StateSnapshot {
		return game.ToProtocolSnapshot(world, srv.Tick())
	})

	transport := network.NewTCPTransport()
	addr := fmt.Sprintf(":%d", cfg.Server.Port)
	if err := transport.Listen(addr); err != nil {
		fmt.Fprintf(os.Stderr, "failed to listen on %s: %v\n", addr, err)
		os.Exit(1)
	}
	log.Info("listening", "addr", addr)

	srv.Start()
	go func() {
		if err := srv.AcceptLoop(transport); err != nil {
			log.Info("accept loop stopped", "err", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	log.Info("shutting down")
	transport.Close()
	srv.Stop()
}
