// Command rayman is the terminal game client. With no --connect flag it
// runs a local embedded simulation; with one, it connects to a rayserver
// and renders from the client-side prediction pipeline.
package main

import (
	"flag"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/andersfylling/predictsim/internal/client"
	"github.com/andersfylling/predictsim/internal/config"
	"github.com/andersfylling/predictsim/internal/game"
	"github.com/andersfylling/predictsim/internal/network"
	"github.com/andersfylling/predictsim/internal/protocol"
	"github.com/andersfylling/predictsim/internal/render"
	"github.com/andersfylling/predictsim/internal/simulation"
)

// Version is set at build time.
var Version = "dev"

func main() {
	configPath := flag.String("config", "rayman.toml", "path to a TOML config file")
	connect := flag.String("connect", "", "server address to connect to; empty runs an embedded simulation")
	flag.Parse()

	fmt.Printf("Rayman Terminal v%s\n", Version)

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}
	if *connect != "" {
		cfg.Client.ServerAddr = *connect
	}

	renderer := render.NewTcellRenderer()
	if err := renderer.Init(); err != nil {
		fmt.Fprintf(os.Stderr, "failed to init terminal: %v\n", err)
		os.Exit(1)
	}
	defer renderer.Close()

	if cfg.Client.ServerAddr == "" {
		runEmbedded(cfg, renderer)
		return
	}
	runNetworked(cfg, renderer)
}

// runEmbedded drives a local simulation.Instance with no network, reading
// input and applying it directly to the world every tick — the terminal
// counterpart of cmd/rayman-gui's single-player path.
func runEmbedded(cfg config.Config, renderer *render.TcellRenderer) {
	step := cfg.StepInterval()
	inst := simulation.NewInstance(simulation.RoleServer, step, nil)
	world := game.NewWorld(inst)
	level := game.DemoLevelForViewport(80, 24)
	world.SetLevel(level)
	inst.RunStartup()

	playerID := world.SpawnPlayer(cfg.Client.PlayerName, 1, 5, 10)
	world.SpawnEnemy("slime", 10, 15, 10)

	renderer.SetTileMap(game.RenderTileMap(level))

	// Raw-mode terminals rarely deliver key-release events, so the latest
	// intent is held for exactly the tick it arrived on rather than tracked
	// as a press/release state machine.
	var intent protocol.Intent

	lastUpdate := time.Now()
	for {
		for {
			ev, ok := renderer.PollInput()
			if !ok {
				break
			}
			switch ev.Type {
			case render.InputQuit:
				return
			case render.InputKey:
				intent = ev.Intent
			}
		}

		now := time.Now()
		for now.Sub(lastUpdate) >= step {
			world.SetPlayerIntent(playerID, intent)
			intent = protocol.IntentNone
			inst.Time.QueueTicks(1)
			inst.TickNow(1)
			lastUpdate = lastUpdate.Add(step)
		}

		renderer.BeginFrame()
		renderer.RenderWorld(world, render.Camera{})
		renderer.DrawHUD(fmt.Sprintf("Tick: %d | WASD: Move | Q/Esc: Quit", inst.Time.CurrentTick()))
		renderer.EndFrame()

		time.Sleep(16 * time.Millisecond)
	}
}

// runNetworked connects to a remote server and renders from the client's
// Main world. Local input is not yet fed back through
// client.PredictionUpdates, so this path exercises the connection,
// handshake, clock-estimation, and server-to-client update-queue plumbing
// as a spectator rather than a controllable player; feeding local velocity
// intents into PredictionUpdates[simulation.UpdateComponent[mgl64.Vec2]]
// the same way is the next step.
func runNetworked(cfg config.Config, renderer *render.TcellRenderer) {
	log := slog.Default()
	pipelineCfg := cfg.PipelineConfig(nil)
	pipeline := client.NewPipeline(cfg.StepInterval(), pipelineCfg)

	templateWorld := game.NewWorld(pipeline.Template)
	predictionWorld := game.NewWorld(pipeline.Prediction)
	mainWorld := game.NewWorld(pipeline.Main)
	pipeline.RunStartup()

	velocityUpdates := client.RegisterPredictionUpdates(pipeline, predictionWorld.SetVelocity)
	despawnUpdates := client.RegisterPredictionUpdates(pipeline, predictionWorld.Despawns)

	transport := network.NewTCPTransport()
	c := client.New(client.Config{ServerAddr: cfg.Client.ServerAddr, PlayerName: cfg.Client.PlayerName}, pipeline, transport, log)
	c.RegisterVelocityUpdateRoute(templateWorld.SetVelocity, velocityUpdates)
	c.RegisterDespawnUpdateRoute(templateWorld.Despawns, despawnUpdates)
	if err := c.Connect(); err != nil {
		fmt.Fprintf(os.Stderr, "failed to connect to %s: %v\n", cfg.Client.ServerAddr, err)
		os.Exit(1)
	}
	defer c.Disconnect()

	go func() {
		if err := c.Listen(); err != nil {
			log.Info("connection closed", "err", err)
		}
	}()

	level := game.DemoLevelForViewport(80, 24)
	templateWorld.SetLevel(level)
	mainWorld.SetLevel(level)
	renderer.SetTileMap(game.RenderTileMap(level))

	for {
		ev, ok := renderer.PollInput()
		if ok && ev.Type == render.InputQuit {
			return
		}

		c.Frame(time.Now())

		renderer.BeginFrame()
		renderer.RenderWorld(mainWorld, render.Camera{})
		renderer.DrawHUD(fmt.Sprintf("Tick: %d | connected to %s | Q/Esc: Quit",
			pipeline.Main.Time.CurrentTick(), cfg.Client.ServerAddr))
		renderer.EndFrame()

		time.Sleep(16 * time.Millisecond)
	}
}
