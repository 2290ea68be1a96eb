// Package config loads the TOML-based configuration shared by the
// rayman and rayserver commands.
package config

import (
	"os"
	"time"

	"github.com/pelletier/go-toml"

	"github.com/andersfylling/predictsim/internal/client"
	"github.com/andersfylling/predictsim/internal/extract"
	"github.com/andersfylling/predictsim/internal/server"
)

// Server mirrors server.Config in TOML form, except for the reconcile
// policy: ServerConfig leaves Policy at its zero value, ReconcileDiscard.
type Server struct {
	Port             int `toml:"port"`
	MaxPlayers       int `toml:"max_players"`
	TickRate         int `toml:"tick_rate"`
	SyncEveryNTicks  int `toml:"sync_every_n_ticks"`
	MaxTicksPerFrame int `toml:"max_ticks_per_frame"`
}

// Client mirrors client.Config plus the prediction pipeline's tuning knobs.
type Client struct {
	ServerAddr           string  `toml:"server_addr"`
	PlayerName           string  `toml:"player_name"`
	RenderMode           string  `toml:"render_mode"` // "auto", "ascii", "halfblock", "braille"
	PredictionIntervalMS int     `toml:"prediction_interval_ms"`
	RateTemplate         float64 `toml:"rate_template"`
	RatePrediction       float64 `toml:"rate_prediction"`
	SampleBufferSize     int     `toml:"sample_buffer_size"`
	EstimatorBlend       float64 `toml:"estimator_blend"`
}

// Config is the top-level document read from a .toml file.
type Config struct {
	Server Server `toml:"server"`
	Client Client `toml:"client"`
}

// Default returns the configuration used when no file is found.
func Default() Config {
	return Config{
		Server: Server{Port: 7777, MaxPlayers: 4, TickRate: 30, SyncEveryNTicks: 1, MaxTicksPerFrame: 8},
		Client: Client{
			ServerAddr: "127.0.0.1:7777", PlayerName: "Player", RenderMode: "auto",
			PredictionIntervalMS: 100, RateTemplate: 1, RatePrediction: 1,
			SampleBufferSize: 32, EstimatorBlend: 0,
		},
	}
}

// Load reads and parses a TOML file at path, falling back to Default if
// the file does not exist.
func Load(path string) (Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return cfg, nil
	}
	if err != nil {
		return cfg, err
	}

	if err := toml.Unmarshal(data, &cfg); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// ServerConfig converts to server.Config.
func (c Config) ServerConfig() server.Config {
	return server.Config{
		Port:             c.Server.Port,
		MaxPlayers:       c.Server.MaxPlayers,
		TickRate:         c.Server.TickRate,
		SyncEveryNTicks:  c.Server.SyncEveryNTicks,
		MaxTicksPerFrame: uint32(c.Server.MaxTicksPerFrame),
	}
}

// ClientConfig converts to client.Config.
func (c Config) ClientConfig() client.Config {
	return client.Config{
		ServerAddr: c.Client.ServerAddr,
		PlayerName: c.Client.PlayerName,
		RenderMode: renderModeFromString(c.Client.RenderMode),
	}
}

func renderModeFromString(s string) client.RenderMode {
	switch s {
	case "ascii":
		return client.RenderASCII
	case "halfblock":
		return client.RenderHalfBlock
	case "braille":
		return client.RenderBraille
	default:
		return client.RenderAuto
	}
}

// StepInterval derives the fixed tick step from a server's configured
// tick rate.
func (c Config) StepInterval() time.Duration {
	rate := c.Server.TickRate
	if rate <= 0 {
		rate = 30
	}
	return time.Second / time.Duration(rate)
}

// PipelineConfig builds a client.PipelineConfig for Pipeline construction.
func (c Config) PipelineConfig(despawnPriority extract.DespawnPriority) client.PipelineConfig {
	return client.PipelineConfig{
		PredictionInterval: time.Duration(c.Client.PredictionIntervalMS) * time.Millisecond,
		Rates:              client.Rates{Template: c.Client.RateTemplate, Prediction: c.Client.RatePrediction},
		SampleBufferSize:   c.Client.SampleBufferSize,
		ExtractConfig:      extract.Config{DespawnPriority: despawnPriority},
		EstimatorBlend:     c.Client.EstimatorBlend,
	}
}
