// Package client implements the game client: the three-world prediction
// pipeline (pipeline.go), a buffer of recent local input frames, and
// network communication with a server.
package client

import (
	"bytes"
	"encoding/gob"
	"log/slog"
	"time"

	"github.com/go-gl/mathgl/mgl64"

	"github.com/andersfylling/predictsim/internal/network"
	"github.com/andersfylling/predictsim/internal/protocol"
	"github.com/andersfylling/predictsim/internal/simulation"
	statesync "github.com/andersfylling/predictsim/internal/sync"
)

// Config holds client configuration. Pipeline construction (step,
// prediction interval, rates) is configured separately via PipelineConfig
// and passed into New already built, since it is shared with tests that
// don't need a network connection at all.
type Config struct {
	ServerAddr string // empty for an embedded server
	PlayerName string
	RenderMode RenderMode
}

// RenderMode specifies the terminal rendering approach.
type RenderMode int

const (
	RenderAuto      RenderMode = iota // auto-detect best mode
	RenderASCII                       // plain ASCII
	RenderHalfBlock                   // half-block with color
	RenderBraille                     // braille patterns
)

// ServerUpdateRoute delivers a server-pushed ServerWorldUpdate[T] (§4.6)
// into this client's Template queue for T and, when the message says
// IncludeInPrediction, into the matching PredictionUpdates[T] as well.
// Built by RegisterVelocityUpdateRoute/RegisterDespawnUpdateRoute once the
// host application has constructed its per-world update queues.
type ServerUpdateRoute[T any] struct {
	template   *simulation.UpdateExecutionQueue[T]
	prediction *PredictionUpdates[T]
}

// NewServerUpdateRoute builds a route from the Template world's live queue
// for T and the PredictionUpdates[T] registered against the same Pipeline
// for the Prediction world's matching queue.
func NewServerUpdateRoute[T any](template *simulation.UpdateExecutionQueue[T], prediction *PredictionUpdates[T]) ServerUpdateRoute[T] {
	return ServerUpdateRoute[T]{template: template, prediction: prediction}
}

func (r ServerUpdateRoute[T]) apply(msg protocol.ServerWorldUpdate[T], predictionRunning bool) {
	if r.template == nil {
		return
	}
	r.template.Insert(msg.Update)
	if msg.IncludeInPrediction && r.prediction != nil {
		r.prediction.Push(msg.Update, predictionRunning)
	}
}

// Client is the game client: owns a Pipeline, a network connection, and
// local input/divergence bookkeeping.
type Client struct {
	config Config
	log    *slog.Logger

	transport network.Transport
	conn      network.Connection

	pipeline *Pipeline
	inputs   *InputBuffer
	lineage  string

	velocityUpdates ServerUpdateRoute[simulation.UpdateComponent[mgl64.Vec2]]
	despawnUpdates  ServerUpdateRoute[simulation.DespawnSimulationEntity]

	snapshots     *statesync.SnapshotBuffer
	snapshotState map[protocol.EntityID]protocol.EntityState
}

// New creates a new client with the given config.
func New(cfg Config, pipeline *Pipeline, transport network.Transport, log *slog.Logger) *Client {
	if log == nil {
		log = slog.Default()
	}
	protocol.RegisterGobTypes()
	return &Client{
		config:        cfg,
		log:           log,
		transport:     transport,
		pipeline:      pipeline,
		inputs:        NewInputBuffer(256),
		snapshots:     statesync.NewSnapshotBuffer(32),
		snapshotState: make(map[protocol.EntityID]protocol.EntityState),
	}
}

// Connect dials the server. No handshake message is sent; the server
// greets every new connection with a ResetClientSimulation on its own.
func (c *Client) Connect() error {
	conn, err := c.transport.Connect(c.config.ServerAddr)
	if err != nil {
		return err
	}
	c.conn = conn
	return nil
}

// Disconnect closes the connection.
func (c *Client) Disconnect() {
	if c.conn != nil {
		c.conn.Close()
	}
}

// HandleResetClientSimulation applies a server-issued reset to the
// pipeline (§4.6). When the reset carries a lineage id different from the
// last one seen, the whole input history is cleared; otherwise inputs older
// than the reset tick are pruned by the next Frame.
func (c *Client) HandleResetClientSimulation(msg protocol.ResetClientSimulation) {
	if msg.LineageID != c.lineage {
		c.log.Info("simulation lineage changed, full reset", "lineage", msg.LineageID)
		c.lineage = msg.LineageID
		c.inputs.Clear()
	}
	c.pipeline.OnResetClientSimulation(msg.Tick)
}

// HandleUpdateServerTick feeds a received server tick into the pipeline's
// clock estimator.
func (c *Client) HandleUpdateServerTick(msg protocol.UpdateServerTick) {
	c.pipeline.OnUpdateServerTick(time.Now(), msg.Tick)
}

// RecordInput stores a local input frame for later replay/request framing.
func (c *Client) RecordInput(frame protocol.InputFrame) {
	c.inputs.Record(frame)
}

// Frame advances the pipeline by one client frame.
func (c *Client) Frame(now time.Time) {
	c.pipeline.Frame(now)
	c.inputs.PruneBefore(c.pipeline.LastPredictedTick())
}

// Pipeline exposes the underlying prediction pipeline for render/input
// wiring.
func (c *Client) Pipeline() *Pipeline { return c.pipeline }

// Snapshots exposes the buffer of recently received full/delta state
// snapshots, for a render layer that wants to interpolate between them
// independent of the Template/Prediction/Main pipeline.
func (c *Client) Snapshots() *statesync.SnapshotBuffer { return c.snapshots }

// SnapshotState returns the reconciled per-entity component state built by
// applying every received snapshot in order (§4.6 "sync").
func (c *Client) SnapshotState() map[protocol.EntityID]protocol.EntityState { return c.snapshotState }

// RegisterVelocityUpdateRoute wires received
// ServerWorldUpdate[UpdateComponent[mgl64.Vec2]] messages into template's
// queue (and, when the message opts in, prediction's).
func (c *Client) RegisterVelocityUpdateRoute(template *simulation.UpdateExecutionQueue[simulation.UpdateComponent[mgl64.Vec2]], prediction *PredictionUpdates[simulation.UpdateComponent[mgl64.Vec2]]) {
	c.velocityUpdates = NewServerUpdateRoute(template, prediction)
}

// RegisterDespawnUpdateRoute wires received
// ServerWorldUpdate[DespawnSimulationEntity] messages into template's
// queue (and, when the message opts in, prediction's).
func (c *Client) RegisterDespawnUpdateRoute(template *simulation.UpdateExecutionQueue[simulation.DespawnSimulationEntity], prediction *PredictionUpdates[simulation.DespawnSimulationEntity]) {
	c.despawnUpdates = NewServerUpdateRoute(template, prediction)
}

// Listen blocks, decoding and dispatching messages from the server
// connection until Recv errors (typically because Disconnect closed it).
// Run it on its own goroutine.
func (c *Client) Listen() error {
	for {
		data, err := c.conn.Recv()
		if err != nil {
			return err
		}

		var msg any
		if err := gob.NewDecoder(bytes.NewReader(data)).Decode(&msg); err != nil {
			c.log.Warn("dropping undecodable message", "err", err)
			continue
		}

		running := c.pipeline.State() == PredictionRunning

		switch m := msg.(type) {
		case protocol.ResetClientSimulation:
			c.HandleResetClientSimulation(m)
		case protocol.UpdateServerTick:
			c.HandleUpdateServerTick(m)
		case protocol.ServerWorldUpdate[simulation.UpdateComponent[mgl64.Vec2]]:
			c.velocityUpdates.apply(m, running)
		case protocol.ServerWorldUpdate[simulation.DespawnSimulationEntity]:
			c.despawnUpdates.apply(m, running)
		case protocol.StateSnapshot:
			statesync.Apply(c.snapshotState, &m)
			c.snapshots.Add(m)
		default:
			c.log.Debug("unhandled message type from server", "type", m)
		}
	}
}
