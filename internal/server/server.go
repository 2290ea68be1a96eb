// Package server implements the authoritative game server: the
// overstep-accumulator tick drive, per-session broadcast, and
// client-request reconciliation policy of §4.6.
package server

import (
	"bytes"
	"encoding/gob"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/andersfylling/predictsim/internal/network"
	"github.com/andersfylling/predictsim/internal/protocol"
	"github.com/andersfylling/predictsim/internal/simulation"
	statesync "github.com/andersfylling/predictsim/internal/sync"
)

// Config holds server configuration.
type Config struct {
	Port             int
	MaxPlayers       int
	TickRate         int    // ticks per second
	SyncEveryNTicks  int    // UpdateServerTick broadcast cadence
	MaxTicksPerFrame uint32 // overstep-accumulator ceiling, guards a stalled server against a runaway catch-up burst
	Policy           ReconcilePolicy
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() Config {
	return Config{Port: 7777, MaxPlayers: 4, TickRate: 30, SyncEveryNTicks: 1, MaxTicksPerFrame: 8, Policy: ReconcileApplyAtCurrentTick}
}

// Session represents one connected client.
type Session struct {
	ConnID      string
	Conn        network.Connection
	LastAckTick simulation.Tick
	Greeted     bool

	mu       sync.Mutex
	baseline *statesync.Baseline
}

func (s *Session) send(msg any) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(&msg); err != nil {
		return err
	}
	return s.Conn.Send(buf.Bytes())
}

// diffSnapshot reduces full to an incremental delta against the baseline
// last sent to this session (§4.6 "sync"), or returns full unchanged the
// first time this session is synced. The baseline is advanced to full
// either way.
func (s *Session) diffSnapshot(full protocol.StateSnapshot) protocol.StateSnapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.baseline == nil {
		s.baseline = statesync.NewBaseline()
		s.baseline.Update(&full)
		return full
	}

	delta := statesync.Diff(s.baseline, full.Entities)
	delta.Tick = full.Tick
	s.baseline.Update(&full)
	return delta
}

// Server is the authoritative game server: drives a single
// simulation.Instance and fans world updates out to every connected
// Session.
type Server struct {
	config   Config
	lineage  string
	instance *simulation.Instance
	log      *slog.Logger

	mu       sync.RWMutex
	sessions map[string]*Session

	overstep time.Duration
	lastTick time.Time

	quitCh chan struct{}
	doneCh chan struct{}

	requestHandler   ClientRequestHandler
	snapshotProvider SnapshotProvider
}

// ClientRequestHandler is invoked for every ClientRequest[protocol.Intent]
// the server resolves to an apply tick (§4.6). The server package stays
// game-agnostic otherwise, so a host application registers one of these to
// feed the request into its own simulation.Instance/game.World.
type ClientRequestHandler func(sess *Session, applyAt simulation.Tick, intent protocol.Intent)

// OnClientRequest registers the handler readSession dispatches resolved
// client requests to. Call before Start.
func (s *Server) OnClientRequest(h ClientRequestHandler) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.requestHandler = h
}

// SnapshotProvider builds a full-state protocol.StateSnapshot from the
// host's current world (e.g. game.ToProtocolSnapshot), at the same cadence
// UpdateServerTick is broadcast. The server package diffs it per-session
// and tracks per-session baselines; it never builds the snapshot itself.
type SnapshotProvider func() protocol.StateSnapshot

// OnSnapshot registers the snapshot provider broadcastSnapshot uses to sync
// full entity state (§4.6 "sync"), independent of the incremental
// ServerWorldUpdate path. Call before Start.
func (s *Server) OnSnapshot(p SnapshotProvider) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.snapshotProvider = p
}

// BroadcastSnapshot fans full out to every session as a per-session
// incremental delta (or, for a session synced for the first time, the
// full snapshot itself).
func (s *Server) BroadcastSnapshot(full protocol.StateSnapshot) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for id, sess := range s.sessions {
		msg := sess.diffSnapshot(full)
		if err := sess.send(msg); err != nil {
			s.log.Warn("failed to send snapshot", "conn", id, "err", err)
		}
	}
}

// New creates a server with its own simulation.Instance at the given
// fixed step interval, tagged with a fresh lineage id so clients can tell
// a restart apart from a routine reset (§8 SUPPLEMENTED: lineage id).
func New(cfg Config, step time.Duration, log *slog.Logger) *Server {
	if log == nil {
		log = slog.Default()
	}
	protocol.RegisterGobTypes()
	return &Server{
		config:   cfg,
		lineage:  uuid.NewString(),
		instance: simulation.NewInstance(simulation.RoleServer, step, log),
		log:      log,
		sessions: make(map[string]*Session),
		quitCh:   make(chan struct{}),
		doneCh:   make(chan struct{}),
	}
}

// Instance returns the server's simulation instance, for plugins to
// register update types and systems against before Start.
func (s *Server) Instance() *simulation.Instance { return s.instance }

// Join registers a new session and immediately sends it a
// ResetClientSimulation so it baselines onto the current lineage (§4.6,
// §8 SUPPLEMENTED "first contact").
func (s *Server) Join(conn network.Connection) *Session {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess := &Session{ConnID: uuid.NewString(), Conn: conn}
	s.sessions[sess.ConnID] = sess

	err := sess.send(protocol.ResetClientSimulation{
		Tick:      s.instance.Time.CurrentTick(),
		LineageID: s.lineage,
	})
	if err != nil {
		s.log.Warn("failed to greet session", "conn", sess.ConnID, "err", err)
	} else {
		sess.Greeted = true
	}
	return sess
}

// AcceptLoop blocks, accepting connections from transport and registering
// each as a Session until Accept errors (typically because the listener
// was closed by Stop). Run it on its own goroutine alongside Start.
func (s *Server) AcceptLoop(transport network.Transport) error {
	for {
		conn, err := transport.Accept()
		if err != nil {
			return err
		}
		sess := s.Join(conn)
		go s.readSession(sess)
	}
}

func (s *Server) readSession(sess *Session) {
	defer s.Leave(sess.ConnID)
	for {
		data, err := sess.Conn.Recv()
		if err != nil {
			s.log.Info("session disconnected", "conn", sess.ConnID, "err", err)
			return
		}
		s.handleSessionMessage(sess, data)
	}
}

// handleSessionMessage decodes one gob-encoded client message and
// dispatches it by concrete type. protocol.ClientRequest[protocol.Intent]
// is the one concrete request payload this package ships; a host
// application that needs another Payload type registers it with
// gob.Register itself and extends this switch.
func (s *Server) handleSessionMessage(sess *Session, data []byte) {
	var msg any
	if err := gob.NewDecoder(bytes.NewReader(data)).Decode(&msg); err != nil {
		s.log.Warn("dropping undecodable message", "conn", sess.ConnID, "err", err)
		return
	}

	switch m := msg.(type) {
	case protocol.ClientRequest[protocol.Intent]:
		s.resolveClientRequest(sess, m)
	default:
		s.log.Debug("unhandled message type from client", "conn", sess.ConnID, "type", m)
	}
}

// resolveClientRequest runs a decoded ClientRequest through the server's
// ReconcilePolicy (§4.6) and, if it resolves to an apply tick, forwards it
// to the registered ClientRequestHandler.
func (s *Server) resolveClientRequest(sess *Session, req protocol.ClientRequest[protocol.Intent]) {
	applyAt, apply := ResolveClientRequest(s.config.Policy, s.Tick(), req.Tick)
	if !apply {
		s.log.Debug("dropped stale client request",
			"conn", sess.ConnID, "requested_tick", req.Tick, "current_tick", s.Tick())
		return
	}

	sess.mu.Lock()
	if req.Tick > sess.LastAckTick {
		sess.LastAckTick = req.Tick
	}
	sess.mu.Unlock()

	s.mu.RLock()
	handler := s.requestHandler
	s.mu.RUnlock()
	if handler != nil {
		handler(sess, applyAt, req.Payload)
	}
}

// Leave removes a session, e.g. on disconnect.
func (s *Server) Leave(connID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, connID)
}

// Start runs the tick loop on a new goroutine.
func (s *Server) Start() {
	go s.run()
}

// StartBlocking runs the tick loop on the current goroutine.
func (s *Server) StartBlocking() {
	s.run()
}

func (s *Server) run() {
	defer close(s.doneCh)

	s.instance.RunStartup()
	step := s.instance.Time.StepInterval()
	ticker := time.NewTicker(step)
	defer ticker.Stop()

	s.lastTick = time.Now()
	ticksSinceSync := 0

	for {
		select {
		case <-s.quitCh:
			return
		case now := <-ticker.C:
			s.overstep += now.Sub(s.lastTick)
			s.lastTick = now

			n := uint32(s.overstep / step)
			if n > s.config.MaxTicksPerFrame {
				s.log.Warn("server falling behind, clamping overstep",
					"wanted", n, "ceiling", s.config.MaxTicksPerFrame)
				n = s.config.MaxTicksPerFrame
			}
			s.overstep -= step * time.Duration(n)

			s.instance.Time.QueueTicks(n)
			s.instance.TickNow(n)

			ticksSinceSync++
			if s.config.SyncEveryNTicks <= 0 || ticksSinceSync >= s.config.SyncEveryNTicks {
				ticksSinceSync = 0
				s.broadcastTick()
				s.broadcastSnapshot()
			}
		}
	}
}

func (s *Server) broadcastTick() {
	s.mu.RLock()
	defer s.mu.RUnlock()

	msg := protocol.UpdateServerTick{Tick: s.instance.Time.CurrentTick()}
	for id, sess := range s.sessions {
		if err := sess.send(msg); err != nil {
			s.log.Warn("failed to send tick", "conn", id, "err", err)
		}
	}
}

func (s *Server) broadcastSnapshot() {
	s.mu.RLock()
	provider := s.snapshotProvider
	s.mu.RUnlock()
	if provider == nil {
		return
	}
	s.BroadcastSnapshot(provider())
}

// Stop gracefully shuts down the server.
func (s *Server) Stop() {
	close(s.quitCh)
	<-s.doneCh
}

// Tick returns the server's current tick.
func (s *Server) Tick() simulation.Tick { return s.instance.Time.CurrentTick() }

// ReconcilePolicy decides what a server does with a ClientRequest whose
// predicted tick has already been committed (§4.6 "client-request
// reconciliation").
type ReconcilePolicy int

const (
	// ReconcileDiscard drops requests for ticks already committed.
	ReconcileDiscard ReconcilePolicy = iota
	// ReconcileApplyAtCurrentTick applies the request at the server's
	// current tick instead of the one the client predicted it at.
	ReconcileApplyAtCurrentTick
	// ReconcileApplyAtOriginalTick resolves the request to its original,
	// already committed tick; a handler that queues it there has it drained
	// under the late-update warn-and-apply policy (§3).
	ReconcileApplyAtOriginalTick
)

// ResolveClientRequest decides whether and at which tick to apply a
// ClientRequest whose predicted tick is requestTick, given the server's
// currentTick and a reconciliation policy.
func ResolveClientRequest(policy ReconcilePolicy, currentTick, requestTick simulation.Tick) (applyAt simulation.Tick, apply bool) {
	if requestTick >= currentTick {
		return requestTick, true
	}
	switch policy {
	case ReconcileApplyAtCurrentTick:
		return currentTick, true
	case ReconcileApplyAtOriginalTick:
		return requestTick, true
	default:
		return 0, false
	}
}

// BroadcastServerWorldUpdate fans a world update of type T out to every
// session. The session identified by excludeConnID (typically the one
// that originated the change and already predicted it locally) receives
// IncludeInPrediction=false; everyone else receives true (§4.6).
func BroadcastServerWorldUpdate[T any](s *Server, update simulation.WorldUpdate[T], excludeConnID string) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for id, sess := range s.sessions {
		msg := protocol.ServerWorldUpdate[T]{
			Update:              update,
			IncludeInPrediction: id != excludeConnID,
		}
		if err := sess.send(msg); err != nil {
			s.log.Warn("failed to send world update", "conn", id, "err", err)
		}
	}
}
