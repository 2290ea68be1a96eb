package server

import (
	"bytes"
	"encoding/gob"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/andersfylling/predictsim/internal/protocol"
	"github.com/andersfylling/predictsim/internal/simulation"
)

func encodeClientRequest(t *testing.T, req protocol.ClientRequest[protocol.Intent]) []byte {
	t.Helper()
	var msg any = req
	var buf bytes.Buffer
	require.NoError(t, gob.NewEncoder(&buf).Encode(&msg))
	return buf.Bytes()
}

func TestServerDispatchesClientRequestToHandler(t *testing.T) {
	srv := New(DefaultConfig(), 10*time.Millisecond, nil)
	srv.Instance().RunStartup()
	srv.instance.Time.QueueTicks(5)
	srv.instance.TickNow(5)

	var got struct {
		applyAt simulation.Tick
		intent  protocol.Intent
		called  bool
	}
	srv.OnClientRequest(func(sess *Session, applyAt simulation.Tick, intent protocol.Intent) {
		got.applyAt = applyAt
		got.intent = intent
		got.called = true
	})

	sess := &Session{ConnID: "conn-1"}
	data := encodeClientRequest(t, protocol.ClientRequest[protocol.Intent]{Tick: 10, Payload: protocol.IntentJump})
	srv.handleSessionMessage(sess, data)

	require.True(t, got.called)
	require.Equal(t, protocol.IntentJump, got.intent)
	require.Equal(t, simulation.Tick(10), got.applyAt)
	require.Equal(t, simulation.Tick(10), sess.LastAckTick)
}

func TestServerDropsStaleRequestUnderDiscardPolicy(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Policy = ReconcileDiscard
	srv := New(cfg, 10*time.Millisecond, nil)
	srv.Instance().RunStartup()
	srv.instance.Time.QueueTicks(5)
	srv.instance.TickNow(5)

	called := false
	srv.OnClientRequest(func(sess *Session, applyAt simulation.Tick, intent protocol.Intent) {
		called = true
	})

	sess := &Session{ConnID: "conn-1"}
	data := encodeClientRequest(t, protocol.ClientRequest[protocol.Intent]{Tick: 1, Payload: protocol.IntentLeft})
	srv.handleSessionMessage(sess, data)

	require.False(t, called, "a request older than current tick under ReconcileDiscard must not reach the handler")
	require.Equal(t, simulation.Tick(0), sess.LastAckTick)
}

func TestResolveClientRequestPolicies(t *testing.T) {
	applyAt, apply := ResolveClientRequest(ReconcileDiscard, 10, 12)
	require.True(t, apply)
	require.Equal(t, simulation.Tick(12), applyAt)

	_, apply = ResolveClientRequest(ReconcileDiscard, 10, 5)
	require.False(t, apply)

	applyAt, apply = ResolveClientRequest(ReconcileApplyAtCurrentTick, 10, 5)
	require.True(t, apply)
	require.Equal(t, simulation.Tick(10), applyAt)

	applyAt, apply = ResolveClientRequest(ReconcileApplyAtOriginalTick, 10, 5)
	require.True(t, apply)
	require.Equal(t, simulation.Tick(5), applyAt)
}
