// Package network implements client-server communication: connection
// lifecycle, message framing, and a best-effort congestion signal a caller
// can consult to decide whether a frame may be skipped for a given peer
// (§6).
package network

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"net"
	"sync/atomic"
	"time"

	"github.com/cespare/xxhash/v2"
)

// maxFrameSize bounds a single message, guarding Recv against a corrupt or
// hostile length prefix allocating unbounded memory.
const maxFrameSize = 16 << 20 // 16 MiB

// congestionThreshold is the write latency above which a connection is
// reported as congested. It is deliberately generous: this is a
// best-effort signal for the orchestrator to skip optional broadcasts to
// one lagging peer, not a precise measurement.
const congestionThreshold = 50 * time.Millisecond

// Transport abstracts the network connection lifecycle.
type Transport interface {
	// Connect establishes a connection to the server.
	Connect(addr string) (Connection, error)

	// Listen starts listening on addr (server only).
	Listen(addr string) error

	// Accept waits for an incoming connection (server only).
	Accept() (Connection, error)

	// Close closes the transport.
	Close() error
}

// Connection represents a single client-server connection with
// per-connection, per-message-type, in-order delivery (§6 "Transport
// contract required from the host").
type Connection interface {
	// Send frames and writes one message. Safe to call from one goroutine
	// at a time per connection (the orchestrator serializes writes).
	Send(data []byte) error

	// Recv reads and unframes one message, blocking until one arrives.
	Recv() ([]byte, error)

	// Close closes the connection.
	Close() error

	// RemoteAddr returns the remote address.
	RemoteAddr() net.Addr

	// Congested reports a best-effort signal that this connection is
	// currently backed up, so the caller may choose to skip a
	// non-essential broadcast to it this tick.
	Congested() bool
}

// TCPTransport implements Transport over TCP.
type TCPTransport struct {
	listener net.Listener
}

// NewTCPTransport creates a TCP transport.
func NewTCPTransport() *TCPTransport {
	return &TCPTransport{}
}

// Listen starts listening on the given address (server).
func (t *TCPTransport) Listen(addr string) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return err
	}
	t.listener = ln
	return nil
}

// Connect connects to a server (client).
func (t *TCPTransport) Connect(addr string) (Connection, error) {
	conn, err := net.Dial("tcp", addr)
	if err != nil {
		return nil, err
	}
	return newTCPConnection(conn), nil
}

// Accept accepts a new connection (server).
func (t *TCPTransport) Accept() (Connection, error) {
	conn, err := t.listener.Accept()
	if err != nil {
		return nil, err
	}
	return newTCPConnection(conn), nil
}

// Close closes the transport.
func (t *TCPTransport) Close() error {
	if t.listener != nil {
		return t.listener.Close()
	}
	return nil
}

// TCPConnection wraps a TCP connection with length-prefixed, checksummed
// framing: [4 bytes length BE][8 bytes xxhash64 of payload][payload].
type TCPConnection struct {
	conn   net.Conn
	reader *bufio.Reader

	lastWriteNanos atomic.Int64
}

func newTCPConnection(conn net.Conn) *TCPConnection {
	return &TCPConnection{conn: conn, reader: bufio.NewReaderSize(conn, 4096)}
}

func (c *TCPConnection) Send(data []byte) error {
	if len(data) > maxFrameSize {
		return fmt.Errorf("network: frame of %d bytes exceeds max %d", len(data), maxFrameSize)
	}

	header := make([]byte, 12)
	binary.BigEndian.PutUint32(header[0:4], uint32(len(data)))
	binary.BigEndian.PutUint64(header[4:12], xxhash.Sum64(data))

	start := time.Now()
	if _, err := c.conn.Write(header); err != nil {
		return err
	}
	if _, err := c.conn.Write(data); err != nil {
		return err
	}
	c.lastWriteNanos.Store(time.Since(start).Nanoseconds())
	return nil
}

func (c *TCPConnection) Recv() ([]byte, error) {
	header := make([]byte, 12)
	if _, err := readFull(c.reader, header); err != nil {
		return nil, err
	}

	length := binary.BigEndian.Uint32(header[0:4])
	if length > maxFrameSize {
		return nil, fmt.Errorf("network: peer announced frame of %d bytes, exceeds max %d", length, maxFrameSize)
	}
	wantChecksum := binary.BigEndian.Uint64(header[4:12])

	payload := make([]byte, length)
	if _, err := readFull(c.reader, payload); err != nil {
		return nil, err
	}

	if got := xxhash.Sum64(payload); got != wantChecksum {
		return nil, fmt.Errorf("network: checksum mismatch, frame corrupted in transit")
	}
	return payload, nil
}

func readFull(r *bufio.Reader, buf []byte) (int, error) {
	total := 0
	for total < len(buf) {
		n, err := r.Read(buf[total:])
		total += n
		if err != nil {
			return total, err
		}
	}
	return total, nil
}

func (c *TCPConnection) Close() error {
	return c.conn.Close()
}

func (c *TCPConnection) RemoteAddr() net.Addr {
	return c.conn.RemoteAddr()
}

// Congested reports whether the most recent Send call took longer than
// congestionThreshold, a cheap proxy for a full kernel send buffer.
func (c *TCPConnection) Congested() bool {
	return time.Duration(c.lastWriteNanos.Load()) > congestionThreshold
}
