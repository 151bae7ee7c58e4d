package server

import (
	"net"
	"sync"
)

// connState is everything the event loop tracks per client: the socket,
// the accumulating read buffer the decoder resumes against, and the
// ordered outbound queue its writer goroutine drains. The queue is
// unbounded so a client that pipelines a large burst before reading any
// responses is never cut off; memory is reclaimed as the writer drains.
type connState struct {
	id      int
	conn    net.Conn
	recvBuf []byte

	mu      sync.Mutex
	pending [][]byte
	closed  bool
	wake    chan struct{}
}

func newConnState(id int, conn net.Conn) *connState {
	return &connState{
		id:   id,
		conn: conn,
		wake: make(chan struct{}, 1),
	}
}

// enqueue appends an encoded response frame to the outbound queue and
// nudges the writer. Frames enqueued after shutdown are discarded.
func (c *connState) enqueue(frame []byte) {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.pending = append(c.pending, frame)
	c.mu.Unlock()
	c.signal()
}

// shutdown freezes the queue. The writer flushes what is already pending
// and then closes the socket.
func (c *connState) shutdown() {
	c.mu.Lock()
	c.closed = true
	c.mu.Unlock()
	c.signal()
}

func (c *connState) signal() {
	select {
	case c.wake <- struct{}{}:
	default:
	}
}

// writeLoop drains the outbound queue in order, handling partial socket
// writes. Once shutdown is observed the queue cannot grow, so the swap
// that sees it also captures every remaining frame.
func (c *connState) writeLoop() {
	defer c.conn.Close()
	for {
		c.mu.Lock()
		batch := c.pending
		c.pending = nil
		done := c.closed
		c.mu.Unlock()

		for _, frame := range batch {
			for len(frame) > 0 {
				n, err := c.conn.Write(frame)
				if err != nil {
					return
				}
				frame = frame[n:]
			}
		}
		if done {
			return
		}
		<-c.wake
	}
}
