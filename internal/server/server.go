// Package server drives concurrent client access to the storage engine
// through a single event loop. One goroutine owns the store, the
// connection table and every read buffer; per-connection reader and
// writer goroutines are plain byte pumps with no shared state, so every
// command executes atomically with respect to all other clients.
package server

import (
	"context"
	"errors"
	"log"
	"net"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/dhrubo326/imds/internal/api"
	"github.com/dhrubo326/imds/internal/kverr"
	"github.com/dhrubo326/imds/internal/protocol"
	"github.com/dhrubo326/imds/internal/skiplist"
	"github.com/dhrubo326/imds/internal/store"
)

const readBufSize = 4096

type eventKind uint8

const (
	evAccept eventKind = iota
	evData
	evClose
)

// event is one unit of readiness delivered to the loop: a new connection,
// bytes read from a connection, or a connection teardown.
type event struct {
	kind eventKind
	id   int
	data []byte
	conn net.Conn
}

// Config carries the server's collaborators and knobs.
type Config struct {
	Addr    string
	Store   *store.Store
	Metrics *api.Metrics
	Tracer  *api.Tracer
}

// Server is the event loop: multiplexer, connection table and store in
// one struct, mutated only by the loop goroutine.
type Server struct {
	addr    string
	store   *store.Store
	metrics *api.Metrics
	tracer  *api.Tracer

	ln     net.Listener
	events chan event
	conns  map[int]*connState
	nextID int

	stopCh   chan struct{}
	loopDone chan struct{}
	stopOnce sync.Once
}

// New creates a server; Start brings up the listener and the loop.
func New(cfg Config) *Server {
	return &Server{
		addr:     cfg.Addr,
		store:    cfg.Store,
		metrics:  cfg.Metrics,
		tracer:   cfg.Tracer,
		events:   make(chan event, 1024),
		conns:    make(map[int]*connState),
		stopCh:   make(chan struct{}),
		loopDone: make(chan struct{}),
	}
}

// Start listens on the configured address and runs the accept and event
// loops. It returns once both are running.
func (s *Server) Start() error {
	ln, err := net.Listen("tcp", s.addr)
	if err != nil {
		return err
	}
	s.ln = ln

	go s.acceptLoop()
	go s.eventLoop()
	return nil
}

// Addr returns the bound listen address.
func (s *Server) Addr() net.Addr {
	if s.ln == nil {
		return nil
	}
	return s.ln.Addr()
}

// Shutdown stops accepting, drains the loop and closes every connection.
func (s *Server) Shutdown(ctx context.Context) error {
	s.stopOnce.Do(func() {
		close(s.stopCh)
		if s.ln != nil {
			s.ln.Close()
		}
	})

	select {
	case <-s.loopDone:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *Server) acceptLoop() {
	for {
		conn, err := s.ln.Accept()
		if err != nil {
			select {
			case <-s.stopCh:
			default:
				if !errors.Is(err, net.ErrClosed) {
					log.Printf("server: accept failed: %v", err)
				}
			}
			return
		}
		select {
		case s.events <- event{kind: evAccept, conn: conn}:
		case <-s.stopCh:
			conn.Close()
			return
		}
	}
}

func (s *Server) eventLoop() {
	defer close(s.loopDone)
	for {
		select {
		case ev := <-s.events:
			switch ev.kind {
			case evAccept:
				s.register(ev.conn)
			case evData:
				if c, ok := s.conns[ev.id]; ok {
					s.handleData(c, ev.data)
				}
			case evClose:
				s.dropConn(ev.id)
			}
		case <-s.stopCh:
			for id := range s.conns {
				s.dropConn(id)
			}
			return
		}
	}
}

func (s *Server) register(conn net.Conn) {
	s.nextID++
	c := newConnState(s.nextID, conn)
	s.conns[c.id] = c
	s.metrics.ConnOpened()
	log.Printf("server: accepted connection %d from %s", c.id, conn.RemoteAddr())

	go s.readLoop(c)
	go c.writeLoop()
}

// dropConn deregisters a connection and discards its buffers. Buffered
// but unprocessed requests are dropped, not retried; queued responses are
// still flushed by the writer before the socket closes.
func (s *Server) dropConn(id int) {
	c, ok := s.conns[id]
	if !ok {
		return
	}
	delete(s.conns, id)
	c.recvBuf = nil
	c.shutdown()
	s.metrics.ConnClosed()
}

// readLoop pumps socket bytes into the event channel. It owns nothing but
// the scratch buffer; the loop goroutine does all decoding.
func (s *Server) readLoop(c *connState) {
	buf := make([]byte, readBufSize)
	for {
		n, err := c.conn.Read(buf)
		if n > 0 {
			data := make([]byte, n)
			copy(data, buf[:n])
			select {
			case s.events <- event{kind: evData, id: c.id, data: data}:
			case <-s.stopCh:
				return
			}
		}
		if err != nil {
			select {
			case s.events <- event{kind: evClose, id: c.id}:
			case <-s.stopCh:
			}
			return
		}
	}
}

// handleData appends newly read bytes to the connection's buffer and
// extracts every complete request frame, in arrival order, producing
// exactly one response per request. A partial trailing frame stays
// buffered for the next read.
func (s *Server) handleData(c *connState, data []byte) {
	c.recvBuf = append(c.recvBuf, data...)
	for {
		args, consumed, err := protocol.DecodeRequest(c.recvBuf)
		if err != nil {
			// The frame boundary is lost; answer if possible, then
			// close this connection only.
			c.enqueue(protocol.EncodeResponse(protocol.StatusProtocol, []byte(err.Error())))
			log.Printf("server: connection %d: %v", c.id, err)
			s.dropConn(c.id)
			return
		}
		if args == nil {
			break
		}
		c.recvBuf = c.recvBuf[consumed:]

		status, payload := s.execute(args)
		c.enqueue(protocol.EncodeResponse(status, payload))
	}
	if len(c.recvBuf) == 0 {
		c.recvBuf = nil
	}
}

// execute dispatches one decoded request to the store. Command names are
// case-insensitive; argument-count mismatches and unknown commands map to
// the bad-arguments status. Errors never close the connection.
func (s *Server) execute(args []string) (uint32, []byte) {
	if len(args) == 0 {
		return protocol.StatusBadArguments, []byte("ERR empty command")
	}
	cmd := strings.ToLower(args[0])
	start := time.Now()

	_, span := s.tracer.StartCommand(context.Background(), cmd)

	payload, err := s.dispatch(cmd, args)
	status := protocol.StatusOf(err)
	if err != nil {
		payload = []byte(err.Error())
		s.tracer.AddSpanError(span, err)
	}
	span.End()

	s.metrics.ObserveCommand(cmd, strconv.Itoa(int(status)), time.Since(start))
	m := s.store.Metrics()
	s.metrics.SetStoreStats(m.Keys, m.Evictions)
	return status, payload
}

func (s *Server) dispatch(cmd string, args []string) ([]byte, error) {
	switch cmd {
	case "get":
		if len(args) != 2 {
			return nil, kverr.BadArguments("GET needs key")
		}
		value, err := s.store.Get(args[1])
		if err != nil {
			return nil, err
		}
		return []byte(value), nil

	case "set":
		if len(args) != 3 {
			return nil, kverr.BadArguments("SET needs key and value")
		}
		if err := s.store.Set(args[1], args[2]); err != nil {
			return nil, err
		}
		return []byte("OK"), nil

	case "del":
		if len(args) != 2 {
			return nil, kverr.BadArguments("DEL needs key")
		}
		if err := s.store.Del(args[1]); err != nil {
			return nil, err
		}
		return []byte("OK"), nil

	case "zadd":
		if len(args) != 4 {
			return nil, kverr.BadArguments("ZADD needs key, score and member")
		}
		score, err := store.ParseScore(args[2])
		if err != nil {
			return nil, err
		}
		if err := s.store.ZAdd(args[1], score, args[3]); err != nil {
			return nil, err
		}
		return []byte("OK"), nil

	case "zrange":
		if len(args) != 4 {
			return nil, kverr.BadArguments("ZRANGE needs key, start and end scores")
		}
		startScore, err := store.ParseScore(args[2])
		if err != nil {
			return nil, err
		}
		endScore, err := store.ParseScore(args[3])
		if err != nil {
			return nil, err
		}
		elements, err := s.store.ZRange(args[1], startScore, endScore)
		if err != nil {
			return nil, err
		}
		return encodeRange(elements), nil

	case "zrank":
		if len(args) != 3 {
			return nil, kverr.BadArguments("ZRANK needs key and member")
		}
		rank, err := s.store.ZRank(args[1], args[2])
		if err != nil {
			return nil, err
		}
		return []byte(strconv.Itoa(rank)), nil

	case "zrem":
		if len(args) != 4 {
			return nil, kverr.BadArguments("ZREM needs key, score and member")
		}
		score, err := store.ParseScore(args[2])
		if err != nil {
			return nil, err
		}
		if err := s.store.ZRem(args[1], score, args[3]); err != nil {
			return nil, err
		}
		return []byte("OK"), nil

	default:
		return nil, kverr.BadArguments("unknown command " + cmd)
	}
}

// encodeRange renders range results as a comma-separated member list in
// ascending (score, member) order.
func encodeRange(elements []skiplist.Element) []byte {
	if len(elements) == 0 {
		return nil
	}
	members := make([]string, len(elements))
	for i, e := range elements {
		members[i] = e.Member
	}
	return []byte(strings.Join(members, ","))
}
