// Package server runs the UDP front of the chat backend: one receive loop
// that frames, rate-limits and enqueues datagrams, and a handler table the
// worker pool executes them against.
package server

import (
	"errors"
	"fmt"
	"net"
	"sync"

	"github.com/ayasaki/udpchat/audit"
	"github.com/ayasaki/udpchat/chat"
	"github.com/ayasaki/udpchat/config"
	"github.com/ayasaki/udpchat/dispatch"
	"github.com/ayasaki/udpchat/presence"
	"github.com/ayasaki/udpchat/protocol"
	"github.com/ayasaki/udpchat/social"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// request is the per-datagram context handed to a handler.
type request struct {
	traceID string
	addr    net.Addr
	rd      *protocol.Reader
}

// handlerFunc processes one request and returns the response frame, or nil
// when nothing should be sent back.
type handlerFunc func(req *request) []byte

// Server owns the UDP socket, the receive loop and the handler table. All
// business logic lives behind the social engine and the message router; the
// receive loop only frames and enqueues.
type Server struct {
	cfg      config.ServerConfig
	conn     net.PacketConn
	pool     *dispatch.Pool
	engine   *social.Engine
	router   *chat.Router
	reg      *presence.Registry
	audit    *audit.Service
	limiter  *sourceLimiter
	logger   *zap.Logger
	handlers map[protocol.MsgType]handlerFunc

	wg     sync.WaitGroup
	closed chan struct{}
}

// New binds the UDP socket and builds the handler table. The pool is owned
// by the caller; Stop drains it.
func New(cfg config.ServerConfig, engine *social.Engine, router *chat.Router,
	reg *presence.Registry, auditSvc *audit.Service, logger *zap.Logger) (*Server, error) {

	conn, err := net.ListenPacket("udp", cfg.ListenAddr)
	if err != nil {
		return nil, fmt.Errorf("listen %s: %w", cfg.ListenAddr, err)
	}
	s := &Server{
		cfg:     cfg,
		conn:    conn,
		pool:    dispatch.NewPool(cfg.Workers, cfg.QueueSize, dispatch.ParsePolicy(cfg.QueuePolicy), logger),
		engine:  engine,
		router:  router,
		reg:     reg,
		audit:   auditSvc,
		limiter: newSourceLimiter(cfg.RateLimitPPS, cfg.RateLimitBurst),
		logger:  logger,
		closed:  make(chan struct{}),
	}
	s.handlers = s.buildHandlers()
	return s, nil
}

// Addr returns the bound UDP address.
func (s *Server) Addr() net.Addr { return s.conn.LocalAddr() }

// QueueDepth returns the number of queued, unstarted tasks.
func (s *Server) QueueDepth() int { return s.pool.QueueDepth() }

// Dropped returns how many tasks the queue policy has discarded.
func (s *Server) Dropped() uint64 { return s.pool.Dropped() }

// CleanupLimiters drops idle per-source rate buckets.
func (s *Server) CleanupLimiters() int {
	return s.limiter.CleanupIdle(limiterIdle)
}

// Push sends an already-encoded frame to a client address. Used by the
// message router for online delivery.
func (s *Server) Push(addr net.Addr, frame []byte) error {
	_, err := s.conn.WriteTo(frame, addr)
	return err
}

// Start launches the receive loop.
func (s *Server) Start() {
	s.wg.Add(1)
	go s.receiveLoop()
	s.logger.Info("udp server listening", zap.String("addr", s.conn.LocalAddr().String()))
}

// Stop closes the socket, waits for the receive loop and drains the worker
// pool.
func (s *Server) Stop() {
	select {
	case <-s.closed:
		return
	default:
		close(s.closed)
	}
	s.conn.Close()
	s.wg.Wait()
	s.pool.Stop()
	s.logger.Info("udp server stopped")
}

func (s *Server) receiveLoop() {
	defer s.wg.Done()
	buf := make([]byte, protocol.HeaderSize+protocol.MaxPayload)
	for {
		n, addr, err := s.conn.ReadFrom(buf)
		if err != nil {
			select {
			case <-s.closed:
				return
			default:
			}
			if errors.Is(err, net.ErrClosed) {
				return
			}
			s.logger.Warn("read failed", zap.Error(err))
			continue
		}
		if !s.limiter.Allow(addr) {
			continue
		}
		typ, payload, err := protocol.DecodeFrame(buf[:n])
		if err != nil {
			// Malformed datagrams are dropped without a reply.
			s.logger.Debug("bad frame",
				zap.String("addr", addr.String()),
				zap.Int("len", n),
				zap.Error(err))
			continue
		}
		handler, ok := s.handlers[typ]
		if !ok {
			s.logger.Debug("unknown message type",
				zap.String("type", typ.String()),
				zap.String("addr", addr.String()))
			continue
		}

		// The buffer is reused by the next read; the task needs its own copy.
		body := make([]byte, len(payload))
		copy(body, payload)
		req := &request{
			traceID: uuid.NewString(),
			addr:    addr,
			rd:      protocol.NewReader(body),
		}
		s.pool.Submit(func() {
			if resp := handler(req); resp != nil {
				if _, err := s.conn.WriteTo(resp, req.addr); err != nil {
					s.logger.Warn("write failed",
						zap.String("addr", req.addr.String()),
						zap.Error(err))
				}
			}
		})
	}
}
