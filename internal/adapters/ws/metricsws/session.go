package metricsws

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"fleetmon-server/internal/config"
	"fleetmon-server/internal/domain"
	"fleetmon-server/internal/logger"
	"fleetmon-server/internal/telemetry"

	"github.com/gorilla/websocket"
)

const (
	writeWait      = 10 * time.Second
	maxMessageSize = 4096
	sendBuffer     = 64

	heartbeatTask = "heartbeat"
)

// MetricsSource is the part of the monitoring registry a session reads.
type MetricsSource interface {
	GetOrStartMetrics(ctx context.Context, serverID string) *domain.ServerMetrics
}

type task struct {
	cancel context.CancelFunc
	done   chan struct{}
}

func (t *task) stop() <-chan struct{} {
	t.cancel()
	return t.done
}

// outbound is an encoded frame. gen is the subscription it belongs to; zero
// means it is not tied to one.
type outbound struct {
	gen  uint64
	data []byte
}

// Session is one live metrics stream. It has at most one push subscription;
// subscribing again replaces it.
type Session struct {
	conn   *websocket.Conn
	codec  Codec
	source MetricsSource
	cfg    config.StreamConfig
	tm     *telemetry.Metrics
	log    logger.Logger

	ctx    context.Context
	cancel context.CancelFunc
	send   chan outbound

	lastBeat atomic.Int64
	// gen changes on every subscribe and unsubscribe; queued frames of an
	// older subscription are dropped by the write pump.
	gen atomic.Uint64

	mu       sync.Mutex
	serverID string
	tasks    map[string]*task

	closeOnce sync.Once
}

// NewSession binds a session to parent; cancelling parent closes it.
func NewSession(parent context.Context, conn *websocket.Conn, codec Codec, source MetricsSource, cfg config.StreamConfig, tm *telemetry.Metrics, log logger.Logger) *Session {
	ctx, cancel := context.WithCancel(parent)

	s := &Session{
		conn:   conn,
		codec:  codec,
		source: source,
		cfg:    cfg,
		tm:     tm,
		log:    log,

		ctx:    ctx,
		cancel: cancel,
		send:   make(chan outbound, sendBuffer),

		tasks: make(map[string]*task),
	}
	s.touch()

	return s
}

// Run serves the session until the peer leaves, the heartbeat times out or
// the server closes it. It returns after every task has exited.
func (s *Session) Run() {
	s.tm.ConnectedClients.Inc()
	defer s.tm.ConnectedClients.Dec()

	s.log.Info("ws: session opened")

	writerDone := make(chan struct{})
	go s.writePump(writerDone)

	s.startTask(heartbeatTask, s.heartbeat)

	s.readPump()

	s.close(websocket.CloseNormalClosure, "")

	for _, done := range s.stopTasks() {
		<-done
	}
	<-writerDone
	s.conn.Close()

	s.log.Info("ws: session closed")
}

// Subscribed returns the server currently pushed, or "" when idle.
func (s *Session) Subscribed() string {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.serverID
}

func (s *Session) readPump() {
	s.conn.SetReadLimit(maxMessageSize)

	s.conn.SetPingHandler(func(data string) error {
		s.touch()
		err := s.conn.WriteControl(websocket.PongMessage, []byte(data), time.Now().Add(writeWait))
		if errors.Is(err, websocket.ErrCloseSent) {
			return nil
		}
		return err
	})
	s.conn.SetPongHandler(func(string) error {
		s.touch()
		return nil
	})

	for {
		messageType, data, err := s.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure, websocket.CloseAbnormalClosure) {
				s.log.Warn("ws: client disconnected unexpected", "error", err)
			}
			return
		}

		var msg domain.WsClientMessage
		if err := decodeInbound(messageType, data, &msg); err != nil {
			s.log.Debug("ws: ignoring malformed message", "error", err)
			continue
		}

		s.handle(msg)
	}
}

func (s *Session) handle(msg domain.WsClientMessage) {
	switch msg.Type {
	case domain.WsSubscribe:
		if msg.ServerID == "" {
			return
		}
		s.subscribe(msg.ServerID)
	case domain.WsUnsubscribe:
		s.unsubscribe()
	case domain.WsPing:
		s.touch()
		s.enqueue(0, domain.WsServerEvent{Type: domain.WsPong})
	case domain.WsPong:
		s.touch()
	default:
		s.log.Debug("ws: unknown client message type", "type", msg.Type)
	}
}

func (s *Session) subscribe(serverID string) {
	s.mu.Lock()
	old := s.tasks[metricsTask(s.serverID)]
	delete(s.tasks, metricsTask(s.serverID))

	var wait <-chan struct{}
	if old != nil {
		wait = old.stop()
	}
	s.mu.Unlock()

	if wait != nil {
		<-wait
	}

	s.mu.Lock()
	s.serverID = serverID
	s.mu.Unlock()

	gen := s.gen.Add(1)
	s.startTask(metricsTask(serverID), func(ctx context.Context) {
		s.push(ctx, serverID, gen)
	})

	s.log.Debug("ws: subscribed", "server_id", serverID)
}

func (s *Session) unsubscribe() {
	s.mu.Lock()
	t := s.tasks[metricsTask(s.serverID)]
	delete(s.tasks, metricsTask(s.serverID))
	prev := s.serverID
	s.serverID = ""

	var wait <-chan struct{}
	if t != nil {
		wait = t.stop()
	}
	s.mu.Unlock()

	if wait != nil {
		<-wait
		s.gen.Add(1)
		s.log.Debug("ws: unsubscribed", "server_id", prev)
	}
}

func (s *Session) push(ctx context.Context, serverID string, gen uint64) {
	ticker := time.NewTicker(s.cfg.PushInterval)
	defer ticker.Stop()

	for {
		m := s.source.GetOrStartMetrics(ctx, serverID)
		if ctx.Err() != nil {
			return
		}

		if m == nil {
			s.enqueue(gen, domain.NewErrorEvent(serverID, domain.WsMetricsUnavailable))
		} else {
			s.enqueue(gen, domain.NewResourceMetricsEvent(serverID, m))
		}

		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

func (s *Session) heartbeat(ctx context.Context) {
	ticker := time.NewTicker(s.cfg.HeartbeatInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if since := time.Since(s.lastHeartbeat()); since > s.cfg.ClientTimeout {
				s.log.Warn("ws: heartbeat timed out", "since", since)
				s.close(websocket.CloseGoingAway, "heartbeat timeout")
				return
			}

			if err := s.conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait)); err != nil {
				s.log.Debug("ws: ping failed", "error", err)
				s.close(websocket.CloseGoingAway, "")
				return
			}
		}
	}
}

func (s *Session) writePump(done chan struct{}) {
	defer close(done)

	for {
		select {
		case <-s.ctx.Done():
			s.close(websocket.CloseGoingAway, "")
			return
		case message := <-s.send:
			if s.stale(message) {
				continue
			}

			s.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := s.conn.WriteMessage(s.codec.MessageType(), message.data); err != nil {
				s.log.Debug("ws: write failed", "error", err)
				s.close(websocket.CloseAbnormalClosure, "")
				return
			}
		}
	}
}

// stale reports a frame queued for a subscription that has since changed.
func (s *Session) stale(message outbound) bool {
	return message.gen != 0 && message.gen != s.gen.Load()
}

func (s *Session) enqueue(gen uint64, ev domain.WsServerEvent) {
	data, err := s.codec.Encode(ev)
	if err != nil {
		s.log.Error("ws: failed to encode server event", "error", err)
		return
	}

	select {
	case s.send <- outbound{gen: gen, data: data}:
		s.tm.FramesSent.WithLabelValues(ev.Type).Inc()
	case <-s.ctx.Done():
	default:
		s.log.Warn("ws: send buffer full, dropping frame", "type", ev.Type)
	}
}

func (s *Session) startTask(name string, fn func(ctx context.Context)) {
	ctx, cancel := context.WithCancel(s.ctx)
	t := &task{cancel: cancel, done: make(chan struct{})}

	s.mu.Lock()
	s.tasks[name] = t
	s.mu.Unlock()

	go func() {
		defer close(t.done)
		fn(ctx)
	}()
}

func (s *Session) stopTasks() []<-chan struct{} {
	s.mu.Lock()
	defer s.mu.Unlock()

	waits := make([]<-chan struct{}, 0, len(s.tasks))
	for name, t := range s.tasks {
		waits = append(waits, t.stop())
		delete(s.tasks, name)
	}
	s.serverID = ""

	return waits
}

// close cancels the session and unblocks the reader. Safe to call from any goroutine.
func (s *Session) close(code int, reason string) {
	s.closeOnce.Do(func() {
		s.cancel()

		if code != websocket.CloseAbnormalClosure {
			msg := websocket.FormatCloseMessage(code, reason)
			s.conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(writeWait))
		}
		s.conn.Close()
	})
}

func (s *Session) touch() {
	s.lastBeat.Store(time.Now().UnixNano())
}

func (s *Session) lastHeartbeat() time.Time {
	return time.Unix(0, s.lastBeat.Load())
}

func metricsTask(serverID string) string {
	return "metrics_" + serverID
}
