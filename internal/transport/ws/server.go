package ws

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/cwrk-planet/relay-service/internal/domain"

	"github.com/gorilla/websocket"
	"github.com/samber/lo"
)

// HistoryStore — персистентная история комнаты.
type HistoryStore interface {
	Append(ctx context.Context, e domain.Event) (string, error)
	Recent(ctx context.Context) []domain.Event
}

// IdentityDeriver выдаёт псевдоним по метаданным подключения.
type IdentityDeriver interface {
	Derive(h http.Header) string
}

// Server — актор комнаты: жизненный цикл соединения от апгрейда до leave.
type Server struct {
	upgrader websocket.Upgrader
	hub      *Hub
	bcast    *Broadcaster
	store    HistoryStore
	ident    IdentityDeriver
	log      *slog.Logger

	pingEvery time.Duration
	now       func() time.Time
}

func NewServer(hub *Hub, bcast *Broadcaster, store HistoryStore, ident IdentityDeriver, log *slog.Logger) *Server {
	return &Server{
		hub:   hub,
		bcast: bcast,
		store: store,
		ident: ident,
		log:   log,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			// доступ уже отфильтрован edge-gate'ом выше по цепочке
			CheckOrigin: func(r *http.Request) bool { return true },
		},
		pingEvery: 15 * time.Second,
		now:       time.Now,
	}
}

// WS endpoint: GET /ws
func (s *Server) HandleWS(w http.ResponseWriter, r *http.Request) {
	if !websocket.IsWebSocketUpgrade(r) {
		http.Error(w, "Expected WebSocket", http.StatusUpgradeRequired)
		return
	}

	username := s.ident.Derive(r.Header)

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.log.Warn("ws upgrade failed", "err", err)
		return
	}

	c := newWSConn(conn, username)

	// hello до регистрации: в реестре не бывает соединений,
	// которым ещё не сообщили их имя
	if err := c.sendFrame(helloFrame(username)); err != nil {
		s.log.Debug("ws hello failed", "username", username, "err", err)
		_ = c.Close()
		return
	}

	s.hub.Add(c, username)
	s.replayHistory(r.Context(), c)

	// joined получает и сам подключившийся
	s.persistAndPublish(r.Context(), domain.Event{
		Kind:     domain.KindSystem,
		Username: username,
		Text:     username + " joined",
		TS:       s.now().UnixMilli(),
	})

	go s.writeLoop(r.Context(), c)
	s.readLoop(r.Context(), c)

	s.hub.Remove(c)
	s.persistAndPublish(r.Context(), domain.Event{
		Kind:     domain.KindSystem,
		Username: username,
		Text:     username + " left",
		TS:       s.now().UnixMilli(),
	})

	if err := c.Close(); err != nil {
		s.log.Debug("ws close failed", "username", username, "err", err)
	}
}

func (s *Server) replayHistory(ctx context.Context, c *wsConn) {
	events := s.store.Recent(ctx)
	frames := lo.Map(events, func(e domain.Event, _ int) Frame {
		return historyFrame(e)
	})
	for _, f := range frames {
		if err := c.sendFrame(f); err != nil {
			s.log.Debug("ws history replay aborted", "username", c.username, "err", err)
			return
		}
	}
}

// persistAndPublish: append happens-before publish для каждого события.
// Ошибка записи не фатальна — живая доставка важнее истории.
func (s *Server) persistAndPublish(ctx context.Context, e domain.Event) {
	if _, err := s.store.Append(ctx, e); err != nil {
		s.log.Warn("event append failed", "kind", e.Kind, "username", e.Username, "err", err)
	}
	s.bcast.Publish(e)
}

func (s *Server) readLoop(ctx context.Context, c *wsConn) {
	defer func() { _ = c.Close() }()

	c.conn.SetReadLimit(1 << 20)
	_ = c.conn.SetReadDeadline(time.Now().Add(2 * s.pingEvery))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(2 * s.pingEvery))
	})

	for {
		mt, data, err := c.conn.ReadMessage()
		if err != nil {
			break
		}
		if mt != websocket.TextMessage {
			continue
		}

		// входящий кадр — тело сообщения как есть; пустые после trim игнорируем
		text := string(data)
		if strings.TrimSpace(text) == "" {
			continue
		}

		s.persistAndPublish(ctx, domain.Event{
			Kind:     domain.KindChat,
			Username: c.username,
			Text:     text,
			TS:       s.now().UnixMilli(),
		})
	}
}

func (s *Server) writeLoop(ctx context.Context, c *wsConn) {
	ticker := time.NewTicker(s.pingEvery)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			_ = c.conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(5*time.Second))
		case <-ctx.Done():
			return
		case <-c.closed:
			return
		}
	}
}

// --- wsConn ---

type wsConn struct {
	conn     *websocket.Conn
	username string
	sendMu   chan struct{}
	closed   chan struct{}
}

func newWSConn(c *websocket.Conn, username string) *wsConn {
	return &wsConn{
		conn:     c,
		username: username,
		sendMu:   make(chan struct{}, 1),
		closed:   make(chan struct{}),
	}
}

func (c *wsConn) Send(data []byte) error {
	c.sendMu <- struct{}{}
	defer func() { <-c.sendMu }()
	_ = c.conn.SetWriteDeadline(time.Now().Add(5 * time.Second))

	return c.conn.WriteMessage(websocket.TextMessage, data)
}

func (c *wsConn) sendFrame(f Frame) error {
	data, err := json.Marshal(f)
	if err != nil {
		return err
	}
	return c.Send(data)
}

func (c *wsConn) Close() error {
	select {
	case <-c.closed:
	default:
		close(c.closed)
	}

	return c.conn.Close()
}

func (c *wsConn) Username() string { return c.username }
