package ws

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"runtime/debug"
	"slices"
	"time"

	"github.com/gorilla/websocket"
	"github.com/webitel/im-relay-service/config"
	"github.com/webitel/im-relay-service/internal/domain/model"
	wsmarshaller "github.com/webitel/im-relay-service/internal/handler/marshaller/ws"
	"github.com/webitel/im-relay-service/internal/service"
	"github.com/webitel/im-relay-service/internal/service/dto"
	"golang.org/x/sync/errgroup"
)

var (
	errPeerClosed = errors.New("peer closed the connection")
	errConnClosed = errors.New("connection handle closed")
)

type WSHandler struct {
	logger   *slog.Logger
	relay    service.Relayer
	upgrader websocket.Upgrader

	readLimit    int64
	writeTimeout time.Duration
	pingInterval time.Duration

	// baseCtx parents every session so Shutdown can end them all;
	// hijacked connections are not tracked by http.Server.Shutdown.
	baseCtx   context.Context
	cancelAll context.CancelFunc
}

func NewWSHandler(logger *slog.Logger, relay service.Relayer, cfg *config.Config) *WSHandler {
	h := &WSHandler{
		logger:       logger,
		relay:        relay,
		readLimit:    cfg.WS.ReadLimit,
		writeTimeout: cfg.WS.WriteTimeout,
		pingInterval: cfg.WS.PingInterval,
	}
	h.baseCtx, h.cancelAll = context.WithCancel(context.Background())
	if h.writeTimeout <= 0 {
		h.writeTimeout = 10 * time.Second
	}
	if h.pingInterval <= 0 {
		h.pingInterval = 30 * time.Second
	}

	origins := cfg.WS.AllowedOrigins
	h.upgrader = websocket.Upgrader{
		CheckOrigin: func(r *http.Request) bool {
			// An empty allow-list accepts every origin.
			if len(origins) == 0 {
				return true
			}
			return slices.Contains(origins, r.Header.Get("Origin"))
		},
	}
	return h
}

func (h *WSHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	// 1. UPGRADE TO WEBSOCKET (the upgrader answers the HTTP error itself)
	ws, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("ws upgrade failed", "error", err, "remote_ip", r.RemoteAddr)
		return
	}
	defer ws.Close()

	ctx, cancel := context.WithCancel(h.baseCtx)
	defer cancel()

	// 2. OPEN AN UNREGISTERED SESSION
	sess, err := h.relay.Connect(ctx, model.ConnectMetadata{
		RemoteIP:  r.RemoteAddr,
		UserAgent: r.UserAgent(),
	})
	if err != nil {
		_ = ws.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseTryAgainLater, "relay unavailable"),
			time.Now().Add(time.Second))
		return
	}
	defer h.relay.Disconnect(sess)

	// 3. PUMPS: the first one to fail tears the other down
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return h.readPump(gctx, ws, sess) })
	g.Go(func() error { return h.writePump(gctx, ws, sess.Conn()) })
	g.Go(func() error {
		<-gctx.Done()
		// unblocks a reader parked in ReadMessage
		_ = ws.Close()
		return nil
	})

	if err := g.Wait(); err != nil && !errors.Is(err, errPeerClosed) && !errors.Is(err, errConnClosed) {
		h.logger.Debug("ws session ended", "conn_id", sess.Conn().GetID(), "reason", err)
	}
}

// Shutdown closes every open WebSocket session.
func (h *WSHandler) Shutdown() {
	h.cancelAll()
}

func (h *WSHandler) readPump(ctx context.Context, ws *websocket.Conn, sess *service.Session) error {
	pongWait := 2 * h.pingInterval
	if h.readLimit > 0 {
		ws.SetReadLimit(h.readLimit)
	}
	_ = ws.SetReadDeadline(time.Now().Add(pongWait))
	ws.SetPongHandler(func(string) error {
		return ws.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		typ, data, err := ws.ReadMessage()
		if err != nil {
			if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway, websocket.CloseNoStatusReceived) ||
				errors.Is(err, net.ErrClosed) {
				return errPeerClosed
			}
			return fmt.Errorf("ws read: %w", err)
		}
		// any inbound traffic proves liveness
		_ = ws.SetReadDeadline(time.Now().Add(pongWait))

		if typ != websocket.TextMessage && typ != websocket.BinaryMessage {
			continue
		}
		h.handleFrame(ctx, sess, data)
	}
}

// handleFrame decodes and dispatches one inbound frame. Rejections are reported
// to the client as `error` events; the connection stays open.
func (h *WSHandler) handleFrame(ctx context.Context, sess *service.Session, data []byte) {
	defer func() {
		if r := recover(); r != nil {
			h.logger.Error("WS_FRAME_PANIC_RECOVERED",
				"err", r,
				"conn_id", sess.Conn().GetID(),
				"stack", string(debug.Stack()),
			)
		}
	}()

	var env dto.Envelope
	if err := json.Unmarshal(data, &env); err != nil || env.Event == "" {
		sess.Conn().Send(model.NewErrorEvent(service.CodeMalformedEvent, "", "frame is not an event envelope"))
		return
	}

	err := h.relay.Dispatch(ctx, sess, &env)
	if err == nil {
		return
	}

	var evErr *service.EventError
	if errors.As(err, &evErr) {
		sess.Conn().Send(model.NewErrorEvent(evErr.Code, evErr.Event, evErr.Err.Error()))
	}
}

func (h *WSHandler) writePump(ctx context.Context, ws *websocket.Conn, conn model.Connector) error {
	ticker := time.NewTicker(h.pingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			_ = ws.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
				time.Now().Add(h.writeTimeout))
			return ctx.Err()

		case <-conn.Done():
			// The hub evicted this handle. Events it already accepted precede
			// the queued backlog, so they are written before closing.
			if err := h.flush(ws, conn); err != nil {
				return err
			}
			_ = ws.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseTryAgainLater, "reconnect to resume delivery"),
				time.Now().Add(h.writeTimeout))
			return errConnClosed

		case ev := <-conn.Recv():
			if err := h.write(ws, ev); err != nil {
				return err
			}

		case <-ticker.C:
			_ = ws.SetWriteDeadline(time.Now().Add(h.writeTimeout))
			if err := ws.WriteMessage(websocket.PingMessage, nil); err != nil {
				return fmt.Errorf("ws ping: %w", err)
			}
		}
	}
}

func (h *WSHandler) write(ws *websocket.Conn, ev model.Eventer) error {
	data, err := wsmarshaller.MarshallDeliveryEvent(ev)
	if err != nil {
		h.logger.Error("failed to marshal ws event", "error", err, "event_id", ev.GetID())
		return nil
	}

	_ = ws.SetWriteDeadline(time.Now().Add(h.writeTimeout))
	if err := ws.WriteMessage(websocket.TextMessage, data); err != nil {
		return fmt.Errorf("ws write: %w", err)
	}
	return nil
}

// flush writes whatever is still buffered on conn.
func (h *WSHandler) flush(ws *websocket.Conn, conn model.Connector) error {
	for {
		select {
		case ev := <-conn.Recv():
			if err := h.write(ws, ev); err != nil {
				return err
			}
		default:
			return nil
		}
	}
}
