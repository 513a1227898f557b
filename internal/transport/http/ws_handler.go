package http

import (
	"context"
	"errors"
	"io"
	stdhttp "net/http"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"github.com/rs/zerolog"

	"github.com/vovakirdan/voxroom-server/internal/config"
	"github.com/vovakirdan/voxroom-server/internal/core"
	"github.com/vovakirdan/voxroom-server/internal/proto"
)

var errClosedByServer = errors.New("connection closed by server")

// WSHandler upgrades HTTP connections and bridges them to the coordinator.
// Each connection gets one reader that executes commands in arrival order and
// one writer that drains the connection's event queue.
type WSHandler struct {
	coord           Coordinator
	log             *zerolog.Logger
	maxMessageBytes int64
	rateLimit       int
	writeTimeout    time.Duration
}

const defaultWriteTimeout = 10 * time.Second

// NewWSHandler builds a new WebSocket handler.
func NewWSHandler(coord Coordinator, cfg *config.Config, logger *zerolog.Logger) stdhttp.Handler {
	return &WSHandler{
		coord:           coord,
		log:             logger,
		maxMessageBytes: cfg.MaxMessageBytes,
		rateLimit:       cfg.RateLimitPerMinute,
		writeTimeout:    cfg.WriteTimeout,
	}
}

func (h *WSHandler) ServeHTTP(w stdhttp.ResponseWriter, r *stdhttp.Request) {
	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		InsecureSkipVerify: true,
	})
	if err != nil {
		h.log.Error().Err(err).Msg("ws accept error")
		return
	}
	defer conn.Close(websocket.StatusInternalError, "internal error")
	if h.maxMessageBytes > 0 {
		conn.SetReadLimit(h.maxMessageBytes)
	}

	client := h.coord.Connect()
	defer h.coord.Disconnect(client.ID)

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	limiter := newRateLimiter(h.rateLimit)
	limiter.startReset(ctx.Done())

	go h.watchTermination(ctx, conn, client)

	errCh := make(chan error, 2)
	go func() {
		errCh <- h.readLoop(ctx, conn, client, limiter)
	}()
	go func() {
		errCh <- h.writeLoop(ctx, conn, client)
	}()

	err = <-errCh
	cancel() // stop the other goroutine
	<-errCh
	// deregister before the close handshake, which may wait on an unresponsive peer
	h.coord.Disconnect(client.ID)

	status := websocket.StatusNormalClosure
	reason := "closing"
	switch {
	case errors.Is(err, errClosedByServer):
		status, reason = closeStatus(client.CloseReason())
	case err != nil && !errors.Is(err, context.Canceled):
		if errors.Is(err, io.EOF) {
			err = nil
		}
		if s := websocket.CloseStatus(err); s != -1 {
			status = s
		}
		if status == websocket.StatusNormalClosure || status == websocket.StatusGoingAway {
			err = nil
		}
		if err != nil {
			if status == websocket.StatusNormalClosure {
				status = websocket.StatusInternalError
			}
			reason = err.Error()
			h.log.Warn().Err(err).Str("conn_id", string(client.ID)).Msg("ws connection closed with error")
		}
	}

	conn.Close(status, reason)
}

// watchTermination closes the socket once the core has terminated client and the
// writer had one write timeout to flush. A reader or writer stuck on a client
// that neither reads nor writes is released by the close.
func (h *WSHandler) watchTermination(ctx context.Context, conn *websocket.Conn, client *core.Conn) {
	select {
	case <-client.Done():
	case <-ctx.Done():
		return
	}

	grace := time.NewTimer(h.timeout())
	defer grace.Stop()
	select {
	case <-grace.C:
		h.log.Debug().Str("conn_id", string(client.ID)).Str("reason", client.CloseReason()).Msg("closing unresponsive ws connection")
		_ = conn.CloseNow()
	case <-ctx.Done():
	}
}

func (h *WSHandler) timeout() time.Duration {
	if h.writeTimeout <= 0 {
		return defaultWriteTimeout
	}
	return h.writeTimeout
}

func closeStatus(reason string) (websocket.StatusCode, string) {
	switch reason {
	case core.CloseKicked, core.CloseBanned:
		return websocket.StatusPolicyViolation, reason
	case core.CloseSlowConsumer:
		return websocket.StatusTryAgainLater, reason
	default:
		return websocket.StatusNormalClosure, "closing"
	}
}

func (h *WSHandler) readLoop(ctx context.Context, conn *websocket.Conn, client *core.Conn, limiter *rateLimiter) error {
	for {
		var inbound proto.Inbound
		if err := wsjson.Read(ctx, conn, &inbound); err != nil {
			h.log.Debug().Err(err).Str("conn_id", string(client.ID)).Msg("read ws inbound")
			return err
		}

		if !limiter.allow() {
			if err := h.writeError(ctx, conn, &proto.Error{Code: core.ErrCodeRateLimited, Msg: "too many messages"}); err != nil {
				return err
			}
			continue
		}

		cmd, protoErr := inboundToCommand(inbound)
		if protoErr != nil {
			h.log.Debug().Str("conn_id", string(client.ID)).Str("type", inbound.Type).Str("code", protoErr.Code).Msg("rejected inbound")
			if err := h.writeError(ctx, conn, protoErr); err != nil {
				return err
			}
			continue
		}
		h.coord.Handle(client, cmd)
	}
}

func (h *WSHandler) writeError(ctx context.Context, conn *websocket.Conn, protoErr *proto.Error) error {
	writeCtx, cancel := context.WithTimeout(ctx, h.timeout())
	defer cancel()
	return wsjson.Write(writeCtx, conn, proto.Outbound{
		Type:  proto.OutboundTypeError,
		Error: protoErr,
	})
}

func (h *WSHandler) writeLoop(ctx context.Context, conn *websocket.Conn, client *core.Conn) error {
	for {
		select {
		case ev := <-client.Events():
			if err := h.write(ctx, conn, client, ev); err != nil {
				return err
			}
		case <-client.Done():
			return h.flush(ctx, conn, client)
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// flush writes whatever is still queued, such as a kick notice, before the socket closes.
func (h *WSHandler) flush(ctx context.Context, conn *websocket.Conn, client *core.Conn) error {
	for {
		select {
		case ev := <-client.Events():
			if err := h.write(ctx, conn, client, ev); err != nil {
				return err
			}
		default:
			return errClosedByServer
		}
	}
}

func (h *WSHandler) write(ctx context.Context, conn *websocket.Conn, client *core.Conn, ev *core.Event) error {
	writeCtx, cancel := context.WithTimeout(ctx, h.timeout())
	defer cancel()
	if err := wsjson.Write(writeCtx, conn, outboundFromEvent(ev)); err != nil {
		h.log.Debug().Err(err).Str("conn_id", string(client.ID)).Msg("write ws event")
		return err
	}
	return nil
}
