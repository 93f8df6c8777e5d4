package http

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	stdhttp "net/http"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"github.com/rs/zerolog"

	"github.com/vovakirdan/lostfound/internal/auth"
	"github.com/vovakirdan/lostfound/internal/config"
	"github.com/vovakirdan/lostfound/internal/core"
	"github.com/vovakirdan/lostfound/internal/proto"
	"github.com/vovakirdan/lostfound/internal/utils"
)

const (
	helloTimeout = 10 * time.Second
	// minReadLimit leaves room for a hello frame carrying a JWT.
	minReadLimit = 2048
)

// WSHandler upgrades HTTP connections and bridges them to core.Client.
type WSHandler struct {
	hub         *core.Hub
	authService *auth.Service
	readLimit   int64
	rateLimit   int
	log         *zerolog.Logger
}

// NewWSHandler builds a new WebSocket handler.
func NewWSHandler(hub *core.Hub, authService *auth.Service, cfg *config.Config, logger *zerolog.Logger) stdhttp.Handler {
	return &WSHandler{
		hub:         hub,
		authService: authService,
		readLimit:   cfg.MaxMessageBytes,
		rateLimit:   cfg.RateLimitPerMinute,
		log:         logger,
	}
}

func (h *WSHandler) ServeHTTP(w stdhttp.ResponseWriter, r *stdhttp.Request) {
	ctx := r.Context()

	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		InsecureSkipVerify: true,
	})
	if err != nil {
		h.log.Error().Err(err).Msg("ws accept error")
		return
	}
	defer conn.Close(websocket.StatusInternalError, "internal error")
	conn.SetReadLimit(max(h.readLimit, minReadLimit))

	claims, protoErr := h.handshake(ctx, conn)
	if protoErr != nil {
		_ = wsjson.Write(ctx, conn, proto.Outbound{Type: proto.OutboundTypeError, Error: protoErr})
		conn.Close(websocket.StatusPolicyViolation, protoErr.Code)
		return
	}

	client := core.NewClient(utils.NewID(), claims.UserID)
	h.hub.RegisterClient(client)
	defer h.hub.UnregisterClient(client)

	if err := wsjson.Write(ctx, conn, proto.Outbound{
		Type:  proto.OutboundTypeEvent,
		Event: proto.EventReady,
		Data:  proto.ReadyData{UserID: claims.UserID, Protocol: proto.ProtocolVersion},
	}); err != nil {
		h.log.Warn().Err(err).Str("client_id", client.ID).Msg("write ready")
		return
	}
	h.log.Debug().Str("client_id", client.ID).Str("user_id", claims.UserID).Msg("ws client ready")

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	errCh := make(chan error, 2)
	go func() {
		errCh <- h.readLoop(ctx, conn, client)
	}()
	go func() {
		errCh <- h.writeLoop(ctx, conn, client)
	}()

	err = <-errCh
	cancel() // stop the other goroutine
	<-errCh

	status := websocket.StatusNormalClosure
	reason := "closing"
	if err != nil && !errors.Is(err, context.Canceled) {
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
			h.log.Warn().Err(err).Str("client_id", client.ID).Msg("ws connection closed with error")
		}
	}

	conn.Close(status, reason)
}

// handshake reads the hello frame and authenticates the connection.
func (h *WSHandler) handshake(ctx context.Context, conn *websocket.Conn) (*auth.Claims, *proto.Error) {
	helloCtx, cancel := context.WithTimeout(ctx, helloTimeout)
	defer cancel()

	var inbound proto.Inbound
	if err := wsjson.Read(helloCtx, conn, &inbound); err != nil {
		h.log.Debug().Err(err).Msg("read ws hello")
		return nil, &proto.Error{Code: core.ErrCodeBadRequest, Msg: "hello required"}
	}
	if inbound.Type != proto.InboundTypeHello {
		return nil, &proto.Error{Code: core.ErrCodeBadRequest, Msg: "hello required"}
	}

	var hello proto.HelloData
	if err := json.Unmarshal(inbound.Data, &hello); err != nil {
		return nil, &proto.Error{Code: core.ErrCodeBadRequest, Msg: "invalid hello"}
	}
	if hello.Protocol != 0 && hello.Protocol != proto.ProtocolVersion {
		return nil, &proto.Error{Code: core.ErrCodeUnsupportedVersion, Msg: "unsupported protocol version"}
	}

	claims, err := h.authService.ValidateToken(hello.Token)
	if err != nil {
		h.log.Debug().Err(err).Msg("ws hello with invalid token")
		return nil, &proto.Error{Code: core.ErrCodeUnauthorized, Msg: "invalid token"}
	}
	return claims, nil
}

func (h *WSHandler) readLoop(ctx context.Context, conn *websocket.Conn, client *core.Client) error {
	limiter := newRateLimiter(h.rateLimit)
	for {
		var inbound proto.Inbound
		if err := wsjson.Read(ctx, conn, &inbound); err != nil {
			return err
		}

		if !limiter.allow() {
			if err := wsjson.Write(ctx, conn, protoError(core.ErrCodeRateLimited, "too many frames")); err != nil {
				return err
			}
			continue
		}

		var reply proto.Outbound
		switch inbound.Type {
		case proto.InboundTypePing:
			reply = proto.Outbound{Type: proto.OutboundTypeEvent, Event: proto.EventPong}
		case proto.InboundTypeHello:
			reply = protoError(core.ErrCodeBadRequest, "already authenticated")
		default:
			h.log.Debug().Str("client_id", client.ID).Str("type", inbound.Type).Msg("unknown ws inbound")
			reply = protoError("invalid_message", "unknown message type")
		}
		if err := wsjson.Write(ctx, conn, reply); err != nil {
			return err
		}
	}
}

func (h *WSHandler) writeLoop(ctx context.Context, conn *websocket.Conn, client *core.Client) error {
	for {
		select {
		case event, ok := <-client.Events:
			if !ok {
				return nil
			}
			if err := wsjson.Write(ctx, conn, outboundFromEvent(event)); err != nil {
				h.log.Error().Err(err).Str("client_id", client.ID).Msg("write ws event")
				return err
			}
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}
