package client

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"

	"github.com/vovakirdan/lostfound/internal/inbox"
	"github.com/vovakirdan/lostfound/internal/proto"
)

// SubscribeToInserts opens the push channel and calls onMessage for each message
// the logged in user sends or receives. The first connection is made before it
// returns; later drops are redialed every reconnect interval until the returned
// function is called. Messages missed while disconnected are left to polling.
func (c *Client) SubscribeToInserts(ctx context.Context, userID string, onMessage func(inbox.Message)) (func(), error) {
	if err := c.checkUser(userID); err != nil {
		return nil, err
	}
	if onMessage == nil {
		return nil, errors.New("onMessage is required")
	}

	subCtx, cancel := context.WithCancel(ctx)
	conn, err := c.dial(subCtx)
	if err != nil {
		cancel()
		return nil, err
	}

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		c.pump(subCtx, conn, onMessage)
	}()

	var once sync.Once
	return func() {
		once.Do(func() {
			cancel()
			wg.Wait()
		})
	}, nil
}

func (c *Client) pump(ctx context.Context, conn *websocket.Conn, onMessage func(inbox.Message)) {
	for {
		err := c.readEvents(ctx, conn, onMessage)
		conn.Close(websocket.StatusNormalClosure, "bye")
		if ctx.Err() != nil {
			return
		}
		c.log.Warn().Err(err).Dur("retry_in", c.reconnect).Msg("push channel dropped")

		conn = nil
		for conn == nil {
			select {
			case <-ctx.Done():
				return
			case <-time.After(c.reconnect):
			}
			next, err := c.dial(ctx)
			if err != nil {
				c.log.Debug().Err(err).Msg("redial push channel")
				continue
			}
			conn = next
			c.log.Info().Msg("push channel reconnected")
		}
	}
}

func (c *Client) readEvents(ctx context.Context, conn *websocket.Conn, onMessage func(inbox.Message)) error {
	for {
		var out struct {
			Type  string          `json:"type"`
			Event string          `json:"event"`
			Data  json.RawMessage `json:"data"`
			Error *proto.Error    `json:"error"`
		}
		if err := wsjson.Read(ctx, conn, &out); err != nil {
			return err
		}

		switch {
		case out.Type == proto.OutboundTypeError && out.Error != nil:
			c.log.Warn().Str("code", out.Error.Code).Str("msg", out.Error.Msg).Msg("push channel error")
		case out.Event == proto.EventMessage:
			var data proto.MessageData
			if err := json.Unmarshal(out.Data, &data); err != nil {
				c.log.Warn().Err(err).Msg("decode pushed message")
				continue
			}
			onMessage(toInbox(data))
		}
	}
}

// dial connects to /ws and completes the hello handshake.
func (c *Client) dial(ctx context.Context) (*websocket.Conn, error) {
	token := c.currentToken()
	if token == "" {
		return nil, ErrNotLoggedIn
	}

	wsURL := *c.baseURL
	if wsURL.Scheme == "https" {
		wsURL.Scheme = "wss"
	} else {
		wsURL.Scheme = "ws"
	}
	wsURL.Path += "/ws"

	conn, _, err := websocket.Dial(ctx, wsURL.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("dial push channel: %w", err)
	}

	hello, err := json.Marshal(proto.HelloData{Token: token, Protocol: proto.ProtocolVersion})
	if err != nil {
		conn.Close(websocket.StatusInternalError, "marshal hello")
		return nil, fmt.Errorf("marshal hello: %w", err)
	}
	if err := wsjson.Write(ctx, conn, proto.Inbound{Type: proto.InboundTypeHello, Data: hello}); err != nil {
		conn.Close(websocket.StatusInternalError, "send hello")
		return nil, fmt.Errorf("send hello: %w", err)
	}

	var ready proto.Outbound
	if err := wsjson.Read(ctx, conn, &ready); err != nil {
		conn.Close(websocket.StatusInternalError, "read ready")
		return nil, fmt.Errorf("read ready: %w", err)
	}
	if ready.Type == proto.OutboundTypeError && ready.Error != nil {
		conn.Close(websocket.StatusNormalClosure, "rejected")
		return nil, &APIError{Code: ready.Error.Code, Message: ready.Error.Msg}
	}
	if ready.Event != proto.EventReady {
		conn.Close(websocket.StatusProtocolError, "unexpected frame")
		return nil, fmt.Errorf("unexpected first frame %q/%q", ready.Type, ready.Event)
	}
	return conn, nil
}
