package http

import (
	"context"
	"encoding/json"
	"net/http"
	"testing"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"

	"github.com/vovakirdan/lostfound/internal/auth"
	"github.com/vovakirdan/lostfound/internal/config"
	"github.com/vovakirdan/lostfound/internal/proto"
)

func TestWebSocketPushesToBothParticipants(t *testing.T) {
	srv := startTestServer(t, nil)
	alice := srv.register(t, "alice@campus.edu", "Alice")
	bob := srv.register(t, "bob@campus.edu", "")
	carol := srv.register(t, "carol@campus.edu", "")
	item := srv.createItem(t, alice.User.ID, "Blue bike helmet")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	connect := func(sess *auth.Session) *websocket.Conn {
		conn := dialWS(ctx, t, srv.wsURL())
		sendHello(ctx, t, conn, sess.Token, proto.ProtocolVersion)
		ready := readOutbound(ctx, t, conn)
		if ready.Type != proto.OutboundTypeEvent || ready.Event != proto.EventReady {
			t.Fatalf("expected ready event, got %+v", ready)
		}
		var data proto.ReadyData
		if err := json.Unmarshal(ready.Data, &data); err != nil || data.UserID != sess.User.ID {
			t.Fatalf("unexpected ready payload: %s (%v)", ready.Data, err)
		}
		return conn
	}
	aliceConn := connect(alice)
	bobConn := connect(bob)
	carolConn := connect(carol)

	var sent proto.MessageData
	if status := srv.do(t, http.MethodPost, "/api/messages", bob.Token, SendMessageRequest{
		ItemID: item.ID, RecipientID: alice.User.ID, Body: "is this yours?",
	}, &sent); status != http.StatusCreated {
		t.Fatalf("expected status 201, got %d", status)
	}

	for name, conn := range map[string]*websocket.Conn{"alice": aliceConn, "bob": bobConn} {
		out := readOutbound(ctx, t, conn)
		if out.Type != proto.OutboundTypeEvent || out.Event != proto.EventMessage {
			t.Fatalf("%s: expected message event, got %+v", name, out)
		}
		var data proto.MessageData
		if err := json.Unmarshal(out.Data, &data); err != nil {
			t.Fatalf("%s: unmarshal event data: %v", name, err)
		}
		if data.ID != sent.ID || data.Body != "is this yours?" || data.ItemTitle != "Blue bike helmet" {
			t.Fatalf("%s: unexpected event payload: %+v", name, data)
		}
		if !data.CreatedAt.Equal(sent.CreatedAt) {
			t.Fatalf("%s: push timestamp %v differs from stored %v", name, data.CreatedAt, sent.CreatedAt)
		}
	}

	// carol is not a participant, so her next frame is the pong.
	if err := wsjson.Write(ctx, carolConn, proto.Inbound{Type: proto.InboundTypePing}); err != nil {
		t.Fatalf("send ping: %v", err)
	}
	if out := readOutbound(ctx, t, carolConn); out.Event != proto.EventPong {
		t.Fatalf("carol: expected pong, got %+v", out)
	}
}

func TestWebSocketPing(t *testing.T) {
	srv := startTestServer(t, nil)
	alice := srv.register(t, "alice@campus.edu", "Alice")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	conn := dialWS(ctx, t, srv.wsURL())
	sendHello(ctx, t, conn, alice.Token, 0)
	readOutbound(ctx, t, conn)

	if err := wsjson.Write(ctx, conn, proto.Inbound{Type: proto.InboundTypePing}); err != nil {
		t.Fatalf("send ping: %v", err)
	}
	if out := readOutbound(ctx, t, conn); out.Event != proto.EventPong {
		t.Fatalf("expected pong, got %+v", out)
	}

	if err := wsjson.Write(ctx, conn, proto.Inbound{Type: "join"}); err != nil {
		t.Fatalf("send unknown: %v", err)
	}
	if out := readOutbound(ctx, t, conn); out.Type != proto.OutboundTypeError || out.Error.Code != "invalid_message" {
		t.Fatalf("expected invalid_message error, got %+v", out)
	}
}

func TestWebSocketRateLimit(t *testing.T) {
	srv := startTestServer(t, func(cfg *config.Config) { cfg.RateLimitPerMinute = 2 })
	alice := srv.register(t, "alice@campus.edu", "Alice")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	conn := dialWS(ctx, t, srv.wsURL())
	sendHello(ctx, t, conn, alice.Token, proto.ProtocolVersion)
	readOutbound(ctx, t, conn)

	for i := 0; i < 3; i++ {
		if err := wsjson.Write(ctx, conn, proto.Inbound{Type: proto.InboundTypePing}); err != nil {
			t.Fatalf("send ping %d: %v", i, err)
		}
	}
	readOutbound(ctx, t, conn)
	readOutbound(ctx, t, conn)
	if out := readOutbound(ctx, t, conn); out.Type != proto.OutboundTypeError || out.Error.Code != "rate_limited" {
		t.Fatalf("expected rate_limited error, got %+v", out)
	}
}

func TestWebSocketJWTInvalid(t *testing.T) {
	srv := startTestServer(t, nil)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	conn := dialWS(ctx, t, srv.wsURL())
	sendHello(ctx, t, conn, "invalid", proto.ProtocolVersion)

	out := readOutbound(ctx, t, conn)
	if out.Type != proto.OutboundTypeError || out.Error == nil || out.Error.Code != "unauthorized" {
		t.Fatalf("expected unauthorized error, got %+v", out)
	}
}

func TestWebSocketJWTWrongSecret(t *testing.T) {
	srv := startTestServer(t, nil)

	forged, err := auth.GenerateToken(&auth.JWTConfig{
		Secret: []byte("other-secret"), Issuer: "test", Audience: "test", TTL: time.Minute,
	}, "user-1", "mallory@campus.edu")
	if err != nil {
		t.Fatalf("generate token: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	conn := dialWS(ctx, t, srv.wsURL())
	sendHello(ctx, t, conn, forged, proto.ProtocolVersion)

	out := readOutbound(ctx, t, conn)
	if out.Error == nil || out.Error.Code != "unauthorized" {
		t.Fatalf("expected unauthorized error, got %+v", out)
	}
}

func TestProtocolVersionMismatch(t *testing.T) {
	srv := startTestServer(t, nil)
	alice := srv.register(t, "alice@campus.edu", "Alice")

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()

	conn := dialWS(ctx, t, srv.wsURL())
	sendHello(ctx, t, conn, alice.Token, proto.ProtocolVersion+1)

	out := readOutbound(ctx, t, conn)
	if out.Type != proto.OutboundTypeError || out.Error == nil || out.Error.Code != "unsupported_version" {
		t.Fatalf("expected unsupported_version error, got %+v", out)
	}
}
