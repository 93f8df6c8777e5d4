package http

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"github.com/rs/zerolog"

	"github.com/vovakirdan/lostfound/internal/auth"
	"github.com/vovakirdan/lostfound/internal/config"
	"github.com/vovakirdan/lostfound/internal/core"
	"github.com/vovakirdan/lostfound/internal/identity"
	"github.com/vovakirdan/lostfound/internal/proto"
	"github.com/vovakirdan/lostfound/internal/service/messages"
	"github.com/vovakirdan/lostfound/internal/store"
	"github.com/vovakirdan/lostfound/internal/store/sqlite"
)

type testServer struct {
	ts    *httptest.Server
	store *sqlite.SQLiteStore
	auth  *auth.Service
}

// createTestStore creates an in-memory SQLite store with schema applied.
func createTestStore(t *testing.T) *sqlite.SQLiteStore {
	t.Helper()

	st, err := sqlite.NewWithSetup(":memory:", sqlite.Migrate)
	if err != nil {
		t.Fatalf("failed to create test store: %v", err)
	}
	t.Cleanup(func() { _ = st.Close() })
	return st
}

// createTestAuthService creates an auth service for testing.
func createTestAuthService(t *testing.T, st store.UserStore, jwtSecret string) *auth.Service {
	t.Helper()

	jwtConfig := &auth.JWTConfig{
		Secret:   []byte(jwtSecret),
		Issuer:   "test",
		Audience: "test",
		TTL:      24 * time.Hour,
	}
	return auth.NewService(st, jwtConfig)
}

func startTestServer(t *testing.T, mutate func(*config.Config)) *testServer {
	t.Helper()

	cfg := config.Default()
	cfg.Addr = ":0"
	cfg.ReadHeaderTimeout = time.Second
	cfg.ShutdownTimeout = time.Second
	if mutate != nil {
		mutate(&cfg)
	}

	st := createTestStore(t)
	authService := createTestAuthService(t, st, "test-secret")
	disabledLogger := zerolog.Nop()

	hub := core.NewHub(disabledLogger)
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	go hub.Run(ctx)

	labels := identity.NewResolver(st)
	deps := Deps{
		Hub:      hub,
		Auth:     authService,
		Messages: messages.New(st, hub, labels, int(cfg.MaxMessageBytes), disabledLogger),
		Store:    st,
		Labels:   labels,
	}
	server := NewServer(deps, &cfg, &disabledLogger)

	ts := httptest.NewServer(server.Handler)
	t.Cleanup(ts.Close)

	return &testServer{ts: ts, store: st, auth: authService}
}

func (s *testServer) register(t *testing.T, email, fullName string) *auth.Session {
	t.Helper()

	sess, err := s.auth.Register(context.Background(), email, "password123", fullName)
	if err != nil {
		t.Fatalf("failed to register %s: %v", email, err)
	}
	return sess
}

func (s *testServer) createItem(t *testing.T, ownerID, title string) *store.Item {
	t.Helper()

	item, err := s.store.CreateItem(context.Background(), &store.Item{OwnerID: ownerID, Kind: store.ItemKindLost, Title: title})
	if err != nil {
		t.Fatalf("failed to create item: %v", err)
	}
	return item
}

// do sends a JSON request and decodes a JSON response into out when non-nil.
func (s *testServer) do(t *testing.T, method, path, token string, body any, out any) int {
	t.Helper()

	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal body: %v", err)
		}
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}

	req, err := http.NewRequest(method, s.ts.URL+path, reader)
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := s.ts.Client().Do(req)
	if err != nil {
		t.Fatalf("%s %s: %v", method, path, err)
	}
	defer resp.Body.Close()

	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			t.Fatalf("decode %s %s response: %v", method, path, err)
		}
	}
	return resp.StatusCode
}

func (s *testServer) wsURL() string {
	return strings.Replace(s.ts.URL, "http", "ws", 1) + "/ws"
}

func dialWS(ctx context.Context, t *testing.T, url string) *websocket.Conn {
	t.Helper()

	conn, _, err := websocket.Dial(ctx, url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	t.Cleanup(func() { conn.Close(websocket.StatusNormalClosure, "done") })
	return conn
}

func sendHello(ctx context.Context, t *testing.T, conn *websocket.Conn, token string, protocol int) {
	t.Helper()

	payload, _ := json.Marshal(proto.HelloData{Token: token, Protocol: protocol})
	if err := wsjson.Write(ctx, conn, proto.Inbound{Type: proto.InboundTypeHello, Data: payload}); err != nil {
		t.Fatalf("send hello: %v", err)
	}
}

// rawOutbound keeps Data undecoded so tests can pick the payload type.
type rawOutbound struct {
	Type  string          `json:"type"`
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data"`
	Error *proto.Error    `json:"error"`
}

func readOutbound(ctx context.Context, t *testing.T, conn *websocket.Conn) rawOutbound {
	t.Helper()

	var out rawOutbound
	if err := wsjson.Read(ctx, conn, &out); err != nil {
		t.Fatalf("read outbound: %v", err)
	}
	return out
}
