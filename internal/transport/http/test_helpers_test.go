package http

import (
	"context"
	"encoding/json"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"

	"github.com/vovakirdan/voxroom-server/internal/auth"
	"github.com/vovakirdan/voxroom-server/internal/config"
	"github.com/vovakirdan/voxroom-server/internal/core"
	"github.com/vovakirdan/voxroom-server/internal/metrics"
	"github.com/vovakirdan/voxroom-server/internal/proto"
)

const (
	testAdminKey  = "admin-secret"
	testJWTSecret = "test-secret"
)

type testEnv struct {
	ts    *httptest.Server
	coord *core.Coordinator
	auth  *auth.Service
}

func testConfig() config.Config {
	cfg := config.Default()
	cfg.Addr = ":0"
	cfg.ReadHeaderTimeout = time.Second
	cfg.ShutdownTimeout = time.Second
	cfg.AdminKey = testAdminKey
	cfg.JWTSecret = testJWTSecret
	cfg.DefaultRooms = []string{"Lobby", "Games"}
	return cfg
}

func startTestServer(t *testing.T, cfg config.Config) *testEnv {
	t.Helper()

	disabledLogger := zerolog.New(nil).Level(zerolog.Disabled)
	registry := prometheus.NewRegistry()

	authService := auth.NewService(cfg.AdminKey, &auth.JWTConfig{
		Secret:   []byte(cfg.JWTSecret),
		Issuer:   cfg.JWTIssuer,
		Audience: cfg.JWTAudience,
		TTL:      time.Hour,
	})
	coord := core.NewCoordinator(core.Options{
		DefaultRooms:          cfg.DefaultRooms,
		AllowAdhocRooms:       cfg.AllowAdhocRooms,
		EventBuffer:           cfg.EventBuffer,
		MaxChatLength:         cfg.MaxChatLength,
		ControlRequestTimeout: cfg.ControlRequestTimeout,
		ControlIdleTimeout:    cfg.ControlIdleTimeout,
	}, core.Deps{
		Admins:  authService,
		Hasher:  auth.NewBcryptHasher(4),
		Metrics: metrics.New(registry),
		Logger:  &disabledLogger,
	})

	server := NewServer(coord, authService, &cfg, registry, &disabledLogger)
	ts := httptest.NewServer(server.Handler)
	t.Cleanup(ts.Close)

	return &testEnv{ts: ts, coord: coord, auth: authService}
}

type wsClient struct {
	t    *testing.T
	ctx  context.Context
	conn *websocket.Conn
}

func (e *testEnv) dial(t *testing.T) *wsClient {
	t.Helper()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	t.Cleanup(cancel)

	wsURL := strings.Replace(e.ts.URL, "http", "ws", 1) + "/ws"
	conn, _, err := websocket.Dial(ctx, wsURL, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	t.Cleanup(func() { conn.Close(websocket.StatusNormalClosure, "done") })

	return &wsClient{t: t, ctx: ctx, conn: conn}
}

func (c *wsClient) send(typ string, data any) {
	c.t.Helper()
	var raw json.RawMessage
	if data != nil {
		payload, err := json.Marshal(data)
		if err != nil {
			c.t.Fatalf("marshal %s: %v", typ, err)
		}
		raw = payload
	}
	if err := wsjson.Write(c.ctx, c.conn, proto.Inbound{Type: typ, Data: raw}); err != nil {
		c.t.Fatalf("send %s: %v", typ, err)
	}
}

type rawOutbound struct {
	Type  string          `json:"type"`
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data"`
	Error *proto.Error    `json:"error"`
}

func (c *wsClient) read() (rawOutbound, error) {
	var out rawOutbound
	err := wsjson.Read(c.ctx, c.conn, &out)
	return out, err
}

// expectEvent reads until the named event arrives and decodes its data into v.
func (c *wsClient) expectEvent(name string, v any) {
	c.t.Helper()
	for {
		out, err := c.read()
		if err != nil {
			c.t.Fatalf("waiting for %s: %v", name, err)
		}
		if out.Type == proto.OutboundTypeEvent && out.Event == name {
			if v != nil {
				if err := json.Unmarshal(out.Data, v); err != nil {
					c.t.Fatalf("decode %s: %v", name, err)
				}
			}
			return
		}
	}
}

// expectError reads until an error envelope arrives.
func (c *wsClient) expectError() *proto.Error {
	c.t.Helper()
	for {
		out, err := c.read()
		if err != nil {
			c.t.Fatalf("waiting for error: %v", err)
		}
		if out.Type == proto.OutboundTypeError {
			return out.Error
		}
	}
}

func (c *wsClient) login(name string) string {
	c.t.Helper()
	c.send(proto.InboundTypeLogin, proto.LoginData{DisplayName: name})
	var role proto.EventRole
	c.expectEvent(proto.EventLoginSuccess, &role)
	return role.Role
}

// join enters a room and returns this connection's id, taken from the occupant list.
func (c *wsClient) join(room, name string) string {
	c.t.Helper()
	c.send(proto.InboundTypeJoinRoom, proto.JoinRoomData{RoomName: room, DisplayName: name})
	c.expectEvent(proto.EventJoinedSuccess, nil)
	var list proto.EventUserListData
	c.expectEvent(proto.EventUserList, &list)
	for _, o := range list.Occupants {
		if o.DisplayName == name {
			return o.ID
		}
	}
	c.t.Fatalf("%s missing from occupant list", name)
	return ""
}
