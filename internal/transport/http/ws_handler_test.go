package http

import (
	"encoding/json"
	"errors"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/coder/websocket"

	"github.com/vovakirdan/voxroom-server/internal/core"
	"github.com/vovakirdan/voxroom-server/internal/proto"
)

func TestHealthEndpoint(t *testing.T) {
	env := startTestServer(t, testConfig())

	resp, err := env.ts.Client().Get(env.ts.URL + "/health")
	if err != nil {
		t.Fatalf("health request failed: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != 200 {
		t.Fatalf("unexpected status: %d", resp.StatusCode)
	}
}

func TestWebSocketJoinAndChat(t *testing.T) {
	env := startTestServer(t, testConfig())
	alice := env.dial(t)
	bob := env.dial(t)
	carol := env.dial(t)

	if role := alice.login("alice"); role != string(core.RoleUser) {
		t.Fatalf("unexpected role %s", role)
	}
	alice.join("Lobby", "alice")
	bobID := bob.join("Lobby", "bob")
	carol.join("Games", "carol")

	var peer proto.EventPeer
	alice.expectEvent(proto.EventUserConnected, &peer)
	if peer.ID != bobID {
		t.Fatalf("expected user-connected for %s, got %s", bobID, peer.ID)
	}

	bob.send(proto.InboundTypeSendChat, proto.ChatData{Text: "hi there"})

	var msg proto.EventChat
	for {
		alice.expectEvent(proto.EventChatMessage, &msg)
		if msg.Type == "user" {
			break
		}
	}
	if msg.Username != "bob" || msg.Text != "hi there" || msg.RoomName != "Lobby" || msg.ID == "" {
		t.Fatalf("unexpected chat payload: %+v", msg)
	}

	// carol is in another room; her next chat-message must be her own
	carol.send(proto.InboundTypeSendChat, proto.ChatData{Text: "games only"})
	for {
		carol.expectEvent(proto.EventChatMessage, &msg)
		if msg.Type == "user" {
			break
		}
	}
	if msg.Text != "games only" {
		t.Fatalf("chat leaked across rooms: %+v", msg)
	}
}

func TestWebSocketRoomListOrder(t *testing.T) {
	env := startTestServer(t, testConfig())
	client := env.dial(t)

	client.send(proto.InboundTypeLogin, proto.LoginData{DisplayName: "dora"})
	var configs map[string]proto.RoomConfig
	client.expectEvent(proto.EventRoomConfig, &configs)
	if !configs["Lobby"].Default || configs["Lobby"].Locked {
		t.Fatalf("unexpected config view: %+v", configs)
	}
	var rooms []proto.RoomState
	client.expectEvent(proto.EventRoomList, &rooms)
	if len(rooms) != 2 || rooms[0].Name != "Lobby" || rooms[1].Name != "Games" {
		t.Fatalf("unexpected room order: %+v", rooms)
	}
}

func TestWebSocketPasswordRequired(t *testing.T) {
	env := startTestServer(t, testConfig())
	admin := env.dial(t)
	user := env.dial(t)

	admin.send(proto.InboundTypeLogin, proto.LoginData{DisplayName: "root", AdminKey: testAdminKey})
	var role proto.EventRole
	admin.expectEvent(proto.EventLoginSuccess, &role)
	if role.Role != string(core.RoleAdmin) {
		t.Fatalf("expected admin, got %s", role.Role)
	}

	pw := "letmein"
	admin.send(proto.InboundTypeUpdateRoomConfig, proto.RoomConfigData{RoomName: "Games", Password: &pw})
	var configs map[string]proto.RoomConfig
	admin.expectEvent(proto.EventRoomConfig, &configs)
	for !configs["Games"].Locked {
		admin.expectEvent(proto.EventRoomConfig, &configs)
	}

	user.login("bob")
	user.send(proto.InboundTypeJoinRoom, proto.JoinRoomData{RoomName: "Games"})
	var room proto.EventRoom
	user.expectEvent(proto.EventPasswordRequired, &room)
	if room.RoomName != "Games" {
		t.Fatalf("unexpected room %q", room.RoomName)
	}

	user.send(proto.InboundTypeJoinRoom, proto.JoinRoomData{RoomName: "Games", Password: pw})
	var joined proto.EventRole
	user.expectEvent(proto.EventJoinedSuccess, &joined)
	if joined.RoomName != "Games" {
		t.Fatalf("unexpected joined room %q", joined.RoomName)
	}
}

func TestWebSocketKickClosesConnection(t *testing.T) {
	env := startTestServer(t, testConfig())
	admin := env.dial(t)
	victim := env.dial(t)

	admin.send(proto.InboundTypeLogin, proto.LoginData{DisplayName: "root", AdminKey: testAdminKey})
	admin.expectEvent(proto.EventLoginSuccess, nil)
	admin.join("Lobby", "root")
	victimID := victim.join("Lobby", "victim")

	admin.send(proto.InboundTypeAdminAction, proto.AdminActionData{Action: "kick", TargetID: victimID})

	var reason proto.EventReason
	victim.expectEvent(proto.EventKicked, &reason)
	if reason.Reason == "" {
		t.Fatal("expected a kick reason")
	}
	for {
		if _, err := victim.read(); err != nil {
			if status := websocket.CloseStatus(err); status != websocket.StatusPolicyViolation {
				t.Fatalf("expected policy violation close, got %v", err)
			}
			break
		}
	}

	var gone proto.EventPeer
	admin.expectEvent(proto.EventUserDisconnected, &gone)
	if gone.ID != victimID {
		t.Fatalf("expected %s to leave, got %s", victimID, gone.ID)
	}
}

func TestWebSocketNonAdminKickIsIgnored(t *testing.T) {
	env := startTestServer(t, testConfig())
	mallory := env.dial(t)
	bob := env.dial(t)

	mallory.join("Lobby", "mallory")
	bobID := bob.join("Lobby", "bob")

	mallory.send(proto.InboundTypeAdminAction, proto.AdminActionData{Action: "kick", TargetID: bobID})
	// a follow-up chat proves the kick produced neither an error nor a disconnect
	bob.send(proto.InboundTypeSendChat, proto.ChatData{Text: "still here"})

	for {
		out, err := mallory.read()
		if err != nil {
			t.Fatalf("read: %v", err)
		}
		if out.Type == proto.OutboundTypeError {
			t.Fatalf("unexpected error to non-admin: %+v", out.Error)
		}
		if out.Event != proto.EventChatMessage {
			continue
		}
		var msg proto.EventChat
		_ = json.Unmarshal(out.Data, &msg)
		if msg.Text == "still here" {
			return
		}
	}
}

func TestWebSocketSignalRelayStampsCaller(t *testing.T) {
	env := startTestServer(t, testConfig())
	alice := env.dial(t)
	bob := env.dial(t)

	aliceID := alice.join("Lobby", "alice")
	bobID := bob.join("Lobby", "bob")

	sdp := json.RawMessage(`{"type":"offer","sdp":"v=0"}`)
	alice.send(proto.InboundTypeOffer, proto.SignalData{Target: bobID, SDP: sdp})

	var sig proto.EventSignal
	bob.expectEvent(proto.EventOffer, &sig)
	if sig.Caller != aliceID || sig.Target != bobID {
		t.Fatalf("unexpected routing: %+v", sig)
	}
	if string(sig.SDP) != string(sdp) {
		t.Fatalf("payload must be relayed verbatim, got %s", sig.SDP)
	}

	candidate := json.RawMessage(`{"candidate":"candidate:1 1 udp 1 10.0.0.1 5000 typ host"}`)
	bob.send(proto.InboundTypeICECandidate, proto.SignalData{Target: aliceID, Candidate: candidate})
	alice.expectEvent(proto.EventICECandidate, &sig)
	if sig.Caller != bobID || string(sig.Candidate) != string(candidate) {
		t.Fatalf("unexpected candidate relay: %+v", sig)
	}
}

func TestWebSocketRemoteControl(t *testing.T) {
	env := startTestServer(t, testConfig())
	host := env.dial(t)
	viewer := env.dial(t)

	host.login("host")
	viewer.login("viewer")

	host.send(proto.InboundTypeRegisterRemoteID, nil)
	var rid proto.EventRemoteID
	host.expectEvent(proto.EventYourRemoteID, &rid)
	if len(rid.RemoteID) != 8 {
		t.Fatalf("unexpected remote id %q", rid.RemoteID)
	}

	viewer.send(proto.InboundTypeRequestControl, proto.RequestControlData{TargetRemoteID: rid.RemoteID})
	var req proto.EventRemote
	host.expectEvent(proto.EventRemoteControlRequest, &req)
	if req.RequesterName != "viewer" || req.RequesterID == "" {
		t.Fatalf("unexpected request: %+v", req)
	}

	host.send(proto.InboundTypeControlResponse, proto.ControlResponseData{RequesterID: req.RequesterID, Accepted: true})
	var accepted proto.EventRemote
	viewer.expectEvent(proto.EventRemoteControlAccepted, &accepted)
	if accepted.TargetRemoteID != rid.RemoteID || accepted.SessionID == "" {
		t.Fatalf("unexpected accept: %+v", accepted)
	}
	host.expectEvent(proto.EventRemoteSelfControlled, nil)

	viewer.send(proto.InboundTypeRemoteInput, proto.RemoteInputData{TargetID: accepted.TargetID, Type: "click", XPercent: 0.5, YPercent: 0.5})
	var in proto.EventInput
	host.expectEvent(proto.EventPerformInput, &in)
	if in.Type != "click" || in.XPercent != 0.5 || in.Caller != req.RequesterID {
		t.Fatalf("unexpected input: %+v", in)
	}

	viewer.send(proto.InboundTypeReleaseControl, nil)
	var ended proto.EventRemote
	host.expectEvent(proto.EventRemoteControlEnded, &ended)
	if ended.Reason != core.ReasonReleased {
		t.Fatalf("unexpected end reason %q", ended.Reason)
	}
}

func TestWebSocketRejectsMalformedPayloads(t *testing.T) {
	env := startTestServer(t, testConfig())
	client := env.dial(t)

	client.send(proto.InboundTypeLogin, map[string]any{"displayName": 42})
	if perr := client.expectError(); perr.Code != core.ErrCodeBadRequest {
		t.Fatalf("expected bad_request, got %+v", perr)
	}

	client.send(proto.InboundTypeLogin, map[string]any{"displayName": "x", "isAdmin": true})
	if perr := client.expectError(); perr.Code != core.ErrCodeBadRequest {
		t.Fatalf("unknown fields must be rejected, got %+v", perr)
	}

	client.send("launch-missiles", nil)
	if perr := client.expectError(); perr.Code != errCodeInvalidMessage {
		t.Fatalf("expected invalid_message, got %+v", perr)
	}

	// the connection survives bad input
	if role := client.login("x"); role != string(core.RoleUser) {
		t.Fatalf("unexpected role %s", role)
	}
}

func TestWebSocketRateLimit(t *testing.T) {
	cfg := testConfig()
	cfg.RateLimitPerMinute = 2
	env := startTestServer(t, cfg)
	client := env.dial(t)

	for i := 0; i < 3; i++ {
		client.send(proto.InboundTypeGetRooms, nil)
	}
	if perr := client.expectError(); perr.Code != core.ErrCodeRateLimited {
		t.Fatalf("expected rate_limited, got %+v", perr)
	}
}

func TestMetricsEndpoint(t *testing.T) {
	env := startTestServer(t, testConfig())
	client := env.dial(t)
	client.login("metered")

	resp, err := env.ts.Client().Get(env.ts.URL + "/metrics")
	if err != nil {
		t.Fatalf("metrics request failed: %v", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("read body: %v", err)
	}
	if !strings.Contains(string(body), "voxroom_connections 1") {
		t.Fatalf("expected connection gauge in metrics output")
	}
}

func TestWebSocketDisconnectLeavesRoom(t *testing.T) {
	env := startTestServer(t, testConfig())
	alice := env.dial(t)
	bob := env.dial(t)

	alice.join("Lobby", "alice")
	bobID := bob.join("Lobby", "bob")
	if err := bob.conn.Close(websocket.StatusNormalClosure, "bye"); err != nil && !errors.Is(err, io.EOF) {
		t.Logf("close: %v", err)
	}

	var gone proto.EventPeer
	for gone.ID != bobID {
		alice.expectEvent(proto.EventUserDisconnected, &gone)
	}
	if _, ok := env.coord.RoomOf(core.ConnID(bobID)); ok {
		t.Fatal("closed connection still has a room")
	}
}

func TestWebSocketStalledClientIsDropped(t *testing.T) {
	cfg := testConfig()
	cfg.EventBuffer = 8
	cfg.MaxChatLength = 64 << 10
	cfg.WriteTimeout = 200 * time.Millisecond
	env := startTestServer(t, cfg)

	stalled := env.dial(t)
	stalledID := core.ConnID(stalled.join("Lobby", "stalled"))

	sender := env.coord.Connect()
	t.Cleanup(func() { env.coord.Disconnect(sender.ID) })
	if _, err := env.coord.JoinRoom(sender, "Lobby", "", core.Identity{DisplayName: "flood"}); err != nil {
		t.Fatalf("join sender: %v", err)
	}
	go func() {
		for {
			select {
			case <-sender.Events():
			case <-sender.Done():
				return
			}
		}
	}()

	inRoom := func() bool {
		for _, o := range env.coord.RoomMembers("Lobby") {
			if o.ID == stalledID {
				return true
			}
		}
		return false
	}

	// the stalled client never reads, so socket buffers fill and its queue overflows
	text := strings.Repeat("x", 60<<10)
	deadline := time.Now().Add(10 * time.Second)
	for inRoom() {
		if time.Now().After(deadline) {
			t.Fatal("stalled client still registered")
		}
		_ = env.coord.SendChat(sender, text)
		time.Sleep(time.Millisecond)
	}

	if _, ok := env.coord.RoomOf(stalledID); ok {
		t.Fatal("stalled client still has a room")
	}
	for _, room := range env.coord.ListPublicState() {
		for _, o := range room.Occupants {
			if o.ID == stalledID {
				t.Fatalf("stalled client listed in %s", room.Name)
			}
		}
	}
}
