package http

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/vovakirdan/voxroom-server/internal/proto"
)

func serve(env *testEnv, method, path, token string, body []byte) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, bytes.NewReader(body))
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp := httptest.NewRecorder()
	env.ts.Config.Handler.ServeHTTP(resp, req)
	return resp
}

func TestListRooms(t *testing.T) {
	env := startTestServer(t, testConfig())
	client := env.dial(t)
	client.join("Games", "alice")

	resp := serve(env, http.MethodGet, "/api/rooms", "", nil)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", resp.Code)
	}

	var rooms []RoomResponse
	if err := json.Unmarshal(resp.Body.Bytes(), &rooms); err != nil {
		t.Fatalf("failed to unmarshal response: %v", err)
	}
	if len(rooms) != 2 || rooms[0].Name != "Lobby" || rooms[1].Name != "Games" {
		t.Fatalf("unexpected rooms: %+v", rooms)
	}
	if len(rooms[1].Occupants) != 1 || rooms[1].Occupants[0].DisplayName != "alice" {
		t.Fatalf("expected alice in Games, got %+v", rooms[1].Occupants)
	}
}

func TestHiddenRoomsOnlyInAdminListing(t *testing.T) {
	env := startTestServer(t, testConfig())
	admin := env.dial(t)
	admin.send(proto.InboundTypeLogin, proto.LoginData{DisplayName: "root", AdminKey: testAdminKey})
	admin.expectEvent(proto.EventLoginSuccess, nil)

	hidden := true
	admin.send(proto.InboundTypeUpdateRoomConfig, proto.RoomConfigData{RoomName: "Games", Hidden: &hidden})
	var configs map[string]proto.RoomConfig
	admin.expectEvent(proto.EventRoomConfig, &configs)
	for !configs["Games"].Hidden {
		admin.expectEvent(proto.EventRoomConfig, &configs)
	}

	var rooms []RoomResponse
	_ = json.Unmarshal(serve(env, http.MethodGet, "/api/rooms", "", nil).Body.Bytes(), &rooms)
	if len(rooms) != 1 || rooms[0].Name != "Lobby" {
		t.Fatalf("hidden room leaked: %+v", rooms)
	}

	token, err := env.auth.IssueAdminToken("ops", time.Minute)
	if err != nil {
		t.Fatalf("issue token: %v", err)
	}
	var all []RoomConfigResponse
	_ = json.Unmarshal(serve(env, http.MethodGet, "/api/admin/rooms", token, nil).Body.Bytes(), &all)
	if len(all) != 2 || !all[1].Hidden {
		t.Fatalf("admin listing should include hidden rooms: %+v", all)
	}
}

func TestBanAPI(t *testing.T) {
	env := startTestServer(t, testConfig())
	token, err := env.auth.IssueAdminToken("ops", time.Minute)
	if err != nil {
		t.Fatalf("issue token: %v", err)
	}

	victim := env.dial(t)
	victim.login("troll")

	resp := serve(env, http.MethodPost, "/api/admin/bans", token, []byte(`{"displayName":"Troll"}`))
	if resp.Code != http.StatusCreated {
		t.Fatalf("expected status 201, got %d: %s", resp.Code, resp.Body.String())
	}
	var created BanResponse
	if err := json.Unmarshal(resp.Body.Bytes(), &created); err != nil {
		t.Fatalf("failed to unmarshal response: %v", err)
	}
	if created.Ejected != 1 {
		t.Fatalf("expected the live session to be ejected, got %d", created.Ejected)
	}
	victim.expectEvent(proto.EventBanned, nil)

	var list BanListResponse
	_ = json.Unmarshal(serve(env, http.MethodGet, "/api/admin/bans", token, nil).Body.Bytes(), &list)
	if len(list.Names) != 1 || list.Names[0] != "Troll" {
		t.Fatalf("unexpected ban list: %+v", list)
	}

	if resp := serve(env, http.MethodPost, "/api/admin/bans", token, []byte(`{}`)); resp.Code != http.StatusBadRequest {
		t.Fatalf("expected status 400, got %d", resp.Code)
	}
	if resp := serve(env, http.MethodDelete, "/api/admin/bans/troll", token, nil); resp.Code != http.StatusNoContent {
		t.Fatalf("expected status 204, got %d", resp.Code)
	}
	if resp := serve(env, http.MethodDelete, "/api/admin/bans/troll", token, nil); resp.Code != http.StatusNotFound {
		t.Fatalf("expected status 404, got %d", resp.Code)
	}

	again := env.dial(t)
	if role := again.login("troll"); role == "" {
		t.Fatal("login after unban should succeed")
	}
}
