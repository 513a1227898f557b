package http

import (
	"encoding/json"
	"testing"

	"github.com/vovakirdan/voxroom-server/internal/core"
	"github.com/vovakirdan/voxroom-server/internal/proto"
)

func inbound(t *testing.T, typ string, data any) proto.Inbound {
	t.Helper()
	raw, err := json.Marshal(data)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	return proto.Inbound{Type: typ, Data: raw}
}

func TestInboundToCommand(t *testing.T) {
	pw := ""
	tests := []struct {
		name    string
		in      proto.Inbound
		want    core.CommandKind
		wantErr string
	}{
		{name: "login", in: inbound(t, proto.InboundTypeLogin, proto.LoginData{DisplayName: "a"}), want: core.CommandLogin},
		{name: "join without room", in: inbound(t, proto.InboundTypeJoinRoom, proto.JoinRoomData{}), wantErr: core.ErrCodeBadRequest},
		{name: "clear password", in: inbound(t, proto.InboundTypeUpdateRoomConfig, proto.RoomConfigData{RoomName: "x", Password: &pw}), want: core.CommandUpdateRoomConfig},
		{name: "offer without sdp", in: inbound(t, proto.InboundTypeOffer, proto.SignalData{Target: "b"}), wantErr: core.ErrCodeBadRequest},
		{name: "candidate", in: inbound(t, proto.InboundTypeICECandidate, proto.SignalData{Target: "b", Candidate: json.RawMessage(`"c"`)}), want: core.CommandSignal},
		{name: "request without id", in: inbound(t, proto.InboundTypeRequestControl, proto.RequestControlData{}), wantErr: core.ErrCodeBadRequest},
		{name: "heartbeat", in: proto.Inbound{Type: proto.InboundTypeControlHeartbeat}, want: core.CommandControlHeartbeat},
		{name: "string payload", in: proto.Inbound{Type: proto.InboundTypeSendChat, Data: json.RawMessage(`"hello"`)}, wantErr: core.ErrCodeBadRequest},
		{name: "unknown", in: proto.Inbound{Type: "nope"}, wantErr: errCodeInvalidMessage},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cmd, perr := inboundToCommand(tt.in)
			if tt.wantErr != "" {
				if perr == nil || perr.Code != tt.wantErr {
					t.Fatalf("expected %s, got %+v", tt.wantErr, perr)
				}
				return
			}
			if perr != nil {
				t.Fatalf("unexpected error: %+v", perr)
			}
			if cmd.Kind != tt.want {
				t.Fatalf("expected kind %v, got %v", tt.want, cmd.Kind)
			}
		})
	}
}

func TestUpdateRoomConfigKeepsPasswordPresence(t *testing.T) {
	cmd, perr := inboundToCommand(proto.Inbound{
		Type: proto.InboundTypeUpdateRoomConfig,
		Data: json.RawMessage(`{"roomName":"x","password":""}`),
	})
	if perr != nil {
		t.Fatalf("unexpected error: %+v", perr)
	}
	if cmd.Config.Password == nil || *cmd.Config.Password != "" {
		t.Fatal("an explicit empty password removes protection and must be kept")
	}
	if cmd.Config.Hidden != nil {
		t.Fatal("omitted hidden flag must stay unset")
	}
}

func TestOutboundSignalNames(t *testing.T) {
	out := outboundFromEvent(&core.Event{Kind: core.EventSignal, Signal: &core.Signal{
		Kind: core.SignalInput, From: "a", To: "b",
		Input: &core.InputEvent{Type: core.InputMove, XPercent: 0.1, YPercent: 0.2},
	}})
	if out.Event != proto.EventPerformInput {
		t.Fatalf("unexpected event %s", out.Event)
	}
	in, ok := out.Data.(proto.EventInput)
	if !ok || in.Caller != "a" || in.Type != "move" || in.YPercent != 0.2 {
		t.Fatalf("unexpected input payload %+v", out.Data)
	}

	out = outboundFromEvent(&core.Event{Kind: core.EventSignal, Signal: &core.Signal{
		Kind: core.SignalAnswer, From: "a", To: "b", Payload: json.RawMessage(`{}`),
	}})
	if out.Event != proto.EventAnswer {
		t.Fatalf("unexpected event %s", out.Event)
	}
}

func TestOutboundErrorEnvelope(t *testing.T) {
	out := outboundFromEvent(&core.Event{Kind: core.EventError, Error: core.ErrForbidden})
	if out.Type != proto.OutboundTypeError || out.Error.Code != core.ErrCodeForbidden {
		t.Fatalf("unexpected outbound %+v", out)
	}
}
