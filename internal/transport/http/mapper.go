package http

import (
	"bytes"
	"encoding/json"

	"github.com/vovakirdan/voxroom-server/internal/core"
	"github.com/vovakirdan/voxroom-server/internal/proto"
)

const (
	errCodeInvalidMessage     = "invalid_message"
	errCodeUnsupportedVersion = "unsupported_version"
)

func badRequest(msg string) *proto.Error {
	return &proto.Error{Code: core.ErrCodeBadRequest, Msg: msg}
}

// decode fills v from data, rejecting unknown fields and mistyped values.
func decode(data json.RawMessage, v any) *proto.Error {
	if len(bytes.TrimSpace(data)) == 0 {
		return nil
	}
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return badRequest("invalid payload: " + err.Error())
	}
	return nil
}

func inboundToCommand(inbound proto.Inbound) (*core.Command, *proto.Error) {
	switch inbound.Type {
	case proto.InboundTypeLogin:
		var login proto.LoginData
		if perr := decode(inbound.Data, &login); perr != nil {
			return nil, perr
		}
		if login.Protocol != 0 && login.Protocol != proto.ProtocolVersion {
			return nil, &proto.Error{Code: errCodeUnsupportedVersion, Msg: "unsupported protocol version"}
		}
		return &core.Command{
			Kind: core.CommandLogin,
			Identity: core.Identity{
				DisplayName: login.DisplayName,
				Avatar:      login.Avatar,
				Color:       login.Color,
				AdminKey:    login.AdminKey,
			},
		}, nil
	case proto.InboundTypeJoinRoom:
		var join proto.JoinRoomData
		if perr := decode(inbound.Data, &join); perr != nil {
			return nil, perr
		}
		if join.RoomName == "" {
			return nil, badRequest("roomName is required")
		}
		return &core.Command{
			Kind:     core.CommandJoinRoom,
			Room:     join.RoomName,
			Password: join.Password,
			Identity: core.Identity{
				DisplayName: join.DisplayName,
				Avatar:      join.Avatar,
				Color:       join.Color,
				AdminKey:    join.AdminKey,
			},
		}, nil
	case proto.InboundTypeLeaveRoom:
		return &core.Command{Kind: core.CommandLeaveRoom}, nil
	case proto.InboundTypeGetRooms:
		return &core.Command{Kind: core.CommandGetRooms}, nil
	case proto.InboundTypeSendChat:
		var msg proto.ChatData
		if perr := decode(inbound.Data, &msg); perr != nil {
			return nil, perr
		}
		return &core.Command{Kind: core.CommandSendChat, Text: msg.Text}, nil
	case proto.InboundTypeUpdateRoomConfig:
		var cfg proto.RoomConfigData
		if perr := decode(inbound.Data, &cfg); perr != nil {
			return nil, perr
		}
		if cfg.RoomName == "" {
			return nil, badRequest("roomName is required")
		}
		return &core.Command{
			Kind: core.CommandUpdateRoomConfig,
			Config: core.RoomConfigUpdate{
				Room:     cfg.RoomName,
				NewName:  cfg.NewName,
				Password: cfg.Password,
				Hidden:   cfg.Hidden,
			},
		}, nil
	case proto.InboundTypeAdminAction:
		var action proto.AdminActionData
		if perr := decode(inbound.Data, &action); perr != nil {
			return nil, perr
		}
		return &core.Command{
			Kind:   core.CommandAdminAction,
			Action: core.AdminActionKind(action.Action),
			Target: core.ConnID(action.TargetID),
		}, nil
	case proto.InboundTypeGetBanList:
		return &core.Command{Kind: core.CommandGetBanList}, nil
	case proto.InboundTypeUnban:
		var unban proto.UnbanData
		if perr := decode(inbound.Data, &unban); perr != nil {
			return nil, perr
		}
		return &core.Command{Kind: core.CommandUnban, Name: unban.DisplayName}, nil
	case proto.InboundTypeOffer, proto.InboundTypeAnswer, proto.InboundTypeICECandidate:
		return signalCommand(inbound)
	case proto.InboundTypeStopScreenShare:
		return &core.Command{Kind: core.CommandStopScreenShare}, nil
	case proto.InboundTypeRegisterRemoteID:
		var reg proto.RegisterRemoteIDData
		if perr := decode(inbound.Data, &reg); perr != nil {
			return nil, perr
		}
		return &core.Command{Kind: core.CommandRegisterRemoteID, RemoteID: reg.RemoteID}, nil
	case proto.InboundTypeRequestControl:
		var req proto.RequestControlData
		if perr := decode(inbound.Data, &req); perr != nil {
			return nil, perr
		}
		if req.TargetRemoteID == "" {
			return nil, badRequest("targetRemoteId is required")
		}
		return &core.Command{Kind: core.CommandRequestControl, RemoteID: req.TargetRemoteID}, nil
	case proto.InboundTypeControlResponse:
		var resp proto.ControlResponseData
		if perr := decode(inbound.Data, &resp); perr != nil {
			return nil, perr
		}
		if resp.RequesterID == "" {
			return nil, badRequest("requesterId is required")
		}
		return &core.Command{
			Kind:     core.CommandRespondControl,
			Target:   core.ConnID(resp.RequesterID),
			Accepted: resp.Accepted,
		}, nil
	case proto.InboundTypeRemoteInput:
		var in proto.RemoteInputData
		if perr := decode(inbound.Data, &in); perr != nil {
			return nil, perr
		}
		if in.TargetID == "" {
			return nil, badRequest("targetId is required")
		}
		return &core.Command{
			Kind:   core.CommandRemoteInput,
			Target: core.ConnID(in.TargetID),
			Input: core.InputEvent{
				Type:     core.InputType(in.Type),
				XPercent: in.XPercent,
				YPercent: in.YPercent,
			},
		}, nil
	case proto.InboundTypeControlHeartbeat:
		return &core.Command{Kind: core.CommandControlHeartbeat}, nil
	case proto.InboundTypeReleaseControl:
		var rel proto.ReleaseControlData
		if perr := decode(inbound.Data, &rel); perr != nil {
			return nil, perr
		}
		return &core.Command{Kind: core.CommandReleaseControl, Target: core.ConnID(rel.PeerID)}, nil
	default:
		return nil, &proto.Error{Code: errCodeInvalidMessage, Msg: "unknown message type"}
	}
}

func signalCommand(inbound proto.Inbound) (*core.Command, *proto.Error) {
	var sig proto.SignalData
	if perr := decode(inbound.Data, &sig); perr != nil {
		return nil, perr
	}
	if sig.Target == "" {
		return nil, badRequest("target is required")
	}

	kind := core.SignalKind(inbound.Type)
	payload := sig.SDP
	if kind == core.SignalICECandidate {
		payload = sig.Candidate
	}
	if len(payload) == 0 {
		return nil, badRequest("signal payload is required")
	}
	return &core.Command{
		Kind:    core.CommandSignal,
		Signal:  kind,
		Target:  core.ConnID(sig.Target),
		Payload: payload,
	}, nil
}

func event(name string, data any) proto.Outbound {
	return proto.Outbound{Type: proto.OutboundTypeEvent, Event: name, Data: data}
}

func outboundFromEvent(ev *core.Event) proto.Outbound {
	switch ev.Kind {
	case core.EventLoginSuccess:
		return event(proto.EventLoginSuccess, proto.EventRole{Role: string(ev.Role)})
	case core.EventJoinedSuccess:
		return event(proto.EventJoinedSuccess, proto.EventRole{Role: string(ev.Role), RoomName: ev.Room})
	case core.EventLeftRoom:
		return event(proto.EventLeftRoom, proto.EventRoom{RoomName: ev.Room})
	case core.EventPasswordRequired:
		return event(proto.EventPasswordRequired, proto.EventRoom{RoomName: ev.Room})
	case core.EventRoomList:
		rooms := make([]proto.RoomState, 0, len(ev.Rooms))
		for _, st := range ev.Rooms {
			rooms = append(rooms, proto.RoomState{Name: st.Name, Occupants: occupants(st.Occupants)})
		}
		return event(proto.EventRoomList, rooms)
	case core.EventRoomConfig:
		configs := make(map[string]proto.RoomConfig, len(ev.Configs))
		for _, cfg := range ev.Configs {
			configs[cfg.Name] = proto.RoomConfig{Locked: cfg.Locked, Hidden: cfg.Hidden, Default: cfg.Default}
		}
		return event(proto.EventRoomConfig, configs)
	case core.EventUserConnected:
		return event(proto.EventUserConnected, proto.EventPeer{ID: string(ev.Subject)})
	case core.EventUserDisconnected:
		return event(proto.EventUserDisconnected, proto.EventPeer{ID: string(ev.Subject)})
	case core.EventScreenShareStopped:
		return event(proto.EventScreenShareStopped, proto.EventPeer{ID: string(ev.Subject)})
	case core.EventUserList:
		return event(proto.EventUserList, proto.EventUserListData{RoomName: ev.Room, Occupants: occupants(ev.Occupants)})
	case core.EventChatMessage:
		return event(proto.EventChatMessage, chatPayload(ev.Chat))
	case core.EventRoleUpdate:
		return event(proto.EventRoleUpdate, proto.EventRole{Role: string(ev.Role)})
	case core.EventKicked:
		return event(proto.EventKicked, proto.EventReason{Reason: ev.Reason})
	case core.EventBanned:
		return event(proto.EventBanned, proto.EventReason{Reason: ev.Reason})
	case core.EventForceMute:
		return event(proto.EventForceMute, proto.EventForceMuteData{Value: ev.Flag})
	case core.EventBanList:
		names := ev.Names
		if names == nil {
			names = []string{}
		}
		return event(proto.EventBanList, proto.EventBanListData{Names: names})
	case core.EventSignal:
		return signalOutbound(ev.Signal)
	case core.EventRemoteID:
		return event(proto.EventYourRemoteID, proto.EventRemoteID{RemoteID: ev.Remote.RemoteID})
	case core.EventRemoteControlRequest:
		return event(proto.EventRemoteControlRequest, remotePayload(ev))
	case core.EventRemoteControlAccepted:
		return event(proto.EventRemoteControlAccepted, remotePayload(ev))
	case core.EventRemoteControlRejected:
		return event(proto.EventRemoteControlRejected, remotePayload(ev))
	case core.EventRemoteSelfControlled:
		return event(proto.EventRemoteSelfControlled, remotePayload(ev))
	case core.EventRemoteControlEnded:
		return event(proto.EventRemoteControlEnded, remotePayload(ev))
	case core.EventRemoteRequestCancelled:
		return event(proto.EventRemoteRequestCancelled, remotePayload(ev))
	case core.EventError:
		if ev.Error == nil {
			return proto.Outbound{Type: proto.OutboundTypeError, Error: &proto.Error{Code: "unknown", Msg: "unknown error"}}
		}
		return proto.Outbound{
			Type:  proto.OutboundTypeError,
			Error: &proto.Error{Code: ev.Error.Code, Msg: ev.Error.Message},
		}
	default:
		return proto.Outbound{Type: proto.OutboundTypeEvent}
	}
}

func occupants(in []core.Occupant) []proto.Occupant {
	out := make([]proto.Occupant, 0, len(in))
	for _, o := range in {
		out = append(out, proto.Occupant{
			ID:          string(o.ID),
			DisplayName: o.DisplayName,
			Avatar:      o.Avatar,
			Color:       o.Color,
			Role:        string(o.Role),
		})
	}
	return out
}

func chatPayload(msg *core.ChatMessage) proto.EventChat {
	if msg == nil {
		return proto.EventChat{}
	}
	kind := "user"
	if msg.System {
		kind = "system"
	}
	return proto.EventChat{
		ID:       msg.ID,
		RoomName: msg.Room,
		SenderID: string(msg.From),
		Username: msg.DisplayName,
		Avatar:   msg.Avatar,
		Color:    msg.Color,
		Text:     msg.Text,
		Type:     kind,
		TS:       msg.CreatedAt.Unix(),
	}
}

func signalOutbound(sig *core.Signal) proto.Outbound {
	if sig == nil {
		return proto.Outbound{Type: proto.OutboundTypeEvent}
	}
	switch sig.Kind {
	case core.SignalInput:
		if sig.Input == nil {
			return proto.Outbound{Type: proto.OutboundTypeEvent}
		}
		in := sig.Input
		return event(proto.EventPerformInput, proto.EventInput{
			Caller:   string(sig.From),
			Type:     string(in.Type),
			XPercent: in.XPercent,
			YPercent: in.YPercent,
		})
	case core.SignalICECandidate:
		return event(proto.EventICECandidate, proto.EventSignal{
			Caller:    string(sig.From),
			Target:    string(sig.To),
			Candidate: sig.Payload,
		})
	default:
		return event(string(sig.Kind), proto.EventSignal{
			Caller: string(sig.From),
			Target: string(sig.To),
			SDP:    sig.Payload,
		})
	}
}

func remotePayload(ev *core.Event) proto.EventRemote {
	out := proto.EventRemote{Reason: ev.Reason}
	if r := ev.Remote; r != nil {
		out.SessionID = r.SessionID
		out.RequesterID = string(r.RequesterID)
		out.RequesterName = r.RequesterName
		out.RequesterRemoteID = r.RequesterRemoteID
		out.TargetID = string(r.TargetID)
		out.TargetRemoteID = r.TargetRemoteID
		out.ControllerID = string(r.ControllerID)
	}
	return out
}
