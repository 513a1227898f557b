package core

import "encoding/json"

// CommandKind describes what the client wants to do.
type CommandKind int

const (
	// CommandLogin establishes or refreshes the session.
	CommandLogin CommandKind = iota
	// CommandJoinRoom moves the connection into a room.
	CommandJoinRoom
	// CommandLeaveRoom removes the connection from its room.
	CommandLeaveRoom
	// CommandGetRooms requests the room config and public state.
	CommandGetRooms
	// CommandSendChat delivers a chat message to the current room.
	CommandSendChat
	// CommandUpdateRoomConfig renames or reconfigures a room.
	CommandUpdateRoomConfig
	// CommandAdminAction runs a moderation action against another connection.
	CommandAdminAction
	// CommandGetBanList requests the ban list.
	CommandGetBanList
	// CommandUnban lifts a ban on a display name.
	CommandUnban
	// CommandSignal relays an offer, answer or ICE candidate.
	CommandSignal
	// CommandStopScreenShare tells room peers that screen sharing stopped.
	CommandStopScreenShare
	// CommandRegisterRemoteID claims or requests a remote-control identifier.
	CommandRegisterRemoteID
	// CommandRequestControl asks another connection for remote control.
	CommandRequestControl
	// CommandRespondControl accepts or rejects a pending control request.
	CommandRespondControl
	// CommandRemoteInput forwards an input event inside an active control session.
	CommandRemoteInput
	// CommandControlHeartbeat keeps active control sessions alive.
	CommandControlHeartbeat
	// CommandReleaseControl ends control sessions the connection takes part in.
	CommandReleaseControl
)

// AdminActionKind is a moderation action.
type AdminActionKind string

const (
	AdminKick    AdminActionKind = "kick"
	AdminBan     AdminActionKind = "ban"
	AdminMute    AdminActionKind = "mute"
	AdminUnmute  AdminActionKind = "unmute"
	AdminPromote AdminActionKind = "promote"
)

// RoomConfigUpdate describes a room configuration change.
// A nil Password or Hidden leaves the setting unchanged; an empty Password removes it.
type RoomConfigUpdate struct {
	Room     string
	NewName  string
	Password *string
	Hidden   *bool
}

// InputType is the kind of remote input.
type InputType string

const (
	InputMove  InputType = "move"
	InputClick InputType = "click"
)

// InputEvent is a resolution-independent input descriptor.
type InputEvent struct {
	Type     InputType
	XPercent float64
	YPercent float64
}

// Command represents an action requested by a client.
type Command struct {
	Kind     CommandKind
	Identity Identity
	Room     string
	Password string
	Text     string
	Config   RoomConfigUpdate
	Action   AdminActionKind
	Target   ConnID
	Name     string
	Signal   SignalKind
	Payload  json.RawMessage
	RemoteID string
	Accepted bool
	Input    InputEvent
}
