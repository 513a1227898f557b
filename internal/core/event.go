package core

import (
	"encoding/json"
	"time"
)

// EventKind is a notification the core emits to clients.
type EventKind int

const (
	// EventLoginSuccess acknowledges a login with the effective role.
	EventLoginSuccess EventKind = iota
	// EventJoinedSuccess confirms a room transition to the joiner.
	EventJoinedSuccess
	// EventLeftRoom confirms an explicit leave to the leaver.
	EventLeftRoom
	// EventPasswordRequired asks the client to (re-)prompt for a room password.
	EventPasswordRequired
	// EventRoomList carries the public occupant state of every visible room.
	EventRoomList
	// EventRoomConfig carries the room configuration view.
	EventRoomConfig
	// EventUserConnected tells room members that a peer arrived.
	EventUserConnected
	// EventUserDisconnected tells room members that a peer left.
	EventUserDisconnected
	// EventUserList carries the occupant list of the recipient's room.
	EventUserList
	// EventChatMessage delivers a chat line to room members.
	EventChatMessage
	// EventRoleUpdate notifies a connection that its role changed.
	EventRoleUpdate
	// EventKicked is sent to a connection right before it is closed by moderation.
	EventKicked
	// EventBanned is sent to a connection right before it is closed by a ban.
	EventBanned
	// EventForceMute asks the client to mute or unmute its microphone.
	EventForceMute
	// EventBanList delivers the current ban list to an admin.
	EventBanList
	// EventSignal is a relayed opaque signaling or input payload.
	EventSignal
	// EventScreenShareStopped tells room members that a peer stopped sharing its screen.
	EventScreenShareStopped
	// EventRemoteID delivers the assigned remote-control identifier.
	EventRemoteID
	// EventRemoteControlRequest asks the target whether it accepts being controlled.
	EventRemoteControlRequest
	// EventRemoteControlAccepted tells the requester that control was granted.
	EventRemoteControlAccepted
	// EventRemoteControlRejected tells the requester that control was refused or timed out.
	EventRemoteControlRejected
	// EventRemoteSelfControlled tells the target it is now being controlled.
	EventRemoteSelfControlled
	// EventRemoteControlEnded tells both parties that a control session is over.
	EventRemoteControlEnded
	// EventRemoteRequestCancelled tells the target that a pending request went away.
	EventRemoteRequestCancelled
	// EventError notifies clients about a domain error.
	EventError
)

// Event is sent to clients to describe what happened in the system.
// Events may be shared between recipients and must be treated as read-only.
type Event struct {
	Kind      EventKind
	Room      string
	Subject   ConnID
	Role      Role
	Reason    string
	Flag      bool
	Occupants []Occupant
	Rooms     []RoomState
	Configs   []RoomConfigView
	Names     []string
	Chat      *ChatMessage
	Signal    *Signal
	Remote    *RemoteEvent
	Error     *CoreError
}

// ChatMessage is a chat line broadcast to a room.
type ChatMessage struct {
	ID          string
	Room        string
	From        ConnID
	DisplayName string
	Avatar      string
	Color       string
	Text        string
	System      bool
	CreatedAt   time.Time
}

// Signal is an opaque payload relayed between two connections.
type Signal struct {
	Kind    SignalKind
	From    ConnID
	To      ConnID
	Payload json.RawMessage

	// Input is set for SignalInput instead of Payload.
	Input *InputEvent
}

// RemoteEvent holds data specific to remote-control events.
type RemoteEvent struct {
	SessionID         string
	RequesterID       ConnID
	RequesterName     string
	RequesterRemoteID string
	TargetID          ConnID
	TargetRemoteID    string
	ControllerID      ConnID
	RemoteID          string
}

// RoomState is one entry of the public room listing.
type RoomState struct {
	Name      string
	Occupants []Occupant
}

// RoomConfigView is the client-visible configuration of a room. It never carries the password.
type RoomConfigView struct {
	Name    string
	Locked  bool
	Hidden  bool
	Default bool
}

func errorEvent(err error) *Event {
	return &Event{Kind: EventError, Error: AsCoreError(err)}
}
