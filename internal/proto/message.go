package proto

import "encoding/json"

// Inbound is the envelope for messages coming from the client.
type Inbound struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`
}

const (
	ProtocolVersion = 1

	InboundTypeLogin            = "login"
	InboundTypeJoinRoom         = "join-room"
	InboundTypeLeaveRoom        = "leave-room"
	InboundTypeGetRooms         = "get-rooms"
	InboundTypeSendChat         = "send-chat-message"
	InboundTypeUpdateRoomConfig = "update-room-config"
	InboundTypeAdminAction      = "admin-action"
	InboundTypeGetBanList       = "get-ban-list"
	InboundTypeUnban            = "unban-user"
	InboundTypeOffer            = "offer"
	InboundTypeAnswer           = "answer"
	InboundTypeICECandidate     = "ice-candidate"
	InboundTypeStopScreenShare  = "stop-screen-share"
	InboundTypeRegisterRemoteID = "register-remote-id"
	InboundTypeRequestControl   = "request-remote-control"
	InboundTypeControlResponse  = "remote-control-response"
	InboundTypeRemoteInput      = "remote-input-event"
	InboundTypeControlHeartbeat = "remote-control-heartbeat"
	InboundTypeReleaseControl   = "release-remote-control"

	OutboundTypeEvent = "event"
	OutboundTypeError = "error"
)

// Outbound event names.
const (
	EventLoginSuccess           = "login-success"
	EventJoinedSuccess          = "joined-success"
	EventLeftRoom               = "left-room"
	EventPasswordRequired       = "password-required"
	EventRoomList               = "room-list-update"
	EventRoomConfig             = "room-config-update"
	EventUserConnected          = "user-connected"
	EventUserDisconnected       = "user-disconnected"
	EventUserList               = "update-user-list"
	EventChatMessage            = "chat-message"
	EventRoleUpdate             = "role-update"
	EventKicked                 = "kicked"
	EventBanned                 = "banned"
	EventForceMute              = "force-mute"
	EventBanList                = "ban-list"
	EventOffer                  = "offer"
	EventAnswer                 = "answer"
	EventICECandidate           = "ice-candidate"
	EventPerformInput           = "perform-input-action"
	EventScreenShareStopped     = "screen-share-stopped"
	EventYourRemoteID           = "your-remote-id"
	EventRemoteControlRequest   = "remote-control-request"
	EventRemoteControlAccepted  = "remote-control-accepted"
	EventRemoteControlRejected  = "remote-control-rejected"
	EventRemoteSelfControlled   = "remote-self-controlled"
	EventRemoteControlEnded     = "remote-control-ended"
	EventRemoteRequestCancelled = "remote-request-cancelled"
)

// LoginData establishes or refreshes the session.
type LoginData struct {
	DisplayName string `json:"displayName"`
	Avatar      string `json:"avatar,omitempty"`
	Color       string `json:"color,omitempty"`
	AdminKey    string `json:"adminKey,omitempty"`
	Protocol    int    `json:"protocol,omitempty"`
}

// JoinRoomData requests a room transition, optionally refreshing the identity.
type JoinRoomData struct {
	RoomName    string `json:"roomName"`
	DisplayName string `json:"displayName,omitempty"`
	Avatar      string `json:"avatar,omitempty"`
	Color       string `json:"color,omitempty"`
	AdminKey    string `json:"adminKey,omitempty"`
	Password    string `json:"password,omitempty"`
}

// ChatData is a chat line from the client.
type ChatData struct {
	Text string `json:"text"`
}

// RoomConfigData renames or reconfigures a room. Omitted fields stay unchanged;
// an empty password removes protection.
type RoomConfigData struct {
	RoomName string  `json:"roomName"`
	NewName  string  `json:"newName,omitempty"`
	Password *string `json:"password,omitempty"`
	Hidden   *bool   `json:"hidden,omitempty"`
}

// AdminActionData is a moderation request.
type AdminActionData struct {
	Action   string `json:"action"`
	TargetID string `json:"targetId"`
}

// UnbanData lifts a ban.
type UnbanData struct {
	DisplayName string `json:"displayName"`
}

// SignalData carries an SDP description or an ICE candidate for target.
type SignalData struct {
	Target    string          `json:"target"`
	SDP       json.RawMessage `json:"sdp,omitempty"`
	Candidate json.RawMessage `json:"candidate,omitempty"`
}

// RegisterRemoteIDData claims a remote-control identifier. Empty asks for a fresh one.
type RegisterRemoteIDData struct {
	RemoteID string `json:"remoteId,omitempty"`
}

// RequestControlData asks the holder of TargetRemoteID for control.
type RequestControlData struct {
	TargetRemoteID string `json:"targetRemoteId"`
}

// ControlResponseData answers a pending control request.
type ControlResponseData struct {
	RequesterID string `json:"requesterId"`
	Accepted    bool   `json:"accepted"`
}

// RemoteInputData is an input event for the controlled peer.
type RemoteInputData struct {
	TargetID string  `json:"targetId"`
	Type     string  `json:"type"`
	XPercent float64 `json:"xPercent"`
	YPercent float64 `json:"yPercent"`
}

// ReleaseControlData ends control sessions, only those with PeerID when set.
type ReleaseControlData struct {
	PeerID string `json:"peerId,omitempty"`
}

// Outbound is the envelope for messages sent to the client.
type Outbound struct {
	Type  string `json:"type"`
	Event string `json:"event,omitempty"`
	Data  any    `json:"data,omitempty"`
	Error *Error `json:"error,omitempty"`
}

// Occupant is a room member in presence payloads.
type Occupant struct {
	ID          string `json:"id"`
	DisplayName string `json:"displayName"`
	Avatar      string `json:"avatar,omitempty"`
	Color       string `json:"color,omitempty"`
	Role        string `json:"role"`
}

// RoomState is one entry of room-list-update.
type RoomState struct {
	Name      string     `json:"name"`
	Occupants []Occupant `json:"occupants"`
}

// RoomConfig is the client view of a room's configuration.
type RoomConfig struct {
	Locked  bool `json:"locked"`
	Hidden  bool `json:"hidden"`
	Default bool `json:"default"`
}

// EventRole carries the effective role, and the room for join acknowledgements.
type EventRole struct {
	Role     string `json:"role"`
	RoomName string `json:"roomName,omitempty"`
}

// EventRoom names a room.
type EventRoom struct {
	RoomName string `json:"roomName"`
}

// EventPeer names another connection.
type EventPeer struct {
	ID string `json:"id"`
}

// EventUserListData lists the occupants of the recipient's room.
type EventUserListData struct {
	RoomName  string     `json:"roomName"`
	Occupants []Occupant `json:"occupants"`
}

// EventChat is a chat line.
type EventChat struct {
	ID       string `json:"id"`
	RoomName string `json:"roomName"`
	SenderID string `json:"senderId,omitempty"`
	Username string `json:"username"`
	Avatar   string `json:"avatar,omitempty"`
	Color    string `json:"color,omitempty"`
	Text     string `json:"text"`
	Type     string `json:"type"`
	TS       int64  `json:"ts"`
}

// EventReason explains kicks and bans.
type EventReason struct {
	Reason string `json:"reason"`
}

// EventForceMuteData asks the client to mute or unmute.
type EventForceMuteData struct {
	Value bool `json:"value"`
}

// EventBanListData lists banned display names.
type EventBanListData struct {
	Names []string `json:"names"`
}

// EventSignal is a relayed offer, answer or ICE candidate.
type EventSignal struct {
	Caller    string          `json:"caller"`
	Target    string          `json:"target"`
	SDP       json.RawMessage `json:"sdp,omitempty"`
	Candidate json.RawMessage `json:"candidate,omitempty"`
}

// EventInput is a relayed input event for the controlled peer.
type EventInput struct {
	Caller   string  `json:"caller"`
	Type     string  `json:"type"`
	XPercent float64 `json:"xPercent"`
	YPercent float64 `json:"yPercent"`
}

// EventRemoteID delivers the assigned remote-control identifier.
type EventRemoteID struct {
	RemoteID string `json:"remoteId"`
}

// EventRemote covers the remote-control handshake and session events.
type EventRemote struct {
	SessionID         string `json:"sessionId,omitempty"`
	RequesterID       string `json:"requesterId,omitempty"`
	RequesterName     string `json:"requesterName,omitempty"`
	RequesterRemoteID string `json:"requesterRemoteId,omitempty"`
	TargetID          string `json:"targetId,omitempty"`
	TargetRemoteID    string `json:"targetRemoteId,omitempty"`
	ControllerID      string `json:"controllerId,omitempty"`
	Reason            string `json:"reason,omitempty"`
}

// Error describes a protocol-level error response.
type Error struct {
	Code string `json:"code"`
	Msg  string `json:"msg"`
}
