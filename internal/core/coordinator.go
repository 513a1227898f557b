package core

import (
	"encoding/json"
	"errors"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/oklog/ulid/v2"
	"github.com/rs/zerolog"

	"github.com/vovakirdan/voxroom-server/internal/metrics"
)

const (
	systemName     = "System"
	defaultMaxChat = 2000
	kickReason     = "You were kicked by an administrator."
	banReason      = "You were banned by an administrator."
)

// Reasons carried by remote-control rejection and end events.
const (
	ReasonRejected    = "rejected"
	ReasonTimeout     = "timeout"
	ReasonReleased    = "released"
	ReasonExpired     = "expired"
	ReasonPeerGone    = "peer-disconnected"
	ReasonUnavailable = "unavailable"
)

// AdminVerifier decides whether a presented admin key grants the admin role.
type AdminVerifier interface {
	IsAdminKey(key string) bool
}

// Options configures coordinator behavior.
type Options struct {
	DefaultRooms          []string
	AllowAdhocRooms       bool
	EventBuffer           int
	MaxChatLength         int
	ControlRequestTimeout time.Duration
	ControlIdleTimeout    time.Duration
}

// Deps are the collaborators injected into the coordinator.
type Deps struct {
	Admins  AdminVerifier
	Hasher  PasswordHasher
	Metrics *metrics.Metrics
	Logger  *zerolog.Logger
	Now     func() time.Time
}

// Coordinator sequences login, room membership, moderation, relay and
// remote control over the registry, directory, moderation store and broker.
type Coordinator struct {
	registry *Registry
	rooms    *Directory
	mod      *Moderation
	relay    *Relay
	remote   *RemoteBroker

	admins  AdminVerifier
	hasher  PasswordHasher
	metrics *metrics.Metrics
	log     *zerolog.Logger
	now     func() time.Time
	maxChat int
}

// NewCoordinator builds an isolated coordinator instance.
func NewCoordinator(opts Options, deps Deps) *Coordinator {
	logger := deps.Logger
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}
	now := deps.Now
	if now == nil {
		now = time.Now
	}
	maxChat := opts.MaxChatLength
	if maxChat <= 0 {
		maxChat = defaultMaxChat
	}

	registry := NewRegistry(opts.EventBuffer)
	registry.onSlow = func(id ConnID) {
		deps.Metrics.SlowConsumer()
		logger.Warn().Str("conn_id", string(id)).Msg("outbound queue full, closing connection")
	}

	return &Coordinator{
		registry: registry,
		rooms:    NewDirectory(opts.DefaultRooms, opts.AllowAdhocRooms, deps.Hasher),
		mod:      NewModeration(),
		relay:    NewRelay(registry, deps.Metrics, logger),
		remote:   NewRemoteBroker(opts.ControlRequestTimeout, opts.ControlIdleTimeout),
		admins:   deps.Admins,
		hasher:   deps.Hasher,
		metrics:  deps.Metrics,
		log:      logger,
		now:      now,
		maxChat:  maxChat,
	}
}

// Connect registers a new transport connection.
func (c *Coordinator) Connect() *Conn {
	c.registry.mu.Lock()
	conn := c.registry.add()
	c.registry.mu.Unlock()

	c.metrics.ConnectionOpened()
	c.log.Debug().Str("conn_id", string(conn.ID)).Msg("connection registered")
	return conn
}

// Disconnect deregisters a connection. Room membership, presence broadcasts and
// remote-control state are cleaned up before the registry lock is released.
// Calling it more than once is harmless.
func (c *Coordinator) Disconnect(id ConnID) {
	c.registry.mu.Lock()
	defer c.registry.mu.Unlock()

	if conn := c.registry.get(id); conn != nil {
		c.disconnectLocked(conn, CloseDisconnected)
	}
}

func (c *Coordinator) disconnectLocked(conn *Conn, reason string) {
	if c.registry.remove(conn.ID) == nil {
		return
	}

	inRoom := conn.room != nil
	if inRoom {
		c.detachLocked(conn)
	}

	requests, sessions := c.remote.release(conn.ID)
	c.notifyRequestsGoneLocked(requests, ReasonUnavailable)
	c.notifySessionsEndedLocked(sessions, ReasonPeerGone)

	if conn.session != nil {
		c.metrics.SessionEnded()
	}
	conn.session = nil
	conn.remoteID = ""
	conn.terminate(reason)
	c.metrics.ConnectionClosed()

	if inRoom {
		c.broadcastPublicStateLocked()
	}
	c.log.Debug().Str("conn_id", string(conn.ID)).Str("reason", reason).Msg("connection deregistered")
}

// Handle executes one client command. Failures are reported to conn only, and a
// panic while handling is confined to this command.
func (c *Coordinator) Handle(conn *Conn, cmd *Command) {
	defer func() {
		if r := recover(); r != nil {
			c.log.Error().Interface("panic", r).Str("conn_id", string(conn.ID)).Msg("command handler panicked")
			conn.send(errorEvent(coreError(ErrCodeInternal, "internal error")))
		}
	}()

	var err error
	switch cmd.Kind {
	case CommandLogin:
		_, err = c.Login(conn, cmd.Identity)
	case CommandJoinRoom:
		_, err = c.JoinRoom(conn, cmd.Room, cmd.Password, cmd.Identity)
		if errors.Is(err, ErrPasswordRequired) {
			conn.send(&Event{Kind: EventPasswordRequired, Room: strings.TrimSpace(cmd.Room)})
			return
		}
	case CommandLeaveRoom:
		err = c.LeaveRoom(conn)
	case CommandGetRooms:
		c.GetRooms(conn)
	case CommandSendChat:
		err = c.SendChat(conn, cmd.Text)
	case CommandUpdateRoomConfig:
		err = c.UpdateRoomConfig(conn, cmd.Config)
	case CommandAdminAction, CommandGetBanList, CommandUnban:
		// Moderation never tells the caller it lacks the role.
		if modErr := c.moderate(conn, cmd); modErr != nil {
			c.log.Warn().Err(modErr).Str("conn_id", string(conn.ID)).Str("action", string(cmd.Action)).Msg("moderation request ignored")
		}
		return
	case CommandSignal:
		err = c.Relay(conn, cmd.Signal, cmd.Target, cmd.Payload)
	case CommandStopScreenShare:
		err = c.StopScreenShare(conn)
	case CommandRegisterRemoteID:
		_, err = c.RegisterRemoteID(conn, cmd.RemoteID)
	case CommandRequestControl:
		err = c.RequestControl(conn, cmd.RemoteID)
	case CommandRespondControl:
		err = c.RespondControl(conn, cmd.Target, cmd.Accepted)
	case CommandRemoteInput:
		err = c.ForwardInput(conn, cmd.Target, cmd.Input)
	case CommandControlHeartbeat:
		c.Heartbeat(conn)
	case CommandReleaseControl:
		c.ReleaseControl(conn, cmd.Target)
	default:
		err = badRequest("unknown command")
	}

	if err != nil {
		c.log.Debug().Err(err).Str("conn_id", string(conn.ID)).Msg("command failed")
		conn.send(errorEvent(err))
	}
}

func (c *Coordinator) moderate(conn *Conn, cmd *Command) error {
	switch cmd.Kind {
	case CommandGetBanList:
		return c.BanList(conn)
	case CommandUnban:
		return c.Unban(conn, cmd.Name)
	default:
		return c.AdminAction(conn, cmd.Action, cmd.Target)
	}
}

func (c *Coordinator) isAdminKey(key string) bool {
	return key != "" && c.admins != nil && c.admins.IsAdminKey(key)
}

// Login establishes or refreshes the session of conn.
func (c *Coordinator) Login(conn *Conn, id Identity) (Role, error) {
	name, err := normalizeDisplayName(id.DisplayName)
	if err != nil {
		return "", err
	}
	admin := c.isAdminKey(id.AdminKey)

	c.registry.mu.Lock()
	defer c.registry.mu.Unlock()

	if !c.registry.live(conn) {
		return "", ErrNotFound
	}
	if c.mod.IsBanned(name) {
		return "", ErrBanned
	}

	role := c.applyIdentityLocked(conn, name, id, admin)
	conn.send(&Event{Kind: EventLoginSuccess, Role: role})
	c.sendRoomsLocked(conn)
	if conn.room != nil {
		c.refreshRoomLocked(conn.room)
		c.broadcastPublicStateLocked()
	}

	c.log.Info().Str("conn_id", string(conn.ID)).Str("name", name).Str("role", string(role)).Msg("login")
	return role, nil
}

func (c *Coordinator) applyIdentityLocked(conn *Conn, name string, id Identity, admin bool) Role {
	s := conn.session
	if s == nil {
		s = &Session{Role: RoleUser}
		conn.session = s
		c.metrics.SessionStarted()
	}
	s.DisplayName = name
	if id.Avatar != "" {
		s.Avatar = id.Avatar
	}
	if id.Color != "" {
		s.Color = id.Color
	}
	if admin {
		s.promote(RoleAdmin)
	}
	return s.Role
}

// JoinRoom moves conn into roomName, leaving its previous room in the same step.
// A non-empty identity refreshes the session first (and can log the connection in).
// Returns the effective role.
func (c *Coordinator) JoinRoom(conn *Conn, roomName, password string, id Identity) (Role, error) {
	name, err := normalizeRoomName(roomName)
	if err != nil {
		return "", err
	}
	var claimed string
	if strings.TrimSpace(id.DisplayName) != "" {
		if claimed, err = normalizeDisplayName(id.DisplayName); err != nil {
			return "", err
		}
	}
	admin := c.isAdminKey(id.AdminKey)

	// Ban status is checked before the password so a banned user learns nothing about the room.
	if err := c.precheckJoin(conn, claimed); err != nil {
		return "", err
	}
	// Password hashing is slow; verify outside the locks and confirm the hash below.
	hash, ok := c.rooms.checkPassword(name, password)
	if !ok {
		return "", ErrPasswordRequired
	}

	c.registry.mu.Lock()
	defer c.registry.mu.Unlock()

	if !c.registry.live(conn) {
		return "", ErrNotFound
	}
	if claimed == "" && conn.session == nil {
		return "", ErrNotLoggedIn
	}
	effective := claimed
	if effective == "" {
		effective = conn.session.DisplayName
	}
	if c.mod.IsBanned(effective) {
		return "", ErrBanned
	}
	if current, _ := c.rooms.passwordHash(name); current != hash {
		return "", ErrPasswordRequired
	}

	if claimed != "" {
		c.applyIdentityLocked(conn, claimed, id, admin)
	} else if admin {
		conn.session.promote(RoleAdmin)
	}
	role := conn.session.Role

	target, err := c.rooms.resolve(name)
	if err != nil {
		return "", err
	}

	if conn.room == target {
		conn.send(&Event{Kind: EventJoinedSuccess, Room: target.name, Role: role})
		conn.send(&Event{Kind: EventUserList, Room: target.name, Occupants: target.occupants()})
		return role, nil
	}

	if conn.room != nil {
		c.detachLocked(conn)
	}
	target.add(conn)
	conn.room = target

	conn.send(&Event{Kind: EventJoinedSuccess, Room: target.name, Role: role})
	target.broadcast(conn, &Event{Kind: EventUserConnected, Room: target.name, Subject: conn.ID})
	target.broadcast(nil,
		&Event{Kind: EventUserList, Room: target.name, Occupants: target.occupants()},
		c.systemChat(target, conn.session.DisplayName+" joined."),
	)
	c.broadcastPublicStateLocked()
	c.metrics.RoomJoined()

	c.log.Info().Str("conn_id", string(conn.ID)).Str("room", target.name).Msg("joined room")
	return role, nil
}

func (c *Coordinator) precheckJoin(conn *Conn, claimed string) error {
	c.registry.mu.RLock()
	defer c.registry.mu.RUnlock()

	if !c.registry.live(conn) {
		return ErrNotFound
	}
	name := claimed
	if name == "" {
		if conn.session == nil {
			return ErrNotLoggedIn
		}
		name = conn.session.DisplayName
	}
	if c.mod.IsBanned(name) {
		return ErrBanned
	}
	return nil
}

// detachLocked removes conn from its room and tells the remaining members.
func (c *Coordinator) detachLocked(conn *Conn) {
	room := conn.room
	if room == nil {
		return
	}
	room.remove(conn)
	conn.room = nil

	name := systemName
	if conn.session != nil {
		name = conn.session.DisplayName
	}
	room.broadcast(nil,
		&Event{Kind: EventUserDisconnected, Room: room.name, Subject: conn.ID},
		&Event{Kind: EventUserList, Room: room.name, Occupants: room.occupants()},
		c.systemChat(room, name+" left."),
	)
	c.rooms.collect(room)
}

// LeaveRoom takes conn out of its current room without disconnecting it.
func (c *Coordinator) LeaveRoom(conn *Conn) error {
	c.registry.mu.Lock()
	defer c.registry.mu.Unlock()

	if !c.registry.live(conn) {
		return ErrNotFound
	}
	if conn.room == nil {
		return ErrNotInRoom
	}
	name := conn.room.name
	c.detachLocked(conn)
	conn.send(&Event{Kind: EventLeftRoom, Room: name})
	c.broadcastPublicStateLocked()
	return nil
}

// GetRooms sends the room configuration and public state to conn.
func (c *Coordinator) GetRooms(conn *Conn) {
	c.registry.mu.RLock()
	defer c.registry.mu.RUnlock()
	if c.registry.live(conn) {
		c.sendRoomsLocked(conn)
	}
}

// ListPublicState returns occupants of every non-hidden room, default rooms first.
func (c *Coordinator) ListPublicState() []RoomState {
	c.registry.mu.RLock()
	defer c.registry.mu.RUnlock()
	return c.rooms.publicState()
}

// RoomMembers returns the occupants of a room, hidden or not.
func (c *Coordinator) RoomMembers(name string) []Occupant {
	c.registry.mu.RLock()
	defer c.registry.mu.RUnlock()
	room := c.rooms.get(name)
	if room == nil {
		return nil
	}
	return room.occupants()
}

// RoomOf returns the room a connection is in.
func (c *Coordinator) RoomOf(id ConnID) (string, bool) {
	c.registry.mu.RLock()
	defer c.registry.mu.RUnlock()
	conn := c.registry.get(id)
	if conn == nil || conn.room == nil {
		return "", false
	}
	return conn.room.name, true
}

// SessionOf returns a copy of the session attached to a connection.
func (c *Coordinator) SessionOf(id ConnID) (Session, bool) {
	c.registry.mu.RLock()
	defer c.registry.mu.RUnlock()
	conn := c.registry.get(id)
	if conn == nil || conn.session == nil {
		return Session{}, false
	}
	return *conn.session, true
}

// RoomConfigs returns the configuration view of every room.
func (c *Coordinator) RoomConfigs(includeHidden bool) []RoomConfigView {
	c.registry.mu.RLock()
	defer c.registry.mu.RUnlock()
	return c.rooms.configs(includeHidden)
}

// SendChat broadcasts a chat line to everyone in the sender's room.
func (c *Coordinator) SendChat(conn *Conn, text string) error {
	text = strings.TrimSpace(text)
	if text == "" {
		return badRequest("message is empty")
	}
	if utf8.RuneCountInString(text) > c.maxChat {
		return badRequest("message is too long")
	}

	c.registry.mu.RLock()
	defer c.registry.mu.RUnlock()

	if !c.registry.live(conn) {
		return ErrNotFound
	}
	if conn.session == nil {
		return ErrNotLoggedIn
	}
	room := conn.room
	if room == nil {
		return ErrNotInRoom
	}

	room.broadcast(nil, &Event{
		Kind: EventChatMessage,
		Room: room.name,
		Chat: &ChatMessage{
			ID:          ulid.Make().String(),
			Room:        room.name,
			From:        conn.ID,
			DisplayName: conn.session.DisplayName,
			Avatar:      conn.session.Avatar,
			Color:       conn.session.Color,
			Text:        text,
			CreatedAt:   c.now(),
		},
	})
	c.metrics.ChatMessage()
	return nil
}

func (c *Coordinator) systemChat(room *Room, text string) *Event {
	return &Event{
		Kind: EventChatMessage,
		Room: room.name,
		Chat: &ChatMessage{
			ID:          ulid.Make().String(),
			Room:        room.name,
			DisplayName: systemName,
			Text:        text,
			System:      true,
			CreatedAt:   c.now(),
		},
	}
}

// StopScreenShare tells the other members of conn's room that its screen share ended.
func (c *Coordinator) StopScreenShare(conn *Conn) error {
	c.registry.mu.RLock()
	defer c.registry.mu.RUnlock()

	if !c.registry.live(conn) {
		return ErrNotFound
	}
	if conn.room == nil {
		return ErrNotInRoom
	}
	conn.room.broadcast(conn, &Event{Kind: EventScreenShareStopped, Room: conn.room.name, Subject: conn.ID})
	return nil
}

// UpdateRoomConfig renames or reconfigures a room and broadcasts the result to everyone.
func (c *Coordinator) UpdateRoomConfig(conn *Conn, upd RoomConfigUpdate) error {
	name := strings.TrimSpace(upd.Room)
	if name == "" {
		return badRequest("room name is required")
	}

	var hash *string
	if upd.Password != nil && c.roleOf(conn) == RoleAdmin {
		h := ""
		if *upd.Password != "" {
			if c.hasher == nil {
				return badRequest("room passwords are not supported")
			}
			var err error
			if h, err = c.hasher.Hash(*upd.Password); err != nil {
				return err
			}
		}
		hash = &h
	}

	c.registry.mu.Lock()
	defer c.registry.mu.Unlock()

	if !c.registry.live(conn) {
		return ErrNotFound
	}
	role := RoleUser
	if conn.session != nil {
		role = conn.session.Role
	}

	room, err := c.rooms.UpdateConfig(role, name, upd.NewName, hash, upd.Hidden)
	if err != nil {
		c.log.Info().Err(err).Str("conn_id", string(conn.ID)).Str("room", name).Msg("room config update refused")
		return err
	}

	c.log.Info().Str("conn_id", string(conn.ID)).Str("room", name).Str("new_name", room.name).Msg("room config updated")
	c.broadcastConfigLocked()
	c.broadcastPublicStateLocked()
	return nil
}

func (c *Coordinator) roleOf(conn *Conn) Role {
	c.registry.mu.RLock()
	defer c.registry.mu.RUnlock()
	if conn.session == nil {
		return RoleUser
	}
	return conn.session.Role
}

// caller holds registry lock
func (c *Coordinator) sendRoomsLocked(conn *Conn) {
	admin := conn.session != nil && conn.session.Role == RoleAdmin
	conn.send(&Event{Kind: EventRoomConfig, Configs: c.rooms.configs(admin)})
	conn.send(&Event{Kind: EventRoomList, Rooms: c.rooms.publicState()})
}

// caller holds registry lock
func (c *Coordinator) refreshRoomLocked(room *Room) {
	room.broadcast(nil, &Event{Kind: EventUserList, Room: room.name, Occupants: room.occupants()})
}

// broadcastPublicStateLocked pushes the room listing to every logged-in connection.
func (c *Coordinator) broadcastPublicStateLocked() {
	ev := &Event{Kind: EventRoomList, Rooms: c.rooms.publicState()}
	c.registry.each(func(conn *Conn) {
		if conn.session != nil {
			conn.send(ev)
		}
	})
}

// broadcastConfigLocked pushes the room configuration; only admins see hidden rooms.
func (c *Coordinator) broadcastConfigLocked() {
	public := &Event{Kind: EventRoomConfig, Configs: c.rooms.configs(false)}
	full := &Event{Kind: EventRoomConfig, Configs: c.rooms.configs(true)}
	c.registry.each(func(conn *Conn) {
		switch {
		case conn.session == nil:
		case conn.session.Role == RoleAdmin:
			conn.send(full)
		default:
			conn.send(public)
		}
	})
}

// Relay forwards an offer, answer or ICE candidate to target. Unknown targets are dropped silently.
func (c *Coordinator) Relay(conn *Conn, kind SignalKind, target ConnID, payload json.RawMessage) error {
	if !kind.Valid() || kind == SignalInput {
		return badRequest("unknown signal kind")
	}
	if target == "" {
		return badRequest("target is required")
	}
	c.relay.Forward(kind, conn.ID, target, payload)
	return nil
}

// AdminAction runs a moderation action on behalf of executor.
func (c *Coordinator) AdminAction(executor *Conn, action AdminActionKind, target ConnID) error {
	switch action {
	case AdminKick:
		return c.Kick(executor, target)
	case AdminBan:
		return c.BanConn(executor, target)
	case AdminMute:
		return c.Mute(executor, target, true)
	case AdminUnmute:
		return c.Mute(executor, target, false)
	case AdminPromote:
		return c.Promote(executor, target)
	default:
		return badRequest("unknown admin action")
	}
}

// caller holds registry lock
func (c *Coordinator) authorizeLocked(executor *Conn) error {
	if !c.registry.live(executor) || executor.session == nil || executor.session.Role != RoleAdmin {
		return ErrForbidden
	}
	return nil
}

// caller holds registry lock
func (c *Coordinator) targetLocked(executor *Conn, id ConnID) (*Conn, error) {
	if err := c.authorizeLocked(executor); err != nil {
		return nil, err
	}
	if id == "" {
		return nil, ErrNotFound
	}
	if id == executor.ID {
		return nil, ErrSelfTarget
	}
	target := c.registry.get(id)
	if target == nil {
		return nil, ErrNotFound
	}
	return target, nil
}

// Kick notifies the target, closes it and runs the disconnect cascade.
func (c *Coordinator) Kick(executor *Conn, target ConnID) error {
	c.registry.mu.Lock()
	defer c.registry.mu.Unlock()

	conn, err := c.targetLocked(executor, target)
	if err != nil {
		return err
	}
	c.ejectLocked(conn, EventKicked, kickReason, CloseKicked)
	c.metrics.Moderation(string(AdminKick))
	c.log.Info().Str("admin", string(executor.ID)).Str("target", string(target)).Msg("kicked")
	return nil
}

// ejectLocked tells conn why it is going, closes it and then deregisters it.
func (c *Coordinator) ejectLocked(conn *Conn, kind EventKind, reason, closeReason string) {
	conn.send(&Event{Kind: kind, Reason: reason})
	conn.terminate(closeReason)
	c.disconnectLocked(conn, closeReason)
}

// BanConn bans the target's display name and ejects every connection using it.
func (c *Coordinator) BanConn(executor *Conn, target ConnID) error {
	c.registry.mu.Lock()
	defer c.registry.mu.Unlock()

	conn, err := c.targetLocked(executor, target)
	if err != nil {
		return err
	}
	if conn.session == nil {
		c.ejectLocked(conn, EventBanned, banReason, CloseBanned)
	} else {
		name := conn.session.DisplayName
		c.mod.Ban(name)
		c.evictLocked(name)
	}
	c.metrics.Moderation(string(AdminBan))
	c.log.Info().Str("admin", string(executor.ID)).Str("target", string(target)).Msg("banned")
	return nil
}

// evictLocked ejects every connection whose session carries a banned name.
func (c *Coordinator) evictLocked(name string) int {
	key := banKey(name)
	var victims []*Conn
	c.registry.each(func(conn *Conn) {
		if conn.session != nil && banKey(conn.session.DisplayName) == key {
			victims = append(victims, conn)
		}
	})
	for _, conn := range victims {
		c.ejectLocked(conn, EventBanned, banReason, CloseBanned)
	}
	return len(victims)
}

// Mute asks the target client to mute or unmute its microphone.
func (c *Coordinator) Mute(executor *Conn, target ConnID, muted bool) error {
	c.registry.mu.RLock()
	defer c.registry.mu.RUnlock()

	conn, err := c.targetLocked(executor, target)
	if err != nil {
		return err
	}
	conn.send(&Event{Kind: EventForceMute, Flag: muted})

	action := AdminUnmute
	if muted {
		action = AdminMute
	}
	c.metrics.Moderation(string(action))
	return nil
}

// Promote grants the admin role to the target session.
func (c *Coordinator) Promote(executor *Conn, target ConnID) error {
	c.registry.mu.Lock()
	defer c.registry.mu.Unlock()

	conn, err := c.targetLocked(executor, target)
	if err != nil {
		return err
	}
	if conn.session == nil {
		return ErrNotLoggedIn
	}
	conn.session.promote(RoleAdmin)
	conn.send(&Event{Kind: EventRoleUpdate, Role: conn.session.Role})
	c.sendRoomsLocked(conn)
	if conn.room != nil {
		c.refreshRoomLocked(conn.room)
		c.broadcastPublicStateLocked()
	}
	c.metrics.Moderation(string(AdminPromote))
	c.log.Info().Str("admin", string(executor.ID)).Str("target", string(target)).Msg("promoted")
	return nil
}

// BanList sends the ban list to an admin.
func (c *Coordinator) BanList(executor *Conn) error {
	c.registry.mu.RLock()
	defer c.registry.mu.RUnlock()

	if err := c.authorizeLocked(executor); err != nil {
		return err
	}
	executor.send(&Event{Kind: EventBanList, Names: c.mod.List()})
	return nil
}

// Unban lifts a ban and sends the updated list back to the admin.
func (c *Coordinator) Unban(executor *Conn, name string) error {
	c.registry.mu.RLock()
	defer c.registry.mu.RUnlock()

	if err := c.authorizeLocked(executor); err != nil {
		return err
	}
	if strings.TrimSpace(name) == "" {
		return badRequest("name is required")
	}
	if c.mod.Unban(name) {
		c.metrics.Moderation("unban")
		c.log.Info().Str("admin", string(executor.ID)).Str("name", name).Msg("unbanned")
	}
	executor.send(&Event{Kind: EventBanList, Names: c.mod.List()})
	return nil
}

// Bans returns the current ban list. Callers authorize on their own.
func (c *Coordinator) Bans() []string {
	return c.mod.List()
}

// BanDisplayName bans a name outside of any client connection and ejects the
// sessions using it. Returns the number of connections ejected.
func (c *Coordinator) BanDisplayName(name string) (int, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return 0, badRequest("name is required")
	}

	c.registry.mu.Lock()
	defer c.registry.mu.Unlock()

	c.mod.Ban(name)
	c.metrics.Moderation(string(AdminBan))
	return c.evictLocked(name), nil
}

// UnbanDisplayName lifts a ban outside of any client connection.
func (c *Coordinator) UnbanDisplayName(name string) bool {
	ok := c.mod.Unban(name)
	if ok {
		c.metrics.Moderation("unban")
	}
	return ok
}

// RegisterRemoteID assigns a remote-control identifier to conn, honoring the
// claimed one when it is free.
func (c *Coordinator) RegisterRemoteID(conn *Conn, claimed string) (string, error) {
	claimed = strings.TrimSpace(claimed)

	c.registry.mu.Lock()
	defer c.registry.mu.Unlock()

	if !c.registry.live(conn) {
		return "", ErrNotFound
	}
	assigned := c.remote.claim(conn.ID, claimed)
	conn.remoteID = assigned
	conn.send(&Event{Kind: EventRemoteID, Remote: &RemoteEvent{RemoteID: assigned}})

	if claimed != "" && claimed != assigned {
		c.log.Debug().Str("conn_id", string(conn.ID)).Str("claimed", claimed).Str("assigned", assigned).Msg("remote id reassigned")
	}
	return assigned, nil
}

// RequestControl asks the holder of remoteID to accept control by conn.
func (c *Coordinator) RequestControl(conn *Conn, remoteID string) error {
	remoteID = strings.TrimSpace(remoteID)
	if remoteID == "" {
		return badRequest("remote id is required")
	}

	c.registry.mu.RLock()
	defer c.registry.mu.RUnlock()

	if !c.registry.live(conn) {
		return ErrNotFound
	}
	targetID, ok := c.remote.resolve(remoteID)
	if ok && targetID == conn.ID {
		return ErrSelfTarget
	}
	target := c.registry.get(targetID)
	if !ok || target == nil {
		return ErrNotFound
	}

	c.remote.request(conn.ID, targetID, c.now())

	name := ""
	if conn.session != nil {
		name = conn.session.DisplayName
	}
	target.send(&Event{Kind: EventRemoteControlRequest, Remote: &RemoteEvent{
		RequesterID:       conn.ID,
		RequesterName:     name,
		RequesterRemoteID: conn.remoteID,
	}})
	return nil
}

// RespondControl answers a pending request from requester.
func (c *Coordinator) RespondControl(conn *Conn, requester ConnID, accepted bool) error {
	c.registry.mu.RLock()
	defer c.registry.mu.RUnlock()

	if !c.registry.live(conn) {
		return ErrNotFound
	}
	if !c.remote.takeRequest(requester, conn.ID) {
		return ErrNotFound
	}
	req := c.registry.get(requester)
	if req == nil {
		return ErrNotFound
	}

	if !accepted {
		req.send(&Event{Kind: EventRemoteControlRejected, Reason: ReasonRejected, Remote: &RemoteEvent{
			TargetID:       conn.ID,
			TargetRemoteID: conn.remoteID,
		}})
		return nil
	}

	s := c.remote.start(requester, conn.ID, c.now())
	req.send(&Event{Kind: EventRemoteControlAccepted, Remote: &RemoteEvent{
		SessionID:      s.ID,
		TargetID:       conn.ID,
		TargetRemoteID: conn.remoteID,
	}})
	conn.send(&Event{Kind: EventRemoteSelfControlled, Remote: &RemoteEvent{
		SessionID:    s.ID,
		ControllerID: requester,
	}})
	c.metrics.SetControlSessions(c.remote.ActiveSessions())
	c.log.Info().Str("controller", string(requester)).Str("controlled", string(conn.ID)).Str("session", s.ID).Msg("remote control started")
	return nil
}

// ForwardInput relays an input event to target when conn controls it.
// Input outside an active session is dropped without telling the sender.
func (c *Coordinator) ForwardInput(conn *Conn, target ConnID, in InputEvent) error {
	if in.Type != InputMove && in.Type != InputClick {
		return badRequest("unknown input type")
	}
	if in.XPercent < 0 || in.XPercent > 1 || in.YPercent < 0 || in.YPercent > 1 {
		return badRequest("input coordinates out of range")
	}
	if !c.remote.authorize(conn.ID, target, c.now()) {
		c.metrics.RelayDropped(string(SignalInput))
		c.log.Debug().Str("from", string(conn.ID)).Str("to", string(target)).Msg("input outside control session, dropping")
		return nil
	}
	c.relay.ForwardInput(conn.ID, target, in)
	return nil
}

// Heartbeat keeps conn's control sessions from expiring.
func (c *Coordinator) Heartbeat(conn *Conn) int {
	return c.remote.heartbeat(conn.ID, c.now())
}

// ReleaseControl ends conn's control sessions, only those shared with peer when set.
func (c *Coordinator) ReleaseControl(conn *Conn, peer ConnID) int {
	sessions := c.remote.end(conn.ID, peer)

	c.registry.mu.RLock()
	defer c.registry.mu.RUnlock()
	c.notifySessionsEndedLocked(sessions, ReasonReleased)
	return len(sessions)
}

// Sweep expires stale control requests and idle control sessions.
// Returns how many requests and sessions were expired.
func (c *Coordinator) Sweep() (int, int) {
	requests, sessions := c.remote.expire(c.now())
	if len(requests) == 0 && len(sessions) == 0 {
		return 0, 0
	}

	c.registry.mu.RLock()
	defer c.registry.mu.RUnlock()

	for _, req := range requests {
		c.notifyRequestGoneLocked(req, ReasonTimeout)
	}
	c.notifySessionsEndedLocked(sessions, ReasonExpired)

	c.log.Debug().Int("requests", len(requests)).Int("sessions", len(sessions)).Msg("remote control sweep")
	return len(requests), len(sessions)
}

// caller holds registry lock
func (c *Coordinator) notifyRequestsGoneLocked(requests []*ControlRequest, reason string) {
	for _, req := range requests {
		c.notifyRequestGoneLocked(req, reason)
	}
}

// notifyRequestGoneLocked tells whichever side of a dropped request is still
// connected. Caller holds the registry lock.
func (c *Coordinator) notifyRequestGoneLocked(req *ControlRequest, reason string) {
	target := c.registry.get(req.Target)
	if requester := c.registry.get(req.Requester); requester != nil {
		ev := &RemoteEvent{TargetID: req.Target}
		if target != nil {
			ev.TargetRemoteID = target.remoteID
		}
		requester.send(&Event{Kind: EventRemoteControlRejected, Reason: reason, Remote: ev})
	}
	if target != nil {
		target.send(&Event{Kind: EventRemoteRequestCancelled, Reason: reason, Remote: &RemoteEvent{RequesterID: req.Requester}})
	}
}

// caller holds registry lock
func (c *Coordinator) notifySessionsEndedLocked(sessions []*ControlSession, reason string) {
	if len(sessions) == 0 {
		return
	}
	for _, s := range sessions {
		ev := &Event{Kind: EventRemoteControlEnded, Reason: reason, Remote: &RemoteEvent{
			SessionID:    s.ID,
			ControllerID: s.Controller,
			TargetID:     s.Controlled,
		}}
		for _, id := range []ConnID{s.Controller, s.Controlled} {
			if conn := c.registry.get(id); conn != nil {
				conn.send(ev)
			}
		}
	}
	c.metrics.SetControlSessions(c.remote.ActiveSessions())
}
