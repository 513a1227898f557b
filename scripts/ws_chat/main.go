package main

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"

	"github.com/vovakirdan/voxroom-server/internal/proto"
)

func main() {
	if err := run(); err != nil {
		log.Printf("ws_chat: %v", err)
		os.Exit(1)
	}
}

func run() error {
	addr := flag.String("addr", "ws://localhost:3000/ws", "WebSocket address")
	user := flag.String("user", "cli-user", "display name")
	room := flag.String("room", "Genel Sohbet", "room to join")
	password := flag.String("password", "", "room password")
	adminKey := flag.String("admin-key", "", "admin key or token")
	flag.Parse()

	baseCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx, cancel := context.WithCancel(baseCtx)
	defer cancel()

	conn, _, err := websocket.Dial(ctx, *addr, nil)
	if err != nil {
		return fmt.Errorf("dial: %w", err)
	}
	defer conn.Close(websocket.StatusNormalClosure, "bye")

	if err := send(ctx, conn, proto.InboundTypeLogin, proto.LoginData{
		DisplayName: *user,
		AdminKey:    *adminKey,
		Protocol:    proto.ProtocolVersion,
	}); err != nil {
		return err
	}
	if err := send(ctx, conn, proto.InboundTypeJoinRoom, proto.JoinRoomData{RoomName: *room, Password: *password}); err != nil {
		return err
	}

	fmt.Printf("Connected to %s as %s in room %s\n", *addr, *user, *room)
	fmt.Println("Type messages and press Enter to send. /rooms lists rooms, /join <room> switches. Ctrl+C to exit.")

	go func() {
		defer cancel()
		readLoop(ctx, conn)
	}()

	writeLoop(ctx, conn)

	stop()
	cancel()
	_ = conn.Close(websocket.StatusNormalClosure, "bye")
	return nil
}

func send(ctx context.Context, conn *websocket.Conn, msgType string, data any) error {
	payload, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("marshal %s: %w", msgType, err)
	}
	if err := wsjson.Write(ctx, conn, proto.Inbound{Type: msgType, Data: payload}); err != nil {
		return fmt.Errorf("send %s: %w", msgType, err)
	}
	return nil
}

func decode(data any, v any) bool {
	raw, err := json.Marshal(data)
	if err != nil {
		return false
	}
	return json.Unmarshal(raw, v) == nil
}

func readLoop(ctx context.Context, conn *websocket.Conn) {
	for {
		var outbound proto.Outbound
		if err := wsjson.Read(ctx, conn, &outbound); err != nil {
			if errors.Is(err, context.Canceled) {
				return
			}
			switch websocket.CloseStatus(err) {
			case websocket.StatusNormalClosure, websocket.StatusGoingAway:
				return
			case websocket.StatusPolicyViolation:
				fmt.Println("removed from server by an admin")
				return
			}
			log.Printf("read error: %v", err)
			return
		}

		if outbound.Type == proto.OutboundTypeError && outbound.Error != nil {
			fmt.Printf("error %s: %s\n", outbound.Error.Code, outbound.Error.Msg)
			continue
		}

		switch outbound.Event {
		case proto.EventChatMessage:
			var evt proto.EventChat
			if decode(outbound.Data, &evt) {
				fmt.Printf("[%s] %s: %s\n", evt.RoomName, evt.Username, evt.Text)
			}
		case proto.EventJoinedSuccess:
			var evt proto.EventRole
			if decode(outbound.Data, &evt) {
				fmt.Printf("joined %s as %s\n", evt.RoomName, evt.Role)
			}
		case proto.EventPasswordRequired:
			fmt.Println("room is password protected, rerun with -password")
		case proto.EventRoomList:
			var rooms []proto.RoomState
			if decode(outbound.Data, &rooms) {
				for _, r := range rooms {
					fmt.Printf("  %s (%d)\n", r.Name, len(r.Occupants))
				}
			}
		case proto.EventKicked, proto.EventBanned:
			var evt proto.EventReason
			if decode(outbound.Data, &evt) {
				fmt.Printf("%s: %s\n", outbound.Event, evt.Reason)
			}
		case proto.EventUserList, proto.EventRoomConfig:
			// noisy presence updates
		default:
			fmt.Printf("event=%s data=%v\n", outbound.Event, outbound.Data)
		}
	}
}

func writeLoop(ctx context.Context, conn *websocket.Conn) {
	lines := make(chan string)
	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(os.Stdin)
		for scanner.Scan() {
			lines <- scanner.Text()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return
		case line, ok := <-lines:
			if !ok {
				return
			}
			text := strings.TrimSpace(line)
			if text == "" {
				continue
			}

			var err error
			switch {
			case text == "/rooms":
				err = send(ctx, conn, proto.InboundTypeGetRooms, struct{}{})
			case strings.HasPrefix(text, "/join "):
				err = send(ctx, conn, proto.InboundTypeJoinRoom, proto.JoinRoomData{RoomName: strings.TrimSpace(text[len("/join "):])})
			default:
				err = send(ctx, conn, proto.InboundTypeSendChat, proto.ChatData{Text: text})
			}
			if err != nil {
				log.Printf("send error: %v", err)
				return
			}
		}
	}
}
