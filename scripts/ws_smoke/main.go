package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"

	"github.com/vovakirdan/voxroom-server/internal/proto"
)

func main() {
	if err := run(); err != nil {
		log.Printf("ws_smoke: %v", err)
		os.Exit(1)
	}
}

func run() error {
	addr := flag.String("addr", "ws://localhost:3000/ws", "WebSocket address")
	user := flag.String("user", "tester", "display name to log in with")
	room := flag.String("room", "Genel Sohbet", "room name")
	password := flag.String("password", "", "room password")
	text := flag.String("text", "hello from smoke test", "chat text to send")
	timeout := flag.Duration("timeout", 5*time.Second, "total timeout for the run")
	flag.Parse()

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	conn, _, err := websocket.Dial(ctx, *addr, nil)
	if err != nil {
		return fmt.Errorf("dial: %w", err)
	}
	defer conn.Close(websocket.StatusNormalClosure, "bye")

	send := func(msgType string, data any) error {
		payload, marshalErr := json.Marshal(data)
		if marshalErr != nil {
			return fmt.Errorf("marshal %s: %w", msgType, marshalErr)
		}
		if writeErr := wsjson.Write(ctx, conn, proto.Inbound{Type: msgType, Data: payload}); writeErr != nil {
			return fmt.Errorf("send %s: %w", msgType, writeErr)
		}
		return nil
	}

	if err := send(proto.InboundTypeLogin, proto.LoginData{DisplayName: *user, Protocol: proto.ProtocolVersion}); err != nil {
		return err
	}
	if err := send(proto.InboundTypeJoinRoom, proto.JoinRoomData{RoomName: *room, Password: *password}); err != nil {
		return err
	}

	for {
		var outbound proto.Outbound
		if err := wsjson.Read(ctx, conn, &outbound); err != nil {
			return fmt.Errorf("read: %w", err)
		}

		if outbound.Type == proto.OutboundTypeError && outbound.Error != nil {
			return fmt.Errorf("server error %s: %s", outbound.Error.Code, outbound.Error.Msg)
		}
		fmt.Printf("Received outbound: type=%s event=%s\n", outbound.Type, outbound.Event)

		raw, err := json.Marshal(outbound.Data)
		if err != nil {
			return fmt.Errorf("marshal outbound data: %w", err)
		}

		switch outbound.Event {
		case proto.EventPasswordRequired:
			return fmt.Errorf("room %q requires a password", *room)
		case proto.EventJoinedSuccess:
			var evt proto.EventRole
			if err := json.Unmarshal(raw, &evt); err == nil {
				fmt.Printf("Joined: room=%s role=%s\n", evt.RoomName, evt.Role)
			}
			if err := send(proto.InboundTypeSendChat, proto.ChatData{Text: *text}); err != nil {
				return err
			}
		case proto.EventChatMessage:
			var evt proto.EventChat
			if err := json.Unmarshal(raw, &evt); err != nil {
				return fmt.Errorf("unmarshal chat: %w", err)
			}
			fmt.Printf("Chat: room=%s user=%s type=%s text=%q\n", evt.RoomName, evt.Username, evt.Type, evt.Text)
			if evt.Type == "user" && evt.Username == *user {
				return nil
			}
		}
	}
}
