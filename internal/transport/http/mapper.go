package http

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/yousefmohseen/chatroom/internal/core"
	"github.com/yousefmohseen/chatroom/internal/proto"
)

func inboundToCommand(client *core.Client, inbound proto.Inbound) (*core.Command, *proto.Error, error) {
	switch inbound.Event {
	case proto.EventJoin, proto.EventLeave, proto.EventDeleteAccount:
		var name string
		if err := json.Unmarshal(inbound.Data, &name); err != nil {
			return nil, &proto.Error{Code: core.ErrCodeBadRequest, Msg: "identity must be a string"}, nil
		}
		kind := core.CommandJoin
		switch inbound.Event {
		case proto.EventLeave:
			kind = core.CommandLeave
		case proto.EventDeleteAccount:
			kind = core.CommandDeleteAccount
		}
		return &core.Command{
			Kind:      kind,
			RequestID: inbound.ID,
			Name:      name,
		}, nil, nil
	case proto.EventMessage:
		var msg proto.MessageData
		if err := json.Unmarshal(inbound.Data, &msg); err != nil {
			return nil, &proto.Error{Code: core.ErrCodeBadRequest, Msg: "malformed message"}, nil
		}
		if strings.TrimSpace(msg.Text) == "" {
			return nil, nil, nil
		}
		return &core.Command{
			Kind:      core.CommandSendMessage,
			RequestID: inbound.ID,
			Message: core.Message{
				// ID and timestamp are set by the hub.
				From: msg.Username,
				Text: msg.Text,
			},
		}, nil, nil
	default:
		return nil, &proto.Error{Code: "invalid_message", Msg: "unknown event " + inbound.Event}, nil
	}
}

func outboundFromEvent(event *core.Event) (proto.Outbound, error) {
	switch event.Kind {
	case core.EventAck:
		ack := proto.Ack{}
		if event.Ack != nil {
			ack = proto.Ack{OK: event.Ack.OK, Err: event.Ack.Err, RemovedCount: event.Ack.RemovedCount}
		}
		return outbound(proto.OutboundTypeAck, "", event.RequestID, ack)
	case core.EventInit:
		return outbound(proto.OutboundTypeEvent, proto.EventInit, 0, proto.InitData{
			Messages: toProtoMessages(event.Messages),
			Online:   nonNil(event.Online),
		})
	case core.EventMessage:
		return outbound(proto.OutboundTypeEvent, proto.EventMessage, 0, toProtoMessage(event.Message))
	case core.EventOnline:
		return outbound(proto.OutboundTypeEvent, proto.EventOnline, 0, nonNil(event.Online))
	case core.EventMessages:
		return outbound(proto.OutboundTypeEvent, proto.EventMessages, 0, toProtoMessages(event.Messages))
	case core.EventError:
		protoErr := &proto.Error{Code: core.ErrCodeBadRequest, Msg: "error"}
		if event.Error != nil {
			protoErr = &proto.Error{Code: event.Error.Code, Msg: event.Error.Message}
		}
		return proto.Outbound{Type: proto.OutboundTypeError, Error: protoErr}, nil
	default:
		return proto.Outbound{}, fmt.Errorf("unknown event kind %d", event.Kind)
	}
}

func outbound(typ, event string, id uint64, payload any) (proto.Outbound, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return proto.Outbound{}, fmt.Errorf("marshal %s: %w", event, err)
	}
	return proto.Outbound{Type: typ, Event: event, ID: id, Data: data}, nil
}

func toProtoMessage(msg core.Message) proto.Message {
	out := proto.Message{
		ID:       msg.ID,
		Username: msg.From,
		Text:     msg.Text,
		TS:       msg.CreatedAt.UnixMilli(),
		Kind:     proto.KindUser,
	}
	if msg.IsSystem() {
		out.Kind = proto.KindSystem
	}
	if msg.Notice != nil {
		out.Notice = &proto.Notice{User: msg.Notice.User, Action: msg.Notice.Action}
	}
	return out
}

// toProtoMessages never returns nil so an empty log is sent as [] rather than null.
func toProtoMessages(msgs []core.Message) []proto.Message {
	out := make([]proto.Message, 0, len(msgs))
	for _, m := range msgs {
		out = append(out, toProtoMessage(m))
	}
	return out
}

func nonNil(list []string) []string {
	if list == nil {
		return []string{}
	}
	return list
}
