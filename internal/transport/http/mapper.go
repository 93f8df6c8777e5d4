package http

import (
	"time"

	"github.com/vovakirdan/lostfound/internal/core"
	"github.com/vovakirdan/lostfound/internal/identity"
	"github.com/vovakirdan/lostfound/internal/inbox"
	"github.com/vovakirdan/lostfound/internal/proto"
	"github.com/vovakirdan/lostfound/internal/store"
)

func messageDataFromStore(m *store.Message) proto.MessageData {
	return proto.MessageData{
		ID:          m.ID,
		ItemID:      m.ItemID,
		ItemTitle:   m.ItemTitle,
		SenderID:    m.SenderID,
		RecipientID: m.RecipientID,
		Body:        m.Body,
		CreatedAt:   m.CreatedAt,
		ReadAt:      m.ReadAt,
	}
}

func messageDataFromCore(m core.Message) proto.MessageData {
	return proto.MessageData{
		ID:          m.ID,
		ItemID:      m.ItemID,
		ItemTitle:   m.ItemTitle,
		SenderID:    m.SenderID,
		RecipientID: m.RecipientID,
		Body:        m.Body,
		CreatedAt:   m.CreatedAt,
		ReadAt:      m.ReadAt,
	}
}

func messageDataFromInbox(m inbox.Message) proto.MessageData {
	return proto.MessageData{
		ID:          m.ID,
		ItemID:      m.ItemRef,
		ItemTitle:   m.ItemTitle,
		SenderID:    m.SenderID,
		RecipientID: m.RecipientID,
		Body:        m.Body,
		CreatedAt:   m.CreatedAt,
		ReadAt:      m.ReadAt,
	}
}

func toConversationResponse(conv *inbox.Conversation) ConversationResponse {
	msgs := make([]proto.MessageData, 0, len(conv.Messages))
	for _, m := range conv.Messages {
		msgs = append(msgs, messageDataFromInbox(m))
	}
	return ConversationResponse{
		Key:              conv.Key,
		CounterpartID:    conv.CounterpartID,
		CounterpartLabel: conv.CounterpartLabel,
		ItemID:           conv.ItemRef,
		Messages:         msgs,
	}
}

func toUserResponse(u *store.User) UserResponse {
	label := identity.Label(u)
	if label == "" {
		label = inbox.UnknownLabel
	}
	return UserResponse{
		ID:       u.ID,
		Email:    u.Email,
		FullName: u.FullName,
		Label:    label,
	}
}

func toItemResponse(item *store.Item) ItemResponse {
	return ItemResponse{
		ID:          item.ID,
		OwnerID:     item.OwnerID,
		Kind:        string(item.Kind),
		Title:       item.Title,
		Description: item.Description,
		Location:    item.Location,
		CreatedAt:   item.CreatedAt.Format(time.RFC3339),
	}
}

func outboundFromEvent(event *core.Event) proto.Outbound {
	switch event.Kind {
	case core.EventMessage:
		return proto.Outbound{
			Type:  proto.OutboundTypeEvent,
			Event: proto.EventMessage,
			Data:  messageDataFromCore(event.Message),
		}
	case core.EventError:
		if event.Error == nil {
			return protoError("unknown", "unknown error")
		}
		return protoError(event.Error.Code, event.Error.Message)
	default:
		return proto.Outbound{Type: proto.OutboundTypeEvent}
	}
}

func protoError(code, msg string) proto.Outbound {
	return proto.Outbound{Type: proto.OutboundTypeError, Error: &proto.Error{Code: code, Msg: msg}}
}
