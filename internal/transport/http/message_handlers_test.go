package http

import (
	"net/http"
	"strings"
	"testing"

	"github.com/vovakirdan/lostfound/internal/config"
	"github.com/vovakirdan/lostfound/internal/core"
	"github.com/vovakirdan/lostfound/internal/proto"
)

func TestSendMessageValidation(t *testing.T) {
	srv := startTestServer(t, func(cfg *config.Config) { cfg.MaxMessageBytes = 16 })
	alice := srv.register(t, "alice@campus.edu", "Alice")
	bob := srv.register(t, "bob@campus.edu", "")
	item := srv.createItem(t, alice.User.ID, "Blue bike helmet")

	cases := []struct {
		name   string
		req    SendMessageRequest
		status int
		code   string
	}{
		{"missing item", SendMessageRequest{RecipientID: alice.User.ID, Body: "hi"}, http.StatusBadRequest, core.ErrCodeBadRequest},
		{"empty body", SendMessageRequest{ItemID: item.ID, RecipientID: alice.User.ID, Body: "  "}, http.StatusBadRequest, core.ErrCodeEmptyBody},
		{"self", SendMessageRequest{ItemID: item.ID, RecipientID: bob.User.ID, Body: "hi"}, http.StatusBadRequest, core.ErrCodeSelfMessage},
		{"too long", SendMessageRequest{ItemID: item.ID, RecipientID: alice.User.ID, Body: strings.Repeat("x", 17)}, http.StatusBadRequest, core.ErrCodeBodyTooLong},
		{"unknown recipient", SendMessageRequest{ItemID: item.ID, RecipientID: "ghost", Body: "hi"}, http.StatusNotFound, core.ErrCodeUnknownRecipient},
		{"unknown item", SendMessageRequest{ItemID: "nope", RecipientID: alice.User.ID, Body: "hi"}, http.StatusNotFound, core.ErrCodeItemNotFound},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			var errResp ErrorResponse
			status := srv.do(t, http.MethodPost, "/api/messages", bob.Token, tc.req, &errResp)
			if status != tc.status || errResp.Code != tc.code {
				t.Fatalf("expected %d/%s, got %d/%s (%s)", tc.status, tc.code, status, errResp.Code, errResp.Error)
			}
		})
	}
}

func TestSendListAndConversations(t *testing.T) {
	srv := startTestServer(t, nil)
	alice := srv.register(t, "alice@campus.edu", "Alice")
	bob := srv.register(t, "bob@campus.edu", "")
	item := srv.createItem(t, alice.User.ID, "Blue bike helmet")

	var sent proto.MessageData
	status := srv.do(t, http.MethodPost, "/api/messages", bob.Token, SendMessageRequest{
		ItemID: item.ID, RecipientID: alice.User.ID, Body: " I found it ",
	}, &sent)
	if status != http.StatusCreated {
		t.Fatalf("expected status 201, got %d", status)
	}
	if sent.ID == "" || sent.Body != "I found it" || sent.ItemTitle != "Blue bike helmet" {
		t.Fatalf("unexpected stored message: %+v", sent)
	}

	var reply proto.MessageData
	srv.do(t, http.MethodPost, "/api/messages", alice.Token, SendMessageRequest{
		ItemID: item.ID, RecipientID: bob.User.ID, Body: "thanks!",
	}, &reply)

	var list []proto.MessageData
	if status := srv.do(t, http.MethodGet, "/api/messages", alice.Token, nil, &list); status != http.StatusOK {
		t.Fatalf("expected status 200, got %d", status)
	}
	if len(list) != 2 || list[0].ID != reply.ID || list[1].ID != sent.ID {
		t.Fatalf("expected newest first, got %+v", list)
	}

	var convs []ConversationResponse
	srv.do(t, http.MethodGet, "/api/conversations", alice.Token, nil, &convs)
	if len(convs) != 1 {
		t.Fatalf("expected 1 conversation, got %d", len(convs))
	}
	conv := convs[0]
	if conv.CounterpartID != bob.User.ID || conv.CounterpartLabel != "bob@campus.edu" || conv.ItemID != item.ID {
		t.Fatalf("unexpected conversation: %+v", conv)
	}
	if len(conv.Messages) != 2 || conv.Messages[0].ID != sent.ID {
		t.Fatalf("expected oldest first inside thread, got %+v", conv.Messages)
	}

	var marked MarkReadResponse
	srv.do(t, http.MethodPost, "/api/conversations/"+bob.User.ID+"/read", alice.Token, nil, &marked)
	if marked.Updated != 1 {
		t.Fatalf("expected 1 message marked read, got %d", marked.Updated)
	}
}
