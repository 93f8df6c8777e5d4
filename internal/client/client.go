// Package client talks to the lost-and-found server over its REST API and
// WebSocket push channel. Client satisfies inbox.MessageSource and
// inbox.LabelResolver so an inbox.Session can run against a remote server.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/vovakirdan/lostfound/internal/inbox"
	"github.com/vovakirdan/lostfound/internal/proto"
)

const (
	defaultRequestTimeout    = 15 * time.Second
	defaultReconnectInterval = 5 * time.Second
)

// ErrNotLoggedIn is returned by calls that need a token before Login.
var ErrNotLoggedIn = errors.New("client is not logged in")

// APIError is a non-2xx answer from the server.
type APIError struct {
	Status  int
	Code    string
	Message string
}

func (e *APIError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("server returned %d (%s): %s", e.Status, e.Code, e.Message)
	}
	return fmt.Sprintf("server returned %d: %s", e.Status, e.Message)
}

// Account is the authenticated user.
type Account struct {
	ID       string `json:"id"`
	Email    string `json:"email"`
	FullName string `json:"full_name,omitempty"`
	Label    string `json:"label"`
}

// Options tunes a Client. Zero values fall back to defaults.
type Options struct {
	HTTPClient        *http.Client
	ReconnectInterval time.Duration
	Logger            zerolog.Logger
}

// Client is a REST and WebSocket client bound to one account.
type Client struct {
	baseURL   *url.URL
	http      *http.Client
	reconnect time.Duration
	log       zerolog.Logger

	mu      sync.RWMutex
	token   string
	account Account
}

// New creates a client for the server at baseURL, e.g. http://localhost:8080.
func New(baseURL string, opts Options) (*Client, error) {
	u, err := url.Parse(strings.TrimRight(baseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("parse server url: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("server url must be http or https, got %q", baseURL)
	}

	httpClient := opts.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: defaultRequestTimeout}
	}
	reconnect := opts.ReconnectInterval
	if reconnect <= 0 {
		reconnect = defaultReconnectInterval
	}

	return &Client{
		baseURL:   u,
		http:      httpClient,
		reconnect: reconnect,
		log:       opts.Logger,
	}, nil
}

// Login authenticates with email and password and keeps the token.
func (c *Client) Login(ctx context.Context, email, password string) (Account, error) {
	return c.authenticate(ctx, "/api/login", map[string]string{"email": email, "password": password})
}

// Register creates an account and keeps the token.
func (c *Client) Register(ctx context.Context, email, password, fullName string) (Account, error) {
	return c.authenticate(ctx, "/api/register", map[string]string{
		"email": email, "password": password, "full_name": fullName,
	})
}

// Account returns the logged in account.
func (c *Client) Account() (Account, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.account, c.token != ""
}

func (c *Client) authenticate(ctx context.Context, path string, body any) (Account, error) {
	var resp struct {
		Token string  `json:"token"`
		User  Account `json:"user"`
	}
	if err := c.do(ctx, http.MethodPost, path, false, body, &resp); err != nil {
		return Account{}, err
	}
	if resp.Token == "" || resp.User.ID == "" {
		return Account{}, errors.New("server returned no session")
	}

	c.mu.Lock()
	c.token = resp.Token
	c.account = resp.User
	c.mu.Unlock()

	c.log.Debug().Str("user_id", resp.User.ID).Msg("logged in")
	return resp.User, nil
}

// FetchMessagesForParticipant returns every message of the logged in user.
func (c *Client) FetchMessagesForParticipant(ctx context.Context, userID string) ([]inbox.Message, error) {
	if err := c.checkUser(userID); err != nil {
		return nil, err
	}

	var data []proto.MessageData
	if err := c.do(ctx, http.MethodGet, "/api/messages", true, nil, &data); err != nil {
		return nil, err
	}

	msgs := make([]inbox.Message, 0, len(data))
	for _, d := range data {
		msgs = append(msgs, toInbox(d))
	}
	return msgs, nil
}

// InsertMessage sends a message as the logged in user.
func (c *Client) InsertMessage(ctx context.Context, itemRef, senderID, recipientID, body string) (inbox.Message, error) {
	if err := c.checkUser(senderID); err != nil {
		return inbox.Message{}, err
	}

	req := map[string]string{"item_id": itemRef, "recipient_id": recipientID, "body": body}
	var data proto.MessageData
	if err := c.do(ctx, http.MethodPost, "/api/messages", true, req, &data); err != nil {
		return inbox.Message{}, err
	}
	return toInbox(data), nil
}

// ResolveLabels resolves display labels in one request. Unknown ids are absent.
func (c *Client) ResolveLabels(ctx context.Context, userIDs []string) (map[string]string, error) {
	if len(userIDs) == 0 {
		return map[string]string{}, nil
	}

	q := url.Values{}
	q.Set("ids", strings.Join(userIDs, ","))
	var resp struct {
		Labels map[string]string `json:"labels"`
	}
	if err := c.do(ctx, http.MethodGet, "/api/labels?"+q.Encode(), true, nil, &resp); err != nil {
		return nil, err
	}
	if resp.Labels == nil {
		resp.Labels = map[string]string{}
	}
	return resp.Labels, nil
}

func (c *Client) checkUser(userID string) error {
	account, ok := c.Account()
	if !ok {
		return ErrNotLoggedIn
	}
	if userID != account.ID {
		return fmt.Errorf("client is logged in as %s, not %s", account.ID, userID)
	}
	return nil
}

func (c *Client) currentToken() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.token
}

// do sends a JSON request and decodes a JSON answer into out.
func (c *Client) do(ctx context.Context, method, path string, authed bool, body any, out any) error {
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshal request: %w", err)
		}
		reader = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL.String()+path, reader)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")
	if authed {
		token := c.currentToken()
		if token == "" {
			return ErrNotLoggedIn
		}
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		var errResp struct {
			Error string `json:"error"`
			Code  string `json:"code"`
		}
		_ = json.NewDecoder(io.LimitReader(resp.Body, 64<<10)).Decode(&errResp)
		if errResp.Error == "" {
			errResp.Error = http.StatusText(resp.StatusCode)
		}
		return &APIError{Status: resp.StatusCode, Code: errResp.Code, Message: errResp.Error}
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode %s %s response: %w", method, path, err)
	}
	return nil
}

func toInbox(d proto.MessageData) inbox.Message {
	return inbox.Message{
		ID:          d.ID,
		ItemRef:     d.ItemID,
		ItemTitle:   d.ItemTitle,
		SenderID:    d.SenderID,
		RecipientID: d.RecipientID,
		Body:        d.Body,
		CreatedAt:   d.CreatedAt,
		ReadAt:      d.ReadAt,
	}
}

// Item is a lost or found listing.
type Item struct {
	ID          string `json:"id"`
	OwnerID     string `json:"owner_id"`
	Kind        string `json:"kind"`
	Title       string `json:"title"`
	Description string `json:"description,omitempty"`
	Location    string `json:"location,omitempty"`
	CreatedAt   string `json:"created_at"`
}

// CreateItem posts a listing; kind is "lost" or "found".
func (c *Client) CreateItem(ctx context.Context, kind, title, description, location string) (Item, error) {
	req := map[string]string{"kind": kind, "title": title, "description": description, "location": location}
	var item Item
	if err := c.do(ctx, http.MethodPost, "/api/items", true, req, &item); err != nil {
		return Item{}, err
	}
	return item, nil
}

// ListItems returns the newest listings, optionally only one kind.
func (c *Client) ListItems(ctx context.Context, kind string) ([]Item, error) {
	path := "/api/items"
	if kind != "" {
		path += "?kind=" + url.QueryEscape(kind)
	}
	var items []Item
	if err := c.do(ctx, http.MethodGet, path, true, nil, &items); err != nil {
		return nil, err
	}
	return items, nil
}
