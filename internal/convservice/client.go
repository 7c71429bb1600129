// Package convservice is the HTTP client for the conversation service,
// which owns contacts, conversations, message history and the per
// conversation context document.
package convservice

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/sofialabs/legalaid-ai-platform/pkg/logging"
)

// Client talks to the conversation service. Use WithRequestID to propagate
// the correlation id of an inbound message into downstream calls.
type Client struct {
	httpClient *http.Client
	baseURL    string
	requestID  string
	logger     *logging.Logger
}

// Options configures a Client. BaseURL is required.
type Options struct {
	BaseURL string
	Timeout time.Duration
	Logger  *logging.Logger
}

// NewClient creates a conversation-service client.
func NewClient(opts Options) *Client {
	if opts.Timeout <= 0 {
		opts.Timeout = 10 * time.Second
	}
	if opts.Logger == nil {
		opts.Logger = logging.Default()
	}
	return &Client{
		httpClient: &http.Client{Timeout: opts.Timeout},
		baseURL:    strings.TrimRight(opts.BaseURL, "/"),
		logger:     opts.Logger,
	}
}

// WithRequestID returns a copy of the client that sends the given id as
// X-Request-Id on every call.
func (c *Client) WithRequestID(requestID string) *Client {
	copied := *c
	copied.requestID = requestID
	return &copied
}

// Contact is a messaging identity (phone number, telegram id, web session).
type Contact struct {
	ID          string `json:"id"`
	TenantID    string `json:"tenantId"`
	Channel     string `json:"channel"`
	ExternalID  string `json:"externalId"`
	DisplayName string `json:"displayName,omitempty"`
}

// Conversation groups the messages exchanged with one contact.
type Conversation struct {
	ID        string `json:"id"`
	TenantID  string `json:"tenantId"`
	ContactID string `json:"contactId"`
	Channel   string `json:"channel"`
	Status    string `json:"status,omitempty"`
}

// Message is one stored inbound or outbound message.
type Message struct {
	ID                string `json:"id"`
	ConversationID    string `json:"conversationId"`
	Direction         string `json:"direction"`
	Type              string `json:"type"`
	Text              string `json:"text,omitempty"`
	ProviderMessageID string `json:"providerMessageId,omitempty"`
}

// CreateMessageInput is the payload for storing a message.
type CreateMessageInput struct {
	ConversationID    string         `json:"conversationId"`
	ContactID         string         `json:"contactId"`
	Direction         string         `json:"direction"`
	Type              string         `json:"type"`
	Text              string         `json:"text,omitempty"`
	Payload           map[string]any `json:"payload,omitempty"`
	ProviderMessageID string         `json:"providerMessageId,omitempty"`
}

// Notification is an internal alert for clinic staff.
type Notification struct {
	Tipo         string `json:"tipo"`
	Titulo       string `json:"titulo"`
	Mensaje      string `json:"mensaje"`
	Prioridad    string `json:"prioridad,omitempty"`
	EstudianteID string `json:"estudianteId,omitempty"`
}

type apiEnvelope struct {
	Data  json.RawMessage `json:"data"`
	Error *struct {
		Message string          `json:"message"`
		Details json.RawMessage `json:"details"`
	} `json:"error"`
}

// UpsertContact creates or refreshes the contact for an external identity.
func (c *Client) UpsertContact(ctx context.Context, tenantID, channel, externalID, displayName string) (*Contact, error) {
	body := map[string]any{
		"tenantId":   tenantID,
		"channel":    channel,
		"externalId": externalID,
	}
	if displayName != "" {
		body["displayName"] = displayName
	}

	var contact Contact
	if err := c.post(ctx, tenantID, "/v1/contacts/upsert", body, &contact); err != nil {
		return nil, fmt.Errorf("convservice: contact upsert failed: %w", err)
	}
	return &contact, nil
}

// GetOrCreateConversation resolves the open conversation for a contact.
func (c *Client) GetOrCreateConversation(ctx context.Context, tenantID, contactID, channel string) (*Conversation, error) {
	body := map[string]any{
		"tenantId":  tenantID,
		"contactId": contactID,
		"channel":   channel,
	}

	var conv Conversation
	if err := c.post(ctx, tenantID, "/v1/conversations/get-or-create", body, &conv); err != nil {
		return nil, fmt.Errorf("convservice: conversation resolve failed: %w", err)
	}
	return &conv, nil
}

// CreateMessage stores one inbound or outbound message.
func (c *Client) CreateMessage(ctx context.Context, tenantID string, input CreateMessageInput) (*Message, error) {
	body := map[string]any{
		"tenantId":       tenantID,
		"conversationId": input.ConversationID,
		"contactId":      input.ContactID,
		"direction":      input.Direction,
		"type":           input.Type,
		"text":           input.Text,
	}
	if input.Payload != nil {
		body["payload"] = input.Payload
	}
	if input.ProviderMessageID != "" {
		body["providerMessageId"] = input.ProviderMessageID
	}

	var message Message
	if err := c.post(ctx, tenantID, "/v1/messages", body, &message); err != nil {
		return nil, fmt.Errorf("convservice: message create failed: %w", err)
	}
	return &message, nil
}

// LatestContext returns the most recent context document for a conversation,
// or nil when none exists yet.
func (c *Client) LatestContext(ctx context.Context, tenantID, conversationID string) (json.RawMessage, error) {
	path := fmt.Sprintf("/v1/conversations/%s/context/latest?tenantId=%s",
		url.PathEscape(conversationID), url.QueryEscape(tenantID))

	data, err := c.request(ctx, tenantID, http.MethodGet, path, nil)
	if err != nil {
		return nil, fmt.Errorf("convservice: context fetch failed: %w", err)
	}
	if len(data) == 0 || string(data) == "null" {
		return nil, nil
	}
	return data, nil
}

// PatchContext appends a patch to the conversation context.
func (c *Client) PatchContext(ctx context.Context, tenantID, conversationID string, patch any) error {
	path := fmt.Sprintf("/v1/conversations/%s/context", url.PathEscape(conversationID))
	body := map[string]any{
		"tenantId": tenantID,
		"patch":    patch,
	}
	if _, err := c.request(ctx, tenantID, http.MethodPost, path, body); err != nil {
		return fmt.Errorf("convservice: context patch failed: %w", err)
	}
	return nil
}

// CreateNotification raises an internal notification. Best effort for the
// orchestrator, so callers typically only log a failure.
func (c *Client) CreateNotification(ctx context.Context, tenantID string, notification Notification) error {
	body := map[string]any{
		"tenantId": tenantID,
		"tipo":     notification.Tipo,
		"titulo":   notification.Titulo,
		"mensaje":  notification.Mensaje,
	}
	if notification.Prioridad != "" {
		body["prioridad"] = notification.Prioridad
	}
	if notification.EstudianteID != "" {
		body["estudianteId"] = notification.EstudianteID
	}
	if _, err := c.request(ctx, tenantID, http.MethodPost, "/v1/notifications", body); err != nil {
		return fmt.Errorf("convservice: notification create failed: %w", err)
	}
	return nil
}

func (c *Client) post(ctx context.Context, tenantID, path string, body any, out any) error {
	data, err := c.request(ctx, tenantID, http.MethodPost, path, body)
	if err != nil {
		return err
	}
	if len(data) == 0 || string(data) == "null" {
		return fmt.Errorf("convservice: empty data from %s", path)
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("convservice: failed to decode response from %s: %w", path, err)
	}
	return nil
}

func (c *Client) request(ctx context.Context, tenantID, method, path string, body any) (json.RawMessage, error) {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal request: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Tenant-Id", tenantID)
	if c.requestID != "" {
		req.Header.Set("X-Request-Id", c.requestID)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	var env apiEnvelope
	if len(data) > 0 {
		if err := json.Unmarshal(data, &env); err != nil {
			if resp.StatusCode >= 300 {
				return nil, fmt.Errorf("conversation service returned status %d", resp.StatusCode)
			}
			return nil, fmt.Errorf("failed to decode envelope: %w", err)
		}
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		if env.Error != nil && env.Error.Message != "" {
			return nil, fmt.Errorf("conversation service error (%d): %s", resp.StatusCode, env.Error.Message)
		}
		return nil, fmt.Errorf("conversation service returned status %d", resp.StatusCode)
	}
	if env.Error != nil && env.Error.Message != "" {
		return nil, fmt.Errorf("conversation service error: %s", env.Error.Message)
	}
	return env.Data, nil
}
