// Package orchestrator receives inbound chat messages, persists them through
// the conversation service and runs the legal-aid dialogue flow to produce
// the reply.
package orchestrator

import (
	"encoding/json"
	"fmt"
	"strings"
)

// MessageIn is the inbound message envelope posted by channel gateways.
// The message field tolerates both a plain string and the structured shapes
// used by the WhatsApp and Telegram connectors.
type MessageIn struct {
	TenantID       string          `json:"tenantId"`
	Channel        string          `json:"channel"`
	ExternalUserID string          `json:"externalUserId"`
	DisplayName    string          `json:"displayName"`
	Text           string          `json:"text"`
	Message        *InboundMessage `json:"message"`
}

// InboundMessage is the channel-specific message body.
type InboundMessage struct {
	Type              string         `json:"type"`
	Text              *FlexibleText  `json:"text"`
	Message           string         `json:"message"`
	Body              string         `json:"body"`
	Payload           map[string]any `json:"payload"`
	ProviderMessageID string         `json:"providerMessageId"`
	Timestamp         string         `json:"timestamp"`

	// asString holds the raw value when the whole message field was a
	// plain string.
	asString string
}

// UnmarshalJSON accepts both "message": "hola" and a structured object.
func (m *InboundMessage) UnmarshalJSON(data []byte) error {
	var asString string
	if err := json.Unmarshal(data, &asString); err == nil {
		*m = InboundMessage{asString: asString}
		return nil
	}

	type plain InboundMessage
	var decoded plain
	if err := json.Unmarshal(data, &decoded); err != nil {
		return fmt.Errorf("orchestrator: invalid message field: %w", err)
	}
	*m = InboundMessage(decoded)
	return nil
}

// FlexibleText accepts both "text": "hola" and "text": {"body": "hola"}.
type FlexibleText struct {
	Value string
	Body  string
}

func (t *FlexibleText) UnmarshalJSON(data []byte) error {
	var asString string
	if err := json.Unmarshal(data, &asString); err == nil {
		*t = FlexibleText{Value: asString}
		return nil
	}

	var asObject struct {
		Body string `json:"body"`
	}
	if err := json.Unmarshal(data, &asObject); err != nil {
		return fmt.Errorf("orchestrator: invalid text field: %w", err)
	}
	*t = FlexibleText{Body: asObject.Body}
	return nil
}

// ExtractRawText resolves the user text from the envelope, trying each known
// location in precedence order.
func (in MessageIn) ExtractRawText() string {
	if text := strings.TrimSpace(in.Text); text != "" {
		return text
	}
	m := in.Message
	if m == nil {
		return ""
	}
	if text := strings.TrimSpace(m.asString); text != "" {
		return text
	}
	if text := strings.TrimSpace(m.Message); text != "" {
		return text
	}
	if m.Text != nil {
		if text := strings.TrimSpace(m.Text.Value); text != "" {
			return text
		}
	}
	if text := strings.TrimSpace(m.Body); text != "" {
		return text
	}
	if m.Text != nil {
		if text := strings.TrimSpace(m.Text.Body); text != "" {
			return text
		}
	}
	return ""
}

// Validate checks the envelope fields that have no usable default.
func (in MessageIn) Validate() error {
	switch strings.ToLower(strings.TrimSpace(in.Channel)) {
	case "whatsapp", "telegram", "webchat":
	default:
		return fmt.Errorf("orchestrator: unsupported channel %q", in.Channel)
	}
	if strings.TrimSpace(in.ExternalUserID) == "" {
		return fmt.Errorf("orchestrator: externalUserId is required")
	}
	return nil
}

// ResponseItem is one outbound reply.
type ResponseItem struct {
	Type    string         `json:"type"`
	Text    string         `json:"text"`
	Payload map[string]any `json:"payload,omitempty"`
}

// HandleResult is the orchestrator's answer to one inbound message.
type HandleResult struct {
	ConversationID string         `json:"conversationId"`
	ContactID      string         `json:"contactId"`
	CorrelationID  string         `json:"correlationId"`
	Responses      []ResponseItem `json:"responses"`
}
