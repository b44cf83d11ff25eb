// Package line holds the LINE Messaging API surface the adapter needs:
// webhook payload types, signature verification and a small REST client.
package line

import "strings"

// EventType discriminates webhook events.
type EventType string

const (
	EventTypeMessage  EventType = "message"
	EventTypePostback EventType = "postback"
	EventTypeFollow   EventType = "follow"
	EventTypeUnfollow EventType = "unfollow"
)

// MessageType discriminates the payload of a message event.
type MessageType string

const (
	MessageTypeText     MessageType = "text"
	MessageTypeImage    MessageType = "image"
	MessageTypeVideo    MessageType = "video"
	MessageTypeAudio    MessageType = "audio"
	MessageTypeFile     MessageType = "file"
	MessageTypeSticker  MessageType = "sticker"
	MessageTypeLocation MessageType = "location"
)

// WebhookBody is the request body LINE posts to the webhook URL.
type WebhookBody struct {
	Destination string  `json:"destination"`
	Events      []Event `json:"events"`
}

// Event is one webhook delivery item. Type selects which of Message or
// Postback is populated.
type Event struct {
	Type            EventType       `json:"type"`
	Mode            string          `json:"mode,omitempty"`
	Timestamp       int64           `json:"timestamp"`
	WebhookEventID  string          `json:"webhookEventId,omitempty"`
	DeliveryContext DeliveryContext `json:"deliveryContext"`
	ReplyToken      string          `json:"replyToken,omitempty"`
	Source          Source          `json:"source"`
	Message         *Message        `json:"message,omitempty"`
	Postback        *Postback       `json:"postback,omitempty"`
}

// DeliveryContext reports whether LINE is resending an undelivered event.
type DeliveryContext struct {
	IsRedelivery bool `json:"isRedelivery"`
}

// Source identifies who triggered the event.
type Source struct {
	Type    string `json:"type"`
	UserID  string `json:"userId,omitempty"`
	GroupID string `json:"groupId,omitempty"`
	RoomID  string `json:"roomId,omitempty"`
}

// Message is the payload of a message event.
type Message struct {
	ID              string           `json:"id"`
	Type            MessageType      `json:"type"`
	Text            string           `json:"text,omitempty"`
	ContentProvider *ContentProvider `json:"contentProvider,omitempty"`
}

// ContentProvider tells where binary content of image/video/audio lives.
type ContentProvider struct {
	Type               string `json:"type"`
	OriginalContentURL string `json:"originalContentUrl,omitempty"`
	PreviewImageURL    string `json:"previewImageUrl,omitempty"`
}

// Postback is the payload of a postback (button tap) event.
type Postback struct {
	Data string `json:"data"`
}

// SenderID returns the LINE user id of the event source, or "" for group/room
// events without a user.
func (e Event) SenderID() string {
	return strings.TrimSpace(e.Source.UserID)
}

// AsMessage returns the message payload when the event is a message event.
func (e Event) AsMessage() (*Message, bool) {
	if e.Type != EventTypeMessage || e.Message == nil {
		return nil, false
	}
	return e.Message, true
}

// AsPostback returns the postback payload when the event is a postback event.
func (e Event) AsPostback() (*Postback, bool) {
	if e.Type != EventTypePostback || e.Postback == nil {
		return nil, false
	}
	return e.Postback, true
}

// TextMessage builds a text message payload, used for canned escalation texts.
func TextMessage(text string) Message {
	return Message{Type: MessageTypeText, Text: text}
}
