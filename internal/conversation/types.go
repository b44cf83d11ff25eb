// Package conversation provisions the per-user operator conversation and
// translates channel messages into conversation messages.
package conversation

import (
	"context"
	"strings"

	"github.com/geekfeedjapan/twilio-flex-conversations-adapters/internal/media"
)

// ChannelTypeLine tags participants and identities created for LINE users.
const ChannelTypeLine = "line"

// Ref identifies the durable conversation of one end user.
// ChatServiceSID is nil when the lookup did not return provisioning data.
type Ref struct {
	ConversationSID string
	ChatServiceSID  *string
}

// ChatService returns the chat service SID, reporting false when unknown.
func (r Ref) ChatService() (string, bool) {
	if r.ChatServiceSID == nil {
		return "", false
	}
	sid := strings.TrimSpace(*r.ChatServiceSID)
	return sid, sid != ""
}

// ParticipantAttributes is stored as JSON on the participant and on text messages.
type ParticipantAttributes struct {
	Type     string `json:"type"`
	UserID   string `json:"userId"`
	UserName string `json:"userName"`
}

// Participant is the author of relayed messages.
type Participant struct {
	Identity   string
	Attributes ParticipantAttributes
}

// User is the channel user a conversation is provisioned for.
type User struct {
	ID          string
	DisplayName string
}

// Identity returns the stable conversation identity of a LINE user id.
func Identity(userID string) string {
	return ChannelTypeLine + ":" + strings.TrimSpace(userID)
}

// NewParticipant builds the participant identity and attributes of u.
func NewParticipant(u User) Participant {
	return Participant{
		Identity: Identity(u.ID),
		Attributes: ParticipantAttributes{
			Type:     ChannelTypeLine,
			UserID:   u.ID,
			UserName: u.DisplayName,
		},
	}
}

// OutgoingMessage is one message posted into a conversation.
type OutgoingMessage struct {
	Author     string
	Body       string
	MediaSID   string
	Attributes *ParticipantAttributes
}

// Platform is the contact-center backend holding conversations.
type Platform interface {
	// FindConversation returns the open conversation joined by identity, if any.
	FindConversation(ctx context.Context, identity string) (Ref, bool, error)
	CreateConversation(ctx context.Context, friendlyName string) (Ref, error)
	AddParticipant(ctx context.Context, conversationSID string, participant Participant) error
	// AddStudioWebhook routes conversation events to an automation flow.
	AddStudioWebhook(ctx context.Context, conversationSID, flowSID string) error
	// AddCallbackWebhook routes added messages to url.
	AddCallbackWebhook(ctx context.Context, conversationSID, url string) error
	PostMessage(ctx context.Context, conversationSID string, msg OutgoingMessage) error
	// UploadMedia stores blob under the chat service and returns the media SID.
	// An empty SID with a nil error means the service accepted the upload without
	// returning an identifier.
	UploadMedia(ctx context.Context, chatServiceSID string, blob media.Blob) (string, error)
}
