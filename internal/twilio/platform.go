// Package twilio implements conversation.Platform on Twilio Conversations.
package twilio

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	twiliogo "github.com/twilio/twilio-go"
	conversations "github.com/twilio/twilio-go/rest/conversations/v1"

	"github.com/geekfeedjapan/twilio-flex-conversations-adapters/internal/conversation"
	"github.com/geekfeedjapan/twilio-flex-conversations-adapters/internal/media"
)

const (
	stateClosed = "closed"

	webhookTargetStudio  = "studio"
	webhookTargetWebhook = "webhook"
	webhookFilterAdded   = "onMessageAdded"
	listPageSize         = 50
)

// conversationsAPI is the subset of the Conversations v1 service used here.
type conversationsAPI interface {
	ListParticipantConversation(params *conversations.ListParticipantConversationParams) ([]conversations.ConversationsV1ParticipantConversation, error)
	CreateConversation(params *conversations.CreateConversationParams) (*conversations.ConversationsV1Conversation, error)
	CreateConversationParticipant(conversationSid string, params *conversations.CreateConversationParticipantParams) (*conversations.ConversationsV1ConversationParticipant, error)
	CreateConversationScopedWebhook(conversationSid string, params *conversations.CreateConversationScopedWebhookParams) (*conversations.ConversationsV1ConversationScopedWebhook, error)
	CreateConversationMessage(conversationSid string, params *conversations.CreateConversationMessageParams) (*conversations.ConversationsV1ConversationMessage, error)
}

// Config holds account credentials and the media service host.
type Config struct {
	AccountSID       string
	AuthToken        string
	MediaServiceBase string
	Timeout          time.Duration
}

// Platform talks to Twilio Conversations and the media content service.
type Platform struct {
	api    conversationsAPI
	media  *resty.Client
	logger *slog.Logger
}

var _ conversation.Platform = (*Platform)(nil)

// New creates a Platform authenticated with the account credentials.
func New(log *slog.Logger, cfg Config) *Platform {
	client := twiliogo.NewRestClientWithParams(twiliogo.ClientParams{
		Username: cfg.AccountSID,
		Password: cfg.AuthToken,
	})
	return newPlatform(log, client.ConversationsV1, newMediaClient(cfg))
}

func newPlatform(log *slog.Logger, api conversationsAPI, mediaClient *resty.Client) *Platform {
	if log == nil {
		log = slog.Default()
	}
	return &Platform{
		api:    api,
		media:  mediaClient,
		logger: log.With(slog.String("client", "twilio")),
	}
}

func newMediaClient(cfg Config) *resty.Client {
	return resty.New().
		SetBaseURL(strings.TrimRight(cfg.MediaServiceBase, "/")).
		SetBasicAuth(cfg.AccountSID, cfg.AuthToken).
		SetTimeout(cfg.Timeout)
}

// FindConversation returns the first participant conversation of identity that
// is not closed.
func (p *Platform) FindConversation(_ context.Context, identity string) (conversation.Ref, bool, error) {
	params := &conversations.ListParticipantConversationParams{}
	params.SetIdentity(identity)
	params.SetPageSize(listPageSize)
	items, err := p.api.ListParticipantConversation(params)
	if err != nil {
		return conversation.Ref{}, false, fmt.Errorf("list participant conversations: %w", err)
	}
	for _, item := range items {
		if item.ConversationState != nil && *item.ConversationState == stateClosed {
			continue
		}
		if item.ConversationSid == nil || *item.ConversationSid == "" {
			continue
		}
		return conversation.Ref{
			ConversationSID: *item.ConversationSid,
			ChatServiceSID:  item.ChatServiceSid,
		}, true, nil
	}
	return conversation.Ref{}, false, nil
}

func (p *Platform) CreateConversation(_ context.Context, friendlyName string) (conversation.Ref, error) {
	params := &conversations.CreateConversationParams{}
	params.SetFriendlyName(friendlyName)
	conv, err := p.api.CreateConversation(params)
	if err != nil {
		return conversation.Ref{}, err
	}
	if conv == nil || conv.Sid == nil || *conv.Sid == "" {
		return conversation.Ref{}, fmt.Errorf("create conversation: response has no sid")
	}
	p.logger.Info("conversation created", slog.String("conversation_sid", *conv.Sid))
	return conversation.Ref{ConversationSID: *conv.Sid, ChatServiceSID: conv.ChatServiceSid}, nil
}

func (p *Platform) AddParticipant(_ context.Context, conversationSID string, participant conversation.Participant) error {
	attrs, err := json.Marshal(participant.Attributes)
	if err != nil {
		return fmt.Errorf("encode participant attributes: %w", err)
	}
	params := &conversations.CreateConversationParticipantParams{}
	params.SetIdentity(participant.Identity)
	params.SetAttributes(string(attrs))
	_, err = p.api.CreateConversationParticipant(conversationSID, params)
	return err
}

func (p *Platform) AddStudioWebhook(_ context.Context, conversationSID, flowSID string) error {
	params := &conversations.CreateConversationScopedWebhookParams{}
	params.SetTarget(webhookTargetStudio)
	params.SetConfigurationFlowSid(flowSID)
	_, err := p.api.CreateConversationScopedWebhook(conversationSID, params)
	return err
}

func (p *Platform) AddCallbackWebhook(_ context.Context, conversationSID, url string) error {
	params := &conversations.CreateConversationScopedWebhookParams{}
	params.SetTarget(webhookTargetWebhook)
	params.SetConfigurationUrl(url)
	params.SetConfigurationMethod("POST")
	params.SetConfigurationFilters([]string{webhookFilterAdded})
	_, err := p.api.CreateConversationScopedWebhook(conversationSID, params)
	return err
}

func (p *Platform) PostMessage(_ context.Context, conversationSID string, msg conversation.OutgoingMessage) error {
	params := &conversations.CreateConversationMessageParams{}
	params.SetAuthor(msg.Author)
	if msg.Body != "" {
		params.SetBody(msg.Body)
	}
	if msg.MediaSID != "" {
		params.SetMediaSid(msg.MediaSID)
	}
	if msg.Attributes != nil {
		attrs, err := json.Marshal(msg.Attributes)
		if err != nil {
			return fmt.Errorf("encode message attributes: %w", err)
		}
		params.SetAttributes(string(attrs))
	}
	_, err := p.api.CreateConversationMessage(conversationSID, params)
	return err
}

type mediaResponse struct {
	SID string `json:"sid"`
}

// UploadMedia posts blob to the chat service media endpoint.
func (p *Platform) UploadMedia(ctx context.Context, chatServiceSID string, blob media.Blob) (string, error) {
	if strings.TrimSpace(chatServiceSID) == "" {
		return "", fmt.Errorf("chat service sid is required")
	}
	var out mediaResponse
	resp, err := p.media.R().
		SetContext(ctx).
		SetPathParam("service_sid", chatServiceSID).
		SetHeader("Content-Type", blob.ContentType).
		SetBody(bytes.NewReader(blob.Data)).
		SetResult(&out).
		Post("/v1/Services/{service_sid}/Media")
	if err != nil {
		return "", fmt.Errorf("upload media: %w", err)
	}
	if resp.IsError() {
		return "", fmt.Errorf("upload media: status %d: %s", resp.StatusCode(), strings.TrimSpace(resp.String()))
	}
	return out.SID, nil
}
