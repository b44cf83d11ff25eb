package conversation

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/geekfeedjapan/twilio-flex-conversations-adapters/internal/line"
	"github.com/geekfeedjapan/twilio-flex-conversations-adapters/internal/media"
)

// mediaMessageBody is the body posted alongside an uploaded media resource.
const mediaMessageBody = "file"

// Outcome reports what Relay did with a message.
type Outcome string

const (
	OutcomePosted      Outcome = "posted"
	OutcomeSkipped     Outcome = "skipped"
	OutcomeUnsupported Outcome = "unsupported"
)

// ContentFetcher opens the binary content of a channel message.
type ContentFetcher interface {
	Content(ctx context.Context, messageID string) (line.Content, error)
}

// Relay posts channel messages into the operator conversation.
type Relay struct {
	platform Platform
	content  ContentFetcher
	logger   *slog.Logger
}

// NewRelay creates a message relay.
func NewRelay(log *slog.Logger, platform Platform, content ContentFetcher) *Relay {
	if log == nil {
		log = slog.Default()
	}
	return &Relay{
		platform: platform,
		content:  content,
		logger:   log.With(slog.String("service", "message_relay")),
	}
}

// Relay posts msg into ref as participant. Text is posted as-is; images and
// videos are downloaded from the channel and re-uploaded as conversation media.
// Missing provisioning data, a missing content type or an upload without a
// media SID skip the message and return OutcomeSkipped with a nil error.
func (r *Relay) Relay(ctx context.Context, ref Ref, participant Participant, msg line.Message) (Outcome, error) {
	log := r.logger.With(
		slog.String("conversation_sid", ref.ConversationSID),
		slog.String("message_type", string(msg.Type)),
	)
	switch msg.Type {
	case line.MessageTypeText:
		attrs := participant.Attributes
		err := r.platform.PostMessage(ctx, ref.ConversationSID, OutgoingMessage{
			Author:     participant.Identity,
			Body:       msg.Text,
			Attributes: &attrs,
		})
		if err != nil {
			return "", fmt.Errorf("post text message: %w", err)
		}
		return OutcomePosted, nil
	case line.MessageTypeImage, line.MessageTypeVideo:
		return r.relayMedia(ctx, log, ref, participant, msg)
	default:
		log.Debug("message type not relayed")
		return OutcomeUnsupported, nil
	}
}

func (r *Relay) relayMedia(ctx context.Context, log *slog.Logger, ref Ref, participant Participant, msg line.Message) (Outcome, error) {
	chatServiceSID, ok := ref.ChatService()
	if !ok {
		log.Warn("chat service sid is undefined, media not relayed")
		return OutcomeSkipped, nil
	}
	if r.content == nil {
		return "", fmt.Errorf("content fetcher not configured")
	}

	content, err := r.content.Content(ctx, msg.ID)
	if err != nil {
		return "", fmt.Errorf("fetch content %s: %w", msg.ID, err)
	}
	defer func() {
		if content.Body != nil {
			_ = content.Body.Close()
		}
	}()

	contentType, ok := content.ContentType()
	if !ok {
		log.Warn("content type is undefined, media not relayed", slog.String("message_id", msg.ID))
		return OutcomeSkipped, nil
	}
	blob, err := media.ReadBlob(content.Body, contentType)
	if err != nil {
		if errors.Is(err, media.ErrAssetTooLarge) {
			log.Warn("media too large, not relayed", slog.String("message_id", msg.ID), slog.Any("error", err))
			return OutcomeSkipped, nil
		}
		return "", fmt.Errorf("read content %s: %w", msg.ID, err)
	}

	mediaSID, err := r.platform.UploadMedia(ctx, chatServiceSID, blob)
	if err != nil {
		return "", fmt.Errorf("upload media: %w", err)
	}
	if mediaSID == "" {
		log.Warn("media upload returned no sid, media not relayed", slog.String("message_id", msg.ID))
		return OutcomeSkipped, nil
	}
	log.Debug("media uploaded", slog.String("media_sid", mediaSID), slog.String("content_type", contentType), slog.Int64("size", blob.Size()))

	if err := r.platform.PostMessage(ctx, ref.ConversationSID, OutgoingMessage{
		Author:   participant.Identity,
		Body:     mediaMessageBody,
		MediaSID: mediaSID,
	}); err != nil {
		return "", fmt.Errorf("post media message: %w", err)
	}
	return OutcomePosted, nil
}
