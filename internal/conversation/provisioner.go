package conversation

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"strings"

	"golang.org/x/sync/singleflight"
)

// ErrPartialProvision wraps a failure that happened after the conversation was
// created. The conversation is left in place without rollback.
var ErrPartialProvision = errors.New("conversation partially provisioned")

// ProvisionerConfig holds the webhook targets attached to new conversations.
type ProvisionerConfig struct {
	StudioFlowSID string
	// WebhookDomain is the public host of this adapter, already resolved
	// against any override.
	WebhookDomain string
	OutgoingPath  string
}

// Provisioner finds or creates the single conversation of each end user.
type Provisioner struct {
	platform Platform
	cfg      ProvisionerConfig
	inflight singleflight.Group
	logger   *slog.Logger
}

// NewProvisioner creates a provisioner on top of platform.
func NewProvisioner(log *slog.Logger, platform Platform, cfg ProvisionerConfig) *Provisioner {
	if log == nil {
		log = slog.Default()
	}
	return &Provisioner{
		platform: platform,
		cfg:      cfg,
		logger:   log.With(slog.String("service", "conversation_provisioner")),
	}
}

// EnsureConversation returns the conversation joined by identity, creating and
// provisioning it on first contact. Concurrent calls for the same identity in
// this process share one lookup; separate processes may still race.
func (p *Provisioner) EnsureConversation(ctx context.Context, identity string, user User) (Ref, error) {
	identity = strings.TrimSpace(identity)
	if identity == "" {
		return Ref{}, fmt.Errorf("identity is required")
	}
	v, err, shared := p.inflight.Do(identity, func() (any, error) {
		return p.findOrCreate(ctx, identity, user)
	})
	if err != nil {
		return Ref{}, err
	}
	if shared {
		p.logger.Debug("conversation lookup shared", slog.String("identity", identity))
	}
	return v.(Ref), nil
}

func (p *Provisioner) findOrCreate(ctx context.Context, identity string, user User) (Ref, error) {
	ref, found, err := p.platform.FindConversation(ctx, identity)
	if err != nil {
		return Ref{}, fmt.Errorf("find conversation: %w", err)
	}
	if found {
		return ref, nil
	}

	ref, err = p.platform.CreateConversation(ctx, friendlyName(user))
	if err != nil {
		return Ref{}, fmt.Errorf("create conversation: %w", err)
	}
	log := p.logger.With(slog.String("conversation_sid", ref.ConversationSID), slog.String("identity", identity))

	participant := NewParticipant(user)
	participant.Identity = identity
	if err := p.platform.AddParticipant(ctx, ref.ConversationSID, participant); err != nil {
		return Ref{}, p.partial(log, ref, "add participant", err)
	}
	if err := p.platform.AddStudioWebhook(ctx, ref.ConversationSID, p.cfg.StudioFlowSID); err != nil {
		return Ref{}, p.partial(log, ref, "add studio webhook", err)
	}
	callback, err := p.callbackURL(user.ID)
	if err != nil {
		return Ref{}, p.partial(log, ref, "build callback url", err)
	}
	if err := p.platform.AddCallbackWebhook(ctx, ref.ConversationSID, callback); err != nil {
		return Ref{}, p.partial(log, ref, "add callback webhook", err)
	}
	log.Info("conversation provisioned")
	return ref, nil
}

func (p *Provisioner) partial(log *slog.Logger, ref Ref, step string, err error) error {
	log.Error("conversation provisioning incomplete", slog.String("step", step), slog.Any("error", err))
	return fmt.Errorf("%w: %s: conversation %s: %w", ErrPartialProvision, step, ref.ConversationSID, err)
}

func (p *Provisioner) callbackURL(userID string) (string, error) {
	domain := strings.TrimSpace(p.cfg.WebhookDomain)
	if domain == "" {
		return "", fmt.Errorf("webhook domain is not configured")
	}
	u := url.URL{
		Scheme:   "https",
		Host:     domain,
		Path:     "/" + strings.TrimLeft(p.cfg.OutgoingPath, "/"),
		RawQuery: url.Values{"user_id": []string{userID}}.Encode(),
	}
	return u.String(), nil
}

func friendlyName(u User) string {
	return "LINE Conversation (" + u.ID + ")"
}
