// Package inbound authenticates LINE webhook batches and dispatches each event
// to the menu, the LINE push API or the operator conversation.
package inbound

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/geekfeedjapan/twilio-flex-conversations-adapters/internal/conversation"
	"github.com/geekfeedjapan/twilio-flex-conversations-adapters/internal/line"
	"github.com/geekfeedjapan/twilio-flex-conversations-adapters/internal/menu"
)

// ErrInvalidSignature rejects a batch before any event is parsed.
var ErrInvalidSignature = errors.New("invalid signature")

// Pusher sends payloads to a LINE user.
type Pusher interface {
	Push(ctx context.Context, to string, messages ...json.RawMessage) error
}

// ProfileFetcher looks up LINE user profiles.
type ProfileFetcher interface {
	Profile(ctx context.Context, userID string) (line.Profile, error)
}

// Provisioner returns the operator conversation of a user.
type Provisioner interface {
	EnsureConversation(ctx context.Context, identity string, user conversation.User) (conversation.Ref, error)
}

// Relayer posts a message into an operator conversation.
type Relayer interface {
	Relay(ctx context.Context, ref conversation.Ref, participant conversation.Participant, msg line.Message) (conversation.Outcome, error)
}

// Outcome classifies how one event was handled.
type Outcome string

const (
	OutcomeEscalated Outcome = "escalated"
	OutcomeMenu      Outcome = "menu"
	OutcomeRelayed   Outcome = "relayed"
	OutcomeIgnored   Outcome = "ignored"
	OutcomeDuplicate Outcome = "duplicate"
)

// EventResult records the handling of one event of a batch.
type EventResult struct {
	Index   int
	EventID string
	Type    line.EventType
	Outcome Outcome
	// Relay is set for escalated and relayed events.
	Relay  conversation.Outcome
	Pushed int
}

// BatchResult lists per-event results in delivery order. When the batch fails
// it holds the events handled before the failing one.
type BatchResult struct {
	ID          string
	Destination string
	Events      []EventResult
}

// Deps are the collaborators of a Router.
type Deps struct {
	ChannelSecret string
	Resolver      *menu.Resolver
	Pusher        Pusher
	Profiles      ProfileFetcher
	Provisioner   Provisioner
	Relayer       Relayer
	// Seen is optional; nil disables redelivery deduplication.
	Seen *EventCache
}

// Router processes webhook batches.
type Router struct {
	deps   Deps
	logger *slog.Logger
}

// NewRouter creates a router.
func NewRouter(log *slog.Logger, deps Deps) *Router {
	if log == nil {
		log = slog.Default()
	}
	return &Router{
		deps:   deps,
		logger: log.With(slog.String("service", "inbound_router")),
	}
}

// HandleBatch verifies rawBody against signature and handles every event in
// order. Events run sequentially; the first failing event aborts the rest.
func (r *Router) HandleBatch(ctx context.Context, signature string, rawBody []byte) (BatchResult, error) {
	result := BatchResult{ID: uuid.NewString()}
	log := r.logger.With(slog.String("batch_id", result.ID))

	if !line.Verify(signature, rawBody, r.deps.ChannelSecret) {
		log.Warn("signature rejected")
		return result, ErrInvalidSignature
	}

	var body line.WebhookBody
	if err := json.Unmarshal(rawBody, &body); err != nil {
		return result, fmt.Errorf("decode webhook body: %w", err)
	}
	result.Destination = body.Destination
	result.Events = make([]EventResult, 0, len(body.Events))

	for i, ev := range body.Events {
		er, err := r.handleEvent(ctx, log, i, ev)
		if err != nil {
			log.Error("event failed", slog.Int("index", i), slog.String("event_type", string(ev.Type)), slog.Any("error", err))
			return result, fmt.Errorf("event %d (%s): %w", i, ev.Type, err)
		}
		result.Events = append(result.Events, er)
	}
	log.Info("batch handled", slog.Int("events", len(result.Events)))
	return result, nil
}

func (r *Router) handleEvent(ctx context.Context, log *slog.Logger, index int, ev line.Event) (EventResult, error) {
	er := EventResult{Index: index, EventID: ev.WebhookEventID, Type: ev.Type}
	log = log.With(slog.Int("index", index), slog.String("event_type", string(ev.Type)))

	if ev.DeliveryContext.IsRedelivery && r.deps.Seen.Seen(ev.WebhookEventID) {
		log.Info("redelivered event skipped", slog.String("webhook_event_id", ev.WebhookEventID))
		er.Outcome = OutcomeDuplicate
		return er, nil
	}

	res, err := r.deps.Resolver.Resolve(ev)
	if err != nil {
		return er, err
	}

	switch res.Kind {
	case menu.KindEscalate:
		er.Outcome, er.Relay, err = r.escalate(ctx, log, ev, res.EscalationText)
	case menu.KindMenu:
		er.Outcome = OutcomeMenu
		er.Pushed, err = r.pushMenu(ctx, ev, res.Replies)
	default:
		er.Outcome, er.Relay, err = r.relay(ctx, log, ev)
	}
	if err != nil {
		return er, err
	}
	r.deps.Seen.Mark(ev.WebhookEventID)
	return er, nil
}

func (r *Router) escalate(ctx context.Context, log *slog.Logger, ev line.Event, text string) (Outcome, conversation.Outcome, error) {
	userID := ev.SenderID()
	if userID == "" {
		log.Warn("escalation without user id ignored")
		return OutcomeIgnored, "", nil
	}
	outcome, err := r.deliver(ctx, log, userID, line.TextMessage(text))
	if err != nil {
		return "", "", err
	}
	return OutcomeEscalated, outcome, nil
}

func (r *Router) pushMenu(ctx context.Context, ev line.Event, replies []json.RawMessage) (int, error) {
	payloads := menu.NonEmpty(replies)
	if len(payloads) == 0 {
		return 0, nil
	}
	userID := ev.SenderID()
	if userID == "" {
		return 0, fmt.Errorf("push menu: event has no user id")
	}
	for i, payload := range payloads {
		if err := r.deps.Pusher.Push(ctx, userID, payload); err != nil {
			return i, fmt.Errorf("push menu payload %d: %w", i, err)
		}
	}
	return len(payloads), nil
}

func (r *Router) relay(ctx context.Context, log *slog.Logger, ev line.Event) (Outcome, conversation.Outcome, error) {
	msg, ok := ev.AsMessage()
	userID := ev.SenderID()
	if !ok || userID == "" {
		log.Debug("event not relayed")
		return OutcomeIgnored, "", nil
	}
	outcome, err := r.deliver(ctx, log, userID, *msg)
	if err != nil {
		return "", "", err
	}
	return OutcomeRelayed, outcome, nil
}

// deliver provisions the user's conversation and relays msg into it.
func (r *Router) deliver(ctx context.Context, log *slog.Logger, userID string, msg line.Message) (conversation.Outcome, error) {
	user := conversation.User{ID: userID, DisplayName: r.displayName(ctx, log, userID)}
	participant := conversation.NewParticipant(user)

	ref, err := r.deps.Provisioner.EnsureConversation(ctx, participant.Identity, user)
	if err != nil {
		return "", err
	}
	return r.deps.Relayer.Relay(ctx, ref, participant, msg)
}

func (r *Router) displayName(ctx context.Context, log *slog.Logger, userID string) string {
	if r.deps.Profiles == nil {
		return ""
	}
	profile, err := r.deps.Profiles.Profile(ctx, userID)
	if err != nil {
		log.Warn("profile lookup failed, continuing without display name", slog.String("user_id", userID), slog.Any("error", err))
		return ""
	}
	return profile.DisplayName
}
