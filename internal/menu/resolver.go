package menu

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/geekfeedjapan/twilio-flex-conversations-adapters/internal/line"
)

// ErrNoResolver is returned when a postback code has no menu entry.
var ErrNoResolver = errors.New("no resolver found")

// Kind is the outcome class of resolving one inbound event.
type Kind int

const (
	// KindRelay means the menu does not handle the event; relay it to an operator.
	KindRelay Kind = iota
	// KindMenu means Replies should be pushed straight back to the user.
	KindMenu
	// KindEscalate means the user asked for an operator; post EscalationText.
	KindEscalate
)

func (k Kind) String() string {
	switch k {
	case KindMenu:
		return "menu"
	case KindEscalate:
		return "escalate"
	default:
		return "relay"
	}
}

// Resolution is the result of Resolve.
type Resolution struct {
	Kind           Kind
	Key            string
	Replies        []json.RawMessage
	EscalationText string
}

// Resolver classifies events against an immutable Menu.
type Resolver struct {
	menu Menu
}

// NewResolver creates a resolver over m. m must not be modified afterwards.
func NewResolver(m Menu) *Resolver {
	return &Resolver{menu: m}
}

// Resolve classifies ev in priority order: escalate postback, menu postback,
// trigger-phrase text message, then relay.
func (r *Resolver) Resolve(ev line.Event) (Resolution, error) {
	switch ev.Type {
	case line.EventTypePostback:
		pb, ok := ev.AsPostback()
		if !ok {
			return Resolution{Kind: KindRelay}, nil
		}
		if text, ok := r.menu.Escalate[pb.Data]; ok {
			return Resolution{Kind: KindEscalate, Key: pb.Data, EscalationText: text}, nil
		}
		replies, ok := r.menu.Postback[pb.Data]
		if !ok {
			return Resolution{}, fmt.Errorf("%w: postback %q", ErrNoResolver, pb.Data)
		}
		return Resolution{Kind: KindMenu, Key: pb.Data, Replies: replies}, nil
	case line.EventTypeMessage:
		msg, ok := ev.AsMessage()
		if !ok || msg.Type != line.MessageTypeText {
			return Resolution{Kind: KindRelay}, nil
		}
		if replies, ok := r.menu.Message[msg.Text]; ok {
			return Resolution{Kind: KindMenu, Key: msg.Text, Replies: replies}, nil
		}
		return Resolution{Kind: KindRelay}, nil
	default:
		return Resolution{Kind: KindRelay}, nil
	}
}

// NonEmpty drops null and blank payloads, preserving order.
func NonEmpty(replies []json.RawMessage) []json.RawMessage {
	out := make([]json.RawMessage, 0, len(replies))
	for _, reply := range replies {
		trimmed := bytes.TrimSpace(reply)
		if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
			continue
		}
		out = append(out, reply)
	}
	return out
}
