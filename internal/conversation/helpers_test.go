package conversation

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"

	"github.com/geekfeedjapan/twilio-flex-conversations-adapters/internal/line"
	"github.com/geekfeedjapan/twilio-flex-conversations-adapters/internal/media"
)

type webhookCall struct {
	conversationSID string
	kind            string
	target          string
}

// fakePlatform stores conversations in memory and records every call.
type fakePlatform struct {
	mu sync.Mutex

	byIdentity     map[string]Ref
	created        []string
	participants   []Participant
	webhooks       []webhookCall
	messages       []OutgoingMessage
	uploads        []media.Blob
	findCalls      int
	chatServiceSID string
	uploadSID      string

	findErr        error
	createErr      error
	participantErr error
	studioErr      error
	callbackErr    error
	postErr        error
	uploadErr      error

	// findHook runs inside FindConversation without holding the lock.
	findHook func()
}

func newFakePlatform() *fakePlatform {
	return &fakePlatform{
		byIdentity:     map[string]Ref{},
		chatServiceSID: "IS0001",
		uploadSID:      "ME0001",
	}
}

func (f *fakePlatform) FindConversation(_ context.Context, identity string) (Ref, bool, error) {
	if f.findHook != nil {
		f.findHook()
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.findCalls++
	if f.findErr != nil {
		return Ref{}, false, f.findErr
	}
	ref, ok := f.byIdentity[identity]
	return ref, ok, nil
}

func (f *fakePlatform) CreateConversation(_ context.Context, friendlyName string) (Ref, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.createErr != nil {
		return Ref{}, f.createErr
	}
	f.created = append(f.created, friendlyName)
	sid := fmt.Sprintf("CH%04d", len(f.created))
	chat := f.chatServiceSID
	return Ref{ConversationSID: sid, ChatServiceSID: &chat}, nil
}

func (f *fakePlatform) AddParticipant(_ context.Context, conversationSID string, participant Participant) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.participantErr != nil {
		return f.participantErr
	}
	f.participants = append(f.participants, participant)
	chat := f.chatServiceSID
	f.byIdentity[participant.Identity] = Ref{ConversationSID: conversationSID, ChatServiceSID: &chat}
	return nil
}

func (f *fakePlatform) AddStudioWebhook(_ context.Context, conversationSID, flowSID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.studioErr != nil {
		return f.studioErr
	}
	f.webhooks = append(f.webhooks, webhookCall{conversationSID: conversationSID, kind: "studio", target: flowSID})
	return nil
}

func (f *fakePlatform) AddCallbackWebhook(_ context.Context, conversationSID, url string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.callbackErr != nil {
		return f.callbackErr
	}
	f.webhooks = append(f.webhooks, webhookCall{conversationSID: conversationSID, kind: "webhook", target: url})
	return nil
}

func (f *fakePlatform) PostMessage(_ context.Context, _ string, msg OutgoingMessage) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.postErr != nil {
		return f.postErr
	}
	f.messages = append(f.messages, msg)
	return nil
}

func (f *fakePlatform) UploadMedia(_ context.Context, _ string, blob media.Blob) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.uploadErr != nil {
		return "", f.uploadErr
	}
	f.uploads = append(f.uploads, blob)
	return f.uploadSID, nil
}

// fakeContent serves canned message content.
type fakeContent struct {
	body        string
	contentType string
	err         error
	calls       []string
	closed      bool
}

type trackingBody struct {
	io.Reader
	owner *fakeContent
}

func (b *trackingBody) Close() error {
	b.owner.closed = true
	return nil
}

func (c *fakeContent) Content(_ context.Context, messageID string) (line.Content, error) {
	c.calls = append(c.calls, messageID)
	if c.err != nil {
		return line.Content{}, c.err
	}
	header := http.Header{}
	if c.contentType != "" {
		header.Set("Content-Type", c.contentType)
	}
	return line.Content{Body: &trackingBody{Reader: strings.NewReader(c.body), owner: c}, Header: header}, nil
}
