package line

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"golang.org/x/oauth2"
)

// Profile is the subset of the user profile the adapter stores on participants.
type Profile struct {
	UserID        string `json:"userId"`
	DisplayName   string `json:"displayName"`
	PictureURL    string `json:"pictureUrl,omitempty"`
	StatusMessage string `json:"statusMessage,omitempty"`
	Language      string `json:"language,omitempty"`
}

// Content is a streamed message attachment. Caller must close Body.
type Content struct {
	Body   io.ReadCloser
	Header http.Header
}

// ContentType returns the response content type, reporting false when the
// header is absent.
func (c Content) ContentType() (string, bool) {
	if c.Header == nil {
		return "", false
	}
	value := strings.TrimSpace(c.Header.Get("Content-Type"))
	return value, value != ""
}

type pushRequest struct {
	To       string            `json:"to"`
	Messages []json.RawMessage `json:"messages"`
}

// Client calls the LINE Messaging API with the channel access token.
type Client struct {
	api    *resty.Client
	data   *resty.Client
	logger *slog.Logger
}

// NewClient creates a client for the given API hosts. Every request carries
// the access token as a bearer credential.
func NewClient(log *slog.Logger, accessToken, apiBase, dataAPIBase string, timeout time.Duration) *Client {
	if log == nil {
		log = slog.Default()
	}
	tokens := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: accessToken, TokenType: "Bearer"})
	newRest := func(base string) *resty.Client {
		hc := oauth2.NewClient(context.Background(), tokens)
		hc.Timeout = timeout
		return resty.NewWithClient(hc).SetBaseURL(strings.TrimRight(base, "/"))
	}
	return &Client{
		api:    newRest(apiBase),
		data:   newRest(dataAPIBase),
		logger: log.With(slog.String("client", "line")),
	}
}

// Push sends reply payloads to a user outside of a reply-token window.
// Payloads are forwarded verbatim as LINE message objects.
func (c *Client) Push(ctx context.Context, to string, messages ...json.RawMessage) error {
	if strings.TrimSpace(to) == "" {
		return fmt.Errorf("push: recipient is required")
	}
	if len(messages) == 0 {
		return nil
	}
	resp, err := c.api.R().
		SetContext(ctx).
		SetHeader("Content-Type", "application/json").
		SetBody(pushRequest{To: to, Messages: messages}).
		Post("/v2/bot/message/push")
	if err != nil {
		return fmt.Errorf("push: %w", err)
	}
	if resp.IsError() {
		return fmt.Errorf("push: status %d: %s", resp.StatusCode(), strings.TrimSpace(resp.String()))
	}
	c.logger.Debug("push sent", slog.String("to", to), slog.Int("messages", len(messages)))
	return nil
}

// Profile fetches the display profile of a user who has added the bot.
func (c *Client) Profile(ctx context.Context, userID string) (Profile, error) {
	var profile Profile
	resp, err := c.api.R().
		SetContext(ctx).
		SetPathParam("user_id", userID).
		SetResult(&profile).
		Get("/v2/bot/profile/{user_id}")
	if err != nil {
		return Profile{}, fmt.Errorf("get profile: %w", err)
	}
	if resp.IsError() {
		return Profile{}, fmt.Errorf("get profile: status %d: %s", resp.StatusCode(), strings.TrimSpace(resp.String()))
	}
	return profile, nil
}

// Content opens the binary content of an image, video, audio or file message.
func (c *Client) Content(ctx context.Context, messageID string) (Content, error) {
	resp, err := c.data.R().
		SetContext(ctx).
		SetDoNotParseResponse(true).
		SetPathParam("message_id", messageID).
		Get("/v2/bot/message/{message_id}/content")
	if err != nil {
		return Content{}, fmt.Errorf("get content: %w", err)
	}
	body := resp.RawBody()
	if resp.IsError() {
		var detail []byte
		if body != nil {
			detail, _ = io.ReadAll(io.LimitReader(body, 4<<10))
			_ = body.Close()
		}
		return Content{}, fmt.Errorf("get content: status %d: %s", resp.StatusCode(), strings.TrimSpace(string(detail)))
	}
	return Content{Body: body, Header: resp.Header()}, nil
}
