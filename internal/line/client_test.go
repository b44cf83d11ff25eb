package line

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClientPushSendsBearerAndPayloadVerbatim(t *testing.T) {
	var gotAuth string
	var gotBody pushRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v2/bot/message/push", r.URL.Path)
		gotAuth = r.Header.Get("Authorization")
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&gotBody))
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{}`))
	}))
	defer srv.Close()

	c := NewClient(nil, "tok", srv.URL, srv.URL, 5*time.Second)
	payload := json.RawMessage(`{"type":"template","altText":"alt","template":{"type":"buttons","text":"t","actions":[]}}`)
	require.NoError(t, c.Push(context.Background(), "U1", payload))

	assert.Equal(t, "Bearer tok", gotAuth)
	assert.Equal(t, "U1", gotBody.To)
	require.Len(t, gotBody.Messages, 1)
	assert.JSONEq(t, string(payload), string(gotBody.Messages[0]))
}

func TestClientPushSurfacesAPIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"message":"bad"}`))
	}))
	defer srv.Close()

	c := NewClient(nil, "tok", srv.URL, srv.URL, 5*time.Second)
	err := c.Push(context.Background(), "U1", json.RawMessage(`{"type":"text","text":"x"}`))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "400")
}

func TestClientPushWithoutMessagesIsNoop(t *testing.T) {
	c := NewClient(nil, "tok", "http://127.0.0.1:1", "http://127.0.0.1:1", time.Second)
	assert.NoError(t, c.Push(context.Background(), "U1"))
	assert.Error(t, c.Push(context.Background(), ""))
}

func TestClientProfile(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v2/bot/profile/U1", r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"userId":"U1","displayName":"Taro"}`))
	}))
	defer srv.Close()

	c := NewClient(nil, "tok", srv.URL, srv.URL, 5*time.Second)
	profile, err := c.Profile(context.Background(), "U1")
	require.NoError(t, err)
	assert.Equal(t, "Taro", profile.DisplayName)
}

func TestClientContentStreamsBodyAndHeader(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v2/bot/message/m1/content", r.URL.Path)
		assert.Equal(t, "Bearer tok", r.Header.Get("Authorization"))
		w.Header().Set("Content-Type", "image/jpeg")
		_, _ = w.Write([]byte("jpeg-bytes"))
	}))
	defer srv.Close()

	c := NewClient(nil, "tok", "http://127.0.0.1:1", srv.URL, 5*time.Second)
	content, err := c.Content(context.Background(), "m1")
	require.NoError(t, err)
	defer content.Body.Close()

	ct, ok := content.ContentType()
	assert.True(t, ok)
	assert.Equal(t, "image/jpeg", ct)
	data, err := io.ReadAll(content.Body)
	require.NoError(t, err)
	assert.Equal(t, "jpeg-bytes", string(data))
}

func TestClientContentError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "gone", http.StatusNotFound)
	}))
	defer srv.Close()

	c := NewClient(nil, "tok", srv.URL, srv.URL, 5*time.Second)
	_, err := c.Content(context.Background(), "m1")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "404")
}

func TestContentTypeAbsent(t *testing.T) {
	_, ok := Content{}.ContentType()
	assert.False(t, ok)
	_, ok = Content{Header: http.Header{}}.ContentType()
	assert.False(t, ok)
}
