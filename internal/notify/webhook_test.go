package notify

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/connectthrive/community-engine/internal/config"
	"github.com/connectthrive/community-engine/pkg/logger"
)

func testClient(cfg *config.NotificationsConfig) *Client {
	return NewClient(cfg, logger.New("error", "json", "stdout"))
}

func TestSendMessage_PostsPayload(t *testing.T) {
	var received Message
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&received))
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	client := testClient(&config.NotificationsConfig{
		Enabled:    true,
		WebhookURL: server.URL,
		Channel:    "community",
	})

	err := client.SendMessage(context.Background(), &Message{Text: "hello"})
	assert.NoError(t, err)
	assert.Equal(t, "hello", received.Text)

	// The configured channel fills in when the message has none.
	assert.Equal(t, "community", received.Channel)
}

func TestSendMessage_DisabledIsNoOp(t *testing.T) {
	calls := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
	}))
	defer server.Close()

	client := testClient(&config.NotificationsConfig{
		Enabled:    false,
		WebhookURL: server.URL,
	})

	err := client.SendMessage(context.Background(), &Message{Text: "hello"})
	assert.NoError(t, err)
	assert.Equal(t, 0, calls)
}

func TestSendMessage_NonOKStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer server.Close()

	client := testClient(&config.NotificationsConfig{
		Enabled:    true,
		WebhookURL: server.URL,
	})

	err := client.SendMessage(context.Background(), &Message{Text: "hello"})
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "502")
}

func TestBadgeEarned_BestEffort(t *testing.T) {
	var received Message
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&received))
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	client := testClient(&config.NotificationsConfig{
		Enabled:    true,
		WebhookURL: server.URL,
	})

	client.BadgeEarned(context.Background(), "alice", "Community Star")
	assert.Contains(t, received.Text, "alice")
	assert.Contains(t, received.Text, "Community Star")

	// A dead endpoint must not panic or propagate.
	broken := testClient(&config.NotificationsConfig{
		Enabled:    true,
		WebhookURL: "http://127.0.0.1:1",
	})
	broken.BadgeEarned(context.Background(), "bob", "First Steps")
}
