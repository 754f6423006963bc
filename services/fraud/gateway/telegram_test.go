package gateway

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jvmd/fraudguard/internal/pkg/models"
)

func telegramChannelConfig(chatID string) *models.NotificationConfig {
	raw, _ := json.Marshal(map[string]string{"chat_id": chatID})
	return &models.NotificationConfig{
		Channel:       models.ChannelTelegram,
		Enabled:       true,
		MinSeverity:   3,
		Configuration: raw,
	}
}

func TestTelegramSender_SendsMessage(t *testing.T) {
	var gotPath string
	var gotBody map[string]string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotBody))
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	sender := NewTelegramSender(models.NotifyConfig{
		TelegramEnabled:  true,
		TelegramBotToken: "test-token",
		HTTPTimeoutSec:   2,
	})
	sender.apiBase = server.URL

	err := sender.Send(context.Background(), telegramChannelConfig("-100123"), "alert text", alertTx())
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(gotPath, "/bottest-token/"))
	assert.Equal(t, "-100123", gotBody["chat_id"])
	assert.Equal(t, "alert text", gotBody["text"])
}

func TestTelegramSender_Disabled(t *testing.T) {
	sender := NewTelegramSender(models.NotifyConfig{TelegramEnabled: false})
	err := sender.Send(context.Background(), telegramChannelConfig("-100123"), "msg", alertTx())
	assert.Error(t, err)
}

func TestTelegramSender_MissingChatID(t *testing.T) {
	sender := NewTelegramSender(models.NotifyConfig{
		TelegramEnabled:  true,
		TelegramBotToken: "test-token",
	})
	err := sender.Send(context.Background(), telegramChannelConfig(""), "msg", alertTx())
	assert.Error(t, err)
}

func TestTelegramSender_APIError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	}))
	defer server.Close()

	sender := NewTelegramSender(models.NotifyConfig{
		TelegramEnabled:  true,
		TelegramBotToken: "test-token",
		HTTPTimeoutSec:   2,
	})
	sender.apiBase = server.URL

	err := sender.Send(context.Background(), telegramChannelConfig("-100123"), "msg", alertTx())
	assert.Error(t, err)
}
