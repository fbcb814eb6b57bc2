package notify

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDiscordNotifier_Notify(t *testing.T) {
	receivedContent := ""
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))

		var payload map[string]string
		body, _ := io.ReadAll(r.Body)
		json.Unmarshal(body, &payload)
		receivedContent = payload["content"]
		w.WriteHeader(http.StatusNoContent)
	}))
	defer server.Close()

	require.NoError(t, NewDiscordNotifier(server.URL).Notify(context.Background(), "Hello Discord!"))
	assert.Equal(t, "Hello Discord!", receivedContent)
}

func TestDiscordNotifier_Truncates(t *testing.T) {
	receivedContent := ""
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var payload map[string]string
		body, _ := io.ReadAll(r.Body)
		json.Unmarshal(body, &payload)
		receivedContent = payload["content"]
	}))
	defer server.Close()

	require.NoError(t, NewDiscordNotifier(server.URL).Notify(context.Background(), strings.Repeat("x", 2500)))
	assert.Len(t, receivedContent, 2000)
	assert.True(t, strings.HasSuffix(receivedContent, "..."))
}

func TestDiscordNotifier_TruncatesOnCharacters(t *testing.T) {
	receivedContent := ""
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var payload map[string]string
		body, _ := io.ReadAll(r.Body)
		json.Unmarshal(body, &payload)
		receivedContent = payload["content"]
	}))
	defer server.Close()

	message := strings.Repeat("x", 1996) + strings.Repeat("→", 10)
	require.NoError(t, NewDiscordNotifier(server.URL).Notify(context.Background(), message))

	assert.True(t, utf8.ValidString(receivedContent))
	assert.NotContains(t, receivedContent, "\uFFFD")
	assert.Equal(t, 2000, utf8.RuneCountInString(receivedContent))
	assert.True(t, strings.HasSuffix(receivedContent, "x→..."))

	short := strings.Repeat("•", 2000)
	require.NoError(t, NewDiscordNotifier(server.URL).Notify(context.Background(), short))
	assert.Equal(t, short, receivedContent)
}

func TestDiscordNotifier_Notify_Error(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	err := NewDiscordNotifier(server.URL).Notify(context.Background(), "test")
	assert.ErrorContains(t, err, "status: 500")
}

func TestDiscordNotifier_Notify_MissingURL(t *testing.T) {
	err := NewDiscordNotifier("").Notify(context.Background(), "test")
	assert.ErrorContains(t, err, "not configured")
}
