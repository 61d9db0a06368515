package telegram

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPublishDigestPostsMessage(t *testing.T) {
	var gotPath, gotChatID, gotText string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		require.NoError(t, r.ParseForm())
		gotChatID = r.PostFormValue("chat_id")
		gotText = r.PostFormValue("text")
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	n := NewNotifier("test-token", "12345")
	n.apiBase = srv.URL
	n.client = srv.Client()

	err := n.PublishDigest(context.Background(), "- Chemical Safety Amendment\nRelevance: 92/100\n")
	require.NoError(t, err)

	assert.Equal(t, "/bottest-token/sendMessage", gotPath)
	assert.Equal(t, "12345", gotChatID)
	assert.Contains(t, gotText, "New relevant regulations:")
	assert.Contains(t, gotText, "Chemical Safety Amendment")
}

func TestPublishDigestFailsOnAPIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	}))
	defer srv.Close()

	n := NewNotifier("test-token", "12345")
	n.apiBase = srv.URL
	n.client = srv.Client()

	err := n.PublishDigest(context.Background(), "digest")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "telegram error")
}

func TestPublishDigestRequiresConfiguration(t *testing.T) {
	n := NewNotifier("", "")
	err := n.PublishDigest(context.Background(), "digest")
	require.Error(t, err)
}
