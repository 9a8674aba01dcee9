package messenger

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSendMessage(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "POST", r.Method)
		assert.Equal(t, "/me/messages", r.URL.Path)
		assert.Equal(t, "page-token", r.URL.Query().Get("access_token"))

		var body struct {
			Recipient     struct{ ID string }   `json:"recipient"`
			Message       struct{ Text string } `json:"message"`
			MessagingType string                `json:"messaging_type"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "user-42", body.Recipient.ID)
		assert.Equal(t, "Hello there", body.Message.Text)
		assert.Equal(t, "RESPONSE", body.MessagingType)

		w.Write([]byte(`{"recipient_id":"user-42","message_id":"mid.123"}`))
	}))
	defer srv.Close()

	c := New(WithBaseURL(srv.URL), WithRateLimit(0, 0))
	id, err := c.SendMessage(context.Background(), "page-token", "user-42", "Hello there")
	require.NoError(t, err)
	assert.Equal(t, "mid.123", id)
}

func TestReplyToComment(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/123_456/comments", r.URL.Path)
		var body map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "Thanks for asking!", body["message"])
		w.Write([]byte(`{"id":"123_789"}`))
	}))
	defer srv.Close()

	c := New(WithBaseURL(srv.URL), WithRateLimit(0, 0))
	id, err := c.ReplyToComment(context.Background(), "tok", "123_456", "Thanks for asking!")
	require.NoError(t, err)
	assert.Equal(t, "123_789", id)
}

func TestGraphErrorEnvelope(t *testing.T) {
	tests := []struct {
		name     string
		status   int
		body     string
		wantMsg  string
		wantCode int
	}{
		{"envelope", http.StatusBadRequest, `{"error":{"message":"Invalid OAuth access token.","type":"OAuthException","code":190}}`, "Invalid OAuth access token.", 190},
		{"plain body", http.StatusBadGateway, `upstream unavailable`, "upstream unavailable", 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				w.Write([]byte(tt.body))
			}))
			defer srv.Close()

			c := New(WithBaseURL(srv.URL), WithRateLimit(0, 0))
			_, err := c.SendMessage(context.Background(), "tok", "u", "hi")
			require.Error(t, err)

			var apiErr *APIError
			require.True(t, errors.As(err, &apiErr))
			assert.Equal(t, tt.status, apiErr.Status)
			assert.Equal(t, tt.wantMsg, apiErr.Message)
			assert.Equal(t, tt.wantCode, apiErr.Code)
		})
	}
}

func TestRateLimitHonorsContext(t *testing.T) {
	c := New(WithBaseURL("http://127.0.0.1:0"), WithRateLimit(0.001, 1))
	// Drain the single token.
	require.True(t, c.limiter.Allow())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := c.SendMessage(ctx, "tok", "u", "hi")
	require.Error(t, err)
}
