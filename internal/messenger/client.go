// Package messenger delivers replies through the page messaging Graph API.
package messenger

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/time/rate"
)

const (
	DefaultBaseURL = "https://graph.facebook.com/v19.0"

	// Graph allows bursts but throttles sustained send volume per page.
	defaultRPS   = 20
	defaultBurst = 10
)

// APIError is a decoded Graph error envelope.
type APIError struct {
	Status    int    `json:"-"`
	Message   string `json:"message"`
	Type      string `json:"type"`
	Code      int    `json:"code"`
	Subcode   int    `json:"error_subcode"`
	FBTraceID string `json:"fbtrace_id"`
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("graph api: http %d", e.Status)
	}
	return fmt.Sprintf("graph api: http %d: %s (code %d)", e.Status, e.Message, e.Code)
}

// Client posts messages and comment replies. Safe for concurrent use.
type Client struct {
	baseURL string
	http    *http.Client
	limiter *rate.Limiter
}

// Option configures a Client.
type Option func(*Client)

func WithBaseURL(u string) Option {
	return func(c *Client) { c.baseURL = strings.TrimRight(u, "/") }
}

func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

// WithRateLimit paces outbound calls; rps <= 0 disables pacing.
func WithRateLimit(rps float64, burst int) Option {
	return func(c *Client) {
		if rps <= 0 {
			c.limiter = rate.NewLimiter(rate.Inf, 0)
			return
		}
		c.limiter = rate.NewLimiter(rate.Limit(rps), burst)
	}
}

func New(opts ...Option) *Client {
	c := &Client{
		baseURL: DefaultBaseURL,
		http:    &http.Client{Timeout: 30 * time.Second},
		limiter: rate.NewLimiter(defaultRPS, defaultBurst),
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

// SendMessage sends a private reply to recipientID and returns the message id.
func (c *Client) SendMessage(ctx context.Context, accessToken, recipientID, text string) (string, error) {
	body := map[string]interface{}{
		"recipient":      map[string]string{"id": recipientID},
		"message":        map[string]string{"text": text},
		"messaging_type": "RESPONSE",
	}
	var out struct {
		RecipientID string `json:"recipient_id"`
		MessageID   string `json:"message_id"`
	}
	if err := c.post(ctx, "/me/messages", accessToken, body, &out); err != nil {
		return "", fmt.Errorf("send message: %w", err)
	}
	return out.MessageID, nil
}

// ReplyToComment posts a public reply under commentID and returns the new comment id.
func (c *Client) ReplyToComment(ctx context.Context, accessToken, commentID, text string) (string, error) {
	body := map[string]string{"message": text}
	var out struct {
		ID string `json:"id"`
	}
	if err := c.post(ctx, "/"+url.PathEscape(commentID)+"/comments", accessToken, body, &out); err != nil {
		return "", fmt.Errorf("reply to comment: %w", err)
	}
	return out.ID, nil
}

func (c *Client) post(ctx context.Context, path, accessToken string, body, out interface{}) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return err
	}

	data, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, "POST", c.baseURL+path+"?access_token="+url.QueryEscape(accessToken), bytes.NewReader(data))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		var env struct {
			Error *APIError `json:"error"`
		}
		if json.Unmarshal(respBody, &env) == nil && env.Error != nil {
			env.Error.Status = resp.StatusCode
			return env.Error
		}
		return &APIError{Status: resp.StatusCode, Message: strings.TrimSpace(string(respBody))}
	}

	if err := json.Unmarshal(respBody, out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}
