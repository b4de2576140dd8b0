package assist

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"time"
)

// Message is one turn of a conversation, in chat-completions wire shape.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

var (
	ErrUpstreamUnavailable = errors.New("assistant upstream unavailable")
	ErrUpstreamBadStatus   = errors.New("assistant upstream bad status")
	ErrEmptyReply          = errors.New("assistant returned no reply")
)

// Client calls a chat-completions style endpoint.
type Client struct {
	BaseURL string
	APIKey  string
	Model   string
	HTTP    *http.Client
}

func NewClient(baseURL, apiKey, model string, timeout time.Duration) *Client {
	return &Client{
		BaseURL: strings.TrimRight(baseURL, "/"),
		APIKey:  apiKey,
		Model:   model,
		HTTP:    &http.Client{Timeout: timeout},
	}
}

type completionReq struct {
	Model    string    `json:"model"`
	Messages []Message `json:"messages"`
}

type completionResp struct {
	Choices []struct {
		Message Message `json:"message"`
	} `json:"choices"`
}

// Complete sends the conversation so far and returns the assistant's reply.
func (c *Client) Complete(ctx context.Context, history []Message) (Message, error) {
	body, err := json.Marshal(completionReq{Model: c.Model, Messages: history})
	if err != nil {
		return Message{}, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.BaseURL+"/chat/completions", bytes.NewReader(body))
	if err != nil {
		return Message{}, err
	}
	req.Header.Set("Content-Type", "application/json")
	if c.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.APIKey)
	}

	resp, err := c.HTTP.Do(req)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return Message{}, ErrUpstreamUnavailable
		}
		var ne net.Error
		if errors.As(err, &ne) && ne.Timeout() {
			return Message{}, ErrUpstreamUnavailable
		}
		return Message{}, ErrUpstreamUnavailable
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		_, _ = io.Copy(io.Discard, resp.Body)
		return Message{}, fmt.Errorf("%w: status=%d", ErrUpstreamBadStatus, resp.StatusCode)
	}

	var out completionResp
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return Message{}, err
	}
	if len(out.Choices) == 0 || out.Choices[0].Message.Content == "" {
		return Message{}, ErrEmptyReply
	}
	return out.Choices[0].Message, nil
}
