// Package push talks to the external delivery services: a batched HTTP
// gateway for mobile tokens and the web-push protocol for browser
// subscriptions.
package push

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

// Message is one notification addressed to one device token.
type Message struct {
	Token string            `json:"-"`
	Title string            `json:"title"`
	Body  string            `json:"body"`
	Data  map[string]string `json:"data,omitempty"`
}

// Outcome is the per-message result of a gateway send. Permanent means the
// token is dead and must not be retried.
type Outcome struct {
	Token     string
	OK        bool
	Permanent bool
	Err       string
}

// deviceNotRegistered is the gateway's error code for a token that no longer
// routes to an installed app.
const deviceNotRegistered = "DeviceNotRegistered"

const defaultTimeout = 15 * time.Second

// Client sends batches of mobile push messages to an Expo-compatible gateway.
type Client struct {
	endpoint    string
	accessToken string
	httpClient  *http.Client
}

type Option func(*Client)

func WithHTTPClient(c *http.Client) Option {
	return func(cl *Client) {
		cl.httpClient = c
	}
}

// NewClient creates a gateway client. An empty endpoint leaves the client
// unconfigured; sends then fail fast.
func NewClient(endpoint, accessToken string, opts ...Option) *Client {
	c := &Client{
		endpoint:    endpoint,
		accessToken: accessToken,
		httpClient:  &http.Client{Timeout: defaultTimeout},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Configured returns true if the gateway endpoint is set.
func (c *Client) Configured() bool {
	return c.endpoint != ""
}

type gatewayMessage struct {
	To    string            `json:"to"`
	Title string            `json:"title"`
	Body  string            `json:"body"`
	Data  map[string]string `json:"data,omitempty"`
}

type gatewayResponse struct {
	Data []struct {
		Status  string `json:"status"`
		Message string `json:"message"`
		Details struct {
			Error string `json:"error"`
		} `json:"details"`
	} `json:"data"`
}

// SendBatch delivers all messages in one gateway call and returns one Outcome
// per message, in order. A transport or gateway-level failure is returned as
// an error and counts as transient for every message in the batch.
func (c *Client) SendBatch(ctx context.Context, messages []Message) ([]Outcome, error) {
	if !c.Configured() {
		return nil, fmt.Errorf("push gateway not configured: missing endpoint")
	}
	if len(messages) == 0 {
		return nil, nil
	}

	payload := make([]gatewayMessage, len(messages))
	for i, m := range messages {
		payload[i] = gatewayMessage{To: m.Token, Title: m.Title, Body: m.Body, Data: m.Data}
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal push batch: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, "POST", c.endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	if c.accessToken != "" {
		req.Header.Set("Authorization", "Bearer "+c.accessToken)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("send push batch: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return nil, fmt.Errorf("push gateway error: status %d", resp.StatusCode)
	}

	var parsed gatewayResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("decode push gateway response: %w", err)
	}
	if len(parsed.Data) != len(messages) {
		return nil, fmt.Errorf("push gateway returned %d outcomes for %d messages", len(parsed.Data), len(messages))
	}

	outcomes := make([]Outcome, len(messages))
	for i, r := range parsed.Data {
		out := Outcome{Token: messages[i].Token}
		if r.Status == "ok" {
			out.OK = true
		} else {
			out.Err = r.Message
			out.Permanent = r.Details.Error == deviceNotRegistered
		}
		outcomes[i] = out
	}
	return outcomes, nil
}
