package push

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	webpush "github.com/SherClockHolmes/webpush-go"
)

// ErrTokenGone is returned when a web-push subscription is no longer valid
// (404/410 from the push service). Callers must drop the token.
var ErrTokenGone = errors.New("push subscription gone")

// Payload is the JSON delivered to the service worker.
type Payload struct {
	Title string            `json:"title"`
	Body  string            `json:"body"`
	Data  map[string]string `json:"data,omitempty"`
}

// webSubscription is the packed form a web-platform push token carries: the
// browser subscription as registered by the client application.
type webSubscription struct {
	Endpoint string `json:"endpoint"`
	P256dh   string `json:"p256dh"`
	Auth     string `json:"auth"`
}

// WebSender delivers web-push notifications using VAPID keys.
type WebSender struct {
	publicKey  string
	privateKey string
	subscriber string
	httpClient *http.Client
}

// NewWebSender creates a WebSender. Empty keys leave it unconfigured.
func NewWebSender(publicKey, privateKey, subscriber string) *WebSender {
	return &WebSender{
		publicKey:  publicKey,
		privateKey: privateKey,
		subscriber: subscriber,
		httpClient: &http.Client{Timeout: defaultTimeout},
	}
}

// Configured returns true if VAPID keys are present.
func (s *WebSender) Configured() bool {
	return s.publicKey != "" && s.privateKey != ""
}

// VAPIDPublicKey returns the public key clients subscribe with.
func (s *WebSender) VAPIDPublicKey() string {
	return s.publicKey
}

// Send pushes the payload to one packed subscription token.
func (s *WebSender) Send(ctx context.Context, token string, payload Payload) error {
	if !s.Configured() {
		return fmt.Errorf("web push not configured: missing VAPID keys")
	}

	var sub webSubscription
	if err := json.Unmarshal([]byte(token), &sub); err != nil {
		// A token that never parses will never deliver.
		return fmt.Errorf("%w: malformed subscription: %s", ErrTokenGone, err)
	}

	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal payload: %w", err)
	}

	resp, err := webpush.SendNotificationWithContext(ctx, data, &webpush.Subscription{
		Endpoint: sub.Endpoint,
		Keys: webpush.Keys{
			P256dh: sub.P256dh,
			Auth:   sub.Auth,
		},
	}, &webpush.Options{
		HTTPClient:      s.httpClient,
		VAPIDPublicKey:  s.publicKey,
		VAPIDPrivateKey: s.privateKey,
		Subscriber:      s.subscriber,
		TTL:             86400,
	})
	if err != nil {
		// Includes client timeouts against a hung push service; the caller
		// treats these as transient.
		return fmt.Errorf("send web push: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusGone || resp.StatusCode == http.StatusNotFound {
		return ErrTokenGone
	}
	if resp.StatusCode >= 400 {
		return fmt.Errorf("web push service returned %d", resp.StatusCode)
	}

	return nil
}
