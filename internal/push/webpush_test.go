package push

import (
	"context"
	"crypto/ecdh"
	"crypto/rand"
	"encoding/base64"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestWebSenderConfigured(t *testing.T) {
	if NewWebSender("", "", "").Configured() {
		t.Error("sender without keys reports configured")
	}

	pub, priv, err := GenerateVAPIDKeys()
	if err != nil {
		t.Fatalf("generate keys: %v", err)
	}
	s := NewWebSender(pub, priv, "mailto:ops@example.com")
	if !s.Configured() {
		t.Error("sender with keys reports unconfigured")
	}
	if s.VAPIDPublicKey() != pub {
		t.Error("public key accessor mismatch")
	}
}

func TestWebSenderUnconfiguredSendFails(t *testing.T) {
	s := NewWebSender("", "", "")
	if err := s.Send(context.Background(), "{}", Payload{Title: "t"}); err == nil {
		t.Error("expected error from unconfigured sender")
	}
}

func TestWebSenderMalformedSubscriptionIsGone(t *testing.T) {
	pub, priv, err := GenerateVAPIDKeys()
	if err != nil {
		t.Fatalf("generate keys: %v", err)
	}
	s := NewWebSender(pub, priv, "mailto:ops@example.com")

	err = s.Send(context.Background(), "not json at all", Payload{Title: "t"})
	if !errors.Is(err, ErrTokenGone) {
		t.Errorf("err = %v, want ErrTokenGone for an unparseable subscription", err)
	}
}

// packedSubscription builds a valid browser subscription pointing at endpoint.
func packedSubscription(t *testing.T, endpoint string) string {
	t.Helper()

	key, err := ecdh.P256().GenerateKey(rand.Reader)
	if err != nil {
		t.Fatalf("generate subscription key: %v", err)
	}
	auth := make([]byte, 16)
	if _, err := rand.Read(auth); err != nil {
		t.Fatalf("generate auth secret: %v", err)
	}

	sub, err := json.Marshal(map[string]string{
		"endpoint": endpoint,
		"p256dh":   base64.RawURLEncoding.EncodeToString(key.PublicKey().Bytes()),
		"auth":     base64.RawURLEncoding.EncodeToString(auth),
	})
	if err != nil {
		t.Fatalf("marshal subscription: %v", err)
	}
	return string(sub)
}

func TestWebSenderBoundedTimeout(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-release
	}))
	defer srv.Close()
	defer close(release)

	pub, priv, err := GenerateVAPIDKeys()
	if err != nil {
		t.Fatalf("generate keys: %v", err)
	}
	s := NewWebSender(pub, priv, "mailto:ops@example.com")
	s.httpClient = &http.Client{Timeout: 200 * time.Millisecond}

	start := time.Now()
	err = s.Send(context.Background(), packedSubscription(t, srv.URL), Payload{Title: "t"})
	elapsed := time.Since(start)

	if err == nil {
		t.Fatal("expected error against a push service that never responds")
	}
	if errors.Is(err, ErrTokenGone) {
		t.Errorf("timeout misclassified as a gone token: %v", err)
	}
	if elapsed > 2*time.Second {
		t.Errorf("Send blocked for %v against a hung push service", elapsed)
	}
}

func TestGenerateVAPIDKeys(t *testing.T) {
	pub, priv, err := GenerateVAPIDKeys()
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if pub == "" || priv == "" {
		t.Fatal("empty key material")
	}

	pub2, _, err := GenerateVAPIDKeys()
	if err != nil {
		t.Fatalf("generate second: %v", err)
	}
	if pub == pub2 {
		t.Error("two generations produced the same public key")
	}
}
