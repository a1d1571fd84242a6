package upstream

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"strings"
	"time"

	"github.com/aussiebroadwan/quill/internal/signing/domain"
	"github.com/aussiebroadwan/quill/pkg/slogx"
)

const (
	SignatureHeader = "X-Signature"
	EventIDHeader   = "X-Event-Id"
	EventTypeHeader = "X-Event-Type"
)

// Notifier delivers lifecycle events to the notification bus.
type Notifier interface {
	Notify(ctx context.Context, ev domain.Event) error
}

// WebhookNotifier POSTs each event as JSON, signed with HMAC-SHA256 over the
// raw body. Receivers verify with [VerifySignature].
type WebhookNotifier struct {
	c      client
	secret string
}

func NewWebhookNotifier(url, secret string, timeout time.Duration) *WebhookNotifier {
	return &WebhookNotifier{c: newClient(url, timeout), secret: secret}
}

func (n *WebhookNotifier) Notify(ctx context.Context, ev domain.Event) error {
	body, err := marshal(ev)
	if err != nil {
		return err
	}
	_, err = n.c.post(ctx, "", body, map[string]string{
		SignatureHeader: Sign(n.secret, body),
		EventIDHeader:   ev.ID,
		EventTypeHeader: string(ev.Type),
	})
	return err
}

// Sign returns the hex HMAC-SHA256 of body under secret.
func Sign(secret string, body []byte) string {
	mac := hmac.New(sha256.New, []byte(secret))
	_, _ = mac.Write(body)
	return hex.EncodeToString(mac.Sum(nil))
}

// VerifySignature reports whether sigHex is the signature of body.
func VerifySignature(secret string, body []byte, sigHex string) bool {
	if strings.TrimSpace(secret) == "" {
		return false
	}
	provided, err := hex.DecodeString(strings.TrimSpace(sigHex))
	if err != nil {
		return false
	}
	mac := hmac.New(sha256.New, []byte(secret))
	_, _ = mac.Write(body)
	return hmac.Equal(mac.Sum(nil), provided)
}

// LogNotifier records events in the log instead of delivering them. Preview
// credentials are never logged.
type LogNotifier struct{}

func (LogNotifier) Notify(ctx context.Context, ev domain.Event) error {
	slogx.FromContext(ctx).Info("event not delivered, no notification webhook configured",
		"event_id", ev.ID,
		"event_type", ev.Type,
		"signature_request_id", ev.SignatureRequestID,
		"recipients", len(ev.Recipients),
	)
	return nil
}
