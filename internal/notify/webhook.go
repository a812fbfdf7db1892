package notify

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/sony/gobreaker"

	"github.com/AngelCh415/yukti/internal/models"
)

// ErrNotConfigured means no endpoint is set for the channel.
var ErrNotConfigured = errors.New("notifier not configured")

type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}

func NewHTTPClient(timeout time.Duration) HTTPClient {
	return &http.Client{Timeout: timeout}
}

// Notifier dispatches an issue to the external workflow.
type Notifier interface {
	Notify(ctx context.Context, n models.IssueNotification) error
}

// Webhook posts the issue as JSON to a workflow automation endpoint. Delivery is
// attempted once; the response body is not consumed beyond its status.
type Webhook struct {
	url     string
	secret  string
	c       HTTPClient
	breaker *gobreaker.CircuitBreaker
	log     *slog.Logger
}

func NewWebhook(url, secret string, c HTTPClient, log *slog.Logger) *Webhook {
	if c == nil {
		c = NewHTTPClient(10 * time.Second)
	}
	if log == nil {
		log = slog.Default()
	}
	return &Webhook{
		url:    url,
		secret: secret,
		c:      c,
		log:    log,
		breaker: gobreaker.NewCircuitBreaker(gobreaker.Settings{
			Name:        "webhook",
			MaxRequests: 1,
			Timeout:     time.Minute,
			ReadyToTrip: func(c gobreaker.Counts) bool { return c.ConsecutiveFailures >= 5 },
		}),
	}
}

// Sign returns the hex HMAC-SHA256 of body under secret.
func Sign(secret string, body []byte) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	return hex.EncodeToString(mac.Sum(nil))
}

func (w *Webhook) Notify(ctx context.Context, n models.IssueNotification) error {
	if w == nil || w.url == "" {
		return ErrNotConfigured
	}
	b, err := json.Marshal(n)
	if err != nil {
		return err
	}
	_, err = w.breaker.Execute(func() (interface{}, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, w.url, bytes.NewReader(b))
		if err != nil {
			return nil, err
		}
		req.Header.Set("Content-Type", "application/json")
		if w.secret != "" {
			req.Header.Set("X-Signature", Sign(w.secret, b))
		}
		resp, err := w.c.Do(req)
		if err != nil {
			return nil, err
		}
		defer resp.Body.Close()
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		if resp.StatusCode < 200 || resp.StatusCode >= 300 {
			return nil, fmt.Errorf("webhook non-2xx: %d", resp.StatusCode)
		}
		return nil, nil
	})
	if err != nil {
		w.log.Warn("webhook dispatch failed", slog.String("sku", n.SKU), slog.String("city", n.City), slog.Any("err", err))
		return err
	}
	w.log.Info("webhook dispatched", slog.String("sku", n.SKU), slog.String("city", n.City), slog.String("issue_type", n.IssueType))
	return nil
}
