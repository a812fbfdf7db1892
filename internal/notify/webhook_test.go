package notify

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/AngelCh415/yukti/internal/models"
)

func quiet() *slog.Logger { return slog.New(slog.NewTextHandler(io.Discard, nil)) }

var oos = models.IssueNotification{Product: "Bingo", SKU: "50g", City: "Pune", IssueType: "OOS", Details: "stock 0"}

func TestWebhookPostsIssue(t *testing.T) {
	var got models.IssueNotification
	var sig, ctype string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("expected POST, got %s", r.Method)
		}
		ctype = r.Header.Get("Content-Type")
		sig = r.Header.Get("X-Signature")
		body, _ := io.ReadAll(r.Body)
		if want := Sign("s3cret", body); sig != want {
			t.Errorf("signature mismatch: got %s want %s", sig, want)
		}
		_ = json.Unmarshal(body, &got)
		w.Write([]byte(`{"ignored": true}`))
	}))
	defer srv.Close()

	wh := NewWebhook(srv.URL, "s3cret", NewHTTPClient(2*time.Second), quiet())
	if err := wh.Notify(context.Background(), oos); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != oos {
		t.Fatalf("payload mismatch: %+v", got)
	}
	if ctype != "application/json" {
		t.Fatalf("expected json content type, got %q", ctype)
	}
}

func TestWebhookUnsignedWithoutSecret(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("X-Signature") != "" {
			t.Error("expected no signature header")
		}
	}))
	defer srv.Close()

	if err := NewWebhook(srv.URL, "", nil, quiet()).Notify(context.Background(), oos); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestWebhookHandles500(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "internal error", http.StatusInternalServerError)
	}))
	defer srv.Close()

	err := NewWebhook(srv.URL, "", NewHTTPClient(2*time.Second), quiet()).Notify(context.Background(), oos)
	if err == nil {
		t.Fatal("expected error for 500")
	}
}

func TestWebhookHandles404(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	}))
	defer srv.Close()

	err := NewWebhook(srv.URL, "", NewHTTPClient(2*time.Second), quiet()).Notify(context.Background(), oos)
	if err == nil {
		t.Fatal("expected error for 404")
	}
}

func TestWebhookHandlesTimeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(2 * time.Second)
	}))
	defer srv.Close()

	err := NewWebhook(srv.URL, "", NewHTTPClient(500*time.Millisecond), quiet()).Notify(context.Background(), oos)
	if err == nil {
		t.Fatal("expected timeout error, got nil")
	}
}

func TestWebhookNotConfigured(t *testing.T) {
	if err := NewWebhook("", "", nil, quiet()).Notify(context.Background(), oos); !errors.Is(err, ErrNotConfigured) {
		t.Fatalf("expected ErrNotConfigured, got %v", err)
	}
	var nilHook *Webhook
	if err := nilHook.Notify(context.Background(), oos); !errors.Is(err, ErrNotConfigured) {
		t.Fatalf("expected ErrNotConfigured from nil webhook, got %v", err)
	}
}

func TestWebhookBreakerOpens(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	wh := NewWebhook(srv.URL, "", NewHTTPClient(2*time.Second), quiet())
	for i := 0; i < 8; i++ {
		_ = wh.Notify(context.Background(), oos)
	}
	if n := calls.Load(); n != 5 {
		t.Fatalf("expected breaker to stop after 5 failures, got %d calls", n)
	}
}
