package notify

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"voiceai-platform/internal/config"
)

func TestWebhookSenderPostsPayload(t *testing.T) {
	var got map[string]string
	var auth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		auth = r.Header.Get("Authorization")
		_ = json.NewDecoder(r.Body).Decode(&got)
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	s := NewWebhookSender(config.NotifyConfig{SMSWebhookURL: srv.URL, SMSWebhookToken: "secret"})
	err := s.Send(context.Background(), "5551234567", "Your appointment is confirmed. Code APT-1A2B3C.")
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if got["to"] != "5551234567" || got["body"] == "" {
		t.Fatalf("unexpected payload: %+v", got)
	}
	if auth != "Bearer secret" {
		t.Fatalf("expected bearer token, got %q", auth)
	}
}

func TestWebhookSenderRejectsNon2xx(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	s := NewWebhookSender(config.NotifyConfig{SMSWebhookURL: srv.URL})
	if err := s.Send(context.Background(), "5551234567", "hi"); err == nil {
		t.Fatalf("expected error on non-2xx response")
	}
}

func TestWebhookSenderRequiresURL(t *testing.T) {
	s := NewWebhookSender(config.NotifyConfig{})
	if err := s.Send(context.Background(), "5551234567", "hi"); err == nil {
		t.Fatalf("expected error when url missing")
	}
}
