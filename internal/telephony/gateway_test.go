package telephony

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"

	"voiceai-platform/internal/ai"
	"voiceai-platform/internal/audit"
	"voiceai-platform/internal/booking"
	"voiceai-platform/internal/calls"
	"voiceai-platform/internal/config"
	"voiceai-platform/internal/dialog"
	"voiceai-platform/internal/events"
	"voiceai-platform/internal/extract"
	"voiceai-platform/internal/notify"
	"voiceai-platform/internal/session"
	"voiceai-platform/internal/tasks"
	"voiceai-platform/internal/tenant"
	"voiceai-platform/internal/voice"
)

type unavailableAI struct{}

func (unavailableAI) Chat(context.Context, ai.ChatRequest) (string, error) {
	return "", ai.ErrNotConfigured
}

func (unavailableAI) Transcribe(context.Context, []byte) (string, error) {
	return "", ai.ErrNotConfigured
}

func newTestRouter(t *testing.T, cfg config.Config) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)

	log := slog.New(slog.NewTextHandler(io.Discard, nil))

	tenants := tenant.NewMemoryRepo()
	_ = tenants.Upsert(context.Background(), tenant.Practice{
		TenantID:       "t1",
		Name:           "Bright Smiles Dental",
		Active:         true,
		TransferNumber: "+15550001111",
	})
	_ = tenants.Upsert(context.Background(), tenant.Practice{
		TenantID: "t-off",
		Name:     "Closed Practice",
		Active:   false,
	})

	queue := tasks.NewQueue(tasks.NewMemoryStore(), tasks.DefaultQueueConfig(), log)
	svc := voice.NewService(voice.Deps{
		DialogConfig: cfg.Dialog,
		Sessions:     session.NewMemoryStore(),
		Machine:      dialog.NewMachine(extract.New(extract.DefaultConfig()), cfg.Dialog.MaxAttemptsPerStep),
		AI:           unavailableAI{},
		Scorer:       ai.NewScorer(ai.DefaultScoreConfig()),
		Finalizer:    booking.NewFinalizer(booking.NewMemoryRepo()),
		Queue:        queue,
		SMS:          notify.NewNoopSender(),
		Events:       events.NoopPublisher{},
		Audit:        audit.NewService(audit.NewMemoryRepo()),
		CallLog:      calls.NewMemoryRepo(),
		Logger:       log,
	})
	voice.NewTaskHandlers(svc, cfg.Twilio).Register()

	gw := NewGateway(cfg, svc, tenants, nil)
	r := gin.New()
	r.POST("/v1/voice/:tenant_id", gw.HandleTurn)
	r.POST("/v1/voice/:tenant_id/poll/:task_id", gw.HandlePoll)
	return r
}

func testConfig() config.Config {
	return config.Config{
		App: config.AppConfig{PublicBaseURL: "https://api.example.com"},
		Dialog: config.DialogConfig{
			MaxAttemptsPerStep:  2,
			ConfidenceThreshold: 0.5,
			MaxConcurrentCalls:  10,
		},
	}
}

func postForm(t *testing.T, r http.Handler, path string, form url.Values, headers map[string]string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestGatewayGreetsNewCall(t *testing.T) {
	r := newTestRouter(t, testConfig())

	w := postForm(t, r, "/v1/voice/t1", url.Values{
		"CallSid":    {"CA1"},
		"From":       {"+15559990000"},
		"To":         {"+15551112222"},
		"CallStatus": {"ringing"},
	}, nil)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	body := w.Body.String()
	if !strings.Contains(body, "Bright Smiles Dental") {
		t.Fatalf("expected greeting, got %s", body)
	}
	if !strings.Contains(body, "<Gather") {
		t.Fatalf("expected gather verb, got %s", body)
	}
	if !strings.Contains(body, "https://api.example.com/v1/voice/t1") {
		t.Fatalf("expected absolute action url, got %s", body)
	}
}

func TestGatewayUnknownTenantStillSpeaks(t *testing.T) {
	r := newTestRouter(t, testConfig())

	w := postForm(t, r, "/v1/voice/missing", url.Values{
		"CallSid":    {"CA1"},
		"CallStatus": {"ringing"},
	}, nil)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200 for unknown tenant, got %d", w.Code)
	}
	if !strings.Contains(w.Body.String(), "not currently in service") {
		t.Fatalf("expected unavailable message, got %s", w.Body.String())
	}
}

func TestGatewayInactiveTenantUnavailable(t *testing.T) {
	r := newTestRouter(t, testConfig())

	w := postForm(t, r, "/v1/voice/t-off", url.Values{
		"CallSid":    {"CA1"},
		"CallStatus": {"ringing"},
	}, nil)

	if w.Code != http.StatusOK || !strings.Contains(w.Body.String(), "not currently in service") {
		t.Fatalf("expected unavailable twiml, got %d %s", w.Code, w.Body.String())
	}
}

func TestGatewayRejectsBadSignature(t *testing.T) {
	cfg := testConfig()
	cfg.Twilio = config.TwilioConfig{AuthToken: "secret-token", ValidateSignature: true}
	r := newTestRouter(t, cfg)

	form := url.Values{"CallSid": {"CA1"}, "CallStatus": {"ringing"}}

	w := postForm(t, r, "/v1/voice/t1", form, nil)
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 without signature, got %d", w.Code)
	}

	w = postForm(t, r, "/v1/voice/t1", form, map[string]string{
		signatureHeader: "bogus",
	})
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 with bad signature, got %d", w.Code)
	}
}

func TestGatewayAcceptsValidSignature(t *testing.T) {
	cfg := testConfig()
	cfg.Twilio = config.TwilioConfig{AuthToken: "secret-token", ValidateSignature: true}
	r := newTestRouter(t, cfg)

	form := url.Values{"CallSid": {"CA1"}, "CallStatus": {"ringing"}}
	sig := SignPayload("secret-token", "https://api.example.com/v1/voice/t1", form)

	w := postForm(t, r, "/v1/voice/t1", form, map[string]string{
		signatureHeader: sig,
	})
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200 with valid signature, got %d: %s", w.Code, w.Body.String())
	}
}

func TestGatewayConversationTurn(t *testing.T) {
	r := newTestRouter(t, testConfig())

	postForm(t, r, "/v1/voice/t1", url.Values{
		"CallSid":    {"CA2"},
		"From":       {"+15559990000"},
		"CallStatus": {"ringing"},
	}, nil)

	w := postForm(t, r, "/v1/voice/t1", url.Values{
		"CallSid":      {"CA2"},
		"From":         {"+15559990000"},
		"CallStatus":   {"in-progress"},
		"SpeechResult": {"my name is jane doe"},
	}, nil)

	body := w.Body.String()
	if !strings.Contains(body, "Jane Doe") || !strings.Contains(body, "phone number") {
		t.Fatalf("expected phone question after name turn, got %s", body)
	}
}

func TestCallStartDetection(t *testing.T) {
	if !isCallStart(VoiceWebhookForm{CallSid: "CA1", CallStatus: "ringing"}, false) {
		t.Fatalf("expected opening webhook to count as call start")
	}
	// A retried silent gather also carries no speech and no recording; it
	// must not claim a second slot for a call that already holds one.
	if isCallStart(VoiceWebhookForm{CallSid: "CA1", CallStatus: "in-progress"}, true) {
		t.Fatalf("retried silent turn must not count as call start")
	}
	if isCallStart(VoiceWebhookForm{CallSid: "CA1", CallStatus: "in-progress", SpeechResult: "hello"}, false) {
		t.Fatalf("speech turn must not count as call start")
	}
	if isCallStart(VoiceWebhookForm{CallSid: "CA1", CallStatus: "in-progress", RecordingURL: "https://example.com/rec"}, false) {
		t.Fatalf("recording turn must not count as call start")
	}
	if isCallStart(VoiceWebhookForm{CallSid: "CA1", CallStatus: "completed"}, false) {
		t.Fatalf("final status must not count as call start")
	}
}

func TestGatewayFinalStatusHangsUp(t *testing.T) {
	r := newTestRouter(t, testConfig())

	postForm(t, r, "/v1/voice/t1", url.Values{
		"CallSid":    {"CA3"},
		"CallStatus": {"ringing"},
	}, nil)

	w := postForm(t, r, "/v1/voice/t1", url.Values{
		"CallSid":    {"CA3"},
		"CallStatus": {"completed"},
	}, nil)

	if w.Code != http.StatusOK || !strings.Contains(w.Body.String(), "<Hangup") {
		t.Fatalf("expected hangup twiml, got %d %s", w.Code, w.Body.String())
	}
}
