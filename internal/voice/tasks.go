package voice

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"voiceai-platform/internal/config"
)

// maxRecordingBytes caps how much audio a single turn may pull down.
const maxRecordingBytes = 10 << 20

// TaskHandlers wires the service's deferred work into a queue. The recording
// fetch authenticates with the provider credentials, since call recordings
// are not public URLs.
type TaskHandlers struct {
	svc    *Service
	twilio config.TwilioConfig
	http   *http.Client
}

func NewTaskHandlers(svc *Service, twilio config.TwilioConfig) *TaskHandlers {
	return &TaskHandlers{
		svc:    svc,
		twilio: twilio,
		http:   &http.Client{Timeout: 30 * time.Second},
	}
}

// Register binds the handlers on the service's queue.
func (h *TaskHandlers) Register() {
	h.svc.queue.Register(TaskTranscribeTurn, h.transcribe)
	h.svc.queue.Register(TaskSendSMS, h.sendSMS)
}

func (h *TaskHandlers) transcribe(ctx context.Context, payload json.RawMessage) (json.RawMessage, error) {
	var p transcribePayload
	if err := json.Unmarshal(payload, &p); err != nil {
		return nil, fmt.Errorf("voice: decode transcribe payload: %w", err)
	}
	if p.RecordingURL == "" {
		return nil, errors.New("voice: transcribe payload missing recording url")
	}

	audio, err := h.fetchRecording(ctx, p.RecordingURL)
	if err != nil {
		return nil, err
	}
	text, err := h.svc.ai.Transcribe(ctx, audio)
	if err != nil {
		return nil, err
	}
	return json.Marshal(transcribeResult{Text: text})
}

func (h *TaskHandlers) fetchRecording(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	if h.twilio.AccountSID != "" && h.twilio.AuthToken != "" {
		req.SetBasicAuth(h.twilio.AccountSID, h.twilio.AuthToken)
	}
	resp, err := h.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("voice: fetch recording: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("voice: fetch recording: status %d", resp.StatusCode)
	}
	return io.ReadAll(io.LimitReader(resp.Body, maxRecordingBytes))
}

func (h *TaskHandlers) sendSMS(ctx context.Context, payload json.RawMessage) (json.RawMessage, error) {
	var p smsPayload
	if err := json.Unmarshal(payload, &p); err != nil {
		return nil, fmt.Errorf("voice: decode sms payload: %w", err)
	}
	if err := h.svc.sms.Send(ctx, p.To, p.Body); err != nil {
		return nil, err
	}
	return json.RawMessage(`{"sent":true}`), nil
}
