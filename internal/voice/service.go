package voice

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

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
)

// Service orchestrates one conversation turn: session state, slot progress,
// AI phrasing, booking, and side effects. It always produces a speakable
// Decision; only infrastructure failures surface as errors, and the gateway
// converts those into an apology message rather than a bare 5xx.
type Service struct {
	dialogCfg config.DialogConfig

	sessions  session.Store
	machine   *dialog.Machine
	ai        ai.Client
	scorer    *ai.Scorer
	finalizer *booking.Finalizer
	queue     *tasks.Queue
	sms       notify.Sender
	pub       events.Publisher
	auditor   *audit.Service
	callLog   calls.Repository

	log   *slog.Logger
	clock func() time.Time
}

type Deps struct {
	DialogConfig config.DialogConfig

	Sessions  session.Store
	Machine   *dialog.Machine
	AI        ai.Client
	Scorer    *ai.Scorer
	Finalizer *booking.Finalizer
	Queue     *tasks.Queue
	SMS       notify.Sender
	Events    events.Publisher
	Audit     *audit.Service
	CallLog   calls.Repository
	Logger    *slog.Logger
}

func NewService(d Deps) *Service {
	return &Service{
		dialogCfg: d.DialogConfig,
		sessions:  d.Sessions,
		machine:   d.Machine,
		ai:        d.AI,
		scorer:    d.Scorer,
		finalizer: d.Finalizer,
		queue:     d.Queue,
		sms:       d.SMS,
		pub:       d.Events,
		auditor:   d.Audit,
		callLog:   d.CallLog,
		log:       d.Logger,
		clock:     time.Now,
	}
}

// TurnInput is one webhook delivery, already authenticated and
// tenant-resolved by the gateway.
type TurnInput struct {
	Practice tenant.Practice

	CallID       string
	From         string
	To           string
	CallStatus   string
	Speech       string
	RecordingURL string

	// Retried marks the fallback redirect after an unanswered gather. It
	// keeps a second silent turn from hashing identically to the first.
	Retried bool
}

// Task kinds handled by this service's queue handlers.
const (
	TaskTranscribeTurn = "transcribe_turn"
	TaskSendSMS        = "send_sms"
)

type transcribePayload struct {
	TenantID     string `json:"tenant_id"`
	CallID       string `json:"call_id"`
	RecordingURL string `json:"recording_url"`
}

type transcribeResult struct {
	Text string `json:"text"`
}

type smsPayload struct {
	To   string `json:"to"`
	Body string `json:"body"`
}

// HandleTurn processes one webhook delivery and returns what to speak and do
// next. Duplicate deliveries of the same turn return the cached decision
// without mutating state.
func (s *Service) HandleTurn(ctx context.Context, in TurnInput) (session.Decision, error) {
	if isFinalCallStatus(in.CallStatus) {
		return s.endCall(ctx, in)
	}

	sess, err := s.sessions.GetOrCreate(ctx, in.CallID, in.Practice.TenantID)
	if err != nil {
		return session.Decision{}, err
	}

	status := in.CallStatus
	if in.Retried {
		status += ":retry"
	}
	hash := session.InputHash(in.CallID, in.Speech, in.RecordingURL, status)
	if sess.LastInputHash == hash && sess.LastDecision.Action != "" {
		return sess.LastDecision, nil
	}

	if len(sess.Utterances) == 0 {
		s.logCallEvent(ctx, audit.EventTypeCallStarted, in.Practice.TenantID, in.CallID, "inbound call")
	}

	// A recording with no transcript is offloaded: transcription is too slow
	// to hold the webhook open, so the caller is parked on a poll loop.
	if in.RecordingURL != "" && in.Speech == "" && sess.Step != session.StepGreeting {
		if d, ok := s.offloadTranscription(ctx, in, sess, hash); ok {
			return d, nil
		}
	}

	return s.advanceTurn(ctx, in, sess, hash, in.Speech), nil
}

// HandlePoll serves the redirect continuation for an offloaded task.
func (s *Service) HandlePoll(ctx context.Context, in TurnInput, taskID string) (session.Decision, error) {
	t, err := s.queue.Poll(ctx, taskID)
	if err != nil {
		// Unknown or expired task: recover deterministically instead of
		// trapping the caller in the poll loop.
		sess, serr := s.sessions.GetOrCreate(ctx, in.CallID, in.Practice.TenantID)
		if serr != nil {
			return session.Decision{}, serr
		}
		hash := session.InputHash(in.CallID, "", "", "poll:"+taskID)
		return s.advanceTurn(ctx, in, sess, hash, ""), nil
	}

	switch t.Status {
	case tasks.StatusPending, tasks.StatusProcessing:
		// Each hold cycle speaks, so the caller never sits in dead air.
		return session.Decision{
			Say:    "Please hold just a moment longer.",
			Action: session.ActionRedirect,
			TaskID: taskID,
		}, nil

	case tasks.StatusSuccess:
		var res transcribeResult
		if err := json.Unmarshal(t.Result, &res); err != nil {
			res.Text = ""
		}
		sess, err := s.sessions.GetOrCreate(ctx, in.CallID, in.Practice.TenantID)
		if err != nil {
			return session.Decision{}, err
		}
		hash := session.InputHash(in.CallID, res.Text, "", "poll:"+taskID)
		if sess.LastInputHash == hash && sess.LastDecision.Action != "" {
			return sess.LastDecision, nil
		}
		return s.advanceTurn(ctx, in, sess, hash, res.Text), nil

	default: // FAILURE
		sess, err := s.sessions.GetOrCreate(ctx, in.CallID, in.Practice.TenantID)
		if err != nil {
			return session.Decision{}, err
		}
		hash := session.InputHash(in.CallID, "", "", "pollfail:"+taskID)
		return s.advanceTurn(ctx, in, sess, hash, ""), nil
	}
}

// advanceTurn runs the deterministic machine for one turn and overlays the
// AI phrasing when it is confident enough.
func (s *Service) advanceTurn(ctx context.Context, in TurnInput, sess *session.CallSession, hash, speech string) session.Decision {
	now := s.clock().UTC()
	p := in.Practice

	// Opening turn: greet and ask the first question.
	if sess.Step == session.StepGreeting && speech == "" {
		sess.Step = session.StepCollectName
		d := session.Decision{Say: s.machine.Greeting(p), Action: session.ActionGather}
		return s.commit(ctx, in, sess, hash, d)
	}

	if speech != "" {
		sess.AppendUtterance(session.RoleCaller, speech, now)
	}

	out := s.machine.Advance(sess, speech, in.From)
	if out.Finalize {
		return s.finalize(ctx, in, sess, hash)
	}

	d := session.Decision{Say: out.Say, Action: out.Action}
	if out.Action == session.ActionHangup {
		d.Terminal = true
	}

	// AI overlay: only gathering turns with actual caller speech are worth
	// rephrasing. Any failure keeps the deterministic wording.
	if d.Action == session.ActionGather && speech != "" && s.ai != nil {
		if say, escalate := s.overlay(ctx, p, sess, speech, out.Say); escalate {
			if p.TransferNumber != "" {
				s.logCallEvent(ctx, audit.EventTypeEscalation, p.TenantID, in.CallID, "low-confidence reply, transferring")
				s.publish(ctx, events.KeyCallEscalated, p.TenantID, in.CallID, nil)
				d = session.Decision{
					Say:        "Let me connect you with our front desk.",
					Action:     session.ActionTransfer,
					TransferTo: p.TransferNumber,
					Terminal:   true,
				}
			}
		} else if say != "" {
			d.Say = say
		}
	}

	return s.commit(ctx, in, sess, hash, d)
}

// overlay asks the assistant model to phrase the next line. The returned
// escalate flag means the reply scored below the confidence threshold.
func (s *Service) overlay(ctx context.Context, p tenant.Practice, sess *session.CallSession, speech, deterministic string) (string, bool) {
	reply, err := s.ai.Chat(ctx, ai.ChatRequest{
		SystemPrompt: s.systemPrompt(p, deterministic),
		History:      sess.Utterances,
		UserInput:    speech,
	})
	if err != nil {
		if err != ai.ErrNotConfigured {
			s.log.Warn("assistant reply failed, using deterministic prompt",
				"call_id", sess.CallID, "error", err)
		}
		return "", false
	}
	if s.scorer.Escalate(reply, s.threshold(p)) {
		return "", true
	}
	return reply, false
}

func (s *Service) systemPrompt(p tenant.Practice, nextQuestion string) string {
	prompt := fmt.Sprintf(
		"You are a warm, concise phone receptionist for %s, a dental practice. "+
			"Keep replies under two sentences and speakable. "+
			"Acknowledge what the caller said, then ask exactly this: %q",
		p.Name, nextQuestion,
	)
	if p.BusinessHours != "" {
		prompt += " Business hours: " + p.BusinessHours + "."
	}
	if p.Services != "" {
		prompt += " Services offered: " + p.Services + "."
	}
	return prompt
}

func (s *Service) threshold(p tenant.Practice) float64 {
	if p.ConfidenceThreshold > 0 {
		return p.ConfidenceThreshold
	}
	return s.dialogCfg.ConfidenceThreshold
}

// finalize books the appointment and speaks the confirmation. Redelivered
// finalize turns are safe: the booking layer is idempotent per call.
func (s *Service) finalize(ctx context.Context, in TurnInput, sess *session.CallSession, hash string) session.Decision {
	p := in.Practice

	appt, err := s.finalizer.Finalize(ctx, booking.FinalizeRequest{
		TenantID:       p.TenantID,
		CallID:         sess.CallID,
		PatientName:    sess.Slots[string(extract.SlotName)],
		Phone:          sess.Slots[string(extract.SlotPhone)],
		ServiceType:    sess.Slots[string(extract.SlotType)],
		TimePreference: sess.Slots[string(extract.SlotTime)],
		Urgent:         sess.Urgent,
	})
	if err != nil {
		s.log.Error("booking finalize failed", "call_id", sess.CallID, "error", err)
		d := session.Decision{
			Say:      "I'm sorry, I couldn't complete your booking just now. Let me connect you with our front desk.",
			Action:   session.ActionTransfer,
			Terminal: true,
		}
		if p.TransferNumber != "" {
			d.TransferTo = p.TransferNumber
		} else {
			d.Say = "I'm sorry, I couldn't complete your booking just now. Please call back in a few minutes."
			d.Action = session.ActionHangup
		}
		return s.commit(ctx, in, sess, hash, d)
	}

	sess.ConfirmationCode = appt.ConfirmationCode
	sess.Step = session.StepTerminal

	d := session.Decision{
		Say:      s.machine.ConfirmationLine(sess),
		Action:   session.ActionHangup,
		Terminal: true,
	}

	if err := s.auditor.LogBooking(ctx, p.TenantID, sess.CallID, appt.ConfirmationCode); err != nil {
		s.log.Warn("audit write failed", "call_id", sess.CallID, "error", err)
	}
	payload, _ := json.Marshal(appt)
	s.publish(ctx, events.KeyBookingCreated, p.TenantID, sess.CallID, payload)
	s.enqueueConfirmationSMS(ctx, appt)

	return s.commit(ctx, in, sess, hash, d)
}

func (s *Service) enqueueConfirmationSMS(ctx context.Context, appt booking.Appointment) {
	if appt.Phone == "" {
		return
	}
	body := fmt.Sprintf(
		"Your %s appointment is booked for the %s. Confirmation code: %s.",
		appt.ServiceType, appt.TimePreference, appt.ConfirmationCode,
	)
	payload, _ := json.Marshal(smsPayload{To: appt.Phone, Body: body})
	if _, err := s.queue.Submit(ctx, TaskSendSMS, payload); err != nil {
		s.log.Warn("confirmation sms enqueue failed",
			"call_id", appt.CallID, "error", err)
	}
}

func (s *Service) offloadTranscription(ctx context.Context, in TurnInput, sess *session.CallSession, hash string) (session.Decision, bool) {
	payload, _ := json.Marshal(transcribePayload{
		TenantID:     in.Practice.TenantID,
		CallID:       in.CallID,
		RecordingURL: in.RecordingURL,
	})
	taskID, err := s.queue.Submit(ctx, TaskTranscribeTurn, payload)
	if err != nil {
		s.log.Warn("transcription offload failed, treating turn as silence",
			"call_id", in.CallID, "error", err)
		return session.Decision{}, false
	}
	d := session.Decision{
		Say:    "One moment, please.",
		Action: session.ActionRedirect,
		TaskID: taskID,
	}
	return s.commit(ctx, in, sess, hash, d), true
}

// endCall handles the provider's terminal status callback: record the
// outcome and drop the session.
func (s *Service) endCall(ctx context.Context, in TurnInput) (session.Decision, error) {
	p := in.Practice

	sess, err := s.sessions.GetOrCreate(ctx, in.CallID, p.TenantID)
	if err != nil {
		return session.Decision{}, err
	}

	outcome := calls.OutcomeAbandoned
	if sess.Step == session.StepTerminal {
		outcome = calls.OutcomeBooked
	}
	s.recordCall(ctx, in, sess, calls.CallStatusCompleted, outcome)
	s.logCallEvent(ctx, audit.EventTypeCallEnded, p.TenantID, in.CallID, string(outcome))
	s.publish(ctx, events.KeyCallCompleted, p.TenantID, in.CallID, nil)

	if err := s.sessions.Delete(ctx, in.CallID); err != nil {
		s.log.Warn("session delete failed", "call_id", in.CallID, "error", err)
	}

	return session.Decision{Action: session.ActionHangup, Terminal: true}, nil
}

// commit is the single exit point of a turn: record the assistant line,
// cache the decision for duplicate delivery, persist, and update the call
// log. Persistence failures are logged but never break the spoken reply.
func (s *Service) commit(ctx context.Context, in TurnInput, sess *session.CallSession, hash string, d session.Decision) session.Decision {
	now := s.clock().UTC()
	if d.Say != "" {
		sess.AppendUtterance(session.RoleAssistant, d.Say, now)
	}
	sess.LastInputHash = hash
	sess.LastDecision = d

	if err := s.sessions.Save(ctx, sess); err != nil {
		s.log.Error("session save failed", "call_id", sess.CallID, "error", err)
	}

	status := calls.CallStatusInProgress
	outcome := calls.CallOutcome("")
	if d.Terminal {
		status = calls.CallStatusCompleted
		switch {
		case sess.Step == session.StepTerminal:
			outcome = calls.OutcomeBooked
		case d.Action == session.ActionTransfer:
			outcome = calls.OutcomeTransferred
		default:
			outcome = calls.OutcomeAbandoned
		}
	}
	s.recordCall(ctx, in, sess, status, outcome)

	return d
}

func (s *Service) recordCall(ctx context.Context, in TurnInput, sess *session.CallSession, status calls.CallStatus, outcome calls.CallOutcome) {
	turns := 0
	for _, u := range sess.Utterances {
		if u.Role == session.RoleCaller {
			turns++
		}
	}
	c := calls.Call{
		CallID:           sess.CallID,
		ProviderCallID:   in.CallID,
		TenantID:         in.Practice.TenantID,
		From:             in.From,
		To:               in.To,
		Status:           status,
		Outcome:          outcome,
		Turns:            turns,
		Urgent:           sess.Urgent,
		ConfirmationCode: sess.ConfirmationCode,
		CreatedAt:        sess.CreatedAt,
		UpdatedAt:        s.clock().UTC(),
	}
	if err := s.callLog.Upsert(ctx, c); err != nil {
		s.log.Warn("call log write failed", "call_id", sess.CallID, "error", err)
	}
}

func (s *Service) logCallEvent(ctx context.Context, typ audit.EventType, tenantID, callID, msg string) {
	if err := s.auditor.LogCall(ctx, typ, tenantID, callID, msg); err != nil {
		s.log.Warn("audit write failed", "call_id", callID, "error", err)
	}
}

func (s *Service) publish(ctx context.Context, key, tenantID, callID string, payload json.RawMessage) {
	err := s.pub.Publish(ctx, key, events.Envelope{
		Kind:     key,
		TenantID: tenantID,
		CallID:   callID,
		Payload:  payload,
	})
	if err != nil {
		s.log.Warn("event publish failed", "key", key, "call_id", callID, "error", err)
	}
}

func isFinalCallStatus(status string) bool {
	switch status {
	case "completed", "busy", "failed", "no-answer", "canceled":
		return true
	default:
		return false
	}
}
