package session

import (
	"crypto/sha256"
	"encoding/hex"
	"time"
)

// CallSession is the per-call conversation state reconstructed on every
// stateless webhook turn.
//
// Invariants:
// - Exactly one tenant per session.
// - Step only advances forward or stays; it never regresses.
// - A filled slot is never silently overwritten by a weaker extraction.
// - AttemptCount resets to zero whenever the current step's slot fills.
type CallSession struct {
	CallID   string `json:"call_id"`
	TenantID string `json:"tenant_id"`

	Step Step `json:"step"`

	Slots        map[string]string `json:"slots"`
	Urgent       bool              `json:"urgent"`
	AttemptCount int               `json:"attempt_count"`

	Utterances []Utterance `json:"utterances"`

	// LastInputHash and LastDecision make duplicate webhook delivery
	// idempotent: replaying the turn that produced LastInputHash returns
	// LastDecision without mutating the session again.
	LastInputHash string   `json:"last_input_hash,omitempty"`
	LastDecision  Decision `json:"last_decision,omitempty"`

	// ConfirmationCode is set once the booking finalizes.
	ConfirmationCode string `json:"confirmation_code,omitempty"`

	CreatedAt     time.Time `json:"created_at"`
	LastUpdatedAt time.Time `json:"last_updated_at"`
}

// Step enumerates the dialogue states. The zero value is StepGreeting.
type Step string

const (
	StepGreeting     Step = "GREETING"
	StepCollectName  Step = "COLLECT_NAME"
	StepCollectPhone Step = "COLLECT_PHONE"
	StepCollectType  Step = "COLLECT_TYPE"
	StepCollectTime  Step = "COLLECT_TIME"
	StepConfirm      Step = "CONFIRM"
	StepTerminal     Step = "TERMINAL"
)

// Role identifies who produced an utterance.
type Role string

const (
	RoleCaller    Role = "caller"
	RoleAssistant Role = "assistant"
)

type Utterance struct {
	Role Role      `json:"role"`
	Text string    `json:"text"`
	At   time.Time `json:"at"`
}

// NextAction is what the telephony layer should do after speaking.
type NextAction string

const (
	ActionGather   NextAction = "gather"
	ActionTransfer NextAction = "transfer"
	ActionHangup   NextAction = "hangup"
	ActionRedirect NextAction = "redirect"
)

// Decision is the orchestrator output for one turn, cached on the session
// for duplicate delivery.
type Decision struct {
	Say      string     `json:"say"`
	Action   NextAction `json:"action"`
	Terminal bool       `json:"terminal"`

	// TransferTo is set when Action == transfer.
	TransferTo string `json:"transfer_to,omitempty"`
	// TaskID is set when Action == redirect (poll continuation).
	TaskID string `json:"task_id,omitempty"`
}

func New(callID, tenantID string, now time.Time) *CallSession {
	return &CallSession{
		CallID:        callID,
		TenantID:      tenantID,
		Step:          StepGreeting,
		Slots:         map[string]string{},
		CreatedAt:     now.UTC(),
		LastUpdatedAt: now.UTC(),
	}
}

// CallerText joins all caller utterances into the extraction corpus.
func (s *CallSession) CallerText() string {
	var out string
	for _, u := range s.Utterances {
		if u.Role != RoleCaller {
			continue
		}
		if out != "" {
			out += " "
		}
		out += u.Text
	}
	return out
}

// AppendUtterance records a turn fragment; the list is append-only.
func (s *CallSession) AppendUtterance(role Role, text string, now time.Time) {
	s.Utterances = append(s.Utterances, Utterance{Role: role, Text: text, At: now.UTC()})
	s.LastUpdatedAt = now.UTC()
}

// SetSlot fills a slot only if it is currently empty and resets the attempt
// counter. A later, weaker extraction must not clobber an earlier value.
func (s *CallSession) SetSlot(name, value string) bool {
	if value == "" {
		return false
	}
	if existing := s.Slots[name]; existing != "" {
		return false
	}
	s.Slots[name] = value
	s.AttemptCount = 0
	return true
}

// InputHash fingerprints one logical turn for duplicate-delivery detection.
func InputHash(callID, speech, recordingURL, callStatus string) string {
	h := sha256.Sum256([]byte(callID + "\x00" + speech + "\x00" + recordingURL + "\x00" + callStatus))
	return hex.EncodeToString(h[:8])
}
