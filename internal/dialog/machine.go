package dialog

import (
	"fmt"
	"strings"

	"voiceai-platform/internal/extract"
	"voiceai-platform/internal/session"
	"voiceai-platform/internal/tenant"
)

// Machine is the deterministic dialogue state machine. It always produces a
// speakable outcome for a turn, regardless of what upstream services do: the
// AI layer may overlay its phrasing, but slot progress and step advancement
// happen here and only here.
type Machine struct {
	extractor   *extract.Extractor
	maxAttempts int
}

// Outcome is the machine's verdict for one caller turn.
type Outcome struct {
	Say    string
	Action session.NextAction

	// Finalize means every slot is filled: the caller of Advance must book
	// the appointment and speak ConfirmationLine.
	Finalize bool
}

func NewMachine(extractor *extract.Extractor, maxAttempts int) *Machine {
	if maxAttempts <= 0 {
		maxAttempts = 2
	}
	return &Machine{extractor: extractor, maxAttempts: maxAttempts}
}

// collectOrder maps each collecting step to its slot and successor.
var collectOrder = map[session.Step]struct {
	slot extract.Slot
	next session.Step
}{
	session.StepCollectName:  {extract.SlotName, session.StepCollectPhone},
	session.StepCollectPhone: {extract.SlotPhone, session.StepCollectType},
	session.StepCollectType:  {extract.SlotType, session.StepCollectTime},
	session.StepCollectTime:  {extract.SlotTime, session.StepConfirm},
}

// Greeting opens the call and asks the first question. The practice's own
// greeting wins when configured.
func (m *Machine) Greeting(p tenant.Practice) string {
	opening := p.Greeting
	if opening == "" {
		name := p.Name
		if name == "" {
			name = "our office"
		}
		opening = fmt.Sprintf("Thank you for calling %s. I can help you schedule an appointment.", name)
	}
	return opening + " " + m.question(session.StepCollectName, nil)
}

// Advance consumes one caller turn and moves the session forward. It mutates
// the session's step, slots, urgency, and attempt counter.
func (m *Machine) Advance(sess *session.CallSession, latest, callerNumber string) Outcome {
	switch sess.Step {
	case session.StepGreeting:
		// The opening webhook carries no speech; Greeting handles it before
		// Advance is ever called. Reaching here means the caller spoke over
		// the greeting, so treat the turn as a name answer.
		sess.Step = session.StepCollectName
		return m.collect(sess, latest, callerNumber)

	case session.StepCollectName, session.StepCollectPhone,
		session.StepCollectType, session.StepCollectTime:
		return m.collect(sess, latest, callerNumber)

	case session.StepConfirm:
		// A previous finalize attempt did not complete; ask for it again.
		return Outcome{Finalize: true}

	case session.StepTerminal:
		return Outcome{
			Say:    "Your appointment is already booked. Thank you for calling. Goodbye!",
			Action: session.ActionHangup,
		}

	default:
		return Outcome{
			Say:    "I'm sorry, something went wrong with this call. Please call back.",
			Action: session.ActionHangup,
		}
	}
}

func (m *Machine) collect(sess *session.CallSession, latest, callerNumber string) Outcome {
	step := collectOrder[sess.Step]

	res := m.extractor.Extract(step.slot, latest, sess.CallerText())
	if res.Urgent {
		sess.Urgent = true
	}

	if res.Found {
		sess.SetSlot(string(step.slot), res.Value)
		return m.advanceFrom(sess, step.next, res.Urgent)
	}

	sess.AttemptCount++
	if sess.AttemptCount >= m.maxAttempts {
		// Attempts exhausted: fall back to the slot default and move on
		// rather than trapping the caller in a loop.
		sess.Slots[string(step.slot)] = m.extractor.Default(step.slot, callerNumber)
		sess.AttemptCount = 0
		return m.advanceFrom(sess, step.next, false)
	}

	return Outcome{Say: m.reprompt(sess.Step), Action: session.ActionGather}
}

func (m *Machine) advanceFrom(sess *session.CallSession, next session.Step, urgent bool) Outcome {
	sess.Step = next
	if next == session.StepConfirm {
		return Outcome{Finalize: true}
	}

	say := m.question(next, sess.Slots)
	if urgent {
		say = "I understand this is urgent, and we'll prioritize your visit. " + say
	}
	return Outcome{Say: say, Action: session.ActionGather}
}

// ConfirmationLine is spoken once the booking has been finalized. It is the
// terminal utterance of a successful call.
func (m *Machine) ConfirmationLine(sess *session.CallSession) string {
	name := sess.Slots[string(extract.SlotName)]
	kind := sess.Slots[string(extract.SlotType)]
	when := sess.Slots[string(extract.SlotTime)]

	line := fmt.Sprintf(
		"You're all set, %s. Your %s appointment is booked for the %s. Your confirmation code is %s.",
		name, kind, when, spellCode(sess.ConfirmationCode),
	)
	if sess.Urgent {
		line += " Since this is urgent, our team will call you back shortly to get you in as soon as possible."
	}
	return line + " Thank you for calling. Goodbye!"
}

func (m *Machine) question(step session.Step, slots map[string]string) string {
	switch step {
	case session.StepCollectName:
		return "May I have your name, please?"
	case session.StepCollectPhone:
		name := ""
		if slots != nil {
			name = slots[string(extract.SlotName)]
		}
		if name != "" {
			return fmt.Sprintf("Thanks, %s. What's the best phone number to reach you?", name)
		}
		return "What's the best phone number to reach you?"
	case session.StepCollectType:
		return "What type of appointment would you like? We offer cleanings, checkups, and consultations."
	case session.StepCollectTime:
		return "Would you prefer a morning or an afternoon appointment?"
	default:
		return ""
	}
}

func (m *Machine) reprompt(step session.Step) string {
	switch step {
	case session.StepCollectName:
		return "I'm sorry, I didn't catch your name. Could you say it again?"
	case session.StepCollectPhone:
		return "I didn't get that number. Could you say your ten digit phone number?"
	case session.StepCollectType:
		return "Sorry, I didn't catch that. Are you calling about a cleaning, a checkup, or a consultation?"
	case session.StepCollectTime:
		return "Sorry, was that morning or afternoon?"
	default:
		return "I'm sorry, could you say that again?"
	}
}

// spellCode spaces out the code characters so text-to-speech reads them one
// by one instead of as a word.
func spellCode(code string) string {
	if code == "" {
		return ""
	}
	return strings.Join(strings.Split(code, ""), " ")
}
