package dialog

import (
	"strings"
	"testing"
	"time"

	"voiceai-platform/internal/extract"
	"voiceai-platform/internal/session"
	"voiceai-platform/internal/tenant"
)

func newTestMachine() *Machine {
	return NewMachine(extract.New(extract.DefaultConfig()), 2)
}

func newTestSession() *session.CallSession {
	s := session.New("CA1", "t1", time.Now())
	s.Step = session.StepCollectName
	return s
}

func speak(s *session.CallSession, text string) {
	s.AppendUtterance(session.RoleCaller, text, time.Now())
}

func TestGreetingUsesPracticeOverride(t *testing.T) {
	m := newTestMachine()

	got := m.Greeting(tenant.Practice{Name: "Bright Smiles", Greeting: "Hello from Bright Smiles!"})
	if !strings.HasPrefix(got, "Hello from Bright Smiles!") {
		t.Fatalf("expected practice greeting, got %q", got)
	}
	if !strings.Contains(got, "your name") {
		t.Fatalf("greeting must ask for the name, got %q", got)
	}

	got = m.Greeting(tenant.Practice{Name: "Bright Smiles"})
	if !strings.Contains(got, "Bright Smiles") {
		t.Fatalf("stock greeting must mention the practice, got %q", got)
	}
}

func TestAdvanceCollectsSlotsInOrder(t *testing.T) {
	m := newTestMachine()
	s := newTestSession()

	speak(s, "my name is jane doe")
	out := m.Advance(s, "my name is jane doe", "+15559990000")
	if s.Step != session.StepCollectPhone {
		t.Fatalf("expected phone step, got %s", s.Step)
	}
	if s.Slots["name"] != "Jane Doe" {
		t.Fatalf("expected name slot, got %q", s.Slots["name"])
	}
	if out.Action != session.ActionGather || !strings.Contains(out.Say, "Jane Doe") {
		t.Fatalf("expected personalized phone question, got %+v", out)
	}

	speak(s, "you can reach me at 555-123-4567")
	m.Advance(s, "you can reach me at 555-123-4567", "+15559990000")
	if s.Slots["phone"] != "5551234567" {
		t.Fatalf("expected normalized phone, got %q", s.Slots["phone"])
	}
	if s.Step != session.StepCollectType {
		t.Fatalf("expected type step, got %s", s.Step)
	}

	speak(s, "i need a cleaning")
	m.Advance(s, "i need a cleaning", "+15559990000")
	if s.Slots["appointment_type"] != extract.TypeCleaning {
		t.Fatalf("expected cleaning, got %q", s.Slots["appointment_type"])
	}

	speak(s, "morning works best")
	out = m.Advance(s, "morning works best", "+15559990000")
	if !out.Finalize {
		t.Fatalf("expected finalize once all slots filled, got %+v", out)
	}
	if s.Step != session.StepConfirm {
		t.Fatalf("expected confirm step, got %s", s.Step)
	}
}

func TestAdvanceExhaustedAttemptsFallBackToDefaults(t *testing.T) {
	m := newTestMachine()
	s := newTestSession()

	vague := "i would like to schedule an appointment please"
	speak(s, vague)
	out := m.Advance(s, vague, "+15559990000")
	if out.Finalize || s.Step != session.StepCollectName {
		t.Fatalf("first miss must re-prompt, got step %s", s.Step)
	}
	if s.AttemptCount != 1 {
		t.Fatalf("expected one failed attempt, got %d", s.AttemptCount)
	}

	speak(s, vague)
	m.Advance(s, vague, "+15559990000")
	if s.Slots["name"] != "Guest" {
		t.Fatalf("expected default name after exhausted attempts, got %q", s.Slots["name"])
	}
	if s.Step != session.StepCollectPhone {
		t.Fatalf("expected advancement after default, got %s", s.Step)
	}
	if s.AttemptCount != 0 {
		t.Fatalf("attempt counter must reset, got %d", s.AttemptCount)
	}
}

func TestAdvancePhoneDefaultUsesCallerNumber(t *testing.T) {
	m := newTestMachine()
	s := newTestSession()
	s.Step = session.StepCollectPhone
	s.Slots["name"] = "Jane"

	vague := "oh i do not remember my number right now sorry"
	speak(s, vague)
	m.Advance(s, vague, "+15551234567")
	speak(s, vague)
	m.Advance(s, vague, "+15551234567")

	if s.Slots["phone"] != "5551234567" {
		t.Fatalf("expected caller number default, got %q", s.Slots["phone"])
	}
}

func TestAdvanceEmergencySetsUrgent(t *testing.T) {
	m := newTestMachine()
	s := newTestSession()
	s.Step = session.StepCollectType
	s.Slots["name"] = "Jane"
	s.Slots["phone"] = "5551234567"

	speak(s, "i have a terrible toothache, it's an emergency")
	out := m.Advance(s, "i have a terrible toothache, it's an emergency", "")
	if !s.Urgent {
		t.Fatalf("expected urgent flag")
	}
	if s.Slots["appointment_type"] != extract.TypeEmergency {
		t.Fatalf("expected emergency type, got %q", s.Slots["appointment_type"])
	}
	if !strings.Contains(out.Say, "urgent") {
		t.Fatalf("expected urgent acknowledgment, got %q", out.Say)
	}
}

func TestConfirmationLine(t *testing.T) {
	m := newTestMachine()
	s := newTestSession()
	s.Slots["name"] = "Jane Doe"
	s.Slots["appointment_type"] = "cleaning"
	s.Slots["time_preference"] = "morning"
	s.ConfirmationCode = "APT-1A2B3C"

	line := m.ConfirmationLine(s)
	for _, want := range []string{"Jane Doe", "cleaning", "morning", "A P T"} {
		if !strings.Contains(line, want) {
			t.Fatalf("confirmation line missing %q: %q", want, line)
		}
	}

	s.Urgent = true
	if !strings.Contains(m.ConfirmationLine(s), "urgent") {
		t.Fatalf("urgent confirmation must mention urgency")
	}
}

func TestAdvanceTerminalHangsUp(t *testing.T) {
	m := newTestMachine()
	s := newTestSession()
	s.Step = session.StepTerminal

	out := m.Advance(s, "hello again", "")
	if out.Action != session.ActionHangup {
		t.Fatalf("expected hangup on terminal session, got %s", out.Action)
	}
}
