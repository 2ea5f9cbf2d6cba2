package session

import (
	"context"
	"testing"
	"time"
)

func TestMemoryStoreGetOrCreateNew(t *testing.T) {
	st := NewMemoryStore()

	s, err := st.GetOrCreate(context.Background(), "CA1", "t1")
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if s.Step != StepGreeting {
		t.Fatalf("expected greeting step, got %s", s.Step)
	}
	if s.CallID != "CA1" || s.TenantID != "t1" {
		t.Fatalf("unexpected identity: %+v", s)
	}
}

func TestMemoryStoreRoundTrip(t *testing.T) {
	st := NewMemoryStore()
	ctx := context.Background()

	s, _ := st.GetOrCreate(ctx, "CA1", "t1")
	s.Step = StepCollectPhone
	s.SetSlot("name", "Jane Doe")
	s.AppendUtterance(RoleCaller, "my name is Jane Doe", time.Now())
	if err := st.Save(ctx, s); err != nil {
		t.Fatalf("save: %v", err)
	}

	// Mutating the saved pointer must not leak into the store.
	s.Slots["name"] = "clobbered"

	got, err := st.GetOrCreate(ctx, "CA1", "t1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Step != StepCollectPhone {
		t.Fatalf("expected persisted step, got %s", got.Step)
	}
	if got.Slots["name"] != "Jane Doe" {
		t.Fatalf("expected stored slot isolated from caller mutation, got %q", got.Slots["name"])
	}
	if len(got.Utterances) != 1 {
		t.Fatalf("expected 1 utterance, got %d", len(got.Utterances))
	}
}

func TestMemoryStoreRejectsTenantMismatch(t *testing.T) {
	st := NewMemoryStore()
	ctx := context.Background()

	s, _ := st.GetOrCreate(ctx, "CA1", "t1")
	_ = st.Save(ctx, s)

	if _, err := st.GetOrCreate(ctx, "CA1", "t2"); err == nil {
		t.Fatalf("expected tenant mismatch error")
	}
}

func TestMemoryStoreDelete(t *testing.T) {
	st := NewMemoryStore()
	ctx := context.Background()

	s, _ := st.GetOrCreate(ctx, "CA1", "t1")
	s.Step = StepConfirm
	_ = st.Save(ctx, s)
	_ = st.Delete(ctx, "CA1")

	got, err := st.GetOrCreate(ctx, "CA1", "t1")
	if err != nil {
		t.Fatalf("expected fresh session after delete, got %v", err)
	}
	if got.Step != StepGreeting {
		t.Fatalf("expected fresh session, got step %s", got.Step)
	}
}

func TestSetSlotNeverOverwrites(t *testing.T) {
	s := New("CA1", "t1", time.Now())
	if !s.SetSlot("name", "Jane Doe") {
		t.Fatalf("expected first set to succeed")
	}
	s.AttemptCount = 1
	if s.SetSlot("name", "Weaker Match") {
		t.Fatalf("expected second set rejected")
	}
	if s.Slots["name"] != "Jane Doe" {
		t.Fatalf("slot overwritten: %q", s.Slots["name"])
	}
}

func TestSetSlotResetsAttempts(t *testing.T) {
	s := New("CA1", "t1", time.Now())
	s.AttemptCount = 2
	s.SetSlot("phone", "5551234567")
	if s.AttemptCount != 0 {
		t.Fatalf("expected attempts reset, got %d", s.AttemptCount)
	}
}

func TestInputHashDistinguishesTurns(t *testing.T) {
	a := InputHash("CA1", "hello", "", "in-progress")
	b := InputHash("CA1", "hello", "", "in-progress")
	c := InputHash("CA1", "goodbye", "", "in-progress")
	if a != b {
		t.Fatalf("identical turns must hash equal")
	}
	if a == c {
		t.Fatalf("different turns must hash differently")
	}
}
