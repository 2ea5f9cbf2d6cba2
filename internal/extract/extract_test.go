package extract

import "testing"

func newTestExtractor() *Extractor {
	return New(DefaultConfig())
}

func TestExtractNameFromIntroduction(t *testing.T) {
	e := newTestExtractor()

	cases := []struct {
		in   string
		want string
	}{
		{"my name is Jane Doe", "Jane Doe"},
		{"Hi, this is robert smith", "Robert Smith"},
		{"I'm Alice", "Alice"},
		{"i am carlos", "Carlos"},
	}
	for _, tc := range cases {
		res := e.Extract(SlotName, tc.in, tc.in)
		if !res.Found {
			t.Fatalf("expected name extracted from %q", tc.in)
		}
		if res.Value != tc.want {
			t.Fatalf("input %q: expected %q, got %q", tc.in, tc.want, res.Value)
		}
	}
}

func TestExtractNameBareUtterance(t *testing.T) {
	e := newTestExtractor()

	res := e.Extract(SlotName, "Jane Doe", "Jane Doe")
	if !res.Found || res.Value != "Jane Doe" {
		t.Fatalf("expected bare utterance accepted as name, got %+v", res)
	}
}

func TestExtractNameRejectsFillerWords(t *testing.T) {
	e := newTestExtractor()

	// "calling" indicates the pattern matched surrounding chatter.
	res := e.Extract(SlotName, "", "I'm calling about a cleaning")
	if res.Found {
		t.Fatalf("expected filler-word candidate rejected, got %q", res.Value)
	}

	res = e.Extract(SlotName, "schedule appointment", "schedule appointment")
	if res.Found {
		t.Fatalf("expected filler-word bare utterance rejected, got %q", res.Value)
	}
}

func TestExtractPhoneFormats(t *testing.T) {
	e := newTestExtractor()

	cases := []string{
		"555-123-4567",
		"you can reach me at 555.123.4567 thanks",
		"(555) 123-4567",
		"5551234567",
	}
	for _, in := range cases {
		res := e.Extract(SlotPhone, in, in)
		if !res.Found {
			t.Fatalf("expected phone extracted from %q", in)
		}
		if res.Value != "5551234567" {
			t.Fatalf("input %q: expected normalized 5551234567, got %q", in, res.Value)
		}
	}
}

func TestExtractPhoneNoMatch(t *testing.T) {
	e := newTestExtractor()
	if res := e.Extract(SlotPhone, "no numbers here", "no numbers here"); res.Found {
		t.Fatalf("expected no phone, got %q", res.Value)
	}
}

func TestExtractTypeKeywords(t *testing.T) {
	e := newTestExtractor()

	cases := []struct {
		in         string
		want       string
		wantUrgent bool
	}{
		{"I'd like a cleaning please", TypeCleaning, false},
		{"just a checkup", TypeCheckup, false},
		{"I want a consultation", TypeConsultation, false},
		{"I need an emergency visit", TypeEmergency, true},
		{"I'm in a lot of pain", TypeEmergency, true},
	}
	for _, tc := range cases {
		res := e.Extract(SlotType, tc.in, tc.in)
		if !res.Found {
			t.Fatalf("expected type extracted from %q", tc.in)
		}
		if res.Value != tc.want {
			t.Fatalf("input %q: expected %q, got %q", tc.in, tc.want, res.Value)
		}
		if res.Urgent != tc.wantUrgent {
			t.Fatalf("input %q: expected urgent=%v", tc.in, tc.wantUrgent)
		}
	}
}

func TestExtractTimeKeywords(t *testing.T) {
	e := newTestExtractor()

	res := e.Extract(SlotTime, "afternoon works", "afternoon works")
	if !res.Found || res.Value != TimeAfternoon {
		t.Fatalf("expected afternoon, got %+v", res)
	}

	res = e.Extract(SlotTime, "morning is best", "morning is best")
	if !res.Found || res.Value != TimeMorning {
		t.Fatalf("expected morning, got %+v", res)
	}

	res = e.Extract(SlotTime, "whenever", "whenever")
	if res.Found {
		t.Fatalf("expected no time preference, got %q", res.Value)
	}
}

func TestExtractTimeMeridiemRequiresClockTime(t *testing.T) {
	e := newTestExtractor()

	// "I am" must never read as a morning preference.
	in := "i am hoping for the afternoon"
	res := e.Extract(SlotTime, in, in)
	if !res.Found || res.Value != TimeAfternoon {
		t.Fatalf("expected afternoon from %q, got %+v", in, res)
	}

	in = "i am flexible"
	if res := e.Extract(SlotTime, in, in); res.Found {
		t.Fatalf("expected no time preference from %q, got %q", in, res.Value)
	}

	cases := []struct {
		in   string
		want string
	}{
		{"how about 9 am", TimeMorning},
		{"9am would be great", TimeMorning},
		{"can you do 3:30 p.m tomorrow", TimeAfternoon},
		{"maybe 2pm works", TimeAfternoon},
	}
	for _, tc := range cases {
		res := e.Extract(SlotTime, tc.in, tc.in)
		if !res.Found || res.Value != tc.want {
			t.Fatalf("input %q: expected %q, got %+v", tc.in, tc.want, res)
		}
	}
}

func TestDefaults(t *testing.T) {
	e := newTestExtractor()

	if got := e.Default(SlotType, ""); got != TypeCheckup {
		t.Fatalf("expected checkup default, got %q", got)
	}
	if got := e.Default(SlotTime, ""); got != TimeMorning {
		t.Fatalf("expected morning default, got %q", got)
	}
	if got := e.Default(SlotName, ""); got == "" {
		t.Fatalf("expected non-empty name default")
	}
	if got := e.Default(SlotPhone, "+15551234567"); got != "5551234567" {
		t.Fatalf("expected caller number default, got %q", got)
	}
}
