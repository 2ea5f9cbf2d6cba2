package extract

import (
	"regexp"
	"strings"
)

// Extractor pulls structured booking fields out of free-text caller
// utterances. It never fails: absence of a match is a zero Result, which the
// dialogue machine treats as a failed attempt.
//
// Rules are applied in priority order; first match wins. Keyword lists are
// configuration (see Config), not behavior baked into this file.

type Extractor struct {
	cfg Config

	namePatterns    []*regexp.Regexp
	phonePatterns   []*regexp.Regexp
	meridiemPattern *regexp.Regexp
}

// Slot identifies a single structured field the dialogue must collect.
type Slot string

const (
	SlotName  Slot = "name"
	SlotPhone Slot = "phone"
	SlotType  Slot = "appointment_type"
	SlotTime  Slot = "time_preference"
)

// Result is the outcome of one extraction attempt.
type Result struct {
	Value string
	Found bool

	// Urgent is set only for SlotType when emergency keywords matched.
	Urgent bool
}

func New(cfg Config) *Extractor {
	e := &Extractor{cfg: cfg}
	e.namePatterns = []*regexp.Regexp{
		regexp.MustCompile(`(?i)(?:my name is|this is|i'?m|i am)\s+([a-zA-Z]+(?:\s+[a-zA-Z]+)?)`),
	}
	e.phonePatterns = []*regexp.Regexp{
		regexp.MustCompile(`(\d{3})[-.\s]?(\d{3})[-.\s]?(\d{4})`),
		regexp.MustCompile(`\((\d{3})\)\s*(\d{3})[-.\s]?(\d{4})`),
	}
	// am/pm counts only next to a clock time; bare "am" is almost always the
	// verb ("I am hoping for the afternoon").
	e.meridiemPattern = regexp.MustCompile(`\b\d{1,2}(?::\d{2})?\s*([ap])\.?m\b`)
	return e
}

// Extract runs the rule set for one slot against the accumulated caller text.
// latest is the most recent utterance; corpus is all caller turns joined.
func (e *Extractor) Extract(slot Slot, latest, corpus string) Result {
	switch slot {
	case SlotName:
		return e.extractName(latest, corpus)
	case SlotPhone:
		return e.extractPhone(corpus)
	case SlotType:
		return e.extractType(corpus)
	case SlotTime:
		return e.extractTime(corpus)
	default:
		return Result{}
	}
}

func (e *Extractor) extractName(latest, corpus string) Result {
	for _, p := range e.namePatterns {
		if m := p.FindStringSubmatch(corpus); m != nil {
			if cand := e.cleanName(m[1]); cand != "" {
				return Result{Value: cand, Found: true}
			}
		}
	}

	// A short bare utterance is treated as a literal name candidate:
	// callers often answer "Jane Doe" with no framing at all.
	bare := strings.TrimSpace(latest)
	words := strings.Fields(bare)
	if len(words) >= 1 && len(words) <= 3 {
		if cand := e.cleanName(bare); cand != "" {
			return Result{Value: cand, Found: true}
		}
	}
	return Result{}
}

// cleanName title-cases a candidate and rejects spans that captured
// surrounding chatter rather than an actual name.
func (e *Extractor) cleanName(cand string) string {
	cand = strings.TrimSpace(strings.Trim(cand, ".,!?"))
	if cand == "" {
		return ""
	}
	lower := strings.ToLower(cand)
	for _, w := range e.cfg.NameFillerWords {
		if strings.Contains(lower, w) {
			return ""
		}
	}
	for _, r := range cand {
		if !isNameRune(r) {
			return ""
		}
	}
	return titleCase(cand)
}

func (e *Extractor) extractPhone(corpus string) Result {
	for _, p := range e.phonePatterns {
		if m := p.FindStringSubmatch(corpus); m != nil {
			// Normalize to a bare 10-digit string.
			return Result{Value: m[1] + m[2] + m[3], Found: true}
		}
	}
	return Result{}
}

func (e *Extractor) extractType(corpus string) Result {
	lower := strings.ToLower(corpus)

	// Emergency first: it also raises the urgent flag consumed downstream.
	if containsAny(lower, e.cfg.EmergencyKeywords) {
		return Result{Value: TypeEmergency, Found: true, Urgent: true}
	}
	if containsAny(lower, e.cfg.CleaningKeywords) {
		return Result{Value: TypeCleaning, Found: true}
	}
	if containsAny(lower, e.cfg.CheckupKeywords) {
		return Result{Value: TypeCheckup, Found: true}
	}
	if containsAny(lower, e.cfg.ConsultationKeywords) {
		return Result{Value: TypeConsultation, Found: true}
	}
	return Result{}
}

func (e *Extractor) extractTime(corpus string) Result {
	lower := strings.ToLower(corpus)
	if containsAnyWord(lower, e.cfg.MorningKeywords) {
		return Result{Value: TimeMorning, Found: true}
	}
	if containsAnyWord(lower, e.cfg.AfternoonKeywords) {
		return Result{Value: TimeAfternoon, Found: true}
	}
	if m := e.meridiemPattern.FindStringSubmatch(lower); m != nil {
		if m[1] == "a" {
			return Result{Value: TimeMorning, Found: true}
		}
		return Result{Value: TimeAfternoon, Found: true}
	}
	return Result{}
}

// Default returns the value a slot falls back to once its attempts are
// exhausted. callerNumber seeds the phone default.
func (e *Extractor) Default(slot Slot, callerNumber string) string {
	switch slot {
	case SlotName:
		return e.cfg.DefaultName
	case SlotPhone:
		return digitsOnly(callerNumber)
	case SlotType:
		return e.cfg.DefaultType
	case SlotTime:
		return e.cfg.DefaultTime
	default:
		return ""
	}
}

func containsAny(s string, words []string) bool {
	for _, w := range words {
		if strings.Contains(s, w) {
			return true
		}
	}
	return false
}

// containsAnyWord matches keywords as standalone words only, so "morning"
// never fires on "this morning's caller said am" style substrings.
func containsAnyWord(s string, words []string) bool {
	fields := strings.FieldsFunc(s, func(r rune) bool {
		return (r < 'a' || r > 'z') && (r < '0' || r > '9')
	})
	for _, f := range fields {
		for _, w := range words {
			if f == w {
				return true
			}
		}
	}
	return false
}

func isNameRune(r rune) bool {
	switch {
	case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z':
		return true
	case r == ' ', r == '\'', r == '-':
		return true
	default:
		return false
	}
}

func titleCase(s string) string {
	words := strings.Fields(strings.ToLower(s))
	for i, w := range words {
		words[i] = strings.ToUpper(w[:1]) + w[1:]
	}
	return strings.Join(words, " ")
}

func digitsOnly(s string) string {
	var b strings.Builder
	for _, r := range s {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	d := b.String()
	// Strip a leading US country code so stored phones are uniform.
	if len(d) == 11 && d[0] == '1' {
		d = d[1:]
	}
	return d
}
