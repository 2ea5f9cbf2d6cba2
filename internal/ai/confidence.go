package ai

import "strings"

// Confidence scoring is a heuristic: the chat service gives us no usable
// signal of its own, so replies are scored on surface features. The exact
// weights and phrase lists are tunable configuration; only the clamp range
// is fixed.

type ScoreConfig struct {
	Base float64

	ShortReplyLen     int
	ShortReplyPenalty float64

	DeflectionPhrases []string
	DeflectionPenalty float64

	SchedulingTerms []string
	SchedulingBonus float64
}

func DefaultScoreConfig() ScoreConfig {
	return ScoreConfig{
		Base: 0.8,

		ShortReplyLen:     20,
		ShortReplyPenalty: 0.2,

		DeflectionPhrases: []string{
			"i'm sorry", "i don't understand", "could you repeat",
			"can you clarify", "i'm not sure",
		},
		DeflectionPenalty: 0.3,

		SchedulingTerms: []string{
			"appointment", "schedule", "available", "book", "confirm",
			"monday", "tuesday", "wednesday", "thursday", "friday",
			"morning", "afternoon", "evening", "am", "pm",
		},
		SchedulingBonus: 0.1,
	}
}

type Scorer struct {
	cfg ScoreConfig
}

func NewScorer(cfg ScoreConfig) *Scorer {
	return &Scorer{cfg: cfg}
}

// Score rates one assistant reply in [0.1, 1.0].
func (s *Scorer) Score(reply string) float64 {
	score := s.cfg.Base
	lower := strings.ToLower(strings.TrimSpace(reply))

	if len(lower) < s.cfg.ShortReplyLen {
		score -= s.cfg.ShortReplyPenalty
	}
	for _, phrase := range s.cfg.DeflectionPhrases {
		if strings.Contains(lower, phrase) {
			score -= s.cfg.DeflectionPenalty
			break
		}
	}
	for _, term := range s.cfg.SchedulingTerms {
		if containsWord(lower, term) {
			score += s.cfg.SchedulingBonus
			break
		}
	}

	if score < 0.1 {
		return 0.1
	}
	if score > 1.0 {
		return 1.0
	}
	return score
}

// Escalate decides whether a scored reply may be spoken or must hand off to
// a human. Below-threshold replies are never spoken.
func (s *Scorer) Escalate(reply string, threshold float64) bool {
	return s.Score(reply) < threshold
}

// containsWord avoids substring hits like "am" inside "name": scheduling
// terms must appear as standalone words.
func containsWord(s, word string) bool {
	idx := 0
	for {
		i := strings.Index(s[idx:], word)
		if i < 0 {
			return false
		}
		start := idx + i
		end := start + len(word)
		leftOK := start == 0 || !isLetter(s[start-1])
		rightOK := end == len(s) || !isLetter(s[end])
		if leftOK && rightOK {
			return true
		}
		idx = start + 1
	}
}

func isLetter(b byte) bool {
	return (b >= 'a' && b <= 'z') || (b >= 'A' && b <= 'Z')
}
