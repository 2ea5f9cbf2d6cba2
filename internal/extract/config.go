package extract

// Canonical slot values. Appointment types and time windows are closed sets;
// the keyword lists that map free text onto them are tunable per deployment.
const (
	TypeCleaning     = "cleaning"
	TypeCheckup      = "checkup"
	TypeConsultation = "consultation"
	TypeEmergency    = "emergency"

	TimeMorning   = "morning"
	TimeAfternoon = "afternoon"
)

// Config carries the keyword lists and fallback defaults for the extractor.
// The shipped defaults mirror observed call transcripts; deployments tune
// them without touching extraction logic.
type Config struct {
	NameFillerWords []string

	CleaningKeywords     []string
	CheckupKeywords      []string
	ConsultationKeywords []string
	EmergencyKeywords    []string

	MorningKeywords   []string
	AfternoonKeywords []string

	DefaultName string
	DefaultType string
	DefaultTime string
}

func DefaultConfig() Config {
	return Config{
		NameFillerWords: []string{
			"calling", "appointment", "schedule", "speaking", "dental",
			"like", "want", "need",
		},

		CleaningKeywords:     []string{"cleaning", "clean"},
		CheckupKeywords:      []string{"checkup", "check up", "check-up", "exam"},
		ConsultationKeywords: []string{"consultation", "consult"},
		EmergencyKeywords:    []string{"emergency", "urgent", "pain"},

		// Bare meridiems are deliberately absent: "am"/"pm" count only
		// beside a clock time, matched structurally by the extractor.
		MorningKeywords:   []string{"morning"},
		AfternoonKeywords: []string{"afternoon", "evening"},

		DefaultName: "Guest",
		DefaultType: TypeCheckup,
		DefaultTime: TimeMorning,
	}
}
