package models

import "time"

// Mood is a daily check-in choice.
type Mood string

const (
	MoodHappy   Mood = "happy"
	MoodGood    Mood = "good"
	MoodNeutral Mood = "neutral"
	MoodSad     Mood = "sad"
	MoodAngry   Mood = "angry"
)

// Negative reports whether the mood counts toward risk patterns.
func (m Mood) Negative() bool {
	return m == MoodSad || m == MoodAngry
}

// MoodEntry is one check-in per user per calendar day.
type MoodEntry struct {
	ID             string    `db:"id" json:"id"`
	UserID         string    `db:"user_id" json:"user_id"`
	EntryDate      time.Time `db:"entry_date" json:"date"`
	Mood           Mood      `db:"mood" json:"mood"`
	Note           *string   `db:"note" json:"note,omitempty"`
	Answer1        *int      `db:"answer_1" json:"answer_1"`
	Answer2        *int      `db:"answer_2" json:"answer_2"`
	Answer3        *int      `db:"answer_3" json:"answer_3"`
	Recommendation string    `db:"recommendation" json:"recommendation"`
	CreatedAt      time.Time `db:"created_at" json:"created_at"`
	UpdatedAt      time.Time `db:"updated_at" json:"updated_at"`
}

// Answers returns the survey answers; ok is false when the survey was skipped.
func (m MoodEntry) Answers() (answers [3]int, ok bool) {
	if m.Answer1 == nil || m.Answer2 == nil || m.Answer3 == nil {
		return answers, false
	}
	return [3]int{*m.Answer1, *m.Answer2, *m.Answer3}, true
}

// MentalHealthPattern records a detected multi-day trend.
type MentalHealthPattern struct {
	ID              string    `db:"id" json:"id"`
	UserID          string    `db:"user_id" json:"user_id"`
	PatternType     string    `db:"pattern_type" json:"pattern_type"`
	ConsecutiveDays int       `db:"consecutive_days" json:"consecutive_days"`
	StartDate       time.Time `db:"start_date" json:"start_date"`
	EndDate         time.Time `db:"end_date" json:"end_date"`
	SeverityScore   float64   `db:"severity_score" json:"severity_score"`
	AlertCreated    bool      `db:"alert_created" json:"alert_created"`
	CreatedAt       time.Time `db:"created_at" json:"created_at"`
}

// PatternTypeWeeklyNegativeMood is the only pattern currently detected.
const PatternTypeWeeklyNegativeMood = "weekly_negative_mood"
