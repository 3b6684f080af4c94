package dto

import "github.com/noah-isme/sma-wellness-api/internal/models"

// MoodCheckinRequest captures POST /moods.
type MoodCheckinRequest struct {
	Mood    models.Mood `json:"mood" validate:"required,oneof=happy good neutral sad angry"`
	Note    *string     `json:"note" validate:"omitempty,max=1000"`
	Answer1 *int        `json:"answer_1" validate:"omitempty,min=1,max=5"`
	Answer2 *int        `json:"answer_2" validate:"omitempty,min=1,max=5"`
	Answer3 *int        `json:"answer_3" validate:"omitempty,min=1,max=5"`
}

// MoodCheckinResponse returns the stored entry and any alerts raised.
type MoodCheckinResponse struct {
	Entry          models.MoodEntry `json:"entry"`
	PatternAlert   bool             `json:"pattern_alert_created"`
	DistressAlert  bool             `json:"distress_alert_created"`
	Recommendation string           `json:"recommendation"`
}

// MoodHistoryQuery captures GET /moods.
type MoodHistoryQuery struct {
	Limit int `form:"limit" validate:"omitempty,min=1,max=90"`
}
