package models

import "time"

// LogDateLayout is the calendar-date format stored in daily_data.log_date.
const LogDateLayout = "2006-01-02"

// Burnout-risk labels produced by the classifier.
const (
	BurnoutLow    = "Low"
	BurnoutMedium = "Medium"
	BurnoutHigh   = "High"
)

// DailyEntry is one self-reported day plus the label predicted for it.
type DailyEntry struct {
	ID           int64   `json:"id"`
	UserID       string  `json:"user_id"`
	LogDate      string  `json:"log_date"`
	WorkHours    float64 `json:"work_hours"`
	ScreenTime   float64 `json:"screen_time"`
	Meetings     int     `json:"meetings"`
	Breaks       int     `json:"breaks"`
	AfterHours   int     `json:"after_hours"`
	Sleep        float64 `json:"sleep"`
	TaskRate     float64 `json:"task_rate"`
	BurnoutLevel string  `json:"burnout_level"`
}

// TrainingRun records one trainer invocation.
type TrainingRun struct {
	ID           int64     `json:"-"`
	ModelPath    string    `json:"model_path"`
	Accuracy     float64   `json:"accuracy"`
	TrainSamples int       `json:"train_samples"`
	TestSamples  int       `json:"test_samples"`
	TrainedAt    time.Time `json:"trained_at"`
}
