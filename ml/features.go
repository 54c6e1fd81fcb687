package ml

// Features is one day of self-reported work habits, in the shape the
// prediction form submits it.
type Features struct {
	WorkHours  float64
	ScreenTime float64
	Meetings   int
	Breaks     int
	AfterHours int
	Sleep      float64
	TaskRate   float64
}

// LabelColumn is the dataset column holding the burnout-risk label.
const LabelColumn = "burnout_risk"

// FeatureNames returns the dataset columns in the order the classifier
// consumes them. The artifact records this list and LoadModel refuses a
// model trained on a different order.
func FeatureNames() []string {
	return []string{
		"work_hours",
		"screen_time_hours",
		"meetings_count",
		"breaks_taken",
		"after_hours_work",
		"sleep_hours",
		"task_completion_rate",
	}
}

// FeatureVector flattens f into the order given by FeatureNames.
func FeatureVector(f Features) []float64 {
	return []float64{
		f.WorkHours,
		f.ScreenTime,
		float64(f.Meetings),
		float64(f.Breaks),
		float64(f.AfterHours),
		f.Sleep,
		f.TaskRate,
	}
}
