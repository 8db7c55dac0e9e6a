package types

// Metric names a daily accumulator
type Metric string

const (
	MetricActiveScreenTime Metric = "active_screen_time"
	MetricWorkTime         Metric = "work_time"
	MetricBreakTime        Metric = "break_time"
)

// AllMetrics lists every daily accumulator
var AllMetrics = []Metric{MetricActiveScreenTime, MetricWorkTime, MetricBreakTime}

// DailyAccumulator is the persisted {day, seconds} record for one metric
type DailyAccumulator struct {
	Metric  Metric `json:"metric"`
	Day     int64  `json:"day"` // local midnight, epoch ms
	Seconds int64  `json:"seconds"`
}

// DailyTotals are today's accumulator values
type DailyTotals struct {
	Day              int64 `json:"day"`
	ActiveScreenTime int64 `json:"activeScreenTime"`
	WorkTime         int64 `json:"workTime"`
	BreakTime        int64 `json:"breakTime"`
}

type BreakAdherence struct {
	BreaksTaken     int64   `json:"breaksTaken"`
	SuggestedBreaks int64   `json:"suggestedBreaks"`
	Ratio           float64 `json:"ratio"`
}

// Scores are the derived heuristics, each in 0..100
type Scores struct {
	Productivity int            `json:"productivity"`
	Wellness     int            `json:"wellness"`
	Focus        int            `json:"focus"`
	EyeStrain    int            `json:"eyeStrain"`
	Breaks       BreakAdherence `json:"breaks"`
}

type ActivityType string

const (
	ActivityWork  ActivityType = "work"
	ActivityBreak ActivityType = "break"
	ActivityIdle  ActivityType = "idle"
	ActivityAway  ActivityType = "away"
)

type HeartbeatDetails struct {
	EventsLastMinute  int   `json:"eventsLastMinute"`
	IsIdle            bool  `json:"isIdle"`
	Phase             Phase `json:"phase"`
	ProductivityScore int   `json:"productivityScore"`
}

// ActivityHeartbeat is a once-per-minute activity log entry
type ActivityHeartbeat struct {
	ID           string           `json:"id"`
	ProfileID    string           `json:"profileId"`
	ActivityType ActivityType     `json:"activityType"`
	Timestamp    int64            `json:"timestamp"`
	Details      HeartbeatDetails `json:"details"`
}
