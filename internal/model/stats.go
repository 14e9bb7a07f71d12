package model

import "time"

// ScoredTask is one row of a period score breakdown: all ledger entries for a
// task within the window collapsed to their net score impact.
type ScoredTask struct {
	ID          int64     `json:"id"`
	Title       string    `json:"title"`
	ScoreImpact int       `json:"score_impact"`
	Status      EventType `json:"status"`
	CreatedAt   time.Time `json:"created_at"`
}

type Stats struct {
	Completed      int `json:"completed"`
	Pending        int `json:"pending"`
	Overdue        int `json:"overdue"`
	CompletionRate int `json:"completion_rate"`

	TotalCompleted int `json:"total_completed"`
	TotalMissed    int `json:"total_missed"`
	TotalCreated   int `json:"total_created"`

	ScoreBasedCompletionRate int `json:"score_based_completion_rate"`

	WeeklyScore  int `json:"weekly_score"`
	MonthlyScore int `json:"monthly_score"`
	YearlyScore  int `json:"yearly_score"`

	WeeklyScoredTasks  []ScoredTask `json:"weekly_scored_tasks"`
	MonthlyScoredTasks []ScoredTask `json:"monthly_scored_tasks"`
	YearlyScoredTasks  []ScoredTask `json:"yearly_scored_tasks"`

	LastWeeklyReset  time.Time `json:"last_weekly_reset"`
	LastMonthlyReset time.Time `json:"last_monthly_reset"`
	LastYearlyReset  time.Time `json:"last_yearly_reset"`
}
