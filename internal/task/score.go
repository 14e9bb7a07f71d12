package task

import "taskbeacon/internal/model"

// MissPenalty is the score deducted when a task goes unanswered past its due
// date. Misses deliberately cost more than completions reward.
func MissPenalty(p model.Priority) int {
	switch p {
	case model.PriorityHigh:
		return 20
	case model.PriorityMedium:
		return 10
	default:
		return 4
	}
}

// CompletionReward is the score credited when a task is completed.
func CompletionReward(p model.Priority) int {
	switch p {
	case model.PriorityHigh:
		return 10
	case model.PriorityMedium:
		return 5
	default:
		return 2
	}
}
