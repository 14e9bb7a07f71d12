package stats

import (
	"math"
	"sort"
	"time"

	"taskbeacon/internal/model"
	"taskbeacon/internal/store"
	"taskbeacon/internal/task"
)

// Aggregator computes the per-user score and completion summary from the
// ledgers and the live task list. It holds no state of its own: every call
// recomputes the windows from scratch.
type Aggregator struct {
	tasks  *task.Service
	ledger *store.LedgerStore
	now    func() time.Time
}

func NewAggregator(tasks *task.Service, ledger *store.LedgerStore) *Aggregator {
	return &Aggregator{tasks: tasks, ledger: ledger, now: time.Now}
}

// window is a half-open interval [start, next).
type window struct {
	start time.Time
	next  time.Time
}

func (w window) contains(t time.Time) bool {
	return !t.Before(w.start) && t.Before(w.next)
}

// weekWindow returns the local Sunday-to-Sunday week containing now.
func weekWindow(now time.Time) window {
	day := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	start := day.AddDate(0, 0, -int(day.Weekday()))
	return window{start: start, next: start.AddDate(0, 0, 7)}
}

func monthWindow(now time.Time) window {
	start := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, now.Location())
	return window{start: start, next: start.AddDate(0, 1, 0)}
}

func yearWindow(now time.Time) window {
	start := time.Date(now.Year(), time.January, 1, 0, 0, 0, 0, now.Location())
	return window{start: start, next: start.AddDate(1, 0, 0)}
}

// Stats builds the full summary for one user. Listing the tasks first runs
// the miss-detection sweep, so the ledgers are current before they are read.
func (a *Aggregator) Stats(userID int64) (*model.Stats, error) {
	tasks, err := a.tasks.List(userID, task.Filters{})
	if err != nil {
		return nil, err
	}

	entries, err := a.ledger.ListScoreByUser(userID)
	if err != nil {
		return nil, err
	}

	totalCompleted, err := a.ledger.CountAnalyticsByType(userID, model.EventCompleted)
	if err != nil {
		return nil, err
	}
	totalMissed, err := a.ledger.CountAnalyticsByType(userID, model.EventMissed)
	if err != nil {
		return nil, err
	}
	totalCreated, err := a.ledger.CountAnalyticsByType(userID, model.EventCreated)
	if err != nil {
		return nil, err
	}

	var completed, pending int
	for _, t := range tasks {
		switch t.Status {
		case model.StatusCompleted:
			completed++
		case model.StatusPending:
			pending++
		}
	}

	// The all-time missed count is the overdue figure: a miss stays counted
	// even after the task is rescheduled or deleted.
	overdue := totalMissed
	rate := 0
	if scored := completed + overdue; scored > 0 {
		rate = int(math.Round(float64(completed) / float64(scored) * 100))
		if rate > 100 {
			rate = 100
		}
	}

	now := a.now()
	week := weekWindow(now)
	month := monthWindow(now)
	year := yearWindow(now)

	weekly := filterWindow(entries, week)
	monthly := filterWindow(entries, month)
	yearly := filterWindow(entries, year)

	return &model.Stats{
		Completed:                completed,
		Pending:                  pending,
		Overdue:                  overdue,
		CompletionRate:           rate,
		TotalCompleted:           totalCompleted,
		TotalMissed:              totalMissed,
		TotalCreated:             totalCreated,
		ScoreBasedCompletionRate: rate,
		WeeklyScore:              netScore(weekly),
		MonthlyScore:             netScore(monthly),
		YearlyScore:              netScore(yearly),
		WeeklyScoredTasks:        collapseByTask(weekly),
		MonthlyScoredTasks:       collapseByTask(monthly),
		YearlyScoredTasks:        collapseByTask(yearly),
		LastWeeklyReset:          week.start,
		LastMonthlyReset:         month.start,
		LastYearlyReset:          year.start,
	}, nil
}

func filterWindow(entries []model.ScoreEntry, w window) []model.ScoreEntry {
	var out []model.ScoreEntry
	for _, e := range entries {
		if w.contains(e.RecordedAt) {
			out = append(out, e)
		}
	}
	return out
}

// netScore sums a window: completions add their amount, misses subtract
// theirs. Reversal entries carry the missed type so they subtract too.
func netScore(entries []model.ScoreEntry) int {
	sum := 0
	for _, e := range entries {
		switch e.Type {
		case model.EventCompleted:
			sum += e.ScoreAmount
		case model.EventMissed:
			sum -= e.ScoreAmount
		}
	}
	return sum
}

// collapseByTask folds a window's entries into one summary per task: the net
// signed amount, the type of the task's latest entry, and the latest
// contributing timestamp. Entries arrive in recorded order, so the last one
// seen per task wins. Output is sorted newest first.
func collapseByTask(entries []model.ScoreEntry) []model.ScoredTask {
	byTask := make(map[int64]*model.ScoredTask)
	var order []int64
	for _, e := range entries {
		amount := e.ScoreAmount
		if e.Type == model.EventMissed {
			amount = -amount
		}
		st, ok := byTask[e.TaskID]
		if !ok {
			byTask[e.TaskID] = &model.ScoredTask{
				ID:          e.TaskID,
				Title:       e.TaskTitle,
				ScoreImpact: amount,
				Status:      e.Type,
				CreatedAt:   e.RecordedAt,
			}
			order = append(order, e.TaskID)
			continue
		}
		st.ScoreImpact += amount
		st.Status = e.Type
		if e.RecordedAt.After(st.CreatedAt) {
			st.CreatedAt = e.RecordedAt
		}
	}

	out := make([]model.ScoredTask, 0, len(order))
	for _, id := range order {
		out = append(out, *byTask[id])
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out
}
