package model

import "time"

// Task statuses. Archived is terminal: once a task is archived the only
// permitted "transition" is the idempotent re-set to archived.
const (
	StatusTodo       = "todo"
	StatusInProgress = "in-progress"
	StatusCompleted  = "completed"
	StatusArchived   = "archived"
)

// Task priorities.
const (
	PriorityLow    = "low"
	PriorityMedium = "medium"
	PriorityHigh   = "high"
)

// AllStatuses lists every status bucket in the order status counts are
// reported; absent buckets report zero.
var AllStatuses = []string{StatusTodo, StatusInProgress, StatusCompleted, StatusArchived}

// Task mirrors the `tasks` table. Tags and SharedWith are stored as JSON
// columns. CategoryID, when set, must reference a category owned by the
// same user as the task.
type Task struct {
	ID             uint64     `json:"id"`
	UserID         uint64     `json:"-"`
	Title          string     `json:"title"`
	Description    string     `json:"description,omitempty"`
	Status         string     `json:"status"`
	Priority       string     `json:"priority"`
	DueDate        *time.Time `json:"dueDate,omitempty"`
	CategoryID     *uint64    `json:"category,omitempty"`
	CategoryName   string     `json:"categoryName,omitempty"`
	CategoryColor  string     `json:"categoryColor,omitempty"`
	Tags           []string   `json:"tags"`
	EstimatedHours *float64   `json:"estimatedHours,omitempty"`
	SharedWith     []uint64   `json:"sharedWith"`
	CreatedAt      time.Time  `json:"createdAt"`
	UpdatedAt      time.Time  `json:"updatedAt"`
}

// StatusCounts reports the number of tasks per status bucket. The counts
// cover the owner's entire task set, not the currently filtered page; the
// API has always exposed them as a dashboard figure.
type StatusCounts struct {
	Todo       uint64 `json:"todo"`
	InProgress uint64 `json:"in-progress"`
	Completed  uint64 `json:"completed"`
	Archived   uint64 `json:"archived"`
}

// ValidStatus reports whether s is a known task status.
func ValidStatus(s string) bool {
	switch s {
	case StatusTodo, StatusInProgress, StatusCompleted, StatusArchived:
		return true
	}
	return false
}

// ValidPriority reports whether p is a known task priority.
func ValidPriority(p string) bool {
	switch p {
	case PriorityLow, PriorityMedium, PriorityHigh:
		return true
	}
	return false
}

// CanTransition reports whether a task currently in `from` may move to
// `to`. Every transition is allowed except leaving archived; re-setting
// an archived task to archived is a permitted no-op.
func CanTransition(from, to string) bool {
	if from == StatusArchived {
		return to == StatusArchived
	}
	return true
}
