// Package queue defines the task activity messages exchanged over the
// broker and the background consumer that records them.
package queue

// Activity actions carried in TaskActivityEvent.Action.
const (
	ActionTaskCreated   = "task.created"
	ActionStatusChanged = "task.status_changed"
	ActionTaskShared    = "task.shared"
)

// TaskActivityEvent is published after a task is created, changes status
// or is shared. It carries enough to log or notify without querying the
// primary database.
type TaskActivityEvent struct {
	Action     string `json:"action"`
	TaskID     uint64 `json:"task_id"`
	Title      string `json:"title"`
	Status     string `json:"status"`
	ActorID    uint64 `json:"actor_id"`
	TargetID   uint64 `json:"target_id,omitempty"` // share grantee, when applicable
	OccurredAt string `json:"occurred_at"`
}

// ActivityQueueName is the durable queue both publisher and consumer
// declare.
const ActivityQueueName = "task.activity"
