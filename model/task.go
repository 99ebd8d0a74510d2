package model

import "time"

type TaskStatus string

const (
	StatusPending    TaskStatus = "pending"
	StatusInProgress TaskStatus = "in-progress"
	StatusCompleted  TaskStatus = "completed"
)

func (s TaskStatus) Valid() bool {
	switch s {
	case StatusPending, StatusInProgress, StatusCompleted:
		return true
	}
	return false
}

// Assignee is a snapshot of the assigned user taken when the task is written.
type Assignee struct {
	ID     string `json:"id" bson:"id"`
	Name   string `json:"name" bson:"name"`
	Avatar string `json:"avatar,omitempty" bson:"avatar,omitempty"`
}

type Task struct {
	ID          string     `json:"id" bson:"_id"`
	Title       string     `json:"title" bson:"title"`
	Description string     `json:"description" bson:"description"`
	Priority    Priority   `json:"priority" bson:"priority"`
	Status      TaskStatus `json:"status" bson:"status"`
	DueDate     time.Time  `json:"dueDate" bson:"dueDate"`
	DueTime     string     `json:"dueTime,omitempty" bson:"dueTime,omitempty"`
	Project     string     `json:"project,omitempty" bson:"project,omitempty"`
	Tags        []string   `json:"tags" bson:"tags"`
	Category    string     `json:"category" bson:"category"`
	Assignee    Assignee   `json:"assignee" bson:"assignee"`
	CreatedBy   string     `json:"createdBy" bson:"createdBy"`
	CreatedAt   time.Time  `json:"createdAt" bson:"createdAt"`
	UpdatedAt   time.Time  `json:"updatedAt" bson:"updatedAt"`
}

// Sortable task fields, keyed by their JSON name.
const (
	SortByDueDate   = "dueDate"
	SortByCreatedAt = "createdAt"
	SortByUpdatedAt = "updatedAt"
	SortByPriority  = "priority"
	SortByStatus    = "status"
	SortByTitle     = "title"
)

// TaskFilter selects tasks visible to UserID (creator or assignee).
type TaskFilter struct {
	UserID    string
	Status    TaskStatus
	Priority  Priority
	Category  string
	ProjectID string
	Search    string
	Page      int
	Limit     int
	SortBy    string
	SortDesc  bool
}

func (f TaskFilter) Offset() int {
	return (f.Page - 1) * f.Limit
}

type ProjectTaskFilter struct {
	ProjectID  string
	Status     TaskStatus
	Priority   Priority
	AssigneeID string
}

type TaskPagination struct {
	CurrentPage int   `json:"currentPage"`
	TotalPages  int   `json:"totalPages"`
	TotalTasks  int64 `json:"totalTasks"`
	HasNextPage bool  `json:"hasNextPage"`
	HasPrevPage bool  `json:"hasPrevPage"`
}

func NewTaskPagination(page, limit int, total int64) *TaskPagination {
	totalPages := 0
	if limit > 0 {
		totalPages = int((total + int64(limit) - 1) / int64(limit))
	}
	return &TaskPagination{
		CurrentPage: page,
		TotalPages:  totalPages,
		TotalTasks:  total,
		HasNextPage: page < totalPages,
		HasPrevPage: page > 1,
	}
}

type StatBucket struct {
	Key   string `json:"_id" bson:"_id"`
	Count int64  `json:"count" bson:"count"`
}

type TaskStats struct {
	TotalTasks        int64        `json:"totalTasks"`
	OverdueTasks      int64        `json:"overdueTasks"`
	TasksDueToday     int64        `json:"tasksDueToday"`
	StatusBreakdown   []StatBucket `json:"statusBreakdown"`
	PriorityBreakdown []StatBucket `json:"priorityBreakdown"`
}
