package models

import (
	"time"
)

// Status represents task status
type Status string

const (
	StatusTodo       Status = "todo"
	StatusInProgress Status = "inprogress"
	StatusReview     Status = "review"
	StatusCompleted  Status = "completed"
	StatusCancelled  Status = "cancelled"
)

// Priority represents task priority
type Priority string

const (
	PriorityLow    Priority = "low"
	PriorityMedium Priority = "medium" // default
	PriorityHigh   Priority = "high"
	PriorityUrgent Priority = "urgent"
)

// Role represents a member's role within a team
type Role string

const (
	RoleAdmin   Role = "admin"
	RoleManager Role = "manager"
	RoleMember  Role = "member"
	RoleViewer  Role = "viewer"
)

// ActivityType represents the type of an activity log entry
type ActivityType string

const (
	ActivityTaskCreated     ActivityType = "task_created"
	ActivityTaskUpdated     ActivityType = "task_updated"
	ActivityTaskCompleted   ActivityType = "task_completed"
	ActivityCommentAdded    ActivityType = "comment_added"
	ActivityAttachmentAdded ActivityType = "attachment_added"
	ActivityTeamJoined      ActivityType = "team_joined"
)

// NotificationType represents the type of a user notification
type NotificationType string

const (
	NotifyTaskAssigned    NotificationType = "task_assigned"
	NotifyTaskCompleted   NotificationType = "task_completed"
	NotifyCommentAdded    NotificationType = "comment_added"
	NotifyDueDateReminder NotificationType = "due_date_reminder"
	NotifyTeamInvite      NotificationType = "team_invite"
)

// Profile represents a user profile record
type Profile struct {
	ID        string    `db:"id" json:"id"`
	Email     string    `db:"email" json:"email"`
	Name      string    `db:"name" json:"name"`
	AvatarURL string    `db:"avatar_url" json:"avatar_url,omitempty"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}

// Team is the top-level collaboration scope
type Team struct {
	ID          string    `db:"id" json:"id"`
	Name        string    `db:"name" json:"name"`
	Description string    `db:"description" json:"description,omitempty"`
	CreatedBy   string    `db:"created_by" json:"created_by"`
	CreatedAt   time.Time `db:"created_at" json:"created_at"`
	UpdatedAt   time.Time `db:"updated_at" json:"updated_at"`
}

// Membership grants a user a role within a team
type Membership struct {
	ID       string    `db:"id" json:"id"`
	TeamID   string    `db:"team_id" json:"team_id"`
	UserID   string    `db:"user_id" json:"user_id"`
	Role     Role      `db:"role" json:"role"`
	JoinedAt time.Time `db:"joined_at" json:"joined_at"`
}

// Project is an optional grouping of tasks within a team
type Project struct {
	ID          string     `db:"id" json:"id"`
	Name        string     `db:"name" json:"name"`
	Description string     `db:"description" json:"description,omitempty"`
	TeamID      string     `db:"team_id" json:"team_id"`
	Status      string     `db:"status" json:"status"`
	StartDate   *time.Time `db:"start_date" json:"start_date,omitempty"`
	EndDate     *time.Time `db:"end_date" json:"end_date,omitempty"`
	CreatedBy   string     `db:"created_by" json:"created_by"`
	CreatedAt   time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt   time.Time  `db:"updated_at" json:"updated_at"`
}

// Task represents a work item in the system
type Task struct {
	ID             string     `db:"id" json:"id"`
	Title          string     `db:"title" json:"title"`
	Description    string     `db:"description" json:"description,omitempty"`
	Priority       Priority   `db:"priority" json:"priority"`
	Status         Status     `db:"status" json:"status"`
	AssigneeID     string     `db:"assignee_id" json:"assignee_id,omitempty"`
	CreatedBy      string     `db:"created_by" json:"created_by"`
	ProjectID      string     `db:"project_id" json:"project_id,omitempty"`
	TeamID         string     `db:"team_id" json:"team_id"`
	DueDate        *time.Time `db:"due_date" json:"due_date,omitempty"`
	StartDate      *time.Time `db:"start_date" json:"start_date,omitempty"`
	CompletedAt    *time.Time `db:"completed_at" json:"completed_at,omitempty"`
	EstimatedHours float64    `db:"estimated_hours" json:"estimated_hours,omitempty"`
	ActualHours    float64    `db:"actual_hours" json:"actual_hours"`
	Progress       int        `db:"progress" json:"progress"`
	Tags           []string   `db:"-" json:"tags,omitempty"`
	CreatedAt      time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt      time.Time  `db:"updated_at" json:"updated_at"`
}

// Label is a named color tag scoped to one team
type Label struct {
	ID        string    `db:"id" json:"id"`
	Name      string    `db:"name" json:"name"`
	Color     string    `db:"color" json:"color"`
	TeamID    string    `db:"team_id" json:"team_id"`
	CreatedBy string    `db:"created_by" json:"created_by"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

// Comment belongs to one task and one author, optionally threaded
type Comment struct {
	ID        string    `db:"id" json:"id"`
	TaskID    string    `db:"task_id" json:"task_id"`
	UserID    string    `db:"user_id" json:"user_id"`
	Content   string    `db:"content" json:"content"`
	ParentID  string    `db:"parent_id" json:"parent_id,omitempty"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}

// Attachment records metadata for an externally-stored blob
type Attachment struct {
	ID        string    `db:"id" json:"id"`
	TaskID    string    `db:"task_id" json:"task_id"`
	UserID    string    `db:"user_id" json:"user_id"`
	Filename  string    `db:"filename" json:"filename"`
	FileURL   string    `db:"file_url" json:"file_url"`
	FileSize  int64     `db:"file_size" json:"file_size,omitempty"`
	MimeType  string    `db:"mime_type" json:"mime_type,omitempty"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

// Dependency is a directed edge: the task cannot be considered
// complete-eligible until the task it depends on is completed or cancelled.
type Dependency struct {
	ID              string    `db:"id" json:"id"`
	TaskID          string    `db:"task_id" json:"task_id"`
	DependsOnTaskID string    `db:"depends_on_task_id" json:"depends_on_task_id"`
	CreatedAt       time.Time `db:"created_at" json:"created_at"`
}

// TimeEntry records hours logged against a task by a user
type TimeEntry struct {
	ID          string    `db:"id" json:"id"`
	TaskID      string    `db:"task_id" json:"task_id"`
	UserID      string    `db:"user_id" json:"user_id"`
	Description string    `db:"description" json:"description,omitempty"`
	Hours       float64   `db:"hours" json:"hours"`
	Date        string    `db:"date" json:"date"` // calendar date, YYYY-MM-DD
	CreatedAt   time.Time `db:"created_at" json:"created_at"`
	UpdatedAt   time.Time `db:"updated_at" json:"updated_at"`
}

// Activity is an immutable append-only record of a significant event
type Activity struct {
	ID          string       `db:"id" json:"id"`
	UserID      string       `db:"user_id" json:"user_id"`
	TeamID      string       `db:"team_id" json:"team_id,omitempty"`
	TaskID      string       `db:"task_id" json:"task_id,omitempty"`
	Type        ActivityType `db:"type" json:"type"`
	Description string       `db:"description" json:"description"`
	Metadata    string       `db:"metadata" json:"metadata,omitempty"` // JSON object
	CreatedAt   time.Time    `db:"created_at" json:"created_at"`
}

// Notification is a per-user inbox entry
type Notification struct {
	ID        string           `db:"id" json:"id"`
	UserID    string           `db:"user_id" json:"user_id"`
	Type      NotificationType `db:"type" json:"type"`
	Title     string           `db:"title" json:"title"`
	Message   string           `db:"message" json:"message"`
	Data      string           `db:"data" json:"data,omitempty"` // JSON object
	Read      bool             `db:"read" json:"read"`
	CreatedAt time.Time        `db:"created_at" json:"created_at"`
}

// TaskSummary is the shallow form of a task used when a detail view
// references other tasks (e.g. dependency targets).
type TaskSummary struct {
	ID       string   `json:"id"`
	Title    string   `json:"title"`
	Status   Status   `json:"status"`
	Priority Priority `json:"priority"`
}

// CommentWithAuthor pairs a comment with its author's profile.
type CommentWithAuthor struct {
	Comment
	User Profile `json:"user"`
}

// TimeEntryWithUser pairs a time entry with the logging user's profile.
type TimeEntryWithUser struct {
	TimeEntry
	User Profile `json:"user"`
}

// DependencyWithTask pairs a dependency edge with a summary of the
// referenced task.
type DependencyWithTask struct {
	Dependency
	DependsOnTask TaskSummary `json:"depends_on_task"`
}

// TaskDetail is the denormalized read-only aggregate of a task and all
// entities that reference it. Assembled by the projection layer; no
// business rules are re-derived there.
type TaskDetail struct {
	Task
	Assignee     *Profile             `json:"assignee,omitempty"`
	Creator      *Profile             `json:"created_by_profile,omitempty"`
	Labels       []Label              `json:"labels"`
	Comments     []CommentWithAuthor  `json:"comments"`
	Attachments  []Attachment         `json:"attachments"`
	Dependencies []DependencyWithTask `json:"dependencies"`
	TimeEntries  []TimeEntryWithUser  `json:"time_entries"`
}

// MemberWithProfile pairs a membership row with the member's profile.
type MemberWithProfile struct {
	Membership
	User Profile `json:"user"`
}

// TeamDetail is a team with its members and projects.
type TeamDetail struct {
	Team
	Members  []MemberWithProfile `json:"members"`
	Projects []Project           `json:"projects"`
}

// IsValidStatus checks if a status is valid
func IsValidStatus(s Status) bool {
	switch s {
	case StatusTodo, StatusInProgress, StatusReview, StatusCompleted, StatusCancelled:
		return true
	}
	return false
}

// IsValidPriority checks if a priority is valid
func IsValidPriority(p Priority) bool {
	switch p {
	case PriorityLow, PriorityMedium, PriorityHigh, PriorityUrgent:
		return true
	}
	return false
}

// IsValidRole checks if a role is valid
func IsValidRole(r Role) bool {
	switch r {
	case RoleAdmin, RoleManager, RoleMember, RoleViewer:
		return true
	}
	return false
}

// CanWrite reports whether a role may create, update, or delete
// team-scoped records. Viewers are read-only; an empty role means the
// user is not a member at all.
func (r Role) CanWrite() bool {
	switch r {
	case RoleAdmin, RoleManager, RoleMember:
		return true
	}
	return false
}

// IsAdmin reports whether a role may manage memberships and team settings.
func (r Role) IsAdmin() bool {
	return r == RoleAdmin
}

// IsValidActivityType checks if an activity type is valid
func IsValidActivityType(t ActivityType) bool {
	switch t {
	case ActivityTaskCreated, ActivityTaskUpdated, ActivityTaskCompleted,
		ActivityCommentAdded, ActivityAttachmentAdded, ActivityTeamJoined:
		return true
	}
	return false
}

// IsValidNotificationType checks if a notification type is valid
func IsValidNotificationType(t NotificationType) bool {
	switch t {
	case NotifyTaskAssigned, NotifyTaskCompleted, NotifyCommentAdded,
		NotifyDueDateReminder, NotifyTeamInvite:
		return true
	}
	return false
}

// ClampProgress clamps a progress value to the [0,100] range.
func ClampProgress(p int) int {
	if p < 0 {
		return 0
	}
	if p > 100 {
		return 100
	}
	return p
}

// Terminal reports whether a status counts as finished for dependency
// purposes (completed or cancelled).
func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusCancelled
}
