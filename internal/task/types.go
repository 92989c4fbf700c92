package task

import "time"

type Status string

const (
	StatusNotStarted Status = "not_started"
	StatusInProgress Status = "in_progress"
	StatusWaiting    Status = "waiting"
	StatusComplete   Status = "complete"
)

// Statuses is the kanban column order.
var Statuses = []Status{StatusNotStarted, StatusInProgress, StatusWaiting, StatusComplete}

func (s Status) Valid() bool {
	switch s {
	case StatusNotStarted, StatusInProgress, StatusWaiting, StatusComplete:
		return true
	}
	return false
}

type Priority string

const (
	PriorityCritical Priority = "critical"
	PriorityHigh     Priority = "high"
	PriorityMedium   Priority = "medium"
	PriorityLow      Priority = "low"
)

var Priorities = []Priority{PriorityCritical, PriorityHigh, PriorityMedium, PriorityLow}

func (p Priority) Valid() bool {
	switch p {
	case PriorityCritical, PriorityHigh, PriorityMedium, PriorityLow:
		return true
	}
	return false
}

type Type string

const (
	TypeOneTime   Type = "one_time"
	TypeReference Type = "reference"
	TypeMeeting   Type = "meeting"
)

func (t Type) Valid() bool {
	switch t {
	case TypeOneTime, TypeReference, TypeMeeting:
		return true
	}
	return false
}

type Direction string

const (
	DirectionPersonal Direction = "personal"
	DirectionOutbound Direction = "outbound"
	DirectionInbound  Direction = "inbound"
)

func (d Direction) Valid() bool {
	switch d {
	case DirectionPersonal, DirectionOutbound, DirectionInbound:
		return true
	}
	return false
}

// Rule is the recurrence cadence.
type Rule string

const (
	RuleDaily     Rule = "daily"
	RuleWeekly    Rule = "weekly"
	RuleBiweekly  Rule = "biweekly"
	RuleMonthly   Rule = "monthly"
	RuleQuarterly Rule = "quarterly"
	RuleYearly    Rule = "yearly"
)

func (r Rule) Valid() bool {
	switch r {
	case RuleDaily, RuleWeekly, RuleBiweekly, RuleMonthly, RuleQuarterly, RuleYearly:
		return true
	}
	return false
}

// DateFormat is the wire and storage format for calendar dates (no time component).
const DateFormat = "2006-01-02"

type Task struct {
	ID          int64  `json:"id"`
	Title       string `json:"title"`
	Description string `json:"description,omitempty"`

	// DueDate is a calendar date in DateFormat; empty means no due date.
	DueDate string `json:"due_date,omitempty"`
	// DueTime is "HH:MM"; only meaningful with a DueDate.
	DueTime      string     `json:"due_time,omitempty"`
	ReminderDate *time.Time `json:"reminder_date,omitempty"`

	Status    Status    `json:"status"`
	Priority  Priority  `json:"priority"`
	Type      Type      `json:"task_type"`
	Direction Direction `json:"direction"`

	LegalMatterID *int64 `json:"related_legal_matter,omitempty"`
	PropertyID    *int64 `json:"related_property,omitempty"`

	IsRecurring    bool `json:"is_recurring"`
	RecurrenceRule Rule `json:"recurrence_rule,omitempty"`

	StakeholderIDs []int64 `json:"related_stakeholders"`

	SubtaskCount int `json:"subtask_count"`
	SubtaskDone  int `json:"subtask_done"`

	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
}

func (t *Task) IsMeeting() bool { return t.Type == TypeMeeting }

type SubTask struct {
	ID          int64     `json:"id"`
	TaskID      int64     `json:"task_id"`
	Title       string    `json:"title"`
	IsCompleted bool      `json:"is_completed"`
	SortOrder   int       `json:"sort_order"`
	CreatedAt   time.Time `json:"created_at"`
}

type FollowUp struct {
	ID               int64      `json:"id"`
	TaskID           int64      `json:"task_id"`
	StakeholderID    *int64     `json:"stakeholder_id,omitempty"`
	OutreachDate     time.Time  `json:"outreach_date"`
	Method           string     `json:"method,omitempty"`
	ReminderEnabled  bool       `json:"reminder_enabled"`
	FollowUpDays     int        `json:"follow_up_days"`
	ResponseReceived bool       `json:"response_received"`
	ResponseDate     *time.Time `json:"response_date,omitempty"`
	ResponseNotes    string     `json:"response_notes,omitempty"`
	NotesText        string     `json:"notes_text,omitempty"`
}

// ReminderDue is the moment this follow-up goes stale.
func (f *FollowUp) ReminderDue() time.Time {
	return f.OutreachDate.AddDate(0, 0, f.FollowUpDays)
}

// IsStale reports whether a reminder-enabled, unanswered follow-up is past
// its reminder window at the given instant.
func (f *FollowUp) IsStale(now time.Time) bool {
	return f.ReminderEnabled && !f.ResponseReceived && now.After(f.ReminderDue())
}
