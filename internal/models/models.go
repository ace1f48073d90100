package models

import "time"

type TaskStatus string

const (
	TaskStatusTodo       TaskStatus = "todo"
	TaskStatusInProgress TaskStatus = "in-progress"
	TaskStatusDone       TaskStatus = "done"
)

// Level grades priority, energy level and energy required.
type Level string

const (
	LevelLow    Level = "low"
	LevelMedium Level = "medium"
	LevelHigh   Level = "high"
)

type EventType string

const (
	EventTypeTask        EventType = "task"
	EventTypeAppointment EventType = "appointment"
	EventTypeReminder    EventType = "reminder"
	EventTypeBreak       EventType = "break"
)

type FocusMode string

const (
	FocusModeFocus      FocusMode = "focus"
	FocusModeShortBreak FocusMode = "shortBreak"
	FocusModeLongBreak  FocusMode = "longBreak"
)

// User holds sign-in credentials. It never leaves the server.
type User struct {
	ID           string
	Email        string
	PasswordHash *string
	OIDCSubject  *string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

type Profile struct {
	ID          string    `json:"id"`
	UserID      string    `json:"userId"`
	Email       string    `json:"email"`
	DisplayName *string   `json:"displayName,omitempty"`
	AvatarURL   *string   `json:"avatarUrl,omitempty"`
	Timezone    *string   `json:"timezone,omitempty"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

// Task invariant: CompletedAt is set if and only if Status is done.
type Task struct {
	ID            string     `json:"id"`
	UserID        string     `json:"userId"`
	ProjectID     *string    `json:"projectId,omitempty"`
	Title         string     `json:"title"`
	Description   *string    `json:"description,omitempty"`
	Status        TaskStatus `json:"status"`
	Priority      Level      `json:"priority"`
	EnergyLevel   Level      `json:"energyLevel"`
	IsQuickWin    bool       `json:"isQuickWin"`
	EstimatedTime *int       `json:"estimatedTime,omitempty"` // minutes
	ActualTime    *int       `json:"actualTime,omitempty"`    // minutes
	CompletedAt   *time.Time `json:"completedAt,omitempty"`
	CreatedAt     time.Time  `json:"createdAt"`
	UpdatedAt     time.Time  `json:"updatedAt"`
}

type Project struct {
	ID          string    `json:"id"`
	UserID      string    `json:"userId"`
	Name        string    `json:"name"`
	Description *string   `json:"description,omitempty"`
	Color       string    `json:"color"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`

	// TaskIDs is derived and never persisted; it is filled only when fetched
	// explicitly.
	TaskIDs []string `json:"taskIds,omitempty"`
}

type CalendarEvent struct {
	ID             string    `json:"id"`
	UserID         string    `json:"userId"`
	Title          string    `json:"title"`
	Type           EventType `json:"type"`
	Date           string    `json:"date"`           // YYYY-MM-DD
	Time           *string   `json:"time,omitempty"` // HH:MM
	EnergyRequired Level     `json:"energyRequired"`
	IsCompleted    bool      `json:"isCompleted"`
	IsUrgent       bool      `json:"isUrgent"`
	Duration       *int      `json:"duration,omitempty"` // minutes
	Description    *string   `json:"description,omitempty"`
	CreatedAt      time.Time `json:"createdAt"`
	UpdatedAt      time.Time `json:"updatedAt"`
}

type UserActivity struct {
	ID                string    `json:"id"`
	UserID            string    `json:"userId"`
	Timestamp         time.Time `json:"timestamp"`
	FocusScore        float64   `json:"focusScore"`
	EnergyLevel       float64   `json:"energyLevel"`
	ProductivityScore float64   `json:"productivityScore"`
	TasksCompleted    int       `json:"tasksCompleted"`
	FocusMinutes      int       `json:"focusMinutes"`
	FlowStateMinutes  int       `json:"flowStateMinutes"`
	CreatedAt         time.Time `json:"createdAt"`
	UpdatedAt         time.Time `json:"updatedAt"`
}

// DailyActivitySummary is computed by the backend; scores are averages and
// counters are sums over one calendar day.
type DailyActivitySummary struct {
	Date              string  `json:"date"`
	FocusScore        float64 `json:"focusScore"`
	EnergyLevel       float64 `json:"energyLevel"`
	ProductivityScore float64 `json:"productivityScore"`
	TasksCompleted    int     `json:"tasksCompleted"`
	FocusMinutes      int     `json:"focusMinutes"`
	FlowStateMinutes  int     `json:"flowStateMinutes"`
	Entries           int     `json:"entries"`
}

type FocusSession struct {
	ID          string    `json:"id"`
	UserID      string    `json:"userId"`
	Duration    int       `json:"duration"` // minutes
	Mode        FocusMode `json:"mode"`
	Completed   bool      `json:"completed"`
	EnergyLevel *Level    `json:"energyLevel,omitempty"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

type FocusSettings struct {
	ID                     string    `json:"id,omitempty"`
	UserID                 string    `json:"userId"`
	FocusDuration          int       `json:"focusDuration"`
	ShortBreakDuration     int       `json:"shortBreakDuration"`
	LongBreakDuration      int       `json:"longBreakDuration"`
	SessionsUntilLongBreak int       `json:"sessionsUntilLongBreak"`
	SoundEnabled           bool      `json:"soundEnabled"`
	Theme                  string    `json:"theme"`
	Volume                 float64   `json:"volume"`
	LoopAudio              bool      `json:"loopAudio"`
	LastPlayedSound        *string   `json:"lastPlayedSound,omitempty"`
	CreatedAt              time.Time `json:"createdAt"`
	UpdatedAt              time.Time `json:"updatedAt"`
}

type FocusStreak struct {
	ID            string    `json:"id,omitempty"`
	UserID        string    `json:"userId"`
	CurrentStreak int       `json:"currentStreak"`
	LongestStreak int       `json:"longestStreak"`
	LastFocusDate *string   `json:"lastFocusDate,omitempty"` // YYYY-MM-DD
	CreatedAt     time.Time `json:"createdAt"`
	UpdatedAt     time.Time `json:"updatedAt"`
}

type FocusTodayStats struct {
	Date            string `json:"date"`
	CompletedFocus  int    `json:"completedFocusSessions"`
	FocusMinutes    int    `json:"focusMinutes"`
	CompletedBreaks int    `json:"completedBreaks"`
}
