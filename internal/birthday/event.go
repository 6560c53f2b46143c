package birthday

import (
	"time"
)

// Event is one scheduled occurrence of a subject's annual date. Values are
// never mutated after insertion; rescheduling replaces the whole value.
type Event struct {
	SubjectID     string    `json:"subjectId" db:"subject_id"`
	OccurrenceAt  time.Time `json:"occurrenceAt" db:"occurrence_at"`
	UsesTimeOfDay bool      `json:"usesTimeOfDay" db:"uses_time_of_day"`
	NotifyTarget  string    `json:"notifyTarget" db:"notify_target"`
}

// TimeOfDay is an optional wall-clock time for an annual date.
type TimeOfDay struct {
	Hour   int `json:"hour"`
	Minute int `json:"minute"`
}

// GroupConfig holds per-group settings created by setup and changed only by
// explicit config commands.
type GroupConfig struct {
	GroupID           string `json:"groupId" db:"group_id"`
	Timezone          string `json:"timezone,omitempty" db:"timezone"`
	AnnounceTarget    string `json:"announceTarget,omitempty" db:"announce_target"`
	AllowAnyoneEdit   bool   `json:"allowAnyoneEdit" db:"allow_anyone_edit"`
	AnnounceGroupWide bool   `json:"announceGroupWide" db:"announce_group_wide"`
}
