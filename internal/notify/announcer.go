package notify

import (
	"context"
	"time"
)

// Announcement tells the transport that an event fired. Target is the
// channel or location configured for the group; NotifyTarget is who to
// mention there.
type Announcement struct {
	GroupID      string    `json:"groupId"`
	SubjectID    string    `json:"subjectId"`
	NotifyTarget string    `json:"notifyTarget"`
	Target       string    `json:"target"`
	GroupWide    bool      `json:"groupWide"`
	OccurredAt   time.Time `json:"occurredAt"`
}

// Announcer delivers announcements. Delivery is best-effort: the scheduler
// logs a failed announce and reschedules the event regardless.
type Announcer interface {
	Announce(ctx context.Context, a Announcement) error
}
