package models

import (
	"time"
)

// DateLayout is the calendar-day format used in persisted records
const DateLayout = "2006-01-02"

// UnlockReason records why the gate was released
type UnlockReason string

const (
	ReasonSolved            UnlockReason = "solved"
	ReasonEmergencyOverride UnlockReason = "emergency"
	ReasonCrashFailsafe     UnlockReason = "crash-failsafe"
)

// GateState is derived from the unlock record and the current date, never stored
type GateState int

const (
	StateLocked GateState = iota
	StateUnlocked
)

func (s GateState) String() string {
	if s == StateUnlocked {
		return "unlocked"
	}
	return "locked"
}

// UnlockRecord is the single persisted record of the most recent unlock
type UnlockRecord struct {
	Date       string       `json:"last_unlock_date"`
	Reason     UnlockReason `json:"last_unlock_reason"`
	SourceID   string       `json:"last_unlock_source,omitempty"`
	UnlockedAt time.Time    `json:"last_unlock_at,omitzero"`
}

// IsZero reports whether the record carries no unlock
func (r UnlockRecord) IsZero() bool {
	return r.Date == ""
}

// AchievementEvent is a completed-task record from the external source
type AchievementEvent struct {
	ID        string `json:"id"`
	Title     string `json:"title"`
	Timestamp int64  `json:"timestamp"`
}

// Time returns the event timestamp in the given location
func (e AchievementEvent) Time(loc *time.Location) time.Time {
	return time.Unix(e.Timestamp, 0).In(loc)
}

// Day returns the calendar day of t in loc, formatted with DateLayout
func Day(t time.Time, loc *time.Location) string {
	if loc == nil {
		loc = time.Local
	}
	return t.In(loc).Format(DateLayout)
}

// StateFor derives the gate state from a record for the given day.
// Records from any other day never count, whatever their reason.
func StateFor(rec UnlockRecord, today string) GateState {
	if !rec.IsZero() && rec.Date == today {
		return StateUnlocked
	}
	return StateLocked
}

// IsValidReason checks if a reason is one of the known unlock reasons
func IsValidReason(r UnlockReason) bool {
	switch r {
	case ReasonSolved, ReasonEmergencyOverride, ReasonCrashFailsafe:
		return true
	}
	return false
}
