// Package history defines the persisted practice-session record and routes
// saves and reads to the signed-in (remote) or guest (local) store.
package history

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/blackwell-systems/smilecoach/internal/smile"
)

var (
	// ErrUnauthenticated is returned when an operation needs an identity and
	// none was supplied.
	ErrUnauthenticated = errors.New("unauthenticated")
	// ErrSessionNotFound is returned when a record id is unknown to the store.
	ErrSessionNotFound = errors.New("session not found")
	// ErrRemoteSaveFailed wraps a failed remote save. The record is kept in
	// the pending queue when this is returned.
	ErrRemoteSaveFailed = errors.New("remote save failed")
)

// Mood is a self-reported feeling before or after a session.
type Mood string

// Moods reported before a session.
const (
	MoodHappy   Mood = "happy"
	MoodNeutral Mood = "neutral"
	MoodSad     Mood = "sad"
)

// Moods reported after a session.
const (
	MoodBetter Mood = "better"
	MoodSame   Mood = "same"
	MoodTired  Mood = "tired"
)

// ParseMoodBefore accepts a pre-session mood.
func ParseMoodBefore(s string) (Mood, error) {
	m := Mood(strings.ToLower(strings.TrimSpace(s)))
	switch m {
	case MoodHappy, MoodNeutral, MoodSad:
		return m, nil
	}
	return "", fmt.Errorf("unknown mood %q (want happy, neutral or sad)", s)
}

// ParseMoodAfter accepts a post-session mood.
func ParseMoodAfter(s string) (Mood, error) {
	m := Mood(strings.ToLower(strings.TrimSpace(s)))
	switch m {
	case MoodBetter, MoodSame, MoodTired:
		return m, nil
	}
	return "", fmt.Errorf("unknown mood %q (want better, same or tired)", s)
}

// Evidence is the single best capture retained for a session.
type Evidence struct {
	Image    []byte          `json:"image,omitempty"`
	Quality  smile.Quality   `json:"quality"`
	Snippets []smile.Snippet `json:"snippets,omitempty"`
}

// Record is one completed practice session.
type Record struct {
	ID              string         `json:"id"`
	CreatedAt       time.Time      `json:"created_at"`
	Context         smile.Context  `json:"context"`
	Purpose         smile.Purpose  `json:"purpose,omitempty"`
	MaxScore        int            `json:"max_score"`
	MoodBefore      Mood           `json:"mood_before,omitempty"`
	MoodAfter       Mood           `json:"mood_after,omitempty"`
	DurationSeconds int            `json:"duration_seconds"`
	MetricsAtMax    map[string]int `json:"metrics_at_max,omitempty"`
	Evidence        *Evidence      `json:"evidence,omitempty"`
}

// NewID returns a time-ordered record id.
func NewID() string {
	id, err := uuid.NewV7()
	if err != nil {
		return uuid.NewString()
	}
	return id.String()
}

// SortNewestFirst orders records by creation time, newest first. Records
// created in the same instant fall back to id order.
func SortNewestFirst(records []Record) {
	sort.SliceStable(records, func(i, j int) bool {
		if !records[i].CreatedAt.Equal(records[j].CreatedAt) {
			return records[i].CreatedAt.After(records[j].CreatedAt)
		}
		return records[i].ID > records[j].ID
	})
}

// Identity scopes history. A signed-in identity carries a user id; a guest
// carries only a device id.
type Identity struct {
	UserID   string `json:"user_id,omitempty"`
	DeviceID string `json:"device_id,omitempty"`
}

// SignedIn reports whether the identity belongs to an account.
func (i Identity) SignedIn() bool {
	return i.UserID != ""
}

// Guest reports whether the identity is a device-only guest.
func (i Identity) Guest() bool {
	return i.UserID == "" && i.DeviceID != ""
}

// TodayAggregate summarizes the sessions of the current calendar day.
type TodayAggregate struct {
	SessionCount int `json:"session_count"`
	MaxScore     int `json:"max_score"`
	AvgScore     int `json:"avg_score"`
	TotalSeconds int `json:"total_seconds"`
}
