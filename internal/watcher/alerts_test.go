package watcher

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/blackwell-systems/smilecoach/internal/history"
	"github.com/blackwell-systems/smilecoach/internal/smile"
)

func rec(id string, score int) history.Record {
	return history.Record{ID: id, Context: smile.ContextJoy, MaxScore: score, DurationSeconds: 90}
}

func titles(alerts []Alert) []string {
	var out []string
	for _, a := range alerts {
		out = append(out, a.Title)
	}
	return out
}

func TestCompare_IdenticalStates(t *testing.T) {
	prev := &WatchState{CurrentStreak: 2, BestScore: 80, records: []history.Record{rec("a", 80)}}
	curr := &WatchState{CurrentStreak: 2, BestScore: 80, records: []history.Record{rec("a", 80)}}
	assert.Empty(t, Compare(prev, curr))
}

func TestCompare_NewSessionAndPersonalBest(t *testing.T) {
	prev := &WatchState{BestScore: 80, records: []history.Record{rec("a", 80)}}
	curr := &WatchState{BestScore: 91, records: []history.Record{rec("b", 91), rec("a", 80)}}

	alerts := Compare(prev, curr)
	require.Equal(t, []string{"Session completed: joy", "New personal best"}, titles(alerts))
	assert.Equal(t, "Best score 91 in 1m30s", alerts[0].Message)
	assert.Equal(t, "Scored 91, up from 80", alerts[1].Message)
}

func TestCompare_FirstSessionIsNotAPersonalBest(t *testing.T) {
	prev := &WatchState{}
	curr := &WatchState{BestScore: 70, records: []history.Record{rec("a", 70)}}
	assert.Equal(t, []string{"Session completed: joy"}, titles(Compare(prev, curr)))
}

func TestCompare_StreakMilestones(t *testing.T) {
	alerts := Compare(&WatchState{CurrentStreak: 6}, &WatchState{CurrentStreak: 7})
	require.Len(t, alerts, 1)
	assert.Equal(t, "Streak milestone", alerts[0].Title)
	assert.Equal(t, "7 days of practice in a row", alerts[0].Message)

	// Crossing two milestones at once reports both.
	alerts = Compare(&WatchState{CurrentStreak: 2}, &WatchState{CurrentStreak: 7})
	assert.Len(t, alerts, 2)
}

func TestCompare_StreakEnded(t *testing.T) {
	alerts := Compare(&WatchState{CurrentStreak: 5}, &WatchState{CurrentStreak: 0})
	require.Len(t, alerts, 1)
	assert.Equal(t, "warning", alerts[0].Level)
	assert.Equal(t, "Streak ended", alerts[0].Title)

	assert.Empty(t, Compare(&WatchState{CurrentStreak: 1}, &WatchState{CurrentStreak: 0}))
}

func TestFormatDuration(t *testing.T) {
	assert.Equal(t, "0s", formatDuration(0))
	assert.Equal(t, "2m5s", formatDuration(125))
	assert.Equal(t, time.Minute.String(), formatDuration(60))
}
