package coach

import (
	"sort"
	"time"
)

// RankNotes sorts notes by priority, most urgent first. Notes of equal
// priority keep rule order.
func RankNotes(notes []Note) []Note {
	sort.SliceStable(notes, func(i, j int) bool {
		return notes[i].Priority < notes[j].Priority
	})
	return notes
}

// TipOfTheDay picks a tip by calendar day, so every call on the same date
// returns the same tip.
func TipOfTheDay(date time.Time) Message {
	y, m, d := date.Date()
	days := time.Date(y, m, d, 0, 0, 0, 0, time.UTC).Unix() / 86400
	n := int64(len(TipOfTheDayKeys))
	return msg(TipOfTheDayKeys[((days%n)+n)%n])
}
