package session

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestSessionStateBoundaries(t *testing.T) {
	start := time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)
	end := start.Add(2 * time.Hour)
	s := Session{StartTime: start, EndTime: end}

	testCases := []struct {
		name string
		now  time.Time
		want State
	}{
		{"before start", start.Add(-time.Second), StateClosed},
		{"exactly at start", start, StateOpen},
		{"mid window", start.Add(time.Hour), StateOpen},
		{"exactly at end", end, StateOpen},
		{"one second after end", end.Add(time.Second), StateClosed},
		{"one minute after end", end.Add(time.Minute), StateClosed},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, s.StateAt(tc.now))
		})
	}
}

func TestSessionOwnedBy(t *testing.T) {
	s := Session{LecturerID: "lec-1"}
	assert.True(t, s.OwnedBy("lec-1"))
	assert.False(t, s.OwnedBy("lec-2"))
}
